package locations

import (
	"fmt"
	"sort"
	"strings"

	"github.com/openfpp/registry-api-go/facilities"
)

// Node is one administrative region in the location hierarchy. Ids are
// sequential and assigned during tree construction; FacilityCount is
// incremented by the indexing engine once per facility resolved to the node.
type Node struct {
	ID            int
	SourceID      string
	Name          string
	ParentID      int
	ParentName    string
	PathIDs       []int
	PathNames     []string
	Level         int
	FacilityCount int
}

// Tree holds the built location hierarchy, addressable by sequential id and
// by source id.
type Tree struct {
	byID     map[int]*Node
	bySource map[string]*Node
	ordered  []*Node
}

// Build turns flat {id, name, parent_id} rows into a tree with computed
// root-first paths. A parent id that resolves to no known location makes the
// node a root; that mirrors sentinel parent values in source data. A cycle in
// the parent graph is a structural error.
func Build(rows []facilities.Location) (*Tree, error) {
	t := &Tree{
		byID:     make(map[int]*Node, len(rows)),
		bySource: make(map[string]*Node, len(rows)),
	}

	for _, row := range rows {
		if _, ok := t.bySource[row.ID]; ok {
			continue
		}
		node := &Node{
			ID:       len(t.ordered) + 1,
			SourceID: row.ID,
			Name:     row.Name,
		}
		t.byID[node.ID] = node
		t.bySource[row.ID] = node
		t.ordered = append(t.ordered, node)
	}

	for _, row := range rows {
		node := t.bySource[row.ID]
		if parent, ok := t.bySource[row.ParentID]; ok && parent != node {
			node.ParentID = parent.ID
			node.ParentName = parent.Name
		}
	}

	for _, node := range t.ordered {
		if err := t.computePath(node); err != nil {
			return nil, err
		}
	}

	return t, nil
}

// computePath walks parent pointers up to the root and memoizes the result,
// so each node's path is materialized exactly once.
func (t *Tree) computePath(node *Node) error {
	if node.PathIDs != nil {
		return nil
	}

	var chain []*Node
	seen := make(map[int]bool)
	for cur := node; cur != nil; cur = t.byID[cur.ParentID] {
		if seen[cur.ID] {
			return fmt.Errorf("location hierarchy has a cycle at %q (source id %s)", cur.Name, cur.SourceID)
		}
		seen[cur.ID] = true
		chain = append(chain, cur)
		if cur.PathIDs != nil {
			break
		}
	}

	// chain is leaf-first; the last entry is either a root or a node whose
	// path is already known.
	base := chain[len(chain)-1]
	pathIDs := append([]int{}, base.PathIDs...)
	pathNames := append([]string{}, base.PathNames...)
	if base.PathIDs == nil {
		pathIDs = []int{base.ID}
		pathNames = []string{base.Name}
		base.setPath(pathIDs, pathNames)
	}

	for i := len(chain) - 2; i >= 0; i-- {
		cur := chain[i]
		pathIDs = append(append([]int{}, pathIDs...), cur.ID)
		pathNames = append(append([]string{}, pathNames...), cur.Name)
		cur.setPath(pathIDs, pathNames)
	}

	return nil
}

func (n *Node) setPath(pathIDs []int, pathNames []string) {
	n.PathIDs = pathIDs
	n.PathNames = pathNames
	n.Level = len(pathIDs)
}

// Get returns the node with the given sequential id.
func (t *Tree) Get(id int) *Node {
	return t.byID[id]
}

// BySource returns the node a source location id resolves to.
func (t *Tree) BySource(sourceID string) (*Node, bool) {
	n, ok := t.bySource[sourceID]
	return n, ok
}

// Nodes returns all nodes in id order.
func (t *Tree) Nodes() []*Node {
	return t.ordered
}

func (t *Tree) Len() int {
	return len(t.ordered)
}

// MaxLevel is the depth of the deepest node, i.e. the number of location_N
// columns a dataset dump needs.
func (t *Tree) MaxLevel() int {
	max := 0
	for _, n := range t.ordered {
		if n.Level > max {
			max = n.Level
		}
	}
	return max
}

const pathSep = "\x1f"

// FromPaths normalizes implicit root-to-leaf name paths (e.g. the
// administrative_boundaries-N columns of a survey export) into flat
// {id, name, parent_id} rows. Nodes are deduplicated by full path, not leaf
// name: the same leaf name under different parents is a different location.
//
// For every path each prefix is registered, walking from the longest prefix
// down and short-circuiting as soon as a prefix is already known, so each
// node is materialized once.
func FromPaths(paths [][]string) []facilities.Location {
	known := make(map[string]bool)
	var rows []facilities.Location

	for _, path := range paths {
		for size := len(path); size >= 1; size-- {
			prefix := path[:size]
			key := strings.Join(prefix, pathSep)
			if known[key] {
				break
			}
			known[key] = true
			rows = append(rows, facilities.Location{
				ID:       key,
				Name:     prefix[size-1],
				ParentID: strings.Join(prefix[:size-1], pathSep),
			})
		}
	}

	// Rows were appended leaf-first per path. Sort parents before children so
	// sequential id assignment follows the hierarchy; the stable sort keeps
	// first-seen order within a level, which keeps ids deterministic.
	sort.SliceStable(rows, func(i, j int) bool {
		return strings.Count(rows[i].ID, pathSep) < strings.Count(rows[j].ID, pathSep)
	})
	return rows
}

// PathKey joins a name path the same way FromPaths keys its rows, letting
// callers resolve a facility's implicit path to the generated source id.
func PathKey(path []string) string {
	return strings.Join(path, pathSep)
}
