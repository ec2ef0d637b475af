package locations

import (
	"testing"

	"github.com/openfpp/registry-api-go/facilities"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ethiopiaRows() []facilities.Location {
	return []facilities.Location{
		{ID: "L1", Name: "Ethiopia", ParentID: "-----------------"},
		{ID: "L2", Name: "Snnp Region", ParentID: "L1"},
		{ID: "L3", Name: "Gurage Zone", ParentID: "L2"},
		{ID: "L4", Name: "Hadiya Zone", ParentID: "L2"},
	}
}

func TestBuildAssignsSequentialIds(t *testing.T) {
	tree, err := Build(ethiopiaRows())
	require.NoError(t, err)

	require.Equal(t, 4, tree.Len())
	for i, node := range tree.Nodes() {
		assert.Equal(t, i+1, node.ID)
	}
}

func TestBuildComputesPaths(t *testing.T) {
	tree, err := Build(ethiopiaRows())
	require.NoError(t, err)

	gurage, ok := tree.BySource("L3")
	require.True(t, ok)
	assert.Equal(t, []int{1, 2, 3}, gurage.PathIDs)
	assert.Equal(t, []string{"Ethiopia", "Snnp Region", "Gurage Zone"}, gurage.PathNames)
	assert.Equal(t, 3, gurage.Level)
	assert.Equal(t, "Snnp Region", gurage.ParentName)

	for _, node := range tree.Nodes() {
		assert.Len(t, node.PathIDs, node.Level)
		assert.Equal(t, node.ID, node.PathIDs[len(node.PathIDs)-1])
		root := tree.Get(node.PathIDs[0])
		assert.Zero(t, root.ParentID)
	}
}

func TestBuildUnknownParentMakesRoot(t *testing.T) {
	tree, err := Build([]facilities.Location{
		{ID: "L9", Name: "Orphan", ParentID: "MISSING"},
	})
	require.NoError(t, err)

	orphan, _ := tree.BySource("L9")
	assert.Zero(t, orphan.ParentID)
	assert.Equal(t, []int{orphan.ID}, orphan.PathIDs)
	assert.Equal(t, 1, orphan.Level)
}

func TestBuildDetectsCycle(t *testing.T) {
	_, err := Build([]facilities.Location{
		{ID: "A", Name: "A", ParentID: "B"},
		{ID: "B", Name: "B", ParentID: "A"},
	})
	assert.Error(t, err)
}

func TestBuildMaxLevel(t *testing.T) {
	tree, err := Build(ethiopiaRows())
	require.NoError(t, err)
	assert.Equal(t, 3, tree.MaxLevel())
}

func TestFromPathsDedupsByFullPath(t *testing.T) {
	rows := FromPaths([][]string{
		{"Ethiopia", "Snnp Region", "Gurage Zone"},
		{"Ethiopia", "Snnp Region", "Hadiya Zone"},
	})

	// Four distinct nodes: same leaf-count under one shared trunk.
	require.Len(t, rows, 4)

	tree, err := Build(rows)
	require.NoError(t, err)

	gurage, ok := tree.BySource(PathKey([]string{"Ethiopia", "Snnp Region", "Gurage Zone"}))
	require.True(t, ok)
	assert.Equal(t, []int{1, 2, 3}, gurage.PathIDs)

	hadiya, ok := tree.BySource(PathKey([]string{"Ethiopia", "Snnp Region", "Hadiya Zone"}))
	require.True(t, ok)
	assert.Equal(t, 4, hadiya.ID)
	assert.Equal(t, "Snnp Region", hadiya.ParentName)
}

func TestFromPathsSameLeafDifferentParents(t *testing.T) {
	rows := FromPaths([][]string{
		{"Region A", "Central"},
		{"Region B", "Central"},
	})

	tree, err := Build(rows)
	require.NoError(t, err)
	require.Equal(t, 4, tree.Len())

	a, _ := tree.BySource(PathKey([]string{"Region A", "Central"}))
	b, _ := tree.BySource(PathKey([]string{"Region B", "Central"}))
	assert.NotEqual(t, a.ID, b.ID)
}
