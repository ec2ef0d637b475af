package normalizer

import (
	"fmt"
	"os"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/openfpp/registry-api-go/dataset"
	"github.com/openfpp/registry-api-go/facilities"
)

// Field metadata of a spreadsheet-registry collection. Hierarchy fields hold
// nested option trees (ownership: gov > gov_public), options fields hold flat
// code/label pairs.
type FieldSet struct {
	Fields []Field `json:"fields"`
}

type Field struct {
	Code   string      `json:"code"`
	Kind   string      `json:"kind"`
	Config FieldConfig `json:"config"`
}

type FieldConfig struct {
	Hierarchy []HierarchyNode `json:"hierarchy"`
	Options   []Option        `json:"options"`
}

type HierarchyNode struct {
	ID   string          `json:"id"`
	Name string          `json:"name"`
	Sub  []HierarchyNode `json:"sub"`
}

type Option struct {
	ID    int    `json:"id"`
	Code  string `json:"code"`
	Label string `json:"label"`
}

func ReadFieldSets(path string) ([]FieldSet, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var sets []FieldSet
	if err := jsoniter.Unmarshal(raw, &sets); err != nil {
		return nil, fmt.Errorf("parse field metadata %s: %w", path, err)
	}
	return sets, nil
}

// Column and field codes of the spreadsheet-registry export schema.
const (
	siteIDColumn       = "resmap-id"
	siteLastUpdated    = "last updated"
	typeFieldCode      = "facility_type"
	ownershipFieldCode = "ownership"
	servicesFieldCode  = "general_services"
	locationFieldCode  = "Admin_health_hierarchy"
)

// SpreadsheetRegistry normalizes a site export plus its collection field
// metadata. Field values are machine codes resolved through the metadata's
// hierarchy and option tables.
type SpreadsheetRegistry struct {
	Sites         []dataset.Row
	Fields        []FieldSet
	Locales       []string
	DefaultLocale string
	Translations  *Translations
}

func (n *SpreadsheetRegistry) Normalize() (facilities.RecordSet, error) {
	fieldByCode := make(map[string]Field)
	for _, set := range n.Fields {
		for _, f := range set.Fields {
			fieldByCode[f.Code] = f
		}
	}

	typePaths := hierarchyPaths(fieldByCode[typeFieldCode].Config.Hierarchy)
	ownershipPaths := hierarchyPaths(fieldByCode[ownershipFieldCode].Config.Hierarchy)

	var set facilities.RecordSet
	set.Locations = flattenHierarchy(fieldByCode[locationFieldCode].Config.Hierarchy)

	categoryIdx := make(map[string]int)
	for _, opt := range fieldByCode[servicesFieldCode].Config.Options {
		categoryIdx[opt.Code] = len(set.Categories)
		set.Categories = append(set.Categories, facilities.Category{
			ID:    opt.Code,
			Names: localizedNames(n.Translations, opt.Label, n.DefaultLocale, n.Locales),
		})
	}

	// Declaring every configured type up front gives zero-count types the
	// lowest priorities and makes equal-count ties follow metadata order.
	counter := newTypeCounter()
	for _, path := range orderedHierarchyNames(fieldByCode[typeFieldCode].Config.Hierarchy) {
		counter.declare(path)
	}

	for _, site := range n.Sites {
		lat, lng := site.Float("lat"), site.Float("long")
		if lat == nil || lng == nil {
			set.SkippedNoPosition++
			continue
		}

		typeCode := site.Get(typeFieldCode)
		typePath, ok := typePaths[typeCode]
		if !ok {
			return facilities.RecordSet{}, fmt.Errorf("facility type %q of site %s is not in the collection's %s hierarchy", typeCode, site.Get(siteIDColumn), typeFieldCode)
		}
		typeName := typePath[len(typePath)-1]
		counter.observe(typeName)

		id := site.Get(siteIDColumn)
		set.Facilities = append(set.Facilities, facilities.Facility{
			ID:           id,
			Name:         site.Get("name"),
			Lat:          lat,
			Lng:          lng,
			LocationID:   site.Get(locationFieldCode),
			FacilityType: typeName,
			Ownership:    resolveOwnership(ownershipPaths, site.Get(ownershipFieldCode)),
			ContactName:  site.Get("pocname"),
			ContactEmail: site.Get("facility__official_email"),
			ContactPhone: site.Get("facility__official_phone_number"),
			LastUpdated:  parseTime(site.Get(siteLastUpdated)),
		})

		for _, code := range splitList(site.Get(servicesFieldCode), ",") {
			if _, ok := categoryIdx[code]; !ok {
				// Codes outside the option table are synthesized with a
				// humanized name so the association is never lost.
				categoryIdx[code] = len(set.Categories)
				set.Categories = append(set.Categories, facilities.Category{
					ID:    code,
					Names: localizedNames(n.Translations, humanizeCode(code), n.DefaultLocale, n.Locales),
				})
			}
			set.Associations = append(set.Associations, facilities.Association{
				FacilityID: id,
				CategoryID: code,
			})
		}
	}

	set.FacilityTypes = counter.ranked()
	return set, nil
}

// resolveOwnership joins the hierarchy path of an ownership code root-first,
// "gov_public" -> "Government - Public". Codes outside the hierarchy pass
// through unchanged.
func resolveOwnership(paths map[string][]string, code string) string {
	if code == "" {
		return ""
	}
	if path, ok := paths[code]; ok {
		return strings.Join(path, " - ")
	}
	return code
}

// hierarchyPaths maps every node id to its root-first name path.
func hierarchyPaths(nodes []HierarchyNode) map[string][]string {
	paths := make(map[string][]string)
	var walk func(nodes []HierarchyNode, prefix []string)
	walk = func(nodes []HierarchyNode, prefix []string) {
		for _, node := range nodes {
			path := append(append([]string{}, prefix...), node.Name)
			paths[node.ID] = path
			walk(node.Sub, path)
		}
	}
	walk(nodes, nil)
	return paths
}

// orderedHierarchyNames lists node names in metadata (preorder) order.
func orderedHierarchyNames(nodes []HierarchyNode) []string {
	var names []string
	var walk func(nodes []HierarchyNode)
	walk = func(nodes []HierarchyNode) {
		for _, node := range nodes {
			names = append(names, node.Name)
			walk(node.Sub)
		}
	}
	walk(nodes)
	return names
}

// flattenHierarchy turns a nested location hierarchy into flat rows, parents
// before children. Roots get an empty parent id.
func flattenHierarchy(nodes []HierarchyNode) []facilities.Location {
	var rows []facilities.Location
	var walk func(nodes []HierarchyNode, parentID string)
	walk = func(nodes []HierarchyNode, parentID string) {
		for _, node := range nodes {
			rows = append(rows, facilities.Location{
				ID:       node.ID,
				Name:     node.Name,
				ParentID: parentID,
			})
			walk(node.Sub, node.ID)
		}
	}
	walk(nodes, "")
	return rows
}

func splitList(value, sep string) []string {
	if value == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(value, sep) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
