// Package indexer turns a canonical record set and a built location tree
// into batched writes against the search index. Each Engine owns the
// in-memory tables of exactly one indexing run; a run replaces the whole
// prior dataset.
package indexer

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/ggwhite/go-masker"
	"github.com/openfpp/registry-api-go/facilities"
	"github.com/openfpp/registry-api-go/locations"
	log "github.com/openfpp/registry-api-go/pkg/logger"
	"github.com/openfpp/registry-api-go/search"
	"go.uber.org/zap"
)

// SearchWriter is the slice of the search service the engine needs.
type SearchWriter interface {
	IndexFacilities(ctx context.Context, docs []search.Facility) error
	IndexLocations(ctx context.Context, docs []search.Location) error
	IndexCategories(ctx context.Context, docs []search.Category) error
	IndexCategoryGroups(ctx context.Context, docs []search.CategoryGroup) error
	IndexFacilityTypes(ctx context.Context, docs []search.FacilityType) error
	IndexOwnerships(ctx context.Context, docs []search.Ownership) error
}

// Report summarizes one indexing run. Skipped counts facilities dropped per
// missing mandatory field, keyed no_name, no_facility_type, no_lat, no_lng.
type Report struct {
	ImportedFacilities int            `json:"imported_facilities"`
	ImportedCategories int            `json:"imported_categories"`
	ImportedLocations  int            `json:"imported_locations"`
	Skipped            map[string]int `json:"skipped"`
}

const DefaultBatchSize = 100

type Engine struct {
	writer    SearchWriter
	locales   []string
	batchSize int

	lastFacilityID      int
	lastFacilityTypeID  int
	lastOwnershipID     int
	lastCategoryID      int
	lastCategoryGroupID int

	skipped map[string]int
}

// New returns an engine for a single run. locales is the full set of
// configured locale codes; every category and category group must carry a
// name in each of them.
func New(writer SearchWriter, locales []string, batchSize int) *Engine {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Engine{
		writer:    writer,
		locales:   locales,
		batchSize: batchSize,
		skipped:   make(map[string]int),
	}
}

// Run indexes the record set. Facility batches go out first; facility types,
// ownerships, categories, category groups and locations are submitted last
// because their facility counters are mutated while facilities are processed.
// A missing locale translation aborts the run before anything is submitted.
func (e *Engine) Run(ctx context.Context, set facilities.RecordSet, tree *locations.Tree) (Report, error) {
	logger := log.Logger()
	logger.Info("indexing run started",
		zap.Int("facilities", len(set.Facilities)),
		zap.Int("locations", tree.Len()))

	groups, groupsBySource, err := e.buildCategoryGroups(set.CategoryGroups)
	if err != nil {
		return Report{}, err
	}

	categories, err := e.buildCategories(set.Categories, groupsBySource)
	if err != nil {
		return Report{}, err
	}
	categoriesBySource := make(map[string]*search.Category, len(categories))
	for _, c := range categories {
		categoriesBySource[c.SourceID] = c
	}

	assocIndex := e.buildAssociationIndex(set.Associations, categoriesBySource)

	types, typesByName := e.buildFacilityTypes(set.FacilityTypes)
	ownerships, ownershipsByName := e.buildOwnerships(set.Facilities)

	valid := e.validateFacilities(set.Facilities)

	report := Report{Skipped: e.skipped}

	for start := 0; start < len(valid); start += e.batchSize {
		end := start + e.batchSize
		if end > len(valid) {
			end = len(valid)
		}

		batch := make([]search.Facility, 0, end-start)
		for _, f := range valid[start:end] {
			doc := e.buildFacility(f, tree, assocIndex, &types, typesByName, ownershipsByName)
			batch = append(batch, doc)
		}

		if err := e.writer.IndexFacilities(ctx, batch); err != nil {
			return report, fmt.Errorf("index facility batch: %w", err)
		}
		report.ImportedFacilities += len(batch)
	}

	if err := submitBatches(ctx, types, e.batchSize, e.writer.IndexFacilityTypes); err != nil {
		return report, fmt.Errorf("index facility types: %w", err)
	}
	if err := submitBatches(ctx, ownerships, e.batchSize, e.writer.IndexOwnerships); err != nil {
		return report, fmt.Errorf("index ownerships: %w", err)
	}

	categoryDocs := deref(categories)
	if err := submitBatches(ctx, categoryDocs, e.batchSize, e.writer.IndexCategories); err != nil {
		return report, fmt.Errorf("index categories: %w", err)
	}
	report.ImportedCategories = len(categoryDocs)

	if err := submitBatches(ctx, groups, e.batchSize, e.writer.IndexCategoryGroups); err != nil {
		return report, fmt.Errorf("index category groups: %w", err)
	}

	locationDocs := locationDocs(tree)
	if err := submitBatches(ctx, locationDocs, e.batchSize, e.writer.IndexLocations); err != nil {
		return report, fmt.Errorf("index locations: %w", err)
	}
	report.ImportedLocations = len(locationDocs)

	for field, count := range e.skipped {
		logger.Warn("facilities ignored due to missing field",
			zap.String("field", field), zap.Int("count", count))
	}
	logger.Info("indexing run done",
		zap.Int("imported_facilities", report.ImportedFacilities),
		zap.Int("imported_categories", report.ImportedCategories),
		zap.Int("imported_locations", report.ImportedLocations))

	return report, nil
}

func (e *Engine) buildCategoryGroups(rows []facilities.CategoryGroup) ([]search.CategoryGroup, map[string]int, error) {
	docs := make([]search.CategoryGroup, 0, len(rows))
	bySource := make(map[string]int, len(rows))

	for _, g := range rows {
		if err := e.validateTranslations("category group", g.ID, g.Names); err != nil {
			return nil, nil, err
		}
		e.lastCategoryGroupID++
		doc := search.CategoryGroup{
			ID:       e.lastCategoryGroupID,
			SourceID: g.ID,
			Name:     g.Names,
			Order:    e.lastCategoryGroupID,
		}
		docs = append(docs, doc)
		bySource[g.ID] = doc.ID
	}
	return docs, bySource, nil
}

func (e *Engine) buildCategories(rows []facilities.Category, groupsBySource map[string]int) ([]*search.Category, error) {
	docs := make([]*search.Category, 0, len(rows))

	for _, c := range rows {
		if err := e.validateTranslations("category", c.ID, c.Names); err != nil {
			return nil, err
		}
		e.lastCategoryID++
		docs = append(docs, &search.Category{
			ID:              e.lastCategoryID,
			SourceID:        c.ID,
			CategoryGroupID: groupsBySource[c.CategoryGroupID],
			Name:            c.Names,
		})
	}
	return docs, nil
}

func (e *Engine) validateTranslations(kind, sourceID string, names map[string]string) error {
	for _, locale := range e.locales {
		if names[locale] == "" {
			log.Logger().Error("missing translation",
				zap.String("kind", kind),
				zap.String("source_id", sourceID),
				zap.String("locale", locale))
			return fmt.Errorf("%s %s has no name for locale %s; was the locale enabled when normalizing the dataset?", kind, sourceID, locale)
		}
	}
	return nil
}

// buildAssociationIndex keys category docs by raw facility id so the
// facility loop resolves associations in constant time.
func (e *Engine) buildAssociationIndex(assocs []facilities.Association, categoriesBySource map[string]*search.Category) map[string][]*search.Category {
	index := make(map[string][]*search.Category)
	for _, a := range assocs {
		category, ok := categoriesBySource[a.CategoryID]
		if !ok {
			log.Logger().Error("missing category information",
				zap.String("category_id", a.CategoryID),
				zap.String("facility_id", a.FacilityID))
			continue
		}
		index[a.FacilityID] = append(index[a.FacilityID], category)
	}
	return index
}

func (e *Engine) buildFacilityTypes(rows []facilities.FacilityType) ([]search.FacilityType, map[string]int) {
	docs := make([]search.FacilityType, 0, len(rows))
	byName := make(map[string]int, len(rows))

	for _, t := range rows {
		if _, ok := byName[t.Name]; ok {
			continue
		}
		e.lastFacilityTypeID++
		docs = append(docs, search.FacilityType{
			ID:       e.lastFacilityTypeID,
			Name:     t.Name,
			Priority: t.Priority,
		})
		byName[t.Name] = len(docs) - 1
	}
	return docs, byName
}

// buildOwnerships deduplicates ownership strings across all facilities,
// assigning ids in first-seen order.
func (e *Engine) buildOwnerships(rows []facilities.Facility) ([]search.Ownership, map[string]int) {
	var docs []search.Ownership
	byName := make(map[string]int)

	for _, f := range rows {
		if f.Ownership == "" {
			continue
		}
		if _, ok := byName[f.Ownership]; ok {
			continue
		}
		e.lastOwnershipID++
		docs = append(docs, search.Ownership{ID: e.lastOwnershipID, Name: f.Ownership})
		byName[f.Ownership] = e.lastOwnershipID
	}
	return docs, byName
}

var mandatoryFields = []string{"name", "facility_type", "lat", "lng"}

func (e *Engine) validateFacilities(rows []facilities.Facility) []facilities.Facility {
	valid := make([]facilities.Facility, 0, len(rows))

	for _, f := range rows {
		missing := missingFields(f)
		if len(missing) == 0 {
			valid = append(valid, f)
			continue
		}
		for _, field := range missing {
			if e.skipped["no_"+field] == 0 {
				// Contact details are personal data; mask them in the sample.
				log.Logger().Debug("skipping facility",
					zap.String("field", field),
					zap.String("source_id", f.ID),
					zap.String("contact_name", masker.Name(f.ContactName)),
					zap.String("contact_phone", masker.Telephone(f.ContactPhone)))
			}
			e.skipped["no_"+field]++
		}
	}
	return valid
}

func missingFields(f facilities.Facility) []string {
	var missing []string
	if strings.TrimSpace(f.Name) == "" {
		missing = append(missing, "name")
	}
	if strings.TrimSpace(f.FacilityType) == "" {
		missing = append(missing, "facility_type")
	}
	if f.Lat == nil {
		missing = append(missing, "lat")
	}
	if f.Lng == nil {
		missing = append(missing, "lng")
	}
	return missing
}

func (e *Engine) buildFacility(
	f facilities.Facility,
	tree *locations.Tree,
	assocIndex map[string][]*search.Category,
	types *[]search.FacilityType,
	typesByName map[string]int,
	ownershipsByName map[string]int,
) search.Facility {
	e.lastFacilityID++

	typeIdx, ok := typesByName[f.FacilityType]
	if !ok {
		// Type not pre-seeded by the source config: synthesize it with the
		// lowest priority.
		e.lastFacilityTypeID++
		*types = append(*types, search.FacilityType{
			ID:       e.lastFacilityTypeID,
			Name:     f.FacilityType,
			Priority: 0,
		})
		typeIdx = len(*types) - 1
		typesByName[f.FacilityType] = typeIdx
	}
	facilityType := (*types)[typeIdx]

	var ownershipID *int
	if f.Ownership != "" {
		if id, ok := ownershipsByName[f.Ownership]; ok {
			ownershipID = &id
		}
	}

	adm := []string{}
	admIDs := []int{}
	if node, ok := tree.BySource(f.LocationID); ok {
		node.FacilityCount++
		adm = node.PathNames
		admIDs = node.PathIDs
	}

	cats := assocIndex[f.ID]
	categoryIDs := make([]int, 0, len(cats))
	for _, c := range cats {
		c.FacilityCount++
		categoryIDs = append(categoryIDs, c.ID)
	}

	return search.Facility{
		ID:             e.lastFacilityID,
		SourceID:       f.ID,
		Name:           cleanName(f.Name),
		FacilityType:   facilityType.Name,
		FacilityTypeID: facilityType.ID,
		Priority:       facilityType.Priority,
		Ownership:      f.Ownership,
		OwnershipID:    ownershipID,
		Address:        f.Address,
		ContactName:    f.ContactName,
		ContactEmail:   f.ContactEmail,
		ContactPhone:   f.ContactPhone,
		OpeningHours:   localizedField(f.Localized, "opening_hours", e.locales),
		Position:       search.Coordinates{Lat: *f.Lat, Lon: *f.Lng},
		CategoryIDs:    categoryIDs,
		ServiceNames:   serviceNames(cats, e.locales),
		Adm:            adm,
		AdmIDs:         admIDs,
		LastUpdated:    f.LastUpdated,
	}
}

// cleanName strips non-breaking spaces and surrounding whitespace from the
// display name.
func cleanName(name string) string {
	return strings.TrimSpace(strings.ReplaceAll(name, "\u00a0", ""))
}

// localizedField extracts the per-locale sub-map out of flat "field:locale"
// source columns.
func localizedField(localized map[string]string, field string, locales []string) map[string]string {
	out := make(map[string]string)
	for _, locale := range locales {
		if v := localized[field+":"+locale]; v != "" {
			out[locale] = v
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// serviceNames collects the facility's category names per locale, sorted so
// exports are deterministic.
func serviceNames(cats []*search.Category, locales []string) map[string][]string {
	if len(cats) == 0 {
		return nil
	}
	out := make(map[string][]string, len(locales))
	for _, locale := range locales {
		names := make([]string, 0, len(cats))
		for _, c := range cats {
			names = append(names, c.Name[locale])
		}
		sort.Strings(names)
		out[locale] = names
	}
	return out
}

func locationDocs(tree *locations.Tree) []search.Location {
	docs := make([]search.Location, 0, tree.Len())
	for _, node := range tree.Nodes() {
		docs = append(docs, search.Location{
			ID:            node.ID,
			SourceID:      node.SourceID,
			Name:          node.Name,
			ParentID:      node.ParentID,
			ParentName:    node.ParentName,
			PathIDs:       node.PathIDs,
			PathNames:     node.PathNames,
			Level:         node.Level,
			FacilityCount: node.FacilityCount,
		})
	}
	return docs
}

func submitBatches[T any](ctx context.Context, docs []T, size int, submit func(context.Context, []T) error) error {
	for start := 0; start < len(docs); start += size {
		end := start + size
		if end > len(docs) {
			end = len(docs)
		}
		if err := submit(ctx, docs[start:end]); err != nil {
			return err
		}
	}
	return nil
}

func deref(cats []*search.Category) []search.Category {
	out := make([]search.Category, 0, len(cats))
	for _, c := range cats {
		out = append(out, *c)
	}
	return out
}
