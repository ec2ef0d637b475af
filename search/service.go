package search

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/openfpp/registry-api-go/facilities"
	log "github.com/openfpp/registry-api-go/pkg/logger"
)

// Service is the search facade over the external document index. It owns one
// index per entity kind and translates between API shapes and engine shapes.
type Service struct {
	facilities     *index[Facility]
	locations      *index[Location]
	categories     *index[Category]
	categoryGroups *index[CategoryGroup]
	facilityTypes  *index[FacilityType]
	ownerships     *index[Ownership]
	locales        []string
}

func NewService(connStr, prefix string, locales []string) *Service {
	if connStr == "" {
		connStr = os.Getenv("ELASTIC_CONN_STR")
	}
	if connStr == "" {
		log.Logger().Panic("search engine connection string must be configured")
	}

	return &Service{
		facilities:     newIndex[Facility](connStr, prefix+"-facilities"),
		locations:      newIndex[Location](connStr, prefix+"-locations"),
		categories:     newIndex[Category](connStr, prefix+"-categories"),
		categoryGroups: newIndex[CategoryGroup](connStr, prefix+"-category-groups"),
		facilityTypes:  newIndex[FacilityType](connStr, prefix+"-facility-types"),
		ownerships:     newIndex[Ownership](connStr, prefix+"-ownerships"),
		locales:        locales,
	}
}

// SearchFacilities runs a filtered, sorted, paginated facility search.
func (s *Service) SearchFacilities(ctx context.Context, params Params) (facilities.Page, error) {
	result, err := s.facilities.Search(ctx, buildFacilityQuery(params))
	if err != nil {
		return facilities.Page{}, fmt.Errorf("search facilities: %w", err)
	}
	return pageResult(result, params.From, params.pageSize()), nil
}

// DumpFacilities is SearchFacilities for the bulk export path; it returns
// full documents rather than a summary projection.
func (s *Service) DumpFacilities(ctx context.Context, params Params) (facilities.Page, error) {
	return s.SearchFacilities(ctx, params)
}

// SuggestFacilities reuses the search machinery with a small fixed page.
func (s *Service) SuggestFacilities(ctx context.Context, params Params) ([]facilities.FacilityResult, error) {
	params.Size = 5
	params.From = 0
	page, err := s.SearchFacilities(ctx, params)
	if err != nil {
		return nil, err
	}
	return page.Items, nil
}

func (s *Service) SuggestCategories(ctx context.Context, query, locale string) ([]Category, error) {
	result, err := s.categories.Search(ctx, matchPhrasePrefixQuery("name."+locale, query, 5))
	if err != nil {
		return nil, fmt.Errorf("suggest categories: %w", err)
	}
	return sources(result), nil
}

func (s *Service) SuggestLocations(ctx context.Context, query string) ([]Location, error) {
	result, err := s.locations.Search(ctx, matchPhrasePrefixQuery("name", query, 5))
	if err != nil {
		return nil, fmt.Errorf("suggest locations: %w", err)
	}
	return sources(result), nil
}

// GetFacility fetches one facility by its sequential id.
func (s *Service) GetFacility(ctx context.Context, id int) (*facilities.FacilityResult, error) {
	result, err := s.facilities.Search(ctx, map[string]interface{}{
		"size": 1,
		"query": map[string]interface{}{
			"match": map[string]interface{}{"id": id},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("get facility %d: %w", id, err)
	}
	if len(result.Hits.Hits) == 0 {
		return nil, nil
	}
	res := decodeFacility(result.Hits.Hits[0].Source)
	return &res, nil
}

func (s *Service) GetFacilityTypes(ctx context.Context) ([]FacilityType, error) {
	result, err := s.facilityTypes.Search(ctx, sortedListQuery("id"))
	if err != nil {
		return nil, fmt.Errorf("get facility types: %w", err)
	}
	return sources(result), nil
}

func (s *Service) GetOwnerships(ctx context.Context) ([]Ownership, error) {
	result, err := s.ownerships.Search(ctx, sortedListQuery("id"))
	if err != nil {
		return nil, fmt.Errorf("get ownerships: %w", err)
	}
	return sources(result), nil
}

func (s *Service) GetLocations(ctx context.Context) ([]Location, error) {
	result, err := s.locations.Search(ctx, sortedListQuery("id"))
	if err != nil {
		return nil, fmt.Errorf("get locations: %w", err)
	}
	return sources(result), nil
}

func (s *Service) GetCategories(ctx context.Context) ([]Category, error) {
	result, err := s.categories.Search(ctx, sortedListQuery("id"))
	if err != nil {
		return nil, fmt.Errorf("get categories: %w", err)
	}
	return sources(result), nil
}

func (s *Service) GetCategoryGroups(ctx context.Context) ([]CategoryGroup, error) {
	result, err := s.categoryGroups.Search(ctx, sortedListQuery("order"))
	if err != nil {
		return nil, fmt.Errorf("get category groups: %w", err)
	}
	return sources(result), nil
}

// MaxAdministrativeLevel returns the depth of the deepest indexed location,
// computed with a max aggregation over the level field.
func (s *Service) MaxAdministrativeLevel(ctx context.Context) (int, error) {
	result, err := s.locations.Search(ctx, map[string]interface{}{
		"size":  0,
		"query": map[string]interface{}{"match_all": map[string]interface{}{}},
		"aggregations": map[string]interface{}{
			"max_level": map[string]interface{}{
				"max": map[string]interface{}{"field": "level"},
			},
		},
	})
	if err != nil {
		return 0, fmt.Errorf("max administrative level: %w", err)
	}
	return int(result.Aggregations["max_level"].Value), nil
}

type indexAdmin interface {
	Create(context.Context) error
	Drop(context.Context) error
	Refresh(context.Context) error
}

func (s *Service) indices() []indexAdmin {
	return []indexAdmin{s.facilities, s.locations, s.categories, s.categoryGroups, s.facilityTypes, s.ownerships}
}

// Setup creates every entity index. Drop and Refresh mirror it; the indexing
// run calls Refresh once at the end to make the new dataset visible.
func (s *Service) Setup(ctx context.Context) error {
	for _, ix := range s.indices() {
		if err := ix.Create(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) DropIndices(ctx context.Context) error {
	for _, ix := range s.indices() {
		if err := ix.Drop(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) RefreshIndices(ctx context.Context) error {
	for _, ix := range s.indices() {
		if err := ix.Refresh(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Batch writers used by the indexing engine.

func (s *Service) IndexFacilities(ctx context.Context, docs []Facility) error {
	return s.facilities.Bulk(ctx, items(docs, func(d Facility) int { return d.ID }))
}

func (s *Service) IndexLocations(ctx context.Context, docs []Location) error {
	return s.locations.Bulk(ctx, items(docs, func(d Location) int { return d.ID }))
}

func (s *Service) IndexCategories(ctx context.Context, docs []Category) error {
	return s.categories.Bulk(ctx, items(docs, func(d Category) int { return d.ID }))
}

func (s *Service) IndexCategoryGroups(ctx context.Context, docs []CategoryGroup) error {
	return s.categoryGroups.Bulk(ctx, items(docs, func(d CategoryGroup) int { return d.ID }))
}

func (s *Service) IndexFacilityTypes(ctx context.Context, docs []FacilityType) error {
	return s.facilityTypes.Bulk(ctx, items(docs, func(d FacilityType) int { return d.ID }))
}

func (s *Service) IndexOwnerships(ctx context.Context, docs []Ownership) error {
	return s.ownerships.Bulk(ctx, items(docs, func(d Ownership) int { return d.ID }))
}

func items[T any](docs []T, id func(T) int) []Item[T] {
	out := make([]Item[T], len(docs))
	for i, d := range docs {
		out[i] = Item[T]{Id: strconv.Itoa(id(d)), Source: d}
	}
	return out
}

func sources[T any](result *Result[T]) []T {
	out := make([]T, 0, len(result.Hits.Hits))
	for _, hit := range result.Hits.Hits {
		out = append(out, hit.Source)
	}
	return out
}

func sortedListQuery(field string) map[string]interface{} {
	return map[string]interface{}{
		"size": 1000,
		"sort": map[string]interface{}{
			field: map[string]interface{}{"order": "asc"},
		},
	}
}

// pageResult decodes one hits page into the API shape. NextFrom is present
// only when the page is full; its absence means there are no more pages.
func pageResult(result *Result[Facility], from, size int) facilities.Page {
	page := facilities.Page{
		Items: make([]facilities.FacilityResult, 0, len(result.Hits.Hits)),
		From:  from,
		Size:  size,
		Total: result.Hits.Total.Value,
	}
	for _, hit := range result.Hits.Hits {
		page.Items = append(page.Items, decodeFacility(hit.Source))
	}
	if len(result.Hits.Hits) == size {
		next := from + size
		page.NextFrom = &next
	}
	return page
}

// decodeFacility translates the engine's lat/lon geo point into the API's
// lat/lng shape.
func decodeFacility(doc Facility) facilities.FacilityResult {
	return facilities.FacilityResult{
		ID:           doc.ID,
		SourceID:     doc.SourceID,
		Name:         doc.Name,
		FacilityType: doc.FacilityType,
		Priority:     doc.Priority,
		Ownership:    doc.Ownership,
		Address:      doc.Address,
		ContactName:  doc.ContactName,
		ContactEmail: doc.ContactEmail,
		ContactPhone: doc.ContactPhone,
		OpeningHours: doc.OpeningHours,
		Position: facilities.LatLng{
			Lat: doc.Position.Lat,
			Lng: doc.Position.Lon,
		},
		CategoryIDs:  doc.CategoryIDs,
		ServiceNames: doc.ServiceNames,
		Adm:          doc.Adm,
		AdmIDs:       doc.AdmIDs,
		LastUpdated:  doc.LastUpdated,
	}
}
