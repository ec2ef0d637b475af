package facilities

import "time"

// RecordSet is the canonical five-part output every source normalizer
// produces and the indexing engine consumes. All ids are source ids
// (strings); sequential integer ids are assigned later, at indexing time.
type RecordSet struct {
	Facilities     []Facility
	Locations      []Location
	Categories     []Category
	CategoryGroups []CategoryGroup
	FacilityTypes  []FacilityType
	Associations   []Association

	// Facilities dropped by the normalizer because they had no usable
	// geocoordinates. Reported at run end, never indexed.
	SkippedNoPosition int
}

type Facility struct {
	ID           string
	Name         string
	Lat          *float64
	Lng          *float64
	LocationID   string
	FacilityType string
	Ownership    string
	Address      string
	ContactName  string
	ContactEmail string
	ContactPhone string
	// Localized carries raw "field:locale" columns (e.g. "opening_hours:en")
	// exactly as they arrived from the source. The indexing engine extracts
	// per-locale sub-maps out of it.
	Localized   map[string]string
	LastUpdated *time.Time
}

type Location struct {
	ID       string
	Name     string
	ParentID string
}

type Category struct {
	ID              string
	CategoryGroupID string
	// Names maps locale code to the category name in that locale. Every
	// configured locale must be present or the indexing run aborts.
	Names map[string]string
}

type CategoryGroup struct {
	ID    string
	Names map[string]string
}

type FacilityType struct {
	Name     string
	Priority int
}

// Association links a facility to a category/service, both by source id.
type Association struct {
	FacilityID string
	CategoryID string
}

// API shapes returned by the search facade.

type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type FacilityResult struct {
	ID           int                 `json:"id"`
	SourceID     string              `json:"source_id"`
	Name         string              `json:"name"`
	FacilityType string              `json:"facility_type"`
	Priority     int                 `json:"priority"`
	Ownership    string              `json:"ownership,omitempty"`
	Address      string              `json:"address,omitempty"`
	ContactName  string              `json:"contact_name,omitempty"`
	ContactEmail string              `json:"contact_email,omitempty"`
	ContactPhone string              `json:"contact_phone,omitempty"`
	OpeningHours map[string]string   `json:"opening_hours,omitempty"`
	Position     LatLng              `json:"position"`
	CategoryIDs  []int               `json:"categories_ids,omitempty"`
	ServiceNames map[string][]string `json:"service_names,omitempty"`
	Adm          []string            `json:"adm"`
	AdmIDs       []int               `json:"adm_ids"`
	LastUpdated  *time.Time          `json:"last_updated,omitempty"`
}

// Page is one slice of a paginated facility search. NextFrom is set only
// when the page came back full, i.e. there may be more results.
type Page struct {
	Items    []FacilityResult `json:"items"`
	From     int              `json:"from"`
	Size     int              `json:"size"`
	NextFrom *int             `json:"next_from,omitempty"`
	Total    int              `json:"total"`
}
