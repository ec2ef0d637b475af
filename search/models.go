package search

import "time"

// Common Models

type Total struct {
	Value int `json:"value"`
}

type Result[T any] struct {
	Hits         Hits[T]             `json:"hits"`
	Aggregations map[string]AggValue `json:"aggregations"`
}

type Hits[T any] struct {
	Total Total     `json:"total"`
	Hits  []Item[T] `json:"hits"`
}

type Item[T any] struct {
	Index  string `json:"_index"`
	Id     string `json:"_id"`
	Source T      `json:"_source"`
}

type AggValue struct {
	Value float64 `json:"value"`
}

// Indexed document models. Position uses the engine's lat/lon shape; it is
// translated to the API's lat/lng on the way out.

type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

type Facility struct {
	ID             int                 `json:"id"`
	SourceID       string              `json:"source_id"`
	Name           string              `json:"name"`
	FacilityType   string              `json:"facility_type"`
	FacilityTypeID int                 `json:"facility_type_id"`
	Priority       int                 `json:"priority"`
	Ownership      string              `json:"ownership,omitempty"`
	OwnershipID    *int                `json:"ownership_id,omitempty"`
	Address        string              `json:"address,omitempty"`
	ContactName    string              `json:"contact_name,omitempty"`
	ContactEmail   string              `json:"contact_email,omitempty"`
	ContactPhone   string              `json:"contact_phone,omitempty"`
	OpeningHours   map[string]string   `json:"opening_hours,omitempty"`
	Position       Coordinates         `json:"position"`
	CategoryIDs    []int               `json:"categories_ids"`
	ServiceNames   map[string][]string `json:"service_names,omitempty"`
	Adm            []string            `json:"adm"`
	AdmIDs         []int               `json:"adm_ids"`
	LastUpdated    *time.Time          `json:"last_updated,omitempty"`
}

type Location struct {
	ID            int      `json:"id"`
	SourceID      string   `json:"source_id"`
	Name          string   `json:"name"`
	ParentID      int      `json:"parent_id,omitempty"`
	ParentName    string   `json:"parent_name,omitempty"`
	PathIDs       []int    `json:"path_ids"`
	PathNames     []string `json:"path_names"`
	Level         int      `json:"level"`
	FacilityCount int      `json:"facility_count"`
}

type Category struct {
	ID              int               `json:"id"`
	SourceID        string            `json:"source_id"`
	CategoryGroupID int               `json:"category_group_id,omitempty"`
	Name            map[string]string `json:"name"`
	FacilityCount   int               `json:"facility_count"`
}

type CategoryGroup struct {
	ID       int               `json:"id"`
	SourceID string            `json:"source_id"`
	Name     map[string]string `json:"name"`
	Order    int               `json:"order"`
}

type FacilityType struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Priority int    `json:"priority"`
}

type Ownership struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}
