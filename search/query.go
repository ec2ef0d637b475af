package search

// Params are the optional facility search filters. Zero values mean "not
// filtered". All present filters are combined with logical AND.
type Params struct {
	Q         string
	Category  int
	Type      int
	Ownership int
	Location  int
	Lat       *float64
	Lng       *float64
	Size      int
	From      int
	Sort      string
}

const defaultPageSize = 1000

func (p Params) pageSize() int {
	if p.Size == 0 {
		return defaultPageSize
	}
	return p.Size
}

// buildFacilityQuery translates filter params into a search engine query
// body. Sort precedence: explicit "type" or "name" sort, then geo distance
// when a user position is present, then the engine's natural order, which is
// the cheapest ordering that stays consistent across paginated requests
// hitting the same index snapshot.
func buildFacilityQuery(p Params) map[string]interface{} {
	var must []map[string]interface{}

	if p.Q != "" {
		must = append(must, map[string]interface{}{
			"match_phrase_prefix": map[string]interface{}{"name": p.Q},
		})
	}
	if p.Category != 0 {
		must = append(must, map[string]interface{}{
			"match": map[string]interface{}{"categories_ids": p.Category},
		})
	}
	if p.Type != 0 {
		must = append(must, map[string]interface{}{
			"match": map[string]interface{}{"facility_type_id": p.Type},
		})
	}
	if p.Ownership != 0 {
		must = append(must, map[string]interface{}{
			"match": map[string]interface{}{"ownership_id": p.Ownership},
		})
	}
	if p.Location != 0 {
		must = append(must, map[string]interface{}{
			"match": map[string]interface{}{"adm_ids": p.Location},
		})
	}

	if must == nil {
		must = []map[string]interface{}{}
	}

	var sort interface{}
	switch p.Sort {
	case "type":
		// Priority must be the primary key; an ordered array keeps it ahead
		// of the tiebreaker in the serialized body.
		sort = []map[string]interface{}{
			{"priority": map[string]interface{}{"order": "desc"}},
			{"facility_type_id": map[string]interface{}{"order": "desc"}},
		}
	case "name":
		sort = map[string]interface{}{
			"name.raw": map[string]interface{}{"order": "asc"},
		}
	default:
		if p.Lat != nil && p.Lng != nil {
			sort = map[string]interface{}{
				"_geo_distance": map[string]interface{}{
					"position": map[string]interface{}{
						"lat": *p.Lat,
						"lon": *p.Lng,
					},
					"order":         "asc",
					"unit":          "km",
					"distance_type": "plane",
				},
			}
		} else {
			sort = map[string]interface{}{
				"_doc": map[string]interface{}{"order": "asc"},
			}
		}
	}

	return map[string]interface{}{
		"track_total_hits": true,
		"size":             p.pageSize(),
		"from":             p.From,
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"must": must,
			},
		},
		"sort": sort,
	}
}

func matchPhrasePrefixQuery(field, value string, size int) map[string]interface{} {
	return map[string]interface{}{
		"size": size,
		"query": map[string]interface{}{
			"match_phrase_prefix": map[string]interface{}{
				field: value,
			},
		},
	}
}
