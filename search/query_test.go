package search

import (
	"strings"
	"testing"

	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPageSizeDefaultsToLargePage(t *testing.T) {
	assert.Equal(t, defaultPageSize, Params{}.pageSize())
	assert.Equal(t, 25, Params{Size: 25}.pageSize())
}

func TestBuildFacilityQueryFilters(t *testing.T) {
	lat, lng := 8.98, 38.76
	query := buildFacilityQuery(Params{
		Q:         "wetanibo",
		Category:  4,
		Type:      2,
		Ownership: 3,
		Location:  7,
		Lat:       &lat,
		Lng:       &lng,
		Size:      50,
		From:      100,
	})

	assert.Equal(t, 50, query["size"])
	assert.Equal(t, 100, query["from"])
	assert.Equal(t, true, query["track_total_hits"])

	must := query["query"].(map[string]interface{})["bool"].(map[string]interface{})["must"].([]map[string]interface{})
	assert.Equal(t, []map[string]interface{}{
		{"match_phrase_prefix": map[string]interface{}{"name": "wetanibo"}},
		{"match": map[string]interface{}{"categories_ids": 4}},
		{"match": map[string]interface{}{"facility_type_id": 2}},
		{"match": map[string]interface{}{"ownership_id": 3}},
		{"match": map[string]interface{}{"adm_ids": 7}},
	}, must)
}

func TestBuildFacilityQueryNoFiltersMatchesAll(t *testing.T) {
	query := buildFacilityQuery(Params{})

	must := query["query"].(map[string]interface{})["bool"].(map[string]interface{})["must"].([]map[string]interface{})
	assert.Empty(t, must)
	assert.NotNil(t, must)
}

func TestBuildFacilityQuerySortPrecedence(t *testing.T) {
	lat, lng := 8.98, 38.76

	t.Run("explicit type sort wins over position", func(t *testing.T) {
		query := buildFacilityQuery(Params{Sort: "type", Lat: &lat, Lng: &lng})
		sort := query["sort"].([]map[string]interface{})
		assert.Equal(t, []map[string]interface{}{
			{"priority": map[string]interface{}{"order": "desc"}},
			{"facility_type_id": map[string]interface{}{"order": "desc"}},
		}, sort)
	})

	t.Run("type sort serializes priority first", func(t *testing.T) {
		// A single map would leave the primary sort key to marshal-time key
		// order; the array form must keep priority ahead on every encode.
		for i := 0; i < 50; i++ {
			body, err := jsoniter.Marshal(buildFacilityQuery(Params{Sort: "type"}))
			require.NoError(t, err)
			assert.Less(t,
				strings.Index(string(body), `"priority"`),
				strings.Index(string(body), `"facility_type_id"`))
		}
	})

	t.Run("name sorts on the un-analyzed field", func(t *testing.T) {
		query := buildFacilityQuery(Params{Sort: "name"})
		sort := query["sort"].(map[string]interface{})
		assert.Equal(t, map[string]interface{}{"order": "asc"}, sort["name.raw"])
	})

	t.Run("position falls back to geo distance", func(t *testing.T) {
		query := buildFacilityQuery(Params{Lat: &lat, Lng: &lng})
		geo := query["sort"].(map[string]interface{})["_geo_distance"].(map[string]interface{})
		assert.Equal(t, map[string]interface{}{"lat": lat, "lon": lng}, geo["position"])
		assert.Equal(t, "asc", geo["order"])
		assert.Equal(t, "km", geo["unit"])
		assert.Equal(t, "plane", geo["distance_type"])
	})

	t.Run("no position means engine natural order", func(t *testing.T) {
		query := buildFacilityQuery(Params{})
		sort := query["sort"].(map[string]interface{})
		assert.Equal(t, map[string]interface{}{"order": "asc"}, sort["_doc"])
	})

	t.Run("half a position is no position", func(t *testing.T) {
		query := buildFacilityQuery(Params{Lat: &lat})
		sort := query["sort"].(map[string]interface{})
		require.Contains(t, sort, "_doc")
	})
}

func TestMatchPhrasePrefixQuery(t *testing.T) {
	query := matchPhrasePrefixQuery("name.en", "mater", 5)
	assert.Equal(t, 5, query["size"])
	match := query["query"].(map[string]interface{})["match_phrase_prefix"].(map[string]interface{})
	assert.Equal(t, "mater", match["name.en"])
}
