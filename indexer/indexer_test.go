package indexer

import (
	"context"
	"fmt"
	"testing"

	"github.com/openfpp/registry-api-go/facilities"
	"github.com/openfpp/registry-api-go/locations"
	"github.com/openfpp/registry-api-go/search"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	facilityBatches [][]search.Facility
	locations       []search.Location
	categories      []search.Category
	categoryGroups  []search.CategoryGroup
	facilityTypes   []search.FacilityType
	ownerships      []search.Ownership
}

func (w *fakeWriter) IndexFacilities(_ context.Context, docs []search.Facility) error {
	batch := make([]search.Facility, len(docs))
	copy(batch, docs)
	w.facilityBatches = append(w.facilityBatches, batch)
	return nil
}

func (w *fakeWriter) IndexLocations(_ context.Context, docs []search.Location) error {
	w.locations = append(w.locations, docs...)
	return nil
}

func (w *fakeWriter) IndexCategories(_ context.Context, docs []search.Category) error {
	w.categories = append(w.categories, docs...)
	return nil
}

func (w *fakeWriter) IndexCategoryGroups(_ context.Context, docs []search.CategoryGroup) error {
	w.categoryGroups = append(w.categoryGroups, docs...)
	return nil
}

func (w *fakeWriter) IndexFacilityTypes(_ context.Context, docs []search.FacilityType) error {
	w.facilityTypes = append(w.facilityTypes, docs...)
	return nil
}

func (w *fakeWriter) IndexOwnerships(_ context.Context, docs []search.Ownership) error {
	w.ownerships = append(w.ownerships, docs...)
	return nil
}

func (w *fakeWriter) allFacilities() []search.Facility {
	var all []search.Facility
	for _, batch := range w.facilityBatches {
		all = append(all, batch...)
	}
	return all
}

func f64(v float64) *float64 { return &v }

func ethiopiaTree(t *testing.T) *locations.Tree {
	t.Helper()
	tree, err := locations.Build([]facilities.Location{
		{ID: "L1", Name: "Ethiopia", ParentID: "-----------------"},
		{ID: "L2", Name: "Snnp Region", ParentID: "L1"},
		{ID: "L3", Name: "Gurage Zone", ParentID: "L2"},
	})
	require.NoError(t, err)
	return tree
}

func validFacility(id string) facilities.Facility {
	return facilities.Facility{
		ID:           id,
		Name:         "Wetanibo Balchi",
		Lat:          f64(8.958315),
		Lng:          f64(38.761659),
		LocationID:   "L3",
		FacilityType: "Health Center",
	}
}

func TestRunSkipsFacilitiesMissingMandatoryFields(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*facilities.Facility)
		skipKey string
	}{
		{"no name", func(f *facilities.Facility) { f.Name = "" }, "no_name"},
		{"no facility type", func(f *facilities.Facility) { f.FacilityType = "" }, "no_facility_type"},
		{"no lat", func(f *facilities.Facility) { f.Lat = nil }, "no_lat"},
		{"no lng", func(f *facilities.Facility) { f.Lng = nil }, "no_lng"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := validFacility("INVALID")
			tc.mutate(&f)

			writer := &fakeWriter{}
			engine := New(writer, []string{"en"}, 0)
			report, err := engine.Run(context.Background(), facilities.RecordSet{
				Facilities: []facilities.Facility{f},
			}, ethiopiaTree(t))

			require.NoError(t, err)
			assert.Empty(t, writer.allFacilities())
			assert.Zero(t, report.ImportedFacilities)
			assert.Equal(t, 1, report.Skipped[tc.skipKey])
		})
	}
}

func TestRunIndexesValidFacility(t *testing.T) {
	writer := &fakeWriter{}
	engine := New(writer, []string{"en"}, 0)

	report, err := engine.Run(context.Background(), facilities.RecordSet{
		Facilities: []facilities.Facility{validFacility("F1")},
	}, ethiopiaTree(t))
	require.NoError(t, err)

	require.Equal(t, 1, report.ImportedFacilities)
	all := writer.allFacilities()
	require.Len(t, all, 1)

	doc := all[0]
	assert.Equal(t, 1, doc.ID)
	assert.Equal(t, "F1", doc.SourceID)
	assert.Equal(t, "Wetanibo Balchi", doc.Name)
	assert.Equal(t, 8.958315, doc.Position.Lat)
	assert.Equal(t, 38.761659, doc.Position.Lon)
	assert.Equal(t, []string{"Ethiopia", "Snnp Region", "Gurage Zone"}, doc.Adm)
	assert.Equal(t, []int{1, 2, 3}, doc.AdmIDs)
}

func TestRunUnknownLocationKeepsFacility(t *testing.T) {
	writer := &fakeWriter{}
	engine := New(writer, []string{"en"}, 0)

	f := validFacility("F1")
	f.LocationID = "NOWHERE"

	report, err := engine.Run(context.Background(), facilities.RecordSet{
		Facilities: []facilities.Facility{f},
	}, ethiopiaTree(t))
	require.NoError(t, err)

	assert.Equal(t, 1, report.ImportedFacilities)
	doc := writer.allFacilities()[0]
	assert.Empty(t, doc.Adm)
	assert.Empty(t, doc.AdmIDs)
}

func TestRunStripsNonBreakingSpacesFromNames(t *testing.T) {
	writer := &fakeWriter{}
	engine := New(writer, []string{"en"}, 0)

	f := validFacility("F1")
	f.Name = "\u00a0Wetanibo\u00a0Balchi "

	_, err := engine.Run(context.Background(), facilities.RecordSet{
		Facilities: []facilities.Facility{f},
	}, ethiopiaTree(t))
	require.NoError(t, err)

	assert.Equal(t, "WetaniboBalchi", writer.allFacilities()[0].Name)
}

func TestRunAssignsSequentialIdsInOrder(t *testing.T) {
	writer := &fakeWriter{}
	engine := New(writer, []string{"en"}, 0)

	set := facilities.RecordSet{}
	for i := 0; i < 5; i++ {
		set.Facilities = append(set.Facilities, validFacility(fmt.Sprintf("F%d", i)))
	}

	_, err := engine.Run(context.Background(), set, ethiopiaTree(t))
	require.NoError(t, err)

	for i, doc := range writer.allFacilities() {
		assert.Equal(t, i+1, doc.ID)
		assert.Equal(t, fmt.Sprintf("F%d", i), doc.SourceID)
	}
}

func TestRunBatchesFacilities(t *testing.T) {
	writer := &fakeWriter{}
	engine := New(writer, []string{"en"}, 100)

	set := facilities.RecordSet{}
	for i := 0; i < 205; i++ {
		set.Facilities = append(set.Facilities, validFacility(fmt.Sprintf("F%d", i)))
	}

	report, err := engine.Run(context.Background(), set, ethiopiaTree(t))
	require.NoError(t, err)

	assert.Equal(t, 205, report.ImportedFacilities)
	require.Len(t, writer.facilityBatches, 3)
	assert.Len(t, writer.facilityBatches[0], 100)
	assert.Len(t, writer.facilityBatches[1], 100)
	assert.Len(t, writer.facilityBatches[2], 5)
}

func TestRunDeduplicatesOwnerships(t *testing.T) {
	writer := &fakeWriter{}
	engine := New(writer, []string{"en"}, 0)

	set := facilities.RecordSet{}
	for i, ownership := range []string{"Public", "Private", "Public", "", "Faith-based", "Private"} {
		f := validFacility(fmt.Sprintf("F%d", i))
		f.Ownership = ownership
		set.Facilities = append(set.Facilities, f)
	}

	_, err := engine.Run(context.Background(), set, ethiopiaTree(t))
	require.NoError(t, err)

	require.Len(t, writer.ownerships, 3)
	assert.Equal(t, search.Ownership{ID: 1, Name: "Public"}, writer.ownerships[0])
	assert.Equal(t, search.Ownership{ID: 2, Name: "Private"}, writer.ownerships[1])
	assert.Equal(t, search.Ownership{ID: 3, Name: "Faith-based"}, writer.ownerships[2])

	docs := writer.allFacilities()
	require.NotNil(t, docs[0].OwnershipID)
	assert.Equal(t, 1, *docs[0].OwnershipID)
	assert.Nil(t, docs[3].OwnershipID)
}

func TestRunUsesSeededFacilityTypePriority(t *testing.T) {
	writer := &fakeWriter{}
	engine := New(writer, []string{"en"}, 0)

	f := validFacility("F1")
	_, err := engine.Run(context.Background(), facilities.RecordSet{
		Facilities:    []facilities.Facility{f},
		FacilityTypes: []facilities.FacilityType{{Name: "Health Center", Priority: 7}},
	}, ethiopiaTree(t))
	require.NoError(t, err)

	doc := writer.allFacilities()[0]
	assert.Equal(t, 1, doc.FacilityTypeID)
	assert.Equal(t, 7, doc.Priority)
}

func TestRunSynthesizesUnknownFacilityType(t *testing.T) {
	writer := &fakeWriter{}
	engine := New(writer, []string{"en"}, 0)

	f := validFacility("F1")
	f.FacilityType = "Mobile Clinic"

	_, err := engine.Run(context.Background(), facilities.RecordSet{
		Facilities:    []facilities.Facility{f},
		FacilityTypes: []facilities.FacilityType{{Name: "Health Center", Priority: 7}},
	}, ethiopiaTree(t))
	require.NoError(t, err)

	doc := writer.allFacilities()[0]
	assert.Equal(t, 2, doc.FacilityTypeID)
	assert.Zero(t, doc.Priority)

	require.Len(t, writer.facilityTypes, 2)
	assert.Equal(t, "Mobile Clinic", writer.facilityTypes[1].Name)
	assert.Zero(t, writer.facilityTypes[1].Priority)
}

func TestRunCountsFacilitiesOnLocationsAndCategories(t *testing.T) {
	writer := &fakeWriter{}
	engine := New(writer, []string{"en"}, 0)

	names := func(name string) map[string]string { return map[string]string{"en": name} }

	set := facilities.RecordSet{
		Facilities: []facilities.Facility{validFacility("F1"), validFacility("F2")},
		Categories: []facilities.Category{
			{ID: "S1", Names: names("Iron Tablets")},
			{ID: "S2", Names: names("Child vaccination")},
		},
		Associations: []facilities.Association{
			{FacilityID: "F1", CategoryID: "S1"},
			{FacilityID: "F1", CategoryID: "S2"},
			{FacilityID: "F2", CategoryID: "S1"},
		},
	}

	_, err := engine.Run(context.Background(), set, ethiopiaTree(t))
	require.NoError(t, err)

	byName := map[string]search.Category{}
	for _, c := range writer.categories {
		byName[c.Name["en"]] = c
	}
	assert.Equal(t, 2, byName["Iron Tablets"].FacilityCount)
	assert.Equal(t, 1, byName["Child vaccination"].FacilityCount)

	var gurage search.Location
	for _, l := range writer.locations {
		if l.Name == "Gurage Zone" {
			gurage = l
		}
	}
	assert.Equal(t, 2, gurage.FacilityCount)

	doc := writer.allFacilities()[0]
	assert.Equal(t, []int{1, 2}, doc.CategoryIDs)
	assert.Equal(t, []string{"Child vaccination", "Iron Tablets"}, doc.ServiceNames["en"])
}

func TestRunMissingTranslationAborts(t *testing.T) {
	writer := &fakeWriter{}
	engine := New(writer, []string{"en", "es"}, 0)

	set := facilities.RecordSet{
		Facilities: []facilities.Facility{validFacility("F1")},
		Categories: []facilities.Category{
			{ID: "S1", Names: map[string]string{"en": "Iron Tablets"}},
		},
	}

	_, err := engine.Run(context.Background(), set, ethiopiaTree(t))
	require.Error(t, err)

	// Nothing may be submitted on a fatal translation failure.
	assert.Empty(t, writer.facilityBatches)
	assert.Empty(t, writer.categories)
	assert.Empty(t, writer.locations)
}

func TestRunExtractsLocalizedOpeningHours(t *testing.T) {
	writer := &fakeWriter{}
	engine := New(writer, []string{"en", "es"}, 0)

	f := validFacility("F1")
	f.Localized = map[string]string{
		"opening_hours:en": "Mon-Fri 9 to 5",
		"opening_hours:es": "Lun-Vie 9 a 17",
		"opening_hours:fr": "ignored, locale not configured",
	}

	_, err := engine.Run(context.Background(), facilities.RecordSet{
		Facilities: []facilities.Facility{f},
	}, ethiopiaTree(t))
	require.NoError(t, err)

	doc := writer.allFacilities()[0]
	assert.Equal(t, map[string]string{
		"en": "Mon-Fri 9 to 5",
		"es": "Lun-Vie 9 a 17",
	}, doc.OpeningHours)
}

func TestRunLocationFilterPathExample(t *testing.T) {
	// The canonical end-to-end example: a facility under Gurage Zone carries
	// the full ancestor path, so a location filter on any of ids 1..3 matches.
	writer := &fakeWriter{}
	engine := New(writer, []string{"en"}, 0)

	_, err := engine.Run(context.Background(), facilities.RecordSet{
		Facilities: []facilities.Facility{validFacility("F1")},
	}, ethiopiaTree(t))
	require.NoError(t, err)

	doc := writer.allFacilities()[0]
	for _, id := range []int{1, 2, 3} {
		assert.Contains(t, doc.AdmIDs, id)
	}
	assert.NotContains(t, doc.AdmIDs, 4)
}
