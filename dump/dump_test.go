package dump

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strings"
	"testing"

	"github.com/openfpp/registry-api-go/facilities"
	"github.com/openfpp/registry-api-go/search"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSearcher struct {
	items    []facilities.FacilityResult
	maxLevel int
	requests []search.Params
}

func (s *fakeSearcher) MaxAdministrativeLevel(context.Context) (int, error) {
	return s.maxLevel, nil
}

func (s *fakeSearcher) DumpFacilities(_ context.Context, params search.Params) (facilities.Page, error) {
	s.requests = append(s.requests, params)

	end := params.From + params.Size
	if end > len(s.items) {
		end = len(s.items)
	}
	start := params.From
	if start > len(s.items) {
		start = len(s.items)
	}

	page := facilities.Page{
		Items: s.items[start:end],
		From:  params.From,
		Size:  params.Size,
		Total: len(s.items),
	}
	if len(page.Items) == params.Size {
		next := params.From + params.Size
		page.NextFrom = &next
	}
	return page, nil
}

func facilityFixture(id int, adm []string) facilities.FacilityResult {
	return facilities.FacilityResult{
		ID:           id,
		SourceID:     fmt.Sprintf("SRC-%d", id),
		Name:         fmt.Sprintf("Facility %d", id),
		FacilityType: "Health Center",
		Ownership:    "Public",
		Position:     facilities.LatLng{Lat: 8.9, Lng: 38.7},
		Adm:          adm,
		ServiceNames: map[string][]string{
			"en": {"Growth monitoring", "Lab, advanced dx"},
		},
	}
}

func TestDumpWritesHeaderAndPaddedRows(t *testing.T) {
	searcher := &fakeSearcher{
		maxLevel: 4,
		items: []facilities.FacilityResult{
			facilityFixture(1, []string{"Ethiopia", "Snnp Region", "Gurage Zone"}),
		},
	}
	var buf bytes.Buffer

	err := New(searcher, 200, []string{"en"}).Dump(context.Background(), search.Params{}, &buf)
	require.NoError(t, err)

	records, err := csv.NewReader(strings.NewReader(buf.String())).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, []string{
		"id", "source_id", "name", "lat", "lng", "facility_type", "ownership",
		"address", "contact_name", "contact_email", "contact_phone",
		"location_1", "location_2", "location_3", "location_4",
		"services:en",
	}, records[0])

	row := records[1]
	assert.Equal(t, "1", row[0])
	assert.Equal(t, "SRC-1", row[1])
	assert.Equal(t, "Facility 1", row[2])
	assert.Equal(t, "8.9", row[3])
	assert.Equal(t, "38.7", row[4])

	// A level-3 facility under a 4-level schema gets one padded column.
	assert.Equal(t, []string{"Ethiopia", "Snnp Region", "Gurage Zone", ""}, row[11:15])

	// Internal commas are stripped before the flat join.
	assert.Equal(t, "Growth monitoring,Lab advanced dx", row[15])
}

func TestDumpForceQuotesEveryField(t *testing.T) {
	searcher := &fakeSearcher{
		maxLevel: 1,
		items:    []facilities.FacilityResult{facilityFixture(1, []string{"Ethiopia"})},
	}
	var buf bytes.Buffer

	err := New(searcher, 200, []string{"en"}).Dump(context.Background(), search.Params{}, &buf)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], `"id","source_id","name"`))
	for _, line := range lines {
		assert.True(t, strings.HasPrefix(line, `"`))
		assert.True(t, strings.HasSuffix(line, `"`))
		// Blank fields are quoted too.
		assert.NotContains(t, line, `,,`)
	}
}

func TestDumpFollowsPages(t *testing.T) {
	items := make([]facilities.FacilityResult, 205)
	for i := range items {
		items[i] = facilityFixture(i+1, []string{"Ethiopia"})
	}
	searcher := &fakeSearcher{maxLevel: 1, items: items}
	var buf bytes.Buffer

	err := New(searcher, 100, []string{"en"}).Dump(context.Background(), search.Params{}, &buf)
	require.NoError(t, err)

	// Three pages: 100, 100, 5.
	require.Len(t, searcher.requests, 3)
	assert.Equal(t, 0, searcher.requests[0].From)
	assert.Equal(t, 100, searcher.requests[1].From)
	assert.Equal(t, 200, searcher.requests[2].From)

	records, err := csv.NewReader(strings.NewReader(buf.String())).ReadAll()
	require.NoError(t, err)
	assert.Len(t, records, 206)

	seen := make(map[string]bool)
	for _, rec := range records[1:] {
		assert.False(t, seen[rec[0]], "duplicate id %s", rec[0])
		seen[rec[0]] = true
	}
}

func TestDumpCancelledBetweenPages(t *testing.T) {
	items := make([]facilities.FacilityResult, 150)
	for i := range items {
		items[i] = facilityFixture(i+1, []string{"Ethiopia"})
	}
	searcher := &fakeSearcher{maxLevel: 1, items: items}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var buf bytes.Buffer
	err := New(searcher, 100, []string{"en"}).Dump(ctx, search.Params{}, &buf)
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, searcher.requests)
}
