package normalizer

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/openfpp/registry-api-go/dataset"
	"github.com/openfpp/registry-api-go/facilities"
	"github.com/openfpp/registry-api-go/locations"
)

const (
	surveyIDColumn  = "_id"
	admColumnPrefix = "administrative_boundaries-"
)

// mappingHeaders is the exact (lowercased) header row a category mapping file
// must carry; anything else means the wrong file was supplied.
var mappingHeaders = []string{"category_id", "data_column", "true values", "false values"}

// SurveyExport normalizes a survey/ODK export. Data and Mappings are raw CSV
// records including their header row: mapping evaluation needs to know which
// columns exist, not just their values. Categories optionally carries
// localized display names for the mapping file's category ids.
type SurveyExport struct {
	Data          [][]string
	Mappings      [][]string
	Categories    []dataset.Row
	Locales       []string
	DefaultLocale string
	Translations  *Translations
	// OpeningHours maps locale code to a phrase template with {open} and
	// {close} placeholders, used when the export carries structured
	// opening_time/closing_time columns instead of localized free text.
	OpeningHours map[string]string
}

func (n *SurveyExport) Normalize() (facilities.RecordSet, error) {
	if len(n.Data) == 0 {
		return facilities.RecordSet{}, fmt.Errorf("survey export has no header row")
	}

	headers := n.Data[0]
	records := n.Data[1:]

	columnIdx := make(map[string]int, len(headers))
	for i, h := range headers {
		columnIdx[h] = i
	}
	idIdx, ok := columnIdx[surveyIDColumn]
	if !ok {
		return facilities.RecordSet{}, fmt.Errorf("survey export must have a %q column containing the facility ids", surveyIDColumn)
	}

	if err := validateMappingHeaders(n.Mappings); err != nil {
		return facilities.RecordSet{}, err
	}

	admLevels := admColumnCount(headers)

	var set facilities.RecordSet
	categoryIdx := make(map[string]int)
	for _, row := range n.Categories {
		categoryIdx[row.Get("id")] = len(set.Categories)
		set.Categories = append(set.Categories, facilities.Category{
			ID:    row.Get("id"),
			Names: categoryRowNames(n.Translations, row, n.DefaultLocale, n.Locales),
		})
	}
	ensureCategory := func(id, name string) {
		if _, ok := categoryIdx[id]; ok {
			return
		}
		categoryIdx[id] = len(set.Categories)
		set.Categories = append(set.Categories, facilities.Category{
			ID:    id,
			Names: localizedNames(n.Translations, name, n.DefaultLocale, n.Locales),
		})
	}

	cell := func(record []string, column string) string {
		i, ok := columnIdx[column]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	counter := newTypeCounter()
	var admPaths [][]string

	for _, record := range records {
		id := strings.TrimSpace(safeCell(record, idIdx))
		if id == "" {
			continue
		}

		lat, lng := floatCell(cell(record, "lat")), floatCell(cell(record, "long"))
		if lat == nil || lng == nil {
			set.SkippedNoPosition++
			continue
		}

		for _, code := range splitList(cell(record, "services"), "|") {
			ensureCategory(code, humanizeCode(code))
			set.Associations = append(set.Associations, facilities.Association{
				FacilityID: id,
				CategoryID: code,
			})
		}

		assocs, err := mappingAssociations(n.Mappings, headers, columnIdx, record, id)
		if err != nil {
			return facilities.RecordSet{}, err
		}
		for _, a := range assocs {
			ensureCategory(a.CategoryID, humanizeCode(a.CategoryID))
			set.Associations = append(set.Associations, a)
		}

		var path []string
		for level := 1; level <= admLevels; level++ {
			if v := cell(record, admColumnPrefix+strconv.Itoa(level)); v != "" {
				path = append(path, v)
			}
		}
		locationID := ""
		if len(path) > 0 {
			admPaths = append(admPaths, path)
			locationID = locations.PathKey(path)
		}

		counter.observe(cell(record, "facility_type"))

		localized := make(map[string]string)
		for i, h := range headers {
			if strings.Contains(h, ":") && i < len(record) && record[i] != "" {
				localized[h] = record[i]
			}
		}
		n.fillOpeningHours(localized, cell(record, "opening_time"), cell(record, "closing_time"))
		if len(localized) == 0 {
			localized = nil
		}

		lastUpdated := parseTime(cell(record, "last updated"))
		if lastUpdated == nil {
			lastUpdated = parseTime(cell(record, "last_updated"))
		}

		set.Facilities = append(set.Facilities, facilities.Facility{
			ID:           id,
			Name:         cell(record, "name"),
			Lat:          lat,
			Lng:          lng,
			LocationID:   locationID,
			FacilityType: cell(record, "facility_type"),
			Ownership:    cell(record, "ownership"),
			Address:      cell(record, "address"),
			ContactName:  firstCell(cell(record, "contact_name"), cell(record, "pocname")),
			ContactEmail: firstCell(cell(record, "contact_email"), cell(record, "poc_email")),
			ContactPhone: firstCell(cell(record, "contact_phone"), cell(record, "poc_phonenumber")),
			Localized:    localized,
			LastUpdated:  lastUpdated,
		})
	}

	set.Locations = locations.FromPaths(admPaths)
	set.FacilityTypes = counter.ranked()
	return set, nil
}

// fillOpeningHours renders the per-locale phrase templates for records that
// carry structured opening_time/closing_time columns. Localized free-text
// columns win over the synthesized phrase.
func (n *SurveyExport) fillOpeningHours(localized map[string]string, opens, closes string) {
	if opens == "" || closes == "" {
		return
	}
	for locale, template := range n.OpeningHours {
		key := "opening_hours:" + locale
		if localized[key] != "" {
			continue
		}
		phrase := strings.ReplaceAll(template, "{open}", opens)
		phrase = strings.ReplaceAll(phrase, "{close}", closes)
		localized[key] = phrase
	}
}

func validateMappingHeaders(mappings [][]string) error {
	if len(mappings) == 0 {
		return nil
	}
	got := mappings[0]
	if len(got) == len(mappingHeaders) {
		match := true
		for i, h := range got {
			if strings.ToLower(strings.TrimSpace(h)) != mappingHeaders[i] {
				match = false
				break
			}
		}
		if match {
			return nil
		}
	}
	return fmt.Errorf("mapping file headers must be exactly %v, got %v", mappingHeaders, got)
}

// mappingAssociations evaluates the mapping rules against one survey record.
// A rule associates the facility with its category when the referenced data
// column contains none of the false values and either any true value or no
// true values are configured.
func mappingAssociations(mappings [][]string, headers []string, columnIdx map[string]int, record []string, facilityID string) ([]facilities.Association, error) {
	if len(mappings) == 0 {
		return nil, nil
	}

	var out []facilities.Association
	for _, m := range mappings[1:] {
		if len(m) < len(mappingHeaders) {
			continue
		}
		categoryID, dataColumn := strings.TrimSpace(m[0]), strings.TrimSpace(m[1])
		idx, ok := columnIdx[dataColumn]
		if !ok {
			return nil, fmt.Errorf("mapping file references column %q which is not in the survey export", dataColumn)
		}
		value := safeCell(record, idx)

		if containsAny(value, splitList(m[3], ",")) {
			continue
		}
		trueValues := splitList(m[2], ",")
		if len(trueValues) == 0 || containsAny(value, trueValues) {
			out = append(out, facilities.Association{FacilityID: facilityID, CategoryID: categoryID})
		}
	}
	return out, nil
}

// categoryRowNames reads explicit "name:<locale>" columns, falling back to a
// translation of the default-locale name for locales the row does not carry.
func categoryRowNames(t *Translations, row dataset.Row, defaultLocale string, locales []string) map[string]string {
	base := row.Get("name:" + defaultLocale)
	if base == "" {
		base = row.Get("name")
	}
	names := localizedNames(t, base, defaultLocale, locales)
	for _, locale := range locales {
		if v := row.Get("name:" + locale); v != "" {
			names[locale] = v
		}
	}
	return names
}

func containsAny(value string, needles []string) bool {
	for _, needle := range needles {
		if strings.Contains(value, needle) {
			return true
		}
	}
	return false
}

func admColumnCount(headers []string) int {
	max := 0
	for _, h := range headers {
		if !strings.HasPrefix(h, admColumnPrefix) {
			continue
		}
		if n, err := strconv.Atoi(strings.TrimPrefix(h, admColumnPrefix)); err == nil && n > max {
			max = n
		}
	}
	return max
}

func safeCell(record []string, i int) string {
	if i < 0 || i >= len(record) {
		return ""
	}
	return record[i]
}

func floatCell(v string) *float64 {
	if v == "" {
		return nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return nil
	}
	return &f
}

func firstCell(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
