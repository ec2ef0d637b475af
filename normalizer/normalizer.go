// Package normalizer maps raw source datasets onto the canonical record set.
// Each source family ships its own schema; one Normalizer variant per family
// reshapes it, and everything downstream only sees facilities.RecordSet.
package normalizer

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/openfpp/registry-api-go/dataset"
	"github.com/openfpp/registry-api-go/facilities"
)

// Kind selects the normalizer variant at the pipeline boundary.
type Kind string

const (
	KindSurveyExport        Kind = "survey"
	KindSpreadsheetRegistry Kind = "spreadsheet"
	KindStandardDataset     Kind = "standard"
)

// Normalizer turns one raw source into the canonical record set. Single bad
// rows are skipped and counted; a structurally invalid input (bad mapping
// header, unresolvable lookup) is an error.
type Normalizer interface {
	Normalize() (facilities.RecordSet, error)
}

// FromDir reads the source files a variant expects from dir and returns the
// configured normalizer. File layout per kind:
//
//	survey:      data.csv, mappings.csv?, categories.csv?
//	spreadsheet: sites.csv, fields.json
//	standard:    facilities.csv, geoloc.csv, contact_info.csv,
//	             facility_types.csv, services.csv, facilities_services.csv,
//	             locations.csv
//
// Every kind may carry a translations.csv with one column per locale.
// openingHours holds per-locale phrase templates for sources with structured
// opening/closing time columns; nil disables the synthesis.
func FromDir(kind Kind, dir string, locales []string, defaultLocale string, openingHours map[string]string) (Normalizer, error) {
	translations, err := loadTranslations(filepath.Join(dir, "translations.csv"))
	if err != nil {
		return nil, err
	}

	switch kind {
	case KindSurveyExport:
		data, err := dataset.ReadRecords(filepath.Join(dir, "data.csv"))
		if err != nil {
			return nil, err
		}
		mappings, err := optionalRecords(filepath.Join(dir, "mappings.csv"))
		if err != nil {
			return nil, err
		}
		categories, err := optionalTable(filepath.Join(dir, "categories.csv"))
		if err != nil {
			return nil, err
		}
		return &SurveyExport{
			Data:          data,
			Mappings:      mappings,
			Categories:    categories,
			Locales:       locales,
			DefaultLocale: defaultLocale,
			Translations:  translations,
			OpeningHours:  openingHours,
		}, nil

	case KindSpreadsheetRegistry:
		sites, err := dataset.ReadTable(filepath.Join(dir, "sites.csv"))
		if err != nil {
			return nil, err
		}
		fields, err := ReadFieldSets(filepath.Join(dir, "fields.json"))
		if err != nil {
			return nil, err
		}
		return &SpreadsheetRegistry{
			Sites:         sites,
			Fields:        fields,
			Locales:       locales,
			DefaultLocale: defaultLocale,
			Translations:  translations,
		}, nil

	case KindStandardDataset:
		s := &StandardDataset{
			Locales:       locales,
			DefaultLocale: defaultLocale,
			Translations:  translations,
		}
		tables := []struct {
			name string
			dst  *[]dataset.Row
		}{
			{"facilities.csv", &s.Facilities},
			{"geoloc.csv", &s.Geoloc},
			{"contact_info.csv", &s.ContactInfo},
			{"facility_types.csv", &s.FacilityTypes},
			{"services.csv", &s.Services},
			{"facilities_services.csv", &s.FacilityServices},
			{"locations.csv", &s.Locations},
		}
		for _, t := range tables {
			rows, err := dataset.ReadTable(filepath.Join(dir, t.name))
			if err != nil {
				return nil, err
			}
			*t.dst = rows
		}
		return s, nil
	}

	return nil, fmt.Errorf("unknown source kind %q", kind)
}

var multiUnderscore = regexp.MustCompile("__+")

// humanizeCode derives a display name from a machine code: double underscores
// become " - ", single ones become spaces, and the first letter is upcased.
// "curativecare__u5" -> "Curativecare - u5".
func humanizeCode(code string) string {
	name := multiUnderscore.ReplaceAllString(code, " - ")
	name = strings.ReplaceAll(name, "_", " ")
	name = strings.TrimSpace(strings.ToLower(name))
	runes := []rune(name)
	if len(runes) > 0 {
		runes[0] = unicode.ToUpper(runes[0])
	}
	return string(runes)
}

type typeCount struct {
	name  string
	count int
}

// rankFacilityTypes assigns priorities by frequency: types are ordered by
// ascending facility count and numbered from 1, so the most frequent type
// carries the highest priority and ranks first under a priority-descending
// sort. The sort is stable, so equal counts keep their first-seen order and
// reruns over the same input produce identical priorities.
func rankFacilityTypes(observed []typeCount) []facilities.FacilityType {
	ranked := make([]typeCount, len(observed))
	copy(ranked, observed)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].count < ranked[j].count
	})

	types := make([]facilities.FacilityType, 0, len(ranked))
	for i, t := range ranked {
		types = append(types, facilities.FacilityType{Name: t.name, Priority: i + 1})
	}
	return types
}

// typeCounter accumulates facility counts per type name, remembering the
// order each name was first seen.
type typeCounter struct {
	ordered []typeCount
	index   map[string]int
}

func newTypeCounter() *typeCounter {
	return &typeCounter{index: make(map[string]int)}
}

func (c *typeCounter) observe(name string) {
	c.add(name, 1)
}

func (c *typeCounter) declare(name string) {
	c.add(name, 0)
}

func (c *typeCounter) add(name string, n int) {
	if name == "" {
		return
	}
	i, ok := c.index[name]
	if !ok {
		i = len(c.ordered)
		c.index[name] = i
		c.ordered = append(c.ordered, typeCount{name: name})
	}
	c.ordered[i].count += n
}

func (c *typeCounter) ranked() []facilities.FacilityType {
	return rankFacilityTypes(c.ordered)
}

var timeLayouts = []string{
	time.RFC3339,
	time.RFC1123Z,
	time.RFC1123,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// parseTime tries the timestamp layouts seen across sources; an unparseable
// value means "no timestamp", never an error.
func parseTime(v string) *time.Time {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return &t
		}
	}
	return nil
}

func optionalTable(path string) ([]dataset.Row, error) {
	rows, err := dataset.ReadTable(path)
	if err != nil {
		if isNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return rows, nil
}

func optionalRecords(path string) ([][]string, error) {
	records, err := dataset.ReadRecords(path)
	if err != nil {
		if isNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return records, nil
}

func isNotExist(err error) bool {
	return errors.Is(err, os.ErrNotExist)
}
