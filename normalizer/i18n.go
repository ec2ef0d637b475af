package normalizer

import "github.com/openfpp/registry-api-go/dataset"

// Translations is a lookup table loaded from a translations CSV with one
// column per locale code; each row holds the same text in every language.
type Translations struct {
	rows []dataset.Row
}

func NewTranslations(rows []dataset.Row) *Translations {
	return &Translations{rows: rows}
}

func loadTranslations(path string) (*Translations, error) {
	rows, err := optionalTable(path)
	if err != nil {
		return nil, err
	}
	if rows == nil {
		return nil, nil
	}
	return NewTranslations(rows), nil
}

// Lookup translates text from one locale to another. A missing entry yields a
// visible placeholder rather than silently dropping the text, so incomplete
// translation tables surface in the indexed data instead of failing the run.
func (t *Translations) Lookup(text, from, to string) string {
	if from == to {
		return text
	}
	for _, row := range t.rows {
		if row[from] == text {
			if translated := row[to]; translated != "" {
				return translated
			}
			break
		}
	}
	return "[missing " + to + ": " + text + "]"
}

// localizedNames expands a single-language name into one entry per configured
// locale. Without a translation table the source text is reused as-is, which
// keeps single-language deployments free of translation files.
func localizedNames(t *Translations, text, from string, locales []string) map[string]string {
	names := make(map[string]string, len(locales))
	for _, locale := range locales {
		if t == nil {
			names[locale] = text
		} else {
			names[locale] = t.Lookup(text, from, locale)
		}
	}
	return names
}
