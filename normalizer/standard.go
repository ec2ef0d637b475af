package normalizer

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/openfpp/registry-api-go/dataset"
	"github.com/openfpp/registry-api-go/facilities"
)

// StandardDataset normalizes a standards-based health facility dataset that
// arrives as several relational tables joined by id: the facility table plus
// geocoordinates, contact information, facility types, services and the
// facility/service association table.
type StandardDataset struct {
	Facilities       []dataset.Row
	Geoloc           []dataset.Row
	ContactInfo      []dataset.Row
	FacilityTypes    []dataset.Row
	Services         []dataset.Row
	FacilityServices []dataset.Row
	Locations        []dataset.Row
	Locales          []string
	DefaultLocale    string
	Translations     *Translations
}

func (n *StandardDataset) Normalize() (facilities.RecordSet, error) {
	coordinates := indexByID(n.Geoloc)
	contacts := indexByID(n.ContactInfo)
	types := indexByID(n.FacilityTypes)

	var set facilities.RecordSet
	counter := newTypeCounter()

	for _, f := range n.Facilities {
		geo := coordinates[f.Get("GeographicCoordinateId")]
		lat, lng := geo.Float("Latitude"), geo.Float("Longitude")
		if lat == nil || lng == nil {
			set.SkippedNoPosition++
			continue
		}

		typeRow, ok := types[f.Get("FacilityTypeId")]
		if !ok {
			return facilities.RecordSet{}, fmt.Errorf("facility %s references unknown facility type id %q", f.Get("Id"), f.Get("FacilityTypeId"))
		}
		typeName := typeRow.Get("FacilityTypeName")
		counter.observe(typeName)

		contact := contacts[f.Get("ContactInformationId")]
		set.Facilities = append(set.Facilities, facilities.Facility{
			ID:           f.Get("Id"),
			Name:         f.Get("FacilityName"),
			Lat:          lat,
			Lng:          lng,
			LocationID:   f.Get("OrganizationUnitId"),
			FacilityType: typeName,
			ContactName:  fullName(contact),
			ContactEmail: contact.Get("Email"),
			ContactPhone: contact.Get("Telephone"),
		})
	}

	for _, s := range n.Services {
		set.Categories = append(set.Categories, facilities.Category{
			ID:    s.Get("Id"),
			Names: localizedNames(n.Translations, s.Get("ServiceTypeName"), n.DefaultLocale, n.Locales),
		})
	}

	for _, a := range n.FacilityServices {
		set.Associations = append(set.Associations, facilities.Association{
			FacilityID: a.Get("FacilityId"),
			CategoryID: a.Get("MedicalServiceId"),
		})
	}

	for _, l := range n.Locations {
		name := l.Get("OfficialName")
		if name == "" {
			// Some exports of this format misspell the column.
			name = l.Get("OffcialName")
		}
		set.Locations = append(set.Locations, facilities.Location{
			ID:       l.Get("Id"),
			Name:     titleize(name),
			ParentID: l.Get("ParentId"),
		})
	}

	set.FacilityTypes = counter.ranked()
	return set, nil
}

func indexByID(rows []dataset.Row) map[string]dataset.Row {
	index := make(map[string]dataset.Row, len(rows))
	for _, row := range rows {
		index[row.Get("Id")] = row
	}
	return index
}

func fullName(contact dataset.Row) string {
	var parts []string
	for _, key := range []string{"FirstName", "MiddleName", "LastName"} {
		if v := contact.Get(key); v != "" {
			parts = append(parts, v)
		}
	}
	return strings.Join(parts, " ")
}

// titleize capitalizes each word of an often SHOUTED or snake_cased name,
// "ADDIS ABABA" -> "Addis Ababa".
func titleize(name string) string {
	name = strings.ReplaceAll(name, "_", " ")
	words := strings.Fields(strings.ToLower(name))
	for i, w := range words {
		runes := []rune(w)
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}
