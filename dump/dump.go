// Package dump streams the full indexed facility set as a flattened CSV.
package dump

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/openfpp/registry-api-go/facilities"
	"github.com/openfpp/registry-api-go/search"
)

// Searcher is the slice of the search facade the dumper needs.
type Searcher interface {
	DumpFacilities(ctx context.Context, params search.Params) (facilities.Page, error)
	MaxAdministrativeLevel(ctx context.Context) (int, error)
}

const DefaultPageSize = 200

// Dumper pages through every matching facility and writes one CSV row each.
// The export blocks on each page fetch and is cancellable between pages.
type Dumper struct {
	search   Searcher
	pageSize int
	locales  []string
}

func New(search Searcher, pageSize int, locales []string) *Dumper {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Dumper{
		search:   search,
		pageSize: pageSize,
		locales:  locales,
	}
}

// Dump writes the header and every facility matching params to w. The adm
// name path is right-padded to the deepest indexed location level so every
// row has the same column count.
func (d *Dumper) Dump(ctx context.Context, params search.Params, w io.Writer) error {
	maxLevel, err := d.search.MaxAdministrativeLevel(ctx)
	if err != nil {
		return fmt.Errorf("dump: %w", err)
	}

	if err := writeLine(w, d.header(maxLevel)); err != nil {
		return err
	}

	params.Size = d.pageSize
	params.From = 0

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		page, err := d.search.DumpFacilities(ctx, params)
		if err != nil {
			return fmt.Errorf("dump page at %d: %w", params.From, err)
		}

		for _, f := range page.Items {
			if err := writeLine(w, d.row(f, maxLevel)); err != nil {
				return err
			}
		}

		if page.NextFrom == nil {
			return nil
		}
		params.From = *page.NextFrom
	}
}

func (d *Dumper) header(maxLevel int) []string {
	header := []string{"id", "source_id", "name", "lat", "lng", "facility_type",
		"ownership", "address", "contact_name", "contact_email", "contact_phone"}
	for l := 1; l <= maxLevel; l++ {
		header = append(header, "location_"+strconv.Itoa(l))
	}
	for _, locale := range d.locales {
		header = append(header, "services:"+locale)
	}
	return header
}

func (d *Dumper) row(f facilities.FacilityResult, maxLevel int) []string {
	row := []string{
		strconv.Itoa(f.ID),
		f.SourceID,
		f.Name,
		strconv.FormatFloat(f.Position.Lat, 'f', -1, 64),
		strconv.FormatFloat(f.Position.Lng, 'f', -1, 64),
		f.FacilityType,
		f.Ownership,
		f.Address,
		f.ContactName,
		f.ContactEmail,
		f.ContactPhone,
	}
	for l := 0; l < maxLevel; l++ {
		if l < len(f.Adm) {
			row = append(row, f.Adm[l])
		} else {
			row = append(row, "")
		}
	}
	for _, locale := range d.locales {
		row = append(row, joinServiceNames(f.ServiceNames[locale]))
	}
	return row
}

// joinServiceNames comma-joins one locale's service names. Commas inside a
// name would corrupt the flat join, so they are stripped first; the loss is
// accepted for this export format.
func joinServiceNames(names []string) string {
	cleaned := make([]string, 0, len(names))
	for _, n := range names {
		cleaned = append(cleaned, strings.ReplaceAll(n, ",", ""))
	}
	return strings.Join(cleaned, ",")
}

// writeLine emits one CSV record with every field quoted, so any reader can
// re-parse the file without sniffing types. encoding/csv only quotes when it
// must, hence the hand-written quoting here.
func writeLine(w io.Writer, fields []string) error {
	var b strings.Builder
	for i, field := range fields {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteByte('"')
		b.WriteString(strings.ReplaceAll(field, `"`, `""`))
		b.WriteByte('"')
	}
	b.WriteByte('\n')
	_, err := io.WriteString(w, b.String())
	return err
}
