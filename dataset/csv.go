// Package dataset reads source CSV tables into header-keyed rows.
package dataset

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Row is one CSV record keyed by its header. Missing and blank cells both
// come back as the empty string.
type Row map[string]string

func (r Row) Get(key string) string {
	return strings.TrimSpace(r[key])
}

// Float parses the cell as a float, returning nil for blank or malformed
// values. Geocoordinates use this: a bad coordinate means "no coordinate".
func (r Row) Float(key string) *float64 {
	v := r.Get(key)
	if v == "" {
		return nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return nil
	}
	return &f
}

// ReadTable reads a headered CSV file into rows. A UTF-8 BOM, common in
// spreadsheet exports saved on Windows, is skipped.
func ReadTable(path string) ([]Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	records, err := readAll(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	headers := records[0]
	rows := make([]Row, 0, len(records)-1)
	for _, record := range records[1:] {
		row := make(Row, len(headers))
		for i, h := range headers {
			if i < len(record) {
				row[h] = record[i]
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// ReadRecords reads a CSV file without header interpretation; mapping files
// validate their own headers.
func ReadRecords(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	records, err := readAll(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return records, nil
}

func readAll(r io.Reader) ([][]string, error) {
	br := bufio.NewReader(r)
	skipBOM(br)

	cr := csv.NewReader(br)
	cr.FieldsPerRecord = -1
	return cr.ReadAll()
}

func skipBOM(br *bufio.Reader) {
	bom, err := br.Peek(3)
	if err == nil && bom[0] == 0xEF && bom[1] == 0xBB && bom[2] == 0xBF {
		br.Discard(3)
	}
}
