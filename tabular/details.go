package tabular

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

// DetailColumns is the fixed column order of the issuer categories CSV.
var DetailColumns = []string{"ticker", "sector", "industry"}

// NotAvailable fills sector/industry when the upstream reference data has no
// value for them.
const NotAvailable = "NOT AVAILABLE"

// Detail is one issuer classification row.
type Detail struct {
	Ticker   string `json:"ticker"`
	Sector   string `json:"sector"`
	Industry string `json:"industry"`
}

// Details is a column-ordered issuer categories table.
type Details []Detail

// Normalize upper-cases all text, fills empty sector/industry with
// NotAvailable, and drops rows with an empty ticker.
func (d Details) Normalize() Details {
	out := d[:0]
	for _, row := range d {
		row.Ticker = strings.ToUpper(strings.TrimSpace(row.Ticker))
		if row.Ticker == "" {
			continue
		}
		row.Sector = strings.ToUpper(row.Sector)
		row.Industry = strings.ToUpper(row.Industry)
		if row.Sector == "" {
			row.Sector = NotAvailable
		}
		if row.Industry == "" {
			row.Industry = NotAvailable
		}
		out = append(out, row)
	}
	return out
}

// ToCSV serializes the table with its header row. An empty table yields a
// header-only CSV.
func (d Details) ToCSV() ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(DetailColumns); err != nil {
		return nil, fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, row := range d {
		if err := w.Write([]string{row.Ticker, row.Sector, row.Industry}); err != nil {
			return nil, fmt.Errorf("failed to write csv row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("failed to flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

// DetailsFromBytes parses an in-memory categories CSV.
func DetailsFromBytes(data []byte) (Details, error) {
	return DetailsFromCSV(bytes.NewReader(data))
}

// DetailsFromCSV parses a categories CSV. Header matching is
// case-insensitive; columns beyond the known three are dropped; a missing
// required column is an error.
func DetailsFromCSV(r io.Reader) (Details, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("categories csv is empty")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read csv header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range DetailColumns {
		if _, ok := index[required]; !ok {
			return nil, fmt.Errorf("categories csv missing required column %q", required)
		}
	}

	var details Details
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read csv row: %w", err)
		}
		field := func(name string) string {
			i := index[name]
			if i >= len(record) {
				return ""
			}
			return record[i]
		}
		details = append(details, Detail{
			Ticker:   field("ticker"),
			Sector:   field("sector"),
			Industry: field("industry"),
		})
	}
	return details, nil
}
