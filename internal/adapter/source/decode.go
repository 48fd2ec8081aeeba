package source

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/couchcryptid/event-points-etl/internal/domain"
)

// Decoder turns CSV text into source rows using a fixed column schema.
type Decoder struct {
	schema      domain.Schema
	dateLayouts []string
}

// NewDecoder creates a Decoder. Date cells that parse with one of
// dateLayouts become time values; all others are kept as text.
func NewDecoder(schema domain.Schema, dateLayouts []string) *Decoder {
	return &Decoder{schema: schema, dateLayouts: dateLayouts}
}

// columns holds header positions of the schema columns.
type columns struct {
	date, region, city, lon, lat int
	values                       []int
}

// Decode reads a whole CSV document. A missing or incomplete header is an
// error wrapping ErrSchemaMismatch. Cells missing from short data lines
// decode as blank, so absent value cells count as 0.
func (d *Decoder) Decode(r io.Reader) ([]domain.SourceRow, error) {
	r = transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder()))

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: dataset is empty", ErrFetch)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read header: %w", ErrFetch, err)
	}

	cols, err := d.resolve(header)
	if err != nil {
		return nil, err
	}

	var rows []domain.SourceRow
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: read record: %w", ErrFetch, err)
		}
		line, _ := cr.FieldPos(0)
		rows = append(rows, d.row(line, rec, cols))
	}
	return rows, nil
}

func (d *Decoder) resolve(header []string) (columns, error) {
	index := make(map[string]int, len(header))
	for i, h := range header {
		h = normalize(h)
		if _, dup := index[h]; !dup {
			index[h] = i
		}
	}

	var missing []string
	lookup := func(name string) int {
		i, ok := index[normalize(name)]
		if !ok {
			missing = append(missing, name)
			return -1
		}
		return i
	}

	cols := columns{
		date:   lookup(d.schema.Date),
		region: lookup(d.schema.Region),
		city:   lookup(d.schema.City),
		lon:    lookup(d.schema.Longitude),
		lat:    lookup(d.schema.Latitude),
	}
	for _, name := range d.schema.ValueColumns() {
		cols.values = append(cols.values, lookup(name))
	}

	if len(missing) > 0 {
		return columns{}, fmt.Errorf("%w: missing columns %s", ErrSchemaMismatch, strings.Join(missing, ", "))
	}
	return cols, nil
}

func (d *Decoder) row(line int, rec []string, cols columns) domain.SourceRow {
	values := make([]string, len(cols.values))
	for k, i := range cols.values {
		values[k] = cell(rec, i)
	}

	return domain.SourceRow{
		Line:      line,
		Date:      d.date(cell(rec, cols.date)),
		Region:    rawCell(rec, cols.region),
		City:      rawCell(rec, cols.city),
		Longitude: cell(rec, cols.lon),
		Latitude:  cell(rec, cols.lat),
		Values:    values,
	}
}

func (d *Decoder) date(raw string) domain.EventDate {
	raw = strings.TrimSpace(raw)
	for _, layout := range d.dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return domain.EventDate{Raw: raw, Time: t}
		}
	}
	return domain.EventDate{Raw: raw}
}

func cell(rec []string, i int) string {
	if i < 0 || i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

// rawCell returns a cell exactly as written. Place names are carried to the
// feature store unchanged.
func rawCell(rec []string, i int) string {
	if i < 0 || i >= len(rec) {
		return ""
	}
	return rec[i]
}

// normalize trims and NFC-normalizes a header name so that composed and
// decomposed Cyrillic spellings of the same column compare equal.
func normalize(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}
