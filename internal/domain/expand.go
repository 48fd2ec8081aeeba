package domain

import "fmt"

// ExpandRow turns one report into max(counts) expanded rows, ordered by unit
// index. Unit i carries indicator k = 1 iff i < count k.
//
// A row whose counts are all <= 0 (or blank) yields no rows and no error, even
// if its coordinates are unreadable. A row that lacks the value cells returns
// an error wrapping ErrRowShape; a row with an unreadable longitude or latitude
// returns a *CoordinateError. Both mean the row is excluded.
func ExpandRow(row SourceRow) ([]ExpandedRow, error) {
	counts, err := CoerceCounts(row.Values)
	if err != nil {
		return nil, fmt.Errorf("line %d: %d value cells, want %d: %w", row.Line, len(row.Values), ValueSlots, err)
	}

	units := maxCount(counts)
	if units <= 0 {
		return nil, nil
	}

	lon, err := parseCoordinateField("longitude", row.Longitude)
	if err != nil {
		return nil, err
	}
	lat, err := parseCoordinateField("latitude", row.Latitude)
	if err != nil {
		return nil, err
	}

	base := ExpandedRow{
		SourceLine: row.Line,
		Date:       row.Date,
		Region:     row.Region,
		City:       row.City,
		Longitude:  lon,
		Latitude:   lat,
	}

	out := make([]ExpandedRow, 0, units)
	for i := range units {
		r := base
		r.Unit = i
		for k, c := range counts {
			if i < c {
				r.Indicators[k] = 1
			}
		}
		out = append(out, r)
	}
	return out, nil
}
