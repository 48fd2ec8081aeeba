package domain

import "time"

// ValueSlots is the number of ordinal value columns on every report.
const ValueSlots = 10

// dateLayout is the external date representation (DD.MM.YYYY).
const dateLayout = "02.01.2006"

// EventDate holds the raw date cell and, when it could be parsed with a
// configured layout, the parsed value.
type EventDate struct {
	Raw  string
	Time time.Time
}

// IsTime reports whether the date was parsed into a time value.
func (d EventDate) IsTime() bool { return !d.Time.IsZero() }

// String renders parsed dates as DD.MM.YYYY and passes raw text through unchanged.
func (d EventDate) String() string {
	if d.IsTime() {
		return d.Time.Format(dateLayout)
	}
	return d.Raw
}

// SourceRow is one aggregate report as read from the dataset.
type SourceRow struct {
	Line      int // 1-based line in the source file, header included
	Date      EventDate
	Region    string
	City      string
	Longitude string
	Latitude  string

	// Values holds the value cells in slot order. A well-formed row has
	// exactly ValueSlots entries; shorter rows are rejected with ErrRowShape.
	Values []string
}

// ExpandedRow is a single unit of a report with one 0/1 indicator per slot.
type ExpandedRow struct {
	SourceLine int
	Unit       int // 0-based unit index within the source row
	Date       EventDate
	Region     string
	City       string
	Longitude  float64
	Latitude   float64
	Indicators [ValueSlots]int
}
