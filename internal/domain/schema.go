package domain

import "strconv"

// Schema names the input columns of the dataset.
type Schema struct {
	Date              string
	Region            string
	City              string
	Longitude         string
	Latitude          string
	ValueColumnPrefix string
}

// DefaultSchema returns the column names used by the report spreadsheet.
func DefaultSchema() Schema {
	return Schema{
		Date:              "Дата",
		Region:            "Область",
		City:              "Місто",
		Longitude:         "long",
		Latitude:          "lat",
		ValueColumnPrefix: "Значення ",
	}
}

// ValueColumns returns the ten value column names in slot order.
func (s Schema) ValueColumns() []string {
	cols := make([]string, ValueSlots)
	for i := range cols {
		cols[i] = s.ValueColumnPrefix + strconv.Itoa(i+1)
	}
	return cols
}

// Columns returns every required column, fixed fields first.
func (s Schema) Columns() []string {
	return append([]string{s.Date, s.Region, s.City, s.Longitude, s.Latitude}, s.ValueColumns()...)
}
