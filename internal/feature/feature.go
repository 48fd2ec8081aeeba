// Package feature maps expanded rows onto the Esri JSON features written to
// the feature layer and to the Kafka sink.
package feature

import (
	"strconv"

	"github.com/twpayne/go-geom"

	"github.com/couchcryptid/event-points-etl/internal/domain"
)

// WGS84 is the well-known id of geographic WGS-84 coordinates.
const WGS84 = 4326

// FieldMap names the layer attributes expanded rows are written to.
type FieldMap struct {
	Date        string
	Region      string
	City        string
	Longitude   string
	Latitude    string
	ValuePrefix string // indicator k is written to ValuePrefix + k
}

// DefaultFieldMap returns the attribute names of the published layer.
func DefaultFieldMap() FieldMap {
	return FieldMap{
		Date:        "date_1",
		Region:      "Область",
		City:        "city",
		Longitude:   "long",
		Latitude:    "lat",
		ValuePrefix: "value_",
	}
}

// SpatialReference identifies a coordinate system by well-known id.
type SpatialReference struct {
	WKID int `json:"wkid"`
}

// Geometry is an Esri JSON point.
type Geometry struct {
	X                float64          `json:"x"`
	Y                float64          `json:"y"`
	SpatialReference SpatialReference `json:"spatialReference"`
}

// Feature is an Esri JSON feature as accepted by applyEdits.
type Feature struct {
	Attributes map[string]any `json:"attributes"`
	Geometry   Geometry       `json:"geometry"`
}

// New maps an expanded row onto the layer schema. Parsed dates are
// written as DD.MM.YYYY; raw date text is passed through unchanged.
func New(row domain.ExpandedRow, fields FieldMap) Feature {
	attrs := make(map[string]any, 5+domain.ValueSlots)
	attrs[fields.Date] = row.Date.String()
	attrs[fields.Region] = row.Region
	attrs[fields.City] = row.City
	attrs[fields.Longitude] = row.Longitude
	attrs[fields.Latitude] = row.Latitude
	for k, v := range row.Indicators {
		attrs[fields.ValuePrefix+strconv.Itoa(k+1)] = v
	}

	return Feature{Attributes: attrs, Geometry: pointGeometry(row.Longitude, row.Latitude)}
}

func pointGeometry(lon, lat float64) Geometry {
	p := geom.NewPointFlat(geom.XY, []float64{lon, lat}).SetSRID(WGS84)
	return Geometry{
		X:                p.X(),
		Y:                p.Y(),
		SpatialReference: SpatialReference{WKID: p.SRID()},
	}
}
