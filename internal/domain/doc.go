// Package domain models aggregate event reports and their expansion into
// per-unit point features.
//
// # Data Source
//
// Reports are maintained in a shared spreadsheet and exported as CSV. Each
// line is one aggregate report at a location:
//
//	Дата,Область,Місто,long,lat,Значення 1,...,Значення 10
//	01.01.2024,Київська,Бровари,"30,5","50,4",3,0,1,0,0,0,0,0,0,0
//
// Column names are configured (see [Schema]); they are never discovered.
//
// # Conventions
//
// Coordinates:
//
//	WGS-84 decimal degrees. Editors use either a comma or a dot as the decimal
//	separator ("50,45" and "50.45" are the same value). A row whose longitude or
//	latitude cannot be read is excluded entirely. See [ParseCoordinate].
//
// Value columns:
//
//	Ten ordinal counts, one per category. Cells are read best-effort: blank or
//	non-numeric cells count as 0, decimals are truncated ("3.0" -> 3, "2.7" -> 2).
//	Negative counts pass through but never set an indicator. See [CoerceCount].
//
// # Expansion
//
// A report with counts v1..v10 becomes max(v1..v10) expanded rows. Row i
// (0-based) carries indicator k = 1 iff i < vk, so summing indicator k across
// the expanded rows gives back vk. Reports whose maximum count is <= 0 expand to
// nothing. See [ExpandRow].
package domain
