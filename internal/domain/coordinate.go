package domain

import (
	"math"
	"strconv"
	"strings"
)

// ParseCoordinate reads a decimal degree value written with either a comma
// or a dot as the decimal separator. Every comma is replaced with a dot
// before parsing, so "50,45" and "50.45" both yield 50.45.
//
// Blank input, non-numeric text and non-finite values (NaN, Inf) return a
// *CoordinateError that unwraps to ErrCoordinateParse.
func ParseCoordinate(s string) (float64, error) {
	raw := s
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	if s == "" {
		return 0, &CoordinateError{Input: raw}
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, &CoordinateError{Input: raw}
	}
	return v, nil
}

// parseCoordinateField is ParseCoordinate with the field name recorded in the error.
func parseCoordinateField(field, s string) (float64, error) {
	v, err := ParseCoordinate(s)
	if err != nil {
		return 0, &CoordinateError{Field: field, Input: s}
	}
	return v, nil
}
