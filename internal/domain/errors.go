package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrRowShape reports a source row that lacks the value-column structure.
	ErrRowShape = errors.New("row shape")

	// ErrCoordinateParse reports a longitude or latitude that is not a finite number.
	ErrCoordinateParse = errors.New("coordinate parse")
)

// CoordinateError describes a coordinate cell that could not be normalized.
type CoordinateError struct {
	Field string // "longitude" or "latitude"; empty when parsed standalone
	Input string
}

func (e *CoordinateError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid coordinate %q", e.Input)
	}
	return fmt.Sprintf("invalid %s %q", e.Field, e.Input)
}

func (e *CoordinateError) Unwrap() error { return ErrCoordinateParse }
