package pipeline

import (
	"errors"
	"log/slog"

	"github.com/couchcryptid/event-points-etl/internal/domain"
)

// Stats counts what the dataset transform did with each source row.
type Stats struct {
	RowsRead           int
	RowsExpanded       int // rows that produced at least one feature
	SkippedShape       int
	SkippedCoordinates int
	SkippedEmpty       int // rows whose counts were all <= 0
	Features           int
}

// Result is the ordered output of a dataset transform.
type Result struct {
	Rows  []domain.ExpandedRow
	Stats Stats
}

// DatasetTransformer applies domain.ExpandRow to every row of a dataset.
type DatasetTransformer struct {
	logger *slog.Logger
}

// NewTransformer creates a DatasetTransformer.
func NewTransformer(logger *slog.Logger) *DatasetTransformer {
	return &DatasetTransformer{logger: logger}
}

// Transform expands every source row in order. Row-level failures are
// counted and logged, never returned: a malformed row only removes itself
// from the output.
func (t *DatasetTransformer) Transform(rows []domain.SourceRow) Result {
	res := Result{Rows: make([]domain.ExpandedRow, 0, len(rows))}

	for _, row := range rows {
		res.Stats.RowsRead++

		expanded, err := domain.ExpandRow(row)
		switch {
		case errors.Is(err, domain.ErrRowShape):
			res.Stats.SkippedShape++
			t.logger.Debug("row lacks value columns, skipping", "line", row.Line, "cells", len(row.Values))
			continue
		case errors.Is(err, domain.ErrCoordinateParse):
			res.Stats.SkippedCoordinates++
			t.logger.Warn("skipping row due to bad coordinates",
				"line", row.Line,
				"city", row.City,
				"error", err,
			)
			continue
		case err != nil:
			// ExpandRow has no other failure modes; treat anything new as a shape problem.
			res.Stats.SkippedShape++
			t.logger.Warn("skipping row", "line", row.Line, "error", err)
			continue
		}

		if len(expanded) == 0 {
			res.Stats.SkippedEmpty++
			continue
		}
		res.Stats.RowsExpanded++
		res.Rows = append(res.Rows, expanded...)
	}

	res.Stats.Features = len(res.Rows)
	return res
}
