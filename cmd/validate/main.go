// Command validate performs an offline dry run of the event points transform.
// It decodes a local report CSV, expands it without publishing anything and
// checks the expansion against the source rows: feature counts per row,
// indicator sums per value column, coordinate normalization and the layer
// payload each feature would be published as.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -csv data/reports.csv \
//	  -date-layouts 2006-01-02,02.01.2006
package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"math"
	"os"
	"strings"

	"github.com/couchcryptid/event-points-etl/internal/adapter/source"
	"github.com/couchcryptid/event-points-etl/internal/domain"
	"github.com/couchcryptid/event-points-etl/internal/feature"
	"github.com/couchcryptid/event-points-etl/internal/pipeline"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	csvPath := flag.String("csv", "", "path to the report CSV")
	dateLayouts := flag.String("date-layouts", "", "comma separated Go time layouts for the date column")
	verbose := flag.Bool("v", false, "log skipped rows")
	flag.Parse()

	if *csvPath == "" {
		flag.Usage()
		os.Exit(1)
	}

	if code := run(*csvPath, splitLayouts(*dateLayouts), *verbose); code != 0 {
		os.Exit(code)
	}
}

func run(csvPath string, layouts []string, verbose bool) int {
	fmt.Println("=== Event Points Dry Run ===")
	fmt.Println()

	rows, err := loadRows(csvPath, layouts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load CSV: %v\n", err)
		return 1
	}

	level := slog.LevelError
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	res := pipeline.NewTransformer(logger).Transform(rows)
	byLine := groupByLine(res.Rows)

	phases := []*phase{
		validateFeatureCounts(rows, byLine),
		validateIndicators(rows, byLine),
		validateCoordinates(res.Rows),
		validatePayload(res.Rows, feature.DefaultFieldMap()),
	}

	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	s := res.Stats
	fmt.Printf("Rows: %d read, %d expanded, %d empty, %d bad coordinates, %d bad shape\n",
		s.RowsRead, s.RowsExpanded, s.SkippedEmpty, s.SkippedCoordinates, s.SkippedShape)
	fmt.Printf("Features: %d\n", s.Features)

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

// ── Data loading ──

func loadRows(path string, layouts []string) ([]domain.SourceRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return source.NewDecoder(domain.DefaultSchema(), layouts).Decode(f)
}

func splitLayouts(s string) []string {
	var out []string
	for _, l := range strings.Split(s, ",") {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return out
}

func groupByLine(rows []domain.ExpandedRow) map[int][]domain.ExpandedRow {
	out := make(map[int][]domain.ExpandedRow)
	for _, r := range rows {
		out[r.SourceLine] = append(out[r.SourceLine], r)
	}
	return out
}

// expectedUnits recomputes how many features a source row should produce,
// independently of the row expander.
func expectedUnits(row domain.SourceRow) (int, [domain.ValueSlots]int) {
	counts, err := domain.CoerceCounts(row.Values)
	if err != nil {
		return 0, counts
	}
	units := 0
	for _, c := range counts {
		units = max(units, c)
	}
	if units == 0 {
		return 0, counts
	}
	if _, err := domain.ParseCoordinate(row.Longitude); err != nil {
		return 0, counts
	}
	if _, err := domain.ParseCoordinate(row.Latitude); err != nil {
		return 0, counts
	}
	return units, counts
}

// ── Phase 1: Feature Counts ──
// Every kept row yields max(counts) features numbered 0..n-1.

func validateFeatureCounts(rows []domain.SourceRow, byLine map[int][]domain.ExpandedRow) *phase {
	p := &phase{name: "Phase 1: Feature Counts"}

	total := 0
	for _, row := range rows {
		want, _ := expectedUnits(row)
		got := byLine[row.Line]
		total += want
		if len(got) != want {
			p.errorf("line %d: expected %d features, got %d", row.Line, want, len(got))
			continue
		}
		for i, r := range got {
			if r.Unit != i {
				p.errorf("line %d: feature %d has unit %d", row.Line, i, r.Unit)
			}
		}
	}

	produced := 0
	for _, got := range byLine {
		produced += len(got)
	}
	if produced != total {
		p.errorf("total features: expected %d, got %d", total, produced)
	}
	return p
}

// ── Phase 2: Indicators ──
// Column k is set on exactly max(0, count k) features of a row, always the first ones.

func validateIndicators(rows []domain.SourceRow, byLine map[int][]domain.ExpandedRow) *phase {
	p := &phase{name: "Phase 2: Indicators"}

	for _, row := range rows {
		units, counts := expectedUnits(row)
		if units == 0 {
			continue
		}
		got := byLine[row.Line]
		for k, c := range counts {
			want := max(c, 0)
			sum := 0
			for i, r := range got {
				v := r.Indicators[k]
				if v != 0 && v != 1 {
					p.errorf("line %d unit %d: value %d indicator is %d", row.Line, i, k+1, v)
				}
				if v == 1 && i >= want {
					p.errorf("line %d unit %d: value %d set past its count %d", row.Line, i, k+1, c)
				}
				sum += v
			}
			if sum != want {
				p.errorf("line %d: value %d sums to %d, expected %d", row.Line, k+1, sum, want)
			}
		}
	}
	return p
}

// ── Phase 3: Coordinates ──

func validateCoordinates(rows []domain.ExpandedRow) *phase {
	p := &phase{name: "Phase 3: Coordinates"}

	for _, r := range rows {
		if !finite(r.Longitude) || !finite(r.Latitude) {
			p.errorf("line %d unit %d: non-finite point (%g, %g)", r.SourceLine, r.Unit, r.Longitude, r.Latitude)
		}
	}
	return p
}

// ── Phase 4: Layer Payload ──
// Each feature carries all attributes and a WGS-84 point matching its coordinates.

func validatePayload(rows []domain.ExpandedRow, fields feature.FieldMap) *phase {
	p := &phase{name: "Phase 4: Layer Payload"}

	for _, r := range rows {
		f := feature.New(r, fields)
		if n := len(f.Attributes); n != 5+domain.ValueSlots {
			p.errorf("line %d unit %d: %d attributes, expected %d", r.SourceLine, r.Unit, n, 5+domain.ValueSlots)
		}
		if f.Geometry.X != r.Longitude || f.Geometry.Y != r.Latitude {
			p.errorf("line %d unit %d: geometry (%g, %g) does not match coordinates", r.SourceLine, r.Unit, f.Geometry.X, f.Geometry.Y)
		}
		if f.Geometry.SpatialReference.WKID != feature.WGS84 {
			p.errorf("line %d unit %d: wkid %d", r.SourceLine, r.Unit, f.Geometry.SpatialReference.WKID)
		}
		if err := checkDate(r.Date); err != nil {
			p.errorf("line %d unit %d: %v", r.SourceLine, r.Unit, err)
		}
	}
	return p
}

// ── Helpers ──

var errEmptyDate = errors.New("date is empty")

func checkDate(d domain.EventDate) error {
	if d.String() == "" {
		return errEmptyDate
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
