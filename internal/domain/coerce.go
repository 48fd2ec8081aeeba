package domain

import (
	"math"
	"strconv"
	"strings"
)

// CoerceCount reads a value cell as a unit count. It never fails: blank,
// non-numeric and non-finite cells count as 0. Decimal text is accepted and
// truncated toward zero ("3.0" -> 3, "2.7" -> 2). Negative counts are returned
// as-is; they never set an indicator.
//
// Values outside the int32 range also count as 0. A row is expanded into one
// feature per unit, so such a cell would otherwise ask for billions of
// features from a single report; it is treated as garbage, like non-numeric text.
func CoerceCount(s string) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	if v >= math.MaxInt32+1 || v <= math.MinInt32-1 {
		return 0
	}
	return int(v)
}

// CoerceCounts coerces every value cell of a row. It returns ErrRowShape when
// the row does not carry exactly ValueSlots cells.
func CoerceCounts(values []string) ([ValueSlots]int, error) {
	var counts [ValueSlots]int
	if len(values) != ValueSlots {
		return counts, ErrRowShape
	}
	for i, v := range values {
		counts[i] = CoerceCount(v)
	}
	return counts, nil
}

// maxCount returns the largest count.
func maxCount(counts [ValueSlots]int) int {
	m := counts[0]
	for _, c := range counts[1:] {
		if c > m {
			m = c
		}
	}
	return m
}
