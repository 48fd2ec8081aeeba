package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoerceCount(t *testing.T) {
	tests := []struct {
		input string
		want  int
	}{
		{"3", 3},
		{"3.0", 3},
		{"2.7", 2},
		{" 4 ", 4},
		{"0", 0},
		{"", 0},
		{"   ", 0},
		{"abc", 0},
		{"3,5", 0},
		{"NaN", 0},
		{"+Inf", 0},
		{"-2", -2},
		{"-2.7", -2},
		{"1e2", 100},
		{"1e20", 0},
		{"2147483647", 2147483647},
		{"2147483648", 0},
		{"-2147483648", -2147483648},
		{"-2147483649", 0},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, CoerceCount(tt.input))
		})
	}
}

func TestCoerceCounts(t *testing.T) {
	t.Run("full row", func(t *testing.T) {
		counts, err := CoerceCounts([]string{"3", "", "1", "x", "0", "0", "0", "0", "0", "2.5"})
		require.NoError(t, err)
		assert.Equal(t, [ValueSlots]int{3, 0, 1, 0, 0, 0, 0, 0, 0, 2}, counts)
	})

	t.Run("short row", func(t *testing.T) {
		_, err := CoerceCounts([]string{"1", "2"})
		assert.ErrorIs(t, err, ErrRowShape)
	})

	t.Run("no value cells", func(t *testing.T) {
		_, err := CoerceCounts(nil)
		assert.ErrorIs(t, err, ErrRowShape)
	})
}
