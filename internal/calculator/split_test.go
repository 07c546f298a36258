package calculator

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitEvenly(t *testing.T) {
	tests := []struct {
		name  string
		total string
		n     int
		want  []string
	}{
		{name: "divides cleanly", total: "300", n: 3, want: []string{"100", "100", "100"}},
		{name: "remainder to first shares", total: "100", n: 3, want: []string{"34", "33", "33"}},
		{name: "cents", total: "100.00", n: 3, want: []string{"33.34", "33.33", "33.33"}},
		{name: "single share", total: "250", n: 1, want: []string{"250"}},
		{name: "more people than units", total: "2", n: 3, want: []string{"1", "1", "0"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			total := decimal.RequireFromString(tt.total)
			shares, err := SplitEvenly(total, tt.n)
			require.NoError(t, err)
			require.Len(t, shares, len(tt.want))

			sum := decimal.Zero
			for i, s := range shares {
				assert.True(t, s.Equal(decimal.RequireFromString(tt.want[i])), "share %d: got %s want %s", i, s, tt.want[i])
				sum = sum.Add(s)
			}
			assert.True(t, sum.Equal(total), "shares sum to %s", sum)
		})
	}
}

func TestSplitEvenlyErrors(t *testing.T) {
	_, err := SplitEvenly(decimal.NewFromInt(100), 0)
	assert.Error(t, err)

	_, err = SplitEvenly(decimal.Zero, 2)
	assert.Error(t, err)
}
