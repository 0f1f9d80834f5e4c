package metrictext

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in   string
		want int64
	}{
		{"1.2M", 1_200_000},
		{"820K", 820_000},
		{"15,000", 15_000},
		{"2.5B", 2_500_000_000},
		{"1.5k", 1_500},
		{" 42 ", 42},
		{"12 345", 12_345},
		{"1,234,567", 1_234_567},
		{"0", 0},
		{"", 0},
		{"abc", 0},
		{"K", 0},
		{"views", 0},
		{"301 views", 301},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, Parse(tt.in), "Parse(%q)", tt.in)
	}
}

func TestParseTruncates(t *testing.T) {
	// Fractional remainders truncate, never round up.
	require.Equal(t, int64(1_230), Parse("1.23K"))
	require.Equal(t, int64(1_999_999), Parse("1.999999M"))
}
