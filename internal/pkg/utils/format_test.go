package utils

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestFormatLamports(t *testing.T) {
	tests := []struct {
		lamports uint64
		want     string
	}{
		{0, "0"},
		{1, "0.000000001"},
		{5_000, "0.000005"},
		{895_880, "0.00089588"},
		{1_000_000_000, "1"},
		{1_234_500_000, "1.2345"},
		{10_500_000_000, "10.5"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatLamports(tt.lamports), "lamports=%d", tt.lamports)
	}
}

func TestFormatUSD(t *testing.T) {
	assert.Equal(t, "$0.02", FormatUSD(decimal.RequireFromString("0.02")))
	assert.Equal(t, "$1.50", FormatUSD(decimal.RequireFromString("1.5")))
	assert.Equal(t, "$150.00", FormatUSD(decimal.NewFromInt(150)))
}
