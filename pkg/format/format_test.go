package format

import (
	"testing"
	"time"

	"github.com/gregtusar/armadex/pkg/models"
	"github.com/stretchr/testify/assert"
)

func TestPrice(t *testing.T) {
	tests := []struct {
		market models.Market
		value  float64
		want   string
	}{
		{"BTC/USDC", 65123.456, "65123.5"},
		{"ETH/USDC", 3503.5, "3503.50"},
		{"ARMA/USDC", 5.123456, "5.1235"},
		{"SOL/USDC", 100, "100.0000"},
	}

	for _, tt := range tests {
		t.Run(string(tt.market), func(t *testing.T) {
			assert.Equal(t, tt.want, Price(tt.market, tt.value))
		})
	}
}

func TestGroupedPrice(t *testing.T) {
	assert.Equal(t, "65,123.46", GroupedPrice("BTC/USDC", 65123.456))
	assert.Equal(t, "5.1235", GroupedPrice("ARMA/USDC", 5.123456))
}

func TestAbbreviations(t *testing.T) {
	assert.Equal(t, "1.25M", Votes(1250000))
	assert.Equal(t, "450.0K", Votes(450000))
	assert.Equal(t, "0", Votes(0))
	assert.Equal(t, "$1.24M", Currency(1235000))
	assert.Equal(t, "$875.00K", Currency(875000))
	assert.Equal(t, "$12.50", Currency(12.5))
	assert.Equal(t, "-2.30%", Percent(-2.3))
	assert.Equal(t, "0.1000", Amount(0.1))
}

func TestPnL(t *testing.T) {
	assert.Equal(t, "1,414.5", PnL(1414.5))
	assert.Equal(t, "-1,234,567.89", PnL(-1234567.891))
	assert.Equal(t, "0.123457", PnL(0.1234567))
}

func TestGroup(t *testing.T) {
	assert.Equal(t, "1,000", Group("1000"))
	assert.Equal(t, "100", Group("100"))
	assert.Equal(t, "-12,345.6", Group("-12345.6"))
}

func TestTimes(t *testing.T) {
	ts := time.Date(2026, 3, 4, 7, 8, 9, 0, time.UTC)
	assert.Equal(t, "07:08:09", Clock(ts, time.UTC))
	assert.Equal(t, "Mar 4, 2026", Date(ts, time.UTC))
}

func TestShortAddress(t *testing.T) {
	assert.Equal(t, "0x1234...abcd", ShortAddress("0x1234567890123456789012345678901234abcd"))
	assert.Equal(t, "0x12", ShortAddress("0x12"))
}
