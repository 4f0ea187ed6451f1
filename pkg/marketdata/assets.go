package marketdata

import (
	"strings"

	"github.com/gregtusar/armadex/pkg/random"
)

// AssetPrice is the reference price of one base asset and the half-width of
// the uniform jitter applied around it.
type AssetPrice struct {
	Reference float64 `mapstructure:"reference" json:"reference"`
	Jitter    float64 `mapstructure:"jitter" json:"jitter"`
}

// Assets is the per-asset lookup table every generator prices from.
type Assets struct {
	table    map[string]AssetPrice
	fallback AssetPrice
}

func NewAssets(table map[string]AssetPrice, fallback AssetPrice) Assets {
	normalized := make(map[string]AssetPrice, len(table))
	for symbol, price := range table {
		normalized[strings.ToUpper(symbol)] = price
	}
	return Assets{table: normalized, fallback: fallback}
}

func DefaultTable() map[string]AssetPrice {
	return map[string]AssetPrice{
		"BTC":  {Reference: 65000, Jitter: 1000},
		"ETH":  {Reference: 3500, Jitter: 100},
		"ARMA": {Reference: 5, Jitter: 0.5},
		"USDC": {Reference: 1, Jitter: 0},
	}
}

func DefaultFallback() AssetPrice {
	return AssetPrice{Reference: 100, Jitter: 10}
}

func DefaultAssets() Assets {
	return NewAssets(DefaultTable(), DefaultFallback())
}

func (a Assets) Lookup(base string) AssetPrice {
	if p, ok := a.table[strings.ToUpper(base)]; ok {
		return p
	}
	return a.fallback
}

func (a Assets) Reference(base string) float64 {
	return a.Lookup(base).Reference
}

// Sample draws reference ± jitter for base.
func (a Assets) Sample(base string, rng *random.Source) float64 {
	p := a.Lookup(base)
	if p.Jitter == 0 {
		return p.Reference
	}
	return p.Reference + rng.Uniform(-p.Jitter, p.Jitter)
}
