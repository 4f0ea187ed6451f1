// Package orderbook simulates a two-sided synthetic order book that is
// regenerated wholesale on every tick.
package orderbook

import (
	"time"

	"github.com/gregtusar/armadex/pkg/models"
)

type Config struct {
	Interval    time.Duration `mapstructure:"interval"`
	Depth       int           `mapstructure:"depth"`
	Offset      float64       `mapstructure:"offset"`
	Step        float64       `mapstructure:"step"`
	PriceJitter float64       `mapstructure:"price_jitter"`
	MinAmount   float64       `mapstructure:"min_amount"`
	MaxAmount   float64       `mapstructure:"max_amount"`
}

func DefaultConfig() Config {
	return Config{
		Interval:    2 * time.Second,
		Depth:       15,
		Offset:      0.001,
		Step:        0.0005,
		PriceJitter: 0.1,
		MinAmount:   0.1,
		MaxAmount:   2.1,
	}
}

// Build lays out cfg.Depth levels per side around lastPrice. amount is
// drawn once per level, asks first. prevPrice is the previous tick's last
// price, zero when there is none.
func Build(market models.Market, lastPrice, prevPrice float64, cfg Config, amount func() float64, now time.Time) models.OrderBookSnapshot {
	asks := buildSide(lastPrice*(1+cfg.Offset), 1+cfg.Step, cfg.Depth, amount)
	bids := buildSide(lastPrice*(1-cfg.Offset), 1-cfg.Step, cfg.Depth, amount)

	snap := models.OrderBookSnapshot{
		Market:    market,
		Asks:      asks,
		Bids:      bids,
		LastPrice: lastPrice,
		Direction: models.DirectionOf(prevPrice, lastPrice),
		Timestamp: now,
	}
	if len(asks) == 0 || len(bids) == 0 {
		return snap
	}

	maxTotal := max(asks[len(asks)-1].Total, bids[len(bids)-1].Total)
	if maxTotal > 0 {
		for i := range asks {
			asks[i].Depth = asks[i].Total / maxTotal
		}
		for i := range bids {
			bids[i].Depth = bids[i].Total / maxTotal
		}
	}

	bestAsk, bestBid := asks[0].Price, bids[0].Price
	snap.Spread = bestAsk - bestBid
	if bestAsk != 0 {
		snap.SpreadPercent = snap.Spread / bestAsk * 100
	}
	return snap
}

func buildSide(start, factor float64, depth int, amount func() float64) []models.OrderBookEntry {
	entries := make([]models.OrderBookEntry, 0, depth)
	price := start
	var total float64
	for i := 0; i < depth; i++ {
		a := amount()
		total += a
		entries = append(entries, models.OrderBookEntry{
			Price:  price,
			Amount: a,
			Total:  total,
		})
		price *= factor
	}
	return entries
}
