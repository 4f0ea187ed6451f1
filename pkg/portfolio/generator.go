package portfolio

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/gregtusar/armadex/pkg/clock"
	"github.com/gregtusar/armadex/pkg/marketdata"
	"github.com/gregtusar/armadex/pkg/models"
	"github.com/gregtusar/armadex/pkg/random"
)

type Config struct {
	Interval            time.Duration   `mapstructure:"interval"`
	CreationProbability float64         `mapstructure:"creation_probability"`
	MarkJitter          float64         `mapstructure:"mark_jitter"`
	MaxLeverage         int             `mapstructure:"max_leverage"`
	LiquidationBuffer   float64         `mapstructure:"liquidation_buffer"`
	MaxOrders           int             `mapstructure:"max_orders"`
	Markets             []models.Market `mapstructure:"markets"`
	SpotAssets          []string        `mapstructure:"spot_assets"`
	QuoteAsset          string          `mapstructure:"quote_asset"`
}

func DefaultConfig() Config {
	return Config{
		Interval:            5 * time.Second,
		CreationProbability: 0.7,
		MarkJitter:          0.01,
		MaxLeverage:         20,
		LiquidationBuffer:   0.05,
		MaxOrders:           5,
		Markets:             []models.Market{"BTC/USDC", "ETH/USDC", "ARMA/USDC"},
		SpotAssets:          []string{"BTC", "ETH", "ARMA", "USDC"},
		QuoteAsset:          "USDC",
	}
}

const (
	perpEntrySpread = 0.025
	spotEntrySpread = 0.05
	positionMaxAge  = 24 * time.Hour
	orderMaxAge     = time.Hour
)

// Generator fabricates positions and orders for a freshly connected wallet.
type Generator struct {
	cfg    Config
	assets marketdata.Assets
	rng    *random.Source
	clock  clock.Clock
}

func NewGenerator(cfg Config, assets marketdata.Assets, rng *random.Source, clk clock.Clock) *Generator {
	return &Generator{
		cfg:    cfg,
		assets: assets,
		rng:    rng,
		clock:  clk,
	}
}

// Positions creates at most one position per market (perpetual) or holding
// per asset (spot). An empty filter means every market.
func (g *Generator) Positions(filter models.Market, perpetual bool) []models.Position {
	if perpetual {
		return g.perpetualPositions(filter)
	}
	return g.spotHoldings(filter)
}

func (g *Generator) perpetualPositions(filter models.Market) []models.Position {
	now := g.clock.Now()
	var positions []models.Position

	for _, market := range g.cfg.Markets {
		if filter != "" && market != filter {
			continue
		}
		if !g.rng.Chance(g.cfg.CreationProbability) {
			continue
		}

		side := models.SideShort
		if g.rng.Chance(0.5) {
			side = models.SideLong
		}
		leverage := g.rng.IntN(g.cfg.MaxLeverage) + 1
		base := g.assets.Sample(market.Base(), g.rng)
		entry := base * (1 - g.rng.Uniform(-perpEntrySpread, perpEntrySpread))
		size := g.rng.Uniform(0.1, 2.1)
		margin := Margin(entry, size, leverage)
		liquidation := LiquidationPrice(entry, side, leverage, g.cfg.LiquidationBuffer)

		p := models.Position{
			ID:               fmt.Sprintf("position-%s", uuid.NewString()),
			Market:           market,
			Side:             side,
			Size:             size,
			Leverage:         &leverage,
			EntryPrice:       entry,
			Margin:           &margin,
			LiquidationPrice: &liquidation,
			Timestamp:        now.Add(-time.Duration(g.rng.Int64N(int64(positionMaxAge)))),
		}
		Revalue(&p, base)
		positions = append(positions, p)
	}
	return positions
}

func (g *Generator) spotHoldings(filter models.Market) []models.Position {
	now := g.clock.Now()
	var positions []models.Position

	for _, asset := range g.cfg.SpotAssets {
		if filter != "" && asset != filter.Base() && asset != g.cfg.QuoteAsset {
			continue
		}
		if !g.rng.Chance(g.cfg.CreationProbability) {
			continue
		}

		base := g.assets.Sample(asset, g.rng)
		entry := base * (1 - g.rng.Uniform(-spotEntrySpread, spotEntrySpread))
		if asset == g.cfg.QuoteAsset {
			entry = base
		}
		minSize := 1.0
		if asset == "BTC" {
			minSize = 0.1
		}
		size := g.rng.Float64()*10 + minSize

		p := models.Position{
			ID:         fmt.Sprintf("holding-%s", uuid.NewString()),
			Market:     models.Market(asset + "/" + g.cfg.QuoteAsset),
			Side:       models.SideBuy,
			Size:       size,
			EntryPrice: entry,
			Timestamp:  now.Add(-time.Duration(g.rng.Int64N(int64(positionMaxAge)))),
		}
		Revalue(&p, base)
		positions = append(positions, p)
	}
	return positions
}

// Orders creates up to cfg.MaxOrders resting orders; draws for markets
// outside the filter are skipped, not redrawn.
func (g *Generator) Orders(filter models.Market, perpetual bool) []models.Order {
	now := g.clock.Now()
	types := []models.OrderType{models.OrderTypeLimit, models.OrderTypeStop}
	if perpetual {
		types = []models.OrderType{
			models.OrderTypeLimit,
			models.OrderTypeStop,
			models.OrderTypeTakeProfit,
			models.OrderTypeTrailingStop,
		}
	}

	count := g.rng.IntN(g.cfg.MaxOrders + 1)
	var orders []models.Order

	for i := 0; i < count; i++ {
		market := g.cfg.Markets[g.rng.IntN(len(g.cfg.Markets))]
		if filter != "" && market != filter {
			continue
		}

		orderType := types[g.rng.IntN(len(types))]
		side := g.orderSide(perpetual)
		base := g.assets.Sample(market.Base(), g.rng)
		amount := g.rng.Uniform(0.1, 2.1)

		var filled float64
		if g.rng.Chance(0.2) {
			filled = g.rng.Float64() * amount
		}
		status := models.OrderStatusOpen
		if filled > 0 {
			status = models.OrderStatusPartial
		}

		o := models.Order{
			ID:     fmt.Sprintf("order-%s", uuid.NewString()),
			Market: market,
			Type:   orderType,
			Side:   side,
			Price:  base * TriggerOffset(orderType, side),
			Amount: amount,
			Filled: filled,
			Status: status,
			Options: models.OrderOptions{
				PostOnly:   g.rng.Chance(0.3),
				ReduceOnly: g.rng.Chance(0.3),
				IOC:        g.rng.Chance(0.1),
			},
			Timestamp: now.Add(-time.Duration(g.rng.Int64N(int64(orderMaxAge)))),
		}
		if perpetual {
			leverage := g.rng.IntN(g.cfg.MaxLeverage) + 1
			o.Leverage = &leverage
		}
		orders = append(orders, o)
	}
	return orders
}

func (g *Generator) orderSide(perpetual bool) models.PositionSide {
	bullish := g.rng.Chance(0.5)
	switch {
	case perpetual && bullish:
		return models.SideLong
	case perpetual:
		return models.SideShort
	case bullish:
		return models.SideBuy
	default:
		return models.SideSell
	}
}

// TriggerOffset is the multiple of the market price at which a resting order
// of this type and side is placed.
func TriggerOffset(t models.OrderType, side models.PositionSide) float64 {
	bullish := side.IsBullish()
	pick := func(buy, sell float64) float64 {
		if bullish {
			return buy
		}
		return sell
	}

	switch t {
	case models.OrderTypeLimit:
		return pick(0.98, 1.02)
	case models.OrderTypeStop:
		return pick(1.05, 0.95)
	case models.OrderTypeTakeProfit:
		return pick(0.9, 1.1)
	case models.OrderTypeTrailingStop:
		return pick(1.03, 0.97)
	case models.OrderTypeMarket:
		return 1
	}
	return 1
}
