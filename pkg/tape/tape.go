// Package tape simulates the rolling trade feed of one market.
package tape

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gregtusar/armadex/pkg/clock"
	"github.com/gregtusar/armadex/pkg/marketdata"
	"github.com/gregtusar/armadex/pkg/models"
	"github.com/gregtusar/armadex/pkg/random"
	"github.com/sirupsen/logrus"
)

type Config struct {
	Interval      time.Duration `mapstructure:"interval"`
	Capacity      int           `mapstructure:"capacity"`
	InitialTrades int           `mapstructure:"initial_trades"`
	Lookback      time.Duration `mapstructure:"lookback"`
	Variation     float64       `mapstructure:"variation"`
	MinAmount     float64       `mapstructure:"min_amount"`
	MaxAmount     float64       `mapstructure:"max_amount"`
}

func DefaultConfig() Config {
	return Config{
		Interval:      2 * time.Second,
		Capacity:      50,
		InitialTrades: 20,
		Lookback:      60 * time.Second,
		Variation:     0.001,
		MinAmount:     0.01,
		MaxAmount:     2.01,
	}
}

type Tape struct {
	market models.Market
	cfg    Config
	assets marketdata.Assets
	rng    *random.Source
	clock  clock.Clock
	logger *logrus.Logger

	mu     sync.RWMutex
	trades []models.Trade // newest first
	timer  clock.Timer
	onAdd  func(models.Trade)
}

func New(market models.Market, cfg Config, assets marketdata.Assets, rng *random.Source, clk clock.Clock, logger *logrus.Logger) *Tape {
	return &Tape{
		market: market,
		cfg:    cfg,
		assets: assets,
		rng:    rng,
		clock:  clk,
		logger: logger,
	}
}

func (t *Tape) OnTrade(fn func(models.Trade)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onAdd = fn
}

// Start seeds the tape with trades from the lookback window and appends one
// trade per interval afterwards.
func (t *Tape) Start() {
	t.Seed()

	timer := t.clock.Every(t.cfg.Interval, func() { t.Append() })
	t.mu.Lock()
	t.timer = timer
	t.mu.Unlock()

	t.logger.WithField("market", t.market).Debug("Trade tape started")
}

func (t *Tape) Stop() {
	t.mu.Lock()
	timer := t.timer
	t.timer = nil
	t.mu.Unlock()

	if timer != nil {
		timer.Stop()
		t.logger.WithField("market", t.market).Debug("Trade tape stopped")
	}
}

// Seed replaces the buffer with cfg.InitialTrades trades around the asset
// reference price, sorted newest first.
func (t *Tape) Seed() {
	now := t.clock.Now()
	base := t.assets.Reference(t.market.Base())

	trades := make([]models.Trade, 0, t.cfg.InitialTrades)
	for i := 0; i < t.cfg.InitialTrades; i++ {
		age := time.Duration(t.rng.Int64N(int64(t.cfg.Lookback)))
		trades = append(trades, t.newTrade(base, now.Add(-age)))
	}
	sort.SliceStable(trades, func(i, j int) bool {
		return trades[i].Timestamp.After(trades[j].Timestamp)
	})
	if len(trades) > t.cfg.Capacity {
		trades = trades[:t.cfg.Capacity]
	}

	t.mu.Lock()
	t.trades = trades
	t.mu.Unlock()
}

// Append synthesizes one trade off the newest price and evicts the oldest
// entries beyond capacity.
func (t *Tape) Append() models.Trade {
	t.mu.Lock()
	base := t.assets.Reference(t.market.Base())
	if len(t.trades) > 0 {
		base = t.trades[0].Price
	}
	trade := t.newTrade(base, t.clock.Now())

	next := make([]models.Trade, 0, min(len(t.trades)+1, t.cfg.Capacity))
	next = append(next, trade)
	next = append(next, t.trades...)
	if len(next) > t.cfg.Capacity {
		next = next[:t.cfg.Capacity]
	}
	t.trades = next
	notify := t.onAdd
	t.mu.Unlock()

	if notify != nil {
		notify(trade)
	}
	return trade
}

func (t *Tape) newTrade(base float64, ts time.Time) models.Trade {
	price := base + t.rng.Uniform(-t.cfg.Variation, t.cfg.Variation)*base
	amount := t.rng.Uniform(t.cfg.MinAmount, t.cfg.MaxAmount)
	side := models.TradeSideSell
	if t.rng.Chance(0.5) {
		side = models.TradeSideBuy
	}
	return models.Trade{
		ID:        uuid.NewString(),
		Price:     price,
		Amount:    amount,
		Total:     price * amount,
		Side:      side,
		Timestamp: ts,
	}
}

// Trades returns a copy of the buffer, newest first.
func (t *Tape) Trades() []models.Trade {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]models.Trade(nil), t.trades...)
}

func (t *Tape) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.trades)
}

func (t *Tape) Market() models.Market {
	return t.market
}
