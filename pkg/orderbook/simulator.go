package orderbook

import (
	"sync"

	"github.com/gregtusar/armadex/pkg/clock"
	"github.com/gregtusar/armadex/pkg/marketdata"
	"github.com/gregtusar/armadex/pkg/models"
	"github.com/gregtusar/armadex/pkg/random"
	"github.com/sirupsen/logrus"
)

// Simulator owns the book of one market for the lifetime of that market
// selection. A new market gets a new Simulator.
type Simulator struct {
	market models.Market
	cfg    Config
	assets marketdata.Assets
	rng    *random.Source
	clock  clock.Clock
	logger *logrus.Logger

	mu        sync.RWMutex
	snapshot  models.OrderBookSnapshot
	lastPrice float64
	ticks     int
	timer     clock.Timer
	onTick    func(models.OrderBookSnapshot)
}

func NewSimulator(market models.Market, cfg Config, assets marketdata.Assets, rng *random.Source, clk clock.Clock, logger *logrus.Logger) *Simulator {
	return &Simulator{
		market: market,
		cfg:    cfg,
		assets: assets,
		rng:    rng,
		clock:  clk,
		logger: logger,
	}
}

func (s *Simulator) OnTick(fn func(models.OrderBookSnapshot)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onTick = fn
}

// Start generates the first snapshot immediately and then one per interval.
func (s *Simulator) Start() {
	s.Tick()

	timer := s.clock.Every(s.cfg.Interval, s.Tick)
	s.mu.Lock()
	s.timer = timer
	s.mu.Unlock()

	s.logger.WithField("market", s.market).Debug("Order book simulator started")
}

func (s *Simulator) Stop() {
	s.mu.Lock()
	timer := s.timer
	s.timer = nil
	s.mu.Unlock()

	if timer != nil {
		timer.Stop()
		s.logger.WithField("market", s.market).Debug("Order book simulator stopped")
	}
}

// Tick replaces the whole snapshot.
func (s *Simulator) Tick() {
	base := s.assets.Sample(s.market.Base(), s.rng)
	price := base + s.rng.Uniform(-s.cfg.PriceJitter, s.cfg.PriceJitter)*base
	s.TickAt(price)
}

// TickAt builds the next snapshot around an explicit last price.
func (s *Simulator) TickAt(price float64) {
	amount := func() float64 { return s.rng.Uniform(s.cfg.MinAmount, s.cfg.MaxAmount) }

	s.mu.Lock()
	snap := Build(s.market, price, s.lastPrice, s.cfg, amount, s.clock.Now())
	s.snapshot = snap
	s.lastPrice = price
	s.ticks++
	notify := s.onTick
	s.mu.Unlock()

	if notify != nil {
		notify(snap.Clone())
	}
}

// Snapshot returns a copy of the current book; ok is false before the
// first tick.
func (s *Simulator) Snapshot() (models.OrderBookSnapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.ticks == 0 {
		return models.OrderBookSnapshot{}, false
	}
	return s.snapshot.Clone(), true
}

func (s *Simulator) Market() models.Market {
	return s.market
}

func (s *Simulator) Ticks() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ticks
}
