package marketdata

import (
	"sync"
	"time"

	"github.com/gregtusar/armadex/pkg/clock"
	"github.com/gregtusar/armadex/pkg/models"
	"github.com/gregtusar/armadex/pkg/random"
	"github.com/sirupsen/logrus"
)

const (
	maxChangePercent = 3.0
	maxRangeFraction = 0.05
	minVolume        = 500_000.0
	volumeSpan       = 1_000_000.0
	minOpenInterest  = 1_000_000.0
	openInterestSpan = 2_000_000.0
	maxFundingRate   = 0.1
)

type Generator struct {
	assets Assets
	rng    *random.Source
	clock  clock.Clock
	delay  time.Duration
}

func NewGenerator(assets Assets, rng *random.Source, clk clock.Clock, delay time.Duration) *Generator {
	return &Generator{
		assets: assets,
		rng:    rng,
		clock:  clk,
		delay:  delay,
	}
}

// Generate produces one synthetic 24h statistics record. It cannot fail.
func (g *Generator) Generate(market models.Market, perpetual bool) models.MarketData {
	lastPrice := g.assets.Sample(market.Base(), g.rng)
	changePercent := g.rng.Uniform(-maxChangePercent, maxChangePercent)
	volume := g.rng.Float64()*volumeSpan + minVolume

	data := models.MarketData{
		Market:                market,
		LastPrice:             lastPrice,
		PriceChange24h:        lastPrice * changePercent / 100,
		PriceChangePercent24h: changePercent,
		High24h:               lastPrice + lastPrice*g.rng.Float64()*maxRangeFraction,
		Low24h:                lastPrice - lastPrice*g.rng.Float64()*maxRangeFraction,
		Volume24h:             volume,
		TotalLocked:           volume * 2,
	}

	if perpetual {
		openInterest := g.rng.Float64()*openInterestSpan + minOpenInterest
		fundingRate := g.rng.Uniform(-maxFundingRate, maxFundingRate)
		data.OpenInterest = &openInterest
		data.FundingRate = &fundingRate
	}

	return data
}

type State struct {
	Data    models.MarketData `json:"data"`
	Loading bool              `json:"loading"`
	Error   string            `json:"error,omitempty"`
}

// Feed holds the latest market data of one session and refreshes it after
// the simulated delay whenever Load is called.
type Feed struct {
	gen    *Generator
	logger *logrus.Logger

	mu       sync.RWMutex
	state    State
	pending  clock.Timer
	onUpdate func(State)
}

func NewFeed(gen *Generator, logger *logrus.Logger) *Feed {
	return &Feed{
		gen:    gen,
		logger: logger,
		state:  State{Loading: true},
	}
}

// OnUpdate registers the callback invoked after each completed load.
func (f *Feed) OnUpdate(fn func(State)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onUpdate = fn
}

// Load supersedes any pending load and schedules a new one.
func (f *Feed) Load(market models.Market, perpetual bool) {
	f.mu.Lock()
	prev := f.pending
	f.pending = nil
	f.state.Loading = true
	f.mu.Unlock()

	if prev != nil {
		prev.Stop()
	}

	timer := f.gen.clock.After(f.gen.delay, func() {
		data := f.gen.Generate(market, perpetual)

		f.mu.Lock()
		f.state = State{Data: data}
		notify := f.onUpdate
		state := f.state
		f.mu.Unlock()

		f.logger.WithFields(logrus.Fields{
			"market":     market,
			"last_price": data.LastPrice,
		}).Debug("Market data refreshed")

		if notify != nil {
			notify(state)
		}
	})

	f.mu.Lock()
	f.pending = timer
	f.mu.Unlock()
}

func (f *Feed) State() State {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.state
}

func (f *Feed) Close() {
	f.mu.Lock()
	prev := f.pending
	f.pending = nil
	f.mu.Unlock()

	if prev != nil {
		prev.Stop()
	}
}
