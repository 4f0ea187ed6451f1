package marketdata

import (
	"testing"
	"time"

	"github.com/gregtusar/armadex/pkg/clock"
	"github.com/gregtusar/armadex/pkg/models"
	"github.com/gregtusar/armadex/pkg/random"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func newGenerator(clk clock.Clock) *Generator {
	return NewGenerator(DefaultAssets(), random.New(7), clk, 500*time.Millisecond)
}

func TestGenerateStaysInRanges(t *testing.T) {
	gen := newGenerator(clock.NewManual(epoch))

	for i := 0; i < 500; i++ {
		data := gen.Generate("BTC/USDC", false)

		assert.InDelta(t, 65000, data.LastPrice, 1000)
		assert.GreaterOrEqual(t, data.PriceChangePercent24h, -3.0)
		assert.Less(t, data.PriceChangePercent24h, 3.0)
		assert.InDelta(t, data.LastPrice*data.PriceChangePercent24h/100, data.PriceChange24h, 1e-9)
		assert.GreaterOrEqual(t, data.High24h, data.LastPrice)
		assert.LessOrEqual(t, data.High24h, data.LastPrice*1.05)
		assert.LessOrEqual(t, data.Low24h, data.LastPrice)
		assert.GreaterOrEqual(t, data.Low24h, data.LastPrice*0.95)
		assert.GreaterOrEqual(t, data.Volume24h, 500_000.0)
		assert.Less(t, data.Volume24h, 1_500_000.0)
		assert.Equal(t, data.Volume24h*2, data.TotalLocked)
		assert.Nil(t, data.OpenInterest)
		assert.Nil(t, data.FundingRate)
	}
}

func TestGeneratePerpetualAddsFundingAndOpenInterest(t *testing.T) {
	gen := newGenerator(clock.NewManual(epoch))

	for i := 0; i < 200; i++ {
		data := gen.Generate("ETH/USDC", true)

		require.NotNil(t, data.OpenInterest)
		require.NotNil(t, data.FundingRate)
		assert.GreaterOrEqual(t, *data.OpenInterest, 1_000_000.0)
		assert.Less(t, *data.OpenInterest, 3_000_000.0)
		assert.GreaterOrEqual(t, *data.FundingRate, -0.1)
		assert.Less(t, *data.FundingRate, 0.1)
		assert.InDelta(t, 3500, data.LastPrice, 100)
	}
}

func TestGenerateUnknownAssetUsesFallback(t *testing.T) {
	gen := newGenerator(clock.NewManual(epoch))
	data := gen.Generate(models.Market("SOL/USDC"), false)
	assert.InDelta(t, 100, data.LastPrice, 10)
}

func TestFeedLoadsAfterDelay(t *testing.T) {
	clk := clock.NewManual(epoch)
	logger, _ := test.NewNullLogger()
	feed := NewFeed(newGenerator(clk), logger)

	var updates int
	feed.OnUpdate(func(State) { updates++ })

	feed.Load("ARMA/USDC", true)
	clk.Advance(400 * time.Millisecond)
	assert.True(t, feed.State().Loading)
	assert.Equal(t, 0, updates)

	clk.Advance(100 * time.Millisecond)
	state := feed.State()
	assert.False(t, state.Loading)
	assert.Empty(t, state.Error)
	assert.Equal(t, models.Market("ARMA/USDC"), state.Data.Market)
	assert.NotNil(t, state.Data.FundingRate)
	assert.Equal(t, 1, updates)
}

func TestFeedNewerLoadSupersedesPending(t *testing.T) {
	clk := clock.NewManual(epoch)
	logger, _ := test.NewNullLogger()
	feed := NewFeed(newGenerator(clk), logger)

	var markets []models.Market
	feed.OnUpdate(func(s State) { markets = append(markets, s.Data.Market) })

	feed.Load("BTC/USDC", false)
	clk.Advance(300 * time.Millisecond)
	feed.Load("ETH/USDC", false)
	clk.Advance(time.Second)

	assert.Equal(t, []models.Market{"ETH/USDC"}, markets)
	assert.Equal(t, 0, clk.Pending())
}

func TestFeedCloseCancelsPending(t *testing.T) {
	clk := clock.NewManual(epoch)
	logger, _ := test.NewNullLogger()
	feed := NewFeed(newGenerator(clk), logger)

	feed.Load("BTC/USDC", false)
	feed.Close()
	clk.Advance(time.Second)
	assert.True(t, feed.State().Loading)
}
