package tape

import (
	"testing"
	"time"

	"github.com/gregtusar/armadex/pkg/clock"
	"github.com/gregtusar/armadex/pkg/marketdata"
	"github.com/gregtusar/armadex/pkg/models"
	"github.com/gregtusar/armadex/pkg/random"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

func newTape(market models.Market) (*Tape, *clock.Manual) {
	clk := clock.NewManual(epoch)
	logger, _ := test.NewNullLogger()
	return New(market, DefaultConfig(), marketdata.DefaultAssets(), random.New(5), clk, logger), clk
}

func assertNewestFirst(t *testing.T, trades []models.Trade) {
	t.Helper()
	for i := 1; i < len(trades); i++ {
		assert.False(t, trades[i].Timestamp.After(trades[i-1].Timestamp), "trade %d is newer than trade %d", i, i-1)
	}
}

func TestSeedWithinLookback(t *testing.T) {
	tp, _ := newTape("BTC/USDC")
	tp.Seed()

	trades := tp.Trades()
	require.Len(t, trades, 20)
	assertNewestFirst(t, trades)

	for _, tr := range trades {
		assert.False(t, tr.Timestamp.After(epoch))
		assert.True(t, tr.Timestamp.After(epoch.Add(-60*time.Second)))
		assert.InDelta(t, 65000, tr.Price, 65000*0.001)
		assert.GreaterOrEqual(t, tr.Amount, 0.01)
		assert.Less(t, tr.Amount, 2.01)
		assert.InDelta(t, tr.Price*tr.Amount, tr.Total, 1e-9)
		assert.True(t, tr.Side.Valid())
		assert.NotEmpty(t, tr.ID)
	}
}

func TestAppendUsesNewestPriceAsBase(t *testing.T) {
	tp, clk := newTape("ETH/USDC")
	tp.Seed()
	newest := tp.Trades()[0]

	clk.Advance(2 * time.Second)
	trade := tp.Append()

	assert.InDelta(t, newest.Price, trade.Price, newest.Price*0.001)
	assert.Equal(t, epoch.Add(2*time.Second), trade.Timestamp)
	assert.Equal(t, trade, tp.Trades()[0])
}

func TestAppendOnEmptyTapeUsesReference(t *testing.T) {
	tp, _ := newTape("ARMA/USDC")
	trade := tp.Append()
	assert.InDelta(t, 5, trade.Price, 5*0.001)
	assert.Equal(t, 1, tp.Len())
}

func TestCapacityEvictsOldest(t *testing.T) {
	tp, clk := newTape("BTC/USDC")

	var added []models.Trade
	tp.OnTrade(func(tr models.Trade) { added = append(added, tr) })

	tp.Start()
	defer tp.Stop()

	for i := 0; i < 60; i++ {
		clk.Advance(2 * time.Second)
		trades := tp.Trades()
		assert.LessOrEqual(t, len(trades), 50)
		assertNewestFirst(t, trades)
	}

	trades := tp.Trades()
	require.Len(t, trades, 50)
	require.Len(t, added, 60)
	// the 50 newest appended trades, newest first
	for i := 0; i < 50; i++ {
		assert.Equal(t, added[len(added)-1-i].ID, trades[i].ID)
	}
}

func TestStopHaltsAppends(t *testing.T) {
	tp, clk := newTape("BTC/USDC")
	tp.Start()
	clk.Advance(4 * time.Second)
	tp.Stop()
	clk.Advance(20 * time.Second)

	assert.Equal(t, 22, tp.Len())
	assert.Equal(t, 0, clk.Pending())
}
