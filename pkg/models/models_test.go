package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMarket(t *testing.T) {
	m, err := ParseMarket(" eth/usdc ")
	require.NoError(t, err)
	assert.Equal(t, Market("ETH/USDC"), m)
	assert.Equal(t, "ETH", m.Base())
	assert.Equal(t, "USDC", m.Quote())

	for _, bad := range []string{"", "BTC", "/USDC", "BTC/", "A/B/C"} {
		_, err := ParseMarket(bad)
		assert.Error(t, err, bad)
	}
}

func TestPriceDecimals(t *testing.T) {
	tests := []struct {
		market Market
		want   int32
	}{
		{"BTC/USDC", 1},
		{"WBTC/ETH", 1},
		{"ETH/USDC", 2},
		{"ARMA/USDC", 4},
	}
	for _, tt := range tests {
		t.Run(string(tt.market), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.market.PriceDecimals())
		})
	}
}

func TestDirectionOf(t *testing.T) {
	assert.Equal(t, DirectionNeutral, DirectionOf(0, 100))
	assert.Equal(t, DirectionUp, DirectionOf(100, 101))
	assert.Equal(t, DirectionDown, DirectionOf(100, 99))
	assert.Equal(t, DirectionNeutral, DirectionOf(100, 100))
}

func TestSides(t *testing.T) {
	assert.Equal(t, 1.0, SideLong.Sign())
	assert.Equal(t, 1.0, SideBuy.Sign())
	assert.Equal(t, -1.0, SideShort.Sign())
	assert.Equal(t, -1.0, SideSell.Sign())
	assert.Zero(t, PositionSide("up").Sign())
	assert.False(t, PositionSide("up").IsBullish())
	assert.False(t, SideShort.IsBullish())
	assert.True(t, SideBuy.IsBullish())

	_, err := ParsePositionSide("sideways")
	assert.Error(t, err)
}

func TestOrderHelpers(t *testing.T) {
	o := Order{Amount: 2, Filled: 0.5}
	assert.InDelta(t, 25, o.FillPercent(), 1e-9)
	assert.Zero(t, Order{}.FillPercent())

	assert.True(t, OrderStatusOpen.Cancelable())
	assert.True(t, OrderStatusPartial.Cancelable())
	assert.False(t, OrderStatusFilled.Cancelable())
	assert.False(t, OrderStatusCanceled.Cancelable())

	typ, err := ParseOrderType("take_profit")
	require.NoError(t, err)
	assert.Equal(t, OrderTypeTakeProfit, typ)
	_, err = ParseOrderType("iceberg")
	assert.Error(t, err)
}

func TestProposalTally(t *testing.T) {
	p := Proposal{VotesFor: 3, VotesAgainst: 2, VotesAbstain: 1}
	assert.Equal(t, 6.0, p.TotalVotes())
	assert.Equal(t, 2.0, p.Tally(VoteAgainst))
	assert.False(t, VoteChoice("maybe").Valid())

	_, err := ParseProposalStatus("closed")
	assert.Error(t, err)
}

func TestCloneDoesNotAlias(t *testing.T) {
	exit := 10.0
	v := Vault{Trades: []VaultTrade{{ExitPrice: &exit}}}
	c := v.Clone()
	*c.Trades[0].ExitPrice = 20
	assert.Equal(t, 10.0, exit)

	s := OrderBookSnapshot{Asks: []OrderBookEntry{{Price: 1}}}
	sc := s.Clone()
	sc.Asks[0].Price = 2
	assert.Equal(t, 1.0, s.Asks[0].Price)
}
