package api

import (
	"time"

	"github.com/gregtusar/armadex/pkg/format"
	"github.com/gregtusar/armadex/pkg/governance"
	"github.com/gregtusar/armadex/pkg/marketdata"
	"github.com/gregtusar/armadex/pkg/models"
)

// Display strings are rendered in UTC.
var displayLocation = time.UTC

type marketDataView struct {
	marketdata.State
	Display *marketDataDisplay `json:"display,omitempty"`
}

type marketDataDisplay struct {
	LastPrice     string `json:"last_price"`
	Change        string `json:"change"`
	ChangePercent string `json:"change_percent"`
	High          string `json:"high"`
	Low           string `json:"low"`
	Volume        string `json:"volume"`
	TotalLocked   string `json:"total_locked"`
	OpenInterest  string `json:"open_interest,omitempty"`
	FundingRate   string `json:"funding_rate,omitempty"`
}

func newMarketDataView(state marketdata.State) marketDataView {
	view := marketDataView{State: state}
	if state.Loading || state.Error != "" {
		return view
	}

	d := state.Data
	view.Display = &marketDataDisplay{
		LastPrice:     format.GroupedPrice(d.Market, d.LastPrice),
		Change:        format.GroupedPrice(d.Market, d.PriceChange24h),
		ChangePercent: format.Percent(d.PriceChangePercent24h),
		High:          format.GroupedPrice(d.Market, d.High24h),
		Low:           format.GroupedPrice(d.Market, d.Low24h),
		Volume:        format.Currency(d.Volume24h),
		TotalLocked:   format.Currency(d.TotalLocked),
	}
	if d.OpenInterest != nil {
		view.Display.OpenInterest = format.Currency(*d.OpenInterest)
	}
	if d.FundingRate != nil {
		view.Display.FundingRate = format.Fixed(*d.FundingRate, 4) + "%"
	}
	return view
}

type bookRowView struct {
	models.OrderBookEntry
	PriceDisplay  string `json:"price_display"`
	AmountDisplay string `json:"amount_display"`
	SumDisplay    string `json:"sum_display"`
}

type orderBookView struct {
	models.OrderBookSnapshot
	Asks             []bookRowView `json:"asks"`
	Bids             []bookRowView `json:"bids"`
	LastPriceDisplay string        `json:"last_price_display"`
	SpreadDisplay    string        `json:"spread_display"`
}

func newOrderBookView(snap models.OrderBookSnapshot) orderBookView {
	rows := func(entries []models.OrderBookEntry) []bookRowView {
		out := make([]bookRowView, len(entries))
		for i, e := range entries {
			out[i] = bookRowView{
				OrderBookEntry: e,
				PriceDisplay:   format.Price(snap.Market, e.Price),
				AmountDisplay:  format.Amount(e.Amount),
				SumDisplay:     format.Fixed(e.Notional(), 2),
			}
		}
		return out
	}

	return orderBookView{
		OrderBookSnapshot: snap,
		Asks:              rows(snap.Asks),
		Bids:              rows(snap.Bids),
		LastPriceDisplay:  format.Price(snap.Market, snap.LastPrice),
		SpreadDisplay:     format.Price(snap.Market, snap.Spread) + " (" + format.Percent(snap.SpreadPercent) + ")",
	}
}

type tradeView struct {
	models.Trade
	PriceDisplay  string `json:"price_display"`
	AmountDisplay string `json:"amount_display"`
	TimeDisplay   string `json:"time_display"`
}

func newTradeViews(market models.Market, trades []models.Trade) []tradeView {
	out := make([]tradeView, len(trades))
	for i, t := range trades {
		out[i] = tradeView{
			Trade:         t,
			PriceDisplay:  format.Price(market, t.Price),
			AmountDisplay: format.Amount(t.Amount),
			TimeDisplay:   format.Clock(t.Timestamp, displayLocation),
		}
	}
	return out
}

type positionView struct {
	models.Position
	PnLDisplay        string `json:"pnl_display"`
	PnLPercentDisplay string `json:"pnl_percent_display"`
}

func newPositionViews(positions []models.Position) []positionView {
	out := make([]positionView, len(positions))
	for i, p := range positions {
		out[i] = positionView{
			Position:          p,
			PnLDisplay:        format.PnL(p.PnL),
			PnLPercentDisplay: format.Percent(p.PnLPercent),
		}
	}
	return out
}

type orderView struct {
	models.Order
	FillPercent float64 `json:"fill_percent"`
}

func newOrderViews(orders []models.Order) []orderView {
	out := make([]orderView, len(orders))
	for i, o := range orders {
		out[i] = orderView{Order: o, FillPercent: o.FillPercent()}
	}
	return out
}

type proposalView struct {
	models.Proposal
	TotalVotes          float64            `json:"total_votes"`
	Progress            float64            `json:"progress"`
	Percentages         map[string]float64 `json:"percentages"`
	VotesForDisplay     string             `json:"votes_for_display"`
	VotesAgainstDisplay string             `json:"votes_against_display"`
	VotesAbstainDisplay string             `json:"votes_abstain_display"`
	TimeStatus          string             `json:"time_status"`
}

func newProposalView(p models.Proposal, now time.Time) proposalView {
	return proposalView{
		Proposal:   p,
		TotalVotes: p.TotalVotes(),
		Progress:   governance.Progress(p),
		Percentages: map[string]float64{
			string(models.VoteFor):     governance.VotePercentage(p, models.VoteFor),
			string(models.VoteAgainst): governance.VotePercentage(p, models.VoteAgainst),
			string(models.VoteAbstain): governance.VotePercentage(p, models.VoteAbstain),
		},
		VotesForDisplay:     format.Votes(p.VotesFor),
		VotesAgainstDisplay: format.Votes(p.VotesAgainst),
		VotesAbstainDisplay: format.Votes(p.VotesAbstain),
		TimeStatus:          governance.TimeStatus(p, now, displayLocation),
	}
}

type vaultView struct {
	models.Vault
	Following  bool   `json:"following"`
	TVLDisplay string `json:"tvl_display"`
	APYDisplay string `json:"apy_display"`
}

func newVaultView(v models.Vault, following bool) vaultView {
	return vaultView{
		Vault:      v,
		Following:  following,
		TVLDisplay: format.Currency(v.TVL),
		APYDisplay: format.Percent(v.APY),
	}
}
