package models

import (
	"fmt"
	"strings"
	"time"
)

// Market is a "BASE/QUOTE" identifier such as "BTC/USDC".
type Market string

func (m Market) Base() string {
	base, _, _ := strings.Cut(string(m), "/")
	return base
}

func (m Market) Quote() string {
	_, quote, _ := strings.Cut(string(m), "/")
	return quote
}

func (m Market) Valid() bool {
	base, quote, ok := strings.Cut(string(m), "/")
	return ok && base != "" && quote != "" && !strings.Contains(quote, "/")
}

// PriceDecimals is the display precision used for prices in this market.
func (m Market) PriceDecimals() int32 {
	switch {
	case strings.Contains(string(m), "BTC"):
		return 1
	case strings.Contains(string(m), "ETH"):
		return 2
	default:
		return 4
	}
}

func (m Market) String() string {
	return string(m)
}

func ParseMarket(s string) (Market, error) {
	m := Market(strings.ToUpper(strings.TrimSpace(s)))
	if !m.Valid() {
		return "", fmt.Errorf("invalid market %q: expected BASE/QUOTE", s)
	}
	return m, nil
}

type MarketKind string

const (
	MarketKindSpot      MarketKind = "spot"
	MarketKindPerpetual MarketKind = "perpetual"
)

func KindOf(perpetual bool) MarketKind {
	if perpetual {
		return MarketKindPerpetual
	}
	return MarketKindSpot
}

type PriceDirection string

const (
	DirectionUp      PriceDirection = "up"
	DirectionDown    PriceDirection = "down"
	DirectionNeutral PriceDirection = "neutral"
)

// DirectionOf classifies next against prev. A zero prev means no prior price.
func DirectionOf(prev, next float64) PriceDirection {
	switch {
	case prev == 0:
		return DirectionNeutral
	case next > prev:
		return DirectionUp
	case next < prev:
		return DirectionDown
	default:
		return DirectionNeutral
	}
}

type OrderBookEntry struct {
	Price  float64 `json:"price"`
	Amount float64 `json:"amount"`
	Total  float64 `json:"total"`
	Depth  float64 `json:"depth"`
}

// Notional is price times amount, the "Sum" column of the book.
func (e OrderBookEntry) Notional() float64 {
	return e.Price * e.Amount
}

type OrderBookSnapshot struct {
	Market        Market           `json:"market"`
	Asks          []OrderBookEntry `json:"asks"`
	Bids          []OrderBookEntry `json:"bids"`
	LastPrice     float64          `json:"last_price"`
	Spread        float64          `json:"spread"`
	SpreadPercent float64          `json:"spread_percent"`
	Direction     PriceDirection   `json:"direction"`
	Timestamp     time.Time        `json:"timestamp"`
}

func (s OrderBookSnapshot) Clone() OrderBookSnapshot {
	out := s
	out.Asks = append([]OrderBookEntry(nil), s.Asks...)
	out.Bids = append([]OrderBookEntry(nil), s.Bids...)
	return out
}

type MarketData struct {
	Market                Market   `json:"market"`
	LastPrice             float64  `json:"last_price"`
	PriceChange24h        float64  `json:"price_change_24h"`
	PriceChangePercent24h float64  `json:"price_change_percent_24h"`
	High24h               float64  `json:"high_24h"`
	Low24h                float64  `json:"low_24h"`
	Volume24h             float64  `json:"volume_24h"`
	TotalLocked           float64  `json:"total_locked"`
	OpenInterest          *float64 `json:"open_interest,omitempty"`
	FundingRate           *float64 `json:"funding_rate,omitempty"`
}

type TradeSide string

const (
	TradeSideBuy  TradeSide = "buy"
	TradeSideSell TradeSide = "sell"
)

func (s TradeSide) Valid() bool {
	switch s {
	case TradeSideBuy, TradeSideSell:
		return true
	}
	return false
}

type Trade struct {
	ID        string    `json:"id"`
	Price     float64   `json:"price"`
	Amount    float64   `json:"amount"`
	Total     float64   `json:"total"`
	Side      TradeSide `json:"side"`
	Timestamp time.Time `json:"timestamp"`
}
