package models

import (
	"fmt"
	"time"
)

type PositionSide string

const (
	SideLong  PositionSide = "long"
	SideShort PositionSide = "short"
	SideBuy   PositionSide = "buy"
	SideSell  PositionSide = "sell"
)

func (s PositionSide) Valid() bool {
	switch s {
	case SideLong, SideShort, SideBuy, SideSell:
		return true
	}
	return false
}

// Sign is +1 for long/buy exposure, -1 for short/sell and 0 otherwise.
func (s PositionSide) Sign() float64 {
	switch s {
	case SideLong, SideBuy:
		return 1
	case SideShort, SideSell:
		return -1
	}
	return 0
}

func (s PositionSide) IsBullish() bool {
	return s == SideLong || s == SideBuy
}

func ParsePositionSide(s string) (PositionSide, error) {
	side := PositionSide(s)
	if !side.Valid() {
		return "", fmt.Errorf("unknown side %q", s)
	}
	return side, nil
}

type Position struct {
	ID               string       `json:"id"`
	Market           Market       `json:"market"`
	Side             PositionSide `json:"side"`
	Size             float64      `json:"size"`
	Leverage         *int         `json:"leverage,omitempty"`
	EntryPrice       float64      `json:"entry_price"`
	MarkPrice        float64      `json:"mark_price"`
	LiquidationPrice *float64     `json:"liquidation_price,omitempty"`
	Margin           *float64     `json:"margin,omitempty"`
	PnL              float64      `json:"pnl"`
	PnLPercent       float64      `json:"pnl_percent"`
	Timestamp        time.Time    `json:"timestamp"`
}

// Leveraged reports whether the position is a perpetual (margined) position.
func (p Position) Leveraged() bool {
	return p.Leverage != nil
}

func (p Position) EffectiveLeverage() float64 {
	if p.Leverage == nil {
		return 1
	}
	return float64(*p.Leverage)
}
