// Package portfolio simulates the connected wallet's open positions and
// resting orders.
package portfolio

import "github.com/gregtusar/armadex/pkg/models"

// Margin is the collateral posted for a leveraged position.
func Margin(entryPrice, size float64, leverage int) float64 {
	return entryPrice * size / float64(leverage)
}

// LiquidationPrice applies the simulated buffer on top of the 1/leverage
// move that would wipe out the margin.
func LiquidationPrice(entryPrice float64, side models.PositionSide, leverage int, buffer float64) float64 {
	inverse := 1 / float64(leverage)
	switch side {
	case models.SideLong, models.SideBuy:
		return entryPrice * (1 - inverse + buffer)
	case models.SideShort, models.SideSell:
		return entryPrice * (1 + inverse - buffer)
	}
	return 0
}

// PnL is side-signed (mark-entry) * size * leverage.
func PnL(side models.PositionSide, entryPrice, markPrice, size, leverage float64) float64 {
	return side.Sign() * (markPrice - entryPrice) * size * leverage
}

// PnLPercent is relative to margin for leveraged positions and to the cost
// basis for spot holdings.
func PnLPercent(p models.Position) float64 {
	if p.Leveraged() {
		margin := 1.0
		if p.Margin != nil && *p.Margin != 0 {
			margin = *p.Margin
		}
		return p.PnL / margin * 100
	}
	if p.EntryPrice == 0 || p.Size == 0 {
		return 0
	}
	return p.PnL / p.EntryPrice / p.Size * 100
}

// Revalue moves the mark price and recomputes the derived PnL fields. Entry,
// margin and liquidation price are left untouched.
func Revalue(p *models.Position, markPrice float64) {
	p.MarkPrice = markPrice
	p.PnL = PnL(p.Side, p.EntryPrice, markPrice, p.Size, p.EffectiveLeverage())
	p.PnLPercent = PnLPercent(*p)
}
