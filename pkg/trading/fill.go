package trading

import (
	"strings"

	"github.com/gregtusar/armadex/pkg/models"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// QuickFill sizes an order at percent of the available balance, six
// decimals. Spot uses the raw base-asset balance. Perpetual converts the
// quote balance at leverage and price, reading a blank price as 1.
func QuickFill(balances map[string]decimal.Decimal, market models.Market, perpetual bool, leverage int, price string, percent int) string {
	pct := decimal.NewFromInt(int64(percent)).Div(hundred)

	if !perpetual {
		return balances[market.Base()].Mul(pct).StringFixed(6)
	}

	p := decimal.NewFromInt(1)
	if s := strings.TrimSpace(price); s != "" {
		parsed, err := decimal.NewFromString(s)
		if err != nil || parsed.IsZero() {
			return decimal.Zero.StringFixed(6)
		}
		p = parsed
	}
	if leverage == 0 {
		leverage = DefaultLeverage
	}
	maxAmount := balances[market.Quote()].Mul(decimal.NewFromInt(int64(leverage))).Div(p)
	return maxAmount.Mul(pct).StringFixed(6)
}

// AmountFromTotal converts a spot total back to an amount at price, six
// decimals. ok is false when price is not a positive number.
func AmountFromTotal(total, price string) (string, bool) {
	p, ok := positive(price)
	if !ok {
		return "", false
	}
	t, err := decimal.NewFromString(strings.TrimSpace(total))
	if err != nil {
		return "", false
	}
	return t.Div(p).StringFixed(6), true
}
