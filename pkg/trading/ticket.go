// Package trading validates order tickets and derives the helper figures
// shown next to them. Placing a ticket never touches the simulated books.
package trading

import (
	"fmt"
	"strings"

	"github.com/gregtusar/armadex/pkg/models"
	"github.com/gregtusar/armadex/pkg/toast"
	"github.com/shopspring/decimal"
)

var (
	ErrWalletNotConnected = toast.New(toast.CodeUnauthorized, "Wallet not connected", "Please connect your wallet to trade")
	ErrInvalidPrice       = toast.New(toast.CodeInvalid, "Invalid price", "Please enter a valid price")
	ErrInvalidAmount      = toast.New(toast.CodeInvalid, "Invalid amount", "Please enter a valid amount")
	ErrInvalidLeverage    = toast.New(toast.CodeInvalid, "Invalid leverage", "Leverage must be between 1x and 50x")
	ErrInvalidOrderType   = toast.New(toast.CodeInvalid, "Invalid order type", "Tickets accept limit or market orders")
	ErrInvalidSide        = toast.New(toast.CodeInvalid, "Invalid side", "Spot orders are buy or sell, perpetual orders long or short")
)

const (
	MinLeverage     = 1
	MaxLeverage     = 50
	DefaultLeverage = 5
)

// FeeRate is the taker fee applied to perpetual ticket estimates.
var FeeRate = decimal.RequireFromString("0.0006")

// Ticket is the order form as typed. Price and Amount stay strings so an
// empty field can be told apart from zero.
type Ticket struct {
	Market     models.Market       `json:"market"`
	Perpetual  bool                `json:"perpetual"`
	Type       models.OrderType    `json:"type"`
	Side       models.PositionSide `json:"side"`
	Price      string              `json:"price"`
	Amount     string              `json:"amount"`
	Leverage   int                 `json:"leverage,omitempty"`
	Options    models.OrderOptions `json:"options"`
	StopLoss   string              `json:"stop_loss,omitempty"`
	TakeProfit string              `json:"take_profit,omitempty"`
}

// Validate applies the checks in the order the ticket form does: wallet,
// price, amount. Shape checks on type, side and leverage follow.
func (t Ticket) Validate(connected bool) error {
	if !connected {
		return ErrWalletNotConnected
	}
	if t.Type == models.OrderTypeLimit {
		if _, ok := positive(t.Price); !ok {
			return ErrInvalidPrice
		}
	}
	if _, ok := positive(t.Amount); !ok {
		return ErrInvalidAmount
	}

	switch t.Type {
	case models.OrderTypeLimit, models.OrderTypeMarket:
	default:
		return ErrInvalidOrderType
	}

	switch t.Side {
	case models.SideLong, models.SideShort:
		if !t.Perpetual {
			return ErrInvalidSide
		}
	case models.SideBuy, models.SideSell:
		if t.Perpetual {
			return ErrInvalidSide
		}
	default:
		return ErrInvalidSide
	}

	if t.Perpetual && (t.leverage() < MinLeverage || t.leverage() > MaxLeverage) {
		return ErrInvalidLeverage
	}
	return nil
}

// Place validates the ticket and returns the confirmation toast.
func (t Ticket) Place(connected bool) (toast.Toast, error) {
	if err := t.Validate(connected); err != nil {
		return toast.Toast{}, err
	}

	at := "market price"
	if t.Type == models.OrderTypeLimit {
		at = "$" + strings.TrimSpace(t.Price)
	}
	desc := fmt.Sprintf("%s %s %s at %s", strings.ToUpper(string(t.Side)), strings.TrimSpace(t.Amount), t.Market.Base(), at)

	if t.Perpetual {
		desc += fmt.Sprintf(" with %dx leverage", t.leverage())
		return toast.Success("Position opened successfully", desc), nil
	}
	return toast.Success("Order placed successfully", desc), nil
}

// Margin is amount*price/leverage, two decimals; blank inputs count as zero.
func (t Ticket) Margin() string {
	total := parseOrZero(t.Amount).Mul(parseOrZero(t.Price))
	return total.Div(decimal.NewFromInt(int64(t.leverage()))).StringFixed(2)
}

// Total is price*amount for spot tickets, two decimals, or "" when either
// side is not a number.
func (t Ticket) Total() string {
	price, err1 := decimal.NewFromString(strings.TrimSpace(t.Price))
	amount, err2 := decimal.NewFromString(strings.TrimSpace(t.Amount))
	if err1 != nil || err2 != nil {
		return ""
	}
	return price.Mul(amount).StringFixed(2)
}

// EstimatedFee is the taker fee on amount*price at four decimals.
func (t Ticket) EstimatedFee() string {
	return parseOrZero(t.Amount).Mul(parseOrZero(t.Price)).Mul(FeeRate).StringFixed(4)
}

func (t Ticket) leverage() int {
	if t.Leverage == 0 {
		return DefaultLeverage
	}
	return t.Leverage
}

func positive(s string) (decimal.Decimal, bool) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil || !d.IsPositive() {
		return decimal.Zero, false
	}
	return d, true
}

func parseOrZero(s string) decimal.Decimal {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero
	}
	return d
}
