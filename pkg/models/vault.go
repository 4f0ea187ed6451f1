package models

import "time"

type VaultTradeStatus string

const (
	VaultTradeOpen   VaultTradeStatus = "open"
	VaultTradeClosed VaultTradeStatus = "closed"
)

type VaultTrade struct {
	Market     Market           `json:"market"`
	Side       PositionSide     `json:"side"`
	Leverage   int              `json:"leverage"`
	EntryPrice float64          `json:"entry_price"`
	ExitPrice  *float64         `json:"exit_price,omitempty"`
	Size       float64          `json:"size"`
	PnL        float64          `json:"pnl"`
	PnLPercent float64          `json:"pnl_percent"`
	Timestamp  time.Time        `json:"timestamp"`
	Status     VaultTradeStatus `json:"status"`
}

type Vault struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Trader      string       `json:"trader"`
	TraderID    string       `json:"trader_id"`
	Description string       `json:"description"`
	APY         float64      `json:"apy"`
	TVL         float64      `json:"tvl"`
	WinRate     float64      `json:"win_rate"`
	Subscribers int          `json:"subscribers"`
	Fee         float64      `json:"fee"`
	Trades      []VaultTrade `json:"trades"`
}

func (v Vault) Clone() Vault {
	out := v
	out.Trades = make([]VaultTrade, len(v.Trades))
	for i, t := range v.Trades {
		if t.ExitPrice != nil {
			exit := *t.ExitPrice
			t.ExitPrice = &exit
		}
		out.Trades[i] = t
	}
	return out
}
