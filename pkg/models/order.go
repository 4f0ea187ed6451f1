package models

import (
	"fmt"
	"time"
)

type Order struct {
	ID        string       `json:"id"`
	Market    Market       `json:"market"`
	Type      OrderType    `json:"type"`
	Side      PositionSide `json:"side"`
	Price     float64      `json:"price"`
	Amount    float64      `json:"amount"`
	Filled    float64      `json:"filled"`
	Status    OrderStatus  `json:"status"`
	Timestamp time.Time    `json:"timestamp"`
	Options   OrderOptions `json:"options"`
	Leverage  *int         `json:"leverage,omitempty"`
}

// FillPercent is the filled share of the order amount, 0-100.
func (o Order) FillPercent() float64 {
	if o.Amount <= 0 {
		return 0
	}
	return o.Filled / o.Amount * 100
}

type OrderOptions struct {
	PostOnly   bool `json:"post_only"`
	ReduceOnly bool `json:"reduce_only"`
	IOC        bool `json:"ioc"`
}

type OrderType string

const (
	OrderTypeLimit        OrderType = "limit"
	OrderTypeMarket       OrderType = "market"
	OrderTypeStop         OrderType = "stop"
	OrderTypeTakeProfit   OrderType = "take_profit"
	OrderTypeTrailingStop OrderType = "trailing_stop"
)

func (t OrderType) Valid() bool {
	switch t {
	case OrderTypeLimit, OrderTypeMarket, OrderTypeStop, OrderTypeTakeProfit, OrderTypeTrailingStop:
		return true
	}
	return false
}

func ParseOrderType(s string) (OrderType, error) {
	t := OrderType(s)
	if !t.Valid() {
		return "", fmt.Errorf("unknown order type %q", s)
	}
	return t, nil
}

type OrderStatus string

const (
	OrderStatusOpen     OrderStatus = "open"
	OrderStatusPartial  OrderStatus = "partial"
	OrderStatusFilled   OrderStatus = "filled"
	OrderStatusCanceled OrderStatus = "canceled"
)

// Cancelable reports whether an explicit cancel may move the order to canceled.
func (s OrderStatus) Cancelable() bool {
	switch s {
	case OrderStatusOpen, OrderStatusPartial:
		return true
	case OrderStatusFilled, OrderStatusCanceled:
		return false
	}
	return false
}
