// Package format renders prices, sizes and times the way the trading views
// display them.
package format

import (
	"strconv"
	"strings"
	"time"

	"github.com/gregtusar/armadex/pkg/models"
	"github.com/shopspring/decimal"
)

// Fixed rounds half away from zero and always prints places decimals.
func Fixed(v float64, places int32) string {
	return decimal.NewFromFloat(v).StringFixed(places)
}

// Price uses the market's display precision.
func Price(m models.Market, v float64) string {
	return Fixed(v, m.PriceDecimals())
}

// GroupedPrice is Price with thousands separators; non-BTC/ETH markets show
// four decimals, the majors two.
func GroupedPrice(m models.Market, v float64) string {
	places := int32(4)
	if m.PriceDecimals() < 4 {
		places = 2
	}
	return Group(Fixed(v, places))
}

func Amount(v float64) string {
	return Fixed(v, 4)
}

func Percent(v float64) string {
	return Fixed(v, 2) + "%"
}

func Votes(v float64) string {
	switch {
	case v >= 1_000_000:
		return Fixed(v/1_000_000, 2) + "M"
	case v >= 1_000:
		return Fixed(v/1_000, 1) + "K"
	default:
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
}

// Currency is the vault-card dollar form: $1.24M, $875.00K, $12.50.
func Currency(v float64) string {
	switch {
	case v >= 1_000_000:
		return "$" + Fixed(v/1_000_000, 2) + "M"
	case v >= 1_000:
		return "$" + Fixed(v/1_000, 2) + "K"
	default:
		return "$" + Fixed(v, 2)
	}
}

// PnL groups thousands and trims trailing zeros, keeping two decimals at or
// above 1000 in magnitude and six below.
func PnL(v float64) string {
	places := int32(6)
	if v >= 1000 || v <= -1000 {
		places = 2
	}
	return Group(decimal.NewFromFloat(v).Round(places).String())
}

// Group inserts commas into the integer part of a plain decimal string.
func Group(s string) string {
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	intPart, frac, hasFrac := strings.Cut(s, ".")

	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if hasFrac {
		b.WriteByte('.')
		b.WriteString(frac)
	}
	return sign + b.String()
}

// Clock renders a 24-hour HH:MM:SS time in loc.
func Clock(t time.Time, loc *time.Location) string {
	return t.In(loc).Format("15:04:05")
}

func Date(t time.Time, loc *time.Location) string {
	return t.In(loc).Format("Jan 2, 2006")
}

// ShortAddress keeps the first six and last four characters.
func ShortAddress(addr string) string {
	if len(addr) <= 10 {
		return addr
	}
	return addr[:6] + "..." + addr[len(addr)-4:]
}
