// Package presenter derives display categories and strings from bot status
// snapshots and brokerage data. Everything here is a pure function of its
// inputs; the current time and viewer location are always passed in.
package presenter

import "strings"

// Category is the highlight class a value is rendered with
type Category string

const (
	Positive     Category = "positive"
	Negative     Category = "negative"
	Neutral      Category = "neutral"
	Info         Category = "info"
	NotAvailable Category = "n/a"
)

// RSIBand classifies an RSI reading
type RSIBand string

const (
	Overbought RSIBand = "overbought"
	Oversold   RSIBand = "oversold"
	RSINeutral RSIBand = "neutral"
	RSIMissing RSIBand = "n/a"
)

const (
	overboughtLevel = 70
	oversoldLevel   = 30
)

// ClassifyRSI returns the band of an RSI reading. A nil reading is
// RSIMissing, which is distinct from RSINeutral.
func ClassifyRSI(rsi *float64) RSIBand {
	switch {
	case rsi == nil:
		return RSIMissing
	case *rsi > overboughtLevel:
		return Overbought
	case *rsi < oversoldLevel:
		return Oversold
	default:
		return RSINeutral
	}
}

// Tone maps a band to its highlight: oversold is a buying opportunity and
// reads positive, overbought reads negative.
func (b RSIBand) Tone() Category {
	switch b {
	case Overbought:
		return Negative
	case Oversold:
		return Positive
	case RSINeutral:
		return Neutral
	default:
		return NotAvailable
	}
}

// ActionCategory maps the bot's action: buy is positive, sell is negative,
// anything else is neutral.
func ActionCategory(action string) Category {
	switch action {
	case "buy":
		return Positive
	case "sell":
		return Negative
	default:
		return Neutral
	}
}

// SignCategory is positive for v >= 0 and negative otherwise.
func SignCategory(v float64) Category {
	if v >= 0 {
		return Positive
	}
	return Negative
}

// PnLCategory classifies unrealized profit or loss
func PnLCategory(unrealizedPL float64) Category {
	return SignCategory(unrealizedPL)
}

// ChangeCategory classifies the 24h change
func ChangeCategory(changeToday float64) Category {
	return SignCategory(changeToday)
}

// TrendLabel maps the 4h EMA trend flag directly to its label
func TrendLabel(bullish bool) string {
	if bullish {
		return "Bullish"
	}
	return "Bearish"
}

// TrendCategory is the highlight for the trend label
func TrendCategory(bullish bool) Category {
	if bullish {
		return Positive
	}
	return Negative
}

// DigestTone colors a digest label by its wording
func DigestTone(label string) Category {
	switch {
	case containsAny(label, "Bullish", "Oversold", "Lower"):
		return Positive
	case containsAny(label, "Bearish", "Overbought", "Upper"):
		return Negative
	default:
		return Info
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
