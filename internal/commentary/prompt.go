package commentary

import (
	"fmt"
	"strings"

	"github.com/trogers1052/satoshi-dashboard/internal/models"
	"github.com/trogers1052/satoshi-dashboard/internal/presenter"
)

const defaultAction = "waiting"

const persona = "You love bitcoin. Your name is Satoshi Accumulator. " +
	"Your responses should make those that see them feel as if you are alive and actively trying to stack sats."

// MarketConditions phrases every digest signal that fired as a prose fragment
func MarketConditions(signals *models.BotSignals) []string {
	fragments := []string{}
	if signals == nil {
		return fragments
	}

	rsi := func(timeframe string, v *float64) {
		switch band := presenter.ClassifyRSI(v); band {
		case presenter.Oversold, presenter.Overbought:
			fragments = append(fragments, fmt.Sprintf("%s RSI is %s (%.2f)", timeframe, band, *v))
		}
	}
	rsi("1h", signals.RSI1h)
	rsi("4h", signals.RSI4h)

	flags := []struct {
		on   bool
		text string
	}{
		{signals.BB1hLowerTouch, "price touched the lower Bollinger Band (1h)"},
		{signals.BB1hUpperTouch, "price touched the upper Bollinger Band (1h)"},
		{signals.BullishDiv1h, "bullish divergence detected on 1h"},
		{signals.BearishDiv1h, "bearish divergence detected on 1h"},
		{signals.BullishDiv4h, "bullish divergence detected on 4h"},
		{signals.BearishDiv4h, "bearish divergence detected on 4h"},
	}
	for _, f := range flags {
		if f.on {
			fragments = append(fragments, f.text)
		}
	}
	return fragments
}

// BuildPrompt renders the completion prompt for status
func BuildPrompt(status models.BotStatusData) string {
	action := status.Action
	if action == "" {
		action = defaultAction
	}

	conditions := MarketConditions(status.Signals)
	summary := "no notable signals"
	if len(conditions) > 0 {
		summary = strings.Join(conditions, ", ")
	}

	var b strings.Builder
	b.WriteString("As a witty crypto trading bot, generate a brief, humorous comment about the current market situation:\n\n")
	fmt.Fprintf(&b, "Current price: %s\n", presenter.FormatMoney(status.Price))
	fmt.Fprintf(&b, "Action: %s\n", action)
	fmt.Fprintf(&b, "Buy Score: %s\n", formatScore(status.BuyScore))
	fmt.Fprintf(&b, "Sell Score: %s\n", formatScore(status.SellScore))
	fmt.Fprintf(&b, "Market Conditions: %s\n\n", summary)
	b.WriteString("Please provide a witty one-liner that captures the essence of this trading situation. Be creative and funny! ")
	b.WriteString(persona)
	return b.String()
}

func formatScore(v float64) string {
	return fmt.Sprintf("%g", v)
}
