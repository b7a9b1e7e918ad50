package presenter

import "github.com/trogers1052/satoshi-dashboard/internal/models"

// NoSignals is shown in place of an empty digest
const NoSignals = "None"

// DigestLabel is one digest entry with its highlight
type DigestLabel struct {
	Label string   `json:"label"`
	Tone  Category `json:"tone"`
}

type digestRule struct {
	label string
	match func(s *models.BotSignals) bool
}

func rsiBelow(v *float64, level float64) bool { return v != nil && *v < level }
func rsiAbove(v *float64, level float64) bool { return v != nil && *v > level }

// Evaluated in this order; the digest keeps it.
var digestRules = []digestRule{
	{"1h RSI Oversold", func(s *models.BotSignals) bool { return rsiBelow(s.RSI1h, oversoldLevel) }},
	{"1h RSI Overbought", func(s *models.BotSignals) bool { return rsiAbove(s.RSI1h, overboughtLevel) }},
	{"4h RSI Oversold", func(s *models.BotSignals) bool { return rsiBelow(s.RSI4h, oversoldLevel) }},
	{"4h RSI Overbought", func(s *models.BotSignals) bool { return rsiAbove(s.RSI4h, overboughtLevel) }},
	{"1h BB Lower Touch", func(s *models.BotSignals) bool { return s.BB1hLowerTouch }},
	{"1h BB Upper Touch", func(s *models.BotSignals) bool { return s.BB1hUpperTouch }},
	{"1h Bullish Div", func(s *models.BotSignals) bool { return s.BullishDiv1h }},
	{"1h Bearish Div", func(s *models.BotSignals) bool { return s.BearishDiv1h }},
	{"4h Bullish Div", func(s *models.BotSignals) bool { return s.BullishDiv4h }},
	{"4h Bearish Div", func(s *models.BotSignals) bool { return s.BearishDiv4h }},
}

// Digest lists the labels of every signal that fired. Nil signals give an
// empty, non-nil digest.
func Digest(signals *models.BotSignals) []string {
	labels := []string{}
	if signals == nil {
		return labels
	}
	for _, rule := range digestRules {
		if rule.match(signals) {
			labels = append(labels, rule.label)
		}
	}
	return labels
}

// DigestDisplay returns the digest with tones, or a single NoSignals entry
// when nothing fired.
func DigestDisplay(labels []string) []DigestLabel {
	if len(labels) == 0 {
		return []DigestLabel{{Label: NoSignals, Tone: Neutral}}
	}
	out := make([]DigestLabel, 0, len(labels))
	for _, l := range labels {
		out = append(out, DigestLabel{Label: l, Tone: DigestTone(l)})
	}
	return out
}
