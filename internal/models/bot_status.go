package models

import (
	"bytes"
	"encoding/json"
)

// BotSignals holds the indicator values the bot computed for one decision.
// Numeric indicators are pointers so an absent value stays distinguishable
// from zero; absent booleans read as false.
type BotSignals struct {
	BB1hLowerTouch    bool     `json:"bb_1h_lower_touch"`
	BB1hUpperTouch    bool     `json:"bb_1h_upper_touch"`
	BB4hLowerTouch    bool     `json:"bb_4h_lower_touch"`
	BB4hUpperTouch    bool     `json:"bb_4h_upper_touch"`
	BearishDiv1h      bool     `json:"bearish_div_1h"`
	BearishDiv4h      bool     `json:"bearish_div_4h"`
	BullishDiv1h      bool     `json:"bullish_div_1h"`
	BullishDiv4h      bool     `json:"bullish_div_4h"`
	EMA1h             *float64 `json:"ema_1h,omitempty"`
	EMA4h             *float64 `json:"ema_4h,omitempty"`
	EMA4hTrendBullish bool     `json:"ema_4h_trend_bullish"`
	Price1h           *float64 `json:"price_1h,omitempty"`
	Price4h           *float64 `json:"price_4h,omitempty"`
	RSI1h             *float64 `json:"rsi_1h,omitempty"`
	RSI1hOverbought   bool     `json:"rsi_1h_overbought"`
	RSI1hOversold     bool     `json:"rsi_1h_oversold"`
	RSI4h             *float64 `json:"rsi_4h,omitempty"`
	RSI4hOverbought   bool     `json:"rsi_4h_overbought"`
	RSI4hOversold     bool     `json:"rsi_4h_oversold"`
	RSI4hPullback     bool     `json:"rsi_4h_pullback"`
}

// BotStatusData is one flattened decision snapshot emitted by the bot
type BotStatusData struct {
	Action    string      `json:"action,omitempty"`
	BuyScore  float64     `json:"buy_score"`
	SellScore float64     `json:"sell_score"`
	Price     float64     `json:"price"`
	Qty       float64     `json:"qty"`
	Message   string      `json:"message,omitempty"`
	Timestamp string      `json:"timestamp,omitempty"`
	Type      string      `json:"type,omitempty"`
	Signals   *BotSignals `json:"signals,omitempty"`
}

// BotStatusDocument is a stored snapshot as the bot writes it: the status
// fields nested under data, with timestamp and type at the top level.
type BotStatusDocument struct {
	Data      json.RawMessage `json:"data"`
	Timestamp string          `json:"timestamp"`
	Type      string          `json:"type"`
}

type wireSignals struct {
	BB1hLowerTouch    flag   `json:"bb_1h_lower_touch"`
	BB1hUpperTouch    flag   `json:"bb_1h_upper_touch"`
	BB4hLowerTouch    flag   `json:"bb_4h_lower_touch"`
	BB4hUpperTouch    flag   `json:"bb_4h_upper_touch"`
	BearishDiv1h      flag   `json:"bearish_div_1h"`
	BearishDiv4h      flag   `json:"bearish_div_4h"`
	BullishDiv1h      flag   `json:"bullish_div_1h"`
	BullishDiv4h      flag   `json:"bullish_div_4h"`
	EMA1h             Number `json:"ema_1h"`
	EMA4h             Number `json:"ema_4h"`
	EMA4hTrendBullish flag   `json:"ema_4h_trend_bullish"`
	Price1h           Number `json:"price_1h"`
	Price4h           Number `json:"price_4h"`
	RSI1h             Number `json:"rsi_1h"`
	RSI1hOverbought   flag   `json:"rsi_1h_overbought"`
	RSI1hOversold     flag   `json:"rsi_1h_oversold"`
	RSI4h             Number `json:"rsi_4h"`
	RSI4hOverbought   flag   `json:"rsi_4h_overbought"`
	RSI4hOversold     flag   `json:"rsi_4h_oversold"`
	RSI4hPullback     flag   `json:"rsi_4h_pullback"`
}

// UnmarshalJSON accepts numbers or decimal strings for the indicators. A
// mistyped value reads as absent (numbers) or false (flags).
func (s *BotSignals) UnmarshalJSON(b []byte) error {
	var w wireSignals
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	*s = BotSignals{
		BB1hLowerTouch:    bool(w.BB1hLowerTouch),
		BB1hUpperTouch:    bool(w.BB1hUpperTouch),
		BB4hLowerTouch:    bool(w.BB4hLowerTouch),
		BB4hUpperTouch:    bool(w.BB4hUpperTouch),
		BearishDiv1h:      bool(w.BearishDiv1h),
		BearishDiv4h:      bool(w.BearishDiv4h),
		BullishDiv1h:      bool(w.BullishDiv1h),
		BullishDiv4h:      bool(w.BullishDiv4h),
		EMA1h:             w.EMA1h.Ptr(),
		EMA4h:             w.EMA4h.Ptr(),
		EMA4hTrendBullish: bool(w.EMA4hTrendBullish),
		Price1h:           w.Price1h.Ptr(),
		Price4h:           w.Price4h.Ptr(),
		RSI1h:             w.RSI1h.Ptr(),
		RSI1hOverbought:   bool(w.RSI1hOverbought),
		RSI1hOversold:     bool(w.RSI1hOversold),
		RSI4h:             w.RSI4h.Ptr(),
		RSI4hOverbought:   bool(w.RSI4hOverbought),
		RSI4hOversold:     bool(w.RSI4hOversold),
		RSI4hPullback:     bool(w.RSI4hPullback),
	}
	return nil
}

type wireBotStatus struct {
	Action    text            `json:"action"`
	BuyScore  Number          `json:"buy_score"`
	SellScore Number          `json:"sell_score"`
	Price     Number          `json:"price"`
	Qty       Number          `json:"qty"`
	Message   text            `json:"message"`
	Timestamp text            `json:"timestamp"`
	Type      text            `json:"type"`
	Signals   json.RawMessage `json:"signals"`
}

// UnmarshalJSON decodes a snapshot leniently: numerics may be numbers or
// decimal strings, and a mistyped field takes its zero value. Signals that
// are not an object read as absent.
func (s *BotStatusData) UnmarshalJSON(b []byte) error {
	var w wireBotStatus
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	*s = BotStatusData{
		Action:    string(w.Action),
		BuyScore:  w.BuyScore.Float64(),
		SellScore: w.SellScore.Float64(),
		Price:     w.Price.Float64(),
		Qty:       w.Qty.Float64(),
		Message:   string(w.Message),
		Timestamp: string(w.Timestamp),
		Type:      string(w.Type),
	}
	if raw := bytes.TrimSpace(w.Signals); len(raw) > 0 && raw[0] == '{' {
		var signals BotSignals
		if err := json.Unmarshal(raw, &signals); err != nil {
			return err
		}
		s.Signals = &signals
	}
	return nil
}

// Float returns a pointer to v, for building optional indicator values
func Float(v float64) *float64 {
	return &v
}
