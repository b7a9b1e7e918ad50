package presenter

import (
	"time"

	"github.com/trogers1052/satoshi-dashboard/internal/models"
)

// Empty-state messages
const (
	NoStatusMessage    = "No bot status data available. The bot might not be running."
	NoHistoryMessage   = "No trading history available. The bot might not have made any trades yet."
	NoPositionsMessage = "No positions found. The bot hasn't accumulated any Bitcoin yet."
)

const defaultAction = "unknown"

// RSIView is one RSI reading with its band
type RSIView struct {
	Value string   `json:"value"`
	Band  RSIBand  `json:"band"`
	Tone  Category `json:"tone"`
}

// TrendView is the 4h EMA trend
type TrendView struct {
	Label string   `json:"label"`
	Tone  Category `json:"tone"`
}

// IndicatorsView groups the key indicators of the status view
type IndicatorsView struct {
	RSI1h RSIView   `json:"rsi_1h"`
	RSI4h RSIView   `json:"rsi_4h"`
	EMA1h string    `json:"ema_1h"`
	EMA4h string    `json:"ema_4h"`
	Trend TrendView `json:"trend_4h"`
}

// SignalFlag is one row of the technical signal grid
type SignalFlag struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// StatusView is the presented latest snapshot
type StatusView struct {
	Comment        string         `json:"comment,omitempty"`
	Action         string         `json:"action"`
	ActionCategory Category       `json:"action_category"`
	Price          string         `json:"price"`
	Quantity       string         `json:"quantity"`
	BuyScore       float64        `json:"buy_score"`
	SellScore      float64        `json:"sell_score"`
	Timestamp      string         `json:"timestamp"`
	Message        string         `json:"message,omitempty"`
	Indicators     IndicatorsView `json:"indicators"`
	Signals        []SignalFlag   `json:"signals"`
}

// HistoryRow is one presented history entry
type HistoryRow struct {
	Timestamp      string        `json:"timestamp"`
	Action         string        `json:"action"`
	ActionCategory Category      `json:"action_category"`
	Price          string        `json:"price"`
	Quantity       string        `json:"quantity"`
	BuyScore       float64       `json:"buy_score"`
	SellScore      float64       `json:"sell_score"`
	Digest         []DigestLabel `json:"digest"`
}

// PositionView is the presented Bitcoin position
type PositionView struct {
	Symbol            string   `json:"symbol"`
	Quantity          string   `json:"quantity"`
	CurrentValue      string   `json:"current_value"`
	CostBasis         string   `json:"cost_basis"`
	ProfitLoss        string   `json:"profit_loss"`
	ProfitLossPercent string   `json:"profit_loss_percent"`
	ProfitLossTone    Category `json:"profit_loss_tone"`
	CurrentPrice      string   `json:"current_price"`
	ChangeToday       string   `json:"change_today"`
	ChangeTodayTone   Category `json:"change_today_tone"`
}

// AccountView is the presented account overview
type AccountView struct {
	PortfolioValue string `json:"portfolio_value"`
	Cash           string `json:"cash"`
	BuyingPower    string `json:"buying_power"`
	Equity         string `json:"equity"`
}

// PriceView is the presented ticker
type PriceView struct {
	Price      string   `json:"price"`
	Change24h  string   `json:"change_24h"`
	ChangeTone Category `json:"change_tone"`
}

// signalsOrEmpty lets absent signals render as N/A and "No" everywhere
func signalsOrEmpty(s *models.BotSignals) *models.BotSignals {
	if s == nil {
		return &models.BotSignals{}
	}
	return s
}

func timestampOrNow(ts string, now time.Time) string {
	if ts == "" {
		return now.Format(time.RFC3339Nano)
	}
	return ts
}

func actionOrDefault(action string) string {
	if action == "" {
		return defaultAction
	}
	return action
}

func rsiView(v *float64) RSIView {
	band := ClassifyRSI(v)
	return RSIView{Value: FormatRSI(v), Band: band, Tone: band.Tone()}
}

// BuildStatusView presents the latest snapshot. A nil status gives nil.
func BuildStatusView(status *models.BotStatusData, now time.Time, loc *time.Location) *StatusView {
	if status == nil {
		return nil
	}
	signals := signalsOrEmpty(status.Signals)
	action := actionOrDefault(status.Action)

	return &StatusView{
		Action:         action,
		ActionCategory: ActionCategory(action),
		Price:          FormatMoney(status.Price),
		Quantity:       FormatQuantity(status.Qty),
		BuyScore:       status.BuyScore,
		SellScore:      status.SellScore,
		Timestamp:      FormatTimestamp(timestampOrNow(status.Timestamp, now), loc),
		Message:        status.Message,
		Indicators: IndicatorsView{
			RSI1h: rsiView(signals.RSI1h),
			RSI4h: rsiView(signals.RSI4h),
			EMA1h: FormatOptionalMoney(signals.EMA1h),
			EMA4h: FormatOptionalMoney(signals.EMA4h),
			Trend: TrendView{
				Label: TrendLabel(signals.EMA4hTrendBullish),
				Tone:  TrendCategory(signals.EMA4hTrendBullish),
			},
		},
		Signals: []SignalFlag{
			{"BB 1h Upper Touch", YesNo(signals.BB1hUpperTouch)},
			{"BB 4h Upper Touch", YesNo(signals.BB4hUpperTouch)},
			{"Bullish Div 1h", YesNo(signals.BullishDiv1h)},
			{"Bullish Div 4h", YesNo(signals.BullishDiv4h)},
			{"BB 1h Lower Touch", YesNo(signals.BB1hLowerTouch)},
			{"BB 4h Lower Touch", YesNo(signals.BB4hLowerTouch)},
			{"Bearish Div 1h", YesNo(signals.BearishDiv1h)},
			{"Bearish Div 4h", YesNo(signals.BearishDiv4h)},
		},
	}
}

// BuildHistoryRows presents snapshots in the order given. The result is
// never nil.
func BuildHistoryRows(statuses []models.BotStatusData, now time.Time, loc *time.Location) []HistoryRow {
	rows := make([]HistoryRow, 0, len(statuses))
	for _, s := range statuses {
		action := actionOrDefault(s.Action)
		rows = append(rows, HistoryRow{
			Timestamp:      FormatHistoryTimestamp(timestampOrNow(s.Timestamp, now), loc),
			Action:         action,
			ActionCategory: ActionCategory(action),
			Price:          FormatMoney(s.Price),
			Quantity:       FormatQuantity(s.Qty),
			BuyScore:       s.BuyScore,
			SellScore:      s.SellScore,
			Digest:         DigestDisplay(Digest(s.Signals)),
		})
	}
	return rows
}

// BuildPositionView presents one position. A nil position gives nil.
func BuildPositionView(p *models.Position) *PositionView {
	if p == nil {
		return nil
	}
	return &PositionView{
		Symbol:            p.Symbol,
		Quantity:          FormatQuantity(p.Qty),
		CurrentValue:      FormatMoney(p.MarketValue),
		CostBasis:         FormatMoney(p.CostBasis),
		ProfitLoss:        FormatMoney(p.UnrealizedPL),
		ProfitLossPercent: PercentString(p.UnrealizedPLPC),
		ProfitLossTone:    PnLCategory(p.UnrealizedPL),
		CurrentPrice:      FormatMoney(p.CurrentPrice),
		ChangeToday:       PercentString(p.ChangeToday),
		ChangeTodayTone:   ChangeCategory(p.ChangeToday),
	}
}

// BuildAccountView presents the account. A nil account gives nil.
func BuildAccountView(a *models.AccountInfo) *AccountView {
	if a == nil {
		return nil
	}
	return &AccountView{
		PortfolioValue: FormatMoney(a.PortfolioValue),
		Cash:           FormatMoney(a.Cash),
		BuyingPower:    FormatMoney(a.BuyingPower),
		Equity:         FormatMoney(a.Equity),
	}
}

// BuildPriceView presents the ticker. A nil price gives nil.
func BuildPriceView(p *models.BitcoinPrice) *PriceView {
	if p == nil {
		return nil
	}
	return &PriceView{
		Price:      FormatMoney(p.USD),
		Change24h:  SignedPercent(p.Change24h),
		ChangeTone: SignCategory(p.Change24h),
	}
}
