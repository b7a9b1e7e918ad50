package models

// Position represents one brokerage holding after normalization.
// Every numeric field is a plain number regardless of the upstream encoding.
type Position struct {
	Symbol         string  `json:"symbol"`
	Qty            float64 `json:"qty"`
	MarketValue    float64 `json:"market_value"`
	CostBasis      float64 `json:"cost_basis"`
	UnrealizedPL   float64 `json:"unrealized_pl"`
	UnrealizedPLPC float64 `json:"unrealized_plpc"`
	CurrentPrice   float64 `json:"current_price"`
	LastdayPrice   float64 `json:"lastday_price"`
	ChangeToday    float64 `json:"change_today"`
}

// AccountInfo represents a brokerage account snapshot
type AccountInfo struct {
	Equity         float64 `json:"equity"`
	Cash           float64 `json:"cash"`
	BuyingPower    float64 `json:"buying_power"`
	PortfolioValue float64 `json:"portfolio_value"`
}

// BitcoinPrice is the spot price shown in the ticker
type BitcoinPrice struct {
	USD       float64 `json:"usd"`
	Change24h float64 `json:"usd_24h_change"`
}
