package alpaca

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/trogers1052/satoshi-dashboard/internal/metrics"
	"github.com/trogers1052/satoshi-dashboard/internal/models"
	"go.uber.org/zap"
)

// BitcoinSymbols lists the accepted spellings of the Bitcoin position, in
// preference order.
var BitcoinSymbols = []string{"BTC/USD", "BTCUSD"}

// wirePosition is a position as the brokerage sends it
type wirePosition struct {
	Symbol         *string       `json:"symbol"`
	Qty            models.Number `json:"qty"`
	MarketValue    models.Number `json:"market_value"`
	CostBasis      models.Number `json:"cost_basis"`
	UnrealizedPL   models.Number `json:"unrealized_pl"`
	UnrealizedPLPC models.Number `json:"unrealized_plpc"`
	CurrentPrice   models.Number `json:"current_price"`
	LastdayPrice   models.Number `json:"lastday_price"`
	ChangeToday    models.Number `json:"change_today"`
}

// wireAccount is the subset of the account payload the dashboard reads
type wireAccount struct {
	Equity         models.Number `json:"equity"`
	Cash           models.Number `json:"cash"`
	BuyingPower    models.Number `json:"buying_power"`
	PortfolioValue models.Number `json:"portfolio_value"`
}

// FetchAccount returns the account snapshot. The result is nil whenever the
// error is non-nil; a zeroed account is only returned for a real account.
func (c *Client) FetchAccount(ctx context.Context) (*models.AccountInfo, error) {
	body, err := c.get(ctx, "alpaca_account", accountPath)
	if err != nil {
		return nil, err
	}

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		c.metrics.ObserveUpstream("alpaca_account", metrics.OutcomeMalformed)
		c.logger.Error("Invalid account payload", zap.ByteString("body", truncate(body, 512)))
		return nil, fmt.Errorf("%w: account payload is not an object", ErrMalformedResponse)
	}

	var raw wireAccount
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		c.metrics.ObserveUpstream("alpaca_account", metrics.OutcomeMalformed)
		c.logger.Error("Invalid account payload", zap.Error(err))
		return nil, fmt.Errorf("%w: account: %v", ErrMalformedResponse, err)
	}
	c.metrics.ObserveUpstream("alpaca_account", metrics.OutcomeSuccess)

	return &models.AccountInfo{
		Equity:         raw.Equity.Float64(),
		Cash:           raw.Cash.Float64(),
		BuyingPower:    raw.BuyingPower.Float64(),
		PortfolioValue: raw.PortfolioValue.Float64(),
	}, nil
}

// FetchPositions returns all open positions. An empty upstream array yields
// an empty, non-nil slice; any other non-array payload is ErrMalformedResponse.
func (c *Client) FetchPositions(ctx context.Context) ([]models.Position, error) {
	body, err := c.get(ctx, "alpaca_positions", positionsPath)
	if err != nil {
		return nil, err
	}

	positions, err := DecodePositions(body)
	if err != nil {
		c.metrics.ObserveUpstream("alpaca_positions", metrics.OutcomeMalformed)
		c.logger.Error("Invalid positions payload", zap.Error(err), zap.ByteString("body", truncate(body, 512)))
		return nil, err
	}
	c.metrics.ObserveUpstream("alpaca_positions", metrics.OutcomeSuccess)

	if len(positions) == 0 {
		c.logger.Debug("No open positions")
	}
	return positions, nil
}

// DecodePositions validates that body is a JSON array and normalizes each item
func DecodePositions(body []byte) ([]models.Position, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, fmt.Errorf("%w: positions payload is not an array", ErrMalformedResponse)
	}

	var raw []*wirePosition
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return nil, fmt.Errorf("%w: positions: %v", ErrMalformedResponse, err)
	}

	positions := make([]models.Position, 0, len(raw))
	for _, wp := range raw {
		if wp == nil {
			return nil, fmt.Errorf("%w: positions: null entry", ErrMalformedResponse)
		}
		positions = append(positions, normalizePosition(*wp))
	}
	return positions, nil
}

// NormalizePosition re-normalizes a position through the wire decoding path.
// Applying it to an already normalized position returns an equal value.
func NormalizePosition(p models.Position) models.Position {
	b, err := json.Marshal(p)
	if err != nil {
		return p
	}
	var wp wirePosition
	if err := json.Unmarshal(b, &wp); err != nil {
		return p
	}
	return normalizePosition(wp)
}

func normalizePosition(wp wirePosition) models.Position {
	symbol := ""
	if wp.Symbol != nil {
		symbol = *wp.Symbol
	}
	return models.Position{
		Symbol:         symbol,
		Qty:            wp.Qty.Float64(),
		MarketValue:    wp.MarketValue.Float64(),
		CostBasis:      wp.CostBasis.Float64(),
		UnrealizedPL:   wp.UnrealizedPL.Float64(),
		UnrealizedPLPC: wp.UnrealizedPLPC.Float64(),
		CurrentPrice:   wp.CurrentPrice.Float64(),
		LastdayPrice:   wp.LastdayPrice.Float64(),
		ChangeToday:    wp.ChangeToday.Float64(),
	}
}

// FindBitcoinPosition returns the Bitcoin position. Spellings are tried in
// BitcoinSymbols order, so when both are held the first spelling wins.
func FindBitcoinPosition(positions []models.Position) (*models.Position, bool) {
	for _, symbol := range BitcoinSymbols {
		for i := range positions {
			if positions[i].Symbol == symbol {
				p := positions[i]
				return &p, true
			}
		}
	}
	return nil, false
}

func truncate(b []byte, n int) []byte {
	if len(b) <= n {
		return b
	}
	return b[:n]
}
