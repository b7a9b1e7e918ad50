package dashboard

import (
	"time"

	"github.com/trogers1052/satoshi-dashboard/internal/alpaca"
	"github.com/trogers1052/satoshi-dashboard/internal/presenter"
)

// Snapshot is the composed, presented dashboard
type Snapshot struct {
	Account          *presenter.AccountView  `json:"account"`
	AccountError     string                  `json:"account_error,omitempty"`
	BitcoinPosition  *presenter.PositionView `json:"bitcoin_position"`
	PositionCount    int                     `json:"position_count"`
	PositionsError   string                  `json:"positions_error,omitempty"`
	PositionsMessage string                  `json:"positions_message,omitempty"`

	Status         *presenter.StatusView  `json:"status"`
	StatusMessage  string                 `json:"status_message,omitempty"`
	History        []presenter.HistoryRow `json:"history"`
	HistoryMessage string                 `json:"history_message,omitempty"`

	Price      *presenter.PriceView `json:"price"`
	PriceError string               `json:"price_error,omitempty"`

	Loading     []string  `json:"loading,omitempty"`
	GeneratedAt time.Time `json:"generated_at"`
}

// Snapshot presents the current contents of all three slots. Slots that
// have not completed a refresh yet are listed in Loading.
func (s *Service) Snapshot() Snapshot {
	now := s.clock.Now()
	snap := Snapshot{
		History:     []presenter.HistoryRow{},
		GeneratedAt: now,
	}

	if acc := s.account.Load(); acc != nil {
		snap.Account = presenter.BuildAccountView(acc.Account)
		snap.AccountError = acc.AccountError
		snap.PositionsError = acc.PositionsError
		snap.PositionCount = len(acc.Positions)
		if p, ok := alpaca.FindBitcoinPosition(acc.Positions); ok {
			snap.BitcoinPosition = presenter.BuildPositionView(p)
		}
		if len(acc.Positions) == 0 {
			snap.PositionsMessage = presenter.NoPositionsMessage
		}
	} else {
		snap.Loading = append(snap.Loading, JobAccount)
	}

	if st := s.status.Load(); st != nil {
		snap.Status = presenter.BuildStatusView(st.Latest, now, s.location)
		if snap.Status != nil {
			snap.Status.Comment = st.Comment
		} else {
			snap.StatusMessage = presenter.NoStatusMessage
		}
		snap.History = presenter.BuildHistoryRows(st.History, now, s.location)
		if len(snap.History) == 0 {
			snap.HistoryMessage = presenter.NoHistoryMessage
		}
	} else {
		snap.Loading = append(snap.Loading, JobStatus)
	}

	if pr := s.price.Load(); pr != nil {
		snap.Price = presenter.BuildPriceView(pr.Price)
		snap.PriceError = pr.Error
	} else {
		snap.Loading = append(snap.Loading, JobPrice)
	}

	return snap
}
