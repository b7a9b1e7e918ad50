// Package dashboard keeps the latest account, bot status and price results
// refreshed on their own schedules and composes them into one view.
package dashboard

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/trogers1052/satoshi-dashboard/internal/alpaca"
	"github.com/trogers1052/satoshi-dashboard/internal/botstatus"
	"github.com/trogers1052/satoshi-dashboard/internal/config"
	"github.com/trogers1052/satoshi-dashboard/internal/logging"
	"github.com/trogers1052/satoshi-dashboard/internal/metrics"
	"github.com/trogers1052/satoshi-dashboard/internal/models"
	"github.com/trogers1052/satoshi-dashboard/internal/poller"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Job names, used for metrics and logs
const (
	JobAccount = "account"
	JobStatus  = "status"
	JobPrice   = "price"
)

// Brokerage fetches account data
type Brokerage interface {
	FetchAccount(ctx context.Context) (*models.AccountInfo, error)
	FetchPositions(ctx context.Context) ([]models.Position, error)
}

// StatusSource reads bot status snapshots
type StatusSource interface {
	FetchLatest(ctx context.Context) *models.BotStatusData
	FetchRecent(ctx context.Context, count int) []models.BotStatusData
}

// Commentator produces the status comment
type Commentator interface {
	RequestComment(ctx context.Context, status *models.BotStatusData) string
}

// PriceSource fetches the ticker price
type PriceSource interface {
	FetchBitcoinPrice(ctx context.Context) (*models.BitcoinPrice, error)
}

// AccountResult is the outcome of one account refresh
type AccountResult struct {
	Account        *models.AccountInfo
	Positions      []models.Position
	AccountError   string
	PositionsError string
	UpdatedAt      time.Time
}

// StatusResult is the outcome of one bot status refresh
type StatusResult struct {
	Latest    *models.BotStatusData
	Comment   string
	History   []models.BotStatusData
	UpdatedAt time.Time
}

// PriceResult is the outcome of one price refresh
type PriceResult struct {
	Price     *models.BitcoinPrice
	Error     string
	UpdatedAt time.Time
}

// Deps are the data sources the service polls
type Deps struct {
	Brokerage   Brokerage
	Status      StatusSource
	Commentator Commentator
	Price       PriceSource
}

// Service owns three result slots. Each refresh replaces its own slot
// atomically; refreshes of the same job are serialized.
type Service struct {
	deps      Deps
	schedules config.PollingConfig
	clock     clockwork.Clock
	location  *time.Location
	logger    *zap.Logger
	metrics   *metrics.Metrics

	account atomic.Pointer[AccountResult]
	status  atomic.Pointer[StatusResult]
	price   atomic.Pointer[PriceResult]

	accountMu sync.Mutex
	statusMu  sync.Mutex
	priceMu   sync.Mutex

	mu      sync.Mutex
	handles []*poller.Handle
}

// Option configures the service
type Option func(*Service)

// WithClock replaces the wall clock for pollers and timestamps
func WithClock(c clockwork.Clock) Option {
	return func(s *Service) {
		s.clock = c
	}
}

// WithLocation sets the viewer time zone
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		s.location = loc
	}
}

// WithMetrics records poll durations
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// New creates a service. Nil dependencies leave their slot empty.
func New(deps Deps, schedules config.PollingConfig, logger *zap.Logger, opts ...Option) *Service {
	s := &Service{
		deps:      deps,
		schedules: schedules,
		clock:     clockwork.NewRealClock(),
		location:  time.Local,
		logger:    logging.OrNop(logger),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start launches the three pollers. Each runs once immediately.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.handles) > 0 {
		return fmt.Errorf("dashboard already started")
	}

	jobs := []struct {
		name string
		spec string
		fn   poller.Func
	}{
		{JobAccount, s.schedules.Account, s.RefreshAccount},
		{JobStatus, s.schedules.Status, s.RefreshStatus},
		{JobPrice, s.schedules.Price, s.RefreshPrice},
	}

	for _, job := range jobs {
		h, err := poller.Start(ctx, job.spec, job.fn,
			poller.WithClock(s.clock),
			poller.WithName(job.name),
			poller.WithLogger(s.logger))
		if err != nil {
			for _, started := range s.handles {
				started.Stop()
			}
			s.handles = nil
			return fmt.Errorf("failed to start %s poller: %w", job.name, err)
		}
		s.handles = append(s.handles, h)
	}

	s.logger.Info("Dashboard polling started",
		zap.String("account", s.schedules.Account),
		zap.String("status", s.schedules.Status),
		zap.String("price", s.schedules.Price))
	return nil
}

// Stop cancels every poller and waits for them to exit
func (s *Service) Stop() {
	s.mu.Lock()
	handles := s.handles
	s.handles = nil
	s.mu.Unlock()

	for _, h := range handles {
		h.Stop()
	}
}

// RefreshAccount fetches account and positions concurrently. A failure of
// one does not cancel the other. Refreshes with a cancelled ctx leave every
// slot untouched.
func (s *Service) RefreshAccount(ctx context.Context) {
	if s.deps.Brokerage == nil || ctx.Err() != nil {
		return
	}
	s.accountMu.Lock()
	defer s.accountMu.Unlock()
	start := s.clock.Now()

	var (
		account      *models.AccountInfo
		positions    []models.Position
		accountErr   error
		positionsErr error
		g            errgroup.Group
	)
	g.Go(func() error {
		account, accountErr = s.deps.Brokerage.FetchAccount(ctx)
		return nil
	})
	g.Go(func() error {
		positions, positionsErr = s.deps.Brokerage.FetchPositions(ctx)
		return nil
	})
	_ = g.Wait()

	result := &AccountResult{
		Account:   account,
		Positions: positions,
		UpdatedAt: s.clock.Now(),
	}
	if accountErr != nil {
		result.Account = nil
		result.AccountError = alpaca.Describe(accountErr, "Failed to fetch account data")
		s.logger.Warn("Account refresh failed", zap.Error(accountErr))
	}
	if positionsErr != nil || result.Positions == nil {
		result.Positions = []models.Position{}
	}
	if positionsErr != nil {
		result.PositionsError = alpaca.Describe(positionsErr, "Failed to fetch positions")
		s.logger.Warn("Positions refresh failed", zap.Error(positionsErr))
	}

	if ctx.Err() != nil {
		return
	}
	s.account.Store(result)
	s.metrics.ObservePoll(JobAccount, s.clock.Since(start), accountErr == nil && positionsErr == nil)
}

// RefreshStatus reads the latest snapshot and history concurrently, then
// asks for a comment on the latest one.
func (s *Service) RefreshStatus(ctx context.Context) {
	if s.deps.Status == nil || ctx.Err() != nil {
		return
	}
	s.statusMu.Lock()
	defer s.statusMu.Unlock()
	start := s.clock.Now()

	var (
		latest  *models.BotStatusData
		history []models.BotStatusData
		g       errgroup.Group
	)
	g.Go(func() error {
		latest = s.deps.Status.FetchLatest(ctx)
		return nil
	})
	g.Go(func() error {
		history = s.deps.Status.FetchRecent(ctx, botstatus.HistoryCount)
		return nil
	})
	_ = g.Wait()

	if history == nil {
		history = []models.BotStatusData{}
	}

	comment := ""
	if latest != nil && s.deps.Commentator != nil {
		comment = s.deps.Commentator.RequestComment(ctx, latest)
	}

	if ctx.Err() != nil {
		return
	}
	s.status.Store(&StatusResult{
		Latest:    latest,
		Comment:   comment,
		History:   history,
		UpdatedAt: s.clock.Now(),
	})
	s.metrics.ObservePoll(JobStatus, s.clock.Since(start), latest != nil)
}

// RefreshPrice fetches the ticker price
func (s *Service) RefreshPrice(ctx context.Context) {
	if s.deps.Price == nil || ctx.Err() != nil {
		return
	}
	s.priceMu.Lock()
	defer s.priceMu.Unlock()
	start := s.clock.Now()

	price, err := s.deps.Price.FetchBitcoinPrice(ctx)
	result := &PriceResult{Price: price, UpdatedAt: s.clock.Now()}
	if err != nil {
		result.Price = nil
		result.Error = "Failed to fetch Bitcoin price"
		s.logger.Warn("Price refresh failed", zap.Error(err))
	}

	if ctx.Err() != nil {
		return
	}
	s.price.Store(result)
	s.metrics.ObservePoll(JobPrice, s.clock.Since(start), err == nil)
}

// Account returns the last account result, or nil before the first refresh
func (s *Service) Account() *AccountResult { return s.account.Load() }

// Status returns the last status result, or nil before the first refresh
func (s *Service) Status() *StatusResult { return s.status.Load() }

// Price returns the last price result, or nil before the first refresh
func (s *Service) Price() *PriceResult { return s.price.Load() }
