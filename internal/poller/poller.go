// Package poller runs a function on a recurring schedule until stopped.
package poller

import (
	"context"
	"fmt"
	"sync"

	"github.com/jonboulle/clockwork"
	"github.com/robfig/cron/v3"
	"github.com/trogers1052/satoshi-dashboard/internal/logging"
	"go.uber.org/zap"
)

// Func is one polling job. ctx is cancelled when the handle is stopped.
type Func func(ctx context.Context)

type options struct {
	clock     clockwork.Clock
	immediate bool
	name      string
	logger    *zap.Logger
}

// Option configures a poller
type Option func(*options)

// WithClock replaces the wall clock
func WithClock(c clockwork.Clock) Option {
	return func(o *options) {
		o.clock = c
	}
}

// WithImmediate controls whether fn runs once before the first wait.
// The default is true.
func WithImmediate(immediate bool) Option {
	return func(o *options) {
		o.immediate = immediate
	}
}

// WithName labels log lines
func WithName(name string) Option {
	return func(o *options) {
		o.name = name
	}
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// Handle controls a running poller
type Handle struct {
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// ParseSchedule parses a standard cron expression or descriptor such as
// "@every 5m".
func ParseSchedule(spec string) (cron.Schedule, error) {
	sched, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("invalid poll schedule %q: %w", spec, err)
	}
	return sched, nil
}

// Start runs fn on spec's schedule until ctx is cancelled or Stop is called.
// The wait for the next run is measured from the end of the previous one, so
// runs never overlap and missed ticks are not queued.
func Start(ctx context.Context, spec string, fn Func, opts ...Option) (*Handle, error) {
	sched, err := ParseSchedule(spec)
	if err != nil {
		return nil, err
	}

	o := options{
		clock:     clockwork.NewRealClock(),
		immediate: true,
		name:      spec,
	}
	for _, opt := range opts {
		opt(&o)
	}
	o.logger = logging.OrNop(o.logger).With(zap.String("poller", o.name))

	ctx, cancel := context.WithCancel(ctx)
	h := &Handle{
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go h.run(ctx, sched, fn, o)
	return h, nil
}

// Stop cancels the poller and waits for it to exit. No run starts after
// Stop returns. Stop is safe to call more than once.
func (h *Handle) Stop() {
	h.once.Do(h.cancel)
	<-h.done
}

// Done is closed once the poller has exited
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

func (h *Handle) run(ctx context.Context, sched cron.Schedule, fn Func, o options) {
	defer close(h.done)

	if o.immediate {
		invoke(ctx, fn, o.logger)
	}

	for {
		now := o.clock.Now()
		timer := o.clock.NewTimer(sched.Next(now).Sub(now))

		select {
		case <-ctx.Done():
			timer.Stop()
			o.logger.Debug("Poller stopped")
			return
		case <-timer.Chan():
		}

		invoke(ctx, fn, o.logger)
	}
}

func invoke(ctx context.Context, fn Func, logger *zap.Logger) {
	if ctx.Err() != nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Poll function panicked", zap.Any("panic", r))
		}
	}()
	fn(ctx)
}
