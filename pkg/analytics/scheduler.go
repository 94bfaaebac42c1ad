package analytics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/coder/quartz"

	"github.com/dmitrymomot/flagsmith/pkg/logger"
)

// DefaultFlushPeriod is the delay between two flush cycles.
const DefaultFlushPeriod = 10 * time.Second

// Pusher sends a counters snapshot to the service. *remote.DataSource implements it.
type Pusher interface {
	PostAnalytics(ctx context.Context, counts map[string]int) error
}

// State is the flush state of a Scheduler.
type State int32

const (
	StateIdle State = iota
	StateFlushing
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateFlushing:
		return "flushing"
	default:
		return "unknown"
	}
}

// Scheduler periodically pushes the Store's counters and acknowledges them on
// success. At most one flush runs at a time.
type Scheduler struct {
	store   *Store
	pusher  Pusher
	period  time.Duration
	clock   quartz.Clock
	logger  *slog.Logger
	metrics *Metrics

	state atomic.Int32
}

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler)

// WithFlushPeriod sets the delay after each flush attempt. Non-positive values keep the default.
func WithFlushPeriod(d time.Duration) SchedulerOption {
	return func(s *Scheduler) {
		if d > 0 {
			s.period = d
		}
	}
}

func WithClock(c quartz.Clock) SchedulerOption {
	return func(s *Scheduler) {
		if c != nil {
			s.clock = c
		}
	}
}

func WithLogger(l *slog.Logger) SchedulerOption {
	return func(s *Scheduler) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetrics records flush outcomes into m.
func WithMetrics(m *Metrics) SchedulerOption {
	return func(s *Scheduler) { s.metrics = m }
}

// NewScheduler creates a Scheduler. Call Start to run the periodic loop or
// Flush for a single cycle.
func NewScheduler(store *Store, pusher Pusher, opts ...SchedulerOption) (*Scheduler, error) {
	if store == nil {
		return nil, errors.New("analytics scheduler requires a store")
	}
	if pusher == nil {
		return nil, errors.New("analytics scheduler requires a pusher")
	}

	s := &Scheduler{
		store:  store,
		pusher: pusher,
		period: DefaultFlushPeriod,
		clock:  quartz.NewReal(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// State reports whether a flush is currently running.
func (s *Scheduler) State() State {
	return State(s.state.Load())
}

// Period returns the delay between flush cycles.
func (s *Scheduler) Period() time.Duration { return s.period }

// Flush runs one cycle without the delay. An empty store skips the network.
// On push failure the counters are left untouched and the error is returned;
// they go out with the next cycle.
func (s *Scheduler) Flush(ctx context.Context) error {
	if !s.state.CompareAndSwap(int32(StateIdle), int32(StateFlushing)) {
		return ErrFlushInProgress
	}
	defer s.state.Store(int32(StateIdle))

	start := s.clock.Now()
	snapshot := s.store.Snapshot()
	if len(snapshot) == 0 {
		s.metrics.observe(outcomeSkipped, 0, 0, 0)
		return nil
	}

	if err := s.pusher.PostAnalytics(ctx, snapshot); err != nil {
		s.metrics.observe(outcomeFailed, s.clock.Since(start), 0, len(snapshot))
		return fmt.Errorf("push analytics: %w", err)
	}

	if err := s.store.Ack(ctx, snapshot); err != nil {
		// The service has the counts; only the durable mirror is behind.
		s.logger.WarnContext(ctx, "analytics acknowledge persist failed", logger.Error(err))
	}

	elapsed := s.clock.Since(start)
	s.metrics.observe(outcomeSuccess, elapsed, snapshot.Total(), s.store.Len())
	s.logger.DebugContext(ctx, "analytics flushed",
		logger.Count(len(snapshot)),
		slog.Int("events", snapshot.Total()),
		logger.Duration(elapsed),
	)
	return nil
}

// Start runs flush cycles until ctx is cancelled: flush immediately, then wait
// the flush period, then repeat. The delay follows every attempt regardless of
// its outcome. Flush errors are logged and never stop the loop.
// Always returns ctx.Err().
func (s *Scheduler) Start(ctx context.Context) error {
	s.logger.DebugContext(ctx, "analytics scheduler started", logger.Duration(s.period))

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := s.Flush(ctx); err != nil && !errors.Is(err, ErrFlushInProgress) && ctx.Err() == nil {
			s.logger.WarnContext(ctx, "analytics flush failed", logger.Count(s.store.Len()), logger.Error(err))
		}

		timer := s.clock.NewTimer(s.period, "analyticsScheduler", "wait")
		select {
		case <-ctx.Done():
			timer.Stop()
			s.logger.DebugContext(ctx, "analytics scheduler stopped")
			return ctx.Err()
		case <-timer.C:
		}
	}
}
