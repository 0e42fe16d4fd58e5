package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/andresuchdata/stockalert/internal/alerting"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// ErrSweepRunning is returned by RunNow while another sweep is in progress.
var ErrSweepRunning = errors.New("sweep already running")

// SweepRunner runs one full sweep.
type SweepRunner interface {
	Run(ctx context.Context) alerting.SweepReport
}

// Scheduler runs the stock sweep on a cron schedule. At most one sweep runs
// at a time, whether scheduled or triggered by hand.
type Scheduler struct {
	cron   *cron.Cron
	runner SweepRunner
	log    zerolog.Logger

	running sync.Mutex

	lifecycle sync.Mutex
	ctx       context.Context
	cancel    context.CancelFunc

	mu   sync.RWMutex
	last *alerting.SweepReport
}

// NewScheduler creates a scheduler firing on schedule, a standard five field
// cron expression or a descriptor such as "@every 12h".
func NewScheduler(runner SweepRunner, schedule string, loc *time.Location, log zerolog.Logger) (*Scheduler, error) {
	if loc == nil {
		loc = time.UTC
	}

	cl := cronLogger{log: log}
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)

	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		cron:   c,
		runner: runner,
		log:    log,
		ctx:    ctx,
		cancel: cancel,
	}

	if _, err := c.AddFunc(schedule, s.scheduledRun); err != nil {
		cancel()
		return nil, fmt.Errorf("invalid sweep schedule %q: %w", schedule, err)
	}

	return s, nil
}

// Start starts the scheduler. A stopped scheduler can be started again.
func (s *Scheduler) Start() {
	s.lifecycle.Lock()
	if s.ctx.Err() != nil {
		s.ctx, s.cancel = context.WithCancel(context.Background())
	}
	s.lifecycle.Unlock()

	s.log.Info().Time("next_run", s.Next()).Msg("starting sweep scheduler")
	s.cron.Start()
}

// Stop stops scheduling, cancels a running sweep so it picks no new units,
// and waits for it to finish or for ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.log.Info().Msg("stopping sweep scheduler")
	s.lifecycle.Lock()
	s.cancel()
	s.lifecycle.Unlock()

	select {
	case <-s.cron.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunNow runs a sweep immediately on the caller's context.
func (s *Scheduler) RunNow(ctx context.Context) (alerting.SweepReport, error) {
	if !s.running.TryLock() {
		return alerting.SweepReport{}, ErrSweepRunning
	}
	defer s.running.Unlock()

	return s.run(ctx), nil
}

// LastReport returns the report of the most recent finished sweep.
func (s *Scheduler) LastReport() (alerting.SweepReport, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.last == nil {
		return alerting.SweepReport{}, false
	}
	return *s.last, true
}

// Next returns the next scheduled run time.
func (s *Scheduler) Next() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	if !entries[0].Next.IsZero() {
		return entries[0].Next
	}
	return entries[0].Schedule.Next(time.Now())
}

func (s *Scheduler) scheduledRun() {
	if !s.running.TryLock() {
		s.log.Warn().Msg("previous sweep still running, skipping scheduled run")
		return
	}
	defer s.running.Unlock()

	s.lifecycle.Lock()
	ctx := s.ctx
	s.lifecycle.Unlock()

	s.run(ctx)
}

func (s *Scheduler) run(ctx context.Context) alerting.SweepReport {
	report := s.runner.Run(ctx)

	s.mu.Lock()
	s.last = &report
	s.mu.Unlock()

	return report
}

// cronLogger routes cron's internal logging into zerolog.
type cronLogger struct {
	log zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug().Fields(keysAndValues).Msg("cron: " + msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error().Err(err).Fields(keysAndValues).Msg("cron: " + msg)
}
