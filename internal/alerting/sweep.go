package alerting

import (
	"context"
	"sync"
	"time"

	"github.com/andresuchdata/stockalert/internal/repository"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const defaultSweepConcurrency = 8

// SweepReport summarizes one sweep run
type SweepReport struct {
	RunID      string    `json:"run_id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Units      int       `json:"units"`
	Evaluated  int       `json:"evaluated"`
	Fired      int       `json:"fired"`
	Suppressed int       `json:"suppressed"`
	Errored    int       `json:"errored"`
	Archived   int       `json:"archived"`
	Skipped    int       `json:"skipped"`
	Cancelled  bool      `json:"cancelled"`
	Err        error     `json:"-"`
}

func (r *SweepReport) add(out Outcome) {
	r.Evaluated++
	r.Fired += len(out.Fired)
	r.Suppressed += len(out.Suppressed)
	if out.Archived {
		r.Archived++
	}
	if out.Err != nil {
		r.Errored++
	}
}

// Sweeper evaluates every stock unit through the engine
type Sweeper struct {
	engine      *Engine
	inventory   repository.InventoryRepository
	concurrency int
	log         zerolog.Logger
}

func NewSweeper(engine *Engine, inventory repository.InventoryRepository, concurrency int, log zerolog.Logger) *Sweeper {
	if concurrency <= 0 {
		concurrency = defaultSweepConcurrency
	}
	return &Sweeper{
		engine:      engine,
		inventory:   inventory,
		concurrency: concurrency,
		log:         log,
	}
}

// Run sweeps all units with bounded fan-out. A unit's failure never stops the
// others. Once ctx is cancelled no new unit starts; units already running
// finish under their own timeout.
func (s *Sweeper) Run(ctx context.Context) SweepReport {
	report := SweepReport{
		RunID:     uuid.NewString(),
		StartedAt: s.engine.opts.Clock().UTC(),
	}
	log := s.log.With().Str("run_id", report.RunID).Logger()

	units, err := s.inventory.ListAllStockUnits(ctx)
	if err != nil {
		report.Err = err
		report.FinishedAt = s.engine.opts.Clock().UTC()
		log.Error().Err(err).Msg("sweep could not list stock units")
		return report
	}
	report.Units = len(units)

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	g.SetLimit(s.concurrency)

	detached := context.WithoutCancel(ctx)
	for _, unit := range units {
		if ctx.Err() != nil {
			report.Cancelled = true
			break
		}

		unit := unit
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}

			unitCtx, cancel := context.WithTimeout(detached, s.engine.UnitTimeout())
			defer cancel()

			out := s.engine.EvaluateUnit(unitCtx, unit)

			mu.Lock()
			report.add(out)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	if ctx.Err() != nil {
		report.Cancelled = true
	}
	report.Skipped = report.Units - report.Evaluated
	report.FinishedAt = s.engine.opts.Clock().UTC()

	log.Info().
		Int("units", report.Units).
		Int("evaluated", report.Evaluated).
		Int("fired", report.Fired).
		Int("suppressed", report.Suppressed).
		Int("errored", report.Errored).
		Int("archived", report.Archived).
		Int("skipped", report.Skipped).
		Bool("cancelled", report.Cancelled).
		Dur("duration", report.FinishedAt.Sub(report.StartedAt)).
		Msg("stock sweep finished")

	return report
}
