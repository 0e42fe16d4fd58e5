package service

import (
	"context"
	"errors"
	"time"

	"github.com/andresuchdata/stockalert/internal/alerting"
	"github.com/andresuchdata/stockalert/internal/cache"
	"github.com/andresuchdata/stockalert/internal/domain"
	"github.com/andresuchdata/stockalert/internal/ledger"
	"github.com/rs/zerolog/log"
)

// ErrInspectionUnsupported is returned when the ledger cannot report fire times.
var ErrInspectionUnsupported = errors.New("ledger does not support inspection")

// SweepTrigger runs or reports on sweeps, usually the scheduler.
type SweepTrigger interface {
	RunNow(ctx context.Context) (alerting.SweepReport, error)
	LastReport() (alerting.SweepReport, bool)
}

// NotificationStatus is the ledger state of one alert kind for a unit
type NotificationStatus struct {
	Kind    domain.AlertKind `json:"kind"`
	Active  bool             `json:"active"`
	FiredAt *time.Time       `json:"fired_at,omitempty"`
}

type AlertService struct {
	engine    *alerting.Engine
	sweeps    SweepTrigger
	reports   cache.SweepReportCache
	inspector ledger.Inspector
}

// NewAlertService wires the admin operations. inspector may be nil.
func NewAlertService(engine *alerting.Engine, sweeps SweepTrigger, reports cache.SweepReportCache, inspector ledger.Inspector) *AlertService {
	if reports == nil {
		reports = cache.NewNoopSweepReportCache()
	}
	return &AlertService{engine: engine, sweeps: sweeps, reports: reports, inspector: inspector}
}

// Sweep runs a full sweep now.
func (s *AlertService) Sweep(ctx context.Context) (alerting.SweepReport, error) {
	return s.sweeps.RunNow(ctx)
}

// LastSweep returns the latest sweep report, preferring the shared cache.
func (s *AlertService) LastSweep(ctx context.Context) (alerting.SweepReport, bool) {
	if report, ok, err := s.reports.GetLast(ctx); err == nil && ok {
		return report, true
	} else if err != nil {
		log.Warn().Err(err).Msg("alerts: cache get sweep report failed")
	}

	return s.sweeps.LastReport()
}

func (s *AlertService) EvaluateUnit(ctx context.Context, id string) (alerting.Outcome, error) {
	return s.engine.EvaluateByID(ctx, id)
}

// StockChanged forwards a write-path change to the hook.
func (s *AlertService) StockChanged(ctx context.Context, change domain.StockChange) alerting.Outcome {
	return s.engine.OnStockChange(ctx, change)
}

// NotificationStatus reports which alert kinds are currently suppressed for a unit.
func (s *AlertService) NotificationStatus(ctx context.Context, id string) ([]NotificationStatus, error) {
	if _, _, err := domain.ParseUnitID(id); err != nil {
		return nil, err
	}
	if s.inspector == nil {
		return nil, ErrInspectionUnsupported
	}

	kinds := []domain.AlertKind{domain.AlertExpired, domain.AlertNearExpiry, domain.AlertOutOfStock, domain.AlertLowStock}
	statuses := make([]NotificationStatus, 0, len(kinds))
	for _, kind := range kinds {
		firedAt, ok, err := s.inspector.FiredAt(ctx, id, kind)
		if err != nil {
			return nil, err
		}

		status := NotificationStatus{Kind: kind, Active: ok}
		if ok {
			status.FiredAt = &firedAt
		}
		statuses = append(statuses, status)
	}

	return statuses, nil
}

type cachingRunner struct {
	sweeper *alerting.Sweeper
	reports cache.SweepReportCache
}

// CachingRunner wraps a sweeper so every finished report is published to the cache.
func CachingRunner(sweeper *alerting.Sweeper, reports cache.SweepReportCache) *cachingRunner {
	if reports == nil {
		reports = cache.NewNoopSweepReportCache()
	}
	return &cachingRunner{sweeper: sweeper, reports: reports}
}

func (r *cachingRunner) Run(ctx context.Context) alerting.SweepReport {
	report := r.sweeper.Run(ctx)

	if err := r.reports.SetLast(context.WithoutCancel(ctx), report); err != nil {
		log.Warn().Err(err).Str("run_id", report.RunID).Msg("alerts: cache set sweep report failed")
	}

	return report
}
