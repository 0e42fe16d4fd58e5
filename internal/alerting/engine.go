package alerting

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/andresuchdata/stockalert/internal/config"
	"github.com/andresuchdata/stockalert/internal/domain"
	"github.com/andresuchdata/stockalert/internal/notify"
	"github.com/andresuchdata/stockalert/internal/repository"
	"github.com/rs/zerolog"
)

const (
	defaultUnitTimeout = 30 * time.Second
	defaultWindow      = 45 * 24 * time.Hour
)

// Ledger is the deduplication store. TryFire must be an atomic check-and-set.
type Ledger interface {
	TryFire(ctx context.Context, itemID string, kind domain.AlertKind, window time.Duration) (bool, error)
	Release(ctx context.Context, itemID string, kind domain.AlertKind) error
}

// RecipientResolver returns who should hear about an alert.
type RecipientResolver interface {
	Resolve(ctx context.Context) []domain.StaffID
}

// Dispatcher delivers one notification.
type Dispatcher interface {
	Dispatch(ctx context.Context, n notify.Notification) error
}

// Options tunes an Engine. Zero values fall back to production defaults.
type Options struct {
	Thresholds Thresholds
	Archival   ArchivalPolicy
	Window     time.Duration

	// ReleaseOnDispatchError drops the ledger mark when delivery fails so the
	// next evaluation retries. Off by default: a failed dispatch stays marked.
	ReleaseOnDispatchError bool

	UnitTimeout time.Duration
	Location    *time.Location
	Clock       func() time.Time
}

// OptionsFromConfig maps alert and ledger settings onto engine options.
func OptionsFromConfig(alerts config.AlertsConfig, ledgerCfg config.LedgerConfig) Options {
	return Options{
		Thresholds: Thresholds{
			NearExpiryDays: alerts.NearExpiryDays,
			LowStockBoxes:  alerts.LowStockBoxes,
			LowStockDoses:  alerts.LowStockDoses,
			LowStockOther:  alerts.LowStockOther,
		},
		Archival:               ArchivalPolicy{AfterDays: alerts.ArchiveAfterDays},
		Window:                 ledgerCfg.Window,
		ReleaseOnDispatchError: alerts.ReleaseOnDispatchError,
		UnitTimeout:            alerts.UnitTimeout,
		Location:               alerts.Location(),
	}
}

// Engine runs one evaluation pass over a stock unit: archival, classification,
// ledger check and dispatch. The write hook and the sweep share it.
type Engine struct {
	inventory  repository.InventoryRepository
	ledger     Ledger
	resolver   RecipientResolver
	dispatcher Dispatcher
	opts       Options
	log        zerolog.Logger
}

func NewEngine(
	inventory repository.InventoryRepository,
	l Ledger,
	resolver RecipientResolver,
	dispatcher Dispatcher,
	opts Options,
	log zerolog.Logger,
) *Engine {
	if opts.Archival == (ArchivalPolicy{}) {
		opts.Archival = DefaultArchivalPolicy()
	}
	if opts.Window <= 0 {
		opts.Window = defaultWindow
	}
	if opts.UnitTimeout <= 0 {
		opts.UnitTimeout = defaultUnitTimeout
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	opts.Thresholds = opts.Thresholds.withDefaults()

	return &Engine{
		inventory:  inventory,
		ledger:     l,
		resolver:   resolver,
		dispatcher: dispatcher,
		opts:       opts,
		log:        log,
	}
}

// Outcome summarizes one evaluation pass over a unit
type Outcome struct {
	UnitID         string                `json:"unit_id"`
	Classification domain.Classification `json:"classification"`
	Fired          []domain.AlertKind    `json:"fired,omitempty"`
	Suppressed     []domain.AlertKind    `json:"suppressed,omitempty"`
	Failed         []domain.AlertKind    `json:"failed,omitempty"`
	Archived       bool                  `json:"archived"`
	Skipped        bool                  `json:"skipped"`
	SkipReason     string                `json:"skip_reason,omitempty"`
	Err            error                 `json:"-"`
}

// Today returns the current calendar date in the engine's timezone.
func (e *Engine) Today() time.Time {
	return domain.DateOf(e.opts.Clock().In(e.opts.Location))
}

// UnitTimeout bounds a single unit's evaluation.
func (e *Engine) UnitTimeout() time.Duration {
	return e.opts.UnitTimeout
}

// EvaluateUnit runs archival, classification and dispatch for unit. Errors
// never escape: they are joined into Outcome.Err and logged.
func (e *Engine) EvaluateUnit(ctx context.Context, unit domain.StockUnit) Outcome {
	today := e.Today()
	out := Outcome{UnitID: unit.ID}
	var errs []error

	var recipients []domain.StaffID
	resolved := false
	resolve := func() []domain.StaffID {
		if !resolved && e.resolver != nil {
			recipients = e.resolver.Resolve(ctx)
		}
		resolved = true
		return recipients
	}

	if e.opts.Archival.Due(unit, today) {
		if err := e.inventory.SetArchived(ctx, unit.ID, true); err != nil {
			errs = append(errs, fmt.Errorf("%w: %s: %w", domain.ErrArchivalWriteFailed, unit.ID, err))
		} else {
			unit.Archived = true
			out.Archived = true

			n := notify.Compose(domain.AlertAutoArchived, unit, 0, resolve())
			if err := e.dispatcher.Dispatch(ctx, n); err != nil {
				errs = append(errs, err)
			}
		}
	}

	c := Evaluate(unit, today, e.opts.Thresholds)
	out.Classification = c

	for _, kind := range c.AlertKinds() {
		fired, err := e.ledger.TryFire(ctx, unit.ID, kind, e.opts.Window)
		if err != nil {
			errs = append(errs, fmt.Errorf("ledger %s: %w", kind, err))
			continue
		}
		if !fired {
			out.Suppressed = append(out.Suppressed, kind)
			continue
		}

		n := notify.Compose(kind, unit, c.DaysLeft, resolve())
		if err := e.dispatcher.Dispatch(ctx, n); err != nil {
			errs = append(errs, err)
			out.Failed = append(out.Failed, kind)

			if e.opts.ReleaseOnDispatchError {
				if rerr := e.ledger.Release(context.WithoutCancel(ctx), unit.ID, kind); rerr != nil {
					errs = append(errs, fmt.Errorf("release %s: %w", kind, rerr))
				}
			}
			continue
		}
		out.Fired = append(out.Fired, kind)
	}

	out.Err = errors.Join(errs...)
	e.logOutcome(out)

	return out
}

// EvaluateByID loads a unit from the inventory store and evaluates it now.
func (e *Engine) EvaluateByID(ctx context.Context, id string) (Outcome, error) {
	ctx, cancel := context.WithTimeout(ctx, e.opts.UnitTimeout)
	defer cancel()

	unit, err := e.inventory.GetStockUnit(ctx, id)
	if err != nil {
		return Outcome{UnitID: id}, err
	}

	return e.EvaluateUnit(ctx, unit), nil
}

func (e *Engine) logOutcome(out Outcome) {
	if out.Err != nil {
		e.log.Error().Err(out.Err).
			Str("unit_id", out.UnitID).
			Interface("fired", out.Fired).
			Msg("stock unit evaluation finished with errors")
		return
	}

	if len(out.Fired) > 0 || out.Archived {
		e.log.Info().
			Str("unit_id", out.UnitID).
			Interface("fired", out.Fired).
			Bool("archived", out.Archived).
			Msg("stock alerts dispatched")
		return
	}

	e.log.Debug().
		Str("unit_id", out.UnitID).
		Str("expiry", string(out.Classification.Expiry)).
		Str("stock", string(out.Classification.Stock)).
		Msg("stock unit evaluated")
}
