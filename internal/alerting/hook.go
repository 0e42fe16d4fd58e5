package alerting

import (
	"context"
	"errors"
	"fmt"

	"github.com/andresuchdata/stockalert/internal/domain"
)

const (
	skipUnchanged = "quantity unchanged"
	skipDeleted   = "unit deleted"
)

// OnStockChange is the inventory write hook. It re-reads the unit and runs a
// normal evaluation pass. It never fails the write that triggered it: every
// problem ends up in Outcome.Err. Delete events are dropped without
// evaluation since a removed unit has nothing left to alert on.
func (e *Engine) OnStockChange(ctx context.Context, change domain.StockChange) (out Outcome) {
	out = Outcome{UnitID: change.UnitID}

	defer func() {
		if r := recover(); r != nil {
			out.Err = fmt.Errorf("stock change hook panicked: %v", r)
			e.log.Error().Err(out.Err).Str("unit_id", change.UnitID).Msg("stock change hook recovered")
		}
	}()

	if change.Deleted {
		return skipped(out, skipDeleted)
	}
	if !change.QuantityChanged() {
		return skipped(out, skipUnchanged)
	}

	evaluated, err := e.EvaluateByID(ctx, change.UnitID)
	if errors.Is(err, domain.ErrUnitNotFound) {
		return skipped(out, skipDeleted)
	}
	if err != nil {
		out.Err = err
		e.log.Error().Err(err).Str("unit_id", change.UnitID).Msg("stock change hook could not load unit")
		return out
	}

	return evaluated
}

func skipped(out Outcome, reason string) Outcome {
	out.Skipped = true
	out.SkipReason = reason
	return out
}
