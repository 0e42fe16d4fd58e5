package alerting

import (
	"time"

	"github.com/andresuchdata/stockalert/internal/domain"
)

// Thresholds holds the cut-offs used by Evaluate. Quantities are inclusive.
type Thresholds struct {
	NearExpiryDays int
	LowStockBoxes  int
	LowStockDoses  int
	LowStockOther  int
}

// DefaultThresholds returns the stock and expiry cut-offs used in production
func DefaultThresholds() Thresholds {
	return Thresholds{
		NearExpiryDays: 30,
		LowStockBoxes:  2,
		LowStockDoses:  10,
		LowStockOther:  20,
	}
}

// withDefaults fills zero fields from DefaultThresholds.
func (t Thresholds) withDefaults() Thresholds {
	d := DefaultThresholds()
	if t.NearExpiryDays <= 0 {
		t.NearExpiryDays = d.NearExpiryDays
	}
	if t.LowStockBoxes <= 0 {
		t.LowStockBoxes = d.LowStockBoxes
	}
	if t.LowStockDoses <= 0 {
		t.LowStockDoses = d.LowStockDoses
	}
	if t.LowStockOther <= 0 {
		t.LowStockOther = d.LowStockOther
	}
	return t
}

// LowStockLimit returns the inclusive low-stock quantity for a unit.
func (t Thresholds) LowStockLimit(unit domain.Unit) int {
	t = t.withDefaults()
	switch unit {
	case domain.UnitBoxes:
		return t.LowStockBoxes
	case domain.UnitDosesWithVialCount:
		return t.LowStockDoses
	default:
		return t.LowStockOther
	}
}

// Evaluate classifies a unit on the expiry and stock axes independently.
// It is pure: today is passed in and only its calendar date is used.
func Evaluate(unit domain.StockUnit, today time.Time, th Thresholds) domain.Classification {
	th = th.withDefaults()
	var c domain.Classification

	if unit.HasExpiry() {
		daysLeft := domain.DaysBetween(today, *unit.ExpiryDate)
		switch {
		case daysLeft <= 0:
			c.Expiry = domain.ExpiryExpired
		case daysLeft <= th.NearExpiryDays && unit.AvailableQuantity > 0:
			c.Expiry = domain.ExpiryNearExpiry
			c.DaysLeft = daysLeft
		}
	}

	// archived units only ever report on the expiry axis
	if unit.Archived {
		return c
	}

	switch {
	case unit.AvailableQuantity <= 0:
		c.Stock = domain.StockOutOfStock
	case unit.AvailableQuantity <= th.LowStockLimit(unit.Unit):
		c.Stock = domain.StockLow
	default:
		c.Stock = domain.StockNormal
	}

	return c
}
