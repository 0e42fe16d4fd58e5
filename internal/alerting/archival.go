package alerting

import (
	"time"

	"github.com/andresuchdata/stockalert/internal/domain"
)

// ArchivalPolicy decides when a long-expired unit leaves active inventory.
type ArchivalPolicy struct {
	AfterDays int
}

// DefaultArchivalPolicy archives stock ten days past expiry
func DefaultArchivalPolicy() ArchivalPolicy {
	return ArchivalPolicy{AfterDays: 10}
}

// Due reports whether unit must be flipped to archived as of today.
func (p ArchivalPolicy) Due(unit domain.StockUnit, today time.Time) bool {
	if unit.Archived || !unit.HasExpiry() {
		return false
	}

	after := p.AfterDays
	if after < 0 {
		after = 0
	}

	return domain.DaysBetween(*unit.ExpiryDate, today) >= after
}
