// Package ledger records which (item, alert kind) pairs have fired within
// the dedup window. Every backend implements TryFire as one atomic
// check-and-set so the write hook and the sweep can race safely.
package ledger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/andresuchdata/stockalert/internal/config"
	"github.com/andresuchdata/stockalert/internal/domain"
)

const keyPrefix = "notified"

// DefaultWindow is how long a fired alert suppresses the same alert.
const DefaultWindow = 45 * 24 * time.Hour

// Ledger is the deduplication store shared by every evaluation path.
type Ledger interface {
	// TryFire records (itemID, kind) and returns true when no unexpired record
	// exists. It returns false without side effects otherwise.
	TryFire(ctx context.Context, itemID string, kind domain.AlertKind, window time.Duration) (bool, error)

	// Release drops the record for (itemID, kind) so the next evaluation may fire again.
	Release(ctx context.Context, itemID string, kind domain.AlertKind) error

	Close() error
}

// Key returns the external key layout: notified:<kind>:<itemID>.
func Key(itemID string, kind domain.AlertKind) string {
	return keyPrefix + ":" + string(kind) + ":" + itemID
}

// Clock returns the current time. Tests swap it to simulate window expiry.
type Clock func() time.Time

func windowOrDefault(window time.Duration) time.Duration {
	if window <= 0 {
		return DefaultWindow
	}
	return window
}

// Inspector is implemented by ledgers that can report a live record's fire time.
type Inspector interface {
	FiredAt(ctx context.Context, itemID string, kind domain.AlertKind) (time.Time, bool, error)
}

const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendSQLite = "sqlite"
)

// Open builds the ledger backend selected in configuration.
func Open(cfg config.LedgerConfig, cache config.CacheConfig) (Ledger, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "", BackendMemory:
		return NewMemory(nil), nil
	case BackendRedis:
		return NewRedis(cache)
	case BackendSQLite:
		return NewSQLite(cfg.SQLitePath, nil)
	default:
		return nil, fmt.Errorf("unknown ledger backend %q", cfg.Backend)
	}
}
