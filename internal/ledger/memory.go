package ledger

import (
	"context"
	"sync"
	"time"

	"github.com/andresuchdata/stockalert/internal/domain"
)

// Memory is an in-process ledger for single-instance deployments.
// Expired records are dropped lazily when they are next looked up.
type Memory struct {
	mu      sync.Mutex
	now     Clock
	entries map[string]record
}

type record struct {
	firedAt   time.Time
	expiresAt time.Time
}

// NewMemory creates an in-process ledger. A nil clock means time.Now.
func NewMemory(now Clock) *Memory {
	if now == nil {
		now = time.Now
	}
	return &Memory{
		now:     now,
		entries: make(map[string]record),
	}
}

func (m *Memory) TryFire(ctx context.Context, itemID string, kind domain.AlertKind, window time.Duration) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	key := Key(itemID, kind)
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	if rec, ok := m.entries[key]; ok && now.Before(rec.expiresAt) {
		return false, nil
	}

	m.entries[key] = record{firedAt: now, expiresAt: now.Add(windowOrDefault(window))}
	return true, nil
}

// FiredAt returns when (itemID, kind) last fired, if its record is still live.
func (m *Memory) FiredAt(ctx context.Context, itemID string, kind domain.AlertKind) (time.Time, bool, error) {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.entries[Key(itemID, kind)]
	if !ok || !now.Before(rec.expiresAt) {
		return time.Time{}, false, nil
	}
	return rec.firedAt, true, nil
}

func (m *Memory) Release(ctx context.Context, itemID string, kind domain.AlertKind) error {
	m.mu.Lock()
	delete(m.entries, Key(itemID, kind))
	m.mu.Unlock()
	return nil
}

// Len returns the number of unexpired records.
func (m *Memory) Len() int {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for key, rec := range m.entries {
		if now.Before(rec.expiresAt) {
			n++
			continue
		}
		delete(m.entries, key)
	}
	return n
}

func (m *Memory) Close() error { return nil }

var _ Ledger = (*Memory)(nil)
