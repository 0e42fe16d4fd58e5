package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/andresuchdata/stockalert/internal/domain"

	_ "modernc.org/sqlite"
)

// SQLite is a durable ledger for single-instance deployments that must keep
// their dedup state across restarts.
type SQLite struct {
	db  *sql.DB
	now Clock
}

// NewSQLite opens or creates the ledger database at path. A nil clock means time.Now.
func NewSQLite(path string, now Clock) (*SQLite, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create ledger directory: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open ledger database: %w", err)
	}
	// one writer keeps the conditional upsert free of SQLITE_BUSY
	db.SetMaxOpenConns(1)

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	if now == nil {
		now = time.Now
	}
	return &SQLite{db: db, now: now}, nil
}

func (s *SQLite) TryFire(ctx context.Context, itemID string, kind domain.AlertKind, window time.Duration) (bool, error) {
	now := s.now().UTC()
	expiresAt := now.Add(windowOrDefault(window))

	result, err := s.db.ExecContext(ctx,
		`INSERT INTO alert_notifications (item_id, alert_kind, fired_at, expires_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(item_id, alert_kind) DO UPDATE SET
		   fired_at = excluded.fired_at,
		   expires_at = excluded.expires_at
		 WHERE alert_notifications.expires_at <= excluded.fired_at`,
		itemID, string(kind), now.UnixNano(), expiresAt.UnixNano(),
	)
	if err != nil {
		return false, fmt.Errorf("%w: record notification: %w", domain.ErrStoreUnavailable, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("check rows affected: %w", err)
	}
	return rows == 1, nil
}

func (s *SQLite) Release(ctx context.Context, itemID string, kind domain.AlertKind) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM alert_notifications WHERE item_id = ? AND alert_kind = ?`,
		itemID, string(kind),
	)
	if err != nil {
		return fmt.Errorf("%w: release notification: %w", domain.ErrStoreUnavailable, err)
	}
	return nil
}

// FiredAt returns when (itemID, kind) last fired, if its record is still live.
func (s *SQLite) FiredAt(ctx context.Context, itemID string, kind domain.AlertKind) (time.Time, bool, error) {
	var firedAt, expiresAt int64
	err := s.db.QueryRowContext(ctx,
		`SELECT fired_at, expires_at FROM alert_notifications WHERE item_id = ? AND alert_kind = ?`,
		itemID, string(kind),
	).Scan(&firedAt, &expiresAt)
	if err == sql.ErrNoRows {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("get notification: %w", err)
	}

	if s.now().UTC().UnixNano() >= expiresAt {
		return time.Time{}, false, nil
	}
	return time.Unix(0, firedAt).UTC(), true, nil
}

// Prune deletes expired records and returns how many were removed.
func (s *SQLite) Prune(ctx context.Context) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM alert_notifications WHERE expires_at <= ?`, s.now().UTC().UnixNano())
	if err != nil {
		return 0, fmt.Errorf("prune notifications: %w", err)
	}
	return result.RowsAffected()
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

var _ Ledger = (*SQLite)(nil)
