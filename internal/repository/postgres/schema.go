package postgres

import (
	"context"
	"database/sql"
	"fmt"
)

// Schema is the inventory and staff layout the repositories read. The
// inventory application owns these tables; the statements are idempotent so
// a fresh database can be prepared for local runs and tests.
const Schema = `
CREATE TABLE IF NOT EXISTS medicines (
	id             BIGSERIAL PRIMARY KEY,
	name           TEXT NOT NULL,
	quantity       INTEGER NOT NULL DEFAULT 0,
	unit           TEXT NOT NULL DEFAULT 'pieces',
	pieces_per_box INTEGER,
	expiry_date    DATE,
	archived       BOOLEAN NOT NULL DEFAULT FALSE
);

CREATE TABLE IF NOT EXISTS first_aid_supplies (
	id             BIGSERIAL PRIMARY KEY,
	name           TEXT NOT NULL,
	quantity       INTEGER NOT NULL DEFAULT 0,
	unit           TEXT NOT NULL DEFAULT 'pieces',
	pieces_per_box INTEGER,
	expiry_date    DATE,
	archived       BOOLEAN NOT NULL DEFAULT FALSE
);

CREATE TABLE IF NOT EXISTS commodities (
	id          BIGSERIAL PRIMARY KEY,
	name        TEXT NOT NULL,
	quantity    INTEGER NOT NULL DEFAULT 0,
	unit        TEXT NOT NULL DEFAULT 'pieces',
	expiry_date DATE,
	archived    BOOLEAN NOT NULL DEFAULT FALSE
);

CREATE TABLE IF NOT EXISTS vaccines (
	id          BIGSERIAL PRIMARY KEY,
	name        TEXT NOT NULL,
	doses       INTEGER NOT NULL DEFAULT 0,
	dose_ml     NUMERIC(6, 2),
	expiry_date DATE,
	archived    BOOLEAN NOT NULL DEFAULT FALSE
);

CREATE TABLE IF NOT EXISTS immunization_supplies (
	id             BIGSERIAL PRIMARY KEY,
	name           TEXT NOT NULL,
	quantity       INTEGER NOT NULL DEFAULT 0,
	unit           TEXT NOT NULL DEFAULT 'pieces',
	pieces_per_box INTEGER,
	expiry_date    DATE,
	archived       BOOLEAN NOT NULL DEFAULT FALSE
);

CREATE TABLE IF NOT EXISTS staff (
	id     TEXT PRIMARY KEY,
	name   TEXT NOT NULL,
	title  TEXT NOT NULL DEFAULT '',
	active BOOLEAN NOT NULL DEFAULT TRUE
);

CREATE TABLE IF NOT EXISTS staff_groups (
	staff_id   TEXT NOT NULL REFERENCES staff(id) ON DELETE CASCADE,
	group_name TEXT NOT NULL,
	PRIMARY KEY (staff_id, group_name)
);
`

// ApplySchema creates any missing inventory and staff tables.
func ApplySchema(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}

	return tx.Commit()
}
