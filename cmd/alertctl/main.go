package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/andresuchdata/stockalert/internal/alerting"
	"github.com/andresuchdata/stockalert/internal/config"
	"github.com/andresuchdata/stockalert/internal/domain"
	"github.com/andresuchdata/stockalert/internal/ledger"
	"github.com/andresuchdata/stockalert/internal/notify"
	"github.com/andresuchdata/stockalert/internal/repository"
	"github.com/andresuchdata/stockalert/internal/repository/postgres"
	"github.com/andresuchdata/stockalert/pkg/logger"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
)

type dbKey struct{}

func newDBURLFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:     "db-url",
		Usage:    "Database connection string",
		Required: true,
		EnvVars:  []string{"DATABASE_URL"},
	}
}

func newUnitIDFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:     "id",
		Usage:    "Stock unit id, e.g. medicine:42",
		Required: true,
	}
}

func initDB(c *cli.Context) error {
	db, err := sql.Open("pgx", c.String("db-url"))
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.PingContext(c.Context); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	c.Context = context.WithValue(c.Context, dbKey{}, db)
	return nil
}

func closeDB(c *cli.Context) error {
	if db, ok := c.Context.Value(dbKey{}).(*sql.DB); ok && db != nil {
		return db.Close()
	}
	return nil
}

func dbFrom(c *cli.Context) (*sql.DB, error) {
	db, ok := c.Context.Value(dbKey{}).(*sql.DB)
	if !ok || db == nil {
		return nil, errors.New("database connection not initialized")
	}
	return db, nil
}

func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("warning: could not load .env file: %v", err)
	}

	cfg := config.Load()
	logger.Setup(cfg.Log.Level, cfg.Log.Format)

	app := &cli.App{
		Name:  "alertctl",
		Usage: "Operate the stock alert engine outside the server",
		Commands: []*cli.Command{
			{
				Name:   "schema",
				Usage:  "Create missing inventory and staff tables",
				Flags:  []cli.Flag{newDBURLFlag()},
				Before: initDB,
				After:  closeDB,
				Action: runSchema,
			},
			{
				Name:   "sweep",
				Usage:  "Evaluate every stock unit once",
				Flags:  []cli.Flag{newDBURLFlag()},
				Before: initDB,
				After:  closeDB,
				Action: func(c *cli.Context) error { return runSweep(c, cfg) },
			},
			{
				Name:   "evaluate",
				Usage:  "Evaluate a single stock unit",
				Flags:  []cli.Flag{newDBURLFlag(), newUnitIDFlag()},
				Before: initDB,
				After:  closeDB,
				Action: func(c *cli.Context) error { return runEvaluate(c, cfg) },
			},
			{
				Name:  "ledger",
				Usage: "Inspect and maintain the notification ledger",
				Subcommands: []*cli.Command{
					{
						Name:   "check",
						Usage:  "Show which alert kinds are suppressed for a unit",
						Flags:  []cli.Flag{newUnitIDFlag()},
						Action: func(c *cli.Context) error { return runLedgerCheck(c, cfg) },
					},
					{
						Name:   "purge",
						Usage:  "Delete every notification record (redis backend)",
						Action: func(c *cli.Context) error { return runLedgerPurge(c, cfg) },
					},
					{
						Name:   "prune",
						Usage:  "Delete expired notification records (sqlite backend)",
						Action: func(c *cli.Context) error { return runLedgerPrune(c, cfg) },
					},
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		logger.Log.Fatal().Err(err).Msg("alertctl failed")
	}
}

func runSchema(c *cli.Context) error {
	db, err := dbFrom(c)
	if err != nil {
		return err
	}

	if err := postgres.ApplySchema(c.Context, db); err != nil {
		return err
	}

	logger.Log.Info().Msg("Schema applied")
	return nil
}

// buildEngine wires the engine the same way the server does, on top of the
// command's database connection.
func buildEngine(c *cli.Context, cfg *config.Config) (*alerting.Engine, repository.InventoryRepository, func() error, error) {
	raw, err := dbFrom(c)
	if err != nil {
		return nil, nil, nil, err
	}
	db := postgres.Wrap(sqlx.NewDb(raw, "pgx"), cfg.Database.MaxConc)

	notified, err := ledger.Open(cfg.Ledger, cfg.Cache)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to open notification ledger: %w", err)
	}
	if _, ok := notified.(*ledger.Memory); ok {
		logger.Log.Warn().Msg("Memory ledger does not persist between runs, every alert will fire")
	}

	inventory := postgres.NewInventoryRepository(db)
	resolver := notify.NewResolver(
		postgres.NewStaffDirectory(db),
		repository.StaffPredicate{Groups: cfg.Staff.Groups, Titles: cfg.Staff.Titles},
		logger.Component("recipients"),
	)
	dispatcher := notify.NewDispatcher(
		logger.Component("dispatcher"),
		notify.ChannelsFromConfig(cfg.Delivery, logger.Component("delivery"))...,
	)
	engine := alerting.NewEngine(
		inventory,
		notified,
		resolver,
		dispatcher,
		alerting.OptionsFromConfig(cfg.Alerts, cfg.Ledger),
		logger.Component("alerting"),
	)

	return engine, inventory, notified.Close, nil
}

func runSweep(c *cli.Context, cfg *config.Config) error {
	engine, inventory, closeLedger, err := buildEngine(c, cfg)
	if err != nil {
		return err
	}
	defer closeLedger()

	sweeper := alerting.NewSweeper(engine, inventory, cfg.Alerts.SweepConcurrency, logger.Component("sweep"))
	report := sweeper.Run(c.Context)
	if err := printJSON(report); err != nil {
		return err
	}

	return report.Err
}

func runEvaluate(c *cli.Context, cfg *config.Config) error {
	engine, _, closeLedger, err := buildEngine(c, cfg)
	if err != nil {
		return err
	}
	defer closeLedger()

	out, err := engine.EvaluateByID(c.Context, c.String("id"))
	if err != nil {
		return err
	}
	if err := printJSON(out); err != nil {
		return err
	}

	return out.Err
}

func runLedgerCheck(c *cli.Context, cfg *config.Config) error {
	id := c.String("id")
	if _, _, err := domain.ParseUnitID(id); err != nil {
		return err
	}

	notified, err := ledger.Open(cfg.Ledger, cfg.Cache)
	if err != nil {
		return err
	}
	defer notified.Close()

	inspector, ok := notified.(ledger.Inspector)
	if !ok {
		return fmt.Errorf("ledger backend %q cannot be inspected", cfg.Ledger.Backend)
	}

	type status struct {
		Kind    domain.AlertKind `json:"kind"`
		Active  bool             `json:"active"`
		FiredAt *time.Time       `json:"fired_at,omitempty"`
	}

	kinds := []domain.AlertKind{domain.AlertExpired, domain.AlertNearExpiry, domain.AlertOutOfStock, domain.AlertLowStock}
	statuses := make([]status, 0, len(kinds))
	for _, kind := range kinds {
		firedAt, active, err := inspector.FiredAt(c.Context, id, kind)
		if err != nil {
			return err
		}
		s := status{Kind: kind, Active: active}
		if active {
			s.FiredAt = &firedAt
		}
		statuses = append(statuses, s)
	}

	return printJSON(statuses)
}

func runLedgerPurge(c *cli.Context, cfg *config.Config) error {
	if !strings.EqualFold(cfg.Ledger.Backend, ledger.BackendRedis) {
		return fmt.Errorf("purge needs the redis ledger, configured backend is %q", cfg.Ledger.Backend)
	}

	notified, err := ledger.NewRedis(cfg.Cache)
	if err != nil {
		return err
	}
	defer notified.Close()

	if err := notified.Purge(c.Context); err != nil {
		return err
	}

	logger.Log.Info().Msg("Notification ledger purged")
	return nil
}

func runLedgerPrune(c *cli.Context, cfg *config.Config) error {
	if !strings.EqualFold(cfg.Ledger.Backend, ledger.BackendSQLite) {
		return fmt.Errorf("prune needs the sqlite ledger, configured backend is %q", cfg.Ledger.Backend)
	}

	notified, err := ledger.NewSQLite(cfg.Ledger.SQLitePath, nil)
	if err != nil {
		return err
	}
	defer notified.Close()

	removed, err := notified.Prune(c.Context)
	if err != nil {
		return err
	}

	logger.Log.Info().Int64("removed", removed).Msg("Expired notification records pruned")
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
