// cmd/server/main.go
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/andresuchdata/stockalert/internal/alerting"
	"github.com/andresuchdata/stockalert/internal/api"
	"github.com/andresuchdata/stockalert/internal/cache"
	"github.com/andresuchdata/stockalert/internal/config"
	"github.com/andresuchdata/stockalert/internal/ledger"
	"github.com/andresuchdata/stockalert/internal/notify"
	"github.com/andresuchdata/stockalert/internal/repository"
	"github.com/andresuchdata/stockalert/internal/repository/postgres"
	"github.com/andresuchdata/stockalert/internal/scheduler"
	"github.com/andresuchdata/stockalert/internal/service"
	"github.com/andresuchdata/stockalert/pkg/logger"
	"github.com/gin-gonic/gin"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	logger.Setup(cfg.Log.Level, cfg.Log.Format)
	if cfg.Server.Mode == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize database
	db, err := postgres.NewDB(&cfg.Database)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	// Initialize notification ledger
	notified, err := ledger.Open(cfg.Ledger, cfg.Cache)
	if err != nil {
		logger.Log.Fatal().Err(err).Str("backend", cfg.Ledger.Backend).Msg("Failed to open notification ledger")
	}
	defer notified.Close()

	reports, err := cache.NewSweepReportCache(cfg.Cache)
	if err != nil {
		logger.Log.Warn().Err(err).Msg("Sweep report cache unavailable, keeping reports in memory")
		reports = cache.NewNoopSweepReportCache()
	}

	// Initialize alerting
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
	sweeper := alerting.NewSweeper(engine, inventory, cfg.Alerts.SweepConcurrency, logger.Component("sweep"))

	sweeps, err := scheduler.NewScheduler(
		service.CachingRunner(sweeper, reports),
		cfg.Alerts.SweepSchedule,
		cfg.Alerts.Location(),
		logger.Component("scheduler"),
	)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to create sweep scheduler")
	}

	inspector, _ := notified.(ledger.Inspector)
	alertService := service.NewAlertService(engine, sweeps, reports, inspector)

	// Initialize HTTP server
	router := api.NewRouter(&api.Services{AlertService: alertService}, cfg.Server.AllowedOrigins)
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	sweeps.Start()

	// Start server in a goroutine
	go func() {
		logger.Log.Info().
			Str("port", cfg.Server.Port).
			Str("ledger", cfg.Ledger.Backend).
			Strs("channels", dispatcher.Channels()).
			Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Alerts.UnitTimeout+5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Error().Err(err).Msg("Server forced to shutdown")
	}
	if err := sweeps.Stop(ctx); err != nil {
		logger.Log.Error().Err(err).Msg("Sweep did not finish before shutdown deadline")
	}

	logger.Log.Info().Msg("Server exiting")
}
