// Package app assembles the application: configuration, storage,
// services, handlers and the background maintenance jobs.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"

	"github.com/rjdeboer/captare/internal/common"
	"github.com/rjdeboer/captare/internal/handlers"
	"github.com/rjdeboer/captare/internal/interfaces"
	"github.com/rjdeboer/captare/internal/services/analyzers"
	"github.com/rjdeboer/captare/internal/services/cache"
	"github.com/rjdeboer/captare/internal/services/emailcheck"
	"github.com/rjdeboer/captare/internal/services/events"
	"github.com/rjdeboer/captare/internal/services/fetcher"
	"github.com/rjdeboer/captare/internal/services/jobs"
	"github.com/rjdeboer/captare/internal/services/search"
	"github.com/rjdeboer/captare/internal/storage/badger"
)

// App holds all application components and dependencies
type App struct {
	Config *common.Config
	Logger arbor.ILogger

	StorageManager interfaces.StorageManager

	// Core services
	CacheService   *cache.Service
	EventService   *events.Service
	EmailValidator *emailcheck.Validator
	FetcherService *fetcher.Service
	SearchService  interfaces.SearchService
	SectorStores   map[string]*analyzers.SectorStore
	Registry       *analyzers.Registry
	JobManager     *jobs.Manager

	// HTTP handlers
	APIHandler    *handlers.APIHandler
	JobHandler    *handlers.JobHandler
	LeadHandler   *handlers.LeadHandler
	SectorHandler *handlers.SectorHandler
	WSHandler     *handlers.WebSocketHandler

	cron *cron.Cron
}

// New initializes the application with all dependencies
func New(cfg *common.Config, logger arbor.ILogger) (*App, error) {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	storageManager, err := badger.NewManager(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	app.StorageManager = storageManager

	app.CacheService = cache.NewService(logger)
	app.CacheService.Start()

	app.EventService = events.NewService(logger)
	app.WSHandler = handlers.NewWebSocketHandler(app.EventService, &cfg.WebSocket, logger)

	app.EmailValidator = emailcheck.NewValidator(emailcheck.Options{
		MXTimeout:   cfg.Email.MXTimeout,
		SMTPTimeout: cfg.Email.SMTPTimeout,
		HeloDomain:  cfg.Email.HeloDomain,
		MailFrom:    cfg.Email.MailFrom,
	}, logger)

	app.FetcherService = fetcher.NewService(cfg.Scraper, app.CacheService, app.EmailValidator, logger)
	app.SearchService = search.NewService(cfg.Search, app.CacheService, logger)

	// The ERP taxonomy is file-backed and hot-reloadable; recruitment
	// runs on its built-in taxonomy.
	app.SectorStores = map[string]*analyzers.SectorStore{
		"erp":         analyzers.NewSectorStore(cfg.Sectors.File, analyzers.DefaultERPSectors(), logger),
		"recruitment": analyzers.NewSectorStore("", analyzers.DefaultRecruitmentSectors(), logger),
	}

	app.Registry = analyzers.NewRegistry()
	app.Registry.Register(analyzers.NewERPAnalyzer(app.SectorStores["erp"], logger))
	app.Registry.Register(analyzers.NewRecruitmentAnalyzer(app.SectorStores["recruitment"], logger))

	app.JobManager = jobs.NewManager(
		app.Registry,
		app.SearchService,
		app.FetcherService,
		storageManager.LeadStorage(),
		storageManager.SessionStore(),
		app.EventService,
		logger,
	)

	app.APIHandler = handlers.NewAPIHandler(logger)
	app.JobHandler = handlers.NewJobHandler(app.JobManager, app.CacheService, logger)
	app.LeadHandler = handlers.NewLeadHandler(storageManager.LeadStorage(), storageManager.SessionStore(), logger)
	app.SectorHandler = handlers.NewSectorHandler(app.SectorStores, logger)

	if err := app.startMaintenance(); err != nil {
		return nil, fmt.Errorf("failed to start maintenance jobs: %w", err)
	}

	logger.Info().
		Str("storage", cfg.Storage.Badger.Path).
		Strs("use_cases", app.Registry.Keys()).
		Msg("Application initialized")

	return app, nil
}

// startMaintenance schedules the stale-session sweep. Sessions left in
// running state by a crash or kill are flipped to error so the API
// never reports a phantom running job.
func (a *App) startMaintenance() error {
	a.cron = cron.New()

	sweep := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		n, err := a.StorageManager.SessionStore().MarkStale(ctx, a.Config.Jobs.StaleSessionHours)
		if err != nil {
			a.Logger.Warn().Err(err).Msg("Stale session sweep failed")
			return
		}
		if n > 0 {
			a.Logger.Info().Int("sessions", n).Msg("Marked stale sessions")
		}
	}

	// Run once at startup to clean up after the previous process.
	sweep()

	if _, err := a.cron.AddFunc("@hourly", sweep); err != nil {
		return err
	}
	a.cron.Start()
	return nil
}

// Close shuts down all services in dependency order.
func (a *App) Close() error {
	a.Logger.Info().Msg("Shutting down application...")

	a.JobManager.StopAll()

	if a.cron != nil {
		a.cron.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.SearchService.Shutdown(ctx); err != nil {
		a.Logger.Warn().Err(err).Msg("Search service shutdown failed")
	}

	a.CacheService.Stop()
	a.EventService.Close()

	if err := a.StorageManager.Close(); err != nil {
		a.Logger.Warn().Err(err).Msg("Storage close failed")
		return err
	}

	a.Logger.Info().Msg("Application stopped")
	return nil
}
