package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/FACorreiaa/statement-ledger/internal/domain/categorization"
	"github.com/FACorreiaa/statement-ledger/internal/domain/import/extractor"
	importhandler "github.com/FACorreiaa/statement-ledger/internal/domain/import/handler"
	importrepo "github.com/FACorreiaa/statement-ledger/internal/domain/import/repository"
	importservice "github.com/FACorreiaa/statement-ledger/internal/domain/import/service"
	"github.com/FACorreiaa/statement-ledger/pkg/config"
	"github.com/FACorreiaa/statement-ledger/pkg/cron"
	"github.com/FACorreiaa/statement-ledger/pkg/db"
	"github.com/FACorreiaa/statement-ledger/pkg/metrics"
	"github.com/FACorreiaa/statement-ledger/pkg/middleware"
	"github.com/FACorreiaa/statement-ledger/pkg/storage"
)

// Dependencies holds all application dependencies
type Dependencies struct {
	Config *config.Config
	DB     *db.DB
	Logger *slog.Logger

	// Repositories
	ImportRepo         importrepo.ImportRepository
	CategorizationRepo *categorization.Repository

	// Services
	CategorizationService *categorization.Service
	ImportService         *importservice.ImportService
	FileStorage           storage.Storage
	Metrics               *metrics.Metrics
	Scheduler             *cron.Scheduler
	RateLimiter           *middleware.RateLimiter

	// Handlers
	ImportHandler *importhandler.ImportHandler
}

// InitDependencies initializes all application dependencies
func InitDependencies(cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	if err := deps.initDatabase(); err != nil {
		return nil, fmt.Errorf("failed to init database: %w", err)
	}

	deps.initRepositories()

	if err := deps.initServices(); err != nil {
		return nil, fmt.Errorf("failed to init services: %w", err)
	}

	deps.initHandlers()

	logger.Info("all dependencies initialized successfully")

	return deps, nil
}

// initDatabase initializes the database connection and runs migrations
func (d *Dependencies) initDatabase() error {
	database, err := db.New(db.Config{
		DSN:             d.Config.Database.DSN(),
		MaxConns:        int32(d.Config.Database.MaxConns),
		MinConns:        int32(d.Config.Database.MinConns),
		MaxConnLifetime: 5 * time.Minute,
		MaxConnIdleTime: 10 * time.Minute,
	}, d.Logger)
	if err != nil {
		return err
	}

	d.DB = database

	if err := d.DB.RunMigrations(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	d.Logger.Info("database connected and migrations completed successfully")
	return nil
}

func (d *Dependencies) initRepositories() {
	d.ImportRepo = importrepo.NewPostgresImportRepository(d.DB.Pool)
	d.CategorizationRepo = categorization.NewRepository(d.DB.Pool)

	d.Logger.Info("repositories initialized")
}

// initServices initializes all service layer dependencies
func (d *Dependencies) initServices() error {
	fileStorage, err := storage.New(&storage.Config{
		Type:      storage.StorageTypeLocal,
		LocalPath: d.Config.Storage.LocalPath,
		MaxBytes:  d.Config.Import.MaxFileBytes,
	})
	if err != nil {
		return fmt.Errorf("failed to init file storage: %w", err)
	}
	d.FileStorage = fileStorage

	if d.Config.Observability.MetricsEnabled {
		d.Metrics = metrics.New()
	}

	d.CategorizationService = categorization.NewService(d.CategorizationRepo, d.Logger)

	ext := extractor.New(extractor.Config{
		MaxPages:      d.Config.Import.PDFMaxPages,
		PdftotextPath: d.Config.Import.PdftotextPath,
	}, d.Logger)

	d.ImportService = importservice.NewImportService(d.ImportRepo, d.FileStorage, ext, d.Logger).
		WithCategorizationService(newCategorizationAdapter(d.CategorizationService)).
		WithMetrics(d.Metrics).
		WithProcessingTimeout(d.Config.Import.ProcessingTimeout)

	d.Scheduler = cron.NewScheduler(d.ImportService, cron.Config{
		Schedule:   d.Config.Cron.Schedule,
		PendingAge: d.Config.Cron.PendingAge,
		BatchSize:  d.Config.Cron.BatchSize,
	}, d.Logger)

	d.RateLimiter = middleware.NewRateLimiter(d.Config.Server.RateLimitPerSecond, d.Config.Server.RateLimitBurst, d.Logger)

	d.Logger.Info("services initialized")
	return nil
}

func (d *Dependencies) initHandlers() {
	d.ImportHandler = importhandler.NewImportHandler(d.ImportService, d.Config.Import.MaxFileBytes, d.Logger)

	d.Logger.Info("handlers initialized")
}

// Router builds the API routes with the middleware chain applied.
func (d *Dependencies) Router() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}).Methods(http.MethodGet)

	api := r.NewRoute().Subrouter()
	api.Use(middleware.Auth([]byte(d.Config.Auth.JWTSecret), d.Logger))
	d.ImportHandler.Register(api)

	var h http.Handler = r
	h = d.RateLimiter.Middleware(h)
	h = middleware.CORS(d.Config.Server.AllowedOrigins)(h)
	h = middleware.Logging(d.Logger)(h)
	return h
}

// Cleanup closes all resources
func (d *Dependencies) Cleanup() {
	if d.DB != nil {
		d.DB.Close()
	}
	d.Logger.Info("cleanup completed")
}
