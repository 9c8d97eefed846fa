// Package main implements the entry point for the DraftWire API server,
// which exposes the newsletter generation queue over HTTP. The queue
// worker runs as a separate process (cmd/worker).
package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"log/slog"

	"github.com/joho/godotenv"

	"github.com/draftwire/newsletter-api/internal/config"
	"github.com/draftwire/newsletter-api/internal/platform/logger"
	"github.com/draftwire/newsletter-api/internal/platform/postgres"
	"github.com/draftwire/newsletter-api/internal/queue"
	"github.com/draftwire/newsletter-api/internal/store"
	"github.com/draftwire/newsletter-api/migrations"
)

// application bundles the server's wired dependencies.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB

	newsletterStore store.NewsletterStore
	initializer     *queue.Initializer
	progressService *queue.ProgressService
}

func main() {
	// Missing .env is fine; real deployments set environment variables
	// directly.
	_ = godotenv.Load()

	app, err := initializeApp(context.Background())
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}
	defer app.cleanup()

	if err := app.startHTTPServer(context.Background(), app.setupRouter()); err != nil {
		app.logger.Error("Server exited with error", "error", err)
	}
}

// initializeApp loads configuration and wires the application components.
func initializeApp(ctx context.Context) (*application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	appLogger, err := logger.Setup(cfg.Server)
	if err != nil {
		return nil, fmt.Errorf("failed to set up logger: %w", err)
	}

	appLogger.Info("server configuration loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Server.LogLevel)

	db, err := openDatabase(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}

	if err := migrations.Up(ctx, db, appLogger); err != nil {
		_ = db.Close()
		return nil, err
	}

	queueStore := postgres.NewPostgresQueueStore(db, appLogger)
	newsletterStore := postgres.NewPostgresNewsletterStore(db, appLogger)
	sectionStore := postgres.NewPostgresSectionStore(db, appLogger)

	return &application{
		config:          cfg,
		logger:          appLogger,
		db:              db,
		newsletterStore: newsletterStore,
		initializer:     queue.NewInitializer(queueStore, newsletterStore, appLogger),
		progressService: queue.NewProgressService(queueStore, sectionStore, appLogger),
	}, nil
}

// cleanup releases resources held by the application.
func (app *application) cleanup() {
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("failed to close database", "error", err)
		}
	}
}
