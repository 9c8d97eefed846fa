// Package main implements the DraftWire queue worker: a long-running
// process that claims pending queue items, generates newsletter sections
// through Gemini, and emails the assembled draft when a newsletter's
// last section completes.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	// Register the pgx stdlib driver.
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"

	"github.com/draftwire/newsletter-api/internal/config"
	"github.com/draftwire/newsletter-api/internal/platform/gemini"
	"github.com/draftwire/newsletter-api/internal/platform/logger"
	"github.com/draftwire/newsletter-api/internal/platform/postgres"
	"github.com/draftwire/newsletter-api/internal/platform/ses"
	"github.com/draftwire/newsletter-api/internal/queue"
)

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		log.Fatalf("Worker failed: %v", err)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	// The API server tolerates a missing from-address; the worker cannot
	// deliver drafts without one, so it refuses to start.
	if cfg.Email.FromAddress == "" {
		return fmt.Errorf("DRAFTWIRE_EMAIL_FROM_ADDRESS is required for the worker")
	}

	appLogger, err := logger.Setup(cfg.Server)
	if err != nil {
		return fmt.Errorf("failed to set up logger: %w", err)
	}

	db, err := openDatabase(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			appLogger.Error("failed to close database", "error", err)
		}
	}()

	queueStore := postgres.NewPostgresQueueStore(db, appLogger)
	newsletterStore := postgres.NewPostgresNewsletterStore(db, appLogger)
	companyStore := postgres.NewPostgresCompanyStore(db, appLogger)
	sectionStore := postgres.NewPostgresSectionStore(db, appLogger)

	generator, err := gemini.NewGeminiGenerator(ctx, appLogger, cfg.LLM)
	if err != nil {
		return fmt.Errorf("failed to create section generator: %w", err)
	}

	sender, err := newEmailSender(ctx, cfg.Email, appLogger)
	if err != nil {
		return err
	}

	trigger := queue.NewCompletionTrigger(
		newsletterStore, companyStore, sectionStore, sender, appLogger)

	worker := queue.NewWorker(
		queueStore, newsletterStore, companyStore, sectionStore,
		generator, trigger,
		queue.WorkerConfig{
			MaxAttempts:          cfg.Queue.MaxAttempts,
			StallTimeout:         cfg.Queue.StallTimeout,
			PollInterval:         cfg.Queue.PollInterval,
			ErrorCooldown:        cfg.Queue.ErrorCooldown,
			MaxConsecutiveErrors: cfg.Queue.MaxConsecutiveErrors,
			GenerationTimeout:    cfg.Queue.GenerationTimeout,
		},
		appLogger,
	)

	return worker.Run(ctx)
}

// newEmailSender builds the SES sender from ambient AWS credentials.
func newEmailSender(ctx context.Context, emailCfg config.EmailConfig, appLogger *slog.Logger) (*ses.Sender, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if emailCfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(emailCfg.Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}
	return ses.NewSender(awsCfg, emailCfg, appLogger)
}

// openDatabase opens and verifies the Postgres connection pool.
func openDatabase(ctx context.Context, cfg config.DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open("pgx", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}
