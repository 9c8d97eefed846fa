// Package main implements a small seeding tool that creates a company
// and a newsletter in the generating state, then prints the IDs to feed
// into the generate endpoint. Intended for local development.
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	// Register the pgx stdlib driver.
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"

	"github.com/draftwire/newsletter-api/internal/config"
	"github.com/draftwire/newsletter-api/internal/domain"
	"github.com/draftwire/newsletter-api/internal/platform/logger"
	"github.com/draftwire/newsletter-api/internal/platform/postgres"
	"github.com/draftwire/newsletter-api/internal/store"
	"github.com/draftwire/newsletter-api/migrations"
)

func main() {
	name := flag.String("name", "Acme Robotics", "company name")
	industry := flag.String("industry", "Industrial automation", "company industry")
	audience := flag.String("audience", "", "target audience (optional)")
	email := flag.String("email", "", "contact email for the draft (required)")
	subject := flag.String("subject", "", "newsletter subject (required)")
	flag.Parse()

	if *email == "" || *subject == "" {
		log.Fatal("both -email and -subject are required")
	}

	_ = godotenv.Load()

	if err := run(context.Background(), *name, *industry, *audience, *email, *subject); err != nil {
		log.Fatalf("Seed failed: %v", err)
	}
}

func run(ctx context.Context, name, industry, audience, email, subject string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	appLogger, err := logger.Setup(cfg.Server)
	if err != nil {
		return fmt.Errorf("failed to set up logger: %w", err)
	}

	db, err := sql.Open("pgx", cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() { _ = db.Close() }()

	if err := migrations.Up(ctx, db, appLogger); err != nil {
		return err
	}

	now := time.Now().UTC()
	company := &domain.Company{
		ID:             uuid.New(),
		Name:           name,
		Industry:       industry,
		TargetAudience: audience,
		ContactEmail:   email,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := company.Validate(); err != nil {
		return fmt.Errorf("invalid company: %w", err)
	}

	newsletter, err := domain.NewNewsletter(company.ID, subject)
	if err != nil {
		return fmt.Errorf("invalid newsletter: %w", err)
	}

	companyStore := postgres.NewPostgresCompanyStore(db, appLogger)
	newsletterStore := postgres.NewPostgresNewsletterStore(db, appLogger)

	// Company and newsletter land together or not at all.
	err = store.RunInTransaction(ctx, db, func(txCtx context.Context, tx *sql.Tx) error {
		if err := companyStore.WithTx(tx).Create(txCtx, company); err != nil {
			return err
		}
		return newsletterStore.WithTx(tx).Create(txCtx, newsletter)
	})
	if err != nil {
		return fmt.Errorf("failed to seed records: %w", err)
	}

	fmt.Printf("company_id=%s\n", company.ID)
	fmt.Printf("newsletter_id=%s\n", newsletter.ID)
	fmt.Printf("start generation: POST /api/newsletters/%s/generate\n", newsletter.ID)
	return nil
}
