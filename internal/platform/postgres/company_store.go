package postgres

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/google/uuid"

	"github.com/draftwire/newsletter-api/internal/domain"
	"github.com/draftwire/newsletter-api/internal/platform/logger"
	"github.com/draftwire/newsletter-api/internal/store"
)

// PostgresCompanyStore implements the store.CompanyStore interface
// using a PostgreSQL database as the storage backend.
type PostgresCompanyStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresCompanyStore creates a new PostgreSQL implementation of the
// CompanyStore interface. If logger is nil, a default logger will be used.
func NewPostgresCompanyStore(db store.DBTX, logger *slog.Logger) *PostgresCompanyStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresCompanyStore{
		db:     db,
		logger: logger.With(slog.String("component", "company_store")),
	}
}

// Ensure PostgresCompanyStore implements store.CompanyStore interface
var _ store.CompanyStore = (*PostgresCompanyStore)(nil)

// WithTx returns a new CompanyStore instance that uses the provided transaction.
func (s *PostgresCompanyStore) WithTx(tx *sql.Tx) store.CompanyStore {
	return &PostgresCompanyStore{
		db:     tx,
		logger: s.logger,
	}
}

// Create implements store.CompanyStore.Create.
func (s *PostgresCompanyStore) Create(ctx context.Context, company *domain.Company) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := company.Validate(); err != nil {
		log.Warn("company validation failed during create",
			slog.String("error", err.Error()),
			slog.String("company_id", company.ID.String()))
		return err
	}

	query := `
		INSERT INTO companies (id, name, industry, target_audience,
			audience_description, contact_email, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := s.db.ExecContext(ctx, query,
		company.ID,
		company.Name,
		company.Industry,
		nullableString(company.TargetAudience),
		nullableString(company.AudienceDescription),
		company.ContactEmail,
		company.CreatedAt,
		company.UpdatedAt,
	)
	if err != nil {
		log.Error("failed to create company",
			slog.String("company_id", company.ID.String()),
			slog.String("error", err.Error()))
		return store.NewStoreError("company", "create", "failed to insert row", MapError(err))
	}

	return nil
}

// GetByID implements store.CompanyStore.GetByID.
func (s *PostgresCompanyStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Company, error) {
	query := `
		SELECT id, name, industry, target_audience, audience_description,
			contact_email, created_at, updated_at
		FROM companies
		WHERE id = $1
	`

	var c domain.Company
	var targetAudience, audienceDescription sql.NullString

	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&c.ID,
		&c.Name,
		&c.Industry,
		&targetAudience,
		&audienceDescription,
		&c.ContactEmail,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, store.ErrCompanyNotFound
		}
		return nil, store.NewStoreError("company", "get", "failed to query row", MapError(err))
	}

	c.TargetAudience = targetAudience.String
	c.AudienceDescription = audienceDescription.String

	return &c, nil
}

// nullableString converts an empty string to a NULL-able value so the
// optional audience columns stay NULL instead of empty.
func nullableString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
