package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/draftwire/newsletter-api/internal/domain"
	"github.com/draftwire/newsletter-api/internal/platform/logger"
	"github.com/draftwire/newsletter-api/internal/store"
)

// PostgresNewsletterStore implements the store.NewsletterStore interface
// using a PostgreSQL database as the storage backend.
type PostgresNewsletterStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresNewsletterStore creates a new PostgreSQL implementation of
// the NewsletterStore interface. If logger is nil, a default logger will
// be used.
func NewPostgresNewsletterStore(db store.DBTX, logger *slog.Logger) *PostgresNewsletterStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresNewsletterStore{
		db:     db,
		logger: logger.With(slog.String("component", "newsletter_store")),
	}
}

// Ensure PostgresNewsletterStore implements store.NewsletterStore interface
var _ store.NewsletterStore = (*PostgresNewsletterStore)(nil)

// WithTx returns a new NewsletterStore instance that uses the provided transaction.
func (s *PostgresNewsletterStore) WithTx(tx *sql.Tx) store.NewsletterStore {
	return &PostgresNewsletterStore{
		db:     tx,
		logger: s.logger,
	}
}

// Create implements store.NewsletterStore.Create.
func (s *PostgresNewsletterStore) Create(ctx context.Context, newsletter *domain.Newsletter) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := newsletter.Validate(); err != nil {
		log.Warn("newsletter validation failed during create",
			slog.String("error", err.Error()),
			slog.String("newsletter_id", newsletter.ID.String()))
		return err
	}

	query := `
		INSERT INTO newsletters (id, company_id, subject, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := s.db.ExecContext(ctx, query,
		newsletter.ID,
		newsletter.CompanyID,
		newsletter.Subject,
		newsletter.Status,
		newsletter.CreatedAt,
		newsletter.UpdatedAt,
	)
	if err != nil {
		log.Error("failed to create newsletter",
			slog.String("newsletter_id", newsletter.ID.String()),
			slog.String("error", err.Error()))
		return store.NewStoreError("newsletter", "create", "failed to insert row", MapError(err))
	}

	return nil
}

// GetByID implements store.NewsletterStore.GetByID.
func (s *PostgresNewsletterStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Newsletter, error) {
	query := `
		SELECT id, company_id, subject, status, error_message, sent_at, created_at, updated_at
		FROM newsletters
		WHERE id = $1
	`

	var n domain.Newsletter
	var errorMessage sql.NullString
	var sentAt sql.NullTime

	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&n.ID,
		&n.CompanyID,
		&n.Subject,
		&n.Status,
		&errorMessage,
		&sentAt,
		&n.CreatedAt,
		&n.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, store.ErrNewsletterNotFound
		}
		return nil, store.NewStoreError("newsletter", "get", "failed to query row", MapError(err))
	}

	n.ErrorMessage = errorMessage.String
	if sentAt.Valid {
		t := sentAt.Time
		n.SentAt = &t
	}

	return &n, nil
}

// MarkGenerated implements store.NewsletterStore.MarkGenerated.
// The NOT EXISTS guard and the status transition run as one statement,
// so when the last two items complete in quick succession only one
// caller observes generating -> generated and fires the draft send.
func (s *PostgresNewsletterStore) MarkGenerated(ctx context.Context, id uuid.UUID) (bool, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		UPDATE newsletters
		SET status = $1, updated_at = $2
		WHERE id = $3
		  AND status = $4
		  AND NOT EXISTS (
			SELECT 1 FROM queue_items
			WHERE newsletter_id = $3 AND status <> $5
		  )
	`

	result, err := s.db.ExecContext(ctx, query,
		domain.NewsletterStatusGenerated,
		time.Now().UTC(),
		id,
		domain.NewsletterStatusGenerating,
		domain.QueueItemStatusCompleted,
	)
	if err != nil {
		log.Error("failed to mark newsletter generated",
			slog.String("newsletter_id", id.String()),
			slog.String("error", err.Error()))
		return false, store.NewStoreError("newsletter", "update", "failed to mark generated", MapError(err))
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected == 1, nil
}

// MarkDraftSent implements store.NewsletterStore.MarkDraftSent.
func (s *PostgresNewsletterStore) MarkDraftSent(ctx context.Context, id uuid.UUID, sentAt time.Time) error {
	query := `
		UPDATE newsletters
		SET status = $1, sent_at = $2, error_message = NULL, updated_at = $3
		WHERE id = $4
	`

	return s.update(ctx, query,
		domain.NewsletterStatusDraftSent,
		sentAt,
		time.Now().UTC(),
		id,
	)
}

// MarkSendFailed implements store.NewsletterStore.MarkSendFailed.
func (s *PostgresNewsletterStore) MarkSendFailed(ctx context.Context, id uuid.UUID, errorMessage string) error {
	query := `
		UPDATE newsletters
		SET status = $1, error_message = $2, updated_at = $3
		WHERE id = $4
	`

	return s.update(ctx, query,
		domain.NewsletterStatusSendFailed,
		errorMessage,
		time.Now().UTC(),
		id,
	)
}

// update runs a single-row newsletter update, mapping zero rows affected
// to ErrNewsletterNotFound.
func (s *PostgresNewsletterStore) update(ctx context.Context, query string, args ...any) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		log.Error("newsletter update failed",
			slog.String("error", err.Error()))
		return store.NewStoreError("newsletter", "update", "failed to execute update", MapError(err))
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return store.ErrNewsletterNotFound
	}

	return nil
}
