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

// PostgresSectionStore implements the store.SectionStore interface
// using a PostgreSQL database as the storage backend.
type PostgresSectionStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresSectionStore creates a new PostgreSQL implementation of the
// SectionStore interface. If logger is nil, a default logger will be used.
func NewPostgresSectionStore(db store.DBTX, logger *slog.Logger) *PostgresSectionStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresSectionStore{
		db:     db,
		logger: logger.With(slog.String("component", "section_store")),
	}
}

// Ensure PostgresSectionStore implements store.SectionStore interface
var _ store.SectionStore = (*PostgresSectionStore)(nil)

// WithTx returns a new SectionStore instance that uses the provided transaction.
func (s *PostgresSectionStore) WithTx(tx *sql.Tx) store.SectionStore {
	return &PostgresSectionStore{
		db:     tx,
		logger: s.logger,
	}
}

// Upsert implements store.SectionStore.Upsert.
// The conflict target is the (newsletter_id, section_number) slot, so a
// retried generation replaces its earlier result instead of duplicating it.
func (s *PostgresSectionStore) Upsert(ctx context.Context, section *domain.NewsletterSection) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := section.Validate(); err != nil {
		log.Warn("section validation failed during upsert",
			slog.String("error", err.Error()),
			slog.String("section_id", section.ID.String()))
		return err
	}

	query := `
		INSERT INTO newsletter_sections (id, newsletter_id, section_number,
			section_type, title, content, image_url, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (newsletter_id, section_number) DO UPDATE
		SET section_type = EXCLUDED.section_type,
			title = EXCLUDED.title,
			content = EXCLUDED.content,
			image_url = EXCLUDED.image_url,
			updated_at = EXCLUDED.updated_at
	`

	_, err := s.db.ExecContext(ctx, query,
		section.ID,
		section.NewsletterID,
		section.SectionNumber,
		section.SectionType,
		section.Title,
		section.Content,
		nullableString(section.ImageURL),
		section.CreatedAt,
		time.Now().UTC(),
	)
	if err != nil {
		log.Error("failed to upsert newsletter section",
			slog.String("newsletter_id", section.NewsletterID.String()),
			slog.Int("section_number", section.SectionNumber),
			slog.String("error", err.Error()))
		return store.NewStoreError("newsletter section", "upsert", "failed to write row", MapError(err))
	}

	return nil
}

// GetByNewsletter implements store.SectionStore.GetByNewsletter.
// Sections come back ordered by section number regardless of the order
// they completed in.
func (s *PostgresSectionStore) GetByNewsletter(
	ctx context.Context,
	newsletterID uuid.UUID,
) ([]*domain.NewsletterSection, error) {
	query := `
		SELECT id, newsletter_id, section_number, section_type, title,
			content, image_url, created_at, updated_at
		FROM newsletter_sections
		WHERE newsletter_id = $1
		ORDER BY section_number ASC
	`

	rows, err := s.db.QueryContext(ctx, query, newsletterID)
	if err != nil {
		return nil, store.NewStoreError("newsletter section", "get", "failed to query rows", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	sections := make([]*domain.NewsletterSection, 0)

	for rows.Next() {
		var sec domain.NewsletterSection
		var imageURL sql.NullString

		if err := rows.Scan(
			&sec.ID,
			&sec.NewsletterID,
			&sec.SectionNumber,
			&sec.SectionType,
			&sec.Title,
			&sec.Content,
			&imageURL,
			&sec.CreatedAt,
			&sec.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan newsletter section row: %w", err)
		}

		sec.ImageURL = imageURL.String
		sections = append(sections, &sec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating newsletter section rows: %w", err)
	}

	return sections, nil
}
