package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/draftwire/newsletter-api/internal/domain"
)

// SectionStore defines the interface for newsletter section persistence.
// Version: 1.0
type SectionStore interface {
	// Upsert saves a section keyed by (newsletter_id, section_number).
	// If a row for that slot already exists it is overwritten, so a
	// retried generation replaces its earlier partial result instead of
	// duplicating it.
	Upsert(ctx context.Context, section *domain.NewsletterSection) error

	// GetByNewsletter retrieves all sections for a newsletter, ordered
	// by section number. Returns an empty slice if none exist.
	GetByNewsletter(ctx context.Context, newsletterID uuid.UUID) ([]*domain.NewsletterSection, error)

	// WithTx returns a new SectionStore instance that uses the provided
	// transaction.
	WithTx(tx *sql.Tx) SectionStore
}
