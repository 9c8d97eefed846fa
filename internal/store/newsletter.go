package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/draftwire/newsletter-api/internal/domain"
)

// NewsletterStore defines the interface for newsletter persistence.
// Version: 1.0
type NewsletterStore interface {
	// Create saves a new newsletter to the store.
	Create(ctx context.Context, newsletter *domain.Newsletter) error

	// GetByID retrieves a newsletter by its unique ID.
	// Returns ErrNewsletterNotFound if the newsletter does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Newsletter, error)

	// MarkGenerated promotes a newsletter from generating to generated,
	// but only when no queue item for it remains in a non-completed
	// state. The check and the transition are a single conditional
	// update, so however many items complete concurrently, exactly
	// one caller observes the promotion. Returns true for that caller.
	MarkGenerated(ctx context.Context, id uuid.UUID) (bool, error)

	// MarkDraftSent records a successful draft delivery: status
	// draft_sent, sent_at stamped, error message cleared.
	MarkDraftSent(ctx context.Context, id uuid.UUID, sentAt time.Time) error

	// MarkSendFailed records a failed draft delivery without touching
	// the newsletter's queue items, so the condition stays visible to
	// pollers.
	MarkSendFailed(ctx context.Context, id uuid.UUID, errorMessage string) error

	// WithTx returns a new NewsletterStore instance that uses the
	// provided transaction.
	WithTx(tx *sql.Tx) NewsletterStore
}

// CompanyStore defines the interface for company persistence.
// Version: 1.0
type CompanyStore interface {
	// Create saves a new company to the store.
	Create(ctx context.Context, company *domain.Company) error

	// GetByID retrieves a company by its unique ID.
	// Returns ErrCompanyNotFound if the company does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Company, error)

	// WithTx returns a new CompanyStore instance that uses the provided
	// transaction.
	WithTx(tx *sql.Tx) CompanyStore
}
