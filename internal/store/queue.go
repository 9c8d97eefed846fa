package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/draftwire/newsletter-api/internal/domain"
)

// QueueStore defines the interface for queue item persistence.
// Version: 1.0
type QueueStore interface {
	// EnqueueItems inserts the given pending queue items. Items whose
	// (newsletter_id, section_number) slot already exists are skipped,
	// making repeated initialization calls idempotent.
	EnqueueItems(ctx context.Context, items []*domain.QueueItem) error

	// GetByNewsletter retrieves all queue items for a newsletter,
	// ordered by section number. Returns an empty slice if none exist.
	GetByNewsletter(ctx context.Context, newsletterID uuid.UUID) ([]*domain.QueueItem, error)

	// ClaimNextPending atomically claims the single oldest pending item:
	// marks it in_progress, increments its attempt counter, and stamps
	// last_attempt_at, all in one conditional update so concurrent
	// workers cannot claim the same item. Returns ErrNoPendingItems when
	// the queue has no pending work.
	ClaimNextPending(ctx context.Context) (*domain.QueueItem, error)

	// MarkCompleted transitions an in_progress item to completed and
	// clears its error message. Returns ErrQueueItemNotFound if the item
	// is not currently in_progress.
	MarkCompleted(ctx context.Context, id uuid.UUID) error

	// MarkFailed transitions an in_progress item to failed and records
	// the failure reason. Returns ErrQueueItemNotFound if the item is
	// not currently in_progress.
	MarkFailed(ctx context.Context, id uuid.UUID, errorMessage string) error

	// ReleaseToPending returns an in_progress item to pending without
	// touching its attempt counter, recording the reason. Used for
	// rate-limited attempts and for graceful worker drain.
	ReleaseToPending(ctx context.Context, id uuid.UUID, errorMessage string) error

	// GetStalled retrieves in_progress items whose last attempt is older
	// than the given age, presumed abandoned by a crashed or hung worker.
	GetStalled(ctx context.Context, olderThan time.Duration) ([]*domain.QueueItem, error)

	// ResetStalled moves a stalled in_progress item back to pending,
	// counting the stall as an attempt. The update is conditional on the
	// item still being in_progress.
	ResetStalled(ctx context.Context, id uuid.UUID) error

	// FailStalled marks a stalled in_progress item failed with the given
	// reason. The update is conditional on the item still being
	// in_progress.
	FailStalled(ctx context.Context, id uuid.UUID, errorMessage string) error

	// ReadmitFailed re-admits failed items that still have attempt
	// budget (attempts < maxAttempts) back to pending, clearing their
	// error message. Returns the number of items re-admitted. Items at
	// or past maxAttempts are never touched.
	ReadmitFailed(ctx context.Context, maxAttempts int) (int, error)

	// WithTx returns a new QueueStore instance that uses the provided
	// transaction. The transaction is created and managed by the caller.
	WithTx(tx *sql.Tx) QueueStore
}
