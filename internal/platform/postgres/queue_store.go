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

// queueItemColumns is the column list shared by every query that scans
// full queue item rows.
const queueItemColumns = `id, newsletter_id, section_type, section_number, status,
	attempts, error_message, last_attempt_at, created_at, updated_at`

// PostgresQueueStore implements the store.QueueStore interface
// using a PostgreSQL database as the storage backend.
type PostgresQueueStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresQueueStore creates a new PostgreSQL implementation of the
// QueueStore interface. It accepts a database connection or transaction
// that should be initialized and managed by the caller. If logger is
// nil, a default logger will be used.
func NewPostgresQueueStore(db store.DBTX, logger *slog.Logger) *PostgresQueueStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresQueueStore{
		db:     db,
		logger: logger.With(slog.String("component", "queue_store")),
	}
}

// Ensure PostgresQueueStore implements store.QueueStore interface
var _ store.QueueStore = (*PostgresQueueStore)(nil)

// WithTx returns a new QueueStore instance that uses the provided transaction.
func (s *PostgresQueueStore) WithTx(tx *sql.Tx) store.QueueStore {
	return &PostgresQueueStore{
		db:     tx,
		logger: s.logger,
	}
}

// EnqueueItems implements store.QueueStore.EnqueueItems.
// Items whose (newsletter_id, section_number) slot already exists are
// skipped, so calling the initializer twice never creates duplicates.
func (s *PostgresQueueStore) EnqueueItems(ctx context.Context, items []*domain.QueueItem) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		INSERT INTO queue_items (id, newsletter_id, section_type, section_number,
			status, attempts, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (newsletter_id, section_number) DO NOTHING
	`

	for _, item := range items {
		if err := item.Validate(); err != nil {
			return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
		}

		_, err := s.db.ExecContext(ctx, query,
			item.ID,
			item.NewsletterID,
			item.SectionType,
			item.SectionNumber,
			item.Status,
			item.Attempts,
			item.CreatedAt,
			item.UpdatedAt,
		)
		if err != nil {
			log.Error("failed to enqueue queue item",
				slog.String("item_id", item.ID.String()),
				slog.String("newsletter_id", item.NewsletterID.String()),
				slog.String("error", err.Error()))
			return store.NewStoreError("queue item", "enqueue", "failed to insert item", MapError(err))
		}
	}

	return nil
}

// GetByNewsletter implements store.QueueStore.GetByNewsletter.
func (s *PostgresQueueStore) GetByNewsletter(
	ctx context.Context,
	newsletterID uuid.UUID,
) ([]*domain.QueueItem, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM queue_items
		WHERE newsletter_id = $1
		ORDER BY section_number ASC
	`, queueItemColumns)

	rows, err := s.db.QueryContext(ctx, query, newsletterID)
	if err != nil {
		return nil, store.NewStoreError("queue item", "get", "failed to query items", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	return scanQueueItems(rows)
}

// ClaimNextPending implements store.QueueStore.ClaimNextPending.
// The claim is a single conditional update: the inner SELECT picks the
// oldest pending row and locks it with FOR UPDATE SKIP LOCKED, so two
// workers racing on the same item see exactly one winner; the loser's
// subquery returns no row and the call yields ErrNoPendingItems.
func (s *PostgresQueueStore) ClaimNextPending(ctx context.Context) (*domain.QueueItem, error) {
	now := time.Now().UTC()

	query := fmt.Sprintf(`
		UPDATE queue_items
		SET status = $1, attempts = attempts + 1, last_attempt_at = $2, updated_at = $2
		WHERE id = (
			SELECT id FROM queue_items
			WHERE status = $3
			ORDER BY created_at ASC
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING %s
	`, queueItemColumns)

	row := s.db.QueryRowContext(ctx, query,
		domain.QueueItemStatusInProgress,
		now,
		domain.QueueItemStatusPending,
	)

	item, err := scanQueueItem(row)
	if err != nil {
		if store.IsNotFoundError(MapError(err)) {
			return nil, store.ErrNoPendingItems
		}
		return nil, store.NewStoreError("queue item", "claim", "failed to claim pending item", MapError(err))
	}

	return item, nil
}

// MarkCompleted implements store.QueueStore.MarkCompleted.
func (s *PostgresQueueStore) MarkCompleted(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE queue_items
		SET status = $1, error_message = NULL, updated_at = $2
		WHERE id = $3 AND status = $4
	`

	return s.conditionalUpdate(ctx, query,
		domain.QueueItemStatusCompleted,
		time.Now().UTC(),
		id,
		domain.QueueItemStatusInProgress,
	)
}

// MarkFailed implements store.QueueStore.MarkFailed.
func (s *PostgresQueueStore) MarkFailed(ctx context.Context, id uuid.UUID, errorMessage string) error {
	query := `
		UPDATE queue_items
		SET status = $1, error_message = $2, updated_at = $3
		WHERE id = $4 AND status = $5
	`

	return s.conditionalUpdate(ctx, query,
		domain.QueueItemStatusFailed,
		errorMessage,
		time.Now().UTC(),
		id,
		domain.QueueItemStatusInProgress,
	)
}

// ReleaseToPending implements store.QueueStore.ReleaseToPending.
// The attempt counter is left as claimed; only the status moves back.
func (s *PostgresQueueStore) ReleaseToPending(
	ctx context.Context,
	id uuid.UUID,
	errorMessage string,
) error {
	query := `
		UPDATE queue_items
		SET status = $1, error_message = $2, updated_at = $3
		WHERE id = $4 AND status = $5
	`

	return s.conditionalUpdate(ctx, query,
		domain.QueueItemStatusPending,
		errorMessage,
		time.Now().UTC(),
		id,
		domain.QueueItemStatusInProgress,
	)
}

// GetStalled implements store.QueueStore.GetStalled.
func (s *PostgresQueueStore) GetStalled(
	ctx context.Context,
	olderThan time.Duration,
) ([]*domain.QueueItem, error) {
	cutoff := time.Now().UTC().Add(-olderThan)

	query := fmt.Sprintf(`
		SELECT %s
		FROM queue_items
		WHERE status = $1 AND last_attempt_at < $2
		ORDER BY last_attempt_at ASC
	`, queueItemColumns)

	rows, err := s.db.QueryContext(ctx, query, domain.QueueItemStatusInProgress, cutoff)
	if err != nil {
		return nil, store.NewStoreError("queue item", "get", "failed to query stalled items", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	return scanQueueItems(rows)
}

// ResetStalled implements store.QueueStore.ResetStalled.
// The stall counts as an attempt, so the counter advances here.
func (s *PostgresQueueStore) ResetStalled(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE queue_items
		SET status = $1, attempts = attempts + 1, updated_at = $2
		WHERE id = $3 AND status = $4
	`

	return s.conditionalUpdate(ctx, query,
		domain.QueueItemStatusPending,
		time.Now().UTC(),
		id,
		domain.QueueItemStatusInProgress,
	)
}

// FailStalled implements store.QueueStore.FailStalled.
func (s *PostgresQueueStore) FailStalled(ctx context.Context, id uuid.UUID, errorMessage string) error {
	query := `
		UPDATE queue_items
		SET status = $1, error_message = $2, updated_at = $3
		WHERE id = $4 AND status = $5
	`

	return s.conditionalUpdate(ctx, query,
		domain.QueueItemStatusFailed,
		errorMessage,
		time.Now().UTC(),
		id,
		domain.QueueItemStatusInProgress,
	)
}

// ReadmitFailed implements store.QueueStore.ReadmitFailed.
func (s *PostgresQueueStore) ReadmitFailed(ctx context.Context, maxAttempts int) (int, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		UPDATE queue_items
		SET status = $1, error_message = NULL, updated_at = $2
		WHERE status = $3 AND attempts < $4
	`

	result, err := s.db.ExecContext(ctx, query,
		domain.QueueItemStatusPending,
		time.Now().UTC(),
		domain.QueueItemStatusFailed,
		maxAttempts,
	)
	if err != nil {
		log.Error("failed to re-admit failed queue items",
			slog.String("error", err.Error()))
		return 0, store.NewStoreError("queue item", "update", "failed to re-admit failed items", MapError(err))
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return int(rowsAffected), nil
}

// conditionalUpdate runs a status-guarded single-row update and maps a
// zero-rows-affected outcome to ErrQueueItemNotFound, so callers learn
// when the item was no longer in the status they expected.
func (s *PostgresQueueStore) conditionalUpdate(
	ctx context.Context,
	query string,
	args ...any,
) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		log.Error("queue item update failed",
			slog.String("error", err.Error()))
		return store.NewStoreError("queue item", "update", "status transition failed", MapError(err))
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return store.ErrQueueItemNotFound
	}

	return nil
}

// rowScanner abstracts *sql.Row and *sql.Rows for the shared scan helper.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanQueueItem scans a single queue item row.
func scanQueueItem(row rowScanner) (*domain.QueueItem, error) {
	var item domain.QueueItem
	var errorMessage sql.NullString
	var lastAttemptAt sql.NullTime

	err := row.Scan(
		&item.ID,
		&item.NewsletterID,
		&item.SectionType,
		&item.SectionNumber,
		&item.Status,
		&item.Attempts,
		&errorMessage,
		&lastAttemptAt,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	item.ErrorMessage = errorMessage.String
	if lastAttemptAt.Valid {
		t := lastAttemptAt.Time
		item.LastAttemptAt = &t
	}

	return &item, nil
}

// scanQueueItems scans all rows of a queue item query.
func scanQueueItems(rows *sql.Rows) ([]*domain.QueueItem, error) {
	items := make([]*domain.QueueItem, 0)

	for rows.Next() {
		item, err := scanQueueItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan queue item row: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating queue item rows: %w", err)
	}

	return items, nil
}
