package queue

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/draftwire/newsletter-api/internal/domain"
	"github.com/draftwire/newsletter-api/internal/store"
)

// Initializer seeds the queue for a newsletter with one pending item per
// required section. Initialization is idempotent: section slots that
// already hold an item, in any status, are left untouched.
type Initializer struct {
	items       store.QueueStore
	newsletters store.NewsletterStore
	logger      *slog.Logger
}

// NewInitializer creates an Initializer with the given dependencies.
func NewInitializer(items store.QueueStore, newsletters store.NewsletterStore, logger *slog.Logger) *Initializer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Initializer{
		items:       items,
		newsletters: newsletters,
		logger:      logger.With(slog.String("component", "queue_initializer")),
	}
}

// Initialize creates the pending queue items for newsletterID. Calling it
// again for the same newsletter is a no-op for every section slot that
// already has an item, so retried requests never spawn duplicate work.
func (i *Initializer) Initialize(ctx context.Context, newsletterID uuid.UUID) error {
	log := i.logger.With(slog.String("newsletter_id", newsletterID.String()))

	if _, err := i.newsletters.GetByID(ctx, newsletterID); err != nil {
		return fmt.Errorf("failed to resolve newsletter: %w", err)
	}

	existing, err := i.items.GetByNewsletter(ctx, newsletterID)
	if err != nil {
		return fmt.Errorf("failed to load existing queue items: %w", err)
	}

	taken := make(map[int]bool, len(existing))
	for _, it := range existing {
		taken[it.SectionNumber] = true
	}

	var toCreate []*domain.QueueItem
	for idx, sectionType := range domain.RequiredSectionTypes {
		sectionNumber := idx + 1
		if taken[sectionNumber] {
			continue
		}
		item, err := domain.NewQueueItem(newsletterID, sectionType, sectionNumber)
		if err != nil {
			return fmt.Errorf("failed to build queue item for section %d: %w", sectionNumber, err)
		}
		toCreate = append(toCreate, item)
	}

	if len(toCreate) == 0 {
		log.Debug("queue already initialized, nothing to enqueue")
		return nil
	}

	if err := i.items.EnqueueItems(ctx, toCreate); err != nil {
		return fmt.Errorf("failed to enqueue queue items: %w", err)
	}

	log.Info("queue initialized",
		slog.Int("items_created", len(toCreate)),
		slog.Int("items_existing", len(existing)))
	return nil
}
