package queue

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/google/uuid"

	"github.com/draftwire/newsletter-api/internal/domain"
	"github.com/draftwire/newsletter-api/internal/store"
)

// Progress is the aggregated generation state of one newsletter,
// shaped for the polling endpoint.
type Progress struct {
	Total      int                         `json:"total"`
	Completed  int                         `json:"completed"`
	Failed     int                         `json:"failed"`
	InProgress int                         `json:"inProgress"`
	Percentage float64                     `json:"percentage"`
	QueueItems []*domain.QueueItem         `json:"queueItems"`
	Sections   []*domain.NewsletterSection `json:"sections"`
}

// ProgressService builds Progress snapshots from the queue and section
// stores.
type ProgressService struct {
	items    store.QueueStore
	sections store.SectionStore
	logger   *slog.Logger
}

// NewProgressService creates a ProgressService with the given stores.
func NewProgressService(items store.QueueStore, sections store.SectionStore, logger *slog.Logger) *ProgressService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProgressService{
		items:    items,
		sections: sections,
		logger:   logger.With(slog.String("component", "progress_service")),
	}
}

// Progress aggregates the queue items and generated sections for a
// newsletter. Percentage counts only completed items, rounded to two
// decimal places, and is 0 when no queue items exist.
func (s *ProgressService) Progress(ctx context.Context, newsletterID uuid.UUID) (*Progress, error) {
	items, err := s.items.GetByNewsletter(ctx, newsletterID)
	if err != nil {
		return nil, fmt.Errorf("failed to load queue items: %w", err)
	}

	sections, err := s.sections.GetByNewsletter(ctx, newsletterID)
	if err != nil {
		return nil, fmt.Errorf("failed to load sections: %w", err)
	}

	p := &Progress{
		Total:      len(items),
		QueueItems: items,
		Sections:   sections,
	}
	for _, it := range items {
		switch it.Status {
		case domain.QueueItemStatusCompleted:
			p.Completed++
		case domain.QueueItemStatusFailed:
			p.Failed++
		case domain.QueueItemStatusInProgress:
			p.InProgress++
		}
	}
	if p.Total > 0 {
		p.Percentage = math.Round(float64(p.Completed)/float64(p.Total)*10000) / 100
	}
	return p, nil
}
