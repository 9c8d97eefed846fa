package queue

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/draftwire/newsletter-api/internal/domain"
)

func TestProgressAggregatesCounts(t *testing.T) {
	t.Parallel()

	qs := NewMockQueueStore()
	ss := NewMockSectionStore()
	newsletterID := uuid.New()

	seed := func(sectionType domain.SectionType, number int, status domain.QueueItemStatus) {
		item, err := domain.NewQueueItem(newsletterID, sectionType, number)
		require.NoError(t, err)
		item.Status = status
		qs.Put(item)
	}
	seed(domain.SectionTypeWelcome, 1, domain.QueueItemStatusCompleted)
	seed(domain.SectionTypeIndustryTrends, 2, domain.QueueItemStatusInProgress)
	seed(domain.SectionTypePracticalTips, 3, domain.QueueItemStatusFailed)

	section, err := domain.NewNewsletterSection(newsletterID, 1, domain.SectionTypeWelcome, "Welcome", "Hello.", "")
	require.NoError(t, err)
	require.NoError(t, ss.Upsert(context.Background(), section))

	svc := NewProgressService(qs, ss, newTestLogger())
	p, err := svc.Progress(context.Background(), newsletterID)
	require.NoError(t, err)

	assert.Equal(t, 3, p.Total)
	assert.Equal(t, 1, p.Completed)
	assert.Equal(t, 1, p.Failed)
	assert.Equal(t, 1, p.InProgress)
	assert.InDelta(t, 33.33, p.Percentage, 0.001)
	assert.Len(t, p.QueueItems, 3)
	assert.Len(t, p.Sections, 1)
}

func TestProgressEmptyQueue(t *testing.T) {
	t.Parallel()

	svc := NewProgressService(NewMockQueueStore(), NewMockSectionStore(), newTestLogger())
	p, err := svc.Progress(context.Background(), uuid.New())
	require.NoError(t, err)

	assert.Equal(t, 0, p.Total)
	assert.Equal(t, 0.0, p.Percentage)
	assert.Empty(t, p.QueueItems)
	assert.Empty(t, p.Sections)
}

func TestProgressAllCompleted(t *testing.T) {
	t.Parallel()

	qs := NewMockQueueStore()
	newsletterID := uuid.New()
	for i, sectionType := range domain.RequiredSectionTypes {
		item, err := domain.NewQueueItem(newsletterID, sectionType, i+1)
		require.NoError(t, err)
		item.Status = domain.QueueItemStatusCompleted
		qs.Put(item)
	}

	svc := NewProgressService(qs, NewMockSectionStore(), newTestLogger())
	p, err := svc.Progress(context.Background(), newsletterID)
	require.NoError(t, err)

	assert.Equal(t, 100.0, p.Percentage)
	assert.Equal(t, p.Total, p.Completed)
}
