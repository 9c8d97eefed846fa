package queue

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/draftwire/newsletter-api/internal/domain"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func seedNewsletter(t *testing.T, ns *MockNewsletterStore) *domain.Newsletter {
	t.Helper()
	newsletter, err := domain.NewNewsletter(uuid.New(), "September Update")
	require.NoError(t, err)
	ns.Put(newsletter)
	return newsletter
}

func TestInitializeCreatesAllSections(t *testing.T) {
	t.Parallel()

	qs := NewMockQueueStore()
	ns := NewMockNewsletterStore()
	newsletter := seedNewsletter(t, ns)

	init := NewInitializer(qs, ns, newTestLogger())
	require.NoError(t, init.Initialize(context.Background(), newsletter.ID))

	items, err := qs.GetByNewsletter(context.Background(), newsletter.ID)
	require.NoError(t, err)
	require.Len(t, items, len(domain.RequiredSectionTypes))

	for i, item := range items {
		assert.Equal(t, newsletter.ID, item.NewsletterID)
		assert.Equal(t, domain.RequiredSectionTypes[i], item.SectionType)
		assert.Equal(t, i+1, item.SectionNumber)
		assert.Equal(t, domain.QueueItemStatusPending, item.Status)
		assert.Equal(t, 0, item.Attempts)
	}
}

func TestInitializeIsIdempotent(t *testing.T) {
	t.Parallel()

	qs := NewMockQueueStore()
	ns := NewMockNewsletterStore()
	newsletter := seedNewsletter(t, ns)

	init := NewInitializer(qs, ns, newTestLogger())
	require.NoError(t, init.Initialize(context.Background(), newsletter.ID))

	// Complete one item, then initialize again. Nothing should change.
	items, err := qs.GetByNewsletter(context.Background(), newsletter.ID)
	require.NoError(t, err)
	claimed, err := qs.ClaimNextPending(context.Background())
	require.NoError(t, err)
	require.NoError(t, qs.MarkCompleted(context.Background(), claimed.ID))

	require.NoError(t, init.Initialize(context.Background(), newsletter.ID))

	after, err := qs.GetByNewsletter(context.Background(), newsletter.ID)
	require.NoError(t, err)
	require.Len(t, after, len(items))
	assert.Equal(t, domain.QueueItemStatusCompleted, qs.Get(claimed.ID).Status)
}

func TestInitializeFillsMissingSlots(t *testing.T) {
	t.Parallel()

	qs := NewMockQueueStore()
	ns := NewMockNewsletterStore()
	newsletter := seedNewsletter(t, ns)

	// Pre-seed only the welcome slot.
	existing, err := domain.NewQueueItem(newsletter.ID, domain.SectionTypeWelcome, 1)
	require.NoError(t, err)
	qs.Put(existing)

	init := NewInitializer(qs, ns, newTestLogger())
	require.NoError(t, init.Initialize(context.Background(), newsletter.ID))

	items, err := qs.GetByNewsletter(context.Background(), newsletter.ID)
	require.NoError(t, err)
	require.Len(t, items, len(domain.RequiredSectionTypes))
	assert.Equal(t, existing.ID, items[0].ID)
}

func TestInitializeUnknownNewsletter(t *testing.T) {
	t.Parallel()

	init := NewInitializer(NewMockQueueStore(), NewMockNewsletterStore(), newTestLogger())
	err := init.Initialize(context.Background(), uuid.New())
	assert.Error(t, err)
}
