package queue

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/draftwire/newsletter-api/internal/domain"
	"github.com/draftwire/newsletter-api/internal/generation"
	"github.com/draftwire/newsletter-api/internal/store"
)

// workerFixture bundles the mocks a worker test needs.
type workerFixture struct {
	qs        *MockQueueStore
	ns        *MockNewsletterStore
	cs        *MockCompanyStore
	ss        *MockSectionStore
	generator *MockSectionGenerator
	notifier  *MockCompletionNotifier

	newsletter *domain.Newsletter
	company    *domain.Company
}

func newWorkerFixture(t *testing.T) *workerFixture {
	t.Helper()

	f := &workerFixture{
		qs:        NewMockQueueStore(),
		ns:        NewMockNewsletterStore(),
		cs:        NewMockCompanyStore(),
		ss:        NewMockSectionStore(),
		generator: NewMockSectionGenerator(),
		notifier:  NewMockCompletionNotifier(),
	}
	f.ns.Queue = f.qs

	f.company = &domain.Company{
		ID:           uuid.New(),
		Name:         "Acme Robotics",
		Industry:     "Industrial automation",
		ContactEmail: "founder@acme.example",
		CreatedAt:    time.Now().UTC(),
		UpdatedAt:    time.Now().UTC(),
	}
	require.NoError(t, f.company.Validate())
	f.cs.Put(f.company)

	newsletter, err := domain.NewNewsletter(f.company.ID, "Acme Monthly")
	require.NoError(t, err)
	f.newsletter = newsletter
	f.ns.Put(newsletter)

	return f
}

func (f *workerFixture) worker(cfg WorkerConfig) *Worker {
	return NewWorker(f.qs, f.ns, f.cs, f.ss, f.generator, f.notifier, cfg, newTestLogger())
}

// seedItem adds a queue item in the given state.
func (f *workerFixture) seedItem(t *testing.T, sectionType domain.SectionType, sectionNumber int, status domain.QueueItemStatus, attempts int) *domain.QueueItem {
	t.Helper()
	item, err := domain.NewQueueItem(f.newsletter.ID, sectionType, sectionNumber)
	require.NoError(t, err)
	item.Status = status
	item.Attempts = attempts
	if status == domain.QueueItemStatusInProgress {
		now := time.Now().UTC()
		item.LastAttemptAt = &now
	}
	f.qs.Put(item)
	return item
}

func TestRunPassCompletesItem(t *testing.T) {
	t.Parallel()

	f := newWorkerFixture(t)
	item := f.seedItem(t, domain.SectionTypeWelcome, 1, domain.QueueItemStatusPending, 0)
	w := f.worker(DefaultWorkerConfig())

	processed, err := w.runPass(context.Background())
	require.NoError(t, err)
	assert.True(t, processed)

	got := f.qs.Get(item.ID)
	assert.Equal(t, domain.QueueItemStatusCompleted, got.Status)
	assert.Equal(t, 1, got.Attempts)
	assert.NotNil(t, got.LastAttemptAt)

	sections, err := f.ss.GetByNewsletter(context.Background(), f.newsletter.ID)
	require.NoError(t, err)
	require.Len(t, sections, 1)
	assert.Equal(t, domain.SectionTypeWelcome, sections[0].SectionType)
	assert.NotEmpty(t, sections[0].Content)

	// The only item completed, so the newsletter was promoted and the
	// notifier fired.
	assert.Equal(t, domain.NewsletterStatusGenerated, f.ns.Get(f.newsletter.ID).Status)
	assert.Equal(t, []uuid.UUID{f.newsletter.ID}, f.notifier.Notified())
}

func TestRunPassNoPendingWork(t *testing.T) {
	t.Parallel()

	f := newWorkerFixture(t)
	w := f.worker(DefaultWorkerConfig())

	processed, err := w.runPass(context.Background())
	require.NoError(t, err)
	assert.False(t, processed)
}

func TestNotifierFiresOnceAfterLastSection(t *testing.T) {
	t.Parallel()

	f := newWorkerFixture(t)
	for i, sectionType := range domain.RequiredSectionTypes {
		f.seedItem(t, sectionType, i+1, domain.QueueItemStatusPending, 0)
	}
	w := f.worker(DefaultWorkerConfig())

	for range domain.RequiredSectionTypes {
		processed, err := w.runPass(context.Background())
		require.NoError(t, err)
		require.True(t, processed)
	}

	assert.Len(t, f.notifier.Notified(), 1)
	assert.Equal(t, domain.NewsletterStatusGenerated, f.ns.Get(f.newsletter.ID).Status)

	// An extra pass finds nothing and must not re-notify.
	processed, err := w.runPass(context.Background())
	require.NoError(t, err)
	assert.False(t, processed)
	assert.Len(t, f.notifier.Notified(), 1)
}

func TestGenerationFailureMarksItemFailed(t *testing.T) {
	t.Parallel()

	f := newWorkerFixture(t)
	item := f.seedItem(t, domain.SectionTypeWelcome, 1, domain.QueueItemStatusPending, 0)
	f.generator.GenerateFn = func(ctx context.Context, req generation.SectionRequest) (*generation.SectionContent, error) {
		return nil, errors.New("model exploded")
	}
	w := f.worker(DefaultWorkerConfig())

	processed, err := w.runPass(context.Background())
	require.NoError(t, err)
	assert.True(t, processed)

	got := f.qs.Get(item.ID)
	assert.Equal(t, domain.QueueItemStatusFailed, got.Status)
	assert.Equal(t, 1, got.Attempts)
	assert.Contains(t, got.ErrorMessage, "model exploded")
	assert.Equal(t, domain.NewsletterStatusGenerating, f.ns.Get(f.newsletter.ID).Status)
	assert.Empty(t, f.notifier.Notified())
}

func TestFailedItemRetriedUntilBudgetSpent(t *testing.T) {
	t.Parallel()

	f := newWorkerFixture(t)
	item := f.seedItem(t, domain.SectionTypeWelcome, 1, domain.QueueItemStatusPending, 0)
	f.generator.GenerateFn = func(ctx context.Context, req generation.SectionRequest) (*generation.SectionContent, error) {
		return nil, errors.New("persistent failure")
	}
	cfg := DefaultWorkerConfig()
	w := f.worker(cfg)

	// Each pass re-admits the failure and burns one attempt.
	for i := 1; i <= cfg.MaxAttempts; i++ {
		processed, err := w.runPass(context.Background())
		require.NoError(t, err)
		require.True(t, processed)
		got := f.qs.Get(item.ID)
		assert.Equal(t, domain.QueueItemStatusFailed, got.Status)
		assert.Equal(t, i, got.Attempts)
	}

	// Budget spent: the item stays failed and is never claimed again.
	processed, err := w.runPass(context.Background())
	require.NoError(t, err)
	assert.False(t, processed)

	got := f.qs.Get(item.ID)
	assert.Equal(t, domain.QueueItemStatusFailed, got.Status)
	assert.Equal(t, cfg.MaxAttempts, got.Attempts)
	assert.True(t, got.IsTerminal(cfg.MaxAttempts))
}

func TestRateLimitReleasesWithoutBurningAttempt(t *testing.T) {
	t.Parallel()

	f := newWorkerFixture(t)
	item := f.seedItem(t, domain.SectionTypeWelcome, 1, domain.QueueItemStatusPending, 0)
	f.generator.GenerateFn = func(ctx context.Context, req generation.SectionRequest) (*generation.SectionContent, error) {
		return nil, generation.ErrRateLimited
	}
	w := f.worker(DefaultWorkerConfig())

	processed, err := w.runPass(context.Background())
	require.NoError(t, err)
	// Reporting the pass as idle makes Run wait a poll interval before
	// the next claim, so the released item is not re-claimed instantly.
	assert.False(t, processed)

	got := f.qs.Get(item.ID)
	assert.Equal(t, domain.QueueItemStatusPending, got.Status)
	// The claim incremented attempts; the release left the count alone,
	// so repeated 429s do not march the item toward permanent failure
	// any faster than real attempts do.
	assert.Equal(t, 1, got.Attempts)
	assert.Contains(t, got.ErrorMessage, "rate limited")
}

func TestRateLimitedRunPacesClaims(t *testing.T) {
	t.Parallel()

	f := newWorkerFixture(t)
	f.seedItem(t, domain.SectionTypeWelcome, 1, domain.QueueItemStatusPending, 0)

	var calls atomic.Int64
	f.generator.GenerateFn = func(ctx context.Context, req generation.SectionRequest) (*generation.SectionContent, error) {
		calls.Add(1)
		return nil, generation.ErrRateLimited
	}

	cfg := DefaultWorkerConfig()
	cfg.PollInterval = 50 * time.Millisecond
	w := f.worker(cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	require.NoError(t, w.Run(ctx))

	// Each 429 puts the loop to sleep for a poll interval, so a 300ms
	// run against a 50ms interval can attempt at most a handful of
	// generations rather than spinning on the released item.
	assert.LessOrEqual(t, calls.Load(), int64(10))
	assert.GreaterOrEqual(t, calls.Load(), int64(1))
}

func TestStallRecoveryResetsAndFails(t *testing.T) {
	t.Parallel()

	f := newWorkerFixture(t)
	cfg := DefaultWorkerConfig()

	stale := time.Now().UTC().Add(-cfg.StallTimeout - time.Minute)
	retryable := f.seedItem(t, domain.SectionTypeWelcome, 1, domain.QueueItemStatusInProgress, 1)
	retryable.LastAttemptAt = &stale
	f.qs.Put(retryable)

	spent := f.seedItem(t, domain.SectionTypeIndustryTrends, 2, domain.QueueItemStatusInProgress, cfg.MaxAttempts)
	spent.LastAttemptAt = &stale
	f.qs.Put(spent)

	fresh := f.seedItem(t, domain.SectionTypePracticalTips, 3, domain.QueueItemStatusInProgress, 1)

	w := f.worker(cfg)
	require.NoError(t, w.recoverStalled(context.Background()))

	got := f.qs.Get(retryable.ID)
	assert.Equal(t, domain.QueueItemStatusPending, got.Status)
	assert.Equal(t, 2, got.Attempts)

	got = f.qs.Get(spent.ID)
	assert.Equal(t, domain.QueueItemStatusFailed, got.Status)
	assert.Equal(t, "Operation timed out", got.ErrorMessage)

	// An item still within the stall window is untouched.
	assert.Equal(t, domain.QueueItemStatusInProgress, f.qs.Get(fresh.ID).Status)
}

func TestRunPassSurfacesClaimError(t *testing.T) {
	t.Parallel()

	f := newWorkerFixture(t)
	f.qs.ClaimNextPendingFn = func(ctx context.Context) (*domain.QueueItem, error) {
		return nil, errors.New("connection refused")
	}
	w := f.worker(DefaultWorkerConfig())

	processed, err := w.runPass(context.Background())
	assert.False(t, processed)
	assert.ErrorContains(t, err, "claim failed")
}

func TestShutdownReleasesClaimedItem(t *testing.T) {
	t.Parallel()

	f := newWorkerFixture(t)
	item := f.seedItem(t, domain.SectionTypeWelcome, 1, domain.QueueItemStatusPending, 0)

	ctx, cancel := context.WithCancel(context.Background())
	f.generator.GenerateFn = func(genCtx context.Context, req generation.SectionRequest) (*generation.SectionContent, error) {
		// Shutdown arrives mid-generation.
		cancel()
		return nil, genCtx.Err()
	}
	w := f.worker(DefaultWorkerConfig())

	processed, err := w.runPass(ctx)
	require.NoError(t, err)
	assert.True(t, processed)

	got := f.qs.Get(item.ID)
	assert.Equal(t, domain.QueueItemStatusPending, got.Status)
	assert.Equal(t, "worker shutting down", got.ErrorMessage)
}

func TestRunReturnsNilOnCancel(t *testing.T) {
	t.Parallel()

	f := newWorkerFixture(t)
	cfg := DefaultWorkerConfig()
	cfg.PollInterval = 5 * time.Millisecond
	w := f.worker(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop after cancel")
	}
}

func TestConcurrentClaimsGetDistinctItems(t *testing.T) {
	t.Parallel()

	f := newWorkerFixture(t)
	f.seedItem(t, domain.SectionTypeWelcome, 1, domain.QueueItemStatusPending, 0)

	var wg sync.WaitGroup
	results := make([]error, 2)
	items := make([]*domain.QueueItem, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			items[i], results[i] = f.qs.ClaimNextPending(context.Background())
		}(i)
	}
	wg.Wait()

	// Exactly one claimer wins; the other sees an empty queue.
	var wins, empties int
	for i := 0; i < 2; i++ {
		switch {
		case results[i] == nil:
			wins++
			assert.Equal(t, domain.QueueItemStatusInProgress, items[i].Status)
		case errors.Is(results[i], store.ErrNoPendingItems):
			empties++
		default:
			t.Fatalf("unexpected claim error: %v", results[i])
		}
	}
	assert.Equal(t, 1, wins)
	assert.Equal(t, 1, empties)
}

func TestMarkGeneratedPromotesExactlyOnce(t *testing.T) {
	t.Parallel()

	f := newWorkerFixture(t)
	for i, sectionType := range domain.RequiredSectionTypes {
		f.seedItem(t, sectionType, i+1, domain.QueueItemStatusCompleted, 1)
	}

	const callers = 8
	var wg sync.WaitGroup
	promotions := make([]bool, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			promotions[i], errs[i] = f.ns.MarkGenerated(context.Background(), f.newsletter.ID)
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}

	winners := 0
	for _, p := range promotions {
		if p {
			winners++
		}
	}
	assert.Equal(t, 1, winners)
}

func TestMarkGeneratedHeldBackByNonCompletedItems(t *testing.T) {
	t.Parallel()

	f := newWorkerFixture(t)
	f.seedItem(t, domain.SectionTypeWelcome, 1, domain.QueueItemStatusCompleted, 1)
	f.seedItem(t, domain.SectionTypeIndustryTrends, 2, domain.QueueItemStatusFailed, 1)

	promoted, err := f.ns.MarkGenerated(context.Background(), f.newsletter.ID)
	require.NoError(t, err)
	assert.False(t, promoted)
	assert.Equal(t, domain.NewsletterStatusGenerating, f.ns.Get(f.newsletter.ID).Status)
}
