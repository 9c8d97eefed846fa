package queue

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/draftwire/newsletter-api/internal/domain"
	"github.com/draftwire/newsletter-api/internal/store"
)

// MockQueueStore implements store.QueueStore in memory for testing. Each
// method honors the real store's conditional-update contract; individual
// methods can be overridden through the Fn fields.
type MockQueueStore struct {
	mu    sync.Mutex
	items map[uuid.UUID]*domain.QueueItem

	EnqueueItemsFn     func(ctx context.Context, items []*domain.QueueItem) error
	GetByNewsletterFn  func(ctx context.Context, newsletterID uuid.UUID) ([]*domain.QueueItem, error)
	ClaimNextPendingFn func(ctx context.Context) (*domain.QueueItem, error)
	MarkCompletedFn    func(ctx context.Context, id uuid.UUID) error
	MarkFailedFn       func(ctx context.Context, id uuid.UUID, errorMessage string) error
	ReleaseToPendingFn func(ctx context.Context, id uuid.UUID, errorMessage string) error
	GetStalledFn       func(ctx context.Context, olderThan time.Duration) ([]*domain.QueueItem, error)
	ReadmitFailedFn    func(ctx context.Context, maxAttempts int) (int, error)
}

var _ store.QueueStore = (*MockQueueStore)(nil)

// NewMockQueueStore creates an empty MockQueueStore.
func NewMockQueueStore() *MockQueueStore {
	return &MockQueueStore{items: make(map[uuid.UUID]*domain.QueueItem)}
}

// Put seeds the store with a copy of the given item.
func (m *MockQueueStore) Put(item *domain.QueueItem) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *item
	m.items[item.ID] = &cp
}

// Get returns a copy of the stored item, or nil if absent.
func (m *MockQueueStore) Get(id uuid.UUID) *domain.QueueItem {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.items[id]
	if !ok {
		return nil
	}
	cp := *item
	return &cp
}

func (m *MockQueueStore) EnqueueItems(ctx context.Context, items []*domain.QueueItem) error {
	if m.EnqueueItemsFn != nil {
		return m.EnqueueItemsFn(ctx, items)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, item := range items {
		if m.slotTakenLocked(item.NewsletterID, item.SectionNumber) {
			continue
		}
		cp := *item
		m.items[item.ID] = &cp
	}
	return nil
}

func (m *MockQueueStore) slotTakenLocked(newsletterID uuid.UUID, sectionNumber int) bool {
	for _, existing := range m.items {
		if existing.NewsletterID == newsletterID && existing.SectionNumber == sectionNumber {
			return true
		}
	}
	return false
}

func (m *MockQueueStore) GetByNewsletter(ctx context.Context, newsletterID uuid.UUID) ([]*domain.QueueItem, error) {
	if m.GetByNewsletterFn != nil {
		return m.GetByNewsletterFn(ctx, newsletterID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]*domain.QueueItem, 0)
	for _, item := range m.items {
		if item.NewsletterID == newsletterID {
			cp := *item
			result = append(result, &cp)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].SectionNumber < result[j].SectionNumber
	})
	return result, nil
}

func (m *MockQueueStore) ClaimNextPending(ctx context.Context) (*domain.QueueItem, error) {
	if m.ClaimNextPendingFn != nil {
		return m.ClaimNextPendingFn(ctx)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var oldest *domain.QueueItem
	for _, item := range m.items {
		if item.Status != domain.QueueItemStatusPending {
			continue
		}
		if oldest == nil || item.CreatedAt.Before(oldest.CreatedAt) {
			oldest = item
		}
	}
	if oldest == nil {
		return nil, store.ErrNoPendingItems
	}
	now := time.Now().UTC()
	oldest.Status = domain.QueueItemStatusInProgress
	oldest.Attempts++
	oldest.LastAttemptAt = &now
	oldest.UpdatedAt = now
	cp := *oldest
	return &cp, nil
}

func (m *MockQueueStore) MarkCompleted(ctx context.Context, id uuid.UUID) error {
	if m.MarkCompletedFn != nil {
		return m.MarkCompletedFn(ctx, id)
	}
	return m.transition(id, domain.QueueItemStatusInProgress, domain.QueueItemStatusCompleted, "", false)
}

func (m *MockQueueStore) MarkFailed(ctx context.Context, id uuid.UUID, errorMessage string) error {
	if m.MarkFailedFn != nil {
		return m.MarkFailedFn(ctx, id, errorMessage)
	}
	return m.transition(id, domain.QueueItemStatusInProgress, domain.QueueItemStatusFailed, errorMessage, false)
}

func (m *MockQueueStore) ReleaseToPending(ctx context.Context, id uuid.UUID, errorMessage string) error {
	if m.ReleaseToPendingFn != nil {
		return m.ReleaseToPendingFn(ctx, id, errorMessage)
	}
	return m.transition(id, domain.QueueItemStatusInProgress, domain.QueueItemStatusPending, errorMessage, false)
}

func (m *MockQueueStore) GetStalled(ctx context.Context, olderThan time.Duration) ([]*domain.QueueItem, error) {
	if m.GetStalledFn != nil {
		return m.GetStalledFn(ctx, olderThan)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cutoff := time.Now().UTC().Add(-olderThan)
	result := make([]*domain.QueueItem, 0)
	for _, item := range m.items {
		if item.Status != domain.QueueItemStatusInProgress {
			continue
		}
		if item.LastAttemptAt != nil && item.LastAttemptAt.Before(cutoff) {
			cp := *item
			result = append(result, &cp)
		}
	}
	return result, nil
}

func (m *MockQueueStore) ResetStalled(ctx context.Context, id uuid.UUID) error {
	return m.transition(id, domain.QueueItemStatusInProgress, domain.QueueItemStatusPending, "", true)
}

func (m *MockQueueStore) FailStalled(ctx context.Context, id uuid.UUID, errorMessage string) error {
	return m.transition(id, domain.QueueItemStatusInProgress, domain.QueueItemStatusFailed, errorMessage, false)
}

func (m *MockQueueStore) ReadmitFailed(ctx context.Context, maxAttempts int) (int, error) {
	if m.ReadmitFailedFn != nil {
		return m.ReadmitFailedFn(ctx, maxAttempts)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, item := range m.items {
		if item.Status == domain.QueueItemStatusFailed && item.Attempts < maxAttempts {
			item.Status = domain.QueueItemStatusPending
			item.ErrorMessage = ""
			item.UpdatedAt = time.Now().UTC()
			count++
		}
	}
	return count, nil
}

func (m *MockQueueStore) WithTx(tx *sql.Tx) store.QueueStore {
	return m
}

// transition applies a conditional status update, mirroring the real
// store's "0 rows updated means not found" behavior.
func (m *MockQueueStore) transition(id uuid.UUID, from, to domain.QueueItemStatus, errorMessage string, bumpAttempts bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.items[id]
	if !ok || item.Status != from {
		return store.ErrQueueItemNotFound
	}
	item.Status = to
	item.ErrorMessage = errorMessage
	if bumpAttempts {
		item.Attempts++
	}
	item.UpdatedAt = time.Now().UTC()
	return nil
}

// MockNewsletterStore implements store.NewsletterStore in memory. When
// Queue is set, MarkGenerated enforces the real store's completion
// condition against it.
type MockNewsletterStore struct {
	mu          sync.Mutex
	newsletters map[uuid.UUID]*domain.Newsletter

	// Queue, when non-nil, backs MarkGenerated's all-items-completed check.
	Queue *MockQueueStore

	GetByIDFn       func(ctx context.Context, id uuid.UUID) (*domain.Newsletter, error)
	MarkGeneratedFn func(ctx context.Context, id uuid.UUID) (bool, error)
	MarkDraftSentFn func(ctx context.Context, id uuid.UUID, sentAt time.Time) error
}

var _ store.NewsletterStore = (*MockNewsletterStore)(nil)

// NewMockNewsletterStore creates an empty MockNewsletterStore.
func NewMockNewsletterStore() *MockNewsletterStore {
	return &MockNewsletterStore{newsletters: make(map[uuid.UUID]*domain.Newsletter)}
}

// Put seeds the store with a copy of the given newsletter.
func (m *MockNewsletterStore) Put(n *domain.Newsletter) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *n
	m.newsletters[n.ID] = &cp
}

// Get returns a copy of the stored newsletter, or nil if absent.
func (m *MockNewsletterStore) Get(id uuid.UUID) *domain.Newsletter {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.newsletters[id]
	if !ok {
		return nil
	}
	cp := *n
	return &cp
}

func (m *MockNewsletterStore) Create(ctx context.Context, newsletter *domain.Newsletter) error {
	m.Put(newsletter)
	return nil
}

func (m *MockNewsletterStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Newsletter, error) {
	if m.GetByIDFn != nil {
		return m.GetByIDFn(ctx, id)
	}
	n := m.Get(id)
	if n == nil {
		return nil, store.ErrNewsletterNotFound
	}
	return n, nil
}

func (m *MockNewsletterStore) MarkGenerated(ctx context.Context, id uuid.UUID) (bool, error) {
	if m.MarkGeneratedFn != nil {
		return m.MarkGeneratedFn(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.newsletters[id]
	if !ok {
		return false, store.ErrNewsletterNotFound
	}
	if n.Status != domain.NewsletterStatusGenerating {
		return false, nil
	}
	if m.Queue != nil {
		items, _ := m.Queue.GetByNewsletter(ctx, id)
		for _, item := range items {
			if item.Status != domain.QueueItemStatusCompleted {
				return false, nil
			}
		}
	}
	n.Status = domain.NewsletterStatusGenerated
	n.UpdatedAt = time.Now().UTC()
	return true, nil
}

func (m *MockNewsletterStore) MarkDraftSent(ctx context.Context, id uuid.UUID, sentAt time.Time) error {
	if m.MarkDraftSentFn != nil {
		return m.MarkDraftSentFn(ctx, id, sentAt)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.newsletters[id]
	if !ok {
		return store.ErrNewsletterNotFound
	}
	n.Status = domain.NewsletterStatusDraftSent
	n.SentAt = &sentAt
	n.ErrorMessage = ""
	n.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *MockNewsletterStore) MarkSendFailed(ctx context.Context, id uuid.UUID, errorMessage string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.newsletters[id]
	if !ok {
		return store.ErrNewsletterNotFound
	}
	n.Status = domain.NewsletterStatusSendFailed
	n.ErrorMessage = errorMessage
	n.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *MockNewsletterStore) WithTx(tx *sql.Tx) store.NewsletterStore {
	return m
}

// MockCompanyStore implements store.CompanyStore in memory.
type MockCompanyStore struct {
	mu        sync.Mutex
	companies map[uuid.UUID]*domain.Company

	GetByIDFn func(ctx context.Context, id uuid.UUID) (*domain.Company, error)
}

var _ store.CompanyStore = (*MockCompanyStore)(nil)

// NewMockCompanyStore creates an empty MockCompanyStore.
func NewMockCompanyStore() *MockCompanyStore {
	return &MockCompanyStore{companies: make(map[uuid.UUID]*domain.Company)}
}

// Put seeds the store with a copy of the given company.
func (m *MockCompanyStore) Put(c *domain.Company) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *c
	m.companies[c.ID] = &cp
}

func (m *MockCompanyStore) Create(ctx context.Context, company *domain.Company) error {
	m.Put(company)
	return nil
}

func (m *MockCompanyStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Company, error) {
	if m.GetByIDFn != nil {
		return m.GetByIDFn(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.companies[id]
	if !ok {
		return nil, store.ErrCompanyNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *MockCompanyStore) WithTx(tx *sql.Tx) store.CompanyStore {
	return m
}

// MockSectionStore implements store.SectionStore in memory, keyed by
// (newsletter, section number) the way the real upsert is.
type MockSectionStore struct {
	mu       sync.Mutex
	sections map[sectionKey]*domain.NewsletterSection

	UpsertFn          func(ctx context.Context, section *domain.NewsletterSection) error
	GetByNewsletterFn func(ctx context.Context, newsletterID uuid.UUID) ([]*domain.NewsletterSection, error)
}

type sectionKey struct {
	newsletterID  uuid.UUID
	sectionNumber int
}

var _ store.SectionStore = (*MockSectionStore)(nil)

// NewMockSectionStore creates an empty MockSectionStore.
func NewMockSectionStore() *MockSectionStore {
	return &MockSectionStore{sections: make(map[sectionKey]*domain.NewsletterSection)}
}

func (m *MockSectionStore) Upsert(ctx context.Context, section *domain.NewsletterSection) error {
	if m.UpsertFn != nil {
		return m.UpsertFn(ctx, section)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *section
	m.sections[sectionKey{section.NewsletterID, section.SectionNumber}] = &cp
	return nil
}

func (m *MockSectionStore) GetByNewsletter(ctx context.Context, newsletterID uuid.UUID) ([]*domain.NewsletterSection, error) {
	if m.GetByNewsletterFn != nil {
		return m.GetByNewsletterFn(ctx, newsletterID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]*domain.NewsletterSection, 0)
	for key, s := range m.sections {
		if key.newsletterID == newsletterID {
			cp := *s
			result = append(result, &cp)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].SectionNumber < result[j].SectionNumber
	})
	return result, nil
}

func (m *MockSectionStore) WithTx(tx *sql.Tx) store.SectionStore {
	return m
}
