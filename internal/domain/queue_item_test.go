package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewQueueItem(t *testing.T) {
	t.Parallel()

	newsletterID := uuid.New()
	item, err := NewQueueItem(newsletterID, SectionTypeWelcome, 1)
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, item.ID)
	assert.Equal(t, newsletterID, item.NewsletterID)
	assert.Equal(t, QueueItemStatusPending, item.Status)
	assert.Equal(t, 0, item.Attempts)
	assert.Nil(t, item.LastAttemptAt)
	assert.False(t, item.CreatedAt.IsZero())
}

func TestNewQueueItemValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		newsletterID  uuid.UUID
		sectionType   SectionType
		sectionNumber int
		wantErr       error
	}{
		{
			name:          "nil newsletter ID",
			newsletterID:  uuid.Nil,
			sectionType:   SectionTypeWelcome,
			sectionNumber: 1,
			wantErr:       ErrEmptyQueueItemNewsletterID,
		},
		{
			name:          "unknown section type",
			newsletterID:  uuid.New(),
			sectionType:   SectionType("editorial"),
			sectionNumber: 1,
			wantErr:       ErrInvalidSectionType,
		},
		{
			name:          "zero section number",
			newsletterID:  uuid.New(),
			sectionType:   SectionTypeWelcome,
			sectionNumber: 0,
			wantErr:       ErrInvalidSectionNumber,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewQueueItem(tt.newsletterID, tt.sectionType, tt.sectionNumber)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestQueueItemIsTerminal(t *testing.T) {
	t.Parallel()

	const maxAttempts = 3

	item, err := NewQueueItem(uuid.New(), SectionTypeWelcome, 1)
	require.NoError(t, err)

	assert.False(t, item.IsTerminal(maxAttempts), "pending is not terminal")

	item.Status = QueueItemStatusCompleted
	assert.True(t, item.IsTerminal(maxAttempts))

	item.Status = QueueItemStatusFailed
	item.Attempts = 2
	assert.False(t, item.IsTerminal(maxAttempts), "failed with attempts left is retryable")

	item.Attempts = maxAttempts
	assert.True(t, item.IsTerminal(maxAttempts))
}

func TestRequiredSectionTypesOrdering(t *testing.T) {
	t.Parallel()

	// The draft renders sections in this order; the ordering is part of
	// the product, not an implementation detail.
	assert.Equal(t, []SectionType{
		SectionTypeWelcome,
		SectionTypeIndustryTrends,
		SectionTypePracticalTips,
	}, RequiredSectionTypes)

	for _, sectionType := range RequiredSectionTypes {
		assert.True(t, IsValidSectionType(sectionType))
	}
	assert.False(t, IsValidSectionType(SectionType("")))
}

func TestNewsletterValidation(t *testing.T) {
	t.Parallel()

	n, err := NewNewsletter(uuid.New(), "October Issue")
	require.NoError(t, err)
	assert.Equal(t, NewsletterStatusGenerating, n.Status)

	_, err = NewNewsletter(uuid.Nil, "October Issue")
	assert.ErrorIs(t, err, ErrEmptyNewsletterCompanyID)

	_, err = NewNewsletter(uuid.New(), "")
	assert.ErrorIs(t, err, ErrEmptyNewsletterSubject)
}

func TestNewsletterSectionValidation(t *testing.T) {
	t.Parallel()

	s, err := NewNewsletterSection(uuid.New(), 2, SectionTypeIndustryTrends, "Trends", "Body text.", "")
	require.NoError(t, err)
	assert.Equal(t, 2, s.SectionNumber)

	_, err = NewNewsletterSection(uuid.New(), 1, SectionTypeWelcome, "Welcome", "", "")
	assert.ErrorIs(t, err, ErrEmptySectionContent)

	_, err = NewNewsletterSection(uuid.Nil, 1, SectionTypeWelcome, "Welcome", "Hi.", "")
	assert.ErrorIs(t, err, ErrEmptySectionNewsletterID)
}
