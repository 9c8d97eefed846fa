package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// QueueItemStatus represents the processing state of a queue item
type QueueItemStatus string

// Possible queue item status values
const (
	QueueItemStatusPending    QueueItemStatus = "pending"
	QueueItemStatusInProgress QueueItemStatus = "in_progress"
	QueueItemStatusCompleted  QueueItemStatus = "completed"
	QueueItemStatusFailed     QueueItemStatus = "failed"
)

// SectionType identifies which newsletter section a queue item generates.
// The set is closed: each type maps to a fixed ordinal position within
// the newsletter.
type SectionType string

// Possible section type values
const (
	SectionTypeWelcome        SectionType = "welcome"
	SectionTypeIndustryTrends SectionType = "industry_trends"
	SectionTypePracticalTips  SectionType = "practical_tips"
)

// RequiredSectionTypes lists every section a newsletter needs, in the
// order the sections appear in the final draft. Section numbers are
// assigned from this ordering (1-based).
var RequiredSectionTypes = []SectionType{
	SectionTypeWelcome,
	SectionTypeIndustryTrends,
	SectionTypePracticalTips,
}

// Common validation errors for QueueItem
var (
	ErrEmptyQueueItemID           = errors.New("queue item ID cannot be empty")
	ErrEmptyQueueItemNewsletterID = errors.New("queue item newsletter ID cannot be empty")
	ErrInvalidQueueItemStatus     = errors.New("invalid queue item status")
	ErrInvalidSectionType         = errors.New("invalid section type")
	ErrInvalidSectionNumber       = errors.New("section number must be positive")
	ErrNegativeAttempts           = errors.New("attempt count cannot be negative")
)

// QueueItem is one persisted unit of newsletter-generation work: a single
// section of a single newsletter. Items are created pending by the
// initializer and advanced through the status machine by the worker.
type QueueItem struct {
	ID            uuid.UUID       `json:"id"`
	NewsletterID  uuid.UUID       `json:"newsletter_id"`
	SectionType   SectionType     `json:"section_type"`
	SectionNumber int             `json:"section_number"`
	Status        QueueItemStatus `json:"status"`
	Attempts      int             `json:"attempts"`
	ErrorMessage  string          `json:"error_message,omitempty"`
	LastAttemptAt *time.Time      `json:"last_attempt_at,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// NewQueueItem creates a pending QueueItem for the given newsletter and
// section. It generates a new UUID, zeroes the attempt counter, and sets
// the lifecycle timestamps. Returns an error if validation fails.
func NewQueueItem(newsletterID uuid.UUID, sectionType SectionType, sectionNumber int) (*QueueItem, error) {
	now := time.Now().UTC()
	item := &QueueItem{
		ID:            uuid.New(),
		NewsletterID:  newsletterID,
		SectionType:   sectionType,
		SectionNumber: sectionNumber,
		Status:        QueueItemStatusPending,
		Attempts:      0,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := item.Validate(); err != nil {
		return nil, err
	}

	return item, nil
}

// Validate checks if the QueueItem has valid data.
// Returns an error if any field fails validation.
func (q *QueueItem) Validate() error {
	if q.ID == uuid.Nil {
		return ErrEmptyQueueItemID
	}

	if q.NewsletterID == uuid.Nil {
		return ErrEmptyQueueItemNewsletterID
	}

	if !IsValidSectionType(q.SectionType) {
		return ErrInvalidSectionType
	}

	if q.SectionNumber < 1 {
		return ErrInvalidSectionNumber
	}

	if !isValidQueueItemStatus(q.Status) {
		return ErrInvalidQueueItemStatus
	}

	if q.Attempts < 0 {
		return ErrNegativeAttempts
	}

	return nil
}

// IsTerminal reports whether the item is in a state the worker will not
// pick up again on its own: completed, or failed with the attempt budget
// spent.
func (q *QueueItem) IsTerminal(maxAttempts int) bool {
	if q.Status == QueueItemStatusCompleted {
		return true
	}
	return q.Status == QueueItemStatusFailed && q.Attempts >= maxAttempts
}

// IsValidSectionType checks if the given type is in the closed section
// type set.
func IsValidSectionType(t SectionType) bool {
	switch t {
	case SectionTypeWelcome, SectionTypeIndustryTrends, SectionTypePracticalTips:
		return true
	default:
		return false
	}
}

// isValidQueueItemStatus checks if the given status is a valid QueueItemStatus.
func isValidQueueItemStatus(status QueueItemStatus) bool {
	switch status {
	case QueueItemStatusPending, QueueItemStatusInProgress,
		QueueItemStatusCompleted, QueueItemStatusFailed:
		return true
	default:
		return false
	}
}
