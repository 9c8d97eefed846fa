package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// NewsletterStatus represents the lifecycle state of a newsletter
type NewsletterStatus string

// Possible newsletter status values
const (
	// NewsletterStatusGenerating means queue items exist and the worker
	// is still producing sections.
	NewsletterStatusGenerating NewsletterStatus = "generating"

	// NewsletterStatusGenerated means every section completed; the draft
	// send is in flight or about to be.
	NewsletterStatusGenerated NewsletterStatus = "generated"

	// NewsletterStatusDraftSent means the draft email was delivered to
	// the review recipient.
	NewsletterStatusDraftSent NewsletterStatus = "draft_sent"

	// NewsletterStatusSendFailed means all sections completed but the
	// draft email could not be delivered. Queue items are left intact.
	NewsletterStatusSendFailed NewsletterStatus = "send_failed"
)

// Common validation errors for Newsletter
var (
	ErrEmptyNewsletterID        = errors.New("newsletter ID cannot be empty")
	ErrEmptyNewsletterCompanyID = errors.New("newsletter company ID cannot be empty")
	ErrEmptyNewsletterSubject   = errors.New("newsletter subject cannot be empty")
	ErrInvalidNewsletterStatus  = errors.New("invalid newsletter status")
)

// Newsletter represents one issue being generated for a company. Its
// status aggregates the state of the per-section queue items.
type Newsletter struct {
	ID           uuid.UUID        `json:"id"`
	CompanyID    uuid.UUID        `json:"company_id"`
	Subject      string           `json:"subject"`
	Status       NewsletterStatus `json:"status"`
	ErrorMessage string           `json:"error_message,omitempty"`
	SentAt       *time.Time       `json:"sent_at,omitempty"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

// NewNewsletter creates a Newsletter in the generating state for the
// given company. Returns an error if validation fails.
func NewNewsletter(companyID uuid.UUID, subject string) (*Newsletter, error) {
	now := time.Now().UTC()
	n := &Newsletter{
		ID:        uuid.New(),
		CompanyID: companyID,
		Subject:   subject,
		Status:    NewsletterStatusGenerating,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := n.Validate(); err != nil {
		return nil, err
	}

	return n, nil
}

// Validate checks if the Newsletter has valid data.
func (n *Newsletter) Validate() error {
	if n.ID == uuid.Nil {
		return ErrEmptyNewsletterID
	}

	if n.CompanyID == uuid.Nil {
		return ErrEmptyNewsletterCompanyID
	}

	if n.Subject == "" {
		return ErrEmptyNewsletterSubject
	}

	if !isValidNewsletterStatus(n.Status) {
		return ErrInvalidNewsletterStatus
	}

	return nil
}

// isValidNewsletterStatus checks if the given status is a valid NewsletterStatus.
func isValidNewsletterStatus(status NewsletterStatus) bool {
	switch status {
	case NewsletterStatusGenerating, NewsletterStatusGenerated,
		NewsletterStatusDraftSent, NewsletterStatusSendFailed:
		return true
	default:
		return false
	}
}
