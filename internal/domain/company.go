package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Common validation errors for Company
var (
	ErrEmptyCompanyID       = errors.New("company ID cannot be empty")
	ErrEmptyCompanyName     = errors.New("company name cannot be empty")
	ErrEmptyCompanyIndustry = errors.New("company industry cannot be empty")
	ErrEmptyContactEmail    = errors.New("company contact email cannot be empty")
)

// Company holds the onboarding profile newsletter generation draws on.
// TargetAudience and AudienceDescription are optional free-text fields;
// the generator degrades gracefully when they are missing.
type Company struct {
	ID                  uuid.UUID `json:"id"`
	Name                string    `json:"name"`
	Industry            string    `json:"industry"`
	TargetAudience      string    `json:"target_audience,omitempty"`
	AudienceDescription string    `json:"audience_description,omitempty"`
	ContactEmail        string    `json:"contact_email"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// Validate checks if the Company has valid data.
func (c *Company) Validate() error {
	if c.ID == uuid.Nil {
		return ErrEmptyCompanyID
	}

	if c.Name == "" {
		return ErrEmptyCompanyName
	}

	if c.Industry == "" {
		return ErrEmptyCompanyIndustry
	}

	if c.ContactEmail == "" {
		return ErrEmptyContactEmail
	}

	return nil
}
