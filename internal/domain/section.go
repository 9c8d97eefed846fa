package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Common validation errors for NewsletterSection
var (
	ErrEmptySectionID           = errors.New("section ID cannot be empty")
	ErrEmptySectionNewsletterID = errors.New("section newsletter ID cannot be empty")
	ErrEmptySectionContent      = errors.New("section content cannot be empty")
)

// NewsletterSection is one generated block of newsletter content. The
// (NewsletterID, SectionNumber) pair is unique; the worker upserts on
// that key so a retry after partial success overwrites rather than
// duplicates.
type NewsletterSection struct {
	ID            uuid.UUID   `json:"id"`
	NewsletterID  uuid.UUID   `json:"newsletter_id"`
	SectionNumber int         `json:"section_number"`
	SectionType   SectionType `json:"section_type"`
	Title         string      `json:"title"`
	Content       string      `json:"content"`
	ImageURL      string      `json:"image_url,omitempty"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

// NewNewsletterSection creates a section for the given newsletter slot.
// Returns an error if validation fails.
func NewNewsletterSection(
	newsletterID uuid.UUID,
	sectionNumber int,
	sectionType SectionType,
	title string,
	content string,
	imageURL string,
) (*NewsletterSection, error) {
	now := time.Now().UTC()
	s := &NewsletterSection{
		ID:            uuid.New(),
		NewsletterID:  newsletterID,
		SectionNumber: sectionNumber,
		SectionType:   sectionType,
		Title:         title,
		Content:       content,
		ImageURL:      imageURL,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}

	return s, nil
}

// Validate checks if the NewsletterSection has valid data.
func (s *NewsletterSection) Validate() error {
	if s.ID == uuid.Nil {
		return ErrEmptySectionID
	}

	if s.NewsletterID == uuid.Nil {
		return ErrEmptySectionNewsletterID
	}

	if s.SectionNumber < 1 {
		return ErrInvalidSectionNumber
	}

	if !IsValidSectionType(s.SectionType) {
		return ErrInvalidSectionType
	}

	if s.Content == "" {
		return ErrEmptySectionContent
	}

	return nil
}
