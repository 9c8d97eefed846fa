package gemini

import "errors"

// Error definitions for the gemini package.
var (
	// ErrEmptyCompanyName is returned when a request carries no company name.
	ErrEmptyCompanyName = errors.New("company name cannot be empty")

	// ErrUnknownSectionType is returned when a request names a section
	// type with no registered prompt.
	ErrUnknownSectionType = errors.New("no prompt registered for section type")
)
