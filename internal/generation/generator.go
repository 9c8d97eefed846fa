package generation

import (
	"context"

	"github.com/draftwire/newsletter-api/internal/domain"
)

// SectionRequest carries the company and newsletter context a single
// section-generation call needs. TargetAudience and AudienceDescription
// are optional; the prompt degrades gracefully without them.
type SectionRequest struct {
	SectionType         domain.SectionType
	CompanyName         string
	Industry            string
	TargetAudience      string
	AudienceDescription string
}

// SectionContent is the result of a successful generation call. ImageURL
// is optional; it is empty when no image accompanies the section.
type SectionContent struct {
	Title    string
	Content  string
	ImageURL string
}

// SectionGenerator defines the interface for generating newsletter
// section content. It serves as the boundary between the queue worker
// and external AI services.
type SectionGenerator interface {
	// GenerateSection produces the content for one section based on the
	// request context. It returns a SectionContent or an error if
	// generation fails (see errors.go for the specific types the worker
	// distinguishes).
	GenerateSection(ctx context.Context, req SectionRequest) (*SectionContent, error)
}
