package queue

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/draftwire/newsletter-api/internal/domain"
	"github.com/draftwire/newsletter-api/internal/store"
)

// EmailSender delivers a composed draft. Implementations return a
// provider message ID on success.
type EmailSender interface {
	Send(ctx context.Context, to, subject, htmlBody string) (string, error)
}

// draftTemplate renders the assembled newsletter draft. Section content
// arrives as plain text; splitting on blank lines keeps the original
// paragraph structure in the HTML.
var draftTemplate = template.Must(template.New("draft").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"></head>
<body style="font-family: Arial, sans-serif; max-width: 640px; margin: 0 auto; padding: 16px;">
<h1>{{.Subject}}</h1>
{{range .Sections}}<h2>{{.Title}}</h2>
{{if .ImageURL}}<img src="{{.ImageURL}}" alt="{{.Title}}" style="max-width: 100%;">
{{end}}{{range .Paragraphs}}<p>{{.}}</p>
{{end}}{{end}}<hr>
<p style="color: #888; font-size: 12px;">Draft prepared for {{.CompanyName}}. Review before sending to subscribers.</p>
</body>
</html>
`))

type draftSectionView struct {
	Title      string
	ImageURL   string
	Paragraphs []string
}

type draftView struct {
	Subject     string
	CompanyName string
	Sections    []draftSectionView
}

// CompletionTrigger assembles the finished newsletter into an HTML draft
// and emails it to the company's contact address. It records the
// delivery outcome on the newsletter itself.
type CompletionTrigger struct {
	newsletters store.NewsletterStore
	companies   store.CompanyStore
	sections    store.SectionStore
	sender      EmailSender
	logger      *slog.Logger
}

var _ CompletionNotifier = (*CompletionTrigger)(nil)

// NewCompletionTrigger creates a CompletionTrigger with the given
// dependencies.
func NewCompletionTrigger(
	newsletters store.NewsletterStore,
	companies store.CompanyStore,
	sections store.SectionStore,
	sender EmailSender,
	logger *slog.Logger,
) *CompletionTrigger {
	if logger == nil {
		logger = slog.Default()
	}
	return &CompletionTrigger{
		newsletters: newsletters,
		companies:   companies,
		sections:    sections,
		sender:      sender,
		logger:      logger.With(slog.String("component", "completion_trigger")),
	}
}

// OnNewsletterGenerated composes and sends the draft for a newsletter
// whose sections have all completed. Any failure after the generated
// promotion is recorded as send_failed so pollers can surface it; the
// queue items are left untouched.
func (t *CompletionTrigger) OnNewsletterGenerated(ctx context.Context, newsletterID uuid.UUID) error {
	log := t.logger.With(slog.String("newsletter_id", newsletterID.String()))

	newsletter, err := t.newsletters.GetByID(ctx, newsletterID)
	if err != nil {
		return fmt.Errorf("failed to load newsletter: %w", err)
	}

	company, err := t.companies.GetByID(ctx, newsletter.CompanyID)
	if err != nil {
		return t.recordFailure(ctx, newsletterID, log,
			fmt.Errorf("failed to load company: %w", err))
	}

	sections, err := t.sections.GetByNewsletter(ctx, newsletterID)
	if err != nil {
		return t.recordFailure(ctx, newsletterID, log,
			fmt.Errorf("failed to load sections: %w", err))
	}
	if len(sections) == 0 {
		return t.recordFailure(ctx, newsletterID, log,
			fmt.Errorf("newsletter has no generated sections"))
	}

	htmlBody, err := composeDraft(newsletter, company, sections)
	if err != nil {
		return t.recordFailure(ctx, newsletterID, log,
			fmt.Errorf("failed to compose draft: %w", err))
	}

	messageID, err := t.sender.Send(ctx, company.ContactEmail, newsletter.Subject, htmlBody)
	if err != nil {
		return t.recordFailure(ctx, newsletterID, log,
			fmt.Errorf("failed to send draft email: %w", err))
	}

	if err := t.newsletters.MarkDraftSent(ctx, newsletterID, time.Now().UTC()); err != nil {
		// The email went out; only the bookkeeping failed.
		log.Error("failed to record draft delivery", slog.String("error", err.Error()))
		return fmt.Errorf("failed to record draft delivery: %w", err)
	}

	log.Info("draft email sent",
		slog.String("recipient", company.ContactEmail),
		slog.String("message_id", messageID),
		slog.Int("section_count", len(sections)))
	return nil
}

// recordFailure marks the newsletter send_failed with the error message
// and returns the original error for the caller's log.
func (t *CompletionTrigger) recordFailure(ctx context.Context, newsletterID uuid.UUID, log *slog.Logger, cause error) error {
	log.Error("draft delivery failed", slog.String("error", cause.Error()))
	if err := t.newsletters.MarkSendFailed(ctx, newsletterID, cause.Error()); err != nil {
		log.Error("failed to record send failure", slog.String("error", err.Error()))
	}
	return cause
}

// composeDraft renders the sections into the draft HTML, ordered by
// section number regardless of completion order.
func composeDraft(newsletter *domain.Newsletter, company *domain.Company, sections []*domain.NewsletterSection) (string, error) {
	ordered := make([]*domain.NewsletterSection, len(sections))
	copy(ordered, sections)
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].SectionNumber < ordered[j].SectionNumber
	})

	view := draftView{
		Subject:     newsletter.Subject,
		CompanyName: company.Name,
		Sections:    make([]draftSectionView, 0, len(ordered)),
	}
	for _, s := range ordered {
		view.Sections = append(view.Sections, draftSectionView{
			Title:      s.Title,
			ImageURL:   s.ImageURL,
			Paragraphs: splitParagraphs(s.Content),
		})
	}

	var buf bytes.Buffer
	if err := draftTemplate.Execute(&buf, view); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// splitParagraphs breaks plain text on blank lines, dropping empties.
func splitParagraphs(content string) []string {
	raw := strings.Split(strings.ReplaceAll(content, "\r\n", "\n"), "\n\n")
	paragraphs := make([]string, 0, len(raw))
	for _, p := range raw {
		p = strings.TrimSpace(p)
		if p != "" {
			paragraphs = append(paragraphs, p)
		}
	}
	return paragraphs
}
