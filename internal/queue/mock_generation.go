package queue

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/draftwire/newsletter-api/internal/generation"
)

// MockSectionGenerator implements generation.SectionGenerator for
// testing. The default behavior returns canned content derived from the
// request; set GenerateFn to script failures.
type MockSectionGenerator struct {
	mu       sync.Mutex
	requests []generation.SectionRequest

	GenerateFn func(ctx context.Context, req generation.SectionRequest) (*generation.SectionContent, error)
}

var _ generation.SectionGenerator = (*MockSectionGenerator)(nil)

// NewMockSectionGenerator creates a MockSectionGenerator.
func NewMockSectionGenerator() *MockSectionGenerator {
	return &MockSectionGenerator{}
}

func (m *MockSectionGenerator) GenerateSection(ctx context.Context, req generation.SectionRequest) (*generation.SectionContent, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()
	if m.GenerateFn != nil {
		return m.GenerateFn(ctx, req)
	}
	return &generation.SectionContent{
		Title:   fmt.Sprintf("%s for %s", req.SectionType, req.CompanyName),
		Content: fmt.Sprintf("Generated %s content.\n\nSecond paragraph.", req.SectionType),
	}, nil
}

// Requests returns a copy of every request seen so far.
func (m *MockSectionGenerator) Requests() []generation.SectionRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]generation.SectionRequest, len(m.requests))
	copy(out, m.requests)
	return out
}

// SentEmail records one call to MockEmailSender.Send.
type SentEmail struct {
	To       string
	Subject  string
	HTMLBody string
}

// MockEmailSender implements EmailSender for testing.
type MockEmailSender struct {
	mu   sync.Mutex
	sent []SentEmail

	SendFn func(ctx context.Context, to, subject, htmlBody string) (string, error)
}

var _ EmailSender = (*MockEmailSender)(nil)

// NewMockEmailSender creates a MockEmailSender.
func NewMockEmailSender() *MockEmailSender {
	return &MockEmailSender{}
}

func (m *MockEmailSender) Send(ctx context.Context, to, subject, htmlBody string) (string, error) {
	m.mu.Lock()
	m.sent = append(m.sent, SentEmail{To: to, Subject: subject, HTMLBody: htmlBody})
	m.mu.Unlock()
	if m.SendFn != nil {
		return m.SendFn(ctx, to, subject, htmlBody)
	}
	return "mock-message-id", nil
}

// Sent returns a copy of every email sent so far.
func (m *MockEmailSender) Sent() []SentEmail {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]SentEmail, len(m.sent))
	copy(out, m.sent)
	return out
}

// MockCompletionNotifier implements CompletionNotifier for testing,
// recording each newsletter it is notified about.
type MockCompletionNotifier struct {
	mu       sync.Mutex
	notified []uuid.UUID

	NotifyFn func(ctx context.Context, newsletterID uuid.UUID) error
}

var _ CompletionNotifier = (*MockCompletionNotifier)(nil)

// NewMockCompletionNotifier creates a MockCompletionNotifier.
func NewMockCompletionNotifier() *MockCompletionNotifier {
	return &MockCompletionNotifier{}
}

func (m *MockCompletionNotifier) OnNewsletterGenerated(ctx context.Context, newsletterID uuid.UUID) error {
	m.mu.Lock()
	m.notified = append(m.notified, newsletterID)
	m.mu.Unlock()
	if m.NotifyFn != nil {
		return m.NotifyFn(ctx, newsletterID)
	}
	return nil
}

// Notified returns a copy of the newsletter IDs notified so far.
func (m *MockCompletionNotifier) Notified() []uuid.UUID {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]uuid.UUID, len(m.notified))
	copy(out, m.notified)
	return out
}
