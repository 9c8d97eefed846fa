package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/draftwire/newsletter-api/internal/api/shared"
	"github.com/draftwire/newsletter-api/internal/domain"
	"github.com/draftwire/newsletter-api/internal/queue"
	"github.com/draftwire/newsletter-api/internal/store"
)

// QueueInitializer seeds the generation queue for a newsletter.
type QueueInitializer interface {
	Initialize(ctx context.Context, newsletterID uuid.UUID) error
}

// ProgressReader aggregates generation progress for a newsletter.
type ProgressReader interface {
	Progress(ctx context.Context, newsletterID uuid.UUID) (*queue.Progress, error)
}

// GenerateResponse is returned when generation is accepted.
type GenerateResponse struct {
	NewsletterID string `json:"newsletter_id"`
	Status       string `json:"status"`
}

// ProgressResponse wraps the aggregated progress with the newsletter's
// own status, so pollers can tell a finished run from a failed send.
type ProgressResponse struct {
	NewsletterID string  `json:"newsletter_id"`
	Status       string  `json:"status"`
	ErrorMessage string  `json:"error_message,omitempty"`
	Total        int     `json:"total"`
	Completed    int     `json:"completed"`
	Failed       int     `json:"failed"`
	InProgress   int     `json:"inProgress"`
	Percentage   float64 `json:"percentage"`

	QueueItems []*domain.QueueItem         `json:"queueItems"`
	Sections   []*domain.NewsletterSection `json:"sections"`
}

// NewsletterHandler handles newsletter generation HTTP requests.
type NewsletterHandler struct {
	newsletters store.NewsletterStore
	initializer QueueInitializer
	progress    ProgressReader
}

// NewNewsletterHandler creates a new NewsletterHandler.
func NewNewsletterHandler(
	newsletters store.NewsletterStore,
	initializer QueueInitializer,
	progress ProgressReader,
) *NewsletterHandler {
	return &NewsletterHandler{
		newsletters: newsletters,
		initializer: initializer,
		progress:    progress,
	}
}

// GenerateNewsletter handles POST /api/newsletters/{id}/generate requests.
// It seeds the queue and returns 202; the worker picks the items up
// asynchronously. Repeating the request is safe.
func (h *NewsletterHandler) GenerateNewsletter(w http.ResponseWriter, r *http.Request) {
	newsletter, ok := h.resolveNewsletter(w, r)
	if !ok {
		return
	}

	if err := h.initializer.Initialize(r.Context(), newsletter.ID); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError,
			"Failed to start newsletter generation", err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusAccepted, GenerateResponse{
		NewsletterID: newsletter.ID.String(),
		Status:       string(newsletter.Status),
	})
}

// GetProgress handles GET /api/newsletters/{id}/progress requests.
func (h *NewsletterHandler) GetProgress(w http.ResponseWriter, r *http.Request) {
	newsletter, ok := h.resolveNewsletter(w, r)
	if !ok {
		return
	}

	p, err := h.progress.Progress(r.Context(), newsletter.ID)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError,
			"Failed to load newsletter progress", err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, ProgressResponse{
		NewsletterID: newsletter.ID.String(),
		Status:       string(newsletter.Status),
		ErrorMessage: newsletter.ErrorMessage,
		Total:        p.Total,
		Completed:    p.Completed,
		Failed:       p.Failed,
		InProgress:   p.InProgress,
		Percentage:   p.Percentage,
		QueueItems:   p.QueueItems,
		Sections:     p.Sections,
	})
}

// resolveNewsletter parses the {id} path parameter and loads the
// newsletter, writing the error response itself when either step fails.
func (h *NewsletterHandler) resolveNewsletter(w http.ResponseWriter, r *http.Request) (*domain.Newsletter, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid newsletter ID")
		return nil, false
	}

	newsletter, err := h.newsletters.GetByID(r.Context(), id)
	if err != nil {
		if store.IsNotFoundError(err) {
			shared.RespondWithError(w, r, http.StatusNotFound, "Newsletter not found")
			return nil, false
		}
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError,
			"Failed to load newsletter", err)
		return nil, false
	}
	return newsletter, true
}
