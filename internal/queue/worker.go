package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/draftwire/newsletter-api/internal/domain"
	"github.com/draftwire/newsletter-api/internal/generation"
	"github.com/draftwire/newsletter-api/internal/platform/logger"
	"github.com/draftwire/newsletter-api/internal/store"
)

// stallErrorMessage is recorded on items abandoned past their attempt
// budget; pollers surface it verbatim.
const stallErrorMessage = "Operation timed out"

// releaseTimeout bounds the store call that returns a claimed item to
// pending during graceful shutdown, when the run context is already gone.
const releaseTimeout = 5 * time.Second

// WorkerConfig holds the tuning knobs for the queue worker.
type WorkerConfig struct {
	// MaxAttempts is the per-item attempt budget. An item that fails
	// with attempts at or past this value stays failed permanently.
	MaxAttempts int

	// StallTimeout is how long an item may sit in_progress before it is
	// presumed abandoned and swept back to pending (or to failed, when
	// its attempt budget is spent).
	StallTimeout time.Duration

	// PollInterval is the sleep between passes when the queue is empty.
	PollInterval time.Duration

	// ErrorCooldown is the pause taken after MaxConsecutiveErrors
	// loop-level failures, giving a broken dependency time to recover.
	ErrorCooldown time.Duration

	// MaxConsecutiveErrors is how many loop-level failures in a row
	// trigger the cooldown.
	MaxConsecutiveErrors int

	// GenerationTimeout bounds a single generation attempt.
	GenerationTimeout time.Duration
}

// DefaultWorkerConfig returns the worker defaults; config loading starts
// from these and environment overrides are applied on top.
func DefaultWorkerConfig() WorkerConfig {
	return WorkerConfig{
		MaxAttempts:          3,
		StallTimeout:         15 * time.Minute,
		PollInterval:         10 * time.Second,
		ErrorCooldown:        5 * time.Minute,
		MaxConsecutiveErrors: 5,
		GenerationTimeout:    2 * time.Minute,
	}
}

// CompletionNotifier is invoked exactly once per newsletter, by whichever
// worker completes the final section and wins the generated promotion.
type CompletionNotifier interface {
	// OnNewsletterGenerated assembles and delivers the draft for the
	// given newsletter. Implementations record their own delivery
	// outcome on the newsletter; the worker only logs the error.
	OnNewsletterGenerated(ctx context.Context, newsletterID uuid.UUID) error
}

// Worker is the queue's single polling loop. Each pass sweeps stalled
// items, re-admits retryable failures, then claims and processes the
// oldest pending item. Multiple workers can run against the same
// database; the conditional claim keeps them from colliding.
type Worker struct {
	items       store.QueueStore
	newsletters store.NewsletterStore
	companies   store.CompanyStore
	sections    store.SectionStore
	generator   generation.SectionGenerator
	notifier    CompletionNotifier
	cfg         WorkerConfig
	logger      *slog.Logger
}

// NewWorker creates a Worker. Zero-valued config fields fall back to the
// defaults from DefaultWorkerConfig.
func NewWorker(
	items store.QueueStore,
	newsletters store.NewsletterStore,
	companies store.CompanyStore,
	sections store.SectionStore,
	generator generation.SectionGenerator,
	notifier CompletionNotifier,
	cfg WorkerConfig,
	log *slog.Logger,
) *Worker {
	def := DefaultWorkerConfig()
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = def.MaxAttempts
	}
	if cfg.StallTimeout <= 0 {
		cfg.StallTimeout = def.StallTimeout
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = def.PollInterval
	}
	if cfg.ErrorCooldown <= 0 {
		cfg.ErrorCooldown = def.ErrorCooldown
	}
	if cfg.MaxConsecutiveErrors <= 0 {
		cfg.MaxConsecutiveErrors = def.MaxConsecutiveErrors
	}
	if cfg.GenerationTimeout <= 0 {
		cfg.GenerationTimeout = def.GenerationTimeout
	}
	if log == nil {
		log = slog.Default()
	}
	return &Worker{
		items:       items,
		newsletters: newsletters,
		companies:   companies,
		sections:    sections,
		generator:   generator,
		notifier:    notifier,
		cfg:         cfg,
		logger:      log.With(slog.String("component", "queue_worker")),
	}
}

// Run executes the polling loop until ctx is canceled. It always returns
// nil on shutdown; an item claimed mid-drain is released back to pending
// first so no work is stranded in_progress.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Info("queue worker started",
		slog.Duration("poll_interval", w.cfg.PollInterval),
		slog.Duration("stall_timeout", w.cfg.StallTimeout),
		slog.Int("max_attempts", w.cfg.MaxAttempts))

	consecutiveErrors := 0
	for {
		if ctx.Err() != nil {
			w.logger.Info("queue worker stopped")
			return nil
		}

		processed, err := w.runPass(ctx)
		switch {
		case err != nil && ctx.Err() != nil:
			w.logger.Info("queue worker stopped")
			return nil
		case err != nil:
			consecutiveErrors++
			w.logger.Error("queue pass failed",
				slog.String("error", err.Error()),
				slog.Int("consecutive_errors", consecutiveErrors))
			if consecutiveErrors >= w.cfg.MaxConsecutiveErrors {
				w.logger.Warn("too many consecutive errors, entering cooldown",
					slog.Duration("cooldown", w.cfg.ErrorCooldown))
				if !sleepCtx(ctx, w.cfg.ErrorCooldown) {
					w.logger.Info("queue worker stopped")
					return nil
				}
				consecutiveErrors = 0
			} else if !sleepCtx(ctx, w.cfg.PollInterval) {
				w.logger.Info("queue worker stopped")
				return nil
			}
		case !processed:
			consecutiveErrors = 0
			if !sleepCtx(ctx, w.cfg.PollInterval) {
				w.logger.Info("queue worker stopped")
				return nil
			}
		default:
			// An item was processed; look for the next one immediately.
			consecutiveErrors = 0
		}
	}
}

// runPass performs one loop iteration: stall sweep, failed re-admission,
// then at most one claim-and-process. The bool reports whether the loop
// should look for more work immediately; a rate-limited attempt reports
// false so the worker waits a poll interval before claiming again.
// Errors from processing an individual item never surface here; they
// are persisted on the item instead.
func (w *Worker) runPass(ctx context.Context) (bool, error) {
	if err := w.recoverStalled(ctx); err != nil {
		return false, fmt.Errorf("stall recovery failed: %w", err)
	}

	readmitted, err := w.items.ReadmitFailed(ctx, w.cfg.MaxAttempts)
	if err != nil {
		return false, fmt.Errorf("failed item re-admission failed: %w", err)
	}
	if readmitted > 0 {
		w.logger.Info("re-admitted failed items", slog.Int("count", readmitted))
	}

	item, err := w.items.ClaimNextPending(ctx)
	if errors.Is(err, store.ErrNoPendingItems) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("claim failed: %w", err)
	}

	backoff := w.processItem(ctx, item)
	return !backoff, nil
}

// recoverStalled sweeps in_progress items older than StallTimeout.
// Items with attempt budget left go back to pending with the stall
// counted as an attempt; the rest are failed with a timeout message.
func (w *Worker) recoverStalled(ctx context.Context) error {
	stalled, err := w.items.GetStalled(ctx, w.cfg.StallTimeout)
	if err != nil {
		return err
	}
	if len(stalled) == 0 {
		return nil
	}

	var reset, failed int
	for _, it := range stalled {
		if it.Attempts < w.cfg.MaxAttempts {
			if err := w.items.ResetStalled(ctx, it.ID); err != nil {
				// Another worker may have swept it first; that is fine.
				if errors.Is(err, store.ErrQueueItemNotFound) {
					continue
				}
				return err
			}
			reset++
			continue
		}
		if err := w.items.FailStalled(ctx, it.ID, stallErrorMessage); err != nil {
			if errors.Is(err, store.ErrQueueItemNotFound) {
				continue
			}
			return err
		}
		failed++
	}

	w.logger.Warn("recovered stalled items",
		slog.Int("reset_to_pending", reset),
		slog.Int("failed_permanently", failed))
	return nil
}

// processItem runs one generation attempt for a claimed item and
// persists the outcome. It never returns an error; every failure mode
// becomes a status transition on the item. The bool reports whether the
// attempt hit a rate limit, in which case the caller should back off
// instead of claiming the released item straight back.
func (w *Worker) processItem(ctx context.Context, item *domain.QueueItem) bool {
	log := w.logger.With(
		slog.String("item_id", item.ID.String()),
		slog.String("newsletter_id", item.NewsletterID.String()),
		slog.String("section_type", string(item.SectionType)),
		slog.Int("attempt", item.Attempts))
	log.Info("processing queue item")

	ctx = logger.WithLogger(ctx, log)

	genCtx, cancel := context.WithTimeout(ctx, w.cfg.GenerationTimeout)
	defer cancel()

	section, err := w.generateSection(genCtx, item)
	if err != nil {
		w.handleAttemptFailure(ctx, item, err, log)
		return generation.IsRateLimited(err)
	}

	if err := w.sections.Upsert(ctx, section); err != nil {
		w.handleAttemptFailure(ctx, item,
			fmt.Errorf("failed to persist section: %w", err), log)
		return false
	}

	if err := w.items.MarkCompleted(ctx, item.ID); err != nil {
		// The stall sweep or another worker already moved the item; the
		// section upsert is idempotent so nothing is lost.
		log.Error("failed to mark item completed", slog.String("error", err.Error()))
		return false
	}

	log.Info("queue item completed", slog.Int("section_number", item.SectionNumber))
	w.checkNewsletterComplete(ctx, item.NewsletterID, log)
	return false
}

// generateSection resolves the item's newsletter and company, then calls
// the generator and shapes the result into a persistable section.
func (w *Worker) generateSection(ctx context.Context, item *domain.QueueItem) (*domain.NewsletterSection, error) {
	newsletter, err := w.newsletters.GetByID(ctx, item.NewsletterID)
	if err != nil {
		return nil, fmt.Errorf("failed to load newsletter: %w", err)
	}

	company, err := w.companies.GetByID(ctx, newsletter.CompanyID)
	if err != nil {
		return nil, fmt.Errorf("failed to load company: %w", err)
	}

	content, err := w.generator.GenerateSection(ctx, generation.SectionRequest{
		SectionType:         item.SectionType,
		CompanyName:         company.Name,
		Industry:            company.Industry,
		TargetAudience:      company.TargetAudience,
		AudienceDescription: company.AudienceDescription,
	})
	if err != nil {
		return nil, err
	}

	section, err := domain.NewNewsletterSection(
		item.NewsletterID,
		item.SectionNumber,
		item.SectionType,
		content.Title,
		content.Content,
		content.ImageURL,
	)
	if err != nil {
		return nil, fmt.Errorf("generated section failed validation: %w", err)
	}
	return section, nil
}

// handleAttemptFailure routes a failed attempt to the right transition:
// release on shutdown, release on rate limit, fail otherwise.
func (w *Worker) handleAttemptFailure(ctx context.Context, item *domain.QueueItem, attemptErr error, log *slog.Logger) {
	if ctx.Err() != nil {
		// Graceful drain. The run context is gone, so release the item
		// on a short background deadline.
		rctx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
		defer cancel()
		if err := w.items.ReleaseToPending(rctx, item.ID, "worker shutting down"); err != nil {
			log.Error("failed to release item during shutdown", slog.String("error", err.Error()))
			return
		}
		log.Info("released claimed item for shutdown")
		return
	}

	if generation.IsRateLimited(attemptErr) {
		// A 429 says nothing about this item, so it does not consume
		// attempt budget.
		if err := w.items.ReleaseToPending(ctx, item.ID, attemptErr.Error()); err != nil {
			log.Error("failed to release rate-limited item", slog.String("error", err.Error()))
			return
		}
		log.Warn("rate limited, item re-admitted to pending")
		return
	}

	if err := w.items.MarkFailed(ctx, item.ID, attemptErr.Error()); err != nil {
		log.Error("failed to mark item failed", slog.String("error", err.Error()))
		return
	}

	if item.Attempts >= w.cfg.MaxAttempts {
		log.Error("queue item failed permanently",
			slog.String("error", attemptErr.Error()),
			slog.Int("max_attempts", w.cfg.MaxAttempts))
	} else {
		log.Warn("queue item attempt failed, will retry",
			slog.String("error", attemptErr.Error()))
	}
}

// checkNewsletterComplete attempts the generating-to-generated promotion
// and, for the single caller that wins it, fires the completion notifier.
func (w *Worker) checkNewsletterComplete(ctx context.Context, newsletterID uuid.UUID, log *slog.Logger) {
	promoted, err := w.newsletters.MarkGenerated(ctx, newsletterID)
	if err != nil {
		log.Error("completion check failed", slog.String("error", err.Error()))
		return
	}
	if !promoted {
		return
	}

	log.Info("newsletter fully generated")
	if w.notifier == nil {
		return
	}
	if err := w.notifier.OnNewsletterGenerated(ctx, newsletterID); err != nil {
		// The notifier records the delivery outcome on the newsletter
		// itself; nothing further to transition here.
		log.Error("completion notifier failed", slog.String("error", err.Error()))
	}
}

// sleepCtx sleeps for d unless ctx is canceled first. It reports whether
// the full sleep elapsed.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
