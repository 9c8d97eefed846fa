package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"net/http"
	"text/template"
	"time"

	"google.golang.org/genai"

	"github.com/draftwire/newsletter-api/internal/config"
	"github.com/draftwire/newsletter-api/internal/generation"
)

// GeminiGenerator implements the generation.SectionGenerator interface
// using Google's Gemini API to generate newsletter section content.
type GeminiGenerator struct {
	// logger is used for structured logging
	logger *slog.Logger

	// config contains LLM-specific configuration
	config config.LLMConfig

	// promptTemplate is the parsed template for creating prompts
	promptTemplate *template.Template

	// client is the Gemini API client for making requests
	client *genai.Client

	// model is the name of the Gemini model to use
	model string
}

// NewGeminiGenerator creates a new instance of GeminiGenerator with the
// provided dependencies. Returns an error if the configuration is
// invalid or the client cannot be constructed.
func NewGeminiGenerator(
	ctx context.Context,
	logger *slog.Logger,
	cfg config.LLMConfig,
) (*GeminiGenerator, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("%w: gemini API key cannot be empty", generation.ErrInvalidConfig)
	}

	if cfg.ModelName == "" {
		return nil, fmt.Errorf("%w: model name cannot be empty", generation.ErrInvalidConfig)
	}

	promptTemplate, err := template.New("section").Parse(sectionPromptTemplate)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse prompt template: %v",
			generation.ErrInvalidConfig, err)
	}

	clientConfig := &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	}

	client, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create Gemini client: %v",
			generation.ErrInvalidConfig, err)
	}

	return &GeminiGenerator{
		logger:         logger,
		config:         cfg,
		promptTemplate: promptTemplate,
		client:         client,
		model:          cfg.ModelName,
	}, nil
}

// Ensure GeminiGenerator implements generation.SectionGenerator
var _ generation.SectionGenerator = (*GeminiGenerator)(nil)

// GenerateSection produces the content for one newsletter section.
//
// It builds the per-type prompt from the company context, calls the
// Gemini API with retry, and maps the structured response into a
// generation.SectionContent. Rate-limit rejections surface as
// generation.ErrRateLimited so the worker can re-admit the item with
// delay instead of burning its attempt budget.
func (g *GeminiGenerator) GenerateSection(
	ctx context.Context,
	req generation.SectionRequest,
) (*generation.SectionContent, error) {
	prompt, err := g.createPrompt(ctx, req)
	if err != nil {
		return nil, err
	}

	response, err := g.callGeminiWithRetry(ctx, prompt)
	if err != nil {
		return nil, err
	}

	if response.Title == "" {
		return nil, fmt.Errorf("%w: section missing title", generation.ErrInvalidResponse)
	}

	if response.Content == "" {
		return nil, fmt.Errorf("%w: section missing content", generation.ErrInvalidResponse)
	}

	g.logger.InfoContext(ctx, "section generated",
		"section_type", req.SectionType,
		"title_length", len(response.Title),
		"content_length", len(response.Content))

	return &generation.SectionContent{
		Title:    response.Title,
		Content:  response.Content,
		ImageURL: response.ImageURL,
	}, nil
}

// createPrompt renders the prompt template for the request's section type.
func (g *GeminiGenerator) createPrompt(
	ctx context.Context,
	req generation.SectionRequest,
) (string, error) {
	if req.CompanyName == "" {
		return "", ErrEmptyCompanyName
	}

	instruction, ok := sectionInstructions[req.SectionType]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownSectionType, req.SectionType)
	}

	data := promptData{
		Instruction:         instruction,
		CompanyName:         req.CompanyName,
		Industry:            req.Industry,
		TargetAudience:      req.TargetAudience,
		AudienceDescription: req.AudienceDescription,
	}

	var promptBuffer bytes.Buffer
	if err := g.promptTemplate.Execute(&promptBuffer, data); err != nil {
		return "", fmt.Errorf("failed to execute prompt template: %w", err)
	}

	g.logger.DebugContext(ctx, "prompt generated",
		"section_type", req.SectionType,
		"prompt_length", promptBuffer.Len())

	return promptBuffer.String(), nil
}

// callGeminiWithRetry makes a call to the Gemini API with exponential
// backoff retry logic.
//
// Transient errors are retried up to config.MaxRetries times with
// exponential backoff and jitter. Permanent errors (content blocked,
// malformed response) and rate-limit rejections are returned
// immediately without retrying; rate limits are the worker's to pace.
func (g *GeminiGenerator) callGeminiWithRetry(
	ctx context.Context,
	prompt string,
) (*ResponseSchema, error) {
	maxRetries := g.config.MaxRetries
	baseDelaySeconds := g.config.RetryDelaySeconds
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	if maxRetries < 0 {
		g.logger.WarnContext(ctx, "invalid max retries value, using default", "max_retries", 3)
		maxRetries = 3
	}

	if baseDelaySeconds < 1 {
		g.logger.WarnContext(ctx, "invalid retry delay value, using default", "base_delay_seconds", 2)
		baseDelaySeconds = 2
	}

	generateConfig := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	}

	for attempt := 0; ; attempt++ {
		attemptNum := attempt + 1
		g.logger.DebugContext(ctx, "making Gemini API call",
			"attempt", attemptNum,
			"max_attempts", maxRetries+1)

		response, err := g.generateOnce(ctx, prompt, generateConfig)
		if err == nil {
			return response, nil
		}

		g.logger.ErrorContext(ctx, "Gemini API call failed",
			"attempt", attemptNum,
			"error", err)

		// Rate limits and permanent errors are not retried here.
		if errors.Is(err, generation.ErrRateLimited) ||
			errors.Is(err, generation.ErrContentBlocked) ||
			errors.Is(err, generation.ErrInvalidResponse) {
			return nil, err
		}

		if attempt >= maxRetries {
			return nil, fmt.Errorf("%w: exceeded maximum retry attempts (%d)",
				generation.ErrTransientFailure, maxRetries)
		}

		// Exponential backoff with jitter:
		// delay = baseDelay * (2^attempt) * (0.5 + rand(0, 0.5))
		backoffSeconds := float64(baseDelaySeconds) * math.Pow(2, float64(attempt))
		jitterFactor := 0.5 + rng.Float64()*0.5
		delay := time.Duration(backoffSeconds * jitterFactor * float64(time.Second))

		g.logger.InfoContext(ctx, "retrying Gemini call after delay",
			"attempt", attemptNum,
			"delay", delay)

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %v", generation.ErrTransientFailure, ctx.Err())
		}
	}
}

// generateOnce performs a single Gemini call and classifies its outcome.
func (g *GeminiGenerator) generateOnce(
	ctx context.Context,
	prompt string,
	generateConfig *genai.GenerateContentConfig,
) (*ResponseSchema, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), generateConfig)
	if err != nil {
		var apiErr genai.APIError
		if errors.As(err, &apiErr) && apiErr.Code == http.StatusTooManyRequests {
			return nil, fmt.Errorf("%w: %v", generation.ErrRateLimited, err)
		}
		return nil, fmt.Errorf("%w: %v", generation.ErrTransientFailure, err)
	}

	if resp == nil || len(resp.Candidates) == 0 {
		return nil, fmt.Errorf("%w: no content generated", generation.ErrInvalidResponse)
	}

	candidate := resp.Candidates[0]
	if candidate.FinishReason == genai.FinishReasonSafety {
		return nil, fmt.Errorf("%w: blocked by safety filters", generation.ErrContentBlocked)
	}

	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return nil, fmt.Errorf("%w: empty content in response", generation.ErrInvalidResponse)
	}

	text := ""
	for _, part := range candidate.Content.Parts {
		text += part.Text
	}

	return parseResponse(text)
}

// parseResponse decodes the model's JSON output into a ResponseSchema.
func parseResponse(text string) (*ResponseSchema, error) {
	var parsed ResponseSchema
	if err := json.Unmarshal([]byte(text), &parsed); err != nil {
		return nil, fmt.Errorf("%w: failed to parse JSON response: %v",
			generation.ErrInvalidResponse, err)
	}
	return &parsed, nil
}
