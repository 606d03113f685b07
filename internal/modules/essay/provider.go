package essay

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/admitlens/core/internal/config"
	"github.com/admitlens/core/internal/models"
)

const (
	// The retry sequence as a whole runs under one deadline: a hung backend
	// cannot stall the request past generateTimeout.
	generateTimeout = 10 * time.Second
	generateRetries = 2
	generateBackoff = 250 * time.Millisecond
	maxOutputTokens = 1200
)

// ErrInvalidFeedback marks backend output that failed schema validation.
// It is not retried: validation runs after the retry/timeout envelope.
var ErrInvalidFeedback = errors.New("provider returned schema-invalid feedback")

// Backend generates a Feedback for an essay. Implementations are untrusted
// with respect to both output shape and latency.
type Backend interface {
	Name() string
	Generate(ctx context.Context, essayText string) (*models.Feedback, error)
}

// Adapter wraps the configured backend in a retry policy and an overall
// timeout, then re-validates the result against the Feedback schema.
type Adapter struct {
	backend Backend
	timeout time.Duration
	retries int
	backoff time.Duration
	logger  *zap.Logger
}

// NewAdapter resolves the configured provider kind into a concrete backend.
// The kind set is closed; config.Load has already rejected unknown values.
func NewAdapter(cfg config.LLMConfig, logger *zap.Logger) (*Adapter, error) {
	backend, err := newBackend(cfg)
	if err != nil {
		return nil, err
	}
	return newAdapter(backend, generateTimeout, generateRetries, generateBackoff, logger), nil
}

func newAdapter(backend Backend, timeout time.Duration, retries int, backoff time.Duration, logger *zap.Logger) *Adapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Adapter{
		backend: backend,
		timeout: timeout,
		retries: retries,
		backoff: backoff,
		logger:  logger,
	}
}

// Name reports the active backend ("openai", "anthropic", "ollama" or
// "fallback"); it is recorded on persisted sessions.
func (a *Adapter) Name() string { return a.backend.Name() }

// Generate produces validated feedback for the essay. On failure the last
// attempt's error is returned; a deadline overrun surfaces as a timeout.
func (a *Adapter) Generate(ctx context.Context, essayText string) (*models.Feedback, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	var fb *models.Feedback
	var lastErr error
	for attempt := 0; attempt <= a.retries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(time.Duration(attempt) * a.backoff):
			case <-ctx.Done():
				return nil, fmt.Errorf("feedback generation timed out: %w", lastErr)
			}
			a.logger.Warn("retrying feedback generation",
				zap.String("backend", a.backend.Name()),
				zap.Int("attempt", attempt+1),
				zap.Error(lastErr))
		}

		result, err := a.backend.Generate(ctx, essayText)
		if err == nil {
			fb = result
			lastErr = nil
			break
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
	}

	if lastErr != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("feedback generation timed out: %w", lastErr)
		}
		return nil, fmt.Errorf("feedback generation failed: %w", lastErr)
	}

	if err := ValidateFeedback(fb); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFeedback, err)
	}
	return fb, nil
}

func newBackend(cfg config.LLMConfig) (Backend, error) {
	switch cfg.Provider {
	case config.ProviderFallback:
		return fallbackBackend{}, nil
	case config.ProviderOpenAI:
		return newOpenAIBackend(cfg)
	case config.ProviderAnthropic:
		return newAnthropicBackend(cfg)
	case config.ProviderOllama:
		return newOllamaBackend(cfg)
	default:
		return nil, fmt.Errorf("unknown provider kind %q", cfg.Provider)
	}
}

// fallbackBackend runs the deterministic analyzer; it never fails.
type fallbackBackend struct{}

func (fallbackBackend) Name() string { return "fallback" }

func (fallbackBackend) Generate(_ context.Context, essayText string) (*models.Feedback, error) {
	return Analyze(essayText), nil
}

func trimJSONFences(raw string) string {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```JSON")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	return strings.TrimSpace(cleaned)
}
