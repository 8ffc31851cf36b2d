package memory

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Provider converts text to vector embeddings. Implementations:
// mock.Provider (deterministic, offline) and openai.Provider (API-based).
//
// Provider failures are treated as transient; EmbeddingService retries them
// per policy. Providers should return raw errors and leave retry decisions
// to the service.
type Provider interface {
	// Generate converts a single text to an embedding vector.
	Generate(ctx context.Context, text string) ([]float32, error)

	// GenerateBatch converts several texts in one call. The result has one
	// vector per input, in order.
	GenerateBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the embedding vector size.
	Dimensions() int
}

// RetryConfig controls the embedding service's retry behaviour.
type RetryConfig struct {
	// MaxRetries is the number of additional attempts after the first
	// failure. Default: 3.
	MaxRetries int

	// InitialDelay is the backoff before the first retry. Default: 500ms.
	InitialDelay time.Duration

	// BackoffFactor multiplies the delay after every failed attempt.
	// Default: 2.
	BackoffFactor float64
}

// DefaultRetryConfig returns the default retry policy.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:    3,
		InitialDelay:  500 * time.Millisecond,
		BackoffFactor: 2,
	}
}

// EmbeddingService wraps a Provider with input normalization, exponential
// backoff retry, and cooperative cancellation. It performs no caching and no
// deduplication of identical texts.
type EmbeddingService struct {
	provider Provider
	cfg      RetryConfig
	log      *zap.Logger

	// sleep waits for d or until ctx is cancelled. Swapped in tests to
	// observe the delay sequence without waiting.
	sleep func(ctx context.Context, d time.Duration) error
}

// EmbeddingOption configures an EmbeddingService.
type EmbeddingOption func(*EmbeddingService)

// WithRetryConfig overrides the default retry policy.
func WithRetryConfig(cfg RetryConfig) EmbeddingOption {
	return func(s *EmbeddingService) {
		s.cfg = cfg
	}
}

// WithEmbeddingLogger sets the service logger.
func WithEmbeddingLogger(log *zap.Logger) EmbeddingOption {
	return func(s *EmbeddingService) {
		s.log = log
	}
}

// NewEmbeddingService creates an embedding service over the given provider.
func NewEmbeddingService(provider Provider, opts ...EmbeddingOption) *EmbeddingService {
	s := &EmbeddingService{
		provider: provider,
		cfg:      DefaultRetryConfig(),
		sleep:    sleepCtx,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	if s.cfg.MaxRetries < 0 {
		s.cfg.MaxRetries = 0
	}
	if s.cfg.BackoffFactor <= 0 {
		s.cfg.BackoffFactor = 1
	}
	return s
}

// Dimensions returns the provider's embedding vector size.
func (s *EmbeddingService) Dimensions() int {
	return s.provider.Dimensions()
}

// Generate embeds a single text. The text is trimmed first; empty input
// fails with ErrValidation before any provider call.
func (s *EmbeddingService) Generate(ctx context.Context, text string) ([]float32, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: text must not be empty", ErrValidation)
	}

	var vec []float32
	err := s.withRetry(ctx, "generate", func() error {
		var genErr error
		vec, genErr = s.provider.Generate(ctx, text)
		return genErr
	})
	if err != nil {
		return nil, err
	}
	return vec, nil
}

// GenerateBatch embeds several texts in one provider call. Every text is
// trimmed; any empty input fails the whole batch with ErrValidation.
func (s *EmbeddingService) GenerateBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	trimmed := make([]string, len(texts))
	for i, t := range texts {
		t = strings.TrimSpace(t)
		if t == "" {
			return nil, fmt.Errorf("%w: text %d must not be empty", ErrValidation, i)
		}
		trimmed[i] = t
	}

	var vecs [][]float32
	err := s.withRetry(ctx, "generate_batch", func() error {
		var genErr error
		vecs, genErr = s.provider.GenerateBatch(ctx, trimmed)
		return genErr
	})
	if err != nil {
		return nil, err
	}
	return vecs, nil
}

// withRetry runs call with up to cfg.MaxRetries additional attempts and
// exponential backoff. Cancellation is checked between attempts; a cancelled
// context fails immediately with ErrAborted instead of sleeping further.
// After exhausting retries the last provider error is returned; if the loop
// somehow captured none, a generic *ProviderError is.
func (s *EmbeddingService) withRetry(ctx context.Context, op string, call func() error) error {
	delay := s.cfg.InitialDelay
	var lastErr error

	for attempt := 0; attempt <= s.cfg.MaxRetries; attempt++ {
		if err := call(); err == nil {
			return nil
		} else {
			lastErr = err
		}

		if attempt == s.cfg.MaxRetries {
			break
		}

		s.log.Warn("embedding attempt failed, retrying",
			zap.String("op", op),
			zap.Int("attempt", attempt+1),
			zap.Duration("delay", delay),
			zap.Error(lastErr))

		if err := s.sleep(ctx, delay); err != nil {
			return fmt.Errorf("%w: %v", ErrAborted, err)
		}
		delay = time.Duration(float64(delay) * s.cfg.BackoffFactor)
	}

	if lastErr == nil {
		return &ProviderError{Op: op}
	}
	return fmt.Errorf("embedding %s failed after %d attempts: %w", op, s.cfg.MaxRetries+1, lastErr)
}

// sleepCtx waits for d, or returns the context error if cancelled first.
// A context cancelled before the call returns immediately without sleeping.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
