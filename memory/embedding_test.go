package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedProvider fails a scripted number of times before succeeding.
type scriptedProvider struct {
	failures int
	err      error
	calls    int
}

func (p *scriptedProvider) Generate(ctx context.Context, text string) ([]float32, error) {
	p.calls++
	if p.failures > 0 {
		p.failures--
		return nil, p.err
	}
	return []float32{1, 0, 0}, nil
}

func (p *scriptedProvider) GenerateBatch(ctx context.Context, texts []string) ([][]float32, error) {
	p.calls++
	if p.failures > 0 {
		p.failures--
		return nil, p.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0, 0}
	}
	return out, nil
}

func (p *scriptedProvider) Dimensions() int { return 3 }

// recordDelays swaps the service's sleep for one that records requested
// delays and returns immediately.
func recordDelays(svc *EmbeddingService) *[]time.Duration {
	var delays []time.Duration
	svc.sleep = func(ctx context.Context, d time.Duration) error {
		delays = append(delays, d)
		return ctx.Err()
	}
	return &delays
}

func TestGenerateRejectsEmptyText(t *testing.T) {
	provider := &scriptedProvider{}
	svc := NewEmbeddingService(provider)

	_, err := svc.Generate(context.Background(), "   \n\t ")
	require.ErrorIs(t, err, ErrValidation)
	assert.Zero(t, provider.calls, "validation must fail before any provider call")
}

func TestGenerateTrimsText(t *testing.T) {
	provider := &scriptedProvider{}
	svc := NewEmbeddingService(provider)

	vec, err := svc.Generate(context.Background(), "  hello  ")
	require.NoError(t, err)
	assert.Len(t, vec, 3)
	assert.Equal(t, 1, provider.calls)
}

func TestGenerateRetriesWithExponentialBackoff(t *testing.T) {
	provider := &scriptedProvider{failures: 2, err: errors.New("provider down")}
	svc := NewEmbeddingService(provider, WithRetryConfig(RetryConfig{
		MaxRetries:    3,
		InitialDelay:  500 * time.Millisecond,
		BackoffFactor: 2,
	}))
	delays := recordDelays(svc)

	vec, err := svc.Generate(context.Background(), "hello")
	require.NoError(t, err)
	assert.Len(t, vec, 3)
	assert.Equal(t, 3, provider.calls, "should succeed on the 3rd attempt")
	assert.Equal(t, []time.Duration{500 * time.Millisecond, 1000 * time.Millisecond}, *delays)
}

func TestGenerateExhaustsRetries(t *testing.T) {
	cause := errors.New("provider down")
	provider := &scriptedProvider{failures: 10, err: cause}
	svc := NewEmbeddingService(provider, WithRetryConfig(RetryConfig{
		MaxRetries:    2,
		InitialDelay:  time.Millisecond,
		BackoffFactor: 2,
	}))
	recordDelays(svc)

	_, err := svc.Generate(context.Background(), "hello")
	require.ErrorIs(t, err, cause, "the last provider error must surface")
	assert.Equal(t, 3, provider.calls, "1 initial + 2 retries")
}

func TestGenerateAbortsOnCancellation(t *testing.T) {
	provider := &scriptedProvider{failures: 10, err: errors.New("provider down")}
	svc := NewEmbeddingService(provider, WithRetryConfig(RetryConfig{
		MaxRetries:    5,
		InitialDelay:  time.Millisecond,
		BackoffFactor: 2,
	}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Generate(ctx, "hello")
	require.ErrorIs(t, err, ErrAborted)
	assert.Equal(t, 1, provider.calls, "no retries after cancellation")
}

func TestGenerateBatchValidatesEveryText(t *testing.T) {
	provider := &scriptedProvider{}
	svc := NewEmbeddingService(provider)

	_, err := svc.GenerateBatch(context.Background(), []string{"ok", "  "})
	require.ErrorIs(t, err, ErrValidation)
	assert.Zero(t, provider.calls)
}

func TestGenerateBatchEmptyInput(t *testing.T) {
	svc := NewEmbeddingService(&scriptedProvider{})

	vecs, err := svc.GenerateBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, vecs)
}

func TestGenerateBatchRetries(t *testing.T) {
	provider := &scriptedProvider{failures: 1, err: errors.New("flaky")}
	svc := NewEmbeddingService(provider, WithRetryConfig(RetryConfig{
		MaxRetries:    1,
		InitialDelay:  time.Millisecond,
		BackoffFactor: 2,
	}))
	recordDelays(svc)

	vecs, err := svc.GenerateBatch(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	require.Len(t, vecs, 2)
	assert.Equal(t, 2, provider.calls)
}

func TestSimilarity01(t *testing.T) {
	assert.InDelta(t, 1.0, Similarity01([]float32{1, 0}, []float32{1, 0}), 1e-9)
	assert.InDelta(t, 0.5, Similarity01([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.InDelta(t, 0.0, Similarity01([]float32{1, 0}, []float32{-1, 0}), 1e-9)
	assert.Zero(t, Similarity01([]float32{1, 0}, []float32{1, 0, 0}), "mismatched dimensions score 0")
	assert.Zero(t, Similarity01(nil, nil))
}
