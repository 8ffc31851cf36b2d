// Package mock provides a deterministic offline embedding provider for
// development and tests.
package mock

import (
	"context"
	"hash/fnv"
	"math"
	"sync"

	"github.com/becomeliminal/memgraph-go/memory"
)

// Provider generates deterministic embeddings from a text hash. The same
// text always yields the same unit vector, so similarity comparisons are
// stable across runs, though not semantically meaningful.
type Provider struct {
	dimensions int

	mu       sync.Mutex
	failures int // remaining scripted failures
	failErr  error
	calls    int
}

// New creates a mock provider with the given vector size.
// Dimension 384 matches all-MiniLM-L6-v2.
func New(dimensions int) *Provider {
	if dimensions <= 0 {
		dimensions = 384
	}
	return &Provider{dimensions: dimensions}
}

// FailNext scripts the next n calls to return err. Used to exercise the
// embedding service's retry policy.
func (p *Provider) FailNext(n int, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failures = n
	p.failErr = err
}

// Calls returns how many Generate/GenerateBatch calls were made.
func (p *Provider) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

func (p *Provider) maybeFail() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if p.failures > 0 {
		p.failures--
		return p.failErr
	}
	return nil
}

// Generate creates a deterministic embedding for the text.
func (p *Provider) Generate(ctx context.Context, text string) ([]float32, error) {
	if err := p.maybeFail(); err != nil {
		return nil, err
	}
	return p.embed(text), nil
}

// GenerateBatch creates one embedding per text in a single call.
func (p *Provider) GenerateBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if err := p.maybeFail(); err != nil {
		return nil, err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = p.embed(t)
	}
	return out, nil
}

// Dimensions returns the embedding size.
func (p *Provider) Dimensions() int {
	return p.dimensions
}

// embed hashes the text and expands the hash into a unit vector with a
// linear congruential generator.
func (p *Provider) embed(text string) []float32 {
	h := fnv.New64a()
	h.Write([]byte(text))
	seed := h.Sum64()

	vec := make([]float32, p.dimensions)
	for i := range vec {
		seed = seed*6364136223846793005 + 1442695040888963407
		vec[i] = float32(int64(seed)) / float32(math.MaxInt64)
	}
	return memory.Normalize(vec)
}
