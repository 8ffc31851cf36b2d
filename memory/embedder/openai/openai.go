// Package openai provides an embedding provider backed by the OpenAI
// embeddings API (or any OpenAI-compatible endpoint).
package openai

import (
	"context"
	"fmt"
	"os"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/becomeliminal/memgraph-go/memory"
)

const (
	// DefaultModel is the embedding model used when none is configured.
	DefaultModel = openai.EmbeddingModelTextEmbedding3Small

	// DefaultDimensions matches text-embedding-3-small's native size.
	DefaultDimensions = 1536
)

// Provider calls the OpenAI embeddings endpoint. Failures surface raw; the
// embedding service owns the retry policy.
type Provider struct {
	client     openai.Client
	model      openai.EmbeddingModel
	dimensions int
}

// Option configures a Provider.
type Option func(*Provider)

// WithModel sets the embedding model.
func WithModel(model openai.EmbeddingModel) Option {
	return func(p *Provider) {
		p.model = model
	}
}

// WithDimensions requests a specific output dimensionality. Supported by
// the text-embedding-3 family.
func WithDimensions(dims int) Option {
	return func(p *Provider) {
		p.dimensions = dims
	}
}

// New creates an OpenAI embedding provider. An empty apiKey falls back to
// the OPENAI_API_KEY environment variable.
func New(apiKey string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("%w: OpenAI API key is required (parameter or OPENAI_API_KEY)", memory.ErrConfiguration)
	}

	p := &Provider{
		client:     openai.NewClient(option.WithAPIKey(apiKey)),
		model:      DefaultModel,
		dimensions: DefaultDimensions,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Generate embeds a single text.
func (p *Provider) Generate(ctx context.Context, text string) ([]float32, error) {
	vecs, err := p.GenerateBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// GenerateBatch embeds several texts in one API call, preserving order.
func (p *Provider) GenerateBatch(ctx context.Context, texts []string) ([][]float32, error) {
	resp, err := p.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input:      openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
		Model:      p.model,
		Dimensions: openai.Int(int64(p.dimensions)),
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("embeddings response has %d vectors for %d inputs", len(resp.Data), len(texts))
	}

	out := make([][]float32, len(resp.Data))
	for i, d := range resp.Data {
		vec := make([]float32, len(d.Embedding))
		for j, v := range d.Embedding {
			vec[j] = float32(v)
		}
		out[i] = vec
	}
	return out, nil
}

// Dimensions returns the configured embedding size.
func (p *Provider) Dimensions() int {
	return p.dimensions
}
