package memory

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// Config holds Service configuration.
type Config struct {
	// AutoEmbed generates an embedding from Content on create when the node
	// carries none and an embedding service is configured. Default: true.
	AutoEmbed bool
}

// DefaultConfig returns sensible Service defaults.
var DefaultConfig = &Config{
	AutoEmbed: true,
}

// Service is the orchestration layer: it composes a Store with an optional
// EmbeddingService and owns create/update/search semantics. All other
// operations pass through to the store unchanged.
//
// A Service is caller-owned; construct one per engine instance with
// NewService. It holds no global state.
type Service struct {
	store     Store
	embedding *EmbeddingService
	cfg       *Config
	log       *zap.Logger
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithEmbedding wires an embedding service for auto-generation and text
// search. Without one, text search fails with ErrConfiguration.
func WithEmbedding(es *EmbeddingService) ServiceOption {
	return func(s *Service) {
		s.embedding = es
	}
}

// WithConfig overrides the default configuration.
func WithConfig(cfg *Config) ServiceOption {
	return func(s *Service) {
		if cfg != nil {
			s.cfg = cfg
		}
	}
}

// WithLogger sets the service logger.
func WithLogger(log *zap.Logger) ServiceOption {
	return func(s *Service) {
		s.log = log
	}
}

// NewService creates a Service over the given store.
func NewService(store Store, opts ...ServiceOption) *Service {
	s := &Service{
		store: store,
		cfg:   DefaultConfig,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	return s
}

// Embedding returns the wired embedding service, or nil.
func (s *Service) Embedding() *EmbeddingService {
	return s.embedding
}

// Create persists a new node. When the node has no embedding, AutoEmbed is
// enabled, and an embedding service is configured, the embedding is
// generated synchronously from Content first; otherwise the node is
// persisted as given.
func (s *Service) Create(ctx context.Context, node *Node) (*Node, error) {
	if node == nil {
		return nil, fmt.Errorf("%w: node must not be nil", ErrValidation)
	}
	if strings.TrimSpace(node.Content) == "" {
		return nil, fmt.Errorf("%w: content must not be empty", ErrValidation)
	}
	if strings.TrimSpace(node.EntityID) == "" {
		return nil, fmt.Errorf("%w: entity id must not be empty", ErrValidation)
	}

	if node.Embedding == nil && s.cfg.AutoEmbed && s.embedding != nil {
		vec, err := s.embedding.Generate(ctx, node.Content)
		if err != nil {
			return nil, fmt.Errorf("auto-embed content: %w", err)
		}
		node = node.Clone()
		node.Embedding = vec
	}

	created, err := s.store.Create(ctx, node)
	if err != nil {
		return nil, err
	}
	s.log.Debug("node created",
		zap.String("id", created.ID),
		zap.String("entity_id", created.EntityID),
		zap.Bool("embedded", created.Embedding != nil))
	return created, nil
}

// Update applies a partial update. When Content changes and no replacement
// embedding is explicitly provided, the embedding is regenerated from the
// new content before delegating to the store.
func (s *Service) Update(ctx context.Context, id string, update NodeUpdate) (*Node, error) {
	if update.Content != nil && update.Embedding == nil && s.embedding != nil {
		vec, err := s.embedding.Generate(ctx, *update.Content)
		if err != nil {
			return nil, fmt.Errorf("re-embed content: %w", err)
		}
		update.Embedding = &vec
	}

	updated, err := s.store.Update(ctx, id, update)
	if err != nil {
		return nil, err
	}
	s.log.Debug("node updated", zap.String("id", updated.ID))
	return updated, nil
}

// Query is a search input: either free text to be embedded, or an embedding
// vector to search with directly. Vector takes precedence when both are set.
type Query struct {
	Text   string
	Vector []float32
}

// Search runs a vector similarity search over the entity's nodes. A text
// query requires a configured embedding service; its absence fails with
// ErrConfiguration synchronously, before any provider or backend call.
func (s *Service) Search(ctx context.Context, entityID string, q Query, limit int, threshold float64) ([]*Node, error) {
	vec := q.Vector
	if vec == nil {
		if s.embedding == nil {
			return nil, fmt.Errorf("%w: text search requires an embedding service", ErrConfiguration)
		}
		var err error
		vec, err = s.embedding.Generate(ctx, q.Text)
		if err != nil {
			return nil, fmt.Errorf("embed query: %w", err)
		}
	}

	results, err := s.store.VectorSearch(ctx, entityID, vec, limit, threshold)
	if err != nil {
		return nil, err
	}
	s.log.Debug("vector search",
		zap.String("entity_id", entityID),
		zap.Int("results", len(results)))
	return results, nil
}

// Get passes through to the store.
func (s *Service) Get(ctx context.Context, id string) (*Node, error) {
	return s.store.Get(ctx, id)
}

// Delete passes through to the store. Cascading edge cleanup is the
// mutation layer's responsibility, not the service's.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.store.Delete(ctx, id)
}

// ListByEntity passes through to the store.
func (s *Service) ListByEntity(ctx context.Context, entityID string) ([]*Node, error) {
	return s.store.ListByEntity(ctx, entityID)
}

// Connected passes through to the store.
func (s *Service) Connected(ctx context.Context, fromID string, depth int) ([]*Node, error) {
	return s.store.Connected(ctx, fromID, depth)
}

// ConnectedFromMany passes through to the store.
func (s *Service) ConnectedFromMany(ctx context.Context, fromIDs []string, depth int) ([]*Node, error) {
	return s.store.ConnectedFromMany(ctx, fromIDs, depth)
}

// SetOutgoingEdges passes through to the store.
func (s *Service) SetOutgoingEdges(ctx context.Context, id string, edges []string) error {
	return s.store.SetOutgoingEdges(ctx, id, edges)
}

// SetEmbedding passes through to the store.
func (s *Service) SetEmbedding(ctx context.Context, id string, embedding []float32) error {
	return s.store.SetEmbedding(ctx, id, embedding)
}
