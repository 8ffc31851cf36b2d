// Package inmem provides the reference Store implementation: a map-backed,
// mutex-guarded store with linear-scan vector search. It is the baseline the
// other backends are checked against, and the default backend for tests.
package inmem

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/becomeliminal/memgraph-go/memory"
)

// Store keeps all nodes in process memory.
type Store struct {
	mu       sync.RWMutex
	nodes    map[string]*memory.Node
	byEntity map[string][]string // entity id -> node ids, insertion order
	log      *zap.Logger
}

// New creates an empty in-memory store.
func New(log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{
		nodes:    make(map[string]*memory.Node),
		byEntity: make(map[string][]string),
		log:      log,
	}
}

// Create persists a new node, assigning id and timestamps.
func (s *Store) Create(ctx context.Context, node *memory.Node) (*memory.Node, error) {
	stored := node.Clone()
	if stored.ID == "" {
		stored.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	stored.CreatedAt = now
	stored.UpdatedAt = now
	stored.Similarity = 0

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.nodes[stored.ID]; exists {
		return nil, &memory.ProviderError{Op: fmt.Sprintf("inmem.create: duplicate id %s", stored.ID)}
	}
	s.nodes[stored.ID] = stored
	s.byEntity[stored.EntityID] = append(s.byEntity[stored.EntityID], stored.ID)

	s.log.Debug("node stored", zap.String("id", stored.ID), zap.String("entity_id", stored.EntityID))
	return stored.Clone(), nil
}

// Get returns the node with the given id.
func (s *Store) Get(ctx context.Context, id string) (*memory.Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	node, ok := s.nodes[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", memory.ErrNotFound, id)
	}
	return node.Clone(), nil
}

// Update applies a partial update and bumps UpdatedAt.
func (s *Store) Update(ctx context.Context, id string, update memory.NodeUpdate) (*memory.Node, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	node, ok := s.nodes[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", memory.ErrNotFound, id)
	}
	applyUpdate(node, update)
	return node.Clone(), nil
}

// Delete removes the node. Edges elsewhere that target it are untouched.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	node, ok := s.nodes[id]
	if !ok {
		return fmt.Errorf("%w: %s", memory.ErrNotFound, id)
	}
	delete(s.nodes, id)

	ids := s.byEntity[node.EntityID]
	for i, nid := range ids {
		if nid == id {
			s.byEntity[node.EntityID] = append(ids[:i], ids[i+1:]...)
			break
		}
	}
	return nil
}

// ListByEntity returns the entity's nodes in creation order.
func (s *Store) ListByEntity(ctx context.Context, entityID string) ([]*memory.Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.byEntity[entityID]
	out := make([]*memory.Node, 0, len(ids))
	for _, id := range ids {
		if node, ok := s.nodes[id]; ok {
			out = append(out, node.Clone())
		}
	}
	return out, nil
}

// VectorSearch scans the entity's nodes and ranks them by Similarity01.
func (s *Store) VectorSearch(ctx context.Context, entityID string, embedding []float32, limit int, threshold float64) ([]*memory.Node, error) {
	s.mu.RLock()
	var matches []*memory.Node
	for _, id := range s.byEntity[entityID] {
		node, ok := s.nodes[id]
		if !ok || node.Embedding == nil {
			continue
		}
		sim := memory.Similarity01(embedding, node.Embedding)
		if sim < threshold {
			continue
		}
		clone := node.Clone()
		clone.Similarity = sim
		matches = append(matches, clone)
	}
	s.mu.RUnlock()

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Similarity > matches[j].Similarity
	})
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

// Connected returns nodes reachable from fromID within depth hops.
func (s *Store) Connected(ctx context.Context, fromID string, depth int) ([]*memory.Node, error) {
	return memory.Traverse(ctx, s, []string{fromID}, depth)
}

// ConnectedFromMany returns nodes reachable from any start within depth hops.
func (s *Store) ConnectedFromMany(ctx context.Context, fromIDs []string, depth int) ([]*memory.Node, error) {
	return memory.Traverse(ctx, s, fromIDs, depth)
}

// SetOutgoingEdges replaces the node's edge set.
func (s *Store) SetOutgoingEdges(ctx context.Context, id string, edges []string) error {
	_, err := s.Update(ctx, id, memory.NodeUpdate{OutgoingEdges: &edges})
	return err
}

// SetEmbedding replaces the node's embedding.
func (s *Store) SetEmbedding(ctx context.Context, id string, embedding []float32) error {
	_, err := s.Update(ctx, id, memory.NodeUpdate{Embedding: &embedding})
	return err
}

// Close is a no-op; everything lives in process memory.
func (s *Store) Close() error {
	return nil
}

// applyUpdate mutates node in place per the partial update semantics.
func applyUpdate(node *memory.Node, update memory.NodeUpdate) {
	if update.Content != nil {
		node.Content = *update.Content
	}
	if update.Embedding != nil {
		emb := make([]float32, len(*update.Embedding))
		copy(emb, *update.Embedding)
		node.Embedding = emb
	}
	if update.OutgoingEdges != nil {
		edges := make([]string, len(*update.OutgoingEdges))
		copy(edges, *update.OutgoingEdges)
		node.OutgoingEdges = edges
	}
	node.UpdatedAt = time.Now().UTC()
}
