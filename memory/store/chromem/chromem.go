// Package chromem provides a Store backed by chromem-go, a pure Go embedded
// vector database. chromem answers vector candidate retrieval; an in-process
// node table is authoritative for graph and CRUD reads, and the final
// similarity scores come from memory.Similarity01 so ranking is identical to
// every other backend.
package chromem

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	chromem "github.com/philippgille/chromem-go"
	"go.uber.org/zap"

	"github.com/becomeliminal/memgraph-go/memory"
)

// Store wraps a chromem DB with per-entity collections.
type Store struct {
	db          *chromem.DB
	collections map[string]*chromem.Collection // entity id -> collection
	nodes       map[string]*memory.Node
	byEntity    map[string][]string
	mu          sync.RWMutex
	log         *zap.Logger
}

// New creates a chromem-backed store.
func New(log *zap.Logger) (*Store, error) {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{
		db:          chromem.NewDB(),
		collections: make(map[string]*chromem.Collection),
		nodes:       make(map[string]*memory.Node),
		byEntity:    make(map[string][]string),
		log:         log,
	}, nil
}

// getOrCreateCollection returns the collection for an entity. Each entity
// gets its own collection for namespace isolation.
func (s *Store) getOrCreateCollection(entityID string) (*chromem.Collection, error) {
	s.mu.RLock()
	col, exists := s.collections[entityID]
	s.mu.RUnlock()
	if exists {
		return col, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Double-check after acquiring the write lock.
	if col, exists := s.collections[entityID]; exists {
		return col, nil
	}

	col, err := s.db.CreateCollection(
		fmt.Sprintf("entity_%s", entityID),
		nil, // no collection metadata
		nil, // embeddings are provided, no embedding func
	)
	if err != nil {
		return nil, &memory.ProviderError{Op: "chromem.create_collection", Err: err}
	}
	s.collections[entityID] = col
	return col, nil
}

// indexNode upserts the node's document into its entity collection. Nodes
// without an embedding are not indexed.
func (s *Store) indexNode(ctx context.Context, node *memory.Node) error {
	if node.Embedding == nil {
		return nil
	}
	col, err := s.getOrCreateCollection(node.EntityID)
	if err != nil {
		return err
	}
	// Remove any previous version first; AddDocument does not upsert.
	_ = col.Delete(ctx, nil, nil, node.ID)
	doc := chromem.Document{
		ID:        node.ID,
		Content:   node.Content,
		Embedding: node.Embedding,
		Metadata: map[string]string{
			"entity_id": node.EntityID,
		},
	}
	if err := col.AddDocument(ctx, doc); err != nil {
		return &memory.ProviderError{Op: "chromem.add_document", Err: err}
	}
	return nil
}

// Create persists a new node, assigning id and timestamps, and indexes it
// when it carries an embedding.
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
	if _, exists := s.nodes[stored.ID]; exists {
		s.mu.Unlock()
		return nil, &memory.ProviderError{Op: fmt.Sprintf("chromem.create: duplicate id %s", stored.ID)}
	}
	s.nodes[stored.ID] = stored
	s.byEntity[stored.EntityID] = append(s.byEntity[stored.EntityID], stored.ID)
	s.mu.Unlock()

	if err := s.indexNode(ctx, stored); err != nil {
		return nil, err
	}
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

// Update applies a partial update, bumps UpdatedAt, and re-indexes when the
// content or embedding changed.
func (s *Store) Update(ctx context.Context, id string, update memory.NodeUpdate) (*memory.Node, error) {
	s.mu.Lock()
	node, ok := s.nodes[id]
	if !ok {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", memory.ErrNotFound, id)
	}
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
	updated := node.Clone()
	s.mu.Unlock()

	if update.Content != nil || update.Embedding != nil {
		if err := s.indexNode(ctx, updated); err != nil {
			return nil, err
		}
	}
	return updated, nil
}

// Delete removes the node and its index document.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	node, ok := s.nodes[id]
	if !ok {
		s.mu.Unlock()
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
	col := s.collections[node.EntityID]
	s.mu.Unlock()

	if col != nil && node.Embedding != nil {
		if err := col.Delete(ctx, nil, nil, id); err != nil {
			return &memory.ProviderError{Op: "chromem.delete", Err: err}
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

// VectorSearch asks chromem for candidates, then rescores them with the
// shared similarity function and applies the inclusive threshold.
func (s *Store) VectorSearch(ctx context.Context, entityID string, embedding []float32, limit int, threshold float64) ([]*memory.Node, error) {
	col, err := s.getOrCreateCollection(entityID)
	if err != nil {
		return nil, err
	}

	// chromem requires nResults <= collection size.
	n := limit
	if count := col.Count(); n > count || n <= 0 {
		n = count
	}
	if n == 0 {
		return nil, nil
	}

	results, err := col.QueryEmbedding(ctx, embedding, n, nil, nil)
	if err != nil {
		return nil, &memory.ProviderError{Op: "chromem.query", Err: err}
	}

	var matches []*memory.Node
	s.mu.RLock()
	for _, res := range results {
		node, ok := s.nodes[res.ID]
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
	s.log.Debug("vector search",
		zap.String("entity_id", entityID),
		zap.Int("candidates", len(results)),
		zap.Int("matches", len(matches)))
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

// SetEmbedding replaces the node's embedding and re-indexes it.
func (s *Store) SetEmbedding(ctx context.Context, id string, embedding []float32) error {
	_, err := s.Update(ctx, id, memory.NodeUpdate{Embedding: &embedding})
	return err
}

// Close releases resources. chromem keeps everything in memory.
func (s *Store) Close() error {
	return nil
}
