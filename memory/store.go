package memory

import "context"

// Store is the storage adapter contract. Implementations back the engine
// with a concrete data store; the engine layers above add orchestration and
// invariant enforcement.
//
// Obligations on every implementation:
//
//   - Entity isolation: no operation returns or mutates a node of a
//     different EntityID than the one requested or implied by the target
//     node. ListByEntity(E1) never contains a node created under E2.
//   - VectorSearch similarity is cosine similarity rescaled to [0,1]
//     (see Similarity01); threshold is an inclusive lower bound; results are
//     ordered by similarity descending. Backends with native ranking may use
//     it for candidate retrieval, but the reported scores and cutoff must
//     match Similarity01 exactly.
//   - Connected and ConnectedFromMany follow Traverse semantics: depth 0 is
//     the empty set, start nodes are never emitted, each node appears once,
//     and cyclic graphs terminate. Implementations should delegate to
//     Traverse rather than reimplement it.
//
// Errors: ErrNotFound for Get/Update/Delete/SetOutgoingEdges/SetEmbedding on
// a missing id; *ProviderError for backend failures. Stores never retry.
//
// Implementations: inmem.Store (reference, map-backed), chromem.Store
// (chromem-go vector index), badgerstore.Store (persistent BadgerDB).
type Store interface {
	// Create persists a new node, assigning its ID (unless pre-set) and
	// timestamps. Returns the stored node.
	Create(ctx context.Context, node *Node) (*Node, error)

	// Get returns the node with the given id.
	Get(ctx context.Context, id string) (*Node, error)

	// Update applies a partial update and bumps UpdatedAt. ID and EntityID
	// are immutable and not part of NodeUpdate.
	Update(ctx context.Context, id string, update NodeUpdate) (*Node, error)

	// Delete removes the node. It does not touch edges elsewhere that target
	// the node; cascading cleanup is the mutation layer's job.
	Delete(ctx context.Context, id string) error

	// ListByEntity returns every node owned by the entity.
	ListByEntity(ctx context.Context, entityID string) ([]*Node, error)

	// VectorSearch returns up to limit nodes of the entity whose rescaled
	// cosine similarity to embedding is >= threshold, ordered descending,
	// with Similarity populated. Nodes without an embedding are skipped.
	VectorSearch(ctx context.Context, entityID string, embedding []float32, limit int, threshold float64) ([]*Node, error)

	// Connected returns the nodes reachable from fromID within depth hops.
	Connected(ctx context.Context, fromID string, depth int) ([]*Node, error)

	// ConnectedFromMany returns the nodes reachable from any of fromIDs
	// within depth hops, deduplicated across sources.
	ConnectedFromMany(ctx context.Context, fromIDs []string, depth int) ([]*Node, error)

	// SetOutgoingEdges replaces the node's edge set.
	SetOutgoingEdges(ctx context.Context, id string, edges []string) error

	// SetEmbedding replaces the node's embedding vector.
	SetEmbedding(ctx context.Context, id string, embedding []float32) error

	// Close releases backend resources.
	Close() error
}
