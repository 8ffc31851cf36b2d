package memory

import "time"

// Node is a single stored memory fragment: natural-language content plus its
// embedding and outgoing edges. Edges are directed, ordered, and always point
// at nodes of the same entity.
type Node struct {
	// ID is assigned by the store at creation and is immutable.
	ID string `json:"id"`

	// EntityID scopes the node to one owner (user, persona, workspace).
	// All edges and searches are implicitly scoped to it. Immutable.
	EntityID string `json:"entity_id"`

	// Content is the natural-language text of the fragment. Required.
	Content string `json:"content"`

	// Embedding is the fixed-dimension semantic vector for Content.
	// Nil until generated; regenerated whenever Content changes without an
	// explicit replacement vector.
	Embedding []float32 `json:"embedding,omitempty"`

	// OutgoingEdges holds the ids of directly associated nodes. May contain
	// cycles across the graph; never a self-reference.
	OutgoingEdges []string `json:"outgoing_edges"`

	// Similarity is populated on vector search results only. Never persisted.
	Similarity float64 `json:"similarity,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HasEdge reports whether the node already links to the given id.
func (n *Node) HasEdge(id string) bool {
	for _, e := range n.OutgoingEdges {
		if e == id {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the node. Stores hand out clones so callers
// cannot mutate backend state through shared slices.
func (n *Node) Clone() *Node {
	c := *n
	if n.Embedding != nil {
		c.Embedding = make([]float32, len(n.Embedding))
		copy(c.Embedding, n.Embedding)
	}
	c.OutgoingEdges = make([]string, len(n.OutgoingEdges))
	copy(c.OutgoingEdges, n.OutgoingEdges)
	return &c
}

// NodeUpdate describes a partial update. Nil fields are left untouched.
// Setting Embedding or OutgoingEdges to a pointer to an empty (or nil) slice
// clears the field.
type NodeUpdate struct {
	Content       *string
	Embedding     *[]float32
	OutgoingEdges *[]string
}

// IsZero reports whether the update would change nothing.
func (u NodeUpdate) IsZero() bool {
	return u.Content == nil && u.Embedding == nil && u.OutgoingEdges == nil
}
