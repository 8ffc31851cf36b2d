package recall_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/becomeliminal/memgraph-go/memory"
	"github.com/becomeliminal/memgraph-go/memory/embedder/mock"
	"github.com/becomeliminal/memgraph-go/memory/store/inmem"
	"github.com/becomeliminal/memgraph-go/recall"
)

// newGraph seeds: anchor -> assoc -> distant, all under e1. The mock
// embedder is deterministic, so querying with the anchor's exact content
// scores 1.0 against it and (almost surely) below 0.99 against the rest.
func newGraph(t *testing.T) (*memory.Service, map[string]*memory.Node) {
	t.Helper()
	embedding := memory.NewEmbeddingService(mock.New(8))
	svc := memory.NewService(inmem.New(nil), memory.WithEmbedding(embedding))
	ctx := context.Background()

	nodes := make(map[string]*memory.Node)
	for _, content := range []string{"anchor", "assoc", "distant"} {
		node, err := svc.Create(ctx, &memory.Node{EntityID: "e1", Content: content})
		require.NoError(t, err)
		nodes[content] = node
	}
	require.NoError(t, svc.SetOutgoingEdges(ctx, nodes["anchor"].ID, []string{nodes["assoc"].ID}))
	require.NoError(t, svc.SetOutgoingEdges(ctx, nodes["assoc"].ID, []string{nodes["distant"].ID}))
	return svc, nodes
}

func TestBuildTwoPhase(t *testing.T) {
	svc, nodes := newGraph(t)
	b := recall.NewBuilder(svc, &recall.Config{Limit: 10, Threshold: 0.99, ExpandDepth: 1}, nil)

	got, err := b.Build(context.Background(), "e1", "anchor")
	require.NoError(t, err)
	require.Len(t, got.Memories, 2)
	assert.Equal(t, nodes["anchor"].ID, got.Memories[0].ID, "vector matches come first")
	assert.Equal(t, nodes["assoc"].ID, got.Memories[1].ID, "graph expansion follows")
}

func TestBuildExpandDepth(t *testing.T) {
	svc, nodes := newGraph(t)
	b := recall.NewBuilder(svc, &recall.Config{Limit: 10, Threshold: 0.99, ExpandDepth: 2}, nil)

	got, err := b.Build(context.Background(), "e1", "anchor")
	require.NoError(t, err)
	require.Len(t, got.Memories, 3)
	assert.Equal(t, nodes["distant"].ID, got.Memories[2].ID)
}

func TestBuildTruncationKeepsPhaseOnePriority(t *testing.T) {
	svc, nodes := newGraph(t)
	b := recall.NewBuilder(svc, &recall.Config{Limit: 1, Threshold: 0.99, ExpandDepth: 2}, nil)

	got, err := b.Build(context.Background(), "e1", "anchor")
	require.NoError(t, err)
	require.Len(t, got.Memories, 1)
	assert.Equal(t, nodes["anchor"].ID, got.Memories[0].ID, "expansion never starves direct matches")
}

func TestBuildNoExpansion(t *testing.T) {
	svc, _ := newGraph(t)
	b := recall.NewBuilder(svc, &recall.Config{Limit: 10, Threshold: 0.99, ExpandDepth: 0}, nil)

	got, err := b.Build(context.Background(), "e1", "anchor")
	require.NoError(t, err)
	require.Len(t, got.Memories, 1)
}

func TestBuildTemplate(t *testing.T) {
	svc, _ := newGraph(t)
	b := recall.NewBuilder(svc, &recall.Config{Limit: 10, Threshold: 0.99, ExpandDepth: 1}, nil)

	got, err := b.Build(context.Background(), "e1", "anchor")
	require.NoError(t, err)
	assert.Contains(t, got.Template, "=== RELEVANT MEMORIES ===")
	assert.Contains(t, got.Template, "1. anchor (similarity: 1.00)")
	assert.Contains(t, got.Template, "2. assoc (associated)")
}

func TestBuildEmptyResult(t *testing.T) {
	embedding := memory.NewEmbeddingService(mock.New(8))
	svc := memory.NewService(inmem.New(nil), memory.WithEmbedding(embedding))
	b := recall.NewBuilder(svc, nil, nil)

	got, err := b.Build(context.Background(), "e1", "anything")
	require.NoError(t, err)
	assert.Empty(t, got.Memories)
	assert.Empty(t, got.Template)
}

func TestBuildWithoutEmbedder(t *testing.T) {
	svc := memory.NewService(inmem.New(nil))
	b := recall.NewBuilder(svc, nil, nil)

	_, err := b.Build(context.Background(), "e1", "query")
	require.ErrorIs(t, err, memory.ErrConfiguration)
}
