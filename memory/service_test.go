package memory_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/becomeliminal/memgraph-go/memory"
	"github.com/becomeliminal/memgraph-go/memory/embedder/mock"
	"github.com/becomeliminal/memgraph-go/memory/store/inmem"
)

func newTestService(t *testing.T) (*memory.Service, *mock.Provider) {
	t.Helper()
	provider := mock.New(8)
	embedding := memory.NewEmbeddingService(provider)
	svc := memory.NewService(inmem.New(nil), memory.WithEmbedding(embedding))
	return svc, provider
}

func TestServiceCreateAutoEmbeds(t *testing.T) {
	svc, _ := newTestService(t)

	node, err := svc.Create(context.Background(), &memory.Node{
		EntityID: "e1",
		Content:  "the sky is blue",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, node.ID)
	assert.Len(t, node.Embedding, 8, "embedding should be generated from content")
	assert.False(t, node.CreatedAt.IsZero())
}

func TestServiceCreateKeepsExplicitEmbedding(t *testing.T) {
	svc, _ := newTestService(t)
	explicit := []float32{1, 2, 3}

	node, err := svc.Create(context.Background(), &memory.Node{
		EntityID:  "e1",
		Content:   "pre-embedded",
		Embedding: explicit,
	})
	require.NoError(t, err)
	assert.Equal(t, explicit, node.Embedding)
}

func TestServiceCreateWithoutEmbedderPersistsAsGiven(t *testing.T) {
	svc := memory.NewService(inmem.New(nil))

	node, err := svc.Create(context.Background(), &memory.Node{
		EntityID: "e1",
		Content:  "no embedder configured",
	})
	require.NoError(t, err)
	assert.Nil(t, node.Embedding)
}

func TestServiceCreateValidation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, &memory.Node{EntityID: "e1"})
	assert.ErrorIs(t, err, memory.ErrValidation)

	_, err = svc.Create(ctx, &memory.Node{Content: "orphan"})
	assert.ErrorIs(t, err, memory.ErrValidation)

	_, err = svc.Create(ctx, nil)
	assert.ErrorIs(t, err, memory.ErrValidation)
}

func TestServiceUpdateRegeneratesEmbedding(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	node, err := svc.Create(ctx, &memory.Node{EntityID: "e1", Content: "old content"})
	require.NoError(t, err)
	before := node.Embedding

	newContent := "completely different content"
	updated, err := svc.Update(ctx, node.ID, memory.NodeUpdate{Content: &newContent})
	require.NoError(t, err)
	assert.Equal(t, newContent, updated.Content)
	assert.NotEqual(t, before, updated.Embedding, "embedding must be regenerated from new content")
}

func TestServiceUpdateRespectsExplicitEmbedding(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	node, err := svc.Create(ctx, &memory.Node{EntityID: "e1", Content: "old content"})
	require.NoError(t, err)

	newContent := "new content"
	explicit := []float32{9, 9, 9}
	updated, err := svc.Update(ctx, node.ID, memory.NodeUpdate{
		Content:   &newContent,
		Embedding: &explicit,
	})
	require.NoError(t, err)
	assert.Equal(t, explicit, updated.Embedding, "explicit embedding must not be overwritten")
}

// explodingStore fails every operation; it proves a code path performs no
// backend I/O.
type explodingStore struct{}

var errExploded = errors.New("store must not be touched")

func (explodingStore) Create(context.Context, *memory.Node) (*memory.Node, error) {
	return nil, errExploded
}
func (explodingStore) Get(context.Context, string) (*memory.Node, error) { return nil, errExploded }
func (explodingStore) Update(context.Context, string, memory.NodeUpdate) (*memory.Node, error) {
	return nil, errExploded
}
func (explodingStore) Delete(context.Context, string) error { return errExploded }
func (explodingStore) ListByEntity(context.Context, string) ([]*memory.Node, error) {
	return nil, errExploded
}
func (explodingStore) VectorSearch(context.Context, string, []float32, int, float64) ([]*memory.Node, error) {
	return nil, errExploded
}
func (explodingStore) Connected(context.Context, string, int) ([]*memory.Node, error) {
	return nil, errExploded
}
func (explodingStore) ConnectedFromMany(context.Context, []string, int) ([]*memory.Node, error) {
	return nil, errExploded
}
func (explodingStore) SetOutgoingEdges(context.Context, string, []string) error { return errExploded }
func (explodingStore) SetEmbedding(context.Context, string, []float32) error    { return errExploded }
func (explodingStore) Close() error                                             { return nil }

func TestServiceTextSearchWithoutEmbedderFailsBeforeIO(t *testing.T) {
	svc := memory.NewService(explodingStore{})

	_, err := svc.Search(context.Background(), "e1", memory.Query{Text: "anything"}, 10, 0.7)
	require.ErrorIs(t, err, memory.ErrConfiguration)
	assert.NotErrorIs(t, err, errExploded, "no backend call may happen")
}

func TestServiceVectorSearchWithoutEmbedder(t *testing.T) {
	st := inmem.New(nil)
	svc := memory.NewService(st)
	ctx := context.Background()

	_, err := svc.Create(ctx, &memory.Node{
		EntityID:  "e1",
		Content:   "vector only",
		Embedding: []float32{1, 0},
	})
	require.NoError(t, err)

	results, err := svc.Search(ctx, "e1", memory.Query{Vector: []float32{1, 0}}, 10, 0.9)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.InDelta(t, 1.0, results[0].Similarity, 1e-9)
}

func TestServiceSearchByText(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, &memory.Node{EntityID: "e1", Content: "coffee preferences"})
	require.NoError(t, err)

	// The mock embedder is deterministic, so searching with the exact same
	// text scores 1.0 against the stored node.
	results, err := svc.Search(ctx, "e1", memory.Query{Text: "coffee preferences"}, 10, 0.99)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, created.ID, results[0].ID)
}
