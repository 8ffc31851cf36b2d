package memory_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/becomeliminal/memgraph-go/memory"
	"github.com/becomeliminal/memgraph-go/memory/store/inmem"
)

// seedGraph creates nodes with the given ids and edges under one entity.
func seedGraph(t *testing.T, st memory.Store, edges map[string][]string) {
	t.Helper()
	ctx := context.Background()
	for id := range edges {
		_, err := st.Create(ctx, &memory.Node{
			ID:       id,
			EntityID: "e1",
			Content:  "node " + id,
		})
		require.NoError(t, err)
	}
	for id, out := range edges {
		require.NoError(t, st.SetOutgoingEdges(ctx, id, out))
	}
}

func ids(nodes []*memory.Node) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.ID
	}
	return out
}

func TestTraverseChain(t *testing.T) {
	st := inmem.New(nil)
	seedGraph(t, st, map[string][]string{
		"A": {"B"},
		"B": {"C"},
		"C": {},
	})
	ctx := context.Background()

	depth1, err := memory.Traverse(ctx, st, []string{"A"}, 1)
	require.NoError(t, err)
	require.Equal(t, []string{"B"}, ids(depth1))

	depth2, err := memory.Traverse(ctx, st, []string{"A"}, 2)
	require.NoError(t, err)
	require.Equal(t, []string{"B", "C"}, ids(depth2))
}

func TestTraverseDepthZero(t *testing.T) {
	st := inmem.New(nil)
	seedGraph(t, st, map[string][]string{
		"A": {"B"},
		"B": {},
	})

	nodes, err := memory.Traverse(context.Background(), st, []string{"A"}, 0)
	require.NoError(t, err)
	require.Empty(t, nodes)
}

func TestTraverseNoEdges(t *testing.T) {
	st := inmem.New(nil)
	seedGraph(t, st, map[string][]string{
		"A": {},
	})

	nodes, err := memory.Traverse(context.Background(), st, []string{"A"}, 5)
	require.NoError(t, err)
	require.Empty(t, nodes)
}

func TestTraverseCycleTerminates(t *testing.T) {
	st := inmem.New(nil)
	seedGraph(t, st, map[string][]string{
		"A": {"B"},
		"B": {"A"},
	})

	nodes, err := memory.Traverse(context.Background(), st, []string{"A"}, 10)
	require.NoError(t, err)
	require.Equal(t, []string{"B"}, ids(nodes), "cycle must terminate and never emit the start node")
}

func TestTraverseMultiSourceSharedVisited(t *testing.T) {
	// A and B both reach C; C must be emitted once.
	st := inmem.New(nil)
	seedGraph(t, st, map[string][]string{
		"A": {"C"},
		"B": {"C"},
		"C": {"D"},
		"D": {},
	})

	nodes, err := memory.Traverse(context.Background(), st, []string{"A", "B"}, 2)
	require.NoError(t, err)
	require.Equal(t, []string{"C", "D"}, ids(nodes))
}

func TestTraverseStartNodesNeverEmitted(t *testing.T) {
	// B is a start node and also reachable from A.
	st := inmem.New(nil)
	seedGraph(t, st, map[string][]string{
		"A": {"B"},
		"B": {"C"},
		"C": {},
	})

	nodes, err := memory.Traverse(context.Background(), st, []string{"A", "B"}, 3)
	require.NoError(t, err)
	require.Equal(t, []string{"C"}, ids(nodes))
}

func TestTraverseSkipsDanglingEdges(t *testing.T) {
	st := inmem.New(nil)
	seedGraph(t, st, map[string][]string{
		"A": {"ghost", "B"},
		"B": {},
	})

	nodes, err := memory.Traverse(context.Background(), st, []string{"A"}, 2)
	require.NoError(t, err)
	require.Equal(t, []string{"B"}, ids(nodes))
}

func TestTraverseMinimumDepthEmission(t *testing.T) {
	// C is reachable at depth 1 (A->C) and depth 2 (A->B->C); it must be
	// emitted once, at depth 1, even when deeper hops remain.
	st := inmem.New(nil)
	seedGraph(t, st, map[string][]string{
		"A": {"B", "C"},
		"B": {"C"},
		"C": {},
	})

	nodes, err := memory.Traverse(context.Background(), st, []string{"A"}, 3)
	require.NoError(t, err)
	require.Equal(t, []string{"B", "C"}, ids(nodes))
}
