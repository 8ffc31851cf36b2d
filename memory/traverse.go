package memory

import (
	"context"
	"errors"
)

// NodeSource is the minimal lookup Traverse needs. Store satisfies it.
type NodeSource interface {
	Get(ctx context.Context, id string) (*Node, error)
}

// Traverse performs a bounded-depth, multi-source, cycle-safe breadth-first
// expansion along outgoing edges. Depth 1 is the direct successors of any
// start id; depth 0 returns the empty set. Each reachable node is emitted
// exactly once, at the minimum depth at which it is first discovered, in
// discovery order. Start nodes are never emitted, even when re-reachable
// through a cycle.
//
// All sources share one visited set, so a node reachable from several starts
// is fetched and emitted once. Visited membership is checked before
// enqueuing, which is also what bounds cycles: a back edge reduces to
// "already visited, skip".
//
// Edge targets that no longer resolve are skipped; dangling edges are legal
// in the window between a delete and its cascading cleanup.
//
// This is the single source of truth for reachability. A backend-native
// traversal may replace it only as a performance optimization that produces
// identical output.
func Traverse(ctx context.Context, src NodeSource, startIDs []string, depth int) ([]*Node, error) {
	if depth <= 0 || len(startIDs) == 0 {
		return nil, nil
	}

	visited := make(map[string]bool, len(startIDs))
	frontier := make([]string, 0, len(startIDs))
	for _, id := range startIDs {
		if visited[id] {
			continue
		}
		visited[id] = true
		frontier = append(frontier, id)
	}

	var result []*Node
	for level := 0; level < depth && len(frontier) > 0; level++ {
		var next []string
		for _, id := range frontier {
			node, err := src.Get(ctx, id)
			if err != nil {
				if errors.Is(err, ErrNotFound) {
					continue
				}
				return nil, err
			}
			for _, target := range node.OutgoingEdges {
				if visited[target] {
					continue
				}
				visited[target] = true
				reached, err := src.Get(ctx, target)
				if err != nil {
					if errors.Is(err, ErrNotFound) {
						continue
					}
					return nil, err
				}
				result = append(result, reached)
				next = append(next, target)
			}
		}
		frontier = next
	}
	return result, nil
}
