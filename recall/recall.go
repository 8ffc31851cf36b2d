// Package recall assembles conversational context from the memory graph:
// a vector search seeds the result, graph expansion pulls in associated
// nodes the search alone would miss, and the merged set is rendered as a
// prompt-ready summary.
package recall

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/becomeliminal/memgraph-go/memory"
)

// Config holds Builder configuration.
type Config struct {
	// Limit caps the total number of memories in the assembled context.
	// Default: 10.
	Limit int

	// Threshold is the similarity cutoff for the vector search phase. It is
	// deliberately recall-biased (lower than a precision search would use)
	// because graph expansion and the caller's LLM both tolerate extra
	// candidates better than missing ones. Default: 0.55.
	Threshold float64

	// ExpandDepth is how many hops of graph expansion to run from the
	// vector search results. 0 disables expansion. Default: 1.
	ExpandDepth int
}

// DefaultConfig returns the default assembly configuration.
var DefaultConfig = &Config{
	Limit:       10,
	Threshold:   0.55,
	ExpandDepth: 1,
}

// Context is the assembled result handed to a conversational consumer.
type Context struct {
	// Memories holds the selected nodes: vector matches first (by
	// similarity), then graph-expanded associates.
	Memories []*memory.Node

	// Template is a human-readable summary of Memories for prompt
	// injection.
	Template string
}

// Builder assembles context over a memory.Service.
type Builder struct {
	svc *memory.Service
	cfg *Config
	log *zap.Logger
}

// NewBuilder creates a context builder. A nil config uses DefaultConfig.
func NewBuilder(svc *memory.Service, cfg *Config, log *zap.Logger) *Builder {
	if cfg == nil {
		cfg = DefaultConfig
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Builder{svc: svc, cfg: cfg, log: log}
}

// Build runs the two-phase retrieval for a query:
//
//  1. vector search over the entity's nodes at the recall-biased threshold,
//     capped at Limit;
//  2. multi-source graph expansion from the phase-1 ids, adding associated
//     nodes not already present.
//
// Phase-1 nodes keep priority: the merged list is phase 1 followed by
// phase 2, truncated to Limit, so expansion never starves direct matches.
func (b *Builder) Build(ctx context.Context, entityID string, query string) (*Context, error) {
	matches, err := b.svc.Search(ctx, entityID, memory.Query{Text: query}, b.cfg.Limit, b.cfg.Threshold)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}

	selected := make([]*memory.Node, 0, b.cfg.Limit)
	present := make(map[string]bool, len(matches))
	for _, m := range matches {
		selected = append(selected, m)
		present[m.ID] = true
	}

	if b.cfg.ExpandDepth > 0 && len(matches) > 0 {
		ids := make([]string, len(matches))
		for i, m := range matches {
			ids[i] = m.ID
		}
		expanded, err := b.svc.ConnectedFromMany(ctx, ids, b.cfg.ExpandDepth)
		if err != nil {
			return nil, fmt.Errorf("graph expansion: %w", err)
		}
		for _, node := range expanded {
			if present[node.ID] {
				continue
			}
			present[node.ID] = true
			selected = append(selected, node)
		}
	}

	if b.cfg.Limit > 0 && len(selected) > b.cfg.Limit {
		selected = selected[:b.cfg.Limit]
	}

	b.log.Debug("context assembled",
		zap.String("entity_id", entityID),
		zap.Int("matches", len(matches)),
		zap.Int("total", len(selected)))

	return &Context{
		Memories: selected,
		Template: formatMemories(selected),
	}, nil
}

// formatMemories renders the selected nodes as a numbered list with
// similarity where available.
func formatMemories(nodes []*memory.Node) string {
	if len(nodes) == 0 {
		return ""
	}
	var parts []string
	parts = append(parts, "=== RELEVANT MEMORIES ===")
	for i, node := range nodes {
		if node.Similarity > 0 {
			parts = append(parts, fmt.Sprintf("%d. %s (similarity: %.2f)", i+1, node.Content, node.Similarity))
		} else {
			parts = append(parts, fmt.Sprintf("%d. %s (associated)", i+1, node.Content))
		}
	}
	return strings.Join(parts, "\n")
}
