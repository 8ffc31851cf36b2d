// Package agent is the mutation boundary exposed to an LLM tool caller. It
// enforces the graph invariants the storage layer does not: entity
// isolation, link symmetry on creation, strict link add/remove semantics,
// and cascading edge cleanup on delete.
//
// Every operation returns a tagged Result instead of an error, so an
// automated caller can branch deterministically on Success without
// exception handling. Infrastructure failures fold into the Result too;
// nothing raises across this boundary.
package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/becomeliminal/memgraph-go/memory"
)

// Result is the tagged outcome of a mutation.
type Result struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

func success(data any) Result {
	return Result{Success: true, Data: data}
}

func failure(format string, args ...any) Result {
	return Result{Error: fmt.Sprintf(format, args...)}
}

// Handler executes the four memory mutations over a memory.Service.
type Handler struct {
	svc *memory.Service
	log *zap.Logger
}

// NewHandler creates a mutation handler.
func NewHandler(svc *memory.Service, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{svc: svc, log: log}
}

// CreateMemoryInput is the flat argument record for CreateMemory.
type CreateMemoryInput struct {
	Content    string   `json:"content"`
	EntityID   string   `json:"entity_id"`
	RelatedIDs []string `json:"related_ids,omitempty"`
}

// CreatedMemory is the success payload of CreateMemory.
type CreatedMemory struct {
	Node *memory.Node `json:"node"`

	// FailedBacklinks lists related ids whose back-reference write failed.
	// The node itself was still created.
	FailedBacklinks []string `json:"failed_backlinks,omitempty"`
}

// CreateMemory creates a node and links it bidirectionally to every related
// node: the new node points at each related id, and each related node gains
// an edge back to the new node. Back-references are a side effect of
// creation, not requested per edge.
//
// Every related id must exist and share the entity; otherwise nothing is
// created.
func (h *Handler) CreateMemory(ctx context.Context, in CreateMemoryInput) Result {
	if strings.TrimSpace(in.Content) == "" {
		return failure("content must not be empty")
	}
	if strings.TrimSpace(in.EntityID) == "" {
		return failure("entity_id must not be empty")
	}

	// Validate related nodes up front so a bad id fails the whole call.
	related := make([]*memory.Node, 0, len(in.RelatedIDs))
	seen := make(map[string]bool, len(in.RelatedIDs))
	for _, id := range in.RelatedIDs {
		if seen[id] {
			continue
		}
		seen[id] = true
		node, err := h.svc.Get(ctx, id)
		if err != nil {
			if errors.Is(err, memory.ErrNotFound) {
				return failure("related memory not found: %s", id)
			}
			return failure("load related memory %s: %v", id, err)
		}
		if node.EntityID != in.EntityID {
			return failure("related memory %s belongs to a different entity", id)
		}
		related = append(related, node)
	}

	edges := make([]string, 0, len(related))
	for _, r := range related {
		edges = append(edges, r.ID)
	}

	created, err := h.svc.Create(ctx, &memory.Node{
		EntityID:      in.EntityID,
		Content:       in.Content,
		OutgoingEdges: edges,
	})
	if err != nil {
		return failure("create memory: %v", err)
	}

	// Write back-references concurrently; ordering between them does not
	// matter and each is idempotent at the backend.
	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		failed []string
	)
	for _, r := range related {
		wg.Add(1)
		go func(r *memory.Node) {
			defer wg.Done()
			if err := h.addBacklink(ctx, r.ID, created.ID); err != nil {
				h.log.Warn("backlink write failed",
					zap.String("from", r.ID),
					zap.String("to", created.ID),
					zap.Error(err))
				mu.Lock()
				failed = append(failed, r.ID)
				mu.Unlock()
			}
		}(r)
	}
	wg.Wait()

	h.log.Info("memory created",
		zap.String("id", created.ID),
		zap.String("entity_id", created.EntityID),
		zap.Int("links", len(related)))
	return success(&CreatedMemory{Node: created, FailedBacklinks: failed})
}

// addBacklink appends toID to the node's edges when not already present.
// The read-modify-write is unguarded; a concurrent mutation of the same
// node can lose this update.
func (h *Handler) addBacklink(ctx context.Context, nodeID, toID string) error {
	node, err := h.svc.Get(ctx, nodeID)
	if err != nil {
		return err
	}
	if node.HasEdge(toID) {
		return nil
	}
	return h.svc.SetOutgoingEdges(ctx, nodeID, append(node.OutgoingEdges, toID))
}

// UpdateMemoryInput is the flat argument record for UpdateMemory.
type UpdateMemoryInput struct {
	ID      string `json:"id"`
	Content string `json:"content"`
}

// UpdateMemory replaces a node's content. The embedding is regenerated from
// the new content by the orchestration layer.
func (h *Handler) UpdateMemory(ctx context.Context, in UpdateMemoryInput) Result {
	if strings.TrimSpace(in.ID) == "" {
		return failure("id must not be empty")
	}
	if strings.TrimSpace(in.Content) == "" {
		return failure("content must not be empty")
	}

	if _, err := h.svc.Get(ctx, in.ID); err != nil {
		if errors.Is(err, memory.ErrNotFound) {
			return failure("memory not found: %s", in.ID)
		}
		return failure("load memory %s: %v", in.ID, err)
	}

	updated, err := h.svc.Update(ctx, in.ID, memory.NodeUpdate{Content: &in.Content})
	if err != nil {
		return failure("update memory %s: %v", in.ID, err)
	}

	h.log.Info("memory updated", zap.String("id", in.ID))
	return success(updated)
}

// Link actions.
const (
	LinkActionAdd    = "add"
	LinkActionRemove = "remove"
)

// UpdateMemoryLinkInput is the flat argument record for UpdateMemoryLink.
type UpdateMemoryLinkInput struct {
	FromID string `json:"from_id"`
	ToID   string `json:"to_id"`
	Action string `json:"action"`
}

// UpdateMemoryLink adds or removes a single directed edge. Semantics are
// strict rather than idempotent: adding an existing link or removing an
// absent one fails, so the caller gets a decision-actionable signal.
func (h *Handler) UpdateMemoryLink(ctx context.Context, in UpdateMemoryLinkInput) Result {
	if in.Action != LinkActionAdd && in.Action != LinkActionRemove {
		return failure("action must be %q or %q", LinkActionAdd, LinkActionRemove)
	}
	if strings.TrimSpace(in.FromID) == "" {
		return failure("from_id must not be empty")
	}
	if strings.TrimSpace(in.ToID) == "" {
		return failure("to_id must not be empty")
	}
	if in.FromID == in.ToID {
		return failure("a memory cannot link to itself")
	}

	from, err := h.svc.Get(ctx, in.FromID)
	if err != nil {
		if errors.Is(err, memory.ErrNotFound) {
			return failure("memory not found: %s", in.FromID)
		}
		return failure("load memory %s: %v", in.FromID, err)
	}
	to, err := h.svc.Get(ctx, in.ToID)
	if err != nil {
		if errors.Is(err, memory.ErrNotFound) {
			return failure("memory not found: %s", in.ToID)
		}
		return failure("load memory %s: %v", in.ToID, err)
	}
	if from.EntityID != to.EntityID {
		return failure("memories belong to different entities")
	}

	switch in.Action {
	case LinkActionAdd:
		if from.HasEdge(in.ToID) {
			return failure("Link already exists")
		}
		edges := append(from.OutgoingEdges, in.ToID)
		if err := h.svc.SetOutgoingEdges(ctx, in.FromID, edges); err != nil {
			return failure("write link: %v", err)
		}
	case LinkActionRemove:
		if !from.HasEdge(in.ToID) {
			return failure("Link does not exist")
		}
		edges := make([]string, 0, len(from.OutgoingEdges)-1)
		for _, e := range from.OutgoingEdges {
			if e != in.ToID {
				edges = append(edges, e)
			}
		}
		if err := h.svc.SetOutgoingEdges(ctx, in.FromID, edges); err != nil {
			return failure("write link: %v", err)
		}
	}

	h.log.Info("memory link updated",
		zap.String("from", in.FromID),
		zap.String("to", in.ToID),
		zap.String("action", in.Action))
	return success(map[string]string{"from_id": in.FromID, "to_id": in.ToID, "action": in.Action})
}

// DeleteMemoryInput is the flat argument record for DeleteMemory.
type DeleteMemoryInput struct {
	ID string `json:"id"`
}

// DeleteReport is the success payload of DeleteMemory.
type DeleteReport struct {
	ID string `json:"id"`

	// CleanedNodes lists same-entity nodes whose edge sets were rewritten
	// to drop the deleted id.
	CleanedNodes []string `json:"cleaned_nodes,omitempty"`

	// FailedCleanups lists nodes whose rewrite failed; their edge sets may
	// still reference the deleted id. The delete itself went through.
	FailedCleanups []string `json:"failed_cleanups,omitempty"`
}

// DeleteMemory removes a node and sweeps the rest of its entity for edges
// that target it, rewriting each referencing node's edge set without the id.
// No reverse index is maintained, so this is a full-entity scan.
//
// Cleanup is best-effort: failed rewrites are reported in the result rather
// than aborting the delete, so the caller sees exactly which nodes may hold
// stale edges.
func (h *Handler) DeleteMemory(ctx context.Context, in DeleteMemoryInput) Result {
	if strings.TrimSpace(in.ID) == "" {
		return failure("id must not be empty")
	}

	node, err := h.svc.Get(ctx, in.ID)
	if err != nil {
		if errors.Is(err, memory.ErrNotFound) {
			return failure("memory not found: %s", in.ID)
		}
		return failure("load memory %s: %v", in.ID, err)
	}

	siblings, err := h.svc.ListByEntity(ctx, node.EntityID)
	if err != nil {
		return failure("scan entity %s: %v", node.EntityID, err)
	}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		cleaned []string
		failed  []string
	)
	for _, sib := range siblings {
		if sib.ID == in.ID || !sib.HasEdge(in.ID) {
			continue
		}
		wg.Add(1)
		go func(sib *memory.Node) {
			defer wg.Done()
			edges := make([]string, 0, len(sib.OutgoingEdges)-1)
			for _, e := range sib.OutgoingEdges {
				if e != in.ID {
					edges = append(edges, e)
				}
			}
			err := h.svc.SetOutgoingEdges(ctx, sib.ID, edges)
			mu.Lock()
			if err != nil {
				failed = append(failed, sib.ID)
			} else {
				cleaned = append(cleaned, sib.ID)
			}
			mu.Unlock()
			if err != nil {
				h.log.Warn("edge cleanup failed",
					zap.String("node", sib.ID),
					zap.String("deleted", in.ID),
					zap.Error(err))
			}
		}(sib)
	}
	wg.Wait()

	if err := h.svc.Delete(ctx, in.ID); err != nil {
		return failure("delete memory %s: %v", in.ID, err)
	}

	h.log.Info("memory deleted",
		zap.String("id", in.ID),
		zap.Int("cleaned", len(cleaned)),
		zap.Int("failed_cleanups", len(failed)))
	return success(&DeleteReport{ID: in.ID, CleanedNodes: cleaned, FailedCleanups: failed})
}
