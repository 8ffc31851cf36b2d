package agent

import (
	"context"
	"encoding/json"
)

// ToolDefinition describes one tool for an LLM tool-calling interface:
// name, natural-language description, and a JSON Schema for the flat
// argument record.
type ToolDefinition struct {
	Name        string
	Description string
	InputSchema map[string]any
}

// Tool names exposed at the boundary.
const (
	ToolCreateMemory     = "create_memory"
	ToolUpdateMemory     = "update_memory"
	ToolUpdateMemoryLink = "update_memory_link"
	ToolDeleteMemory     = "delete_memory"
)

// MemoryToolDefinitions returns the definitions for the four memory
// mutations. Descriptions are written for the model, not for humans reading
// code: they spell out side effects the model must account for.
func MemoryToolDefinitions() []ToolDefinition {
	return []ToolDefinition{
		{
			Name: ToolCreateMemory,
			Description: "Store a new memory for an entity. Optionally pass related_ids to " +
				"associate it with existing memories; each related memory is linked back " +
				"to the new one automatically.",
			InputSchema: ObjectSchema(map[string]any{
				"content":     StringProperty("The memory text to store."),
				"entity_id":   StringProperty("Owner of the memory (user, persona, or workspace id)."),
				"related_ids": ArrayProperty("Ids of existing memories to associate with.", StringProperty("Memory id.")),
			}, "content", "entity_id"),
		},
		{
			Name: ToolUpdateMemory,
			Description: "Replace the text of an existing memory. Its semantic index is " +
				"refreshed from the new text.",
			InputSchema: ObjectSchema(map[string]any{
				"id":      StringProperty("Id of the memory to update."),
				"content": StringProperty("The new memory text."),
			}, "id", "content"),
		},
		{
			Name: ToolUpdateMemoryLink,
			Description: "Add or remove a directed association between two memories of the " +
				"same entity. Adding an existing link or removing a missing one fails.",
			InputSchema: ObjectSchema(map[string]any{
				"from_id": StringProperty("Source memory id."),
				"to_id":   StringProperty("Target memory id."),
				"action":  StringEnumProperty("Whether to add or remove the link.", LinkActionAdd, LinkActionRemove),
			}, "from_id", "to_id", "action"),
		},
		{
			Name: ToolDeleteMemory,
			Description: "Delete a memory permanently. Links from other memories to it are " +
				"cleaned up as well.",
			InputSchema: ObjectSchema(map[string]any{
				"id": StringProperty("Id of the memory to delete."),
			}, "id"),
		},
	}
}

// Dispatch routes a tool call by name to the matching handler operation.
// Malformed input and unknown names come back as failure Results, never as
// errors, matching the rest of the boundary.
func (h *Handler) Dispatch(ctx context.Context, name string, input json.RawMessage) Result {
	switch name {
	case ToolCreateMemory:
		var in CreateMemoryInput
		if err := json.Unmarshal(input, &in); err != nil {
			return failure("invalid %s input: %v", name, err)
		}
		return h.CreateMemory(ctx, in)
	case ToolUpdateMemory:
		var in UpdateMemoryInput
		if err := json.Unmarshal(input, &in); err != nil {
			return failure("invalid %s input: %v", name, err)
		}
		return h.UpdateMemory(ctx, in)
	case ToolUpdateMemoryLink:
		var in UpdateMemoryLinkInput
		if err := json.Unmarshal(input, &in); err != nil {
			return failure("invalid %s input: %v", name, err)
		}
		return h.UpdateMemoryLink(ctx, in)
	case ToolDeleteMemory:
		var in DeleteMemoryInput
		if err := json.Unmarshal(input, &in); err != nil {
			return failure("invalid %s input: %v", name, err)
		}
		return h.DeleteMemory(ctx, in)
	default:
		return failure("unknown tool: %s", name)
	}
}
