package agent

import (
	"github.com/anthropics/anthropic-sdk-go"
)

// ToAPITools converts tool definitions to Anthropic Messages API tool
// parameters, for callers driving the boundary with Claude tool calling.
func ToAPITools(defs []ToolDefinition) []anthropic.ToolUnionParam {
	out := make([]anthropic.ToolUnionParam, len(defs))
	for i, def := range defs {
		props, _ := def.InputSchema["properties"].(map[string]any)
		required, _ := def.InputSchema["required"].([]string)
		out[i] = anthropic.ToolUnionParam{
			OfTool: &anthropic.ToolParam{
				Name:        def.Name,
				Description: anthropic.String(def.Description),
				InputSchema: anthropic.ToolInputSchemaParam{
					Properties: props,
					Required:   required,
				},
			},
		}
	}
	return out
}
