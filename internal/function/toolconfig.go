package function

import (
	"github.com/inferly/gatewaycore/internal/gatewayerr"
	"github.com/inferly/gatewaycore/internal/model"
)

// DynamicToolParams carries the per-request tool overrides a caller may
// supply alongside a ChatFunction invocation (§4.4's "additional_tools",
// "allowed_tools", and dynamic tool_choice/parallel_tool_calls overrides).
type DynamicToolParams struct {
	AdditionalTools   []model.ToolDefinition
	AllowedTools      []string
	ToolChoice        *model.ToolChoice
	ParallelToolCalls *bool
}

// PrepareToolConfig implements §4.4's Chat-only tool config preparation: it
// validates that AllowedTools only names tools the merged static+dynamic set
// actually defines, merges static_tools ∪ additional_tools filtered by
// allowed_tools, and applies the dynamic tool_choice/parallel_tool_calls
// override (dynamic always wins over the function's static default).
func PrepareToolConfig(fn *ChatFunction, dyn DynamicToolParams) (*model.ToolCallConfig, error) {
	merged := make([]model.ToolDefinition, 0, len(fn.StaticTools)+len(dyn.AdditionalTools))
	merged = append(merged, fn.StaticTools...)
	merged = append(merged, dyn.AdditionalTools...)

	if len(dyn.AllowedTools) > 0 {
		known := make(map[string]struct{}, len(merged))
		for _, t := range merged {
			known[t.Name] = struct{}{}
		}
		for _, name := range dyn.AllowedTools {
			if _, ok := known[name]; !ok {
				return nil, gatewayerr.New(gatewayerr.KindInvalidRequest,
					"allowed_tools references unknown tool \""+name+"\"")
			}
		}
	}

	cfg := model.ToolCallConfig{
		Tools:             merged,
		ToolChoice:        fn.ToolChoice,
		ParallelToolCalls: fn.ParallelToolCalls,
	}
	cfg = cfg.WithAllowedTools(dyn.AllowedTools)

	if dyn.ToolChoice != nil {
		cfg.ToolChoice = *dyn.ToolChoice
	}
	if dyn.ParallelToolCalls != nil {
		cfg.ParallelToolCalls = dyn.ParallelToolCalls
	}
	return &cfg, nil
}
