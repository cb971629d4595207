package function

import (
	"github.com/inferly/gatewaycore/internal/gatewayerr"
	"github.com/inferly/gatewaycore/internal/model"
)

// ImplicitToolName is the synthesized tool name JSONModeImplicitTool forces
// the model to call, per §4.4.
const ImplicitToolName = "respond"

// PrepareImplicitToolConfig synthesizes the single "respond with this
// schema" tool from a JSON function's output schema and forces it via
// Specific tool choice, per §4.4's ImplicitTool semantics. It returns a
// gatewayerr.KindInvalidRequest error under any of the four disqualifying
// conditions the spec lists: the function already defines tools, defines a
// non-Auto tool_choice, defines parallel_tool_calls, or the caller passed
// dynamic tool params of its own.
func PrepareImplicitToolConfig(fn *JSONFunction, dynamicToolParamsSupplied bool) (*model.ToolCallConfig, error) {
	if len(fn.StaticTools) > 0 {
		return nil, gatewayerr.New(gatewayerr.KindInvalidRequest,
			"json_mode=implicit_tool is incompatible with a function that defines static tools")
	}
	if fn.ToolChoice.Mode != "" && fn.ToolChoice.Mode != model.ToolChoiceAuto {
		return nil, gatewayerr.New(gatewayerr.KindInvalidRequest,
			"json_mode=implicit_tool is incompatible with a function that defines a non-auto tool_choice")
	}
	if fn.ParallelToolCalls != nil {
		return nil, gatewayerr.New(gatewayerr.KindInvalidRequest,
			"json_mode=implicit_tool is incompatible with a function that defines parallel_tool_calls")
	}
	if dynamicToolParamsSupplied {
		return nil, gatewayerr.New(gatewayerr.KindInvalidRequest,
			"json_mode=implicit_tool does not accept dynamic tool parameters")
	}

	return &model.ToolCallConfig{
		Tools: []model.ToolDefinition{{
			Name:        ImplicitToolName,
			Description: "Respond to the user's request using this structured format.",
			Parameters:  fn.OutputSchema.Raw(),
			Strict:      true,
		}},
		ToolChoice: model.ToolChoice{Mode: model.ToolChoiceSpecific, Name: ImplicitToolName},
	}, nil
}
