package openaicompat

import (
	"encoding/json"

	"github.com/inferly/gatewaycore/internal/gatewayerr"
	"github.com/inferly/gatewaycore/internal/model"
)

// ParsedToolChoice is the result of decoding an OpenAI-compat tool_choice
// field: a resolved ToolChoice plus an optional allowed_tools filter, when
// the caller used the "allowed_tools" object form.
type ParsedToolChoice struct {
	Choice       model.ToolChoice
	AllowedTools []string
}

type allowedToolsWire struct {
	Type         string `json:"type"`
	AllowedTools struct {
		Tools []WireTool `json:"tools"`
		Mode  string     `json:"mode"`
	} `json:"allowed_tools"`
}

type namedFunctionWire struct {
	Type     string `json:"type"`
	Function struct {
		Name string `json:"name"`
	} `json:"function"`
}

// ParseToolChoice implements §4.5's tool_choice deserialization: the
// strings "none"/"auto"/"required", the named-function object, and the
// "allowed_tools" object (which populates both an allowed_tools filter and
// a tool_choice derived from its mode).
func ParseToolChoice(raw json.RawMessage) (ParsedToolChoice, error) {
	if len(raw) == 0 {
		return ParsedToolChoice{}, nil
	}

	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		switch asString {
		case "none":
			return ParsedToolChoice{Choice: model.ToolChoice{Mode: model.ToolChoiceNone}}, nil
		case "auto":
			return ParsedToolChoice{Choice: model.ToolChoice{Mode: model.ToolChoiceAuto}}, nil
		case "required":
			return ParsedToolChoice{Choice: model.ToolChoice{Mode: model.ToolChoiceRequired}}, nil
		default:
			return ParsedToolChoice{}, gatewayerr.New(gatewayerr.KindInvalidOpenAICompatibleRequest,
				"unrecognized tool_choice string \""+asString+"\"")
		}
	}

	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return ParsedToolChoice{}, gatewayerr.Wrap(gatewayerr.KindInvalidOpenAICompatibleRequest, "decoding tool_choice", err)
	}

	switch probe.Type {
	case "function":
		var named namedFunctionWire
		if err := json.Unmarshal(raw, &named); err != nil {
			return ParsedToolChoice{}, gatewayerr.Wrap(gatewayerr.KindInvalidOpenAICompatibleRequest, "decoding tool_choice function", err)
		}
		return ParsedToolChoice{Choice: model.ToolChoice{Mode: model.ToolChoiceSpecific, Name: named.Function.Name}}, nil

	case "allowed_tools":
		var at allowedToolsWire
		if err := json.Unmarshal(raw, &at); err != nil {
			return ParsedToolChoice{}, gatewayerr.Wrap(gatewayerr.KindInvalidOpenAICompatibleRequest, "decoding tool_choice allowed_tools", err)
		}
		names := make([]string, len(at.AllowedTools.Tools))
		for i, t := range at.AllowedTools.Tools {
			names[i] = t.Function.Name
		}
		var mode model.ToolChoiceMode
		switch at.AllowedTools.Mode {
		case "auto":
			mode = model.ToolChoiceAuto
		case "required":
			mode = model.ToolChoiceRequired
		default:
			return ParsedToolChoice{}, gatewayerr.New(gatewayerr.KindInvalidOpenAICompatibleRequest,
				"allowed_tools.mode must be \"auto\" or \"required\"")
		}
		return ParsedToolChoice{Choice: model.ToolChoice{Mode: mode}, AllowedTools: names}, nil

	default:
		return ParsedToolChoice{}, gatewayerr.New(gatewayerr.KindInvalidOpenAICompatibleRequest,
			"unrecognized tool_choice object type \""+probe.Type+"\"")
	}
}
