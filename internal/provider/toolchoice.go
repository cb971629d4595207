package provider

import "github.com/inferly/gatewaycore/internal/model"

// GenericToolChoice is the backend-agnostic result of tool-choice
// translation (§4.2): None collapses to Auto with no tools sent, so
// adapters check SuppressTools rather than branching on Mode == None.
type GenericToolChoice struct {
	Mode          model.ToolChoiceMode // Auto, Required (mapped from Any), or Specific
	Name          string               // set when Mode == ToolChoiceSpecific
	SuppressTools bool                 // true when the original mode was None
}

// TranslateToolChoice implements the provider-agnostic tool-choice mapping
// from §4.2: None -> Auto with no tools sent; Auto -> Auto; Required -> Any;
// Specific(n) -> Tool{name: n}. Returns ok=false (emit nothing) when tools
// is empty, since tool_choice is only emitted when the tools list is
// non-empty.
func TranslateToolChoice(choice model.ToolChoice, toolsNonEmpty bool) (GenericToolChoice, bool) {
	if !toolsNonEmpty {
		return GenericToolChoice{}, false
	}
	switch choice.Mode {
	case model.ToolChoiceNone:
		return GenericToolChoice{Mode: model.ToolChoiceAuto, SuppressTools: true}, true
	case model.ToolChoiceAuto, "":
		return GenericToolChoice{Mode: model.ToolChoiceAuto}, true
	case model.ToolChoiceRequired:
		return GenericToolChoice{Mode: model.ToolChoiceRequired}, true
	case model.ToolChoiceSpecific:
		return GenericToolChoice{Mode: model.ToolChoiceSpecific, Name: choice.Name}, true
	default:
		return GenericToolChoice{Mode: model.ToolChoiceAuto}, true
	}
}

// NormalizeFinishReason maps a provider-native stop/finish reason string
// onto the shared model.FinishReason vocabulary (§4.2 step 5) using a
// per-backend lookup table; unrecognized values map to FinishUnknown.
func NormalizeFinishReason(table map[string]model.FinishReason, native string) model.FinishReason {
	if r, ok := table[native]; ok {
		return r
	}
	return model.FinishReasonUnknown
}
