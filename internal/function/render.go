package function

import (
	"encoding/json"

	"github.com/inferly/gatewaycore/internal/model"
)

// RenderMessages converts a validated model.Input into the provider-facing
// []model.Message shape consumed by model.ModelInferenceRequest. Template
// expansion (resolving a named template against its arguments into text) is
// outside this module's scope — a TemplateContent block is rendered as its
// raw JSON invocation instead of expanded prose, which is sufficient for
// providers that only need a stable, schema-validated transcript to send
// upstream; a caller wanting real template expansion supplies already
// resolved TextContent blocks instead of TemplateContent ones.
func RenderMessages(input model.Input) ([]model.Message, *string) {
	out := make([]model.Message, 0, len(input.Messages))
	for _, msg := range input.Messages {
		content := make([]model.OutputContent, 0, len(msg.Content))
		for _, block := range msg.Content {
			content = append(content, renderBlock(block))
		}
		out = append(out, model.Message{Role: msg.Role, Content: content})
	}
	return out, renderSystem(input.System)
}

func renderSystem(sys *model.SystemValue) *string {
	if sys == nil {
		return nil
	}
	if sys.Text != nil {
		return sys.Text
	}
	encoded, _ := json.Marshal(sys.Arguments)
	text := string(encoded)
	return &text
}

func renderBlock(block model.InputContent) model.OutputContent {
	switch b := block.(type) {
	case model.TextContent:
		if b.Kind == model.TextKindText {
			var s string
			_ = json.Unmarshal(b.Value, &s)
			return model.TextOutput{Text: s}
		}
		return model.TextOutput{Text: string(b.Value)}

	case model.RawTextContent:
		return model.TextOutput{Text: b.Value}

	case model.TemplateContent:
		encoded, _ := json.Marshal(b)
		return model.TextOutput{Text: string(encoded)}

	case model.ToolCallContent:
		return model.ToolCallOutput{ID: b.ID, Name: b.Name, Arguments: b.Arguments, RawName: b.RawName, RawArgs: b.RawArgs}

	case model.ToolResultContent:
		// No dedicated ToolResultOutput exists in the provider-facing model;
		// rendering it as text keeps the transcript round-trippable through
		// every adapter without requiring each one to special-case tool
		// replay history.
		encoded, _ := json.Marshal(struct {
			ToolCallID string `json:"tool_call_id"`
			Name       string `json:"name"`
			Result     string `json:"result"`
		}{b.ID, b.Name, b.Result})
		return model.TextOutput{Text: string(encoded)}

	case model.ThoughtContent:
		return model.ThoughtOutput{Text: b.Text, Redacted: b.Redacted}

	case model.FileContent:
		encoded, _ := json.Marshal(b)
		return model.UnknownOutput{Data: encoded}

	case model.UnknownContent:
		providerName := ""
		if b.ModelProviderName != nil {
			providerName = *b.ModelProviderName
		}
		return model.UnknownOutput{Data: b.Data, ModelProviderName: providerName}

	default:
		return model.TextOutput{}
	}
}
