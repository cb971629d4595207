package provider

import "github.com/inferly/gatewaycore/internal/model"

// JSONPrefillText is the assistant-role opening appended before sending a
// request to an Anthropic-family ("complete-my-prefix" style) provider when
// json_mode is On or Strict and function_type is Json (§4.2). The response
// is expected to continue directly from the trailing "{".
const JSONPrefillText = "Here is the JSON requested:\n{"

// WantsJSONPrefill reports whether req should receive the Anthropic-family
// JSON-mode prefill treatment.
func WantsJSONPrefill(req *model.ModelInferenceRequest) bool {
	if req.FunctionType != model.FunctionTypeJSON {
		return false
	}
	return req.JSONMode == model.JSONModeOn || req.JSONMode == model.JSONModeStrict
}

// AppendJSONPrefillMessage returns messages with a trailing assistant turn
// carrying the JSON prefill text, for adapters to append just before
// sending. The original slice is not mutated.
func AppendJSONPrefillMessage(messages []model.Message) []model.Message {
	out := make([]model.Message, len(messages), len(messages)+1)
	copy(out, messages)
	return append(out, model.Message{
		Role:    model.RoleAssistant,
		Content: []model.OutputContent{model.TextOutput{Text: JSONPrefillText}},
	})
}

// ReopenJSONPrefillText re-prepends the "{" consumed by the prefill to the
// first text fragment of a response, per §4.2's "re-prepend '{' to the
// first text fragment" rule. It must be applied identically to the
// non-streaming response text and to the first text chunk of a stream.
func ReopenJSONPrefillText(firstTextFragment string) string {
	return "{" + firstTextFragment
}

// ConsolidateAnthropicFamily applies the Anthropic-family message rules
// (§4.2): collapse consecutive same-role messages into one, and bracket the
// conversation with "[listening]" user turns so it never starts or ends on
// an assistant turn (Anthropic requires user/assistant alternation starting
// with user).
func ConsolidateAnthropicFamily(messages []model.Message) []model.Message {
	listening := func() model.Message {
		return model.Message{Role: model.RoleUser, Content: []model.OutputContent{model.TextOutput{Text: "[listening]"}}}
	}

	consolidated := make([]model.Message, 0, len(messages)+2)
	for _, m := range messages {
		if n := len(consolidated); n > 0 && consolidated[n-1].Role == m.Role {
			consolidated[n-1].Content = append(consolidated[n-1].Content, m.Content...)
			continue
		}
		consolidated = append(consolidated, m)
	}

	if len(consolidated) == 0 || consolidated[0].Role == model.RoleAssistant {
		consolidated = append([]model.Message{listening()}, consolidated...)
	}
	if consolidated[len(consolidated)-1].Role == model.RoleAssistant {
		consolidated = append(consolidated, listening())
	}
	return consolidated
}
