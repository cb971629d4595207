package openaicompat

import (
	"encoding/json"

	"github.com/inferly/gatewaycore/internal/function"
	"github.com/inferly/gatewaycore/internal/model"
)

// ChatCompletionResponse is the non-streaming response envelope from §6.
type ChatCompletionResponse struct {
	ID        string       `json:"id"`
	EpisodeID string       `json:"episode_id"`
	Choices   []WireChoice `json:"choices"`
	Created   int64        `json:"created"`
	Model     string       `json:"model"`

	SystemFingerprint string  `json:"system_fingerprint"`
	ServiceTier       *string `json:"service_tier"`
	Object            string  `json:"object"`
	Usage             Usage   `json:"usage"`
}

// WireChoice is the single choice element of a non-streaming response.
type WireChoice struct {
	Index        int           `json:"index"`
	FinishReason string        `json:"finish_reason"`
	Message      WireAssistant `json:"message"`
}

// WireAssistant is the assistant message of a non-streaming response.
type WireAssistant struct {
	Role      string          `json:"role"`
	Content   *string         `json:"content,omitempty"`
	ToolCalls []WireToolCall  `json:"tool_calls,omitempty"`
}

// Usage mirrors OpenAI's usage object (§6).
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ResponseModelField builds the response "model" field (§4.5): prefixed
// with tensorzero::function_name::<F>::variant_name:: when routed via a
// function, or tensorzero::model_name:: when routed directly via a model,
// with the resolved variant/model name appended.
func ResponseModelField(target InferenceTarget, variantOrModelName string) string {
	if target.FunctionName != nil {
		return functionNamePrefix + *target.FunctionName + "::variant_name::" + variantOrModelName
	}
	return modelNamePrefix + variantOrModelName
}

// BuildChatResponse assembles the non-streaming response envelope for a
// Chat function result (§6).
func BuildChatResponse(id, episodeID string, target InferenceTarget, variantOrModelName string, created int64, result *function.ChatResult) *ChatCompletionResponse {
	msg, finish := renderAssistantMessage(result.Content, result.FinishReason)
	return &ChatCompletionResponse{
		ID:                id,
		EpisodeID:         episodeID,
		Choices:           []WireChoice{{Index: 0, FinishReason: finish, Message: msg}},
		Created:           created,
		Model:             ResponseModelField(target, variantOrModelName),
		SystemFingerprint: "",
		Object:            "chat.completion",
		Usage: Usage{
			PromptTokens:     result.Usage.InputTokens,
			CompletionTokens: result.Usage.OutputTokens,
			TotalTokens:      result.Usage.InputTokens + result.Usage.OutputTokens,
		},
	}
}

// BuildJSONResponse assembles the non-streaming response envelope for a
// JSON function result: the raw text (not the parsed value) becomes the
// assistant message content, matching the OpenAI wire shape's expectation
// of a string content field.
func BuildJSONResponse(id, episodeID string, target InferenceTarget, variantOrModelName string, created int64, result *function.JSONResult) *ChatCompletionResponse {
	finish := "stop"
	if result.FinishReason != nil {
		finish = wireFinishReason(*result.FinishReason)
	}
	msg := WireAssistant{Role: "assistant"}
	if result.Raw != nil {
		msg.Content = result.Raw
	}
	return &ChatCompletionResponse{
		ID:                id,
		EpisodeID:         episodeID,
		Choices:           []WireChoice{{Index: 0, FinishReason: finish, Message: msg}},
		Created:           created,
		Model:             ResponseModelField(target, variantOrModelName),
		SystemFingerprint: "",
		Object:            "chat.completion",
		Usage: Usage{
			PromptTokens:     result.Usage.InputTokens,
			CompletionTokens: result.Usage.OutputTokens,
			TotalTokens:      result.Usage.InputTokens + result.Usage.OutputTokens,
		},
	}
}

func renderAssistantMessage(content []model.OutputContent, finishReason *model.FinishReason) (WireAssistant, string) {
	msg := WireAssistant{Role: "assistant"}
	var textParts []string
	for _, block := range content {
		switch b := block.(type) {
		case model.TextOutput:
			textParts = append(textParts, b.Text)
		case model.ToolCallOutput:
			wtc := WireToolCall{ID: b.ID, Type: "function"}
			wtc.Function.Name = b.Name
			wtc.Function.Arguments = b.Arguments
			msg.ToolCalls = append(msg.ToolCalls, wtc)
		}
	}
	if len(textParts) > 0 {
		joined := joinStrings(textParts)
		msg.Content = &joined
	}

	finish := "stop"
	if finishReason != nil {
		finish = wireFinishReason(*finishReason)
	} else if len(msg.ToolCalls) > 0 {
		finish = "tool_calls"
	}
	return msg, finish
}

func joinStrings(parts []string) string {
	out := parts[0]
	for _, p := range parts[1:] {
		out += p
	}
	return out
}

// wireFinishReason maps the internal FinishReason enum onto §6's closed
// set: {stop, length, content_filter, tool_calls}. StopSequence and
// Unknown both collapse onto "stop", matching OpenAI's own narrower enum.
func wireFinishReason(r model.FinishReason) string {
	switch r {
	case model.FinishReasonLength:
		return "length"
	case model.FinishReasonContentFilter:
		return "content_filter"
	case model.FinishReasonToolCall:
		return "tool_calls"
	default:
		return "stop"
	}
}

// StreamChunk is a single SSE data payload for the streaming surface (§6).
type StreamChunk struct {
	ID      string            `json:"id"`
	Object  string            `json:"object"`
	Created int64             `json:"created"`
	Model   string             `json:"model"`
	Choices []WireStreamChoice `json:"choices"`
	Usage   *Usage             `json:"usage,omitempty"`
}

// WireStreamChoice is a streaming chunk's single choice delta.
type WireStreamChoice struct {
	Index        int        `json:"index"`
	Delta        WireDelta  `json:"delta"`
	FinishReason *string    `json:"finish_reason,omitempty"`
}

// WireDelta is the incremental content of one streaming chunk.
type WireDelta struct {
	Role      string         `json:"role,omitempty"`
	Content   string         `json:"content,omitempty"`
	ToolCalls []WireToolCall `json:"tool_calls,omitempty"`
}

// MarshalSSE renders a StreamChunk as an SSE "data: ...\n\n" frame.
func MarshalSSE(chunk *StreamChunk) ([]byte, error) {
	body, err := json.Marshal(chunk)
	if err != nil {
		return nil, err
	}
	out := append([]byte("data: "), body...)
	out = append(out, '\n', '\n')
	return out, nil
}

// DoneSentinel is the terminal SSE frame emitted after the last chunk.
var DoneSentinel = []byte("data: [DONE]\n\n")
