package openaicompat

import "github.com/inferly/gatewaycore/internal/model"

// StreamTranslator turns a sequence of internal
// model.ProviderInferenceResponseChunk values into the OpenAI-compat
// streaming wire shape (§4.5/§6): role is emitted only on the first chunk,
// and when the caller requested stream_options.include_usage a trailing
// usage-only chunk (no choices) is appended before the [DONE] sentinel.
type StreamTranslator struct {
	id           string
	modelField   string
	created      int64
	includeUsage bool
	sawFirst     bool
}

// NewStreamTranslator builds a StreamTranslator for one streaming response.
func NewStreamTranslator(id, modelField string, created int64, includeUsage bool) *StreamTranslator {
	return &StreamTranslator{id: id, modelField: modelField, created: created, includeUsage: includeUsage}
}

// Next converts one provider chunk into a StreamChunk. Usage is attached
// per-chunk only when the caller did not request a separate trailing
// usage-only chunk via stream_options.include_usage.
func (t *StreamTranslator) Next(chunk *model.ProviderInferenceResponseChunk) *StreamChunk {
	delta := WireDelta{}
	if !t.sawFirst {
		delta.Role = "assistant"
		t.sawFirst = true
	}

	for _, c := range chunk.Content {
		switch c.Type {
		case model.ChunkTypeText:
			delta.Content += c.Text
		case model.ChunkTypeToolCall:
			delta.ToolCalls = append(delta.ToolCalls, toolCallDelta(c))
		}
	}

	var finish *string
	if chunk.FinishReason != nil {
		f := wireFinishReason(*chunk.FinishReason)
		finish = &f
	}

	out := &StreamChunk{
		ID:      t.id,
		Object:  "chat.completion.chunk",
		Created: t.created,
		Model:   t.modelField,
		Choices: []WireStreamChoice{{Index: 0, Delta: delta, FinishReason: finish}},
	}
	if chunk.Usage != nil && !t.includeUsage {
		out.Usage = &Usage{
			PromptTokens:     chunk.Usage.InputTokens,
			CompletionTokens: chunk.Usage.OutputTokens,
			TotalTokens:      chunk.Usage.InputTokens + chunk.Usage.OutputTokens,
		}
	}
	return out
}

func toolCallDelta(c model.ContentBlockChunk) WireToolCall {
	wtc := WireToolCall{ID: c.ToolCallID, Type: "function"}
	wtc.Function.Name = c.ToolCallName
	wtc.Function.Arguments = c.ToolCallArgumentsDelta
	return wtc
}

// FinalUsageChunk builds the trailing usage-only chunk (no choices) emitted
// when stream_options.include_usage is set, per §4.5.
func (t *StreamTranslator) FinalUsageChunk(total model.Usage) *StreamChunk {
	return &StreamChunk{
		ID:      t.id,
		Object:  "chat.completion.chunk",
		Created: t.created,
		Model:   t.modelField,
		Choices: []WireStreamChoice{},
		Usage: &Usage{
			PromptTokens:     total.InputTokens,
			CompletionTokens: total.OutputTokens,
			TotalTokens:      total.InputTokens + total.OutputTokens,
		},
	}
}
