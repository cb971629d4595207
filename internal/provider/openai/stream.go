package openai

import (
	"encoding/json"

	sdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/packages/ssestream"

	"github.com/inferly/gatewaycore/internal/model"
	"github.com/inferly/gatewaycore/internal/provider"
)

// decoder adapts an OpenAI chat-completion chunk stream into provider.Stream.
// OpenAI repeats each tool call's id/name on every chunk carrying that tool
// call's index (unlike Anthropic, which establishes identity once), so no
// cross-chunk identity tracking is required here.
type decoder struct {
	stream     *ssestream.Stream[sdk.ChatCompletionChunk]
	rawRequest string
	done       bool
}

func newDecoder(stream *ssestream.Stream[sdk.ChatCompletionChunk], rawRequest string) *decoder {
	return &decoder{stream: stream, rawRequest: rawRequest}
}

func (d *decoder) Close() error { return d.stream.Close() }

// RawRequest implements provider.RawRequestCapable.
func (d *decoder) RawRequest() string { return d.rawRequest }

func (d *decoder) Next() (*model.ProviderInferenceResponseChunk, error) {
	if d.done {
		return nil, provider.ErrStreamDone
	}
	if !d.stream.Next() {
		if err := d.stream.Err(); err != nil {
			return nil, translateError(err)
		}
		d.done = true
		return nil, provider.ErrStreamDone
	}

	chunk := d.stream.Current()
	raw, _ := json.Marshal(chunk)
	out := &model.ProviderInferenceResponseChunk{RawResponse: string(raw)}

	if chunk.Usage.TotalTokens > 0 {
		out.Usage = &model.Usage{
			InputTokens:  int(chunk.Usage.PromptTokens),
			OutputTokens: int(chunk.Usage.CompletionTokens),
		}
	}

	if len(chunk.Choices) == 0 {
		return out, nil
	}
	choice := chunk.Choices[0]

	if choice.Delta.Content != "" {
		out.Content = append(out.Content, model.ContentBlockChunk{Type: model.ChunkTypeText, Text: choice.Delta.Content})
	}
	for _, tc := range choice.Delta.ToolCalls {
		out.Content = append(out.Content, model.ContentBlockChunk{
			Type:                   model.ChunkTypeToolCall,
			ToolCallID:             tc.ID,
			ToolCallName:           tc.Function.Name,
			ToolCallArgumentsDelta: tc.Function.Arguments,
		})
	}
	if choice.FinishReason != "" {
		reason := provider.NormalizeFinishReason(finishReasonTable, choice.FinishReason)
		out.FinishReason = &reason
	}
	return out, nil
}
