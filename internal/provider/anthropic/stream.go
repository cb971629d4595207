package anthropic

import (
	"encoding/json"
	"fmt"

	sdk "github.com/anthropics/anthropic-sdk-go"

	"github.com/inferly/gatewaycore/internal/model"
	"github.com/inferly/gatewaycore/internal/provider"
)

// decoder adapts a StreamHandle into provider.Stream, converting Anthropic
// SSE events into ProviderInferenceResponseChunk values. Tool-call argument
// deltas arrive without repeating tool identity (content_block_start
// establishes it once), so the decoder tracks per-index (id, name) state
// and errors if a delta arrives before its start event, per §4.2's
// streaming decoder contract.
type decoder struct {
	stream     StreamHandle
	rawRequest string
	prefill    bool
	firstText  bool
	toolByIdx  map[int64]toolIdentity
	done       bool
}

type toolIdentity struct {
	id   string
	name string
}

func newDecoder(stream StreamHandle, rawRequest string, prefill bool) *decoder {
	return &decoder{
		stream:     stream,
		rawRequest: rawRequest,
		prefill:    prefill,
		firstText:  true,
		toolByIdx:  make(map[int64]toolIdentity),
	}
}

func (d *decoder) Close() error { return d.stream.Close() }

// RawRequest implements provider.RawRequestCapable.
func (d *decoder) RawRequest() string { return d.rawRequest }

func (d *decoder) Next() (*model.ProviderInferenceResponseChunk, error) {
	if d.done {
		return nil, provider.ErrStreamDone
	}
	for d.stream.Next() {
		event := d.stream.Current()
		chunk, ok, err := d.handle(event)
		if err != nil {
			return nil, err
		}
		if ok {
			return chunk, nil
		}
	}
	if err := d.stream.Err(); err != nil {
		return nil, translateError(err)
	}
	d.done = true
	return nil, provider.ErrStreamDone
}

func (d *decoder) handle(event sdk.MessageStreamEventUnion) (*model.ProviderInferenceResponseChunk, bool, error) {
	switch ev := event.AsAny().(type) {
	case sdk.ContentBlockStartEvent:
		if tu, ok := ev.ContentBlock.AsAny().(sdk.ToolUseBlock); ok {
			if tu.ID == "" || tu.Name == "" {
				return nil, false, fmt.Errorf("anthropic stream: tool_use start missing id/name")
			}
			d.toolByIdx[ev.Index] = toolIdentity{id: tu.ID, name: tu.Name}
		}
		return nil, false, nil

	case sdk.ContentBlockDeltaEvent:
		switch delta := ev.Delta.AsAny().(type) {
		case sdk.TextDelta:
			if delta.Text == "" {
				return nil, false, nil
			}
			text := delta.Text
			if d.firstText && d.prefill {
				text = provider.ReopenJSONPrefillText(text)
			}
			d.firstText = false
			return &model.ProviderInferenceResponseChunk{
				Content: []model.ContentBlockChunk{{Type: model.ChunkTypeText, Text: text}},
			}, true, nil

		case sdk.InputJSONDelta:
			if delta.PartialJSON == "" {
				return nil, false, nil
			}
			id, ok := d.toolByIdx[ev.Index]
			if !ok {
				return nil, false, fmt.Errorf("anthropic stream: tool argument delta at index %d before content_block_start", ev.Index)
			}
			return &model.ProviderInferenceResponseChunk{
				Content: []model.ContentBlockChunk{{
					Type:                   model.ChunkTypeToolCall,
					ToolCallID:             id.id,
					ToolCallName:           id.name,
					ToolCallArgumentsDelta: delta.PartialJSON,
				}},
			}, true, nil

		case sdk.ThinkingDelta:
			if delta.Thinking == "" {
				return nil, false, nil
			}
			return &model.ProviderInferenceResponseChunk{
				Content: []model.ContentBlockChunk{{Type: model.ChunkTypeThought, ThoughtText: delta.Thinking}},
			}, true, nil
		}
		return nil, false, nil

	case sdk.MessageDeltaEvent:
		usage := model.Usage{InputTokens: int(ev.Usage.InputTokens), OutputTokens: int(ev.Usage.OutputTokens)}
		reason := provider.NormalizeFinishReason(finishReasonTable, string(ev.Delta.StopReason))
		raw, _ := json.Marshal(ev)
		return &model.ProviderInferenceResponseChunk{
			Usage:        &usage,
			FinishReason: &reason,
			RawResponse:  string(raw),
		}, true, nil

	case sdk.MessageStopEvent:
		d.done = true
		return nil, false, nil
	}
	return nil, false, nil
}
