package bedrock

import (
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"

	"github.com/inferly/gatewaycore/internal/model"
	"github.com/inferly/gatewaycore/internal/provider"
)

// decoder adapts a Bedrock ConverseStream event channel into provider.Stream.
// Like Anthropic, Bedrock establishes tool-call identity once via
// content_block_start and repeats only the index on each subsequent delta,
// so the decoder tracks per-index (id, name) state, erroring if a delta
// arrives before its start event, per §4.2's streaming decoder contract.
type decoder struct {
	events     <-chan brtypes.ConverseStreamOutput
	stream     *bedrockruntime.ConverseStreamEventStream
	rawRequest string
	prefill    bool
	firstText  bool
	toolByIdx  map[int32]toolIdentity
	done       bool
}

type toolIdentity struct {
	id   string
	name string
}

func newDecoder(out *bedrockruntime.ConverseStreamOutput, rawRequest string, prefill bool) *decoder {
	stream := out.GetStream()
	return &decoder{
		events:     stream.Events(),
		stream:     stream,
		rawRequest: rawRequest,
		prefill:    prefill,
		firstText:  true,
		toolByIdx:  make(map[int32]toolIdentity),
	}
}

func (d *decoder) Close() error { return d.stream.Close() }

// RawRequest implements provider.RawRequestCapable.
func (d *decoder) RawRequest() string { return d.rawRequest }

func (d *decoder) Next() (*model.ProviderInferenceResponseChunk, error) {
	if d.done {
		return nil, provider.ErrStreamDone
	}
	for {
		event, ok := <-d.events
		if !ok {
			if err := d.stream.Err(); err != nil {
				d.done = true
				return nil, translateError(err)
			}
			d.done = true
			return nil, provider.ErrStreamDone
		}
		chunk, emit, err := d.handle(event)
		if err != nil {
			d.done = true
			return nil, err
		}
		if emit {
			return chunk, nil
		}
	}
}

func (d *decoder) handle(event brtypes.ConverseStreamOutput) (*model.ProviderInferenceResponseChunk, bool, error) {
	switch ev := event.(type) {
	case *brtypes.ConverseStreamOutputMemberContentBlockStart:
		idx, err := contentIndex(ev.Value.ContentBlockIndex)
		if err != nil {
			return nil, false, err
		}
		if start, ok := ev.Value.Start.(*brtypes.ContentBlockStartMemberToolUse); ok {
			if start.Value.ToolUseId == nil || *start.Value.ToolUseId == "" {
				return nil, false, fmt.Errorf("bedrock stream: tool_use start missing tool_use_id")
			}
			if start.Value.Name == nil || *start.Value.Name == "" {
				return nil, false, fmt.Errorf("bedrock stream: tool_use start missing name")
			}
			d.toolByIdx[idx] = toolIdentity{id: *start.Value.ToolUseId, name: *start.Value.Name}
		}
		return nil, false, nil

	case *brtypes.ConverseStreamOutputMemberContentBlockDelta:
		idx, err := contentIndex(ev.Value.ContentBlockIndex)
		if err != nil {
			return nil, false, err
		}
		switch delta := ev.Value.Delta.(type) {
		case *brtypes.ContentBlockDeltaMemberText:
			if delta.Value == "" {
				return nil, false, nil
			}
			text := delta.Value
			if d.firstText && d.prefill {
				text = provider.ReopenJSONPrefillText(text)
			}
			d.firstText = false
			return &model.ProviderInferenceResponseChunk{
				Content: []model.ContentBlockChunk{{Type: model.ChunkTypeText, Text: text}},
			}, true, nil

		case *brtypes.ContentBlockDeltaMemberToolUse:
			if delta.Value.Input == nil {
				return nil, false, nil
			}
			id, ok := d.toolByIdx[idx]
			if !ok {
				return nil, false, fmt.Errorf("bedrock stream: tool argument delta at index %d before content_block_start", idx)
			}
			return &model.ProviderInferenceResponseChunk{
				Content: []model.ContentBlockChunk{{
					Type:                   model.ChunkTypeToolCall,
					ToolCallID:             id.id,
					ToolCallName:           id.name,
					ToolCallArgumentsDelta: *delta.Value.Input,
				}},
			}, true, nil

		case *brtypes.ContentBlockDeltaMemberReasoningContent:
			if text, ok := delta.Value.(*brtypes.ReasoningContentBlockDeltaMemberText); ok && text.Value != "" {
				return &model.ProviderInferenceResponseChunk{
					Content: []model.ContentBlockChunk{{Type: model.ChunkTypeThought, ThoughtText: text.Value}},
				}, true, nil
			}
			return nil, false, nil
		}
		return nil, false, nil

	case *brtypes.ConverseStreamOutputMemberContentBlockStop:
		idx, err := contentIndex(ev.Value.ContentBlockIndex)
		if err != nil {
			return nil, false, err
		}
		delete(d.toolByIdx, idx)
		return nil, false, nil

	case *brtypes.ConverseStreamOutputMemberMessageStop:
		reason := provider.NormalizeFinishReason(finishReasonTable, string(ev.Value.StopReason))
		raw, _ := json.Marshal(ev.Value)
		return &model.ProviderInferenceResponseChunk{
			FinishReason: &reason,
			RawResponse:  string(raw),
		}, true, nil

	case *brtypes.ConverseStreamOutputMemberMetadata:
		if ev.Value.Usage == nil {
			return nil, false, nil
		}
		var in, out int
		if t := ev.Value.Usage.InputTokens; t != nil {
			in = int(*t)
		}
		if t := ev.Value.Usage.OutputTokens; t != nil {
			out = int(*t)
		}
		usage := model.Usage{InputTokens: in, OutputTokens: out}
		return &model.ProviderInferenceResponseChunk{Usage: &usage}, true, nil
	}
	return nil, false, nil
}

func contentIndex(idx *int32) (int32, error) {
	if idx == nil {
		return 0, fmt.Errorf("bedrock stream: content block index missing")
	}
	return *idx, nil
}
