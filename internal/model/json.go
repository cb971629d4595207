package model

import (
	"encoding/json"
	"fmt"
)

// Output content blocks are interface values, so a plain json.Unmarshal has
// no way to pick a concrete type for them. OutputBlocks gives the slice a
// kind-discriminated wire form (an explicit "kind" tag next to the block
// payload) so cached responses survive a round trip through an external
// store such as Redis.

// OutputBlocks is []OutputContent with a kind-discriminated JSON encoding.
type OutputBlocks []OutputContent

type outputBlockEnvelope struct {
	Kind string          `json:"kind"`
	Data json.RawMessage `json:"data"`
}

const (
	outputKindText     = "text"
	outputKindToolCall = "tool_call"
	outputKindThought  = "thought"
	outputKindUnknown  = "unknown"
)

func (b OutputBlocks) MarshalJSON() ([]byte, error) {
	envelopes := make([]outputBlockEnvelope, len(b))
	for i, block := range b {
		var kind string
		switch block.(type) {
		case TextOutput:
			kind = outputKindText
		case ToolCallOutput:
			kind = outputKindToolCall
		case ThoughtOutput:
			kind = outputKindThought
		case UnknownOutput:
			kind = outputKindUnknown
		default:
			return nil, fmt.Errorf("model: cannot encode output content of type %T", block)
		}
		data, err := json.Marshal(block)
		if err != nil {
			return nil, err
		}
		envelopes[i] = outputBlockEnvelope{Kind: kind, Data: data}
	}
	return json.Marshal(envelopes)
}

func (b *OutputBlocks) UnmarshalJSON(data []byte) error {
	var envelopes []outputBlockEnvelope
	if err := json.Unmarshal(data, &envelopes); err != nil {
		return err
	}
	out := make(OutputBlocks, 0, len(envelopes))
	for _, env := range envelopes {
		var block OutputContent
		switch env.Kind {
		case outputKindText:
			var v TextOutput
			if err := json.Unmarshal(env.Data, &v); err != nil {
				return err
			}
			block = v
		case outputKindToolCall:
			var v ToolCallOutput
			if err := json.Unmarshal(env.Data, &v); err != nil {
				return err
			}
			block = v
		case outputKindThought:
			var v ThoughtOutput
			if err := json.Unmarshal(env.Data, &v); err != nil {
				return err
			}
			block = v
		case outputKindUnknown:
			var v UnknownOutput
			if err := json.Unmarshal(env.Data, &v); err != nil {
				return err
			}
			block = v
		default:
			return fmt.Errorf("model: unrecognized output content kind %q", env.Kind)
		}
		out = append(out, block)
	}
	*b = out
	return nil
}

type messageWire struct {
	Role    Role         `json:"role"`
	Content OutputBlocks `json:"content"`
}

// MarshalJSON encodes the message's content blocks with kind discriminators
// so a Message survives the same store round trips as OutputBlocks, and so
// two blocks of different kinds that happen to share field names can never
// produce the same cache-key bytes.
func (m Message) MarshalJSON() ([]byte, error) {
	return json.Marshal(messageWire{Role: m.Role, Content: OutputBlocks(m.Content)})
}

func (m *Message) UnmarshalJSON(data []byte) error {
	var w messageWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	m.Role = w.Role
	m.Content = w.Content
	return nil
}
