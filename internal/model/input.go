package model

import "encoding/json"

type (
	// SystemValue is the system prompt content for a request: either free
	// text or a template-arguments object resolved by the active variant's
	// system template.
	SystemValue struct {
		Text      *string
		Arguments map[string]any
	}

	// InputMessage is a single message supplied by the caller.
	InputMessage struct {
		Role    Role
		Content []InputContent
	}

	// Input is the typed request body accepted by a Function: an optional
	// system value plus an ordered sequence of messages.
	Input struct {
		System   *SystemValue
		Messages []InputMessage
	}
)

// IsTemplateArguments reports whether the system value is a non-string
// arguments object rather than resolved text.
func (s *SystemValue) IsTemplateArguments() bool {
	return s != nil && s.Text == nil && s.Arguments != nil
}

// MarshalJSON renders TextContent using an explicit Kind discriminator so
// round-trips do not lose which of the three shapes (legacy value, plain
// text, arguments) the block was constructed with.
func (t TextContent) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Kind  TextKind        `json:"kind"`
		Value json.RawMessage `json:"value"`
	}{Kind: t.Kind, Value: t.Value})
}
