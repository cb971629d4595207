// Package model defines the provider-agnostic request/response types shared
// by functions, providers, and the routing layer. Content is modeled as
// typed parts (text, tool use/result, thinking, files) rather than flattened
// strings so provider adapters can round-trip structure precisely.
package model

import "encoding/json"

// Role identifies the speaker for a message in a conversation.
type Role string

const (
	// RoleUser identifies messages authored by the caller.
	RoleUser Role = "user"

	// RoleAssistant identifies messages authored by the model.
	RoleAssistant Role = "assistant"
)

type (
	// InputContent is a marker interface implemented by every content block
	// that may appear in an InputMessage. Concrete implementations capture
	// text, templated arguments, tool calls/results, files, thinking, and
	// opaque provider-specific payloads.
	InputContent interface {
		isInputContent()
	}

	// TextKind discriminates the shape of a TextContent block.
	TextKind string

	// TextContent carries textual input. Kind selects how Value should be
	// interpreted: as a legacy freeform JSON value, a plain string, or a
	// template-arguments object.
	TextContent struct {
		Kind  TextKind
		Value json.RawMessage
	}

	// RawTextContent bypasses schema validation entirely and is forwarded to
	// the provider verbatim.
	RawTextContent struct {
		Value string
	}

	// TemplateContent invokes a named template with the given arguments.
	// Resolution (expanding the template into text) is performed by a
	// caller-supplied template evaluator; this package only carries the
	// invocation, not the templating engine itself.
	TemplateContent struct {
		Name      string
		Arguments map[string]any
	}

	// ToolCallContent represents an assistant-issued tool invocation echoed
	// back into the transcript (for example, when replaying history).
	ToolCallContent struct {
		ID        string
		Name      string
		Arguments string
		RawName   string
		RawArgs   string
	}

	// ToolResultContent carries the result of a previously issued tool call.
	ToolResultContent struct {
		ID     string
		Name   string
		Result string
	}

	// FileContent attaches a file (image, document, audio) to a message.
	FileContent struct {
		MimeType   string
		Data       string // base64-encoded payload
		Detail     string
		StorageURI string
	}

	// ThoughtContent carries provider-issued reasoning echoed back into a
	// request (for example, when replaying an assistant turn that included
	// thinking blocks).
	ThoughtContent struct {
		Text     string
		Redacted bool
	}

	// UnknownContent wraps content this package does not recognize natively,
	// such as a provider-specific extension. ModelProviderName, when set,
	// scopes the block to exactly one fully qualified provider target; see
	// QualifiedProviderName.
	UnknownContent struct {
		Data             json.RawMessage
		ModelProviderName *string
	}
)

const (
	// TextKindLegacyValue carries an arbitrary JSON value for backward
	// compatibility with callers that have not migrated to typed content.
	TextKindLegacyValue TextKind = "legacy_value"

	// TextKindText carries a plain string.
	TextKindText TextKind = "text"

	// TextKindArguments carries a JSON object intended for template
	// expansion or schema validation.
	TextKindArguments TextKind = "arguments"
)

func (TextContent) isInputContent()       {}
func (RawTextContent) isInputContent()    {}
func (TemplateContent) isInputContent()   {}
func (ToolCallContent) isInputContent()   {}
func (ToolResultContent) isInputContent() {}
func (FileContent) isInputContent()       {}
func (ThoughtContent) isInputContent()    {}
func (UnknownContent) isInputContent()    {}

type (
	// OutputContent is a marker interface implemented by every content block
	// a provider may emit.
	OutputContent interface {
		isOutputContent()
	}

	// TextOutput carries assistant-visible text.
	TextOutput struct {
		Text string
	}

	// ToolCallOutput carries a tool invocation requested by the model.
	ToolCallOutput struct {
		ID        string
		Name      string
		Arguments string // canonical JSON arguments as emitted by the provider
		RawName   string
		RawArgs   string
	}

	// ThoughtOutput carries provider reasoning content produced during the
	// call.
	ThoughtOutput struct {
		Text     string
		Redacted bool
	}

	// UnknownOutput wraps provider-emitted content this package does not
	// recognize. ModelProviderName records the fully qualified name of the
	// provider that emitted it so downstream routing can scope the block to
	// that provider on any subsequent turn.
	UnknownOutput struct {
		Data              json.RawMessage
		ModelProviderName string
	}
)

func (TextOutput) isOutputContent()    {}
func (ToolCallOutput) isOutputContent() {}
func (ThoughtOutput) isOutputContent() {}
func (UnknownOutput) isOutputContent() {}

// QualifiedProviderName returns the fully qualified name used to scope
// Unknown content blocks to a single (model, provider) target, per the
// gateway's external wire contract.
func QualifiedProviderName(modelName, providerName string) string {
	return "tensorzero::model_name::" + modelName + "::provider_name::" + providerName
}
