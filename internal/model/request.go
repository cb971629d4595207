package model

import "time"

// JSONMode controls how a request enforces structured JSON output.
type JSONMode string

const (
	// JSONModeOff applies no JSON enforcement.
	JSONModeOff JSONMode = "off"

	// JSONModeOn requests JSON via provider-native prefill/response-format
	// hints but does not re-validate the result against a schema.
	JSONModeOn JSONMode = "on"

	// JSONModeStrict behaves like JSONModeOn plus schema re-validation of
	// the parsed result.
	JSONModeStrict JSONMode = "strict"

	// JSONModeImplicitTool synthesizes a single tool from the function's
	// output schema and forces the model to call it, extracting the tool
	// arguments as the JSON response.
	JSONModeImplicitTool JSONMode = "implicit_tool"
)

// FunctionType identifies which Function variant produced a request.
type FunctionType string

const (
	// FunctionTypeChat marks a request issued by a Chat function.
	FunctionTypeChat FunctionType = "chat"

	// FunctionTypeJSON marks a request issued by a JSON function.
	FunctionTypeJSON FunctionType = "json"
)

// Message is a provider-ready conversation turn: a role plus ordered output
// content blocks. Providers translate ModelInferenceRequest.Messages (which
// reuse OutputContent so assistant history round-trips without loss) into
// their own wire format.
type Message struct {
	Role    Role
	Content []OutputContent
}

// Usage reports token consumption for a single provider call.
type Usage struct {
	InputTokens  int
	OutputTokens int
}

// FinishReason normalizes provider-specific stop reasons into a small closed
// set understood by the rest of the gateway.
type FinishReason string

const (
	FinishReasonStop           FinishReason = "stop"
	FinishReasonStopSequence   FinishReason = "stop_sequence"
	FinishReasonLength         FinishReason = "length"
	FinishReasonContentFilter  FinishReason = "content_filter"
	FinishReasonToolCall       FinishReason = "tool_call"
	FinishReasonUnknown        FinishReason = "unknown"
)

// ModelInferenceRequest is the canonical, provider-agnostic request shape
// consumed by provider adapters. It is built once per (model, routing
// attempt) by the routing layer, which re-derives Messages per provider to
// apply Unknown-content filtering.
type ModelInferenceRequest struct {
	InferenceID string

	Messages []Message
	System   *string

	ToolConfig *ToolCallConfig

	Temperature      *float32
	MaxTokens        *int
	Seed             *int64
	TopP             *float32
	PresencePenalty  *float32
	FrequencyPenalty *float32
	StopSequences    []string

	Stream   bool
	JSONMode JSONMode

	FunctionType FunctionType
	OutputSchema map[string]any

	// VariantExtraBody and ExtraBody carry the variant-level and
	// request-level extra_body overlays as separate tiers, set by the
	// Function layer before the request reaches routing. The provider-level
	// tier lives on each backend's Config; the adapter hands all three to
	// provider.InjectExtraRequestData, which applies them in the
	// variant < provider < request precedence order §4.2 requires.
	VariantExtraBody []ExtraBodyEntry
	ExtraBody        []ExtraBodyEntry

	// VariantExtraHeaders and ExtraHeaders are the header counterparts,
	// same tiering. Provider-level headers live on each backend's Config
	// (e.g. AnthropicConfig.ExtraHeaders).
	VariantExtraHeaders map[string]string
	ExtraHeaders        map[string]string

	// DynamicCredentials is the caller-supplied per-request credential map
	// (tensorzero::credentials) that a provider whose configured location
	// is dynamic::KEY resolves its secret against. Excluded from the cache
	// fingerprint.
	DynamicCredentials map[string]string

	// CacheMode, when non-empty, overrides the routing Model's configured
	// response-cache mode for this request ("off", "on", "read_only",
	// "write_only"). CacheMaxAgeS bounds the age of a non-streaming cache
	// hit in seconds; nil accepts any age. Both are excluded from the cache
	// fingerprint.
	CacheMode    string
	CacheMaxAgeS *int64
}

// ExtraBodyEntry is a single late-bound JSON-path overlay applied to an
// outgoing provider payload.
type ExtraBodyEntry struct {
	Pointer string // RFC 6901 JSON pointer, e.g. "/metadata/tag"
	Value   any
}

// ProviderInferenceResponse is the canonical, provider-agnostic response
// shape produced by a non-streaming provider call.
type ProviderInferenceResponse struct {
	Output []OutputContent

	RawRequest  string
	RawResponse string

	System        *string
	InputMessages []Message

	Usage Usage

	Latency time.Duration

	FinishReason *FinishReason
}

// ProviderInferenceResponseChunk is a single streaming event emitted by a
// provider's stream decoder.
type ProviderInferenceResponseChunk struct {
	Content []ContentBlockChunk

	Usage *Usage

	RawResponse string
	Latency     time.Duration

	FinishReason *FinishReason
}

// ContentBlockChunk is a single incremental content fragment within a
// streaming chunk.
type ContentBlockChunk struct {
	Type ContentBlockChunkType

	// Text carries the incremental text for ChunkTypeText.
	Text string

	// ToolCallID/ToolCallName/ToolCallArgumentsDelta carry an incremental
	// tool-call argument fragment for ChunkTypeToolCall. The decoder must
	// have seen a content_block_start establishing (ToolCallID,
	// ToolCallName) before emitting an argument delta; emitting a delta
	// without a preceding start is a decoder error.
	ToolCallID              string
	ToolCallName            string
	ToolCallArgumentsDelta  string

	// ThoughtText carries incremental reasoning text for ChunkTypeThought.
	ThoughtText string
}

// ContentBlockChunkType discriminates ContentBlockChunk.
type ContentBlockChunkType string

const (
	ChunkTypeText     ContentBlockChunkType = "text"
	ChunkTypeToolCall ContentBlockChunkType = "tool_call"
	ChunkTypeThought  ContentBlockChunkType = "thought"
)
