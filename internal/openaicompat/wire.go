package openaicompat

import "encoding/json"

// ChatCompletionRequest is the extended OpenAI chat request schema
// accepted by POST /openai/v1/chat/completions (§4.5/§6). Fields prefixed
// tensorzero:: are the gateway's own extensions.
type ChatCompletionRequest struct {
	Model    string        `json:"model"`
	Messages []WireMessage `json:"messages"`

	Temperature      *float32 `json:"temperature,omitempty"`
	MaxTokens        *int     `json:"max_tokens,omitempty"`
	TopP             *float32 `json:"top_p,omitempty"`
	PresencePenalty  *float32 `json:"presence_penalty,omitempty"`
	FrequencyPenalty *float32 `json:"frequency_penalty,omitempty"`
	Seed             *int64   `json:"seed,omitempty"`
	Stop             []string `json:"stop,omitempty"`

	Stream        bool           `json:"stream,omitempty"`
	StreamOptions *StreamOptions `json:"stream_options,omitempty"`

	Tools             []WireTool      `json:"tools,omitempty"`
	ToolChoice        json.RawMessage `json:"tool_choice,omitempty"`
	ParallelToolCalls *bool           `json:"parallel_tool_calls,omitempty"`

	ResponseFormat *ResponseFormat `json:"response_format,omitempty"`

	VariantName    *string          `json:"tensorzero::variant_name,omitempty"`
	Dryrun         bool             `json:"tensorzero::dryrun,omitempty"`
	EpisodeID      *string          `json:"tensorzero::episode_id,omitempty"`
	CacheOptions   *WireCacheOptions `json:"tensorzero::cache_options,omitempty"`
	ExtraBody      json.RawMessage  `json:"tensorzero::extra_body,omitempty"`
	ExtraHeaders   map[string]string `json:"tensorzero::extra_headers,omitempty"`
	Tags           map[string]string `json:"tensorzero::tags,omitempty"`
	DenyUnknownFields bool          `json:"tensorzero::deny_unknown_fields,omitempty"`
	Credentials    map[string]string `json:"tensorzero::credentials,omitempty"`
	ProviderTools  []WireTool        `json:"tensorzero::provider_tools,omitempty"`

	AllowedTools []string `json:"tensorzero::allowed_tools,omitempty"`
}

// StreamOptions mirrors OpenAI's stream_options object.
type StreamOptions struct {
	IncludeUsage bool `json:"include_usage,omitempty"`
}

// WireCacheOptions mirrors §6's tensorzero::cache_options extension.
type WireCacheOptions struct {
	Enabled string `json:"enabled,omitempty"` // off | on | read_only | write_only
	MaxAgeS *int64 `json:"max_age_s,omitempty"`
}

// WireTool mirrors an OpenAI function-tool definition.
type WireTool struct {
	Type     string `json:"type"`
	Function struct {
		Name        string          `json:"name"`
		Description string          `json:"description,omitempty"`
		Parameters  json.RawMessage `json:"parameters,omitempty"`
		Strict      bool            `json:"strict,omitempty"`
	} `json:"function"`
}

// ResponseFormat mirrors OpenAI's response_format object, used to detect a
// json_object/json_schema request (mapped onto JSONMode On/Strict).
type ResponseFormat struct {
	Type       string          `json:"type"`
	JSONSchema json.RawMessage `json:"json_schema,omitempty"`
}

// WireMessage is one message in the extended OpenAI chat request/response
// wire format.
type WireMessage struct {
	Role       string          `json:"role"`
	Content    json.RawMessage `json:"content,omitempty"`
	ToolCalls  []WireToolCall  `json:"tool_calls,omitempty"`
	ToolCallID string          `json:"tool_call_id,omitempty"`
	Name       string          `json:"name,omitempty"`
}

// WireToolCall mirrors an OpenAI assistant tool_calls entry.
type WireToolCall struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Function struct {
		Name      string `json:"name"`
		Arguments string `json:"arguments"`
	} `json:"function"`
}

// WireContentBlock is one element of an array-valued message "content"
// field (§4.5).
type WireContentBlock struct {
	Type string `json:"type"`

	// type == "text"
	Text      *string         `json:"text,omitempty"`
	Arguments json.RawMessage `json:"tensorzero::arguments,omitempty"`

	// type == "image_url"
	ImageURL *WireImageURL `json:"image_url,omitempty"`

	// type == "file"
	File *WireFile `json:"file,omitempty"`

	// type == "tensorzero::raw_text"
	RawText *string `json:"tensorzero::raw_text,omitempty"`

	// type == "tensorzero::template"
	Template *WireTemplate `json:"tensorzero::template,omitempty"`
}

// WireImageURL mirrors OpenAI's image_url content block: either a raw URL
// or a base64 data URL ("data:<mime>;base64,<data>").
type WireImageURL struct {
	URL string `json:"url"`
}

// WireFile mirrors a base64-encoded file attachment with a filename the
// gateway infers a MIME type from.
type WireFile struct {
	Filename string `json:"filename"`
	FileData string `json:"file_data"` // base64
}

// WireTemplate invokes a named template by name with JSON arguments.
type WireTemplate struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}
