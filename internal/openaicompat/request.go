package openaicompat

import (
	"encoding/json"
	"mime"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/inferly/gatewaycore/internal/function"
	"github.com/inferly/gatewaycore/internal/gatewayerr"
	"github.com/inferly/gatewaycore/internal/model"
)

// Params is the normalized, internal-model-ready result of translating a
// ChatCompletionRequest (§4.5's normalization contract).
type Params struct {
	Target InferenceTarget
	Input  model.Input

	Temperature      *float32
	MaxTokens        *int
	TopP             *float32
	PresencePenalty  *float32
	FrequencyPenalty *float32
	Seed             *int64
	StopSequences    []string

	Stream             bool
	StreamIncludeUsage bool

	JSONMode model.JSONMode

	DynamicTools function.DynamicToolParams

	ExtraBody    []model.ExtraBodyEntry
	ExtraHeaders map[string]string

	VariantName *string
	Dryrun      bool
	EpisodeID   *string
	Tags        map[string]string
	Credentials map[string]string

	CacheOptions *WireCacheOptions
}

// NormalizeRequest implements §4.5's full request normalization: model
// string routing, message normalization (system/user/assistant/tool role
// mapping, tool-call id/name memoization, content block dispatch), and
// tool_choice/response_format decoding.
func NormalizeRequest(req ChatCompletionRequest, logger *zap.Logger) (*Params, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	target, err := ParseModelString(req.Model)
	if err != nil {
		return nil, err
	}

	system, messages, err := normalizeMessages(req.Messages, logger)
	if err != nil {
		return nil, err
	}

	params := &Params{
		Target:           target,
		Input:            model.Input{System: system, Messages: messages},
		Temperature:      req.Temperature,
		MaxTokens:        req.MaxTokens,
		TopP:             req.TopP,
		PresencePenalty:  req.PresencePenalty,
		FrequencyPenalty: req.FrequencyPenalty,
		Seed:             req.Seed,
		StopSequences:    req.Stop,
		Stream:           req.Stream,
		ExtraHeaders:     req.ExtraHeaders,
		VariantName:      req.VariantName,
		Dryrun:           req.Dryrun,
		EpisodeID:        req.EpisodeID,
		Tags:             req.Tags,
		Credentials:      req.Credentials,
		CacheOptions:     req.CacheOptions,
	}
	if req.StreamOptions != nil {
		params.StreamIncludeUsage = req.StreamOptions.IncludeUsage
	}
	if len(req.ExtraBody) > 0 {
		entries, err := decodeExtraBody(req.ExtraBody)
		if err != nil {
			return nil, err
		}
		params.ExtraBody = entries
	}

	if len(req.Tools) > 0 {
		params.DynamicTools.AdditionalTools = toolsFromWire(req.Tools)
	}
	if len(req.AllowedTools) > 0 {
		params.DynamicTools.AllowedTools = req.AllowedTools
	}
	if req.ParallelToolCalls != nil {
		params.DynamicTools.ParallelToolCalls = req.ParallelToolCalls
	}
	if len(req.ToolChoice) > 0 {
		parsed, err := ParseToolChoice(req.ToolChoice)
		if err != nil {
			return nil, err
		}
		choice := parsed.Choice
		params.DynamicTools.ToolChoice = &choice
		if len(parsed.AllowedTools) > 0 {
			params.DynamicTools.AllowedTools = parsed.AllowedTools
		}
	}

	params.JSONMode = jsonModeFromResponseFormat(req.ResponseFormat)

	return params, nil
}

// decodeExtraBody decodes the tensorzero::extra_body extension: an ordered
// list of {pointer, value} overlays applied to the outgoing provider payload
// after the variant- and provider-level overlays.
func decodeExtraBody(raw json.RawMessage) ([]model.ExtraBodyEntry, error) {
	var wire []struct {
		Pointer string `json:"pointer"`
		Value   any    `json:"value"`
	}
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, gatewayerr.Wrap(gatewayerr.KindInvalidOpenAICompatibleRequest,
			"tensorzero::extra_body must be a list of {pointer, value} entries", err)
	}
	out := make([]model.ExtraBodyEntry, len(wire))
	for i, e := range wire {
		if !strings.HasPrefix(e.Pointer, "/") {
			return nil, gatewayerr.New(gatewayerr.KindInvalidOpenAICompatibleRequest,
				"tensorzero::extra_body pointer \""+e.Pointer+"\" must be a JSON pointer starting with '/'")
		}
		out[i] = model.ExtraBodyEntry{Pointer: e.Pointer, Value: e.Value}
	}
	return out, nil
}

func toolsFromWire(tools []WireTool) []model.ToolDefinition {
	out := make([]model.ToolDefinition, 0, len(tools))
	for _, t := range tools {
		var params map[string]any
		if len(t.Function.Parameters) > 0 {
			_ = json.Unmarshal(t.Function.Parameters, &params)
		}
		out = append(out, model.ToolDefinition{
			Name:        t.Function.Name,
			Description: t.Function.Description,
			Parameters:  params,
			Strict:      t.Function.Strict,
		})
	}
	return out
}

func jsonModeFromResponseFormat(rf *ResponseFormat) model.JSONMode {
	if rf == nil {
		return model.JSONModeOff
	}
	switch rf.Type {
	case "json_object":
		return model.JSONModeOn
	case "json_schema":
		return model.JSONModeStrict
	default:
		return model.JSONModeOff
	}
}

// normalizeMessages implements §4.5's message normalization: system/
// developer roles collapse into the system value (concatenated if multiple
// strings, rejected if any is non-string, warned if non-initial); user and
// assistant map directly, with assistant tool_calls expanded into ToolCall
// blocks and memoized by id so a later "tool" role message can be rewritten
// into a User message carrying a resolved ToolResult (§8 scenario B).
func normalizeMessages(wire []WireMessage, logger *zap.Logger) (*model.SystemValue, []model.InputMessage, error) {
	var systemTexts []string
	var systemArgsSeen bool
	var systemArgs map[string]any

	toolCallNames := make(map[string]string)
	out := make([]model.InputMessage, 0, len(wire))

	for i, m := range wire {
		switch m.Role {
		case "system", "developer":
			text, isString, err := decodeStringOrObject(m.Content)
			if err != nil {
				return nil, nil, err
			}
			if !isString {
				if systemArgsSeen || len(systemTexts) > 0 {
					return nil, nil, gatewayerr.New(gatewayerr.KindInvalidOpenAICompatibleRequest,
						"multiple system messages are only supported when all are plain strings")
				}
				systemArgsSeen = true
				var args map[string]any
				if err := json.Unmarshal(m.Content, &args); err != nil {
					return nil, nil, gatewayerr.Wrap(gatewayerr.KindInvalidOpenAICompatibleRequest, "decoding system message arguments", err)
				}
				systemArgs = args
				continue
			}
			if systemArgsSeen {
				return nil, nil, gatewayerr.New(gatewayerr.KindInvalidOpenAICompatibleRequest,
					"multiple system messages are only supported when all are plain strings")
			}
			if i != 0 {
				logger.Warn("non-initial system message")
			}
			systemTexts = append(systemTexts, text)

		case "user":
			content, err := parseContentValue(m.Content)
			if err != nil {
				return nil, nil, err
			}
			out = append(out, model.InputMessage{Role: model.RoleUser, Content: content})

		case "assistant":
			content, err := parseContentValue(m.Content)
			if err != nil {
				return nil, nil, err
			}
			for _, tc := range m.ToolCalls {
				toolCallNames[tc.ID] = tc.Function.Name
				content = append(content, model.ToolCallContent{
					ID:        tc.ID,
					Name:      tc.Function.Name,
					Arguments: tc.Function.Arguments,
				})
			}
			out = append(out, model.InputMessage{Role: model.RoleAssistant, Content: content})

		case "tool":
			name := toolCallNames[m.ToolCallID]
			text, _, err := decodeStringOrObject(m.Content)
			if err != nil {
				return nil, nil, err
			}
			out = append(out, model.InputMessage{
				Role: model.RoleUser,
				Content: []model.InputContent{model.ToolResultContent{
					ID:     m.ToolCallID,
					Name:   name,
					Result: text,
				}},
			})

		default:
			return nil, nil, gatewayerr.New(gatewayerr.KindInvalidOpenAICompatibleRequest, "unrecognized message role \""+m.Role+"\"")
		}
	}

	var sys *model.SystemValue
	switch {
	case systemArgsSeen:
		sys = &model.SystemValue{Arguments: systemArgs}
	case len(systemTexts) > 0:
		joined := strings.Join(systemTexts, "\n")
		sys = &model.SystemValue{Text: &joined}
	}
	return sys, out, nil
}

// decodeStringOrObject decodes a message's raw JSON content as a plain
// string, falling back to its compact JSON text when it is not (e.g. a
// legacy arguments object), reporting whether the string case applied.
func decodeStringOrObject(raw json.RawMessage) (text string, isString bool, err error) {
	if len(raw) == 0 {
		return "", true, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, true, nil
	}
	return string(raw), false, nil
}

// parseContentValue implements §4.5's content-value dispatch: a bare
// string becomes a single Text block; an array is parsed element by
// element into typed content blocks.
func parseContentValue(raw json.RawMessage) ([]model.InputContent, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		encoded, _ := json.Marshal(asString)
		return []model.InputContent{model.TextContent{Kind: model.TextKindText, Value: encoded}}, nil
	}

	var elements []json.RawMessage
	if err := json.Unmarshal(raw, &elements); err != nil {
		return nil, gatewayerr.Wrap(gatewayerr.KindInvalidOpenAICompatibleRequest, "content must be a string or an array of content blocks", err)
	}

	out := make([]model.InputContent, 0, len(elements))
	for _, elem := range elements {
		block, err := parseContentBlock(elem)
		if err != nil {
			return nil, err
		}
		out = append(out, block)
	}
	return out, nil
}

func parseContentBlock(raw json.RawMessage) (model.InputContent, error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, gatewayerr.Wrap(gatewayerr.KindInvalidOpenAICompatibleRequest, "decoding content block", err)
	}

	if _, hasType := probe["type"]; !hasType {
		return parseUntypedContentObject(probe, raw)
	}

	var wb WireContentBlock
	if err := json.Unmarshal(raw, &wb); err != nil {
		return nil, gatewayerr.Wrap(gatewayerr.KindInvalidOpenAICompatibleRequest, "decoding content block", err)
	}

	switch wb.Type {
	case "text":
		if wb.Text != nil && len(wb.Arguments) > 0 {
			return nil, gatewayerr.New(gatewayerr.KindInvalidOpenAICompatibleRequest,
				"text content block must set exactly one of \"text\" or \"tensorzero::arguments\"")
		}
		if wb.Text != nil {
			encoded, _ := json.Marshal(*wb.Text)
			return model.TextContent{Kind: model.TextKindText, Value: encoded}, nil
		}
		if len(wb.Arguments) > 0 {
			return model.TextContent{Kind: model.TextKindArguments, Value: wb.Arguments}, nil
		}
		return nil, gatewayerr.New(gatewayerr.KindInvalidOpenAICompatibleRequest,
			"text content block requires \"text\" or \"tensorzero::arguments\"")

	case "image_url":
		if wb.ImageURL == nil {
			return nil, gatewayerr.New(gatewayerr.KindInvalidOpenAICompatibleRequest, "image_url content block missing image_url")
		}
		return parseImageURL(wb.ImageURL.URL)

	case "file":
		if wb.File == nil {
			return nil, gatewayerr.New(gatewayerr.KindInvalidOpenAICompatibleRequest, "file content block missing file")
		}
		return model.FileContent{
			MimeType: mimeFromFilename(wb.File.Filename),
			Data:     wb.File.FileData,
		}, nil

	case "tensorzero::raw_text":
		if wb.RawText == nil {
			return nil, gatewayerr.New(gatewayerr.KindInvalidOpenAICompatibleRequest, "tensorzero::raw_text content block missing value")
		}
		return model.RawTextContent{Value: *wb.RawText}, nil

	case "tensorzero::template":
		if wb.Template == nil {
			return nil, gatewayerr.New(gatewayerr.KindInvalidOpenAICompatibleRequest, "tensorzero::template content block missing template")
		}
		var args map[string]any
		if len(wb.Template.Arguments) > 0 {
			if err := json.Unmarshal(wb.Template.Arguments, &args); err != nil {
				return nil, gatewayerr.Wrap(gatewayerr.KindInvalidOpenAICompatibleRequest, "decoding template arguments", err)
			}
		}
		return model.TemplateContent{Name: wb.Template.Name, Arguments: args}, nil

	default:
		return nil, gatewayerr.New(gatewayerr.KindInvalidOpenAICompatibleRequest, "unrecognized content block type \""+wb.Type+"\"")
	}
}

// parseUntypedContentObject implements §4.5's deprecated-acceptance rule:
// a JSON object with no "type" key is treated as Text{Arguments} unless it
// carries an unrecognized "tensorzero::*" key, which fails explicitly.
func parseUntypedContentObject(probe map[string]json.RawMessage, raw json.RawMessage) (model.InputContent, error) {
	for key := range probe {
		if strings.HasPrefix(key, "tensorzero::") {
			return nil, gatewayerr.New(gatewayerr.KindInvalidOpenAICompatibleRequest,
				"untyped content object carries unrecognized key \""+key+"\"")
		}
	}
	return model.TextContent{Kind: model.TextKindArguments, Value: raw}, nil
}

// parseImageURL parses either a raw URL, kept as a FileContent whose
// StorageURI is the URL, or a base64 data URL
// ("data:<mime>;base64,<data>") into {mime_type, base64_data}. A data URL
// that is not base64-encoded is rejected.
func parseImageURL(url string) (model.InputContent, error) {
	const prefix = "data:"
	if !strings.HasPrefix(url, prefix) {
		return model.FileContent{StorageURI: url}, nil
	}
	rest := url[len(prefix):]
	mimeType, b64, ok := strings.Cut(rest, ";base64,")
	if !ok {
		return nil, gatewayerr.New(gatewayerr.KindInvalidOpenAICompatibleRequest, "image_url data URL must be base64-encoded")
	}
	return model.FileContent{MimeType: mimeType, Data: b64}, nil
}

func mimeFromFilename(filename string) string {
	ext := filepath.Ext(filename)
	if ext == "" {
		return "application/octet-stream"
	}
	if t := mime.TypeByExtension(ext); t != "" {
		return t
	}
	return "application/octet-stream"
}
