// Package anthropic implements provider.Provider against the Anthropic
// Claude Messages API, using github.com/anthropics/anthropic-sdk-go. It
// applies the Anthropic-family rules shared with Bedrock and other
// complete-my-prefix backends (message consolidation, JSON-mode prefill)
// via internal/provider's backend-agnostic helpers.
package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/inferly/gatewaycore/internal/credential"
	"github.com/inferly/gatewaycore/internal/gatewayerr"
	"github.com/inferly/gatewaycore/internal/model"
	"github.com/inferly/gatewaycore/internal/provider"
)

// MessagesClient captures the subset of the Anthropic SDK used by the
// adapter, so tests can substitute a fake in place of *sdk.MessageService.
type MessagesClient interface {
	New(ctx context.Context, body sdk.MessageNewParams, opts ...option.RequestOption) (*sdk.Message, error)
	NewStreaming(ctx context.Context, body sdk.MessageNewParams, opts ...option.RequestOption) StreamHandle
}

// StreamHandle is the subset of *ssestream.Stream[sdk.MessageStreamEventUnion]
// the decoder needs.
type StreamHandle interface {
	Next() bool
	Current() sdk.MessageStreamEventUnion
	Err() error
	Close() error
}

// Client implements provider.Provider on top of Anthropic Messages.
type Client struct {
	msg      MessagesClient
	cfg      provider.AnthropicConfig
	credCell credential.DefaultCache[model.Credential]
}

var defaultAnthropicLocation = mustLocation("env::ANTHROPIC_API_KEY")

func mustLocation(s string) credential.Location {
	l, err := credential.ParseLocation(s)
	if err != nil {
		panic(err)
	}
	return l
}

// New builds an Anthropic client. The SDK client is constructed lazily on
// first use, from the configured (or default) credential location, so that
// a zero-value Client can be wired up before any credential is resolvable
// (e.g. in tests that stub MessagesClient directly via NewWithClient).
func New(cfg provider.AnthropicConfig) *Client {
	return &Client{cfg: cfg}
}

// NewWithClient builds a Client around an already-constructed
// MessagesClient, bypassing credential resolution entirely. Intended for
// tests and for SageMaker-hosted deployments that speak the Anthropic wire
// format over a different transport.
func NewWithClient(msg MessagesClient, cfg provider.AnthropicConfig) *Client {
	return &Client{msg: msg, cfg: cfg}
}

func (c *Client) client(dynCredentials map[string]string) (MessagesClient, error) {
	if c.msg != nil {
		return c.msg, nil
	}
	cred, err := credential.BuildDefaultCached(c.cfg.CredentialLocation, defaultAnthropicLocation, "anthropic", &c.credCell, credential.Resolve)
	if err != nil {
		return nil, err
	}
	if cred, err = credential.ResolveDynamic(cred, dynCredentials); err != nil {
		return nil, err
	}
	secret, ok := cred.(model.StaticCredential)
	if !ok {
		return nil, fmt.Errorf("anthropic: credential type %T cannot supply an API key", cred)
	}
	opts := []option.RequestOption{option.WithAPIKey(secret.Secret)}
	if c.cfg.APIBase != "" {
		opts = append(opts, option.WithBaseURL(c.cfg.APIBase))
	}
	if c.cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(c.cfg.HTTPClient))
	}
	ac := sdk.NewClient(opts...)
	return &messagesAdapter{svc: &ac.Messages}, nil
}

// messagesAdapter narrows *sdk.MessageService to MessagesClient. It exists
// because NewStreaming's concrete return type (*ssestream.Stream[...]) must
// be re-declared as the StreamHandle interface for the method set to match
// MessagesClient exactly; ssestream.Stream already implements StreamHandle.
type messagesAdapter struct {
	svc *sdk.MessageService
}

func (a *messagesAdapter) New(ctx context.Context, body sdk.MessageNewParams, opts ...option.RequestOption) (*sdk.Message, error) {
	return a.svc.New(ctx, body, opts...)
}

func (a *messagesAdapter) NewStreaming(ctx context.Context, body sdk.MessageNewParams, opts ...option.RequestOption) StreamHandle {
	return a.svc.NewStreaming(ctx, body, opts...)
}

// Infer issues a non-streaming Messages.New call.
func (c *Client) Infer(ctx context.Context, req *model.ModelInferenceRequest) (*model.ProviderInferenceResponse, error) {
	cli, err := c.client(req.DynamicCredentials)
	if err != nil {
		return nil, err
	}
	params, reqOpts, rawRequest, err := c.prepareRequest(req)
	if err != nil {
		return nil, err
	}
	msg, err := cli.New(ctx, *params, reqOpts...)
	if err != nil {
		return nil, translateError(err)
	}
	return c.translateResponse(msg, req, rawRequest)
}

// InferStream issues a streaming Messages.NewStreaming call.
func (c *Client) InferStream(ctx context.Context, req *model.ModelInferenceRequest) (provider.Stream, error) {
	cli, err := c.client(req.DynamicCredentials)
	if err != nil {
		return nil, err
	}
	params, reqOpts, rawRequest, err := c.prepareRequest(req)
	if err != nil {
		return nil, err
	}
	stream := cli.NewStreaming(ctx, *params, reqOpts...)
	if err := stream.Err(); err != nil {
		return nil, translateError(err)
	}
	prefill := provider.WantsJSONPrefill(req)
	return newDecoder(stream, rawRequest, prefill), nil
}

func (c *Client) prepareRequest(req *model.ModelInferenceRequest) (*sdk.MessageNewParams, []option.RequestOption, string, error) {
	if c.cfg.Model == "" {
		return nil, nil, "", errors.New("anthropic: model is required")
	}
	// Consolidate before appending the prefill: the prefill assistant turn
	// must stay the final message so the model completes it.
	messages := provider.ConsolidateAnthropicFamily(req.Messages)
	if provider.WantsJSONPrefill(req) {
		messages = provider.AppendJSONPrefillMessage(messages)
	}

	sdkMessages, err := encodeMessages(messages)
	if err != nil {
		return nil, nil, "", err
	}

	maxTokens := 4096
	if req.MaxTokens != nil && *req.MaxTokens > 0 {
		maxTokens = *req.MaxTokens
	}

	params := sdk.MessageNewParams{
		Model:     sdk.Model(c.cfg.Model),
		MaxTokens: int64(maxTokens),
		Messages:  sdkMessages,
	}
	if req.System != nil && *req.System != "" {
		params.System = []sdk.TextBlockParam{{Text: *req.System}}
	}
	if req.Temperature != nil {
		params.Temperature = sdk.Float(float64(*req.Temperature))
	}
	if req.TopP != nil {
		params.TopP = sdk.Float(float64(*req.TopP))
	}
	if len(req.StopSequences) > 0 {
		params.StopSequences = req.StopSequences
	}

	toolsNonEmpty := req.ToolConfig != nil && len(req.ToolConfig.Tools) > 0
	if toolsNonEmpty {
		toolParams, err := encodeTools(req.ToolConfig.Tools)
		if err != nil {
			return nil, nil, "", err
		}
		params.Tools = toolParams
	}
	if req.ToolConfig != nil {
		if choice, ok := provider.TranslateToolChoice(req.ToolConfig.ToolChoice, toolsNonEmpty); ok {
			if choice.SuppressTools {
				params.Tools = nil
			} else {
				switch choice.Mode {
				case model.ToolChoiceAuto:
					// default behavior, nothing to set
				case model.ToolChoiceRequired:
					params.ToolChoice = sdk.ToolChoiceUnionParam{OfAny: &sdk.ToolChoiceAnyParam{}}
				case model.ToolChoiceSpecific:
					params.ToolChoice = sdk.ToolChoiceParamOfTool(choice.Name)
				}
			}
		}
	}

	payload, err := toPayloadMap(params)
	if err != nil {
		return nil, nil, "", err
	}
	merged, headers, err := provider.InjectExtraRequestData(payload,
		req.VariantExtraBody, c.cfg.ExtraBody, req.ExtraBody,
		req.VariantExtraHeaders, c.cfg.ExtraHeaders, req.ExtraHeaders)
	if err != nil {
		return nil, nil, "", err
	}

	var reqOpts []option.RequestOption
	for _, entries := range [][]model.ExtraBodyEntry{req.VariantExtraBody, c.cfg.ExtraBody, req.ExtraBody} {
		for _, entry := range entries {
			reqOpts = append(reqOpts, option.WithJSONSet(provider.SJSONPath(entry.Pointer), entry.Value))
		}
	}
	for k, v := range headers {
		reqOpts = append(reqOpts, option.WithHeader(k, v))
	}

	rawBytes, _ := json.Marshal(merged)
	return &params, reqOpts, string(rawBytes), nil
}

func toPayloadMap(params sdk.MessageNewParams) (map[string]any, error) {
	data, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("anthropic: marshaling request for raw_request capture: %w", err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}

func encodeMessages(messages []model.Message) ([]sdk.MessageParam, error) {
	out := make([]sdk.MessageParam, 0, len(messages))
	for _, m := range messages {
		blocks := make([]sdk.ContentBlockParamUnion, 0, len(m.Content))
		for _, part := range m.Content {
			switch v := part.(type) {
			case model.TextOutput:
				if v.Text != "" {
					blocks = append(blocks, sdk.NewTextBlock(v.Text))
				}
			case model.ToolCallOutput:
				var input any
				if len(v.Arguments) > 0 {
					if err := json.Unmarshal([]byte(v.Arguments), &input); err != nil {
						input = v.Arguments
					}
				}
				blocks = append(blocks, sdk.NewToolUseBlock(v.ID, input, v.Name))
			case model.ThoughtOutput:
				// Thinking blocks are not re-sent as input; Anthropic requires its
				// own signed thinking block format, which this adapter does not
				// currently round-trip.
			case model.UnknownOutput:
				// Dropped: unknown content originates from a different provider
				// and routing already filtered it before this point.
			}
		}
		if len(blocks) == 0 {
			continue
		}
		switch m.Role {
		case model.RoleUser:
			out = append(out, sdk.NewUserMessage(blocks...))
		case model.RoleAssistant:
			out = append(out, sdk.NewAssistantMessage(blocks...))
		}
	}
	if len(out) == 0 {
		return nil, errors.New("anthropic: at least one user/assistant message is required")
	}
	return out, nil
}

func encodeTools(defs []model.ToolDefinition) ([]sdk.ToolUnionParam, error) {
	out := make([]sdk.ToolUnionParam, 0, len(defs))
	for _, def := range defs {
		schema := sdk.ToolInputSchemaParam{ExtraFields: def.Parameters}
		u := sdk.ToolUnionParamOfTool(schema, def.Name)
		if u.OfTool != nil {
			u.OfTool.Description = sdk.String(def.Description)
		}
		out = append(out, u)
	}
	return out, nil
}

func (c *Client) translateResponse(msg *sdk.Message, req *model.ModelInferenceRequest, rawRequest string) (*model.ProviderInferenceResponse, error) {
	out := make([]model.OutputContent, 0, len(msg.Content))
	firstText := true
	for _, block := range msg.Content {
		switch block.Type {
		case "text":
			text := block.Text
			if firstText && provider.WantsJSONPrefill(req) {
				text = provider.ReopenJSONPrefillText(text)
			}
			firstText = false
			if text != "" {
				out = append(out, model.TextOutput{Text: text})
			}
		case "tool_use":
			args, _ := json.Marshal(block.Input)
			out = append(out, model.ToolCallOutput{ID: block.ID, Name: block.Name, Arguments: string(args)})
		case "thinking":
			out = append(out, model.ThoughtOutput{Text: block.Thinking})
		}
	}

	reason := provider.NormalizeFinishReason(finishReasonTable, string(msg.StopReason))
	rawResponse, _ := json.Marshal(msg)

	return &model.ProviderInferenceResponse{
		Output:      out,
		RawRequest:  rawRequest,
		RawResponse: string(rawResponse),
		Usage: model.Usage{
			InputTokens:  int(msg.Usage.InputTokens),
			OutputTokens: int(msg.Usage.OutputTokens),
		},
		FinishReason: &reason,
	}, nil
}

var finishReasonTable = map[string]model.FinishReason{
	"end_turn":      model.FinishReasonStop,
	"stop_sequence": model.FinishReasonStopSequence,
	"max_tokens":    model.FinishReasonLength,
	"tool_use":      model.FinishReasonToolCall,
}

func translateError(err error) error {
	var apiErr *sdk.Error
	if errors.As(err, &apiErr) {
		status := apiErr.StatusCode
		retryable := status == 429 || status >= 500
		return gatewayerr.FromProvider("anthropic", status, retryable, apiErr.Error(), err)
	}
	return gatewayerr.FromProvider("anthropic", 0, true, err.Error(), err)
}
