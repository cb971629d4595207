// Package openai implements provider.Provider against the OpenAI Chat
// Completions API using github.com/openai/openai-go. Unlike the Anthropic
// family, OpenAI has a native tool_choice "none" and a native JSON
// response_format, so none of internal/provider's Anthropic-family helpers
// (message consolidation, JSON prefill) apply here.
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	sdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/ssestream"

	"github.com/inferly/gatewaycore/internal/credential"
	"github.com/inferly/gatewaycore/internal/gatewayerr"
	"github.com/inferly/gatewaycore/internal/model"
	"github.com/inferly/gatewaycore/internal/provider"
)

// ChatClient captures the subset of the OpenAI SDK used by the adapter.
type ChatClient interface {
	New(ctx context.Context, body sdk.ChatCompletionNewParams, opts ...option.RequestOption) (*sdk.ChatCompletion, error)
	NewStreaming(ctx context.Context, body sdk.ChatCompletionNewParams, opts ...option.RequestOption) *ssestream.Stream[sdk.ChatCompletionChunk]
}

// EmbeddingClient captures the subset of the OpenAI SDK's embeddings
// service the adapter uses, for the same test-substitution reasons as
// ChatClient.
type EmbeddingClient interface {
	New(ctx context.Context, body sdk.EmbeddingNewParams, opts ...option.RequestOption) (*sdk.CreateEmbeddingResponse, error)
}

// Client implements provider.Provider on top of OpenAI Chat Completions.
type Client struct {
	chat     ChatClient
	embed    EmbeddingClient
	cfg      provider.OpenAIConfig
	credCell credential.DefaultCache[model.Credential]
}

var defaultOpenAILocation = mustLocation("env::OPENAI_API_KEY")

func mustLocation(s string) credential.Location {
	l, err := credential.ParseLocation(s)
	if err != nil {
		panic(err)
	}
	return l
}

func New(cfg provider.OpenAIConfig) *Client { return &Client{cfg: cfg} }

// NewWithClient bypasses credential resolution, for tests and for wrapping
// inside internal/provider/compatible.
func NewWithClient(chat ChatClient, cfg provider.OpenAIConfig) *Client {
	return &Client{chat: chat, cfg: cfg}
}

// NewWithEmbedClient bypasses credential resolution for the embeddings
// path specifically, for tests.
func NewWithEmbedClient(embed EmbeddingClient, cfg provider.OpenAIConfig) *Client {
	return &Client{embed: embed, cfg: cfg}
}

// NewWithClients wires both the chat and embeddings services from a
// single already-configured SDK client, for internal/provider/compatible,
// which resolves its own credential and base URL once and must not let
// either sub-client re-resolve against OpenAI's own defaults.
func NewWithClients(chat ChatClient, embed EmbeddingClient, cfg provider.OpenAIConfig) *Client {
	return &Client{chat: chat, embed: embed, cfg: cfg}
}

func (c *Client) client(dynCredentials map[string]string) (ChatClient, error) {
	if c.chat != nil {
		return c.chat, nil
	}
	cred, err := credential.BuildDefaultCached(c.cfg.CredentialLocation, defaultOpenAILocation, "openai", &c.credCell, credential.Resolve)
	if err != nil {
		return nil, err
	}
	if cred, err = credential.ResolveDynamic(cred, dynCredentials); err != nil {
		return nil, err
	}
	secret, ok := cred.(model.StaticCredential)
	if !ok {
		return nil, fmt.Errorf("openai: credential type %T cannot supply an API key", cred)
	}
	opts := []option.RequestOption{option.WithAPIKey(secret.Secret)}
	if c.cfg.APIBase != "" {
		opts = append(opts, option.WithBaseURL(c.cfg.APIBase))
	}
	if c.cfg.OrgID != "" {
		opts = append(opts, option.WithOrganization(c.cfg.OrgID))
	}
	if c.cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(c.cfg.HTTPClient))
	}
	cl := sdk.NewClient(opts...)
	return &cl.Chat.Completions, nil
}

// embedClient lazily resolves the embeddings service the same way
// client() resolves chat completions, reusing the same credential cell
// (BuildDefaultCached's second call against an already-populated cell is
// a cheap cache read, not a second resolution).
func (c *Client) embedClient() (EmbeddingClient, error) {
	if c.embed != nil {
		return c.embed, nil
	}
	cred, err := credential.BuildDefaultCached(c.cfg.CredentialLocation, defaultOpenAILocation, "openai", &c.credCell, credential.Resolve)
	if err != nil {
		return nil, err
	}
	secret, ok := cred.(model.StaticCredential)
	if !ok {
		return nil, fmt.Errorf("openai: credential type %T cannot supply an API key", cred)
	}
	opts := []option.RequestOption{option.WithAPIKey(secret.Secret)}
	if c.cfg.APIBase != "" {
		opts = append(opts, option.WithBaseURL(c.cfg.APIBase))
	}
	if c.cfg.OrgID != "" {
		opts = append(opts, option.WithOrganization(c.cfg.OrgID))
	}
	if c.cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(c.cfg.HTTPClient))
	}
	cl := sdk.NewClient(opts...)
	return &cl.Embeddings, nil
}

// Embed implements embedding.Provider (§4.8's EXPANSION) against OpenAI's
// /v1/embeddings endpoint.
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float32, model.Usage, error) {
	if c.cfg.Model == "" {
		return nil, model.Usage{}, errors.New("openai: model is required")
	}
	embed, err := c.embedClient()
	if err != nil {
		return nil, model.Usage{}, err
	}
	resp, err := embed.New(ctx, sdk.EmbeddingNewParams{
		Input: sdk.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
		Model: sdk.EmbeddingModel(c.cfg.Model),
	})
	if err != nil {
		return nil, model.Usage{}, translateError(err)
	}
	vectors := make([][]float32, len(resp.Data))
	for i, d := range resp.Data {
		vec := make([]float32, len(d.Embedding))
		for j, f := range d.Embedding {
			vec[j] = float32(f)
		}
		vectors[i] = vec
	}
	return vectors, model.Usage{InputTokens: int(resp.Usage.PromptTokens)}, nil
}

func (c *Client) Infer(ctx context.Context, req *model.ModelInferenceRequest) (*model.ProviderInferenceResponse, error) {
	chat, err := c.client(req.DynamicCredentials)
	if err != nil {
		return nil, err
	}
	params, reqOpts, rawRequest, err := c.prepareRequest(req)
	if err != nil {
		return nil, err
	}
	resp, err := chat.New(ctx, *params, reqOpts...)
	if err != nil {
		return nil, translateError(err)
	}
	return translateResponse(resp, rawRequest)
}

func (c *Client) InferStream(ctx context.Context, req *model.ModelInferenceRequest) (provider.Stream, error) {
	chat, err := c.client(req.DynamicCredentials)
	if err != nil {
		return nil, err
	}
	params, reqOpts, rawRequest, err := c.prepareRequest(req)
	if err != nil {
		return nil, err
	}
	params.StreamOptions = sdk.ChatCompletionStreamOptionsParam{IncludeUsage: sdk.Bool(true)}
	stream := chat.NewStreaming(ctx, *params, reqOpts...)
	if err := stream.Err(); err != nil {
		return nil, translateError(err)
	}
	return newDecoder(stream, rawRequest), nil
}

func (c *Client) prepareRequest(req *model.ModelInferenceRequest) (*sdk.ChatCompletionNewParams, []option.RequestOption, string, error) {
	if c.cfg.Model == "" {
		return nil, nil, "", errors.New("openai: model is required")
	}
	if len(req.Messages) == 0 && req.System == nil {
		return nil, nil, "", errors.New("openai: messages are required")
	}

	messages := make([]sdk.ChatCompletionMessageParamUnion, 0, len(req.Messages)+1)
	if req.System != nil && *req.System != "" {
		messages = append(messages, sdk.SystemMessage(*req.System))
	}
	for _, m := range req.Messages {
		msg, ok := encodeMessage(m)
		if !ok {
			continue
		}
		messages = append(messages, msg)
	}

	params := sdk.ChatCompletionNewParams{
		Model:    sdk.ChatModel(c.cfg.Model),
		Messages: messages,
	}
	if req.MaxTokens != nil {
		params.MaxCompletionTokens = sdk.Int(int64(*req.MaxTokens))
	}
	if req.Temperature != nil {
		params.Temperature = sdk.Float(float64(*req.Temperature))
	}
	if req.TopP != nil {
		params.TopP = sdk.Float(float64(*req.TopP))
	}
	if req.PresencePenalty != nil {
		params.PresencePenalty = sdk.Float(float64(*req.PresencePenalty))
	}
	if req.FrequencyPenalty != nil {
		params.FrequencyPenalty = sdk.Float(float64(*req.FrequencyPenalty))
	}
	if req.Seed != nil {
		params.Seed = sdk.Int(*req.Seed)
	}
	if len(req.StopSequences) > 0 {
		params.Stop = sdk.ChatCompletionNewParamsStopUnion{OfStringArray: req.StopSequences}
	}

	toolsNonEmpty := req.ToolConfig != nil && len(req.ToolConfig.Tools) > 0
	if toolsNonEmpty {
		params.Tools = encodeTools(req.ToolConfig.Tools)
	}
	if req.ToolConfig != nil {
		choice, ok := provider.TranslateToolChoice(req.ToolConfig.ToolChoice, toolsNonEmpty)
		if ok {
			if choice.SuppressTools {
				params.Tools = nil
			} else {
				switch choice.Mode {
				case model.ToolChoiceAuto:
					params.ToolChoice = sdk.ChatCompletionToolChoiceOptionUnionParam{OfAuto: sdk.String("auto")}
				case model.ToolChoiceRequired:
					params.ToolChoice = sdk.ChatCompletionToolChoiceOptionUnionParam{OfAuto: sdk.String("required")}
				case model.ToolChoiceSpecific:
					params.ToolChoice = sdk.ChatCompletionToolChoiceOptionUnionParam{
						OfChatCompletionNamedToolChoice: &sdk.ChatCompletionNamedToolChoiceParam{
							Function: sdk.ChatCompletionNamedToolChoiceFunctionParam{Name: choice.Name},
						},
					}
				}
			}
		}
	}

	if req.JSONMode == model.JSONModeOn || req.JSONMode == model.JSONModeStrict {
		params.ResponseFormat = sdk.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &sdk.ResponseFormatJSONObjectParam{},
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

func toPayloadMap(params sdk.ChatCompletionNewParams) (map[string]any, error) {
	data, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("openai: marshaling request for raw_request capture: %w", err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}

func encodeMessage(m model.Message) (sdk.ChatCompletionMessageParamUnion, bool) {
	var text string
	var toolCalls []sdk.ChatCompletionMessageToolCallParam
	for _, part := range m.Content {
		switch v := part.(type) {
		case model.TextOutput:
			text += v.Text
		case model.ToolCallOutput:
			toolCalls = append(toolCalls, sdk.ChatCompletionMessageToolCallParam{
				ID: v.ID,
				Function: sdk.ChatCompletionMessageToolCallFunctionParam{
					Name:      v.Name,
					Arguments: v.Arguments,
				},
			})
		}
	}
	switch m.Role {
	case model.RoleUser:
		if text == "" {
			return sdk.ChatCompletionMessageParamUnion{}, false
		}
		return sdk.UserMessage(text), true
	case model.RoleAssistant:
		msg := sdk.AssistantMessage(text)
		if len(toolCalls) > 0 && msg.OfAssistant != nil {
			msg.OfAssistant.ToolCalls = toolCalls
		}
		return msg, true
	}
	return sdk.ChatCompletionMessageParamUnion{}, false
}

func encodeTools(defs []model.ToolDefinition) []sdk.ChatCompletionToolParam {
	out := make([]sdk.ChatCompletionToolParam, 0, len(defs))
	for _, def := range defs {
		out = append(out, sdk.ChatCompletionToolParam{
			Function: sdk.FunctionDefinitionParam{
				Name:        def.Name,
				Description: sdk.String(def.Description),
				Parameters:  def.Parameters,
				Strict:      sdk.Bool(def.Strict),
			},
		})
	}
	return out
}

func translateResponse(resp *sdk.ChatCompletion, rawRequest string) (*model.ProviderInferenceResponse, error) {
	if len(resp.Choices) == 0 {
		return nil, errors.New("openai: response has no choices")
	}
	choice := resp.Choices[0]
	var out []model.OutputContent
	if choice.Message.Content != "" {
		out = append(out, model.TextOutput{Text: choice.Message.Content})
	}
	for _, call := range choice.Message.ToolCalls {
		out = append(out, model.ToolCallOutput{
			ID:        call.ID,
			Name:      call.Function.Name,
			Arguments: call.Function.Arguments,
		})
	}

	reason := provider.NormalizeFinishReason(finishReasonTable, string(choice.FinishReason))
	rawResponse, _ := json.Marshal(resp)

	return &model.ProviderInferenceResponse{
		Output:      out,
		RawRequest:  rawRequest,
		RawResponse: string(rawResponse),
		Usage: model.Usage{
			InputTokens:  int(resp.Usage.PromptTokens),
			OutputTokens: int(resp.Usage.CompletionTokens),
		},
		FinishReason: &reason,
	}, nil
}

var finishReasonTable = map[string]model.FinishReason{
	"stop":           model.FinishReasonStop,
	"length":         model.FinishReasonLength,
	"content_filter": model.FinishReasonContentFilter,
	"tool_calls":     model.FinishReasonToolCall,
}

func translateError(err error) error {
	var apiErr *sdk.Error
	if errors.As(err, &apiErr) {
		status := apiErr.StatusCode
		retryable := status == 429 || status >= 500
		return gatewayerr.FromProvider("openai", status, retryable, apiErr.Error(), err)
	}
	return gatewayerr.FromProvider("openai", 0, true, err.Error(), err)
}
