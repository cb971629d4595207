// Package bedrock implements provider.Provider against the AWS Bedrock
// Converse API using github.com/aws/aws-sdk-go-v2. Claude models on Bedrock
// follow the same complete-my-prefix JSON semantics as the Anthropic family,
// so this adapter reuses internal/provider's JSON-prefill and
// message-consolidation helpers; it additionally checks that a thinking
// block precedes any tool_use block in the same assistant turn, an
// ordering the Converse API rejects outright if violated.
package bedrock

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/document"
	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	smithy "github.com/aws/smithy-go"

	"github.com/inferly/gatewaycore/internal/gatewayerr"
	"github.com/inferly/gatewaycore/internal/model"
	"github.com/inferly/gatewaycore/internal/provider"
)

// RuntimeClient is the subset of *bedrockruntime.Client the adapter needs.
type RuntimeClient interface {
	Converse(ctx context.Context, params *bedrockruntime.ConverseInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error)
	ConverseStream(ctx context.Context, params *bedrockruntime.ConverseStreamInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseStreamOutput, error)
}

// Client implements provider.Provider on top of AWS Bedrock Converse.
type Client struct {
	runtime RuntimeClient
	cfg     provider.BedrockConfig
}

// New builds a Client for cfg.Region, resolving the AWS SDK's ambient
// credential chain (env vars, shared config, IAM role). Bedrock
// authenticates via AWS SigV4 rather than a bearer token; cfg.CredentialLocation
// is not consulted, so the ambient chain is always used.
func New(ctx context.Context, cfg provider.BedrockConfig) (*Client, error) {
	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.HTTPClient != nil {
		loadOpts = append(loadOpts, config.WithHTTPClient(cfg.HTTPClient))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("bedrock: loading AWS config: %w", err)
	}
	return &Client{runtime: bedrockruntime.NewFromConfig(awsCfg), cfg: cfg}, nil
}

// NewWithClient bypasses AWS config resolution, for tests.
func NewWithClient(runtime RuntimeClient, cfg provider.BedrockConfig) *Client {
	return &Client{runtime: runtime, cfg: cfg}
}

func (c *Client) Infer(ctx context.Context, req *model.ModelInferenceRequest) (*model.ProviderInferenceResponse, error) {
	input, rawRequest, err := c.prepareRequest(req)
	if err != nil {
		return nil, err
	}
	out, err := c.runtime.Converse(ctx, input)
	if err != nil {
		return nil, translateError(err)
	}
	return translateResponse(out, req, rawRequest)
}

func (c *Client) InferStream(ctx context.Context, req *model.ModelInferenceRequest) (provider.Stream, error) {
	input, rawRequest, err := c.prepareRequest(req)
	if err != nil {
		return nil, err
	}
	streamInput := &bedrockruntime.ConverseStreamInput{
		ModelId:         input.ModelId,
		Messages:        input.Messages,
		System:          input.System,
		ToolConfig:      input.ToolConfig,
		InferenceConfig: input.InferenceConfig,
	}
	out, err := c.runtime.ConverseStream(ctx, streamInput)
	if err != nil {
		return nil, translateError(err)
	}
	return newDecoder(out, rawRequest, provider.WantsJSONPrefill(req)), nil
}

func (c *Client) prepareRequest(req *model.ModelInferenceRequest) (*bedrockruntime.ConverseInput, string, error) {
	if c.cfg.ModelID == "" {
		return nil, "", errors.New("bedrock: model id is required")
	}

	// Consolidate before appending the prefill: the prefill assistant turn
	// must stay the final message so the model completes it.
	messages := provider.ConsolidateAnthropicFamily(req.Messages)
	if provider.WantsJSONPrefill(req) {
		messages = provider.AppendJSONPrefillMessage(messages)
	}

	if err := validateBlockOrdering(messages); err != nil {
		return nil, "", err
	}

	brMessages, err := encodeMessages(messages)
	if err != nil {
		return nil, "", err
	}

	input := &bedrockruntime.ConverseInput{
		ModelId:  aws.String(c.cfg.ModelID),
		Messages: brMessages,
	}
	if req.System != nil && *req.System != "" {
		input.System = []brtypes.SystemContentBlock{&brtypes.SystemContentBlockMemberText{Value: *req.System}}
	}

	var inferCfg brtypes.InferenceConfiguration
	haveInferCfg := false
	if req.MaxTokens != nil {
		v := int32(*req.MaxTokens)
		inferCfg.MaxTokens = &v
		haveInferCfg = true
	}
	if req.Temperature != nil {
		v := *req.Temperature
		inferCfg.Temperature = &v
		haveInferCfg = true
	}
	if req.TopP != nil {
		v := *req.TopP
		inferCfg.TopP = &v
		haveInferCfg = true
	}
	if len(req.StopSequences) > 0 {
		inferCfg.StopSequences = req.StopSequences
		haveInferCfg = true
	}
	if haveInferCfg {
		input.InferenceConfig = &inferCfg
	}

	toolsNonEmpty := req.ToolConfig != nil && len(req.ToolConfig.Tools) > 0
	if toolsNonEmpty {
		toolCfg, err := encodeTools(req.ToolConfig.Tools)
		if err != nil {
			return nil, "", err
		}
		choice, ok := provider.TranslateToolChoice(req.ToolConfig.ToolChoice, toolsNonEmpty)
		if !ok || !choice.SuppressTools {
			if ok {
				switch choice.Mode {
				case model.ToolChoiceRequired:
					toolCfg.ToolChoice = &brtypes.ToolChoiceMemberAny{Value: brtypes.AnyToolChoice{}}
				case model.ToolChoiceSpecific:
					toolCfg.ToolChoice = &brtypes.ToolChoiceMemberTool{Value: brtypes.SpecificToolChoice{Name: aws.String(choice.Name)}}
				}
			}
			input.ToolConfig = toolCfg
		}
	}

	raw, _ := json.Marshal(map[string]any{"model_id": c.cfg.ModelID, "message_count": len(brMessages)})
	return input, string(raw), nil
}

// validateBlockOrdering enforces the thinking -> tool_use part of
// Bedrock's block ordering constraint: within a single assistant turn, a
// redacted/thinking block must precede any tool_use block it justified.
// Where tool results sit in the following user turn is not checked.
// Anthropic-family providers accept looser orderings;
// Bedrock's Converse API rejects a violation outright, so this check
// fails fast with a clear error instead of surfacing an opaque 400 from
// AWS.
func validateBlockOrdering(messages []model.Message) error {
	for _, m := range messages {
		if m.Role != model.RoleAssistant {
			continue
		}
		sawToolCall := false
		for _, part := range m.Content {
			switch part.(type) {
			case model.ThoughtOutput:
				if sawToolCall {
					return errors.New("bedrock: thinking block must precede any tool_use block in the same assistant turn")
				}
			case model.ToolCallOutput:
				sawToolCall = true
			}
		}
	}
	return nil
}

func encodeMessages(messages []model.Message) ([]brtypes.Message, error) {
	out := make([]brtypes.Message, 0, len(messages))
	for _, m := range messages {
		blocks := make([]brtypes.ContentBlock, 0, len(m.Content))
		for _, part := range m.Content {
			switch v := part.(type) {
			case model.TextOutput:
				if v.Text != "" {
					blocks = append(blocks, &brtypes.ContentBlockMemberText{Value: v.Text})
				}
			case model.ToolCallOutput:
				var input any
				if len(v.Arguments) > 0 {
					_ = json.Unmarshal([]byte(v.Arguments), &input)
				}
				blocks = append(blocks, &brtypes.ContentBlockMemberToolUse{Value: brtypes.ToolUseBlock{
					ToolUseId: aws.String(v.ID),
					Name:      aws.String(v.Name),
					Input:     document.NewLazyDocument(input),
				}})
			case model.ThoughtOutput:
				blocks = append(blocks, &brtypes.ContentBlockMemberReasoningContent{
					Value: &brtypes.ReasoningContentBlockMemberReasoningText{
						Value: brtypes.ReasoningTextBlock{Text: aws.String(v.Text)},
					},
				})
			}
		}
		if len(blocks) == 0 {
			continue
		}
		var role brtypes.ConversationRole
		switch m.Role {
		case model.RoleUser:
			role = brtypes.ConversationRoleUser
		case model.RoleAssistant:
			role = brtypes.ConversationRoleAssistant
		}
		out = append(out, brtypes.Message{Role: role, Content: blocks})
	}
	if len(out) == 0 {
		return nil, errors.New("bedrock: at least one user/assistant message is required")
	}
	return out, nil
}

func encodeTools(defs []model.ToolDefinition) (*brtypes.ToolConfiguration, error) {
	tools := make([]brtypes.Tool, 0, len(defs))
	for _, def := range defs {
		tools = append(tools, &brtypes.ToolMemberToolSpec{Value: brtypes.ToolSpecification{
			Name:        aws.String(def.Name),
			Description: aws.String(def.Description),
			InputSchema: &brtypes.ToolInputSchemaMemberJson{Value: document.NewLazyDocument(def.Parameters)},
		}})
	}
	return &brtypes.ToolConfiguration{Tools: tools}, nil
}

func translateResponse(output *bedrockruntime.ConverseOutput, req *model.ModelInferenceRequest, rawRequest string) (*model.ProviderInferenceResponse, error) {
	if output == nil {
		return nil, errors.New("bedrock: response is nil")
	}
	var out []model.OutputContent
	firstText := true
	if msg, ok := output.Output.(*brtypes.ConverseOutputMemberMessage); ok {
		for _, block := range msg.Value.Content {
			switch v := block.(type) {
			case *brtypes.ContentBlockMemberText:
				if v.Value == "" {
					continue
				}
				text := v.Value
				if firstText && provider.WantsJSONPrefill(req) {
					text = provider.ReopenJSONPrefillText(text)
				}
				firstText = false
				out = append(out, model.TextOutput{Text: text})
			case *brtypes.ContentBlockMemberToolUse:
				var name, id string
				if v.Value.Name != nil {
					name = *v.Value.Name
				}
				if v.Value.ToolUseId != nil {
					id = *v.Value.ToolUseId
				}
				args, _ := v.Value.Input.MarshalSmithyDocument()
				out = append(out, model.ToolCallOutput{ID: id, Name: name, Arguments: string(args)})
			}
		}
	}

	reason := provider.NormalizeFinishReason(finishReasonTable, string(output.StopReason))
	var usage model.Usage
	if u := output.Usage; u != nil {
		usage = model.Usage{InputTokens: int(aws.ToInt32(u.InputTokens)), OutputTokens: int(aws.ToInt32(u.OutputTokens))}
	}

	return &model.ProviderInferenceResponse{
		Output:       out,
		RawRequest:   rawRequest,
		Usage:        usage,
		FinishReason: &reason,
	}, nil
}

var finishReasonTable = map[string]model.FinishReason{
	"end_turn":      model.FinishReasonStop,
	"stop_sequence": model.FinishReasonStopSequence,
	"max_tokens":    model.FinishReasonLength,
	"tool_use":      model.FinishReasonToolCall,
	"content_filtered": model.FinishReasonContentFilter,
}

func translateError(err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		retryable := apiErr.ErrorCode() == "ThrottlingException" || apiErr.ErrorCode() == "ServiceUnavailableException"
		return gatewayerr.FromProvider("bedrock", 0, retryable, apiErr.ErrorMessage(), err)
	}
	return gatewayerr.FromProvider("bedrock", 0, true, err.Error(), err)
}
