package bedrock

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/stretchr/testify/require"

	"github.com/inferly/gatewaycore/internal/model"
	"github.com/inferly/gatewaycore/internal/provider"
)

type stubRuntimeClient struct {
	lastConverse *bedrockruntime.ConverseInput
	resp         *bedrockruntime.ConverseOutput
	err          error
}

func (s *stubRuntimeClient) Converse(_ context.Context, params *bedrockruntime.ConverseInput, _ ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error) {
	s.lastConverse = params
	return s.resp, s.err
}

func (s *stubRuntimeClient) ConverseStream(_ context.Context, _ *bedrockruntime.ConverseStreamInput, _ ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseStreamOutput, error) {
	return &bedrockruntime.ConverseStreamOutput{}, s.err
}

func maxTokens(n int) *int { return &n }

func TestInferTextOnly(t *testing.T) {
	stub := &stubRuntimeClient{
		resp: &bedrockruntime.ConverseOutput{
			Output: &brtypes.ConverseOutputMemberMessage{
				Value: brtypes.Message{
					Role:    brtypes.ConversationRoleAssistant,
					Content: []brtypes.ContentBlock{&brtypes.ContentBlockMemberText{Value: "world"}},
				},
			},
			StopReason: brtypes.StopReasonEndTurn,
			Usage:      &brtypes.TokenUsage{InputTokens: aws.Int32(10), OutputTokens: aws.Int32(5)},
		},
	}
	cl := NewWithClient(stub, provider.BedrockConfig{ModelID: "anthropic.claude-3-5-sonnet-20241022-v2:0"})

	req := &model.ModelInferenceRequest{
		Messages:  []model.Message{{Role: model.RoleUser, Content: []model.OutputContent{model.TextOutput{Text: "hello"}}}},
		MaxTokens: maxTokens(128),
	}

	resp, err := cl.Infer(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, resp.Output, 1)
	require.Equal(t, "world", resp.Output[0].(model.TextOutput).Text)
	require.Equal(t, model.FinishReasonStop, *resp.FinishReason)
	require.Equal(t, 10, resp.Usage.InputTokens)
	require.Equal(t, 5, resp.Usage.OutputTokens)
	require.Equal(t, "anthropic.claude-3-5-sonnet-20241022-v2:0", *stub.lastConverse.ModelId)
}

func TestInferRequiresModelID(t *testing.T) {
	cl := NewWithClient(&stubRuntimeClient{}, provider.BedrockConfig{})
	req := &model.ModelInferenceRequest{
		Messages: []model.Message{{Role: model.RoleUser, Content: []model.OutputContent{model.TextOutput{Text: "hi"}}}},
	}
	_, err := cl.Infer(context.Background(), req)
	require.Error(t, err)
}

func TestInferRejectsThinkingAfterToolCallInSameTurn(t *testing.T) {
	cl := NewWithClient(&stubRuntimeClient{}, provider.BedrockConfig{ModelID: "anthropic.claude-3-5-sonnet-20241022-v2:0"})
	req := &model.ModelInferenceRequest{
		Messages: []model.Message{
			{
				Role: model.RoleAssistant,
				Content: []model.OutputContent{
					model.ToolCallOutput{ID: "1", Name: "lookup", Arguments: "{}"},
					model.ThoughtOutput{Text: "reasoning that arrived too late"},
				},
			},
		},
	}
	_, err := cl.Infer(context.Background(), req)
	require.Error(t, err)
}

func TestInferPropagatesProviderError(t *testing.T) {
	stub := &stubRuntimeClient{err: errors.New("connection reset")}
	cl := NewWithClient(stub, provider.BedrockConfig{ModelID: "anthropic.claude-3-5-sonnet-20241022-v2:0"})
	req := &model.ModelInferenceRequest{
		Messages: []model.Message{{Role: model.RoleUser, Content: []model.OutputContent{model.TextOutput{Text: "hi"}}}},
	}
	_, err := cl.Infer(context.Background(), req)
	require.Error(t, err)
}
