package anthropic

import (
	"context"
	"testing"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/stretchr/testify/require"

	"github.com/inferly/gatewaycore/internal/model"
	"github.com/inferly/gatewaycore/internal/provider"
)

type stubMessagesClient struct {
	lastParams sdk.MessageNewParams
	resp       *sdk.Message
	err        error
}

func (s *stubMessagesClient) New(_ context.Context, body sdk.MessageNewParams, _ ...option.RequestOption) (*sdk.Message, error) {
	s.lastParams = body
	return s.resp, s.err
}

func (s *stubMessagesClient) NewStreaming(_ context.Context, body sdk.MessageNewParams, _ ...option.RequestOption) StreamHandle {
	s.lastParams = body
	return &stubStream{}
}

type stubStream struct{}

func (s *stubStream) Next() bool                              { return false }
func (s *stubStream) Current() sdk.MessageStreamEventUnion     { return sdk.MessageStreamEventUnion{} }
func (s *stubStream) Err() error                               { return nil }
func (s *stubStream) Close() error                             { return nil }

func maxTokens(n int) *int { return &n }

func TestInferTextOnly(t *testing.T) {
	stub := &stubMessagesClient{
		resp: &sdk.Message{
			Content:    []sdk.ContentBlockUnion{{Type: "text", Text: "world"}},
			StopReason: sdk.StopReasonEndTurn,
			Usage:      sdk.Usage{InputTokens: 10, OutputTokens: 5},
		},
	}
	cl := NewWithClient(stub, provider.AnthropicConfig{Model: "claude-3-5-sonnet-20241022"})

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
}

func TestInferAppliesJSONPrefillReopen(t *testing.T) {
	stub := &stubMessagesClient{
		resp: &sdk.Message{
			Content:    []sdk.ContentBlockUnion{{Type: "text", Text: `"name":"Jerry"}`}},
			StopReason: sdk.StopReasonEndTurn,
		},
	}
	cl := NewWithClient(stub, provider.AnthropicConfig{Model: "claude-3-5-sonnet-20241022"})

	req := &model.ModelInferenceRequest{
		Messages:     []model.Message{{Role: model.RoleUser, Content: []model.OutputContent{model.TextOutput{Text: "give me json"}}}},
		MaxTokens:    maxTokens(128),
		FunctionType: model.FunctionTypeJSON,
		JSONMode:     model.JSONModeOn,
	}

	resp, err := cl.Infer(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, `{"name":"Jerry"}`, resp.Output[0].(model.TextOutput).Text)

	// the prefill assistant turn must have been appended before sending,
	// so the request carries two messages: the original user turn plus
	// the synthesized assistant prefill.
	require.Len(t, stub.lastParams.Messages, 2)
}

func TestInferRejectsEmptyMessages(t *testing.T) {
	stub := &stubMessagesClient{}
	cl := NewWithClient(stub, provider.AnthropicConfig{Model: "claude-3-5-sonnet-20241022"})
	_, err := cl.Infer(context.Background(), &model.ModelInferenceRequest{})
	require.Error(t, err)
}
