package openai

import (
	"context"
	"testing"

	sdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/ssestream"
	"github.com/stretchr/testify/require"

	"github.com/inferly/gatewaycore/internal/model"
	"github.com/inferly/gatewaycore/internal/provider"
)

type stubChatClient struct {
	lastParams sdk.ChatCompletionNewParams
	resp       *sdk.ChatCompletion
	err        error
}

func (s *stubChatClient) New(_ context.Context, body sdk.ChatCompletionNewParams, _ ...option.RequestOption) (*sdk.ChatCompletion, error) {
	s.lastParams = body
	return s.resp, s.err
}

func (s *stubChatClient) NewStreaming(_ context.Context, body sdk.ChatCompletionNewParams, _ ...option.RequestOption) *ssestream.Stream[sdk.ChatCompletionChunk] {
	s.lastParams = body
	return nil
}

func maxTokens(n int) *int { return &n }

func TestInferTextOnly(t *testing.T) {
	stub := &stubChatClient{
		resp: &sdk.ChatCompletion{
			Choices: []sdk.ChatCompletionChoice{{
				Message:      sdk.ChatCompletionMessage{Content: "world"},
				FinishReason: "stop",
			}},
			Usage: sdk.CompletionUsage{PromptTokens: 10, CompletionTokens: 5},
		},
	}
	cl := NewWithClient(stub, provider.OpenAIConfig{Model: "gpt-4o"})

	req := &model.ModelInferenceRequest{
		Messages:  []model.Message{{Role: model.RoleUser, Content: []model.OutputContent{model.TextOutput{Text: "hello"}}}},
		MaxTokens: maxTokens(128),
	}

	resp, err := cl.Infer(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, resp.Output, 1)
	require.Equal(t, "world", resp.Output[0].(model.TextOutput).Text)
	require.Equal(t, model.FinishReasonStop, *resp.FinishReason)
}

func TestInferNoneToolChoiceSuppressesTools(t *testing.T) {
	stub := &stubChatClient{resp: &sdk.ChatCompletion{Choices: []sdk.ChatCompletionChoice{{Message: sdk.ChatCompletionMessage{Content: "ok"}}}}}
	cl := NewWithClient(stub, provider.OpenAIConfig{Model: "gpt-4o"})

	req := &model.ModelInferenceRequest{
		Messages: []model.Message{{Role: model.RoleUser, Content: []model.OutputContent{model.TextOutput{Text: "hi"}}}},
		ToolConfig: &model.ToolCallConfig{
			Tools:      []model.ToolDefinition{{Name: "lookup", Description: "d", Parameters: map[string]any{}}},
			ToolChoice: model.ToolChoice{Mode: model.ToolChoiceNone},
		},
	}
	_, err := cl.Infer(context.Background(), req)
	require.NoError(t, err)
	require.Nil(t, stub.lastParams.Tools)
}

type stubEmbedClient struct {
	lastParams sdk.EmbeddingNewParams
	resp       *sdk.CreateEmbeddingResponse
	err        error
}

func (s *stubEmbedClient) New(_ context.Context, body sdk.EmbeddingNewParams, _ ...option.RequestOption) (*sdk.CreateEmbeddingResponse, error) {
	s.lastParams = body
	return s.resp, s.err
}

func TestEmbedReturnsVectorsAndUsage(t *testing.T) {
	stub := &stubEmbedClient{
		resp: &sdk.CreateEmbeddingResponse{
			Data: []sdk.Embedding{
				{Index: 0, Embedding: []float64{0.1, 0.2}},
				{Index: 1, Embedding: []float64{0.3, 0.4}},
			},
			Usage: sdk.CreateEmbeddingResponseUsage{PromptTokens: 7},
		},
	}
	cl := NewWithEmbedClient(stub, provider.OpenAIConfig{Model: "text-embedding-3-small"})

	vectors, usage, err := cl.Embed(context.Background(), []string{"hello", "world"})
	require.NoError(t, err)
	require.Equal(t, [][]float32{{0.1, 0.2}, {0.3, 0.4}}, vectors)
	require.Equal(t, 7, usage.InputTokens)
	require.Equal(t, []string{"hello", "world"}, stub.lastParams.Input.OfArrayOfStrings)
}

func TestEmbedRequiresModel(t *testing.T) {
	cl := NewWithEmbedClient(&stubEmbedClient{}, provider.OpenAIConfig{})
	_, _, err := cl.Embed(context.Background(), []string{"hi"})
	require.Error(t, err)
}
