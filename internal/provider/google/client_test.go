package google

import (
	"context"
	"errors"
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/require"

	"github.com/inferly/gatewaycore/internal/provider"
)

type stubEmbedModel struct {
	calls []genai.Part
	resp  *genai.EmbedContentResponse
	err   error
}

func (s *stubEmbedModel) EmbedContent(_ context.Context, parts ...genai.Part) (*genai.EmbedContentResponse, error) {
	s.calls = append(s.calls, parts...)
	return s.resp, s.err
}

func TestEmbedIssuesOneCallPerInput(t *testing.T) {
	stub := &stubEmbedModel{resp: &genai.EmbedContentResponse{Embedding: &genai.ContentEmbedding{Values: []float32{0.1, 0.2}}}}
	cl := NewWithEmbedModel(stub, provider.GoogleConfig{Model: "text-embedding-004"})

	vectors, usage, err := cl.Embed(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	require.Len(t, vectors, 2)
	require.Equal(t, []float32{0.1, 0.2}, vectors[0])
	require.Equal(t, []float32{0.1, 0.2}, vectors[1])
	require.Zero(t, usage.InputTokens)
	require.Len(t, stub.calls, 2)
}

func TestEmbedPropagatesProviderError(t *testing.T) {
	stub := &stubEmbedModel{err: errors.New("boom")}
	cl := NewWithEmbedModel(stub, provider.GoogleConfig{Model: "text-embedding-004"})

	_, _, err := cl.Embed(context.Background(), []string{"a"})
	require.Error(t, err)
}
