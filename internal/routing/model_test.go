package routing

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/inferly/gatewaycore/internal/cache"
	"github.com/inferly/gatewaycore/internal/model"
	"github.com/inferly/gatewaycore/internal/provider"
)

type stubProvider struct {
	resp       *model.ProviderInferenceResponse
	err        error
	calls      int
	lastReq    *model.ModelInferenceRequest
	streamErr  error
	streamOut  provider.Stream
}

func (s *stubProvider) Infer(_ context.Context, req *model.ModelInferenceRequest) (*model.ProviderInferenceResponse, error) {
	s.calls++
	s.lastReq = req
	if s.err != nil {
		return nil, s.err
	}
	return s.resp, nil
}

func (s *stubProvider) InferStream(_ context.Context, req *model.ModelInferenceRequest) (provider.Stream, error) {
	s.calls++
	s.lastReq = req
	if s.streamErr != nil {
		return nil, s.streamErr
	}
	return s.streamOut, nil
}

type fakeStream struct {
	chunks []*model.ProviderInferenceResponseChunk
	idx    int
}

func (f *fakeStream) Next() (*model.ProviderInferenceResponseChunk, error) {
	if f.idx >= len(f.chunks) {
		return nil, provider.ErrStreamDone
	}
	c := f.chunks[f.idx]
	f.idx++
	return c, nil
}

func (f *fakeStream) Close() error { return nil }

func msg(content ...model.OutputContent) model.Message {
	return model.Message{Role: model.RoleAssistant, Content: content}
}

func TestNewValidatesInvariants(t *testing.T) {
	providers := map[string]ModelProvider{"primary": {Name: "primary", Provider: &stubProvider{}}}

	_, err := New("m", nil, providers)
	require.Error(t, err)

	_, err = New("m", []string{"missing"}, providers)
	require.Error(t, err)

	_, err = New("m", []string{"primary", "primary"}, providers)
	require.Error(t, err)

	unreachable := map[string]ModelProvider{
		"primary": {Name: "primary", Provider: &stubProvider{}},
		"orphan":  {Name: "orphan", Provider: &stubProvider{}},
	}
	_, err = New("m", []string{"primary"}, unreachable)
	require.Error(t, err)

	reserved := map[string]ModelProvider{"tensorzero::x": {Name: "tensorzero::x", Provider: &stubProvider{}}}
	_, err = New("m", []string{"tensorzero::x"}, reserved)
	require.Error(t, err)

	_, err = New("m", []string{"primary"}, providers)
	require.NoError(t, err)
}

func TestInferFallsBackOnProviderError(t *testing.T) {
	failing := &stubProvider{err: errors.New("rate limited")}
	succeeding := &stubProvider{resp: &model.ProviderInferenceResponse{Output: []model.OutputContent{model.TextOutput{Text: "hi"}}}}
	providers := map[string]ModelProvider{
		"a": {Name: "a", Provider: failing},
		"b": {Name: "b", Provider: succeeding},
	}
	m, err := New("gpt-router", []string{"a", "b"}, providers)
	require.NoError(t, err)

	resp, cached, err := m.Infer(context.Background(), &model.ModelInferenceRequest{})
	require.NoError(t, err)
	require.False(t, cached)
	require.Equal(t, 1, failing.calls)
	require.Equal(t, 1, succeeding.calls)
	require.Equal(t, "hi", resp.Output[0].(model.TextOutput).Text)
}

func TestInferExhaustsAllProviders(t *testing.T) {
	errA := errors.New("boom a")
	errB := errors.New("boom b")
	providers := map[string]ModelProvider{
		"a": {Name: "a", Provider: &stubProvider{err: errA}},
		"b": {Name: "b", Provider: &stubProvider{err: errB}},
	}
	m, err := New("gpt-router", []string{"a", "b"}, providers)
	require.NoError(t, err)

	_, _, err = m.Infer(context.Background(), &model.ModelInferenceRequest{})
	require.Error(t, err)
	require.Contains(t, err.Error(), "model_providers_exhausted")
}

func TestInferFiltersUnknownBlocksPerProvider(t *testing.T) {
	qualifiedA := model.QualifiedProviderName("router", "a")
	req := &model.ModelInferenceRequest{
		Messages: []model.Message{
			msg(model.TextOutput{Text: "shared"}, model.UnknownOutput{ModelProviderName: qualifiedA, Data: json.RawMessage(`{}`)}),
		},
	}
	stub := &stubProvider{resp: &model.ProviderInferenceResponse{}}
	providers := map[string]ModelProvider{"a": {Name: "a", Provider: stub}, "b": {Name: "b", Provider: stub}}
	m, err := New("router", []string{"b", "a"}, providers)
	require.NoError(t, err)

	_, _, err = m.Infer(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, stub.lastReq.Messages[0].Content, 1, "provider b must not see the block scoped to provider a")
}

func TestInferCacheHitSkipsProviderCall(t *testing.T) {
	store := cache.NewInMemoryStore(0, 0)
	stub := &stubProvider{resp: &model.ProviderInferenceResponse{Output: []model.OutputContent{model.TextOutput{Text: "fresh"}}}}
	providers := map[string]ModelProvider{"a": {Name: "a", Provider: stub}}
	m, err := New("router", []string{"a"}, providers, WithCache(store, cache.Options{Enabled: cache.ModeOn}))
	require.NoError(t, err)

	req := &model.ModelInferenceRequest{}
	resp1, cached1, err := m.Infer(context.Background(), req)
	require.NoError(t, err)
	require.False(t, cached1)
	require.Equal(t, "fresh", resp1.Output[0].(model.TextOutput).Text)
	require.Equal(t, 1, stub.calls)

	resp2, cached2, err := m.Infer(context.Background(), req)
	require.NoError(t, err)
	require.True(t, cached2)
	require.Equal(t, "fresh", resp2.Output[0].(model.TextOutput).Text)
	require.Equal(t, 1, stub.calls, "a cache hit must not call the provider again")
}

func TestInferStreamWrapsWithWriteThroughCache(t *testing.T) {
	store := cache.NewInMemoryStore(0, 0)
	usage := model.Usage{InputTokens: 1, OutputTokens: 2}
	reason := model.FinishReasonStop
	chunks := []*model.ProviderInferenceResponseChunk{
		{Content: []model.ContentBlockChunk{{Type: model.ChunkTypeText, Text: "a"}}},
		{Content: []model.ContentBlockChunk{{Type: model.ChunkTypeText, Text: "b"}}, Usage: &usage, FinishReason: &reason},
	}
	stub := &stubProvider{streamOut: &fakeStream{chunks: chunks}}
	providers := map[string]ModelProvider{"a": {Name: "a", Provider: stub}}
	m, err := New("router", []string{"a"}, providers, WithCache(store, cache.Options{Enabled: cache.ModeOn}))
	require.NoError(t, err)

	stream, cached, err := m.InferStream(context.Background(), &model.ModelInferenceRequest{})
	require.NoError(t, err)
	require.False(t, cached)

	var got []string
	for {
		c, err := stream.Next()
		if err != nil {
			require.ErrorIs(t, err, provider.ErrStreamDone)
			break
		}
		got = append(got, c.Content[0].Text)
	}
	require.Equal(t, []string{"a", "b"}, got)

	entry, ok, err := store.GetStreaming(context.Background(), mustFingerprint(t, "router", "a", &model.ModelInferenceRequest{}))
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, entry.Chunks, 2)
}

func mustFingerprint(t *testing.T, modelName, providerName string, req *model.ModelInferenceRequest) string {
	t.Helper()
	key, err := cache.Fingerprint(modelName, providerName, req)
	require.NoError(t, err)
	return key
}
