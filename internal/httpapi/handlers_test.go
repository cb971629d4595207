package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/inferly/gatewaycore/internal/embedding"
	"github.com/inferly/gatewaycore/internal/model"
	"github.com/inferly/gatewaycore/internal/orchestrator"
	"github.com/inferly/gatewaycore/internal/provider"
	"github.com/inferly/gatewaycore/internal/routing"
)

type fakeProvider struct {
	resp *model.ProviderInferenceResponse
	err  error
}

func (f *fakeProvider) Infer(ctx context.Context, req *model.ModelInferenceRequest) (*model.ProviderInferenceResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.resp, nil
}

func (f *fakeProvider) InferStream(ctx context.Context, req *model.ModelInferenceRequest) (provider.Stream, error) {
	return nil, f.err
}

func fixedClock() int64 { return 1700000000 }

func newTestServer(t *testing.T) *Server {
	t.Helper()
	fp := &fakeProvider{resp: &model.ProviderInferenceResponse{
		Output: []model.OutputContent{model.TextOutput{Text: "hello back"}},
	}}
	m, err := routing.New("weather", []string{"p1"}, map[string]routing.ModelProvider{
		"p1": {Name: "p1", Provider: fp},
	})
	require.NoError(t, err)
	gw := orchestrator.New(nil, map[string]*routing.Model{"weather": m})
	return NewServer(gw, map[string]*embedding.Model{}, nil, fixedClock)
}

func TestChatCompletionsHandlesModelTarget(t *testing.T) {
	s := newTestServer(t)
	r := chi.NewRouter()
	s.Routes(r)

	body := `{"model":"tensorzero::model_name::weather","messages":[{"role":"user","content":"hi"}]}`
	req := httptest.NewRequest(http.MethodPost, "/openai/v1/chat/completions", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	choices := resp["choices"].([]any)
	require.Len(t, choices, 1)
}

func TestChatCompletionsRejectsBadModelField(t *testing.T) {
	s := newTestServer(t)
	r := chi.NewRouter()
	s.Routes(r)

	body := `{"model":"not-a-valid-target","messages":[{"role":"user","content":"hi"}]}`
	req := httptest.NewRequest(http.MethodPost, "/openai/v1/chat/completions", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChatCompletionsRejectsMalformedJSON(t *testing.T) {
	s := newTestServer(t)
	r := chi.NewRouter()
	s.Routes(r)

	req := httptest.NewRequest(http.MethodPost, "/openai/v1/chat/completions", bytes.NewBufferString("{not json"))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}
