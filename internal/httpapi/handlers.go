package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/inferly/gatewaycore/internal/embedding"
	"github.com/inferly/gatewaycore/internal/gatewayerr"
	"github.com/inferly/gatewaycore/internal/model"
	"github.com/inferly/gatewaycore/internal/openaicompat"
	"github.com/inferly/gatewaycore/internal/orchestrator"
)

// Server mounts the OpenAI-Compatible HTTP surface (§4.7/§6) over the
// orchestrator's Gateway. Grounded on DatanoiseTV-aigateway's
// internal/handlers/openai.go route-registration and error-response
// convention, generalized from that repo's provider-proxy shape into this
// gateway's function/model dispatch.
type Server struct {
	gateway   *orchestrator.Gateway
	embedders map[string]*embedding.Model
	logger    *zap.Logger
	now       func() int64
}

// NewServer builds a Server. now supplies the Unix timestamp stamped into
// every response's "created" field; production wiring passes
// time.Now().Unix, tests pass a fixed clock.
func NewServer(gateway *orchestrator.Gateway, embedders map[string]*embedding.Model, logger *zap.Logger, now func() int64) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{gateway: gateway, embedders: embedders, logger: logger, now: now}
}

// Routes registers the gateway's endpoints on r.
func (s *Server) Routes(r chi.Router) {
	r.Post("/openai/v1/chat/completions", s.ChatCompletions)
	r.Post("/openai/v1/embeddings", s.Embeddings)
}

func (s *Server) ChatCompletions(w http.ResponseWriter, r *http.Request) {
	var wire openaicompat.ChatCompletionRequest
	if err := json.NewDecoder(r.Body).Decode(&wire); err != nil {
		writeGatewayError(w, gatewayerr.New(gatewayerr.KindInvalidOpenAICompatibleRequest, "malformed request body"))
		return
	}

	params, err := openaicompat.NormalizeRequest(wire, s.logger)
	if err != nil {
		writeGatewayError(w, err)
		return
	}

	req := orchestrator.Request{
		FunctionName:     params.Target.FunctionName,
		ModelName:        params.Target.ModelName,
		VariantName:      params.VariantName,
		Input:            params.Input,
		DynamicTools:     params.DynamicTools,
		JSONMode:         params.JSONMode,
		InferenceID:      RequestIDFromContext(r.Context()),
		Temperature:      params.Temperature,
		MaxTokens:        params.MaxTokens,
		TopP:             params.TopP,
		PresencePenalty:  params.PresencePenalty,
		FrequencyPenalty: params.FrequencyPenalty,
		Seed:             params.Seed,
		StopSequences:    params.StopSequences,
		ExtraBody:        params.ExtraBody,
		ExtraHeaders:     params.ExtraHeaders,
	}
	req.DynamicCredentials = params.Credentials

	if params.CacheOptions != nil {
		req.CacheMode = params.CacheOptions.Enabled
		req.CacheMaxAgeS = params.CacheOptions.MaxAgeS
	}

	if params.Stream {
		s.streamChatCompletion(w, r, params, req)
		return
	}

	result, err := s.gateway.Infer(r.Context(), req)
	if err != nil {
		writeGatewayError(w, err)
		return
	}

	id := "infer-" + req.InferenceID
	episodeID := ""
	if params.EpisodeID != nil {
		episodeID = *params.EpisodeID
	}
	variantOrModel := result.VariantName

	var resp *openaicompat.ChatCompletionResponse
	if result.JSON != nil {
		resp = openaicompat.BuildJSONResponse(id, episodeID, params.Target, variantOrModel, s.now(), result.JSON)
	} else {
		resp = openaicompat.BuildChatResponse(id, episodeID, params.Target, variantOrModel, s.now(), result.Chat)
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) streamChatCompletion(w http.ResponseWriter, r *http.Request, params *openaicompat.Params, req orchestrator.Request) {
	streamResult, err := s.gateway.InferStream(r.Context(), req)
	if err != nil {
		writeGatewayError(w, err)
		return
	}
	stream := streamResult.Stream
	defer stream.Close()

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeGatewayError(w, gatewayerr.New(gatewayerr.KindInternal, "response writer does not support streaming"))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	id := "infer-" + req.InferenceID
	modelField := openaicompat.ResponseModelField(params.Target, streamResult.VariantName)
	translator := openaicompat.NewStreamTranslator(id, modelField, s.now(), params.StreamIncludeUsage)

	var total model.Usage
	for {
		chunk, err := stream.Next()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				// A mid-stream error terminates the SSE stream with no [DONE]
				// sentinel, the signal the OpenAI-compat surface gives clients
				// that the stream did not complete (§7).
				s.logger.Warn("stream terminated with error", zap.Error(err))
				return
			}
			break
		}
		if chunk.Usage != nil {
			total.InputTokens += chunk.Usage.InputTokens
			total.OutputTokens += chunk.Usage.OutputTokens
		}
		writeSSE(w, flusher, translator.Next(chunk))
	}

	if params.StreamIncludeUsage {
		writeSSE(w, flusher, translator.FinalUsageChunk(total))
	}
	_, _ = w.Write(openaicompat.DoneSentinel)
	flusher.Flush()
}

func (s *Server) Embeddings(w http.ResponseWriter, r *http.Request) {
	var wire openaicompat.EmbeddingRequest
	if err := json.NewDecoder(r.Body).Decode(&wire); err != nil {
		writeGatewayError(w, gatewayerr.New(gatewayerr.KindInvalidOpenAICompatibleRequest, "malformed request body"))
		return
	}

	params, err := openaicompat.NormalizeEmbeddingRequest(wire, s.logger)
	if err != nil {
		writeGatewayError(w, err)
		return
	}

	m, ok := s.embedders[params.ModelName]
	if !ok {
		writeGatewayError(w, gatewayerr.New(gatewayerr.KindConfig, "unknown embedding model \""+params.ModelName+"\""))
		return
	}

	vectors, usage, err := m.Embed(r.Context(), params.Texts)
	if err != nil {
		writeGatewayError(w, err)
		return
	}

	data := make([]openaicompat.EmbeddingDatum, len(vectors))
	for i, v := range vectors {
		data[i] = openaicompat.EmbeddingDatum{Object: "embedding", Index: i, Embedding: v}
	}

	writeJSON(w, http.StatusOK, &openaicompat.EmbeddingResponse{
		Object: "list",
		Data:   data,
		Model:  params.ModelName,
		Usage: openaicompat.EmbeddingUsage{
			PromptTokens: usage.InputTokens,
			TotalTokens:  usage.InputTokens,
		},
	})
}

func writeSSE(w http.ResponseWriter, flusher http.Flusher, chunk *openaicompat.StreamChunk) {
	frame, err := openaicompat.MarshalSSE(chunk)
	if err != nil {
		return
	}
	_, _ = w.Write(frame)
	flusher.Flush()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type wireError struct {
	Error wireErrorBody `json:"error"`
}

type wireErrorBody struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

func writeGatewayError(w http.ResponseWriter, err error) {
	var ge *gatewayerr.Error
	if !errors.As(err, &ge) {
		writeJSON(w, http.StatusInternalServerError, wireError{Error: wireErrorBody{Message: err.Error(), Type: "internal_error"}})
		return
	}
	status := ge.HTTPStatus
	if status == 0 {
		status = gatewayerr.HTTPStatusForKind(ge.Kind)
	}
	writeJSON(w, status, wireError{Error: wireErrorBody{Message: ge.Error(), Type: string(ge.Kind)}})
}

func writeError(w http.ResponseWriter, status int, message, errType string) {
	writeJSON(w, status, wireError{Error: wireErrorBody{Message: message, Type: errType}})
}
