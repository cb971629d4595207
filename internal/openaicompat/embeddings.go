package openaicompat

import "go.uber.org/zap"

// EmbeddingRequest is the wire shape accepted by POST /openai/v1/embeddings
// (§6/§4.8's EXPANSION).
type EmbeddingRequest struct {
	Input          any               `json:"input"` // string or []string
	Model          string            `json:"model"`
	Dimensions     *int              `json:"dimensions,omitempty"`
	EncodingFormat string            `json:"encoding_format,omitempty"`
	Credentials    map[string]string `json:"tensorzero::credentials,omitempty"`
	Dryrun         bool              `json:"tensorzero::dryrun,omitempty"`
	CacheOptions   *WireCacheOptions `json:"tensorzero::cache_options,omitempty"`
}

// EmbeddingParams is the normalized result of an EmbeddingRequest.
type EmbeddingParams struct {
	ModelName string
	Texts     []string
	Dryrun    bool
}

// NormalizeEmbeddingRequest implements §6's embeddings normalization
// contract: the model field must carry the
// tensorzero::embedding_model_name:: prefix; its omission is accepted with
// a deprecation warning rather than rejected.
func NormalizeEmbeddingRequest(req EmbeddingRequest, logger *zap.Logger) (*EmbeddingParams, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	modelName, deprecated := ParseEmbeddingModelString(req.Model)
	if deprecated {
		logger.Warn("embeddings request model field is missing the tensorzero::embedding_model_name:: prefix", zap.String("model", req.Model))
	}

	var texts []string
	switch v := req.Input.(type) {
	case string:
		texts = []string{v}
	case []string:
		texts = v
	case []any:
		for _, item := range v {
			s, _ := item.(string)
			texts = append(texts, s)
		}
	}

	return &EmbeddingParams{ModelName: modelName, Texts: texts, Dryrun: req.Dryrun}, nil
}

// EmbeddingResponse is the non-streaming embeddings response envelope.
type EmbeddingResponse struct {
	Object string           `json:"object"`
	Data   []EmbeddingDatum `json:"data"`
	Model  string           `json:"model"`
	Usage  EmbeddingUsage   `json:"usage"`
}

// EmbeddingDatum is one vector in an EmbeddingResponse.
type EmbeddingDatum struct {
	Object    string    `json:"object"`
	Index     int       `json:"index"`
	Embedding []float32 `json:"embedding"`
}

// EmbeddingUsage mirrors OpenAI's embeddings usage object (no completion
// tokens for an embeddings call).
type EmbeddingUsage struct {
	PromptTokens int `json:"prompt_tokens"`
	TotalTokens  int `json:"total_tokens"`
}
