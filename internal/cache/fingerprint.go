package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/inferly/gatewaycore/internal/model"
)

// canonicalRequest is the subset of model.ModelInferenceRequest that
// participates in the cache key, deliberately excluding InferenceID and any
// other non-deterministic field (§6: "exclude non-deterministic fields:
// timestamps, inference_id, trace spans"). encoding/json already sorts
// object keys for map[string]any values (ExtraBody entries, tool JSON
// Schemas), which is sufficient canonicalization for this repo's purposes
// per §9's "implementers may choose one [hash], but read/write consistency
// within a single process is sufficient" open question.
type canonicalRequest struct {
	Messages         []model.Message           `json:"messages"`
	System           *string                   `json:"system,omitempty"`
	ToolConfig       *model.ToolCallConfig     `json:"tool_config,omitempty"`
	Temperature      *float32                  `json:"temperature,omitempty"`
	MaxTokens        *int                      `json:"max_tokens,omitempty"`
	Seed             *int64                    `json:"seed,omitempty"`
	TopP             *float32                  `json:"top_p,omitempty"`
	PresencePenalty  *float32                  `json:"presence_penalty,omitempty"`
	FrequencyPenalty *float32                  `json:"frequency_penalty,omitempty"`
	StopSequences    []string                  `json:"stop_sequences,omitempty"`
	JSONMode         model.JSONMode            `json:"json_mode"`
	FunctionType     model.FunctionType        `json:"function_type"`
	OutputSchema     map[string]any            `json:"output_schema,omitempty"`
	VariantExtraBody []model.ExtraBodyEntry    `json:"variant_extra_body,omitempty"`
	ExtraBody        []model.ExtraBodyEntry    `json:"extra_body,omitempty"`
}

// Fingerprint derives the deterministic cache key for (modelName,
// providerName, req), per §4.3. req must already have had Unknown-content
// blocks filtered for the target provider by the caller (internal/routing
// does this before calling Fingerprint).
func Fingerprint(modelName, providerName string, req *model.ModelInferenceRequest) (string, error) {
	canon := canonicalRequest{
		Messages:         req.Messages,
		System:           req.System,
		ToolConfig:       req.ToolConfig,
		Temperature:      req.Temperature,
		MaxTokens:        req.MaxTokens,
		Seed:             req.Seed,
		TopP:             req.TopP,
		PresencePenalty:  req.PresencePenalty,
		FrequencyPenalty: req.FrequencyPenalty,
		StopSequences:    req.StopSequences,
		JSONMode:         req.JSONMode,
		FunctionType:     req.FunctionType,
		OutputSchema:     req.OutputSchema,
		VariantExtraBody: req.VariantExtraBody,
		ExtraBody:        req.ExtraBody,
	}
	body, err := json.Marshal(canon)
	if err != nil {
		return "", err
	}
	keyMaterial := struct {
		Model    string          `json:"model"`
		Provider string          `json:"provider"`
		Request  json.RawMessage `json:"request"`
	}{Model: modelName, Provider: providerName, Request: body}
	data, err := json.Marshal(keyMaterial)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return "tensorzero:cache:" + hex.EncodeToString(sum[:]), nil
}
