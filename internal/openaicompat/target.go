// Package openaicompat implements the OpenAI-Compatible Normalizer from
// §4.5: mapping the OpenAI chat-completion request/response/stream surface
// into and out of the internal gateway model, including the
// tensorzero::function_name::X / tensorzero::model_name::X routing prefix,
// base64 image data URLs, template-arguments content blocks, and
// tool-choice coercion.
//
// Grounded on goadesign-goa-ai's features/model/openai request/response
// translation (the nearest teacher analogue to "one wire dialect in, one
// internal shape out"), generalized from a single-hop client call into a
// bidirectional normalizer that also has to parse the gateway's own
// tensorzero::-prefixed routing and extension fields, none of which the
// teacher's OpenAI client has any notion of.
package openaicompat

import (
	"strings"

	"github.com/inferly/gatewaycore/internal/gatewayerr"
)

const (
	functionNamePrefix = "tensorzero::function_name::"
	modelNamePrefix    = "tensorzero::model_name::"
)

// InferenceTarget is the routing decision derived from an OpenAI-compat
// request's "model" field: exactly one of FunctionName or ModelName is set.
type InferenceTarget struct {
	FunctionName *string
	ModelName    *string
}

// ParseModelString implements §4.5's model-string routing rule: the model
// field must begin with exactly one of the two tensorzero:: prefixes, with
// a non-empty suffix. Either prefix with an empty suffix, both prefixes
// present, or neither prefix present is rejected.
func ParseModelString(raw string) (InferenceTarget, error) {
	hasFunc := strings.HasPrefix(raw, functionNamePrefix)
	hasModel := strings.HasPrefix(raw, modelNamePrefix)

	switch {
	case hasFunc && hasModel:
		// Only possible if one prefix is a literal prefix of the other,
		// which it is not here, but guard explicitly per the spec text.
		return InferenceTarget{}, gatewayerr.New(gatewayerr.KindInvalidOpenAICompatibleRequest,
			"model field names both a function and a model target")
	case hasFunc:
		name := raw[len(functionNamePrefix):]
		if name == "" {
			return InferenceTarget{}, gatewayerr.New(gatewayerr.KindInvalidOpenAICompatibleRequest,
				"tensorzero::function_name:: requires a non-empty function name")
		}
		return InferenceTarget{FunctionName: &name}, nil
	case hasModel:
		name := raw[len(modelNamePrefix):]
		if name == "" {
			return InferenceTarget{}, gatewayerr.New(gatewayerr.KindInvalidOpenAICompatibleRequest,
				"tensorzero::model_name:: requires a non-empty model name")
		}
		return InferenceTarget{ModelName: &name}, nil
	default:
		return InferenceTarget{}, gatewayerr.New(gatewayerr.KindInvalidOpenAICompatibleRequest,
			"model field must begin with tensorzero::function_name:: or tensorzero::model_name::")
	}
}

const embeddingModelNamePrefix = "tensorzero::embedding_model_name::"

// ParseEmbeddingModelString implements the /openai/v1/embeddings route's
// model-field contract (§6): the tensorzero::embedding_model_name:: prefix
// is expected but its omission is accepted with a deprecation warning,
// treating the whole string as the embedding model name.
func ParseEmbeddingModelString(raw string) (modelName string, deprecated bool) {
	if strings.HasPrefix(raw, embeddingModelNamePrefix) {
		return raw[len(embeddingModelNamePrefix):], false
	}
	return raw, true
}
