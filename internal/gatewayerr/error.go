// Package gatewayerr implements the gateway's error taxonomy (§7). Every
// error that should be distinguishable by callers — for retry decisions,
// HTTP status mapping, or UX — is modeled as a *gatewayerr.Error with a Kind
// drawn from this package's enum, following the shape of a provider error
// type: kind, HTTP status, retryable flag, wrapped cause.
package gatewayerr

import "fmt"

// Kind classifies what a gateway error signals, per §7.
type Kind string

const (
	KindConfig                        Kind = "config"
	KindInvalidRequest                Kind = "invalid_request"
	KindInvalidOpenAICompatibleRequest Kind = "invalid_openai_compatible_request"
	KindInvalidMessage                Kind = "invalid_message"
	KindJSONSchemaValidation           Kind = "json_schema_validation"
	KindInferenceClient               Kind = "inference_client"
	KindInferenceServer               Kind = "inference_server"
	KindAPIKeyMissing                  Kind = "api_key_missing"
	KindClickHouseConnection           Kind = "clickhouse_connection"
	KindClickHouseQuery                Kind = "clickhouse_query"
	KindModelProvidersExhausted        Kind = "model_providers_exhausted"
	KindOutputParsing                  Kind = "output_parsing"
	KindUnsupportedContentBlockType    Kind = "unsupported_content_block_type"
	KindUnsupportedBatchInference      Kind = "unsupported_model_provider_for_batch_inference"
	KindInternal                       Kind = "internal"
)

// Error is the gateway's structured error type. Construct one with New or
// one of the Kind-specific helpers below; use errors.As to recover it from
// a wrapped chain.
type Error struct {
	Kind       Kind
	Message    string
	HTTPStatus int // provider-origin HTTP status when known, else 0
	Provider   string
	Retryable  bool
	cause      error

	// ProviderErrors aggregates per-provider failures for
	// KindModelProvidersExhausted, keyed by provider name.
	ProviderErrors map[string]error
}

// New constructs a gateway error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap constructs a gateway error of the given kind wrapping cause.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, cause: cause}
}

// FromProvider builds an InferenceClient or InferenceServer error from the
// provider-reported status and retryability: every 4xx status (auth,
// invalid-request and rate-limiting failures alike) becomes an
// InferenceClient error, and any other status an InferenceServer error.
func FromProvider(provider string, httpStatus int, retryable bool, message string, cause error) *Error {
	kind := KindInferenceServer
	if httpStatus >= 400 && httpStatus < 500 {
		kind = KindInferenceClient
	}
	return &Error{
		Kind:       kind,
		Message:    message,
		HTTPStatus: httpStatus,
		Provider:   provider,
		Retryable:  retryable,
		cause:      cause,
	}
}

// Exhausted builds a KindModelProvidersExhausted error carrying one entry
// per provider that was attempted, per §4.3 invariant 2.
func Exhausted(providerErrors map[string]error) *Error {
	return &Error{
		Kind:           KindModelProvidersExhausted,
		Message:        fmt.Sprintf("all %d model providers failed", len(providerErrors)),
		ProviderErrors: providerErrors,
	}
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %s", e.Kind, e.cause.Error())
	}
	return string(e.Kind)
}

// Unwrap exposes the wrapped cause, if any, so errors.Is/As traverse it.
func (e *Error) Unwrap() error { return e.cause }

// HTTPStatusForKind maps a Kind to the default HTTP status code used by the
// OpenAI-compatible surface (§6) when the error does not carry its own
// upstream HTTPStatus.
func HTTPStatusForKind(k Kind) int {
	switch k {
	case KindInvalidRequest, KindInvalidOpenAICompatibleRequest, KindInvalidMessage,
		KindJSONSchemaValidation, KindOutputParsing, KindUnsupportedContentBlockType,
		KindUnsupportedBatchInference, KindConfig:
		return 400
	case KindAPIKeyMissing:
		return 401
	case KindInferenceClient:
		return 400
	case KindInferenceServer, KindModelProvidersExhausted, KindClickHouseConnection,
		KindClickHouseQuery, KindInternal:
		return 500
	default:
		return 500
	}
}
