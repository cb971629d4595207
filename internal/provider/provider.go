// Package provider defines the provider contract (§3's Provider trait) that
// every backend adapter (Anthropic, OpenAI, Bedrock, SageMaker, Google,
// OpenAI-compatible) implements, plus the helpers shared across adapters:
// extra-body/header overlay merging, tool-choice translation, finish-reason
// normalization, and the Anthropic-family JSON-mode prefill trick. Adapter
// packages live under internal/provider/<name>; this package holds the
// contract and backend-agnostic logic, grounded on the goa-ai model.Client
// shape (runtime/agent/model) generalized from a single-family interface
// into the multi-backend trait the specification requires.
package provider

import (
	"context"
	"io"

	"github.com/inferly/gatewaycore/internal/gatewayerr"
	"github.com/inferly/gatewaycore/internal/model"
)

// Provider is implemented by every backend adapter. Infer and InferStream
// are required; batch support is optional and discovered via a type
// assertion to BatchCapable.
type Provider interface {
	// Infer issues a single non-streaming inference call.
	Infer(ctx context.Context, req *model.ModelInferenceRequest) (*model.ProviderInferenceResponse, error)

	// InferStream issues a streaming inference call and returns a Stream of
	// incremental chunks.
	InferStream(ctx context.Context, req *model.ModelInferenceRequest) (Stream, error)
}

// Stream yields ProviderInferenceResponseChunk values in order. Next
// returns io.EOF (wrapped or bare) once the stream completes cleanly.
// Implementations must not buffer unboundedly: callers read chunk by chunk.
type Stream interface {
	Next() (*model.ProviderInferenceResponseChunk, error)
	Close() error
}

// ErrStreamDone is returned (or wrapped) by Stream.Next to signal a clean
// end of stream, mirroring io.EOF for readers that don't want to import io
// just to compare against it.
var ErrStreamDone = io.EOF

// RawRequestCapable is implemented by Stream decoders that captured the
// serialized outgoing request at construction time. The routing layer
// probes for it with a type assertion when building a streaming cache
// entry's raw_request field (§3); decoders that don't implement it (none
// currently) simply leave that field empty.
type RawRequestCapable interface {
	RawRequest() string
}

// BatchCapable is implemented by providers that support asynchronous batch
// inference (§3's optional batch operations). A provider lacking batch
// support simply does not implement this interface; callers should probe
// with a type assertion and return UnsupportedModelProviderForBatchInference
// (see internal/gatewayerr) when it fails.
type BatchCapable interface {
	StartBatchInference(ctx context.Context, reqs []*model.ModelInferenceRequest) (jobID string, err error)
	PollBatchInference(ctx context.Context, jobID string) (done bool, responses []*model.ProviderInferenceResponse, err error)
}

// StartBatchInference dispatches to p's batch implementation, failing with
// an UnsupportedModelProviderForBatchInference error when p does not
// implement BatchCapable.
func StartBatchInference(ctx context.Context, p Provider, providerType string, reqs []*model.ModelInferenceRequest) (string, error) {
	bc, ok := p.(BatchCapable)
	if !ok {
		return "", gatewayerr.New(gatewayerr.KindUnsupportedBatchInference,
			"provider "+providerType+" does not support batch inference")
	}
	return bc.StartBatchInference(ctx, reqs)
}

// PollBatchInference dispatches to p's batch implementation, with the same
// unsupported-provider failure mode as StartBatchInference.
func PollBatchInference(ctx context.Context, p Provider, providerType, jobID string) (bool, []*model.ProviderInferenceResponse, error) {
	bc, ok := p.(BatchCapable)
	if !ok {
		return false, nil, gatewayerr.New(gatewayerr.KindUnsupportedBatchInference,
			"provider "+providerType+" does not support batch inference")
	}
	return bc.PollBatchInference(ctx, jobID)
}

// Config is implemented by every backend's configuration struct. ModelName
// is the provider-side model/deployment identifier; Type names the backend
// for error messages and routing-prefix parsing.
type Config interface {
	ProviderType() string
	ModelName() string
}
