// Package embedding implements §4.8's EXPANSION: an EmbeddingModel/
// EmbeddingProvider pair with the same named-routing, try-in-order
// fallback shape as internal/routing.Model, narrowed to a single Embed
// operation, so the /openai/v1/embeddings surface has a real internal
// target. Grounded directly on internal/routing.Model's structure (the
// nearest in-repo analogue, since no example repo's embeddings path
// happens to share a fallback list with its chat path).
package embedding

import (
	"context"

	"go.uber.org/zap"

	"github.com/inferly/gatewaycore/internal/gatewayerr"
	"github.com/inferly/gatewaycore/internal/model"
)

// Provider is implemented by every backend capable of serving embeddings
// (OpenAI, Google, and the generic OpenAI-compatible family; Anthropic and
// Bedrock's chat-only backends do not implement this).
type Provider interface {
	Embed(ctx context.Context, texts []string) ([][]float32, model.Usage, error)
}

// ModelProvider is one named entry in an EmbeddingModel's routing table.
type ModelProvider struct {
	Name     string
	Provider Provider
}

// Model is a named ordered list of embedding providers with try-in-order
// fallback (§4.8), mirroring internal/routing.Model without response
// caching: embeddings are deterministic given (model, text) and cheap
// enough that the spec does not ask for cache coherence on this path.
type Model struct {
	name      string
	routing   []string
	providers map[string]ModelProvider
	logger    *zap.Logger
}

// Option configures a Model during construction.
type Option func(*Model)

// WithLogger overrides the default no-op zap.Logger.
func WithLogger(logger *zap.Logger) Option {
	return func(m *Model) { m.logger = logger }
}

// New builds an embedding Model, validating the same routing invariants as
// internal/routing.New: non-empty, no duplicates, every name resolvable.
func New(name string, routing []string, providers map[string]ModelProvider, opts ...Option) (*Model, error) {
	if len(routing) == 0 {
		return nil, gatewayerr.New(gatewayerr.KindConfig, "embedding model "+name+": routing must be non-empty")
	}
	seen := make(map[string]struct{}, len(routing))
	for _, n := range routing {
		if _, dup := seen[n]; dup {
			return nil, gatewayerr.New(gatewayerr.KindConfig, "embedding model "+name+": duplicate provider name in routing: "+n)
		}
		seen[n] = struct{}{}
		if _, ok := providers[n]; !ok {
			return nil, gatewayerr.New(gatewayerr.KindConfig, "embedding model "+name+": routing references unknown provider "+n)
		}
	}

	m := &Model{
		name:      name,
		routing:   append([]string(nil), routing...),
		providers: providers,
		logger:    zap.NewNop(),
	}
	for _, o := range opts {
		o(m)
	}
	return m, nil
}

// Embed tries each provider in routing order, aggregating failures into a
// ModelProvidersExhausted error only once every provider has failed.
func (m *Model) Embed(ctx context.Context, texts []string) ([][]float32, model.Usage, error) {
	providerErrors := make(map[string]error)
	for _, name := range m.routing {
		mp := m.providers[name]
		vectors, usage, err := mp.Provider.Embed(ctx, texts)
		if err != nil {
			providerErrors[name] = err
			m.logger.Warn("embedding provider attempt failed", zap.String("provider", name), zap.Error(err))
			continue
		}
		return vectors, usage, nil
	}
	return nil, model.Usage{}, gatewayerr.Exhausted(providerErrors)
}
