// Package routing implements the Model component from §4.3: a named
// ordered list of providers with try-in-order fallback, per-provider
// Unknown-content filtering, and response-cache coherence. It composes
// internal/provider (the backend trait) and internal/cache (the
// response cache) the way goa-ai's features/model/gateway.Server
// composes a model.Client with middleware chains, except the "chain" here
// is a provider fallback list rather than an onion of middleware.
package routing

import (
	"context"

	"go.uber.org/zap"

	"github.com/inferly/gatewaycore/internal/cache"
	"github.com/inferly/gatewaycore/internal/gatewayerr"
	"github.com/inferly/gatewaycore/internal/model"
	"github.com/inferly/gatewaycore/internal/provider"
)

// ModelProvider is one named entry in a Model's routing table (§3's
// ModelProvider tuple). Name must match the key this entry is stored
// under in Model.providers; Provider is the already-configured backend
// adapter (anthropic.New, openai.New, bedrock.New, ...).
type ModelProvider struct {
	Name     string
	Provider provider.Provider
}

// Model is a named ordered list of providers plus the cache wiring that
// §4.3 requires. The zero value is not usable; build one with New.
type Model struct {
	name      string
	routing   []string
	providers map[string]ModelProvider

	store     cache.Store
	cacheOpts cache.Options
	logger    *zap.Logger
}

// Option configures a Model during construction.
type Option func(*Model)

// WithCache registers the response-cache backend and read/write mode
// used by Infer and InferStream. Omitting this option leaves caching
// fully disabled (store stays nil, every lookup is a guaranteed miss and
// every write a no-op, per internal/cache's nil-store guard).
func WithCache(store cache.Store, opts cache.Options) Option {
	return func(m *Model) {
		m.store = store
		m.cacheOpts = opts
	}
}

// WithLogger overrides the default no-op zap.Logger.
func WithLogger(logger *zap.Logger) Option {
	return func(m *Model) { m.logger = logger }
}

// New builds a Model. routing lists provider names in fallback order;
// providers supplies the full set of entries keyed by name. New
// validates the §3 Model invariants: routing is non-empty, every
// routing name exists in providers, routing names are unique, every
// provider is reachable from routing, and no provider name begins with
// the reserved "tensorzero::" prefix.
func New(name string, routing []string, providers map[string]ModelProvider, opts ...Option) (*Model, error) {
	if len(routing) == 0 {
		return nil, gatewayerr.New(gatewayerr.KindConfig, "model "+name+": routing must be non-empty")
	}
	seen := make(map[string]struct{}, len(routing))
	for _, n := range routing {
		if _, dup := seen[n]; dup {
			return nil, gatewayerr.New(gatewayerr.KindConfig, "model "+name+": duplicate provider name in routing: "+n)
		}
		seen[n] = struct{}{}
		if _, ok := providers[n]; !ok {
			return nil, gatewayerr.New(gatewayerr.KindConfig, "model "+name+": routing references unknown provider "+n)
		}
	}
	for pname := range providers {
		if _, ok := seen[pname]; !ok {
			return nil, gatewayerr.New(gatewayerr.KindConfig, "model "+name+": provider "+pname+" is not reachable from routing")
		}
		if hasReservedPrefix(pname) {
			return nil, gatewayerr.New(gatewayerr.KindConfig, "model "+name+": provider name "+pname+" uses the reserved tensorzero:: prefix")
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

func hasReservedPrefix(name string) bool {
	const prefix = "tensorzero::"
	return len(name) >= len(prefix) && name[:len(prefix)] == prefix
}

// filterUnknown drops Unknown content blocks bound to a fully qualified
// provider name other than this (modelName, providerName) target, per
// §4.3 step 1a. Blocks with no ModelProviderName are left untouched:
// they are visible to every provider in the routing list.
func filterUnknown(messages []model.Message, modelName, providerName string) []model.Message {
	qualified := model.QualifiedProviderName(modelName, providerName)
	out := make([]model.Message, len(messages))
	for i, msg := range messages {
		content := make([]model.OutputContent, 0, len(msg.Content))
		for _, block := range msg.Content {
			if unk, ok := block.(model.UnknownOutput); ok {
				if unk.ModelProviderName != "" && unk.ModelProviderName != qualified {
					continue
				}
			}
			content = append(content, block)
		}
		out[i] = model.Message{Role: msg.Role, Content: content}
	}
	return out
}

// forAttempt returns a shallow copy of req with Messages filtered for
// the given provider target, so earlier routing attempts' mutations
// never leak into later ones.
func forAttempt(req *model.ModelInferenceRequest, modelName, providerName string) *model.ModelInferenceRequest {
	clone := *req
	clone.Messages = filterUnknown(req.Messages, modelName, providerName)
	return &clone
}

// cacheOptsFor resolves the effective cache options for one request: the
// request's tensorzero::cache_options override when present, else the
// Model's configured defaults.
func (m *Model) cacheOptsFor(req *model.ModelInferenceRequest) cache.Options {
	if req.CacheMode == "" {
		return m.cacheOpts
	}
	return cache.Options{Enabled: cache.Mode(req.CacheMode), MaxAgeS: req.CacheMaxAgeS}
}

// Infer implements §4.3's infer operation: try each provider in routing
// order, consulting the cache before and after each attempt, and
// aggregating failures into a ModelProvidersExhausted error only once
// every provider has failed.
func (m *Model) Infer(ctx context.Context, req *model.ModelInferenceRequest) (*model.ProviderInferenceResponse, bool, error) {
	providerErrors := make(map[string]error)
	cacheOpts := m.cacheOptsFor(req)
	for _, name := range m.routing {
		mp := m.providers[name]
		attemptReq := forAttempt(req, m.name, name)

		key, keyErr := cache.Fingerprint(m.name, name, attemptReq)
		if keyErr == nil {
			if entry, ok := cache.Get(ctx, m.store, cacheOpts, key, m.logger); ok {
				return &model.ProviderInferenceResponse{
					Output:       entry.OutputBlocks,
					RawRequest:   entry.RawRequest,
					RawResponse:  entry.RawResponse,
					Usage:        entry.Usage,
					FinishReason: entry.FinishReason,
				}, true, nil
			}
		}

		resp, err := mp.Provider.Infer(ctx, attemptReq)
		if err != nil {
			providerErrors[name] = err
			continue
		}

		if keyErr == nil {
			entry := &cache.NonStreamingEntry{
				OutputBlocks: resp.Output,
				RawRequest:   resp.RawRequest,
				RawResponse:  resp.RawResponse,
				Usage:        resp.Usage,
				FinishReason: resp.FinishReason,
			}
			cache.Put(ctx, m.store, cacheOpts, key, entry, m.logger)
		}
		return resp, false, nil
	}
	return nil, false, gatewayerr.Exhausted(providerErrors)
}

// InferStream implements §4.3's infer_stream operation. On a cache hit
// it returns a replay stream with cached=true; otherwise it calls the
// provider, peeks the first chunk to surface setup errors synchronously
// (per §4.3 step 1d), and wraps the result with a write-through cache
// interceptor before returning it.
func (m *Model) InferStream(ctx context.Context, req *model.ModelInferenceRequest) (provider.Stream, bool, error) {
	providerErrors := make(map[string]error)
	cacheOpts := m.cacheOptsFor(req)
	for _, name := range m.routing {
		mp := m.providers[name]
		attemptReq := forAttempt(req, m.name, name)

		key, keyErr := cache.Fingerprint(m.name, name, attemptReq)
		if keyErr == nil {
			if entry, ok := cache.GetStreaming(ctx, m.store, cacheOpts, key, m.logger); ok {
				return cache.NewReplayStream(entry), true, nil
			}
		}

		stream, err := mp.Provider.InferStream(ctx, attemptReq)
		if err != nil {
			providerErrors[name] = err
			continue
		}

		var wrapped provider.Stream = stream
		if keyErr == nil {
			wrapped = cache.NewWriteThroughStream(stream, m.store, cacheOpts, key, streamRawRequest(stream), m.logger)
		}

		peeked, err := peek(wrapped)
		if err != nil && err != provider.ErrStreamDone {
			_ = wrapped.Close()
			providerErrors[name] = err
			continue
		}
		return &prefetchedStream{first: peeked, firstErr: err, inner: wrapped}, false, nil
	}
	return nil, false, gatewayerr.Exhausted(providerErrors)
}

// streamRawRequest extracts the serialized outgoing request from a
// Stream that implements provider.RawRequestCapable, for the streaming
// cache entry's raw_request field. Decoders that don't implement it
// (none currently) yield an empty string.
func streamRawRequest(s provider.Stream) string {
	if rc, ok := s.(provider.RawRequestCapable); ok {
		return rc.RawRequest()
	}
	return ""
}

// peek reads exactly one chunk ahead so setup-time decode/transport
// errors surface to the caller before a Stream is handed back, per
// §4.3 step 1d.
func peek(s provider.Stream) (*model.ProviderInferenceResponseChunk, error) {
	return s.Next()
}

// prefetchedStream re-queues the chunk consumed by peek so Infer's
// caller sees the full stream from the first chunk onward.
type prefetchedStream struct {
	first    *model.ProviderInferenceResponseChunk
	firstErr error
	used     bool
	inner    provider.Stream
}

func (p *prefetchedStream) Next() (*model.ProviderInferenceResponseChunk, error) {
	if !p.used {
		p.used = true
		return p.first, p.firstErr
	}
	return p.inner.Next()
}

func (p *prefetchedStream) Close() error { return p.inner.Close() }

var _ provider.Stream = (*prefetchedStream)(nil)
