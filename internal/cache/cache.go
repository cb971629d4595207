// Package cache implements the content-addressed response cache from §3/
// §4.3: a store keyed by fingerprint(model_name, provider_name,
// normalized_request) mapping to either a completed non-streaming response
// or an ordered chunk list, with the invariant that streaming entries are
// only ever written after their source stream terminates without error.
//
// Grounded on BaSui01-agentflow's llm/cache.MultiLevelCache (local + Redis
// two-tier lookup, sha256-hashed keys, zap logging of hit/miss) and
// DatanoiseTV-aigateway's process-local cache usage; InMemoryStore wraps
// github.com/patrickmn/go-cache and RedisStore wraps
// github.com/redis/go-redis/v9, so a single-process deployment needs no
// external dependency while a clustered deployment shares a coherent cache.
package cache

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/inferly/gatewaycore/internal/model"
)

// NonStreamingEntry is a cached completed response (§3's Response Cache
// Entry, non-streaming shape).
type NonStreamingEntry struct {
	OutputBlocks model.OutputBlocks  `json:"output_blocks"`
	RawRequest   string              `json:"raw_request"`
	RawResponse  string              `json:"raw_response"`
	Usage        model.Usage         `json:"usage"`
	FinishReason *model.FinishReason `json:"finish_reason,omitempty"`
	CreatedAt    time.Time           `json:"created_at"`
}

// CachedChunk is a single entry in a cached streaming response's ordered
// chunk list.
type CachedChunk struct {
	Content      []model.ContentBlockChunk `json:"content"`
	Usage        *model.Usage              `json:"usage,omitempty"`
	RawResponse  string                     `json:"raw_response"`
	FinishReason *model.FinishReason        `json:"finish_reason,omitempty"`
}

// StreamingEntry is a cached completed stream (§3's Response Cache Entry,
// streaming shape). It is only ever written once the source stream
// terminated cleanly.
type StreamingEntry struct {
	Chunks      []CachedChunk `json:"chunks"`
	RawRequest  string        `json:"raw_request"`
	TotalUsage  model.Usage   `json:"total_usage"`
	FinishReason *model.FinishReason `json:"finish_reason,omitempty"`
}

// Store is implemented by cache backends. Read errors are treated as
// misses by callers (§7: "cache read errors are logged and treated as
// misses"); write errors are logged and dropped. Store implementations
// themselves only report transport-level failures; the miss/hit
// distinction is the boolean return.
type Store interface {
	GetNonStreaming(ctx context.Context, key string) (*NonStreamingEntry, bool, error)
	PutNonStreaming(ctx context.Context, key string, entry *NonStreamingEntry) error

	GetStreaming(ctx context.Context, key string) (*StreamingEntry, bool, error)
	PutStreaming(ctx context.Context, key string, entry *StreamingEntry) error
}

// Options controls cache read/write behavior for a single request, mapping
// to the OpenAI-compatible surface's tensorzero::cache_options (§6).
type Options struct {
	Enabled Mode
	MaxAgeS *int64
}

// Mode mirrors tensorzero::cache_options.enabled.
type Mode string

const (
	ModeOff       Mode = "off"
	ModeOn        Mode = "on"
	ModeReadOnly  Mode = "read_only"
	ModeWriteOnly Mode = "write_only"
)

// CanRead reports whether Options permits a cache lookup.
func (o Options) CanRead() bool { return o.Enabled == ModeOn || o.Enabled == ModeReadOnly }

// CanWrite reports whether Options permits a cache write.
func (o Options) CanWrite() bool { return o.Enabled == ModeOn || o.Enabled == ModeWriteOnly }

// Get performs a guarded non-streaming lookup: a nil store, disabled reads,
// or a backend error all resolve to a miss, with backend errors logged
// rather than surfaced (§7).
func Get(ctx context.Context, store Store, opts Options, key string, logger *zap.Logger) (*NonStreamingEntry, bool) {
	if store == nil || !opts.CanRead() {
		return nil, false
	}
	entry, ok, err := store.GetNonStreaming(ctx, key)
	if err != nil {
		if logger != nil {
			logger.Warn("cache read failed", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}
	if ok && opts.MaxAgeS != nil && !entry.CreatedAt.IsZero() {
		if time.Since(entry.CreatedAt) > time.Duration(*opts.MaxAgeS)*time.Second {
			return nil, false
		}
	}
	return entry, ok
}

// Put performs a guarded non-streaming write, intended to be called as a
// fire-and-forget background task (§5's "writes are fire-and-forget
// background tasks whose errors are logged, not surfaced").
func Put(ctx context.Context, store Store, opts Options, key string, entry *NonStreamingEntry, logger *zap.Logger) {
	if store == nil || !opts.CanWrite() {
		return
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	if err := store.PutNonStreaming(ctx, key, entry); err != nil && logger != nil {
		logger.Warn("cache write failed", zap.String("key", key), zap.Error(err))
	}
}

// GetStreaming performs a guarded streaming lookup, same semantics as Get.
func GetStreaming(ctx context.Context, store Store, opts Options, key string, logger *zap.Logger) (*StreamingEntry, bool) {
	if store == nil || !opts.CanRead() {
		return nil, false
	}
	entry, ok, err := store.GetStreaming(ctx, key)
	if err != nil {
		if logger != nil {
			logger.Warn("cache read failed", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}
	return entry, ok
}

// PutStreaming performs a guarded streaming write, same semantics as Put.
func PutStreaming(ctx context.Context, store Store, opts Options, key string, entry *StreamingEntry, logger *zap.Logger) {
	if store == nil || !opts.CanWrite() {
		return
	}
	if err := store.PutStreaming(ctx, key, entry); err != nil && logger != nil {
		logger.Warn("cache write failed", zap.String("key", key), zap.Error(err))
	}
}
