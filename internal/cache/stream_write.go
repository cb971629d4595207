package cache

import (
	"context"

	"go.uber.org/zap"

	"github.com/inferly/gatewaycore/internal/model"
	"github.com/inferly/gatewaycore/internal/provider"
)

// WriteThroughStream wraps a provider.Stream so that, on clean termination
// (provider.ErrStreamDone with no prior error), the buffered chunks are
// written to the cache exactly once; on any error, buffering stops and no
// cache entry is written (§3's "streaming entries are only written when the
// source stream terminates without error" invariant; §8 property 1;
// scenario C). Consumers may stop calling Next at any point — including
// mid-stream cancellation — without ever triggering the write, since the
// write only happens from within Next itself once ErrStreamDone is
// observed, per §9's "must remain a lazy sequence" requirement.
type WriteThroughStream struct {
	inner      provider.Stream
	store      Store
	opts       Options
	key        string
	rawRequest string
	logger     *zap.Logger

	chunks  []CachedChunk
	usage   model.Usage
	reason  *model.FinishReason
	errored bool
	written bool
}

// NewWriteThroughStream builds a WriteThroughStream. If opts disallows
// writes or store is nil, Next simply forwards to inner with no buffering
// overhead beyond a nil check.
func NewWriteThroughStream(inner provider.Stream, store Store, opts Options, key, rawRequest string, logger *zap.Logger) *WriteThroughStream {
	return &WriteThroughStream{inner: inner, store: store, opts: opts, key: key, rawRequest: rawRequest, logger: logger}
}

func (w *WriteThroughStream) Next() (*model.ProviderInferenceResponseChunk, error) {
	chunk, err := w.inner.Next()
	if err != nil {
		if err == provider.ErrStreamDone {
			w.commit()
		} else {
			w.errored = true
		}
		return nil, err
	}
	if !w.errored && w.store != nil && w.opts.CanWrite() {
		cached := CachedChunk{Content: chunk.Content, Usage: chunk.Usage, RawResponse: chunk.RawResponse, FinishReason: chunk.FinishReason}
		w.chunks = append(w.chunks, cached)
		if chunk.Usage != nil {
			w.usage = *chunk.Usage
		}
		if chunk.FinishReason != nil {
			w.reason = chunk.FinishReason
		}
	}
	return chunk, nil
}

func (w *WriteThroughStream) Close() error { return w.inner.Close() }

func (w *WriteThroughStream) commit() {
	if w.errored || w.written || w.store == nil || !w.opts.CanWrite() {
		return
	}
	w.written = true
	entry := &StreamingEntry{
		Chunks:       w.chunks,
		RawRequest:   w.rawRequest,
		TotalUsage:   w.usage,
		FinishReason: w.reason,
	}
	PutStreaming(context.Background(), w.store, w.opts, w.key, entry, w.logger)
}

// ReplayStream replays a cached StreamingEntry as a provider.Stream, per
// §4.3's cache-hit replay rule: usage is attached only to the final chunk,
// finish_reason only to the final chunk, and latency is zero on every
// replayed chunk (the caller is responsible for resetting "created" to
// now, which lives above this package at the OpenAI-compat response
// layer).
type ReplayStream struct {
	entry *StreamingEntry
	idx   int
}

// NewReplayStream builds a provider.Stream that replays a cached entry.
func NewReplayStream(entry *StreamingEntry) *ReplayStream {
	return &ReplayStream{entry: entry}
}

func (r *ReplayStream) Next() (*model.ProviderInferenceResponseChunk, error) {
	if r.idx >= len(r.entry.Chunks) {
		return nil, provider.ErrStreamDone
	}
	c := r.entry.Chunks[r.idx]
	isLast := r.idx == len(r.entry.Chunks)-1
	r.idx++
	chunk := &model.ProviderInferenceResponseChunk{
		Content:     c.Content,
		RawResponse: c.RawResponse,
	}
	if isLast {
		// The entry-level aggregates are authoritative: the provider may have
		// reported usage on a mid-stream chunk, in which case the final cached
		// chunk carries none of its own.
		if r.entry.TotalUsage != (model.Usage{}) {
			u := r.entry.TotalUsage
			chunk.Usage = &u
		} else {
			chunk.Usage = c.Usage
		}
		if r.entry.FinishReason != nil {
			chunk.FinishReason = r.entry.FinishReason
		} else {
			chunk.FinishReason = c.FinishReason
		}
	}
	return chunk, nil
}

func (r *ReplayStream) Close() error { return nil }

var _ provider.Stream = (*WriteThroughStream)(nil)
var _ provider.Stream = (*ReplayStream)(nil)
