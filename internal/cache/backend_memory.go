package cache

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// InMemoryStore is a single-process Store backed by
// github.com/patrickmn/go-cache, used for tests and single-node
// deployments that have no Redis available (DatanoiseTV-aigateway's go.mod
// carries the same dependency for this purpose).
type InMemoryStore struct {
	nonStreaming *gocache.Cache
	streaming    *gocache.Cache
}

// NewInMemoryStore builds an InMemoryStore with the given TTL and cleanup
// interval. A ttl of zero means entries never expire.
func NewInMemoryStore(ttl, cleanupInterval time.Duration) *InMemoryStore {
	return &InMemoryStore{
		nonStreaming: gocache.New(ttl, cleanupInterval),
		streaming:    gocache.New(ttl, cleanupInterval),
	}
}

func (s *InMemoryStore) GetNonStreaming(_ context.Context, key string) (*NonStreamingEntry, bool, error) {
	v, ok := s.nonStreaming.Get(key)
	if !ok {
		return nil, false, nil
	}
	entry, ok := v.(*NonStreamingEntry)
	if !ok {
		return nil, false, nil
	}
	return entry, true, nil
}

func (s *InMemoryStore) PutNonStreaming(_ context.Context, key string, entry *NonStreamingEntry) error {
	s.nonStreaming.SetDefault(key, entry)
	return nil
}

func (s *InMemoryStore) GetStreaming(_ context.Context, key string) (*StreamingEntry, bool, error) {
	v, ok := s.streaming.Get(key)
	if !ok {
		return nil, false, nil
	}
	entry, ok := v.(*StreamingEntry)
	if !ok {
		return nil, false, nil
	}
	return entry, true, nil
}

func (s *InMemoryStore) PutStreaming(_ context.Context, key string, entry *StreamingEntry) error {
	s.streaming.SetDefault(key, entry)
	return nil
}

var _ Store = (*InMemoryStore)(nil)
