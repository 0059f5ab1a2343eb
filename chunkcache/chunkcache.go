// Package chunkcache is a persistent, cross-run, cross-file cache of
// chunk bytes keyed by content hash, backed by a kv.KV. It lets the
// reconstructor avoid re-fetching a chunk over the network if any
// previous sync, for any file, already pulled it down.
package chunkcache

import (
	"context"
	"fmt"

	"github.com/rednimgames/rose-updater/chunk"
	"github.com/rednimgames/rose-updater/kv"
)

// Cache stores and retrieves chunk payloads by their content hash.
type Cache struct {
	kv kv.KV
}

// New wraps keyval as a Cache.
func New(keyval kv.KV) *Cache {
	return &Cache{kv: keyval}
}

// Get returns the cached bytes for h, or kv.NotFoundError if absent.
// The returned bytes are verified against h before being handed back,
// since a corrupted cache entry must never be mistaken for a valid
// chunk.
func (c *Cache) Get(ctx context.Context, h chunk.Hash) ([]byte, error) {
	data, err := c.kv.Get(ctx, h.Bytes())
	if err != nil {
		return nil, err
	}
	if got := chunk.HashChunk(data); got != h {
		return nil, fmt.Errorf("chunkcache: cached entry for %s hashes to %s, discarding", h, got)
	}
	return data, nil
}

// Put stores data under its own content hash, returning that hash.
// Storing data that does not hash to h is a caller bug, so Put
// recomputes the hash itself rather than trusting the argument.
func (c *Cache) Put(ctx context.Context, data []byte) (chunk.Hash, error) {
	h := chunk.HashChunk(data)
	if err := c.kv.Put(ctx, h.Bytes(), data); err != nil {
		return chunk.Empty, err
	}
	return h, nil
}

// Has reports whether h is present in the cache without returning its
// bytes.
func (c *Cache) Has(ctx context.Context, h chunk.Hash) bool {
	_, err := c.kv.Get(ctx, h.Bytes())
	return err == nil
}
