// Package kv defines a small content-addressed key/value interface,
// with implementations backing the persistent chunk cache.
package kv

import (
	"context"
	"fmt"
)

// KV is a minimal content-addressed store: Put is idempotent, and Get
// returns NotFoundError for an absent key.
type KV interface {
	Get(ctx context.Context, key []byte) ([]byte, error)
	Put(ctx context.Context, key, value []byte) error
}

// NotFoundError is returned by a KV's Get when the key is absent.
type NotFoundError struct {
	Key []byte
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("kv: not found: %x", e.Key)
}
