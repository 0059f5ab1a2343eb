// Package kvmock implements an in-memory kv.KV for tests.
package kvmock

import (
	"context"

	"github.com/rednimgames/rose-updater/kv"
)

type InMemory struct {
	Data map[string]string
}

var _ kv.KV = (*InMemory)(nil)

func (m *InMemory) Get(_ context.Context, key []byte) ([]byte, error) {
	s, found := m.Data[string(key)]
	if !found {
		return nil, kv.NotFoundError{Key: key}
	}
	return []byte(s), nil
}

func (m *InMemory) Put(_ context.Context, key, value []byte) error {
	if m.Data == nil {
		m.Data = make(map[string]string)
	}
	m.Data[string(key)] = string(value)
	return nil
}
