// Package kvfiles implements kv.KV as a directory of hardlinked
// files, keyed by the hex encoding of the key. Putting the same
// content twice is free: the second Put just links to the existing
// inode and os.IsExist is treated as success.
package kvfiles

import (
	"context"
	"encoding/hex"
	"os"
	"path/filepath"

	"github.com/rednimgames/rose-updater/kv"
)

type KVFiles struct {
	dir string
}

var _ kv.KV = (*KVFiles)(nil)

// Open returns a KVFiles backed by dir, which must already exist.
func Open(dir string) (*KVFiles, error) {
	return &KVFiles{dir: dir}, nil
}

// Create makes the backing directory if it does not already exist.
func Create(dir string) error {
	err := os.MkdirAll(dir, 0700)
	if err != nil && !os.IsExist(err) {
		return err
	}
	return nil
}

func (k *KVFiles) pathFor(key []byte) string {
	return filepath.Join(k.dir, hex.EncodeToString(key)+".data")
}

func (k *KVFiles) Put(_ context.Context, key, value []byte) error {
	tmp, err := os.CreateTemp(k.dir, "put-")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(value); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Link(tmpName, k.pathFor(key)); err != nil {
		if !os.IsExist(err) {
			return err
		}
	}
	return nil
}

func (k *KVFiles) Get(_ context.Context, key []byte) ([]byte, error) {
	data, err := os.ReadFile(k.pathFor(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, kv.NotFoundError{Key: key}
		}
		return nil, err
	}
	return data, nil
}
