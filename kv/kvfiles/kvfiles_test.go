package kvfiles_test

import (
	"context"
	"testing"

	"github.com/rednimgames/rose-updater/kv"
	"github.com/rednimgames/rose-updater/kv/kvfiles"
)

func TestPutGetRoundTrip(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	store, err := kvfiles.Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	key := []byte("some-chunk-hash")
	value := []byte("chunk bytes go here")
	if err := store.Put(ctx, key, value); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, err := store.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != string(value) {
		t.Fatalf("got %q, want %q", got, value)
	}
}

func TestGetMissingReturnsNotFound(t *testing.T) {
	dir := t.TempDir()
	store, err := kvfiles.Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	_, err = store.Get(context.Background(), []byte("missing"))
	if _, ok := err.(kv.NotFoundError); !ok {
		t.Fatalf("expected kv.NotFoundError, got %v", err)
	}
}

func TestPutIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	store, err := kvfiles.Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	ctx := context.Background()
	key := []byte("k")
	if err := store.Put(ctx, key, []byte("v")); err != nil {
		t.Fatalf("first Put: %v", err)
	}
	if err := store.Put(ctx, key, []byte("v")); err != nil {
		t.Fatalf("second Put: %v", err)
	}
}
