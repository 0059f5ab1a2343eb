package sourceindex_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/rednimgames/rose-updater/chunker"
	"github.com/rednimgames/rose-updater/sourceindex"
)

func testParams() chunker.Params {
	return chunker.Params{Window: 16, Min: 128, Avg: 512, Max: 2048}
}

func writeTemp(t *testing.T, dir, name string, data []byte) string {
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestBuildAndLookup(t *testing.T) {
	dir := t.TempDir()
	data := make([]byte, 4096)
	for i := range data {
		data[i] = byte(i)
	}
	path := writeTemp(t, dir, "old.bin", data)

	idx, err := sourceindex.Build([]string{path}, testParams())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if idx.Len() == 0 {
		t.Fatalf("expected at least one indexed chunk")
	}

	chunks, err := chunker.ChunkAll(bytes.NewReader(data), testParams())
	if err != nil {
		t.Fatalf("ChunkAll: %v", err)
	}
	for _, ch := range chunks {
		loc, ok := idx.Lookup(ch.Hash)
		if !ok {
			t.Fatalf("expected chunk %s to be indexed", ch.Hash)
		}
		got, ok, err := sourceindex.ReadAt(loc, ch.Hash)
		if err != nil {
			t.Fatalf("ReadAt: %v", err)
		}
		if !ok {
			t.Fatalf("ReadAt reported a hash mismatch for %s", ch.Hash)
		}
		if string(got) != string(ch.Data) {
			t.Fatalf("ReadAt returned different bytes than expected")
		}
	}
}

func TestFirstCandidateWinsOnCollision(t *testing.T) {
	dir := t.TempDir()
	data := []byte("the quick brown fox jumps over the lazy dog, repeatedly, to build up enough bytes for a chunk")
	pathA := writeTemp(t, dir, "a.bin", data)
	pathB := writeTemp(t, dir, "b.bin", data)

	idx, err := sourceindex.Build([]string{pathB, pathA}, testParams())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	chunks, err := chunker.ChunkAll(bytes.NewReader(data), testParams())
	if err != nil {
		t.Fatalf("ChunkAll: %v", err)
	}
	for _, ch := range chunks {
		loc, ok := idx.Lookup(ch.Hash)
		if !ok {
			t.Fatalf("expected chunk to be indexed")
		}
		if loc.Path != pathA {
			t.Fatalf("expected path-ascending candidate %s to win, got %s", pathA, loc.Path)
		}
	}
}

func TestMissingCandidateIsSkippedNotFatal(t *testing.T) {
	dir := t.TempDir()
	missing := filepath.Join(dir, "does-not-exist.bin")

	idx, err := sourceindex.Build([]string{missing}, testParams())
	if err != nil {
		t.Fatalf("Build should not fail on a missing candidate: %v", err)
	}
	if idx.Len() != 0 {
		t.Fatalf("expected an empty index")
	}
}
