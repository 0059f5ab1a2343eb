package archive_test

import (
	"bytes"
	"context"
	"io"
	"math/rand"
	"testing"

	"github.com/klauspost/compress/zstd"

	"github.com/rednimgames/rose-updater/archive"
	"github.com/rednimgames/rose-updater/chunk"
	"github.com/rednimgames/rose-updater/chunker"
)

// memSource serves ranges directly out of an in-memory byte slice,
// standing in for a local file or an HTTP origin in tests.
type memSource struct {
	data []byte
}

func (m *memSource) ReadRange(_ context.Context, offset int64, length int64) ([]byte, error) {
	if offset < 0 || offset+length > int64(len(m.data)) {
		return nil, io.ErrUnexpectedEOF
	}
	out := make([]byte, length)
	copy(out, m.data[offset:offset+length])
	return out, nil
}

func testParams() chunker.Params {
	return chunker.Params{Window: 16, Min: 128, Avg: 512, Max: 2048}
}

func buildArchive(t *testing.T, data []byte) ([]byte, chunk.Hash) {
	var buf bytes.Buffer
	result, err := archive.WriteFile(&buf, bytes.NewReader(data), testParams(), zstd.SpeedDefault)
	if err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return buf.Bytes(), result.SourceHash
}

func reconstruct(t *testing.T, r *archive.Reader) []byte {
	var out bytes.Buffer
	ctx := context.Background()
	for _, idx := range r.ReconstructionOrder() {
		entry := r.Dict[idx]
		data, err := r.ReadChunk(ctx, entry.Hash)
		if err != nil {
			t.Fatalf("ReadChunk: %v", err)
		}
		out.Write(data)
	}
	return out.Bytes()
}

func TestRoundTrip(t *testing.T) {
	rnd := rand.New(rand.NewSource(1))
	data := make([]byte, 64*1024)
	rnd.Read(data)

	raw, sourceHash := buildArchive(t, data)

	r, err := archive.Open(context.Background(), &memSource{data: raw})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer r.Close()

	if r.Header.SourceHash != sourceHash {
		t.Fatalf("header source hash mismatch")
	}
	if r.Header.SourceSize != uint64(len(data)) {
		t.Fatalf("source size: got %d, want %d", r.Header.SourceSize, len(data))
	}

	got := reconstruct(t, r)
	if !bytes.Equal(got, data) {
		t.Fatalf("reconstructed bytes differ from input")
	}
}

func TestDeduplicatesRepeatedChunks(t *testing.T) {
	block := bytes.Repeat([]byte{0xAB}, 200)
	data := append(append([]byte{}, block...), block...)

	raw, _ := buildArchive(t, data)
	r, err := archive.Open(context.Background(), &memSource{data: raw})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer r.Close()

	if len(r.ReconstructionOrder()) < 2 {
		t.Skip("input chunked into a single chunk, nothing to dedupe in this run")
	}
	seen := map[uint32]bool{}
	dupFound := false
	for _, idx := range r.ReconstructionOrder() {
		if seen[idx] {
			dupFound = true
		}
		seen[idx] = true
	}
	if !dupFound {
		t.Skip("chunk boundaries did not happen to repeat for this input")
	}
	if len(r.UniqueChunks()) >= len(r.ReconstructionOrder()) {
		t.Fatalf("expected fewer unique chunks than reconstruction entries when duplicates exist")
	}
}

func TestReadChunkDetectsCorruption(t *testing.T) {
	rnd := rand.New(rand.NewSource(2))
	data := make([]byte, 16*1024)
	rnd.Read(data)

	raw, _ := buildArchive(t, data)

	// Corrupt a byte inside the payload region (well past the header
	// and dictionary) to simulate a lying or corrupt origin.
	corrupt := append([]byte{}, raw...)
	corrupt[len(corrupt)-1] ^= 0xFF

	r, err := archive.Open(context.Background(), &memSource{data: corrupt})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer r.Close()

	_, err = reconstructChecked(r)
	if err == nil {
		t.Fatalf("expected a hash mismatch or decode error from corrupted payload")
	}
}

func reconstructChecked(r *archive.Reader) ([]byte, error) {
	var out bytes.Buffer
	ctx := context.Background()
	for _, idx := range r.ReconstructionOrder() {
		entry := r.Dict[idx]
		data, err := r.ReadChunk(ctx, entry.Hash)
		if err != nil {
			return nil, err
		}
		out.Write(data)
	}
	return out.Bytes(), nil
}
