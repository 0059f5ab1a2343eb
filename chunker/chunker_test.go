package chunker_test

import (
	"bytes"
	"flag"
	"io"
	"math/rand"
	"testing"
	"testing/quick"

	entropy "github.com/tv42/seed"

	"github.com/rednimgames/rose-updater/chunker"
)

var seed uint64

func init() {
	flag.Uint64Var(&seed, "seed", 0, "seed to initialize random number generator")
}

func testParams() chunker.Params {
	return chunker.Params{
		Window: 16,
		Min:    256,
		Avg:    1024,
		Max:    4096,
	}
}

func concat(chunks []*chunker.Chunk) []byte {
	var buf bytes.Buffer
	for _, c := range chunks {
		buf.Write(c.Data)
	}
	return buf.Bytes()
}

func seededRand(t *testing.T) *rand.Rand {
	s := seed
	if s == 0 {
		s = uint64(entropy.Seed())
	}
	t.Logf("seed is %d", s)
	return rand.New(rand.NewSource(int64(s)))
}

func TestRoundTripConcatenation(t *testing.T) {
	src := seededRand(t)
	data := make([]byte, 200*1024)
	if _, err := io.ReadFull(iorandReader{src}, data); err != nil {
		t.Fatalf("generating input: %v", err)
	}

	chunks, err := chunker.ChunkAll(bytes.NewReader(data), testParams())
	if err != nil {
		t.Fatalf("ChunkAll: %v", err)
	}
	got := concat(chunks)
	if !bytes.Equal(got, data) {
		t.Fatalf("concatenated chunks do not reproduce input: got %d bytes, want %d", len(got), len(data))
	}
}

func TestDeterministicBoundaries(t *testing.T) {
	f := func(data []byte) bool {
		params := testParams()
		a, err := chunker.ChunkAll(bytes.NewReader(data), params)
		if err != nil {
			t.Fatalf("ChunkAll (a): %v", err)
		}
		b, err := chunker.ChunkAll(bytes.NewReader(data), params)
		if err != nil {
			t.Fatalf("ChunkAll (b): %v", err)
		}
		if len(a) != len(b) {
			return false
		}
		for i := range a {
			if a[i].Offset != b[i].Offset {
				return false
			}
			if a[i].Hash != b[i].Hash {
				return false
			}
			if !bytes.Equal(a[i].Data, b[i].Data) {
				return false
			}
		}
		return true
	}
	cfg := &quick.Config{Rand: seededRand(t)}
	if err := quick.Check(f, cfg); err != nil {
		t.Error(err)
	}
}

// iorandReader adapts a *rand.Rand into an io.Reader of pseudo-random
// bytes, for filling deterministic test fixtures.
type iorandReader struct {
	*rand.Rand
}

func (r iorandReader) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = byte(r.Intn(256))
	}
	return len(p), nil
}

func TestChunkSizeBounds(t *testing.T) {
	src := seededRand(t)
	data := make([]byte, 500*1024)
	if _, err := io.ReadFull(iorandReader{src}, data); err != nil {
		t.Fatalf("generating input: %v", err)
	}

	params := testParams()
	chunks, err := chunker.ChunkAll(bytes.NewReader(data), params)
	if err != nil {
		t.Fatalf("ChunkAll: %v", err)
	}
	for i, c := range chunks {
		last := i == len(chunks)-1
		if uint32(len(c.Data)) > params.Max {
			t.Errorf("chunk %d exceeds Max: %d > %d", i, len(c.Data), params.Max)
		}
		if !last && uint32(len(c.Data)) < params.Min {
			t.Errorf("non-final chunk %d is below Min: %d < %d", i, len(c.Data), params.Min)
		}
	}
}

func TestSmallInputTakesWholeFileFastPath(t *testing.T) {
	params := testParams()
	data := make([]byte, params.Min) // at the fast-path threshold's lower edge
	for i := range data {
		data[i] = byte(i)
	}

	chunks, err := chunker.ChunkAll(bytes.NewReader(data), params)
	if err != nil {
		t.Fatalf("ChunkAll: %v", err)
	}
	if len(chunks) != 1 {
		t.Fatalf("expected a single whole-file chunk, got %d", len(chunks))
	}
	if !bytes.Equal(chunks[0].Data, data) {
		t.Fatalf("fast-path chunk does not reproduce input")
	}
	if chunks[0].Offset != 0 {
		t.Fatalf("fast-path chunk offset = %d, want 0", chunks[0].Offset)
	}
}

func TestEmptyInput(t *testing.T) {
	chunks, err := chunker.ChunkAll(bytes.NewReader(nil), testParams())
	if err != nil {
		t.Fatalf("ChunkAll: %v", err)
	}
	if len(chunks) != 0 {
		t.Fatalf("expected no chunks for empty input, got %d", len(chunks))
	}
}
