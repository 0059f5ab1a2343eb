// Package chunker implements content-defined chunking: splitting a
// byte stream into variable-size chunks at boundaries chosen by a
// rolling hash, so that local edits shift only the chunks touching the
// edit rather than every chunk downstream of it.
package chunker

import (
	"fmt"
	"io"
	"math/bits"

	"github.com/rednimgames/rose-updater/chunk"
)

// Params tunes the chunker. The same Params must be used to chunk the
// source at publish time and to chunk a candidate file at reuse time,
// or boundaries (and therefore hashes) will not line up.
type Params struct {
	// Window is the number of trailing bytes that influence the
	// rolling hash at each position.
	Window uint32
	// Min is the minimum chunk size; no boundary is considered before
	// this many bytes have accumulated in the current chunk.
	Min uint32
	// Avg is the target average chunk size. The boundary mask is
	// derived from this value.
	Avg uint32
	// Max is the maximum chunk size; a boundary is forced here
	// regardless of hash state.
	Max uint32
}

// Validate checks that the parameters are usable.
func (p Params) Validate() error {
	switch {
	case p.Min == 0:
		return fmt.Errorf("chunker: min must be > 0")
	case p.Avg < p.Min:
		return fmt.Errorf("chunker: avg (%d) must be >= min (%d)", p.Avg, p.Min)
	case p.Max < p.Avg:
		return fmt.Errorf("chunker: max (%d) must be >= avg (%d)", p.Max, p.Avg)
	case p.Window > p.Min:
		return fmt.Errorf("chunker: window (%d) must be <= min (%d)", p.Window, p.Min)
	}
	return nil
}

// DefaultParams are reasonable defaults for game asset trees: a 64
// byte rolling window, 16KiB minimum, 64KiB average, 256KiB maximum.
var DefaultParams = Params{
	Window: 64,
	Min:    16 * 1024,
	Avg:    64 * 1024,
	Max:    256 * 1024,
}

// fastPathMultiple bounds the whole-file fast path: an input whose
// entire length is at most Min*fastPathMultiple is emitted as one
// chunk at EOF without ever running the rolling hash.
const fastPathMultiple = 2

// boundaryMask derives a GearHash boundary condition from the desired
// average chunk size: the probability of a boundary at any byte is
// 1/2^bits, so the top bits = floor(log2(avg)) bits of the mask are set
// and a boundary is declared where the hash has all of them clear,
// matching the high-bit mask convention of the reference GearHash
// chunkers.
func boundaryMask(avg uint32) uint64 {
	bitsWanted := bits.Len32(avg) - 1
	if bitsWanted == 0 {
		bitsWanted = 1
	}
	if bitsWanted > 63 {
		bitsWanted = 63
	}
	return ^uint64(0) << (64 - uint(bitsWanted))
}

// Chunk is one content-defined boundary result: the chunk's absolute
// byte offset in the input, its raw bytes, and its chunk-domain hash.
type Chunk struct {
	Offset uint64
	Data   []byte
	Hash   chunk.Hash
}

// Chunker splits a stream into content-defined chunks. Peak memory is
// O(Max), independent of input length: Chunker buffers at most one
// Max-sized window of unconsumed bytes at a time.
type Chunker struct {
	r      io.Reader
	params Params
	mask   uint64
	skip   int

	buf    []byte
	offset uint64
	eof    bool
}

// New returns a Chunker reading from r with the given parameters.
func New(r io.Reader, params Params) (*Chunker, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	skip := int(params.Min) - int(params.Window) - 1
	if skip < 0 {
		skip = 0
	}
	return &Chunker{
		r:      r,
		params: params,
		mask:   boundaryMask(params.Avg),
		skip:   skip,
		buf:    make([]byte, 0, params.Max),
	}, nil
}

// fill tops up c.buf to Max bytes (or until the reader is exhausted).
func (c *Chunker) fill() error {
	if c.eof {
		return nil
	}
	for len(c.buf) < int(c.params.Max) {
		free := c.buf[len(c.buf):cap(c.buf)]
		if len(free) == 0 {
			break
		}
		n, err := c.r.Read(free)
		c.buf = c.buf[:len(c.buf)+n]
		if err != nil {
			if err == io.EOF {
				c.eof = true
				return nil
			}
			return err
		}
		if n == 0 {
			// Read returned nothing without error or EOF; treat as
			// exhausted rather than spin.
			c.eof = true
			return nil
		}
	}
	return nil
}

// findBoundary returns the length of the next chunk within data,
// which may be shorter than Max only if data itself is shorter (the
// caller is at EOF) or a GearHash boundary was found.
func (c *Chunker) findBoundary(data []byte) int {
	length := len(data)
	max := int(c.params.Max)
	if length < max {
		// Either we're at EOF with a short final run, or there simply
		// isn't enough buffered data to force a Max-sized chunk; both
		// cases are only reachable when the reader is exhausted,
		// since fill() always tops up to Max otherwise.
		return length
	}

	var hash uint64
	min := int(c.params.Min)
	position := c.skip
	if position > max {
		position = max
	}
	for position < max {
		hash = (hash << 1) + gearTable[data[position]]
		position++
		if position >= min && (hash&c.mask) == 0 {
			return position
		}
	}
	return max
}

// Next returns the next chunk, or io.EOF when the input is exhausted.
func (c *Chunker) Next() (*Chunk, error) {
	if err := c.fill(); err != nil {
		return nil, err
	}
	if len(c.buf) == 0 {
		return nil, io.EOF
	}

	var cut int
	if c.offset == 0 && c.eof && len(c.buf) <= int(c.params.Min)*fastPathMultiple {
		// Whole-file fast path: a small input is entirely buffered by
		// the first fill(), so it is emitted as a single chunk without
		// ever touching the rolling hash.
		cut = len(c.buf)
	} else {
		cut = c.findBoundary(c.buf)
		if cut <= 0 {
			cut = len(c.buf)
		}
	}

	data := make([]byte, cut)
	copy(data, c.buf[:cut])

	chk := &Chunk{
		Offset: c.offset,
		Data:   data,
		Hash:   chunk.HashChunk(data),
	}

	remaining := copy(c.buf, c.buf[cut:])
	c.buf = c.buf[:remaining]
	c.offset += uint64(cut)

	return chk, nil
}

// ChunkAll chunks the entire input and returns every chunk. Prefer
// iterating with Next for large inputs, to avoid holding every chunk's
// bytes in memory at once.
func ChunkAll(r io.Reader, params Params) ([]*Chunk, error) {
	c, err := New(r, params)
	if err != nil {
		return nil, err
	}
	var chunks []*Chunk
	for {
		chk, err := c.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, chk)
	}
	return chunks, nil
}
