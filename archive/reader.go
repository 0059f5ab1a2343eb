package archive

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"

	"github.com/rednimgames/rose-updater/chunk"
	"github.com/rednimgames/rose-updater/chunker"
)

// Source is anything a Reader can pull archive bytes from at an
// arbitrary offset — a local file opened with os.Open, or a remote
// origin accessed over ranged HTTP.
type Source interface {
	ReadRange(ctx context.Context, offset int64, length int64) ([]byte, error)
}

// Reader parses an archive's header and dictionary and serves
// individual chunks on demand.
type Reader struct {
	Header Header
	Dict   []DictEntry
	Recon  []uint32

	src        Source
	dataOffset int64
	byHash     map[chunk.Hash]int
	dec        *zstd.Decoder
}

// Open reads and validates the header, dictionary, and reconstruction
// list from src. The payload itself is not read until ReadChunk is
// called.
func Open(ctx context.Context, src Source) (*Reader, error) {
	headerBytes, err := src.ReadRange(ctx, 0, int64(HeaderSize))
	if err != nil {
		return nil, fmt.Errorf("archive: reading header: %w", err)
	}
	h, err := parseHeader(headerBytes)
	if err != nil {
		return nil, err
	}

	metaLen := int64(h.DictLen)*int64(DictEntrySize) + int64(h.ReconLen)*4
	metaBytes, err := src.ReadRange(ctx, int64(HeaderSize), metaLen)
	if err != nil {
		return nil, fmt.Errorf("archive: reading dictionary: %w", err)
	}

	dict, recon, err := parseDictAndRecon(metaBytes, h.DictLen, h.ReconLen)
	if err != nil {
		return nil, err
	}

	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("archive: creating zstd decoder: %w", err)
	}

	byHash := make(map[chunk.Hash]int, len(dict))
	for i, e := range dict {
		byHash[e.Hash] = i
	}

	return &Reader{
		Header:     h,
		Dict:       dict,
		Recon:      recon,
		src:        src,
		dataOffset: int64(HeaderSize) + metaLen,
		byHash:     byHash,
		dec:        dec,
	}, nil
}

// Close releases resources held by the reader.
func (r *Reader) Close() {
	r.dec.Close()
}

func parseHeader(b []byte) (Header, error) {
	if len(b) != HeaderSize {
		return Header{}, fmt.Errorf("archive: short header: got %d bytes, want %d", len(b), HeaderSize)
	}
	if !bytes.Equal(b[0:4], Magic[:]) {
		return Header{}, ErrBadMagic
	}
	br := bytes.NewReader(b[4:])

	var h Header
	if err := binary.Read(br, binary.BigEndian, &h.Version); err != nil {
		return Header{}, fmt.Errorf("archive: reading version: %w", err)
	}
	if h.Version != Version {
		return Header{}, &UnsupportedVersionError{Got: h.Version}
	}

	hashBuf := make([]byte, chunk.Size)
	if _, err := io.ReadFull(br, hashBuf); err != nil {
		return Header{}, fmt.Errorf("archive: reading source hash: %w", err)
	}
	sourceHash, err := chunk.New(hashBuf)
	if err != nil {
		return Header{}, fmt.Errorf("archive: bad source hash: %w", err)
	}
	h.SourceHash = sourceHash

	for _, dst := range []interface{}{
		&h.SourceSize,
		&h.ChunkerParams.Window,
		&h.ChunkerParams.Min,
		&h.ChunkerParams.Avg,
		&h.ChunkerParams.Max,
		&h.Compression,
		&h.CompressionLevel,
		&h.DictLen,
		&h.ReconLen,
	} {
		if err := binary.Read(br, binary.BigEndian, dst); err != nil {
			return Header{}, fmt.Errorf("archive: reading header field: %w", err)
		}
	}

	if h.Compression != CompressionZstd {
		return Header{}, &UnsupportedCompressionError{Got: h.Compression}
	}

	return h, nil
}

func parseDictAndRecon(b []byte, dictLen, reconLen uint32) ([]DictEntry, []uint32, error) {
	want := int64(dictLen)*int64(DictEntrySize) + int64(reconLen)*4
	if int64(len(b)) != want {
		return nil, nil, fmt.Errorf("archive: short dictionary/reconstruction section: got %d bytes, want %d", len(b), want)
	}
	br := bytes.NewReader(b)

	dict := make([]DictEntry, dictLen)
	hashBuf := make([]byte, chunk.Size)
	var lastOffset uint64
	for i := range dict {
		if _, err := io.ReadFull(br, hashBuf); err != nil {
			return nil, nil, fmt.Errorf("archive: reading dict entry %d hash: %w", i, err)
		}
		h, err := chunk.New(hashBuf)
		if err != nil {
			return nil, nil, fmt.Errorf("archive: dict entry %d: %w", i, err)
		}
		dict[i].Hash = h
		for _, dst := range []interface{}{&dict[i].CompressedOffset, &dict[i].CompressedSize, &dict[i].UncompressedSize} {
			if err := binary.Read(br, binary.BigEndian, dst); err != nil {
				return nil, nil, fmt.Errorf("archive: reading dict entry %d: %w", i, err)
			}
		}
		if i > 0 && dict[i].CompressedOffset < lastOffset {
			return nil, nil, fmt.Errorf("archive: dictionary is not sorted by compressed_offset at entry %d", i)
		}
		lastOffset = dict[i].CompressedOffset
	}

	recon := make([]uint32, reconLen)
	for i := range recon {
		if err := binary.Read(br, binary.BigEndian, &recon[i]); err != nil {
			return nil, nil, fmt.Errorf("archive: reading reconstruction index %d: %w", i, err)
		}
		if recon[i] >= dictLen {
			return nil, nil, fmt.Errorf("archive: reconstruction index %d out of range (%d >= %d)", i, recon[i], dictLen)
		}
	}

	return dict, recon, nil
}

// UniqueChunks returns the sorted chunk dictionary.
func (r *Reader) UniqueChunks() []DictEntry {
	return r.Dict
}

// ReconstructionOrder returns the dictionary indices in output order.
func (r *Reader) ReconstructionOrder() []uint32 {
	return r.Recon
}

// DictEntryForHash looks up a chunk's dictionary entry by hash.
func (r *Reader) DictEntryForHash(h chunk.Hash) (DictEntry, bool) {
	idx, ok := r.byHash[h]
	if !ok {
		return DictEntry{}, false
	}
	return r.Dict[idx], true
}

// HashMismatchError is returned by ReadChunk when the origin's bytes do
// not hash to the chunk that was requested — a fatal archive
// corruption condition, never retried.
type HashMismatchError struct {
	Want chunk.Hash
	Got  chunk.Hash
}

func (e *HashMismatchError) Error() string {
	return fmt.Sprintf("archive: chunk hash mismatch: want %s, got %s", e.Want, e.Got)
}

// ReadChunk fetches, decompresses, and verifies a single chunk by
// hash. Exactly one ranged read is issued against the Source.
func (r *Reader) ReadChunk(ctx context.Context, h chunk.Hash) ([]byte, error) {
	entry, ok := r.DictEntryForHash(h)
	if !ok {
		return nil, fmt.Errorf("archive: no such chunk %s", h)
	}
	return r.readDictEntry(ctx, entry)
}

func (r *Reader) readDictEntry(ctx context.Context, entry DictEntry) ([]byte, error) {
	compressed, err := r.src.ReadRange(ctx, r.dataOffset+int64(entry.CompressedOffset), int64(entry.CompressedSize))
	if err != nil {
		return nil, fmt.Errorf("archive: fetching chunk payload: %w", err)
	}
	return r.Decompress(compressed, entry)
}

// Decompress decompresses and verifies chunk bytes already fetched by
// the caller, e.g. out of a larger coalesced range read spanning
// several dictionary entries. It does not touch the Source.
func (r *Reader) Decompress(compressed []byte, entry DictEntry) ([]byte, error) {
	data, err := r.dec.DecodeAll(compressed, make([]byte, 0, entry.UncompressedSize))
	if err != nil {
		return nil, fmt.Errorf("archive: decompressing chunk: %w", err)
	}
	got := chunk.HashChunk(data)
	if got != entry.Hash {
		return nil, &HashMismatchError{Want: entry.Hash, Got: got}
	}
	return data, nil
}

// DataOffset returns the absolute byte offset where the compressed
// chunk payload begins, for callers that want to issue their own
// coalesced range reads directly against Source.
func (r *Reader) DataOffset() int64 {
	return r.dataOffset
}

// Params returns the chunker parameters this archive was built with,
// needed to chunk a local candidate file the same way for reuse
// lookups.
func (r *Reader) Params() chunker.Params {
	return r.Header.ChunkerParams
}
