package archive

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/zstd"

	"github.com/rednimgames/rose-updater/chunk"
	"github.com/rednimgames/rose-updater/chunker"
)

// WriteResult summarizes a completed archive write.
type WriteResult struct {
	SourceHash     chunk.Hash
	SourceSize     uint64
	UniqueChunks   int
	ReconstructLen int
	CompressedLen  int64
}

// WriteFile chunks r with params, compresses and deduplicates the
// chunks, and writes a complete archive to w. The archive's chunk
// dictionary is sorted by compressed_offset because entries are
// assigned offsets in the order unique chunks are first seen, which is
// monotonically increasing.
//
// Because the header needs the dictionary and reconstruction-list
// lengths before any payload byte is written, compressed chunks are
// staged in a scratch file and copied into w only once the full
// dictionary is known.
func WriteFile(w io.Writer, r io.Reader, params chunker.Params, level zstd.EncoderLevel) (*WriteResult, error) {
	scratch, err := os.CreateTemp("", "rose-archive-payload-")
	if err != nil {
		return nil, fmt.Errorf("archive: creating scratch payload file: %w", err)
	}
	defer func() {
		_ = scratch.Close()
		_ = os.Remove(scratch.Name())
	}()

	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(level))
	if err != nil {
		return nil, fmt.Errorf("archive: creating zstd encoder: %w", err)
	}
	defer enc.Close()

	c, err := chunker.New(r, params)
	if err != nil {
		return nil, err
	}

	dictIndex := make(map[chunk.Hash]int)
	var dict []DictEntry
	var recon []uint32
	var payloadOffset uint64
	var sourceSize uint64
	fileHash := chunk.NewFileHasher()

	for {
		ch, err := c.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("archive: chunking input: %w", err)
		}

		sourceSize += uint64(len(ch.Data))
		_, _ = fileHash.Write(ch.Data)

		idx, seen := dictIndex[ch.Hash]
		if !seen {
			compressed := enc.EncodeAll(ch.Data, nil)
			if _, err := scratch.Write(compressed); err != nil {
				return nil, fmt.Errorf("archive: writing scratch payload: %w", err)
			}
			idx = len(dict)
			dict = append(dict, DictEntry{
				Hash:             ch.Hash,
				CompressedOffset: payloadOffset,
				CompressedSize:   uint32(len(compressed)),
				UncompressedSize: uint32(len(ch.Data)),
			})
			dictIndex[ch.Hash] = idx
			payloadOffset += uint64(len(compressed))
		}
		recon = append(recon, uint32(idx))
	}

	header := Header{
		Version:          Version,
		SourceHash:       fileHash.Sum(),
		SourceSize:       sourceSize,
		ChunkerParams:    params,
		Compression:      CompressionZstd,
		CompressionLevel: uint16(level),
		DictLen:          uint32(len(dict)),
		ReconLen:         uint32(len(recon)),
	}

	if err := writeHeader(w, header); err != nil {
		return nil, err
	}
	for _, e := range dict {
		if err := writeDictEntry(w, e); err != nil {
			return nil, err
		}
	}
	for _, idx := range recon {
		if err := binary.Write(w, binary.BigEndian, idx); err != nil {
			return nil, fmt.Errorf("archive: writing reconstruction index: %w", err)
		}
	}

	if _, err := scratch.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("archive: rewinding scratch payload: %w", err)
	}
	n, err := io.Copy(w, scratch)
	if err != nil {
		return nil, fmt.Errorf("archive: copying payload: %w", err)
	}

	return &WriteResult{
		SourceHash:     header.SourceHash,
		SourceSize:     header.SourceSize,
		UniqueChunks:   len(dict),
		ReconstructLen: len(recon),
		CompressedLen:  n,
	}, nil
}

func writeHeader(w io.Writer, h Header) error {
	if _, err := w.Write(Magic[:]); err != nil {
		return fmt.Errorf("archive: writing magic: %w", err)
	}
	fields := []interface{}{
		h.Version,
		h.SourceHash.Bytes(),
		h.SourceSize,
		h.ChunkerParams.Window,
		h.ChunkerParams.Min,
		h.ChunkerParams.Avg,
		h.ChunkerParams.Max,
		h.Compression,
		h.CompressionLevel,
		h.DictLen,
		h.ReconLen,
	}
	for _, f := range fields {
		if b, ok := f.([]byte); ok {
			if _, err := w.Write(b); err != nil {
				return fmt.Errorf("archive: writing header field: %w", err)
			}
			continue
		}
		if err := binary.Write(w, binary.BigEndian, f); err != nil {
			return fmt.Errorf("archive: writing header field: %w", err)
		}
	}
	return nil
}

func writeDictEntry(w io.Writer, e DictEntry) error {
	if _, err := w.Write(e.Hash.Bytes()); err != nil {
		return fmt.Errorf("archive: writing dict entry hash: %w", err)
	}
	fields := []interface{}{e.CompressedOffset, e.CompressedSize, e.UncompressedSize}
	for _, f := range fields {
		if err := binary.Write(w, binary.BigEndian, f); err != nil {
			return fmt.Errorf("archive: writing dict entry: %w", err)
		}
	}
	return nil
}
