// Package archive implements the on-disk and on-the-wire layout of a
// per-file chunk archive: a fixed header, a chunk dictionary, and a
// compressed chunk payload, following the exact byte format published
// for interoperability with any HTTP origin serving these files.
package archive

import (
	"fmt"

	"github.com/rednimgames/rose-updater/chunk"
	"github.com/rednimgames/rose-updater/chunker"
)

// Magic is the 4-byte archive file signature.
var Magic = [4]byte{'R', 'C', 'A', 'R'}

// Version is the current archive format version understood by this
// package.
const Version = 1

// CompressionID identifies the compression algorithm used for chunk
// payloads.
type CompressionID uint16

// CompressionZstd is the only compression algorithm currently defined
// by the wire format.
const CompressionZstd CompressionID = 1

// HeaderSize is the fixed size in bytes of the archive header.
const HeaderSize = 4 + 2 + chunk.Size + 8 + 4 + 4 + 4 + 4 + 2 + 2 + 4 + 4

// DictEntrySize is the fixed size in bytes of one dictionary record.
const DictEntrySize = chunk.Size + 8 + 4 + 4

// Header is the fixed-size archive header, as laid out in the wire
// format: magic, version, whole-file hash and size, chunker
// parameters, compression settings, and the dictionary/reconstruction
// list lengths.
type Header struct {
	Version          uint16
	SourceHash       chunk.Hash
	SourceSize       uint64
	ChunkerParams    chunker.Params
	Compression      CompressionID
	CompressionLevel uint16
	DictLen          uint32
	ReconLen         uint32
}

// DictEntry is one record in the sorted chunk dictionary.
type DictEntry struct {
	Hash             chunk.Hash
	CompressedOffset uint64
	CompressedSize   uint32
	UncompressedSize uint32
}

// ErrBadMagic is returned when a reader encounters a file that does
// not begin with the archive magic bytes.
var ErrBadMagic = fmt.Errorf("archive: bad magic bytes")

// UnsupportedVersionError is returned when a reader encounters an
// archive with a version this package does not understand.
type UnsupportedVersionError struct {
	Got uint16
}

func (e *UnsupportedVersionError) Error() string {
	return fmt.Sprintf("archive: unsupported version %d (this code supports %d)", e.Got, Version)
}

// UnsupportedCompressionError is returned for an unrecognized
// compression algorithm id.
type UnsupportedCompressionError struct {
	Got CompressionID
}

func (e *UnsupportedCompressionError) Error() string {
	return fmt.Sprintf("archive: unsupported compression id %d", e.Got)
}
