package chunk

import (
	"github.com/codahale/blake2"
)

// personalization values provide domain separation between chunk
// digests and whole-file digests, the way the teacher's chunkutil
// package personalizes by type and tree level; we have no tree, so a
// plain two-way split is enough.
var (
	personalChunk = mustPersonal("rose:chunk")
	personalFile  = mustPersonal("rose:file")
)

func mustPersonal(s string) [blake2.PersonalSize]byte {
	if len(s) > blake2.PersonalSize {
		panic("chunk: personalization string too long")
	}
	var p [blake2.PersonalSize]byte
	copy(p[:], s)
	return p
}

func hashWith(personal [blake2.PersonalSize]byte, data []byte) Hash {
	if len(data) == 0 {
		return Empty
	}
	config := &blake2.Config{
		Size:     Size,
		Personal: personal[:],
	}
	h := blake2.New(config)
	_, _ = h.Write(data)
	return MustNew(h.Sum(nil))
}

// HashChunk returns the chunk-domain digest of raw chunk bytes. This is
// the hash stored in an archive's dictionary and checked by
// archive.Reader.ReadChunk.
func HashChunk(data []byte) Hash {
	return hashWith(personalChunk, data)
}

// HashFile returns the file-domain digest of a complete reconstructed
// byte stream. This is the hash compared against a manifest's
// source_hash.
func HashFile(data []byte) Hash {
	return hashWith(personalFile, data)
}

// FileHasher incrementally computes a file-domain digest, for use
// while streaming reconstruction output instead of buffering the
// whole file.
type FileHasher struct {
	h interface {
		Write([]byte) (int, error)
		Sum([]byte) []byte
	}
	wrote bool
}

// NewFileHasher returns a ready-to-use streaming file-domain hasher.
func NewFileHasher() *FileHasher {
	config := &blake2.Config{
		Size:     Size,
		Personal: personalFile[:],
	}
	return &FileHasher{h: blake2.New(config)}
}

// Write feeds bytes into the running digest.
func (f *FileHasher) Write(p []byte) (int, error) {
	if len(p) > 0 {
		f.wrote = true
	}
	return f.h.Write(p)
}

// Sum returns the digest of everything written so far. It is safe to
// call before any Write, which yields Empty, matching HashFile("").
func (f *FileHasher) Sum() Hash {
	if !f.wrote {
		return Empty
	}
	return MustNew(f.h.Sum(nil))
}
