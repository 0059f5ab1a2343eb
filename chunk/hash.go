// Package chunk defines the content hash used throughout the engine to
// address chunks, archives, and whole files.
package chunk

import (
	"encoding/hex"
	"fmt"
)

// Size is the length in bytes of a Hash (256 bits).
const Size = 32

// A Hash identifies a byte run by its strong digest. Hashes are
// immutable and comparable.
type Hash struct {
	b [Size]byte
}

// Empty is the hash of a zero-length input.
var Empty = Hash{}

// String returns the hex encoding of the hash.
func (h Hash) String() string {
	return hex.EncodeToString(h.b[:])
}

// Bytes returns a copy of the hash's raw bytes.
func (h Hash) Bytes() []byte {
	buf := make([]byte, Size)
	copy(buf, h.b[:])
	return buf
}

// IsZero reports whether h is the Empty hash.
func (h Hash) IsZero() bool {
	return h == Empty
}

// BadSizeError is returned when constructing a Hash from the wrong
// number of bytes.
type BadSizeError struct {
	Got int
}

func (e *BadSizeError) Error() string {
	return fmt.Sprintf("chunk: hash must be %d bytes, got %d", Size, e.Got)
}

// New builds a Hash from raw bytes. len(b) must equal Size.
func New(b []byte) (Hash, error) {
	if len(b) != Size {
		return Hash{}, &BadSizeError{Got: len(b)}
	}
	var h Hash
	copy(h.b[:], b)
	return h, nil
}

// MustNew is like New but panics on a bad length. Intended for use with
// constants known to be the right size.
func MustNew(b []byte) Hash {
	h, err := New(b)
	if err != nil {
		panic(err)
	}
	return h
}

// ParseHex decodes a hex-encoded hash, as found in manifest JSON.
func ParseHex(s string) (Hash, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return Hash{}, fmt.Errorf("chunk: bad hex hash %q: %w", s, err)
	}
	return New(b)
}

// MarshalText implements encoding.TextMarshaler so Hash can be used
// directly as a JSON object field.
func (h Hash) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (h *Hash) UnmarshalText(text []byte) error {
	parsed, err := ParseHex(string(text))
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}
