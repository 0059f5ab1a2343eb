// Package sourceindex builds a transient map from chunk hash to its
// location within a set of local candidate files, letting the
// reconstructor satisfy a chunk from disk instead of the network when
// the install root already happens to contain the bytes it needs
// (e.g. under a renamed or otherwise untouched file).
package sourceindex

import (
	"io"
	"os"
	"sort"

	"github.com/rednimgames/rose-updater/chunk"
	"github.com/rednimgames/rose-updater/chunker"
)

// Location identifies where a chunk's bytes live within a candidate
// file.
type Location struct {
	Path   string
	Offset int64
	Length int64
}

// Index maps chunk hashes to a location in a local file. On a hash
// collision between two candidates, the first one indexed wins, so
// callers should pass candidates in a stable, deterministic order.
type Index struct {
	byHash map[chunk.Hash]Location
}

// New returns an empty index.
func New() *Index {
	return &Index{byHash: make(map[chunk.Hash]Location)}
}

// Lookup returns the location of a chunk, if indexed.
func (idx *Index) Lookup(h chunk.Hash) (Location, bool) {
	loc, ok := idx.byHash[h]
	return loc, ok
}

// Len reports how many distinct chunk hashes are indexed.
func (idx *Index) Len() int {
	return len(idx.byHash)
}

// AddFile chunks the file at path with params and adds every chunk it
// contains to the index, unless a hash is already present.
func (idx *Index) AddFile(path string, params chunker.Params) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	c, err := chunker.New(f, params)
	if err != nil {
		return err
	}

	for {
		ch, err := c.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if _, exists := idx.byHash[ch.Hash]; exists {
			continue
		}
		idx.byHash[ch.Hash] = Location{
			Path:   path,
			Offset: int64(ch.Offset),
			Length: int64(len(ch.Data)),
		}
	}
}

// Build chunks every candidate path (deduplicated and sorted
// ascending, so results are independent of caller ordering) with
// params and returns the resulting index. A candidate that cannot be
// opened is skipped rather than failing the whole build, since a
// missing or unreadable local file just means one fewer reuse
// opportunity, not a fatal error.
func Build(candidates []string, params chunker.Params) (*Index, error) {
	sorted := append([]string{}, candidates...)
	sort.Strings(sorted)

	idx := New()
	seen := make(map[string]bool, len(sorted))
	for _, path := range sorted {
		if seen[path] {
			continue
		}
		seen[path] = true

		if err := idx.AddFile(path, params); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			continue
		}
	}
	return idx, nil
}

// ReadAt reads the bytes for a location, verifying they still hash to
// the expected value — the file on disk may have changed since it was
// indexed.
func ReadAt(loc Location, want chunk.Hash) ([]byte, bool, error) {
	f, err := os.Open(loc.Path)
	if err != nil {
		return nil, false, err
	}
	defer f.Close()

	buf := make([]byte, loc.Length)
	if _, err := f.ReadAt(buf, loc.Offset); err != nil {
		return nil, false, err
	}
	if chunk.HashChunk(buf) != want {
		return nil, false, nil
	}
	return buf, true, nil
}
