// Package manifest implements the remote and local manifest formats:
// the ordered catalog of files in a release, and its client-side
// cached counterpart.
package manifest

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/rednimgames/rose-updater/chunk"
	"github.com/rednimgames/rose-updater/progress"
)

// FileEntry describes one logical file in a manifest.
type FileEntry struct {
	Path        string     `json:"path"`
	Size        int64      `json:"size"`
	SourceHash  chunk.Hash `json:"source_hash"`
	ArchivePath string     `json:"archive_path"`
	ArchiveSize int64      `json:"archive_size"`
}

// Manifest is an ordered, path-unique catalog of files.
type Manifest struct {
	Version int         `json:"version"`
	Files   []FileEntry `json:"files"`

	byPath map[string]int
}

// CurrentVersion is the manifest format version written by Save.
const CurrentVersion = 1

// wireManifest mirrors Manifest's JSON shape without the private index,
// and without requiring callers to pre-populate it.
type wireManifest struct {
	Version int             `json:"version"`
	Files   []FileEntry     `json:"files"`
	Extra   json.RawMessage `json:"-"`
}

// DecodeError wraps a malformed-manifest condition, as distinct from a
// transport failure fetching the manifest bytes in the first place.
type DecodeError struct {
	Reason string
	Cause  error
}

func (e *DecodeError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("manifest: decode: %s: %v", e.Reason, e.Cause)
	}
	return fmt.Sprintf("manifest: decode: %s", e.Reason)
}

func (e *DecodeError) Unwrap() error { return e.Cause }

// Load parses manifest bytes per the §6 JSON textual form. Unknown
// top-level fields are tolerated. A file entry fails with DecodeError
// if it has no path, no archive_path, or no source_hash while its size
// is nonzero, or if its path repeats an earlier entry's; size and
// archive_size are not checked for presence.
func Load(data []byte) (*Manifest, error) {
	var w wireManifest
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, &DecodeError{Reason: "malformed JSON", Cause: err}
	}

	m := &Manifest{
		Version: w.Version,
		Files:   w.Files,
	}
	seen := make(map[string]bool, len(m.Files))
	for i, f := range m.Files {
		if f.Path == "" {
			return nil, &DecodeError{Reason: fmt.Sprintf("file entry %d missing path", i)}
		}
		if f.ArchivePath == "" {
			return nil, &DecodeError{Reason: fmt.Sprintf("file entry %d (%s) missing archive_path", i, f.Path)}
		}
		if f.SourceHash.IsZero() && f.Size != 0 {
			return nil, &DecodeError{Reason: fmt.Sprintf("file entry %d (%s) missing source_hash", i, f.Path)}
		}
		if seen[f.Path] {
			return nil, &DecodeError{Reason: fmt.Sprintf("duplicate path %q", f.Path)}
		}
		seen[f.Path] = true
	}
	m.reindex()
	return m, nil
}

// New builds a Manifest from a slice of file entries, sorting and
// indexing them the way Load does.
func New(files []FileEntry) *Manifest {
	m := &Manifest{Version: CurrentVersion, Files: files}
	m.sortByPath()
	m.reindex()
	return m
}

func (m *Manifest) sortByPath() {
	sort.Slice(m.Files, func(i, j int) bool {
		return m.Files[i].Path < m.Files[j].Path
	})
}

func (m *Manifest) reindex() {
	m.byPath = make(map[string]int, len(m.Files))
	for i, f := range m.Files {
		m.byPath[f.Path] = i
	}
}

// Save serializes the manifest with stable path-ascending ordering. If
// sink is non-nil, it is given a KindManifestSaved summary event
// (file count, total size) once encoding succeeds.
func (m *Manifest) Save(sink progress.Sink) ([]byte, error) {
	m.sortByPath()
	m.reindex()
	w := wireManifest{
		Version: m.Version,
		Files:   m.Files,
	}
	if w.Version == 0 {
		w.Version = CurrentVersion
	}
	data, err := json.MarshalIndent(w, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("manifest: encoding: %w", err)
	}
	if sink != nil {
		sink.Report(progress.Event{
			Kind:       progress.KindManifestSaved,
			BytesTotal: m.TotalSize(),
			FileCount:  len(m.Files),
		})
	}
	return data, nil
}

// Lookup returns the entry for path, and whether it was present.
func (m *Manifest) Lookup(path string) (FileEntry, bool) {
	idx, ok := m.byPath[path]
	if !ok {
		return FileEntry{}, false
	}
	return m.Files[idx], true
}

// Len returns the number of files in the manifest.
func (m *Manifest) Len() int {
	return len(m.Files)
}

// TotalSize returns the sum of every file entry's Size.
func (m *Manifest) TotalSize() int64 {
	var total int64
	for _, f := range m.Files {
		total += f.Size
	}
	return total
}
