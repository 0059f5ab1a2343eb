// Package publisher scans a source tree, writes a chunk archive for
// every file, and assembles the resulting manifest, ready for upload
// to a static HTTP origin.
package publisher

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/klauspost/compress/zstd"

	"github.com/rednimgames/rose-updater/archive"
	"github.com/rednimgames/rose-updater/chunker"
	"github.com/rednimgames/rose-updater/manifest"
	"github.com/rednimgames/rose-updater/progress"
)

// Options controls one publish run.
type Options struct {
	SourceRoot     string
	ArchiveRoot    string
	ChunkerParams  chunker.Params
	CompressionLvl zstd.EncoderLevel
}

// DefaultOptions gives sensible defaults for a game-file tree.
func DefaultOptions(sourceRoot, archiveRoot string) Options {
	return Options{
		SourceRoot:     sourceRoot,
		ArchiveRoot:    archiveRoot,
		ChunkerParams:  chunker.DefaultParams,
		CompressionLvl: zstd.SpeedDefault,
	}
}

// Publish walks opts.SourceRoot, writes one archive per regular file
// under opts.ArchiveRoot, and returns the resulting manifest.
func Publish(opts Options, sink progress.Sink) (*manifest.Manifest, error) {
	if sink == nil {
		sink = &progress.MemorySink{}
	}
	if err := opts.ChunkerParams.Validate(); err != nil {
		return nil, err
	}

	var paths []string
	err := filepath.WalkDir(opts.SourceRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("publisher: walking source tree: %w", err)
	}
	sort.Strings(paths)

	var entries []manifest.FileEntry
	for _, path := range paths {
		rel, err := filepath.Rel(opts.SourceRoot, path)
		if err != nil {
			return nil, err
		}
		relSlash := filepath.ToSlash(rel)

		entry, err := publishOne(opts, path, relSlash)
		if err != nil {
			return nil, fmt.Errorf("publisher: %s: %w", relSlash, err)
		}
		entries = append(entries, entry)

		sink.Report(progress.Event{
			Kind:       progress.KindFileComplete,
			Path:       relSlash,
			BytesDone:  entry.Size,
			BytesTotal: entry.Size,
		})
	}

	return manifest.New(entries), nil
}

func publishOne(opts Options, sourcePath, relSlash string) (manifest.FileEntry, error) {
	src, err := os.Open(sourcePath)
	if err != nil {
		return manifest.FileEntry{}, err
	}
	defer src.Close()

	archivePath := filepath.Join(opts.ArchiveRoot, filepath.FromSlash(relSlash)+".rcar")
	if err := os.MkdirAll(filepath.Dir(archivePath), 0755); err != nil {
		return manifest.FileEntry{}, err
	}

	dst, err := os.Create(archivePath)
	if err != nil {
		return manifest.FileEntry{}, err
	}
	defer dst.Close()

	result, err := archive.WriteFile(dst, src, opts.ChunkerParams, opts.CompressionLvl)
	if err != nil {
		return manifest.FileEntry{}, err
	}

	archiveRelSlash := relSlash + ".rcar"
	return manifest.FileEntry{
		Path:        relSlash,
		Size:        int64(result.SourceSize),
		SourceHash:  result.SourceHash,
		ArchivePath: archiveRelSlash,
		ArchiveSize: result.CompressedLen + int64(archive.HeaderSize) + int64(result.UniqueChunks)*int64(archive.DictEntrySize) + int64(result.ReconstructLen)*4,
	}, nil
}
