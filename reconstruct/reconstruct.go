// Package reconstruct rebuilds one target file from its remote chunk
// archive, reusing whatever bytes are already available locally or in
// the persistent chunk cache, and fetching only the chunks that are
// genuinely missing.
package reconstruct

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rednimgames/rose-updater/archive"
	"github.com/rednimgames/rose-updater/chunk"
	"github.com/rednimgames/rose-updater/chunkcache"
	"github.com/rednimgames/rose-updater/errs"
	"github.com/rednimgames/rose-updater/idpool"
	"github.com/rednimgames/rose-updater/manifest"
	"github.com/rednimgames/rose-updater/progress"
	"github.com/rednimgames/rose-updater/sourceindex"
	"github.com/rednimgames/rose-updater/transport"
)

// Config controls bounded concurrency and coalescing behavior.
type Config struct {
	MaxInFlightRemote int
	CoalesceGap       int64
	MaxRequestBytes   int64
}

// DefaultConfig matches the defaults given for the reconstructor.
func DefaultConfig() Config {
	return Config{
		MaxInFlightRemote: 8,
		CoalesceGap:       1 << 20,  // 1 MiB
		MaxRequestBytes:   16 << 20, // 16 MiB
	}
}

// RangeFetcher issues one coalesced ranged read against the archive's
// backing origin (remote HTTP, or a local file for tests).
type RangeFetcher interface {
	ReadRange(ctx context.Context, offset, length int64) ([]byte, error)
}

// Result summarizes a single file's reconstruction.
type Result struct {
	Path          string
	BytesLocal    int64
	BytesCache    int64
	BytesRemote   int64
	RemoteFetches int
}

// Reconstructor rebuilds target files from remote archives.
type Reconstructor struct {
	config Config
	cache  *chunkcache.Cache
	sink   progress.Sink
	slots  idpool.Pool
	mu     sync.Mutex
}

// New builds a Reconstructor. cache and sink may be nil.
func New(config Config, cache *chunkcache.Cache, sink progress.Sink) *Reconstructor {
	if sink == nil {
		sink = &progress.MemorySink{}
	}
	return &Reconstructor{config: config, cache: cache, sink: sink}
}

func (r *Reconstructor) report(ev progress.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sink.Report(ev)
}

// Run reconstructs entry's file under installRoot, reading archive
// bytes through src.
func (r *Reconstructor) Run(ctx context.Context, installRoot string, entry manifest.FileEntry, src archive.Source) (*Result, error) {
	targetPath := filepath.Join(installRoot, filepath.FromSlash(entry.Path))
	return r.RunTo(ctx, targetPath, entry, src)
}

// RunTo reconstructs entry's file to the exact targetPath given,
// rather than deriving it from the manifest path under an install
// root. This is used for the self-update entry, which must land at a
// sibling path rather than the running executable's own path.
func (r *Reconstructor) RunTo(ctx context.Context, targetPath string, entry manifest.FileEntry, src archive.Source) (*Result, error) {
	r.report(progress.Event{Kind: progress.KindFileStart, Path: entry.Path, BytesTotal: entry.Size})

	rd, err := archive.Open(ctx, src)
	if err != nil {
		return nil, errs.Wrap(errs.ArchiveDecode, entry.Path, err)
	}
	defer rd.Close()

	if rd.Header.SourceHash != entry.SourceHash || rd.Header.SourceSize != uint64(entry.Size) {
		return nil, &errs.Error{Kind: errs.ArchiveMismatch, Path: entry.Path,
			Cause: fmt.Errorf("archive header disagrees with manifest entry")}
	}

	idx, err := sourceindex.Build([]string{targetPath}, rd.Params())
	if err != nil {
		return nil, errs.Wrap(errs.IoError, entry.Path, err)
	}

	result := &Result{Path: entry.Path}

	resolved, err := r.resolveChunks(ctx, rd, src, idx, result)
	if err != nil {
		return nil, err
	}

	if err := r.writeSequential(ctx, entry, targetPath, rd, resolved, result); err != nil {
		return nil, err
	}

	r.report(progress.Event{Kind: progress.KindFileComplete, Path: entry.Path, BytesDone: entry.Size, BytesTotal: entry.Size})
	return result, nil
}

// chunkSource classifies where a dictionary entry's bytes will come
// from.
type chunkSource int

const (
	sourceLocal chunkSource = iota
	sourceCache
	sourceRemote
)

type resolvedChunk struct {
	source chunkSource
	local  sourceindex.Location
}

// resolveChunks decides, for every unique chunk the archive needs,
// whether it can be satisfied locally or from the cache, and fetches
// the rest from the origin with bounded, coalesced concurrency.
func (r *Reconstructor) resolveChunks(ctx context.Context, rd *archive.Reader, src archive.Source, idx *sourceindex.Index, result *Result) (map[chunk.Hash][]byte, error) {
	resolved := make(map[chunk.Hash][]byte)
	plan := make(map[chunk.Hash]resolvedChunk)

	var wants []transport.Want
	wantEntry := make(map[int]archive.DictEntry)

	for i, entry := range rd.Dict {
		if loc, ok := idx.Lookup(entry.Hash); ok {
			plan[entry.Hash] = resolvedChunk{source: sourceLocal, local: loc}
			continue
		}
		if r.cache != nil && r.cache.Has(ctx, entry.Hash) {
			plan[entry.Hash] = resolvedChunk{source: sourceCache}
			continue
		}
		plan[entry.Hash] = resolvedChunk{source: sourceRemote}
		wants = append(wants, transport.Want{Offset: int64(entry.CompressedOffset), Length: int64(entry.CompressedSize), Tag: i})
		wantEntry[i] = entry
	}

	groups := transport.Coalesce(wants, r.config.CoalesceGap, r.config.MaxRequestBytes)

	sem := make(chan struct{}, r.config.MaxInFlightRemote)
	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error

	for _, group := range groups {
		group := group
		sem <- struct{}{}
		wg.Add(1)

		r.mu.Lock()
		slot := r.slots.Get()
		r.mu.Unlock()

		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			defer func() {
				r.mu.Lock()
				r.slots.Put(slot)
				r.mu.Unlock()
			}()

			raw, err := src.ReadRange(ctx, rd.DataOffset()+group.Offset, group.Length)
			if err != nil {
				mu.Lock()
				if firstErr == nil {
					if ctx.Err() != nil {
						firstErr = errs.Wrap(errs.Cancelled, "", ctx.Err())
					} else {
						firstErr = errs.Wrap(errs.NetworkTransient, "", err)
					}
				}
				mu.Unlock()
				return
			}

			for _, w := range group.Wants {
				entry := wantEntry[w.Tag]
				start := entry.CompressedOffset - uint64(group.Offset)
				compressed := raw[start : start+uint64(entry.CompressedSize)]

				data, derr := rd.Decompress(compressed, entry)
				if derr != nil {
					mu.Lock()
					if firstErr == nil {
						firstErr = errs.Wrap(errs.HashMismatch, "", derr)
					}
					mu.Unlock()
					return
				}

				mu.Lock()
				resolved[entry.Hash] = data
				result.BytesRemote += int64(len(compressed))
				result.RemoteFetches++
				mu.Unlock()

				if r.cache != nil {
					_, _ = r.cache.Put(ctx, data)
				}
			}
		}()
	}
	wg.Wait()
	if firstErr != nil {
		return nil, firstErr
	}

	for h, p := range plan {
		switch p.source {
		case sourceLocal:
			data, ok, err := sourceindex.ReadAt(p.local, h)
			if err != nil {
				return nil, errs.Wrap(errs.IoError, p.local.Path, err)
			}
			if !ok {
				return nil, &errs.Error{Kind: errs.HashMismatch, Path: p.local.Path,
					Cause: fmt.Errorf("local candidate no longer matches chunk %s", h)}
			}
			resolved[h] = data
			result.BytesLocal += int64(len(data))
		case sourceCache:
			data, err := r.cache.Get(ctx, h)
			if err != nil {
				return nil, errs.Wrap(errs.IoError, "", err)
			}
			resolved[h] = data
			result.BytesCache += int64(len(data))
		case sourceRemote:
			// already populated above
		}
	}

	return resolved, nil
}

// writeSequential walks the reconstruction order and writes the
// resolved chunk bytes to a temp file, verifying the whole-file hash
// before renaming it into place.
func (r *Reconstructor) writeSequential(ctx context.Context, entry manifest.FileEntry, targetPath string, rd *archive.Reader, resolved map[chunk.Hash][]byte, result *Result) error {
	dir := filepath.Dir(targetPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errs.Wrap(errs.IoError, targetPath, err)
	}

	tmp, err := os.CreateTemp(dir, ".reconstruct-*.tmp")
	if err != nil {
		return errs.Wrap(errs.IoError, targetPath, err)
	}
	tmpPath := tmp.Name()
	ok := false
	defer func() {
		tmp.Close()
		if !ok {
			os.Remove(tmpPath)
		}
	}()

	fileHash := chunk.NewFileHasher()
	var bytesDone int64

	for _, idx := range rd.ReconstructionOrder() {
		if ctx.Err() != nil {
			return errs.Wrap(errs.Cancelled, targetPath, ctx.Err())
		}
		dictEntry := rd.Dict[idx]
		data, found := resolved[dictEntry.Hash]
		if !found {
			return &errs.Error{Kind: errs.ArchiveDecode, Path: targetPath,
				Cause: fmt.Errorf("no resolved bytes for chunk %s", dictEntry.Hash)}
		}
		if _, err := tmp.Write(data); err != nil {
			return errs.Wrap(errs.IoError, targetPath, err)
		}
		_, _ = fileHash.Write(data)
		bytesDone += int64(len(data))
		r.report(progress.Event{Kind: progress.KindFileProgress, Path: entry.Path, BytesDone: bytesDone, BytesTotal: entry.Size})
	}

	if fileHash.Sum() != entry.SourceHash {
		return &errs.Error{Kind: errs.HashMismatch, Path: targetPath,
			Cause: fmt.Errorf("reconstructed file hash mismatch")}
	}

	if err := tmp.Sync(); err != nil {
		return errs.Wrap(errs.IoError, targetPath, err)
	}
	if err := tmp.Close(); err != nil {
		return errs.Wrap(errs.IoError, targetPath, err)
	}
	if err := os.Rename(tmpPath, targetPath); err != nil {
		return errs.Wrap(errs.IoError, targetPath, err)
	}
	ok = true
	return nil
}
