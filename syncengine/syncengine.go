// Package syncengine drives reconciliation between a remote manifest
// and a local install root: deciding which files need work, running
// the Reconstructor over each with bounded concurrency, and
// committing a new local manifest only after every file in the work
// set has succeeded.
package syncengine

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/rednimgames/rose-updater/archive"
	"github.com/rednimgames/rose-updater/bootstrap"
	"github.com/rednimgames/rose-updater/chunk"
	"github.com/rednimgames/rose-updater/chunkcache"
	"github.com/rednimgames/rose-updater/errs"
	"github.com/rednimgames/rose-updater/manifest"
	"github.com/rednimgames/rose-updater/progress"
	"github.com/rednimgames/rose-updater/reconstruct"
	"github.com/rednimgames/rose-updater/runlock"
)

// ArchiveOpener opens an archive.Source for a given archive path
// relative to the manifest's origin. It abstracts the transport
// (HTTP, or a local filesystem for tests) away from the orchestrator.
type ArchiveOpener interface {
	Open(archivePath string) archive.Source
}

// ManifestFetcher fetches the raw bytes of the remote manifest.
type ManifestFetcher interface {
	FetchManifest(ctx context.Context) ([]byte, error)
}

// Options configures one sync run.
type Options struct {
	InstallRoot         string
	ProfileKey          string
	LocalManifestPath   string
	ForceRecheck        bool
	ForceRecheckUpdater bool
	DryRun              bool
	MaxConcurrentFiles  int
	SelfExecutablePath  string // relative to InstallRoot; empty if not applicable
}

// DefaultMaxConcurrentFiles matches the spec's default file-level
// concurrency.
const DefaultMaxConcurrentFiles = 4

// Report is the outcome of one sync run.
type Report struct {
	Planned     []manifest.FileEntry
	Succeeded   []string
	Failed      map[string]error
	SelfUpdated bool
}

// Orchestrator runs syncs against one profile.
type Orchestrator struct {
	opener  ArchiveOpener
	fetcher ManifestFetcher
	cache   *chunkcache.Cache
	sink    progress.Sink
}

// New builds an Orchestrator.
func New(opener ArchiveOpener, fetcher ManifestFetcher, cache *chunkcache.Cache, sink progress.Sink) *Orchestrator {
	if sink == nil {
		sink = &progress.MemorySink{}
	}
	return &Orchestrator{opener: opener, fetcher: fetcher, cache: cache, sink: sink}
}

// Run performs one full sync: load state, fetch the remote manifest,
// compute the work set, reconstruct it, and commit a new local
// manifest on full success.
func (o *Orchestrator) Run(ctx context.Context, opts Options) (*Report, error) {
	lock, err := runlock.Acquire(filepath.Dir(opts.LocalManifestPath))
	if err != nil {
		return nil, errs.Wrap(errs.IoError, opts.LocalManifestPath, err)
	}
	defer lock.Release()

	local, err := manifest.LoadLocal(opts.LocalManifestPath)
	if err != nil {
		return nil, err
	}

	o.sink.Report(progress.Event{Kind: progress.KindManifestFetch})
	remoteBytes, err := o.fetcher.FetchManifest(ctx)
	if err != nil {
		return nil, err
	}
	remote, err := manifest.Load(remoteBytes)
	if err != nil {
		return nil, err
	}

	workSet := computeWorkSet(remote, local, opts.ForceRecheck)

	selfEntry, rest := partitionSelfUpdate(workSet, remote, opts.SelfExecutablePath, opts.ForceRecheckUpdater)

	report := &Report{
		Planned: append(append([]manifest.FileEntry{}, workSetEntries(selfEntry)...), rest...),
		Failed:  make(map[string]error),
	}

	if opts.DryRun {
		for _, e := range report.Planned {
			report.Succeeded = append(report.Succeeded, e.Path)
		}
		return report, nil
	}

	r := reconstruct.New(reconstruct.DefaultConfig(), o.cache, o.sink)

	if selfEntry != nil {
		updated, err := o.runSelfUpdate(ctx, r, opts, *selfEntry)
		if err != nil {
			report.Failed[selfEntry.Path] = err
			return report, fmt.Errorf("syncengine: self-update failed: %w", err)
		}
		report.Succeeded = append(report.Succeeded, selfEntry.Path)
		report.SelfUpdated = updated
	}

	if err := o.runConcurrent(ctx, r, opts, rest, report); err != nil {
		return report, err
	}

	if len(report.Failed) > 0 {
		return report, fmt.Errorf("syncengine: %d file(s) failed", len(report.Failed))
	}

	newLocal := &manifest.LocalManifest{
		Manifest:   remote,
		VerifiedAt: opts.now(),
		ProfileKey: opts.ProfileKey,
	}
	if err := manifest.SaveLocal(opts.LocalManifestPath, newLocal); err != nil {
		return report, err
	}

	return report, nil
}

func (o Options) now() time.Time {
	return time.Now()
}

func (o *Orchestrator) runOne(ctx context.Context, r *reconstruct.Reconstructor, opts Options, entry manifest.FileEntry) error {
	src := o.opener.Open(entry.ArchivePath)
	_, err := r.Run(ctx, opts.InstallRoot, entry, src)
	return err
}

// runSelfUpdate reconstructs the updater's own replacement binary to a
// sibling path, then performs the rename-pair swap that puts it at the
// live executable's path: the OS may forbid overwriting a running
// executable directly, so the running binary is renamed aside to
// "<name>.old" before the replacement takes its place. If the process
// is killed between the two renames, bootstrap.RecoverCrash puts the
// old binary back on the next invocation.
//
// Unless opts.ForceRecheckUpdater is set, a live executable whose
// on-disk bytes already hash to entry.SourceHash is left as it is.
//
// The returned bool reports whether this instance actually performed
// the swap. A false with a nil error means either that the live
// executable was already current, or that another instance, sharing
// the same install root under a different profile, already won the
// race; both are reported up as success, not failure, the latter per
// errs.SelfUpdateRaceLost's contract.
func (o *Orchestrator) runSelfUpdate(ctx context.Context, r *reconstruct.Reconstructor, opts Options, entry manifest.FileEntry) (bool, error) {
	liveAbs := filepath.Join(opts.InstallRoot, filepath.FromSlash(entry.Path))
	newAbs := liveAbs + ".new"

	if !opts.ForceRecheckUpdater {
		if f, err := os.Open(liveAbs); err == nil {
			h := chunk.NewFileHasher()
			n, cerr := io.Copy(h, f)
			f.Close()
			if cerr == nil && n == entry.Size && h.Sum() == entry.SourceHash {
				return false, nil
			}
		}
	}

	src := o.opener.Open(entry.ArchivePath)
	if _, err := r.RunTo(ctx, newAbs, entry, src); err != nil {
		return false, err
	}

	if err := bootstrap.ReplaceSelf(liveAbs, newAbs); err != nil {
		if errs.KindOf(err) == errs.SelfUpdateRaceLost {
			return false, nil
		}
		return false, errs.Wrap(errs.IoError, entry.Path, err)
	}
	return true, nil
}

func (o *Orchestrator) runConcurrent(ctx context.Context, r *reconstruct.Reconstructor, opts Options, entries []manifest.FileEntry, report *Report) error {
	maxConcurrent := opts.MaxConcurrentFiles
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrentFiles
	}
	sem := make(chan struct{}, maxConcurrent)

	var wg sync.WaitGroup
	var mu sync.Mutex

	for _, entry := range entries {
		entry := entry
		sem <- struct{}{}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() { <-sem }()

			err := o.runOne(ctx, r, opts, entry)

			mu.Lock()
			if err != nil {
				report.Failed[entry.Path] = err
			} else {
				report.Succeeded = append(report.Succeeded, entry.Path)
			}
			mu.Unlock()
		}()
	}
	wg.Wait()
	return nil
}

// computeWorkSet returns every remote file entry whose (size,
// source_hash) differs from the local manifest, is absent locally, or
// every entry at all if forceRecheck is set.
func computeWorkSet(remote *manifest.Manifest, local *manifest.LocalManifest, forceRecheck bool) []manifest.FileEntry {
	var out []manifest.FileEntry
	for _, f := range remote.Files {
		if forceRecheck {
			out = append(out, f)
			continue
		}
		if local == nil || local.Manifest == nil {
			out = append(out, f)
			continue
		}
		existing, ok := local.Manifest.Lookup(f.Path)
		if !ok || existing.Size != f.Size || existing.SourceHash != f.SourceHash {
			out = append(out, f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// partitionSelfUpdate pulls the updater's own executable entry out of
// the work set, if present, so it can be reconstructed first. When
// force is set, the self entry is pulled from remote directly even if
// its hash already matched the local manifest and computeWorkSet
// therefore never flagged it: force_recheck_updater exists precisely
// to re-verify (and, if the origin's copy has since moved on, replace)
// the running binary regardless of what the local manifest claims.
func partitionSelfUpdate(workSet []manifest.FileEntry, remote *manifest.Manifest, selfPath string, force bool) (*manifest.FileEntry, []manifest.FileEntry) {
	if selfPath == "" {
		return nil, workSet
	}
	var self *manifest.FileEntry
	var rest []manifest.FileEntry
	for i := range workSet {
		if workSet[i].Path == selfPath {
			e := workSet[i]
			self = &e
			continue
		}
		rest = append(rest, workSet[i])
	}
	if self == nil && force && remote != nil {
		if e, ok := remote.Lookup(selfPath); ok {
			self = &e
		}
	}
	return self, rest
}

func workSetEntries(e *manifest.FileEntry) []manifest.FileEntry {
	if e == nil {
		return nil
	}
	return []manifest.FileEntry{*e}
}
