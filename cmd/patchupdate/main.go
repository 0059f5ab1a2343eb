// Command patchupdate reconciles a local game install against a
// remote manifest, fetching only the chunks that changed, and can
// replace its own executable mid-run when the remote manifest names a
// newer updater binary.
package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/Wessie/appdirs"

	"github.com/rednimgames/rose-updater/archive"
	"github.com/rednimgames/rose-updater/bootstrap"
	"github.com/rednimgames/rose-updater/chunkcache"
	"github.com/rednimgames/rose-updater/cliutil/flagx"
	"github.com/rednimgames/rose-updater/cliutil/positional"
	"github.com/rednimgames/rose-updater/cliutil/subcommands"
	"github.com/rednimgames/rose-updater/errs"
	"github.com/rednimgames/rose-updater/kv/kvfiles"
	"github.com/rednimgames/rose-updater/launcher"
	"github.com/rednimgames/rose-updater/progress"
	"github.com/rednimgames/rose-updater/store"
	"github.com/rednimgames/rose-updater/syncengine"
	"github.com/rednimgames/rose-updater/transport"
)

type updateCommand struct {
	subcommands.Description
	subcommands.Synopsis
	subcommands.Overview
	flag.FlagSet

	url                 flagx.URL
	installRoot         flagx.AbsPath
	profile             string
	forceRecheck        bool
	forceRecheckUpdater bool
	dryRun              bool
	verbose             bool
	launchExe           string
	postSelfUpdate      bool

	Arguments struct {
		_ positional.Optional
		LaunchArgs []string
	}
}

var update = updateCommand{
	Description: "sync a local game install against a remote manifest",
	Synopsis:    "-url URL -install-root DIR [-launch EXE [-- ARGS..]]",
	Overview: "Fetches the remote manifest from -url, reconciles it against " +
		"the local install at -install-root, and reconstructs every changed " +
		"file from coalesced ranged reads. If the remote manifest names a " +
		"newer copy of this very executable, it is replaced in place before " +
		"the rest of the sync runs.",
}

func init() {
	update.Var(&update.url, "url", "base URL of the patch origin")
	update.Var(&update.installRoot, "install-root", "directory the game is installed in")
	update.StringVar(&update.profile, "profile", "", "cache profile key, used to namespace local state (defaults to the url's host)")
	update.BoolVar(&update.forceRecheck, "force-recheck", false, "rehash every local file instead of trusting the local manifest")
	update.BoolVar(&update.forceRecheckUpdater, "force-recheck-updater", false, "rehash this executable's own entry even if absent from the work set")
	update.BoolVar(&update.dryRun, "dry-run", false, "compute and print the work set without changing anything")
	update.BoolVar(&update.verbose, "v", false, "log progress events")
	update.StringVar(&update.launchExe, "launch", "", "relative path of an executable to launch after a successful sync")
	update.BoolVar(&update.postSelfUpdate, bootstrap.PostSelfUpdateFlag[2:], false, "internal: set by a self-update relaunch")
	subcommands.Register(&update)
}

func main() {
	log.SetFlags(0)
	log.SetPrefix("patchupdate: ")
	os.Exit(run())
}

func run() int {
	exePath, err := os.Executable()
	if err != nil {
		log.Printf("resolving own executable path: %v", err)
	} else if err := bootstrap.RecoverCrash(exePath); err != nil {
		log.Printf("crash recovery: %v", err)
		return 4
	}

	result, err := subcommands.Parse(&update, "patchupdate", os.Args[1:])
	if err == flag.ErrHelp {
		result.Usage()
		return 0
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", result.Name(), err)
		result.Usage()
		return 2
	}

	if update.url.URL == nil || update.installRoot == "" {
		fmt.Fprintln(os.Stderr, "patchupdate: -url and -install-root are required")
		result.Usage()
		return 2
	}
	if update.profile == "" {
		update.profile = update.url.URL.Host
	}

	err = update.Run(exePath, os.Args[1:])
	if err == nil {
		return 0
	}

	kind := errs.KindOf(err)
	log.Printf("%v", err)
	switch kind {
	case errs.NetworkTransient, errs.NetworkFatal:
		return 2
	case errs.ArchiveMismatch, errs.HashMismatch, errs.ManifestDecode, errs.ArchiveDecode:
		return 3
	case errs.Cancelled:
		return 5
	default:
		return 4
	}
}

func (c *updateCommand) Run(exePath string, originalArgs []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dirs := appdirs.New("rose-updater")
	profileDir := filepath.Join(dirs.UserCache(), "updater", c.profile)
	if err := os.MkdirAll(profileDir, 0755); err != nil {
		return errs.Wrap(errs.IoError, profileDir, err)
	}

	db, err := store.Open(filepath.Join(profileDir, "state.db"), 0600)
	if err != nil {
		return errs.Wrap(errs.IoError, profileDir, err)
	}
	defer db.Close()

	runID := newRunID()
	phase := bootstrap.PhaseCheckingSelf
	if c.postSelfUpdate {
		phase = bootstrap.PhasePostSelfUpdate
		bootstrap.CleanupAfterSelfUpdate(exePath)
	}
	if err := bootstrap.RecordPhase(db, runID, phase); err != nil {
		log.Printf("recording phase: %v", err)
	}

	var sink progress.Sink = &progress.MemorySink{}
	if c.verbose {
		sink = progress.NewLogSink(os.Stderr)
	}

	client := transport.New(c.url.URL.String(), transport.DefaultConfig())
	cacheDir := filepath.Join(profileDir, "chunks")
	if err := kvfiles.Create(cacheDir); err != nil {
		return errs.Wrap(errs.IoError, cacheDir, err)
	}
	kvStore, err := kvfiles.Open(cacheDir)
	if err != nil {
		return errs.Wrap(errs.IoError, cacheDir, err)
	}
	cache := chunkcache.New(kvStore)

	selfPath := selfExecutablePath(string(c.installRoot), exePath)

	_ = bootstrap.RecordPhase(db, runID, bootstrap.PhaseSyncing)

	orch := syncengine.New(&originClient{client}, &originClient{client}, cache, sink)
	report, err := orch.Run(ctx, syncengine.Options{
		InstallRoot:         string(c.installRoot),
		ProfileKey:          c.profile,
		LocalManifestPath:   filepath.Join(profileDir, "local_manifest.json"),
		ForceRecheck:        c.forceRecheck,
		ForceRecheckUpdater: c.forceRecheckUpdater,
		DryRun:              c.dryRun,
		SelfExecutablePath:  selfPath,
	})
	if err != nil {
		return err
	}

	if c.dryRun {
		var planned int64
		for _, e := range report.Planned {
			planned += e.Size
		}
		fmt.Printf("would fetch %d file(s), %d byte(s)\n", len(report.Planned), planned)
		return nil
	}

	if report.SelfUpdated {
		_ = bootstrap.RecordPhase(db, runID, bootstrap.PhaseReplacingSelf)
		return bootstrap.Relaunch(ctx, exePath, originalArgs)
	}

	_ = bootstrap.RecordPhase(db, runID, bootstrap.PhaseDone)

	if c.launchExe != "" {
		if err := launcher.Launch(string(c.installRoot), c.launchExe, c.Arguments.LaunchArgs); err != nil {
			return errs.Wrap(errs.IoError, c.launchExe, err)
		}
	}

	fmt.Printf("sync complete: %d succeeded, %d failed\n", len(report.Succeeded), len(report.Failed))
	return nil
}

// selfExecutablePath returns exePath expressed relative to
// installRoot in manifest form (slash-separated), or its base name if
// it does not live under installRoot at all.
func selfExecutablePath(installRoot, exePath string) string {
	rel, err := filepath.Rel(installRoot, exePath)
	if err != nil || strings.HasPrefix(rel, "..") {
		return filepath.Base(exePath)
	}
	return filepath.ToSlash(rel)
}

func newRunID() string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return "unknown"
	}
	return hex.EncodeToString(buf)
}

// originClient adapts a transport.Client to both syncengine interfaces.
type originClient struct {
	client *transport.Client
}

func (o *originClient) Open(archivePath string) archive.Source {
	return archiveSource{client: o.client, path: archivePath}
}

func (o *originClient) FetchManifest(ctx context.Context) ([]byte, error) {
	return o.client.GetManifest(ctx, "manifest.json")
}

type archiveSource struct {
	client *transport.Client
	path   string
}

func (a archiveSource) ReadRange(ctx context.Context, offset, length int64) ([]byte, error) {
	return a.client.ReadRange(ctx, a.path, offset, length)
}
