package main

import (
	"flag"
	"testing"

	"github.com/rednimgames/rose-updater/cliutil/subcommands"
)

// resetPublishFlags rebuilds publish's flag.FlagSet from scratch, the
// way init() does, so each test starts from a clean slate.
func resetPublishFlags() {
	publish.FlagSet = flag.FlagSet{}
	publish.sourceRoot = ""
	publish.archiveRoot = ""
	publish.manifestPath = ""
	publish.verbose = false

	publish.Var(&publish.sourceRoot, "source-root", "directory tree to publish")
	publish.Var(&publish.archiveRoot, "archive-root", "directory to write chunk archives into")
	publish.Var(&publish.manifestPath, "manifest", "path to write the resulting manifest.json to")
	publish.BoolVar(&publish.verbose, "v", false, "log each file as it is published")
}

func TestPublishParsesAbsolutePathFlags(t *testing.T) {
	resetPublishFlags()

	if _, err := subcommands.Parse(&publish, "patchpublish", []string{
		"-source-root", "/src/game",
		"-archive-root", "/out/archives",
		"-manifest", "/out/manifest.json",
		"-v",
	}); err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if string(publish.sourceRoot) != "/src/game" {
		t.Fatalf("sourceRoot = %q", publish.sourceRoot)
	}
	if string(publish.archiveRoot) != "/out/archives" {
		t.Fatalf("archiveRoot = %q", publish.archiveRoot)
	}
	if string(publish.manifestPath) != "/out/manifest.json" {
		t.Fatalf("manifestPath = %q", publish.manifestPath)
	}
	if !publish.verbose {
		t.Fatalf("expected verbose to be true")
	}
}

func TestPublishRunRejectsMissingFlags(t *testing.T) {
	resetPublishFlags()

	if err := publish.Run(); err == nil {
		t.Fatalf("expected an error when required flags are unset")
	}
}
