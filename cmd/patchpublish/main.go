// Command patchpublish scans a source tree, writes one chunk archive
// per file, and assembles the resulting manifest ready for upload to a
// static HTTP origin.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/klauspost/compress/zstd"

	"github.com/rednimgames/rose-updater/cliutil/flagx"
	"github.com/rednimgames/rose-updater/cliutil/subcommands"
	"github.com/rednimgames/rose-updater/progress"
	"github.com/rednimgames/rose-updater/publisher"
)

type publishCommand struct {
	subcommands.Description
	subcommands.Synopsis
	subcommands.Overview
	flag.FlagSet

	sourceRoot   flagx.AbsPath
	archiveRoot  flagx.AbsPath
	manifestPath flagx.AbsPath
	verbose      bool
}

func (c *publishCommand) Run() error {
	if c.sourceRoot == "" || c.archiveRoot == "" || c.manifestPath == "" {
		return fmt.Errorf("-source-root, -archive-root, and -manifest are required")
	}

	var sink progress.Sink = &progress.MemorySink{}
	if c.verbose {
		sink = progress.NewLogSink(os.Stderr)
	}

	opts := publisher.DefaultOptions(string(c.sourceRoot), string(c.archiveRoot))
	opts.CompressionLvl = zstd.SpeedDefault

	m, err := publisher.Publish(opts, sink)
	if err != nil {
		return fmt.Errorf("publish: %w", err)
	}

	data, err := m.Save(sink)
	if err != nil {
		return fmt.Errorf("encoding manifest: %w", err)
	}
	if err := os.WriteFile(string(c.manifestPath), data, 0644); err != nil {
		return fmt.Errorf("writing manifest: %w", err)
	}

	fmt.Printf("published %d file(s), %d byte(s) of source data\n", m.Len(), m.TotalSize())
	return nil
}

var publish = publishCommand{
	Description: "scan a source tree and publish chunk archives plus a manifest",
	Synopsis:    "-source-root DIR -archive-root DIR -manifest FILE",
	Overview:    "Writes one chunk archive per file under -source-root into -archive-root, then writes the resulting manifest to -manifest.",
}

func init() {
	publish.Var(&publish.sourceRoot, "source-root", "directory tree to publish")
	publish.Var(&publish.archiveRoot, "archive-root", "directory to write chunk archives into")
	publish.Var(&publish.manifestPath, "manifest", "path to write the resulting manifest.json to")
	publish.BoolVar(&publish.verbose, "v", false, "log each file as it is published")
	subcommands.Register(&publish)
}

func main() {
	log.SetFlags(0)
	log.SetPrefix("patchpublish: ")

	result, err := subcommands.Parse(&publish, "patchpublish", os.Args[1:])
	if err == flag.ErrHelp {
		result.Usage()
		os.Exit(0)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", result.Name(), err)
		result.Usage()
		os.Exit(2)
	}

	if err := publish.Run(); err != nil {
		log.Fatalf("%v", err)
	}
}
