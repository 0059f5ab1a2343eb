// Package progress reports sync and publish progress as a stream of
// structured events, so a CLI, a GUI launcher, or a log aggregator can
// all consume the same event shape.
package progress

import (
	"io"

	"github.com/tv42/jog"
)

// Kind classifies a progress event.
type Kind string

const (
	KindManifestFetch Kind = "manifest_fetch"
	KindManifestSaved Kind = "manifest_saved"
	KindFileStart     Kind = "file_start"
	KindFileProgress  Kind = "file_progress"
	KindFileComplete  Kind = "file_complete"
	KindFileFailed    Kind = "file_failed"
	KindSyncComplete  Kind = "sync_complete"
)

// Phase distinguishes where in a file's reconstruction bytes_done is
// being measured.
type Phase string

const (
	PhaseLocal  Phase = "local"
	PhaseCache  Phase = "cache"
	PhaseRemote Phase = "remote"
)

// Event is one progress update.
type Event struct {
	Kind       Kind   `json:"kind"`
	Path       string `json:"path,omitempty"`
	BytesDone  int64  `json:"bytes_done"`
	BytesTotal int64  `json:"bytes_total"`
	Phase      Phase  `json:"phase,omitempty"`
	Err        string `json:"err,omitempty"`

	// FileCount is set on KindManifestSaved: the number of files the
	// saved manifest describes.
	FileCount int `json:"file_count,omitempty"`
}

// Sink receives progress events as they occur.
type Sink interface {
	Report(Event)
}

// LogSink reports events as structured log lines via jog.
type LogSink struct {
	log *jog.Logger
}

// NewLogSink returns a Sink that writes one JSON-ish event per line to
// w. Passing nil uses jog's default destination.
func NewLogSink(w io.Writer) *LogSink {
	return &LogSink{log: jog.New(&jog.Config{Out: w})}
}

func (s *LogSink) Report(ev Event) {
	s.log.Event(ev)
}

// MemorySink collects every event it is given, for use in tests.
type MemorySink struct {
	Events []Event
}

func (s *MemorySink) Report(ev Event) {
	s.Events = append(s.Events, ev)
}

// Multi fans a single report out to several sinks, e.g. a LogSink for
// the audit trail plus an in-process sink feeding a progress bar.
type Multi []Sink

func (m Multi) Report(ev Event) {
	for _, s := range m {
		s.Report(ev)
	}
}
