package transport_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rednimgames/rose-updater/errs"
	"github.com/rednimgames/rose-updater/transport"
)

func TestReadRangeSetsRangeHeader(t *testing.T) {
	var gotRange string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotRange = r.Header.Get("Range")
		w.WriteHeader(http.StatusPartialContent)
		w.Write([]byte("hello"))
	}))
	defer srv.Close()

	c := transport.New(srv.URL, transport.DefaultConfig())
	data, err := c.ReadRange(context.Background(), "archive.rcar", 10, 5)
	if err != nil {
		t.Fatalf("ReadRange: %v", err)
	}
	if string(data) != "hello" {
		t.Fatalf("data = %q", data)
	}
	if gotRange != "bytes=10-14" {
		t.Fatalf("Range header = %q, want bytes=10-14", gotRange)
	}
}

func TestRetriesOn5xxThenSucceeds(t *testing.T) {
	var attempts int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&attempts, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	cfg := transport.DefaultConfig()
	cfg.BackoffBase = time.Millisecond
	cfg.BackoffCap = 5 * time.Millisecond
	c := transport.New(srv.URL, cfg)

	data, err := c.GetManifest(context.Background(), "manifest.json")
	if err != nil {
		t.Fatalf("GetManifest: %v", err)
	}
	if string(data) != "ok" {
		t.Fatalf("data = %q", data)
	}
	if attempts != 3 {
		t.Fatalf("attempts = %d, want 3", attempts)
	}
}

func TestDoesNotRetryOn4xx(t *testing.T) {
	var attempts int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	cfg := transport.DefaultConfig()
	cfg.BackoffBase = time.Millisecond
	c := transport.New(srv.URL, cfg)

	_, err := c.GetManifest(context.Background(), "missing.json")
	if err == nil {
		t.Fatalf("expected an error")
	}
	if errs.KindOf(err) != errs.NetworkFatal {
		t.Fatalf("KindOf = %v, want NetworkFatal", errs.KindOf(err))
	}
	if attempts != 1 {
		t.Fatalf("attempts = %d, want 1 (no retry on 4xx)", attempts)
	}
}
