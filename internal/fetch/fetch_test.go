package fetch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/luminakraft/modpack-engine/internal/engineerr"
	"github.com/luminakraft/modpack-engine/internal/logging"
)

func newTestFetcher() *Fetcher {
	return New(logging.Noop())
}

func TestFetchSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("mod contents"))
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "mod.jar")
	f := newTestFetcher()

	err := f.Fetch(context.Background(), Request{URL: srv.URL, Destination: dest})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("read downloaded file: %v", err)
	}
	if string(data) != "mod contents" {
		t.Errorf("unexpected content: %s", data)
	}
}

func TestFetchVerifiesHash(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("mod contents"))
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "mod.jar")
	f := newTestFetcher()

	req := Request{
		URL:          srv.URL,
		Destination:  dest,
		HashAlgo:     HashSHA256,
		ExpectedHash: mustSHA256("mod contents"),
	}
	if err := f.Fetch(context.Background(), req); err != nil {
		t.Fatalf("Fetch: %v", err)
	}
}

func TestFetchDeletesFileOnHashMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("wrong contents"))
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "mod.jar")
	f := newTestFetcher()

	req := Request{
		URL:          srv.URL,
		Destination:  dest,
		HashAlgo:     HashSHA256,
		ExpectedHash: mustSHA256("mod contents"),
		MaxAttempts:  1,
	}
	err := f.Fetch(context.Background(), req)
	if err == nil {
		t.Fatal("expected hash mismatch error")
	}
	if !engineerr.Is(err, engineerr.KindHashMismatch) {
		t.Errorf("expected KindHashMismatch, got %v", err)
	}
	if _, statErr := os.Stat(dest); !os.IsNotExist(statErr) {
		t.Error("expected mismatched file to be deleted")
	}
}

func TestFetchNoRetryOn401(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "mod.jar")
	f := newTestFetcher()

	err := f.Fetch(context.Background(), Request{URL: srv.URL, Destination: dest})
	if err == nil {
		t.Fatal("expected error")
	}
	if !engineerr.Is(err, engineerr.KindHTTPAuth) {
		t.Errorf("expected KindHTTPAuth, got %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("expected exactly 1 call (no retry on 401), got %d", got)
	}
}

func TestFetchRetriesOn5xxThenSucceeds(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		if n < 2 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "mod.jar")
	f := newTestFetcher()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := f.Fetch(ctx, Request{URL: srv.URL, Destination: dest}); err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Errorf("expected 2 calls, got %d", got)
	}
}

func TestDownloadAllBoundsConcurrencyAndReportsPerRequest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("data"))
	}))
	defer srv.Close()

	dir := t.TempDir()
	var reqs []Request
	for i := 0; i < 5; i++ {
		reqs = append(reqs, Request{URL: srv.URL, Destination: filepath.Join(dir, "file")})
	}

	f := newTestFetcher()
	var successCount int32
	err := f.DownloadAll(context.Background(), reqs, 2, func(r Request, err error) {
		if err == nil {
			atomic.AddInt32(&successCount, 1)
		}
	})
	if err != nil {
		t.Fatalf("DownloadAll: %v", err)
	}
	if got := atomic.LoadInt32(&successCount); got != 5 {
		t.Errorf("expected 5 successes, got %d", got)
	}
}

func mustSHA256(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}
