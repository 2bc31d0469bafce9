// Package fetch implements the engine's HTTP download contract: bounded
// concurrency, a retry/backoff policy differentiated by error class,
// and atomic writes with optional hash verification.
package fetch

import (
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/luminakraft/modpack-engine/internal/engineerr"
	"github.com/luminakraft/modpack-engine/internal/hashsign"
	"github.com/luminakraft/modpack-engine/internal/logging"
)

const userAgent = "modpack-engine/1.0 (+https://luminakraft.com)"

// HashAlgo selects which digest ExpectedHash is compared against.
type HashAlgo int

const (
	HashNone HashAlgo = iota
	HashSHA1
	HashSHA256
)

// Request describes one file fetch.
type Request struct {
	URL           string
	Destination   string
	ExpectedHash  string
	HashAlgo      HashAlgo
	Timeout       time.Duration // zero uses the Fetcher's file-download timeout (180s)
	Unbounded     bool          // retries forever with a fixed gap instead of capping at 3 attempts
	MaxAttempts   int           // zero uses the policy default (3)
}

// Fetcher performs HTTP downloads under a configurable concurrency cap.
type Fetcher struct {
	client      *http.Client
	logger      *logging.Logger
	apiTimeout  time.Duration
	fileTimeout time.Duration
}

// New creates a Fetcher. concurrency is enforced by callers via
// DownloadAll; Fetcher itself is safe for concurrent use.
func New(logger *logging.Logger) *Fetcher {
	return &Fetcher{
		client:      &http.Client{},
		logger:      logger,
		apiTimeout:  30 * time.Second,
		fileTimeout: 180 * time.Second,
	}
}

// Fetch downloads one file per req, retrying per the policy in spec
// §4.B: 429 gets base*attempt² backoff with a 5s base, 5xx gets linear
// backoff, other 4xx does not retry, and connection errors get a short
// fixed backoff — or, when req.Unbounded is set, unbounded retries with
// a 5s gap.
func (f *Fetcher) Fetch(ctx context.Context, req Request) error {
	if err := os.MkdirAll(filepath.Dir(req.Destination), 0755); err != nil {
		return engineerr.New(engineerr.KindFilesystem, "fetch.Fetch", err).WithPath(req.Destination)
	}

	timeout := req.Timeout
	if timeout == 0 {
		timeout = f.fileTimeout
	}

	maxAttempts := req.MaxAttempts
	if maxAttempts == 0 {
		maxAttempts = 3
	}

	attempt := 0
	for {
		attempt++

		err := f.attempt(ctx, req, timeout)
		if err == nil {
			return f.verify(req)
		}

		kind, _ := engineerr.KindOf(err)

		if !req.Unbounded && attempt >= maxAttempts {
			return err
		}
		if kind == engineerr.KindHTTPAuth || kind == engineerr.KindHTTPClient {
			return err
		}

		delay := backoffDelay(kind, attempt, req.Unbounded)
		if d, ok := engineerr.RetryAfterOf(err); ok {
			delay = d
		}
		f.logger.Debug("retrying %s after %v (attempt %d, kind %s)", req.URL, delay, attempt, kind)

		select {
		case <-ctx.Done():
			return engineerr.New(engineerr.KindCancelled, "fetch.Fetch", ctx.Err()).WithPath(req.URL)
		case <-time.After(delay):
		}
	}
}

func (f *Fetcher) attempt(ctx context.Context, req Request, timeout time.Duration) error {
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(reqCtx, http.MethodGet, req.URL, nil)
	if err != nil {
		return engineerr.New(engineerr.KindNetwork, "fetch.attempt", err).WithPath(req.URL)
	}
	httpReq.Header.Set("User-Agent", userAgent)

	resp, err := f.client.Do(httpReq)
	if err != nil {
		return engineerr.New(engineerr.KindNetwork, "fetch.attempt", err).WithPath(req.URL)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return f.writeBody(resp.Body, req.Destination)
	}

	return classifyStatus(resp, req.URL)
}

func (f *Fetcher) writeBody(body io.Reader, destination string) error {
	tmpPath := destination + ".tmp"

	out, err := os.Create(tmpPath)
	if err != nil {
		return engineerr.New(engineerr.KindFilesystem, "fetch.writeBody", err).WithPath(tmpPath)
	}

	if _, err := io.Copy(out, body); err != nil {
		out.Close()
		os.Remove(tmpPath)
		return engineerr.New(engineerr.KindNetwork, "fetch.writeBody", err).WithPath(destination)
	}
	if err := out.Close(); err != nil {
		os.Remove(tmpPath)
		return engineerr.New(engineerr.KindFilesystem, "fetch.writeBody", err).WithPath(destination)
	}

	info, err := os.Stat(tmpPath)
	if err != nil || info.Size() == 0 {
		os.Remove(tmpPath)
		return engineerr.New(engineerr.KindNetwork, "fetch.writeBody", errEmptyBody).WithPath(destination)
	}

	if err := os.Rename(tmpPath, destination); err != nil {
		os.Remove(tmpPath)
		return engineerr.New(engineerr.KindFilesystem, "fetch.writeBody", err).WithPath(destination)
	}

	return nil
}

func (f *Fetcher) verify(req Request) error {
	if req.HashAlgo == HashNone || req.ExpectedHash == "" {
		return nil
	}

	var actual string
	var err error
	switch req.HashAlgo {
	case HashSHA1:
		actual, err = hashsign.SHA1File(req.Destination)
	case HashSHA256:
		actual, err = hashsign.SHA256File(req.Destination)
	}
	if err != nil {
		return err
	}

	if !equalFoldHex(actual, req.ExpectedHash) {
		os.Remove(req.Destination)
		return engineerr.New(engineerr.KindHashMismatch, "fetch.verify",
			errHashMismatch).WithPath(req.Destination)
	}

	return nil
}

func classifyStatus(resp *http.Response, url string) error {
	status := resp.StatusCode

	switch {
	case status == http.StatusTooManyRequests:
		err := engineerr.New(engineerr.KindHTTPRate, "fetch.classifyStatus", errHTTPStatus).WithPath(url).WithStatus(status)
		if d, ok := retryAfter(resp); ok {
			err = err.WithRetryAfter(d)
		}
		return err
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return engineerr.New(engineerr.KindHTTPAuth, "fetch.classifyStatus", errHTTPStatus).WithPath(url).WithStatus(status)
	case status >= 500:
		return engineerr.New(engineerr.KindHTTPServer, "fetch.classifyStatus", errHTTPStatus).WithPath(url).WithStatus(status)
	default:
		return engineerr.New(engineerr.KindHTTPClient, "fetch.classifyStatus", errHTTPStatus).WithPath(url).WithStatus(status)
	}
}

// backoffDelay implements spec §4.B's per-kind backoff schedule. The
// base for 429s here is 5s, not the 2s internal/curseforge/api.go uses
// for its own batchBackoff — Fetch is only ever called for single-file
// downloads (the archive, mod jars, Modrinth files), never for the
// CurseForge API's batched file-resolution calls.
func backoffDelay(kind engineerr.Kind, attempt int, unbounded bool) time.Duration {
	switch kind {
	case engineerr.KindHTTPRate:
		return time.Duration(attempt*attempt) * 5 * time.Second
	case engineerr.KindHTTPServer:
		return time.Duration(attempt) * time.Second
	case engineerr.KindNetwork:
		if unbounded {
			return 5 * time.Second
		}
		return 200 * time.Millisecond
	default:
		return time.Duration(attempt) * time.Second
	}
}

func retryAfter(resp *http.Response) (time.Duration, bool) {
	v := resp.Header.Get("Retry-After")
	if v == "" {
		return 0, false
	}
	seconds, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return time.Duration(seconds) * time.Second, true
}
