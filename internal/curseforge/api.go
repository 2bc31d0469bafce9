package curseforge

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/luminakraft/modpack-engine/internal/engineerr"
	"github.com/luminakraft/modpack-engine/internal/logging"
	"github.com/luminakraft/modpack-engine/internal/types"
)

const (
	defaultProxyBaseURL = "https://api.luminakraft.com/v1/curseforge"
	batchSize           = 50
	batchInterDelay     = 500 * time.Millisecond
	apiUserAgent        = "modpack-engine/1.0 (+https://luminakraft.com)"
)

// apiResponse mirrors the proxy's {"data": [...]} envelope.
type apiResponse struct {
	Data []types.ModFileInfo `json:"data"`
}

// Client talks to the CurseForge resolution proxy.
type Client struct {
	httpClient *http.Client
	logger     *logging.Logger
	baseURL    string
	authToken  string // Bearer <token> (Microsoft) or a bare offline token
}

// NewClient creates a Client using the default proxy base URL.
func NewClient(logger *logging.Logger, authToken string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger,
		baseURL:    defaultProxyBaseURL,
		authToken:  authToken,
	}
}

// SetBaseURL points the client at a different proxy, e.g. a
// self-hosted instance or a test server.
func (c *Client) SetBaseURL(url string) {
	c.baseURL = url
}

// ResolveResult is the outcome of resolving a set of file IDs: infos for
// files the proxy returned, and the number of files whose batch failed
// after retries (API-level errors, not "file not found" — those are just
// absent from Infos).
type ResolveResult struct {
	Infos         []types.ModFileInfo
	APIErrorCount int
}

// ResolveFiles batch-resolves fileIDs to download URLs and hashes via the
// proxy's /mods/files endpoint, chunking into groups of at most 50 and
// pausing between batches to respect the proxy's rate budget. A 404 for a
// batch is treated as "some files not found" rather than an error. A
// failed batch (after its own retries) does not abort the whole resolve —
// its file IDs are counted in APIErrorCount so the caller can apply the
// 75%-error abort threshold. Only an authentication failure (401/403)
// aborts immediately, since no amount of retrying will fix it.
func (c *Client) ResolveFiles(ctx context.Context, fileIDs []int64) (ResolveResult, error) {
	var result ResolveResult

	for i := 0; i < len(fileIDs); i += batchSize {
		end := i + batchSize
		if end > len(fileIDs) {
			end = len(fileIDs)
		}
		chunk := fileIDs[i:end]

		infos, err := c.resolveBatch(ctx, chunk)
		if err != nil {
			kind, _ := engineerr.KindOf(err)
			if kind == engineerr.KindHTTPAuth {
				return result, err
			}
			c.logger.Warn("curseforge api batch of %d files failed, counting as API errors: %v", len(chunk), err)
			result.APIErrorCount += len(chunk)
		} else {
			result.Infos = append(result.Infos, infos...)
		}

		if end < len(fileIDs) {
			select {
			case <-ctx.Done():
				return result, engineerr.New(engineerr.KindCancelled, "curseforge.ResolveFiles", ctx.Err())
			case <-time.After(batchInterDelay):
			}
		}
	}

	return result, nil
}

func (c *Client) resolveBatch(ctx context.Context, fileIDs []int64) ([]types.ModFileInfo, error) {
	const maxAttempts = 3
	body, err := json.Marshal(types.GetModFilesRequest{FileIDs: fileIDs})
	if err != nil {
		return nil, engineerr.New(engineerr.KindManifestInvalid, "curseforge.resolveBatch", err)
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		resp, notFound, err := c.postFiles(ctx, body)
		if err != nil {
			kind, _ := engineerr.KindOf(err)
			if kind == engineerr.KindHTTPAuth {
				return nil, err
			}
			lastErr = err
			if attempt == maxAttempts {
				return nil, err
			}
			c.logger.Debug("curseforge api batch failed (attempt %d/%d): %v", attempt, maxAttempts, err)

			delay := batchBackoff(kind, attempt)
			select {
			case <-ctx.Done():
				return nil, engineerr.New(engineerr.KindCancelled, "curseforge.resolveBatch", ctx.Err())
			case <-time.After(delay):
			}
			continue
		}
		if notFound {
			return nil, nil
		}
		return resp, nil
	}

	return nil, lastErr
}

func (c *Client) postFiles(ctx context.Context, body []byte) ([]types.ModFileInfo, bool, error) {
	url := c.baseURL + "/mods/files"

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, false, engineerr.New(engineerr.KindNetwork, "curseforge.postFiles", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", apiUserAgent)
	if c.authToken != "" {
		if strings.HasPrefix(c.authToken, "Bearer ") {
			req.Header.Set("Authorization", c.authToken)
		} else {
			req.Header.Set("x-lk-token", c.authToken)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, false, engineerr.New(engineerr.KindNetwork, "curseforge.postFiles", err).WithPath(url)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, true, nil
	}
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, false, engineerr.New(engineerr.KindHTTPAuth, "curseforge.postFiles", errAPIAuth).WithPath(url).WithStatus(resp.StatusCode)
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, false, engineerr.New(engineerr.KindHTTPRate, "curseforge.postFiles", errAPIStatus).WithPath(url).WithStatus(resp.StatusCode)
	}
	if resp.StatusCode >= 500 {
		return nil, false, engineerr.New(engineerr.KindHTTPServer, "curseforge.postFiles", errAPIStatus).WithPath(url).WithStatus(resp.StatusCode)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, false, engineerr.New(engineerr.KindHTTPClient, "curseforge.postFiles", errAPIStatus).WithPath(url).WithStatus(resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, false, engineerr.New(engineerr.KindNetwork, "curseforge.postFiles", err).WithPath(url)
	}

	var decoded apiResponse
	if err := json.Unmarshal(data, &decoded); err != nil {
		return nil, false, engineerr.New(engineerr.KindManifestInvalid, "curseforge.postFiles", err).WithPath(url)
	}

	return decoded.Data, false, nil
}

// batchBackoff follows spec §4.B's API-batch constants: 429 uses a 2s
// base (base*attempt²), 5xx linear, everything else a short fixed delay.
func batchBackoff(kind engineerr.Kind, attempt int) time.Duration {
	switch kind {
	case engineerr.KindHTTPRate:
		return time.Duration(attempt*attempt) * 2 * time.Second
	case engineerr.KindHTTPServer:
		return time.Duration(attempt) * time.Second
	default:
		return 200 * time.Millisecond
	}
}
