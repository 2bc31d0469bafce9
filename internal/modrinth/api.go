package modrinth

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/luminakraft/modpack-engine/internal/types"
)

const (
	versionLookupBaseURL = "https://api.modrinth.com/v2"
	apiUserAgent         = "modpack-engine/1.0 (+https://luminakraft.com)"
)

// Client looks up Modrinth version metadata by file hash, used only to
// enrich a failed-download record with a human-readable project name.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// NewClient creates a Client against the public Modrinth API.
func NewClient() *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		baseURL:    versionLookupBaseURL,
	}
}

// VersionByHash looks up the version carrying a file with the given
// SHA-1 hash. Returns nil on any failure — this is a best-effort
// enrichment step, never something worth failing an install over.
func (c *Client) VersionByHash(ctx context.Context, sha1 string) *types.ModrinthVersion {
	if sha1 == "" {
		return nil
	}

	url := c.baseURL + "/version_file/" + sha1 + "?algorithm=sha1"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil
	}
	req.Header.Set("User-Agent", apiUserAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil
	}

	var version types.ModrinthVersion
	if err := json.Unmarshal(data, &version); err != nil {
		return nil
	}
	return &version
}
