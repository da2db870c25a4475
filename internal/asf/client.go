// Package asf is a client for the ASF Search API and the Earthdata-protected
// download endpoints it links to.
package asf

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"time"
)

// DefaultLoginHost is the Earthdata login host downloads are redirected through.
const DefaultLoginHost = "urs.earthdata.nasa.gov"

// maxRedirects matches net/http's own limit.
const maxRedirects = 10

var (
	// ErrGranuleNotFound is returned when a granule lookup has no results.
	ErrGranuleNotFound = errors.New("granule not found")

	// ErrUnauthorized is returned when Earthdata rejects the credentials.
	ErrUnauthorized = errors.New("earthdata authorization failed")
)

// Credentials authenticate downloads. Token takes precedence over Username/Password.
type Credentials struct {
	Username string
	Password string
	Token    string
}

// IsZero reports whether no credentials are set.
func (c Credentials) IsZero() bool {
	return c.Token == "" && c.Username == "" && c.Password == ""
}

// Client handles communication with the ASF Search API
type Client struct {
	baseURL       string
	httpClient    *http.Client
	searchTimeout time.Duration
	creds         Credentials
	loginHost     string
	logger        *slog.Logger
}

// NewClient creates a new ASF API client. timeout bounds searches only;
// downloads are bounded by their context.
func NewClient(baseURL string, timeout time.Duration) *Client {
	jar, _ := cookiejar.New(nil)
	c := &Client{
		baseURL:       baseURL,
		searchTimeout: timeout,
		loginHost:     DefaultLoginHost,
		logger:        slog.Default(),
	}
	c.httpClient = &http.Client{
		Jar: jar,
		Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 100,
			IdleConnTimeout:     90 * time.Second,
		},
		CheckRedirect: c.checkRedirect,
	}
	return c
}

// WithLogger sets a custom logger for the client
func (c *Client) WithLogger(logger *slog.Logger) *Client {
	c.logger = logger
	return c
}

// WithCredentials sets the Earthdata credentials used for downloads.
func (c *Client) WithCredentials(creds Credentials) *Client {
	c.creds = creds
	return c
}

// WithLoginHost overrides the host that receives basic auth during redirects.
func (c *Client) WithLoginHost(host string) *Client {
	c.loginHost = host
	return c
}

// Search performs a search against the ASF API
func (c *Client) Search(ctx context.Context, params SearchParams) (*SearchResponse, error) {
	searchURL, err := c.buildSearchURL(params)
	if err != nil {
		return nil, fmt.Errorf("failed to build search URL: %w", err)
	}

	c.logger.DebugContext(ctx, "executing ASF search",
		slog.String("url", searchURL),
	)

	if c.searchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.searchTimeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.ErrorContext(ctx, "ASF API request failed",
			slog.String("error", err.Error()),
			slog.String("url", searchURL),
		)
		return nil, fmt.Errorf("ASF API request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		c.logger.ErrorContext(ctx, "ASF API returned non-200 status",
			slog.Int("status_code", resp.StatusCode),
			slog.String("response_body", string(body)),
		)
		return nil, fmt.Errorf("ASF API returned status %d: %s", resp.StatusCode, string(body))
	}

	var result SearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		c.logger.ErrorContext(ctx, "failed to decode ASF response",
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("failed to decode ASF response: %w", err)
	}

	c.logger.DebugContext(ctx, "ASF search completed",
		slog.Int("feature_count", len(result.Features)),
	)

	return &result, nil
}

// GetGranule retrieves a single granule by scene name or fileID.
// ASF may return several products per scene, so an exact fileID match wins.
func (c *Client) GetGranule(ctx context.Context, itemID string) (*Feature, error) {
	c.logger.DebugContext(ctx, "fetching granule",
		slog.String("item_id", itemID),
	)

	result, err := c.Search(ctx, SearchParams{
		GranuleList: []string{itemID},
		Output:      "geojson",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search for granule: %w", err)
	}

	if len(result.Features) == 0 {
		c.logger.WarnContext(ctx, "granule not found",
			slog.String("item_id", itemID),
		)
		return nil, fmt.Errorf("%w: %s", ErrGranuleNotFound, itemID)
	}

	if len(result.Features) == 1 {
		return &result.Features[0], nil
	}

	for i := range result.Features {
		if result.Features[i].Properties.FileID == itemID {
			return &result.Features[i], nil
		}
	}

	c.logger.DebugContext(ctx, "no exact fileID match, using first result",
		slog.String("item_id", itemID),
		slog.Int("result_count", len(result.Features)),
	)
	return &result.Features[0], nil
}

// Download streams the file at rawURL into w and returns the number of bytes written.
func (c *Client) Download(ctx context.Context, rawURL string, w io.Writer) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	if c.creds.Token != "" {
		// net/http drops Authorization when a redirect leaves the original host
		req.Header.Set("Authorization", "Bearer "+c.creds.Token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("download request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return 0, fmt.Errorf("%w: status %d for %s", ErrUnauthorized, resp.StatusCode, redact(rawURL))
	case resp.StatusCode != http.StatusOK:
		return 0, fmt.Errorf("download of %s returned status %d", redact(rawURL), resp.StatusCode)
	}

	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return n, fmt.Errorf("download of %s interrupted after %d bytes: %w", redact(rawURL), n, err)
	}
	return n, nil
}

// checkRedirect re-sends basic auth only to the Earthdata login host.
func (c *Client) checkRedirect(req *http.Request, via []*http.Request) error {
	if len(via) >= maxRedirects {
		return fmt.Errorf("stopped after %d redirects", maxRedirects)
	}
	if c.creds.Token == "" && c.creds.Username != "" && req.URL.Hostname() == c.loginHost {
		req.SetBasicAuth(c.creds.Username, c.creds.Password)
	}
	return nil
}

// buildSearchURL constructs the full search URL with query parameters
func (c *Client) buildSearchURL(params SearchParams) (string, error) {
	base, err := url.Parse(c.baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid base URL: %w", err)
	}

	base.Path = "/services/search/param"
	base.RawQuery = params.ToQueryString()

	return base.String(), nil
}

const userAgent = "s1prep/1.0"

// redact drops the query string, which can carry signed tokens.
func redact(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "<invalid url>"
	}
	u.RawQuery = ""
	u.User = nil
	return u.String()
}
