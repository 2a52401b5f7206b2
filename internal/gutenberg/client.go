// Package gutenberg fetches public-domain book texts from allow-listed
// upstream hosts.
package gutenberg

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

var (
	ErrHostNotAllowed = errors.New("upstream host not allowed")
	ErrInvalidURL     = errors.New("invalid text url")
	ErrUpstreamFailed = errors.New("upstream fetch failed")
)

// Client fetches plain-text book content. Requests are bounded by the
// configured timeout so a stalled upstream cannot hang a request.
type Client struct {
	httpClient   *http.Client
	allowedHosts map[string]bool
}

// NewClient creates a text fetcher restricted to the given hosts.
func NewClient(allowedHosts []string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	hosts := make(map[string]bool, len(allowedHosts))
	for _, host := range allowedHosts {
		hosts[host] = true
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		allowedHosts: hosts,
	}
}

// FetchText validates the stored source URL against the allow-list and
// returns the upstream body. The allow-list check happens before any
// network I/O, so an off-list URL is rejected even when well-formed.
func (c *Client) FetchText(ctx context.Context, rawURL string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return "", ErrInvalidURL
	}

	if !c.allowedHosts[parsed.Hostname()] {
		return "", ErrHostNotAllowed
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, parsed.String(), nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "text/plain")
	req.Header.Set("User-Agent", "OpenShelf/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUpstreamFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: status %d", ErrUpstreamFailed, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUpstreamFailed, err)
	}

	return string(body), nil
}
