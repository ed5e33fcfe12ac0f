// internal/adapter/creativecenter/client.go

package creativecenter

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const maxPageBytes = 8 << 20

// Config holds client configuration
type Config struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration
}

// Client fetches the music trends page for a region
type Client struct {
	config     Config
	httpClient *http.Client
}

// NewClient creates a new Creative Center client
func NewClient(config Config) *Client {
	if config.Timeout <= 0 {
		config.Timeout = 20 * time.Second
	}

	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}
}

// FetchPage downloads the raw page for a region code
func (c *Client) FetchPage(ctx context.Context, region string) ([]byte, error) {
	u, err := url.Parse(c.config.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}
	q := u.Query()
	q.Set("countryCode", region)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}

	req.Header.Set("User-Agent", c.config.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error fetching page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d for region %s", resp.StatusCode, region)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return nil, fmt.Errorf("error reading page: %w", err)
	}

	return body, nil
}

// Fetch downloads and parses the trend records for a region
func (c *Client) Fetch(ctx context.Context, region string) ([]TrendRecord, error) {
	body, err := c.FetchPage(ctx, region)
	if err != nil {
		return nil, err
	}

	return ParsePage(body)
}
