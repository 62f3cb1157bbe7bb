// Package clob fetches market metadata and price history from the Polymarket
// CLOB REST API. Only the public read endpoints are covered; request signing
// and API-key management live with the caller's infrastructure.
package clob

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"polymarket-feature-lab/internal/domain"
	"polymarket-feature-lab/internal/observability"
)

// Default configuration values.
const (
	DefaultHost        = "https://clob.polymarket.com"
	DefaultTimeout     = 30 * time.Second
	DefaultMaxRetries  = 3
	DefaultRetryDelay  = 1 * time.Second
	DefaultMaxDelay    = 10 * time.Second
	DefaultBackoffMult = 2.0
	DefaultFidelity    = 60 // minutes per history sample (hourly)
)

// Config carries all client settings explicitly; there is no package-level
// state and no environment lookup inside the client.
type Config struct {
	Host        string
	Timeout     time.Duration
	MaxRetries  int
	RetryDelay  time.Duration
	MaxDelay    time.Duration
	BackoffMult float64
	Fidelity    int                    // history resolution in minutes
	HTTPClient  *http.Client           // optional, for tests
	Metrics     *observability.Metrics // optional
}

// withDefaults fills zero-valued fields.
func (c Config) withDefaults() Config {
	if c.Host == "" {
		c.Host = DefaultHost
	}
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = DefaultMaxRetries
	}
	if c.RetryDelay == 0 {
		c.RetryDelay = DefaultRetryDelay
	}
	if c.MaxDelay == 0 {
		c.MaxDelay = DefaultMaxDelay
	}
	if c.BackoffMult == 0 {
		c.BackoffMult = DefaultBackoffMult
	}
	if c.Fidelity == 0 {
		c.Fidelity = DefaultFidelity
	}
	return c
}

// Client is an HTTP client for the CLOB read API.
type Client struct {
	cfg    Config
	client *http.Client
}

// NewClient creates a new client from explicit configuration.
func NewClient(cfg Config) *Client {
	cfg = cfg.withDefaults()
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{cfg: cfg, client: httpClient}
}

// FetchMarkets retrieves all markets, following the pagination cursor until
// the end sentinel.
func (c *Client) FetchMarkets(ctx context.Context) ([]*domain.MarketRecord, error) {
	var records []*domain.MarketRecord
	cursor := ""

	for {
		q := url.Values{}
		if cursor != "" {
			q.Set("next_cursor", cursor)
		}

		var page marketsResponse
		if err := c.get(ctx, "/markets", q, &page); err != nil {
			c.countError("markets")
			return nil, fmt.Errorf("fetch markets page: %w", err)
		}

		for _, m := range page.Data {
			records = append(records, m.toDomain())
		}
		if c.cfg.Metrics != nil {
			c.cfg.Metrics.MarketsFetched.Add(float64(len(page.Data)))
		}

		if page.NextCursor == "" || page.NextCursor == endCursor {
			break
		}
		cursor = page.NextCursor
	}

	return records, nil
}

// FetchPriceHistory retrieves the full price history for one instrument at
// the configured fidelity.
func (c *Client) FetchPriceHistory(ctx context.Context, tokenID string) ([]PricePoint, error) {
	q := url.Values{}
	q.Set("market", tokenID)
	q.Set("interval", "max")
	q.Set("fidelity", strconv.Itoa(c.cfg.Fidelity))

	var resp historyResponse
	if err := c.get(ctx, "/prices-history", q, &resp); err != nil {
		c.countError("prices-history")
		return nil, fmt.Errorf("fetch price history for %s: %w", tokenID, err)
	}
	if c.cfg.Metrics != nil {
		c.cfg.Metrics.ObservationsFetched.Add(float64(len(resp.History)))
	}
	return resp.History, nil
}

// countError increments the per-endpoint fetch error counter when metrics
// are wired.
func (c *Client) countError(endpoint string) {
	if c.cfg.Metrics != nil {
		c.cfg.Metrics.FetchErrors.WithLabelValues(endpoint).Inc()
	}
}

// get performs a GET with retries and exponential backoff. Server-side and
// transport failures retry; client errors (4xx other than 429) do not.
func (c *Client) get(ctx context.Context, path string, query url.Values, result interface{}) error {
	endpoint := c.cfg.Host + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	delay := c.cfg.RetryDelay
	var lastErr error

	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			delay = time.Duration(float64(delay) * c.cfg.BackoffMult)
			if delay > c.cfg.MaxDelay {
				delay = c.cfg.MaxDelay
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.client.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("http request: %w", err)
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("read response body: %w", err)
			continue
		}

		switch {
		case resp.StatusCode == http.StatusOK:
			if err := json.Unmarshal(body, result); err != nil {
				return fmt.Errorf("decode response: %w", err)
			}
			return nil
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			lastErr = fmt.Errorf("http status %d: %s", resp.StatusCode, string(body))
			continue
		default:
			return fmt.Errorf("http status %d: %s", resp.StatusCode, string(body))
		}
	}

	return fmt.Errorf("all retries failed: %w", lastErr)
}
