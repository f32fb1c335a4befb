// Package lookup resolves taxpayer identifiers to company display names via a
// public registry API. Results are best-effort decoration only; failures here
// never block an acquisition.
package lookup

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"certhub/internal/acquire"
	"certhub/internal/domain"
	"certhub/pkg/platform/circuit"
)

const defaultBaseURL = "https://brasilapi.com.br"

// maxCacheEntries bounds the in-process cache. Eviction is whole-cache reset:
// the working set is a handful of companies, so anything fancier buys nothing.
const maxCacheEntries = 256

// Client is a caching name resolver backed by the registry API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        *slog.Logger
	breaker    *circuit.Breaker

	mu    sync.Mutex
	cache map[domain.TaxpayerID]acquire.CompanyLabels
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the registry endpoint, mainly for tests.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.baseURL = u
		}
	}
}

// WithHTTPClient overrides the transport.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithLogger sets the logger.
func WithLogger(log *slog.Logger) Option {
	return func(c *Client) {
		if log != nil {
			c.log = log
		}
	}
}

// New builds a lookup client.
func New(opts ...Option) *Client {
	c := &Client{
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		log:        slog.Default(),
		breaker:    circuit.New("registry"),
		cache:      make(map[domain.TaxpayerID]acquire.CompanyLabels),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type registryResponse struct {
	LegalName string `json:"razao_social"`
	TradeName string `json:"nome_fantasia"`
}

// Resolve returns the company labels for an identifier, serving repeats from
// cache. Only successful lookups are cached; a flaky registry stays retryable.
func (c *Client) Resolve(ctx context.Context, id domain.TaxpayerID) (acquire.CompanyLabels, error) {
	c.mu.Lock()
	if labels, ok := c.cache[id]; ok {
		c.mu.Unlock()
		return labels, nil
	}
	c.mu.Unlock()

	labels, err := c.fetch(ctx, id)
	if err != nil {
		c.recordFailure(err)
		return acquire.CompanyLabels{}, err
	}
	c.recordSuccess()

	c.mu.Lock()
	if len(c.cache) >= maxCacheEntries {
		c.cache = make(map[domain.TaxpayerID]acquire.CompanyLabels)
	}
	c.cache[id] = labels
	c.mu.Unlock()
	return labels, nil
}

func (c *Client) fetch(ctx context.Context, id domain.TaxpayerID) (acquire.CompanyLabels, error) {
	url := fmt.Sprintf("%s/api/cnpj/v1/%s", c.baseURL, id)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return acquire.CompanyLabels{}, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return acquire.CompanyLabels{}, fmt.Errorf("call registry: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return acquire.CompanyLabels{}, fmt.Errorf("registry has no entry for %s", id)
	}
	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return acquire.CompanyLabels{}, fmt.Errorf("registry returned HTTP %d", resp.StatusCode)
	}

	var body registryResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return acquire.CompanyLabels{}, fmt.Errorf("decode registry response: %w", err)
	}
	return acquire.CompanyLabels{LegalName: body.LegalName, TradeName: body.TradeName}, nil
}

// recordFailure feeds the circuit breaker. A registry outage would otherwise
// warn once per acquisition; while the circuit is open repeats drop to debug.
func (c *Client) recordFailure(err error) {
	open, change := c.breaker.RecordFailure()
	if change.Opened {
		c.log.Warn("registry unavailable, company names degraded", "circuit", c.breaker.Name(), "error", err)
		return
	}
	if open {
		c.log.Debug("registry still unavailable", "circuit", c.breaker.Name(), "error", err)
		return
	}
	c.log.Warn("registry lookup failed", "error", err)
}

func (c *Client) recordSuccess() {
	if _, change := c.breaker.RecordSuccess(); change.Closed {
		c.log.Info("registry recovered", "circuit", c.breaker.Name())
	}
}
