package network

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/lifeline-labs/goldenhour/internal/model"
)

const (
	defaultOverpassURL = "https://overpass-api.de/api/interpreter"
	defaultUserAgent   = "goldenhour/1.0"

	// maxResponseBytes caps the interpreter response; dense urban areas
	// at the supported radii stay well under this.
	maxResponseBytes = 64 * 1024 * 1024
)

// OverpassClient fetches street networks from an Overpass API
// interpreter. Requests are rate limited and retried on transient
// failures.
type OverpassClient struct {
	client     *http.Client
	baseURL    string
	userAgent  string
	limiter    *rate.Limiter
	maxRetries int
}

// OverpassOption configures an OverpassClient.
type OverpassOption func(*OverpassClient)

// WithBaseURL overrides the interpreter endpoint.
func WithBaseURL(u string) OverpassOption {
	return func(c *OverpassClient) { c.baseURL = u }
}

// WithUserAgent sets the User-Agent header. Public Overpass instances
// require a contact-identifying agent.
func WithUserAgent(ua string) OverpassOption {
	return func(c *OverpassClient) { c.userAgent = ua }
}

// WithRateLimit sets the request rate in requests per second.
func WithRateLimit(rps float64) OverpassOption {
	return func(c *OverpassClient) { c.limiter = rate.NewLimiter(rate.Limit(rps), 1) }
}

// WithTimeout sets the per-request HTTP timeout.
func WithTimeout(d time.Duration) OverpassOption {
	return func(c *OverpassClient) { c.client.Timeout = d }
}

// WithMaxRetries sets the retry budget for transient failures.
func WithMaxRetries(n int) OverpassOption {
	return func(c *OverpassClient) { c.maxRetries = n }
}

// NewOverpassClient creates a client against the public interpreter with
// a 2-minute timeout, 1 req/s limit, and 3 retries.
func NewOverpassClient(opts ...OverpassOption) *OverpassClient {
	c := &OverpassClient{
		client:     &http.Client{Timeout: 2 * time.Minute},
		baseURL:    defaultOverpassURL,
		userAgent:  defaultUserAgent,
		limiter:    rate.NewLimiter(1, 1),
		maxRetries: 3,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// overpassElement is one element of an interpreter JSON response. Node
// elements carry coordinates; way elements carry their node ID sequence.
type overpassElement struct {
	Type  string  `json:"type"`
	ID    int64   `json:"id"`
	Lat   float64 `json:"lat"`
	Lon   float64 `json:"lon"`
	Nodes []int64 `json:"nodes"`
}

type overpassResponse struct {
	Elements []overpassElement `json:"elements"`
}

// FetchPoint implements Provider. It queries all highway-tagged ways
// within radiusM of (lat, lon) plus their member nodes, then derives the
// per-node connectivity degree from way incidence.
func (c *OverpassClient) FetchPoint(ctx context.Context, lat, lon, radiusM float64) ([]model.NetworkNode, error) {
	if radiusM <= 0 {
		return nil, eris.Errorf("network: radius must be positive, got %f", radiusM)
	}

	query := fmt.Sprintf(
		`[out:json][timeout:90];way(around:%.0f,%.6f,%.6f)["highway"];(._;>;);out body;`,
		radiusM, lat, lon,
	)

	body, err := c.post(ctx, query)
	if err != nil {
		return nil, err
	}

	var resp overpassResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, eris.Wrap(err, "network: decode overpass response")
	}

	nodes := buildNodes(resp.Elements)
	zap.L().Debug("overpass network fetched",
		zap.Float64("lat", lat),
		zap.Float64("lon", lon),
		zap.Float64("radius_m", radiusM),
		zap.Int("nodes", len(nodes)),
	)
	return nodes, nil
}

// post submits an Overpass QL query, retrying on 429 and 5xx with linear
// backoff up to the retry budget.
func (c *OverpassClient) post(ctx context.Context, query string) ([]byte, error) {
	form := url.Values{"data": {query}}.Encode()

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(attempt) * 2 * time.Second
			zap.L().Debug("overpass retry",
				zap.Int("attempt", attempt),
				zap.Duration("backoff", backoff),
			)
			select {
			case <-ctx.Done():
				return nil, eris.Wrap(ctx.Err(), "network: overpass request cancelled")
			case <-time.After(backoff):
			}
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "network: rate limiter")
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, strings.NewReader(form))
		if err != nil {
			return nil, eris.Wrap(err, "network: create overpass request")
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.Header.Set("User-Agent", c.userAgent)

		resp, err := c.client.Do(req)
		if err != nil {
			lastErr = eris.Wrap(err, "network: overpass request")
			continue
		}

		body, readErr := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
		_ = resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusOK:
			if readErr != nil {
				return nil, eris.Wrap(readErr, "network: read overpass response")
			}
			return body, nil
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			lastErr = eris.Errorf("network: overpass returned %d", resp.StatusCode)
			continue
		default:
			return nil, eris.Errorf("network: overpass returned %d", resp.StatusCode)
		}
	}

	return nil, eris.Wrapf(lastErr, "network: overpass request failed after %d retries", c.maxRetries)
}

// buildNodes converts raw Overpass elements to NetworkNodes. Node order
// follows the response element order; the degree of a node is the number
// of street edges incident to it, where each consecutive node pair inside
// a way contributes one edge to both endpoints.
func buildNodes(elements []overpassElement) []model.NetworkNode {
	degrees := make(map[int64]int)
	for _, el := range elements {
		if el.Type != "way" {
			continue
		}
		for i := 1; i < len(el.Nodes); i++ {
			a, b := el.Nodes[i-1], el.Nodes[i]
			if a == b {
				continue
			}
			degrees[a]++
			degrees[b]++
		}
	}

	var nodes []model.NetworkNode
	for _, el := range elements {
		if el.Type != "node" {
			continue
		}
		nodes = append(nodes, model.NetworkNode{
			ID:     el.ID,
			Lat:    el.Lat,
			Lon:    el.Lon,
			Degree: degrees[el.ID],
		})
	}
	return nodes
}
