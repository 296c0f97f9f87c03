package network

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const defaultNominatimURL = "https://nominatim.openstreetmap.org/search"

// NominatimClient resolves place names via the OpenStreetMap Nominatim
// search API. The public instance allows one request per second; the
// limiter enforces that by default.
type NominatimClient struct {
	client    *http.Client
	baseURL   string
	userAgent string
	limiter   *rate.Limiter
}

// NominatimOption configures a NominatimClient.
type NominatimOption func(*NominatimClient)

// WithNominatimURL overrides the search endpoint.
func WithNominatimURL(u string) NominatimOption {
	return func(c *NominatimClient) { c.baseURL = u }
}

// WithNominatimUserAgent sets the User-Agent header, required by the
// Nominatim usage policy.
func WithNominatimUserAgent(ua string) NominatimOption {
	return func(c *NominatimClient) { c.userAgent = ua }
}

// NewNominatimClient creates a geocoder against the public Nominatim
// instance.
func NewNominatimClient(opts ...NominatimOption) *NominatimClient {
	c := &NominatimClient{
		client:    &http.Client{Timeout: 10 * time.Second},
		baseURL:   defaultNominatimURL,
		userAgent: defaultUserAgent,
		limiter:   rate.NewLimiter(1, 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// nominatimResult is one match from the search API. Coordinates arrive as
// strings.
type nominatimResult struct {
	Lat string `json:"lat"`
	Lon string `json:"lon"`
}

// Geocode implements Geocoder. It returns the coordinates of the best
// match for place.
func (c *NominatimClient) Geocode(ctx context.Context, place string) (float64, float64, error) {
	if place == "" {
		return 0, 0, eris.New("network: place name is required")
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return 0, 0, eris.Wrap(err, "network: rate limiter")
	}

	q := url.Values{
		"q":      {place},
		"format": {"json"},
		"limit":  {"1"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return 0, 0, eris.Wrap(err, "network: create geocode request")
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, 0, eris.Wrapf(err, "network: geocode %q", place)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return 0, 0, eris.Errorf("network: nominatim returned %d for %q", resp.StatusCode, place)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return 0, 0, eris.Wrap(err, "network: read geocode response")
	}

	var results []nominatimResult
	if err := json.Unmarshal(body, &results); err != nil {
		return 0, 0, eris.Wrap(err, "network: decode geocode response")
	}
	if len(results) == 0 {
		return 0, 0, eris.Errorf("network: no geocode match for %q", place)
	}

	lat, err := strconv.ParseFloat(results[0].Lat, 64)
	if err != nil {
		return 0, 0, eris.Wrapf(err, "network: parse latitude %q", results[0].Lat)
	}
	lon, err := strconv.ParseFloat(results[0].Lon, 64)
	if err != nil {
		return 0, 0, eris.Wrapf(err, "network: parse longitude %q", results[0].Lon)
	}

	zap.L().Debug("geocoded place",
		zap.String("place", place),
		zap.Float64("lat", lat),
		zap.Float64("lon", lon),
	)
	return lat, lon, nil
}
