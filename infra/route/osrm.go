// Package route implements the optional external routing backend consumed
// by the geo estimator. It speaks the OSRM HTTP API; any failure leaves the
// estimator on its built-in speed model.
package route

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/kilianp07/chargeplan/core/fault"
	"github.com/kilianp07/chargeplan/core/model"
)

// Config points at an OSRM-compatible server.
type Config struct {
	Enabled  bool    `json:"enabled"`
	BaseURL  string  `json:"baseUrl"`
	TimeoutS float64 `json:"timeoutSeconds"`
}

// SetDefaults fills the stock endpoint and timeout.
func (c *Config) SetDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = "http://localhost:5000"
	}
	if c.TimeoutS <= 0 {
		c.TimeoutS = 2.5
	}
}

// Client queries the OSRM route endpoint.
type Client struct {
	base string
	http *http.Client
}

// New creates a Client from the configuration.
func New(cfg Config) *Client {
	cfg.SetDefaults()
	return &Client{
		base: cfg.BaseURL,
		http: &http.Client{Timeout: time.Duration(cfg.TimeoutS * float64(time.Second))},
	}
}

type osrmResponse struct {
	Code   string `json:"code"`
	Routes []struct {
		Duration float64 `json:"duration"` // seconds
		Distance float64 `json:"distance"` // meters
	} `json:"routes"`
}

// Eta returns the driving ETA and distance between the two coordinates.
// Errors are reported as UpstreamUnavailable so the caller knows the
// failure is recoverable by falling back.
func (c *Client) Eta(ctx context.Context, origin, dest model.Coordinate) (float64, float64, error) {
	// OSRM wants lon,lat ordering.
	url := fmt.Sprintf("%s/route/v1/driving/%.6f,%.6f;%.6f,%.6f?overview=false",
		c.base, origin.Lon, origin.Lat, dest.Lon, dest.Lat)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, 0, &fault.UpstreamUnavailable{Upstream: "route service", Err: err}
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, 0, &fault.UpstreamUnavailable{Upstream: "route service", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return 0, 0, &fault.UpstreamUnavailable{Upstream: "route service",
			Err: fmt.Errorf("unexpected status code: %d, body: %s", resp.StatusCode, body)}
	}
	var parsed osrmResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return 0, 0, &fault.UpstreamUnavailable{Upstream: "route service", Err: err}
	}
	if parsed.Code != "Ok" || len(parsed.Routes) == 0 {
		return 0, 0, &fault.UpstreamUnavailable{Upstream: "route service",
			Err: fmt.Errorf("no route in response (code %q)", parsed.Code)}
	}
	r := parsed.Routes[0]
	return r.Duration / 60, r.Distance / 1000, nil
}
