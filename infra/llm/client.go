// Package llm implements the optional language-model summary backend. The
// composer treats every failure here as a cue to use its deterministic
// text, so this client reports errors instead of inventing content.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/kilianp07/chargeplan/core/fault"
	"github.com/kilianp07/chargeplan/core/summary"
)

// Config points at a chat-completion style endpoint.
type Config struct {
	Enabled  bool    `json:"enabled"`
	BaseURL  string  `json:"baseUrl"`
	APIKey   string  `json:"apiKey"`
	Model    string  `json:"model"`
	TimeoutS float64 `json:"timeoutSeconds"`
}

// SetDefaults fills the stock model name and timeout.
func (c *Config) SetDefaults() {
	if c.Model == "" {
		c.Model = "gemini-pro"
	}
	if c.TimeoutS <= 0 {
		c.TimeoutS = 3
	}
}

// Client asks the backend to phrase the two plan summaries.
type Client struct {
	cfg  Config
	http *http.Client
}

// New creates a Client. Returns nil when the backend is disabled or has no
// endpoint, which the composer treats as "deterministic only".
func New(cfg Config) *Client {
	cfg.SetDefaults()
	if !cfg.Enabled || cfg.BaseURL == "" {
		return nil
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: time.Duration(cfg.TimeoutS * float64(time.Second))},
	}
}

const systemPrompt = "You phrase EV charging plans. Reply with exactly two lines: " +
	"line 1 a driver message, line 2 an operator rationale. Max 140 characters each. " +
	"Use only the facts given."

type request struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	System string `json:"system"`
}

type response struct {
	Driver   string `json:"driver"`
	Operator string `json:"operator"`
}

// TrySummarize implements summary.Summarizer.
func (c *Client) TrySummarize(ctx context.Context, sc summary.Context) (string, string, error) {
	verb := "suggested"
	if sc.Reserved {
		verb = "reserved"
	}
	prompt := fmt.Sprintf(
		"SOC %.0f%%, ETA %.1f min, station %q %s, p50 wait %.1f min, p90 wait %.1f min, band %s, reason %q.",
		sc.SoC, sc.EtaMin, sc.Station.Name, verb,
		sc.Station.P50WaitMin, sc.Station.P90WaitMin, sc.Station.ColorBand, sc.PolicyReason)

	body, err := json.Marshal(request{Model: c.cfg.Model, Prompt: prompt, System: systemPrompt})
	if err != nil {
		return "", "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/v1/summaries", bytes.NewReader(body))
	if err != nil {
		return "", "", &fault.UpstreamUnavailable{Upstream: "summary backend", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", "", &fault.UpstreamUnavailable{Upstream: "summary backend", Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", "", &fault.UpstreamUnavailable{Upstream: "summary backend",
			Err: fmt.Errorf("unexpected status code: %d", resp.StatusCode)}
	}
	var parsed response
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", "", &fault.UpstreamUnavailable{Upstream: "summary backend", Err: err}
	}
	if parsed.Driver == "" || parsed.Operator == "" {
		return "", "", &fault.UpstreamUnavailable{Upstream: "summary backend",
			Err: fmt.Errorf("incomplete response")}
	}
	return parsed.Driver, parsed.Operator, nil
}
