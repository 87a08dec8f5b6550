// Package fred implements the observation source backed by the St. Louis
// Fed FRED API.
package fred

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/fin-tools/macro-sync/pkg/errs"
	"github.com/fin-tools/macro-sync/pkg/models/domain"
)

const Provider = "fred"

// Settings configures the FRED client.
type Settings struct {
	// BaseURL is the API root (default: https://api.stlouisfed.org/fred)
	BaseURL string
	// APIKey is the FRED API key; requests fail without one
	APIKey string
	// Timeout bounds each HTTP request (default: 30s)
	Timeout time.Duration
	// MaxRetries is the number of extra attempts after a transient failure
	// (default: 2)
	MaxRetries int
	// RetryBackoff is the pause between attempts (default: 2s)
	RetryBackoff time.Duration
}

// DefaultSettings returns the default client configuration for an API key.
func DefaultSettings(apiKey string) Settings {
	return Settings{
		BaseURL:      "https://api.stlouisfed.org/fred",
		APIKey:       apiKey,
		Timeout:      30 * time.Second,
		MaxRetries:   2,
		RetryBackoff: 2 * time.Second,
	}
}

// Client talks to the FRED observations API.
type Client struct {
	settings Settings
	http     *http.Client
}

// NewClient creates a FRED client from settings, filling unset fields with
// defaults.
func NewClient(settings Settings) *Client {
	def := DefaultSettings(settings.APIKey)
	if settings.BaseURL == "" {
		settings.BaseURL = def.BaseURL
	}
	if settings.Timeout == 0 {
		settings.Timeout = def.Timeout
	}
	if settings.RetryBackoff == 0 {
		settings.RetryBackoff = def.RetryBackoff
	}
	return &Client{
		settings: settings,
		http:     &http.Client{Timeout: settings.Timeout},
	}
}

type observationsResponse struct {
	Observations []struct {
		Date  string `json:"date"`
		Value string `json:"value"`
	} `json:"observations"`
}

type seriesResponse struct {
	Seriess []SeriesInfo `json:"seriess"`
}

// SeriesInfo is the FRED metadata for one series.
type SeriesInfo struct {
	ID               string `json:"id"`
	Title            string `json:"title"`
	Frequency        string `json:"frequency"`
	Units            string `json:"units"`
	LastUpdated      string `json:"last_updated"`
	ObservationStart string `json:"observation_start"`
	ObservationEnd   string `json:"observation_end"`
}

// FetchSeries returns the observations of seriesID inside the window.
// FRED publishes "." for dates without a value; those arrive as nil-valued
// observations so the completeness policy can reason about them.
func (c *Client) FetchSeries(
	ctx context.Context,
	seriesID string,
	rng domain.DateRange,
	order domain.SortOrder,
) ([]domain.Observation, error) {
	params := url.Values{}
	params.Set("series_id", seriesID)
	params.Set("sort_order", string(order))
	if !rng.Start.IsZero() {
		params.Set("observation_start", rng.Start.Format("2006-01-02"))
	}
	if !rng.End.IsZero() {
		params.Set("observation_end", rng.End.Format("2006-01-02"))
	}

	var resp observationsResponse
	if err := c.get(ctx, seriesID, "/series/observations", params, &resp); err != nil {
		return nil, err
	}

	observations := make([]domain.Observation, 0, len(resp.Observations))
	for _, obs := range resp.Observations {
		date, err := time.Parse("2006-01-02", obs.Date)
		if err != nil {
			continue
		}
		observations = append(observations, domain.Observation{
			SeriesID: seriesID,
			Date:     domain.DateOnly(date),
			Value:    parseValue(obs.Value),
		})
	}
	return observations, nil
}

// LatestValue returns the most recent published observation of seriesID.
func (c *Client) LatestValue(ctx context.Context, seriesID string) (domain.Observation, error) {
	params := url.Values{}
	params.Set("series_id", seriesID)
	params.Set("sort_order", string(domain.SortDescending))
	params.Set("limit", "1")

	var resp observationsResponse
	if err := c.get(ctx, seriesID, "/series/observations", params, &resp); err != nil {
		return domain.Observation{}, err
	}
	for _, obs := range resp.Observations {
		date, err := time.Parse("2006-01-02", obs.Date)
		if err != nil {
			continue
		}
		return domain.Observation{
			SeriesID: seriesID,
			Date:     domain.DateOnly(date),
			Value:    parseValue(obs.Value),
		}, nil
	}
	return domain.Observation{}, errs.NewSourceError(Provider, seriesID, 0, "series has no observations")
}

// SeriesInfo returns the FRED metadata of seriesID.
func (c *Client) SeriesInfo(ctx context.Context, seriesID string) (SeriesInfo, error) {
	params := url.Values{}
	params.Set("series_id", seriesID)

	var resp seriesResponse
	if err := c.get(ctx, seriesID, "/series", params, &resp); err != nil {
		return SeriesInfo{}, err
	}
	if len(resp.Seriess) == 0 {
		return SeriesInfo{}, errs.NewSourceError(Provider, seriesID, 0, "series not found")
	}
	return resp.Seriess[0], nil
}

// get performs one API call with the client's retry policy. Transient
// failures (transport errors, 5xx, 429) are retried MaxRetries times before
// the last error surfaces.
func (c *Client) get(ctx context.Context, seriesID, path string, params url.Values, out any) error {
	params.Set("api_key", c.settings.APIKey)
	params.Set("file_type", "json")
	endpoint := c.settings.BaseURL + path + "?" + params.Encode()

	var lastErr error
	for attempt := 0; attempt <= c.settings.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.settings.RetryBackoff):
			}
		}

		lastErr = c.getOnce(ctx, seriesID, endpoint, out)
		if lastErr == nil {
			return nil
		}
		if !retryable(lastErr) {
			return lastErr
		}
	}
	return lastErr
}

func (c *Client) getOnce(ctx context.Context, seriesID, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return errs.WrapSourceError(Provider, seriesID, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return errs.NewSourceError(Provider, seriesID, resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errs.WrapSourceError(Provider, seriesID, fmt.Errorf("failed to decode response: %w", err))
	}
	return nil
}

func retryable(err error) bool {
	return errs.IsRateLimited(err) || errs.IsSourceUnavailable(err)
}

// parseValue reads a FRED observation value. "." marks a date the source
// published without data.
func parseValue(raw string) *float64 {
	if raw == "." || raw == "" {
		return nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil
	}
	return &v
}
