// Package alphavantage implements the observation source backed by the
// Alpha Vantage daily time series API.
package alphavantage

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/fin-tools/macro-sync/pkg/errs"
	"github.com/fin-tools/macro-sync/pkg/models/domain"
)

const Provider = "alphavantage"

// Settings configures the Alpha Vantage client.
type Settings struct {
	// BaseURL is the API root (default: https://www.alphavantage.co)
	BaseURL string
	// APIKey is the Alpha Vantage API key
	APIKey string
	// Timeout bounds each HTTP request (default: 30s)
	Timeout time.Duration
	// MinRequestGap spaces consecutive requests to respect the free tier
	// quota of five calls per minute (default: 12s)
	MinRequestGap time.Duration
}

// DefaultSettings returns the default client configuration for an API key.
func DefaultSettings(apiKey string) Settings {
	return Settings{
		BaseURL:       "https://www.alphavantage.co",
		APIKey:        apiKey,
		Timeout:       30 * time.Second,
		MinRequestGap: 12 * time.Second,
	}
}

// Client talks to the Alpha Vantage API. Requests are serialized and spaced
// MinRequestGap apart.
type Client struct {
	settings Settings
	http     *http.Client

	mu       sync.Mutex
	lastCall time.Time
}

// NewClient creates an Alpha Vantage client from settings, filling unset
// fields with defaults.
func NewClient(settings Settings) *Client {
	def := DefaultSettings(settings.APIKey)
	if settings.BaseURL == "" {
		settings.BaseURL = def.BaseURL
	}
	if settings.Timeout == 0 {
		settings.Timeout = def.Timeout
	}
	return &Client{
		settings: settings,
		http:     &http.Client{Timeout: settings.Timeout},
	}
}

type dailyResponse struct {
	Note        string                       `json:"Note"`
	Information string                       `json:"Information"`
	Error       string                       `json:"Error Message"`
	TimeSeries  map[string]map[string]string `json:"Time Series (Daily)"`
}

// FetchSeries returns the daily closes of symbol inside the window. The API
// always returns its full recent history; the client filters to the window
// and orders the result.
func (c *Client) FetchSeries(
	ctx context.Context,
	symbol string,
	rng domain.DateRange,
	order domain.SortOrder,
) ([]domain.Observation, error) {
	if err := c.throttle(ctx); err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("function", "TIME_SERIES_DAILY")
	params.Set("symbol", symbol)
	params.Set("outputsize", "full")
	params.Set("apikey", c.settings.APIKey)
	endpoint := c.settings.BaseURL + "/query?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errs.WrapSourceError(Provider, symbol, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, errs.NewSourceError(Provider, symbol, resp.StatusCode, string(body))
	}

	var payload dailyResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, errs.WrapSourceError(Provider, symbol, fmt.Errorf("failed to decode response: %w", err))
	}

	// Alpha Vantage reports quota exhaustion as a 200 with a Note or
	// Information body instead of the series.
	if payload.Note != "" || payload.Information != "" {
		message := payload.Note
		if message == "" {
			message = payload.Information
		}
		return nil, errs.NewSourceError(Provider, symbol, http.StatusTooManyRequests, message)
	}
	if payload.Error != "" {
		return nil, errs.NewSourceError(Provider, symbol, 0, payload.Error)
	}

	observations := make([]domain.Observation, 0, len(payload.TimeSeries))
	for raw, fields := range payload.TimeSeries {
		date, err := time.Parse("2006-01-02", raw)
		if err != nil {
			continue
		}
		date = domain.DateOnly(date)
		if !rng.Start.IsZero() && date.Before(rng.Start) {
			continue
		}
		if !rng.End.IsZero() && date.After(rng.End) {
			continue
		}
		observations = append(observations, domain.Observation{
			SeriesID: symbol,
			Date:     date,
			Value:    parseClose(fields),
		})
	}

	sort.Slice(observations, func(i, j int) bool {
		if order == domain.SortDescending {
			return observations[i].Date.After(observations[j].Date)
		}
		return observations[i].Date.Before(observations[j].Date)
	})
	return observations, nil
}

// throttle blocks until MinRequestGap has passed since the previous call.
func (c *Client) throttle(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.settings.MinRequestGap > 0 && !c.lastCall.IsZero() {
		wait := c.settings.MinRequestGap - time.Since(c.lastCall)
		if wait > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
		}
	}
	c.lastCall = time.Now()
	return nil
}

func parseClose(fields map[string]string) *float64 {
	raw, ok := fields["4. close"]
	if !ok {
		return nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil
	}
	return &v
}
