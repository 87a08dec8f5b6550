package alphavantage

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fin-tools/macro-sync/pkg/errs"
	"github.com/fin-tools/macro-sync/pkg/models/domain"
)

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	settings := DefaultSettings("test-key")
	settings.BaseURL = server.URL
	settings.MinRequestGap = 0
	return NewClient(settings)
}

func TestFetchSeries(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/query", r.URL.Path)
		assert.Equal(t, "TIME_SERIES_DAILY", r.URL.Query().Get("function"))
		assert.Equal(t, "SPY", r.URL.Query().Get("symbol"))
		assert.Equal(t, "test-key", r.URL.Query().Get("apikey"))

		_, _ = w.Write([]byte(`{
			"Time Series (Daily)": {
				"2021-01-06": {"1. open": "368.0", "4. close": "371.30"},
				"2021-01-05": {"1. open": "366.0", "4. close": "368.10"},
				"2021-01-04": {"1. open": "370.0", "4. close": "365.02"},
				"2020-12-31": {"1. open": "372.0", "4. close": "373.88"}
			}
		}`))
	})

	rng := domain.DateRange{
		Start: time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2021, 1, 31, 0, 0, 0, 0, time.UTC),
	}
	observations, err := client.FetchSeries(context.Background(), "SPY", rng, domain.SortAscending)
	require.NoError(t, err)
	require.Len(t, observations, 3, "window should exclude 2020-12-31")

	assert.Equal(t, time.Date(2021, 1, 4, 0, 0, 0, 0, time.UTC), observations[0].Date)
	assert.Equal(t, time.Date(2021, 1, 6, 0, 0, 0, 0, time.UTC), observations[2].Date)
	require.NotNil(t, observations[0].Value)
	assert.Equal(t, 365.02, *observations[0].Value)
}

func TestFetchSeries_Descending(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{
			"Time Series (Daily)": {
				"2021-01-04": {"4. close": "365.02"},
				"2021-01-05": {"4. close": "368.10"}
			}
		}`))
	})

	observations, err := client.FetchSeries(context.Background(), "SPY", domain.DateRange{}, domain.SortDescending)
	require.NoError(t, err)
	require.Len(t, observations, 2)
	assert.True(t, observations[0].Date.After(observations[1].Date))
}

func TestFetchSeries_QuotaNote(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"Note": "Thank you for using Alpha Vantage! Our standard API call frequency is 5 calls per minute."}`))
	})

	_, err := client.FetchSeries(context.Background(), "SPY", domain.DateRange{}, domain.SortAscending)
	require.Error(t, err)
	assert.True(t, errs.IsRateLimited(err), "quota note should map to the rate limit error")
}

func TestFetchSeries_ErrorMessage(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"Error Message": "Invalid API call."}`))
	})

	_, err := client.FetchSeries(context.Background(), "NOPE", domain.DateRange{}, domain.SortAscending)
	require.Error(t, err)
	assert.False(t, errs.IsRateLimited(err))
}

func TestFetchSeries_ServerError(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := client.FetchSeries(context.Background(), "SPY", domain.DateRange{}, domain.SortAscending)
	require.Error(t, err)
	assert.True(t, errs.IsSourceUnavailable(err))
}

func TestThrottleSpacesRequests(t *testing.T) {
	client := NewClient(Settings{APIKey: "k", MinRequestGap: 40 * time.Millisecond})

	start := time.Now()
	require.NoError(t, client.throttle(context.Background()))
	require.NoError(t, client.throttle(context.Background()))
	assert.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)
}

func TestThrottleHonorsCancellation(t *testing.T) {
	client := NewClient(Settings{APIKey: "k", MinRequestGap: time.Hour})
	require.NoError(t, client.throttle(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := client.throttle(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
