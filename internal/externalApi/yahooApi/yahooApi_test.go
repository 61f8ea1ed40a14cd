package yahooApi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/KotFed0t/basket_shares/config"
	"github.com/KotFed0t/basket_shares/internal/externalApi"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func newTestApi(t *testing.T, handler http.HandlerFunc) *YahooApi {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := &config.Config{
		API: config.API{
			Timeout: 2 * time.Second,
			YahooApi: config.YahooApi{
				Url:       srv.URL,
				UserAgent: "test-agent",
			},
		},
	}
	return New(cfg)
}

func day(s string) time.Time {
	d, err := time.Parse(time.DateOnly, s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestGetDailyCloses(t *testing.T) {
	api := newTestApi(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v8/finance/chart/RELIANCE.NS", r.URL.Path)
		require.Equal(t, "1d", r.URL.Query().Get("interval"))
		require.Equal(t, "1704153600", r.URL.Query().Get("period1"))
		require.Equal(t, "1704412800", r.URL.Query().Get("period2"))
		require.Equal(t, "test-agent", r.Header.Get("User-Agent"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"chart":{"result":[{
			"meta":{"symbol":"RELIANCE.NS","currency":"INR","exchangeTimezoneName":"Asia/Kolkata","gmtoffset":19800},
			"timestamp":[1704167100,1704253500,1704339900,1704426300],
			"indicators":{"quote":[{"close":[100.5,null,102,103]}]}
		}],"error":null}}`))
	})

	series, err := api.GetDailyCloses(context.Background(), "RELIANCE.NS", day("2024-01-02"), day("2024-01-05"))
	require.NoError(t, err)
	require.Len(t, series, 2)

	require.Equal(t, day("2024-01-02"), series[0].Date)
	require.True(t, series[0].Close.Equal(decimal.RequireFromString("100.5")))
	require.Equal(t, day("2024-01-04"), series[1].Date)
	require.True(t, series[1].Close.Equal(decimal.NewFromInt(102)))
}

func TestGetDailyClosesGmtOffsetFallback(t *testing.T) {
	api := newTestApi(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"chart":{"result":[{
			"meta":{"symbol":"X.NS","gmtoffset":19800},
			"timestamp":[1704133800],
			"indicators":{"quote":[{"close":[10]}]}
		}]}}`))
	})

	series, err := api.GetDailyCloses(context.Background(), "X.NS", day("2024-01-02"), day("2024-01-03"))
	require.NoError(t, err)
	require.Len(t, series, 1)
	require.Equal(t, day("2024-01-02"), series[0].Date)
}

func TestGetDailyClosesNotFound(t *testing.T) {
	api := newTestApi(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found, symbol may be delisted"}}}`))
	})

	_, err := api.GetDailyCloses(context.Background(), "NOPE.NS", day("2024-01-02"), day("2024-01-05"))
	require.ErrorIs(t, err, externalApi.ErrNotFound)
}

func TestGetDailyClosesEmptyRange(t *testing.T) {
	api := newTestApi(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"chart":{"result":[{"meta":{"symbol":"TCS.NS"},"indicators":{"quote":[{}]}}],"error":null}}`))
	})

	series, err := api.GetDailyCloses(context.Background(), "TCS.NS", day("2024-01-06"), day("2024-01-07"))
	require.NoError(t, err)
	require.Empty(t, series)
}

func TestGetDailyClosesServerError(t *testing.T) {
	api := newTestApi(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`Too Many Requests`))
	})

	_, err := api.GetDailyCloses(context.Background(), "TCS.NS", day("2024-01-02"), day("2024-01-05"))
	require.Error(t, err)
	require.NotErrorIs(t, err, externalApi.ErrNotFound)
	require.Contains(t, err.Error(), "429")
}

func TestGetDailyClosesLengthMismatch(t *testing.T) {
	api := newTestApi(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"chart":{"result":[{
			"meta":{"symbol":"X.NS"},
			"timestamp":[1704167100,1704253500],
			"indicators":{"quote":[{"close":[1]}]}
		}]}}`))
	})

	_, err := api.GetDailyCloses(context.Background(), "X.NS", day("2024-01-02"), day("2024-01-05"))
	require.Error(t, err)
}
