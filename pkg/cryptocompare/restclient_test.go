package cryptocompare

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"cryptoetl/internal/record"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func newTestServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/data/pricemulti", r.URL.Path)
		assert.Equal(t, "BTC,ETH", r.URL.Query().Get("fsyms"))
		assert.Equal(t, "USD,EUR", r.URL.Query().Get("tsyms"))
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

// go test -v --run TestGetPrices
func TestGetPrices(t *testing.T) {
	srv := newTestServer(t, http.StatusOK, `{"BTC":{"USD":17000,"EUR":15800.5},"ETH":{"USD":1800,"EUR":1700}}`)
	core, logs := observer.New(zap.InfoLevel)
	client := NewRESTClient(srv.URL+"/", "", 5*time.Second, zap.New(core))

	quote, err := client.GetPrices(context.Background(), []string{"BTC", "ETH"}, []string{"USD", "EUR"})
	require.NoError(t, err)

	assert.Equal(t, record.PriceQuote{
		"BTC": {"USD": 17000, "EUR": 15800.5},
		"ETH": {"USD": 1800, "EUR": 1700},
	}, quote)
	assert.Equal(t, 1, logs.FilterMessage("received data").Len())
}

// go test -v --run TestGetPricesSendsAPIKey
func TestGetPricesSendsAPIKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Apikey secret", r.Header.Get("Authorization"))
		assert.NotContains(t, r.URL.RawQuery, "secret")
		_, _ = w.Write([]byte(`{"BTC":{"USD":1}}`))
	}))
	defer srv.Close()

	client := NewRESTClient(srv.URL, "secret", 5*time.Second, zap.NewNop())
	_, err := client.GetPrices(context.Background(), []string{"BTC"}, []string{"USD"})
	require.NoError(t, err)
}

// go test -v --run TestGetPricesFailures
func TestGetPricesFailures(t *testing.T) {
	cases := map[string]struct {
		status int
		body   string
	}{
		"http status":    {http.StatusTooManyRequests, `rate limited`},
		"not json":       {http.StatusOK, `<html>oops</html>`},
		"error envelope": {http.StatusOK, `{"Response":"Error","Message":"fsyms param is invalid","Type":2}`},
		"bad prices":     {http.StatusOK, `{"BTC":{"USD":"cheap"}}`},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			srv := newTestServer(t, tc.status, tc.body)
			client := NewRESTClient(srv.URL, "", 5*time.Second, zap.NewNop())

			_, err := client.GetPrices(context.Background(), []string{"BTC", "ETH"}, []string{"USD", "EUR"})
			require.Error(t, err)
		})
	}
}

// go test -v --run TestGetPricesNetworkError
func TestGetPricesNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	client := NewRESTClient(srv.URL, "supersecret", time.Second, zap.NewNop())
	_, err := client.GetPrices(context.Background(), []string{"BTC"}, []string{"USD"})
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "supersecret")
}
