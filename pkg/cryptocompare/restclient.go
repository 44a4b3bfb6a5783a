package cryptocompare

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"cryptoetl/internal/record"

	"go.uber.org/zap"
)

type RESTClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *zap.Logger
}

func NewRESTClient(baseURL, apiKey string, timeout time.Duration, logger *zap.Logger) *RESTClient {
	return &RESTClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// GetPrices fetches the current price of every symbol in every quote
// currency with a single pricemulti call.
func (c *RESTClient) GetPrices(ctx context.Context, symbols, quotes []string) (record.PriceQuote, error) {
	q := url.Values{}
	q.Set("fsyms", strings.Join(symbols, ","))
	q.Set("tsyms", strings.Join(quotes, ","))
	endpoint := c.baseURL + "/data/pricemulti?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	// The key stays out of the URL, which transport errors include.
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Apikey "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("making request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("cryptocompare error: status %d: %s", resp.StatusCode, body)
	}

	c.logger.Info("received data", zap.ByteString("body", body))

	return decodePrices(body)
}

// decodePrices parses a pricemulti body. The success shape is
// {"BTC":{"USD":17000}}; failures come back as an ErrorResponse.
func decodePrices(body []byte) (record.PriceQuote, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	if _, ok := raw["Response"]; ok {
		var e ErrorResponse
		if err := json.Unmarshal(body, &e); err != nil {
			return nil, fmt.Errorf("decode error response: %w", err)
		}
		if e.Response == "Error" {
			return nil, fmt.Errorf("cryptocompare error: %s", e.Message)
		}
	}

	quote := make(record.PriceQuote, len(raw))
	for symbol, v := range raw {
		var prices map[string]float64
		if err := json.Unmarshal(v, &prices); err != nil {
			return nil, fmt.Errorf("decode prices for %s: %w", symbol, err)
		}
		quote[symbol] = prices
	}

	return quote, nil
}
