// Package rate fetches the native-currency/USD exchange rate. A zero
// result is the sentinel for "unavailable"; callers then render native
// amounts instead of USD.
package rate

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const maxRateBody = 64 * 1024

// Client reads the rate from a JSON HTTP endpoint.
type Client struct {
	endpoint string
	http     *http.Client
	logger   *zap.Logger
}

// NewClient builds a rate client. An empty endpoint disables lookups.
func NewClient(endpoint string, timeout time.Duration, logger *zap.Logger) *Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		endpoint: endpoint,
		http:     &http.Client{Timeout: timeout},
		logger:   logger,
	}
}

// NativeUSD returns the current rate, or zero when the endpoint is
// unset, unreachable, or its response carries no recognizable price.
func (c *Client) NativeUSD(ctx context.Context) decimal.Decimal {
	if c.endpoint == "" {
		return decimal.Zero
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint, nil)
	if err != nil {
		return decimal.Zero
	}
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("rate fetch failed", zap.Error(err))
		return decimal.Zero
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("rate fetch bad status", zap.Int("status", resp.StatusCode))
		return decimal.Zero
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxRateBody))
	if err != nil {
		return decimal.Zero
	}

	var doc interface{}
	if err := json.Unmarshal(body, &doc); err != nil {
		c.logger.Warn("rate response not json", zap.Error(err))
		return decimal.Zero
	}
	return extractPrice(doc)
}

// extractPrice walks a JSON document for the first field named price or
// usd, accepting both numbers and numeric strings.
func extractPrice(doc interface{}) decimal.Decimal {
	switch v := doc.(type) {
	case map[string]interface{}:
		for _, key := range []string{"price", "usd"} {
			if child, ok := v[key]; ok {
				if d, ok := asDecimal(child); ok {
					return d
				}
			}
		}
		for _, child := range v {
			if d := extractPrice(child); d.IsPositive() {
				return d
			}
		}
	case []interface{}:
		for _, child := range v {
			if d := extractPrice(child); d.IsPositive() {
				return d
			}
		}
	}
	return decimal.Zero
}

func asDecimal(v interface{}) (decimal.Decimal, bool) {
	switch typed := v.(type) {
	case float64:
		if typed > 0 {
			return decimal.NewFromFloat(typed), true
		}
	case string:
		if d, err := decimal.NewFromString(typed); err == nil && d.IsPositive() {
			return d, true
		}
	}
	return decimal.Zero, false
}
