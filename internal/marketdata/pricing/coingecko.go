// Package pricing fetches USD prices used to display the fiat value of a
// withdrawal.
package pricing

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Aidin1998/finalex-console/pkg/models"
)

// DefaultBaseURL is the public CoinGecko API.
const DefaultBaseURL = "https://api.coingecko.com/api/v3"

const maxResponseBytes = 1 << 20

// CoinGeckoProvider implements a USD price source using the CoinGecko
// simple price API.
type CoinGeckoProvider struct {
	baseURL    string
	apiKey     string
	ids        map[string]string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewCoinGeckoProvider creates a provider. ids maps console currency IDs to
// CoinGecko coin IDs; currencies without a mapping have no price.
func NewCoinGeckoProvider(baseURL, apiKey string, ids map[string]string, logger *zap.Logger) *CoinGeckoProvider {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &CoinGeckoProvider{
		baseURL: baseURL,
		apiKey:  apiKey,
		ids:     ids,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: logger,
	}
}

// Price returns the USD price of currencyID, or nil when it is unknown.
func (c *CoinGeckoProvider) Price(ctx context.Context, currencyID string) (*models.CurrencyPrice, error) {
	coinID, ok := c.ids[currencyID]
	if !ok {
		// viper lowercases map keys loaded from configuration
		if coinID, ok = c.ids[strings.ToLower(currencyID)]; !ok {
			return nil, nil
		}
	}

	q := url.Values{}
	q.Set("ids", coinID)
	q.Set("vs_currencies", "usd")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/simple/price?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("x-cg-pro-api-key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if int64(len(body)) > maxResponseBytes {
		return nil, fmt.Errorf("price API response exceeds %d bytes", maxResponseBytes)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("price API returned status %d", resp.StatusCode)
	}

	var apiResp map[string]map[string]decimal.Decimal
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	usd, ok := apiResp[coinID]["usd"]
	if !ok {
		c.logger.Debug("No USD price returned", zap.String("coin_id", coinID))
		return nil, nil
	}
	return &models.CurrencyPrice{USDPrice: usd}, nil
}
