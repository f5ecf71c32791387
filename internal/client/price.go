package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"
)

// Fallback USD rates used when the price API is unreachable. Fiat display
// degrades instead of blocking balance reads.
const (
	fallbackSOLUSD  = "100.00"
	fallbackUSDCUSD = "1.00"
)

// PriceClient fetches USD spot prices for the supported assets.
type PriceClient struct {
	baseURL string
	client  *http.Client
	log     *zap.Logger
}

// NewPriceClient creates a price client against a CoinGecko-compatible API.
func NewPriceClient(baseURL string, log *zap.Logger) *PriceClient {
	if log == nil {
		log = zap.NewNop()
	}
	return &PriceClient{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: 15 * time.Second,
		},
		log: log,
	}
}

// priceResponse response from the price API
type priceResponse struct {
	Solana struct {
		USD float64 `json:"usd"`
	} `json:"solana"`
	USDCoin struct {
		USD float64 `json:"usd"`
	} `json:"usd-coin"`
}

// USDRates returns the SOL and USDC spot prices in USD as decimal strings.
// On any API failure it logs and returns the fallback table; it never fails.
func (c *PriceClient) USDRates(ctx context.Context) (solUSD, usdcUSD string) {
	url := fmt.Sprintf("%s/simple/price?ids=solana,usd-coin&vs_currencies=usd", c.baseURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		c.log.Warn("price request build failed, using fallback rates", zap.Error(err))
		return fallbackSOLUSD, fallbackUSDCUSD
	}

	resp, err := c.client.Do(req)
	if err != nil {
		c.log.Warn("price request failed, using fallback rates", zap.Error(err))
		return fallbackSOLUSD, fallbackUSDCUSD
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.log.Warn("price API returned non-OK status, using fallback rates",
			zap.Int("status", resp.StatusCode))
		return fallbackSOLUSD, fallbackUSDCUSD
	}

	var priceResp priceResponse
	if err := json.NewDecoder(resp.Body).Decode(&priceResp); err != nil {
		c.log.Warn("price response decode failed, using fallback rates", zap.Error(err))
		return fallbackSOLUSD, fallbackUSDCUSD
	}

	solUSD = strconv.FormatFloat(priceResp.Solana.USD, 'f', 2, 64)
	usdcUSD = strconv.FormatFloat(priceResp.USDCoin.USD, 'f', 2, 64)
	return solUSD, usdcUSD
}
