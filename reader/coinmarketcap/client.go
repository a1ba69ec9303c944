// Package coinmarketcap fetches market snapshots from the CoinMarketCap
// listings API.
package coinmarketcap

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"cryptopulse/config"
	"cryptopulse/logger"
	"cryptopulse/models"
)

const listingsPath = "/v1/cryptocurrency/listings/latest"

// Client fetches the current top-N asset listings and converts them to
// AssetSnapshot rows sharing a single FetchedAt.
type Client struct {
	cfg     config.ProviderConfig
	client  *http.Client
	limiter *rate.Limiter
	log     *logger.Log
}

// NewClient builds a listings client with a bounded timeout and a rate
// limiter sized from provider.requests_per_minute.
func NewClient(cfg config.ProviderConfig) *Client {
	transport := apiKeyTransport{
		apiKey: cfg.APIKey,
		base:   http.DefaultTransport,
	}

	httpClient := &http.Client{
		Transport: transport,
		Timeout:   cfg.Timeout(),
	}

	rpm := cfg.RequestsPerMinute
	if rpm < 1 {
		rpm = 1
	}

	return &Client{
		cfg:     cfg,
		client:  httpClient,
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(rpm)), 1),
		log:     logger.GetLogger(),
	}
}

// Fetch retrieves the top-N listings. All returned rows carry the same
// FetchedAt timestamp. Any transport, status or decode failure abandons
// the fetch; the caller must not retry within the same cycle.
func (c *Client) Fetch(ctx context.Context, topN int) ([]models.AssetSnapshot, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	q := url.Values{}
	q.Set("limit", strconv.Itoa(topN))
	q.Set("convert", "USD")
	u := fmt.Sprintf("%s%s?%s", c.cfg.BaseURL, listingsPath, q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build listings request: %w", err)
	}

	start := time.Now()
	res, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("listings request failed: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("coinmarketcap http %d", res.StatusCode)
	}

	var body models.CMCListingsResponse
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode listings response: %w", err)
	}
	if body.Status.ErrorCode != 0 {
		return nil, fmt.Errorf("coinmarketcap: %s", body.Status.ErrorMessage)
	}

	fetchedAt := time.Now().UTC()
	snapshots := make([]models.AssetSnapshot, 0, len(body.Data))
	for _, listing := range body.Data {
		quote, ok := listing.Quote["USD"]
		if !ok {
			continue
		}
		snapshots = append(snapshots, models.AssetSnapshot{
			Symbol:           listing.Symbol,
			Name:             listing.Name,
			PriceUSD:         quote.Price,
			PercentChange1h:  quote.PercentChange1h,
			PercentChange24h: quote.PercentChange24h,
			PercentChange7d:  quote.PercentChange7d,
			Volume24h:        quote.Volume24h,
			MarketCap:        quote.MarketCap,
			FetchedAt:        fetchedAt,
		})
	}

	c.log.WithComponent("cmc_reader").WithFields(logger.Fields{
		"assets":      len(snapshots),
		"top_n":       topN,
		"duration_ms": time.Since(start).Milliseconds(),
	}).Info("fetched listings")

	return snapshots, nil
}
