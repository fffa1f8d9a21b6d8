// Package lookup resolves a barcode to a best-effort name/description
// pair using the Open Food Facts public database.
package lookup

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"stockflow/internal/util"

	"go.uber.org/zap"
)

// Prefill is a best-effort {name, description} pair for a barcode. Both
// fields may be empty when the database has no record.
type Prefill struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Cache stores lookup results. A nil Cache disables caching.
type Cache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

// Client queries the Open Food Facts product endpoint.
type Client struct {
	baseURL  string
	http     *http.Client
	cache    Cache
	cacheTTL time.Duration
	logger   *zap.Logger
}

// NewClient creates a lookup client. cache may be nil.
func NewClient(baseURL string, timeout time.Duration, cache Cache, cacheTTL time.Duration) *Client {
	return &Client{
		baseURL:  baseURL,
		http:     &http.Client{Timeout: timeout},
		cache:    cache,
		cacheTTL: cacheTTL,
		logger:   util.GetLogger(),
	}
}

type productResponse struct {
	Status  int `json:"status"`
	Product struct {
		ProductName   string `json:"product_name"`
		GenericNameEn string `json:"generic_name_en"`
		Categories    string `json:"categories"`
	} `json:"product"`
}

// Lookup fetches product details for a barcode. An unknown barcode yields
// an empty Prefill, not an error; transport failures are surfaced so the
// caller can fall back to manual entry.
func (c *Client) Lookup(ctx context.Context, barcode string) (*Prefill, error) {
	start := time.Now()
	defer func() {
		util.LookupLatency.Observe(time.Since(start).Seconds())
	}()

	cacheKey := "prefill:" + barcode
	if c.cache != nil {
		if cached, ok, err := c.cache.Get(ctx, cacheKey); err != nil {
			c.logger.Warn("Prefill cache read failed", zap.String("barcode", barcode), zap.Error(err))
		} else if ok {
			var prefill Prefill
			if err := json.Unmarshal([]byte(cached), &prefill); err == nil {
				util.LookupCacheHitsTotal.Inc()
				return &prefill, nil
			}
		}
	}

	url := fmt.Sprintf("%s/api/v0/product/%s.json", c.baseURL, barcode)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("lookup request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("lookup returned status %d for barcode %s", resp.StatusCode, barcode)
	}

	var body productResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode lookup response: %w", err)
	}

	prefill := &Prefill{}
	if body.Status != 0 {
		prefill.Name = body.Product.ProductName
		prefill.Description = body.Product.GenericNameEn
		if prefill.Description == "" {
			prefill.Description = body.Product.Categories
		}
	}

	if c.cache != nil {
		if data, err := json.Marshal(prefill); err == nil {
			if err := c.cache.Set(ctx, cacheKey, string(data), c.cacheTTL); err != nil {
				c.logger.Warn("Prefill cache write failed", zap.String("barcode", barcode), zap.Error(err))
			}
		}
	}

	return prefill, nil
}
