package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"checkout-service/models"
	"checkout-service/repository"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// CatalogClient resolves product price, stock and active status from the
// catalog service. Returns repository.ErrNotFound for unknown products so
// callers can discriminate the miss from transport failures.
type CatalogClient interface {
	GetProduct(ctx context.Context, productID uuid.UUID) (*models.CatalogProduct, error)
}

// HTTPCatalogClient fetches products over HTTP with an optional read-through
// Redis cache. A nil cache client disables caching entirely.
type HTTPCatalogClient struct {
	baseURL  string
	client   *http.Client
	cache    *redis.Client
	cacheTTL time.Duration
	logger   *zap.Logger
}

func NewHTTPCatalogClient(baseURL string, cache *redis.Client, cacheTTL time.Duration, logger *zap.Logger) *HTTPCatalogClient {
	return &HTTPCatalogClient{
		baseURL:  strings.TrimRight(baseURL, "/"),
		client:   &http.Client{Timeout: 5 * time.Second},
		cache:    cache,
		cacheTTL: cacheTTL,
		logger:   logger,
	}
}

func (c *HTTPCatalogClient) cacheKey(productID uuid.UUID) string {
	return fmt.Sprintf("catalog:product:%s", productID)
}

func (c *HTTPCatalogClient) GetProduct(ctx context.Context, productID uuid.UUID) (*models.CatalogProduct, error) {
	if product := c.fromCache(ctx, productID); product != nil {
		return product, nil
	}

	url := fmt.Sprintf("%s/products/%s", c.baseURL, productID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, repository.ErrNotFound
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("catalog returned status %d", resp.StatusCode)
	}

	var product models.CatalogProduct
	if err := json.NewDecoder(resp.Body).Decode(&product); err != nil {
		return nil, fmt.Errorf("decode catalog response: %w", err)
	}

	c.toCache(ctx, productID, &product)
	return &product, nil
}

// fromCache returns nil on a miss or any cache failure. Cache errors never
// surface to the caller.
func (c *HTTPCatalogClient) fromCache(ctx context.Context, productID uuid.UUID) *models.CatalogProduct {
	if c.cache == nil {
		return nil
	}

	data, err := c.cache.Get(ctx, c.cacheKey(productID)).Result()
	if err == redis.Nil {
		return nil
	}
	if err != nil {
		c.logger.Debug("catalog cache read failed", zap.String("product_id", productID.String()), zap.Error(err))
		return nil
	}

	var product models.CatalogProduct
	if err := json.Unmarshal([]byte(data), &product); err != nil {
		c.logger.Debug("catalog cache entry corrupt", zap.String("product_id", productID.String()), zap.Error(err))
		return nil
	}
	return &product
}

func (c *HTTPCatalogClient) toCache(ctx context.Context, productID uuid.UUID, product *models.CatalogProduct) {
	if c.cache == nil {
		return
	}

	data, err := json.Marshal(product)
	if err != nil {
		return
	}
	if err := c.cache.Set(ctx, c.cacheKey(productID), data, c.cacheTTL).Err(); err != nil {
		c.logger.Debug("catalog cache write failed", zap.String("product_id", productID.String()), zap.Error(err))
	}
}
