// Package catalog serves the product list, falling back to the local cache
// when the API cannot be reached.
package catalog

import (
	"context"

	"github.com/matheus3301/msana/internal/billingapi"
	"github.com/matheus3301/msana/internal/model"
	"go.uber.org/zap"
)

// Fetcher lists products from the API.
type Fetcher interface {
	ListProducts(ctx context.Context) ([]model.Product, error)
}

// Cache is the local product cache.
type Cache interface {
	ReplaceProducts(ctx context.Context, products []model.Product) error
	Products(ctx context.Context) ([]model.Product, error)
}

// Liveness is the online/offline signal.
type Liveness interface {
	Online() bool
}

// Service lists products.
type Service struct {
	api      Fetcher
	cache    Cache
	liveness Liveness
	logger   *zap.Logger
}

// NewService creates a catalog service.
func NewService(api Fetcher, cache Cache, liveness Liveness, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{api: api, cache: cache, liveness: liveness, logger: logger}
}

// Products returns the catalog. When online it is fetched and cached; when
// offline, or when the fetch fails on the network, the cached copy is
// returned and cached is true.
func (s *Service) Products(ctx context.Context) (products []model.Product, cached bool, err error) {
	if s.liveness.Online() {
		products, err = s.api.ListProducts(ctx)
		if err == nil {
			if err := s.cache.ReplaceProducts(ctx, products); err != nil {
				s.logger.Warn("failed to cache products", zap.Error(err))
			} else {
				s.logger.Debug("cached products", zap.Int("count", len(products)))
			}
			return products, false, nil
		}
		if !billingapi.IsNetwork(err) {
			return nil, false, err
		}
		s.logger.Info("product fetch failed on the network, using cache", zap.Error(err))
	}

	products, err = s.cache.Products(ctx)
	if err != nil {
		return nil, false, err
	}
	return products, true, nil
}
