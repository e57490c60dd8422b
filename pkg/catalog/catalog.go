// Package catalog holds the product and customer reference data the agent
// works against, served read-through from the local cache.
package catalog

import (
	"context"
	"time"

	"fieldflow/pkg/cache"
)

// Product is a sellable item from the remote catalog.
type Product struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Price float64 `json:"price"`
	Stock int     `json:"stock"`
}

// Customer is a buyer the agent can author orders for.
type Customer struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Remote is the read side of the external data service.
type Remote interface {
	Products(ctx context.Context) ([]Product, error)
	Customers(ctx context.Context) ([]Customer, error)
}

// Cache TTLs: products carry stock levels and go stale quickly, customers
// change rarely.
const (
	productsTTL  = 5 * time.Minute
	customersTTL = 30 * time.Minute
)

const (
	productsKey  = "catalog:products"
	customersKey = "catalog:customers"
)

// Service reads catalog data through the cache, falling back to the remote
// service on a miss.
type Service struct {
	remote Remote
	cache  *cache.Cache
}

// NewService creates a catalog service.
func NewService(remote Remote, c *cache.Cache) *Service {
	return &Service{remote: remote, cache: c}
}

// Products returns the product list, cached for a short period.
func (s *Service) Products(ctx context.Context) ([]Product, error) {
	var products []Product
	if s.cache.Get(ctx, productsKey, &products) {
		return products, nil
	}
	products, err := s.remote.Products(ctx)
	if err != nil {
		return nil, err
	}
	s.cache.Put(ctx, productsKey, products, productsTTL)
	return products, nil
}

// Customers returns the customer list, cached.
func (s *Service) Customers(ctx context.Context) ([]Customer, error) {
	var customers []Customer
	if s.cache.Get(ctx, customersKey, &customers) {
		return customers, nil
	}
	customers, err := s.remote.Customers(ctx)
	if err != nil {
		return nil, err
	}
	s.cache.Put(ctx, customersKey, customers, customersTTL)
	return customers, nil
}
