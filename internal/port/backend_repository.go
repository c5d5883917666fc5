package port

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/rl1809/coffee-pos/internal/core/domain"
)

type CatalogRepository interface {
	// ListProducts returns every product the shop currently sells
	ListProducts(ctx context.Context) ([]domain.Product, error)
}

type OrderRepository interface {
	// RegisterOrder records one order line and returns the stored record
	RegisterOrder(ctx context.Context, order domain.Order) (domain.Order, error)
}

type SalesRepository interface {
	// DailySales returns today's sales total as accounted by the backend
	DailySales(ctx context.Context) (decimal.Decimal, error)

	// RegisterSale closes the orders registered under checkoutID into one
	// sale. Orders left over from other checkouts are not billed.
	RegisterSale(ctx context.Context, checkoutID string) error

	// ListTrend returns products with their sold quantity, in backend order
	ListTrend(ctx context.Context) ([]domain.TrendEntry, error)
}

// BackendRepository is the full set of collaborators a terminal talks to.
type BackendRepository interface {
	CatalogRepository
	OrderRepository
	SalesRepository
}
