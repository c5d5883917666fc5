package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var ErrUnknownCategory = errors.New("unknown category")

type Category string

const (
	CategoryAll     Category = "all"
	CategoryCoffee  Category = "coffee"
	CategoryPastry  Category = "pastry"
	CategoryDessert Category = "dessert"
)

// ParseCategory accepts the three product categories and the "all" filter.
// An empty string is treated as "all".
func ParseCategory(s string) (Category, error) {
	switch c := Category(s); c {
	case "":
		return CategoryAll, nil
	case CategoryAll, CategoryCoffee, CategoryPastry, CategoryDessert:
		return c, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownCategory, s)
	}
}

type Product struct {
	ID       int64           `json:"id"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Category Category        `json:"category"`
	ImageURL string          `json:"imgUrl"`
}

// FilterProducts returns the products in the given category, in catalog
// order. CategoryAll returns a copy of the whole list.
func FilterProducts(products []Product, category Category) []Product {
	out := make([]Product, 0, len(products))
	for _, p := range products {
		if category == CategoryAll || p.Category == category {
			out = append(out, p)
		}
	}
	return out
}
