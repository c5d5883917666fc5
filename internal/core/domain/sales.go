package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type TrendEntry struct {
	Name         string `json:"name"`
	SoldQuantity int64  `json:"cantidad_vendida"`
}

type Receipt struct {
	CheckoutID  string          `json:"checkout_id"`
	Lines       []CartLine      `json:"lines"`
	Total       decimal.Decimal `json:"total"`
	CompletedAt time.Time       `json:"completed_at"`
}

// Message is the confirmation shown to the cashier.
func (r Receipt) Message() string {
	return "Venta completada. Total: $" + r.Total.StringFixed(2)
}
