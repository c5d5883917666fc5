package domain

import "time"

// Order is the record registered with the backend for one cart line.
type Order struct {
	ID          int64     `json:"id,omitempty"`
	CheckoutID  string    `json:"checkoutId"`
	ProductID   int64     `json:"productId"`
	ProductName string    `json:"productName"`
	Quantity    int       `json:"quantity"`
	Date        time.Time `json:"date"`
}

// OrdersFromLines builds one order per cart line, all tagged with the
// checkout they belong to and stamped with the same checkout time.
func OrdersFromLines(checkoutID string, lines []CartLine, at time.Time) []Order {
	orders := make([]Order, len(lines))
	for i, l := range lines {
		orders[i] = Order{
			CheckoutID:  checkoutID,
			ProductID:   l.Product.ID,
			ProductName: l.Product.Name,
			Quantity:    l.Quantity,
			Date:        at,
		}
	}
	return orders
}
