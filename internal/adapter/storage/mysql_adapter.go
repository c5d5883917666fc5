package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/rl1809/coffee-pos/internal/core/domain"
)

var ErrNoPendingOrders = errors.New("no pending orders to bill")

// MySQLAdapter serves the backend ports straight from the shop database.
type MySQLAdapter struct {
	db *sql.DB
}

func NewMySQLAdapter(db *sql.DB) *MySQLAdapter {
	return &MySQLAdapter{db: db}
}

func (m *MySQLAdapter) ListProducts(ctx context.Context) ([]domain.Product, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT id, name, price, category, img_url
		FROM products ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	defer rows.Close()

	var products []domain.Product
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Price, &p.Category, &p.ImageURL); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate products: %w", err)
	}

	return products, nil
}

func (m *MySQLAdapter) RegisterOrder(ctx context.Context, order domain.Order) (domain.Order, error) {
	result, err := m.db.ExecContext(ctx, `
		INSERT INTO orders (checkout_id, product_id, product_name, quantity, ordered_at)
		VALUES (?, ?, ?, ?, ?)`,
		order.CheckoutID, order.ProductID, order.ProductName, order.Quantity, order.Date,
	)
	if err != nil {
		return domain.Order{}, fmt.Errorf("insert order: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return domain.Order{}, fmt.Errorf("order id: %w", err)
	}
	order.ID = id
	return order, nil
}

// RegisterSale bills the unbilled orders of one checkout. The sale total is
// priced from the products table inside the same transaction.
func (m *MySQLAdapter) RegisterSale(ctx context.Context, checkoutID string) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		INSERT INTO sales (checkout_id, total, created_at) VALUES (?, 0, NOW())`, checkoutID)
	if err != nil {
		return fmt.Errorf("insert sale: %w", err)
	}
	saleID, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("sale id: %w", err)
	}

	result, err = tx.ExecContext(ctx, `
		UPDATE orders SET sale_id = ?
		WHERE checkout_id = ? AND sale_id IS NULL`,
		saleID, checkoutID,
	)
	if err != nil {
		return fmt.Errorf("attach orders: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("attached orders: %w", err)
	}
	if rows == 0 {
		return ErrNoPendingOrders
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE sales SET total = (
			SELECT COALESCE(SUM(o.quantity * p.price), 0)
			FROM orders o JOIN products p ON p.id = o.product_id
			WHERE o.sale_id = ?
		) WHERE id = ?`,
		saleID, saleID,
	)
	if err != nil {
		return fmt.Errorf("total sale: %w", err)
	}

	return tx.Commit()
}

func (m *MySQLAdapter) DailySales(ctx context.Context) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := m.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(total), 0) FROM sales WHERE created_at >= CURDATE()`,
	).Scan(&total)
	if err != nil {
		return decimal.Zero, fmt.Errorf("query daily sales: %w", err)
	}

	return total, nil
}

func (m *MySQLAdapter) ListTrend(ctx context.Context) ([]domain.TrendEntry, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT product_name, SUM(quantity) AS cantidad_vendida
		FROM orders
		WHERE sale_id IS NOT NULL
		GROUP BY product_id, product_name
		ORDER BY cantidad_vendida DESC, product_id`)
	if err != nil {
		return nil, fmt.Errorf("query trend: %w", err)
	}
	defer rows.Close()

	var entries []domain.TrendEntry
	for rows.Next() {
		var e domain.TrendEntry
		if err := rows.Scan(&e.Name, &e.SoldQuantity); err != nil {
			return nil, fmt.Errorf("scan trend: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trend: %w", err)
	}

	return entries, nil
}
