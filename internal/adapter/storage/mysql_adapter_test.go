package storage

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"testing"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rl1809/coffee-pos/internal/core/domain"
)

func getMySQLDB(t *testing.T) *sql.DB {
	dsn := os.Getenv("MYSQL_DSN")
	if dsn == "" {
		dsn = "root:root@tcp(localhost:3306)/coffeepos?parseTime=true"
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		t.Skipf("MySQL not available: %v", err)
	}

	if err := db.Ping(); err != nil {
		t.Skipf("MySQL not available: %v", err)
	}

	return db
}

func seedProducts(t *testing.T, db *sql.DB) {
	t.Helper()
	ctx := context.Background()

	db.ExecContext(ctx, `DELETE FROM orders WHERE product_id IN (9001, 9002)`)

	_, err := db.ExecContext(ctx, `
		INSERT INTO products (id, name, price, category, img_url) VALUES
			(9001, 'Test Espresso', 2.50, 'coffee', ''),
			(9002, 'Test Croissant', 2.00, 'pastry', '')
		ON DUPLICATE KEY UPDATE price = VALUES(price)`)
	if err != nil {
		t.Fatalf("setup failed: %v", err)
	}
}

func TestListProducts(t *testing.T) {
	db := getMySQLDB(t)
	defer db.Close()
	seedProducts(t, db)

	adapter := NewMySQLAdapter(db)
	products, err := adapter.ListProducts(context.Background())
	if err != nil {
		t.Fatalf("ListProducts failed: %v", err)
	}

	var found *domain.Product
	for i := range products {
		if products[i].ID == 9001 {
			found = &products[i]
		}
	}
	if found == nil {
		t.Fatal("seeded product not listed")
	}
	if found.Category != domain.CategoryCoffee {
		t.Errorf("expected coffee, got %s", found.Category)
	}
	if !found.Price.Equal(decimal.RequireFromString("2.50")) {
		t.Errorf("expected price 2.50, got %s", found.Price)
	}
}

func TestRegisterSale_BillsPendingOrders(t *testing.T) {
	db := getMySQLDB(t)
	defer db.Close()
	seedProducts(t, db)

	ctx := context.Background()
	adapter := NewMySQLAdapter(db)

	before, err := adapter.DailySales(ctx)
	if err != nil {
		t.Fatalf("DailySales failed: %v", err)
	}

	now := time.Now()
	checkoutID := uuid.NewString()
	for _, o := range []domain.Order{
		{CheckoutID: checkoutID, ProductID: 9001, ProductName: "Test Espresso", Quantity: 2, Date: now},
		{CheckoutID: checkoutID, ProductID: 9002, ProductName: "Test Croissant", Quantity: 1, Date: now},
		// Left over from an earlier, failed checkout
		{CheckoutID: uuid.NewString(), ProductID: 9001, ProductName: "Test Espresso", Quantity: 5, Date: now},
	} {
		saved, err := adapter.RegisterOrder(ctx, o)
		if err != nil {
			t.Fatalf("RegisterOrder failed: %v", err)
		}
		if saved.ID == 0 {
			t.Error("expected generated order id")
		}
	}

	if err := adapter.RegisterSale(ctx, checkoutID); err != nil {
		t.Fatalf("RegisterSale failed: %v", err)
	}

	after, err := adapter.DailySales(ctx)
	if err != nil {
		t.Fatalf("DailySales failed: %v", err)
	}
	if diff := after.Sub(before); !diff.Equal(decimal.RequireFromString("7")) {
		t.Errorf("expected daily sales to grow by 7.00, got %s", diff)
	}

	var unbilled int
	db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM orders
		WHERE product_id IN (9001, 9002) AND sale_id IS NULL`).Scan(&unbilled)
	if unbilled != 1 {
		t.Errorf("expected the other checkout's order left unbilled, got %d unbilled", unbilled)
	}

	// Nothing left to bill for this checkout
	if err := adapter.RegisterSale(ctx, checkoutID); !errors.Is(err, ErrNoPendingOrders) {
		t.Errorf("expected ErrNoPendingOrders, got: %v", err)
	}

	// Cleanup
	db.ExecContext(ctx, `DELETE FROM orders WHERE product_id IN (9001, 9002)`)
}

func TestListTrend_OrdersBySoldQuantity(t *testing.T) {
	db := getMySQLDB(t)
	defer db.Close()
	seedProducts(t, db)

	ctx := context.Background()
	adapter := NewMySQLAdapter(db)

	now := time.Now()
	checkoutID := uuid.NewString()
	adapter.RegisterOrder(ctx, domain.Order{CheckoutID: checkoutID, ProductID: 9002, ProductName: "Test Croissant", Quantity: 1000, Date: now})
	adapter.RegisterOrder(ctx, domain.Order{CheckoutID: checkoutID, ProductID: 9001, ProductName: "Test Espresso", Quantity: 999, Date: now})
	// Unbilled orders do not count as sold
	adapter.RegisterOrder(ctx, domain.Order{CheckoutID: uuid.NewString(), ProductID: 9001, ProductName: "Test Espresso", Quantity: 5000, Date: now})
	if err := adapter.RegisterSale(ctx, checkoutID); err != nil {
		t.Fatalf("RegisterSale failed: %v", err)
	}

	entries, err := adapter.ListTrend(ctx)
	if err != nil {
		t.Fatalf("ListTrend failed: %v", err)
	}
	if len(entries) < 2 {
		t.Fatalf("expected at least 2 entries, got %d", len(entries))
	}
	if entries[0].Name != "Test Croissant" || entries[0].SoldQuantity != 1000 {
		t.Errorf("unexpected best seller %+v", entries[0])
	}

	// Cleanup
	db.ExecContext(ctx, `DELETE FROM orders WHERE product_id IN (9001, 9002)`)
}
