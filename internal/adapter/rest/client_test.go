package rest

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"

	"github.com/rl1809/coffee-pos/internal/adapter/rest/resttest"
	"github.com/rl1809/coffee-pos/internal/core/domain"
	"github.com/rl1809/coffee-pos/internal/port"
)

var (
	espresso  = domain.Product{ID: 1, Name: "Espresso", Price: decimal.RequireFromString("2.5"), Category: domain.CategoryCoffee, ImageURL: "espresso.jpg"}
	croissant = domain.Product{ID: 4, Name: "Croissant", Price: decimal.RequireFromString("2"), Category: domain.CategoryPastry, ImageURL: "croissant.jpg"}
)

func newTestClient(t *testing.T, backend *resttest.Backend) *Client {
	t.Helper()
	srv := httptest.NewServer(backend.Handler())
	t.Cleanup(srv.Close)
	return NewClient(srv.URL+"/", time.Second)
}

func TestListProducts(t *testing.T) {
	client := newTestClient(t, resttest.NewBackend(espresso, croissant))

	got, err := client.ListProducts(context.Background())
	if err != nil {
		t.Fatalf("ListProducts failed: %v", err)
	}
	want := []domain.Product{espresso, croissant}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("products mismatch (-want +got):\n%s", diff)
	}
}

func TestListProducts_NumericPrice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"id":3,"name":"Cappuccino","price":3.5,"category":"coffee","imgUrl":"c.jpg"}]`))
	}))
	defer srv.Close()

	got, err := NewClient(srv.URL, time.Second).ListProducts(context.Background())
	if err != nil {
		t.Fatalf("ListProducts failed: %v", err)
	}
	if len(got) != 1 || !got[0].Price.Equal(decimal.RequireFromString("3.50")) || got[0].ImageURL != "c.jpg" {
		t.Errorf("unexpected products %+v", got)
	}
}

func TestRegisterOrder_SendsProductAndRequestID(t *testing.T) {
	backend := resttest.NewBackend(espresso)
	client := newTestClient(t, backend)

	at := time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)
	ctx := port.WithRequestID(context.Background(), "checkout-1")
	created, err := client.RegisterOrder(ctx, domain.Order{CheckoutID: "checkout-1", ProductID: 1, ProductName: "Espresso", Quantity: 2, Date: at})
	if err != nil {
		t.Fatalf("RegisterOrder failed: %v", err)
	}
	if created.ID == 0 {
		t.Error("expected backend-assigned id")
	}

	backend.Lock()
	defer backend.Unlock()
	want := []domain.Order{{ID: created.ID, CheckoutID: "checkout-1", ProductID: 1, ProductName: "Espresso", Quantity: 2, Date: at}}
	if diff := cmp.Diff(want, backend.Registered); diff != "" {
		t.Errorf("registered orders mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"checkout-1"}, backend.RequestIDs); diff != "" {
		t.Errorf("request ids mismatch (-want +got):\n%s", diff)
	}
}

func TestSaleAndDailySales(t *testing.T) {
	backend := resttest.NewBackend(espresso, croissant)
	client := newTestClient(t, backend)
	ctx := context.Background()

	total, err := client.DailySales(ctx)
	if err != nil {
		t.Fatalf("DailySales failed: %v", err)
	}
	if !total.IsZero() {
		t.Errorf("expected zero sales, got %s", total)
	}

	client.RegisterOrder(ctx, domain.Order{CheckoutID: "checkout-1", ProductID: 1, Quantity: 2})
	client.RegisterOrder(ctx, domain.Order{CheckoutID: "checkout-1", ProductID: 4, Quantity: 1})
	client.RegisterOrder(ctx, domain.Order{CheckoutID: "checkout-0", ProductID: 1, Quantity: 5})
	if err := client.RegisterSale(ctx, "checkout-1"); err != nil {
		t.Fatalf("RegisterSale failed: %v", err)
	}
	if pending := backend.Pending(); len(pending) != 1 || pending[0].CheckoutID != "checkout-0" {
		t.Errorf("expected other checkout's order left pending, got %+v", pending)
	}

	total, err = client.DailySales(ctx)
	if err != nil {
		t.Fatalf("DailySales failed: %v", err)
	}
	if !total.Equal(decimal.RequireFromString("7")) {
		t.Errorf("expected 7, got %s", total)
	}

	trend, err := client.ListTrend(ctx)
	if err != nil {
		t.Fatalf("ListTrend failed: %v", err)
	}
	want := []domain.TrendEntry{{Name: "Espresso", SoldQuantity: 2}, {Name: "Croissant", SoldQuantity: 1}}
	if diff := cmp.Diff(want, trend); diff != "" {
		t.Errorf("trend mismatch (-want +got):\n%s", diff)
	}
}

func TestStatusError(t *testing.T) {
	backend := resttest.NewBackend()
	backend.FailSale = http.StatusServiceUnavailable
	client := newTestClient(t, backend)

	err := client.RegisterSale(context.Background(), "checkout-1")

	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected *StatusError, got %v", err)
	}
	if statusErr.Code != http.StatusServiceUnavailable || statusErr.Path != "/api/sale" || statusErr.Method != http.MethodPost {
		t.Errorf("unexpected status error %+v", statusErr)
	}
}

func TestTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	_, err := NewClient(srv.URL, 50*time.Millisecond).ListTrend(context.Background())
	if err == nil {
		t.Fatal("expected timeout error")
	}
}
