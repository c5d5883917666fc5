// Package resttest provides an in-memory shop backend speaking the same
// HTTP+JSON contract as the real one, for tests and local demos.
package resttest

import (
	"encoding/json"
	"net/http"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/rl1809/coffee-pos/internal/core/domain"
)

type Backend struct {
	mu sync.Mutex

	products []domain.Product
	pending  []domain.Order
	sold     map[int64]int64
	total    decimal.Decimal
	nextID   int64

	// Failure injection; status codes returned instead of a normal answer.
	FailProducts  int
	FailOrderFor  map[int64]int
	FailSale      int
	FailSalesRead int
	FailTrend     int

	OrderCalls int
	SaleCalls  int
	RequestIDs []string
	Registered []domain.Order
}

func NewBackend(products ...domain.Product) *Backend {
	return &Backend{
		products:     products,
		sold:         make(map[int64]int64),
		FailOrderFor: make(map[int64]int),
	}
}

func (b *Backend) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/product", b.listProducts)
	mux.HandleFunc("POST /api/orden", b.registerOrder)
	mux.HandleFunc("GET /api/purchase", b.listTrend)
	mux.HandleFunc("GET /api/sale", b.dailySales)
	mux.HandleFunc("POST /api/sale", b.registerSale)
	return mux
}

// Lock exposes the backend mutex so tests can read counters consistently.
func (b *Backend) Lock()   { b.mu.Lock() }
func (b *Backend) Unlock() { b.mu.Unlock() }

func (b *Backend) Total() decimal.Decimal {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.total
}

func (b *Backend) listProducts(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.FailProducts != 0 {
		w.WriteHeader(b.FailProducts)
		return
	}
	writeJSON(w, http.StatusOK, b.products)
}

func (b *Backend) registerOrder(w http.ResponseWriter, r *http.Request) {
	var o domain.Order
	if err := json.NewDecoder(r.Body).Decode(&o); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.OrderCalls++
	b.RequestIDs = append(b.RequestIDs, r.Header.Get("X-Request-ID"))
	if code := b.FailOrderFor[o.ProductID]; code != 0 {
		w.WriteHeader(code)
		return
	}

	b.nextID++
	o.ID = b.nextID
	b.pending = append(b.pending, o)
	b.Registered = append(b.Registered, o)
	writeJSON(w, http.StatusCreated, o)
}

func (b *Backend) listTrend(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.FailTrend != 0 {
		w.WriteHeader(b.FailTrend)
		return
	}

	entries := make([]domain.TrendEntry, 0, len(b.sold))
	for id, qty := range b.sold {
		entries = append(entries, domain.TrendEntry{Name: b.nameOf(id), SoldQuantity: qty})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].SoldQuantity != entries[j].SoldQuantity {
			return entries[i].SoldQuantity > entries[j].SoldQuantity
		}
		return entries[i].Name < entries[j].Name
	})
	writeJSON(w, http.StatusOK, entries)
}

func (b *Backend) dailySales(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.FailSalesRead != 0 {
		w.WriteHeader(b.FailSalesRead)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(b.total.String()))
}

// registerSale bills the pending orders of one checkout at catalog prices.
// Orders of other checkouts stay pending.
func (b *Backend) registerSale(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CheckoutID string `json:"checkoutId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.CheckoutID == "" {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.SaleCalls++
	if b.FailSale != 0 {
		w.WriteHeader(b.FailSale)
		return
	}

	var kept []domain.Order
	billed := 0
	for _, o := range b.pending {
		if o.CheckoutID != req.CheckoutID {
			kept = append(kept, o)
			continue
		}
		b.total = b.total.Add(b.priceOf(o.ProductID).Mul(decimal.NewFromInt(int64(o.Quantity))))
		b.sold[o.ProductID] += int64(o.Quantity)
		billed++
	}
	if billed == 0 {
		w.WriteHeader(http.StatusConflict)
		return
	}
	b.pending = kept
	w.WriteHeader(http.StatusOK)
}

// Pending returns the orders not yet closed into a sale.
func (b *Backend) Pending() []domain.Order {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]domain.Order(nil), b.pending...)
}

func (b *Backend) priceOf(id int64) decimal.Decimal {
	for _, p := range b.products {
		if p.ID == id {
			return p.Price
		}
	}
	return decimal.Zero
}

func (b *Backend) nameOf(id int64) string {
	for _, p := range b.products {
		if p.ID == id {
			return p.Name
		}
	}
	return ""
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
