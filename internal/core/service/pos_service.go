package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"

	"github.com/rl1809/coffee-pos/internal/core/domain"
	"github.com/rl1809/coffee-pos/internal/port"
)

var (
	ErrEmptyCart          = errors.New("cart is empty")
	ErrCheckoutInProgress = errors.New("checkout in progress")
	ErrCheckoutFailed     = errors.New("checkout failed")
	ErrProductNotFound    = errors.New("product not found")
)

var tracer = otel.Tracer("github.com/rl1809/coffee-pos/internal/core/service")

const defaultMaxConcurrent = 8

// appState is everything a terminal shows. It is only touched with
// POSService.mu held.
type appState struct {
	catalog       []domain.Product
	catalogStatus domain.Status

	cart     domain.Cart
	checkout domain.CheckoutState

	sales       decimal.Decimal
	salesStatus domain.Status
	salesStale  bool
	// salesVersion is bumped by every committed checkout. Loads started
	// before a bump are dropped.
	salesVersion uint64

	bestSeller  *domain.TrendEntry
	trendStatus domain.Status

	lastReceipt *domain.Receipt
}

// POSService owns the terminal state. Its methods are the only way to change
// it; readers get copies through Snapshot.
type POSService struct {
	terminalID    string
	backend       port.BackendRepository
	lock          port.CheckoutLock
	log           logrus.FieldLogger
	maxConcurrent int
	now           func() time.Time

	mu              sync.Mutex
	state           appState
	catalogObserver func(domain.Status)
}

func NewPOSService(terminalID string, backend port.BackendRepository, lock port.CheckoutLock, log logrus.FieldLogger, maxConcurrent int) *POSService {
	if maxConcurrent <= 0 {
		maxConcurrent = defaultMaxConcurrent
	}
	idle := domain.Status{State: domain.LoadStateIdle}

	return &POSService{
		terminalID:    terminalID,
		backend:       backend,
		lock:          lock,
		log:           log.WithField("terminal_id", terminalID),
		maxConcurrent: maxConcurrent,
		now:           time.Now,
		state: appState{
			catalogStatus: idle,
			checkout:      domain.CheckoutIdle,
			salesStatus:   idle,
			trendStatus:   idle,
		},
	}
}

// OnCatalogStatus registers fn to be called after every catalog load.
func (s *POSService) OnCatalogStatus(fn func(domain.Status)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.catalogObserver = fn
}

func (s *POSService) LoadCatalog(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "pos.LoadCatalog")
	defer span.End()

	s.setStatus(&s.state.catalogStatus, domain.Status{State: domain.LoadStateLoading})

	products, err := s.backend.ListProducts(ctx)

	s.mu.Lock()
	if err != nil {
		s.state.catalogStatus = failed(err)
	} else {
		s.state.catalog = append([]domain.Product(nil), products...)
		s.state.catalogStatus = domain.Status{State: domain.LoadStateReady}
	}
	status, observer := s.state.catalogStatus, s.catalogObserver
	s.mu.Unlock()

	if observer != nil {
		observer(status)
	}

	if err != nil {
		span.RecordError(err)
		s.log.WithError(err).Warn("catalog load failed")
		return fmt.Errorf("load catalog: %w", err)
	}
	s.log.WithField("products", len(products)).Info("catalog loaded")
	return nil
}

func (s *POSService) LoadDailySales(ctx context.Context) error {
	s.mu.Lock()
	s.state.salesStatus = domain.Status{State: domain.LoadStateLoading}
	version := s.state.salesVersion
	s.mu.Unlock()

	total, err := s.backend.DailySales(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.salesVersion != version {
		s.log.Debug("daily sales load overtaken by checkout, result dropped")
		if err != nil {
			return fmt.Errorf("load daily sales: %w", err)
		}
		return nil
	}
	if err != nil {
		s.state.salesStatus = failed(err)
		s.log.WithError(err).Warn("daily sales load failed")
		return fmt.Errorf("load daily sales: %w", err)
	}
	s.state.sales = total
	s.state.salesStale = false
	s.state.salesStatus = domain.Status{State: domain.LoadStateReady}
	return nil
}

// LoadTrend keeps only the first trend entry, which the dashboard shows as
// the best seller.
func (s *POSService) LoadTrend(ctx context.Context) error {
	s.setStatus(&s.state.trendStatus, domain.Status{State: domain.LoadStateLoading})

	entries, err := s.backend.ListTrend(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.state.trendStatus = failed(err)
		s.log.WithError(err).Warn("purchase trend load failed")
		return fmt.Errorf("load trend: %w", err)
	}
	s.state.bestSeller = nil
	if len(entries) > 0 {
		first := entries[0]
		s.state.bestSeller = &first
	}
	s.state.trendStatus = domain.Status{State: domain.LoadStateReady}
	return nil
}

func (s *POSService) LoadDashboard(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "pos.LoadDashboard")
	defer span.End()

	// Both loads always run to completion; every failure is reported.
	var wg sync.WaitGroup
	var salesErr, trendErr error
	wg.Go(func() { salesErr = s.LoadDailySales(ctx) })
	wg.Go(func() { trendErr = s.LoadTrend(ctx) })
	wg.Wait()

	return errors.Join(salesErr, trendErr)
}

// Refresh reloads the catalog and the dashboard. Each part records its own
// load state, so a failure in one does not hide the others.
func (s *POSService) Refresh(ctx context.Context) error {
	var wg sync.WaitGroup
	var catalogErr, dashboardErr error
	wg.Go(func() { catalogErr = s.LoadCatalog(ctx) })
	wg.Go(func() { dashboardErr = s.LoadDashboard(ctx) })
	wg.Wait()

	return errors.Join(catalogErr, dashboardErr)
}

func (s *POSService) AddToCart(productID int64) (domain.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.checkout == domain.CheckoutSubmitting {
		return domain.Snapshot{}, ErrCheckoutInProgress
	}
	p, ok := s.findProduct(productID)
	if !ok {
		return domain.Snapshot{}, fmt.Errorf("%w: %d", ErrProductNotFound, productID)
	}
	s.state.cart.Add(p)
	return s.snapshotLocked(), nil
}

func (s *POSService) RemoveFromCart(productID int64) (domain.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.checkout == domain.CheckoutSubmitting {
		return domain.Snapshot{}, ErrCheckoutInProgress
	}
	s.state.cart.Remove(productID)
	return s.snapshotLocked(), nil
}

func (s *POSService) TotalPrice() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.cart.Total()
}

func (s *POSService) FilterByCategory(category string) ([]domain.Product, error) {
	c, err := domain.ParseCategory(category)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.FilterProducts(s.state.catalog, c), nil
}

func (s *POSService) Snapshot() domain.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *POSService) snapshotLocked() domain.Snapshot {
	snap := domain.Snapshot{
		TerminalID: s.terminalID,
		Catalog: domain.CatalogView{
			Status:   s.state.catalogStatus,
			Products: domain.FilterProducts(s.state.catalog, domain.CategoryAll),
		},
		Cart: domain.CartView{
			Lines:    s.state.cart.Lines(),
			Total:    s.state.cart.Total(),
			Checkout: s.state.checkout,
		},
		DailySales: domain.SalesView{
			Status: s.state.salesStatus,
			Total:  s.state.sales,
			Stale:  s.state.salesStale,
		},
		BestSeller: domain.BestSellerView{Status: s.state.trendStatus},
	}
	if s.state.bestSeller != nil {
		entry := *s.state.bestSeller
		snap.BestSeller.Entry = &entry
	}
	if s.state.lastReceipt != nil {
		r := *s.state.lastReceipt
		r.Lines = append([]domain.CartLine(nil), r.Lines...)
		snap.LastReceipt = &r
	}
	return snap
}

func (s *POSService) findProduct(id int64) (domain.Product, bool) {
	for _, p := range s.state.catalog {
		if p.ID == id {
			return p, true
		}
	}
	return domain.Product{}, false
}

func (s *POSService) setStatus(dst *domain.Status, status domain.Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	*dst = status
}

func failed(err error) domain.Status {
	return domain.Status{State: domain.LoadStateFailed, Error: err.Error()}
}
