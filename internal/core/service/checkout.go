package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/rl1809/coffee-pos/internal/core/domain"
	"github.com/rl1809/coffee-pos/internal/port"
)

const lockReleaseTimeout = 5 * time.Second

// Checkout registers one order per cart line, then the sale. The cart is
// cleared only when every call succeeded; on failure nothing local changes
// and the returned error wraps ErrCheckoutFailed.
func (s *POSService) Checkout(ctx context.Context) (domain.Receipt, error) {
	s.mu.Lock()
	if s.state.cart.IsEmpty() {
		s.mu.Unlock()
		return domain.Receipt{}, ErrEmptyCart
	}
	if s.state.checkout == domain.CheckoutSubmitting {
		s.mu.Unlock()
		return domain.Receipt{}, ErrCheckoutInProgress
	}
	s.state.checkout = domain.CheckoutSubmitting
	lines := s.state.cart.Lines()
	total := s.state.cart.Total()
	s.mu.Unlock()

	defer s.setCheckoutState(domain.CheckoutIdle)

	checkoutID := uuid.NewString()
	log := s.log.WithField("checkout_id", checkoutID)

	ctx, span := tracer.Start(ctx, "pos.Checkout", trace.WithAttributes(
		attribute.String("pos.terminal_id", s.terminalID),
		attribute.String("pos.checkout_id", checkoutID),
		attribute.Int("pos.lines", len(lines)),
		attribute.String("pos.total", total.StringFixed(2)),
	))
	defer span.End()

	ok, err := s.lock.Acquire(ctx, s.terminalID, checkoutID)
	if err != nil {
		span.SetStatus(codes.Error, "lock")
		log.WithError(err).Error("checkout lock failed")
		return domain.Receipt{}, fmt.Errorf("%w: acquire lock: %w", ErrCheckoutFailed, err)
	}
	if !ok {
		log.Warn("checkout rejected: terminal lock held")
		return domain.Receipt{}, ErrCheckoutInProgress
	}
	defer s.releaseLock(ctx, checkoutID, log)

	at := s.now()
	if err := s.submit(port.WithRequestID(ctx, checkoutID), checkoutID, domain.OrdersFromLines(checkoutID, lines, at)); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "submit")
		log.WithError(err).Error("checkout failed")
		return domain.Receipt{}, fmt.Errorf("%w: %w", ErrCheckoutFailed, err)
	}

	sales, refreshErr := s.backend.DailySales(ctx)

	receipt := domain.Receipt{
		CheckoutID:  checkoutID,
		Lines:       lines,
		Total:       total,
		CompletedAt: at,
	}

	s.mu.Lock()
	s.state.cart.Clear()
	if refreshErr != nil {
		s.state.sales = s.state.sales.Add(total)
		s.state.salesStale = true
	} else {
		s.state.sales = sales
		s.state.salesStale = false
	}
	s.state.salesStatus = domain.Status{State: domain.LoadStateReady}
	s.state.salesVersion++
	kept := receipt
	kept.Lines = append([]domain.CartLine(nil), lines...)
	s.state.lastReceipt = &kept
	s.mu.Unlock()

	if refreshErr != nil {
		log.WithError(refreshErr).Warn("daily sales refresh failed, applied local increment")
	}
	log.WithFields(logrus.Fields{
		"lines": len(lines),
		"total": total.StringFixed(2),
	}).Info("checkout completed")

	return receipt, nil
}

// submit fans the orders out, waits for all of them and only then registers
// the sale for checkoutID.
func (s *POSService) submit(ctx context.Context, checkoutID string, orders []domain.Order) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.maxConcurrent)

	for _, o := range orders {
		g.Go(func() error {
			if _, err := s.backend.RegisterOrder(gctx, o); err != nil {
				return fmt.Errorf("register order for product %d: %w", o.ProductID, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if err := s.backend.RegisterSale(ctx, checkoutID); err != nil {
		return fmt.Errorf("register sale: %w", err)
	}
	return nil
}

func (s *POSService) releaseLock(ctx context.Context, token string, log logrus.FieldLogger) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), lockReleaseTimeout)
	defer cancel()

	if err := s.lock.Release(ctx, s.terminalID, token); err != nil {
		log.WithError(err).Error("checkout lock release failed")
	}
}

func (s *POSService) setCheckoutState(state domain.CheckoutState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.checkout = state
}
