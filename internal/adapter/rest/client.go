package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rl1809/coffee-pos/internal/core/domain"
	"github.com/rl1809/coffee-pos/internal/port"
)

const (
	productPath  = "/api/product"
	orderPath    = "/api/orden"
	purchasePath = "/api/purchase"
	salePath     = "/api/sale"

	requestIDHeader = "X-Request-ID"
)

// StatusError is returned for any non-2xx backend response.
type StatusError struct {
	Method string
	Path   string
	Code   int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: unexpected status %d", e.Method, e.Path, e.Code)
}

// SaleRequest names the checkout whose orders a sale closes.
type SaleRequest struct {
	CheckoutID string `json:"checkoutId"`
}

// Client talks to the shop backend over HTTP+JSON.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *Client) ListProducts(ctx context.Context) ([]domain.Product, error) {
	var products []domain.Product
	if err := c.do(ctx, http.MethodGet, productPath, nil, &products); err != nil {
		return nil, err
	}
	return products, nil
}

func (c *Client) RegisterOrder(ctx context.Context, order domain.Order) (domain.Order, error) {
	var created domain.Order
	if err := c.do(ctx, http.MethodPost, orderPath, order, &created); err != nil {
		return domain.Order{}, err
	}
	return created, nil
}

func (c *Client) ListTrend(ctx context.Context) ([]domain.TrendEntry, error) {
	var entries []domain.TrendEntry
	if err := c.do(ctx, http.MethodGet, purchasePath, nil, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// DailySales decodes the bare JSON number the backend answers with.
func (c *Client) DailySales(ctx context.Context) (decimal.Decimal, error) {
	var total decimal.Decimal
	if err := c.do(ctx, http.MethodGet, salePath, nil, &total); err != nil {
		return decimal.Zero, err
	}
	return total, nil
}

func (c *Client) RegisterSale(ctx context.Context, checkoutID string) error {
	return c.do(ctx, http.MethodPost, salePath, SaleRequest{CheckoutID: checkoutID}, nil)
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if id, ok := port.RequestIDFrom(ctx); ok {
		req.Header.Set(requestIDHeader, id)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, resp.Body)
		return &StatusError{Method: method, Path: path, Code: resp.StatusCode}
	}

	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}
