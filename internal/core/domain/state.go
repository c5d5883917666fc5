package domain

import "github.com/shopspring/decimal"

type LoadState string

const (
	LoadStateIdle    LoadState = "idle"
	LoadStateLoading LoadState = "loading"
	LoadStateReady   LoadState = "ready"
	LoadStateFailed  LoadState = "failed"
)

type CheckoutState string

const (
	CheckoutIdle       CheckoutState = "idle"
	CheckoutSubmitting CheckoutState = "submitting"
)

// Status pairs a load state with the error message of the last failed load.
type Status struct {
	State LoadState `json:"state"`
	Error string    `json:"error,omitempty"`
}

type CatalogView struct {
	Status   Status    `json:"status"`
	Products []Product `json:"products"`
}

type CartView struct {
	Lines    []CartLine      `json:"lines"`
	Total    decimal.Decimal `json:"total"`
	Checkout CheckoutState   `json:"checkout"`
}

type SalesView struct {
	Status Status          `json:"status"`
	Total  decimal.Decimal `json:"total"`
	// Stale is set when the total was incremented locally because the
	// refresh after a checkout failed.
	Stale bool `json:"stale"`
}

type BestSellerView struct {
	Status Status      `json:"status"`
	Entry  *TrendEntry `json:"entry,omitempty"`
}

// Snapshot is a copy of the terminal state; nothing in it aliases the
// controller's internal slices.
type Snapshot struct {
	TerminalID  string         `json:"terminal_id"`
	Catalog     CatalogView    `json:"catalog"`
	Cart        CartView       `json:"cart"`
	DailySales  SalesView      `json:"daily_sales"`
	BestSeller  BestSellerView `json:"best_seller"`
	LastReceipt *Receipt       `json:"last_receipt,omitempty"`
}
