package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/rl1809/coffee-pos/internal/core/domain"
	"github.com/rl1809/coffee-pos/internal/core/service"
)

type HTTPHandler struct {
	pos *service.POSService
	log logrus.FieldLogger
}

type AddItemHTTPRequest struct {
	ProductID int64 `json:"product_id"`
}

type ErrorHTTPResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type CheckoutHTTPResponse struct {
	Success bool           `json:"success"`
	Message string         `json:"message"`
	Receipt domain.Receipt `json:"receipt"`
}

func NewHTTPHandler(pos *service.POSService, log logrus.FieldLogger) *HTTPHandler {
	return &HTTPHandler{pos: pos, log: log}
}

// Routes registers the terminal API on r.
func (h *HTTPHandler) Routes(r *mux.Router) {
	r.HandleFunc("/health", h.HealthCheck).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/state", h.State).Methods(http.MethodGet)
	api.HandleFunc("/catalog", h.Catalog).Methods(http.MethodGet)
	api.HandleFunc("/cart/items", h.AddItem).Methods(http.MethodPost)
	api.HandleFunc("/cart/items/{id:[0-9]+}", h.RemoveItem).Methods(http.MethodDelete)
	api.HandleFunc("/checkout", h.Checkout).Methods(http.MethodPost)
	api.HandleFunc("/refresh", h.Refresh).Methods(http.MethodPost)
}

func (h *HTTPHandler) State(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.pos.Snapshot())
}

func (h *HTTPHandler) Catalog(w http.ResponseWriter, r *http.Request) {
	products, err := h.pos.FilterByCategory(r.URL.Query().Get("category"))
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, products)
}

func (h *HTTPHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req AddItemHTTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorHTTPResponse{
			Success: false,
			Message: "invalid request body",
		})
		return
	}

	if req.ProductID <= 0 {
		writeJSON(w, http.StatusBadRequest, ErrorHTTPResponse{
			Success: false,
			Message: "missing required fields",
		})
		return
	}

	snap, err := h.pos.AddToCart(req.ProductID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, snap)
}

func (h *HTTPHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorHTTPResponse{
			Success: false,
			Message: "invalid product id",
		})
		return
	}

	snap, err := h.pos.RemoveFromCart(id)
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, snap)
}

func (h *HTTPHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	receipt, err := h.pos.Checkout(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, CheckoutHTTPResponse{
		Success: true,
		Message: receipt.Message(),
		Receipt: receipt,
	})
}

// Refresh reloads catalog and dashboard. Load failures are part of the
// returned snapshot, so the call itself always succeeds.
func (h *HTTPHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	if err := h.pos.Refresh(r.Context()); err != nil {
		h.log.WithError(err).Warn("refresh incomplete")
	}

	writeJSON(w, http.StatusOK, h.pos.Snapshot())
}

func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *HTTPHandler) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	message := "internal error"

	switch {
	case errors.Is(err, service.ErrEmptyCart):
		status = http.StatusBadRequest
		message = "cart is empty"
	case errors.Is(err, service.ErrProductNotFound):
		status = http.StatusNotFound
		message = "product not found"
	case errors.Is(err, domain.ErrUnknownCategory):
		status = http.StatusBadRequest
		message = "unknown category"
	case errors.Is(err, service.ErrCheckoutInProgress):
		status = http.StatusConflict
		message = "checkout in progress"
	case errors.Is(err, service.ErrCheckoutFailed):
		status = http.StatusBadGateway
		message = "checkout failed, please retry"
	default:
		h.log.WithError(err).Error("unhandled error")
	}

	writeJSON(w, status, ErrorHTTPResponse{
		Success: false,
		Message: message,
	})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
