package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/vnlease/vnlease-api/internal/domain"
	"github.com/vnlease/vnlease-api/pkg/logger"
)

// CreatePayment purchases contact access for one vehicle.
func (h *Handlers) CreatePayment(w http.ResponseWriter, r *http.Request) {
	claims := getClaims(r)
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "Missing authentication", "UNAUTHORIZED")
		return
	}

	var req struct {
		VehicleID int64 `json:"vehicle_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.VehicleID <= 0 {
		writeError(w, http.StatusBadRequest, "Vehicle id is required", "INVALID_INPUT")
		return
	}

	payment, err := h.paymentService.CreatePayment(r.Context(), claims.Sub, req.VehicleID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, payment)
}

// GetPaymentStatus reports whether the caller has paid for a vehicle.
func (h *Handlers) GetPaymentStatus(w http.ResponseWriter, r *http.Request) {
	claims := getClaims(r)
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "Missing authentication", "UNAUTHORIZED")
		return
	}

	vehicleID, ok := parseID(chi.URLParam(r, "vehicleID"))
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid vehicle id", "INVALID_INPUT")
		return
	}

	status, err := h.paymentService.GetStatus(r.Context(), claims.Sub, vehicleID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, status)
}

// ListMyPayments returns the caller's purchase history, newest first.
func (h *Handlers) ListMyPayments(w http.ResponseWriter, r *http.Request) {
	claims := getClaims(r)
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "Missing authentication", "UNAUTHORIZED")
		return
	}

	limit, offset := parsePagination(r)
	payments, err := h.paymentService.ListMine(r.Context(), claims.Sub, limit, offset)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if payments == nil {
		payments = []domain.PaymentWithVehicle{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"payments": payments})
}

// StripeWebhook settles pending payments from asynchronous gateway
// confirmations. Mounted only when the stripe gateway is configured.
func (h *Handlers) StripeWebhook(w http.ResponseWriter, r *http.Request) {
	if h.stripeGateway == nil {
		writeError(w, http.StatusNotFound, "Webhook not configured", "NOT_FOUND")
		return
	}

	payload, err := io.ReadAll(io.LimitReader(r.Body, 1<<16))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Unreadable payload", "INVALID_INPUT")
		return
	}

	ref, succeeded, err := h.stripeGateway.ConfirmFromWebhook(payload, r.Header.Get("Stripe-Signature"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if ref == "" {
		// Event type we don't act on.
		writeJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
		return
	}

	if err := h.paymentService.CompleteFromGateway(r.Context(), ref, succeeded); err != nil {
		logger.ErrorContext(r.Context(), "Webhook settlement failed", "error", err, "ref", ref)
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
