package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/vnlease/vnlease-api/internal/domain"
)

// ListVehicles is the public catalog. Responses never include company
// contact fields.
func (h *Handlers) ListVehicles(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r)

	filter := domain.VehicleFilter{
		Region:      r.URL.Query().Get("region"),
		VehicleType: r.URL.Query().Get("vehicle_type"),
		Search:      r.URL.Query().Get("search"),
	}
	if v := r.URL.Query().Get("max_fee"); v != "" {
		if fee, err := strconv.ParseInt(v, 10, 64); err == nil && fee > 0 {
			filter.MaxFee = &fee
		}
	}

	vehicles, err := h.disclosureService.ListVehicles(r.Context(), filter, limit, offset)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if vehicles == nil {
		vehicles = []domain.VehicleSummary{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"vehicles": vehicles,
		"limit":    limit,
		"offset":   offset,
	})
}

// GetVehicleDetail returns one listing, still without contact fields.
func (h *Handlers) GetVehicleDetail(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid vehicle id", "INVALID_INPUT")
		return
	}

	vehicle, err := h.disclosureService.GetVehicleDetail(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, vehicle)
}

// GetVehicleContact is the only endpoint that reveals a company's contact
// phone, and only to a payer.
func (h *Handlers) GetVehicleContact(w http.ResponseWriter, r *http.Request) {
	claims := getClaims(r)
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "Missing authentication", "UNAUTHORIZED")
		return
	}

	id, ok := parseID(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid vehicle id", "INVALID_INPUT")
		return
	}

	contact, err := h.disclosureService.GetContactAfterPayment(r.Context(), claims.Sub, id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, contact)
}

// CreateVehicle lists a new vehicle for the authenticated company.
func (h *Handlers) CreateVehicle(w http.ResponseWriter, r *http.Request) {
	claims := getClaims(r)
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "Missing authentication", "UNAUTHORIZED")
		return
	}

	var req domain.CreateVehicleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON format", "INVALID_INPUT")
		return
	}

	vehicle, err := h.vehicleService.Create(r.Context(), claims.Sub, &req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, vehicle)
}

// UpdateVehicle patches a listing; owners only.
func (h *Handlers) UpdateVehicle(w http.ResponseWriter, r *http.Request) {
	claims := getClaims(r)
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "Missing authentication", "UNAUTHORIZED")
		return
	}

	id, ok := parseID(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid vehicle id", "INVALID_INPUT")
		return
	}

	var req domain.UpdateVehicleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON format", "INVALID_INPUT")
		return
	}

	vehicle, err := h.vehicleService.Update(r.Context(), id, claims.Sub, &req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, vehicle)
}

// DeleteVehicle removes a listing; owners only.
func (h *Handlers) DeleteVehicle(w http.ResponseWriter, r *http.Request) {
	claims := getClaims(r)
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "Missing authentication", "UNAUTHORIZED")
		return
	}

	id, ok := parseID(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid vehicle id", "INVALID_INPUT")
		return
	}

	if err := h.vehicleService.Delete(r.Context(), id, claims.Sub); err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Vehicle deleted"})
}

// ListMyVehicles returns the authenticated company's own listings.
func (h *Handlers) ListMyVehicles(w http.ResponseWriter, r *http.Request) {
	claims := getClaims(r)
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "Missing authentication", "UNAUTHORIZED")
		return
	}

	vehicles, err := h.vehicleService.ListMine(r.Context(), claims.Sub)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if vehicles == nil {
		vehicles = []domain.Vehicle{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"vehicles": vehicles})
}
