package handlers

import (
	"encoding/json"
	"net/http"
)

// VerifyBusinessNumber runs the external registry check and records a
// fresh cache entry on success. Company registration requires this to have
// happened within the cache TTL.
func (h *Handlers) VerifyBusinessNumber(w http.ResponseWriter, r *http.Request) {
	var req struct {
		BusinessNumber string `json:"business_number"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.BusinessNumber == "" {
		writeError(w, http.StatusBadRequest, "Business number is required", "INVALID_INPUT")
		return
	}

	result, err := h.verifyService.Verify(r.Context(), req.BusinessNumber)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}
