package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/vnlease/vnlease-api/internal/domain"
	"github.com/vnlease/vnlease-api/pkg/auth"
)

// RegisterIndividual handles driver registration
func (h *Handlers) RegisterIndividual(w http.ResponseWriter, r *http.Request) {
	var req domain.RegisterIndividualRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON format", "INVALID_INPUT")
		return
	}

	resp, err := h.identityService.RegisterIndividual(r.Context(), &req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, resp)
}

// RegisterCompany handles company registration; the business number must
// have passed verification within the cache TTL.
func (h *Handlers) RegisterCompany(w http.ResponseWriter, r *http.Request) {
	var req domain.RegisterCompanyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON format", "INVALID_INPUT")
		return
	}

	resp, err := h.identityService.RegisterCompany(r.Context(), &req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, resp)
}

// Login authenticates either principal type; companies get the sibling
// fan-out in the response.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var req domain.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON format", "INVALID_INPUT")
		return
	}

	switch req.PrincipalType {
	case "", auth.PrincipalIndividual:
		resp, err := h.identityService.LoginIndividual(r.Context(), &req)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	case auth.PrincipalCompany:
		resp, err := h.identityService.LoginCompany(r.Context(), &req)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	default:
		writeError(w, http.StatusBadRequest, "Invalid principal type", "INVALID_INPUT")
	}
}

// SwitchCompany re-authenticates against a sibling company and issues a
// token scoped to it.
func (h *Handlers) SwitchCompany(w http.ResponseWriter, r *http.Request) {
	claims := getClaims(r)
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "Missing authentication", "UNAUTHORIZED")
		return
	}

	var req domain.SwitchCompanyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON format", "INVALID_INPUT")
		return
	}

	resp, err := h.identityService.SwitchCompany(r.Context(), claims.Sub, &req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// Me returns the authenticated principal's public profile.
func (h *Handlers) Me(w http.ResponseWriter, r *http.Request) {
	claims := getClaims(r)
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "Missing authentication", "UNAUTHORIZED")
		return
	}

	switch claims.Type {
	case auth.PrincipalIndividual:
		user, err := h.identityService.GetIndividual(r.Context(), claims.Sub)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"type": claims.Type, "user": user.ToInfo()})
	case auth.PrincipalCompany:
		company, err := h.identityService.GetCompany(r.Context(), claims.Sub)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"type": claims.Type, "user": company.ToInfo()})
	default:
		writeError(w, http.StatusUnauthorized, "Unknown principal type", "UNAUTHORIZED")
	}
}

// UpdateProfile handles partial profile updates for individuals.
func (h *Handlers) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	claims := getClaims(r)
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "Missing authentication", "UNAUTHORIZED")
		return
	}

	var req domain.UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON format", "INVALID_INPUT")
		return
	}

	user, err := h.identityService.UpdateProfile(r.Context(), claims.Sub, &req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, user.ToInfo())
}

// UpdateContactPhone sets or clears the company's disclosure number.
func (h *Handlers) UpdateContactPhone(w http.ResponseWriter, r *http.Request) {
	claims := getClaims(r)
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "Missing authentication", "UNAUTHORIZED")
		return
	}

	var req domain.UpdateContactPhoneRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON format", "INVALID_INPUT")
		return
	}

	company, err := h.identityService.UpdateCompanyContactPhone(r.Context(), claims.Sub, &req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, company.ToInfo())
}

// RequestPasswordReset issues a reset token. The response is identical for
// known and unknown emails.
func (h *Handlers) RequestPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req domain.PasswordResetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" {
		writeError(w, http.StatusBadRequest, "Email is required", "INVALID_INPUT")
		return
	}

	resetURL, err := h.identityService.RequestPasswordReset(r.Context(), req.Email)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	resp := map[string]interface{}{
		"message": "If that email has an account, a reset link has been sent.",
	}
	if h.config.Email.DevMode && resetURL != "" {
		resp["dev_reset_url"] = resetURL
	}

	writeJSON(w, http.StatusOK, resp)
}

// VerifyResetCode exchanges the emailed short code for the reset token.
func (h *Handlers) VerifyResetCode(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
		Code  string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" || req.Code == "" {
		writeError(w, http.StatusBadRequest, "Email and code are required", "INVALID_INPUT")
		return
	}

	token, err := h.identityService.VerifyResetCode(r.Context(), req.Email, req.Code)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

// ResetPassword consumes a reset token and sets the new password.
func (h *Handlers) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req domain.PasswordResetConsume
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON format", "INVALID_INPUT")
		return
	}

	if err := h.identityService.ResetPassword(r.Context(), req.Token, req.NewPassword); err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Password updated"})
}

// OAuthLogin exchanges a provider authorization code for a session.
func (h *Handlers) OAuthLogin(w http.ResponseWriter, r *http.Request) {
	provider := chi.URLParam(r, "provider")

	var req struct {
		Code string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Code == "" {
		writeError(w, http.StatusBadRequest, "Authorization code is required", "INVALID_INPUT")
		return
	}

	resp, err := h.identityService.OAuthLogin(r.Context(), provider, req.Code)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}
