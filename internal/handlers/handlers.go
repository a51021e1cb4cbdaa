package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/vnlease/vnlease-api/internal/domain"
	"github.com/vnlease/vnlease-api/internal/payment"
	"github.com/vnlease/vnlease-api/internal/service"
	"github.com/vnlease/vnlease-api/internal/verify"
	"github.com/vnlease/vnlease-api/pkg/auth"
	"github.com/vnlease/vnlease-api/pkg/config"
	"github.com/vnlease/vnlease-api/pkg/logger"
)

type claimsKey struct{}

type Handlers struct {
	identityService   service.IdentityService
	vehicleService    service.VehicleService
	paymentService    service.PaymentService
	disclosureService service.DisclosureService
	verifyService     verify.Service
	stripeGateway     *payment.StripeGateway
	config            *config.Config
}

func New(
	identityService service.IdentityService,
	vehicleService service.VehicleService,
	paymentService service.PaymentService,
	disclosureService service.DisclosureService,
	verifyService verify.Service,
	stripeGateway *payment.StripeGateway,
	config *config.Config,
) *Handlers {
	return &Handlers{
		identityService:   identityService,
		vehicleService:    vehicleService,
		paymentService:    paymentService,
		disclosureService: disclosureService,
		verifyService:     verifyService,
		stripeGateway:     stripeGateway,
		config:            config,
	}
}

// RequireJWT authenticates the request and, when principalType is not
// empty, requires that exact principal type.
func (h *Handlers) RequireJWT(principalType string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if !strings.HasPrefix(authHeader, "Bearer ") {
				writeError(w, http.StatusUnauthorized, "Missing or invalid authorization header", "UNAUTHORIZED")
				return
			}

			token := strings.TrimPrefix(authHeader, "Bearer ")
			claims, err := auth.Parse(token, h.config.Auth.JWTSecret)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "Invalid token", "INVALID_TOKEN")
				return
			}

			if principalType != "" && claims.Type != principalType {
				writeError(w, http.StatusForbidden, "Wrong account type for this operation", "FORBIDDEN")
				return
			}

			ctx := context.WithValue(r.Context(), logger.PrincipalIDKey, claims.Sub)
			ctx = context.WithValue(ctx, logger.PrincipalTypeKey, claims.Type)
			ctx = context.WithValue(ctx, claimsKey{}, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func getClaims(r *http.Request) *auth.Claims {
	if claims, ok := r.Context().Value(claimsKey{}).(*auth.Claims); ok {
		return claims
	}
	return nil
}

func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, statusCode int, message, code string) {
	writeJSON(w, statusCode, map[string]string{
		"error": message,
		"code":  code,
	})
}

// writeServiceError maps the error taxonomy to HTTP. Unexpected errors leak
// no detail in production mode.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch domain.KindOf(err) {
	case domain.KindValidation:
		writeError(w, http.StatusBadRequest, err.Error(), "INVALID_INPUT")
	case domain.KindConflict:
		writeError(w, http.StatusConflict, err.Error(), "CONFLICT")
	case domain.KindAuthentication:
		writeError(w, http.StatusUnauthorized, err.Error(), "UNAUTHORIZED")
	case domain.KindAuthorization:
		writeError(w, http.StatusForbidden, err.Error(), "FORBIDDEN")
	case domain.KindNotFound:
		writeError(w, http.StatusNotFound, err.Error(), "NOT_FOUND")
	case domain.KindInvalidState:
		writeError(w, http.StatusConflict, err.Error(), "INVALID_STATE")
	case domain.KindExternalService:
		writeError(w, http.StatusBadGateway, err.Error(), "UPSTREAM_ERROR")
	default:
		logger.ErrorContext(r.Context(), "Unhandled service error", "error", err,
			"method", r.Method, "path", r.URL.Path)
		msg := "internal error"
		if os.Getenv("APP_ENV") != "production" {
			msg = err.Error()
		}
		writeError(w, http.StatusInternalServerError, msg, "INTERNAL_ERROR")
	}
}

func parsePagination(r *http.Request) (limit, offset int) {
	limit = 20
	offset = 0

	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}

	return limit, offset
}

func parseID(s string) (int64, bool) {
	id, err := strconv.ParseInt(s, 10, 64)
	return id, err == nil && id > 0
}
