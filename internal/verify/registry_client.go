package verify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/go-querystring/query"
	"github.com/vnlease/vnlease-api/internal/domain"
)

// RegistryClient checks a business number against the government business
// registry. Network failures and timeouts are surfaced as retryable
// external-service errors, distinct from "number rejected".
type RegistryClient interface {
	Check(ctx context.Context, businessNumber string) (bool, error)
}

type registryClient struct {
	baseURL    string
	serviceKey string
	http       *http.Client
}

func NewRegistryClient(baseURL, serviceKey string, timeout time.Duration) RegistryClient {
	return &registryClient{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		serviceKey: serviceKey,
		http:       &http.Client{Timeout: timeout},
	}
}

type registryQuery struct {
	BusinessNumber string `url:"b_no"`
	ServiceKey     string `url:"serviceKey"`
}

type registryResponse struct {
	Valid     bool   `json:"valid"`
	TaxStatus string `json:"b_stt,omitempty"`
	Message   string `json:"message,omitempty"`
}

func (c *registryClient) Check(ctx context.Context, businessNumber string) (bool, error) {
	v, err := query.Values(registryQuery{
		BusinessNumber: businessNumber,
		ServiceKey:     c.serviceKey,
	})
	if err != nil {
		return false, fmt.Errorf("failed to encode registry query: %w", err)
	}

	url := c.baseURL + "/status?" + v.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false, fmt.Errorf("failed to build registry request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		if isTimeout(err) {
			return false, domain.ExternalServiceError("business registry timed out, try again", true, err)
		}
		return false, domain.ExternalServiceError("business registry unreachable", true, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return false, domain.ExternalServiceError(
			fmt.Sprintf("business registry error (status %d)", resp.StatusCode), true, nil)
	}
	if resp.StatusCode != http.StatusOK {
		return false, domain.ExternalServiceError(
			fmt.Sprintf("business registry rejected request (status %d)", resp.StatusCode), false, nil)
	}

	var body registryResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return false, domain.ExternalServiceError("invalid registry response", false, err)
	}

	return body.Valid, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
