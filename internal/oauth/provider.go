package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/vnlease/vnlease-api/internal/domain"
)

// Profile is the provider-agnostic identity an OAuth login resolves to.
type Profile struct {
	Provider    string
	ExternalID  string
	Email       string
	DisplayName string
}

// Provider exchanges an authorization code and fetches the user's profile.
type Provider interface {
	Name() string
	Exchange(ctx context.Context, code string) (string, error)
	FetchProfile(ctx context.Context, accessToken string) (*Profile, error)
}

const requestTimeout = 10 * time.Second

func postForm(ctx context.Context, client *http.Client, endpoint string, form url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := client.Do(req)
	if err != nil {
		return domain.ExternalServiceError("oauth provider unreachable", true, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.ExternalServiceError(
			fmt.Sprintf("oauth token exchange failed (status %d)", resp.StatusCode), false, nil)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

func getJSON(ctx context.Context, client *http.Client, endpoint, accessToken string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := client.Do(req)
	if err != nil {
		return domain.ExternalServiceError("oauth provider unreachable", true, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.ExternalServiceError(
			fmt.Sprintf("oauth profile fetch failed (status %d)", resp.StatusCode), false, nil)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}
