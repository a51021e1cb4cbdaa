package oauth

import (
	"context"
	"net/http"
	"net/url"
)

const (
	googleTokenURL   = "https://oauth2.googleapis.com/token"
	googleProfileURL = "https://www.googleapis.com/oauth2/v2/userinfo"
)

type GoogleProvider struct {
	clientID     string
	clientSecret string
	redirectURL  string
	http         *http.Client
}

func NewGoogleProvider(clientID, clientSecret, redirectURL string) *GoogleProvider {
	return &GoogleProvider{
		clientID:     clientID,
		clientSecret: clientSecret,
		redirectURL:  redirectURL,
		http:         &http.Client{Timeout: requestTimeout},
	}
}

func (p *GoogleProvider) Name() string { return "google" }

func (p *GoogleProvider) Exchange(ctx context.Context, code string) (string, error) {
	form := url.Values{
		"grant_type":    {"authorization_code"},
		"client_id":     {p.clientID},
		"client_secret": {p.clientSecret},
		"redirect_uri":  {p.redirectURL},
		"code":          {code},
	}

	var body struct {
		AccessToken string `json:"access_token"`
	}
	if err := postForm(ctx, p.http, googleTokenURL, form, &body); err != nil {
		return "", err
	}
	return body.AccessToken, nil
}

func (p *GoogleProvider) FetchProfile(ctx context.Context, accessToken string) (*Profile, error) {
	var body struct {
		ID    string `json:"id"`
		Email string `json:"email"`
		Name  string `json:"name"`
	}
	if err := getJSON(ctx, p.http, googleProfileURL, accessToken, &body); err != nil {
		return nil, err
	}

	return &Profile{
		Provider:    p.Name(),
		ExternalID:  body.ID,
		Email:       body.Email,
		DisplayName: body.Name,
	}, nil
}
