package oauth

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

const (
	kakaoTokenURL   = "https://kauth.kakao.com/oauth/token"
	kakaoProfileURL = "https://kapi.kakao.com/v2/user/me"
)

type KakaoProvider struct {
	clientID     string
	clientSecret string
	redirectURL  string
	http         *http.Client
}

func NewKakaoProvider(clientID, clientSecret, redirectURL string) *KakaoProvider {
	return &KakaoProvider{
		clientID:     clientID,
		clientSecret: clientSecret,
		redirectURL:  redirectURL,
		http:         &http.Client{Timeout: requestTimeout},
	}
}

func (p *KakaoProvider) Name() string { return "kakao" }

func (p *KakaoProvider) Exchange(ctx context.Context, code string) (string, error) {
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
	if err := postForm(ctx, p.http, kakaoTokenURL, form, &body); err != nil {
		return "", err
	}
	return body.AccessToken, nil
}

func (p *KakaoProvider) FetchProfile(ctx context.Context, accessToken string) (*Profile, error) {
	var body struct {
		ID           int64 `json:"id"`
		KakaoAccount struct {
			Email   string `json:"email"`
			Profile struct {
				Nickname string `json:"nickname"`
			} `json:"profile"`
		} `json:"kakao_account"`
	}
	if err := getJSON(ctx, p.http, kakaoProfileURL, accessToken, &body); err != nil {
		return nil, err
	}

	return &Profile{
		Provider:    p.Name(),
		ExternalID:  fmt.Sprint(body.ID),
		Email:       body.KakaoAccount.Email,
		DisplayName: body.KakaoAccount.Profile.Nickname,
	}, nil
}
