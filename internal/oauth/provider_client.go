// Package oauth holds the outbound half of the Google sign-in flow: the
// token-endpoint client and the short-lived authorization attempt store.
package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	// GoogleTokenEndpoint is where authorization codes are exchanged.
	GoogleTokenEndpoint = "https://oauth2.googleapis.com/token"
	// GoogleUserInfoEndpoint resolves the signed-in account's profile.
	GoogleUserInfoEndpoint = "https://openidconnect.googleapis.com/v1/userinfo"
)

// TokenResponse is the provider's answer to a code exchange.
type TokenResponse struct {
	AccessToken string
	IDToken     string
	TokenType   string
	Scope       string
	ExpiresIn   int64
}

// UserInfo is the subset of the provider profile the login flow needs.
type UserInfo struct {
	Subject       string
	Email         string
	EmailVerified bool
	Name          string
}

// ProviderConfig carries the per-provider credentials and endpoints.
type ProviderConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	TokenURL     string
	UserInfoURL  string
}

// ProviderClient encapsulates outbound HTTP calls to the identity provider.
type ProviderClient interface {
	ExchangeCode(ctx context.Context, provider ProviderConfig, code, codeVerifier string) (*TokenResponse, error)
	FetchUserInfo(ctx context.Context, provider ProviderConfig, accessToken string) (*UserInfo, error)
}

// HTTPProviderClient is the default HTTP implementation.
type HTTPProviderClient struct {
	httpClient *http.Client
}

// NewHTTPProviderClient constructs the default ProviderClient.
func NewHTTPProviderClient(client *http.Client) *HTTPProviderClient {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &HTTPProviderClient{httpClient: client}
}

// ExchangeCode posts the authorization code and PKCE verifier to the token
// endpoint and decodes the provider's token response.
func (c *HTTPProviderClient) ExchangeCode(ctx context.Context, provider ProviderConfig, code, codeVerifier string) (*TokenResponse, error) {
	if strings.TrimSpace(provider.TokenURL) == "" {
		return nil, fmt.Errorf("token url missing")
	}
	data := url.Values{}
	data.Set("grant_type", "authorization_code")
	data.Set("code", code)
	data.Set("redirect_uri", provider.RedirectURI)
	data.Set("client_id", provider.ClientID)
	if provider.ClientSecret != "" {
		data.Set("client_secret", provider.ClientSecret)
	}
	data.Set("code_verifier", codeVerifier)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, provider.TokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, fmt.Errorf("build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("token exchange request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read token response: %w", err)
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("token exchange failed: status=%d", resp.StatusCode)
	}

	var raw struct {
		AccessToken string `json:"access_token"`
		IDToken     string `json:"id_token"`
		TokenType   string `json:"token_type"`
		Scope       string `json:"scope"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("decode token response: %w", err)
	}
	return &TokenResponse{
		AccessToken: raw.AccessToken,
		IDToken:     raw.IDToken,
		TokenType:   raw.TokenType,
		Scope:       raw.Scope,
		ExpiresIn:   raw.ExpiresIn,
	}, nil
}

// FetchUserInfo loads the userinfo profile for the exchanged access token.
func (c *HTTPProviderClient) FetchUserInfo(ctx context.Context, provider ProviderConfig, accessToken string) (*UserInfo, error) {
	if strings.TrimSpace(provider.UserInfoURL) == "" {
		return nil, fmt.Errorf("userinfo url missing")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, provider.UserInfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build userinfo request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("userinfo request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read userinfo: %w", err)
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("userinfo failed: status=%d", resp.StatusCode)
	}

	var raw struct {
		Subject       string          `json:"sub"`
		Email         string          `json:"email"`
		EmailVerified json.RawMessage `json:"email_verified"`
		Name          string          `json:"name"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("decode userinfo: %w", err)
	}
	return &UserInfo{
		Subject:       raw.Subject,
		Email:         strings.ToLower(strings.TrimSpace(raw.Email)),
		EmailVerified: boolish(raw.EmailVerified),
		Name:          raw.Name,
	}, nil
}

// boolish accepts both the boolean and string spellings Google has used for
// email_verified.
func boolish(raw json.RawMessage) bool {
	s := strings.Trim(strings.TrimSpace(string(raw)), `"`)
	return s == "true"
}
