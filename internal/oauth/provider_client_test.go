package oauth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestExchangeCodeSendsFormAndDecodesResponse(t *testing.T) {
	var gotForm map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/x-www-form-urlencoded" {
			t.Errorf("unexpected content type %q", ct)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		gotForm = map[string]string{
			"grant_type":    r.PostFormValue("grant_type"),
			"code":          r.PostFormValue("code"),
			"code_verifier": r.PostFormValue("code_verifier"),
			"redirect_uri":  r.PostFormValue("redirect_uri"),
			"client_id":     r.PostFormValue("client_id"),
			"client_secret": r.PostFormValue("client_secret"),
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"at-1","id_token":"idt-1","token_type":"Bearer","expires_in":3599}`))
	}))
	defer srv.Close()

	client := NewHTTPProviderClient(srv.Client())
	provider := ProviderConfig{
		ClientID:     "client-1",
		ClientSecret: "secret-1",
		RedirectURI:  "https://app.example.com/callback",
		TokenURL:     srv.URL,
	}

	resp, err := client.ExchangeCode(context.Background(), provider, "code-1", "verifier-1")
	if err != nil {
		t.Fatalf("exchange: %v", err)
	}
	if resp.AccessToken != "at-1" || resp.IDToken != "idt-1" {
		t.Fatalf("unexpected token response %+v", resp)
	}
	if resp.ExpiresIn != 3599 {
		t.Fatalf("expected expires_in 3599, got %d", resp.ExpiresIn)
	}

	want := map[string]string{
		"grant_type":    "authorization_code",
		"code":          "code-1",
		"code_verifier": "verifier-1",
		"redirect_uri":  "https://app.example.com/callback",
		"client_id":     "client-1",
		"client_secret": "secret-1",
	}
	for k, v := range want {
		if gotForm[k] != v {
			t.Errorf("form %s: expected %q, got %q", k, v, gotForm[k])
		}
	}
}

func TestExchangeCodeRejectsErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":"invalid_grant"}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	client := NewHTTPProviderClient(srv.Client())
	_, err := client.ExchangeCode(context.Background(), ProviderConfig{TokenURL: srv.URL}, "code", "verifier")
	if err == nil {
		t.Fatal("expected error for non-2xx exchange")
	}
}

func TestFetchUserInfoParsesProfile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if auth := r.Header.Get("Authorization"); auth != "Bearer at-1" {
			t.Errorf("unexpected authorization header %q", auth)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"sub":"g-123","email":"Ada@Example.com","email_verified":true,"name":"Ada"}`))
	}))
	defer srv.Close()

	client := NewHTTPProviderClient(srv.Client())
	info, err := client.FetchUserInfo(context.Background(), ProviderConfig{UserInfoURL: srv.URL}, "at-1")
	if err != nil {
		t.Fatalf("userinfo: %v", err)
	}
	if info.Subject != "g-123" {
		t.Fatalf("unexpected subject %q", info.Subject)
	}
	if info.Email != "ada@example.com" {
		t.Fatalf("expected lowercased email, got %q", info.Email)
	}
	if !info.EmailVerified {
		t.Fatal("expected verified email")
	}
}

func TestFetchUserInfoStringVerifiedFlag(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"sub":"g-1","email":"a@b.c","email_verified":"true"}`))
	}))
	defer srv.Close()

	client := NewHTTPProviderClient(srv.Client())
	info, err := client.FetchUserInfo(context.Background(), ProviderConfig{UserInfoURL: srv.URL}, "at")
	if err != nil {
		t.Fatalf("userinfo: %v", err)
	}
	if !info.EmailVerified {
		t.Fatal(`expected "true" string to count as verified`)
	}
}
