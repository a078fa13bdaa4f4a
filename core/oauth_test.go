package core

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"golang.org/x/oauth2"
)

// fakeProvider stands in for Google's token and userinfo endpoints.
func fakeProvider(t *testing.T, userinfoBody string, userinfoStatus int) (*GoogleAuthenticator, *httptest.Server) {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"test-access-token","token_type":"Bearer","expires_in":3600}`))
	})
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(userinfoStatus)
		_, _ = w.Write([]byte(userinfoBody))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	auth := &GoogleAuthenticator{
		config: &oauth2.Config{
			ClientID:     "client",
			ClientSecret: "secret",
			RedirectURL:  "http://localhost/callback",
			Scopes:       []string{"openid", "email"},
			Endpoint: oauth2.Endpoint{
				AuthURL:  srv.URL + "/auth",
				TokenURL: srv.URL + "/token",
			},
		},
		userinfoURL: srv.URL + "/userinfo",
	}
	return auth, srv
}

func TestGoogleExchangeVerifiedEmail(t *testing.T) {
	auth, _ := fakeProvider(t, `{"email":"user@example.com","verified_email":true}`, http.StatusOK)

	assertion, err := auth.Exchange(context.Background(), "auth-code")
	if err != nil {
		t.Fatalf("exchange error: %v", err)
	}
	if assertion.Email != "user@example.com" || assertion.Provider != ProviderGoogle {
		t.Fatalf("unexpected assertion: %+v", assertion)
	}
}

func TestGoogleExchangeUnverifiedEmail(t *testing.T) {
	auth, _ := fakeProvider(t, `{"email":"user@example.com","verified_email":false}`, http.StatusOK)

	if _, err := auth.Exchange(context.Background(), "auth-code"); !errors.Is(err, ErrOAuthRejected) {
		t.Fatalf("want ErrOAuthRejected for unverified email, got %v", err)
	}
}

func TestGoogleExchangeUserinfoFailure(t *testing.T) {
	auth, _ := fakeProvider(t, `{"error":"server_error"}`, http.StatusInternalServerError)

	if _, err := auth.Exchange(context.Background(), "auth-code"); !errors.Is(err, ErrOAuthRejected) {
		t.Fatalf("want ErrOAuthRejected for userinfo failure, got %v", err)
	}
}

func TestGoogleConsentURLCarriesState(t *testing.T) {
	auth, srv := fakeProvider(t, `{}`, http.StatusOK)

	url := auth.ConsentURL("state-123")
	if !strings.HasPrefix(url, srv.URL+"/auth") {
		t.Fatalf("unexpected consent url %q", url)
	}
	if !strings.Contains(url, "state=state-123") {
		t.Fatalf("consent url missing state: %q", url)
	}
}

func TestGoogleEnabled(t *testing.T) {
	if NewGoogleAuthenticator(Config{}).Enabled() {
		t.Fatal("authenticator without credentials must be disabled")
	}
	if !NewGoogleAuthenticator(Config{GoogleClientID: "id", GoogleClientSecret: "secret"}).Enabled() {
		t.Fatal("configured authenticator must be enabled")
	}
}

func TestNewOAuthStateUnique(t *testing.T) {
	a, err := newOAuthState()
	if err != nil {
		t.Fatalf("state error: %v", err)
	}
	b, err := newOAuthState()
	if err != nil {
		t.Fatalf("state error: %v", err)
	}
	if a == "" || a == b {
		t.Fatalf("states must be non-empty and unique: %q %q", a, b)
	}
}
