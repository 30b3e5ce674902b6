package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestMiddlewarePassesClaimsToHandler(t *testing.T) {
	cfg := Config{Secret: testSecret, Issuer: "i5e.identity"}
	token := signToken(t, jwt.MapClaims{
		"iss": "i5e.identity",
		"sub": "user-1",
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	var seen *Claims
	handler := NewMiddleware(cfg, nil).Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = FromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/v1/imports/abc", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if seen == nil || seen.Subject != "user-1" {
		t.Fatalf("claims = %+v", seen)
	}
}

func TestMiddlewareRejectsWithJSONError(t *testing.T) {
	cfg := Config{Secret: testSecret, Issuer: "i5e.identity"}
	handler := NewMiddleware(cfg, nil).Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run without a token")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/imports", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("content type = %q", ct)
	}
	var payload map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&payload); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if payload["type"] != "unauthorized" || payload["detail"] == "" {
		t.Fatalf("payload = %v", payload)
	}
}

func TestMiddlewareSkipper(t *testing.T) {
	cfg := Config{Secret: testSecret, Issuer: "i5e.identity"}
	called := false
	handler := NewMiddleware(cfg, func(r *http.Request) bool {
		return r.URL.Path == "/healthz"
	}).Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if !called || rec.Code != http.StatusOK {
		t.Fatalf("called=%v status=%d", called, rec.Code)
	}
}
