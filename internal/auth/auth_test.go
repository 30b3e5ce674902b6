package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "unit-test-secret"

func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func TestParseValidToken(t *testing.T) {
	cfg := Config{Secret: testSecret, Issuer: "i5e.identity"}
	token := signToken(t, jwt.MapClaims{
		"iss":    "i5e.identity",
		"sub":    "user-1",
		"scopes": []string{ScopeImportsWrite, ScopeImportsRead},
		"exp":    time.Now().Add(time.Hour).Unix(),
	})

	claims, err := Parse(token, cfg)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if claims.Subject != "user-1" {
		t.Fatalf("subject = %q", claims.Subject)
	}
	if !claims.HasScope(ScopeImportsWrite) || !claims.HasScope(ScopeImportsRead) {
		t.Fatalf("scopes = %v", claims.Scopes)
	}
	if claims.HasScope("admin") {
		t.Fatal("unexpected scope granted")
	}
}

func TestParseScopesAsSpaceSeparatedString(t *testing.T) {
	cfg := Config{Secret: testSecret, Issuer: "i5e.identity"}
	token := signToken(t, jwt.MapClaims{
		"iss":    "i5e.identity",
		"sub":    "user-1",
		"scopes": "imports:write imports:read",
		"exp":    time.Now().Add(time.Hour).Unix(),
	})

	claims, err := Parse(token, cfg)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !claims.HasScope(ScopeImportsWrite) {
		t.Fatalf("scopes = %v", claims.Scopes)
	}
}

func TestParseRejectsMissingSubject(t *testing.T) {
	cfg := Config{Secret: testSecret, Issuer: "i5e.identity"}
	token := signToken(t, jwt.MapClaims{
		"iss": "i5e.identity",
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	if _, err := Parse(token, cfg); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestParseRejectsWrongIssuer(t *testing.T) {
	cfg := Config{Secret: testSecret, Issuer: "i5e.identity"}
	token := signToken(t, jwt.MapClaims{
		"iss": "someone-else",
		"sub": "user-1",
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	if _, err := Parse(token, cfg); err == nil {
		t.Fatal("wrong issuer should fail")
	}
}

func TestParseRejectsExpiredToken(t *testing.T) {
	cfg := Config{Secret: testSecret, Issuer: "i5e.identity"}
	token := signToken(t, jwt.MapClaims{
		"iss": "i5e.identity",
		"sub": "user-1",
		"exp": time.Now().Add(-time.Minute).Unix(),
	})

	if _, err := Parse(token, cfg); err == nil {
		t.Fatal("expired token should fail")
	}
}

func TestParseMissingToken(t *testing.T) {
	if _, err := Parse("  ", Config{Secret: testSecret}); !errors.Is(err, ErrMissingToken) {
		t.Fatalf("expected ErrMissingToken, got %v", err)
	}
}
