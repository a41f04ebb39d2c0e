package auth

import (
	"errors"
	"testing"
	"time"
)

const (
	testSecret = "unit-test-secret"
	testIssuer = "switchbook-auth"
)

func newTestValidator(t *testing.T, clock func() time.Time) *SessionValidator {
	t.Helper()
	validator, err := NewSessionValidator(SessionValidatorConfig{
		SigningSecret: []byte(testSecret),
		Issuer:        testIssuer,
		CookieName:    "sb_session",
		Clock:         clock,
	})
	if err != nil {
		t.Fatalf("failed to build validator: %v", err)
	}
	return validator
}

func TestIssueAndValidateRoundTrip(t *testing.T) {
	now := time.Unix(1700000000, 0)
	issuer := NewSessionIssuer(SessionIssuerConfig{
		SigningSecret: []byte(testSecret),
		Issuer:        testIssuer,
		Clock:         func() time.Time { return now },
	})

	token, expiresIn, err := issuer.Issue("user-1", "user@example.com", "User One", []string{"admin"})
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	if expiresIn <= 0 {
		t.Fatalf("expected positive expiry, got %d", expiresIn)
	}

	validator := newTestValidator(t, func() time.Time { return now.Add(time.Minute) })
	claims, err := validator.ValidateToken(token)
	if err != nil {
		t.Fatalf("validation failed: %v", err)
	}
	if claims.UserID != "user-1" {
		t.Fatalf("unexpected user id %q", claims.UserID)
	}
	if !claims.IsAdmin() {
		t.Fatalf("expected admin role to survive the round trip")
	}
}

func TestValidateRejectsExpiredToken(t *testing.T) {
	now := time.Unix(1700000000, 0)
	issuer := NewSessionIssuer(SessionIssuerConfig{
		SigningSecret: []byte(testSecret),
		Issuer:        testIssuer,
		TTL:           time.Minute,
		Clock:         func() time.Time { return now },
	})
	token, _, err := issuer.Issue("user-1", "", "", nil)
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	validator := newTestValidator(t, func() time.Time { return now.Add(time.Hour) })
	if _, err := validator.ValidateToken(token); !errors.Is(err, ErrExpiredSessionToken) {
		t.Fatalf("expected expired token error, got %v", err)
	}
}

func TestValidateRejectsWrongIssuer(t *testing.T) {
	now := time.Unix(1700000000, 0)
	issuer := NewSessionIssuer(SessionIssuerConfig{
		SigningSecret: []byte(testSecret),
		Issuer:        "someone-else",
		Clock:         func() time.Time { return now },
	})
	token, _, err := issuer.Issue("user-1", "", "", nil)
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	validator := newTestValidator(t, func() time.Time { return now })
	if _, err := validator.ValidateToken(token); !errors.Is(err, ErrInvalidSessionToken) {
		t.Fatalf("expected invalid token error, got %v", err)
	}
}

func TestIsAdminIsCaseInsensitive(t *testing.T) {
	claims := SessionClaims{UserRoles: []string{"Admin"}}
	if !claims.IsAdmin() {
		t.Fatalf("expected Admin role to count")
	}
	claims = SessionClaims{UserRoles: []string{"member"}}
	if claims.IsAdmin() {
		t.Fatalf("member must not be admin")
	}
}
