package auth

import (
	"errors"
	"testing"
	"time"
)

func newTestManager(t *testing.T) *TokenManager {
	t.Helper()
	m, err := NewTokenManager("test-secret", 0, 0)
	if err != nil {
		t.Fatalf("new token manager: %v", err)
	}
	return m
}

func TestTokenManagerRequiresSecret(t *testing.T) {
	if _, err := NewTokenManager("  ", 0, 0); err == nil {
		t.Fatalf("expected error for empty secret")
	}
}

func TestTokenRoundTrip(t *testing.T) {
	m := newTestManager(t)

	access, err := m.NewAccessToken("user-1")
	if err != nil {
		t.Fatalf("access token: %v", err)
	}
	userID, err := m.VerifyAccessToken(access)
	if err != nil {
		t.Fatalf("verify access: %v", err)
	}
	if userID != "user-1" {
		t.Fatalf("user = %q, want user-1", userID)
	}

	refresh, err := m.NewRefreshToken("user-1")
	if err != nil {
		t.Fatalf("refresh token: %v", err)
	}
	if _, err := m.VerifyRefreshToken(refresh); err != nil {
		t.Fatalf("verify refresh: %v", err)
	}
}

func TestTokenTypesAreNotInterchangeable(t *testing.T) {
	m := newTestManager(t)
	access, _ := m.NewAccessToken("user-1")
	refresh, _ := m.NewRefreshToken("user-1")

	if _, err := m.VerifyAccessToken(refresh); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("refresh-as-access err = %v, want %v", err, ErrInvalidToken)
	}
	if _, err := m.VerifyRefreshToken(access); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("access-as-refresh err = %v, want %v", err, ErrInvalidToken)
	}
}

func TestTokenWrongSecretRejected(t *testing.T) {
	m := newTestManager(t)
	other, err := NewTokenManager("different-secret", 0, 0)
	if err != nil {
		t.Fatalf("new token manager: %v", err)
	}
	access, _ := m.NewAccessToken("user-1")
	if _, err := other.VerifyAccessToken(access); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("err = %v, want %v", err, ErrInvalidToken)
	}
}

func TestTokenExpiry(t *testing.T) {
	m, err := NewTokenManager("test-secret", -90*time.Second, 0)
	if err != nil {
		t.Fatalf("new token manager: %v", err)
	}
	// Negative TTL falls back to the default, so force the field instead.
	m.accessTTL = -90 * time.Second

	access, err := m.NewAccessToken("user-1")
	if err != nil {
		t.Fatalf("access token: %v", err)
	}
	if _, err := m.VerifyAccessToken(access); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expired token err = %v, want %v", err, ErrInvalidToken)
	}
}

func TestTokenGarbageRejected(t *testing.T) {
	m := newTestManager(t)
	for _, tok := range []string{"", "   ", "not.a.jwt"} {
		if _, err := m.VerifyAccessToken(tok); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("token %q err = %v, want %v", tok, err, ErrInvalidToken)
		}
	}
}
