package store

import (
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
)

func newTestVerifyStore(t *testing.T) *RedisVerifyStore {
	t.Helper()
	redis := miniredis.RunT(t)
	s, err := NewRedisVerifyStore(redis.Addr(), "")
	if err != nil {
		t.Fatalf("new verify store: %v", err)
	}
	return s
}

func TestVerifyStoreConsume(t *testing.T) {
	s := newTestVerifyStore(t)
	if err := s.Put("token-1", "user@example.com"); err != nil {
		t.Fatalf("put: %v", err)
	}
	email, err := s.Consume("token-1")
	if err != nil {
		t.Fatalf("consume: %v", err)
	}
	if email != "user@example.com" {
		t.Fatalf("email = %q", email)
	}
	// Consumption is destructive.
	if _, err := s.Consume("token-1"); !errors.Is(err, ErrVerifyTokenInvalid) {
		t.Fatalf("second consume err = %v, want %v", err, ErrVerifyTokenInvalid)
	}
}

func TestVerifyStoreUnknownToken(t *testing.T) {
	s := newTestVerifyStore(t)
	if _, err := s.Consume("nope"); !errors.Is(err, ErrVerifyTokenInvalid) {
		t.Fatalf("err = %v, want %v", err, ErrVerifyTokenInvalid)
	}
}
