package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrVerifyTokenInvalid is returned for unknown or expired verification tokens.
var ErrVerifyTokenInvalid = errors.New("invalid verification token")

// RedisVerifyStore maps email-verification tokens to the email they were
// issued for. Tokens expire instead of living in a process-local map.
type RedisVerifyStore struct {
	client    *redis.Client
	keyPrefix string
	tokenTTL  time.Duration
}

// NewRedisVerifyStore connects the verification-token store to redis.
func NewRedisVerifyStore(addr, password string) (*RedisVerifyStore, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, errors.New("verify store redis addr is required")
	}
	return &RedisVerifyStore{
		client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
		}),
		keyPrefix: "bookvault:auth:verify",
		tokenTTL:  24 * time.Hour,
	}, nil
}

// Put stores the token for the email.
func (s *RedisVerifyStore) Put(token, email string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return errors.New("verification token required")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return s.client.Set(ctx, s.tokenKey(token), email, s.tokenTTL).Err()
}

// Consume resolves and deletes the token, returning the email it belongs to.
func (s *RedisVerifyStore) Consume(token string) (string, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", ErrVerifyTokenInvalid
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	email, err := s.client.GetDel(ctx, s.tokenKey(token)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrVerifyTokenInvalid
	}
	if err != nil {
		return "", err
	}
	return email, nil
}

func (s *RedisVerifyStore) tokenKey(token string) string {
	return fmt.Sprintf("%s:%s", s.keyPrefix, token)
}
