package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrResetRateLimited      = errors.New("too many password reset requests")
	ErrResetChallengeInvalid = errors.New("password reset request is invalid")
	ErrResetCodeInvalid      = errors.New("incorrect verification code")
	ErrResetCodeExpired      = errors.New("verification code expired")
)

// RedisResetStore holds OTP password-reset challenges. The staged password
// hash travels with the challenge so the reset applies atomically on
// verification, mirroring how the account flow stores pending credentials.
type RedisResetStore struct {
	client            *redis.Client
	keyPrefix         string
	challengeTTL      time.Duration
	resendAfter       time.Duration
	maxVerifyAttempts int
}

type resetChallenge struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	CodeHash     string    `json:"codeHash"`
	PasswordHash string    `json:"passwordHash"`
	ExpiresAt    time.Time `json:"expiresAt"`
	Attempts     int       `json:"attempts"`
	MaxAttempt   int       `json:"maxAttempt"`
}

// NewRedisResetStore connects the reset store to redis.
func NewRedisResetStore(addr, password string) (*RedisResetStore, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, errors.New("reset store redis addr is required")
	}
	return &RedisResetStore{
		client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
		}),
		keyPrefix:         "bookvault:auth:reset",
		challengeTTL:      5 * time.Minute,
		resendAfter:       time.Minute,
		maxVerifyAttempts: 5,
	}, nil
}

// CreateChallenge stores a new reset challenge and returns its ID together
// with the plaintext code the caller must deliver to the user.
func (s *RedisResetStore) CreateChallenge(email, code, passwordHash string) (string, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" {
		return "", errors.New("email is required")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	resendKey := s.resendKey(email)
	allowed, err := s.client.SetNX(ctx, resendKey, "1", s.resendAfter).Result()
	if err != nil {
		return "", err
	}
	if !allowed {
		return "", ErrResetRateLimited
	}
	codeHash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		_ = s.client.Del(ctx, resendKey).Err()
		return "", fmt.Errorf("hash reset code: %w", err)
	}
	challenge := resetChallenge{
		ID:           uuid.NewString(),
		Email:        email,
		CodeHash:     string(codeHash),
		PasswordHash: passwordHash,
		ExpiresAt:    time.Now().UTC().Add(s.challengeTTL),
		Attempts:     0,
		MaxAttempt:   s.maxVerifyAttempts,
	}
	raw, err := json.Marshal(challenge)
	if err != nil {
		_ = s.client.Del(ctx, resendKey).Err()
		return "", fmt.Errorf("marshal reset challenge: %w", err)
	}
	if err := s.client.Set(ctx, s.challengeKey(challenge.ID), raw, s.challengeTTL+time.Minute).Err(); err != nil {
		_ = s.client.Del(ctx, resendKey).Err()
		return "", err
	}
	return challenge.ID, nil
}

// ConsumeChallenge verifies the code and, on success, deletes the
// challenge and returns the email plus the staged password hash.
func (s *RedisResetStore) ConsumeChallenge(challengeID, code string) (string, string, error) {
	challengeID = strings.TrimSpace(challengeID)
	code = strings.TrimSpace(code)
	if challengeID == "" || code == "" {
		return "", "", ErrResetChallengeInvalid
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	key := s.challengeKey(challengeID)
	raw, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return "", "", ErrResetChallengeInvalid
	}
	if err != nil {
		return "", "", err
	}
	var challenge resetChallenge
	if err := json.Unmarshal(raw, &challenge); err != nil {
		return "", "", fmt.Errorf("unmarshal reset challenge: %w", err)
	}
	if time.Now().UTC().After(challenge.ExpiresAt) {
		_ = s.client.Del(ctx, key).Err()
		return "", "", ErrResetCodeExpired
	}
	if challenge.Attempts >= challenge.MaxAttempt {
		_ = s.client.Del(ctx, key).Err()
		return "", "", ErrResetChallengeInvalid
	}
	if bcrypt.CompareHashAndPassword([]byte(challenge.CodeHash), []byte(code)) != nil {
		challenge.Attempts++
		if challenge.Attempts >= challenge.MaxAttempt {
			_ = s.client.Del(ctx, key).Err()
		} else if updated, marshalErr := json.Marshal(challenge); marshalErr == nil {
			ttl, ttlErr := s.client.TTL(ctx, key).Result()
			if ttlErr == nil && ttl > 0 {
				_ = s.client.Set(ctx, key, updated, ttl).Err()
			}
		}
		return "", "", ErrResetCodeInvalid
	}
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return "", "", err
	}
	return challenge.Email, challenge.PasswordHash, nil
}

func (s *RedisResetStore) challengeKey(id string) string {
	return fmt.Sprintf("%s:challenge:%s", s.keyPrefix, id)
}

func (s *RedisResetStore) resendKey(email string) string {
	return fmt.Sprintf("%s:resend:%s", s.keyPrefix, email)
}
