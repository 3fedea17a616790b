package auth

import (
	"errors"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"

	defaultIssuer = "bookvault"
)

var (
	// ErrInvalidToken is returned for malformed, expired, or mistyped tokens.
	ErrInvalidToken = errors.New("invalid token")

	defaultLeeway = 30 * time.Second
)

// Claims extends the registered claims with the token type so access and
// refresh tokens cannot be swapped for one another.
type Claims struct {
	jwt.RegisteredClaims
	Type string `json:"type"`
}

// TokenManager issues and verifies HS256 access/refresh token pairs.
type TokenManager struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	issuer     string
}

// NewTokenManager builds a manager from the shared signing secret.
func NewTokenManager(secret string, accessTTL, refreshTTL time.Duration) (*TokenManager, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("jwt secret is required")
	}
	if accessTTL <= 0 {
		accessTTL = 15 * time.Minute
	}
	if refreshTTL <= 0 {
		refreshTTL = 7 * 24 * time.Hour
	}
	return &TokenManager{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		issuer:     defaultIssuer,
	}, nil
}

// NewAccessToken signs an access token for the user.
func (m *TokenManager) NewAccessToken(userID string) (string, error) {
	return m.sign(userID, tokenTypeAccess, m.accessTTL)
}

// NewRefreshToken signs a refresh token for the user.
func (m *TokenManager) NewRefreshToken(userID string) (string, error) {
	return m.sign(userID, tokenTypeRefresh, m.refreshTTL)
}

// VerifyAccessToken validates an access token and returns the user ID.
func (m *TokenManager) VerifyAccessToken(token string) (string, error) {
	return m.verify(token, tokenTypeAccess)
}

// VerifyRefreshToken validates a refresh token and returns the user ID.
func (m *TokenManager) VerifyRefreshToken(token string) (string, error) {
	return m.verify(token, tokenTypeRefresh)
}

func (m *TokenManager) sign(userID, tokenType string, ttl time.Duration) (string, error) {
	now := time.Now().UTC()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    m.issuer,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
		Type: tokenType,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

func (m *TokenManager) verify(token, wantType string) (string, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", ErrInvalidToken
	}
	claims := Claims{}
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(m.issuer),
		jwt.WithIssuedAt(),
		jwt.WithLeeway(defaultLeeway),
	)
	if err != nil || !parsed.Valid {
		return "", ErrInvalidToken
	}
	if claims.Type != wantType || strings.TrimSpace(claims.Subject) == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}
