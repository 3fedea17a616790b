package app

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"bookvault/pkg/auth"
	"bookvault/pkg/domain"
)

// Register creates an unverified account and returns the verification
// token the user must present before logging in.
func (a *App) Register(email, password string) (domain.User, string, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return domain.User{}, "", err
	}
	if password == "" {
		return domain.User{}, "", ErrEmailAndPasswordRequired
	}
	if err := auth.ValidatePassword(password); err != nil {
		return domain.User{}, "", err
	}
	exists, err := a.store.HasUserEmail(email)
	if err != nil {
		return domain.User{}, "", fmt.Errorf("check email: %w", err)
	}
	if exists {
		return domain.User{}, "", ErrEmailAlreadyExists
	}
	passwordHash, err := auth.HashPassword(password)
	if err != nil {
		return domain.User{}, "", fmt.Errorf("hash password: %w", err)
	}
	now := time.Now().UTC()
	user := domain.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: passwordHash,
		Verified:     false,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := a.store.SaveUser(user); err != nil {
		return domain.User{}, "", fmt.Errorf("save user: %w", err)
	}
	token := uuid.NewString()
	if err := a.verify.Put(token, email); err != nil {
		return domain.User{}, "", fmt.Errorf("store verification token: %w", err)
	}
	return user, token, nil
}

// VerifyEmail consumes a verification token and activates the account.
func (a *App) VerifyEmail(token string) error {
	email, err := a.verify.Consume(token)
	if err != nil {
		return err
	}
	user, ok, err := a.store.GetUserByEmail(email)
	if err != nil {
		return fmt.Errorf("fetch user: %w", err)
	}
	if !ok {
		return ErrUserNotFound
	}
	user.Verified = true
	user.UpdatedAt = time.Now().UTC()
	if err := a.store.SaveUser(user); err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	return nil
}

// Login validates credentials and issues an access/refresh token pair.
func (a *App) Login(email, password string) (domain.User, string, string, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	user, ok, err := a.store.GetUserByEmail(email)
	if err != nil {
		return domain.User{}, "", "", fmt.Errorf("fetch user: %w", err)
	}
	if !ok {
		return domain.User{}, "", "", ErrInvalidCredentials
	}
	if !auth.CheckPassword(password, user.PasswordHash) {
		return domain.User{}, "", "", ErrInvalidCredentials
	}
	if !user.Verified {
		return domain.User{}, "", "", ErrEmailNotVerified
	}
	accessToken, refreshToken, err := a.issueTokens(user.ID)
	if err != nil {
		return domain.User{}, "", "", err
	}
	return user, accessToken, refreshToken, nil
}

// Refresh validates a refresh token and issues a new token pair.
func (a *App) Refresh(refreshToken string) (string, string, error) {
	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		return "", "", ErrRefreshTokenRequired
	}
	userID, err := a.tokens.VerifyRefreshToken(refreshToken)
	if err != nil {
		return "", "", err
	}
	_, ok, err := a.store.GetUserByID(userID)
	if err != nil {
		return "", "", fmt.Errorf("fetch user: %w", err)
	}
	if !ok {
		return "", "", auth.ErrInvalidToken
	}
	return a.issueTokens(userID)
}

// UserFromToken resolves a user from an access token.
func (a *App) UserFromToken(token string) (domain.User, bool) {
	userID, err := a.tokens.VerifyAccessToken(token)
	if err != nil {
		return domain.User{}, false
	}
	user, ok, err := a.store.GetUserByID(userID)
	if err != nil || !ok {
		return domain.User{}, false
	}
	return user, true
}

// ChangePassword updates the password after verifying the current one.
func (a *App) ChangePassword(userID, currentPassword, newPassword string) error {
	if err := auth.ValidatePassword(newPassword); err != nil {
		return err
	}
	user, ok, err := a.store.GetUserByID(userID)
	if err != nil {
		return fmt.Errorf("fetch user: %w", err)
	}
	if !ok {
		return ErrUserNotFound
	}
	if !auth.CheckPassword(currentPassword, user.PasswordHash) {
		return ErrInvalidCredentials
	}
	passwordHash, err := auth.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	user.PasswordHash = passwordHash
	user.UpdatedAt = time.Now().UTC()
	if err := a.store.SaveUser(user); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}

// ForgotPassword stages a password reset: the new password hash is stored
// with an OTP challenge and only applied once the code is verified. The
// code is returned to the caller for delivery.
func (a *App) ForgotPassword(email, newPassword string) (string, string, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return "", "", err
	}
	if err := auth.ValidatePassword(newPassword); err != nil {
		return "", "", err
	}
	exists, err := a.store.HasUserEmail(email)
	if err != nil {
		return "", "", fmt.Errorf("check email: %w", err)
	}
	if !exists {
		return "", "", ErrUserNotFound
	}
	passwordHash, err := auth.HashPassword(newPassword)
	if err != nil {
		return "", "", fmt.Errorf("hash password: %w", err)
	}
	code, err := generateNumericCode(6)
	if err != nil {
		return "", "", fmt.Errorf("generate otp code: %w", err)
	}
	challengeID, err := a.resets.CreateChallenge(email, code, passwordHash)
	if err != nil {
		return "", "", err
	}
	return challengeID, code, nil
}

// ResetPassword verifies the OTP and applies the staged password hash.
func (a *App) ResetPassword(challengeID, code string) error {
	email, passwordHash, err := a.resets.ConsumeChallenge(challengeID, code)
	if err != nil {
		return err
	}
	user, ok, err := a.store.GetUserByEmail(email)
	if err != nil {
		return fmt.Errorf("fetch user: %w", err)
	}
	if !ok {
		return ErrUserNotFound
	}
	user.PasswordHash = passwordHash
	user.UpdatedAt = time.Now().UTC()
	if err := a.store.SaveUser(user); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}

func (a *App) issueTokens(userID string) (string, string, error) {
	accessToken, err := a.tokens.NewAccessToken(userID)
	if err != nil {
		return "", "", fmt.Errorf("issue access token: %w", err)
	}
	refreshToken, err := a.tokens.NewRefreshToken(userID)
	if err != nil {
		return "", "", fmt.Errorf("issue refresh token: %w", err)
	}
	return accessToken, refreshToken, nil
}

func normalizeEmail(email string) (string, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" {
		return "", ErrEmailAndPasswordRequired
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return "", ErrEmailInvalid
	}
	return email, nil
}

func generateNumericCode(length int) (string, error) {
	var b strings.Builder
	b.Grow(length)
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", err
		}
		b.WriteByte(byte('0' + n.Int64()))
	}
	return b.String(), nil
}
