package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"bookvault/internal/app"
	"bookvault/internal/ratelimit"
	"bookvault/internal/util"
	"bookvault/pkg/auth"
	"bookvault/pkg/domain"
	"bookvault/pkg/store"
)

// Config wires required dependencies for the HTTP server.
type Config struct {
	App           *app.App
	RedisAddr     string
	RedisPassword string

	RegisterRateLimitPerMinute int
	LoginRateLimitPerMinute    int
	PasswordRateLimitPerMinute int
}

// Server exposes the public HTTP API.
type Server struct {
	app             *app.App
	mux             *http.ServeMux
	registerLimiter *ratelimit.FixedWindowLimiter
	loginLimiter    *ratelimit.FixedWindowLimiter
	passwordLimiter *ratelimit.FixedWindowLimiter
}

// New constructs the server with routes configured.
func New(cfg Config) (*Server, error) {
	registerLimit := cfg.RegisterRateLimitPerMinute
	if registerLimit <= 0 {
		registerLimit = 5
	}
	loginLimit := cfg.LoginRateLimitPerMinute
	if loginLimit <= 0 {
		loginLimit = 10
	}
	passwordLimit := cfg.PasswordRateLimitPerMinute
	if passwordLimit <= 0 {
		passwordLimit = 10
	}
	newLimiter := func(name string, limit int) (*ratelimit.FixedWindowLimiter, error) {
		prefix := "bookvault:ratelimit:" + name
		limiter, err := ratelimit.NewRedisFixedWindowLimiter(cfg.RedisAddr, cfg.RedisPassword, prefix, limit, time.Minute)
		if err != nil {
			return nil, fmt.Errorf("init %s limiter: %w", name, err)
		}
		return limiter, nil
	}
	registerLimiter, err := newLimiter("register", registerLimit)
	if err != nil {
		return nil, err
	}
	loginLimiter, err := newLimiter("login", loginLimit)
	if err != nil {
		return nil, err
	}
	passwordLimiter, err := newLimiter("password", passwordLimit)
	if err != nil {
		return nil, err
	}
	s := &Server{
		app:             cfg.App,
		mux:             http.NewServeMux(),
		registerLimiter: registerLimiter,
		loginLimiter:    loginLimiter,
		passwordLimiter: passwordLimiter,
	}
	s.routes()
	return s, nil
}

// Router returns the configured handler wrapped with the shared middleware
// chain.
func (s *Server) Router() http.Handler {
	return util.WithRequestID(util.WithRequestLog(util.WithSecurityHeaders(util.WithCORS(s.mux))))
}

func (s *Server) routes() {
	s.mux.HandleFunc("/healthz", s.handleHealth)

	// auth
	s.mux.HandleFunc("/auth/register", s.handleRegister)
	s.mux.HandleFunc("/auth/verify-email/", s.handleVerifyEmail)
	s.mux.HandleFunc("/auth/login", s.handleLogin)
	s.mux.HandleFunc("/auth/refresh", s.handleRefresh)
	s.mux.HandleFunc("/auth/forgot-password", s.handleForgotPassword)
	s.mux.HandleFunc("/auth/reset-password", s.handleResetPassword)
	s.mux.Handle("/auth/me/password", s.withUser(s.handleChangePassword))

	// books
	s.mux.Handle("/books", s.withUser(s.handleBooks))
	s.mux.Handle("/books/", s.withUser(s.handleBookSubtree))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type userHandler func(http.ResponseWriter, *http.Request, domain.User)

func (s *Server) withUser(next userHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			writeError(w, r, http.StatusUnauthorized, "AUTH_INVALID_TOKEN", "unauthorized")
			return
		}
		user, ok := s.app.UserFromToken(token)
		if !ok {
			writeError(w, r, http.StatusUnauthorized, "AUTH_INVALID_TOKEN", "unauthorized")
			return
		}
		next(w, r, user)
	})
}

func (s *Server) allowRate(w http.ResponseWriter, r *http.Request, limiter *ratelimit.FixedWindowLimiter) bool {
	key := r.URL.Path + "|" + util.ClientIP(r)
	if limiter.Allow(key) {
		return true
	}
	w.Header().Set("Retry-After", "60")
	writeError(w, r, http.StatusTooManyRequests, "RATE_LIMITED", "too many requests, try again later")
	return false
}

func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	if token == "" {
		return "", false
	}
	return token, true
}

func decodeJSON(r *http.Request, dst any) error {
	return json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(dst)
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeError(w, r, http.StatusMethodNotAllowed, "SYSTEM_METHOD_NOT_ALLOWED", "method not allowed")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

type errorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	RequestID string `json:"requestId,omitempty"`
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code, msg string) {
	writeJSON(w, status, errorResponse{
		Error:     msg,
		Code:      code,
		RequestID: util.RequestIDFromRequest(r),
	})
}

// writeAppError maps sentinel errors from the application and store layers
// onto HTTP status codes and stable error codes. Unrecognized errors become
// a generic 500 so internal details never leak to clients.
func writeAppError(w http.ResponseWriter, r *http.Request, err error) {
	for _, m := range appErrorMappings {
		if errors.Is(err, m.err) {
			writeError(w, r, m.status, m.code, m.err.Error())
			return
		}
	}
	writeError(w, r, http.StatusInternalServerError, "SYSTEM_INTERNAL_ERROR", "internal error")
}

var appErrorMappings = []struct {
	err    error
	status int
	code   string
}{
	{app.ErrEmailAndPasswordRequired, http.StatusBadRequest, "AUTH_CREDENTIALS_REQUIRED"},
	{app.ErrEmailInvalid, http.StatusBadRequest, "AUTH_EMAIL_INVALID"},
	{auth.ErrPasswordTooShort, http.StatusBadRequest, "AUTH_PASSWORD_TOO_SHORT"},
	{app.ErrEmailAlreadyExists, http.StatusConflict, "AUTH_EMAIL_EXISTS"},
	{app.ErrInvalidCredentials, http.StatusUnauthorized, "AUTH_INVALID_CREDENTIALS"},
	{app.ErrEmailNotVerified, http.StatusForbidden, "AUTH_EMAIL_NOT_VERIFIED"},
	{app.ErrUserNotFound, http.StatusNotFound, "AUTH_USER_NOT_FOUND"},
	{app.ErrRefreshTokenRequired, http.StatusBadRequest, "AUTH_REFRESH_TOKEN_REQUIRED"},
	{auth.ErrInvalidToken, http.StatusUnauthorized, "AUTH_INVALID_TOKEN"},
	{store.ErrVerifyTokenInvalid, http.StatusBadRequest, "AUTH_VERIFY_TOKEN_INVALID"},
	{store.ErrResetRateLimited, http.StatusTooManyRequests, "AUTH_RESET_RATE_LIMITED"},
	{store.ErrResetChallengeInvalid, http.StatusBadRequest, "AUTH_RESET_CHALLENGE_INVALID"},
	{store.ErrResetCodeInvalid, http.StatusBadRequest, "AUTH_RESET_CODE_INVALID"},
	{store.ErrResetCodeExpired, http.StatusBadRequest, "AUTH_RESET_CODE_EXPIRED"},

	{app.ErrBookNotFound, http.StatusNotFound, "BOOK_NOT_FOUND"},
	{app.ErrTitleRequired, http.StatusBadRequest, "BOOK_TITLE_REQUIRED"},
	{app.ErrNegativePrice, http.StatusBadRequest, "BOOK_NEGATIVE_PRICE"},
	{store.ErrDuplicateTitle, http.StatusConflict, "BOOK_DUPLICATE_TITLE"},

	{app.ErrFilenameRequired, http.StatusBadRequest, "UPLOAD_FILENAME_REQUIRED"},
	{app.ErrInvalidFileType, http.StatusBadRequest, "UPLOAD_INVALID_FILE_TYPE"},
	{app.ErrFileTooLarge, http.StatusRequestEntityTooLarge, "UPLOAD_FILE_TOO_LARGE"},
	{app.ErrUploadNotFound, http.StatusNotFound, "UPLOAD_NOT_FOUND"},
	{app.ErrUploadForbidden, http.StatusForbidden, "UPLOAD_FORBIDDEN"},
}
