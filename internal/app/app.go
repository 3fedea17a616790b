package app

import (
	"fmt"
	"os"
	"time"

	"bookvault/internal/importer"
	"bookvault/pkg/auth"
	"bookvault/pkg/store"
)

const defaultMaxUploadBytes = 10 * 1024 * 1024

// Config holds runtime configuration for the core application.
type Config struct {
	DatabaseURL   string
	RedisAddr     string
	RedisPassword string
	JWTSecret     string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration

	UploadDir      string
	MaxUploadBytes int64

	// Injectable for tests; built from the fields above when nil.
	Store  store.Store
	Jobs   store.UploadJobStore
	Resets ResetStore
	Verify VerifyStore
	Tokens *auth.TokenManager
}

// ResetStore holds OTP password-reset challenges.
type ResetStore interface {
	CreateChallenge(email, code, passwordHash string) (string, error)
	ConsumeChallenge(challengeID, code string) (email, passwordHash string, err error)
}

// VerifyStore holds email-verification tokens.
type VerifyStore interface {
	Put(token, email string) error
	Consume(token string) (string, error)
}

// App is the core application service wiring storage, auth, and the
// CSV import pipeline together.
type App struct {
	store  store.Store
	jobs   store.UploadJobStore
	resets ResetStore
	verify VerifyStore
	tokens *auth.TokenManager

	importer *importer.Importer
	tasks    TaskGroup

	uploadDir      string
	maxUploadBytes int64
}

// New constructs the application. Store handles are created from config
// when not injected; their lifecycle belongs to the caller.
func New(cfg Config) (*App, error) {
	dataStore := cfg.Store
	if dataStore == nil {
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("database URL required")
		}
		var err error
		dataStore, err = store.NewGormStore(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("init postgres store: %w", err)
		}
	}

	jobs := cfg.Jobs
	if jobs == nil {
		var err error
		jobs, err = store.NewRedisUploadStore(cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			return nil, fmt.Errorf("init upload store: %w", err)
		}
	}
	resets := cfg.Resets
	if resets == nil {
		var err error
		resets, err = store.NewRedisResetStore(cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			return nil, fmt.Errorf("init reset store: %w", err)
		}
	}
	verify := cfg.Verify
	if verify == nil {
		var err error
		verify, err = store.NewRedisVerifyStore(cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			return nil, fmt.Errorf("init verify store: %w", err)
		}
	}

	tokens := cfg.Tokens
	if tokens == nil {
		var err error
		tokens, err = auth.NewTokenManager(cfg.JWTSecret, cfg.AccessTTL, cfg.RefreshTTL)
		if err != nil {
			return nil, fmt.Errorf("init token manager: %w", err)
		}
	}

	uploadDir := cfg.UploadDir
	if uploadDir == "" {
		uploadDir = "uploads"
	}
	if err := os.MkdirAll(uploadDir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	maxUploadBytes := cfg.MaxUploadBytes
	if maxUploadBytes <= 0 {
		maxUploadBytes = defaultMaxUploadBytes
	}

	return &App{
		store:          dataStore,
		jobs:           jobs,
		resets:         resets,
		verify:         verify,
		tokens:         tokens,
		importer:       importer.New(dataStore, jobs),
		uploadDir:      uploadDir,
		maxUploadBytes: maxUploadBytes,
	}, nil
}

// WaitForImports blocks until scheduled import pipelines finish. Used by
// shutdown and by tests that need a deterministic view of job state.
func (a *App) WaitForImports() {
	a.tasks.Wait()
}
