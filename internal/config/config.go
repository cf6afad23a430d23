package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	ListenAddr string
	BaseURL    string

	DB struct {
		DSN string
	}

	OAuth struct {
		ClientID     string
		ClientSecret string
		IssuerURL    string
		RedirectPath string
	}

	Session struct {
		Secret string
	}

	JWT struct {
		Secret string
	}

	Storage struct {
		Backend string
		Dir     string
		Bucket  string
	}

	RedisURL          string
	MaxUploadBytes    int64
	PrometheusEnabled bool
	TrustedProxies    []string
}

// OAuthEnabled reports whether OIDC sign-in is configured.
func (c *Config) OAuthEnabled() bool {
	return c.OAuth.ClientID != "" && c.OAuth.ClientSecret != "" && c.OAuth.IssuerURL != ""
}

// Load reads configuration from the environment. A .env file in the working
// directory is applied first when present; real environment variables win.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &Config{}

	cfg.ListenAddr = getenvDefault("APP_LISTEN_ADDR", ":8080")
	cfg.BaseURL = strings.TrimRight(getenvDefault("APP_BASE_URL", "http://localhost:8080"), "/")
	cfg.DB.DSN = os.Getenv("APP_DB_DSN")

	if cfg.DB.DSN == "" {
		host := os.Getenv("APP_DB_HOST")
		name := os.Getenv("APP_DB_NAME")
		user := os.Getenv("APP_DB_USER")
		password := os.Getenv("APP_DB_PASSWORD")
		port := getenvDefault("APP_DB_PORT", "5432")
		sslmode := getenvDefault("APP_DB_SSLMODE", "disable")

		if host != "" && name != "" && user != "" && password != "" {
			cfg.DB.DSN = fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", user, password, host, port, name, sslmode)
		}
	}

	cfg.OAuth.ClientID = os.Getenv("APP_OAUTH_CLIENT_ID")
	cfg.OAuth.ClientSecret = os.Getenv("APP_OAUTH_CLIENT_SECRET")
	cfg.OAuth.IssuerURL = os.Getenv("APP_OAUTH_ISSUER_URL")
	cfg.OAuth.RedirectPath = getenvDefault("APP_OAUTH_REDIRECT_PATH", "/auth/callback")
	cfg.Session.Secret = os.Getenv("APP_SESSION_SECRET")
	cfg.JWT.Secret = getenvDefault("APP_JWT_SECRET", cfg.Session.Secret)

	cfg.Storage.Backend = strings.ToLower(getenvDefault("APP_STORAGE_BACKEND", "local"))
	cfg.Storage.Dir = getenvDefault("APP_STORAGE_DIR", "./data/files")
	cfg.Storage.Bucket = getenvDefault("APP_STORAGE_BUCKET", "attachments")

	cfg.RedisURL = os.Getenv("APP_REDIS_URL")
	cfg.MaxUploadBytes = int64(getenvInt("APP_MAX_UPLOAD_MB", 25)) << 20
	cfg.PrometheusEnabled = getenvBool("APP_PROMETHEUS_ENDPOINT_ENABLED", false)
	cfg.TrustedProxies = getenvList("APP_TRUSTED_PROXIES")

	if cfg.DB.DSN == "" {
		return nil, errors.New("APP_DB_DSN is required (or set APP_DB_HOST, APP_DB_NAME, APP_DB_USER, and APP_DB_PASSWORD)")
	}
	if cfg.Session.Secret == "" {
		return nil, errors.New("APP_SESSION_SECRET is required")
	}
	if len(cfg.Session.Secret) < 32 {
		return nil, fmt.Errorf("APP_SESSION_SECRET must be at least 32 characters long (got %d)", len(cfg.Session.Secret))
	}
	if len(cfg.JWT.Secret) < 32 {
		return nil, fmt.Errorf("APP_JWT_SECRET must be at least 32 characters long (got %d)", len(cfg.JWT.Secret))
	}

	oauthSet := 0
	for _, v := range []string{cfg.OAuth.ClientID, cfg.OAuth.ClientSecret, cfg.OAuth.IssuerURL} {
		if v != "" {
			oauthSet++
		}
	}
	if oauthSet != 0 && oauthSet != 3 {
		return nil, errors.New("oauth configuration is incomplete: set APP_OAUTH_CLIENT_ID, APP_OAUTH_CLIENT_SECRET, and APP_OAUTH_ISSUER_URL together")
	}

	switch cfg.Storage.Backend {
	case "local":
		if cfg.Storage.Dir == "" {
			return nil, errors.New("APP_STORAGE_DIR is required for the local storage backend")
		}
	case "gcs":
		if cfg.Storage.Bucket == "" {
			return nil, errors.New("APP_STORAGE_BUCKET is required for the gcs storage backend")
		}
	default:
		return nil, fmt.Errorf("unsupported APP_STORAGE_BACKEND %q (want local or gcs)", cfg.Storage.Backend)
	}

	if len(cfg.TrustedProxies) == 0 {
		log.Println("WARNING: No APP_TRUSTED_PROXIES configured. TeamTasks will trust all proxies - Not recommended for public environments.")
	}

	return cfg, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		switch strings.ToLower(v) {
		case "1", "true", "yes", "on":
			return true
		case "0", "false", "no", "off":
			return false
		}
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && n > 0 {
			return n
		}
	}
	return def
}

func getenvList(key string) []string {
	if v := os.Getenv(key); v != "" {
		var result []string
		for _, item := range strings.Split(v, ",") {
			if trimmed := strings.TrimSpace(item); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}
	return nil
}
