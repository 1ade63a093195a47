// Package config loads process configuration from the environment.
//
// A .env file in the working directory is read first (if present), then every
// field is populated from its env tag, falling back to the default tag.
package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go-simpler.org/env"
)

// Token store backends selectable through TOKEN_STORE.
const (
	TokenStoreMemory = "memory"
	TokenStoreSQLite = "sqlite"
	TokenStoreRedis  = "redis"
)

type Config struct {
	Port              int           `env:"PORT" default:"3001"`
	DeployedURL       string        `env:"DEPLOYED_URL" default:"https://ayush.info"`
	StaticDir         string        `env:"STATIC_DIR" default:"dist"`
	LogLevel          string        `env:"LOG_LEVEL" default:"info"`
	LogFormat         string        `env:"LOG_FORMAT" default:"text"`
	HTTPClientTimeout time.Duration `env:"HTTP_CLIENT_TIMEOUT" default:"10s"`
	CORSOrigins       string        `env:"CORS_ALLOWED_ORIGINS" default:"*"`

	SpotifyClientID     string `env:"SPOTIFY_CLIENT_ID"`
	SpotifyClientSecret string `env:"SPOTIFY_CLIENT_SECRET"`
	SpotifyRedirectURI  string `env:"SPOTIFY_REDIRECT_URI"`
	SpotifyRefreshToken string `env:"SPOTIFY_REFRESH_TOKEN"`

	TokenStore string `env:"TOKEN_STORE" default:"memory"`
	DBPath     string `env:"DB_PATH" default:"data/portfolio.db"`
	RedisURL   string `env:"REDIS_URL"`

	GitHubToken     string `env:"GITHUB_TOKEN"`
	ViteGitHubToken string `env:"VITE_GITHUB_TOKEN"`

	GeminiAPIKey string `env:"GEMINI_API_KEY"`
	GeminiModel  string `env:"GEMINI_MODEL" default:"gemini-2.5-flash"`
	PromptDir    string `env:"PROMPT_DIR" default:"src/assets"`
	ProjectsFile string `env:"PROJECTS_FILE" default:"projects.yaml"`

	ResendAPIKey     string `env:"RESEND_API_KEY"`
	ContactToEmail   string `env:"CONTACT_TO_EMAIL"`
	ContactFromEmail string `env:"CONTACT_FROM_EMAIL"`

	RateLimitRPS   float64 `env:"RATE_LIMIT_RPS" default:"1"`
	RateLimitBurst int     `env:"RATE_LIMIT_BURST" default:"5"`
}

// Load reads the .env file (optional) and the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file found, using environment variables")
	}
	return FromEnv()
}

// FromEnv builds a Config from the current environment only.
func FromEnv() (*Config, error) {
	var cfg Config
	if err := env.Load(&cfg, nil); err != nil {
		return nil, fmt.Errorf("config: loading environment variables: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func validate(cfg *Config) error {
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return fmt.Errorf("config: PORT must be between 1 and 65535, got %d", cfg.Port)
	}

	switch cfg.TokenStore {
	case TokenStoreMemory:
	case TokenStoreSQLite:
		if cfg.DBPath == "" {
			return fmt.Errorf("config: DB_PATH is required when TOKEN_STORE=sqlite")
		}
	case TokenStoreRedis:
		if cfg.RedisURL == "" {
			return fmt.Errorf("config: REDIS_URL is required when TOKEN_STORE=redis")
		}
	default:
		return fmt.Errorf("config: unknown TOKEN_STORE %q (want memory, sqlite or redis)", cfg.TokenStore)
	}

	if _, err := ParseLevel(cfg.LogLevel); err != nil {
		return err
	}
	if cfg.RateLimitRPS <= 0 || cfg.RateLimitBurst <= 0 {
		return fmt.Errorf("config: RATE_LIMIT_RPS and RATE_LIMIT_BURST must be positive")
	}
	return nil
}

// RedirectURL is the OAuth callback registered with the streaming platform.
func (c *Config) RedirectURL() string {
	if c.SpotifyRedirectURI != "" {
		return c.SpotifyRedirectURI
	}
	return strings.TrimRight(c.DeployedURL, "/") + "/callback"
}

// GitHubBearer returns the token used for README lookups, if any.
// The VITE_ name is what the SPA build already exports.
func (c *Config) GitHubBearer() string {
	if c.GitHubToken != "" {
		return c.GitHubToken
	}
	return c.ViteGitHubToken
}

// AllowedOrigins splits CORS_ALLOWED_ORIGINS on commas.
func (c *Config) AllowedOrigins() []string {
	var origins []string
	for _, o := range strings.Split(c.CORSOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}

// ParseLevel maps LOG_LEVEL onto a slog level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("config: unknown LOG_LEVEL %q", s)
}
