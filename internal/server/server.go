// Package server sets up the HTTP server, router, and all route definitions.
//
// SERVER ARCHITECTURE:
// This package is the "wiring" layer. It decides:
// - Which URL patterns map to which handler functions
// - What middleware runs on which routes
// - How the server starts and stops gracefully
//
// DEPENDENCY INJECTION FLOW:
//
//	config.Config → upstream clients (GitHub, Spotify, Gemini, Resend)
//	              → token repository (memory | sqlite | redis)
//	              → services → handlers → routes
//
// This is the "composition root" pattern: all dependencies are wired in one
// place (New/setupRoutes), rather than scattered across the codebase.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sakif/portfolio-api/internal/catalog"
	"github.com/sakif/portfolio-api/internal/config"
	"github.com/sakif/portfolio-api/internal/gemini"
	"github.com/sakif/portfolio-api/internal/github"
	"github.com/sakif/portfolio-api/internal/handler"
	"github.com/sakif/portfolio-api/internal/mailer"
	"github.com/sakif/portfolio-api/internal/metrics"
	"github.com/sakif/portfolio-api/internal/middleware"
	"github.com/sakif/portfolio-api/internal/repository"
	"github.com/sakif/portfolio-api/internal/repository/memory"
	redisRepo "github.com/sakif/portfolio-api/internal/repository/redis"
	sqliteRepo "github.com/sakif/portfolio-api/internal/repository/sqlite"
	"github.com/sakif/portfolio-api/internal/service"
	"github.com/sakif/portfolio-api/internal/spotify"
)

// upstreams holds the third-party base URLs. Zero values mean production.
type upstreams struct {
	spotifyAuthURL  string
	spotifyTokenURL string
	spotifyAPIURL   string
	githubAPIURL    string
	githubRawURL    string
	geminiURL       string
}

// Option customises a Server. Tests use these to point upstream clients at
// httptest servers.
type Option func(*Server)

func WithSpotifyEndpoints(authURL, tokenURL, apiURL string) Option {
	return func(s *Server) {
		s.upstreams.spotifyAuthURL = authURL
		s.upstreams.spotifyTokenURL = tokenURL
		s.upstreams.spotifyAPIURL = apiURL
	}
}

func WithGitHubBaseURLs(apiURL, rawURL string) Option {
	return func(s *Server) {
		s.upstreams.githubAPIURL = apiURL
		s.upstreams.githubRawURL = rawURL
	}
}

func WithGeminiBaseURL(u string) Option {
	return func(s *Server) { s.upstreams.geminiURL = u }
}

// WithMailer replaces the Resend sender.
func WithMailer(m mailer.Sender) Option {
	return func(s *Server) { s.mailer = m }
}

func WithClock(c clockwork.Clock) Option {
	return func(s *Server) { s.clock = c }
}

// Server represents the HTTP server and all its dependencies.
//
// RESOURCE MANAGEMENT:
// The Server owns the token store connection (SQLite file or Redis client).
// closers are run in reverse order when Start returns, or by Close.
type Server struct {
	router *chi.Mux
	config *config.Config
	logger *slog.Logger

	clock     clockwork.Clock
	registry  *prometheus.Registry
	metrics   *metrics.Metrics
	upstreams upstreams
	mailer    mailer.Sender

	closers []io.Closer
}

// New wires every dependency and registers the routes.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) (*Server, error) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	s := &Server{
		router:   chi.NewRouter(),
		config:   cfg,
		logger:   logger,
		clock:    clockwork.NewRealClock(),
		registry: registry,
		metrics:  metrics.New(registry),
	}
	for _, opt := range opts {
		opt(s)
	}

	tokens, err := s.openTokenStore()
	if err != nil {
		return nil, err
	}

	if err := s.setupRoutes(tokens); err != nil {
		s.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}
	return s, nil
}

// openTokenStore picks the repository named by TOKEN_STORE.
func (s *Server) openTokenStore() (repository.TokenRepository, error) {
	switch s.config.TokenStore {
	case config.TokenStoreSQLite:
		if s.config.DBPath != ":memory:" {
			// Like `mkdir -p`; a fresh checkout has no data/ directory.
			if err := os.MkdirAll(filepath.Dir(s.config.DBPath), 0o755); err != nil {
				return nil, fmt.Errorf("creating database directory: %w", err)
			}
		}
		db, err := sqliteRepo.New(s.config.DBPath)
		if err != nil {
			return nil, fmt.Errorf("opening database: %w", err)
		}
		s.closers = append(s.closers, db)
		return db, nil

	case config.TokenStoreRedis:
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		rdb, err := redisRepo.NewClient(ctx, s.config.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("connecting to redis: %w", err)
		}
		s.closers = append(s.closers, rdb)
		return redisRepo.NewTokenStore(rdb), nil
	}
	return memory.NewTokenStore(), nil
}

// setupRoutes builds the services and configures all middleware and routes.
//
// ROUTE STRUCTURE:
// POST   /api/spotify  → playback action dispatch (JSON)
// GET    /callback     → OAuth browser redirect target
// POST   /api/readme   → README lookup (JSON)
// POST   /api/llm      → chat proxy (JSON, rate limited)
// POST   /api/contact  → contact relay (JSON, rate limited)
// GET    /api/ping     → liveness
// GET    /metrics      → Prometheus exposition
// GET    /*            → SPA with index.html fallback
//
// MIDDLEWARE ORDER MATTERS:
// 1. RequestID: assigns a unique ID to each request
// 2. RealIP: extracts the client IP from proxy headers (the rate limiter keys on it)
// 3. Logger: logs and measures each request
// 4. Recoverer: turns panics into 500s
// 5. CORS: answers preflights before any handler runs
func (s *Server) setupRoutes(tokens repository.TokenRepository) error {
	cfg := s.config
	httpClient := &http.Client{Timeout: cfg.HTTPClientTimeout}

	// === Upstream clients ===
	ghOpts := []github.Option{github.WithToken(cfg.GitHubBearer())}
	if s.upstreams.githubAPIURL != "" {
		ghOpts = append(ghOpts, github.WithBaseURLs(s.upstreams.githubAPIURL, s.upstreams.githubRawURL))
	}
	gh := github.NewClient(httpClient, ghOpts...)

	authOpts := []spotify.AuthOption{spotify.WithHTTPClient(httpClient)}
	if s.upstreams.spotifyTokenURL != "" {
		authOpts = append(authOpts, spotify.WithEndpoint(s.upstreams.spotifyAuthURL, s.upstreams.spotifyTokenURL))
	}
	authenticator := spotify.NewAuthenticator(cfg.SpotifyClientID, cfg.SpotifyClientSecret, cfg.RedirectURL(), authOpts...)
	player := spotify.NewClient(httpClient, s.upstreams.spotifyAPIURL)

	var geminiOpts []gemini.Option
	if s.upstreams.geminiURL != "" {
		geminiOpts = append(geminiOpts, gemini.WithBaseURL(s.upstreams.geminiURL))
	}
	llm := gemini.NewClient(cfg.GeminiAPIKey, cfg.GeminiModel, httpClient, geminiOpts...)

	sender := s.mailer
	if sender == nil && cfg.ResendAPIKey != "" {
		sender = mailer.NewResendSender(cfg.ResendAPIKey)
	}

	projects, err := catalog.Load(cfg.ProjectsFile)
	if err != nil {
		return fmt.Errorf("loading project catalog: %w", err)
	}

	// === Services ===
	readmeService := service.NewReadmeService(gh, s.metrics, s.clock, s.logger)
	playbackService := service.NewPlaybackService(authenticator, player, tokens, service.PlaybackConfig{
		ClientID:     cfg.SpotifyClientID,
		ClientSecret: cfg.SpotifyClientSecret,
		RefreshToken: cfg.SpotifyRefreshToken,
	}, s.metrics, s.clock, s.logger)
	chatService := service.NewChatService(llm, projects, readmeService, cfg.PromptDir, s.logger)
	contactService := service.NewContactService(sender, service.ContactConfig{
		From: cfg.ContactFromEmail,
		To:   cfg.ContactToEmail,
	}, s.clock, s.logger)

	// === Handlers ===
	spotifyHandler := handler.NewSpotifyHandler(playbackService, cfg.DeployedURL, s.logger)
	readmeHandler := handler.NewReadmeHandler(readmeService, s.logger)
	chatHandler := handler.NewChatHandler(chatService, s.logger)
	contactHandler := handler.NewContactHandler(contactService, s.logger)
	healthHandler := handler.NewHealthHandler(s.clock)
	spaHandler := handler.NewSPAHandler(cfg.StaticDir, s.logger)

	limiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, s.clock)

	// === Global Middleware ===
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger, s.metrics))
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins(),
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
		MaxAge:         300,
	}))

	// === Routes ===
	s.router.Get("/callback", spotifyHandler.HandleCallback)
	s.router.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/ping", healthHandler.HandlePing)
		r.Post("/spotify", spotifyHandler.HandleAction)
		r.Post("/readme", readmeHandler.HandleReadme)

		r.Group(func(r chi.Router) {
			r.Use(limiter.Middleware)
			r.Post("/llm", chatHandler.HandleChat)
			r.Post("/contact", contactHandler.HandleContact)
		})

		r.NotFound(spaHandler.ServeHTTP)
	})

	s.router.Get("/*", spaHandler.ServeHTTP)

	s.logger.Info("services configured",
		slog.String("tokenStore", cfg.TokenStore),
		slog.Bool("spotify", cfg.SpotifyClientID != "" && cfg.SpotifyClientSecret != ""),
		slog.Bool("llm", llm.Enabled()),
		slog.Bool("mail", sender != nil),
		slog.Int("projects", projects.Len()),
	)
	return nil
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close releases the token store connection.
func (s *Server) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}

// Start starts the HTTP server and handles graceful shutdown.
//
// GRACEFUL SHUTDOWN:
// 1. Stop accepting new HTTP connections
// 2. Wait for in-flight requests to finish (30s timeout)
// 3. Close the token store (flushes the SQLite WAL, drops Redis connections)
func (s *Server) Start() error {
	defer func() {
		if err := s.Close(); err != nil {
			s.logger.Error("closing token store", slog.String("error", err.Error()))
		}
	}()

	srv := &http.Server{
		Addr:        fmt.Sprintf(":%d", s.config.Port),
		Handler:     s.router,
		ReadTimeout: 15 * time.Second,
		// A chat answer can wait on README retries and then the model.
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Port)),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
