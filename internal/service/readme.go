// Package service contains the business logic behind each API surface.
//
// LAYERING:
//
//	handler (HTTP) → service (rules, caching, retries) → clients / repositories
//
// Services never see http.Request or ResponseWriter. They return apperror
// values and let handler/response.go pick the status code.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/singleflight"

	"github.com/sakif/portfolio-api/internal/apperror"
	"github.com/sakif/portfolio-api/internal/github"
	"github.com/sakif/portfolio-api/internal/metrics"
	"github.com/sakif/portfolio-api/internal/retry"
)

// ReadmeFetcher is the subset of *github.Client the resolver needs.
type ReadmeFetcher interface {
	ReadmeRaw(ctx context.Context, owner, repo string) (string, error)
	ReadmeJSON(ctx context.Context, owner, repo string) (string, error)
	RawFile(ctx context.Context, owner, repo, branch, path string) (string, error)
}

const (
	readmeAttempts       = 3
	readmeInitialBackoff = time.Second
)

// CDN branches tried, in order, once the API is throttling us.
var readmeBranches = []string{"main", "master"}

// throttledError means every source in one pass answered 403 or 429.
// It is the only error the resolver retries.
type throttledError struct {
	status int
}

func (e *throttledError) Error() string {
	return fmt.Sprintf("github throttled the request (status %d)", e.status)
}

// ReadmeService resolves repository READMEs through an ordered fallback chain:
//
//  1. in-process cache (successes only, kept for the process lifetime)
//  2. API, raw media type
//  3. API, JSON media type, base64 body  (on 403/429)
//  4. raw CDN, main then master branch   (on 403/429 again)
//
// If step 4 fails too, steps 2–4 are retried after 1s and then 2s.
// Concurrent lookups of the same repository share one upstream chain.
type ReadmeService struct {
	gh      ReadmeFetcher
	metrics *metrics.Metrics
	clock   clockwork.Clock
	logger  *slog.Logger

	mu    sync.RWMutex
	cache map[string]string

	group singleflight.Group

	// onRetry is a test hook; nil in production.
	onRetry func(attempt int, backoff time.Duration)
}

func NewReadmeService(gh ReadmeFetcher, m *metrics.Metrics, clock clockwork.Clock, logger *slog.Logger) *ReadmeService {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &ReadmeService{
		gh:      gh,
		metrics: m,
		clock:   clock,
		logger:  logger,
		cache:   make(map[string]string),
	}
}

// Get returns the README text for owner/repo.
func (s *ReadmeService) Get(ctx context.Context, owner, repo string) (string, error) {
	owner = strings.TrimSpace(owner)
	repo = strings.TrimSpace(repo)
	if owner == "" || repo == "" {
		return "", apperror.ValidationFailed("owner", "Owner and repo are required")
	}

	key := owner + "/" + repo
	if content, ok := s.cached(key); ok {
		s.metrics.ReadmeCacheHit()
		return content, nil
	}

	// The flight runs detached from any one caller so a client hanging up
	// doesn't fail everyone else waiting on the same key.
	ch := s.group.DoChan(key, func() (interface{}, error) {
		return s.resolve(context.WithoutCancel(ctx), key, owner, repo)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		return "", fmt.Errorf("service/readme: waiting for %s: %w", key, ctx.Err())
	}
}

func (s *ReadmeService) cached(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	content, ok := s.cache[key]
	return content, ok
}

func (s *ReadmeService) resolve(ctx context.Context, key, owner, repo string) (string, error) {
	policy := retry.Policy{
		MaxAttempts:    readmeAttempts,
		InitialBackoff: readmeInitialBackoff,
		Clock:          s.clock,
		OnRetry: func(attempt int, err error, backoff time.Duration) {
			s.logger.Warn("README fetch throttled, backing off",
				slog.String("repo", key),
				slog.Int("attempt", attempt),
				slog.Duration("backoff", backoff),
				slog.String("error", err.Error()),
			)
			if s.onRetry != nil {
				s.onRetry(attempt, backoff)
			}
		},
	}

	content, err := retry.Do(ctx, policy, classifyReadmeErr, func() (string, error) {
		return s.fetchOnce(ctx, owner, repo)
	})
	if err != nil {
		return "", s.readmeError(key, err)
	}

	s.mu.Lock()
	s.cache[key] = content
	s.mu.Unlock()

	s.logger.Debug("README cached", slog.String("repo", key), slog.Int("bytes", len(content)))
	return content, nil
}

func classifyReadmeErr(err error) retry.Action {
	var te *throttledError
	if errors.As(err, &te) {
		return retry.Retry
	}
	return retry.Stop
}

// fetchOnce runs steps 2–4 once.
func (s *ReadmeService) fetchOnce(ctx context.Context, owner, repo string) (string, error) {
	content, err := s.gh.ReadmeRaw(ctx, owner, repo)
	s.metrics.ReadmeFetch("raw", fetchOutcome(err))
	if err == nil {
		return content, nil
	}
	if !isThrottled(err) {
		return "", err
	}

	content, err = s.gh.ReadmeJSON(ctx, owner, repo)
	s.metrics.ReadmeFetch("json", fetchOutcome(err))
	if err == nil {
		return content, nil
	}
	if !isThrottled(err) {
		return "", err
	}
	throttled := &throttledError{status: statusOf(err)}

	for _, branch := range readmeBranches {
		content, cdnErr := s.gh.RawFile(ctx, owner, repo, branch, "README.md")
		s.metrics.ReadmeFetch("cdn_"+branch, fetchOutcome(cdnErr))
		if cdnErr == nil {
			return content, nil
		}
		s.logger.Debug("README CDN fallback failed",
			slog.String("repo", owner+"/"+repo),
			slog.String("branch", branch),
			slog.String("error", cdnErr.Error()),
		)
	}
	return "", throttled
}

// readmeError turns the final chain error into an apperror class.
func (s *ReadmeService) readmeError(key string, err error) error {
	var te *throttledError
	if errors.As(err, &te) {
		var exhausted *retry.ExhaustedError
		attempts := readmeAttempts
		if errors.As(err, &exhausted) {
			attempts = exhausted.Attempts
		}
		s.logger.Warn("README fetch gave up",
			slog.String("repo", key),
			slog.Int("attempts", attempts),
			slog.Int("status", te.status),
		)
		if te.status == http.StatusTooManyRequests {
			return apperror.RateLimited(fmt.Sprintf(
				"GitHub rate limit exceeded after %d attempts, try again later", attempts))
		}
		return apperror.Forbidden(fmt.Sprintf(
			"Repository is private or restricted (still denied after %d attempts)", attempts))
	}

	switch status := statusOf(err); {
	case status == http.StatusNotFound:
		return apperror.Missing("No README found for " + key)
	case status != 0:
		s.logger.Error("README fetch failed", slog.String("repo", key), slog.Int("status", status))
		return apperror.Upstream(status, fmt.Sprintf("GitHub returned status %d", status), err)
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("service/readme: %s: %w", key, err)
	}
	s.logger.Error("README fetch failed", slog.String("repo", key), slog.String("error", err.Error()))
	return apperror.Upstream(0, "Failed to reach GitHub", err)
}

func statusOf(err error) int {
	var se *github.StatusError
	if errors.As(err, &se) {
		return se.StatusCode
	}
	return 0
}

func isThrottled(err error) bool {
	s := statusOf(err)
	return s == http.StatusForbidden || s == http.StatusTooManyRequests
}

func fetchOutcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case statusOf(err) == http.StatusNotFound:
		return "not_found"
	case isThrottled(err):
		return "throttled"
	default:
		return "error"
	}
}
