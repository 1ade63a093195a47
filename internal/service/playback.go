package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/singleflight"

	"github.com/sakif/portfolio-api/internal/apperror"
	"github.com/sakif/portfolio-api/internal/metrics"
	"github.com/sakif/portfolio-api/internal/model"
	"github.com/sakif/portfolio-api/internal/repository"
	"github.com/sakif/portfolio-api/internal/spotify"
)

// TokenAuthority is the OAuth side of Spotify (*spotify.Authenticator).
type TokenAuthority interface {
	AuthURL(state string) string
	Exchange(ctx context.Context, code string) (*spotify.Token, error)
	Refresh(ctx context.Context, refreshToken string) (*spotify.Token, error)
}

// Player is the Web API side of Spotify (*spotify.Client).
type Player interface {
	CurrentlyPlaying(ctx context.Context, accessToken string) (*spotify.CurrentlyPlaying, error)
	RecentlyPlayed(ctx context.Context, accessToken string, limit int) ([]model.RecentTrack, error)
}

const (
	playbackCacheTTL = 5 * time.Second
	recentLimit      = 5

	notPlayingMessage = "No track currently playing"
)

// PlaybackConfig is the app registration plus the optional long-lived
// refresh token used to bootstrap a session without a browser login.
type PlaybackConfig struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
}

// AuthorizeResult is returned by Authorize.
type AuthorizeResult struct {
	AuthURL string `json:"authUrl"`
	State   string `json:"state"`
}

// RefreshResult is returned by Refresh. ExpiresIn is in seconds.
type RefreshResult struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

// PlaybackService owns the single account's token lifecycle and answers the
// "what is playing" panel.
//
// CONCURRENCY:
//   - the token record lives in a TokenRepository (itself concurrency-safe)
//   - refreshes for a session are coalesced with singleflight, and the flight
//     re-reads the stored record so a refresh that just finished is reused
//   - the playback snapshot cache is one mutex-guarded slot; concurrent misses
//     share one upstream query, and a build that started before the last
//     invalidation does not store its result
type PlaybackService struct {
	auth    TokenAuthority
	player  Player
	tokens  repository.TokenRepository
	cfg     PlaybackConfig
	metrics *metrics.Metrics
	clock   clockwork.Clock
	logger  *slog.Logger

	sessionKey string
	newState   func() (string, error)

	refreshGroup  singleflight.Group
	snapshotGroup singleflight.Group

	cacheMu  sync.Mutex
	cached   *model.PlaybackSnapshot
	cachedAt time.Time
	cacheGen uint64
}

func NewPlaybackService(
	auth TokenAuthority,
	player Player,
	tokens repository.TokenRepository,
	cfg PlaybackConfig,
	m *metrics.Metrics,
	clock clockwork.Clock,
	logger *slog.Logger,
) *PlaybackService {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &PlaybackService{
		auth:       auth,
		player:     player,
		tokens:     tokens,
		cfg:        cfg,
		metrics:    m,
		clock:      clock,
		logger:     logger,
		sessionKey: model.DefaultSessionKey,
		newState:   spotify.NewState,
	}
}

func (s *PlaybackService) configured() error {
	if s.cfg.ClientID == "" || s.cfg.ClientSecret == "" {
		return apperror.NotConfigured("Spotify is not configured (missing client ID or secret)")
	}
	return nil
}

// Authorize builds the consent URL for a fresh browser login.
func (s *PlaybackService) Authorize() (*AuthorizeResult, error) {
	if err := s.configured(); err != nil {
		return nil, err
	}
	state, err := s.newState()
	if err != nil {
		return nil, fmt.Errorf("service/playback: %w", err)
	}
	return &AuthorizeResult{AuthURL: s.auth.AuthURL(state), State: state}, nil
}

// Callback exchanges an authorization code and installs the resulting token
// record for the session, replacing any previous one.
func (s *PlaybackService) Callback(ctx context.Context, code string) error {
	if err := s.configured(); err != nil {
		return err
	}
	if code == "" {
		return apperror.ValidationFailed("code", "Authorization code required")
	}

	tok, err := s.auth.Exchange(ctx, code)
	if err != nil {
		var te *spotify.TokenError
		if errors.As(err, &te) {
			s.logger.Warn("spotify code exchange rejected",
				slog.Int("status", te.StatusCode),
				slog.String("error", te.Code),
			)
			msg := te.Description
			if msg == "" {
				msg = "Token exchange failed"
			}
			return apperror.ValidationFailed("code", msg)
		}
		s.logger.Error("spotify code exchange failed", slog.String("error", err.Error()))
		return apperror.Upstream(0, "Token exchange failed", err)
	}

	rec := s.recordFrom(tok, "")
	if err := s.tokens.SaveToken(ctx, s.sessionKey, rec); err != nil {
		return fmt.Errorf("service/playback: saving token: %w", err)
	}

	// A different account may now be linked.
	s.invalidateSnapshot()

	s.logger.Info("spotify tokens stored",
		slog.String("session", s.sessionKey),
		slog.Time("expiresAt", rec.ExpiresAt),
	)
	return nil
}

// Refresh trades an explicit refresh token for a new access token and
// stores the result as the session's record.
func (s *PlaybackService) Refresh(ctx context.Context, refreshToken string) (*RefreshResult, error) {
	if err := s.configured(); err != nil {
		return nil, err
	}
	if refreshToken == "" {
		return nil, apperror.ValidationFailed("refresh_token", "Refresh token required")
	}

	rec, err := s.refreshWith(ctx, refreshToken)
	if err != nil {
		return nil, err
	}
	return &RefreshResult{
		AccessToken: rec.AccessToken,
		ExpiresIn:   int64(rec.ExpiresAt.Sub(s.clock.Now()).Round(time.Second) / time.Second),
	}, nil
}

// GetPlayback reports what is playing, falling back to the last played track
// when nothing is. Answers are cached for five seconds.
func (s *PlaybackService) GetPlayback(ctx context.Context) (model.PlaybackSnapshot, error) {
	if err := s.configured(); err != nil {
		return model.PlaybackSnapshot{}, err
	}

	rec, err := s.session(ctx)
	if err != nil {
		return model.PlaybackSnapshot{}, err
	}

	if snap, ok := s.cachedSnapshot(); ok {
		s.metrics.PlaybackCacheHit()
		return snap, nil
	}

	ch := s.snapshotGroup.DoChan("snapshot", func() (interface{}, error) {
		return s.buildSnapshot(context.WithoutCancel(ctx), rec)
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return model.PlaybackSnapshot{}, res.Err
		}
		return res.Val.(model.PlaybackSnapshot), nil
	case <-ctx.Done():
		return model.PlaybackSnapshot{}, fmt.Errorf("service/playback: %w", ctx.Err())
	}
}

// GetRecent returns the last few played tracks. It is not cached.
func (s *PlaybackService) GetRecent(ctx context.Context) ([]model.RecentTrack, error) {
	if err := s.configured(); err != nil {
		return nil, err
	}

	rec, err := s.session(ctx)
	if err != nil {
		return nil, err
	}
	if rec, err = s.ensureFresh(ctx, rec); err != nil {
		return nil, err
	}

	tracks, err := s.player.RecentlyPlayed(ctx, rec.AccessToken, recentLimit)
	s.metrics.SpotifyRequest("recently_played", requestCode(err))
	if err != nil {
		return nil, playerError(err, "Failed to fetch recent tracks")
	}
	return tracks, nil
}

func (s *PlaybackService) buildSnapshot(ctx context.Context, rec *model.TokenRecord) (model.PlaybackSnapshot, error) {
	s.cacheMu.Lock()
	gen := s.cacheGen
	s.cacheMu.Unlock()

	rec, err := s.ensureFresh(ctx, rec)
	if err != nil {
		return model.PlaybackSnapshot{}, err
	}

	cp, err := s.player.CurrentlyPlaying(ctx, rec.AccessToken)
	s.metrics.SpotifyRequest("currently_playing", currentlyPlayingCode(cp, err))
	if err != nil {
		return model.PlaybackSnapshot{}, playerError(err, "Failed to fetch playback data")
	}

	var snap model.PlaybackSnapshot
	if cp != nil && cp.IsPlaying && cp.Track != nil {
		snap.IsPlaying = true
		snap.Track = cp.Track
	} else {
		snap.Message = notPlayingMessage
		snap.LastPlayed = s.lastPlayed(ctx, rec.AccessToken)
	}

	s.cacheMu.Lock()
	if s.cacheGen == gen {
		s.cached = &snap
		s.cachedAt = s.clock.Now()
	}
	s.cacheMu.Unlock()

	return snap, nil
}

// lastPlayed is best effort: any failure just leaves the field empty.
func (s *PlaybackService) lastPlayed(ctx context.Context, accessToken string) *model.Track {
	recent, err := s.player.RecentlyPlayed(ctx, accessToken, 1)
	s.metrics.SpotifyRequest("recently_played", requestCode(err))
	if err != nil {
		s.logger.Debug("last played lookup failed", slog.String("error", err.Error()))
		return nil
	}
	if len(recent) == 0 {
		return nil
	}
	r := recent[0]
	return &model.Track{
		Name:        r.Name,
		Artist:      r.Artist,
		Album:       r.Album,
		Image:       r.Image,
		Duration:    r.Duration,
		ExternalURL: r.ExternalURL,
	}
}

func (s *PlaybackService) cachedSnapshot() (model.PlaybackSnapshot, bool) {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	if s.cached == nil || s.clock.Since(s.cachedAt) >= playbackCacheTTL {
		return model.PlaybackSnapshot{}, false
	}
	return *s.cached, true
}

// invalidateSnapshot drops the cached answer and detaches any build in
// flight, so later callers query upstream again.
func (s *PlaybackService) invalidateSnapshot() {
	s.cacheMu.Lock()
	s.cached = nil
	s.cacheGen++
	s.cacheMu.Unlock()
	s.snapshotGroup.Forget("snapshot")
}

// session loads the stored record, synthesizing one from the configured
// refresh token when none exists. The synthesized record is expired and is
// never stored; only the record its first refresh produces is saved.
func (s *PlaybackService) session(ctx context.Context) (*model.TokenRecord, error) {
	rec, err := s.tokens.GetToken(ctx, s.sessionKey)
	if err == nil {
		return rec, nil
	}
	if !errors.Is(err, apperror.ErrNotFound) {
		return nil, fmt.Errorf("service/playback: loading token: %w", err)
	}
	if s.cfg.RefreshToken == "" {
		return nil, apperror.Unauthenticated("Not authenticated")
	}

	s.logger.Info("spotify session bootstrapped from configured refresh token",
		slog.String("session", s.sessionKey))
	return &model.TokenRecord{RefreshToken: s.cfg.RefreshToken}, nil
}

// ensureFresh returns rec unchanged while it is valid and refreshes it
// otherwise. There is no stale fallback: a failed refresh fails the call.
// The shared flight is detached from the caller's cancellation, since other
// callers may be waiting on it.
func (s *PlaybackService) ensureFresh(ctx context.Context, rec *model.TokenRecord) (*model.TokenRecord, error) {
	if !rec.Expired(s.clock.Now()) {
		return rec, nil
	}

	fctx := context.WithoutCancel(ctx)
	v, err, _ := s.refreshGroup.Do(s.sessionKey, func() (interface{}, error) {
		// Another flight may have finished between our read and now.
		current, err := s.tokens.GetToken(fctx, s.sessionKey)
		if err == nil && !current.Expired(s.clock.Now()) {
			return current, nil
		}
		refreshToken := rec.RefreshToken
		if err == nil && current.RefreshToken != "" {
			refreshToken = current.RefreshToken
		}
		return s.refreshWith(fctx, refreshToken)
	})
	if err != nil {
		return nil, err
	}
	return v.(*model.TokenRecord), nil
}

func (s *PlaybackService) refreshWith(ctx context.Context, refreshToken string) (*model.TokenRecord, error) {
	tok, err := s.auth.Refresh(ctx, refreshToken)
	if err != nil {
		s.metrics.TokenRefresh("failure")
		s.logger.Warn("spotify token refresh failed", slog.String("error", err.Error()))
		return nil, apperror.Unauthenticated("Token refresh failed")
	}

	rec := s.recordFrom(tok, refreshToken)
	if err := s.tokens.SaveToken(ctx, s.sessionKey, rec); err != nil {
		return nil, fmt.Errorf("service/playback: saving refreshed token: %w", err)
	}
	s.metrics.TokenRefresh("success")
	s.logger.Debug("spotify token refreshed", slog.Time("expiresAt", rec.ExpiresAt))
	return rec, nil
}

// recordFrom stamps an absolute expiry. previousRefresh is kept when the
// token endpoint did not rotate the refresh token.
func (s *PlaybackService) recordFrom(tok *spotify.Token, previousRefresh string) *model.TokenRecord {
	rt := tok.RefreshToken
	if rt == "" {
		rt = previousRefresh
	}
	return &model.TokenRecord{
		AccessToken:  tok.AccessToken,
		RefreshToken: rt,
		ExpiresAt:    s.clock.Now().Add(tok.ExpiresIn),
	}
}

func playerError(err error, fallback string) error {
	var apiErr *spotify.APIError
	if errors.As(err, &apiErr) {
		msg := apiErr.Message
		if msg == "" {
			msg = fallback
		}
		return apperror.Upstream(apiErr.StatusCode, msg, err)
	}
	return apperror.Upstream(0, fallback, err)
}

func requestCode(err error) string {
	if err == nil {
		return "200"
	}
	var apiErr *spotify.APIError
	if errors.As(err, &apiErr) {
		return strconv.Itoa(apiErr.StatusCode)
	}
	return "error"
}

func currentlyPlayingCode(cp *spotify.CurrentlyPlaying, err error) string {
	if err == nil && cp == nil {
		return "204"
	}
	return requestCode(err)
}
