package handler_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/portfolio-api/internal/apperror"
	"github.com/sakif/portfolio-api/internal/handler"
	"github.com/sakif/portfolio-api/internal/model"
	"github.com/sakif/portfolio-api/internal/service"
)

// MockPlayback records the last call and returns canned answers.
type MockPlayback struct {
	CapturedCode    string
	CapturedRefresh string

	Snapshot  model.PlaybackSnapshot
	Tracks    []model.RecentTrack
	ReturnErr error
}

func (m *MockPlayback) Authorize() (*service.AuthorizeResult, error) {
	if m.ReturnErr != nil {
		return nil, m.ReturnErr
	}
	return &service.AuthorizeResult{AuthURL: "https://accounts.example/authorize", State: "abcdefghijklmnop"}, nil
}

func (m *MockPlayback) Callback(ctx context.Context, code string) error {
	m.CapturedCode = code
	return m.ReturnErr
}

func (m *MockPlayback) Refresh(ctx context.Context, refreshToken string) (*service.RefreshResult, error) {
	m.CapturedRefresh = refreshToken
	if m.ReturnErr != nil {
		return nil, m.ReturnErr
	}
	return &service.RefreshResult{AccessToken: "at", ExpiresIn: 3600}, nil
}

func (m *MockPlayback) GetPlayback(ctx context.Context) (model.PlaybackSnapshot, error) {
	return m.Snapshot, m.ReturnErr
}

func (m *MockPlayback) GetRecent(ctx context.Context) ([]model.RecentTrack, error) {
	return m.Tracks, m.ReturnErr
}

func TestSpotifyHandler_HandleAction(t *testing.T) {
	t.Run("authorize", func(t *testing.T) {
		h := handler.NewSpotifyHandler(&MockPlayback{}, "https://site.example", testLogger())

		rr := postJSON(t, h.HandleAction, "/api/spotify", `{"action":"authorize"}`)

		assert.Equal(t, http.StatusOK, rr.Code)
		res := decodeMap(t, rr)
		assert.Equal(t, "https://accounts.example/authorize", res["authUrl"])
		assert.Equal(t, "abcdefghijklmnop", res["state"])
	})

	t.Run("callback", func(t *testing.T) {
		m := &MockPlayback{}
		h := handler.NewSpotifyHandler(m, "https://site.example", testLogger())

		rr := postJSON(t, h.HandleAction, "/api/spotify", `{"action":"callback","code":"xyz"}`)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "xyz", m.CapturedCode)
		assert.Equal(t, map[string]interface{}{"success": true, "message": "Authorization successful"}, decodeMap(t, rr))
	})

	t.Run("callback rejected", func(t *testing.T) {
		m := &MockPlayback{ReturnErr: apperror.ValidationFailed("code", "Invalid authorization code")}
		h := handler.NewSpotifyHandler(m, "https://site.example", testLogger())

		rr := postJSON(t, h.HandleAction, "/api/spotify", `{"action":"callback","code":"bad"}`)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		res := decodeError(t, rr)
		assert.False(t, res.OK)
		assert.Equal(t, "Invalid authorization code", res.Error)
		assert.Equal(t, "validation_error", res.Code)
	})

	t.Run("refresh", func(t *testing.T) {
		m := &MockPlayback{}
		h := handler.NewSpotifyHandler(m, "https://site.example", testLogger())

		rr := postJSON(t, h.HandleAction, "/api/spotify", `{"action":"refresh","refresh_token":"rt"}`)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "rt", m.CapturedRefresh)
		res := decodeMap(t, rr)
		assert.Equal(t, "at", res["access_token"])
		assert.Equal(t, float64(3600), res["expires_in"])
	})

	t.Run("get_playback", func(t *testing.T) {
		m := &MockPlayback{Snapshot: model.PlaybackSnapshot{
			IsPlaying: true,
			Track:     &model.Track{Name: "Song", Artist: "Artist", Duration: 1000, Progress: 10},
		}}
		h := handler.NewSpotifyHandler(m, "https://site.example", testLogger())

		rr := postJSON(t, h.HandleAction, "/api/spotify", `{"action":"get_playback"}`)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t,
			`{"isPlaying":true,"track":{"name":"Song","artist":"Artist","album":"","image":"","duration":1000,"progress":10,"external_url":""}}`,
			rr.Body.String())
	})

	t.Run("get_playback unauthenticated", func(t *testing.T) {
		m := &MockPlayback{ReturnErr: apperror.Unauthenticated("Not authenticated")}
		h := handler.NewSpotifyHandler(m, "https://site.example", testLogger())

		rr := postJSON(t, h.HandleAction, "/api/spotify", `{"action":"get_playback"}`)

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		assert.Equal(t, "Not authenticated", decodeError(t, rr).Error)
	})

	t.Run("get_recent with no tracks is an empty list", func(t *testing.T) {
		h := handler.NewSpotifyHandler(&MockPlayback{}, "https://site.example", testLogger())

		rr := postJSON(t, h.HandleAction, "/api/spotify", `{"action":"get_recent"}`)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, `{"tracks":[]}`, rr.Body.String())
	})

	t.Run("invalid action", func(t *testing.T) {
		h := handler.NewSpotifyHandler(&MockPlayback{}, "https://site.example", testLogger())

		rr := postJSON(t, h.HandleAction, "/api/spotify", `{"action":"dance"}`)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Equal(t, "Invalid action", decodeError(t, rr).Error)
	})

	t.Run("malformed body", func(t *testing.T) {
		h := handler.NewSpotifyHandler(&MockPlayback{}, "https://site.example", testLogger())

		rr := postJSON(t, h.HandleAction, "/api/spotify", `{"action":`)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Equal(t, "Invalid JSON body", decodeError(t, rr).Error)
	})
}

func TestSpotifyHandler_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
		wantMsg    string
	}{
		{"not configured", apperror.NotConfigured("Spotify is not configured (missing client ID or secret)"), 500, "not_configured", "Spotify is not configured (missing client ID or secret)"},
		{"upstream 4xx is passed through", apperror.Upstream(429, "API rate limit exceeded", nil), 429, "upstream_error", "API rate limit exceeded"},
		{"upstream 5xx becomes 502", apperror.Upstream(503, "Service unavailable", nil), 502, "upstream_error", "Service unavailable"},
		{"transport failure becomes 502", apperror.Upstream(0, "Failed to fetch playback data", nil), 502, "upstream_error", "Failed to fetch playback data"},
		{"restricted", apperror.Forbidden("private"), 403, "forbidden", "private"},
		{"rate limited", apperror.RateLimited("slow down"), 429, "rate_limited", "slow down"},
		{"unknown error is hidden", errors.New("sql: database is closed"), 500, "internal_error", "Internal server error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := handler.NewSpotifyHandler(&MockPlayback{ReturnErr: tt.err}, "https://site.example", testLogger())

			rr := postJSON(t, h.HandleAction, "/api/spotify", `{"action":"get_playback"}`)

			assert.Equal(t, tt.wantStatus, rr.Code)
			res := decodeError(t, rr)
			assert.Equal(t, tt.wantCode, res.Code)
			assert.Equal(t, tt.wantMsg, res.Error)
		})
	}
}

func TestSpotifyHandler_HandleCallback(t *testing.T) {
	tests := []struct {
		name         string
		query        string
		callbackErr  error
		wantLocation string
		wantCode     string
	}{
		{
			name:         "success",
			query:        "?code=abc",
			wantLocation: "https://site.example/about?spotify_success=true",
			wantCode:     "abc",
		},
		{
			name:         "user denied",
			query:        "?error=access_denied",
			wantLocation: "https://site.example/about?spotify_error=access_denied",
		},
		{
			name:         "no code",
			query:        "",
			wantLocation: "https://site.example/about?spotify_error=no_code",
		},
		{
			name:         "exchange failed",
			query:        "?code=abc",
			callbackErr:  apperror.ValidationFailed("code", "Invalid authorization code"),
			wantLocation: "https://site.example/about?spotify_error=token_exchange_failed",
			wantCode:     "abc",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &MockPlayback{ReturnErr: tt.callbackErr}
			h := handler.NewSpotifyHandler(m, "https://site.example/", testLogger())

			req := httptest.NewRequest(http.MethodGet, "/callback"+tt.query, nil)
			rr := httptest.NewRecorder()
			h.HandleCallback(rr, req)

			require.Equal(t, http.StatusFound, rr.Code)
			assert.Equal(t, tt.wantLocation, rr.Header().Get("Location"))
			assert.Equal(t, tt.wantCode, m.CapturedCode)
		})
	}
}
