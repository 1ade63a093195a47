package handler

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/sakif/portfolio-api/internal/apperror"
	"github.com/sakif/portfolio-api/internal/model"
	"github.com/sakif/portfolio-api/internal/service"
)

// PlaybackAPI is what the Spotify handler needs from *service.PlaybackService.
type PlaybackAPI interface {
	Authorize() (*service.AuthorizeResult, error)
	Callback(ctx context.Context, code string) error
	Refresh(ctx context.Context, refreshToken string) (*service.RefreshResult, error)
	GetPlayback(ctx context.Context) (model.PlaybackSnapshot, error)
	GetRecent(ctx context.Context) ([]model.RecentTrack, error)
}

// SpotifyHandler serves the action-dispatch endpoint the About page polls
// and the browser-facing OAuth redirect target.
type SpotifyHandler struct {
	playback    PlaybackAPI
	deployedURL string
	logger      *slog.Logger
}

func NewSpotifyHandler(playback PlaybackAPI, deployedURL string, logger *slog.Logger) *SpotifyHandler {
	return &SpotifyHandler{
		playback:    playback,
		deployedURL: strings.TrimRight(deployedURL, "/"),
		logger:      logger,
	}
}

type spotifyRequest struct {
	Action       string `json:"action"`
	Code         string `json:"code"`
	RefreshToken string `json:"refresh_token"`
}

// HandleAction dispatches on the "action" field.
//
// HTTP: POST /api/spotify
//
//	authorize    → {authUrl, state}
//	callback     → {success, message}
//	refresh      → {access_token, expires_in}
//	get_playback → PlaybackSnapshot
//	get_recent   → {tracks}
func (h *SpotifyHandler) HandleAction(w http.ResponseWriter, r *http.Request) {
	var req spotifyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	ctx := r.Context()
	switch req.Action {
	case "authorize":
		res, err := h.playback.Authorize()
		if err != nil {
			writeError(w, h.logger, err)
			return
		}
		writeJSON(w, http.StatusOK, res)

	case "callback":
		if err := h.playback.Callback(ctx, req.Code); err != nil {
			writeError(w, h.logger, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"message": "Authorization successful",
		})

	case "refresh":
		res, err := h.playback.Refresh(ctx, req.RefreshToken)
		if err != nil {
			writeError(w, h.logger, err)
			return
		}
		writeJSON(w, http.StatusOK, res)

	case "get_playback":
		snap, err := h.playback.GetPlayback(ctx)
		if err != nil {
			writeError(w, h.logger, err)
			return
		}
		writeJSON(w, http.StatusOK, snap)

	case "get_recent":
		tracks, err := h.playback.GetRecent(ctx)
		if err != nil {
			writeError(w, h.logger, err)
			return
		}
		if tracks == nil {
			tracks = []model.RecentTrack{}
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"tracks": tracks})

	default:
		writeError(w, h.logger, apperror.ValidationFailed("action", "Invalid action"))
	}
}

// HandleCallback completes the browser OAuth flow and sends the visitor back
// to the About page with the outcome in the query string.
//
// HTTP: GET /callback?code=xxx  (or ?error=access_denied)
func (h *SpotifyHandler) HandleCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	if errParam := q.Get("error"); errParam != "" {
		h.logger.Info("spotify authorization denied", slog.String("error", errParam))
		h.redirectAbout(w, r, "spotify_error="+url.QueryEscape(errParam))
		return
	}

	code := q.Get("code")
	if code == "" {
		h.redirectAbout(w, r, "spotify_error=no_code")
		return
	}

	if err := h.playback.Callback(r.Context(), code); err != nil {
		h.logger.Warn("spotify callback exchange failed", slog.String("error", err.Error()))
		h.redirectAbout(w, r, "spotify_error=token_exchange_failed")
		return
	}
	h.redirectAbout(w, r, "spotify_success=true")
}

func (h *SpotifyHandler) redirectAbout(w http.ResponseWriter, r *http.Request, query string) {
	http.Redirect(w, r, h.deployedURL+"/about?"+query, http.StatusFound)
}
