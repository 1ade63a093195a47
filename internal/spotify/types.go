package spotify

import (
	"time"

	"github.com/sakif/portfolio-api/internal/model"
)

// Wire shapes for the two player endpoints we call. Only the fields the site
// renders are decoded.

type image struct {
	URL string `json:"url"`
}

type artist struct {
	Name string `json:"name"`
}

type trackObject struct {
	Name       string   `json:"name"`
	DurationMs int64    `json:"duration_ms"`
	Artists    []artist `json:"artists"`
	Album      struct {
		Name   string  `json:"name"`
		Images []image `json:"images"`
	} `json:"album"`
	ExternalURLs struct {
		Spotify string `json:"spotify"`
	} `json:"external_urls"`
}

// currentlyPlayingResponse is GET /me/player/currently-playing.
// Item is null while an ad or a podcast episode without metadata is playing.
type currentlyPlayingResponse struct {
	IsPlaying  bool         `json:"is_playing"`
	ProgressMs int64        `json:"progress_ms"`
	Item       *trackObject `json:"item"`
}

// recentlyPlayedResponse is GET /me/player/recently-played.
type recentlyPlayedResponse struct {
	Items []struct {
		Track    trackObject `json:"track"`
		PlayedAt time.Time   `json:"played_at"`
	} `json:"items"`
}

// errorResponse is the Web API's regular error object.
type errorResponse struct {
	Error struct {
		Status  int    `json:"status"`
		Message string `json:"message"`
	} `json:"error"`
}

// CurrentlyPlaying is the decoded state of the player.
type CurrentlyPlaying struct {
	IsPlaying bool
	// Track is nil when the player reports no item.
	Track *model.Track
}

// toTrack maps a track object to the site's shape. Only the first artist is
// shown; only the largest (first) album image is kept.
func (t *trackObject) toTrack(progressMs int64) *model.Track {
	tr := &model.Track{
		Name:        t.Name,
		Album:       t.Album.Name,
		Duration:    t.DurationMs,
		Progress:    progressMs,
		ExternalURL: t.ExternalURLs.Spotify,
	}
	if len(t.Artists) > 0 {
		tr.Artist = t.Artists[0].Name
	}
	if len(t.Album.Images) > 0 {
		tr.Image = t.Album.Images[0].URL
	}
	return tr
}

func (t *trackObject) toRecent(playedAt time.Time) model.RecentTrack {
	tr := t.toTrack(0)
	return model.RecentTrack{
		Name:        tr.Name,
		Artist:      tr.Artist,
		Album:       tr.Album,
		Image:       tr.Image,
		Duration:    tr.Duration,
		PlayedAt:    playedAt,
		ExternalURL: tr.ExternalURL,
	}
}
