package model

import "time"

// Track is the flattened view of a track the UI panel renders.
// Duration and Progress are milliseconds, matching the platform's wire format.
type Track struct {
	Name        string `json:"name"`
	Artist      string `json:"artist"`
	Album       string `json:"album"`
	Image       string `json:"image"`
	Duration    int64  `json:"duration"`
	Progress    int64  `json:"progress"`
	ExternalURL string `json:"external_url"`
}

// PlaybackSnapshot answers "what is playing right now".
//
// Track is set iff IsPlaying. LastPlayed is only filled in as a fallback when
// nothing is playing.
type PlaybackSnapshot struct {
	IsPlaying  bool   `json:"isPlaying"`
	Track      *Track `json:"track,omitempty"`
	LastPlayed *Track `json:"lastPlayed,omitempty"`
	Message    string `json:"message,omitempty"`
}

// RecentTrack is one entry of the recently-played history.
type RecentTrack struct {
	Name        string    `json:"name"`
	Artist      string    `json:"artist"`
	Album       string    `json:"album"`
	Image       string    `json:"image"`
	Duration    int64     `json:"duration"`
	PlayedAt    time.Time `json:"played_at"`
	ExternalURL string    `json:"external_url"`
}
