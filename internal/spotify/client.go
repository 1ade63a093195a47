package spotify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/sakif/portfolio-api/internal/model"
)

const DefaultAPIBaseURL = "https://api.spotify.com/v1"

// APIError is a non-2xx answer from the Web API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("spotify: API returned status %d: %s", e.StatusCode, e.Message)
}

// Client calls the player endpoints with a caller-supplied access token.
// It holds no credentials itself.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a player client. An empty baseURL means the public API.
func NewClient(httpClient *http.Client, baseURL string) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if baseURL == "" {
		baseURL = DefaultAPIBaseURL
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: httpClient}
}

// CurrentlyPlaying returns the player state. A 204 from Spotify (nothing
// active) is reported as (nil, nil).
func (c *Client) CurrentlyPlaying(ctx context.Context, accessToken string) (*CurrentlyPlaying, error) {
	var body currentlyPlayingResponse
	ok, err := c.get(ctx, accessToken, "/me/player/currently-playing", nil, &body)
	if err != nil || !ok {
		return nil, err
	}

	cp := &CurrentlyPlaying{IsPlaying: body.IsPlaying}
	if body.Item != nil {
		cp.Track = body.Item.toTrack(body.ProgressMs)
	}
	return cp, nil
}

// RecentlyPlayed returns up to limit tracks, newest first.
func (c *Client) RecentlyPlayed(ctx context.Context, accessToken string, limit int) ([]model.RecentTrack, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))

	var body recentlyPlayedResponse
	if _, err := c.get(ctx, accessToken, "/me/player/recently-played", q, &body); err != nil {
		return nil, err
	}

	tracks := make([]model.RecentTrack, 0, len(body.Items))
	for i := range body.Items {
		tracks = append(tracks, body.Items[i].Track.toRecent(body.Items[i].PlayedAt))
	}
	return tracks, nil
}

// get performs an authenticated GET and decodes a JSON body into out.
// It reports false (and no error) for 204 No Content.
func (c *Client) get(ctx context.Context, accessToken, path string, query url.Values, out any) (bool, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return false, fmt.Errorf("spotify: building request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return false, fmt.Errorf("spotify: requesting %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return false, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return false, apiError(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return false, fmt.Errorf("spotify: decoding %s: %w", path, err)
	}
	return true, nil
}

func apiError(resp *http.Response) *APIError {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	e := &APIError{StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}

	var body errorResponse
	if json.Unmarshal(raw, &body) == nil && body.Error.Message != "" {
		e.Message = body.Error.Message
	}
	return e
}
