// Package github fetches repository README files from GitHub.
//
// Three sources are exposed, in the order a caller should prefer them:
//
//	ReadmeRaw   GET api.github.com/repos/{owner}/{repo}/readme  (Accept: v3.raw)
//	ReadmeJSON  same URL with Accept: v3+json, base64 "content" decoded
//	RawFile     GET raw.githubusercontent.com/{owner}/{repo}/{branch}/{path}
//
// Non-2xx responses come back as *StatusError so callers can branch on the
// status code; transport failures are returned wrapped as-is.
package github

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

const (
	DefaultAPIBaseURL = "https://api.github.com"
	DefaultRawBaseURL = "https://raw.githubusercontent.com"

	acceptRaw  = "application/vnd.github.v3.raw"
	acceptJSON = "application/vnd.github.v3+json"
	userAgent  = "portfolio-api"

	// README files larger than this are truncated when read.
	maxBodyBytes = 4 << 20
)

// StatusError is a non-2xx answer from GitHub.
type StatusError struct {
	StatusCode int
	URL        string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("github: %s returned status %d", e.URL, e.StatusCode)
}

type Client struct {
	apiBaseURL string
	rawBaseURL string
	token      string
	http       *http.Client
}

// Option customises a Client.
type Option func(*Client)

// WithBaseURLs points the client at alternative API and raw-content hosts.
func WithBaseURLs(apiBaseURL, rawBaseURL string) Option {
	return func(c *Client) {
		c.apiBaseURL = strings.TrimRight(apiBaseURL, "/")
		c.rawBaseURL = strings.TrimRight(rawBaseURL, "/")
	}
}

// WithToken sends token as a bearer credential to the API host.
func WithToken(token string) Option {
	return func(c *Client) { c.token = strings.TrimSpace(token) }
}

func NewClient(httpClient *http.Client, opts ...Option) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	c := &Client{
		apiBaseURL: DefaultAPIBaseURL,
		rawBaseURL: DefaultRawBaseURL,
		http:       httpClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ReadmeRaw fetches the README through the content API as raw text.
func (c *Client) ReadmeRaw(ctx context.Context, owner, repo string) (string, error) {
	body, err := c.get(ctx, c.readmeURL(owner, repo), acceptRaw, true)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// ReadmeJSON fetches the README through the structured API and decodes the
// base64 payload.
func (c *Client) ReadmeJSON(ctx context.Context, owner, repo string) (string, error) {
	body, err := c.get(ctx, c.readmeURL(owner, repo), acceptJSON, true)
	if err != nil {
		return "", err
	}

	var payload struct {
		Content  string `json:"content"`
		Encoding string `json:"encoding"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", fmt.Errorf("github: decoding readme JSON: %w", err)
	}
	if payload.Encoding != "" && payload.Encoding != "base64" {
		return "", fmt.Errorf("github: unsupported readme encoding %q", payload.Encoding)
	}

	// GitHub wraps the base64 payload at 60 columns.
	cleaned := strings.NewReplacer("\n", "", "\r", "").Replace(payload.Content)
	decoded, err := base64.StdEncoding.DecodeString(cleaned)
	if err != nil {
		return "", fmt.Errorf("github: decoding readme base64: %w", err)
	}
	return string(decoded), nil
}

// RawFile fetches one file from the raw-content CDN at the given branch.
// The CDN is unauthenticated; the token is never sent there.
func (c *Client) RawFile(ctx context.Context, owner, repo, branch, path string) (string, error) {
	u := fmt.Sprintf("%s/%s/%s/%s/%s", c.rawBaseURL,
		url.PathEscape(owner), url.PathEscape(repo), url.PathEscape(branch), path)
	body, err := c.get(ctx, u, "", false)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

func (c *Client) readmeURL(owner, repo string) string {
	return fmt.Sprintf("%s/repos/%s/%s/readme", c.apiBaseURL, url.PathEscape(owner), url.PathEscape(repo))
}

func (c *Client) get(ctx context.Context, u, accept string, authenticated bool) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("github: building request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	if accept != "" {
		req.Header.Set("Accept", accept)
	}
	if authenticated && c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("github: requesting %s: %w", u, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return nil, &StatusError{StatusCode: resp.StatusCode, URL: u}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("github: reading %s: %w", u, err)
	}
	return body, nil
}
