// Package spotify talks to the Spotify accounts service and Web API on behalf
// of the single account whose playback the site shows.
//
// OAUTH 2.0 AUTHORIZATION CODE FLOW (as used here):
//  1. AuthURL builds the consent URL with our client ID, redirect URL and the
//     two read-only player scopes.
//  2. Spotify redirects the browser back to /callback with a short-lived code.
//  3. Exchange trades the code for an access + refresh token pair
//     (server-to-server, client secret in the form body).
//  4. Refresh trades the long-lived refresh token for a new access token
//     whenever the old one expires.
//
// Token storage and expiry bookkeeping live in the service layer; this package
// only speaks the protocol.
package spotify

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"time"

	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"
)

// Scopes requested during authorization. Both are read-only.
var Scopes = []string{
	spotifyauth.ScopeUserReadCurrentlyPlaying,
	spotifyauth.ScopeUserReadRecentlyPlayed,
}

// Token is the result of a code exchange or a refresh.
//
// ExpiresIn is the lifetime reported by the token endpoint. The caller turns
// it into an absolute expiry with its own clock.
type Token struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    time.Duration
}

// TokenError is a rejection from the token endpoint (invalid_grant and
// friends). Description carries Spotify's error_description when present.
type TokenError struct {
	StatusCode  int
	Code        string
	Description string
}

func (e *TokenError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("spotify: token endpoint returned %d %s: %s", e.StatusCode, e.Code, e.Description)
	}
	return fmt.Sprintf("spotify: token endpoint returned %d %s", e.StatusCode, e.Code)
}

// Authenticator wraps golang.org/x/oauth2 for Spotify's accounts service.
type Authenticator struct {
	config     *oauth2.Config
	httpClient *http.Client
}

// AuthOption customises an Authenticator.
type AuthOption func(*Authenticator)

// WithEndpoint overrides the accounts service URLs. Tests point this at an
// httptest server.
func WithEndpoint(authURL, tokenURL string) AuthOption {
	return func(a *Authenticator) {
		a.config.Endpoint.AuthURL = authURL
		a.config.Endpoint.TokenURL = tokenURL
	}
}

// WithHTTPClient sets the client used for token endpoint calls.
func WithHTTPClient(c *http.Client) AuthOption {
	return func(a *Authenticator) { a.httpClient = c }
}

// NewAuthenticator creates an Authenticator for the given app credentials.
//
// AuthStyleInParams sends client_id and client_secret in the form body, the
// way Spotify documents it. Leaving AuthStyle unset would make x/oauth2 probe
// with a Basic header first and retry, doubling token calls on rejection.
func NewAuthenticator(clientID, clientSecret, redirectURL string, opts ...AuthOption) *Authenticator {
	a := &Authenticator{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes:       Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:   spotifyauth.AuthURL,
				TokenURL:  spotifyauth.TokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		httpClient: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// AuthURL returns the consent URL the browser should be sent to.
// The URL carries response_type=code, client_id, redirect_uri, scope and state.
func (a *Authenticator) AuthURL(state string) string {
	return a.config.AuthCodeURL(state)
}

// Exchange trades an authorization code for a token pair.
func (a *Authenticator) Exchange(ctx context.Context, code string) (*Token, error) {
	tok, err := a.config.Exchange(a.withClient(ctx), code)
	if err != nil {
		return nil, fmt.Errorf("spotify: exchanging code: %w", tokenError(err))
	}
	return fromOAuth(tok), nil
}

// Refresh trades a refresh token for a new access token. When Spotify does
// not rotate the refresh token, the returned Token carries the old one.
func (a *Authenticator) Refresh(ctx context.Context, refreshToken string) (*Token, error) {
	// An expired token with only RefreshToken set forces the source to hit
	// the token endpoint immediately.
	src := a.config.TokenSource(a.withClient(ctx), &oauth2.Token{RefreshToken: refreshToken})
	tok, err := src.Token()
	if err != nil {
		return nil, fmt.Errorf("spotify: refreshing token: %w", tokenError(err))
	}
	out := fromOAuth(tok)
	if out.RefreshToken == "" {
		out.RefreshToken = refreshToken
	}
	return out, nil
}

func (a *Authenticator) withClient(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, a.httpClient)
}

func fromOAuth(tok *oauth2.Token) *Token {
	lifetime := time.Duration(tok.ExpiresIn) * time.Second
	if lifetime <= 0 && !tok.Expiry.IsZero() {
		lifetime = time.Until(tok.Expiry).Round(time.Second)
	}
	return &Token{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresIn:    lifetime,
	}
}

// tokenError converts *oauth2.RetrieveError into *TokenError. Anything else
// (transport failures, malformed bodies) is returned unchanged.
func tokenError(err error) error {
	var re *oauth2.RetrieveError
	if !errors.As(err, &re) {
		return err
	}
	te := &TokenError{
		Code:        re.ErrorCode,
		Description: re.ErrorDescription,
	}
	if re.Response != nil {
		te.StatusCode = re.Response.StatusCode
	}
	return te
}

const stateAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// StateLength is the length of values returned by NewState.
const StateLength = 16

// NewState returns a random alphanumeric OAuth state value.
func NewState() (string, error) {
	max := big.NewInt(int64(len(stateAlphabet)))
	b := make([]byte, StateLength)
	for i := range b {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("spotify: generating state: %w", err)
		}
		b[i] = stateAlphabet[n.Int64()]
	}
	return string(b), nil
}
