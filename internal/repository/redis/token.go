// Package redis implements repository.TokenRepository on Redis, for running
// more than one replica against the same Spotify session.
//
// Records are stored as JSON strings under "portfolio:spotify_token:{key}"
// with no TTL. The refresh token stays valid until revoked, so expiry is
// tracked inside the record, not by Redis.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/sakif/portfolio-api/internal/apperror"
	"github.com/sakif/portfolio-api/internal/model"
	"github.com/sakif/portfolio-api/internal/repository"
)

const keyPrefix = "portfolio:spotify_token:"

var _ repository.TokenRepository = (*TokenStore)(nil)

type TokenStore struct {
	rdb *goredis.Client
}

// NewClient parses a redis:// URL and verifies the server is reachable.
func NewClient(ctx context.Context, redisURL string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("redis: parsing URL: %w", err)
	}

	rdb := goredis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis: ping: %w", err)
	}
	return rdb, nil
}

func NewTokenStore(rdb *goredis.Client) *TokenStore {
	return &TokenStore{rdb: rdb}
}

func (s *TokenStore) GetToken(ctx context.Context, sessionKey string) (*model.TokenRecord, error) {
	raw, err := s.rdb.Get(ctx, tokenKey(sessionKey)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, apperror.NotFound("token", sessionKey)
	}
	if err != nil {
		return nil, fmt.Errorf("redis: getting token for %s: %w", sessionKey, err)
	}

	var rec model.TokenRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("redis: decoding token for %s: %w", sessionKey, err)
	}
	return &rec, nil
}

func (s *TokenStore) SaveToken(ctx context.Context, sessionKey string, rec *model.TokenRecord) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("redis: encoding token: %w", err)
	}
	if err := s.rdb.Set(ctx, tokenKey(sessionKey), raw, 0).Err(); err != nil {
		return fmt.Errorf("redis: saving token for %s: %w", sessionKey, err)
	}
	return nil
}

func tokenKey(sessionKey string) string {
	return keyPrefix + sessionKey
}
