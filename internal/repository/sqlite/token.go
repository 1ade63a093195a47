package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/portfolio-api/internal/apperror"
	"github.com/sakif/portfolio-api/internal/model"
	"github.com/sakif/portfolio-api/internal/repository"
)

// compile-time check that *DB implements repository.TokenRepository
var _ repository.TokenRepository = (*DB)(nil)

func (db *DB) GetToken(ctx context.Context, sessionKey string) (*model.TokenRecord, error) {
	var (
		rec       model.TokenRecord
		expiresMs int64
	)
	err := db.conn.QueryRowContext(ctx,
		`SELECT access_token, refresh_token, expires_at
		 FROM spotify_tokens WHERE session_key = ?`, sessionKey,
	).Scan(&rec.AccessToken, &rec.RefreshToken, &expiresMs)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NotFound("token", sessionKey)
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: getting token for %s: %w", sessionKey, err)
	}

	rec.ExpiresAt = time.UnixMilli(expiresMs).UTC()
	return &rec, nil
}

// SaveToken upserts on session_key. The row id is generated once on first
// insert and kept across updates.
func (db *DB) SaveToken(ctx context.Context, sessionKey string, rec *model.TokenRecord) error {
	now := time.Now().UTC()
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO spotify_tokens (id, session_key, access_token, refresh_token, expires_at, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(session_key) DO UPDATE SET
			access_token  = excluded.access_token,
			refresh_token = excluded.refresh_token,
			expires_at    = excluded.expires_at,
			updated_at    = excluded.updated_at`,
		xid.New().String(),
		sessionKey,
		rec.AccessToken,
		rec.RefreshToken,
		rec.ExpiresAt.UnixMilli(),
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("sqlite: saving token for %s: %w", sessionKey, err)
	}
	return nil
}
