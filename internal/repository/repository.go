// Package repository declares the storage contracts used by the service layer.
//
// Concrete backends live in sub-packages (memory, sqlite, redis) and are
// chosen at startup from TOKEN_STORE. Services depend on the interface only.
package repository

import (
	"context"

	"github.com/sakif/portfolio-api/internal/model"
)

// TokenRepository stores one OAuth token record per session key.
//
// GetToken returns an apperror NotFound when no record exists for the key.
// SaveToken inserts or replaces the record. Implementations must be safe for
// concurrent use and must not retain the caller's pointer.
type TokenRepository interface {
	GetToken(ctx context.Context, sessionKey string) (*model.TokenRecord, error)
	SaveToken(ctx context.Context, sessionKey string, rec *model.TokenRecord) error
}
