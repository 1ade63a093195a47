// Package memory is the process-local TokenRepository. Records disappear when
// the process exits.
package memory

import (
	"context"
	"sync"

	"github.com/sakif/portfolio-api/internal/apperror"
	"github.com/sakif/portfolio-api/internal/model"
	"github.com/sakif/portfolio-api/internal/repository"
)

var _ repository.TokenRepository = (*TokenStore)(nil)

type TokenStore struct {
	mu      sync.RWMutex
	records map[string]model.TokenRecord
}

func NewTokenStore() *TokenStore {
	return &TokenStore{records: make(map[string]model.TokenRecord)}
}

func (s *TokenStore) GetToken(_ context.Context, sessionKey string) (*model.TokenRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[sessionKey]
	if !ok {
		return nil, apperror.NotFound("token", sessionKey)
	}
	// Return a copy so callers can't mutate the stored value.
	return &rec, nil
}

func (s *TokenStore) SaveToken(_ context.Context, sessionKey string, rec *model.TokenRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records[sessionKey] = *rec
	return nil
}
