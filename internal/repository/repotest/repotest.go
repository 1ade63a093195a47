// Package repotest holds behaviour tests shared by every TokenRepository
// backend. Each backend's _test.go calls RunTokenRepository with a factory.
package repotest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/portfolio-api/internal/apperror"
	"github.com/sakif/portfolio-api/internal/model"
	"github.com/sakif/portfolio-api/internal/repository"
)

// Factory returns an empty repository. It is called once per subtest.
type Factory func(t *testing.T) repository.TokenRepository

// RunTokenRepository runs the shared contract against a backend.
func RunTokenRepository(t *testing.T, newRepo Factory) {
	// Millisecond precision is the coarsest any backend stores.
	expires := time.Date(2025, 3, 1, 12, 30, 0, 0, time.UTC)

	t.Run("missing key is NotFound", func(t *testing.T) {
		repo := newRepo(t)

		_, err := repo.GetToken(context.Background(), model.DefaultSessionKey)
		require.Error(t, err)
		assert.True(t, errors.Is(err, apperror.ErrNotFound), "want ErrNotFound, got %v", err)
	})

	t.Run("save then get round-trips", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		in := &model.TokenRecord{AccessToken: "at", RefreshToken: "rt", ExpiresAt: expires}
		require.NoError(t, repo.SaveToken(ctx, model.DefaultSessionKey, in))

		got, err := repo.GetToken(ctx, model.DefaultSessionKey)
		require.NoError(t, err)
		assert.Equal(t, "at", got.AccessToken)
		assert.Equal(t, "rt", got.RefreshToken)
		assert.True(t, expires.Equal(got.ExpiresAt), "ExpiresAt = %v, want %v", got.ExpiresAt, expires)
	})

	t.Run("save replaces existing record", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		require.NoError(t, repo.SaveToken(ctx, "k", &model.TokenRecord{AccessToken: "old", RefreshToken: "rt", ExpiresAt: expires}))
		require.NoError(t, repo.SaveToken(ctx, "k", &model.TokenRecord{AccessToken: "new", RefreshToken: "rt2", ExpiresAt: expires.Add(time.Hour)}))

		got, err := repo.GetToken(ctx, "k")
		require.NoError(t, err)
		assert.Equal(t, "new", got.AccessToken)
		assert.Equal(t, "rt2", got.RefreshToken)
		assert.True(t, expires.Add(time.Hour).Equal(got.ExpiresAt))
	})

	t.Run("keys are independent", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		require.NoError(t, repo.SaveToken(ctx, "a", &model.TokenRecord{AccessToken: "A", ExpiresAt: expires}))

		_, err := repo.GetToken(ctx, "b")
		assert.True(t, errors.Is(err, apperror.ErrNotFound))
	})

	t.Run("returned record is a copy", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		in := &model.TokenRecord{AccessToken: "at", ExpiresAt: expires}
		require.NoError(t, repo.SaveToken(ctx, "k", in))
		in.AccessToken = "mutated after save"

		got, err := repo.GetToken(ctx, "k")
		require.NoError(t, err)
		got.AccessToken = "mutated after get"

		again, err := repo.GetToken(ctx, "k")
		require.NoError(t, err)
		assert.Equal(t, "at", again.AccessToken)
	})

	t.Run("concurrent saves and gets", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		require.NoError(t, repo.SaveToken(ctx, "k", &model.TokenRecord{AccessToken: "seed", ExpiresAt: expires}))

		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(2)
			go func() {
				defer wg.Done()
				assert.NoError(t, repo.SaveToken(ctx, "k", &model.TokenRecord{AccessToken: "x", ExpiresAt: expires}))
			}()
			go func() {
				defer wg.Done()
				_, err := repo.GetToken(ctx, "k")
				assert.NoError(t, err)
			}()
		}
		wg.Wait()
	})
}
