package sqlite

import (
	"context"
	"testing"

	"github.com/rpggio/diyassist/internal/repository"
	"github.com/rpggio/diyassist/internal/storage"
	"github.com/stretchr/testify/require"
)

func TestAPIKeyRepository_ResolveTenant(t *testing.T) {
	db := NewTestDB(t)
	repo := NewAPIKeyRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, "tenant1", "secret-token", "laptop"))

	tenantID, err := repo.ResolveTenant(ctx, "secret-token")
	require.NoError(t, err)
	require.Equal(t, "tenant1", tenantID)

	_, err = repo.ResolveTenant(ctx, "wrong-token")
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestAPIKeyRepository_StoresOnlyHash(t *testing.T) {
	db := NewTestDB(t)
	repo := NewAPIKeyRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, "tenant1", "secret-token", ""))

	var stored string
	require.NoError(t, db.QueryRowContext(ctx, `SELECT key_hash FROM api_keys`).Scan(&stored))
	require.NotEqual(t, "secret-token", stored)
	require.Equal(t, storage.HashToken("secret-token"), stored)

	err := repo.Create(ctx, "tenant2", "secret-token", "")
	require.ErrorIs(t, err, repository.ErrDuplicate)
}
