package postgres

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/deveex11-sketch/postdominator/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func connInput(userID string, platform domain.Platform, access string, now time.Time) domain.ConnectionInput {
	exp := now.Add(time.Hour)
	return domain.ConnectionInput{
		UserID:               userID,
		Platform:             platform,
		AccessToken:          access,
		RefreshToken:         "refresh-" + access,
		TokenExpiresAt:       &exp,
		PlatformUserID:       "remote-1",
		PlatformUsername:     "jdoe",
		PlatformProfileImage: "https://img/1",
		Scopes:               []string{"identity", "submit"},
		Now:                  now,
	}
}

func TestUpsertActive_Insert(t *testing.T) {
	repo := NewConnectionRepo(setupTestDB(t))
	ctx := context.Background()

	conn, err := repo.UpsertActive(ctx, connInput("user-1", domain.PlatformReddit, "a1", t0))
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, conn.ID)
	assert.Equal(t, "user-1", conn.UserID)
	assert.Equal(t, domain.PlatformReddit, conn.Platform)
	assert.Equal(t, "a1", conn.AccessToken)
	assert.Equal(t, "refresh-a1", conn.RefreshToken)
	require.NotNil(t, conn.TokenExpiresAt)
	assert.True(t, t0.Add(time.Hour).Equal(*conn.TokenExpiresAt))
	assert.Equal(t, []string{"identity", "submit"}, conn.Scopes)
	assert.True(t, conn.IsActive)
	assert.True(t, t0.Equal(conn.ConnectedAt))
	assert.True(t, t0.Equal(conn.LastRefreshedAt))
}

func TestUpsertActive_UpdatePreservesIdentity(t *testing.T) {
	repo := NewConnectionRepo(setupTestDB(t))
	ctx := context.Background()

	first, err := repo.UpsertActive(ctx, connInput("user-1", domain.PlatformReddit, "a1", t0))
	require.NoError(t, err)

	later := t0.Add(2 * time.Hour)
	in := connInput("user-1", domain.PlatformReddit, "a2", later)
	in.RefreshToken = ""
	in.TokenExpiresAt = nil
	second, err := repo.UpsertActive(ctx, in)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.True(t, t0.Equal(second.ConnectedAt))
	assert.True(t, later.Equal(second.LastRefreshedAt))
	assert.Equal(t, "a2", second.AccessToken)
	assert.Empty(t, second.RefreshToken)
	assert.Nil(t, second.TokenExpiresAt)

	list, err := repo.ListActive(ctx, "user-1")
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestUpsertActive_ConcurrentCallsKeepOneActiveRecord(t *testing.T) {
	pool := setupTestDB(t)
	repo := NewConnectionRepo(pool)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.UpsertActive(ctx, connInput("user-1", domain.PlatformTwitter, "a", t0))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	var count int
	require.NoError(t, pool.QueryRow(ctx, "SELECT count(*) FROM social_connections").Scan(&count))
	assert.Equal(t, 1, count)
}

func TestGetActive_NotFound(t *testing.T) {
	repo := NewConnectionRepo(setupTestDB(t))

	conn, err := repo.GetActive(context.Background(), "nobody", domain.PlatformReddit)
	assert.ErrorIs(t, err, domain.ErrConnectionNotFound)
	assert.Nil(t, conn)
}

func TestUpdateTokens_RetainsRefreshTokenWhenAbsent(t *testing.T) {
	repo := NewConnectionRepo(setupTestDB(t))
	ctx := context.Background()

	created, err := repo.UpsertActive(ctx, connInput("user-1", domain.PlatformReddit, "a1", t0))
	require.NoError(t, err)

	refreshedAt := t0.Add(time.Hour)
	updated, err := repo.UpdateTokens(ctx, "user-1", domain.PlatformReddit, domain.TokenUpdate{
		AccessToken: "a2",
		RefreshedAt: refreshedAt,
	})
	require.NoError(t, err)

	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, "a2", updated.AccessToken)
	assert.Equal(t, "refresh-a1", updated.RefreshToken)
	assert.True(t, created.TokenExpiresAt.Equal(*updated.TokenExpiresAt))
	assert.True(t, refreshedAt.Equal(updated.LastRefreshedAt))
}

func TestUpdateTokens_ReplacesRefreshTokenAndExpiry(t *testing.T) {
	repo := NewConnectionRepo(setupTestDB(t))
	ctx := context.Background()

	_, err := repo.UpsertActive(ctx, connInput("user-1", domain.PlatformReddit, "a1", t0))
	require.NoError(t, err)

	exp := t0.Add(5 * time.Hour)
	updated, err := repo.UpdateTokens(ctx, "user-1", domain.PlatformReddit, domain.TokenUpdate{
		AccessToken:  "a2",
		RefreshToken: "r2",
		ExpiresAt:    &exp,
		RefreshedAt:  t0.Add(time.Hour),
	})
	require.NoError(t, err)

	assert.Equal(t, "r2", updated.RefreshToken)
	assert.True(t, exp.Equal(*updated.TokenExpiresAt))
}

func TestUpdateTokens_NotConnected(t *testing.T) {
	repo := NewConnectionRepo(setupTestDB(t))

	_, err := repo.UpdateTokens(context.Background(), "user-1", domain.PlatformReddit, domain.TokenUpdate{AccessToken: "x", RefreshedAt: t0})
	assert.ErrorIs(t, err, domain.ErrConnectionNotFound)
}

func TestDeactivate_SoftDeletes(t *testing.T) {
	pool := setupTestDB(t)
	repo := NewConnectionRepo(pool)
	ctx := context.Background()

	_, err := repo.UpsertActive(ctx, connInput("user-1", domain.PlatformReddit, "a1", t0))
	require.NoError(t, err)

	ok, err := repo.Deactivate(ctx, "user-1", domain.PlatformReddit)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.Deactivate(ctx, "user-1", domain.PlatformReddit)
	require.NoError(t, err)
	assert.False(t, ok)

	list, err := repo.ListActive(ctx, "user-1")
	require.NoError(t, err)
	assert.Empty(t, list)

	var count int
	require.NoError(t, pool.QueryRow(ctx, "SELECT count(*) FROM social_connections WHERE NOT is_active").Scan(&count))
	assert.Equal(t, 1, count)

	// Reconnecting after a disconnect creates a fresh active record next to the inactive one.
	again, err := repo.UpsertActive(ctx, connInput("user-1", domain.PlatformReddit, "a2", t0.Add(time.Hour)))
	require.NoError(t, err)
	assert.True(t, t0.Add(time.Hour).Equal(again.ConnectedAt))
}

func TestDelete_HardDeletes(t *testing.T) {
	pool := setupTestDB(t)
	repo := NewConnectionRepo(pool)
	ctx := context.Background()

	_, err := repo.UpsertActive(ctx, connInput("user-1", domain.PlatformLinkedIn, "a1", t0))
	require.NoError(t, err)

	ok, err := repo.Delete(ctx, "user-1", domain.PlatformLinkedIn)
	require.NoError(t, err)
	assert.True(t, ok)

	var count int
	require.NoError(t, pool.QueryRow(ctx, "SELECT count(*) FROM social_connections").Scan(&count))
	assert.Zero(t, count)

	ok, err = repo.Delete(ctx, "user-1", domain.PlatformLinkedIn)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestListActive_OnlyOwnUser(t *testing.T) {
	repo := NewConnectionRepo(setupTestDB(t))
	ctx := context.Background()

	_, err := repo.UpsertActive(ctx, connInput("user-1", domain.PlatformReddit, "a", t0))
	require.NoError(t, err)
	_, err = repo.UpsertActive(ctx, connInput("user-1", domain.PlatformTwitter, "b", t0.Add(time.Minute)))
	require.NoError(t, err)
	_, err = repo.UpsertActive(ctx, connInput("user-2", domain.PlatformReddit, "c", t0))
	require.NoError(t, err)

	list, err := repo.ListActive(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, domain.PlatformReddit, list[0].Platform)
	assert.Equal(t, domain.PlatformTwitter, list[1].Platform)
}
