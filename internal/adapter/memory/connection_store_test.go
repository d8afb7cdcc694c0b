package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/deveex11-sketch/postdominator/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func input(userID string, platform domain.Platform, access string, now time.Time) domain.ConnectionInput {
	exp := now.Add(time.Hour)
	return domain.ConnectionInput{
		UserID:           userID,
		Platform:         platform,
		AccessToken:      access,
		RefreshToken:     "refresh-" + access,
		TokenExpiresAt:   &exp,
		PlatformUserID:   "remote-1",
		PlatformUsername: "jdoe",
		Scopes:           []string{"read", "write"},
		Now:              now,
	}
}

func TestUpsertActive_CreatesThenUpdatesInPlace(t *testing.T) {
	s := NewConnectionStore()
	ctx := context.Background()

	first, err := s.UpsertActive(ctx, input("user-1", domain.PlatformReddit, "a1", t0))
	require.NoError(t, err)
	assert.True(t, first.IsActive)
	assert.Equal(t, t0, first.ConnectedAt)
	assert.Equal(t, t0, first.LastRefreshedAt)

	later := t0.Add(time.Hour)
	second, err := s.UpsertActive(ctx, input("user-1", domain.PlatformReddit, "a2", later))
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, t0, second.ConnectedAt)
	assert.Equal(t, later, second.LastRefreshedAt)
	assert.Equal(t, "a2", second.AccessToken)

	all, err := s.ListActive(ctx, "user-1")
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestUpsertActive_AfterDeactivateCreatesNewRecord(t *testing.T) {
	s := NewConnectionStore()
	ctx := context.Background()

	first, err := s.UpsertActive(ctx, input("user-1", domain.PlatformTwitter, "a1", t0))
	require.NoError(t, err)

	ok, err := s.Deactivate(ctx, "user-1", domain.PlatformTwitter)
	require.NoError(t, err)
	require.True(t, ok)

	second, err := s.UpsertActive(ctx, input("user-1", domain.PlatformTwitter, "a2", t0.Add(time.Minute)))
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, t0.Add(time.Minute), second.ConnectedAt)
}

func TestGetActive_NotFound(t *testing.T) {
	s := NewConnectionStore()

	_, err := s.GetActive(context.Background(), "nobody", domain.PlatformReddit)
	assert.ErrorIs(t, err, domain.ErrConnectionNotFound)
}

func TestGetActive_ReturnsCopy(t *testing.T) {
	s := NewConnectionStore()
	ctx := context.Background()

	_, err := s.UpsertActive(ctx, input("user-1", domain.PlatformReddit, "a1", t0))
	require.NoError(t, err)

	got, err := s.GetActive(ctx, "user-1", domain.PlatformReddit)
	require.NoError(t, err)
	got.AccessToken = "mutated"
	got.Scopes[0] = "mutated"

	again, err := s.GetActive(ctx, "user-1", domain.PlatformReddit)
	require.NoError(t, err)
	assert.Equal(t, "a1", again.AccessToken)
	assert.Equal(t, "read", again.Scopes[0])
}

func TestListActive_FiltersUserAndInactive(t *testing.T) {
	s := NewConnectionStore()
	ctx := context.Background()

	for _, p := range []domain.Platform{domain.PlatformReddit, domain.PlatformTwitter, domain.PlatformLinkedIn} {
		_, err := s.UpsertActive(ctx, input("user-1", p, "a", t0))
		require.NoError(t, err)
	}
	_, err := s.UpsertActive(ctx, input("user-2", domain.PlatformReddit, "b", t0))
	require.NoError(t, err)

	_, err = s.Deactivate(ctx, "user-1", domain.PlatformTwitter)
	require.NoError(t, err)

	list, err := s.ListActive(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, list, 2)

	platforms := []domain.Platform{list[0].Platform, list[1].Platform}
	assert.ElementsMatch(t, []domain.Platform{domain.PlatformReddit, domain.PlatformLinkedIn}, platforms)
}

func TestUpdateTokens(t *testing.T) {
	ctx := context.Background()
	newExp := t0.Add(3 * time.Hour)

	tests := []struct {
		name        string
		update      domain.TokenUpdate
		wantRefresh string
		wantExpiry  time.Time
	}{
		{
			name:        "replaces everything",
			update:      domain.TokenUpdate{AccessToken: "new", RefreshToken: "new-refresh", ExpiresAt: &newExp, RefreshedAt: t0.Add(time.Hour)},
			wantRefresh: "new-refresh",
			wantExpiry:  newExp,
		},
		{
			name:        "keeps refresh token and expiry when absent",
			update:      domain.TokenUpdate{AccessToken: "new", RefreshedAt: t0.Add(time.Hour)},
			wantRefresh: "refresh-a1",
			wantExpiry:  t0.Add(time.Hour),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewConnectionStore()
			created, err := s.UpsertActive(ctx, input("user-1", domain.PlatformReddit, "a1", t0))
			require.NoError(t, err)

			updated, err := s.UpdateTokens(ctx, "user-1", domain.PlatformReddit, tt.update)
			require.NoError(t, err)

			assert.Equal(t, created.ID, updated.ID)
			assert.Equal(t, "new", updated.AccessToken)
			assert.Equal(t, tt.wantRefresh, updated.RefreshToken)
			require.NotNil(t, updated.TokenExpiresAt)
			assert.Equal(t, tt.wantExpiry, *updated.TokenExpiresAt)
			assert.Equal(t, t0.Add(time.Hour), updated.LastRefreshedAt)
			assert.Equal(t, t0, updated.ConnectedAt)
		})
	}
}

func TestUpdateTokens_NotConnected(t *testing.T) {
	s := NewConnectionStore()

	_, err := s.UpdateTokens(context.Background(), "user-1", domain.PlatformReddit, domain.TokenUpdate{AccessToken: "x"})
	assert.ErrorIs(t, err, domain.ErrConnectionNotFound)
}

func TestDeactivateAndDelete_ReportExistence(t *testing.T) {
	s := NewConnectionStore()
	ctx := context.Background()

	ok, err := s.Deactivate(ctx, "user-1", domain.PlatformReddit)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = s.Delete(ctx, "user-1", domain.PlatformReddit)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = s.UpsertActive(ctx, input("user-1", domain.PlatformReddit, "a1", t0))
	require.NoError(t, err)

	ok, err = s.Delete(ctx, "user-1", domain.PlatformReddit)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, s.records)

	_, err = s.GetActive(ctx, "user-1", domain.PlatformReddit)
	assert.ErrorIs(t, err, domain.ErrConnectionNotFound)
}

func TestUpsertActive_ConcurrentSingleActiveRecord(t *testing.T) {
	s := NewConnectionStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.UpsertActive(ctx, input("user-1", domain.PlatformReddit, "a", t0))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	list, err := s.ListActive(ctx, "user-1")
	require.NoError(t, err)
	assert.Len(t, list, 1)
	assert.Len(t, s.records, 1)
}
