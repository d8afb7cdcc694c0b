package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/deveex11-sketch/postdominator/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var _ domain.ConnectionRepository = (*ConnectionRepo)(nil)

const connectionColumns = `id, user_id, platform, access_token, refresh_token, token_expires_at,
	platform_user_id, platform_username, platform_profile_image, scopes,
	is_active, connected_at, last_refreshed_at`

const upsertActiveSQL = `
INSERT INTO social_connections (
	id, user_id, platform, access_token, refresh_token, token_expires_at,
	platform_user_id, platform_username, platform_profile_image, scopes,
	is_active, connected_at, last_refreshed_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, TRUE, $11, $11)
ON CONFLICT (user_id, platform) WHERE is_active DO UPDATE SET
	access_token           = EXCLUDED.access_token,
	refresh_token          = EXCLUDED.refresh_token,
	token_expires_at       = EXCLUDED.token_expires_at,
	platform_user_id       = EXCLUDED.platform_user_id,
	platform_username      = EXCLUDED.platform_username,
	platform_profile_image = EXCLUDED.platform_profile_image,
	scopes                 = EXCLUDED.scopes,
	last_refreshed_at      = EXCLUDED.last_refreshed_at
RETURNING ` + connectionColumns

const getActiveSQL = `SELECT ` + connectionColumns + `
FROM social_connections
WHERE user_id = $1 AND platform = $2 AND is_active`

const listActiveSQL = `SELECT ` + connectionColumns + `
FROM social_connections
WHERE user_id = $1 AND is_active
ORDER BY connected_at`

const updateTokensSQL = `
UPDATE social_connections SET
	access_token      = $3,
	refresh_token     = COALESCE($4, refresh_token),
	token_expires_at  = COALESCE($5, token_expires_at),
	last_refreshed_at = $6
WHERE user_id = $1 AND platform = $2 AND is_active
RETURNING ` + connectionColumns

const deactivateSQL = `
UPDATE social_connections SET is_active = FALSE
WHERE user_id = $1 AND platform = $2 AND is_active`

const deleteSQL = `
DELETE FROM social_connections
WHERE user_id = $1 AND platform = $2 AND is_active`

type ConnectionRepo struct {
	pool *pgxpool.Pool
}

func NewConnectionRepo(pool *pgxpool.Pool) *ConnectionRepo {
	return &ConnectionRepo{pool: pool}
}

func scanConnection(row pgx.Row) (*domain.Connection, error) {
	var (
		c            domain.Connection
		platform     string
		refreshToken *string
		expiresAt    *time.Time
	)
	err := row.Scan(
		&c.ID, &c.UserID, &platform, &c.AccessToken, &refreshToken, &expiresAt,
		&c.PlatformUserID, &c.PlatformUsername, &c.PlatformProfileImage, &c.Scopes,
		&c.IsActive, &c.ConnectedAt, &c.LastRefreshedAt,
	)
	if err != nil {
		return nil, err
	}

	c.Platform = domain.Platform(platform)
	if refreshToken != nil {
		c.RefreshToken = *refreshToken
	}
	if expiresAt != nil {
		t := expiresAt.UTC()
		c.TokenExpiresAt = &t
	}
	c.ConnectedAt = c.ConnectedAt.UTC()
	c.LastRefreshedAt = c.LastRefreshedAt.UTC()
	return &c, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func (r *ConnectionRepo) UpsertActive(ctx context.Context, in domain.ConnectionInput) (*domain.Connection, error) {
	scopes := in.Scopes
	if scopes == nil {
		scopes = []string{}
	}

	row := r.pool.QueryRow(ctx, upsertActiveSQL,
		uuid.New(), in.UserID, string(in.Platform), in.AccessToken, nullable(in.RefreshToken), in.TokenExpiresAt,
		in.PlatformUserID, in.PlatformUsername, in.PlatformProfileImage, scopes,
		in.Now,
	)
	conn, err := scanConnection(row)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert connection: %w", err)
	}
	return conn, nil
}

func (r *ConnectionRepo) GetActive(ctx context.Context, userID string, platform domain.Platform) (*domain.Connection, error) {
	conn, err := scanConnection(r.pool.QueryRow(ctx, getActiveSQL, userID, string(platform)))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrConnectionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get connection: %w", err)
	}
	return conn, nil
}

func (r *ConnectionRepo) ListActive(ctx context.Context, userID string) ([]*domain.Connection, error) {
	rows, err := r.pool.Query(ctx, listActiveSQL, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list connections: %w", err)
	}
	defer rows.Close()

	var out []*domain.Connection
	for rows.Next() {
		conn, err := scanConnection(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan connection: %w", err)
		}
		out = append(out, conn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list connections: %w", err)
	}
	return out, nil
}

func (r *ConnectionRepo) UpdateTokens(ctx context.Context, userID string, platform domain.Platform, u domain.TokenUpdate) (*domain.Connection, error) {
	row := r.pool.QueryRow(ctx, updateTokensSQL,
		userID, string(platform), u.AccessToken, nullable(u.RefreshToken), u.ExpiresAt, u.RefreshedAt,
	)
	conn, err := scanConnection(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrConnectionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update tokens: %w", err)
	}
	return conn, nil
}

func (r *ConnectionRepo) Deactivate(ctx context.Context, userID string, platform domain.Platform) (bool, error) {
	tag, err := r.pool.Exec(ctx, deactivateSQL, userID, string(platform))
	if err != nil {
		return false, fmt.Errorf("failed to deactivate connection: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *ConnectionRepo) Delete(ctx context.Context, userID string, platform domain.Platform) (bool, error) {
	tag, err := r.pool.Exec(ctx, deleteSQL, userID, string(platform))
	if err != nil {
		return false, fmt.Errorf("failed to delete connection: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}
