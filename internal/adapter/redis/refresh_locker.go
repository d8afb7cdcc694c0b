package redis

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/deveex11-sketch/postdominator/internal/domain"
	goredis "github.com/redis/go-redis/v9"
)

var _ domain.RefreshLocker = (*RefreshLocker)(nil)

const (
	defaultLockTTL      = 30 * time.Second
	defaultPollInterval = 50 * time.Millisecond
	unlockTimeout       = 2 * time.Second
)

// Deletes the lock only if it still carries our token, so an expired holder can
// never release a lock that someone else acquired since.
var releaseScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RefreshLocker is a lease-based mutex per (user, platform) shared by all replicas.
// The lease expires after ttl so a crashed holder cannot block refreshes forever.
type RefreshLocker struct {
	rdb          *goredis.Client
	ttl          time.Duration
	pollInterval time.Duration
}

func NewRefreshLocker(rdb *goredis.Client) *RefreshLocker {
	return &RefreshLocker{
		rdb:          rdb,
		ttl:          defaultLockTTL,
		pollInterval: defaultPollInterval,
	}
}

func (l *RefreshLocker) Lock(ctx context.Context, key string) (func(), error) {
	token, err := lockToken()
	if err != nil {
		return nil, err
	}
	rk := lockKey(key)

	for {
		args := goredis.SetArgs{TTL: l.ttl, Mode: "NX"}
		_, err := l.rdb.SetArgs(ctx, rk, token, args).Result()
		if err == nil {
			return func() { l.release(rk, token) }, nil
		}
		if !errors.Is(err, goredis.Nil) {
			return nil, fmt.Errorf("failed to acquire refresh lock: %w", err)
		}

		select {
		case <-time.After(l.pollInterval):
		case <-ctx.Done():
			return nil, fmt.Errorf("failed to acquire refresh lock for %s: %w", key, ctx.Err())
		}
	}
}

func (l *RefreshLocker) release(rk, token string) {
	ctx, cancel := context.WithTimeout(context.Background(), unlockTimeout)
	defer cancel()

	if err := releaseScript.Run(ctx, l.rdb, []string{rk}, token).Err(); err != nil {
		slog.Error("failed to release refresh lock", "key", rk, "error", err)
	}
}

func lockKey(key string) string {
	return "oauth:refresh-lock:" + key
}

func lockToken() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate lock token: %w", err)
	}
	return hex.EncodeToString(b), nil
}
