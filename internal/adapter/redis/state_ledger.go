package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/deveex11-sketch/postdominator/internal/domain"
	goredis "github.com/redis/go-redis/v9"
)

var _ domain.StateLedger = (*StateLedger)(nil)

// StateLedger remembers consumed OAuth state tokens across replicas.
type StateLedger struct {
	rdb *goredis.Client
}

func NewStateLedger(rdb *goredis.Client) *StateLedger {
	return &StateLedger{rdb: rdb}
}

// Consume returns true exactly once per token within ttl.
func (l *StateLedger) Consume(ctx context.Context, token string, ttl time.Duration) (bool, error) {
	args := goredis.SetArgs{TTL: ttl, Mode: "NX"}
	_, err := l.rdb.SetArgs(ctx, stateKey(token), "1", args).Result()
	if errors.Is(err, goredis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to record oauth state: %w", err)
	}
	return true, nil
}

func stateKey(token string) string {
	return "oauth:state:" + token
}
