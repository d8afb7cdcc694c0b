package memory

import (
	"context"
	"sync"
	"time"

	"github.com/deveex11-sketch/postdominator/internal/domain"
	"github.com/jonboulle/clockwork"
)

var _ domain.StateLedger = (*StateLedger)(nil)

// StateLedger records consumed state tokens until they expire.
// Uses lazy expiration, pruning expired tokens on each Consume.
type StateLedger struct {
	clock clockwork.Clock

	mu       sync.Mutex
	consumed map[string]time.Time
}

func NewStateLedger(clock clockwork.Clock) *StateLedger {
	return &StateLedger{
		clock:    clock,
		consumed: make(map[string]time.Time),
	}
}

func (l *StateLedger) Consume(_ context.Context, token string, ttl time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()
	for t, expiresAt := range l.consumed {
		if !now.Before(expiresAt) {
			delete(l.consumed, t)
		}
	}

	if _, seen := l.consumed[token]; seen {
		return false, nil
	}
	l.consumed[token] = now.Add(ttl)
	return true, nil
}
