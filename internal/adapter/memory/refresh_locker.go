package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/deveex11-sketch/postdominator/internal/domain"
)

var _ domain.RefreshLocker = (*RefreshLocker)(nil)

// RefreshLocker hands out one in-process lock per key. Entries are dropped once no
// caller holds or waits for them.
type RefreshLocker struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	ch      chan struct{}
	waiters int
}

func NewRefreshLocker() *RefreshLocker {
	return &RefreshLocker{locks: make(map[string]*keyLock)}
}

func (l *RefreshLocker) Lock(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	kl, ok := l.locks[key]
	if !ok {
		kl = &keyLock{ch: make(chan struct{}, 1)}
		l.locks[key] = kl
	}
	kl.waiters++
	l.mu.Unlock()

	select {
	case kl.ch <- struct{}{}:
	case <-ctx.Done():
		l.release(key, kl, false)
		return nil, fmt.Errorf("failed to acquire refresh lock for %s: %w", key, ctx.Err())
	}

	var once sync.Once
	return func() {
		once.Do(func() { l.release(key, kl, true) })
	}, nil
}

func (l *RefreshLocker) release(key string, kl *keyLock, held bool) {
	if held {
		<-kl.ch
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	kl.waiters--
	if kl.waiters == 0 {
		delete(l.locks, key)
	}
}
