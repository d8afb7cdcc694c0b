package redis

import (
	"context"
	"errors"
	"net"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// CommandObserver receives the duration and outcome of every Redis command.
type CommandObserver interface {
	ObserveCommand(command string, d time.Duration, err error)
}

// MetricsHook implements goredis.Hook and reports each command to a CommandObserver.
// goredis.Nil is a cache miss, not a failure.
type MetricsHook struct {
	observer CommandObserver
}

var _ goredis.Hook = (*MetricsHook)(nil)

func NewMetricsHook(observer CommandObserver) *MetricsHook {
	return &MetricsHook{observer: observer}
}

func (h *MetricsHook) DialHook(next goredis.DialHook) goredis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		start := time.Now()
		conn, err := next(ctx, network, addr)
		h.observer.ObserveCommand("dial", time.Since(start), err)
		return conn, err
	}
}

func (h *MetricsHook) ProcessHook(next goredis.ProcessHook) goredis.ProcessHook {
	return func(ctx context.Context, cmd goredis.Cmder) error {
		start := time.Now()
		err := next(ctx, cmd)
		h.observer.ObserveCommand(cmd.Name(), time.Since(start), ignoreNil(err))
		return err
	}
}

func (h *MetricsHook) ProcessPipelineHook(next goredis.ProcessPipelineHook) goredis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []goredis.Cmder) error {
		start := time.Now()
		err := next(ctx, cmds)
		h.observer.ObserveCommand("pipeline", time.Since(start), ignoreNil(err))
		return err
	}
}

func ignoreNil(err error) error {
	if errors.Is(err, goredis.Nil) {
		return nil
	}
	return err
}
