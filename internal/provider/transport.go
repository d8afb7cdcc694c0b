package provider

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/deveex11-sketch/postdominator/internal/domain"
	"github.com/failsafe-go/failsafe-go/circuitbreaker"
)

// userAgentTransport stamps every outgoing request. Reddit rejects requests without one.
type userAgentTransport struct {
	userAgent string
	next      http.RoundTripper
}

func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("User-Agent", t.userAgent)
	return t.next.RoundTrip(req)
}

// BreakerListener is told about circuit breaker state changes per platform.
type BreakerListener func(platform domain.Platform, state string)

// breakerTransport fails fast while a platform keeps answering with transport errors or
// 5xx responses. It never retries.
type breakerTransport struct {
	platform domain.Platform
	cb       circuitbreaker.CircuitBreaker[any]
	next     http.RoundTripper
}

func newBreakerTransport(platform domain.Platform, next http.RoundTripper, listener BreakerListener) *breakerTransport {
	cb := circuitbreaker.NewBuilder[any]().
		WithFailureRateThreshold(0.6, 5, 30*time.Second).
		WithDelay(30 * time.Second).
		WithSuccessThreshold(1).
		OnStateChanged(func(e circuitbreaker.StateChangedEvent) {
			slog.Warn("Circuit breaker state changed",
				"component", "provider",
				"platform", platform,
				"from", e.OldState.String(),
				"to", e.NewState.String(),
			)
			if listener != nil {
				listener(platform, e.NewState.String())
			}
		}).
		Build()

	return &breakerTransport{platform: platform, cb: cb, next: next}
}

func (t *breakerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if !t.cb.TryAcquirePermit() {
		return nil, fmt.Errorf("%s circuit breaker open: %w", t.platform, circuitbreaker.ErrOpen)
	}

	resp, err := t.next.RoundTrip(req)
	switch {
	case err != nil:
		t.cb.RecordError(err)
	case resp.StatusCode >= http.StatusInternalServerError:
		t.cb.RecordError(fmt.Errorf("status %d", resp.StatusCode))
	default:
		t.cb.RecordSuccess()
	}
	return resp, err
}
