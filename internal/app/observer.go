package app

import (
	"time"

	"github.com/deveex11-sketch/postdominator/internal/domain"
)

// Observer receives lifecycle events, typically to record metrics.
type Observer interface {
	FlowStarted(platform domain.Platform)
	CallbackHandled(platform domain.Platform, result string)
	TokenRefreshed(platform domain.Platform, result string)
	ProviderCall(platform domain.Platform, operation string, d time.Duration, err error)
}

type noopObserver struct{}

func (noopObserver) FlowStarted(domain.Platform)                                {}
func (noopObserver) CallbackHandled(domain.Platform, string)                    {}
func (noopObserver) TokenRefreshed(domain.Platform, string)                     {}
func (noopObserver) ProviderCall(domain.Platform, string, time.Duration, error) {}
