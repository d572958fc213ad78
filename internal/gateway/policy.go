package gateway

import (
	"time"

	"github.com/danjos91/my-bank-app/internal/resilience"
)

// AdmissionPolicy tunes the admission controls for one route group: how many
// requests a client may send per window, and how the route breaker trips.
type AdmissionPolicy struct {
	MaxRequests int
	Window      time.Duration

	FailureRateThreshold float64
	MinimumCalls         uint32
	WaitDurationOpen     time.Duration
	Timeout              time.Duration
}

func (p AdmissionPolicy) withDefaults() AdmissionPolicy {
	if p.MaxRequests <= 0 {
		p.MaxRequests = 100
	}
	if p.Window <= 0 {
		p.Window = time.Minute
	}
	return p
}

// BreakerPolicy maps the admission tuning onto a single-shot breaker policy.
// Route breakers never retry: MaxAttempts stays at 1.
func (p AdmissionPolicy) BreakerPolicy() resilience.Policy {
	return resilience.Policy{
		MaxAttempts:          1,
		Timeout:              p.Timeout,
		FailureRateThreshold: p.FailureRateThreshold,
		MinimumCalls:         p.MinimumCalls,
		WaitDurationOpen:     p.WaitDurationOpen,
	}
}
