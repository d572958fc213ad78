package resilience

import "time"

// Policy captures the full resilience contract for one named dependency:
// bounded retries, a per-attempt timeout and the circuit breaker tuning.
// Policies are resolved once at startup; call sites never merge defaults.
type Policy struct {
	// MaxAttempts bounds sequential attempts per logical call, including the first.
	MaxAttempts int
	// RetryBackoff is the base delay between attempts; it grows exponentially.
	RetryBackoff time.Duration
	// Timeout bounds a single attempt.
	Timeout time.Duration
	// FailureRateThreshold is the failure ratio (0..1) that opens the circuit
	// once MinimumCalls have been observed within the window.
	FailureRateThreshold float64
	// SlidingWindow is the period over which call outcomes accumulate before
	// the counters reset.
	SlidingWindow time.Duration
	// MinimumCalls is the number of recorded calls required before the
	// failure rate is evaluated.
	MinimumCalls uint32
	// WaitDurationOpen is how long the circuit stays open before allowing
	// trial calls.
	WaitDurationOpen time.Duration
	// HalfOpenMaxCalls is the number of trial calls permitted while half-open.
	HalfOpenMaxCalls uint32
}

// DefaultPolicy mirrors the default gateway breaker tuning.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:          3,
		RetryBackoff:         200 * time.Millisecond,
		Timeout:              10 * time.Second,
		FailureRateThreshold: 0.50,
		SlidingWindow:        time.Minute,
		MinimumCalls:         5,
		WaitDurationOpen:     30 * time.Second,
		HalfOpenMaxCalls:     1,
	}
}

func (p Policy) withDefaults() Policy {
	def := DefaultPolicy()
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = def.MaxAttempts
	}
	if p.RetryBackoff <= 0 {
		p.RetryBackoff = def.RetryBackoff
	}
	if p.Timeout <= 0 {
		p.Timeout = def.Timeout
	}
	if p.FailureRateThreshold <= 0 {
		p.FailureRateThreshold = def.FailureRateThreshold
	}
	if p.SlidingWindow <= 0 {
		p.SlidingWindow = def.SlidingWindow
	}
	if p.MinimumCalls == 0 {
		p.MinimumCalls = def.MinimumCalls
	}
	if p.WaitDurationOpen <= 0 {
		p.WaitDurationOpen = def.WaitDurationOpen
	}
	if p.HalfOpenMaxCalls == 0 {
		p.HalfOpenMaxCalls = def.HalfOpenMaxCalls
	}
	return p
}
