package resilience

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/sony/gobreaker"
)

// ErrUnavailable signals that a dependency could not serve the call: the
// circuit was open or the retry budget was exhausted.
var ErrUnavailable = errors.New("dependency unavailable")

// State reports a breaker state in wire-friendly form.
type State string

const (
	StateClosed   State = "closed"
	StateOpen     State = "open"
	StateHalfOpen State = "half_open"
	StateUnknown  State = "unknown"
)

// Registry owns one circuit breaker per dependency name. Breakers are
// registered at startup and handed out as Guards; there is no ambient
// singleton, so tests construct isolated registries.
type Registry struct {
	mu     sync.RWMutex
	guards map[string]*Guard
	logger *slog.Logger
}

// NewRegistry builds an empty registry.
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{guards: make(map[string]*Guard), logger: logger}
}

// Register creates the breaker for a dependency. Registering the same name
// twice replaces the previous breaker, which resets its window.
func (r *Registry) Register(name string, policy Policy) *Guard {
	policy = policy.withDefaults()

	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: policy.HalfOpenMaxCalls,
		Interval:    policy.SlidingWindow,
		Timeout:     policy.WaitDurationOpen,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < policy.MinimumCalls {
				return false
			}
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			return ratio >= policy.FailureRateThreshold
		},
		IsSuccessful: func(err error) bool {
			// Permanent errors describe a bad request, not dependency
			// health, and must not push the circuit towards open.
			return err == nil || IsPermanent(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			r.logger.Warn("circuit state change",
				"dependency", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
	}

	guard := &Guard{
		name:    name,
		policy:  policy,
		breaker: gobreaker.NewCircuitBreaker(settings),
		logger:  r.logger,
	}

	r.mu.Lock()
	r.guards[name] = guard
	r.mu.Unlock()

	r.logger.Info("registered circuit breaker", "dependency", name)
	return guard
}

// Guard returns the handle for a registered dependency.
func (r *Registry) Guard(name string) (*Guard, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	guard, ok := r.guards[name]
	if !ok {
		return nil, fmt.Errorf("no circuit breaker registered for %q", name)
	}
	return guard, nil
}

// States reports the current breaker state per dependency, for health output.
func (r *Registry) States() map[string]State {
	r.mu.RLock()
	defer r.mu.RUnlock()
	states := make(map[string]State, len(r.guards))
	for name, guard := range r.guards {
		states[name] = guard.State()
	}
	return states
}

// Guard is the per-dependency handle callers execute remote operations through.
type Guard struct {
	name    string
	policy  Policy
	breaker *gobreaker.CircuitBreaker
	logger  *slog.Logger
}

// Name returns the dependency name the guard protects.
func (g *Guard) Name() string {
	return g.name
}

// State reports the current circuit state.
func (g *Guard) State() State {
	switch g.breaker.State() {
	case gobreaker.StateClosed:
		return StateClosed
	case gobreaker.StateOpen:
		return StateOpen
	case gobreaker.StateHalfOpen:
		return StateHalfOpen
	default:
		return StateUnknown
	}
}

// Run records a single call outcome in the breaker window without retry or
// timeout handling. The admission layer uses it to guard route forwarding.
func (g *Guard) Run(fn func() error) error {
	_, err := g.breaker.Execute(func() (any, error) {
		return nil, fn()
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%s: %w", g.name, ErrUnavailable)
	}
	return err
}

func isCircuitRejection(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}
