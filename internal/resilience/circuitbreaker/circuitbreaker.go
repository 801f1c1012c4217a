// Package circuitbreaker provides per-source circuit breaker state for the
// feed fetch and LLM call paths. It uses github.com/sony/gobreaker to
// prevent cascading failures against sources or providers that are down.
package circuitbreaker

import (
	"log/slog"
	"sync"
	"time"

	"github.com/sony/gobreaker"
)

// Config holds the configuration for a single circuit breaker.
type Config struct {
	// Name is the circuit breaker name for logging and metrics.
	Name string

	// MaxRequests is the number of probe requests allowed in half-open
	// state before deciding whether to close or re-open.
	MaxRequests uint32

	// Interval is the cyclic period of the closed state to clear counts.
	Interval time.Duration

	// Timeout is how long to wait in open state before probing again.
	Timeout time.Duration

	// ConsecutiveFailures is the number of back-to-back failures that
	// trips the breaker from closed to open.
	ConsecutiveFailures uint32
}

// DefaultConfig returns the standard 5-consecutive-failure, 5-minute-
// cooldown, single-probe breaker used across the pipeline.
func DefaultConfig(name string) Config {
	return Config{
		Name:                name,
		MaxRequests:         1,
		Interval:            0,
		Timeout:             5 * time.Minute,
		ConsecutiveFailures: 5,
	}
}

// CircuitBreaker wraps gobreaker.CircuitBreaker with the fixed
// consecutive-failure trip rule used throughout the pipeline.
type CircuitBreaker struct {
	breaker *gobreaker.CircuitBreaker
	name    string
}

// New creates a circuit breaker from cfg.
func New(cfg Config) *CircuitBreaker {
	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.ConsecutiveFailures
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			slog.Warn("circuit breaker state changed",
				slog.String("circuit", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()))
		},
	}

	return &CircuitBreaker{
		breaker: gobreaker.NewCircuitBreaker(settings),
		name:    cfg.Name,
	}
}

// Execute runs fn through the breaker. If the circuit is open, it
// returns gobreaker.ErrOpenState immediately without invoking fn.
func (cb *CircuitBreaker) Execute(fn func() (interface{}, error)) (interface{}, error) {
	return cb.breaker.Execute(fn)
}

// State returns the current breaker state.
func (cb *CircuitBreaker) State() gobreaker.State {
	return cb.breaker.State()
}

// Name returns the breaker's name.
func (cb *CircuitBreaker) Name() string {
	return cb.name
}

// IsOpen reports whether the breaker is currently open.
func (cb *CircuitBreaker) IsOpen() bool {
	return cb.breaker.State() == gobreaker.StateOpen
}

// Registry holds one CircuitBreaker per source id, created lazily on
// first use so sources discovered at runtime never need pre-registration.
type Registry struct {
	mu       sync.Mutex
	breakers map[string]*CircuitBreaker
}

// NewRegistry creates an empty per-source breaker registry.
func NewRegistry() *Registry {
	return &Registry{breakers: make(map[string]*CircuitBreaker)}
}

// Get returns the breaker for sourceID, creating it with DefaultConfig
// on first access.
func (r *Registry) Get(sourceID string) *CircuitBreaker {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cb, ok := r.breakers[sourceID]; ok {
		return cb
	}
	cb := New(DefaultConfig(sourceID))
	r.breakers[sourceID] = cb
	return cb
}

// Reset discards the breaker for sourceID. The next Get call creates a
// fresh instance in the closed state, so a held-open breaker or an
// accumulated consecutive-failure count cannot outlive an operator reset.
func (r *Registry) Reset(sourceID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.breakers, sourceID)
}

// State returns the current breaker state for sourceID, or
// gobreaker.StateClosed if no breaker has been created yet (a source
// that has never failed is, by definition, closed).
func (r *Registry) State(sourceID string) gobreaker.State {
	r.mu.Lock()
	defer r.mu.Unlock()
	cb, ok := r.breakers[sourceID]
	if !ok {
		return gobreaker.StateClosed
	}
	return cb.State()
}

// Snapshot returns the current state of every breaker the registry has
// created, keyed by source id — used by the status control operation.
func (r *Registry) Snapshot() map[string]gobreaker.State {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]gobreaker.State, len(r.breakers))
	for id, cb := range r.breakers {
		out[id] = cb.State()
	}
	return out
}
