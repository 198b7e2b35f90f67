package reliability

import (
	"sync"
	"time"
)

// BreakerState is the externally visible state of a CircuitBreaker
type BreakerState string

const (
	BreakerClosed   BreakerState = "closed"
	BreakerOpen     BreakerState = "open"
	BreakerHalfOpen BreakerState = "half-open"
)

const (
	DefaultFailThreshold = 4
	DefaultOpenDuration  = 120 * time.Second
)

// BreakerSnapshot is a consistent point-in-time view of a breaker
type BreakerSnapshot struct {
	Name      string       `json:"name"`
	State     BreakerState `json:"state"`
	Failures  int          `json:"failures"`
	OpenUntil *time.Time   `json:"open_until,omitempty"`
}

// CircuitBreaker gates calls to one dependency on its consecutive-failure count.
//
// Reaching the threshold opens the circuit for openFor. Once that elapses the
// breaker is half-open: calls are allowed again, but the counter is kept, so a
// single further failure reopens it. Any success resets the counter and closes it.
type CircuitBreaker struct {
	mu        sync.Mutex
	name      string
	threshold int
	openFor   time.Duration
	failures  int
	openUntil time.Time
	now       func() time.Time
}

// NewCircuitBreaker creates a breaker. Non-positive settings fall back to the defaults.
func NewCircuitBreaker(name string, threshold int, openFor time.Duration) *CircuitBreaker {
	if threshold < 1 {
		threshold = DefaultFailThreshold
	}
	if openFor <= 0 {
		openFor = DefaultOpenDuration
	}
	return &CircuitBreaker{
		name:      name,
		threshold: threshold,
		openFor:   openFor,
		now:       time.Now,
	}
}

// SetClock replaces the time source (tests)
func (cb *CircuitBreaker) SetClock(now func() time.Time) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.now = now
}

// Name returns the dependency the breaker guards
func (cb *CircuitBreaker) Name() string {
	return cb.name
}

// Allow reports whether a call may be attempted now
func (cb *CircuitBreaker) Allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return !cb.now().Before(cb.openUntil)
}

// RecordFailure counts one failed call and opens the circuit at the threshold
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures++
	if cb.failures >= cb.threshold {
		cb.openUntil = cb.now().Add(cb.openFor)
	}
}

// RecordSuccess resets the counter and closes the circuit
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures = 0
	cb.openUntil = time.Time{}
}

// Snapshot returns the current state
func (cb *CircuitBreaker) Snapshot() BreakerSnapshot {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	snap := BreakerSnapshot{
		Name:     cb.name,
		State:    BreakerClosed,
		Failures: cb.failures,
	}

	switch {
	case cb.now().Before(cb.openUntil):
		until := cb.openUntil
		snap.State = BreakerOpen
		snap.OpenUntil = &until
	case cb.failures >= cb.threshold:
		snap.State = BreakerHalfOpen
	}
	return snap
}
