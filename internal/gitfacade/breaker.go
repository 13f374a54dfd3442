package gitfacade

import (
	"sync"
	"time"
)

// breakerState is the circuit breaker's current disposition.
type breakerState int

const (
	breakerClosed breakerState = iota
	breakerOpen
	breakerHalfOpen
)

// CircuitBreakerFailureThreshold is the number of failures within the
// rolling window that trips the breaker open.
const CircuitBreakerFailureThreshold = 5

// CircuitBreakerWindow is the rolling window failures are counted over.
const CircuitBreakerWindow = 60 * time.Second

// CircuitBreakerCooldown is how long the breaker stays open before allowing
// a single half-open probe.
const CircuitBreakerCooldown = 30 * time.Second

// CircuitBreaker gates GitHub GraphQL calls by observed failure rate:
// closed (calls pass through), open (calls are rejected until cooldown
// elapses), half-open (one probe call is allowed; success closes the
// breaker, failure reopens it).
type CircuitBreaker struct {
	mu sync.Mutex

	state       breakerState
	failures    []time.Time
	openedAt    time.Time
	probeInFlight bool
}

// NewCircuitBreaker returns a closed breaker.
func NewCircuitBreaker() *CircuitBreaker {
	return &CircuitBreaker{state: breakerClosed}
}

// Allow reports whether a call may proceed right now. When the breaker is
// open past its cooldown, Allow transitions it to half-open and grants
// exactly one caller the probe.
func (b *CircuitBreaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case breakerClosed:
		return true
	case breakerHalfOpen:
		if b.probeInFlight {
			return false
		}
		b.probeInFlight = true
		return true
	default: // breakerOpen
		if time.Since(b.openedAt) >= CircuitBreakerCooldown {
			b.state = breakerHalfOpen
			b.probeInFlight = true
			return true
		}
		return false
	}
}

// RecordSuccess reports a successful call. From any state this closes the
// breaker and clears its whole failure history.
func (b *CircuitBreaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = breakerClosed
	b.failures = nil
	b.probeInFlight = false
}

// RecordFailure reports a failed call. Once CircuitBreakerFailureThreshold
// failures have landed within CircuitBreakerWindow, the breaker opens. A
// failed half-open probe reopens the breaker immediately.
func (b *CircuitBreaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == breakerHalfOpen {
		b.state = breakerOpen
		b.openedAt = time.Now()
		b.probeInFlight = false
		b.failures = nil
		return
	}

	now := time.Now()
	b.failures = append(b.failures, now)
	cutoff := now.Add(-CircuitBreakerWindow)
	fresh := b.failures[:0]
	for _, t := range b.failures {
		if t.After(cutoff) {
			fresh = append(fresh, t)
		}
	}
	b.failures = fresh

	if len(b.failures) >= CircuitBreakerFailureThreshold {
		b.state = breakerOpen
		b.openedAt = now
		b.failures = nil
	}
}

// IsOpen reports whether the breaker is currently rejecting calls (ignoring
// the half-open probe allowance).
func (b *CircuitBreaker) IsOpen() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state == breakerOpen && time.Since(b.openedAt) < CircuitBreakerCooldown
}
