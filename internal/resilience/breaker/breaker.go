// Package breaker implements a per-target circuit breaker. One Breaker
// instance guards exactly one backend (or one primary/fallback pairing).
package breaker

import (
	"sync"
	"time"
)

// State represents the circuit breaker state.
type State string

const (
	StateClosed   State = "closed"
	StateOpen     State = "open"
	StateHalfOpen State = "half_open"
)

// Config defines circuit breaker behavior. Validation of the ranges happens
// at configuration load, before any breaker is constructed.
type Config struct {
	FailureThreshold      int           // consecutive failures that trip Closed -> Open
	OpenDuration          time.Duration // cool-down before probing is allowed
	MinimumStateDuration  time.Duration // lower bound guard; must be < OpenDuration
	SuccessThreshold      int           // successes in half-open that close the circuit
	MaxProbes             int           // concurrent probes admitted in half-open
	ResetCounterOnSuccess bool          // reset failure count on success while closed
}

// DefaultConfig provides conservative defaults.
var DefaultConfig = Config{
	FailureThreshold:      5,
	OpenDuration:          30 * time.Second,
	MinimumStateDuration:  5 * time.Second,
	SuccessThreshold:      2,
	MaxProbes:             1,
	ResetCounterOnSuccess: true,
}

// Status is an immutable snapshot of breaker state, safe to read from any
// goroutine.
type Status struct {
	Name                string    `json:"name"`
	State               State     `json:"state"`
	ConsecutiveFailures int       `json:"consecutive_failures"`
	SuccessesInHalfOpen int       `json:"successes_in_half_open"`
	LastFailureTime     time.Time `json:"last_failure_time"`
	OpenedAt            time.Time `json:"opened_at"`
}

// Breaker is a thread-safe three-state circuit breaker. State changes only
// on an admission check or a recorded outcome; no background timer runs.
type Breaker struct {
	name string
	cfg  Config

	mu                  sync.Mutex
	state               State
	consecutiveFailures int
	successesInHalfOpen int
	inFlightProbes      int
	lastFailureTime     time.Time
	openedAt            time.Time

	now func() time.Time
}

// New creates a breaker in the Closed state.
func New(name string, cfg Config) *Breaker {
	return &Breaker{
		name:  name,
		cfg:   cfg,
		state: StateClosed,
		now:   time.Now,
	}
}

// Allow reports whether a request may proceed. In Open it performs the lazy
// Open -> HalfOpen transition once OpenDuration has elapsed; in HalfOpen it
// admits up to MaxProbes concurrent probes.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.maybeTransitionLocked()

	switch b.state {
	case StateClosed:
		return true
	case StateHalfOpen:
		if b.inFlightProbes < b.cfg.MaxProbes {
			b.inFlightProbes++
			return true
		}
		return false
	default:
		return false
	}
}

// RecordSuccess records a successful outcome of an admitted request.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		if b.cfg.ResetCounterOnSuccess {
			b.consecutiveFailures = 0
		}
	case StateHalfOpen:
		b.successesInHalfOpen++
		if b.inFlightProbes > 0 {
			b.inFlightProbes--
		}
		if b.successesInHalfOpen >= b.cfg.SuccessThreshold {
			b.state = StateClosed
			b.consecutiveFailures = 0
			b.successesInHalfOpen = 0
			b.inFlightProbes = 0
		}
	}
}

// RecordFailure records a failed outcome. Any failure while half-open trips
// the circuit straight back to Open. Cancelled requests must not be recorded.
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	b.lastFailureTime = now
	b.consecutiveFailures++

	switch b.state {
	case StateClosed:
		if b.consecutiveFailures >= b.cfg.FailureThreshold {
			b.openLocked(now)
		}
	case StateHalfOpen:
		b.openLocked(now)
	}
}

// ReleaseProbe returns an admitted half-open probe slot without recording an
// outcome. Callers use it when a probe is abandoned (the request was
// cancelled) so the slot does not leak and block all later probes.
func (b *Breaker) ReleaseProbe() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == StateHalfOpen && b.inFlightProbes > 0 {
		b.inFlightProbes--
	}
}

// Status returns an immutable snapshot. The lazy Open -> HalfOpen check runs
// here too, so an idle breaker reports HalfOpen once it becomes probe-eligible.
func (b *Breaker) Status() Status {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.maybeTransitionLocked()

	return Status{
		Name:                b.name,
		State:               b.state,
		ConsecutiveFailures: b.consecutiveFailures,
		SuccessesInHalfOpen: b.successesInHalfOpen,
		LastFailureTime:     b.lastFailureTime,
		OpenedAt:            b.openedAt,
	}
}

// Reset returns the breaker to the initial Closed state.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.state = StateClosed
	b.consecutiveFailures = 0
	b.successesInHalfOpen = 0
	b.inFlightProbes = 0
	b.openedAt = time.Time{}
}

// Name returns the breaker name.
func (b *Breaker) Name() string {
	return b.name
}

func (b *Breaker) openLocked(now time.Time) {
	b.state = StateOpen
	b.openedAt = now
	b.successesInHalfOpen = 0
	b.inFlightProbes = 0
}

// maybeTransitionLocked flips Open -> HalfOpen once the cool-down elapsed.
// Caller must hold b.mu.
func (b *Breaker) maybeTransitionLocked() {
	if b.state == StateOpen && b.now().Sub(b.openedAt) >= b.cfg.OpenDuration {
		b.state = StateHalfOpen
		b.successesInHalfOpen = 0
		b.inFlightProbes = 0
	}
}
