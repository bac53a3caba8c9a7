package dispatch

import (
	"sync"
	"time"
)

// CircuitBreaker guards calls to the processor with failure-count based
// fast-fail. State is per-process: each gateway process tracks its own
// failure window, so a pool of processes fails over gradually rather than
// all at once.
//
// Closed: every call is attempted; consecutive failures accumulate until
// the threshold trips the breaker open. Open: calls are rejected without a
// network attempt until the cooldown elapses, after which exactly one probe
// is let through while all other callers keep getting rejected. A probe
// success closes the breaker; a probe failure restarts the cooldown.
type CircuitBreaker struct {
	mu          sync.Mutex
	failures    int
	open        bool
	probing     bool
	lastFailure time.Time

	threshold int
	cooldown  time.Duration
	now       func() time.Time
}

func NewCircuitBreaker(threshold int, cooldown time.Duration) *CircuitBreaker {
	if threshold < 1 {
		threshold = 1
	}
	if cooldown <= 0 {
		cooldown = 30 * time.Second
	}
	return &CircuitBreaker{
		threshold: threshold,
		cooldown:  cooldown,
		now:       time.Now,
	}
}

// Allow reports whether a call may proceed. When the breaker is open and
// the cooldown has elapsed it admits a single probe; concurrent callers
// still see the breaker as open until that probe settles.
func (b *CircuitBreaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.open {
		return true
	}
	if b.probing {
		return false
	}
	if b.now().Sub(b.lastFailure) >= b.cooldown {
		b.probing = true
		return true
	}
	return false
}

// Success records a successful call, closing the breaker and clearing the
// failure count. Every success counts, not only cooldown probes.
func (b *CircuitBreaker) Success() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures = 0
	b.open = false
	b.probing = false
}

// Failure records a failed call. Reaching the threshold opens the breaker;
// a failure while open (a failed probe) restarts the cooldown.
func (b *CircuitBreaker) Failure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures++
	b.probing = false
	b.lastFailure = b.now()
	if b.failures >= b.threshold {
		b.open = true
	}
}

// Open reports whether the breaker currently rejects calls.
func (b *CircuitBreaker) Open() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.open
}
