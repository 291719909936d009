package dnc

import (
	"errors"
	"sync"
	"time"

	"github.com/davidleathers/outreach-compliance-backend/internal/domain/dnc"
)

// ErrCircuitBreakerOpen is returned while publication is suspended
var ErrCircuitBreakerOpen = errors.New("circuit breaker is open")

// CircuitState is the breaker position
type CircuitState string

const (
	CircuitClosed   CircuitState = "closed"
	CircuitOpen     CircuitState = "open"
	CircuitHalfOpen CircuitState = "half_open"
)

// BreakerConfig configures the publication circuit breaker
type BreakerConfig struct {
	FailureThreshold int           // Consecutive failures that open the circuit
	SuccessThreshold int           // Half-open successes needed to close again
	Cooldown         time.Duration // Time spent open before a trial call
}

// circuitBreaker stops hammering the snapshot store while it is down.
// Time comes from the registry clock so tests can drive the cooldown.
type circuitBreaker struct {
	config BreakerConfig
	clock  dnc.Clock

	mu            sync.Mutex
	state         CircuitState
	failures      int
	successes     int
	openedAt      time.Time
	onStateChange func(from, to CircuitState)
}

func newCircuitBreaker(config BreakerConfig, clock dnc.Clock) *circuitBreaker {
	if config.FailureThreshold <= 0 {
		config.FailureThreshold = 5
	}
	if config.SuccessThreshold <= 0 {
		config.SuccessThreshold = 1
	}
	if config.Cooldown <= 0 {
		config.Cooldown = 30 * time.Second
	}

	return &circuitBreaker{
		config: config,
		clock:  clock,
		state:  CircuitClosed,
	}
}

// Execute runs fn unless the circuit is open
func (cb *circuitBreaker) Execute(fn func() error) error {
	if !cb.allow() {
		return ErrCircuitBreakerOpen
	}

	err := fn()
	if err != nil {
		cb.recordFailure()
	} else {
		cb.recordSuccess()
	}
	return err
}

// State returns the current position
func (cb *circuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

func (cb *circuitBreaker) allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state != CircuitOpen {
		return true
	}
	if cb.clock.Now().Sub(cb.openedAt) < cb.config.Cooldown {
		return false
	}
	cb.transition(CircuitHalfOpen)
	return true
}

func (cb *circuitBreaker) recordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.successes = 0
	cb.failures++
	if cb.state == CircuitHalfOpen || cb.failures >= cb.config.FailureThreshold {
		cb.openedAt = cb.clock.Now()
		cb.transition(CircuitOpen)
	}
}

func (cb *circuitBreaker) recordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures = 0
	if cb.state != CircuitHalfOpen {
		return
	}
	cb.successes++
	if cb.successes >= cb.config.SuccessThreshold {
		cb.successes = 0
		cb.transition(CircuitClosed)
	}
}

// transition must be called with mu held
func (cb *circuitBreaker) transition(to CircuitState) {
	from := cb.state
	if from == to {
		return
	}
	cb.state = to
	if cb.onStateChange != nil {
		cb.onStateChange(from, to)
	}
}
