package router

import (
	"sync"
	"time"
)

// CircuitState represents the state of a circuit breaker
type CircuitState int

const (
	CircuitClosed CircuitState = iota
	CircuitOpen
	CircuitHalfOpen
)

const (
	DefaultFailureThreshold = 3
	DefaultRecoveryTimeout  = 30 * time.Second
)

// ProviderStats tracks the health of a single recognition provider
type ProviderStats struct {
	mu sync.Mutex

	state CircuitState

	totalRequests int64
	totalFailures int64

	consecutiveFailures int
	lastFailure         time.Time
}

func NewProviderStats() *ProviderStats {
	return &ProviderStats{
		state: CircuitClosed,
	}
}

// IsAvailable reports whether the provider may receive a request.
// An open circuit turns half-open once the recovery timeout has passed.
func (s *ProviderStats) IsAvailable(recoveryTimeout time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != CircuitOpen {
		return true
	}

	if time.Since(s.lastFailure) >= recoveryTimeout {
		s.state = CircuitHalfOpen
		return true
	}

	return false
}

func (s *ProviderStats) State() CircuitState {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state
}

func (s *ProviderStats) Counts() (requests, failures int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.totalRequests, s.totalFailures
}

func (s *ProviderStats) LastFailure() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.lastFailure
}

func (s *ProviderStats) RecordSuccess() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.totalRequests++
	s.consecutiveFailures = 0

	s.state = CircuitClosed
}

func (s *ProviderStats) RecordFailure(failureThreshold int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.totalRequests++
	s.totalFailures++
	s.consecutiveFailures++
	s.lastFailure = time.Now()

	if s.state == CircuitHalfOpen || s.consecutiveFailures >= failureThreshold {
		s.state = CircuitOpen
	}
}

func (s *ProviderStats) SetHalfOpen() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = CircuitHalfOpen
}
