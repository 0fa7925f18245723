package governor

import (
	"time"

	"crawlhq/pacer/pkg/config"
)

// Circuit breaker state machine for a single domain.
//
// closed -> open       after N consecutive failures
// open -> half_open    lazily, on the first admission check after the timeout
// half_open -> closed  after M consecutive successful probes
// half_open -> open    on any failed probe (timeout clock restarts)
//
// Callers hold the domain lock.

// breakerAdmits reports whether the circuit permits traffic right now,
// performing the lazy open -> half_open transition when the timeout has
// elapsed. Half-open traffic still flows through the token bucket, so probe
// volume is bounded by the bucket, not by a separate counter.
func (s *domainState) breakerAdmits(now time.Time, cfg *config.Config) bool {
	switch s.circuit {
	case CircuitOpen:
		if now.Sub(s.openedAt) >= cfg.CircuitBreakerTimeout {
			s.circuit = CircuitHalfOpen
			s.halfOpenSuccesses = 0
			return true
		}
		return false
	default:
		return true
	}
}

// breakerRecordSuccess feeds a successful result into the state machine.
func (s *domainState) breakerRecordSuccess(cfg *config.Config) {
	s.consecutiveFailures = 0

	if s.circuit == CircuitHalfOpen {
		s.halfOpenSuccesses++
		if s.halfOpenSuccesses >= cfg.HalfOpenSuccesses {
			s.circuit = CircuitClosed
			s.halfOpenSuccesses = 0
		}
	}
}

// breakerRecordFailure feeds a failed result into the state machine.
func (s *domainState) breakerRecordFailure(now time.Time, cfg *config.Config) {
	s.consecutiveFailures++

	switch s.circuit {
	case CircuitHalfOpen:
		// A single failed probe reopens the circuit and restarts the clock.
		s.circuit = CircuitOpen
		s.openedAt = now
		s.halfOpenSuccesses = 0
	case CircuitClosed:
		if s.consecutiveFailures >= cfg.CircuitBreakerThreshold {
			s.circuit = CircuitOpen
			s.openedAt = now
		}
	}
}
