package governor

import (
	"time"

	"crawlhq/pacer/pkg/governor/storage"
)

// CircuitState is the per-domain circuit breaker state.
type CircuitState string

const (
	// CircuitClosed admits traffic normally.
	CircuitClosed CircuitState = "closed"

	// CircuitOpen blocks all traffic to the domain until the breaker
	// timeout elapses.
	CircuitOpen CircuitState = "open"

	// CircuitHalfOpen admits limited probe traffic to test recovery.
	CircuitHalfOpen CircuitState = "half_open"
)

// Denial reasons reported through CheckResult.Reason.
const (
	ReasonCircuitOpen       = "Circuit breaker open"
	ReasonRateLimitExceeded = "Rate limit exceeded"
)

// CheckResult is the outcome of an admission check for one domain.
type CheckResult struct {
	// Allowed indicates whether the caller may issue the request now.
	Allowed bool

	// Remaining is the token balance left after this check.
	Remaining float64

	// ResetAfter is how long until the next token becomes available.
	// Only meaningful when the denial reason is rate limiting.
	ResetAfter time.Duration

	// Reason explains a denial. Empty when Allowed.
	Reason string
}

// RequestResult reports the outcome of a completed (or failed) request so
// the governor can feed its breaker, adaptive controller and statistics.
type RequestResult struct {
	// Domain is the governed host the request targeted.
	Domain string

	// Timestamp is when the request completed. Zero means "now".
	Timestamp time.Time

	// ResponseTime is the observed request latency.
	ResponseTime time.Duration

	// StatusCode is the HTTP status, or 0 for transport-level failures.
	StatusCode int

	// Success is the caller's verdict on the request.
	Success bool

	// RetryCount is how many times the caller retried before this outcome.
	RetryCount int
}

// Stats is a read-only snapshot of one domain's health.
type Stats struct {
	Domain              string
	CurrentRate         float64
	RequestsPerMinute   float64
	AverageResponseTime time.Duration
	SuccessRate         float64
	CircuitState        CircuitState
}

// domainState is the mutable per-domain governor state. It is mutated only
// under its owning entry's lock.
type domainState struct {
	rate       float64 // requests/second currently allowed
	burst      int     // token bucket capacity
	tokens     float64 // 0 <= tokens <= burst
	lastRefill time.Time

	circuit             CircuitState
	consecutiveFailures int
	openedAt            time.Time
	halfOpenSuccesses   int

	recent []storage.ResultSample
}

// record converts the state to its storable form.
func (s *domainState) record(domain string, now time.Time) *storage.DomainRecord {
	rec := &storage.DomainRecord{
		Domain:              domain,
		Rate:                s.rate,
		Burst:               s.burst,
		Tokens:              s.tokens,
		LastRefill:          s.lastRefill,
		Circuit:             string(s.circuit),
		ConsecutiveFailures: s.consecutiveFailures,
		OpenedAt:            s.openedAt,
		HalfOpenSuccesses:   s.halfOpenSuccesses,
		UpdatedAt:           now,
	}
	rec.Recent = make([]storage.ResultSample, len(s.recent))
	copy(rec.Recent, s.recent)
	return rec
}

// restore rebuilds state from a stored record, discarding values a hostile
// or stale record could use to exceed the configured bounds.
func (s *domainState) restore(rec *storage.DomainRecord, minRate, maxRate float64) {
	if rec.Rate > 0 {
		s.rate = clampRate(rec.Rate, minRate, maxRate)
	}
	if rec.Burst > 0 {
		s.burst = rec.Burst
	}
	s.tokens = rec.Tokens
	if s.tokens < 0 {
		s.tokens = 0
	}
	if s.tokens > float64(s.burst) {
		s.tokens = float64(s.burst)
	}
	if !rec.LastRefill.IsZero() {
		s.lastRefill = rec.LastRefill
	}

	switch CircuitState(rec.Circuit) {
	case CircuitOpen:
		s.circuit = CircuitOpen
	case CircuitHalfOpen:
		s.circuit = CircuitHalfOpen
	default:
		s.circuit = CircuitClosed
	}
	s.consecutiveFailures = rec.ConsecutiveFailures
	s.openedAt = rec.OpenedAt
	s.halfOpenSuccesses = rec.HalfOpenSuccesses

	s.recent = make([]storage.ResultSample, len(rec.Recent))
	copy(s.recent, rec.Recent)
}

func clampRate(rate, min, max float64) float64 {
	if rate < min {
		return min
	}
	if rate > max {
		return max
	}
	return rate
}
