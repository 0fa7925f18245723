package governor

import "time"

// Token bucket admission for a single domain.
//
// The bucket refills continuously at the domain's current rate and is capped
// at the burst size. Fractional tokens accumulate, so a 0.5 req/s domain
// earns one whole token every two seconds. Callers hold the domain lock.

// refill credits tokens for the time elapsed since the last refill.
func (s *domainState) refill(now time.Time) {
	if s.lastRefill.IsZero() {
		s.lastRefill = now
		return
	}

	elapsed := now.Sub(s.lastRefill)
	if elapsed <= 0 {
		return
	}

	s.tokens += elapsed.Seconds() * s.rate
	if s.tokens > float64(s.burst) {
		s.tokens = float64(s.burst)
	}
	s.lastRefill = now
}

// takeToken consumes one token if a whole token is available.
func (s *domainState) takeToken() bool {
	if s.tokens < 1 {
		return false
	}
	s.tokens--
	return true
}

// resetAfter is the time until the next whole token is available at the
// current rate.
func (s *domainState) resetAfter() time.Duration {
	missing := 1 - s.tokens
	if missing <= 0 {
		return 0
	}
	return time.Duration(missing / s.rate * float64(time.Second))
}
