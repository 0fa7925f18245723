package governor

import (
	"time"

	"crawlhq/pacer/pkg/config"
	"crawlhq/pacer/pkg/governor/storage"
)

// Rolling statistics over each domain's recent results. The window is
// bounded both by count and by age so a burst of traffic and a long quiet
// spell both keep it small. Callers hold the domain lock.

// appendResult adds a sample to the rolling window and evicts entries that
// fall outside the configured bounds.
func (s *domainState) appendResult(res RequestResult, now time.Time, cfg *config.Config) {
	ts := res.Timestamp
	if ts.IsZero() {
		ts = now
	}

	s.recent = append(s.recent, storage.ResultSample{
		Timestamp:    ts,
		ResponseTime: res.ResponseTime,
		StatusCode:   res.StatusCode,
		Success:      res.Success,
		RetryCount:   res.RetryCount,
	})

	cutoff := now.Add(-cfg.ResultWindowAge)
	start := 0
	for start < len(s.recent) && s.recent[start].Timestamp.Before(cutoff) {
		start++
	}
	if over := len(s.recent) - start - cfg.ResultWindowSize; over > 0 {
		start += over
	}
	if start > 0 {
		s.recent = append(s.recent[:0], s.recent[start:]...)
	}
}

// snapshot derives the read-only statistics view from the current window.
func (s *domainState) snapshot(domain string, now time.Time) Stats {
	st := Stats{
		Domain:       domain,
		CurrentRate:  s.rate,
		CircuitState: s.circuit,
	}

	if len(s.recent) == 0 {
		return st
	}

	var (
		successes int
		totalRT   time.Duration
		lastMin   int
	)
	minuteAgo := now.Add(-time.Minute)
	for _, sample := range s.recent {
		if sample.Success {
			successes++
		}
		totalRT += sample.ResponseTime
		if !sample.Timestamp.Before(minuteAgo) {
			lastMin++
		}
	}

	st.SuccessRate = float64(successes) / float64(len(s.recent))
	st.AverageResponseTime = totalRT / time.Duration(len(s.recent))
	st.RequestsPerMinute = float64(lastMin)
	return st
}
