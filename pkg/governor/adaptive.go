package governor

import "crawlhq/pacer/pkg/config"

// Adaptive controller: retunes a domain's allowed rate from each reported
// outcome, clamped to [MinRate, MaxRate]. Callers hold the domain lock.

// overloadStatus are HTTP statuses treated as "the target is overloaded",
// which shrink the domain's rate regardless of the caller's success verdict.
func overloadStatus(code int) bool {
	switch code {
	case 429, 500, 503:
		return true
	}
	return false
}

// adjustRate applies the adaptive policy for one reported result:
//
//   - overload status, or a transport-level failure (no status at all)
//     -> multiply rate by the decrease factor
//   - fast success -> multiply rate by the increase factor
//   - anything else (e.g. a slow success, a 404) -> no change
func (s *domainState) adjustRate(res RequestResult, cfg *config.Config) {
	if !cfg.AdaptiveThrottling {
		return
	}

	switch {
	case overloadStatus(res.StatusCode) || (!res.Success && res.StatusCode == 0):
		s.rate = clampRate(s.rate*cfg.DecreaseFactor, cfg.MinRate, cfg.MaxRate)
	case res.Success && res.ResponseTime < cfg.FastResponseThreshold:
		s.rate = clampRate(s.rate*cfg.IncreaseFactor, cfg.MinRate, cfg.MaxRate)
	}
}
