package governor

import (
	"math"
	"math/rand/v2"
	"time"

	"crawlhq/pacer/pkg/config"
)

// ComputeBackoff returns the delay before retry number attempt (0-based):
//
//	min(initial * multiplier^attempt, max)
//
// optionally perturbed by bounded uniform jitter that keeps the result in
// [delay/2, delay]. The governor never sleeps on a caller's behalf; this is
// a primitive for callers that retry after a denial or failure.
func ComputeBackoff(cfg *config.Config, attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}

	delay := cfg.InitialBackoff
	if cfg.ExponentialBackoff {
		scaled := float64(cfg.InitialBackoff) * math.Pow(cfg.BackoffMultiplier, float64(attempt))
		if scaled > float64(cfg.MaxBackoff) {
			scaled = float64(cfg.MaxBackoff)
		}
		delay = time.Duration(scaled)
	}

	if cfg.JitterEnabled && delay > 0 {
		half := delay / 2
		delay = half + time.Duration(rand.Int64N(int64(half)+1))
	}
	return delay
}
