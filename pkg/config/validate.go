package config

import (
	"fmt"
	"time"
)

// Validate clamps out-of-range values to safe minimums and returns a
// description of every adjustment it made.
//
// It never returns an error: a governor with a mangled configuration must
// still start, because refusing admission control entirely is worse than
// running with conservative values. Callers typically log the returned
// warnings.
func Validate(cfg *Config) []string {
	var warnings []string

	clampFloat := func(name string, v *float64, min float64) {
		if *v < min {
			warnings = append(warnings, fmt.Sprintf("%s %g below minimum, clamped to %g", name, *v, min))
			*v = min
		}
	}
	clampInt := func(name string, v *int, min int) {
		if *v < min {
			warnings = append(warnings, fmt.Sprintf("%s %d below minimum, clamped to %d", name, *v, min))
			*v = min
		}
	}
	clampDur := func(name string, v *time.Duration, min time.Duration) {
		if *v < min {
			warnings = append(warnings, fmt.Sprintf("%s %s below minimum, clamped to %s", name, *v, min))
			*v = min
		}
	}

	clampFloat("requests_per_second", &cfg.RequestsPerSecond, 0.1)
	clampInt("burst_size", &cfg.BurstSize, 1)
	clampFloat("min_rate", &cfg.MinRate, 0.01)
	clampFloat("max_rate", &cfg.MaxRate, cfg.MinRate)

	if cfg.RequestsPerSecond > cfg.MaxRate {
		warnings = append(warnings, fmt.Sprintf("requests_per_second %g above max_rate %g, clamped", cfg.RequestsPerSecond, cfg.MaxRate))
		cfg.RequestsPerSecond = cfg.MaxRate
	}
	if cfg.RequestsPerSecond < cfg.MinRate {
		warnings = append(warnings, fmt.Sprintf("requests_per_second %g below min_rate %g, clamped", cfg.RequestsPerSecond, cfg.MinRate))
		cfg.RequestsPerSecond = cfg.MinRate
	}

	// A decrease factor at or above 1 would never throttle down; an increase
	// factor below 1 would never recover.
	if cfg.DecreaseFactor <= 0 || cfg.DecreaseFactor >= 1 {
		warnings = append(warnings, fmt.Sprintf("decrease_factor %g outside (0,1), reset to 0.5", cfg.DecreaseFactor))
		cfg.DecreaseFactor = 0.5
	}
	if cfg.IncreaseFactor < 1 {
		warnings = append(warnings, fmt.Sprintf("increase_factor %g below 1, reset to 1.1", cfg.IncreaseFactor))
		cfg.IncreaseFactor = 1.1
	}

	clampDur("fast_response_threshold", &cfg.FastResponseThreshold, time.Millisecond)
	clampInt("circuit_breaker_threshold", &cfg.CircuitBreakerThreshold, 1)
	clampDur("circuit_breaker_timeout", &cfg.CircuitBreakerTimeout, time.Second)
	clampInt("half_open_successes", &cfg.HalfOpenSuccesses, 1)

	clampDur("initial_backoff", &cfg.InitialBackoff, time.Millisecond)
	if cfg.BackoffMultiplier < 1 {
		warnings = append(warnings, fmt.Sprintf("backoff_multiplier %g below 1, reset to 2", cfg.BackoffMultiplier))
		cfg.BackoffMultiplier = 2
	}
	clampDur("max_backoff", &cfg.MaxBackoff, cfg.InitialBackoff)

	clampInt("result_window_size", &cfg.ResultWindowSize, 1)
	clampDur("result_window_age", &cfg.ResultWindowAge, time.Second)

	for domain, ov := range cfg.DomainOverrides {
		if ov.RequestsPerSecond < 0 {
			warnings = append(warnings, fmt.Sprintf("domain override %s: negative requests_per_second dropped", domain))
			ov.RequestsPerSecond = 0
		}
		if ov.BurstSize < 0 {
			warnings = append(warnings, fmt.Sprintf("domain override %s: negative burst_size dropped", domain))
			ov.BurstSize = 0
		}
		cfg.DomainOverrides[domain] = ov
	}

	switch cfg.Storage.Backend {
	case "memory", "redis", "sqlite":
	default:
		warnings = append(warnings, fmt.Sprintf("unknown storage backend %q, using memory", cfg.Storage.Backend))
		cfg.Storage.Backend = "memory"
	}

	return warnings
}

// RateFor returns the baseline rate and burst for a domain, honoring any
// configured override.
func (c *Config) RateFor(domain string) (rate float64, burst int) {
	rate, burst = c.RequestsPerSecond, c.BurstSize
	if ov, ok := c.DomainOverrides[domain]; ok {
		if ov.RequestsPerSecond > 0 {
			rate = ov.RequestsPerSecond
		}
		if ov.BurstSize > 0 {
			burst = ov.BurstSize
		}
	}
	return rate, burst
}
