package config

import "time"

// Preset names understood by Preset and the "preset" YAML field.
const (
	PresetConservative = "conservative"
	PresetModerate     = "moderate"
	PresetAggressive   = "aggressive"
)

// Preset returns a fully populated configuration for a named profile.
// Unknown names fall back to the moderate profile.
func Preset(name string) Config {
	cfg := Config{
		Preset:             name,
		AdaptiveThrottling: true,
		ExponentialBackoff: true,
		JitterEnabled:      true,
	}
	switch name {
	case PresetConservative:
		cfg.RequestsPerSecond = 1
		cfg.BurstSize = 3
		cfg.MaxRate = 5
		cfg.CircuitBreakerThreshold = 3
		cfg.CircuitBreakerTimeout = 60 * time.Second
	case PresetAggressive:
		cfg.RequestsPerSecond = 10
		cfg.BurstSize = 20
		cfg.MaxRate = 50
		cfg.CircuitBreakerThreshold = 8
		cfg.CircuitBreakerTimeout = 15 * time.Second
	default:
		cfg.Preset = PresetModerate
	}
	ApplyDefaults(&cfg)
	return cfg
}

// Default returns the moderate preset. This is what the governor uses when
// constructed with a zero Config.
func Default() Config {
	return Preset(PresetModerate)
}

// ApplyDefaults fills zero-valued fields with the moderate profile values.
// Explicitly set fields are left untouched.
func ApplyDefaults(cfg *Config) {
	if cfg.Preset == "" {
		cfg.Preset = PresetModerate
	}
	if cfg.RequestsPerSecond == 0 {
		cfg.RequestsPerSecond = 5
	}
	if cfg.BurstSize == 0 {
		cfg.BurstSize = 10
	}
	if cfg.MinRate == 0 {
		cfg.MinRate = 0.1
	}
	if cfg.MaxRate == 0 {
		cfg.MaxRate = 20
	}
	if cfg.IncreaseFactor == 0 {
		cfg.IncreaseFactor = 1.1
	}
	if cfg.DecreaseFactor == 0 {
		cfg.DecreaseFactor = 0.5
	}
	if cfg.FastResponseThreshold == 0 {
		cfg.FastResponseThreshold = 100 * time.Millisecond
	}
	if cfg.CircuitBreakerThreshold == 0 {
		cfg.CircuitBreakerThreshold = 5
	}
	if cfg.CircuitBreakerTimeout == 0 {
		cfg.CircuitBreakerTimeout = 30 * time.Second
	}
	if cfg.HalfOpenSuccesses == 0 {
		cfg.HalfOpenSuccesses = 3
	}
	if cfg.InitialBackoff == 0 {
		cfg.InitialBackoff = 500 * time.Millisecond
	}
	if cfg.BackoffMultiplier == 0 {
		cfg.BackoffMultiplier = 2
	}
	if cfg.MaxBackoff == 0 {
		cfg.MaxBackoff = 60 * time.Second
	}
	if cfg.ResultWindowSize == 0 {
		cfg.ResultWindowSize = 100
	}
	if cfg.ResultWindowAge == 0 {
		cfg.ResultWindowAge = 5 * time.Minute
	}

	applyStorageDefaults(&cfg.Storage)
}

func applyStorageDefaults(sc *StorageConfig) {
	if sc.Backend == "" {
		sc.Backend = "memory"
	}
	if sc.RetentionPeriod == 0 {
		sc.RetentionPeriod = 24 * time.Hour
	}
	if sc.ProbeInterval == 0 {
		sc.ProbeInterval = 30 * time.Second
	}
	if sc.Redis.Addr == "" {
		sc.Redis.Addr = "localhost:6379"
	}
	if sc.Redis.KeyPrefix == "" {
		sc.Redis.KeyPrefix = "pacer"
	}
	if sc.Redis.TTL == 0 {
		sc.Redis.TTL = 24 * time.Hour
	}
	if sc.Redis.DialTimeout == 0 {
		sc.Redis.DialTimeout = 2 * time.Second
	}
	if sc.Redis.OpTimeout == 0 {
		sc.Redis.OpTimeout = 250 * time.Millisecond
	}
	if sc.SQLite.Path == "" {
		sc.SQLite.Path = "pacer-state.db"
	}
}
