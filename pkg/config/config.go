package config

import "time"

// Config contains all tunables for a rate governor instance.
//
// Zero values mean "use the default" — call ApplyDefaults (or construct via
// Preset or Load, which do it for you) before handing a Config to the
// governor.
type Config struct {
	// Preset names a base profile ("conservative", "moderate", "aggressive")
	// that is applied before the remaining fields. Empty means "moderate".
	Preset string `yaml:"preset"`

	// RequestsPerSecond is the baseline allowed rate for a new domain.
	RequestsPerSecond float64 `yaml:"requests_per_second"`

	// BurstSize is the token bucket capacity (maximum burst).
	BurstSize int `yaml:"burst_size"`

	// MinRate and MaxRate bound the adaptive controller. A domain's current
	// rate never leaves [MinRate, MaxRate].
	MinRate float64 `yaml:"min_rate"`
	MaxRate float64 `yaml:"max_rate"`

	// AdaptiveThrottling enables dynamic rate adjustment from observed
	// request outcomes.
	AdaptiveThrottling bool `yaml:"adaptive_throttling"`

	// IncreaseFactor multiplies the current rate after a fast success.
	// DecreaseFactor multiplies it after an overload signal (429/500/503).
	IncreaseFactor float64 `yaml:"increase_factor"`
	DecreaseFactor float64 `yaml:"decrease_factor"`

	// FastResponseThreshold is the response time below which a success is
	// considered evidence the target has headroom.
	FastResponseThreshold time.Duration `yaml:"fast_response_threshold"`

	// CircuitBreakerThreshold is the number of consecutive failures before
	// the breaker opens for a domain.
	CircuitBreakerThreshold int `yaml:"circuit_breaker_threshold"`

	// CircuitBreakerTimeout is how long an open breaker waits before
	// admitting half-open probes.
	CircuitBreakerTimeout time.Duration `yaml:"circuit_breaker_timeout"`

	// HalfOpenSuccesses is the number of consecutive successful probes that
	// close a half-open breaker.
	HalfOpenSuccesses int `yaml:"half_open_successes"`

	// ExponentialBackoff enables the backoff calculator. When disabled,
	// Backoff returns InitialBackoff for every attempt.
	ExponentialBackoff bool          `yaml:"exponential_backoff"`
	InitialBackoff     time.Duration `yaml:"initial_backoff"`
	BackoffMultiplier  float64       `yaml:"backoff_multiplier"`
	MaxBackoff         time.Duration `yaml:"max_backoff"`
	JitterEnabled      bool          `yaml:"jitter_enabled"`

	// ResultWindowSize bounds the rolling per-domain result window used for
	// statistics. Oldest entries are evicted beyond this size.
	ResultWindowSize int `yaml:"result_window_size"`

	// ResultWindowAge evicts results older than this from the rolling
	// window regardless of count.
	ResultWindowAge time.Duration `yaml:"result_window_age"`

	// DomainOverrides pins specific domains to their own baseline rate and
	// burst, e.g. commerce APIs with negotiated budgets.
	DomainOverrides map[string]DomainOverride `yaml:"domain_overrides"`

	// Storage configures the state persistence backend.
	Storage StorageConfig `yaml:"storage"`
}

// DomainOverride replaces the baseline rate and burst for one domain.
// Zero fields inherit the global value.
type DomainOverride struct {
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	BurstSize         int     `yaml:"burst_size"`
}

// StorageConfig selects and configures the state backend.
type StorageConfig struct {
	// Backend is "memory", "redis" or "sqlite". Empty means "memory".
	Backend string `yaml:"backend"`

	Redis  RedisConfig  `yaml:"redis"`
	SQLite SQLiteConfig `yaml:"sqlite"`

	// RetentionPeriod is how long inactive domain records are kept before
	// the janitor prunes them.
	RetentionPeriod time.Duration `yaml:"retention_period"`

	// CleanupSchedule is a cron expression for the storage janitor
	// (e.g. "*/10 * * * *"). Empty disables scheduled cleanup.
	CleanupSchedule string `yaml:"cleanup_schedule"`

	// ProbeInterval is how often a degraded backend is re-probed for
	// recovery after falling back to memory.
	ProbeInterval time.Duration `yaml:"probe_interval"`
}

// RedisConfig configures the Redis state backend.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`

	// KeyPrefix namespaces governor keys in a shared Redis.
	KeyPrefix string `yaml:"key_prefix"`

	// TTL is the expiry applied to domain records, doubling as backend-side
	// state cleanup.
	TTL time.Duration `yaml:"ttl"`

	DialTimeout time.Duration `yaml:"dial_timeout"`
	OpTimeout   time.Duration `yaml:"op_timeout"`
}

// SQLiteConfig configures the SQLite state backend.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}
