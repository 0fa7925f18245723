package config

import (
	"testing"
	"time"
)

// ============================================================================
// Presets & Defaults
// ============================================================================

func TestPreset_Moderate(t *testing.T) {
	cfg := Preset(PresetModerate)

	if cfg.RequestsPerSecond != 5 {
		t.Errorf("expected 5 req/s, got %g", cfg.RequestsPerSecond)
	}
	if cfg.BurstSize != 10 {
		t.Errorf("expected burst 10, got %d", cfg.BurstSize)
	}
	if !cfg.AdaptiveThrottling {
		t.Error("expected adaptive throttling enabled")
	}
	if cfg.Storage.Backend != "memory" {
		t.Errorf("expected memory backend, got %q", cfg.Storage.Backend)
	}
}

func TestPreset_ProfilesDiffer(t *testing.T) {
	conservative := Preset(PresetConservative)
	aggressive := Preset(PresetAggressive)

	if conservative.RequestsPerSecond >= aggressive.RequestsPerSecond {
		t.Errorf("expected conservative (%g) < aggressive (%g)",
			conservative.RequestsPerSecond, aggressive.RequestsPerSecond)
	}
	if conservative.CircuitBreakerTimeout <= aggressive.CircuitBreakerTimeout {
		t.Error("expected conservative to wait longer before probing")
	}
}

func TestPreset_UnknownFallsBackToModerate(t *testing.T) {
	cfg := Preset("turbo")
	if cfg.Preset != PresetModerate {
		t.Errorf("expected moderate fallback, got %q", cfg.Preset)
	}
}

func TestApplyDefaults_PreservesExplicitValues(t *testing.T) {
	cfg := Config{RequestsPerSecond: 42, BurstSize: 7}
	ApplyDefaults(&cfg)

	if cfg.RequestsPerSecond != 42 || cfg.BurstSize != 7 {
		t.Errorf("explicit values overwritten: %+v", cfg)
	}
	if cfg.CircuitBreakerThreshold == 0 {
		t.Error("expected defaults for unset fields")
	}
}

// ============================================================================
// Validation (clamping)
// ============================================================================

func TestValidate_ClampsOutOfRangeValues(t *testing.T) {
	cfg := Config{
		RequestsPerSecond:       -5,
		BurstSize:               -1,
		CircuitBreakerThreshold: -3,
		DecreaseFactor:          1.5,
		IncreaseFactor:          0.2,
	}
	ApplyDefaults(&cfg)
	// ApplyDefaults only fills zero values; negatives and nonsense survive
	// until Validate clamps them.
	warnings := Validate(&cfg)

	if len(warnings) == 0 {
		t.Fatal("expected clamp warnings")
	}
	if cfg.RequestsPerSecond <= 0 {
		t.Errorf("requests_per_second not clamped: %g", cfg.RequestsPerSecond)
	}
	if cfg.BurstSize < 1 {
		t.Errorf("burst_size not clamped: %d", cfg.BurstSize)
	}
	if cfg.CircuitBreakerThreshold < 1 {
		t.Errorf("circuit_breaker_threshold not clamped: %d", cfg.CircuitBreakerThreshold)
	}
	if cfg.DecreaseFactor <= 0 || cfg.DecreaseFactor >= 1 {
		t.Errorf("decrease_factor not reset: %g", cfg.DecreaseFactor)
	}
	if cfg.IncreaseFactor < 1 {
		t.Errorf("increase_factor not reset: %g", cfg.IncreaseFactor)
	}
}

func TestValidate_ValidConfigUntouched(t *testing.T) {
	cfg := Preset(PresetModerate)
	if warnings := Validate(&cfg); len(warnings) != 0 {
		t.Errorf("expected no warnings for a preset, got %v", warnings)
	}
}

func TestValidate_UnknownStorageBackend(t *testing.T) {
	cfg := Preset(PresetModerate)
	cfg.Storage.Backend = "etcd"

	warnings := Validate(&cfg)
	if len(warnings) == 0 {
		t.Fatal("expected a warning for unknown backend")
	}
	if cfg.Storage.Backend != "memory" {
		t.Errorf("expected fallback to memory, got %q", cfg.Storage.Backend)
	}
}

func TestRateFor_Override(t *testing.T) {
	cfg := Preset(PresetModerate)
	cfg.DomainOverrides = map[string]DomainOverride{
		"api.partner.com": {RequestsPerSecond: 2},
	}

	rate, burst := cfg.RateFor("api.partner.com")
	if rate != 2 {
		t.Errorf("expected override rate 2, got %g", rate)
	}
	if burst != cfg.BurstSize {
		t.Errorf("expected inherited burst %d, got %d", cfg.BurstSize, burst)
	}

	rate, _ = cfg.RateFor("other.example.com")
	if rate != cfg.RequestsPerSecond {
		t.Errorf("expected global rate, got %g", rate)
	}
}

// ============================================================================
// YAML Parsing
// ============================================================================

func TestParse_PresetPlusOverrides(t *testing.T) {
	cfg, err := Parse([]byte(`
preset: aggressive
burst_size: 40
circuit_breaker_timeout: 45s
storage:
  backend: sqlite
  sqlite:
    path: /tmp/pacer-test.db
`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	// Explicit fields win over the preset...
	if cfg.BurstSize != 40 {
		t.Errorf("expected burst 40, got %d", cfg.BurstSize)
	}
	if cfg.CircuitBreakerTimeout != 45*time.Second {
		t.Errorf("expected 45s timeout, got %v", cfg.CircuitBreakerTimeout)
	}
	// ...while unset fields inherit from it.
	if cfg.RequestsPerSecond != 10 {
		t.Errorf("expected aggressive 10 req/s, got %g", cfg.RequestsPerSecond)
	}
	if cfg.Storage.Backend != "sqlite" || cfg.Storage.SQLite.Path != "/tmp/pacer-test.db" {
		t.Errorf("storage config not applied: %+v", cfg.Storage)
	}
}

func TestParse_InvalidYAML(t *testing.T) {
	if _, err := Parse([]byte("preset: [unclosed")); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestParse_DomainOverrides(t *testing.T) {
	cfg, err := Parse([]byte(`
domain_overrides:
  api.shopify.com:
    requests_per_second: 2
    burst_size: 4
`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	ov, ok := cfg.DomainOverrides["api.shopify.com"]
	if !ok {
		t.Fatal("expected override for api.shopify.com")
	}
	if ov.RequestsPerSecond != 2 || ov.BurstSize != 4 {
		t.Errorf("override values wrong: %+v", ov)
	}
}
