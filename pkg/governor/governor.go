package governor

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"crawlhq/pacer/pkg/config"
	"crawlhq/pacer/pkg/governor/storage"
)

// Governor is the façade composing bucket, breaker, adaptive controller and
// statistics behind two mutating entry points. Construct with New; a single
// process may run several independently configured governors.
type Governor struct {
	id      string
	clock   Clock
	store   storage.Backend
	janitor *storage.Janitor
	metrics *Metrics
	logger  *slog.Logger

	cfgMu sync.RWMutex
	cfg   config.Config

	mu      sync.RWMutex
	domains map[string]*domainEntry

	closeOnce sync.Once
}

// domainEntry owns one domain's state. All mutation happens under mu, which
// serializes workers per domain without a global bottleneck.
type domainEntry struct {
	mu     sync.Mutex
	state  domainState
	loaded bool // storage restore attempted
}

// Option customizes a Governor.
type Option func(*Governor)

// WithClock injects a time source. Tests use this to drive refill and
// breaker timeout math without sleeping.
func WithClock(clock Clock) Option {
	return func(g *Governor) { g.clock = clock }
}

// WithBackend injects a storage backend, bypassing the one the
// configuration would select.
func WithBackend(backend storage.Backend) Option {
	return func(g *Governor) { g.store = backend }
}

// WithMetrics attaches Prometheus collectors. Without this option the
// governor records no metrics.
func WithMetrics(m *Metrics) Option {
	return func(g *Governor) { g.metrics = m }
}

// WithLogger overrides the default slog logger.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Governor) { g.logger = logger }
}

// New creates a governor. Out-of-range configuration is clamped, never
// rejected: a governor must always be able to start.
func New(cfg config.Config, opts ...Option) *Governor {
	config.ApplyDefaults(&cfg)

	g := &Governor{
		id:      uuid.NewString(),
		clock:   SystemClock(),
		cfg:     cfg,
		domains: make(map[string]*domainEntry),
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.logger == nil {
		g.logger = slog.Default()
	}
	g.logger = g.logger.With("component", "governor", "governor_id", g.id)

	for _, w := range config.Validate(&g.cfg) {
		g.logger.Warn("config value adjusted", "adjustment", w)
	}

	if g.store == nil {
		g.store = storage.Open(g.cfg.Storage, g.metrics.observeDegradation)
	}

	g.janitor = storage.NewJanitor(g.store, g.cfg.Storage.CleanupSchedule, g.cfg.Storage.RetentionPeriod)
	if err := g.janitor.Start(); err != nil {
		g.logger.Warn("storage janitor not started", "error", err)
	}

	g.logger.Info("governor started",
		"preset", g.cfg.Preset,
		"requests_per_second", g.cfg.RequestsPerSecond,
		"burst_size", g.cfg.BurstSize,
		"storage_backend", g.cfg.Storage.Backend,
	)
	return g
}

// CheckRateLimit decides whether the caller may issue a request to domain
// right now. State for a previously unseen domain is created lazily with
// configured defaults. The call never blocks beyond the storage backend's
// own timeout on the first touch of a domain.
func (g *Governor) CheckRateLimit(domain string) CheckResult {
	cfg := g.configSnapshot()
	entry := g.entry(domain, cfg)

	entry.mu.Lock()
	now := g.clock.Now()
	g.ensureLoaded(entry, domain, cfg)
	state := &entry.state

	state.refill(now)

	var res CheckResult
	switch {
	case !state.breakerAdmits(now, cfg):
		// Open circuit overrides the bucket; no token is consumed.
		res = CheckResult{Remaining: state.tokens, Reason: ReasonCircuitOpen}
	case state.takeToken():
		res = CheckResult{Allowed: true, Remaining: state.tokens}
	default:
		res = CheckResult{
			Remaining:  state.tokens,
			ResetAfter: state.resetAfter(),
			Reason:     ReasonRateLimitExceeded,
		}
	}
	entry.mu.Unlock()

	g.metrics.observeCheck(domain, res)
	if !res.Allowed {
		g.logger.Debug("request denied",
			"domain", domain,
			"reason", res.Reason,
			"reset_after", res.ResetAfter,
		)
	}
	return res
}

// ReportRequestResult feeds a completed request's outcome into the adaptive
// controller, the circuit breaker and the statistics window, atomically for
// the domain. Both signals derive from the same result: the rate is adjusted
// first, then the breaker counts the outcome.
func (g *Governor) ReportRequestResult(res RequestResult) {
	if res.Domain == "" {
		return
	}

	cfg := g.configSnapshot()
	entry := g.entry(res.Domain, cfg)

	entry.mu.Lock()
	now := g.clock.Now()
	g.ensureLoaded(entry, res.Domain, cfg)
	state := &entry.state

	state.adjustRate(res, cfg)
	if res.Success {
		state.breakerRecordSuccess(cfg)
	} else {
		state.breakerRecordFailure(now, cfg)
	}
	state.appendResult(res, now, cfg)

	rate, circuit := state.rate, state.circuit
	rec := state.record(res.Domain, now)
	entry.mu.Unlock()

	g.metrics.observeResult(res.Domain, res, rate, circuit)

	// Persistence is best-effort and bounded by the backend's own timeout;
	// a degraded backend serves from memory without blocking.
	g.persist(rec)
}

// GetStatistics returns a read-only snapshot of a domain's health. Unknown
// domains yield default statistics without creating state.
func (g *Governor) GetStatistics(domain string) Stats {
	cfg := g.configSnapshot()

	g.mu.RLock()
	entry, ok := g.domains[domain]
	g.mu.RUnlock()

	if !ok {
		rate, _ := cfg.RateFor(domain)
		return Stats{Domain: domain, CurrentRate: rate, CircuitState: CircuitClosed}
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	return entry.state.snapshot(domain, g.clock.Now())
}

// Backoff returns the retry delay for the given 0-based attempt. The
// governor never sleeps on the caller's behalf.
func (g *Governor) Backoff(attempt int) time.Duration {
	cfg := g.configSnapshot()
	return ComputeBackoff(cfg, attempt)
}

// Reset clears one domain back to default state. A subsequent check behaves
// as if the domain had never been seen.
func (g *Governor) Reset(domain string) {
	g.mu.Lock()
	delete(g.domains, domain)
	g.mu.Unlock()

	if err := g.store.Delete(context.Background(), domain); err != nil {
		g.logger.Warn("failed to delete stored domain state", "domain", domain, "error", err)
	}
	g.metrics.forgetDomain(domain)
}

// ResetAll clears every domain, including records persisted by earlier runs.
func (g *Governor) ResetAll() {
	g.mu.Lock()
	domains := make([]string, 0, len(g.domains))
	for domain := range g.domains {
		domains = append(domains, domain)
	}
	g.domains = make(map[string]*domainEntry)
	g.mu.Unlock()

	ctx := context.Background()
	stored, err := g.store.List(ctx)
	if err != nil {
		g.logger.Warn("failed to list stored domains", "error", err)
	}
	for _, domain := range stored {
		domains = append(domains, domain)
	}

	for _, domain := range domains {
		if err := g.store.Delete(ctx, domain); err != nil {
			g.logger.Warn("failed to delete stored domain state", "domain", domain, "error", err)
		}
		g.metrics.forgetDomain(domain)
	}
}

// UpdateConfig swaps the live configuration, clamping and re-bounding
// existing domain rates into the new [MinRate, MaxRate]. Wire this to a
// config.Watcher for hot reload.
func (g *Governor) UpdateConfig(cfg config.Config) {
	config.ApplyDefaults(&cfg)
	for _, w := range config.Validate(&cfg) {
		g.logger.Warn("config value adjusted", "adjustment", w)
	}

	g.cfgMu.Lock()
	g.cfg = cfg
	g.cfgMu.Unlock()

	g.mu.RLock()
	defer g.mu.RUnlock()
	for _, entry := range g.domains {
		entry.mu.Lock()
		entry.state.rate = clampRate(entry.state.rate, cfg.MinRate, cfg.MaxRate)
		entry.mu.Unlock()
	}

	g.logger.Info("configuration updated", "preset", cfg.Preset)
}

// Close releases backend resources. It is idempotent and never fails:
// teardown errors are logged because shutdown must complete regardless.
// Callers must not invoke Close concurrently with in-flight checks or
// reports on the same governor.
func (g *Governor) Close() {
	g.closeOnce.Do(func() {
		g.janitor.Stop()
		if err := g.store.Close(); err != nil {
			g.logger.Warn("error closing state backend", "error", err)
		}
		g.logger.Info("governor closed")
	})
}

// configSnapshot returns the live configuration. The returned pointer is to
// a copy; callers may read it without holding locks.
func (g *Governor) configSnapshot() *config.Config {
	g.cfgMu.RLock()
	cfg := g.cfg
	g.cfgMu.RUnlock()
	return &cfg
}

// entry returns the state entry for a domain, creating it with configured
// defaults on first touch.
func (g *Governor) entry(domain string, cfg *config.Config) *domainEntry {
	g.mu.RLock()
	entry, ok := g.domains[domain]
	g.mu.RUnlock()
	if ok {
		return entry
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if entry, ok = g.domains[domain]; ok {
		return entry
	}

	rate, burst := cfg.RateFor(domain)
	entry = &domainEntry{
		state: domainState{
			rate:    clampRate(rate, cfg.MinRate, cfg.MaxRate),
			burst:   burst,
			tokens:  float64(burst),
			circuit: CircuitClosed,
		},
	}
	g.domains[domain] = entry
	return entry
}

// ensureLoaded restores persisted state on the first touch of a domain.
// Caller holds the entry lock.
func (g *Governor) ensureLoaded(entry *domainEntry, domain string, cfg *config.Config) {
	if entry.loaded {
		return
	}
	entry.loaded = true

	rec, err := g.store.Load(context.Background(), domain)
	if err != nil {
		g.logger.Warn("failed to load stored domain state", "domain", domain, "error", err)
		return
	}
	if rec != nil {
		entry.state.restore(rec, cfg.MinRate, cfg.MaxRate)
	}
}

// persist saves a domain snapshot; failures are logged, never surfaced.
func (g *Governor) persist(rec *storage.DomainRecord) {
	if err := g.store.Save(context.Background(), rec); err != nil {
		g.logger.Warn("failed to persist domain state", "domain", rec.Domain, "error", err)
	}
}
