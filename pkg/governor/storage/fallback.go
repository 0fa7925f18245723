package storage

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Fallback wraps a primary backend with an in-memory shadow. Every write
// goes to the shadow as well as the primary, so when the primary fails the
// shadow is already warm. A degraded Fallback serves from the shadow and
// re-probes the primary at the configured interval.
//
// Degradation is a design decision, not an error: the governor must keep
// pacing the crawl even with its backend gone, so backend failures are
// logged and counted rather than propagated.
type Fallback struct {
	primary Backend
	shadow  *MemoryBackend

	probeInterval time.Duration
	logger        *slog.Logger

	// onDegrade is invoked once per transition into degraded mode.
	onDegrade func()

	degraded atomic.Bool

	mu        sync.Mutex
	nextProbe time.Time
}

// NewFallback wraps primary. onDegrade may be nil.
func NewFallback(primary Backend, probeInterval time.Duration, onDegrade func()) *Fallback {
	return &Fallback{
		primary:       primary,
		shadow:        NewMemoryBackend(),
		probeInterval: probeInterval,
		logger:        slog.Default().With("component", "storage.fallback"),
		onDegrade:     onDegrade,
	}
}

// Degraded reports whether the wrapper is currently serving from the shadow.
func (f *Fallback) Degraded() bool { return f.degraded.Load() }

// usePrimary decides whether this operation should try the primary backend.
// While degraded, only one operation per probe interval goes to the primary.
func (f *Fallback) usePrimary() bool {
	if !f.degraded.Load() {
		return true
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	now := time.Now()
	if now.Before(f.nextProbe) {
		return false
	}
	f.nextProbe = now.Add(f.probeInterval)
	return true
}

func (f *Fallback) markDegraded(op string, err error) {
	if f.degraded.CompareAndSwap(false, true) {
		f.logger.Warn("state backend unavailable, degrading to in-memory state",
			"op", op,
			"error", err,
		)
		if f.onDegrade != nil {
			f.onDegrade()
		}
	}
	f.mu.Lock()
	f.nextProbe = time.Now().Add(f.probeInterval)
	f.mu.Unlock()
}

func (f *Fallback) markRecovered() {
	if f.degraded.CompareAndSwap(true, false) {
		f.logger.Info("state backend recovered")
	}
}

// Save writes through to the shadow, then the primary when reachable.
func (f *Fallback) Save(ctx context.Context, rec *DomainRecord) error {
	if err := f.shadow.Save(ctx, rec); err != nil {
		return err
	}

	if f.usePrimary() {
		if err := f.primary.Save(ctx, rec); err != nil {
			f.markDegraded("save", err)
		} else {
			f.markRecovered()
		}
	}
	return nil
}

// Load prefers the primary, falling back to the shadow on failure or while
// degraded.
func (f *Fallback) Load(ctx context.Context, domain string) (*DomainRecord, error) {
	if f.usePrimary() {
		rec, err := f.primary.Load(ctx, domain)
		if err == nil {
			f.markRecovered()
			return rec, nil
		}
		f.markDegraded("load", err)
	}
	return f.shadow.Load(ctx, domain)
}

// Delete removes from both stores.
func (f *Fallback) Delete(ctx context.Context, domain string) error {
	_ = f.shadow.Delete(ctx, domain)

	if f.usePrimary() {
		if err := f.primary.Delete(ctx, domain); err != nil {
			f.markDegraded("delete", err)
		} else {
			f.markRecovered()
		}
	}
	return nil
}

// List returns primary contents when reachable, shadow contents otherwise.
func (f *Fallback) List(ctx context.Context) ([]string, error) {
	if f.usePrimary() {
		domains, err := f.primary.List(ctx)
		if err == nil {
			f.markRecovered()
			return domains, nil
		}
		f.markDegraded("list", err)
	}
	return f.shadow.List(ctx)
}

// Cleanup prunes both stores. The shadow count is reported when the primary
// is unreachable.
func (f *Fallback) Cleanup(ctx context.Context, olderThan time.Time) (int, error) {
	shadowDeleted, _ := f.shadow.Cleanup(ctx, olderThan)

	if f.usePrimary() {
		deleted, err := f.primary.Cleanup(ctx, olderThan)
		if err == nil {
			f.markRecovered()
			return deleted, nil
		}
		f.markDegraded("cleanup", err)
	}
	return shadowDeleted, nil
}

// Close closes the primary; shadow needs no teardown.
func (f *Fallback) Close() error {
	return f.primary.Close()
}
