package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func sampleRecord(domain string, updatedAt time.Time) *DomainRecord {
	return &DomainRecord{
		Domain:              domain,
		Rate:                5,
		Burst:               10,
		Tokens:              7.5,
		LastRefill:          updatedAt,
		Circuit:             "closed",
		ConsecutiveFailures: 1,
		Recent: []ResultSample{
			{Timestamp: updatedAt, ResponseTime: 80 * time.Millisecond, StatusCode: 200, Success: true},
		},
		UpdatedAt: updatedAt,
	}
}

// testBackendCRUD exercises the Backend contract shared by all
// implementations.
func testBackendCRUD(t *testing.T, backend Backend) {
	t.Helper()
	ctx := context.Background()
	now := time.Now().Truncate(time.Millisecond)

	// Load of an unknown domain is (nil, nil), not an error.
	rec, err := backend.Load(ctx, "missing.example.com")
	if err != nil {
		t.Fatalf("load missing: %v", err)
	}
	if rec != nil {
		t.Fatal("expected nil record for missing domain")
	}

	if err := backend.Save(ctx, sampleRecord("a.example.com", now)); err != nil {
		t.Fatalf("save: %v", err)
	}

	rec, err = backend.Load(ctx, "a.example.com")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if rec == nil {
		t.Fatal("expected record after save")
	}
	if rec.Tokens != 7.5 || rec.ConsecutiveFailures != 1 {
		t.Errorf("record did not round-trip: %+v", rec)
	}
	if len(rec.Recent) != 1 || rec.Recent[0].ResponseTime != 80*time.Millisecond {
		t.Errorf("result window did not round-trip: %+v", rec.Recent)
	}

	// Save replaces.
	updated := sampleRecord("a.example.com", now)
	updated.Tokens = 2
	if err := backend.Save(ctx, updated); err != nil {
		t.Fatalf("resave: %v", err)
	}
	rec, _ = backend.Load(ctx, "a.example.com")
	if rec.Tokens != 2 {
		t.Errorf("expected replaced record, got tokens %g", rec.Tokens)
	}

	if err := backend.Save(ctx, sampleRecord("b.example.com", now)); err != nil {
		t.Fatalf("save second: %v", err)
	}

	domains, err := backend.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(domains) != 2 {
		t.Errorf("expected 2 domains, got %v", domains)
	}

	if err := backend.Delete(ctx, "a.example.com"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	rec, err = backend.Load(ctx, "a.example.com")
	if err != nil || rec != nil {
		t.Errorf("expected domain gone after delete, got rec=%v err=%v", rec, err)
	}

	// Delete of a missing domain is a no-op.
	if err := backend.Delete(ctx, "missing.example.com"); err != nil {
		t.Errorf("delete missing: %v", err)
	}
}

func testBackendCleanup(t *testing.T, backend Backend) {
	t.Helper()
	ctx := context.Background()
	now := time.Now()

	if err := backend.Save(ctx, sampleRecord("stale.example.com", now.Add(-2*time.Hour))); err != nil {
		t.Fatalf("save stale: %v", err)
	}
	if err := backend.Save(ctx, sampleRecord("fresh.example.com", now)); err != nil {
		t.Fatalf("save fresh: %v", err)
	}

	deleted, err := backend.Cleanup(ctx, now.Add(-time.Hour))
	if err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if deleted != 1 {
		t.Errorf("expected 1 deleted, got %d", deleted)
	}

	if rec, _ := backend.Load(ctx, "stale.example.com"); rec != nil {
		t.Error("expected stale record pruned")
	}
	if rec, _ := backend.Load(ctx, "fresh.example.com"); rec == nil {
		t.Error("expected fresh record kept")
	}
}

// ============================================================================
// Memory Backend
// ============================================================================

func TestMemoryBackend_CRUD(t *testing.T) {
	testBackendCRUD(t, NewMemoryBackend())
}

func TestMemoryBackend_Cleanup(t *testing.T) {
	testBackendCleanup(t, NewMemoryBackend())
}

func TestMemoryBackend_SaveValidation(t *testing.T) {
	backend := NewMemoryBackend()
	ctx := context.Background()

	if err := backend.Save(ctx, nil); err == nil {
		t.Error("expected error for nil record")
	}
	if err := backend.Save(ctx, &DomainRecord{}); err == nil {
		t.Error("expected error for empty domain")
	}
}

// ============================================================================
// SQLite Backend
// ============================================================================

func newTestSQLite(t *testing.T) *SQLiteBackend {
	t.Helper()
	backend, err := NewSQLiteBackend(filepath.Join(t.TempDir(), "state.db"))
	if err != nil {
		t.Fatalf("open sqlite backend: %v", err)
	}
	t.Cleanup(func() { _ = backend.Close() })
	return backend
}

func TestSQLiteBackend_CRUD(t *testing.T) {
	testBackendCRUD(t, newTestSQLite(t))
}

func TestSQLiteBackend_Cleanup(t *testing.T) {
	testBackendCleanup(t, newTestSQLite(t))
}

func TestSQLiteBackend_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")
	ctx := context.Background()

	first, err := NewSQLiteBackend(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := first.Save(ctx, sampleRecord("durable.example.com", time.Now())); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	second, err := NewSQLiteBackend(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer second.Close()

	rec, err := second.Load(ctx, "durable.example.com")
	if err != nil {
		t.Fatalf("load after reopen: %v", err)
	}
	if rec == nil || rec.Rate != 5 {
		t.Errorf("expected record to survive reopen, got %+v", rec)
	}
}

func TestSQLiteBackend_CloseIdempotent(t *testing.T) {
	backend := newTestSQLite(t)
	if err := backend.Close(); err != nil {
		t.Fatalf("first close: %v", err)
	}
	if err := backend.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
}

// ============================================================================
// Fallback
// ============================================================================

// failingBackend simulates a backend whose availability can be toggled.
type failingBackend struct {
	inner *MemoryBackend
	down  bool
}

var errBackendDown = errors.New("backend down")

func (f *failingBackend) Save(ctx context.Context, rec *DomainRecord) error {
	if f.down {
		return errBackendDown
	}
	return f.inner.Save(ctx, rec)
}

func (f *failingBackend) Load(ctx context.Context, domain string) (*DomainRecord, error) {
	if f.down {
		return nil, errBackendDown
	}
	return f.inner.Load(ctx, domain)
}

func (f *failingBackend) Delete(ctx context.Context, domain string) error {
	if f.down {
		return errBackendDown
	}
	return f.inner.Delete(ctx, domain)
}

func (f *failingBackend) List(ctx context.Context) ([]string, error) {
	if f.down {
		return nil, errBackendDown
	}
	return f.inner.List(ctx)
}

func (f *failingBackend) Cleanup(ctx context.Context, olderThan time.Time) (int, error) {
	if f.down {
		return 0, errBackendDown
	}
	return f.inner.Cleanup(ctx, olderThan)
}

func (f *failingBackend) Close() error { return nil }

func TestFallback_DegradesToShadow(t *testing.T) {
	primary := &failingBackend{inner: NewMemoryBackend()}
	degradations := 0
	fb := NewFallback(primary, time.Hour, func() { degradations++ })
	ctx := context.Background()

	// Healthy: writes reach the primary.
	if err := fb.Save(ctx, sampleRecord("a.example.com", time.Now())); err != nil {
		t.Fatalf("save: %v", err)
	}
	if rec, _ := primary.inner.Load(ctx, "a.example.com"); rec == nil {
		t.Fatal("expected write-through to primary")
	}

	// Primary dies: operations keep succeeding from the shadow.
	primary.down = true
	if err := fb.Save(ctx, sampleRecord("b.example.com", time.Now())); err != nil {
		t.Fatalf("save while degraded: %v", err)
	}
	if !fb.Degraded() {
		t.Fatal("expected degraded state")
	}
	if degradations != 1 {
		t.Errorf("expected 1 degradation callback, got %d", degradations)
	}

	rec, err := fb.Load(ctx, "b.example.com")
	if err != nil || rec == nil {
		t.Fatalf("expected shadow to serve while degraded, got rec=%v err=%v", rec, err)
	}

	// Warm shadow also covers records written before the outage.
	rec, err = fb.Load(ctx, "a.example.com")
	if err != nil || rec == nil {
		t.Fatalf("expected pre-outage record from shadow, got rec=%v err=%v", rec, err)
	}
}

func TestFallback_RecoversAfterProbe(t *testing.T) {
	primary := &failingBackend{inner: NewMemoryBackend()}
	fb := NewFallback(primary, 0, nil) // probe on every operation
	ctx := context.Background()

	primary.down = true
	_, _ = fb.Load(ctx, "x.example.com")
	if !fb.Degraded() {
		t.Fatal("expected degraded state")
	}

	primary.down = false
	if _, err := fb.Load(ctx, "x.example.com"); err != nil {
		t.Fatalf("load after recovery: %v", err)
	}
	if fb.Degraded() {
		t.Error("expected recovery after successful probe")
	}
}

func TestFallback_DegradationCallbackFiresOncePerOutage(t *testing.T) {
	primary := &failingBackend{inner: NewMemoryBackend()}
	degradations := 0
	fb := NewFallback(primary, 0, func() { degradations++ })
	ctx := context.Background()

	primary.down = true
	for i := 0; i < 5; i++ {
		_, _ = fb.Load(ctx, "x.example.com")
	}
	if degradations != 1 {
		t.Errorf("expected a single callback for a continuous outage, got %d", degradations)
	}
}
