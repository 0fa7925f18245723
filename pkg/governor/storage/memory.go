package storage

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MemoryBackend implements Backend using an in-process map. This is the
// default backend; all state is lost when the process exits.
type MemoryBackend struct {
	mu      sync.RWMutex
	records map[string]*DomainRecord

	// maxEntries bounds the map; the stalest record is evicted when the
	// bound is hit.
	maxEntries int
}

// NewMemoryBackend creates an in-memory backend with a default entry bound.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		records:    make(map[string]*DomainRecord),
		maxEntries: 100000,
	}
}

// Save persists the record for a domain.
func (m *MemoryBackend) Save(ctx context.Context, rec *DomainRecord) error {
	if rec == nil {
		return fmt.Errorf("record cannot be nil")
	}
	if rec.Domain == "" {
		return fmt.Errorf("domain cannot be empty")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.records[rec.Domain]; !exists && len(m.records) >= m.maxEntries {
		m.evictStalestLocked()
	}

	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = time.Now()
	}
	m.records[rec.Domain] = rec
	return nil
}

// Load retrieves the record for a domain, or (nil, nil) when absent.
func (m *MemoryBackend) Load(ctx context.Context, domain string) (*DomainRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.records[domain]
	if !ok {
		return nil, nil
	}
	return rec, nil
}

// Delete removes the record for a domain.
func (m *MemoryBackend) Delete(ctx context.Context, domain string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.records, domain)
	return nil
}

// List returns the domains with stored records.
func (m *MemoryBackend) List(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	domains := make([]string, 0, len(m.records))
	for domain := range m.records {
		domains = append(domains, domain)
	}
	return domains, nil
}

// Cleanup removes records not updated since olderThan.
func (m *MemoryBackend) Cleanup(ctx context.Context, olderThan time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	deleted := 0
	for domain, rec := range m.records {
		if rec.UpdatedAt.Before(olderThan) {
			delete(m.records, domain)
			deleted++
		}
	}
	return deleted, nil
}

// Close releases nothing for the memory backend.
func (m *MemoryBackend) Close() error { return nil }

// Size returns the current number of stored records, for monitoring and
// tests.
func (m *MemoryBackend) Size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}

// evictStalestLocked drops the least recently updated record.
// Caller must hold the write lock.
func (m *MemoryBackend) evictStalestLocked() {
	var (
		stalestKey  string
		stalestTime time.Time
		found       bool
	)
	for domain, rec := range m.records {
		if !found || rec.UpdatedAt.Before(stalestTime) {
			stalestKey = domain
			stalestTime = rec.UpdatedAt
			found = true
		}
	}
	if found {
		delete(m.records, stalestKey)
	}
}
