package storage

import (
	"context"
	"time"
)

// Backend is the interface for domain state persistence.
// Implementations must be safe for concurrent use.
type Backend interface {
	// Save persists the record for a domain, replacing any existing one.
	Save(ctx context.Context, rec *DomainRecord) error

	// Load retrieves the record for a domain.
	// Returns (nil, nil) when no record exists.
	Load(ctx context.Context, domain string) (*DomainRecord, error)

	// Delete removes the record for a domain. No-op if absent.
	Delete(ctx context.Context, domain string) error

	// List returns the domains that currently have records.
	List(ctx context.Context) ([]string, error)

	// Cleanup removes records not updated since olderThan and reports how
	// many were removed.
	Cleanup(ctx context.Context, olderThan time.Time) (int, error)

	// Close releases backend resources. The backend must not be used after
	// Close returns.
	Close() error
}

// DomainRecord is the serialized governor state for one domain.
type DomainRecord struct {
	Domain string `json:"domain"`

	// Token bucket
	Rate       float64   `json:"rate"`
	Burst      int       `json:"burst"`
	Tokens     float64   `json:"tokens"`
	LastRefill time.Time `json:"last_refill"`

	// Circuit breaker
	Circuit             string    `json:"circuit"`
	ConsecutiveFailures int       `json:"consecutive_failures"`
	OpenedAt            time.Time `json:"opened_at,omitzero"`
	HalfOpenSuccesses   int       `json:"half_open_successes"`

	// Rolling result window
	Recent []ResultSample `json:"recent,omitempty"`

	UpdatedAt time.Time `json:"updated_at"`
}

// ResultSample is one entry in a domain's rolling result window.
type ResultSample struct {
	Timestamp    time.Time     `json:"ts"`
	ResponseTime time.Duration `json:"rt"`
	StatusCode   int           `json:"status"`
	Success      bool          `json:"success"`
	RetryCount   int           `json:"retries"`
}
