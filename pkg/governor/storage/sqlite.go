package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

// SQLiteBackend implements Backend using SQLite. It gives a single crawler
// instance durable state across restarts: a host that was circuit-broken
// five minutes before a deploy stays broken after it.
//
// The database runs in WAL mode for concurrent read performance. Records
// are stored as one JSON document per domain.
type SQLiteBackend struct {
	db        *sql.DB
	closeOnce sync.Once

	saveStmt    *sql.Stmt
	loadStmt    *sql.Stmt
	deleteStmt  *sql.Stmt
	listStmt    *sql.Stmt
	cleanupStmt *sql.Stmt
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS domain_state (
	domain     TEXT PRIMARY KEY,
	state      TEXT NOT NULL,
	updated_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_domain_state_updated ON domain_state(updated_at);
`

// NewSQLiteBackend opens (creating if needed) the database at path.
func NewSQLiteBackend(path string) (*SQLiteBackend, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	b := &SQLiteBackend{db: db}
	if err := b.prepareStatements(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return b, nil
}

func (b *SQLiteBackend) prepareStatements() error {
	var err error

	b.saveStmt, err = b.db.Prepare(
		`INSERT INTO domain_state (domain, state, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(domain) DO UPDATE SET state = excluded.state, updated_at = excluded.updated_at`)
	if err != nil {
		return fmt.Errorf("prepare save: %w", err)
	}

	b.loadStmt, err = b.db.Prepare(`SELECT state FROM domain_state WHERE domain = ?`)
	if err != nil {
		return fmt.Errorf("prepare load: %w", err)
	}

	b.deleteStmt, err = b.db.Prepare(`DELETE FROM domain_state WHERE domain = ?`)
	if err != nil {
		return fmt.Errorf("prepare delete: %w", err)
	}

	b.listStmt, err = b.db.Prepare(`SELECT domain FROM domain_state`)
	if err != nil {
		return fmt.Errorf("prepare list: %w", err)
	}

	b.cleanupStmt, err = b.db.Prepare(`DELETE FROM domain_state WHERE updated_at < ?`)
	if err != nil {
		return fmt.Errorf("prepare cleanup: %w", err)
	}

	return nil
}

// Save upserts the record for a domain.
func (b *SQLiteBackend) Save(ctx context.Context, rec *DomainRecord) error {
	if rec == nil || rec.Domain == "" {
		return fmt.Errorf("record must have a domain")
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal domain record: %w", err)
	}

	updatedAt := rec.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}

	if _, err := b.saveStmt.ExecContext(ctx, rec.Domain, string(data), updatedAt.UnixMilli()); err != nil {
		return fmt.Errorf("save domain %s: %w", rec.Domain, err)
	}
	return nil
}

// Load retrieves the record for a domain, or (nil, nil) when absent.
func (b *SQLiteBackend) Load(ctx context.Context, domain string) (*DomainRecord, error) {
	var data string
	err := b.loadStmt.QueryRowContext(ctx, domain).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load domain %s: %w", domain, err)
	}

	var rec DomainRecord
	if err := json.Unmarshal([]byte(data), &rec); err != nil {
		return nil, fmt.Errorf("decode domain %s: %w", domain, err)
	}
	return &rec, nil
}

// Delete removes the record for a domain.
func (b *SQLiteBackend) Delete(ctx context.Context, domain string) error {
	if _, err := b.deleteStmt.ExecContext(ctx, domain); err != nil {
		return fmt.Errorf("delete domain %s: %w", domain, err)
	}
	return nil
}

// List returns the domains with stored records.
func (b *SQLiteBackend) List(ctx context.Context) ([]string, error) {
	rows, err := b.listStmt.QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("list domains: %w", err)
	}
	defer rows.Close()

	var domains []string
	for rows.Next() {
		var domain string
		if err := rows.Scan(&domain); err != nil {
			return nil, fmt.Errorf("scan domain row: %w", err)
		}
		domains = append(domains, domain)
	}
	return domains, rows.Err()
}

// Cleanup removes records not updated since olderThan.
func (b *SQLiteBackend) Cleanup(ctx context.Context, olderThan time.Time) (int, error) {
	res, err := b.cleanupStmt.ExecContext(ctx, olderThan.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("cleanup: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

// Close releases prepared statements and the database handle. Safe to call
// more than once.
func (b *SQLiteBackend) Close() error {
	var err error
	b.closeOnce.Do(func() {
		for _, stmt := range []*sql.Stmt{b.saveStmt, b.loadStmt, b.deleteStmt, b.listStmt, b.cleanupStmt} {
			if stmt != nil {
				_ = stmt.Close()
			}
		}
		err = b.db.Close()
	})
	return err
}
