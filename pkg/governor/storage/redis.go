package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"crawlhq/pacer/pkg/config"
)

// RedisBackend implements Backend against a Redis-compatible store. Records
// are stored as JSON values with a TTL, so the store expires stale domain
// state on its own. Multiple crawler instances pointed at the same Redis
// share warm state for hosts they have all seen.
type RedisBackend struct {
	rdb       *redis.Client
	keyPrefix string
	ttl       time.Duration
	opTimeout time.Duration
}

// NewRedisBackend connects to Redis and verifies the connection with a ping.
// A failed ping returns an error; callers usually wrap the backend in a
// Fallback so this is a degradation, not a startup failure.
func NewRedisBackend(cfg config.RedisConfig) (*RedisBackend, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: cfg.DialTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), cfg.DialTimeout)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis %s: %w", cfg.Addr, err)
	}

	return &RedisBackend{
		rdb:       rdb,
		keyPrefix: strings.Trim(cfg.KeyPrefix, ":"),
		ttl:       cfg.TTL,
		opTimeout: cfg.OpTimeout,
	}, nil
}

func (r *RedisBackend) key(domain string) string {
	return r.keyPrefix + ":domain:" + domain
}

func (r *RedisBackend) opCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.opTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, r.opTimeout)
}

// Save stores the record as JSON under the domain key, refreshing its TTL.
func (r *RedisBackend) Save(ctx context.Context, rec *DomainRecord) error {
	if rec == nil || rec.Domain == "" {
		return fmt.Errorf("record must have a domain")
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal domain record: %w", err)
	}

	ctx, cancel := r.opCtx(ctx)
	defer cancel()
	if err := r.rdb.Set(ctx, r.key(rec.Domain), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("save domain %s: %w", rec.Domain, err)
	}
	return nil
}

// Load retrieves and decodes the record for a domain.
func (r *RedisBackend) Load(ctx context.Context, domain string) (*DomainRecord, error) {
	ctx, cancel := r.opCtx(ctx)
	defer cancel()

	data, err := r.rdb.Get(ctx, r.key(domain)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load domain %s: %w", domain, err)
	}

	var rec DomainRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode domain %s: %w", domain, err)
	}
	return &rec, nil
}

// Delete removes the record for a domain.
func (r *RedisBackend) Delete(ctx context.Context, domain string) error {
	ctx, cancel := r.opCtx(ctx)
	defer cancel()

	if err := r.rdb.Del(ctx, r.key(domain)).Err(); err != nil {
		return fmt.Errorf("delete domain %s: %w", domain, err)
	}
	return nil
}

// List scans for all domain keys under the configured prefix.
func (r *RedisBackend) List(ctx context.Context) ([]string, error) {
	prefix := r.keyPrefix + ":domain:"

	var domains []string
	iter := r.rdb.Scan(ctx, 0, prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		domains = append(domains, strings.TrimPrefix(iter.Val(), prefix))
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("scan domains: %w", err)
	}
	return domains, nil
}

// Cleanup removes records not updated since olderThan. TTL expiry already
// bounds state lifetime; this lets the janitor prune earlier than the TTL.
func (r *RedisBackend) Cleanup(ctx context.Context, olderThan time.Time) (int, error) {
	domains, err := r.List(ctx)
	if err != nil {
		return 0, err
	}

	deleted := 0
	for _, domain := range domains {
		rec, err := r.Load(ctx, domain)
		if err != nil || rec == nil {
			continue
		}
		if rec.UpdatedAt.Before(olderThan) {
			if err := r.Delete(ctx, domain); err == nil {
				deleted++
			}
		}
	}
	return deleted, nil
}

// Close releases the Redis client.
func (r *RedisBackend) Close() error {
	return r.rdb.Close()
}
