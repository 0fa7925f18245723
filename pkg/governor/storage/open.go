package storage

import (
	"log/slog"

	"crawlhq/pacer/pkg/config"
)

// Open builds the backend selected by the configuration.
//
// Remote backends (redis, sqlite) are wrapped in a Fallback so that a
// backend that is down at startup — or goes down later — degrades to
// in-memory state instead of failing the governor. onDegrade, which may be
// nil, is invoked on each transition into degraded mode.
func Open(cfg config.StorageConfig, onDegrade func()) Backend {
	logger := slog.Default().With("component", "storage")

	switch cfg.Backend {
	case "redis":
		primary, err := NewRedisBackend(cfg.Redis)
		if err != nil {
			logger.Warn("redis backend unavailable at startup, using in-memory state",
				"addr", cfg.Redis.Addr,
				"error", err,
			)
			if onDegrade != nil {
				onDegrade()
			}
			return NewMemoryBackend()
		}
		return NewFallback(primary, cfg.ProbeInterval, onDegrade)

	case "sqlite":
		primary, err := NewSQLiteBackend(cfg.SQLite.Path)
		if err != nil {
			logger.Warn("sqlite backend unavailable at startup, using in-memory state",
				"path", cfg.SQLite.Path,
				"error", err,
			)
			if onDegrade != nil {
				onDegrade()
			}
			return NewMemoryBackend()
		}
		return NewFallback(primary, cfg.ProbeInterval, onDegrade)

	default:
		return NewMemoryBackend()
	}
}
