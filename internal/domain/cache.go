package domain

import (
	"context"
	"time"
)

// Cache defines the interface for the short-lived report store.
// Supports a local LRU, Redis, or both (two-phase).
type Cache interface {
	// Get retrieves a value from cache.
	// Returns nil, nil if key not found.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value in cache with expiration.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a value from cache.
	Delete(ctx context.Context, key string) error

	// GetReport retrieves a rendered report by assessment ID.
	// Returns nil, nil once the report has expired.
	GetReport(ctx context.Context, assessmentID string) (*StoredReport, error)

	// SetReport keeps a rendered report downloadable for ttl.
	SetReport(ctx context.Context, assessmentID string, report *StoredReport, ttl time.Duration) error

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// StoredReport is a rendered report waiting to be downloaded.
type StoredReport struct {
	FileName    string `json:"fileName"`
	ContentType string `json:"contentType"`
	Score       int    `json:"score"`
	Data        []byte `json:"data"`
}

// CacheConfig holds configuration for cache initialization.
type CacheConfig struct {
	// Type is the cache type: "memory" or "redis"
	Type string `koanf:"type"`

	// Local LRU cache settings
	LocalMaxSize int           `koanf:"local_max_size"`
	LocalTTL     time.Duration `koanf:"local_ttl"`

	// Redis settings
	RedisAddr     string `koanf:"redis_addr"`
	RedisPassword string `koanf:"redis_password"`
	RedisDB       int    `koanf:"redis_db"`

	// Two-phase settings
	EnableTwoPhase bool `koanf:"enable_two_phase"` // If true, check local first, then Redis
}
