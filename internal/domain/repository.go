// Package domain defines the core interfaces and types for Lendscore.
package domain

import (
	"context"
	"errors"
	"time"
)

// ErrArtifactNotFound is returned when no version of an artifact is stored.
var ErrArtifactNotFound = errors.New("artifact not found")

// ArtifactRepository stores versioned model artifacts.
// It is a registry for the prediction service; applicant data is never stored.
type ArtifactRepository interface {
	// SaveArtifact inserts or replaces an artifact version.
	SaveArtifact(ctx context.Context, artifact *Artifact) error

	// GetArtifact returns the most recent version of a named artifact.
	GetArtifact(ctx context.Context, name string) (*Artifact, error)

	// ListArtifacts returns every stored artifact version without payloads.
	ListArtifacts(ctx context.Context) ([]*Artifact, error)

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// Artifact is one serialized model component (columns, scaler or classifier).
type Artifact struct {
	Name      string    `json:"name"`
	Version   string    `json:"version"`
	Checksum  string    `json:"checksum"`
	Payload   []byte    `json:"-"`
	CreatedAt time.Time `json:"createdAt"`
}

// RepositoryConfig holds configuration for repository initialization.
type RepositoryConfig struct {
	// Driver is the database driver: "sqlite" or "postgres"
	Driver string `koanf:"driver"`

	// SQLite specific
	SQLitePath string `koanf:"sqlite_path"`

	// PostgreSQL specific
	PostgresHost     string `koanf:"postgres_host"`
	PostgresPort     int    `koanf:"postgres_port"`
	PostgresUser     string `koanf:"postgres_user"`
	PostgresPassword string `koanf:"postgres_password"`
	PostgresDB       string `koanf:"postgres_db"`
	PostgresSSLMode  string `koanf:"postgres_sslmode"`

	// Connection pool settings
	MaxOpenConns    int           `koanf:"max_open_conns"`
	MaxIdleConns    int           `koanf:"max_idle_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
}
