// Package repository provides the SQL model artifact registry.
package repository

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/opensource-finance/lendscore/internal/domain"
)

var ErrInvalidInput = errors.New("invalid input")

// SQLRepository implements domain.ArtifactRepository using database/sql.
// Works with both SQLite and PostgreSQL drivers.
type SQLRepository struct {
	db     *sql.DB
	driver string
}

// New opens the configured database and runs migrations.
func New(cfg domain.RepositoryConfig) (domain.ArtifactRepository, error) {
	var db *sql.DB
	var err error

	switch cfg.Driver {
	case "sqlite":
		db, err = openSQLite(cfg)
	case "postgres":
		db, err = openPostgres(cfg)
	default:
		return nil, fmt.Errorf("unsupported driver: %s", cfg.Driver)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	repo := NewWithDB(db, cfg.Driver)

	if err := repo.Migrate(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return repo, nil
}

// NewWithDB wraps an open connection. Migrations are not run.
func NewWithDB(db *sql.DB, driver string) *SQLRepository {
	return &SQLRepository{
		db:     db,
		driver: driver,
	}
}

// Migrate creates the artifact tables if they do not exist.
func (r *SQLRepository) Migrate(ctx context.Context) error {
	for _, schema := range AllSchemas() {
		if _, err := r.db.ExecContext(ctx, schema); err != nil {
			return err
		}
	}
	return nil
}

// SaveArtifact stores an artifact version. An empty version defaults to a
// prefix of the payload checksum; saving the same version again replaces it.
func (r *SQLRepository) SaveArtifact(ctx context.Context, a *domain.Artifact) error {
	if a.Name == "" {
		return fmt.Errorf("%w: artifact name is required", ErrInvalidInput)
	}
	if len(a.Payload) == 0 {
		return fmt.Errorf("%w: artifact payload is empty", ErrInvalidInput)
	}

	sum := sha256.Sum256(a.Payload)
	a.Checksum = hex.EncodeToString(sum[:])
	if a.Version == "" {
		a.Version = a.Checksum[:12]
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO model_artifacts (name, version, checksum, payload, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(name, version) DO UPDATE SET
			checksum = excluded.checksum,
			payload = excluded.payload,
			created_at = excluded.created_at
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		a.Name, a.Version, a.Checksum, string(a.Payload), a.CreatedAt,
	)
	return err
}

// GetArtifact returns the most recently stored version of name.
func (r *SQLRepository) GetArtifact(ctx context.Context, name string) (*domain.Artifact, error) {
	query := `
		SELECT name, version, checksum, payload, created_at
		FROM model_artifacts
		WHERE name = ?
		ORDER BY created_at DESC, version DESC
		LIMIT 1
	`

	var a domain.Artifact
	var payload string

	err := r.db.QueryRowContext(ctx, r.rebind(query), name).Scan(
		&a.Name, &a.Version, &a.Checksum, &payload, &a.CreatedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", domain.ErrArtifactNotFound, name)
	}
	if err != nil {
		return nil, err
	}

	a.Payload = []byte(payload)
	return &a, nil
}

// ListArtifacts returns every stored version, newest first per name.
// Payloads are not loaded.
func (r *SQLRepository) ListArtifacts(ctx context.Context) ([]*domain.Artifact, error) {
	query := `
		SELECT name, version, checksum, created_at
		FROM model_artifacts
		ORDER BY name, created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var artifacts []*domain.Artifact
	for rows.Next() {
		var a domain.Artifact
		if err := rows.Scan(&a.Name, &a.Version, &a.Checksum, &a.CreatedAt); err != nil {
			return nil, err
		}
		artifacts = append(artifacts, &a)
	}

	return artifacts, rows.Err()
}

// Ping checks database connectivity.
func (r *SQLRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close closes the database connection.
func (r *SQLRepository) Close() error {
	return r.db.Close()
}

// rebind converts ? placeholders to $1, $2, etc. for PostgreSQL.
func (r *SQLRepository) rebind(query string) string {
	if r.driver != "postgres" {
		return query
	}

	var result []byte
	n := 1
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			result = append(result, '$')
			result = strconv.AppendInt(result, int64(n), 10)
			n++
		} else {
			result = append(result, query[i])
		}
	}
	return string(result)
}
