package model

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/opensource-finance/lendscore/internal/domain"
)

// Artifact names. The file source appends ".json".
const (
	ArtifactColumns = "columns"
	ArtifactScaler  = "scaler"
	ArtifactModel   = "model"
)

// ArtifactNames returns the artifacts a bundle needs, in load order.
func ArtifactNames() []string {
	return []string{ArtifactColumns, ArtifactScaler, ArtifactModel}
}

// Source reads raw artifact payloads.
type Source interface {
	Read(ctx context.Context, name string) ([]byte, error)
	String() string
}

// FileSource reads <Dir>/<name>.json.
type FileSource struct {
	Dir string
}

// Read implements Source.
func (s FileSource) Read(_ context.Context, name string) ([]byte, error) {
	data, err := os.ReadFile(s.Path(name))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return data, nil
}

// Path returns the file path of a named artifact.
func (s FileSource) Path(name string) string {
	return filepath.Join(s.Dir, name+".json")
}

func (s FileSource) String() string {
	return "file:" + s.Dir
}

// RepositorySource reads the latest artifact versions from the SQL registry.
type RepositorySource struct {
	Repo domain.ArtifactRepository
}

// Read implements Source.
func (s RepositorySource) Read(ctx context.Context, name string) ([]byte, error) {
	artifact, err := s.Repo.GetArtifact(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return artifact.Payload, nil
}

func (s RepositorySource) String() string {
	return "repository"
}
