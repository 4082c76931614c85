package model

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opensource-finance/lendscore/internal/domain"
)

const (
	twoColumns = `["a","b"]`
	unitScaler = `{"kind":"standard","mean":[0,0],"scale":[1,1]}`
	linear     = `{"kind":"logistic","coefficients":[1,-1],"intercept":0}`
	stump      = `{"kind":"tree_ensemble","base_score":0,"trees":[{"nodes":[
		{"feature":0,"threshold":0.5,"left":1,"right":2},
		{"leaf":true,"value":-1},
		{"leaf":true,"value":1}]}]}`
)

func writeBundle(t *testing.T, artifacts map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, body := range artifacts {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name+".json"), []byte(body), 0o644))
	}
	return dir
}

func loadBundle(t *testing.T, columns, scaler, model string) (*Bundle, error) {
	t.Helper()
	dir := writeBundle(t, map[string]string{
		ArtifactColumns: columns,
		ArtifactScaler:  scaler,
		ArtifactModel:   model,
	})
	return Load(context.Background(), FileSource{Dir: dir})
}

func sigmoidOf(z float64) float64 { return 1 / (1 + math.Exp(-z)) }

func TestLoadLogistic(t *testing.T) {
	b, err := loadBundle(t, twoColumns, unitScaler, linear)
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b"}, b.Columns())
	assert.Equal(t, KindLogistic, b.Kind())
	assert.Contains(t, b.Source(), "file:")

	p, err := b.Predict(map[string]any{"a": 1.0, "b": 1.0})
	require.NoError(t, err)
	assert.InDelta(t, 0.5, p, 1e-12)

	p, err = b.Predict(map[string]any{"a": 2.0, "b": 0.0, "extra": "ignored"})
	require.NoError(t, err)
	assert.InDelta(t, sigmoidOf(2), p, 1e-12)
}

func TestColumnsIsCopy(t *testing.T) {
	b, err := loadBundle(t, twoColumns, unitScaler, linear)
	require.NoError(t, err)

	cols := b.Columns()
	cols[0] = "mutated"
	assert.Equal(t, "a", b.Columns()[0])
}

func TestScalerApplied(t *testing.T) {
	b, err := loadBundle(t, twoColumns, `{"kind":"standard","mean":[10,0],"scale":[2,0]}`, linear)
	require.NoError(t, err)

	// a -> (14-10)/2 = 2, b -> zero scale treated as 1 -> 1
	p, err := b.Predict(map[string]any{"a": 14.0, "b": 1.0})
	require.NoError(t, err)
	assert.InDelta(t, sigmoidOf(1), p, 1e-12)
}

func TestTreeEnsemble(t *testing.T) {
	b, err := loadBundle(t, twoColumns, unitScaler, stump)
	require.NoError(t, err)
	assert.Equal(t, KindTreeEnsemble, b.Kind())

	p, err := b.Predict(map[string]any{"a": 0.0, "b": 0.0})
	require.NoError(t, err)
	assert.InDelta(t, sigmoidOf(-1), p, 1e-12)

	// Equal to the threshold goes left.
	p, err = b.Predict(map[string]any{"a": 0.5, "b": 0.0})
	require.NoError(t, err)
	assert.InDelta(t, sigmoidOf(-1), p, 1e-12)

	p, err = b.Predict(map[string]any{"a": 3.0, "b": 0.0})
	require.NoError(t, err)
	assert.InDelta(t, sigmoidOf(1), p, 1e-12)
}

func TestPredictInvalidPayload(t *testing.T) {
	b, err := loadBundle(t, twoColumns, unitScaler, linear)
	require.NoError(t, err)

	tests := []struct {
		name    string
		payload map[string]any
	}{
		{"missing column", map[string]any{"a": 1.0}},
		{"string value", map[string]any{"a": 1.0, "b": "high"}},
		{"bool value", map[string]any{"a": true, "b": 1.0}},
		{"null value", map[string]any{"a": nil, "b": 1.0}},
		{"not finite", map[string]any{"a": math.Inf(1), "b": 1.0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := b.Predict(tt.payload)
			assert.ErrorIs(t, err, ErrInvalidPayload)
		})
	}
}

func TestPredictNumericTypes(t *testing.T) {
	b, err := loadBundle(t, twoColumns, unitScaler, linear)
	require.NoError(t, err)

	p, err := b.Predict(map[string]any{"a": json.Number("2"), "b": 1})
	require.NoError(t, err)
	assert.InDelta(t, sigmoidOf(1), p, 1e-12)
}

func TestLoadFailures(t *testing.T) {
	tests := []struct {
		name    string
		columns string
		scaler  string
		model   string
		failed  []string
	}{
		{"scaler width", twoColumns, `{"kind":"standard","mean":[0],"scale":[1]}`, linear, []string{ArtifactScaler}},
		{"coefficient width", twoColumns, unitScaler, `{"kind":"logistic","coefficients":[1],"intercept":0}`, []string{ArtifactModel}},
		{"unknown kind", twoColumns, unitScaler, `{"kind":"svm","coefficients":[1,1],"intercept":0}`, []string{ArtifactModel}},
		{"tree cycle", twoColumns, unitScaler, `{"kind":"tree_ensemble","trees":[{"nodes":[{"feature":0,"threshold":1,"left":0,"right":0}]}]}`, []string{ArtifactModel}},
		{"tree feature range", twoColumns, unitScaler, `{"kind":"tree_ensemble","trees":[{"nodes":[{"feature":5,"threshold":1,"left":1,"right":2},{"leaf":true},{"leaf":true}]}]}`, []string{ArtifactModel}},
		{"empty columns", `[]`, unitScaler, linear, []string{ArtifactColumns, ArtifactScaler, ArtifactModel}},
		{"malformed json", twoColumns, `{"kind":`, linear, []string{ArtifactScaler}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := loadBundle(t, tt.columns, tt.scaler, tt.model)
			require.Error(t, err)
			assert.Nil(t, b)

			var loadErr *LoadError
			require.True(t, errors.As(err, &loadErr))
			assert.Equal(t, tt.failed, loadErr.Failed)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	dir := writeBundle(t, map[string]string{
		ArtifactColumns: twoColumns,
		ArtifactScaler:  unitScaler,
	})

	_, err := Load(context.Background(), FileSource{Dir: dir})

	var loadErr *LoadError
	require.True(t, errors.As(err, &loadErr))
	assert.Equal(t, []string{ArtifactModel}, loadErr.Failed)
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.Contains(t, err.Error(), "model")
}

type memRepo struct {
	artifacts map[string][]byte
}

func (m *memRepo) SaveArtifact(_ context.Context, a *domain.Artifact) error {
	m.artifacts[a.Name] = a.Payload
	return nil
}

func (m *memRepo) GetArtifact(_ context.Context, name string) (*domain.Artifact, error) {
	data, ok := m.artifacts[name]
	if !ok {
		return nil, domain.ErrArtifactNotFound
	}
	return &domain.Artifact{Name: name, Payload: data}, nil
}

func (m *memRepo) ListArtifacts(context.Context) ([]*domain.Artifact, error) { return nil, nil }
func (m *memRepo) Ping(context.Context) error                                { return nil }
func (m *memRepo) Close() error                                              { return nil }

func TestRepositorySource(t *testing.T) {
	repo := &memRepo{artifacts: map[string][]byte{
		ArtifactColumns: []byte(twoColumns),
		ArtifactScaler:  []byte(unitScaler),
		ArtifactModel:   []byte(linear),
	}}

	b, err := Load(context.Background(), RepositorySource{Repo: repo})
	require.NoError(t, err)
	assert.Equal(t, "repository", b.Source())

	delete(repo.artifacts, ArtifactScaler)
	_, err = Load(context.Background(), RepositorySource{Repo: repo})
	assert.ErrorIs(t, err, domain.ErrArtifactNotFound)
}

func TestConcurrentPredict(t *testing.T) {
	b, err := loadBundle(t, twoColumns, unitScaler, stump)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p, err := b.Predict(map[string]any{"a": float64(i), "b": 0.0})
			assert.NoError(t, err)
			assert.True(t, p >= 0 && p <= 1)
		}(i)
	}
	wg.Wait()
}

func TestParseColumns(t *testing.T) {
	cols, err := ParseColumns([]byte(`["X","Y"]`))
	require.NoError(t, err)
	assert.Equal(t, []string{"X", "Y"}, cols)

	_, err = ParseColumns([]byte(`["X","X"]`))
	assert.Error(t, err)

	_, err = ParseColumns([]byte(`{"a":1}`))
	assert.Error(t, err)
}

func TestShippedArtifacts(t *testing.T) {
	b, err := Load(context.Background(), FileSource{Dir: filepath.Join("..", "..", "artifacts")})
	require.NoError(t, err)
	assert.Len(t, b.Columns(), 12)
}
