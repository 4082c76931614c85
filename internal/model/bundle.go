// Package model loads the classifier bundle and runs predictions.
//
// A bundle is three JSON artifacts: the ordered training columns, a standard
// scaler and a classifier. It is loaded once at startup and is read-only
// afterwards, so Predict is safe for concurrent use.
package model

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"strings"
)

// ErrInvalidPayload is returned by Predict for payloads the model cannot
// score: missing columns or non-numeric values.
var ErrInvalidPayload = errors.New("invalid payload")

// LoadError reports which artifacts failed to load.
type LoadError struct {
	Failed []string
	Errs   []error
}

func (e *LoadError) Error() string {
	msgs := make([]string, len(e.Errs))
	for i, err := range e.Errs {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("failed to load %s: %s", strings.Join(e.Failed, ", "), strings.Join(msgs, "; "))
}

// Unwrap exposes the per-artifact errors to errors.Is and errors.As.
func (e *LoadError) Unwrap() []error {
	return e.Errs
}

func (e *LoadError) add(name string, err error) {
	e.Failed = append(e.Failed, name)
	e.Errs = append(e.Errs, err)
}

// Bundle is a loaded, immutable model.
type Bundle struct {
	columns    []string
	scaler     *StandardScaler
	classifier Classifier
	source     string
}

// Load reads and validates every artifact from src. All artifacts are
// attempted so the returned *LoadError lists every failure.
func Load(ctx context.Context, src Source) (*Bundle, error) {
	loadErr := &LoadError{}
	raw := make(map[string][]byte, 3)

	for _, name := range ArtifactNames() {
		data, err := src.Read(ctx, name)
		if err == nil {
			err = validateArtifact(name, data)
		}
		if err != nil {
			loadErr.add(name, err)
			continue
		}
		raw[name] = data
	}

	b := &Bundle{source: src.String()}

	if data, ok := raw[ArtifactColumns]; ok {
		if err := json.Unmarshal(data, &b.columns); err != nil {
			loadErr.add(ArtifactColumns, err)
		}
	}

	// Width checks need the columns.
	if b.columns == nil {
		for _, name := range []string{ArtifactScaler, ArtifactModel} {
			if _, ok := raw[name]; ok {
				loadErr.add(name, errors.New("columns unavailable for width check"))
			}
		}
		return nil, loadErr
	}
	width := len(b.columns)

	if data, ok := raw[ArtifactScaler]; ok {
		var s StandardScaler
		err := json.Unmarshal(data, &s)
		if err == nil {
			err = s.validate(width)
		}
		if err != nil {
			loadErr.add(ArtifactScaler, err)
		} else {
			b.scaler = &s
		}
	}

	if data, ok := raw[ArtifactModel]; ok {
		c, err := decodeClassifier(data, width)
		if err != nil {
			loadErr.add(ArtifactModel, err)
		} else {
			b.classifier = c
		}
	}

	if len(loadErr.Failed) > 0 {
		return nil, loadErr
	}
	return b, nil
}

// Columns returns a copy of the ordered training columns.
func (b *Bundle) Columns() []string {
	out := make([]string, len(b.columns))
	copy(out, b.columns)
	return out
}

// Kind returns the classifier kind.
func (b *Bundle) Kind() string {
	return b.classifier.Kind()
}

// Source describes where the bundle was loaded from.
func (b *Bundle) Source() string {
	return b.source
}

// Predict orders payload by the training columns, scales it and returns the
// probability of default. Keys outside the column set are ignored.
func (b *Bundle) Predict(payload map[string]any) (float64, error) {
	x, err := b.vector(payload)
	if err != nil {
		return 0, err
	}
	return b.classifier.PredictProba(b.scaler.Transform(x)), nil
}

func (b *Bundle) vector(payload map[string]any) ([]float64, error) {
	x := make([]float64, len(b.columns))
	var missing []string

	for i, col := range b.columns {
		v, ok := payload[col]
		if !ok {
			missing = append(missing, col)
			continue
		}
		f, err := toFloat(v)
		if err != nil {
			return nil, fmt.Errorf("%w: column %s: %v", ErrInvalidPayload, col, err)
		}
		x[i] = f
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing columns: %s", ErrInvalidPayload, strings.Join(missing, ", "))
	}
	return x, nil
}

func toFloat(v any) (float64, error) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, err
		}
		f = parsed
	default:
		return 0, fmt.Errorf("value %v is not numeric", v)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("value %v is not finite", v)
	}
	return f, nil
}

// ReadColumns reads and validates a columns artifact file.
func ReadColumns(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseColumns(data)
}

// ParseColumns validates a raw columns artifact.
func ParseColumns(data []byte) ([]string, error) {
	if err := validateArtifact(ArtifactColumns, data); err != nil {
		return nil, err
	}
	var columns []string
	if err := json.Unmarshal(data, &columns); err != nil {
		return nil, err
	}
	return columns, nil
}
