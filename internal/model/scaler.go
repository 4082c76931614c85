package model

import "fmt"

// StandardScaler centers and scales each column: (x - mean) / scale.
type StandardScaler struct {
	Kind  string    `json:"kind"`
	Mean  []float64 `json:"mean"`
	Scale []float64 `json:"scale"`
}

func (s *StandardScaler) validate(width int) error {
	if len(s.Mean) != width || len(s.Scale) != width {
		return fmt.Errorf("scaler width mismatch: mean %d, scale %d, columns %d", len(s.Mean), len(s.Scale), width)
	}
	return nil
}

// Transform returns a scaled copy of x. A zero scale is treated as 1.
func (s *StandardScaler) Transform(x []float64) []float64 {
	out := make([]float64, len(x))
	for i, v := range x {
		scale := s.Scale[i]
		if scale == 0 {
			scale = 1
		}
		out[i] = (v - s.Mean[i]) / scale
	}
	return out
}
