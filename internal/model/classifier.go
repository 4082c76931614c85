package model

import (
	"encoding/json"
	"fmt"
	"math"
)

// Classifier kinds.
const (
	KindLogistic     = "logistic"
	KindTreeEnsemble = "tree_ensemble"
)

// Classifier returns the probability of the positive (default) class.
type Classifier interface {
	PredictProba(x []float64) float64
	Kind() string
}

// Logistic is a linear model with a sigmoid link.
type Logistic struct {
	Coefficients []float64 `json:"coefficients"`
	Intercept    float64   `json:"intercept"`
}

// PredictProba implements Classifier.
func (m *Logistic) PredictProba(x []float64) float64 {
	z := m.Intercept
	for i, c := range m.Coefficients {
		z += c * x[i]
	}
	return sigmoid(z)
}

// Kind implements Classifier.
func (m *Logistic) Kind() string { return KindLogistic }

// Node is a decision tree node stored in a flat array. Children always sit
// after their parent, so traversal terminates.
type Node struct {
	Leaf      bool    `json:"leaf"`
	Feature   int     `json:"feature"`
	Threshold float64 `json:"threshold"`
	Left      int     `json:"left"`
	Right     int     `json:"right"`
	Value     float64 `json:"value"`
}

// Tree is one boosted tree.
type Tree struct {
	Nodes []Node `json:"nodes"`
}

func (t *Tree) eval(x []float64) float64 {
	i := 0
	for {
		n := t.Nodes[i]
		if n.Leaf {
			return n.Value
		}
		if x[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
}

// TreeEnsemble is a gradient-boosted binary classifier. Leaf values of all
// trees are summed with the base score and passed through the sigmoid.
type TreeEnsemble struct {
	BaseScore float64 `json:"base_score"`
	Trees     []Tree  `json:"trees"`
}

// PredictProba implements Classifier.
func (m *TreeEnsemble) PredictProba(x []float64) float64 {
	raw := m.BaseScore
	for i := range m.Trees {
		raw += m.Trees[i].eval(x)
	}
	return sigmoid(raw)
}

// Kind implements Classifier.
func (m *TreeEnsemble) Kind() string { return KindTreeEnsemble }

func sigmoid(z float64) float64 {
	return 1 / (1 + math.Exp(-z))
}

// decodeClassifier parses a schema-valid model artifact and checks it
// against the column count.
func decodeClassifier(data []byte, width int) (Classifier, error) {
	var header struct {
		Kind string `json:"kind"`
	}
	if err := json.Unmarshal(data, &header); err != nil {
		return nil, err
	}

	switch header.Kind {
	case KindLogistic:
		var m Logistic
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, err
		}
		if len(m.Coefficients) != width {
			return nil, fmt.Errorf("logistic model has %d coefficients, columns %d", len(m.Coefficients), width)
		}
		return &m, nil

	case KindTreeEnsemble:
		var m TreeEnsemble
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, err
		}
		for ti := range m.Trees {
			if err := m.Trees[ti].validate(width); err != nil {
				return nil, fmt.Errorf("tree %d: %w", ti, err)
			}
		}
		return &m, nil

	default:
		return nil, fmt.Errorf("unsupported model kind %q", header.Kind)
	}
}

func (t *Tree) validate(width int) error {
	for i, n := range t.Nodes {
		if n.Leaf {
			continue
		}
		if n.Feature < 0 || n.Feature >= width {
			return fmt.Errorf("node %d: feature %d out of range", i, n.Feature)
		}
		if n.Left <= i || n.Right <= i || n.Left >= len(t.Nodes) || n.Right >= len(t.Nodes) {
			return fmt.Errorf("node %d: invalid children %d/%d", i, n.Left, n.Right)
		}
	}
	return nil
}
