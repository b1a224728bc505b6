package model

import (
	"fmt"
	"math"
	"sort"
)

// Weighting selects how neighbor targets are combined.
type Weighting string

const (
	// WeightDistance weights each neighbor by inverse Euclidean distance.
	WeightDistance Weighting = "distance"
	// WeightUniform averages neighbors equally.
	WeightUniform Weighting = "uniform"
)

// Regressor is a model that maps feature rows to a continuous target.
type Regressor interface {
	Fit(X [][]float64, y []float64) error
	Predict(X [][]float64) ([]float64, error)
}

// KNNRegressor predicts the weighted mean target of the K nearest training
// rows. Equidistant neighbors are ranked by training position.
type KNNRegressor struct {
	K       int
	Weights Weighting

	x [][]float64
	y []float64
}

// NewKNN returns an unfitted k-NN regressor.
func NewKNN(k int, w Weighting) *KNNRegressor {
	return &KNNRegressor{K: k, Weights: w}
}

// Fit stores the training set. The slices are retained, not copied.
func (m *KNNRegressor) Fit(X [][]float64, y []float64) error {
	if len(X) != len(y) {
		return fmt.Errorf("fit k-NN: %d rows but %d targets: %w", len(X), len(y), ErrDimension)
	}
	if m.K < 1 {
		return fmt.Errorf("fit k-NN: k must be >= 1, got %d", m.K)
	}
	if len(X) < m.K {
		return fmt.Errorf("fit k-NN: k=%d exceeds %d training rows: %w", m.K, len(X), ErrInsufficientData)
	}
	switch m.Weights {
	case WeightDistance, WeightUniform:
	case "":
		m.Weights = WeightDistance
	default:
		return fmt.Errorf("fit k-NN: unknown weighting %q", m.Weights)
	}
	m.x, m.y = X, y
	return nil
}

// Predict returns one prediction per query row.
func (m *KNNRegressor) Predict(X [][]float64) ([]float64, error) {
	if m.x == nil {
		return nil, fmt.Errorf("predict k-NN: %w", ErrNotFitted)
	}
	out := make([]float64, len(X))
	nb := make([]neighbor, len(m.x))
	for i, q := range X {
		for j, row := range m.x {
			if len(row) != len(q) {
				return nil, fmt.Errorf("predict k-NN: query has %d columns, want %d: %w", len(q), len(row), ErrDimension)
			}
			nb[j] = neighbor{idx: j, dist: euclidean(q, row)}
		}
		sort.Slice(nb, func(a, b int) bool {
			if nb[a].dist != nb[b].dist {
				return nb[a].dist < nb[b].dist
			}
			return nb[a].idx < nb[b].idx
		})
		out[i] = m.combine(nb[:m.K])
	}
	return out, nil
}

type neighbor struct {
	idx  int
	dist float64
}

func (m *KNNRegressor) combine(nb []neighbor) float64 {
	if m.Weights == WeightUniform {
		sum := 0.0
		for _, n := range nb {
			sum += m.y[n.idx]
		}
		return sum / float64(len(nb))
	}
	// exact matches take all the weight
	var exact, exactN float64
	for _, n := range nb {
		if n.dist == 0 {
			exact += m.y[n.idx]
			exactN++
		}
	}
	if exactN > 0 {
		return exact / exactN
	}
	var num, den float64
	for _, n := range nb {
		w := 1 / n.dist
		num += w * m.y[n.idx]
		den += w
	}
	return num / den
}

func euclidean(a, b []float64) float64 {
	var s float64
	for i := range a {
		d := a[i] - b[i]
		s += d * d
	}
	return math.Sqrt(s)
}
