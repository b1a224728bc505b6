package model

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// RMSE is the root mean squared error between truth and prediction.
func RMSE(truth, pred []float64) (float64, error) {
	if len(truth) != len(pred) {
		return 0, fmt.Errorf("rmse: %d targets but %d predictions: %w", len(truth), len(pred), ErrDimension)
	}
	if len(truth) == 0 {
		return 0, fmt.Errorf("rmse: %w", ErrInsufficientData)
	}
	return floats.Distance(truth, pred, 2) / math.Sqrt(float64(len(truth))), nil
}
