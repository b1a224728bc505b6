package model

import "errors"

var (
	// ErrInsufficientData means too few rows for the requested split or model.
	ErrInsufficientData = errors.New("insufficient data")
	// ErrNonFinite means a feature or target value is NaN or infinite.
	ErrNonFinite = errors.New("non-finite value")
	// ErrNotFitted is returned by Predict/Transform before Fit.
	ErrNotFitted = errors.New("model not fitted")
	// ErrDimension means matrix shapes disagree.
	ErrDimension = errors.New("dimension mismatch")
)
