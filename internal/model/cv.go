package model

import (
	"context"
	"fmt"
	"runtime"

	"github.com/sourcegraph/conc/pool"
)

// SearchOptions controls the k-NN cross-validated grid search.
type SearchOptions struct {
	KMin    int
	KMax    int
	Folds   int
	Seed    int64
	Weights Weighting
	// Workers bounds concurrent candidate evaluations; 0 means GOMAXPROCS.
	Workers int
}

// CandidateScore is the cross-validation outcome for one k.
type CandidateScore struct {
	K int
	// Score is the mean negated RMSE across folds; higher is better.
	Score   float64
	FoldRMS []float64
}

// SearchResult holds every candidate score plus the selected k.
type SearchResult struct {
	BestK      int
	BestScore  float64
	Candidates []CandidateScore
	// Capped is true when KMax was lowered to fit the smallest fold.
	Capped bool
}

type scaledFold struct {
	trainX [][]float64
	trainY []float64
	testX  [][]float64
	testY  []float64
}

// GridSearchK scores k = KMin..KMax with shuffled k-fold cross-validation.
// Each fold standardizes on its own training portion. Candidates are capped at
// the smallest fold training size; equal scores resolve to the smaller k.
func GridSearchK(ctx context.Context, X [][]float64, y []float64, opt SearchOptions) (*SearchResult, error) {
	if len(X) != len(y) {
		return nil, fmt.Errorf("grid search: %d rows but %d targets: %w", len(X), len(y), ErrDimension)
	}
	if opt.KMin < 1 || opt.KMax < opt.KMin {
		return nil, fmt.Errorf("grid search: invalid k range [%d, %d]", opt.KMin, opt.KMax)
	}
	folds, err := KFold(len(X), opt.Folds, opt.Seed)
	if err != nil {
		return nil, fmt.Errorf("grid search: %w", err)
	}

	prepared := make([]scaledFold, len(folds))
	smallest := len(X)
	for i, f := range folds {
		if len(f.Train) < smallest {
			smallest = len(f.Train)
		}
		sf, err := prepareFold(X, y, f)
		if err != nil {
			return nil, fmt.Errorf("grid search fold %d: %w", i+1, err)
		}
		prepared[i] = sf
	}

	res := &SearchResult{}
	kMax := opt.KMax
	if kMax > smallest {
		kMax = smallest
		res.Capped = true
	}
	if kMax < opt.KMin {
		return nil, fmt.Errorf("grid search: k_min=%d exceeds smallest fold training size %d: %w", opt.KMin, smallest, ErrInsufficientData)
	}

	workers := opt.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	res.Candidates = make([]CandidateScore, kMax-opt.KMin+1)
	p := pool.New().WithErrors().WithContext(ctx).WithMaxGoroutines(workers)
	for i := range res.Candidates {
		k := opt.KMin + i
		p.Go(func(ctx context.Context) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			cs, err := scoreCandidate(k, opt.Weights, prepared)
			if err != nil {
				return fmt.Errorf("k=%d: %w", k, err)
			}
			res.Candidates[i] = cs
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		return nil, fmt.Errorf("grid search: %w", err)
	}

	best := 0
	for i, c := range res.Candidates {
		if c.Score > res.Candidates[best].Score {
			best = i
		}
	}
	res.BestK = res.Candidates[best].K
	res.BestScore = res.Candidates[best].Score
	return res, nil
}

func prepareFold(X [][]float64, y []float64, f Fold) (scaledFold, error) {
	trX, trY := subset(X, y, f.Train)
	teX, teY := subset(X, y, f.Test)
	var sc StandardScaler
	zTrain, err := sc.FitTransform(trX)
	if err != nil {
		return scaledFold{}, err
	}
	zTest, err := sc.Transform(teX)
	if err != nil {
		return scaledFold{}, err
	}
	return scaledFold{trainX: zTrain, trainY: trY, testX: zTest, testY: teY}, nil
}

func scoreCandidate(k int, w Weighting, folds []scaledFold) (CandidateScore, error) {
	cs := CandidateScore{K: k, FoldRMS: make([]float64, len(folds))}
	var sum float64
	for i, f := range folds {
		m := NewKNN(k, w)
		if err := m.Fit(f.trainX, f.trainY); err != nil {
			return cs, err
		}
		pred, err := m.Predict(f.testX)
		if err != nil {
			return cs, err
		}
		rmse, err := RMSE(f.testY, pred)
		if err != nil {
			return cs, err
		}
		cs.FoldRMS[i] = rmse
		sum += rmse
	}
	cs.Score = -sum / float64(len(folds))
	return cs, nil
}

func subset(X [][]float64, y []float64, idx []int) ([][]float64, []float64) {
	sx := make([][]float64, len(idx))
	sy := make([]float64, len(idx))
	for i, j := range idx {
		sx[i] = X[j]
		sy[i] = y[j]
	}
	return sx, sy
}
