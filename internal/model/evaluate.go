package model

import (
	"context"
	"fmt"
	"math"

	"github.com/KaramelBytes/routespeed-cli/internal/aggregate"
)

// Winner names the model with the lower test RMSE.
type Winner string

const (
	WinnerKNN    Winner = "k-NN"
	WinnerLinear Winner = "linear regression"
)

// FeatureNames lists the predictor columns in feature-vector order.
var FeatureNames = []string{"route_length", "direction"}

// Options configures Evaluate.
type Options struct {
	TestFraction float64
	Folds        int
	KMin         int
	KMax         int
	Seed         int64
	Weights      Weighting
	Workers      int
}

// DefaultOptions mirrors the configuration defaults.
func DefaultOptions() Options {
	return Options{TestFraction: 0.25, Folds: 5, KMin: 1, KMax: 20, Seed: 42, Weights: WeightDistance}
}

// Result is the outcome of comparing k-NN against OLS on one holdout split.
type Result struct {
	TrainSize int
	TestSize  int

	BestK     int
	BestScore float64
	Search    *SearchResult

	KNNRMSE        float64
	LinearRMSE     float64
	MeanTrainSpeed float64
	// Percent errors are RMSE / MeanTrainSpeed * 100.
	KNNPercentError    float64
	LinearPercentError float64

	LinearIntercept float64
	LinearCoef      []float64

	Winner Winner
	Margin float64
}

// Decide picks the lower-RMSE model and the absolute margin between them.
// An exact tie goes to linear regression as the simpler model.
func Decide(knnRMSE, linearRMSE float64) (Winner, float64) {
	margin := math.Abs(knnRMSE - linearRMSE)
	if knnRMSE < linearRMSE {
		return WinnerKNN, margin
	}
	return WinnerLinear, margin
}

// Features builds the design matrix and target vector from aggregated rows.
// Any non-finite feature or target is rejected.
func Features(rows []aggregate.RouteSpeed) ([][]float64, []float64, error) {
	X := make([][]float64, len(rows))
	y := make([]float64, len(rows))
	bad := 0
	for i, r := range rows {
		if !isFinite(r.RouteLength) || !isFinite(r.Direction) || !isFinite(r.Speed) {
			bad++
			continue
		}
		X[i] = []float64{r.RouteLength, r.Direction}
		y[i] = r.Speed
	}
	if bad > 0 {
		return nil, nil, fmt.Errorf("%d of %d rows have NaN or infinite speed, route_length or direction: %w", bad, len(rows), ErrNonFinite)
	}
	return X, y, nil
}

// Evaluate splits rows with the configured seed, tunes k on the training
// partition, fits both models on standardized training features and scores
// them on the holdout.
func Evaluate(ctx context.Context, rows []aggregate.RouteSpeed, opt Options) (*Result, error) {
	X, y, err := Features(rows)
	if err != nil {
		return nil, fmt.Errorf("evaluate: %w", err)
	}
	trainIdx, testIdx, err := TrainTestSplit(len(X), opt.TestFraction, opt.Seed)
	if err != nil {
		return nil, fmt.Errorf("evaluate: %w", err)
	}
	trX, trY := subset(X, y, trainIdx)
	teX, teY := subset(X, y, testIdx)

	search, err := GridSearchK(ctx, trX, trY, SearchOptions{
		KMin:    opt.KMin,
		KMax:    opt.KMax,
		Folds:   opt.Folds,
		Seed:    opt.Seed,
		Weights: opt.Weights,
		Workers: opt.Workers,
	})
	if err != nil {
		return nil, fmt.Errorf("evaluate: %w", err)
	}

	var sc StandardScaler
	zTrain, err := sc.FitTransform(trX)
	if err != nil {
		return nil, fmt.Errorf("evaluate: %w", err)
	}
	zTest, err := sc.Transform(teX)
	if err != nil {
		return nil, fmt.Errorf("evaluate: %w", err)
	}

	knn := NewKNN(search.BestK, opt.Weights)
	knnRMSE, err := holdoutRMSE(knn, zTrain, trY, zTest, teY)
	if err != nil {
		return nil, fmt.Errorf("evaluate k-NN: %w", err)
	}
	lin := NewLinear()
	linRMSE, err := holdoutRMSE(lin, zTrain, trY, zTest, teY)
	if err != nil {
		return nil, fmt.Errorf("evaluate linear: %w", err)
	}

	meanTrain := 0.0
	for _, v := range trY {
		meanTrain += v
	}
	meanTrain /= float64(len(trY))

	res := &Result{
		TrainSize:       len(trainIdx),
		TestSize:        len(testIdx),
		BestK:           search.BestK,
		BestScore:       search.BestScore,
		Search:          search,
		KNNRMSE:         knnRMSE,
		LinearRMSE:      linRMSE,
		MeanTrainSpeed:  meanTrain,
		LinearIntercept: lin.Intercept,
		LinearCoef:      lin.Coef,
	}
	if meanTrain != 0 {
		res.KNNPercentError = knnRMSE / meanTrain * 100
		res.LinearPercentError = linRMSE / meanTrain * 100
	} else {
		res.KNNPercentError = math.NaN()
		res.LinearPercentError = math.NaN()
	}
	res.Winner, res.Margin = Decide(knnRMSE, linRMSE)
	return res, nil
}

func holdoutRMSE(m Regressor, trX [][]float64, trY []float64, teX [][]float64, teY []float64) (float64, error) {
	if err := m.Fit(trX, trY); err != nil {
		return 0, err
	}
	pred, err := m.Predict(teX)
	if err != nil {
		return 0, err
	}
	return RMSE(teY, pred)
}

func isFinite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }
