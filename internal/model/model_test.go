package model

import (
	"context"
	"errors"
	"math"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/routespeed-cli/internal/aggregate"
)

func TestTrainTestSplit(t *testing.T) {
	train, test, err := TrainTestSplit(10, 0.25, 42)
	require.NoError(t, err)
	require.Len(t, test, 3)
	require.Len(t, train, 7)

	all := append(append([]int(nil), train...), test...)
	sort.Ints(all)
	require.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, all)

	train2, test2, err := TrainTestSplit(10, 0.25, 42)
	require.NoError(t, err)
	require.Equal(t, train, train2)
	require.Equal(t, test, test2)
}

func TestTrainTestSplitRejectsEmptyPartition(t *testing.T) {
	_, _, err := TrainTestSplit(1, 0.25, 1)
	require.True(t, errors.Is(err, ErrInsufficientData))

	_, _, err = TrainTestSplit(10, 1.5, 1)
	require.Error(t, err)
}

func TestKFoldCoversEveryRowOnce(t *testing.T) {
	folds, err := KFold(11, 5, 7)
	require.NoError(t, err)
	require.Len(t, folds, 5)

	seen := map[int]int{}
	var sizes []int
	for _, f := range folds {
		sizes = append(sizes, len(f.Test))
		require.Len(t, f.Train, 11-len(f.Test))
		for _, i := range f.Test {
			seen[i]++
		}
	}
	require.Equal(t, []int{3, 2, 2, 2, 2}, sizes)
	require.Len(t, seen, 11)
	for _, c := range seen {
		require.Equal(t, 1, c)
	}
}

func TestStandardScalerUsesTrainingStats(t *testing.T) {
	train := [][]float64{{1, 5}, {2, 5}, {3, 5}, {4, 5}}
	var sc StandardScaler
	z, err := sc.FitTransform(train)
	require.NoError(t, err)

	var mean, ss float64
	for _, r := range z {
		mean += r[0]
	}
	mean /= float64(len(z))
	for _, r := range z {
		ss += (r[0] - mean) * (r[0] - mean)
	}
	require.InDelta(t, 0, mean, 1e-12)
	require.InDelta(t, 1, math.Sqrt(ss/float64(len(z))), 1e-12)
	require.Equal(t, 1.0, sc.Scale[1], "constant column keeps unit scale")
	require.Equal(t, 0.0, z[0][1])

	// holdout rows reuse the fitted statistics
	zt, err := sc.Transform([][]float64{{2.5, 6}})
	require.NoError(t, err)
	require.InDelta(t, 0, zt[0][0], 1e-12)
	require.InDelta(t, 1, zt[0][1], 1e-12)
}

func TestScalerNotFitted(t *testing.T) {
	var sc StandardScaler
	_, err := sc.Transform([][]float64{{1}})
	require.True(t, errors.Is(err, ErrNotFitted))
}

func TestKNNPredict(t *testing.T) {
	X := [][]float64{{0}, {1}, {3}}
	y := []float64{0, 10, 30}

	m := NewKNN(2, WeightDistance)
	require.NoError(t, m.Fit(X, y))
	pred, err := m.Predict([][]float64{{2}, {1}, {0.4}})
	require.NoError(t, err)
	require.InDelta(t, 20, pred[0], 1e-12, "equidistant neighbors weigh equally")
	require.InDelta(t, 10, pred[1], 1e-12, "exact match takes all weight")
	require.InDelta(t, 4, pred[2], 1e-9)

	u := NewKNN(2, WeightUniform)
	require.NoError(t, u.Fit(X, y))
	pred, err = u.Predict([][]float64{{0.4}})
	require.NoError(t, err)
	require.InDelta(t, 5, pred[0], 1e-12)
}

func TestKNNRejectsLargeK(t *testing.T) {
	err := NewKNN(4, WeightDistance).Fit([][]float64{{0}, {1}}, []float64{1, 2})
	require.True(t, errors.Is(err, ErrInsufficientData))
}

func TestLinearRegressionRecoversPlane(t *testing.T) {
	X := [][]float64{{0, 0}, {1, 0}, {0, 1}, {2, 3}, {1, 1}}
	y := make([]float64, len(X))
	for i, r := range X {
		y[i] = 3 + 2*r[0] - r[1]
	}
	m := NewLinear()
	require.NoError(t, m.Fit(X, y))
	require.InDelta(t, 3, m.Intercept, 1e-9)
	require.InDelta(t, 2, m.Coef[0], 1e-9)
	require.InDelta(t, -1, m.Coef[1], 1e-9)

	pred, err := m.Predict([][]float64{{4, 2}})
	require.NoError(t, err)
	require.InDelta(t, 9, pred[0], 1e-9)
}

func TestLinearRegressionRankDeficient(t *testing.T) {
	X := [][]float64{{1, 1}, {2, 2}, {3, 3}}
	y := []float64{2, 4, 6}
	m := NewLinear()
	require.NoError(t, m.Fit(X, y))
	pred, err := m.Predict([][]float64{{5, 5}})
	require.NoError(t, err)
	require.InDelta(t, 10, pred[0], 1e-9)
}

func TestRMSE(t *testing.T) {
	got, err := RMSE([]float64{1, 2, 3}, []float64{1, 2, 5})
	require.NoError(t, err)
	require.InDelta(t, math.Sqrt(4.0/3.0), got, 1e-12)

	_, err = RMSE([]float64{1}, []float64{1, 2})
	require.True(t, errors.Is(err, ErrDimension))
}

func TestGridSearchCapsKAndPrefersSmallerOnTie(t *testing.T) {
	X := make([][]float64, 10)
	y := make([]float64, 10)
	for i := range X {
		X[i] = []float64{float64(i), float64(i % 2)}
		y[i] = 7
	}
	res, err := GridSearchK(context.Background(), X, y, SearchOptions{KMin: 1, KMax: 20, Folds: 5, Seed: 3, Weights: WeightUniform, Workers: 2})
	require.NoError(t, err)
	require.True(t, res.Capped)
	require.Len(t, res.Candidates, 8)
	require.Equal(t, 1, res.BestK)
	for i, c := range res.Candidates {
		require.Equal(t, i+1, c.K)
		require.Len(t, c.FoldRMS, 5)
	}
}

func TestGridSearchHonorsCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	X := [][]float64{{0}, {1}, {2}, {3}, {4}, {5}}
	y := []float64{0, 1, 2, 3, 4, 5}
	_, err := GridSearchK(ctx, X, y, SearchOptions{KMin: 1, KMax: 3, Folds: 2, Seed: 1})
	require.Error(t, err)
}

func TestDecide(t *testing.T) {
	w, margin := Decide(3.2, 4.1)
	require.Equal(t, WinnerKNN, w)
	require.InDelta(t, 0.9, margin, 1e-9)

	w, margin = Decide(4.1, 3.2)
	require.Equal(t, WinnerLinear, w)
	require.InDelta(t, 0.9, margin, 1e-9)

	w, margin = Decide(4, 4)
	require.Equal(t, WinnerLinear, w, "ties go to the simpler model")
	require.Equal(t, 0.0, margin)
}

func planeRows(n int) []aggregate.RouteSpeed {
	rows := make([]aggregate.RouteSpeed, n)
	for i := range rows {
		length := float64(i + 1)
		dir := float64(i % 2)
		rows[i] = aggregate.RouteSpeed{
			RouteID:     "r",
			Direction:   dir,
			RouteLength: length,
			Speed:       30 - 0.5*length + 2*dir,
			Size:        1,
		}
	}
	return rows
}

func TestEvaluateDeterministic(t *testing.T) {
	rows := planeRows(40)
	opt := DefaultOptions()

	a, err := Evaluate(context.Background(), rows, opt)
	require.NoError(t, err)
	b, err := Evaluate(context.Background(), rows, opt)
	require.NoError(t, err)
	require.Equal(t, a, b)

	require.Equal(t, 30, a.TrainSize)
	require.Equal(t, 10, a.TestSize)
	require.GreaterOrEqual(t, a.BestK, 1)
	require.LessOrEqual(t, a.BestK, 20)
	require.InDelta(t, 0, a.LinearRMSE, 1e-9)
	require.Equal(t, WinnerLinear, a.Winner)
	require.InDelta(t, a.KNNRMSE, a.Margin, 1e-9)
	require.InDelta(t, a.KNNRMSE/a.MeanTrainSpeed*100, a.KNNPercentError, 1e-9)
}

func TestEvaluateRejectsNonFinite(t *testing.T) {
	rows := planeRows(12)
	rows[3].Speed = math.NaN()
	_, err := Evaluate(context.Background(), rows, DefaultOptions())
	require.True(t, errors.Is(err, ErrNonFinite))
}

func TestFeaturesColumnOrder(t *testing.T) {
	rows := []aggregate.RouteSpeed{
		{RouteLength: 3.5, Direction: 1, Speed: 14},
		{RouteLength: 7, Direction: 0, Speed: 11},
	}
	X, y, err := Features(rows)
	require.NoError(t, err)
	require.Equal(t, []float64{14, 11}, y)
	for _, x := range X {
		require.Len(t, x, len(FeatureNames))
	}
	require.Equal(t, []string{"route_length", "direction"}, FeatureNames)
	require.Equal(t, []float64{3.5, 1}, X[0])

	rows[1].Direction = math.NaN()
	_, _, err = Features(rows)
	require.True(t, errors.Is(err, ErrNonFinite))
}
