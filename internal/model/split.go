package model

import (
	"fmt"
	"math"
	"math/rand"
)

// TrainTestSplit partitions row indexes 0..n-1 into train and test sets using
// a permutation drawn from seed. The test set has ceil(n*testFraction) rows;
// both sets must be non-empty.
func TrainTestSplit(n int, testFraction float64, seed int64) (train, test []int, err error) {
	if testFraction <= 0 || testFraction >= 1 {
		return nil, nil, fmt.Errorf("test fraction %.3f must be in (0, 1)", testFraction)
	}
	nTest := int(math.Ceil(testFraction * float64(n)))
	if nTest < 1 || n-nTest < 1 {
		return nil, nil, fmt.Errorf("split %d rows with test fraction %.2f: %w", n, testFraction, ErrInsufficientData)
	}
	perm := rand.New(rand.NewSource(seed)).Perm(n)
	return perm[nTest:], perm[:nTest], nil
}

// Fold is one cross-validation split, expressed as positions into the
// partition being validated.
type Fold struct {
	Train []int
	Test  []int
}

// KFold shuffles 0..n-1 with seed and cuts it into k contiguous folds. The
// first n%k folds hold one extra row.
func KFold(n, k int, seed int64) ([]Fold, error) {
	if k < 2 {
		return nil, fmt.Errorf("k-fold needs at least 2 folds, got %d", k)
	}
	if n < k {
		return nil, fmt.Errorf("%d-fold over %d rows: %w", k, n, ErrInsufficientData)
	}
	perm := rand.New(rand.NewSource(seed)).Perm(n)
	folds := make([]Fold, k)
	start := 0
	for i := 0; i < k; i++ {
		size := n / k
		if i < n%k {
			size++
		}
		test := perm[start : start+size]
		train := make([]int, 0, n-size)
		train = append(train, perm[:start]...)
		train = append(train, perm[start+size:]...)
		folds[i] = Fold{Train: train, Test: test}
		start += size
	}
	return folds, nil
}
