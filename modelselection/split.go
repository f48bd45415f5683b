// Package modelselection provides the cross-validation engine and the
// hyperparameter search strategies built on top of it: exhaustive grid
// search, randomized search, Bayesian optimization, and nested
// cross-validation for unbiased generalization estimates.
package modelselection

import (
	"math/rand/v2"

	"github.com/regressio/regressio/pkg/errors"
)

// Fold is one train/test split of row indices.
type Fold struct {
	Train []int
	Test  []int
}

// Splitter generates a cross-validation plan for n samples. The folds must be
// disjoint in their test indices and together cover every row exactly once.
type Splitter interface {
	Split(n int) ([]Fold, error)
	NumFolds() int
}

// KFold splits rows into k consecutive (optionally shuffled) folds.
type KFold struct {
	NSplits int
	Shuffle bool
	Seed    int64
}

// NewKFold creates a shuffled k-fold splitter.
func NewKFold(nSplits int, seed int64) *KFold {
	return &KFold{NSplits: nSplits, Shuffle: true, Seed: seed}
}

// NumFolds returns the number of folds in the plan.
func (k *KFold) NumFolds() int { return k.NSplits }

// Split builds the fold plan for n samples.
func (k *KFold) Split(n int) ([]Fold, error) {
	if k.NSplits < 2 {
		return nil, errors.NewConfigurationError("cv", "must be at least 2", k.NSplits)
	}
	if n < k.NSplits {
		return nil, errors.NewDataError("KFold.Split",
			"fewer samples than folds")
	}

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	if k.Shuffle {
		r := rand.New(rand.NewPCG(uint64(k.Seed), uint64(k.Seed)))
		r.Shuffle(n, func(i, j int) { order[i], order[j] = order[j], order[i] })
	}

	// The first n%k folds get one extra test row.
	folds := make([]Fold, k.NSplits)
	base, extra := n/k.NSplits, n%k.NSplits
	start := 0
	for f := 0; f < k.NSplits; f++ {
		size := base
		if f < extra {
			size++
		}
		test := make([]int, size)
		copy(test, order[start:start+size])
		train := make([]int, 0, n-size)
		train = append(train, order[:start]...)
		train = append(train, order[start+size:]...)
		folds[f] = Fold{Train: train, Test: test}
		start += size
	}
	return folds, nil
}

// ResolveCV normalizes a cv option into a Splitter. An int above 1 becomes a
// seeded shuffled KFold; a Splitter passes through.
func ResolveCV(cv interface{}, seed int64) (Splitter, error) {
	switch v := cv.(type) {
	case nil:
		return NewKFold(5, seed), nil
	case int:
		if v < 2 {
			return nil, errors.NewConfigurationError("cv", "must be at least 2", v)
		}
		return NewKFold(v, seed), nil
	case Splitter:
		return v, nil
	}
	return nil, errors.NewConfigurationError("cv", "must be an int or a Splitter", cv)
}

// FoldSizeEstimator estimates the training-fold row count of a plan before
// any fold is materialized. Size-sensitive pipeline options (quantile
// landmark counts) are derived from this estimate rather than from the full
// sample count.
type FoldSizeEstimator func(nSamples, nFolds int) int

// EstimateTrainFoldSize is the default estimator: the sample count minus the
// largest test fold, less one to stay conservative on uneven splits.
func EstimateTrainFoldSize(nSamples, nFolds int) int {
	if nFolds < 2 || nSamples < nFolds {
		return nSamples
	}
	maxTest := nSamples / nFolds
	if nSamples%nFolds != 0 {
		maxTest++
	}
	est := nSamples - (maxTest + 1)
	if est < 1 {
		est = 1
	}
	return est
}
