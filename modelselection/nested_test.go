package modelselection

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/regressio/regressio/dataset"
)

func TestNestedCrossValidateScoresEveryOuterFold(t *testing.T) {
	X, y := linearData(t, 100)
	p := ridgePipeline(t, 1.0)

	opts := NestedOptions{
		SearchOptions:    searchOptions(),
		OuterCV:          NewKFold(4, 21),
		InnerCV:          NewKFold(3, 22),
		Strategy:         GridStrategy,
		ReturnInnerScore: true,
	}
	res, err := NestedCrossValidate(p, X, y, alphaSpace(0.001, 10.0), opts)
	require.NoError(t, err)

	require.Len(t, res.OuterScore, 4)
	require.Len(t, res.InnerScore, 4)
	for i := range res.OuterScore {
		require.False(t, math.IsNaN(res.OuterScore[i]), "outer fold %d is NaN", i)
		// Outer scores carry the restored sign: errors are nonnegative.
		assert.GreaterOrEqual(t, res.OuterScore[i], 0.0)
		assert.Less(t, res.OuterScore[i], 1.0)
		assert.GreaterOrEqual(t, res.InnerScore[i], 0.0)
	}
}

func TestNestedCrossValidateUsesOnlyOuterTrainRows(t *testing.T) {
	X, y := linearData(t, 60)
	p := ridgePipeline(t, 1.0)

	// A spy splitter records every sample count it is asked to plan for.
	spy := &recordingSplitter{inner: NewKFold(3, 5)}
	opts := NestedOptions{
		SearchOptions: searchOptions(),
		OuterCV:       NewKFold(4, 9),
		InnerCV:       spy,
		Strategy:      GridStrategy,
	}
	_, err := NestedCrossValidate(p, X, y, alphaSpace(0.01, 1.0), opts)
	require.NoError(t, err)

	// 60 rows over 4 outer folds leave 45 training rows per fold; the inner
	// plan must never be built over the full sample count.
	require.NotEmpty(t, spy.sizes)
	for _, n := range spy.sizes {
		assert.Equal(t, 45, n, "inner search leaked outer test rows")
	}
}

func TestNestedCrossValidateDefaultPlans(t *testing.T) {
	X, y := linearData(t, 75)
	p := ridgePipeline(t, 1.0)

	opts := NestedOptions{
		SearchOptions: searchOptions(),
		Strategy:      RandomizedStrategy,
	}
	opts.NIter = 3
	opts.Seed = 4

	res, err := NestedCrossValidate(p, X, y, Space{Dimensions: []Dimension{{
		Name:   "alpha",
		Target: dataset.NoTargetIndex,
		Low:    0.001, High: 1,
	}}}, opts)
	require.NoError(t, err)
	assert.Len(t, res.OuterScore, 5)
	assert.Nil(t, res.InnerScore)
}

func TestNestedCrossValidateRejectsUnknownStrategy(t *testing.T) {
	X, y := linearData(t, 40)
	p := ridgePipeline(t, 1.0)

	opts := NestedOptions{
		SearchOptions: searchOptions(),
		Strategy:      SearchStrategy(99),
	}
	res, err := NestedCrossValidate(p, X, y, alphaSpace(0.1), opts)
	require.NoError(t, err)
	// Strategy failures degrade per outer fold rather than aborting.
	for _, v := range res.OuterScore {
		assert.True(t, math.IsNaN(v))
	}
}

// recordingSplitter wraps a KFold and records the sample counts planned.
type recordingSplitter struct {
	inner *KFold
	sizes []int
}

func (r *recordingSplitter) Split(n int) ([]Fold, error) {
	r.sizes = append(r.sizes, n)
	return r.inner.Split(n)
}

func (r *recordingSplitter) NumFolds() int { return r.inner.NumFolds() }
