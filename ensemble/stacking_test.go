package ensemble

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/regressio/regressio/core/model"
	"github.com/regressio/regressio/linear"
	"github.com/regressio/regressio/neighbors"
)

func stackingData(n int) (*mat.Dense, *mat.Dense) {
	xs := make([]float64, n)
	ys := make([]float64, n)
	for i := 0; i < n; i++ {
		xs[i] = float64(i)
		ys[i] = 2*float64(i) + 1
	}
	return mat.NewDense(n, 1, xs), mat.NewDense(n, 1, ys)
}

func newStack() *StackingRegressor {
	return NewStackingRegressor(
		[]model.Regressor{linear.NewRidge(1e-9), neighbors.NewKNNRegressor(3)},
		linear.NewRidge(1e-9),
	)
}

func TestStackingFitPredict(t *testing.T) {
	X, y := stackingData(30)
	s := newStack()
	s.Shuffle = true
	s.Seed = 42

	require.NoError(t, s.Fit(X, y))
	require.True(t, s.IsFitted())

	pred, err := s.Predict(X)
	require.NoError(t, err)
	for i := 0; i < 30; i++ {
		assert.InDelta(t, y.At(i, 0), pred.At(i, 0), 1.0)
	}
}

func TestStackingInSampleMetaFeatures(t *testing.T) {
	X, y := stackingData(20)
	s := newStack()
	s.MetaFeatures = false

	require.NoError(t, s.Fit(X, y))
	pred, err := s.Predict(X)
	require.NoError(t, err)
	_, c := pred.Dims()
	assert.Equal(t, 1, c)
}

func TestStackingPassthroughWidensFinalInput(t *testing.T) {
	X, y := stackingData(20)
	s := newStack()
	s.Passthrough = true

	require.NoError(t, s.Fit(X, y))
	final, ok := s.FittedFinal.(*linear.Ridge)
	require.True(t, ok)
	coefRows, _ := final.Coef.Dims()
	// Two base layers plus one raw feature column.
	assert.Equal(t, 3, coefRows)
}

func TestStackingPrefitMode(t *testing.T) {
	X, y := stackingData(25)

	base := linear.NewRidge(1e-9)
	require.NoError(t, base.Fit(X, y))

	s := NewStackingRegressor([]model.Regressor{base}, linear.NewRidge(1e-9))
	s.Refit = false
	s.MetaFeatures = false
	require.NoError(t, s.Fit(X, y))

	// Prefit mode must reuse the supplied estimator without cloning.
	assert.Equal(t, model.Regressor(base), s.FittedLayers[0])
}

func TestStackingValidation(t *testing.T) {
	X, y := stackingData(10)

	empty := NewStackingRegressor(nil, linear.NewRidge(1))
	assert.Error(t, empty.Fit(X, y))

	noFinal := NewStackingRegressor([]model.Regressor{linear.NewRidge(1)}, nil)
	assert.Error(t, noFinal.Fit(X, y))
}

func TestStackingSetParams(t *testing.T) {
	s := newStack()
	require.NoError(t, s.SetParams(map[string]interface{}{
		"shuffle":     true,
		"passthrough": true,
		"n_folds":     3,
	}))
	assert.True(t, s.Shuffle)
	assert.True(t, s.Passthrough)
	assert.Equal(t, 3, s.NFolds)

	err := s.SetParams(map[string]interface{}{"cv": 3})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a stacking option")
}
