package modelselection

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/regressio/regressio/core/model"
	"github.com/regressio/regressio/dataset"
	"github.com/regressio/regressio/linear"
	"github.com/regressio/regressio/metrics"
	"github.com/regressio/regressio/pipeline"
)

// linearData builds a noisy linear single-target problem y = 3*x0 - 2*x1 + 1.
func linearData(t *testing.T, n int) (*dataset.Table, *dataset.Table) {
	t.Helper()
	rng := rand.New(rand.NewPCG(1, 2))
	xs := make([]float64, n*2)
	ys := make([]float64, n)
	for i := 0; i < n; i++ {
		x0 := rng.Float64() * 10
		x1 := rng.Float64() * 10
		xs[i*2] = x0
		xs[i*2+1] = x1
		ys[i] = 3*x0 - 2*x1 + 1 + rng.NormFloat64()*0.01
	}
	X, err := dataset.New([]string{"x0", "x1"}, mat.NewDense(n, 2, xs))
	require.NoError(t, err)
	y, err := dataset.New([]string{"y"}, mat.NewDense(n, 1, ys))
	require.NoError(t, err)
	return X, y
}

func ridgePipeline(t *testing.T, alpha float64) *pipeline.Pipeline {
	t.Helper()
	p, err := pipeline.Make(linear.NewRidge(alpha), pipeline.Config{
		TargetIndex: dataset.NoTargetIndex,
	})
	require.NoError(t, err)
	return p
}

func TestCrossValidateScoresEveryFold(t *testing.T) {
	X, y := linearData(t, 100)
	p := ridgePipeline(t, 1e-6)

	res, err := CrossValidate(p, X, y, CVOptions{
		CV:               NewKFold(5, 42),
		Scoring:          metrics.Scoring{Metric: metrics.MSE, Negated: true},
		NJobs:            1,
		ReturnTrainScore: true,
		ReturnEstimator:  true,
		TargetIndex:      dataset.NoTargetIndex,
	})
	require.NoError(t, err)

	require.Len(t, res.TestScore, 5)
	require.Len(t, res.TrainScore, 5)
	require.Len(t, res.FitTime, 5)
	require.Len(t, res.Pipelines, 5)
	for i, score := range res.TestScore {
		assert.False(t, math.IsNaN(score), "fold %d scored NaN", i)
		// Negated convention: near-noise-free linear data scores close to 0.
		assert.LessOrEqual(t, score, 0.0)
		assert.Greater(t, score, -1.0)
		assert.NotNil(t, res.Pipelines[i])
		assert.GreaterOrEqual(t, res.FitTime[i], 0.0)
	}
	assert.False(t, math.IsNaN(res.MeanTestScore()))
}

func TestCrossValidateParallelMatchesSerial(t *testing.T) {
	X, y := linearData(t, 80)
	p := ridgePipeline(t, 1e-6)
	opts := CVOptions{
		CV:          NewKFold(4, 7),
		Scoring:     metrics.Scoring{Metric: metrics.MAE, Negated: true},
		TargetIndex: dataset.NoTargetIndex,
	}

	opts.NJobs = 1
	serial, err := CrossValidate(p, X, y, opts)
	require.NoError(t, err)

	opts.NJobs = -1
	parallelRes, err := CrossValidate(p, X, y, opts)
	require.NoError(t, err)

	// Fold results are slot-indexed, so ordering is identical either way.
	assert.Equal(t, serial.TestScore, parallelRes.TestScore)
}

func TestCrossValidateSharedPipelineStaysUnfitted(t *testing.T) {
	X, y := linearData(t, 50)
	p := ridgePipeline(t, 1e-6)

	_, err := CrossValidate(p, X, y, CVOptions{
		CV:          NewKFold(5, 1),
		Scoring:     metrics.Scoring{Metric: metrics.MSE, Negated: true},
		NJobs:       2,
		TargetIndex: dataset.NoTargetIndex,
	})
	require.NoError(t, err)
	assert.False(t, p.IsFitted(), "fold workers must clone, not fit the shared pipeline")
}

func TestCrossValidateFailedFoldDegradesToNaN(t *testing.T) {
	X, y := linearData(t, 20)
	p, err := pipeline.Make(&failingRegressor{}, pipeline.Config{
		TargetIndex: dataset.NoTargetIndex,
	})
	require.NoError(t, err)

	res, cvErr := CrossValidate(p, X, y, CVOptions{
		CV:          NewKFold(4, 3),
		Scoring:     metrics.Scoring{Metric: metrics.MSE, Negated: true},
		NJobs:       1,
		TargetIndex: dataset.NoTargetIndex,
	})
	require.NoError(t, cvErr)
	for i, score := range res.TestScore {
		assert.True(t, math.IsNaN(score), "fold %d = %v, want NaN", i, score)
	}
	assert.True(t, math.IsNaN(res.MeanTestScore()))
}

func TestCrossValidateIncumbentScoring(t *testing.T) {
	// Column 1 of X is exactly y, so the copy-forward incumbent is perfect.
	n := 40
	xs := make([]float64, n*2)
	ys := make([]float64, n)
	for i := 0; i < n; i++ {
		xs[i*2] = float64(i)
		ys[i] = float64(2*i + 1)
		xs[i*2+1] = ys[i]
	}
	X, err := dataset.New([]string{"x0", "x1"}, mat.NewDense(n, 2, xs))
	require.NoError(t, err)
	y, err := dataset.New([]string{"y"}, mat.NewDense(n, 1, ys))
	require.NoError(t, err)

	res, err := CrossValidate(ridgePipeline(t, 1e-6), X, y, CVOptions{
		CV:          NewKFold(5, 11),
		Scoring:     metrics.Scoring{Metric: metrics.MAE, Negated: true},
		NJobs:       1,
		Baseline:    IdentityBaseline{},
		TargetIndex: 1,
	})
	require.NoError(t, err)

	require.Len(t, res.IncumbentTestScore, 5)
	for i, score := range res.IncumbentTestScore {
		assert.InDelta(t, 0.0, score, 1e-12, "fold %d incumbent error should be zero", i)
	}
}

// failingRegressor always fails to fit, for the NaN degradation path.
type failingRegressor struct{}

func (f *failingRegressor) Fit(X, y mat.Matrix) error { return assert.AnError }
func (f *failingRegressor) Predict(X mat.Matrix) (mat.Matrix, error) {
	return nil, assert.AnError
}
func (f *failingRegressor) GetParams() map[string]interface{}      { return nil }
func (f *failingRegressor) SetParams(map[string]interface{}) error { return nil }
func (f *failingRegressor) Clone() model.Regressor                 { return &failingRegressor{} }
