package supervised

import (
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/regressio/regressio/dataset"
	"github.com/regressio/regressio/modelselection"
	"github.com/regressio/regressio/pkg/errors"
)

// regressionData builds a noisy single-target linear problem over three
// features.
func regressionData(t *testing.T, n int) (*dataset.Table, *dataset.Table) {
	t.Helper()
	rng := rand.New(rand.NewPCG(11, 13))
	xs := make([]float64, n*3)
	ys := make([]float64, n)
	for i := 0; i < n; i++ {
		x0 := rng.Float64() * 5
		x1 := rng.Float64() * 5
		x2 := rng.Float64() * 5
		xs[i*3], xs[i*3+1], xs[i*3+2] = x0, x1, x2
		ys[i] = 1.5*x0 - 2*x1 + 0.5*x2 + 3 + rng.NormFloat64()*0.01
	}
	X, err := dataset.New([]string{"x0", "x1", "x2"}, mat.NewDense(n, 3, xs))
	require.NoError(t, err)
	y, err := dataset.New([]string{"y"}, mat.NewDense(n, 1, ys))
	require.NoError(t, err)
	return X, y
}

func TestRegressorFitPredict(t *testing.T) {
	X, y := regressionData(t, 100)

	r, err := New(ChoiceRidge, WithScoring("neg_mean_squared_error"))
	require.NoError(t, err)
	require.NoError(t, r.Fit(X, y))

	pred, err := r.Predict(X)
	require.NoError(t, err)

	scores, err := r.Score(y.Matrix(), pred)
	require.NoError(t, err)
	require.Len(t, scores, 1)
	assert.Less(t, scores[0], 0.01, "near-noise-free fit should have tiny MSE")
}

func TestRegressorPredictBeforeFit(t *testing.T) {
	X, _ := regressionData(t, 10)
	r, err := New(ChoiceRidge)
	require.NoError(t, err)

	_, predErr := r.Predict(X)
	require.Error(t, predErr)
	var nf *errors.NotFittedError
	assert.True(t, errors.As(predErr, &nf))
}

func TestRegressorCrossValScore(t *testing.T) {
	X, y := regressionData(t, 100)

	r, err := New(ChoiceRidge,
		WithCV(5),
		WithScoring("neg_mean_squared_error"),
		WithRandomState(42),
		WithNJobs(1),
	)
	require.NoError(t, err)

	scores, err := r.CrossValScore(X, y)
	require.NoError(t, err)
	require.Len(t, scores, 5)
	for i, s := range scores {
		require.False(t, math.IsNaN(s), "fold %d is NaN", i)
		// Restored sign: errors read as nonnegative.
		assert.GreaterOrEqual(t, s, 0.0)
		assert.Less(t, s, 0.1)
	}
}

func TestRegressorCrossValidateReturnsFoldDetail(t *testing.T) {
	X, y := regressionData(t, 80)

	r, err := New(ChoiceRidge,
		WithCV(4),
		WithScoring("neg_mean_absolute_error"),
		WithReturnTrainScore(true),
		WithNJobs(1),
	)
	require.NoError(t, err)

	res, err := r.CrossValidate(X, y)
	require.NoError(t, err)
	assert.Len(t, res.TestScore, 4)
	assert.Len(t, res.TrainScore, 4)
	assert.Len(t, res.Pipelines, 4)
	for i := range res.TestScore {
		// Reported fold errors have the sign restored.
		assert.GreaterOrEqual(t, res.TestScore[i], 0.0)
		assert.GreaterOrEqual(t, res.TrainScore[i], 0.0)
	}
	assert.Nil(t, res.IncumbentTestScore, "the incumbent column is opt-in")
}

func TestRegressorCrossValidateIncumbentColumn(t *testing.T) {
	// Column 1 of X copies y exactly, so the incumbent baseline is perfect.
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

	r, err := New(ChoiceRidge,
		WithCV(5),
		WithScoring("neg_mean_absolute_error"),
		WithTargetIndex(1),
		WithReturnIncumbentScore(true),
		WithRandomState(17),
		WithNJobs(1),
	)
	require.NoError(t, err)

	res, err := r.CrossValidate(X, y)
	require.NoError(t, err)
	require.Len(t, res.IncumbentTestScore, 5)
	for i := range res.IncumbentTestScore {
		assert.InDelta(t, 0.0, res.IncumbentTestScore[i], 1e-12, "fold %d", i)
		assert.GreaterOrEqual(t, res.TestScore[i], 0.0)
	}

	// The scores-only form returns the incumbent series under the same option.
	scores, err := r.CrossValScore(X, y)
	require.NoError(t, err)
	require.Len(t, scores, 5)
	for i, s := range scores {
		assert.InDelta(t, 0.0, s, 1e-12, "fold %d", i)
	}
}

func TestRegressorTargetSlicing(t *testing.T) {
	// Two targets; index 1 selects the second column.
	n := 50
	rng := rand.New(rand.NewPCG(7, 9))
	xs := make([]float64, n*2)
	ys := make([]float64, n*2)
	for i := 0; i < n; i++ {
		x0 := rng.Float64() * 10
		x1 := rng.Float64() * 10
		xs[i*2], xs[i*2+1] = x0, x1
		ys[i*2] = x0 + x1
		ys[i*2+1] = 2*x0 - x1
	}
	X, err := dataset.New([]string{"x0", "x1"}, mat.NewDense(n, 2, xs))
	require.NoError(t, err)
	y, err := dataset.New([]string{"t0", "t1"}, mat.NewDense(n, 2, ys))
	require.NoError(t, err)

	r, err := New(ChoiceRidge, WithTargetIndex(1), WithNJobs(1))
	require.NoError(t, err)
	require.NoError(t, r.Fit(X, y))

	pred, err := r.Predict(X)
	require.NoError(t, err)
	_, c := pred.Dims()
	require.Equal(t, 1, c, "slicing must yield a single-target prediction")

	ySliced, err := dataset.SliceTarget(y, 1)
	require.NoError(t, err)
	table, err := r.ScoreTable(ySliced.Matrix(), pred)
	require.NoError(t, err)
	require.Len(t, table.Index, 1)
	// Display index is the one-based position within the original y.
	assert.Equal(t, 2, table.Index[0])
}

func TestRegressorGridSearchKnownMinimizer(t *testing.T) {
	X, y := regressionData(t, 100)

	r, err := New(ChoiceRidge,
		WithCV(5),
		WithScoring("neg_mean_squared_error"),
		WithRandomState(42),
		WithNJobs(1),
	)
	require.NoError(t, err)

	space := modelselection.Space{Dimensions: []modelselection.Dimension{{
		Name:   "alpha",
		Target: dataset.NoTargetIndex,
		Values: []interface{}{0.1, 1.0, 10.0},
	}}}
	res, err := r.GridSearchCV(X, y, space)
	require.NoError(t, err)

	// Near-noise-free data: the weakest penalty wins.
	assert.Equal(t, 0.1, res.BestParams.Regressor["alpha"])
	assert.GreaterOrEqual(t, res.BestScore, 0.0)

	// The refitted winner becomes this Regressor's fitted state.
	best, err := r.BestParams()
	require.NoError(t, err)
	assert.Equal(t, res.BestParams, best)
	_, err = r.Predict(X)
	assert.NoError(t, err)
}

func TestRegressorSearchStateBeforeSearch(t *testing.T) {
	r, err := New(ChoiceRidge)
	require.NoError(t, err)

	_, bpErr := r.BestParams()
	require.Error(t, bpErr)
	var st *errors.SearchStateError
	assert.True(t, errors.As(bpErr, &st))

	_, bsErr := r.BestScore()
	assert.Error(t, bsErr)
}

func TestRegressorNestedCrossValidate(t *testing.T) {
	X, y := regressionData(t, 90)

	r, err := New(ChoiceRidge,
		WithCV(3),
		WithScoring("neg_mean_squared_error"),
		WithRandomState(5),
		WithNJobs(1),
	)
	require.NoError(t, err)

	space := modelselection.Space{Dimensions: []modelselection.Dimension{{
		Name:   "alpha",
		Target: dataset.NoTargetIndex,
		Values: []interface{}{0.01, 1.0},
	}}}
	res, err := r.NestedCrossValidate(X, y, space, modelselection.GridStrategy)
	require.NoError(t, err)
	require.Len(t, res.OuterScore, 3)
	for _, s := range res.OuterScore {
		assert.False(t, math.IsNaN(s))
		assert.GreaterOrEqual(t, s, 0.0)
	}
}

func TestRegressorSubsample(t *testing.T) {
	X, y := regressionData(t, 60)

	r, err := New(ChoiceRidge, WithRandomState(3))
	require.NoError(t, err)

	subX, subY, err := r.Subsample(X, y, 0.5)
	require.NoError(t, err)
	assert.Equal(t, 30, subX.NRows())
	assert.Equal(t, 30, subY.NRows())

	// Same seed, same draw.
	againX, _, err := r.Subsample(X, y, 0.5)
	require.NoError(t, err)
	assert.Equal(t, subX, againX)

	_, _, err = r.Subsample(X, y, 0.0)
	assert.Error(t, err)
	_, _, err = r.Subsample(X, y, 1.5)
	assert.Error(t, err)
}

func TestRegressorSaveLoadRoundTrip(t *testing.T) {
	X, y := regressionData(t, 40)

	r, err := New(ChoiceRidge, WithNJobs(1))
	require.NoError(t, err)
	require.NoError(t, r.Fit(X, y))

	want, err := r.Predict(X)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "model.gob")
	require.NoError(t, r.Save(path))
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("saved model missing: %v", err)
	}

	loaded, err := New(ChoiceRidge)
	require.NoError(t, err)
	require.NoError(t, loaded.LoadModel(path))

	got, err := loaded.Predict(X)
	require.NoError(t, err)
	for i := 0; i < 40; i++ {
		assert.InDelta(t, want.At(i, 0), got.At(i, 0), 1e-12)
	}
}

func TestRegressorRegAttr(t *testing.T) {
	X, y := regressionData(t, 30)

	r, err := New(ChoiceRidge, WithNJobs(1))
	require.NoError(t, err)

	_, attrErr := r.RegAttr("Coef")
	assert.Error(t, attrErr, "attributes are unavailable before fitting")

	require.NoError(t, r.Fit(X, y))
	coef, err := r.RegAttr("Coef")
	require.NoError(t, err)
	m, ok := coef.(*mat.Dense)
	require.True(t, ok)
	rows, cols := m.Dims()
	assert.Equal(t, 3, rows)
	assert.Equal(t, 1, cols)

	_, err = r.RegAttr("NoSuchField")
	assert.Error(t, err)
}

func TestRegressorRegAttrMultiTarget(t *testing.T) {
	n := 20
	xs := make([]float64, n)
	ys := make([]float64, n*2)
	for i := 0; i < n; i++ {
		xs[i] = float64(i)
		ys[i*2] = 2 * float64(i)
		ys[i*2+1] = -float64(i)
	}
	X, err := dataset.New([]string{"x0"}, mat.NewDense(n, 1, xs))
	require.NoError(t, err)
	y, err := dataset.New([]string{"t0", "t1"}, mat.NewDense(n, 2, ys))
	require.NoError(t, err)

	r, err := New(ChoiceRidge, WithNJobs(1))
	require.NoError(t, err)
	require.NoError(t, r.Fit(X, y))

	// Multi-target wrapping collects the field per sub-estimator.
	coefs, err := r.RegAttr("Coef")
	require.NoError(t, err)
	perTarget, ok := coefs.([]interface{})
	require.True(t, ok)
	require.Len(t, perTarget, 2)
	first, ok := perTarget[0].(*mat.Dense)
	require.True(t, ok)
	assert.InDelta(t, 2.0, first.At(0, 0), 1e-6)
}

func TestRegressorFitWeightedCapability(t *testing.T) {
	X, y := regressionData(t, 30)
	w := make([]float64, 30)
	for i := range w {
		w[i] = 1
	}

	ridge, err := New(ChoiceRidge, WithNJobs(1))
	require.NoError(t, err)
	assert.NoError(t, ridge.FitWeighted(X, y, w))

	knn, err := New(ChoiceKNN, WithNJobs(1))
	require.NoError(t, err)
	fitErr := knn.FitWeighted(X, y, w)
	require.Error(t, fitErr)
	var capErr *errors.CapabilityError
	require.True(t, errors.As(fitErr, &capErr))
	assert.Equal(t, "KNNRegressor", capErr.Backend)
}
