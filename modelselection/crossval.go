package modelselection

import (
	"math"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/regressio/regressio/core/parallel"
	"github.com/regressio/regressio/dataset"
	"github.com/regressio/regressio/metrics"
	"github.com/regressio/regressio/pipeline"
	"github.com/regressio/regressio/pkg/log"
)

// Baseline scores an incumbent prediction alongside the candidate during
// cross-validation. The default incumbent copies the selected raw feature
// column forward unchanged.
type Baseline interface {
	Predict(X *dataset.Table, targetIndex int) (mat.Matrix, error)
}

// IdentityBaseline is the copy-forward incumbent: its prediction is the raw
// feature column named by the target index, or the whole feature matrix when
// no index is set.
type IdentityBaseline struct{}

// Predict returns the incumbent prediction for X.
func (IdentityBaseline) Predict(X *dataset.Table, targetIndex int) (mat.Matrix, error) {
	if targetIndex == dataset.NoTargetIndex {
		return X.Matrix(), nil
	}
	col, err := X.ColTable(targetIndex)
	if err != nil {
		return nil, err
	}
	return col.Matrix(), nil
}

// CVOptions configures one cross-validation run.
type CVOptions struct {
	CV      Splitter
	Scoring metrics.Scoring

	// NJobs bounds fold-level parallelism. Negative uses all cores.
	NJobs int

	// ReturnTrainScore also scores each fitted fold on its training rows.
	ReturnTrainScore bool

	// ReturnEstimator retains each fold's fitted pipeline in the result.
	ReturnEstimator bool

	// Baseline, when set, scores the incumbent prediction on every test
	// fold with the same scorer.
	Baseline Baseline

	// TargetIndex is the single-target slicing index, or
	// dataset.NoTargetIndex.
	TargetIndex int
}

// CVResult holds per-fold cross-validation outcomes in fold order. Scores
// follow the scorer convention (greater is better, losses negated); a fold
// whose fit or scoring failed carries NaN.
type CVResult struct {
	TestScore          []float64
	TrainScore         []float64
	FitTime            []float64
	ScoreTime          []float64
	IncumbentTestScore []float64
	Pipelines          []*pipeline.Pipeline
}

// MeanTestScore averages the per-fold test scores. Any NaN fold makes the
// mean NaN, so a failed candidate never outranks a finished one.
func (r *CVResult) MeanTestScore() float64 { return mean(r.TestScore) }

// StdTestScore is the population standard deviation of the test scores.
func (r *CVResult) StdTestScore() float64 { return std(r.TestScore) }

// MeanIncumbentScore averages the incumbent test scores.
func (r *CVResult) MeanIncumbentScore() float64 { return mean(r.IncumbentTestScore) }

// CrossValidate fits and scores a clone of the pipeline on every fold of the
// plan. The shared pipeline is never mutated; each fold worker clones it
// first. Fold results are returned in plan order regardless of which worker
// finished first.
func CrossValidate(p *pipeline.Pipeline, X, y *dataset.Table, opts CVOptions) (*CVResult, error) {
	if err := dataset.ValidateXY(X, y); err != nil {
		return nil, err
	}
	ySliced, err := dataset.SliceTarget(y, opts.TargetIndex)
	if err != nil {
		return nil, err
	}

	cv := opts.CV
	if cv == nil {
		cv = NewKFold(5, 0)
	}
	folds, err := cv.Split(X.NRows())
	if err != nil {
		return nil, err
	}

	logger := log.Logger("modelselection.cv")
	logger.Info().
		Int(log.SamplesKey, X.NRows()).
		Int(log.FoldsKey, len(folds)).
		Str(log.MetricKey, opts.Scoring.Name()).
		Msg("cross-validation started")

	k := len(folds)
	res := &CVResult{
		TestScore: make([]float64, k),
		FitTime:   make([]float64, k),
		ScoreTime: make([]float64, k),
	}
	if opts.ReturnTrainScore {
		res.TrainScore = make([]float64, k)
	}
	if opts.ReturnEstimator {
		res.Pipelines = make([]*pipeline.Pipeline, k)
	}
	if opts.Baseline != nil {
		res.IncumbentTestScore = make([]float64, k)
	}

	parallel.Run(k, opts.NJobs, func(i int) {
		fs := fitAndScore(p, X, ySliced, folds[i], opts)
		res.TestScore[i] = fs.testScore
		res.FitTime[i] = fs.fitTime
		res.ScoreTime[i] = fs.scoreTime
		if opts.ReturnTrainScore {
			res.TrainScore[i] = fs.trainScore
		}
		if opts.ReturnEstimator {
			res.Pipelines[i] = fs.fitted
		}
		if opts.Baseline != nil {
			res.IncumbentTestScore[i] = fs.incumbentScore
		}
		if fs.err != nil {
			logger.Warn().
				Err(fs.err).
				Int("fold", i).
				Msg("fold failed, scoring as NaN")
		} else {
			logger.Debug().
				Int("fold", i).
				Float64("test_score", fs.testScore).
				Float64(log.DurationKey, fs.fitTime).
				Msg("fold finished")
		}
	})
	return res, nil
}

// CrossValScore is the scores-only form of CrossValidate.
func CrossValScore(p *pipeline.Pipeline, X, y *dataset.Table, opts CVOptions) ([]float64, error) {
	opts.ReturnTrainScore = false
	opts.ReturnEstimator = false
	res, err := CrossValidate(p, X, y, opts)
	if err != nil {
		return nil, err
	}
	return res.TestScore, nil
}

type foldScore struct {
	testScore      float64
	trainScore     float64
	incumbentScore float64
	fitTime        float64
	scoreTime      float64
	fitted         *pipeline.Pipeline
	err            error
}

// fitAndScore runs one fold end to end. A failure anywhere inside the fold
// degrades its scores to NaN instead of aborting the whole run.
func fitAndScore(p *pipeline.Pipeline, X, y *dataset.Table, fold Fold, opts CVOptions) foldScore {
	nan := math.NaN()
	fs := foldScore{testScore: nan, trainScore: nan, incumbentScore: nan, fitTime: nan, scoreTime: nan}

	trainX, err := X.Take(fold.Train)
	if err != nil {
		fs.err = err
		return fs
	}
	trainY, err := y.Take(fold.Train)
	if err != nil {
		fs.err = err
		return fs
	}
	testX, err := X.Take(fold.Test)
	if err != nil {
		fs.err = err
		return fs
	}
	testY, err := y.Take(fold.Test)
	if err != nil {
		fs.err = err
		return fs
	}

	clone := p.Clone()
	start := time.Now()
	if err := clone.Fit(trainX.Matrix(), trainY.Matrix(), nil); err != nil {
		fs.err = err
		return fs
	}
	fs.fitTime = time.Since(start).Seconds()
	fs.fitted = clone

	start = time.Now()
	pred, err := clone.Predict(testX.Matrix())
	if err != nil {
		fs.err = err
		return fs
	}
	if v, err := opts.Scoring.Value(testY.Matrix(), pred); err == nil {
		fs.testScore = v
	} else {
		fs.err = err
	}
	fs.scoreTime = time.Since(start).Seconds()

	if opts.ReturnTrainScore {
		if trainPred, err := clone.Predict(trainX.Matrix()); err == nil {
			if v, err := opts.Scoring.Value(trainY.Matrix(), trainPred); err == nil {
				fs.trainScore = v
			}
		}
	}

	if opts.Baseline != nil {
		if basePred, err := opts.Baseline.Predict(testX, opts.TargetIndex); err == nil {
			if v, err := opts.Scoring.Value(testY.Matrix(), basePred); err == nil {
				fs.incumbentScore = v
			}
		}
	}
	return fs
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func std(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	m := mean(values)
	sum := 0.0
	for _, v := range values {
		d := v - m
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(values)))
}
