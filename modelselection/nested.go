package modelselection

import (
	"math"

	"github.com/regressio/regressio/core/parallel"
	"github.com/regressio/regressio/dataset"
	"github.com/regressio/regressio/pipeline"
	"github.com/regressio/regressio/pkg/errors"
	"github.com/regressio/regressio/pkg/log"
)

// SearchStrategy selects the hyperparameter search run inside each outer
// training fold of a nested cross-validation.
type SearchStrategy int

const (
	// GridStrategy exhaustively evaluates the value grids.
	GridStrategy SearchStrategy = iota
	// RandomizedStrategy samples NIter assignments.
	RandomizedStrategy
	// BayesStrategy runs sequential Bayesian optimization.
	BayesStrategy
)

// NestedOptions configures a nested cross-validation run.
type NestedOptions struct {
	SearchOptions

	// OuterCV plans the outer folds that produce the generalization
	// estimate. Nil defaults to a seeded 5-fold plan.
	OuterCV Splitter

	// InnerCV plans the inner folds used by the search within each outer
	// training fold. Nil defaults to a seeded 5-fold plan.
	InnerCV Splitter

	// Strategy selects the inner search.
	Strategy SearchStrategy

	// InitPoints is the Bayesian startup-trial count.
	InitPoints int

	// ReturnInnerScore also reports each outer fold's best inner score.
	ReturnInnerScore bool
}

// NestedResult holds one generalization score per outer fold, with the loss
// sign restored. InnerScore, when requested, holds the winning inner
// cross-validation score of each outer fold.
type NestedResult struct {
	OuterScore []float64
	InnerScore []float64
}

// NestedCrossValidate estimates generalization performance without
// selection bias: each outer training fold runs its own hyperparameter
// search on inner folds drawn only from that training fold, and the winner
// is scored once on the held-out outer test fold it has never seen.
//
// Outer folds run in parallel under the n_jobs bound; the search inside each
// outer fold then runs serially.
func NestedCrossValidate(p *pipeline.Pipeline, X, y *dataset.Table, space Space, opts NestedOptions) (*NestedResult, error) {
	if err := dataset.ValidateXY(X, y); err != nil {
		return nil, err
	}
	ySliced, err := dataset.SliceTarget(y, opts.TargetIndex)
	if err != nil {
		return nil, err
	}

	outer := opts.OuterCV
	if outer == nil {
		outer = NewKFold(5, opts.Seed)
	}
	folds, err := outer.Split(X.NRows())
	if err != nil {
		return nil, err
	}

	logger := log.Logger("modelselection.nested")
	logger.Info().
		Int("outer_folds", len(folds)).
		Str(log.MetricKey, opts.Scoring.Name()).
		Msg("nested cross-validation started")

	res := &NestedResult{OuterScore: make([]float64, len(folds))}
	if opts.ReturnInnerScore {
		res.InnerScore = make([]float64, len(folds))
	}

	// Inner work is serialized; the outer folds carry the parallelism.
	inner := opts.SearchOptions
	inner.NJobs = 1
	inner.Refit = true
	inner.CV = opts.InnerCV
	if inner.CV == nil {
		inner.CV = NewKFold(5, opts.Seed)
	}

	parallel.Run(len(folds), opts.NJobs, func(i int) {
		outerScore, innerScore := nestedFold(p, X, ySliced, folds[i], space, opts, inner)
		res.OuterScore[i] = outerScore
		if opts.ReturnInnerScore {
			res.InnerScore[i] = innerScore
		}
		if math.IsNaN(outerScore) {
			logger.Warn().Int("outer_fold", i).Msg("outer fold failed, scoring as NaN")
		} else {
			logger.Debug().
				Int("outer_fold", i).
				Float64("outer_score", outerScore).
				Msg("outer fold finished")
		}
	})
	return res, nil
}

// nestedFold runs the inner search on one outer training fold and scores the
// winner on the outer test fold. Failures degrade to NaN.
func nestedFold(p *pipeline.Pipeline, X, y *dataset.Table, fold Fold, space Space, opts NestedOptions, inner SearchOptions) (outerScore, innerScore float64) {
	nan := math.NaN()
	trainX, err := X.Take(fold.Train)
	if err != nil {
		return nan, nan
	}
	trainY, err := y.Take(fold.Train)
	if err != nil {
		return nan, nan
	}
	testX, err := X.Take(fold.Test)
	if err != nil {
		return nan, nan
	}
	testY, err := y.Take(fold.Test)
	if err != nil {
		return nan, nan
	}

	sr, err := runStrategy(p, trainX, trainY, space, opts.Strategy, inner, opts.InitPoints)
	if err != nil {
		return nan, nan
	}
	if sr.BestPipeline == nil {
		return nan, nan
	}

	pred, err := sr.BestPipeline.Predict(testX.Matrix())
	if err != nil {
		return nan, nan
	}
	v, err := opts.Scoring.Value(testY.Matrix(), pred)
	if err != nil {
		return nan, nan
	}
	return opts.Scoring.RestoreSign(v), sr.BestScore
}

func runStrategy(p *pipeline.Pipeline, X, y *dataset.Table, space Space, strategy SearchStrategy, opts SearchOptions, initPoints int) (*SearchResult, error) {
	switch strategy {
	case GridStrategy:
		return GridSearch(p, X, y, space, opts)
	case RandomizedStrategy:
		return RandomizedSearch(p, X, y, space, opts)
	case BayesStrategy:
		return BayesSearch(p, X, y, space, BayesOptions{SearchOptions: opts, InitPoints: initPoints})
	}
	return nil, errors.NewConfigurationError("search_strategy", "unknown strategy", strategy)
}
