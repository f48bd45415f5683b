package modelselection

import (
	"fmt"
	"math"

	"github.com/c-bata/goptuna"
	"github.com/c-bata/goptuna/tpe"

	"github.com/regressio/regressio/dataset"
	"github.com/regressio/regressio/pipeline"
	"github.com/regressio/regressio/pkg/errors"
	"github.com/regressio/regressio/pkg/log"
)

// BayesOptions configures Bayesian hyperparameter search.
type BayesOptions struct {
	SearchOptions

	// InitPoints is the number of random startup trials before the TPE
	// sampler starts exploiting its surrogate.
	InitPoints int
}

// BayesSearch runs sequential Bayesian optimization over the space with a
// tree-structured Parzen estimator. Trials run one at a time: each suggestion
// depends on every earlier outcome, so trial-level parallelism would change
// the search itself. Fold-level parallelism inside each trial still applies.
func BayesSearch(p *pipeline.Pipeline, X, y *dataset.Table, space Space, opts BayesOptions) (*SearchResult, error) {
	for i := range space.Dimensions {
		if err := space.Dimensions[i].validate(false); err != nil {
			return nil, err
		}
	}
	if len(space.Dimensions) == 0 {
		return nil, errors.NewConfigurationError("search_params", "empty search space", space)
	}
	if opts.NIter < 1 {
		return nil, errors.NewConfigurationError("bayesoptcv_n_iter", "must be at least 1", opts.NIter)
	}
	if opts.InitPoints < 1 {
		opts.InitPoints = 2
	}
	if err := dataset.ValidateXY(X, y); err != nil {
		return nil, err
	}

	logger := log.Logger("modelselection.bayes")
	logger.Info().
		Int("trials", opts.NIter).
		Int("init_points", opts.InitPoints).
		Str(log.MetricKey, opts.Scoring.Name()).
		Msg("bayesian search started")

	result := &SearchResult{BestIndex: -1}
	best := math.Inf(-1)

	objective := func(trial goptuna.Trial) (float64, error) {
		params, err := suggestParams(trial, space.Dimensions)
		if err != nil {
			return 0, err
		}
		clone := p.Clone()
		if err := clone.Apply(params); err != nil {
			return 0, err
		}
		cvRes, err := CrossValidate(clone, X, y, opts.CVOptions)
		if err != nil {
			return 0, err
		}
		c := Candidate{
			Params:        params,
			MeanTestScore: cvRes.MeanTestScore(),
			StdTestScore:  cvRes.StdTestScore(),
			MeanFitTime:   mean(cvRes.FitTime),
			MeanScoreTime: mean(cvRes.ScoreTime),
		}
		result.Candidates = append(result.Candidates, c)
		if !math.IsNaN(c.MeanTestScore) && c.MeanTestScore > best {
			best = c.MeanTestScore
			result.BestIndex = len(result.Candidates) - 1
		}
		logger.Debug().
			Int("trial", len(result.Candidates)-1).
			Float64("mean_test_score", c.MeanTestScore).
			Msg("trial evaluated")

		// The sampler maximizes; a failed trial must not look attractive.
		if math.IsNaN(c.MeanTestScore) {
			return -math.MaxFloat64, nil
		}
		return c.MeanTestScore, nil
	}

	sampler := tpe.NewSampler(
		tpe.SamplerOptionSeed(opts.Seed),
		tpe.SamplerOptionNumberOfStartupTrials(opts.InitPoints),
	)
	study, err := goptuna.CreateStudy("regressio",
		goptuna.StudyOptionDirection(goptuna.StudyDirectionMaximize),
		goptuna.StudyOptionSampler(sampler),
	)
	if err != nil {
		return nil, errors.Wrap(err, "bayesian search setup")
	}
	if err := study.Optimize(objective, opts.NIter); err != nil {
		return nil, errors.Wrap(err, "bayesian search")
	}
	if result.BestIndex < 0 {
		return nil, errors.NewSearchStateError("best_index")
	}
	result.BestParams = result.Candidates[result.BestIndex].Params
	result.BestScore = opts.Scoring.RestoreSign(best)

	if opts.Refit {
		if err := refitBest(p, X, y, result, opts.SearchOptions); err != nil {
			return nil, err
		}
	}
	logger.Info().
		Int("best_index", result.BestIndex).
		Float64("best_score", result.BestScore).
		Msg("bayesian search finished")
	return result, nil
}

// suggestParams draws one assignment from the trial. Explicit value grids are
// suggested by index so non-string values stay typed.
func suggestParams(trial goptuna.Trial, dims []Dimension) (pipeline.Params, error) {
	assignment := make(map[*Dimension]interface{}, len(dims))
	for d := range dims {
		dim := &dims[d]
		name := dim.Name
		if dim.Target != dataset.NoTargetIndex {
			// Dimensions may share a parameter name across targets; the
			// trial key must keep them distinct.
			name = fmt.Sprintf("%s@%d", dim.Name, dim.Target)
		}
		switch {
		case len(dim.Values) > 0:
			idx, err := trial.SuggestInt(name, 0, len(dim.Values)-1)
			if err != nil {
				return pipeline.Params{}, err
			}
			assignment[dim] = dim.Values[idx]
		case dim.Ints:
			v, err := trial.SuggestInt(name, int(dim.Low), int(dim.High))
			if err != nil {
				return pipeline.Params{}, err
			}
			assignment[dim] = v
		case dim.Log:
			v, err := trial.SuggestLogFloat(name, dim.Low, dim.High)
			if err != nil {
				return pipeline.Params{}, err
			}
			assignment[dim] = v
		default:
			v, err := trial.SuggestFloat(name, dim.Low, dim.High)
			if err != nil {
				return pipeline.Params{}, err
			}
			assignment[dim] = v
		}
	}
	return assemble(assignment), nil
}
