package supervised

import (
	"github.com/regressio/regressio/dataset"
	"github.com/regressio/regressio/metrics"
	"github.com/regressio/regressio/modelselection"
	"github.com/regressio/regressio/pipeline"
	"github.com/regressio/regressio/pkg/errors"
)

// config is the validated option state of a façade Regressor. Every option
// checks its value when applied, so construction fails fast instead of
// deferring bad configuration to fit time.
type config struct {
	cv               interface{}
	scoring          metrics.Scoring
	multioutput      metrics.Multioutput
	randomState      int64
	verbose          int
	nJobs            int
	returnTrainScore bool
	returnIncumbent  bool
	transform        interface{}
	memory           bool
	targetIndex      int
	chainOrder       []int
	stacking         *StackingOptions
	baseBoost        *pipeline.BaseBoostOptions
	refit            bool
	nIter            int
	bayesNIter       int
	initPoints       int
	baseline         modelselection.Baseline
	foldSize         modelselection.FoldSizeEstimator
	nQuantiles       int
}

func defaultConfig() config {
	return config{
		cv:          5,
		scoring:     metrics.Scoring{Metric: metrics.MSE, Negated: true},
		multioutput: metrics.RawValues,
		nJobs:       -1,
		targetIndex: dataset.NoTargetIndex,
		refit:       true,
		nIter:       10,
		bayesNIter:  10,
		initPoints:  2,
		baseline:    modelselection.IdentityBaseline{},
		foldSize:    modelselection.EstimateTrainFoldSize,
	}
}

// Option configures a façade Regressor at construction time.
type Option func(*config) error

// WithCV sets the cross-validation plan: an int fold count above 1 or a
// modelselection.Splitter.
func WithCV(cv interface{}) Option {
	return func(c *config) error {
		if _, err := modelselection.ResolveCV(cv, 0); err != nil {
			return err
		}
		c.cv = cv
		return nil
	}
}

// WithScoring sets the scoring name. Loss metrics follow the negated-scorer
// convention internally; reported values have the sign restored.
func WithScoring(name string) Option {
	return func(c *config) error {
		s, err := metrics.ParseScoring(name)
		if err != nil {
			return err
		}
		c.scoring = s
		return nil
	}
}

// WithScoreMultioutput sets the multi-target aggregation policy used by
// Score.
func WithScoreMultioutput(name string) Option {
	return func(c *config) error {
		p, err := metrics.ParseMultioutput(name)
		if err != nil {
			return err
		}
		c.multioutput = p
		return nil
	}
}

// WithRandomState seeds fold shuffling and randomized sampling.
func WithRandomState(seed int64) Option {
	return func(c *config) error {
		c.randomState = seed
		return nil
	}
}

// WithVerbose sets the logging verbosity: 0 warnings only, 1 progress, 2 and
// above debug.
func WithVerbose(verbose int) Option {
	return func(c *config) error {
		if verbose < 0 {
			return errors.NewConfigurationError("verbose", "must be nonnegative", verbose)
		}
		c.verbose = verbose
		return nil
	}
}

// WithNJobs bounds worker parallelism. Negative means all cores, 1 runs
// serially. Zero is rejected: it would mean no workers at all.
func WithNJobs(nJobs int) Option {
	return func(c *config) error {
		if nJobs == 0 {
			return errors.NewConfigurationError("n_jobs", "must be positive or negative, not zero", nJobs)
		}
		c.nJobs = nJobs
		return nil
	}
}

// WithReturnTrainScore also scores each cross-validation fold on its
// training rows.
func WithReturnTrainScore(enabled bool) Option {
	return func(c *config) error {
		c.returnTrainScore = enabled
		return nil
	}
}

// WithReturnIncumbentScore also scores the configured baseline's copy-forward
// prediction on every cross-validation test fold.
func WithReturnIncumbentScore(enabled bool) Option {
	return func(c *config) error {
		c.returnIncumbent = enabled
		return nil
	}
}

// WithPipelineTransform selects preprocessing stages: a stage name, a list of
// names, a transformer, or prebuilt stages.
func WithPipelineTransform(spec interface{}) Option {
	return func(c *config) error {
		if _, err := pipeline.ResolveTransform(spec, 0); err != nil {
			return err
		}
		c.transform = spec
		return nil
	}
}

// WithPipelineMemory caches the fitted transform output of the most recent
// input.
func WithPipelineMemory(enabled bool) Option {
	return func(c *config) error {
		c.memory = enabled
		return nil
	}
}

// WithNQuantiles overrides the landmark count of quantile transform stages.
// Without it the count is sized from the estimated training-fold size.
func WithNQuantiles(n int) Option {
	return func(c *config) error {
		if n < 2 {
			return errors.NewConfigurationError("n_quantiles", "must be at least 2", n)
		}
		c.nQuantiles = n
		return nil
	}
}

// WithTargetIndex selects one column of a multi-target y for single-target
// subtask slicing, and the incumbent column for base boosting.
func WithTargetIndex(index int) Option {
	return func(c *config) error {
		if index < 0 {
			return errors.NewConfigurationError("target_index", "must be nonnegative", index)
		}
		c.targetIndex = index
		return nil
	}
}

// WithChainOrder selects chained multi-target fitting in the given target
// order instead of independent per-target fitting.
func WithChainOrder(order []int) Option {
	return func(c *config) error {
		if len(order) == 0 {
			return errors.NewConfigurationError("chain_order", "must not be empty", order)
		}
		c.chainOrder = append([]int(nil), order...)
		return nil
	}
}

// WithStackingOptions configures the stacking backend.
func WithStackingOptions(opts StackingOptions) Option {
	return func(c *config) error {
		if len(opts.Layers) == 0 {
			return errors.NewConfigurationError("stacking_options.layers",
				"must name at least one base regressor", len(opts.Layers))
		}
		if opts.Final == nil {
			return errors.NewConfigurationError("stacking_options.final",
				"must name a final regressor", nil)
		}
		c.stacking = &opts
		return nil
	}
}

// WithBaseBoostingOptions enables the residual base-boosting stage.
func WithBaseBoostingOptions(opts pipeline.BaseBoostOptions) Option {
	return func(c *config) error {
		if err := opts.Validate(); err != nil {
			return err
		}
		c.baseBoost = &opts
		return nil
	}
}

// WithRefit controls whether searches refit the winner on the full data.
func WithRefit(enabled bool) Option {
	return func(c *config) error {
		c.refit = enabled
		return nil
	}
}

// WithRandomizedCVNIter sets the sampled candidate count of randomized
// search.
func WithRandomizedCVNIter(n int) Option {
	return func(c *config) error {
		if n < 1 {
			return errors.NewConfigurationError("randomized_cv_n_iter", "must be at least 1", n)
		}
		c.nIter = n
		return nil
	}
}

// WithBayesOptCVNIter sets the trial count of Bayesian search.
func WithBayesOptCVNIter(n int) Option {
	return func(c *config) error {
		if n < 1 {
			return errors.NewConfigurationError("bayesoptcv_n_iter", "must be at least 1", n)
		}
		c.bayesNIter = n
		return nil
	}
}

// WithBayesOptCVInitPoints sets the random startup-trial count of Bayesian
// search.
func WithBayesOptCVInitPoints(n int) Option {
	return func(c *config) error {
		if n < 1 {
			return errors.NewConfigurationError("bayesoptcv_init_points", "must be at least 1", n)
		}
		c.initPoints = n
		return nil
	}
}

// WithBaseline replaces the copy-forward incumbent scored during
// cross-validation and base boosting.
func WithBaseline(b modelselection.Baseline) Option {
	return func(c *config) error {
		if b == nil {
			return errors.NewConfigurationError("baseline", "must not be nil", b)
		}
		c.baseline = b
		return nil
	}
}

// WithFoldSizeEstimator replaces the training-fold size estimate that sizes
// quantile transform stages.
func WithFoldSizeEstimator(f modelselection.FoldSizeEstimator) Option {
	return func(c *config) error {
		if f == nil {
			return errors.NewConfigurationError("fold_size_estimator", "must not be nil", f)
		}
		c.foldSize = f
		return nil
	}
}
