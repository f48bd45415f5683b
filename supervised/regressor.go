package supervised

import (
	"encoding/gob"
	"math"
	"math/rand/v2"
	"reflect"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"

	"github.com/regressio/regressio/core/model"
	"github.com/regressio/regressio/dataset"
	"github.com/regressio/regressio/ensemble"
	"github.com/regressio/regressio/linear"
	"github.com/regressio/regressio/metrics"
	"github.com/regressio/regressio/modelselection"
	"github.com/regressio/regressio/neighbors"
	"github.com/regressio/regressio/pipeline"
	"github.com/regressio/regressio/pkg/errors"
	"github.com/regressio/regressio/pkg/log"
	"github.com/regressio/regressio/preprocessing"
)

func init() {
	// Concrete types that may sit behind interface fields of a persisted
	// pipeline.
	gob.Register(&linear.Ridge{})
	gob.Register(&linear.LinearRegression{})
	gob.Register(&neighbors.KNNRegressor{})
	gob.Register(&ensemble.StackingRegressor{})
	gob.Register(&pipeline.MultiOutput{})
	gob.Register(&pipeline.Chain{})
	gob.Register(&preprocessing.StandardScaler{})
	gob.Register(&preprocessing.QuantileTransformer{})
}

// Regressor is the unified façade over the backend regressors. One instance
// carries a backend choice plus workflow configuration and exposes fitting,
// scoring, cross-validation, hyperparameter search, nested cross-validation,
// and base boosting behind a single surface.
type Regressor struct {
	choice  RegressorChoice
	cfg     config
	backend model.Regressor

	pipe          *Fitted
	search        *modelselection.SearchResult
	incumbentWins bool
	logger        zerolog.Logger
}

// Fitted is the fitted pipeline state of a façade Regressor.
type Fitted struct {
	Pipeline *pipeline.Pipeline
}

// New creates a façade Regressor for the chosen backend. Options validate
// eagerly, so an invalid value fails here rather than at fit time.
func New(choice RegressorChoice, opts ...Option) (*Regressor, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}
	backend, err := buildBackend(choice, &cfg)
	if err != nil {
		return nil, err
	}
	log.SetVerbosity(cfg.verbose)
	return &Regressor{
		choice:  choice,
		cfg:     cfg,
		backend: backend,
		logger:  log.Logger("supervised"),
	}, nil
}

// Choice returns the configured backend choice.
func (r *Regressor) Choice() RegressorChoice { return r.choice }

// buildPipeline assembles an unfitted pipeline sized for trainRows training
// samples. Size-sensitive stages (quantile landmark counts) are derived from
// trainRows, which under cross-validation is the estimated fold size rather
// than the full sample count.
func (r *Regressor) buildPipeline(nTargets, trainRows int) (*pipeline.Pipeline, error) {
	nq := r.cfg.nQuantiles
	if nq == 0 {
		nq = trainRows
	}
	return pipeline.Make(r.backend.Clone(), pipeline.Config{
		Transform:   r.cfg.transform,
		NQuantiles:  nq,
		NTargets:    nTargets,
		ChainOrder:  r.cfg.chainOrder,
		TargetIndex: r.cfg.targetIndex,
		BaseBoost:   r.cfg.baseBoost,
		Memory:      r.cfg.memory,
	})
}

// nTargetsAfterSlicing reports how many target columns the pipeline must
// produce once single-target slicing has been applied.
func (r *Regressor) nTargetsAfterSlicing(y *dataset.Table) int {
	if r.cfg.targetIndex != dataset.NoTargetIndex {
		return 1
	}
	return y.NCols()
}

func (r *Regressor) splitter() (modelselection.Splitter, error) {
	return modelselection.ResolveCV(r.cfg.cv, r.cfg.randomState)
}

func (r *Regressor) cvOptions(cv modelselection.Splitter) modelselection.CVOptions {
	return modelselection.CVOptions{
		CV:               cv,
		Scoring:          r.cfg.scoring,
		NJobs:            r.cfg.nJobs,
		ReturnTrainScore: r.cfg.returnTrainScore,
		TargetIndex:      r.cfg.targetIndex,
	}
}

// Fit fits the pipeline on the full data.
func (r *Regressor) Fit(X, y *dataset.Table) error {
	return r.fit(X, y, nil)
}

// FitWeighted fits with per-sample weights. Backends without sample-weight
// support fail with a capability error naming the backend.
func (r *Regressor) FitWeighted(X, y *dataset.Table, sampleWeight []float64) error {
	return r.fit(X, y, sampleWeight)
}

func (r *Regressor) fit(X, y *dataset.Table, sampleWeight []float64) error {
	if err := dataset.ValidateXY(X, y); err != nil {
		return err
	}
	ySliced, err := dataset.SliceTarget(y, r.cfg.targetIndex)
	if err != nil {
		return err
	}
	p, err := r.buildPipeline(ySliced.NCols(), X.NRows())
	if err != nil {
		return err
	}
	r.logger.Info().
		Str(log.EstimatorKey, r.choice.String()).
		Str(log.OperationKey, "fit").
		Int(log.SamplesKey, X.NRows()).
		Int(log.FeaturesKey, X.NCols()).
		Int(log.TargetsKey, ySliced.NCols()).
		Msg("fitting")
	if err := p.Fit(X.Matrix(), ySliced.Matrix(), sampleWeight); err != nil {
		return err
	}
	r.pipe = &Fitted{Pipeline: p}
	r.incumbentWins = false
	return nil
}

// Predict returns predictions for X. After a base-boosting run in which the
// incumbent won, the prediction is the incumbent's copy-forward output.
func (r *Regressor) Predict(X *dataset.Table) (mat.Matrix, error) {
	if X == nil {
		return nil, errors.NewDataError("Regressor.Predict", "the feature matrix X is nil")
	}
	if r.incumbentWins {
		return r.cfg.baseline.Predict(X, r.cfg.targetIndex)
	}
	if r.pipe == nil {
		return nil, errors.NewNotFittedError("Regressor", "Predict")
	}
	return r.pipe.Pipeline.Predict(X.Matrix())
}

// ReturnIncumbent reports whether the last base-boosting run kept the
// incumbent instead of the fitted candidate.
func (r *Regressor) ReturnIncumbent() bool { return r.incumbentWins }

// Score computes the configured metric between true and predicted targets
// under the configured multi-output policy. RawValues yields one value per
// target; the averaging policies yield a single element.
func (r *Regressor) Score(yTrue, yPred mat.Matrix) ([]float64, error) {
	return metrics.Score(yTrue, yPred, r.cfg.scoring.Metric, r.cfg.multioutput)
}

// CrossValidate runs the cross-validation engine on a lazily built pipeline.
// Reported scores have the loss sign restored, so error metrics read as
// nonnegative errors. With the incumbent score requested, every test fold
// also carries the baseline's copy-forward score.
func (r *Regressor) CrossValidate(X, y *dataset.Table) (*modelselection.CVResult, error) {
	cv, err := r.splitter()
	if err != nil {
		return nil, err
	}
	p, err := r.lazyPipeline(X, y, cv)
	if err != nil {
		return nil, err
	}
	opts := r.cvOptions(cv)
	opts.ReturnEstimator = true
	if r.cfg.returnIncumbent {
		opts.Baseline = r.cfg.baseline
	}
	res, err := modelselection.CrossValidate(p, X, y, opts)
	if err != nil {
		return nil, err
	}
	res.TestScore = r.cfg.scoring.RestoreSignSlice(res.TestScore)
	if res.TrainScore != nil {
		res.TrainScore = r.cfg.scoring.RestoreSignSlice(res.TrainScore)
	}
	if res.IncumbentTestScore != nil {
		res.IncumbentTestScore = r.cfg.scoring.RestoreSignSlice(res.IncumbentTestScore)
	}
	return res, nil
}

// CrossValScore returns per-fold test scores with the loss sign restored, so
// error metrics read as nonnegative errors. With the incumbent score
// requested, the baseline's per-fold scores are returned instead.
func (r *Regressor) CrossValScore(X, y *dataset.Table) ([]float64, error) {
	cv, err := r.splitter()
	if err != nil {
		return nil, err
	}
	p, err := r.lazyPipeline(X, y, cv)
	if err != nil {
		return nil, err
	}
	opts := r.cvOptions(cv)
	if r.cfg.returnIncumbent {
		opts.Baseline = r.cfg.baseline
		res, err := modelselection.CrossValidate(p, X, y, opts)
		if err != nil {
			return nil, err
		}
		return r.cfg.scoring.RestoreSignSlice(res.IncumbentTestScore), nil
	}
	scores, err := modelselection.CrossValScore(p, X, y, opts)
	if err != nil {
		return nil, err
	}
	return r.cfg.scoring.RestoreSignSlice(scores), nil
}

// BaseBoostCV gates base boosting behind cross-validated evidence: the
// candidate pipeline and the copy-forward incumbent are scored on the same
// folds, and only a candidate that beats the incumbent's mean error is
// fitted on the full data. Otherwise the incumbent is kept and Predict
// returns its output.
func (r *Regressor) BaseBoostCV(X, y *dataset.Table) error {
	if r.cfg.baseBoost == nil {
		return errors.NewConfigurationError("base_boosting_options",
			"base boosting must be configured before BaseBoostCV", nil)
	}
	if r.cfg.scoring.Metric != metrics.MAE && r.cfg.scoring.Metric != metrics.MSE {
		return errors.NewConfigurationError("scoring",
			"the incumbent gate requires a mean absolute or mean squared error scorer",
			r.cfg.scoring.Name())
	}

	cv, err := r.splitter()
	if err != nil {
		return err
	}
	p, err := r.lazyPipeline(X, y, cv)
	if err != nil {
		return err
	}
	opts := r.cvOptions(cv)
	opts.Baseline = r.cfg.baseline
	res, err := modelselection.CrossValidate(p, X, y, opts)
	if err != nil {
		return err
	}

	// Scores are negated errors, so the comparison is on restored means.
	candidate := r.cfg.scoring.RestoreSign(res.MeanTestScore())
	incumbent := r.cfg.scoring.RestoreSign(res.MeanIncumbentScore())
	if math.IsNaN(candidate) || candidate >= incumbent {
		r.incumbentWins = true
		r.pipe = nil
		r.logger.Info().
			Float64("candidate_error", candidate).
			Float64("incumbent_error", incumbent).
			Msg("incumbent kept")
		return nil
	}
	r.logger.Info().
		Float64("candidate_error", candidate).
		Float64("incumbent_error", incumbent).
		Msg("candidate accepted")
	return r.Fit(X, y)
}

// Search runs a hyperparameter search with the given strategy and adopts the
// refitted winner as this Regressor's fitted state.
func (r *Regressor) Search(X, y *dataset.Table, space modelselection.Space, strategy modelselection.SearchStrategy) (*modelselection.SearchResult, error) {
	cv, err := r.splitter()
	if err != nil {
		return nil, err
	}
	p, err := r.lazyPipeline(X, y, cv)
	if err != nil {
		return nil, err
	}
	opts := modelselection.SearchOptions{
		CVOptions: r.cvOptions(cv),
		Refit:     r.cfg.refit,
		NIter:     r.cfg.nIter,
		Seed:      r.cfg.randomState,
	}

	var result *modelselection.SearchResult
	switch strategy {
	case modelselection.GridStrategy:
		result, err = modelselection.GridSearch(p, X, y, space, opts)
	case modelselection.RandomizedStrategy:
		result, err = modelselection.RandomizedSearch(p, X, y, space, opts)
	case modelselection.BayesStrategy:
		opts.NIter = r.cfg.bayesNIter
		result, err = modelselection.BayesSearch(p, X, y, space, modelselection.BayesOptions{
			SearchOptions: opts,
			InitPoints:    r.cfg.initPoints,
		})
	default:
		return nil, errors.NewConfigurationError("search_strategy", "unknown strategy", strategy)
	}
	if err != nil {
		return nil, err
	}

	r.search = result
	if result.BestPipeline != nil {
		r.pipe = &Fitted{Pipeline: result.BestPipeline}
		r.incumbentWins = false
	}
	return result, nil
}

// GridSearchCV runs exhaustive grid search.
func (r *Regressor) GridSearchCV(X, y *dataset.Table, space modelselection.Space) (*modelselection.SearchResult, error) {
	return r.Search(X, y, space, modelselection.GridStrategy)
}

// RandomizedSearchCV samples candidates from the space.
func (r *Regressor) RandomizedSearchCV(X, y *dataset.Table, space modelselection.Space) (*modelselection.SearchResult, error) {
	return r.Search(X, y, space, modelselection.RandomizedStrategy)
}

// BayesOptCV runs sequential Bayesian optimization over the space.
func (r *Regressor) BayesOptCV(X, y *dataset.Table, space modelselection.Space) (*modelselection.SearchResult, error) {
	return r.Search(X, y, space, modelselection.BayesStrategy)
}

// BestParams returns the winning assignment of the last search.
func (r *Regressor) BestParams() (pipeline.Params, error) {
	if r.search == nil {
		return pipeline.Params{}, errors.NewSearchStateError("best_params")
	}
	return r.search.BestParams, nil
}

// BestScore returns the sign-restored best score of the last search.
func (r *Regressor) BestScore() (float64, error) {
	if r.search == nil {
		return math.NaN(), errors.NewSearchStateError("best_score")
	}
	return r.search.BestScore, nil
}

// NestedCrossValidate estimates generalization performance by running the
// chosen search inside every outer training fold. The outer and inner plans
// both follow the configured cv.
func (r *Regressor) NestedCrossValidate(X, y *dataset.Table, space modelselection.Space, strategy modelselection.SearchStrategy) (*modelselection.NestedResult, error) {
	outer, err := r.splitter()
	if err != nil {
		return nil, err
	}
	inner, err := r.splitter()
	if err != nil {
		return nil, err
	}
	p, err := r.lazyPipeline(X, y, outer)
	if err != nil {
		return nil, err
	}
	nIter := r.cfg.nIter
	if strategy == modelselection.BayesStrategy {
		nIter = r.cfg.bayesNIter
	}
	return modelselection.NestedCrossValidate(p, X, y, space, modelselection.NestedOptions{
		SearchOptions: modelselection.SearchOptions{
			CVOptions: r.cvOptions(nil),
			Refit:     true,
			NIter:     nIter,
			Seed:      r.cfg.randomState,
		},
		OuterCV:          outer,
		InnerCV:          inner,
		Strategy:         strategy,
		InitPoints:       r.cfg.initPoints,
		ReturnInnerScore: true,
	})
}

// lazyPipeline builds the unfitted pipeline for a cross-validated workflow,
// sizing fold-sensitive stages from the estimated training-fold size.
func (r *Regressor) lazyPipeline(X, y *dataset.Table, cv modelselection.Splitter) (*pipeline.Pipeline, error) {
	if err := dataset.ValidateXY(X, y); err != nil {
		return nil, err
	}
	ySliced, err := dataset.SliceTarget(y, r.cfg.targetIndex)
	if err != nil {
		return nil, err
	}
	trainRows := X.NRows()
	if cv != nil {
		trainRows = r.cfg.foldSize(X.NRows(), cv.NumFolds())
	}
	return r.buildPipeline(ySliced.NCols(), trainRows)
}

// Subsample draws a seeded random subsample of the rows without replacement.
// The proportion must be in (0, 1].
func (r *Regressor) Subsample(X, y *dataset.Table, proportion float64) (*dataset.Table, *dataset.Table, error) {
	if proportion <= 0 || proportion > 1 {
		return nil, nil, errors.NewConfigurationError("subsample_proportion", "must be in (0, 1]", proportion)
	}
	if err := dataset.ValidateXY(X, y); err != nil {
		return nil, nil, err
	}

	n := X.NRows()
	size := int(math.Round(proportion * float64(n)))
	if size < 1 {
		size = 1
	}
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	rng := rand.New(rand.NewPCG(uint64(r.cfg.randomState), uint64(r.cfg.randomState)))
	rng.Shuffle(n, func(i, j int) { order[i], order[j] = order[j], order[i] })

	subX, err := X.Take(order[:size])
	if err != nil {
		return nil, nil, err
	}
	subY, err := y.Take(order[:size])
	if err != nil {
		return nil, nil, err
	}
	return subX, subY, nil
}

// Save persists the fitted pipeline to a file in gob format.
func (r *Regressor) Save(filename string) error {
	if r.pipe == nil {
		return errors.NewNotFittedError("Regressor", "Save")
	}
	return model.Dump(r.pipe, filename)
}

// LoadModel restores a fitted pipeline previously written by Save.
func (r *Regressor) LoadModel(filename string) error {
	var fitted Fitted
	if err := model.Load(&fitted, filename); err != nil {
		return err
	}
	r.pipe = &fitted
	r.incumbentWins = false
	return nil
}

// RegAttr exposes a named exported field of the fitted backend regressor,
// for example "Coef" on the linear backends. With a multi-target wrapper the
// field is collected from every per-target sub-estimator.
func (r *Regressor) RegAttr(name string) (interface{}, error) {
	if r.pipe == nil {
		return nil, errors.NewNotFittedError("Regressor", "RegAttr")
	}
	if subs := r.pipe.Pipeline.Estimators(); subs != nil {
		out := make([]interface{}, len(subs))
		for i, sub := range subs {
			v, err := fieldOf(sub, name)
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil
	}
	return fieldOf(r.pipe.Pipeline.Reg, name)
}

func fieldOf(reg model.Regressor, name string) (interface{}, error) {
	v := reflect.Indirect(reflect.ValueOf(reg))
	if v.Kind() != reflect.Struct {
		return nil, errors.NewConfigurationError("attribute", "backend does not expose fields", name)
	}
	field := v.FieldByName(name)
	if !field.IsValid() {
		return nil, errors.NewConfigurationError("attribute", "not an exported backend field", name)
	}
	return field.Interface(), nil
}
