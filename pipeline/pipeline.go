// Package pipeline composes preprocessing stages with a backend regressor
// into one fit/predict-capable object.
//
// A pipeline is built lazily, once per target configuration, by the façade.
// It is shared read-only across parallel fold workers: every worker clones it
// before fitting, since fitting mutates learned state.
package pipeline

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/regressio/regressio/core/model"
	"github.com/regressio/regressio/pkg/errors"
)

// Stage is a named preprocessing step.
type Stage struct {
	Name        string
	Transformer model.Transformer
}

// Pipeline chains fitted transform stages into a backend regressor, with an
// optional residual base-boosting stage on top of the incumbent prediction.
type Pipeline struct {
	model.StateTracker

	Stages []Stage
	Reg    model.Regressor

	// BaseBoost, when set, replaces the plain regressor fit with residual
	// boosting on top of the copy-forward incumbent prediction.
	BaseBoost *BaseBoostOptions

	// TargetIndex selects the incumbent column of the raw feature matrix
	// for base boosting. Negative means the whole matrix.
	TargetIndex int

	// Memory caches the fitted transform output for the most recent input,
	// so an immediate train-score pass does not re-transform.
	Memory bool

	Boosters []model.Regressor
	cacheIn  mat.Matrix
	cacheOut mat.Matrix
}

// BaseBoostOptions configures the residual base-boosting stage.
type BaseBoostOptions struct {
	// NEstimators is the number of correction stages.
	NEstimators int
	// LearningRate shrinks each correction.
	LearningRate float64
	// Loss selects the pseudo-residual: "ls", "lad", or "huber".
	Loss string
	// HuberDelta is the clipping threshold for the huber loss.
	HuberDelta float64
}

// Validate checks the base-boosting options at construction time.
func (o *BaseBoostOptions) Validate() error {
	if o.NEstimators < 1 {
		return errors.NewConfigurationError("base_boosting_options.n_estimators",
			"must be at least 1", o.NEstimators)
	}
	if o.LearningRate <= 0 || o.LearningRate > 1 {
		return errors.NewConfigurationError("base_boosting_options.learning_rate",
			"must be in (0, 1]", o.LearningRate)
	}
	switch o.Loss {
	case "ls", "lad", "huber":
	default:
		return errors.NewConfigurationError("base_boosting_options.loss",
			"must be one of ls, lad, huber", o.Loss)
	}
	if o.Loss == "huber" && o.HuberDelta <= 0 {
		return errors.NewConfigurationError("base_boosting_options.huber_delta",
			"must be positive", o.HuberDelta)
	}
	return nil
}

// Fit fits the transform stages, then the regressor (or the base-boosting
// corrections). A non-nil sampleWeight requires the backend to implement
// model.WeightedFitter; otherwise the failure names the backend.
func (p *Pipeline) Fit(X, y mat.Matrix, sampleWeight []float64) error {
	if X == nil || y == nil {
		return errors.NewDataError("Pipeline.Fit", "nil input")
	}
	xt, err := p.fitTransform(X)
	if err != nil {
		return err
	}

	if p.BaseBoost != nil {
		return p.fitBoosted(X, xt, y, sampleWeight)
	}
	if err := fitRegressor(p.Reg, xt, y, sampleWeight); err != nil {
		return err
	}
	p.SetFitted()
	return nil
}

// Predict transforms X and applies the fitted regressor, or the incumbent
// prediction plus corrections when base boosting is active.
func (p *Pipeline) Predict(X mat.Matrix) (mat.Matrix, error) {
	if !p.IsFitted() {
		return nil, errors.NewNotFittedError("Pipeline", "Predict")
	}
	xt, err := p.transform(X)
	if err != nil {
		return nil, err
	}

	if p.BaseBoost != nil {
		out, err := p.incumbent(X)
		if err != nil {
			return nil, err
		}
		current := mat.DenseCopyOf(out)
		for _, b := range p.Boosters {
			corr, err := b.Predict(xt)
			if err != nil {
				return nil, err
			}
			addScaled(current, corr, p.BaseBoost.LearningRate)
		}
		return current, nil
	}
	return p.Reg.Predict(xt)
}

// Clone returns an unfitted deep copy sharing no mutable state.
func (p *Pipeline) Clone() *Pipeline {
	stages := make([]Stage, len(p.Stages))
	for i, s := range p.Stages {
		stages[i] = Stage{Name: s.Name, Transformer: s.Transformer.CloneTransformer()}
	}
	var bb *BaseBoostOptions
	if p.BaseBoost != nil {
		cp := *p.BaseBoost
		bb = &cp
	}
	return &Pipeline{
		Stages:      stages,
		Reg:         p.Reg.Clone(),
		BaseBoost:   bb,
		TargetIndex: p.TargetIndex,
		Memory:      p.Memory,
	}
}

// Params is the structured parameter tree routed into a pipeline. Regressor
// parameters broadcast to every sub-estimator; PerTarget entries override one
// sub-target (independent multi-target) or one chain position (chained).
type Params struct {
	Regressor map[string]interface{}
	PerTarget map[int]map[string]interface{}
}

// Apply routes a parameter tree into the regressor stage.
func (p *Pipeline) Apply(params Params) error {
	if len(params.Regressor) > 0 {
		if err := p.Reg.SetParams(params.Regressor); err != nil {
			return err
		}
	}
	if len(params.PerTarget) > 0 {
		setter, ok := p.Reg.(PerTargetSetter)
		if !ok {
			return errors.NewCapabilityError(model.NameOf(p.Reg), "per-target parameter routing")
		}
		for pos, sub := range params.PerTarget {
			if err := setter.SetParamsAt(pos, sub); err != nil {
				return err
			}
		}
	}
	return nil
}

// GetParams exposes the regressor stage's hyperparameters.
func (p *Pipeline) GetParams() map[string]interface{} {
	return p.Reg.GetParams()
}

// Estimators returns per-target sub-estimators when the regressor stage is a
// multi-target wrapper, or nil otherwise.
func (p *Pipeline) Estimators() []model.Regressor {
	if s, ok := p.Reg.(PerTargetSetter); ok {
		return s.Estimators()
	}
	return nil
}

func (p *Pipeline) fitTransform(X mat.Matrix) (mat.Matrix, error) {
	xt := X
	for i := range p.Stages {
		if err := p.Stages[i].Transformer.Fit(xt); err != nil {
			return nil, errors.Wrapf(err, "stage %s", p.Stages[i].Name)
		}
		out, err := p.Stages[i].Transformer.Transform(xt)
		if err != nil {
			return nil, errors.Wrapf(err, "stage %s", p.Stages[i].Name)
		}
		xt = out
	}
	if p.Memory {
		p.cacheIn, p.cacheOut = X, xt
	}
	return xt, nil
}

func (p *Pipeline) transform(X mat.Matrix) (mat.Matrix, error) {
	if p.Memory && X == p.cacheIn && p.cacheOut != nil {
		return p.cacheOut, nil
	}
	xt := X
	for i := range p.Stages {
		out, err := p.Stages[i].Transformer.Transform(xt)
		if err != nil {
			return nil, errors.Wrapf(err, "stage %s", p.Stages[i].Name)
		}
		xt = out
	}
	return xt, nil
}

// incumbent is the copy-forward prediction taken from the raw feature matrix.
func (p *Pipeline) incumbent(X mat.Matrix) (mat.Matrix, error) {
	n, f := X.Dims()
	if p.TargetIndex >= 0 {
		if p.TargetIndex >= f {
			return nil, errors.NewDimensionError("Pipeline.incumbent", f-1, p.TargetIndex, 1)
		}
		out := mat.NewDense(n, 1, nil)
		for i := 0; i < n; i++ {
			out.Set(i, 0, X.At(i, p.TargetIndex))
		}
		return out, nil
	}
	return X, nil
}

func (p *Pipeline) fitBoosted(X, xt, y mat.Matrix, sampleWeight []float64) error {
	opts := p.BaseBoost
	init, err := p.incumbent(X)
	if err != nil {
		return err
	}
	ir, ic := init.Dims()
	yr, yc := y.Dims()
	if ir != yr || ic != yc {
		return errors.NewDimensionError("Pipeline.Fit base boosting", yc, ic, 1)
	}

	current := mat.DenseCopyOf(init)
	p.Boosters = make([]model.Regressor, 0, opts.NEstimators)
	for e := 0; e < opts.NEstimators; e++ {
		residual := pseudoResiduals(y, current, opts)
		booster := p.Reg.Clone()
		if err := fitRegressor(booster, xt, residual, sampleWeight); err != nil {
			return err
		}
		corr, err := booster.Predict(xt)
		if err != nil {
			return err
		}
		addScaled(current, corr, opts.LearningRate)
		p.Boosters = append(p.Boosters, booster)
	}
	p.SetFitted()
	return nil
}

// fitRegressor dispatches to the weighted fit when weights are supplied,
// raising a capability error for backends without sample-weight support.
func fitRegressor(reg model.Regressor, X, y mat.Matrix, sampleWeight []float64) error {
	if sampleWeight == nil {
		return reg.Fit(X, y)
	}
	wf, ok := reg.(model.WeightedFitter)
	if !ok {
		return errors.NewCapabilityError(model.NameOf(reg), "sample weights")
	}
	return wf.FitWeighted(X, y, sampleWeight)
}

func pseudoResiduals(y mat.Matrix, current *mat.Dense, opts *BaseBoostOptions) mat.Matrix {
	r, c := y.Dims()
	out := mat.NewDense(r, c, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			d := y.At(i, j) - current.At(i, j)
			switch opts.Loss {
			case "lad":
				if d > 0 {
					d = 1
				} else if d < 0 {
					d = -1
				}
			case "huber":
				if math.Abs(d) > opts.HuberDelta {
					d = math.Copysign(opts.HuberDelta, d)
				}
			}
			out.Set(i, j, d)
		}
	}
	return out
}

func addScaled(dst *mat.Dense, src mat.Matrix, scale float64) {
	r, c := dst.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			dst.Set(i, j, dst.At(i, j)+scale*src.At(i, j))
		}
	}
}
