// Package ensemble provides the stacking regression backend.
package ensemble

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"

	"github.com/regressio/regressio/core/model"
	"github.com/regressio/regressio/pkg/errors"
)

// StackingRegressor fits a layer of base regressors and a final regressor on
// their predictions.
//
// The option names mirror the façade's stacking_options surface: Layers is
// the base layer, Shuffle permutes the internal fold assignment,
// Refit controls clone-and-fit versus prefit base estimators, Passthrough
// appends the raw features to the final estimator's inputs, and MetaFeatures
// builds those inputs from out-of-fold predictions instead of in-sample ones.
type StackingRegressor struct {
	model.StateTracker

	Layers       []model.Regressor
	Final        model.Regressor
	Shuffle      bool
	Refit        bool
	Passthrough  bool
	MetaFeatures bool

	// NFolds is the internal fold count for out-of-fold meta features.
	NFolds int

	// Seed drives the shuffled fold assignment.
	Seed int64

	FittedLayers []model.Regressor
	FittedFinal  model.Regressor
	NFeatures    int
}

// NewStackingRegressor creates a stacking backend with the given base layer
// and final estimator.
func NewStackingRegressor(layers []model.Regressor, final model.Regressor) *StackingRegressor {
	return &StackingRegressor{
		Layers:       layers,
		Final:        final,
		Refit:        true,
		MetaFeatures: true,
		NFolds:       5,
	}
}

// Name implements model.Named.
func (s *StackingRegressor) Name() string { return "StackingRegressor" }

// Fit trains the base layer and the final estimator.
func (s *StackingRegressor) Fit(X, y mat.Matrix) error {
	if len(s.Layers) == 0 {
		return errors.NewConfigurationError("layers", "stacking requires at least one base regressor", len(s.Layers))
	}
	if s.Final == nil {
		return errors.NewConfigurationError("final", "stacking requires a final regressor", nil)
	}
	n, f := X.Dims()
	yn, t := y.Dims()
	if n == 0 {
		return errors.NewDataError("StackingRegressor.Fit", "empty data")
	}
	if n != yn {
		return errors.NewDimensionError("StackingRegressor.Fit", n, yn, 0)
	}

	// Meta-feature matrix: one block of t columns per base layer.
	meta := mat.NewDense(n, len(s.Layers)*t, nil)

	if s.MetaFeatures {
		folds := s.foldAssignment(n)
		for li, layer := range s.Layers {
			for fold := 0; fold < s.NFolds; fold++ {
				trainIdx, testIdx := splitByFold(folds, fold)
				if len(testIdx) == 0 {
					continue
				}
				clone := layer.Clone()
				if err := clone.Fit(takeRows(X, trainIdx), takeRows(y, trainIdx)); err != nil {
					return errors.Wrap(err, "stacking meta-feature fit")
				}
				pred, err := clone.Predict(takeRows(X, testIdx))
				if err != nil {
					return errors.Wrap(err, "stacking meta-feature predict")
				}
				for pi, row := range testIdx {
					for c := 0; c < t; c++ {
						meta.Set(row, li*t+c, pred.At(pi, c))
					}
				}
			}
		}
	}

	// Base estimators used at prediction time.
	s.FittedLayers = make([]model.Regressor, len(s.Layers))
	for li, layer := range s.Layers {
		if s.Refit {
			clone := layer.Clone()
			if err := clone.Fit(X, y); err != nil {
				return errors.Wrap(err, "stacking base fit")
			}
			s.FittedLayers[li] = clone
		} else {
			// Prefit mode: the supplied estimator is used as-is.
			s.FittedLayers[li] = layer
		}
		if !s.MetaFeatures {
			pred, err := s.FittedLayers[li].Predict(X)
			if err != nil {
				return errors.Wrap(err, "stacking base predict")
			}
			for i := 0; i < n; i++ {
				for c := 0; c < t; c++ {
					meta.Set(i, li*t+c, pred.At(i, c))
				}
			}
		}
	}

	s.FittedFinal = s.Final.Clone()
	if err := s.FittedFinal.Fit(s.finalInput(meta, X), y); err != nil {
		return errors.Wrap(err, "stacking final fit")
	}

	s.NFeatures = f
	s.SetFitted()
	return nil
}

// Predict stacks base predictions and applies the final estimator.
func (s *StackingRegressor) Predict(X mat.Matrix) (mat.Matrix, error) {
	if !s.IsFitted() {
		return nil, errors.NewNotFittedError(s.Name(), "Predict")
	}
	n, f := X.Dims()
	if f != s.NFeatures {
		return nil, errors.NewDimensionError("StackingRegressor.Predict", s.NFeatures, f, 1)
	}

	var meta *mat.Dense
	for li, layer := range s.FittedLayers {
		pred, err := layer.Predict(X)
		if err != nil {
			return nil, errors.Wrap(err, "stacking base predict")
		}
		_, t := pred.Dims()
		if meta == nil {
			meta = mat.NewDense(n, len(s.FittedLayers)*t, nil)
		}
		for i := 0; i < n; i++ {
			for c := 0; c < t; c++ {
				meta.Set(i, li*t+c, pred.At(i, c))
			}
		}
	}
	return s.FittedFinal.Predict(s.finalInput(meta, X))
}

// finalInput appends raw features to the meta features when Passthrough is
// set.
func (s *StackingRegressor) finalInput(meta *mat.Dense, X mat.Matrix) mat.Matrix {
	if !s.Passthrough {
		return meta
	}
	n, mc := meta.Dims()
	_, f := X.Dims()
	out := mat.NewDense(n, mc+f, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < mc; j++ {
			out.Set(i, j, meta.At(i, j))
		}
		for j := 0; j < f; j++ {
			out.Set(i, mc+j, X.At(i, j))
		}
	}
	return out
}

// foldAssignment maps each row to a fold, optionally shuffled.
func (s *StackingRegressor) foldAssignment(n int) []int {
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	if s.Shuffle {
		r := rand.New(rand.NewPCG(uint64(s.Seed), uint64(s.Seed)))
		r.Shuffle(n, func(i, j int) { order[i], order[j] = order[j], order[i] })
	}
	folds := make([]int, n)
	for pos, row := range order {
		folds[row] = pos % s.NFolds
	}
	return folds
}

func splitByFold(folds []int, fold int) (train, test []int) {
	for i, f := range folds {
		if f == fold {
			test = append(test, i)
		} else {
			train = append(train, i)
		}
	}
	return train, test
}

func takeRows(m mat.Matrix, indices []int) mat.Matrix {
	_, c := m.Dims()
	out := mat.NewDense(len(indices), c, nil)
	for i, idx := range indices {
		for j := 0; j < c; j++ {
			out.Set(i, j, m.At(idx, j))
		}
	}
	return out
}

// GetParams returns the hyperparameters.
func (s *StackingRegressor) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"shuffle":       s.Shuffle,
		"refit":         s.Refit,
		"passthrough":   s.Passthrough,
		"meta_features": s.MetaFeatures,
		"n_folds":       s.NFolds,
	}
}

// SetParams sets hyperparameters. Unknown keys are a configuration error.
func (s *StackingRegressor) SetParams(params map[string]interface{}) error {
	for key, value := range params {
		switch key {
		case "shuffle", "refit", "passthrough", "meta_features":
			v, ok := value.(bool)
			if !ok {
				return errors.NewConfigurationError(key, "must be a bool", value)
			}
			switch key {
			case "shuffle":
				s.Shuffle = v
			case "refit":
				s.Refit = v
			case "passthrough":
				s.Passthrough = v
			case "meta_features":
				s.MetaFeatures = v
			}
		case "n_folds":
			v, ok := value.(int)
			if !ok || v < 2 {
				return errors.NewConfigurationError("n_folds", "must be an int greater than 1", value)
			}
			s.NFolds = v
		default:
			return errors.NewConfigurationError(key, "not a stacking option", value)
		}
	}
	return nil
}

// Clone returns an unfitted copy with cloned layer and final estimators.
func (s *StackingRegressor) Clone() model.Regressor {
	layers := make([]model.Regressor, len(s.Layers))
	for i, l := range s.Layers {
		layers[i] = l.Clone()
	}
	out := &StackingRegressor{
		Layers:       layers,
		Shuffle:      s.Shuffle,
		Refit:        s.Refit,
		Passthrough:  s.Passthrough,
		MetaFeatures: s.MetaFeatures,
		NFolds:       s.NFolds,
		Seed:         s.Seed,
	}
	if s.Final != nil {
		out.Final = s.Final.Clone()
	}
	return out
}
