// Package supervised is the user-facing façade: one Regressor type that
// unifies fitting, scoring, cross-validation, hyperparameter search, and
// base boosting over interchangeable backend regressors.
package supervised

import (
	"strings"

	"github.com/regressio/regressio/core/model"
	"github.com/regressio/regressio/ensemble"
	"github.com/regressio/regressio/linear"
	"github.com/regressio/regressio/neighbors"
	"github.com/regressio/regressio/pkg/errors"
)

// RegressorChoice enumerates the supported backend regressors. The set is
// closed: an unsupported backend is a configuration error at construction
// time, never a runtime lookup failure.
type RegressorChoice int

const (
	// ChoiceRidge selects L2-penalized linear regression.
	ChoiceRidge RegressorChoice = iota
	// ChoiceLinearRegression selects ordinary least squares.
	ChoiceLinearRegression
	// ChoiceKNN selects k-nearest-neighbors regression.
	ChoiceKNN
	// ChoiceStacking selects the stacking ensemble. It requires stacking
	// options naming the layer and final estimators.
	ChoiceStacking
)

func (c RegressorChoice) String() string {
	switch c {
	case ChoiceRidge:
		return "ridge"
	case ChoiceLinearRegression:
		return "linearregression"
	case ChoiceKNN:
		return "kneighborsregressor"
	case ChoiceStacking:
		return "stackingregressor"
	default:
		return "unknown"
	}
}

// ParseChoice resolves a backend name, case-insensitively, accepting the
// common short aliases.
func ParseChoice(name string) (RegressorChoice, error) {
	switch strings.ToLower(name) {
	case "ridge":
		return ChoiceRidge, nil
	case "linearregression", "ols":
		return ChoiceLinearRegression, nil
	case "kneighborsregressor", "knn":
		return ChoiceKNN, nil
	case "stackingregressor", "stacking":
		return ChoiceStacking, nil
	}
	return 0, errors.NewConfigurationError("regressor_choice", "not a supported backend", name)
}

// StackingOptions names the estimators and behavior of a stacking backend.
// The fields mirror the stacking_options surface: Layers is the base layer,
// Shuffle permutes the internal fold assignment, Refit controls clone-and-fit
// versus prefit base estimators, Passthrough appends raw features to the
// final estimator's inputs, and MetaFeatures builds those inputs from
// out-of-fold predictions.
type StackingOptions struct {
	Layers       []model.Regressor
	Final        model.Regressor
	Shuffle      bool
	Refit        bool
	Passthrough  bool
	MetaFeatures bool
	NFolds       int
}

// buildBackend instantiates the chosen backend regressor.
func buildBackend(choice RegressorChoice, cfg *config) (model.Regressor, error) {
	switch choice {
	case ChoiceRidge:
		return linear.NewRidge(1.0), nil
	case ChoiceLinearRegression:
		return linear.NewLinearRegression(), nil
	case ChoiceKNN:
		return neighbors.NewKNNRegressor(5), nil
	case ChoiceStacking:
		if cfg.stacking == nil {
			return nil, errors.NewConfigurationError("stacking_options",
				"the stacking backend requires stacking options", nil)
		}
		s := ensemble.NewStackingRegressor(cfg.stacking.Layers, cfg.stacking.Final)
		s.Shuffle = cfg.stacking.Shuffle
		s.Refit = cfg.stacking.Refit
		s.Passthrough = cfg.stacking.Passthrough
		s.MetaFeatures = cfg.stacking.MetaFeatures
		if cfg.stacking.NFolds > 1 {
			s.NFolds = cfg.stacking.NFolds
		}
		s.Seed = cfg.randomState
		return s, nil
	}
	return nil, errors.NewConfigurationError("regressor_choice", "not a supported backend", choice)
}
