// Package model defines the capability contract every backend regressor must
// satisfy, together with the shared validation-state machinery and generic
// model persistence.
package model

import (
	"gonum.org/v1/gonum/mat"
)

// Regressor is the capability contract consumed from every backend. A backend
// must be fittable, predict-capable, parameter-inspectable, and deep-copyable
// without shared mutable state.
type Regressor interface {
	// Fit trains the regressor on X (n_samples x n_features) and
	// y (n_samples x n_targets).
	Fit(X, y mat.Matrix) error

	// Predict returns predictions for X, shaped n_samples x n_targets.
	Predict(X mat.Matrix) (mat.Matrix, error)

	// GetParams returns the regressor's hyperparameters.
	GetParams() map[string]interface{}

	// SetParams sets hyperparameters. Unknown keys are a configuration error.
	SetParams(params map[string]interface{}) error

	// Clone returns an unfitted deep copy carrying the same hyperparameters.
	// Clones share no mutable fitted state with the receiver.
	Clone() Regressor
}

// WeightedFitter is implemented by backends that accept per-sample weights.
// Callers probe for it and raise a capability error naming the backend when
// weights were requested from a backend that lacks it.
type WeightedFitter interface {
	FitWeighted(X, y mat.Matrix, sampleWeight []float64) error
}

// Named is implemented by backends that report a human-readable identity,
// used in capability and not-fitted error messages.
type Named interface {
	Name() string
}

// Transformer is the contract for preprocessing stages in a pipeline.
type Transformer interface {
	Fit(X mat.Matrix) error
	Transform(X mat.Matrix) (mat.Matrix, error)
	CloneTransformer() Transformer
}

// NameOf returns the backend's reported name, or a fallback when it has none.
func NameOf(r interface{}) string {
	if n, ok := r.(Named); ok {
		return n.Name()
	}
	return "unknown regressor"
}
