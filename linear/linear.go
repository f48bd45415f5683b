// Package linear provides the deterministic linear backends: ordinary least
// squares and ridge regression, solved by normal equations over gonum.
package linear

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/regressio/regressio/core/model"
	"github.com/regressio/regressio/pkg/errors"
)

// Ridge is a linear regressor with L2 regularization. It supports
// multi-target y and per-sample weights.
type Ridge struct {
	model.StateTracker

	// Alpha is the L2 penalty strength. Zero recovers ordinary least squares.
	Alpha float64

	// FitIntercept controls whether an unpenalized intercept is fitted.
	FitIntercept bool

	// Coef holds the fitted coefficients, n_features x n_targets.
	Coef *mat.Dense

	// Intercept holds one intercept per target.
	Intercept []float64
}

// NewRidge creates a ridge regressor with the given penalty.
func NewRidge(alpha float64) *Ridge {
	return &Ridge{Alpha: alpha, FitIntercept: true}
}

// Name implements model.Named.
func (r *Ridge) Name() string { return "Ridge" }

// Fit solves the penalized normal equations on X, y.
func (r *Ridge) Fit(X, y mat.Matrix) error {
	return r.fit(r.Name(), X, y, nil)
}

// FitWeighted fits with per-sample weights by scaling rows of the centered
// system with sqrt(w).
func (r *Ridge) FitWeighted(X, y mat.Matrix, sampleWeight []float64) error {
	return r.fit(r.Name(), X, y, sampleWeight)
}

// fit carries the caller's backend name so errors raised here stay
// attributable when an embedding backend delegates to it.
func (r *Ridge) fit(name string, X, y mat.Matrix, w []float64) error {
	op := name + ".Fit"
	n, f := X.Dims()
	yn, t := y.Dims()
	if n == 0 || f == 0 {
		return errors.NewDataError(op, "empty data")
	}
	if n != yn {
		return errors.NewDimensionError(op, n, yn, 0)
	}
	if w != nil && len(w) != n {
		return errors.NewDimensionError(op, n, len(w), 0)
	}
	if r.Alpha < 0 {
		return errors.NewConfigurationError("alpha", "must be nonnegative", r.Alpha)
	}

	xMean := make([]float64, f)
	yMean := make([]float64, t)
	wSum := float64(n)
	if r.FitIntercept {
		wSum = 0
		for i := 0; i < n; i++ {
			wi := 1.0
			if w != nil {
				wi = w[i]
			}
			wSum += wi
			for j := 0; j < f; j++ {
				xMean[j] += wi * X.At(i, j)
			}
			for k := 0; k < t; k++ {
				yMean[k] += wi * y.At(i, k)
			}
		}
		if wSum == 0 {
			return errors.NewDataError(op, "sample weights sum to zero")
		}
		for j := range xMean {
			xMean[j] /= wSum
		}
		for k := range yMean {
			yMean[k] /= wSum
		}
	}

	// Centered, weight-scaled copies.
	xc := mat.NewDense(n, f, nil)
	yc := mat.NewDense(n, t, nil)
	for i := 0; i < n; i++ {
		s := 1.0
		if w != nil {
			s = math.Sqrt(w[i])
		}
		for j := 0; j < f; j++ {
			xc.Set(i, j, s*(X.At(i, j)-xMean[j]))
		}
		for k := 0; k < t; k++ {
			yc.Set(i, k, s*(y.At(i, k)-yMean[k]))
		}
	}

	// Normal equations: (Xc'Xc + alpha I) W = Xc'y.
	var gram mat.Dense
	gram.Mul(xc.T(), xc)
	for j := 0; j < f; j++ {
		gram.Set(j, j, gram.At(j, j)+r.Alpha)
	}
	var rhs mat.Dense
	rhs.Mul(xc.T(), yc)

	coef := mat.NewDense(f, t, nil)
	if err := coef.Solve(&gram, &rhs); err != nil {
		return errors.Wrap(errors.ErrSingularMatrix, op)
	}

	r.Coef = coef
	r.Intercept = make([]float64, t)
	if r.FitIntercept {
		for k := 0; k < t; k++ {
			dot := 0.0
			for j := 0; j < f; j++ {
				dot += xMean[j] * coef.At(j, k)
			}
			r.Intercept[k] = yMean[k] - dot
		}
	}
	r.SetFitted()
	return nil
}

// Predict returns X*Coef + Intercept.
func (r *Ridge) Predict(X mat.Matrix) (mat.Matrix, error) {
	return r.predict(r.Name(), X)
}

func (r *Ridge) predict(name string, X mat.Matrix) (mat.Matrix, error) {
	if !r.IsFitted() {
		return nil, errors.NewNotFittedError(name, "Predict")
	}
	n, f := X.Dims()
	cf, ct := r.Coef.Dims()
	if f != cf {
		return nil, errors.NewDimensionError(name+".Predict", cf, f, 1)
	}

	out := mat.NewDense(n, ct, nil)
	out.Mul(X, r.Coef)
	for i := 0; i < n; i++ {
		for k := 0; k < ct; k++ {
			out.Set(i, k, out.At(i, k)+r.Intercept[k])
		}
	}
	return out, nil
}

// GetParams returns the hyperparameters.
func (r *Ridge) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"alpha":         r.Alpha,
		"fit_intercept": r.FitIntercept,
	}
}

// SetParams sets hyperparameters. Unknown keys are a configuration error.
func (r *Ridge) SetParams(params map[string]interface{}) error {
	for key, value := range params {
		switch key {
		case "alpha":
			v, ok := toFloat(value)
			if !ok {
				return errors.NewConfigurationError("alpha", "must be numeric", value)
			}
			r.Alpha = v
		case "fit_intercept":
			v, ok := value.(bool)
			if !ok {
				return errors.NewConfigurationError("fit_intercept", "must be a bool", value)
			}
			r.FitIntercept = v
		default:
			return errors.NewConfigurationError(key, "not a Ridge parameter", value)
		}
	}
	return nil
}

// Clone returns an unfitted copy with the same hyperparameters.
func (r *Ridge) Clone() model.Regressor {
	return &Ridge{Alpha: r.Alpha, FitIntercept: r.FitIntercept}
}

// LinearRegression is unpenalized ordinary least squares.
type LinearRegression struct {
	Ridge
}

// NewLinearRegression creates an OLS regressor.
func NewLinearRegression() *LinearRegression {
	lr := &LinearRegression{}
	lr.FitIntercept = true
	return lr
}

// Name implements model.Named.
func (l *LinearRegression) Name() string { return "LinearRegression" }

// Fit solves the unpenalized normal equations on X, y.
func (l *LinearRegression) Fit(X, y mat.Matrix) error {
	return l.fit(l.Name(), X, y, nil)
}

// FitWeighted fits with per-sample weights.
func (l *LinearRegression) FitWeighted(X, y mat.Matrix, sampleWeight []float64) error {
	return l.fit(l.Name(), X, y, sampleWeight)
}

// Predict returns X*Coef + Intercept.
func (l *LinearRegression) Predict(X mat.Matrix) (mat.Matrix, error) {
	return l.predict(l.Name(), X)
}

// GetParams returns the hyperparameters.
func (l *LinearRegression) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"fit_intercept": l.FitIntercept,
	}
}

// SetParams sets hyperparameters. Alpha is not a LinearRegression parameter.
func (l *LinearRegression) SetParams(params map[string]interface{}) error {
	for key, value := range params {
		switch key {
		case "fit_intercept":
			v, ok := value.(bool)
			if !ok {
				return errors.NewConfigurationError("fit_intercept", "must be a bool", value)
			}
			l.FitIntercept = v
		default:
			return errors.NewConfigurationError(key, "not a LinearRegression parameter", value)
		}
	}
	return nil
}

// Clone returns an unfitted copy with the same hyperparameters.
func (l *LinearRegression) Clone() model.Regressor {
	out := NewLinearRegression()
	out.FitIntercept = l.FitIntercept
	return out
}

func toFloat(v interface{}) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	}
	return 0, false
}
