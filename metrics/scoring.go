package metrics

import (
	"math"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/regressio/regressio/pkg/errors"
)

// Scoring names a cross-validation scorer. Loss metrics follow the negated
// naming convention: the scorer value is the negated error, so a larger
// scorer value is always better and search code maximizes uniformly.
// RestoreSign undoes the negation for reporting.
type Scoring struct {
	Metric  Metric
	Negated bool
}

var scoringNames = map[string]Scoring{
	"neg_mean_absolute_error":      {MAE, true},
	"neg_mean_squared_error":       {MSE, true},
	"neg_root_mean_squared_error":  {RMSE, true},
	"neg_mean_squared_log_error":   {MSLE, true},
	"mae":                          {MAE, true},
	"mse":                          {MSE, true},
	"rmse":                         {RMSE, true},
	"msle":                         {MSLE, true},
	"r2":                           {R2, false},
	"explained_variance":           {ExplainedVariance, false},
	"ev":                           {ExplainedVariance, false},
}

// ParseScoring resolves a scoring name. Both the short metric names and the
// sklearn-style neg_ names are accepted; loss metrics are negated either way.
func ParseScoring(name string) (Scoring, error) {
	if s, ok := scoringNames[name]; ok {
		return s, nil
	}
	return Scoring{}, errors.NewConfigurationError("scoring", "not a supported scoring name", name)
}

// Name returns the canonical scoring name.
func (s Scoring) Name() string {
	if s.Negated {
		switch s.Metric {
		case MAE:
			return "neg_mean_absolute_error"
		case MSE:
			return "neg_mean_squared_error"
		case RMSE:
			return "neg_root_mean_squared_error"
		case MSLE:
			return "neg_mean_squared_log_error"
		}
	}
	switch s.Metric {
	case R2:
		return "r2"
	case ExplainedVariance:
		return "explained_variance"
	}
	return s.Metric.String()
}

// IsNegatedName reports whether a raw scoring name uses the negated-error
// convention.
func IsNegatedName(name string) bool {
	return strings.HasPrefix(name, "neg")
}

// Value computes the scorer value for a prediction: the uniform-average
// metric, negated for loss metrics so that greater is always better.
func (s Scoring) Value(yTrue, yPred mat.Matrix) (float64, error) {
	vals, err := Score(yTrue, yPred, s.Metric, UniformAverage)
	if err != nil {
		return math.NaN(), err
	}
	v := vals[0]
	if s.Negated {
		v = -v
	}
	return v, nil
}

// RestoreSign restores nonnegativity of a scorer value produced under the
// negated-error convention. Values of non-negated scorers pass through.
func (s Scoring) RestoreSign(v float64) float64 {
	if s.Negated {
		return math.Abs(v)
	}
	return v
}

// RestoreSignSlice applies RestoreSign elementwise, returning a new slice.
func (s Scoring) RestoreSignSlice(values []float64) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = s.RestoreSign(v)
	}
	return out
}
