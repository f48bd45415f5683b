// Package metrics computes regression metrics over true/predicted target
// matrices with an explicit multi-output aggregation policy.
package metrics

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/regressio/regressio/pkg/errors"
)

// Metric identifies a supported regression metric.
type Metric int

const (
	// MAE is the mean absolute error.
	MAE Metric = iota
	// MSE is the mean squared error.
	MSE
	// RMSE is the root mean squared error, the square root of MSE.
	RMSE
	// R2 is the coefficient of determination.
	R2
	// ExplainedVariance is the explained variance score.
	ExplainedVariance
	// MSLE is the mean squared logarithmic error. It is undefined for
	// negative values and degrades to NaN rather than failing.
	MSLE
)

// Metrics lists every supported metric in presentation order.
var Metrics = []Metric{MAE, MSE, RMSE, R2, ExplainedVariance, MSLE}

func (m Metric) String() string {
	switch m {
	case MAE:
		return "mae"
	case MSE:
		return "mse"
	case RMSE:
		return "rmse"
	case R2:
		return "r2"
	case ExplainedVariance:
		return "ev"
	case MSLE:
		return "msle"
	default:
		return "unknown"
	}
}

// ParseMetric resolves a short metric name.
func ParseMetric(name string) (Metric, error) {
	for _, m := range Metrics {
		if m.String() == name {
			return m, nil
		}
	}
	return 0, errors.NewConfigurationError("metric", "not a supported metric", name)
}

// Multioutput selects the aggregation policy for multi-target scores.
type Multioutput int

const (
	// RawValues returns one value per target column.
	RawValues Multioutput = iota
	// UniformAverage averages per-target values with equal weight.
	UniformAverage
	// VarianceWeighted averages per-target values weighted by the variance
	// of each target. Valid for R2 and ExplainedVariance only.
	VarianceWeighted
)

func (p Multioutput) String() string {
	switch p {
	case RawValues:
		return "raw_values"
	case UniformAverage:
		return "uniform_average"
	case VarianceWeighted:
		return "variance_weighted"
	default:
		return "unknown"
	}
}

// ParseMultioutput resolves a multioutput policy name.
func ParseMultioutput(name string) (Multioutput, error) {
	switch name {
	case "raw_values":
		return RawValues, nil
	case "uniform_average":
		return UniformAverage, nil
	case "variance_weighted":
		return VarianceWeighted, nil
	}
	return 0, errors.NewConfigurationError("score_multioutput", "not a supported multioutput policy", name)
}

// Score computes a metric between yTrue and yPred under the given
// aggregation policy. RawValues yields one value per target column; the
// averaging policies yield a single value.
//
// MSLE is undefined when any true or predicted value is negative. In that
// case the result is NaN rather than an error, so batch scoring across folds
// and metrics never aborts on one fold's degenerate data.
func Score(yTrue, yPred mat.Matrix, metric Metric, multioutput Multioutput) ([]float64, error) {
	if yTrue == nil || yPred == nil {
		return nil, errors.NewDataError("metrics.Score", "nil input matrix")
	}
	tr, tc := yTrue.Dims()
	pr, pc := yPred.Dims()
	if tr == 0 || tc == 0 {
		return nil, errors.NewDataError("metrics.Score", "empty input matrix")
	}
	if tr != pr {
		return nil, errors.NewDimensionError("metrics.Score", tr, pr, 0)
	}
	if tc != pc {
		return nil, errors.NewDimensionError("metrics.Score", tc, pc, 1)
	}
	if multioutput == VarianceWeighted && metric != R2 && metric != ExplainedVariance {
		return nil, errors.NewConfigurationError("score_multioutput",
			"variance_weighted is only valid for r2 and ev", metric.String())
	}

	perTarget := make([]float64, tc)
	for j := 0; j < tc; j++ {
		perTarget[j] = scoreColumn(yTrue, yPred, j, metric)
	}

	switch multioutput {
	case RawValues:
		return perTarget, nil
	case UniformAverage:
		return []float64{mean(perTarget)}, nil
	case VarianceWeighted:
		weights := make([]float64, tc)
		for j := 0; j < tc; j++ {
			weights[j] = columnVariance(yTrue, j)
		}
		return []float64{weightedMean(perTarget, weights)}, nil
	}
	return nil, errors.NewConfigurationError("score_multioutput", "not a supported multioutput policy", multioutput)
}

// scoreColumn evaluates one target column. Undefined domains (negative MSLE
// inputs, zero-variance R2/EV denominators) map to NaN.
func scoreColumn(yTrue, yPred mat.Matrix, j int, metric Metric) float64 {
	n, _ := yTrue.Dims()

	switch metric {
	case MAE:
		sum := 0.0
		for i := 0; i < n; i++ {
			sum += math.Abs(yTrue.At(i, j) - yPred.At(i, j))
		}
		return sum / float64(n)

	case MSE, RMSE:
		sum := 0.0
		for i := 0; i < n; i++ {
			d := yTrue.At(i, j) - yPred.At(i, j)
			sum += d * d
		}
		mse := sum / float64(n)
		if metric == RMSE {
			return math.Sqrt(mse)
		}
		return mse

	case R2:
		yMean := 0.0
		for i := 0; i < n; i++ {
			yMean += yTrue.At(i, j)
		}
		yMean /= float64(n)

		var tss, rss float64
		for i := 0; i < n; i++ {
			t := yTrue.At(i, j)
			tss += (t - yMean) * (t - yMean)
			d := t - yPred.At(i, j)
			rss += d * d
		}
		if tss == 0 {
			return math.NaN()
		}
		return 1 - rss/tss

	case ExplainedVariance:
		var diffMean float64
		for i := 0; i < n; i++ {
			diffMean += yTrue.At(i, j) - yPred.At(i, j)
		}
		diffMean /= float64(n)

		varTrue := columnVariance(yTrue, j)
		varDiff := 0.0
		for i := 0; i < n; i++ {
			d := yTrue.At(i, j) - yPred.At(i, j) - diffMean
			varDiff += d * d
		}
		varDiff /= float64(n)
		if varTrue == 0 {
			return math.NaN()
		}
		return 1 - varDiff/varTrue

	case MSLE:
		sum := 0.0
		for i := 0; i < n; i++ {
			t, p := yTrue.At(i, j), yPred.At(i, j)
			if t < 0 || p < 0 {
				return math.NaN()
			}
			d := math.Log1p(t) - math.Log1p(p)
			sum += d * d
		}
		return sum / float64(n)
	}
	return math.NaN()
}

func columnVariance(m mat.Matrix, j int) float64 {
	n, _ := m.Dims()
	mu := 0.0
	for i := 0; i < n; i++ {
		mu += m.At(i, j)
	}
	mu /= float64(n)
	v := 0.0
	for i := 0; i < n; i++ {
		d := m.At(i, j) - mu
		v += d * d
	}
	return v / float64(n)
}

func mean(values []float64) float64 {
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func weightedMean(values, weights []float64) float64 {
	var num, den float64
	for i, v := range values {
		num += v * weights[i]
		den += weights[i]
	}
	if den == 0 {
		return math.NaN()
	}
	return num / den
}
