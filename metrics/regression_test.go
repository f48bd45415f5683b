package metrics

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestScoreSingleTarget(t *testing.T) {
	yTrue := mat.NewDense(4, 1, []float64{1, 2, 3, 4})
	yPred := mat.NewDense(4, 1, []float64{1.5, 2.5, 2.5, 3.5})

	tests := []struct {
		name      string
		metric    Metric
		want      float64
		tolerance float64
	}{
		{name: "mae", metric: MAE, want: 0.5, tolerance: 1e-10},
		{name: "mse", metric: MSE, want: 0.25, tolerance: 1e-10},
		{name: "rmse", metric: RMSE, want: 0.5, tolerance: 1e-10},
		{name: "r2", metric: R2, want: 1 - 1.0/5.0, tolerance: 1e-10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Score(yTrue, yPred, tt.metric, UniformAverage)
			if err != nil {
				t.Fatalf("Score() error = %v", err)
			}
			if len(got) != 1 {
				t.Fatalf("Score() returned %d values, want 1", len(got))
			}
			if math.Abs(got[0]-tt.want) > tt.tolerance {
				t.Errorf("Score() = %v, want %v", got[0], tt.want)
			}
		})
	}
}

func TestRMSEIsSqrtOfMSE(t *testing.T) {
	yTrue := mat.NewDense(5, 2, []float64{1, 10, 2, 20, 3, 30, 4, 40, 5, 50})
	yPred := mat.NewDense(5, 2, []float64{1.2, 11, 1.8, 19, 3.5, 28, 4.1, 42, 4.7, 51})

	mse, err := Score(yTrue, yPred, MSE, RawValues)
	if err != nil {
		t.Fatalf("Score(MSE) error = %v", err)
	}
	rmse, err := Score(yTrue, yPred, RMSE, RawValues)
	if err != nil {
		t.Fatalf("Score(RMSE) error = %v", err)
	}
	for j := range mse {
		if math.Abs(rmse[j]-math.Sqrt(mse[j])) > 1e-12 {
			t.Errorf("target %d: rmse = %v, sqrt(mse) = %v", j, rmse[j], math.Sqrt(mse[j]))
		}
	}
}

func TestScoreShapeFollowsMultioutput(t *testing.T) {
	yTrue := mat.NewDense(3, 3, []float64{1, 2, 3, 4, 5, 6, 7, 8, 9})
	yPred := mat.NewDense(3, 3, []float64{1, 2, 3, 4, 5, 6, 7, 8, 10})

	raw, err := Score(yTrue, yPred, MAE, RawValues)
	if err != nil {
		t.Fatalf("Score(RawValues) error = %v", err)
	}
	if len(raw) != 3 {
		t.Errorf("RawValues returned %d values, want 3", len(raw))
	}

	avg, err := Score(yTrue, yPred, MAE, UniformAverage)
	if err != nil {
		t.Fatalf("Score(UniformAverage) error = %v", err)
	}
	if len(avg) != 1 {
		t.Errorf("UniformAverage returned %d values, want 1", len(avg))
	}

	vw, err := Score(yTrue, yPred, R2, VarianceWeighted)
	if err != nil {
		t.Fatalf("Score(VarianceWeighted) error = %v", err)
	}
	if len(vw) != 1 {
		t.Errorf("VarianceWeighted returned %d values, want 1", len(vw))
	}
}

func TestVarianceWeightedRejectsErrorMetrics(t *testing.T) {
	yTrue := mat.NewDense(3, 1, []float64{1, 2, 3})
	yPred := mat.NewDense(3, 1, []float64{1, 2, 3})

	for _, m := range []Metric{MAE, MSE, RMSE, MSLE} {
		if _, err := Score(yTrue, yPred, m, VarianceWeighted); err == nil {
			t.Errorf("Score(%s, VarianceWeighted) expected an error", m)
		}
	}
}

func TestMSLEDegradesToNaNOnNegativeInput(t *testing.T) {
	yTrue := mat.NewDense(3, 1, []float64{1, -2, 3})
	yPred := mat.NewDense(3, 1, []float64{1, 2, 3})

	got, err := Score(yTrue, yPred, MSLE, UniformAverage)
	if err != nil {
		t.Fatalf("Score() error = %v, MSLE on negative input must degrade, not fail", err)
	}
	if !math.IsNaN(got[0]) {
		t.Errorf("Score() = %v, want NaN", got[0])
	}
}

func TestR2AndEVNaNOnZeroVariance(t *testing.T) {
	yTrue := mat.NewDense(4, 1, []float64{2, 2, 2, 2})
	yPred := mat.NewDense(4, 1, []float64{1, 2, 3, 2})

	for _, m := range []Metric{R2, ExplainedVariance} {
		got, err := Score(yTrue, yPred, m, RawValues)
		if err != nil {
			t.Fatalf("Score(%s) error = %v", m, err)
		}
		if !math.IsNaN(got[0]) {
			t.Errorf("Score(%s) = %v, want NaN for zero-variance target", m, got[0])
		}
	}
}

func TestScoreDimensionMismatch(t *testing.T) {
	yTrue := mat.NewDense(3, 1, []float64{1, 2, 3})
	yPred := mat.NewDense(2, 1, []float64{1, 2})

	if _, err := Score(yTrue, yPred, MAE, RawValues); err == nil {
		t.Error("Score() expected a dimension error")
	}
}

func TestParseMetric(t *testing.T) {
	for _, m := range Metrics {
		got, err := ParseMetric(m.String())
		if err != nil {
			t.Fatalf("ParseMetric(%q) error = %v", m.String(), err)
		}
		if got != m {
			t.Errorf("ParseMetric(%q) = %v, want %v", m.String(), got, m)
		}
	}
	if _, err := ParseMetric("nope"); err == nil {
		t.Error("ParseMetric(nope) expected an error")
	}
}
