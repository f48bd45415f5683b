// Package preprocessing provides the transform stages composed into
// pipelines: standardization and quantile transforms.
package preprocessing

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/regressio/regressio/core/model"
	"github.com/regressio/regressio/pkg/errors"
)

// StandardScaler standardizes features by removing the mean and scaling to
// unit variance.
type StandardScaler struct {
	model.StateTracker

	// Mean holds the per-feature mean.
	Mean []float64

	// Scale holds the per-feature standard deviation.
	Scale []float64

	// NFeatures is the number of features seen during Fit.
	NFeatures int

	// WithMean controls mean removal.
	WithMean bool

	// WithStd controls scaling by the standard deviation.
	WithStd bool
}

// NewStandardScaler creates a StandardScaler with both centering and scaling
// enabled.
func NewStandardScaler() *StandardScaler {
	return &StandardScaler{WithMean: true, WithStd: true}
}

// Fit computes per-feature mean and standard deviation from X.
func (s *StandardScaler) Fit(X mat.Matrix) error {
	r, c := X.Dims()
	if r == 0 || c == 0 {
		return errors.NewDataError("StandardScaler.Fit", "empty data")
	}

	s.NFeatures = c
	s.Mean = make([]float64, c)
	s.Scale = make([]float64, c)

	for j := 0; j < c; j++ {
		if s.WithMean {
			sum := 0.0
			for i := 0; i < r; i++ {
				sum += X.At(i, j)
			}
			s.Mean[j] = sum / float64(r)
		}

		if s.WithStd {
			sumSq := 0.0
			for i := 0; i < r; i++ {
				d := X.At(i, j) - s.Mean[j]
				sumSq += d * d
			}
			std := math.Sqrt(sumSq / float64(r))
			if std == 0 {
				// Constant feature: leave it untouched.
				std = 1.0
			}
			s.Scale[j] = std
		} else {
			s.Scale[j] = 1.0
		}
	}

	s.SetFitted()
	return nil
}

// Transform standardizes X using the fitted statistics.
func (s *StandardScaler) Transform(X mat.Matrix) (mat.Matrix, error) {
	if !s.IsFitted() {
		return nil, errors.NewNotFittedError("StandardScaler", "Transform")
	}
	r, c := X.Dims()
	if c != s.NFeatures {
		return nil, errors.NewDimensionError("StandardScaler.Transform", s.NFeatures, c, 1)
	}

	out := mat.NewDense(r, c, nil)
	for j := 0; j < c; j++ {
		for i := 0; i < r; i++ {
			out.Set(i, j, (X.At(i, j)-s.Mean[j])/s.Scale[j])
		}
	}
	return out, nil
}

// CloneTransformer returns an unfitted copy with the same configuration.
func (s *StandardScaler) CloneTransformer() model.Transformer {
	return &StandardScaler{WithMean: s.WithMean, WithStd: s.WithStd}
}
