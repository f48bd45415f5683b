package preprocessing

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/regressio/regressio/core/model"
	"github.com/regressio/regressio/pkg/errors"
)

// OutputDistribution selects the marginal distribution a QuantileTransformer
// maps each feature onto.
type OutputDistribution int

const (
	// Uniform maps features onto [0, 1].
	Uniform OutputDistribution = iota
	// Normal maps features onto a standard normal.
	Normal
)

// QuantileTransformer transforms each feature through its empirical quantile
// function onto a uniform or normal distribution.
//
// NQuantiles is the number of landmark quantiles estimated during Fit. It is
// size-sensitive: asking for more quantiles than training rows degrades the
// estimate, which is why cross-validation sizes it from the estimated
// training-fold size rather than the full sample count.
type QuantileTransformer struct {
	model.StateTracker

	NQuantiles int
	Output     OutputDistribution

	// References[j] holds the landmark values of feature j in ascending order.
	References [][]float64
}

// NewQuantileTransformer creates a transformer with nQuantiles landmarks.
func NewQuantileTransformer(nQuantiles int, output OutputDistribution) *QuantileTransformer {
	if nQuantiles < 2 {
		nQuantiles = 1000
	}
	return &QuantileTransformer{NQuantiles: nQuantiles, Output: output}
}

// Fit estimates the per-feature landmark quantiles from X. The effective
// number of landmarks is capped at the number of rows.
func (q *QuantileTransformer) Fit(X mat.Matrix) error {
	r, c := X.Dims()
	if r == 0 || c == 0 {
		return errors.NewDataError("QuantileTransformer.Fit", "empty data")
	}

	n := q.NQuantiles
	if n > r {
		n = r
	}
	if n < 2 {
		// The probability grid below needs two landmarks; a single row
		// yields two equal ones.
		n = 2
	}
	q.References = make([][]float64, c)

	col := make([]float64, r)
	for j := 0; j < c; j++ {
		for i := 0; i < r; i++ {
			col[i] = X.At(i, j)
		}
		sorted := make([]float64, r)
		copy(sorted, col)
		sort.Float64s(sorted)

		refs := make([]float64, n)
		for k := 0; k < n; k++ {
			// Linear interpolation over the sorted sample at evenly
			// spaced probabilities.
			pos := float64(k) / float64(n-1) * float64(r-1)
			lo := int(math.Floor(pos))
			hi := int(math.Ceil(pos))
			frac := pos - float64(lo)
			refs[k] = sorted[lo]*(1-frac) + sorted[hi]*frac
		}
		q.References[j] = refs
	}

	q.SetFitted()
	return nil
}

// Transform maps X through the fitted quantile functions.
func (q *QuantileTransformer) Transform(X mat.Matrix) (mat.Matrix, error) {
	if !q.IsFitted() {
		return nil, errors.NewNotFittedError("QuantileTransformer", "Transform")
	}
	r, c := X.Dims()
	if c != len(q.References) {
		return nil, errors.NewDimensionError("QuantileTransformer.Transform", len(q.References), c, 1)
	}

	out := mat.NewDense(r, c, nil)
	for j := 0; j < c; j++ {
		refs := q.References[j]
		for i := 0; i < r; i++ {
			p := empiricalCDF(refs, X.At(i, j))
			if q.Output == Normal {
				out.Set(i, j, normalPPF(p))
			} else {
				out.Set(i, j, p)
			}
		}
	}
	return out, nil
}

// CloneTransformer returns an unfitted copy with the same configuration.
func (q *QuantileTransformer) CloneTransformer() model.Transformer {
	return &QuantileTransformer{NQuantiles: q.NQuantiles, Output: q.Output}
}

// empiricalCDF interpolates the probability of v under the landmark
// quantiles refs.
func empiricalCDF(refs []float64, v float64) float64 {
	n := len(refs)
	if v <= refs[0] {
		return 0
	}
	if v >= refs[n-1] {
		return 1
	}
	idx := sort.SearchFloat64s(refs, v)
	lo, hi := refs[idx-1], refs[idx]
	frac := 0.0
	if hi > lo {
		frac = (v - lo) / (hi - lo)
	}
	return (float64(idx-1) + frac) / float64(n-1)
}

// normalPPF is the standard normal quantile function, clipped away from the
// infinities at p = 0 and p = 1.
func normalPPF(p float64) float64 {
	const eps = 1e-7
	if p < eps {
		p = eps
	}
	if p > 1-eps {
		p = 1 - eps
	}
	return math.Sqrt2 * math.Erfinv(2*p-1)
}
