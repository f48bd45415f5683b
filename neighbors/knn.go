// Package neighbors provides the k-nearest-neighbors regression backend.
package neighbors

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/regressio/regressio/core/model"
	"github.com/regressio/regressio/pkg/errors"
)

// KNNRegressor predicts the (optionally distance-weighted) mean target of the
// k nearest training samples. It does not support sample weights.
type KNNRegressor struct {
	model.StateTracker

	// NNeighbors is the number of neighbors averaged per prediction.
	NNeighbors int

	// DistanceWeighted weights neighbors by inverse distance instead of
	// uniformly.
	DistanceWeighted bool

	TrainX *mat.Dense
	TrainY *mat.Dense
}

// NewKNNRegressor creates a KNN regressor with k neighbors.
func NewKNNRegressor(k int) *KNNRegressor {
	if k < 1 {
		k = 5
	}
	return &KNNRegressor{NNeighbors: k}
}

// Name implements model.Named.
func (k *KNNRegressor) Name() string { return "KNNRegressor" }

// Fit memorizes the training data.
func (k *KNNRegressor) Fit(X, y mat.Matrix) error {
	n, f := X.Dims()
	yn, _ := y.Dims()
	if n == 0 || f == 0 {
		return errors.NewDataError("KNNRegressor.Fit", "empty data")
	}
	if n != yn {
		return errors.NewDimensionError("KNNRegressor.Fit", n, yn, 0)
	}
	if k.NNeighbors > n {
		return errors.NewConfigurationError("n_neighbors",
			"must not exceed the number of training samples", k.NNeighbors)
	}

	k.TrainX = mat.DenseCopyOf(X)
	k.TrainY = mat.DenseCopyOf(y)
	k.SetFitted()
	return nil
}

type neighbor struct {
	idx  int
	dist float64
}

// Predict averages the targets of the k nearest training rows per query row.
func (k *KNNRegressor) Predict(X mat.Matrix) (mat.Matrix, error) {
	if !k.IsFitted() {
		return nil, errors.NewNotFittedError(k.Name(), "Predict")
	}
	n, f := X.Dims()
	tn, tf := k.TrainX.Dims()
	if f != tf {
		return nil, errors.NewDimensionError("KNNRegressor.Predict", tf, f, 1)
	}
	_, t := k.TrainY.Dims()

	out := mat.NewDense(n, t, nil)
	dists := make([]neighbor, tn)
	for i := 0; i < n; i++ {
		for j := 0; j < tn; j++ {
			sum := 0.0
			for d := 0; d < f; d++ {
				diff := X.At(i, d) - k.TrainX.At(j, d)
				sum += diff * diff
			}
			dists[j] = neighbor{idx: j, dist: math.Sqrt(sum)}
		}
		sort.Slice(dists, func(a, b int) bool { return dists[a].dist < dists[b].dist })

		var wSum float64
		acc := make([]float64, t)
		for m := 0; m < k.NNeighbors; m++ {
			nb := dists[m]
			w := 1.0
			if k.DistanceWeighted {
				// An exact match dominates all other neighbors.
				if nb.dist == 0 {
					for c := 0; c < t; c++ {
						acc[c] = k.TrainY.At(nb.idx, c)
					}
					wSum = 1
					break
				}
				w = 1 / nb.dist
			}
			wSum += w
			for c := 0; c < t; c++ {
				acc[c] += w * k.TrainY.At(nb.idx, c)
			}
		}
		for c := 0; c < t; c++ {
			out.Set(i, c, acc[c]/wSum)
		}
	}
	return out, nil
}

// GetParams returns the hyperparameters.
func (k *KNNRegressor) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"n_neighbors":       k.NNeighbors,
		"distance_weighted": k.DistanceWeighted,
	}
}

// SetParams sets hyperparameters. Unknown keys are a configuration error.
func (k *KNNRegressor) SetParams(params map[string]interface{}) error {
	for key, value := range params {
		switch key {
		case "n_neighbors":
			switch v := value.(type) {
			case int:
				k.NNeighbors = v
			case float64:
				k.NNeighbors = int(v)
			default:
				return errors.NewConfigurationError("n_neighbors", "must be an int", value)
			}
			if k.NNeighbors < 1 {
				return errors.NewConfigurationError("n_neighbors", "must be at least 1", value)
			}
		case "distance_weighted":
			v, ok := value.(bool)
			if !ok {
				return errors.NewConfigurationError("distance_weighted", "must be a bool", value)
			}
			k.DistanceWeighted = v
		default:
			return errors.NewConfigurationError(key, "not a KNNRegressor parameter", value)
		}
	}
	return nil
}

// Clone returns an unfitted copy with the same hyperparameters.
func (k *KNNRegressor) Clone() model.Regressor {
	return &KNNRegressor{NNeighbors: k.NNeighbors, DistanceWeighted: k.DistanceWeighted}
}
