package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/regressio/regressio/dataset"
	"github.com/regressio/regressio/linear"
	"github.com/regressio/regressio/preprocessing"
)

func TestResolveTransform(t *testing.T) {
	tests := []struct {
		name       string
		spec       interface{}
		wantStages int
		wantErr    bool
	}{
		{name: "none", spec: nil, wantStages: 0},
		{name: "empty name", spec: "", wantStages: 0},
		{name: "scaler", spec: "standardscaler", wantStages: 1},
		{name: "quantile normal", spec: "quantilenormal", wantStages: 1},
		{name: "quantile uniform", spec: "quantileuniform", wantStages: 1},
		{name: "list", spec: []string{"standardscaler", "quantilenormal"}, wantStages: 2},
		{name: "prebuilt transformer", spec: preprocessing.NewStandardScaler(), wantStages: 1},
		{name: "unknown name", spec: "minmax", wantErr: true},
		{name: "wrong type", spec: 42, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stages, err := ResolveTransform(tt.spec, 100)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Len(t, stages, tt.wantStages)
		})
	}
}

func TestResolveTransformSizesQuantiles(t *testing.T) {
	stages, err := ResolveTransform("quantilenormal", 37)
	require.NoError(t, err)
	q, ok := stages[0].Transformer.(*preprocessing.QuantileTransformer)
	require.True(t, ok)
	assert.Equal(t, 37, q.NQuantiles)
}

func TestMakeWrapsMultiTarget(t *testing.T) {
	indep, err := Make(linear.NewRidge(1), Config{
		NTargets:    3,
		TargetIndex: dataset.NoTargetIndex,
	})
	require.NoError(t, err)
	_, isMulti := indep.Reg.(*MultiOutput)
	assert.True(t, isMulti)

	chained, err := Make(linear.NewRidge(1), Config{
		NTargets:    3,
		ChainOrder:  []int{2, 0, 1},
		TargetIndex: dataset.NoTargetIndex,
	})
	require.NoError(t, err)
	_, isChain := chained.Reg.(*Chain)
	assert.True(t, isChain)

	single, err := Make(linear.NewRidge(1), Config{
		NTargets:    1,
		TargetIndex: dataset.NoTargetIndex,
	})
	require.NoError(t, err)
	_, isRidge := single.Reg.(*linear.Ridge)
	assert.True(t, isRidge)
}

func TestMakeValidatesChainOrder(t *testing.T) {
	_, err := Make(linear.NewRidge(1), Config{
		NTargets:    3,
		ChainOrder:  []int{0, 1},
		TargetIndex: dataset.NoTargetIndex,
	})
	assert.Error(t, err, "chain order must cover every target")

	_, err = Make(linear.NewRidge(1), Config{
		NTargets:    3,
		ChainOrder:  []int{0, 1, 1},
		TargetIndex: dataset.NoTargetIndex,
	})
	assert.Error(t, err, "duplicate chain positions must be rejected")

	_, err = Make(linear.NewRidge(1), Config{
		NTargets:    1,
		ChainOrder:  []int{0},
		TargetIndex: dataset.NoTargetIndex,
	})
	assert.Error(t, err, "chained fitting needs more than one target")
}

func TestMakeValidatesBaseBoost(t *testing.T) {
	_, err := Make(linear.NewRidge(1), Config{
		TargetIndex: 0,
		BaseBoost:   &BaseBoostOptions{NEstimators: 0, LearningRate: 0.1, Loss: "ls"},
	})
	assert.Error(t, err)

	_, err = Make(nil, Config{TargetIndex: dataset.NoTargetIndex})
	assert.Error(t, err)
}
