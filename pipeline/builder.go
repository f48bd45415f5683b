package pipeline

import (
	"strings"

	"github.com/regressio/regressio/core/model"
	"github.com/regressio/regressio/pkg/errors"
	"github.com/regressio/regressio/preprocessing"
)

// Config carries everything the builder needs to assemble a pipeline for one
// target configuration. Pipelines are built lazily because NQuantiles depends
// on the estimated training-fold size, which is only known once the
// cross-validation plan is.
type Config struct {
	// Transform selects the preprocessing stages. Accepted forms: a stage
	// name ("standardscaler", "quantileuniform", "quantilenormal", or ""
	// for none), a list of stage names, a model.Transformer, or a
	// prebuilt []Stage.
	Transform interface{}

	// NQuantiles sizes quantile transform stages. Zero keeps the
	// transformer's default.
	NQuantiles int

	// NTargets is the number of target columns the regressor stage must
	// produce. Above one, the backend is wrapped for multi-target fitting.
	NTargets int

	// ChainOrder, when set, selects chained multi-target fitting in the
	// given target order instead of independent per-target fitting.
	ChainOrder []int

	// TargetIndex is the incumbent column for base boosting, or
	// dataset.NoTargetIndex.
	TargetIndex int

	// BaseBoost enables the residual base-boosting stage.
	BaseBoost *BaseBoostOptions

	// Memory caches the fitted transform output of the most recent input.
	Memory bool
}

// Make assembles a pipeline around the given backend regressor.
func Make(reg model.Regressor, cfg Config) (*Pipeline, error) {
	if reg == nil {
		return nil, errors.NewConfigurationError("regressor", "a backend regressor is required", nil)
	}
	stages, err := ResolveTransform(cfg.Transform, cfg.NQuantiles)
	if err != nil {
		return nil, err
	}
	if cfg.BaseBoost != nil {
		if err := cfg.BaseBoost.Validate(); err != nil {
			return nil, err
		}
	}

	wrapped, err := wrapMultiTarget(reg, cfg)
	if err != nil {
		return nil, err
	}

	return &Pipeline{
		Stages:      stages,
		Reg:         wrapped,
		BaseBoost:   cfg.BaseBoost,
		TargetIndex: cfg.TargetIndex,
		Memory:      cfg.Memory,
	}, nil
}

// wrapMultiTarget wraps the backend for multi-target fitting when the task
// has more than one target column.
func wrapMultiTarget(reg model.Regressor, cfg Config) (model.Regressor, error) {
	if cfg.NTargets <= 1 {
		if len(cfg.ChainOrder) > 0 {
			return nil, errors.NewConfigurationError("chain_order",
				"chained fitting requires more than one target", cfg.ChainOrder)
		}
		return reg, nil
	}
	if len(cfg.ChainOrder) > 0 {
		if len(cfg.ChainOrder) != cfg.NTargets {
			return nil, errors.NewConfigurationError("chain_order",
				"must list every target column exactly once", cfg.ChainOrder)
		}
		seen := make(map[int]bool, cfg.NTargets)
		for _, k := range cfg.ChainOrder {
			if k < 0 || k >= cfg.NTargets || seen[k] {
				return nil, errors.NewConfigurationError("chain_order",
					"must list every target column exactly once", cfg.ChainOrder)
			}
			seen[k] = true
		}
		return NewChain(reg, cfg.ChainOrder), nil
	}
	return NewMultiOutput(reg, cfg.NTargets), nil
}

// ResolveTransform normalizes a transform specification into named stages.
func ResolveTransform(spec interface{}, nQuantiles int) ([]Stage, error) {
	switch v := spec.(type) {
	case nil:
		return nil, nil
	case string:
		if v == "" {
			return nil, nil
		}
		s, err := stageByName(v, nQuantiles)
		if err != nil {
			return nil, err
		}
		return []Stage{s}, nil
	case []string:
		stages := make([]Stage, 0, len(v))
		for _, name := range v {
			s, err := stageByName(name, nQuantiles)
			if err != nil {
				return nil, err
			}
			stages = append(stages, s)
		}
		return stages, nil
	case model.Transformer:
		return []Stage{{Name: "custom", Transformer: v}}, nil
	case []Stage:
		return v, nil
	}
	return nil, errors.NewConfigurationError("pipeline_transform",
		"must be a stage name, a list of names, a transformer, or prebuilt stages", spec)
}

func stageByName(name string, nQuantiles int) (Stage, error) {
	switch strings.ToLower(name) {
	case "standardscaler":
		return Stage{Name: "standardscaler", Transformer: preprocessing.NewStandardScaler()}, nil
	case "quantileuniform":
		return Stage{Name: "quantileuniform",
			Transformer: preprocessing.NewQuantileTransformer(nQuantiles, preprocessing.Uniform)}, nil
	case "quantilenormal":
		return Stage{Name: "quantilenormal",
			Transformer: preprocessing.NewQuantileTransformer(nQuantiles, preprocessing.Normal)}, nil
	}
	return Stage{}, errors.NewConfigurationError("pipeline_transform", "unknown transform stage", name)
}
