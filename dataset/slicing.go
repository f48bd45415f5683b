package dataset

import (
	"github.com/regressio/regressio/pkg/errors"
)

// NoTargetIndex marks an unset target index in the configuration surface.
const NoTargetIndex = -1

// TargetKind classifies the cardinality of a target table.
type TargetKind int

const (
	// SingleTarget is a target with exactly one column.
	SingleTarget TargetKind = iota
	// MultiTarget is a target with more than one column.
	MultiTarget
)

// KindOf reports whether y is a single- or multi-target task.
func KindOf(y *Table) TargetKind {
	if y != nil && y.NCols() > 1 {
		return MultiTarget
	}
	return SingleTarget
}

// SliceTarget automates single-target regression subtask slicing. When y is
// multi-target and a target index is set, the selected named column is
// returned; otherwise y is returned unchanged. Slicing an already
// single-target table is the identity, so the call is idempotent and is made
// at every workflow entry point.
func SliceTarget(y *Table, targetIndex int) (*Table, error) {
	if y == nil {
		return nil, errors.NewDataError("dataset.SliceTarget", "the target matrix y is nil, so there is no data to slice")
	}
	if targetIndex != NoTargetIndex && KindOf(y) == MultiTarget {
		return y.ColTable(targetIndex)
	}
	return y, nil
}

// ValidateXY checks that the data representations are present and
// row-aligned. Supplying neither X nor y is a data-availability error.
func ValidateXY(X, y *Table) error {
	if X == nil && y == nil {
		return errors.NewDataError("dataset.ValidateXY",
			"both the feature matrix X and the target matrix y are nil, so there is no data to validate")
	}
	if X != nil && X.NRows() == 0 {
		return errors.NewDataError("dataset.ValidateXY", "the feature matrix X has no rows")
	}
	if y != nil && y.NRows() == 0 {
		return errors.NewDataError("dataset.ValidateXY", "the target matrix y has no rows")
	}
	if X != nil && y != nil && X.NRows() != y.NRows() {
		return errors.NewDimensionError("dataset.ValidateXY", X.NRows(), y.NRows(), 0)
	}
	return nil
}
