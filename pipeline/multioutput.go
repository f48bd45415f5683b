package pipeline

import (
	"gonum.org/v1/gonum/mat"

	"github.com/regressio/regressio/core/model"
	"github.com/regressio/regressio/pkg/errors"
)

// MultiOutput fits one independent clone of a template regressor per target
// column. Hyperparameters broadcast to every clone unless a per-target
// override is routed to a specific sub-target.
type MultiOutput struct {
	model.StateTracker

	Template model.Regressor

	// Overrides holds per-target parameter overrides, indexed by target
	// position. Nil entries inherit the template's parameters.
	Overrides []map[string]interface{}

	Fitted []model.Regressor
}

// NewMultiOutput wraps a template regressor for independent multi-target
// fitting over nTargets columns.
func NewMultiOutput(template model.Regressor, nTargets int) *MultiOutput {
	return &MultiOutput{
		Template:  template,
		Overrides: make([]map[string]interface{}, nTargets),
	}
}

// Name implements model.Named.
func (m *MultiOutput) Name() string {
	return "MultiOutput(" + model.NameOf(m.Template) + ")"
}

// Fit trains one clone per target column.
func (m *MultiOutput) Fit(X, y mat.Matrix) error {
	_, t := y.Dims()
	if t != len(m.Overrides) {
		return errors.NewDimensionError("MultiOutput.Fit", len(m.Overrides), t, 1)
	}

	m.Fitted = make([]model.Regressor, t)
	for j := 0; j < t; j++ {
		clone := m.Template.Clone()
		if m.Overrides[j] != nil {
			if err := clone.SetParams(m.Overrides[j]); err != nil {
				return err
			}
		}
		if err := clone.Fit(X, targetColumn(y, j)); err != nil {
			return errors.Wrapf(err, "target %d", j)
		}
		m.Fitted[j] = clone
	}
	m.SetFitted()
	return nil
}

// Predict assembles per-target predictions column by column.
func (m *MultiOutput) Predict(X mat.Matrix) (mat.Matrix, error) {
	if !m.IsFitted() {
		return nil, errors.NewNotFittedError(m.Name(), "Predict")
	}
	n, _ := X.Dims()
	out := mat.NewDense(n, len(m.Fitted), nil)
	for j, reg := range m.Fitted {
		pred, err := reg.Predict(X)
		if err != nil {
			return nil, errors.Wrapf(err, "target %d", j)
		}
		for i := 0; i < n; i++ {
			out.Set(i, j, pred.At(i, 0))
		}
	}
	return out, nil
}

// Estimators returns the fitted per-target estimators.
func (m *MultiOutput) Estimators() []model.Regressor { return m.Fitted }

// GetParams returns the template's hyperparameters.
func (m *MultiOutput) GetParams() map[string]interface{} {
	return m.Template.GetParams()
}

// SetParams broadcasts parameters to the template (and thereby to every
// future clone without an override).
func (m *MultiOutput) SetParams(params map[string]interface{}) error {
	return m.Template.SetParams(params)
}

// SetParamsAt routes parameters to one sub-target.
func (m *MultiOutput) SetParamsAt(target int, params map[string]interface{}) error {
	if target < 0 || target >= len(m.Overrides) {
		return errors.NewDimensionError("MultiOutput.SetParamsAt", len(m.Overrides)-1, target, 1)
	}
	if m.Overrides[target] == nil {
		m.Overrides[target] = make(map[string]interface{})
	}
	for k, v := range params {
		m.Overrides[target][k] = v
	}
	return nil
}

// Clone returns an unfitted deep copy.
func (m *MultiOutput) Clone() model.Regressor {
	out := NewMultiOutput(m.Template.Clone(), len(m.Overrides))
	for i, ov := range m.Overrides {
		if ov != nil {
			out.Overrides[i] = make(map[string]interface{}, len(ov))
			for k, v := range ov {
				out.Overrides[i][k] = v
			}
		}
	}
	return out
}

// Chain fits one clone of a template regressor per declared chain position.
// Each single-target subtask sees the original features plus the targets of
// every earlier position: the true values during fitting, the predictions at
// prediction time.
type Chain struct {
	model.StateTracker

	Template model.Regressor

	// Order is the declared sequence of target columns.
	Order []int

	// Overrides holds per-chain-position parameter overrides.
	Overrides []map[string]interface{}

	Fitted []model.Regressor
}

// NewChain wraps a template regressor for chained multi-target fitting.
func NewChain(template model.Regressor, order []int) *Chain {
	return &Chain{
		Template:  template,
		Order:     append([]int(nil), order...),
		Overrides: make([]map[string]interface{}, len(order)),
	}
}

// Name implements model.Named.
func (c *Chain) Name() string {
	return "Chain(" + model.NameOf(c.Template) + ")"
}

// Fit trains the chain in declared order.
func (c *Chain) Fit(X, y mat.Matrix) error {
	n, f := X.Dims()
	_, t := y.Dims()
	if len(c.Order) != t {
		return errors.NewDimensionError("Chain.Fit", t, len(c.Order), 1)
	}
	for _, k := range c.Order {
		if k < 0 || k >= t {
			return errors.NewConfigurationError("chain_order", "target column out of range", k)
		}
	}

	aug := mat.NewDense(n, f+t, nil)
	copyInto(aug, X, 0)

	c.Fitted = make([]model.Regressor, len(c.Order))
	for pos, k := range c.Order {
		clone := c.Template.Clone()
		if c.Overrides[pos] != nil {
			if err := clone.SetParams(c.Overrides[pos]); err != nil {
				return err
			}
		}
		view := aug.Slice(0, n, 0, f+pos)
		if err := clone.Fit(view, targetColumn(y, k)); err != nil {
			return errors.Wrapf(err, "chain position %d (target %d)", pos, k)
		}
		c.Fitted[pos] = clone

		// Later positions train on the true values of this target.
		for i := 0; i < n; i++ {
			aug.Set(i, f+pos, y.At(i, k))
		}
	}
	c.SetFitted()
	return nil
}

// Predict runs the chain, feeding each position's predictions forward.
func (c *Chain) Predict(X mat.Matrix) (mat.Matrix, error) {
	if !c.IsFitted() {
		return nil, errors.NewNotFittedError(c.Name(), "Predict")
	}
	n, f := X.Dims()
	t := len(c.Order)

	aug := mat.NewDense(n, f+t, nil)
	copyInto(aug, X, 0)

	out := mat.NewDense(n, t, nil)
	for pos, k := range c.Order {
		view := aug.Slice(0, n, 0, f+pos)
		pred, err := c.Fitted[pos].Predict(view)
		if err != nil {
			return nil, errors.Wrapf(err, "chain position %d", pos)
		}
		for i := 0; i < n; i++ {
			v := pred.At(i, 0)
			aug.Set(i, f+pos, v)
			out.Set(i, k, v)
		}
	}
	return out, nil
}

// Estimators returns the fitted per-position estimators.
func (c *Chain) Estimators() []model.Regressor { return c.Fitted }

// GetParams returns the template's hyperparameters.
func (c *Chain) GetParams() map[string]interface{} {
	return c.Template.GetParams()
}

// SetParams broadcasts parameters to the template.
func (c *Chain) SetParams(params map[string]interface{}) error {
	return c.Template.SetParams(params)
}

// SetParamsAt routes parameters to one chain position.
func (c *Chain) SetParamsAt(pos int, params map[string]interface{}) error {
	if pos < 0 || pos >= len(c.Overrides) {
		return errors.NewDimensionError("Chain.SetParamsAt", len(c.Overrides)-1, pos, 1)
	}
	if c.Overrides[pos] == nil {
		c.Overrides[pos] = make(map[string]interface{})
	}
	for k, v := range params {
		c.Overrides[pos][k] = v
	}
	return nil
}

// Clone returns an unfitted deep copy.
func (c *Chain) Clone() model.Regressor {
	out := NewChain(c.Template.Clone(), c.Order)
	for i, ov := range c.Overrides {
		if ov != nil {
			out.Overrides[i] = make(map[string]interface{}, len(ov))
			for k, v := range ov {
				out.Overrides[i][k] = v
			}
		}
	}
	return out
}

// PerTargetSetter is satisfied by the multi-target wrappers and used by the
// search engine to route parameters per sub-target or chain position.
type PerTargetSetter interface {
	SetParamsAt(pos int, params map[string]interface{}) error
	Estimators() []model.Regressor
}

func targetColumn(y mat.Matrix, j int) mat.Matrix {
	n, _ := y.Dims()
	out := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		out.Set(i, 0, y.At(i, j))
	}
	return out
}

func copyInto(dst *mat.Dense, src mat.Matrix, colOffset int) {
	r, c := src.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			dst.Set(i, colOffset+j, src.At(i, j))
		}
	}
}
