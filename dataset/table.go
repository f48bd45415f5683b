// Package dataset provides the row-aligned, named-column tables that every
// regressio workflow consumes, together with target-cardinality
// classification and single-target slicing.
package dataset

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/regressio/regressio/pkg/errors"
)

// Table is an ordered collection of rows over named columns. Tables are
// treated as immutable during a workflow run: every derived view (Take,
// ColTable) copies the selected values into a fresh backing matrix.
type Table struct {
	names []string
	data  *mat.Dense
}

// New creates a Table from column names and a backing matrix. The number of
// names must match the matrix column count.
func New(names []string, data *mat.Dense) (*Table, error) {
	if data == nil {
		return nil, errors.NewDataError("dataset.New", "nil data matrix")
	}
	r, c := data.Dims()
	if r == 0 || c == 0 {
		return nil, errors.NewDataError("dataset.New", "empty data matrix")
	}
	if len(names) != c {
		return nil, errors.NewDimensionError("dataset.New", c, len(names), 1)
	}
	owned := make([]string, c)
	copy(owned, names)
	return &Table{names: owned, data: data}, nil
}

// FromMatrix wraps an arbitrary matrix in a Table with generated column
// names x0, x1, ...
func FromMatrix(m mat.Matrix) (*Table, error) {
	if m == nil {
		return nil, errors.NewDataError("dataset.FromMatrix", "nil matrix")
	}
	r, c := m.Dims()
	if r == 0 || c == 0 {
		return nil, errors.NewDataError("dataset.FromMatrix", "empty matrix")
	}
	names := make([]string, c)
	for j := range names {
		names[j] = fmt.Sprintf("x%d", j)
	}
	dense := mat.DenseCopyOf(m)
	return &Table{names: names, data: dense}, nil
}

// FromSlice builds a Table from a flat row-major float slice.
func FromSlice(names []string, rows int, values []float64) (*Table, error) {
	cols := len(names)
	if cols == 0 || rows == 0 {
		return nil, errors.NewDataError("dataset.FromSlice", "empty data")
	}
	if len(values) != rows*cols {
		return nil, errors.NewDimensionError("dataset.FromSlice", rows*cols, len(values), 0)
	}
	return New(names, mat.NewDense(rows, cols, values))
}

// NRows returns the number of rows.
func (t *Table) NRows() int {
	r, _ := t.data.Dims()
	return r
}

// NCols returns the number of columns.
func (t *Table) NCols() int {
	_, c := t.data.Dims()
	return c
}

// Names returns a copy of the column names.
func (t *Table) Names() []string {
	out := make([]string, len(t.names))
	copy(out, t.names)
	return out
}

// Name returns the name of column j.
func (t *Table) Name(j int) string { return t.names[j] }

// At returns the value at row i, column j.
func (t *Table) At(i, j int) float64 { return t.data.At(i, j) }

// Matrix exposes the backing matrix read-only.
func (t *Table) Matrix() mat.Matrix { return t.data }

// Col returns a copy of column j.
func (t *Table) Col(j int) []float64 {
	out := make([]float64, t.NRows())
	mat.Col(out, j, t.data)
	return out
}

// ColTable returns column j as a single-column Table keeping its name.
func (t *Table) ColTable(j int) (*Table, error) {
	if j < 0 || j >= t.NCols() {
		return nil, errors.NewDimensionError("Table.ColTable", t.NCols()-1, j, 1)
	}
	col := t.Col(j)
	return &Table{
		names: []string{t.names[j]},
		data:  mat.NewDense(len(col), 1, col),
	}, nil
}

// Take returns a new Table with the rows selected by indices, in index order.
func (t *Table) Take(indices []int) (*Table, error) {
	r, c := t.data.Dims()
	out := mat.NewDense(len(indices), c, nil)
	for i, idx := range indices {
		if idx < 0 || idx >= r {
			return nil, errors.NewDimensionError("Table.Take", r-1, idx, 0)
		}
		for j := 0; j < c; j++ {
			out.Set(i, j, t.data.At(idx, j))
		}
	}
	return &Table{names: t.Names(), data: out}, nil
}

// Clone returns a deep copy of the table.
func (t *Table) Clone() *Table {
	return &Table{names: t.Names(), data: mat.DenseCopyOf(t.data)}
}
