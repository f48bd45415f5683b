package supervised

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/regressio/regressio/metrics"
	"github.com/regressio/regressio/pkg/errors"
)

// ScoreTable reports every supported metric per target. Metric columns whose
// values are NaN for every target are dropped: a metric undefined on this
// data (MSLE with negative values) vanishes from the report instead of
// filling it with NaN.
type ScoreTable struct {
	// Index holds the one-based display index of each target row. With a
	// configured target index the single row carries that column's
	// display position within the original multi-target y.
	Index []int

	// Columns names the retained metrics in presentation order.
	Columns []string

	// Rows holds one value per target row and retained metric column.
	Rows [][]float64
}

// ScoreTable computes every supported metric between true and predicted
// targets, one row per target column.
func (r *Regressor) ScoreTable(yTrue, yPred mat.Matrix) (*ScoreTable, error) {
	if yTrue == nil || yPred == nil {
		return nil, errors.NewDataError("Regressor.ScoreTable", "nil input matrix")
	}
	_, t := yTrue.Dims()

	perMetric := make(map[metrics.Metric][]float64, len(metrics.Metrics))
	for _, m := range metrics.Metrics {
		vals, err := metrics.Score(yTrue, yPred, m, metrics.RawValues)
		if err != nil {
			return nil, err
		}
		perMetric[m] = vals
	}

	var kept []metrics.Metric
	for _, m := range metrics.Metrics {
		if !allNaN(perMetric[m]) {
			kept = append(kept, m)
		}
	}

	table := &ScoreTable{
		Index:   make([]int, t),
		Columns: make([]string, len(kept)),
		Rows:    make([][]float64, t),
	}
	for i, m := range kept {
		table.Columns[i] = m.String()
	}
	for j := 0; j < t; j++ {
		table.Index[j] = r.displayIndex(j)
		row := make([]float64, len(kept))
		for i, m := range kept {
			row[i] = perMetric[m][j]
		}
		table.Rows[j] = row
	}
	return table, nil
}

// displayIndex maps a target position to its one-based display index. With a
// configured target index the sliced column keeps its position in the
// original y.
func (r *Regressor) displayIndex(pos int) int {
	if r.cfg.targetIndex >= 0 {
		return r.cfg.targetIndex + 1
	}
	return pos + 1
}

// WriteCSV exports the table with the display index as the first column.
func (t *ScoreTable) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	header := append([]string{"target"}, t.Columns...)
	if err := cw.Write(header); err != nil {
		return errors.Wrap(err, "score table export")
	}
	for i, row := range t.Rows {
		record := make([]string, 0, len(row)+1)
		record = append(record, fmt.Sprintf("%d", t.Index[i]))
		for _, v := range row {
			record = append(record, fmt.Sprintf("%g", v))
		}
		if err := cw.Write(record); err != nil {
			return errors.Wrap(err, "score table export")
		}
	}
	cw.Flush()
	return errors.WithStack(cw.Error())
}

func allNaN(values []float64) bool {
	for _, v := range values {
		if !math.IsNaN(v) {
			return false
		}
	}
	return true
}
