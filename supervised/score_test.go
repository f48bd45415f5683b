package supervised

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestScoreTableMultiTarget(t *testing.T) {
	yTrue := mat.NewDense(4, 2, []float64{
		1, 10,
		2, 20,
		3, 30,
		4, 40,
	})
	yPred := mat.NewDense(4, 2, []float64{
		1.1, 11,
		2.0, 19,
		2.9, 31,
		4.1, 39,
	})

	r, err := New(ChoiceRidge)
	require.NoError(t, err)

	table, err := r.ScoreTable(yTrue, yPred)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, table.Index)
	assert.Contains(t, table.Columns, "mae")
	assert.Contains(t, table.Columns, "msle")
	require.Len(t, table.Rows, 2)
	require.Len(t, table.Rows[0], len(table.Columns))
}

func TestScoreTableDropsUndefinedMetricColumns(t *testing.T) {
	// Negative targets leave no target for which msle is defined.
	yTrue := mat.NewDense(3, 1, []float64{-1, -2, -3})
	yPred := mat.NewDense(3, 1, []float64{-1, -2, -3})

	r, err := New(ChoiceRidge)
	require.NoError(t, err)

	table, err := r.ScoreTable(yTrue, yPred)
	require.NoError(t, err)
	assert.NotContains(t, table.Columns, "msle")
	assert.Contains(t, table.Columns, "mse")
}

func TestScoreTableWriteCSV(t *testing.T) {
	yTrue := mat.NewDense(3, 1, []float64{1, 2, 3})
	yPred := mat.NewDense(3, 1, []float64{1, 2, 3})

	r, err := New(ChoiceRidge)
	require.NoError(t, err)
	table, err := r.ScoreTable(yTrue, yPred)
	require.NoError(t, err)

	var sb strings.Builder
	require.NoError(t, table.WriteCSV(&sb))

	lines := strings.Split(strings.TrimSpace(sb.String()), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "target,"))
	assert.True(t, strings.HasPrefix(lines[1], "1,"))
}
