// Package visualization renders cross-validation and search outcomes to
// image files.
package visualization

import (
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/regressio/regressio/pkg/errors"
)

// SaveFoldScores plots per-fold cross-validation scores against the fold
// index and writes the image to filename. The format follows the filename
// extension (png, svg, pdf). NaN folds are skipped.
func SaveFoldScores(scores []float64, metric, filename string) error {
	if len(scores) == 0 {
		return errors.NewDataError("visualization.SaveFoldScores", "no scores to plot")
	}

	pts := make(plotter.XYs, 0, len(scores))
	for i, v := range scores {
		if math.IsNaN(v) {
			continue
		}
		pts = append(pts, plotter.XY{X: float64(i + 1), Y: v})
	}
	if len(pts) == 0 {
		return errors.NewDataError("visualization.SaveFoldScores", "every fold score is NaN")
	}

	p := plot.New()
	p.Title.Text = "Cross-validation scores"
	p.X.Label.Text = "fold"
	p.Y.Label.Text = metric

	line, points, err := plotter.NewLinePoints(pts)
	if err != nil {
		return errors.Wrap(err, "fold score plot")
	}
	p.Add(line, points, plotter.NewGrid())

	if err := p.Save(6*vg.Inch, 4*vg.Inch, filename); err != nil {
		return errors.Wrap(err, "fold score plot")
	}
	return nil
}

// SaveSearchScores plots candidate mean test scores in evaluation order,
// which makes sequential search convergence visible.
func SaveSearchScores(meanScores []float64, metric, filename string) error {
	if len(meanScores) == 0 {
		return errors.NewDataError("visualization.SaveSearchScores", "no scores to plot")
	}

	pts := make(plotter.XYs, 0, len(meanScores))
	best := math.Inf(-1)
	running := make(plotter.XYs, 0, len(meanScores))
	for i, v := range meanScores {
		if math.IsNaN(v) {
			continue
		}
		pts = append(pts, plotter.XY{X: float64(i + 1), Y: v})
		if v > best {
			best = v
		}
		running = append(running, plotter.XY{X: float64(i + 1), Y: best})
	}
	if len(pts) == 0 {
		return errors.NewDataError("visualization.SaveSearchScores", "every candidate score is NaN")
	}

	p := plot.New()
	p.Title.Text = "Search scores"
	p.X.Label.Text = "candidate"
	p.Y.Label.Text = metric

	scatter, err := plotter.NewScatter(pts)
	if err != nil {
		return errors.Wrap(err, "search score plot")
	}
	bestLine, err := plotter.NewLine(running)
	if err != nil {
		return errors.Wrap(err, "search score plot")
	}
	p.Add(scatter, bestLine, plotter.NewGrid())
	p.Legend.Add("candidate", scatter)
	p.Legend.Add("best so far", bestLine)

	if err := p.Save(6*vg.Inch, 4*vg.Inch, filename); err != nil {
		return errors.Wrap(err, "search score plot")
	}
	return nil
}
