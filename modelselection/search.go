package modelselection

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"math/rand/v2"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/exp/maps"

	"github.com/regressio/regressio/dataset"
	"github.com/regressio/regressio/pipeline"
	"github.com/regressio/regressio/pkg/errors"
	"github.com/regressio/regressio/pkg/log"
)

// Dimension is one searchable hyperparameter. A dimension carries either an
// explicit value grid or a bounded numeric range; grid search requires the
// former, randomized and Bayesian search accept both.
type Dimension struct {
	// Name is the backend parameter name, for example "alpha".
	Name string

	// Target routes the dimension to one sub-target or chain position.
	// dataset.NoTargetIndex broadcasts to every sub-estimator.
	Target int

	// Values is the explicit candidate grid.
	Values []interface{}

	// Low and High bound a numeric range, used when Values is empty.
	Low, High float64

	// Ints restricts a bounded range to integer values.
	Ints bool

	// Log samples a bounded range on a logarithmic scale.
	Log bool
}

func (d *Dimension) validate(requireGrid bool) error {
	if d.Name == "" {
		return errors.NewConfigurationError("search_params", "dimension without a name", d)
	}
	if len(d.Values) > 0 {
		return nil
	}
	if requireGrid {
		return errors.NewConfigurationError("search_params",
			"grid search requires explicit values for every dimension", d.Name)
	}
	if !(d.Low < d.High) {
		return errors.NewConfigurationError("search_params",
			"bounded range requires low < high", d.Name)
	}
	if d.Log && d.Low <= 0 {
		return errors.NewConfigurationError("search_params",
			"log-scale range requires positive bounds", d.Name)
	}
	return nil
}

// Space is a named collection of searchable dimensions.
type Space struct {
	Dimensions []Dimension
}

// Candidate is one evaluated parameter assignment with its aggregated
// cross-validation outcome.
type Candidate struct {
	Params        pipeline.Params
	MeanTestScore float64
	StdTestScore  float64
	MeanFitTime   float64
	MeanScoreTime float64
}

// SearchResult is the outcome of a finished hyperparameter search.
type SearchResult struct {
	// Candidates holds every evaluated assignment in evaluation order.
	Candidates []Candidate

	// BestIndex points into Candidates; BestParams and BestScore repeat
	// the winner for direct access. BestScore is reported with the loss
	// sign restored, so it is directly comparable across scorers.
	BestIndex  int
	BestParams pipeline.Params
	BestScore  float64

	// BestPipeline is the winner refitted on the full data, when refitting
	// was requested.
	BestPipeline *pipeline.Pipeline

	// RefitTime is the wall time of the final refit in seconds.
	RefitTime float64
}

// SearchOptions configures a search run on top of the cross-validation
// options.
type SearchOptions struct {
	CVOptions

	// Refit fits the best assignment on the full data after the search.
	Refit bool

	// NIter is the number of sampled assignments for randomized search.
	NIter int

	// Seed drives randomized sampling.
	Seed int64
}

// GridSearch exhaustively evaluates the cartesian product of the space's
// value grids.
func GridSearch(p *pipeline.Pipeline, X, y *dataset.Table, space Space, opts SearchOptions) (*SearchResult, error) {
	for i := range space.Dimensions {
		if err := space.Dimensions[i].validate(true); err != nil {
			return nil, err
		}
	}
	if len(space.Dimensions) == 0 {
		return nil, errors.NewConfigurationError("search_params", "empty search space", space)
	}

	candidates := enumerateGrid(space.Dimensions)
	return runSearch(p, X, y, candidates, opts, "grid")
}

// RandomizedSearch samples NIter assignments from the space, drawing
// uniformly from value grids and uniformly (or log-uniformly) from bounded
// ranges.
func RandomizedSearch(p *pipeline.Pipeline, X, y *dataset.Table, space Space, opts SearchOptions) (*SearchResult, error) {
	for i := range space.Dimensions {
		if err := space.Dimensions[i].validate(false); err != nil {
			return nil, err
		}
	}
	if len(space.Dimensions) == 0 {
		return nil, errors.NewConfigurationError("search_params", "empty search space", space)
	}
	if opts.NIter < 1 {
		return nil, errors.NewConfigurationError("randomized_cv_n_iter", "must be at least 1", opts.NIter)
	}

	r := rand.New(rand.NewPCG(uint64(opts.Seed), uint64(opts.Seed)))
	candidates := make([]pipeline.Params, opts.NIter)
	for i := range candidates {
		assignment := make(map[*Dimension]interface{}, len(space.Dimensions))
		for d := range space.Dimensions {
			dim := &space.Dimensions[d]
			assignment[dim] = sampleDimension(dim, r)
		}
		candidates[i] = assemble(assignment)
	}
	return runSearch(p, X, y, candidates, opts, "randomized")
}

// runSearch evaluates every candidate with the shared cross-validation
// engine, picks the best finite mean test score, and optionally refits.
func runSearch(p *pipeline.Pipeline, X, y *dataset.Table, candidates []pipeline.Params, opts SearchOptions, strategy string) (*SearchResult, error) {
	if err := dataset.ValidateXY(X, y); err != nil {
		return nil, err
	}

	logger := log.Logger("modelselection.search")
	logger.Info().
		Str("strategy", strategy).
		Int("candidates", len(candidates)).
		Str(log.MetricKey, opts.Scoring.Name()).
		Msg("search started")

	result := &SearchResult{
		Candidates: make([]Candidate, len(candidates)),
		BestIndex:  -1,
	}
	best := math.Inf(-1)
	for i, params := range candidates {
		clone := p.Clone()
		if err := clone.Apply(params); err != nil {
			return nil, err
		}
		cvRes, err := CrossValidate(clone, X, y, opts.CVOptions)
		if err != nil {
			return nil, err
		}
		c := Candidate{
			Params:        params,
			MeanTestScore: cvRes.MeanTestScore(),
			StdTestScore:  cvRes.StdTestScore(),
			MeanFitTime:   mean(cvRes.FitTime),
			MeanScoreTime: mean(cvRes.ScoreTime),
		}
		result.Candidates[i] = c
		logger.Debug().
			Int("candidate", i).
			Float64("mean_test_score", c.MeanTestScore).
			Msg("candidate evaluated")
		if !math.IsNaN(c.MeanTestScore) && c.MeanTestScore > best {
			best = c.MeanTestScore
			result.BestIndex = i
		}
	}
	if result.BestIndex < 0 {
		return nil, errors.NewSearchStateError("best_index")
	}
	result.BestParams = result.Candidates[result.BestIndex].Params
	result.BestScore = opts.Scoring.RestoreSign(best)

	if opts.Refit {
		if err := refitBest(p, X, y, result, opts); err != nil {
			return nil, err
		}
	}
	logger.Info().
		Int("best_index", result.BestIndex).
		Float64("best_score", result.BestScore).
		Msg("search finished")
	return result, nil
}

// refitBest fits the winning assignment on the full data.
func refitBest(p *pipeline.Pipeline, X, y *dataset.Table, result *SearchResult, opts SearchOptions) error {
	ySliced, err := dataset.SliceTarget(y, opts.TargetIndex)
	if err != nil {
		return err
	}
	clone := p.Clone()
	if err := clone.Apply(result.BestParams); err != nil {
		return err
	}
	start := time.Now()
	if err := clone.Fit(X.Matrix(), ySliced.Matrix(), nil); err != nil {
		return err
	}
	result.RefitTime = time.Since(start).Seconds()
	result.BestPipeline = clone
	return nil
}

// WriteCSV exports the evaluated candidates as a results table with one row
// per candidate, parameter columns in sorted name order.
func (r *SearchResult) WriteCSV(w io.Writer) error {
	paramCols := map[string]bool{}
	for _, c := range r.Candidates {
		for name := range c.Params.Regressor {
			paramCols[name] = true
		}
		for target, sub := range c.Params.PerTarget {
			for name := range sub {
				paramCols[fmt.Sprintf("%s@%d", name, target)] = true
			}
		}
	}
	names := maps.Keys(paramCols)
	sort.Strings(names)

	cw := csv.NewWriter(w)
	header := append([]string{"rank", "mean_test_score", "std_test_score", "mean_fit_time"}, names...)
	if err := cw.Write(header); err != nil {
		return errors.Wrap(err, "search results export")
	}
	for i, c := range r.Candidates {
		row := []string{
			fmt.Sprintf("%d", i),
			fmt.Sprintf("%g", c.MeanTestScore),
			fmt.Sprintf("%g", c.StdTestScore),
			fmt.Sprintf("%g", c.MeanFitTime),
		}
		for _, name := range names {
			row = append(row, paramValue(c.Params, name))
		}
		if err := cw.Write(row); err != nil {
			return errors.Wrap(err, "search results export")
		}
	}
	cw.Flush()
	return errors.WithStack(cw.Error())
}

func paramValue(p pipeline.Params, col string) string {
	if name, suffix, found := strings.Cut(col, "@"); found {
		target, err := strconv.Atoi(suffix)
		if err == nil {
			if sub, ok := p.PerTarget[target]; ok {
				if v, ok := sub[name]; ok {
					return fmt.Sprintf("%v", v)
				}
			}
			return ""
		}
	}
	if v, ok := p.Regressor[col]; ok {
		return fmt.Sprintf("%v", v)
	}
	return ""
}

// enumerateGrid expands the cartesian product of every dimension's values.
func enumerateGrid(dims []Dimension) []pipeline.Params {
	total := 1
	for i := range dims {
		total *= len(dims[i].Values)
	}
	out := make([]pipeline.Params, 0, total)
	indices := make([]int, len(dims))
	for {
		assignment := make(map[*Dimension]interface{}, len(dims))
		for d := range dims {
			assignment[&dims[d]] = dims[d].Values[indices[d]]
		}
		out = append(out, assemble(assignment))

		// Odometer increment over the per-dimension indices.
		d := len(dims) - 1
		for d >= 0 {
			indices[d]++
			if indices[d] < len(dims[d].Values) {
				break
			}
			indices[d] = 0
			d--
		}
		if d < 0 {
			return out
		}
	}
}

// assemble groups a flat dimension assignment into the routed parameter tree.
func assemble(assignment map[*Dimension]interface{}) pipeline.Params {
	params := pipeline.Params{}
	for dim, value := range assignment {
		if dim.Target == dataset.NoTargetIndex {
			if params.Regressor == nil {
				params.Regressor = make(map[string]interface{})
			}
			params.Regressor[dim.Name] = value
			continue
		}
		if params.PerTarget == nil {
			params.PerTarget = make(map[int]map[string]interface{})
		}
		if params.PerTarget[dim.Target] == nil {
			params.PerTarget[dim.Target] = make(map[string]interface{})
		}
		params.PerTarget[dim.Target][dim.Name] = value
	}
	return params
}

func sampleDimension(d *Dimension, r *rand.Rand) interface{} {
	if len(d.Values) > 0 {
		return d.Values[r.IntN(len(d.Values))]
	}
	if d.Ints {
		lo, hi := int(d.Low), int(d.High)
		return lo + r.IntN(hi-lo+1)
	}
	if d.Log {
		lo, hi := math.Log(d.Low), math.Log(d.High)
		return math.Exp(lo + r.Float64()*(hi-lo))
	}
	return d.Low + r.Float64()*(d.High-d.Low)
}
