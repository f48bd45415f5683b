// Package log provides structured logging for regressio workflows.
//
// The package wraps rs/zerolog with a small, estimator-oriented surface.
// Verbosity follows the façade's integer convention: 0 logs warnings only,
// 1 adds informational progress (fold and candidate completion), 2 and above
// enables debug output.
package log

import (
	"io"
	"os"
	"sync"

	"github.com/rs/zerolog"
)

// Attribute keys shared by all regressio log events.
const (
	EstimatorKey = "estimator"
	OperationKey = "operation"
	SamplesKey   = "samples"
	FeaturesKey  = "features"
	TargetsKey   = "targets"
	FoldsKey     = "folds"
	MetricKey    = "metric"
	DurationKey  = "duration"
)

var (
	mu     sync.RWMutex
	root   = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger().Level(zerolog.WarnLevel)
	output io.Writer
)

// SetOutput redirects all regressio logging to w. Tests use this to capture
// or silence output.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
	root = zerolog.New(w).With().Timestamp().Logger().Level(root.GetLevel())
}

// SetVerbosity maps the façade's verbose option onto zerolog levels.
func SetVerbosity(verbose int) {
	mu.Lock()
	defer mu.Unlock()
	root = root.Level(LevelFor(verbose))
}

// LevelFor converts a nonnegative verbosity integer to a zerolog level.
func LevelFor(verbose int) zerolog.Level {
	switch {
	case verbose <= 0:
		return zerolog.WarnLevel
	case verbose == 1:
		return zerolog.InfoLevel
	default:
		return zerolog.DebugLevel
	}
}

// Logger returns a named sub-logger for a component, e.g. "modelselection.cv".
func Logger(name string) zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return root.With().Str("component", name).Logger()
}
