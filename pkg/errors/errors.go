// Package errors provides the error taxonomy used across regressio.
//
// Four kinds of failure exist in the façade: configuration errors (bad option
// values, raised at construction time), capability errors (a backend lacks a
// required capability), data-availability errors (validation routines were
// given nothing to validate), and search-state errors (a finished search did
// not expose required post-fit state). Numeric-domain problems are not errors
// at all: metrics undefined for their inputs degrade to NaN so that fold-level
// aggregation never aborts.
//
// Every constructor attaches a stack trace via cockroachdb/errors, and every
// type implements zerolog object marshaling for structured logging.
package errors

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
)

// ConfigurationError reports an invalid option value or type. It is raised
// when the option is set, never deferred to fit time.
type ConfigurationError struct {
	Param  string
	Reason string
	Value  interface{}
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("regressio: invalid configuration for %q: %s (got: %v)", e.Param, e.Reason, e.Value)
}

// MarshalZerologObject adds structured error information to a zerolog event.
func (e *ConfigurationError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("param", e.Param).
		Str("reason", e.Reason).
		Interface("value", e.Value).
		Str("type", "ConfigurationError")
}

// NewConfigurationError creates a ConfigurationError with a stack trace.
func NewConfigurationError(param, reason string, value interface{}) error {
	err := &ConfigurationError{Param: param, Reason: reason, Value: value}
	return errors.WithStack(err)
}

// CapabilityError reports that a backend regressor lacks a capability the
// caller relied on, for example sample-weight support. The backend is named
// in the message so the failure is attributable.
type CapabilityError struct {
	Backend    string
	Capability string
}

func (e *CapabilityError) Error() string {
	return fmt.Sprintf("regressio: %s does not support %s", e.Backend, e.Capability)
}

// MarshalZerologObject adds structured error information to a zerolog event.
func (e *CapabilityError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("backend", e.Backend).
		Str("capability", e.Capability).
		Str("type", "CapabilityError")
}

// NewCapabilityError creates a CapabilityError with a stack trace.
func NewCapabilityError(backend, capability string) error {
	err := &CapabilityError{Backend: backend, Capability: capability}
	return errors.WithStack(err)
}

// DataError reports that a validation routine received no data, or data whose
// representations are not row-aligned.
type DataError struct {
	Op     string
	Reason string
}

func (e *DataError) Error() string {
	return fmt.Sprintf("regressio: %s: %s", e.Op, e.Reason)
}

// MarshalZerologObject adds structured error information to a zerolog event.
func (e *DataError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("operation", e.Op).
		Str("reason", e.Reason).
		Str("type", "DataError")
}

// NewDataError creates a DataError with a stack trace.
func NewDataError(op, reason string) error {
	err := &DataError{Op: op, Reason: reason}
	return errors.WithStack(err)
}

// SearchStateError reports that a hyperparameter search completed without
// exposing a required post-fit attribute. A search must never return a
// partially populated result silently.
type SearchStateError struct {
	Attribute string
}

func (e *SearchStateError) Error() string {
	return fmt.Sprintf("regressio: search finished without setting required attribute %q", e.Attribute)
}

// MarshalZerologObject adds structured error information to a zerolog event.
func (e *SearchStateError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("attribute", e.Attribute).
		Str("type", "SearchStateError")
}

// NewSearchStateError creates a SearchStateError with a stack trace.
func NewSearchStateError(attribute string) error {
	err := &SearchStateError{Attribute: attribute}
	return errors.WithStack(err)
}

// NotFittedError reports a Predict or Transform call on an unfitted model.
type NotFittedError struct {
	ModelName string
	Method    string
}

func (e *NotFittedError) Error() string {
	return fmt.Sprintf("regressio: %s: this model is not fitted yet. Call Fit() before using %s()", e.ModelName, e.Method)
}

// MarshalZerologObject adds structured error information to a zerolog event.
func (e *NotFittedError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("model_name", e.ModelName).
		Str("method", e.Method).
		Str("type", "NotFittedError")
}

// NewNotFittedError creates a NotFittedError with a stack trace.
func NewNotFittedError(modelName, method string) error {
	err := &NotFittedError{ModelName: modelName, Method: method}
	return errors.WithStack(err)
}

// DimensionError reports a mismatch between expected and actual data
// dimensions.
type DimensionError struct {
	Op       string
	Expected int
	Got      int
	Axis     int // 0 for rows, 1 for columns/features
}

func (e *DimensionError) Error() string {
	axisName := "features"
	if e.Axis == 0 {
		axisName = "rows"
	}
	return fmt.Sprintf("regressio: %s: dimension mismatch on axis %d (%s). Expected %d, got %d", e.Op, e.Axis, axisName, e.Expected, e.Got)
}

// MarshalZerologObject adds structured error information to a zerolog event.
func (e *DimensionError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("operation", e.Op).
		Int("expected", e.Expected).
		Int("got", e.Got).
		Int("axis", e.Axis).
		Str("type", "DimensionError")
}

// NewDimensionError creates a DimensionError with a stack trace.
func NewDimensionError(op string, expected, got, axis int) error {
	err := &DimensionError{Op: op, Expected: expected, Got: got, Axis: axis}
	return errors.WithStack(err)
}

// Is reports whether err matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Wrap wraps an error with a message.
func Wrap(err error, message string) error {
	return errors.Wrap(err, message)
}

// Wrapf wraps an error with a formatted message.
func Wrapf(err error, format string, args ...interface{}) error {
	return errors.Wrapf(err, format, args...)
}

// New creates a new error with a stack trace.
func New(message string) error {
	return errors.New(message)
}

// Newf creates a new formatted error with a stack trace.
func Newf(format string, args ...interface{}) error {
	return errors.Newf(format, args...)
}

// WithStack annotates err with a stack trace.
func WithStack(err error) error {
	return errors.WithStack(err)
}

var (
	// ErrEmptyData is returned when an estimator receives empty data.
	ErrEmptyData = New("empty data")

	// ErrSingularMatrix is returned when a linear solve hits a singular system.
	ErrSingularMatrix = New("singular matrix")
)
