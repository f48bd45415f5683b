package model

// FitState tracks whether an estimator has been fitted.
type FitState int

const (
	// NotFitted is the state before a successful Fit call.
	NotFitted FitState = iota
	// Fitted is the state after a successful Fit call.
	Fitted
)

// ValidationState tracks whether input data has passed validation. The state
// is explicit rather than inferred from attribute presence, so repeated entry
// points can skip re-validation without duck typing.
type ValidationState int

const (
	// Unvalidated means the data representations have not been checked yet.
	Unvalidated ValidationState = iota
	// Validated means the data representations passed validation.
	Validated
)

// StateTracker is embedded by estimators and the façade to carry fit and
// validation state with explicit transitions.
type StateTracker struct {
	Fit        FitState
	Validation ValidationState
}

// IsFitted reports whether the estimator has been fitted.
func (s *StateTracker) IsFitted() bool { return s.Fit == Fitted }

// SetFitted transitions the estimator to the fitted state.
func (s *StateTracker) SetFitted() { s.Fit = Fitted }

// IsValidated reports whether input data has been validated.
func (s *StateTracker) IsValidated() bool { return s.Validation == Validated }

// SetValidated transitions the tracker to the validated state.
func (s *StateTracker) SetValidated() { s.Validation = Validated }

// Reset returns the tracker to its initial state.
func (s *StateTracker) Reset() {
	s.Fit = NotFitted
	s.Validation = Unvalidated
}
