package regression

import "fmt"

// ValidationError marks bad calibration or training input. It is reported to
// the caller and never retried.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

func validationErrorf(format string, args ...any) *ValidationError {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// ModelInferenceError marks malformed or unsupported trained-model
// parameters. Evaluation falls back to a "no model" state instead of
// crashing the dashboard.
type ModelInferenceError struct {
	Kind   string
	Reason string
}

func (e *ModelInferenceError) Error() string {
	return fmt.Sprintf("model inference (%s): %s", e.Kind, e.Reason)
}
