package waves

import "fmt"

// ConfigurationError indicates that a wave or model was constructed with
// inconsistent parameters, such as a non-unit propagation direction or a
// propagation limit on the wrong side of the origin. These are caught at
// construction time and are always programming or configuration defects.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "invalid configuration: " + e.Reason
}

func configErrorf(format string, v ...any) error {
	return &ConfigurationError{Reason: fmt.Sprintf(format, v...)}
}

// StateError indicates an operation on a relationship that does not
// exist, such as removing an attenuator that was never added. Like
// ConfigurationError it marks a logic defect, never a transient
// condition; callers inside the model log it and carry on with degraded
// visuals rather than crashing.
type StateError struct {
	Op     string
	Reason string
}

func (e *StateError) Error() string {
	return e.Op + ": " + e.Reason
}

func stateErrorf(op, format string, v ...any) error {
	return &StateError{Op: op, Reason: fmt.Sprintf(format, v...)}
}
