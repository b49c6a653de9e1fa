package record

import "fmt"

// Status is the processing state of a record.
type Status string

const (
	// StatusProcessing is the initial state assigned at creation.
	StatusProcessing Status = "Processing"

	// StatusCompleted is terminal; the record carries derived artifacts.
	StatusCompleted Status = "Completed"

	// StatusFailed is terminal; the compute step failed and no artifacts exist.
	StatusFailed Status = "Failed"
)

// ParseStatus converts a wire value to a Status.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusProcessing, StatusCompleted, StatusFailed:
		return Status(s), nil
	default:
		return "", fmt.Errorf("unknown status %q", s)
	}
}

func (s Status) String() string {
	return string(s)
}

// IsTerminal reports whether no further transition is possible from s.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// CanTransition reports whether moving from one status to another is legal.
// Staying in Processing is allowed; every other self-transition is not.
func CanTransition(from, to Status) bool {
	switch from {
	case StatusProcessing:
		return to == StatusProcessing || to == StatusCompleted || to == StatusFailed
	default:
		return false
	}
}
