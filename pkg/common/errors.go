package common

import (
	"fmt"
	"math"
)

// ValidationError describes a malformed input record. Records failing
// validation are skipped; the error is surfaced as a report warning.
type ValidationError struct {
	Kind     string
	RecordID string
	Field    string
	Reason   string
}

func (e *ValidationError) Error() string {
	if e.RecordID == "" {
		return fmt.Sprintf("invalid %s: %s %s", e.Kind, e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid %s %q: %s %s", e.Kind, e.RecordID, e.Field, e.Reason)
}

// Clamp01 bounds v to [0,1]. NaN becomes 0.
func Clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
