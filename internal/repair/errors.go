package repair

import (
	"errors"
	"fmt"
	"strings"

	"subconform/internal/fixes"
)

var (
	// ErrStaleFix reports that the cue no longer has any issue the fix targets.
	ErrStaleFix = errors.New("fix is stale")
	// ErrInapplicable reports that re-validation rejected the fix.
	ErrInapplicable = errors.New("fix is not applicable")
	// ErrOutOfRange reports timing that would break cue ordering.
	ErrOutOfRange = errors.New("timing out of range")
	// ErrNoSuchAlternative reports a gender form that was not generated.
	ErrNoSuchAlternative = errors.New("no such gender alternative")
	// ErrCueNotFound reports an unknown cue index.
	ErrCueNotFound = errors.New("cue not found")
)

// FixError carries the detail needed to explain a rejected fix. It unwraps
// to one of the package sentinels.
type FixError struct {
	CueIndex   int
	FixType    fixes.FixType
	Constraint string
	Value      *float64
	Threshold  *float64
	Reason     string
	Err        error
}

func (e *FixError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "cue %d", e.CueIndex)
	if e.FixType != "" {
		fmt.Fprintf(&b, ": %s", e.FixType)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	if e.Reason != "" {
		fmt.Fprintf(&b, ": %s", e.Reason)
	}
	if e.Constraint != "" && e.Value != nil && e.Threshold != nil {
		fmt.Fprintf(&b, " (%s %g vs %g)", e.Constraint, *e.Value, *e.Threshold)
	}
	return b.String()
}

func (e *FixError) Unwrap() error {
	return e.Err
}
