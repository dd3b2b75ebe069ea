// Package errors provides error handling and the warning system for the
// regtree module. It is a thin layer over cockroachdb/errors that adds
// structured, domain-specific error types with zerolog marshalling.
package errors

import (
	"fmt"
	"log"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
)

// ===========================================================================
//
//	Global warning handling
//
// ===========================================================================
var (
	warningMutex   sync.Mutex
	warningHandler = func(w error) {
		// Default handler logs to standard error.
		log.Printf("regtree-Warning: %v\n", w)
	}
	// zerolog warn func, set lazily to avoid an import cycle with pkg/log.
	zerologWarnFunc func(warning error)
)

// SetWarningHandler sets the warning handler for the whole module.
// It controls how non-fatal conditions such as degenerate hessian
// statistics are reported.
//
// Example:
//
//	errors.SetWarningHandler(func(w error) {
//	    // ignore warnings
//	})
func SetWarningHandler(handler func(w error)) {
	warningMutex.Lock()
	defer warningMutex.Unlock()
	warningHandler = handler
}

// SetZerologWarnFunc installs a zerolog-backed warning sink.
func SetZerologWarnFunc(warnFunc func(warning error)) {
	warningMutex.Lock()
	defer warningMutex.Unlock()
	zerologWarnFunc = warnFunc
}

// Warn emits a warning. When a zerolog sink is installed it takes
// precedence over the plain handler.
func Warn(w error) {
	warningMutex.Lock()
	defer warningMutex.Unlock()

	if zerologWarnFunc != nil {
		zerologWarnFunc(w)
		return
	}

	if warningHandler != nil {
		warningHandler(w)
	}
}

// ===========================================================================
//
//	Structured error types
//
// ===========================================================================

// InvalidModelError reports a tree whose serialized bytes violate a
// structural invariant. Loading stops at the first violation and the
// target tree is left unusable; there is no partial-state recovery.
type InvalidModelError struct {
	Op     string
	Reason string
}

func (e *InvalidModelError) Error() string {
	return fmt.Sprintf("regtree: %s: invalid model: %s", e.Op, e.Reason)
}

// MarshalZerologObject adds structured error information to a zerolog event.
func (e *InvalidModelError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("operation", e.Op).
		Str("reason", e.Reason).
		Str("type", "InvalidModelError")
}

// NewInvalidModelError creates an InvalidModelError with a stack trace.
func NewInvalidModelError(op, format string, args ...interface{}) error {
	err := &InvalidModelError{Op: op, Reason: fmt.Sprintf(format, args...)}
	return errors.WithStack(err)
}

// DimensionError reports an input whose shape does not match the tree.
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
	return fmt.Sprintf("regtree: %s: dimension mismatch on axis %d (%s). Expected %d, got %d", e.Op, e.Axis, axisName, e.Expected, e.Got)
}

// MarshalZerologObject adds structured error information to a zerolog event.
func (e *DimensionError) MarshalZerologObject(event *zerolog.Event) {
	axisName := "features"
	if e.Axis == 0 {
		axisName = "rows"
	}
	event.Str("operation", e.Op).
		Int("expected", e.Expected).
		Int("got", e.Got).
		Int("axis", e.Axis).
		Str("axis_name", axisName).
		Str("type", "DimensionError")
}

// NewDimensionError creates a DimensionError with a stack trace.
func NewDimensionError(op string, expected, got, axis int) error {
	err := &DimensionError{Op: op, Expected: expected, Got: got, Axis: axis}
	return errors.WithStack(err)
}

// NumericalInstabilityError reports NaN or Inf values produced by a
// floating-point computation, for example the permutation-weight
// recurrence on a tree with zero-hessian splits.
type NumericalInstabilityError struct {
	Operation string
	Values    []float64
	Row       int
}

func (e *NumericalInstabilityError) Error() string {
	valStr := ""
	for i, v := range e.Values {
		if i > 0 {
			valStr += ", "
		}
		if i >= 5 {
			valStr += "..."
			break
		}
		valStr += fmt.Sprintf("%.6g", v)
	}
	return fmt.Sprintf("regtree: numerical instability detected in %s at row %d. Values: [%s]",
		e.Operation, e.Row, valStr)
}

// MarshalZerologObject adds structured error information to a zerolog event.
func (e *NumericalInstabilityError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("operation", e.Operation).
		Int("row", e.Row).
		Floats64("values", e.Values).
		Str("type", "NumericalInstabilityError")
}

// NewNumericalInstabilityError creates a NumericalInstabilityError with a
// stack trace.
func NewNumericalInstabilityError(operation string, values []float64, row int) error {
	err := &NumericalInstabilityError{
		Operation: operation,
		Values:    values,
		Row:       row,
	}
	return errors.WithStack(err)
}

// DegenerateSplitWarning is emitted when an internal node carries a zero
// hessian weight. Contribution fractions derived from such a node divide
// by zero and propagate NaN into the attribution output.
type DegenerateSplitWarning struct {
	NodeID  int
	SumHess float64
}

func (w *DegenerateSplitWarning) Error() string {
	return fmt.Sprintf("internal node %d has sum_hess=%g; contribution fractions through it are undefined", w.NodeID, w.SumHess)
}

// MarshalZerologObject adds structured warning information to a zerolog event.
func (w *DegenerateSplitWarning) MarshalZerologObject(e *zerolog.Event) {
	e.Int("node_id", w.NodeID).
		Float64("sum_hess", w.SumHess).
		Str("type", "DegenerateSplitWarning")
}

// NewDegenerateSplitWarning creates a new DegenerateSplitWarning.
func NewDegenerateSplitWarning(nodeID int, sumHess float64) *DegenerateSplitWarning {
	return &DegenerateSplitWarning{NodeID: nodeID, SumHess: sumHess}
}

// ===========================================================================
//
//	cockroachdb/errors passthroughs
//
// ===========================================================================

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

// New creates a new error.
func New(message string) error {
	return errors.New(message)
}

// Newf creates a new formatted error.
func Newf(format string, args ...interface{}) error {
	return errors.Newf(format, args...)
}

// WithStack annotates an error with a stack trace.
func WithStack(err error) error {
	return errors.WithStack(err)
}

// AssertionFailedf creates an internal invariant-violation error. The
// tree package panics with these for conditions that indicate a corrupted
// arena rather than bad input.
func AssertionFailedf(format string, args ...interface{}) error {
	return errors.AssertionFailedf(format, args...)
}
