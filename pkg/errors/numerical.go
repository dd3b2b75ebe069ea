package errors

import (
	"math"
)

// CheckNumericalStability checks whether values contain NaN or Inf and
// returns a NumericalInstabilityError if so. Contribution outputs can go
// non-finite when a tree carries zero-hessian internal nodes; callers
// that want to reject such output run it through this check.
func CheckNumericalStability(operation string, values []float64, row int) error {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return NewNumericalInstabilityError(operation, values, row)
		}
	}
	return nil
}

// CheckScalar checks a single value for numerical instability.
func CheckScalar(operation string, value float64, row int) error {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return NewNumericalInstabilityError(operation, []float64{value}, row)
	}
	return nil
}

// CheckContributions checks one row of a contribution matrix, collecting
// the non-finite entries for the error message.
func CheckContributions(operation string, contribs []float32, row int) error {
	var unstable []float64
	for _, v := range contribs {
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			unstable = append(unstable, f)
			if len(unstable) >= 10 {
				// Limit the number of collected values for the message.
				break
			}
		}
	}
	if len(unstable) > 0 {
		return NewNumericalInstabilityError(operation, unstable, row)
	}
	return nil
}
