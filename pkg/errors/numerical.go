package errors

import (
	"math"

	"github.com/cockroachdb/errors"
)

// CheckMatrix checks all values in a matrix for NaN or Inf and returns a
// NumericalError naming the offending block when one is found.
// Pass block = -1 when the matrix is not an X block.
func CheckMatrix(operation string, matrix interface{ At(int, int) float64 }, rows, cols, block int) error {
	var unstableValues []float64

	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			v := matrix.At(i, j)
			if math.IsNaN(v) || math.IsInf(v, 0) {
				unstableValues = append(unstableValues, v)
				if len(unstableValues) >= 10 {
					break
				}
			}
		}
		if len(unstableValues) >= 10 {
			break
		}
	}

	if len(unstableValues) > 0 {
		err := &NumericalError{
			Op:     operation,
			Reason: "input contains NaN or Inf",
			Block:  block,
			Values: unstableValues,
		}
		return errors.WithStack(err)
	}

	return nil
}

// CheckScalar checks a single scalar value for NaN or Inf.
func CheckScalar(operation string, value float64, component int) error {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		err := &NumericalError{
			Op:        operation,
			Reason:    "non-finite value",
			Block:     -1,
			Component: component,
			Values:    []float64{value},
		}
		return errors.WithStack(err)
	}
	return nil
}

// IsNearZero reports whether value is zero relative to reference.
// A non-positive reference falls back to an absolute comparison against tol.
func IsNearZero(value, reference, tol float64) bool {
	if reference <= 0 {
		return math.Abs(value) <= tol
	}
	return math.Abs(value) <= tol*reference
}
