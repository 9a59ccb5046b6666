package errors

import (
	"math"
)

// HessianFloor is the smallest second-order value any kernel reports for a
// row with non-zero weight.
const HessianFloor = 1e-16

// maxExp bounds exponent arguments so exp never overflows float64.
const maxExp = 700.0

// IsFinite reports whether v is neither NaN nor ±Inf.
func IsFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// CheckNumericalStability reports a NumericalInstabilityError if any value is
// NaN or ±Inf.
func CheckNumericalStability(operation string, values []float64, iteration int) error {
	for _, v := range values {
		if !IsFinite(v) {
			return NewNumericalInstabilityError(operation, values, iteration)
		}
	}
	return nil
}

// CheckPair reports a numeric error for a non-finite gradient pair at (row, target).
func CheckPair(operation string, grad, hess float64, row, target, iteration int) error {
	if IsFinite(grad) && IsFinite(hess) {
		return nil
	}
	return NewNumericError(operation, row, target, []float64{grad, hess}, iteration)
}

// ClampHessian raises h to HessianFloor.
func ClampHessian(h float64) float64 {
	if h < HessianFloor {
		return HessianFloor
	}
	return h
}

// ClipValue limits v to [lo, hi].
func ClipValue(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}

// StabilizeExp is exp with its argument limited to ±700, so the result is
// always finite.
func StabilizeExp(value float64) float64 {
	if value > maxExp {
		return math.Exp(maxExp)
	}
	if value < -maxExp {
		return 0
	}
	return math.Exp(value)
}

// LogSumExp is log Σ exp(v), shifted by the maximum. Empty input gives -Inf.
func LogSumExp(values []float64) float64 {
	if len(values) == 0 {
		return math.Inf(-1)
	}

	maxVal := values[0]
	for _, v := range values[1:] {
		if v > maxVal {
			maxVal = v
		}
	}
	if math.IsInf(maxVal, -1) {
		return math.Inf(-1)
	}

	sum := 0.0
	for _, v := range values {
		sum += math.Exp(v - maxVal)
	}
	return maxVal + math.Log(sum)
}
