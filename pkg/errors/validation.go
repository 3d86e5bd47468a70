package errors

import "math"

// ValidatePositive rejects values that are not finite and strictly positive.
// name is used verbatim in the message, e.g. "plunge feedrate".
func ValidatePositive(name string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return New(ErrCodeInvalidConfig, "%s must be a finite number, got %g", name, v)
	}
	if v <= 0 {
		return New(ErrCodeInvalidConfig, "%s must be > 0, got %g", name, v)
	}
	return nil
}

// ValidateFinite rejects NaN and infinities. Zero and negative values pass.
func ValidateFinite(name string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return New(ErrCodeInvalidConfig, "%s must be a finite number, got %g", name, v)
	}
	return nil
}

// ValidateOneOf rejects values outside the allowed set.
func ValidateOneOf(name, v string, allowed ...string) error {
	for _, a := range allowed {
		if v == a {
			return nil
		}
	}
	return New(ErrCodeInvalidConfig, "invalid %s: %q (must be one of: %v)", name, v, allowed)
}
