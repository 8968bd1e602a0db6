package timingattack

import "errors"

// Errors that can be returned by the attack.
var (
	// ErrInvalidArgument is returned when a length bound is not positive.
	ErrInvalidArgument = errors.New("timingattack: invalid argument")

	// ErrInvalidConfig is returned when the measurement or search configuration is invalid.
	ErrInvalidConfig = errors.New("timingattack: invalid configuration")

	// ErrBudgetExceeded is returned when the refiner exhausts its iteration or time budget
	// before the oracle accepted a candidate.
	ErrBudgetExceeded = errors.New("timingattack: search budget exceeded")

	// ErrOracle wraps failures reported by the oracle during a check.
	ErrOracle = errors.New("timingattack: oracle check failed")
)
