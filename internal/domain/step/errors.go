package step

import "errors"

var (
	// ErrInvalidStepNumber indicates a step number below -1.
	ErrInvalidStepNumber = errors.New("invalid step number")
	// ErrStepNotFound indicates a step number beyond the project's plan.
	ErrStepNotFound = errors.New("step not found")
	// ErrInvalidInput indicates an invalid step plan.
	ErrInvalidInput = errors.New("invalid step input")
)
