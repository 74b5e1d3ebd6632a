// Package step implements step addressing and plan summaries.
//
// A raw step number carries three meanings: -1 addresses the project
// overview, 0 addresses the tool list, and n >= 1 addresses the n-th
// ordered work step. Callers classify the number into a Target and branch
// on its Kind rather than indexing a step slice with the raw value.
package step

import (
	"fmt"
	"strconv"
)

// Reserved step numbers.
const (
	OverviewNumber = -1
	ToolListNumber = 0
)

// Kind identifies what a step number addresses.
type Kind int

const (
	KindOverview Kind = iota + 1
	KindToolList
	KindStep
)

func (k Kind) String() string {
	switch k {
	case KindOverview:
		return "overview"
	case KindToolList:
		return "tool_list"
	case KindStep:
		return "step"
	default:
		return "unknown"
	}
}

// MarshalText renders the kind for JSON payloads.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Target is a classified step number. Number is only meaningful for KindStep.
type Target struct {
	Kind   Kind `json:"kind"`
	Number int  `json:"number,omitempty"`
}

// OverviewTarget returns the overview target.
func OverviewTarget() Target { return Target{Kind: KindOverview} }

// ToolList returns the tool list target.
func ToolList() Target { return Target{Kind: KindToolList} }

// Step returns the target for the n-th work step.
func Step(n int) Target { return Target{Kind: KindStep, Number: n} }

// Classify maps a raw step number to its target.
func Classify(stepNumber int) (Target, error) {
	switch {
	case stepNumber == OverviewNumber:
		return OverviewTarget(), nil
	case stepNumber == ToolListNumber:
		return ToolList(), nil
	case stepNumber > 0:
		return Step(stepNumber), nil
	default:
		return Target{}, fmt.Errorf("%w: %d", ErrInvalidStepNumber, stepNumber)
	}
}

// StepNumber converts the target back to its raw number.
func (t Target) StepNumber() int {
	switch t.Kind {
	case KindOverview:
		return OverviewNumber
	case KindToolList:
		return ToolListNumber
	default:
		return t.Number
	}
}

func (t Target) String() string {
	if t.Kind == KindStep {
		return "step " + strconv.Itoa(t.Number)
	}
	return t.Kind.String()
}
