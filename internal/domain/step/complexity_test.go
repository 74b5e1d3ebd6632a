package step_test

import (
	"testing"

	"github.com/rpggio/diyassist/internal/domain/step"
	"github.com/stretchr/testify/require"
)

func TestAssessComplexity(t *testing.T) {
	tests := []struct {
		minutes int
		steps   int
		want    step.Complexity
	}{
		{minutes: 60, steps: 3, want: step.ComplexityEasy},
		{minutes: 0, steps: 0, want: step.ComplexityEasy},
		{minutes: 61, steps: 3, want: step.ComplexityModerate},
		{minutes: 180, steps: 5, want: step.ComplexityModerate},
		{minutes: 181, steps: 2, want: step.ComplexityChallenging},
		{minutes: 360, steps: 8, want: step.ComplexityChallenging},
		{minutes: 60, steps: 10, want: step.ComplexityComplex},
		{minutes: 50, steps: 10, want: step.ComplexityComplex},
		{minutes: 400, steps: 1, want: step.ComplexityComplex},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, step.AssessComplexity(tt.minutes, tt.steps), "minutes=%d steps=%d", tt.minutes, tt.steps)
	}
}
