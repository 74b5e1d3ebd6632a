package step_test

import (
	"encoding/json"
	"testing"

	"github.com/rpggio/diyassist/internal/domain/step"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		in   int
		want step.Target
	}{
		{in: -1, want: step.OverviewTarget()},
		{in: 0, want: step.ToolList()},
		{in: 1, want: step.Step(1)},
		{in: 5, want: step.Step(5)},
	}
	for _, tt := range tests {
		got, err := step.Classify(tt.in)
		require.NoError(t, err)
		require.Equal(t, tt.want, got)
		require.Equal(t, tt.in, got.StepNumber())
	}
}

func TestClassify_Invalid(t *testing.T) {
	for _, n := range []int{-2, -100} {
		_, err := step.Classify(n)
		require.ErrorIs(t, err, step.ErrInvalidStepNumber)
	}
}

func TestTarget_JSON(t *testing.T) {
	data, err := json.Marshal(step.Step(3))
	require.NoError(t, err)
	require.JSONEq(t, `{"kind":"step","number":3}`, string(data))

	data, err = json.Marshal(step.OverviewTarget())
	require.NoError(t, err)
	require.JSONEq(t, `{"kind":"overview"}`, string(data))
}
