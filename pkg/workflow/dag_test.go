package workflow

import (
	"testing"

	"github.com/dukex/pcp/pkg/errdefs"
	"github.com/dukex/pcp/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func step(id string, deps ...string) models.WorkflowStep {
	return models.WorkflowStep{ID: id, PromptName: "p-" + id, DependsOn: deps}
}

func TestNewPlan_Order(t *testing.T) {
	tests := []struct {
		name  string
		steps []models.WorkflowStep
		want  []string
	}{
		{name: "empty", steps: nil, want: []string{}},
		{name: "independent keep array order", steps: []models.WorkflowStep{step("c"), step("a"), step("b")}, want: []string{"c", "a", "b"}},
		{name: "dependency declared later", steps: []models.WorkflowStep{step("s2", "s1"), step("s1")}, want: []string{"s1", "s2"}},
		{
			name:  "diamond",
			steps: []models.WorkflowStep{step("d", "b", "c"), step("b", "a"), step("c", "a"), step("a")},
			want:  []string{"a", "b", "c", "d"},
		},
		{
			name:  "ready step taken by original index",
			steps: []models.WorkflowStep{step("x", "a"), step("a"), step("y")},
			want:  []string{"a", "x", "y"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan, err := NewPlan("wf", tt.steps)
			require.NoError(t, err)
			assert.Equal(t, tt.want, plan.Order())
		})
	}
}

func TestNewPlan_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		steps  []models.WorkflowStep
		reason string
	}{
		{name: "unknown dependency", steps: []models.WorkflowStep{step("s1", "ghost")}, reason: "unknown step"},
		{name: "duplicate id", steps: []models.WorkflowStep{step("s1"), step("s1")}, reason: "duplicate"},
		{name: "missing id", steps: []models.WorkflowStep{{PromptName: "p"}}, reason: "no id"},
		{name: "missing prompt", steps: []models.WorkflowStep{{ID: "s1"}}, reason: "no prompt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate("wf", tt.steps)
			require.Error(t, err)
			assert.True(t, errdefs.IsInvalidWorkflow(err))
			assert.Contains(t, err.Error(), tt.reason)
		})
	}
}

func TestNewPlan_Cycle(t *testing.T) {
	_, err := NewPlan("wf", []models.WorkflowStep{step("a", "b"), step("b", "a"), step("c")})
	require.Error(t, err)
	assert.True(t, errdefs.IsCycleDetected(err))

	var cycle *errdefs.CycleError
	require.ErrorAs(t, err, &cycle)
	assert.Equal(t, []string{"a", "b", "a"}, cycle.Path)

	_, err = NewPlan("wf", []models.WorkflowStep{step("a", "a")})
	require.ErrorAs(t, err, &cycle)
	assert.Equal(t, []string{"a", "a"}, cycle.Path)

	_, err = NewPlan("wf", []models.WorkflowStep{step("a"), step("b", "a", "d"), step("c", "b"), step("d", "c")})
	require.ErrorAs(t, err, &cycle)
	assert.Equal(t, []string{"b", "d", "c", "b"}, cycle.Path)
}
