package models

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTeam_Validation(t *testing.T) {
	validate := NewValidator()

	valid := &Team{Name: "Engineering", Slug: "eng"}
	require.NoError(t, validate.Struct(valid))

	invalid := &Team{Name: "Engineering", Slug: "Eng Team"}
	err := validate.Struct(invalid)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Slug")
}

func TestUser_Validation(t *testing.T) {
	validate := NewValidator()

	require.NoError(t, validate.Struct(&User{TeamID: "t1", Username: "ada_l"}))
	assert.Error(t, validate.Struct(&User{TeamID: "t1", Username: "Ada"}))
	assert.Error(t, validate.Struct(&User{Username: "ada"}))
}

func TestPolicy_Validation(t *testing.T) {
	validate := NewValidator()

	policy := &Policy{Name: "Concise", EnforcementType: EnforcementPrepend, Content: "Be concise", TeamID: "t1"}
	require.NoError(t, validate.Struct(policy))

	policy.EnforcementType = "replace"
	assert.Error(t, validate.Struct(policy))
	assert.False(t, policy.EnforcementType.Valid())
}

func TestPolicy_Scope(t *testing.T) {
	assert.Equal(t, TeamScope("t1"), (&Policy{TeamID: "t1"}).Scope())
	assert.Equal(t, ProjectScope("p1"), (&Policy{ProjectID: "p1"}).Scope())
}

func TestObjective_Scope(t *testing.T) {
	assert.Equal(t, TeamScope("t1"), (&Objective{TeamID: "t1"}).Scope())
	assert.Equal(t, ProjectScope("p1"), (&Objective{ProjectID: "p1"}).Scope())
	assert.Equal(t, UserScope("u1"), (&Objective{UserID: "u1"}).Scope())
}

func TestSortPolicies(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	policies := []*Policy{
		{ID: "c", Priority: 2, CreatedAt: base},
		{ID: "b", Priority: 1, CreatedAt: base.Add(time.Minute)},
		{ID: "a", Priority: 1, CreatedAt: base},
	}

	SortPolicies(policies)

	assert.Equal(t, "a", policies[0].ID)
	assert.Equal(t, "b", policies[1].ID)
	assert.Equal(t, "c", policies[2].ID)
}

func TestSortPolicies_ExtremePriorities(t *testing.T) {
	policies := []*Policy{
		{ID: "max", Priority: math.MaxInt},
		{ID: "one", Priority: 1},
		{ID: "min", Priority: math.MinInt},
	}

	SortPolicies(policies)

	assert.Equal(t, []string{"min", "one", "max"}, []string{policies[0].ID, policies[1].ID, policies[2].ID})
}

func TestResolveVersion(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	v1 := &PromptVersion{ID: "01", Version: "1.0.0", CreatedAt: base}
	v2 := &PromptVersion{ID: "02", Version: "2.0.0", CreatedAt: base.Add(time.Hour)}
	versions := []*PromptVersion{v1, v2}

	t.Run("newest when unpinned", func(t *testing.T) {
		assert.Same(t, v2, ResolveVersion(&Prompt{}, versions, ""))
	})

	t.Run("pinned wins over newest", func(t *testing.T) {
		assert.Same(t, v1, ResolveVersion(&Prompt{ActiveVersionID: "01"}, versions, ""))
	})

	t.Run("explicit label", func(t *testing.T) {
		assert.Same(t, v1, ResolveVersion(&Prompt{ActiveVersionID: "02"}, versions, "1.0.0"))
		assert.Nil(t, ResolveVersion(&Prompt{}, versions, "9.9.9"))
	})

	t.Run("no versions", func(t *testing.T) {
		assert.Nil(t, ResolveVersion(&Prompt{}, nil, ""))
	})
}

func TestJSONSchema_FieldNames(t *testing.T) {
	var schema *JSONSchema
	assert.Equal(t, []string{FreeTextField}, schema.FieldNames())

	schema = &JSONSchema{Type: "object", Properties: map[string]*Property{"topic": {Type: "string"}}}
	assert.Equal(t, []string{"topic"}, schema.FieldNames())
}

func TestWorkflowStep_Key(t *testing.T) {
	assert.Equal(t, "summary", WorkflowStep{ID: "s1", OutputKey: "summary"}.Key())
	assert.Equal(t, "s1", WorkflowStep{ID: "s1"}.Key())
}
