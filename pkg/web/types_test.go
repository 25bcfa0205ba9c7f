package web_test

import (
	"errors"
	"testing"

	"github.com/dukex/pcp/pkg/models"
	"github.com/dukex/pcp/pkg/web"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func failedFields(t *testing.T, err error) []string {
	t.Helper()

	var validationErrors validator.ValidationErrors
	require.True(t, errors.As(err, &validationErrors), "expected validation errors, got %v", err)

	fields := make([]string, 0, len(validationErrors))
	for _, fe := range validationErrors {
		fields = append(fields, fe.Field())
	}

	return fields
}

func TestRequestValidation(t *testing.T) {
	t.Parallel()

	v := models.NewValidator()
	name := ""
	badEnforcement := models.EnforcementType("replace")

	tests := []struct {
		name      string
		request   any
		errFields []string
	}{
		{
			name:    "valid team",
			request: web.CreateTeamRequest{Name: "Engineering", Slug: "eng-platform"},
		},
		{
			name:      "team with bad slug",
			request:   web.CreateTeamRequest{Name: "Engineering", Slug: "Eng"},
			errFields: []string{"Slug"},
		},
		{
			name:      "team update with empty name",
			request:   web.UpdateTeamRequest{Name: &name},
			errFields: []string{"Name"},
		},
		{
			name:    "valid user",
			request: web.CreateUserRequest{TeamID: "t1", Username: "ada_l", Email: "ada@example.com"},
		},
		{
			name:      "user with unknown role and bad email",
			request:   web.CreateUserRequest{TeamID: "t1", Username: "ada", Email: "nope", Role: "owner"},
			errFields: []string{"Email", "Role"},
		},
		{
			name:      "member with unknown project role",
			request:   web.SetMemberRequest{Role: "owner"},
			errFields: []string{"Role"},
		},
		{
			name: "valid policy",
			request: web.CreatePolicyRequest{
				TeamID: "t1", Name: "Concise", EnforcementType: models.EnforcementPrepend, Content: "Be concise",
			},
		},
		{
			name:      "policy without content",
			request:   web.CreatePolicyRequest{TeamID: "t1", Name: "Concise", EnforcementType: models.EnforcementAppend},
			errFields: []string{"Content"},
		},
		{
			name:      "policy update with unknown enforcement",
			request:   web.UpdatePolicyRequest{EnforcementType: &badEnforcement},
			errFields: []string{"EnforcementType"},
		},
		{
			name:      "objective with unknown status",
			request:   web.CreateObjectiveRequest{TeamID: "t1", Title: "Ship", Status: "paused"},
			errFields: []string{"Status"},
		},
		{
			name: "valid prompt",
			request: web.CreatePromptRequest{
				Name:    "code-review",
				Version: web.VersionRequest{Version: "1.0.0", UserTemplate: "Review {{ input }}"},
			},
		},
		{
			name:      "prompt without template",
			request:   web.CreatePromptRequest{Name: "code-review", Version: web.VersionRequest{Version: "1.0.0"}},
			errFields: []string{"UserTemplate"},
		},
		{
			name: "workflow step without prompt",
			request: web.CreateWorkflowRequest{
				Name:  "Pipeline",
				Steps: []web.StepRequest{{ID: "s1"}},
			},
			errFields: []string{"PromptName"},
		},
		{
			name:      "share without user",
			request:   web.ShareRequest{},
			errFields: []string{"UserID"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := v.Struct(tt.request)
			if len(tt.errFields) == 0 {
				assert.NoError(t, err)

				return
			}

			assert.ElementsMatch(t, tt.errFields, failedFields(t, err))
		})
	}
}
