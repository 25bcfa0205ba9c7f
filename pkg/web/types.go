package web

import (
	"github.com/dukex/pcp/pkg/models"
)

type CreateTeamRequest struct {
	Name         string `json:"name"                     validate:"required,min=1,max=255"`
	Slug         string `json:"slug"                     validate:"required,slug"`
	Description  string `json:"description"`
	ParentTeamID string `json:"parent_team_id,omitempty"`
}

// UpdateTeamRequest is a partial update. An empty parent_team_id makes the team a root.
type UpdateTeamRequest struct {
	Name         *string `json:"name,omitempty"           validate:"omitempty,min=1,max=255"`
	Slug         *string `json:"slug,omitempty"           validate:"omitempty,slug"`
	Description  *string `json:"description,omitempty"`
	ParentTeamID *string `json:"parent_team_id,omitempty"`
}

type CreateUserRequest struct {
	ID          string      `json:"id,omitempty"`
	TeamID      string      `json:"team_id"                validate:"required"`
	Username    string      `json:"username"               validate:"required,username"`
	DisplayName string      `json:"display_name"`
	Email       string      `json:"email"                  validate:"omitempty,email"`
	Role        models.Role `json:"role"                   validate:"omitempty,oneof=admin member viewer"`
}

type CreateProjectRequest struct {
	TeamID      string `json:"team_id"     validate:"required"`
	Name        string `json:"name"        validate:"required,min=1,max=255"`
	Slug        string `json:"slug"        validate:"required,slug"`
	Description string `json:"description"`
	LeadID      string `json:"lead_id,omitempty"`
}

type SetMemberRequest struct {
	Role models.ProjectRole `json:"role" validate:"required,oneof=lead member"`
}

// CreatePolicyRequest needs exactly one of team_id or project_id. Active defaults to true.
type CreatePolicyRequest struct {
	TeamID          string                 `json:"team_id,omitempty"`
	ProjectID       string                 `json:"project_id,omitempty"`
	Name            string                 `json:"name"             validate:"required,min=1,max=255"`
	Description     string                 `json:"description"`
	EnforcementType models.EnforcementType `json:"enforcement_type" validate:"required,oneof=prepend append inject validate"`
	Content         string                 `json:"content"          validate:"required"`
	Priority        int                    `json:"priority"`
	Active          *bool                  `json:"active,omitempty"`
}

type UpdatePolicyRequest struct {
	Name            *string                 `json:"name,omitempty"             validate:"omitempty,min=1,max=255"`
	Description     *string                 `json:"description,omitempty"`
	EnforcementType *models.EnforcementType `json:"enforcement_type,omitempty" validate:"omitempty,oneof=prepend append inject validate"`
	Content         *string                 `json:"content,omitempty"          validate:"omitempty,min=1"`
	Priority        *int                    `json:"priority,omitempty"`
	Active          *bool                   `json:"active,omitempty"`
}

// CreateObjectiveRequest needs exactly one of team_id, project_id or user_id.
type CreateObjectiveRequest struct {
	TeamID            string                 `json:"team_id,omitempty"`
	ProjectID         string                 `json:"project_id,omitempty"`
	UserID            string                 `json:"user_id,omitempty"`
	Title             string                 `json:"title"                         validate:"required,min=1,max=255"`
	Description       string                 `json:"description"`
	ParentObjectiveID string                 `json:"parent_objective_id,omitempty"`
	Status            models.ObjectiveStatus `json:"status,omitempty"              validate:"omitempty,oneof=active completed archived"`
}

type UpdateObjectiveRequest struct {
	Title             *string                 `json:"title,omitempty"               validate:"omitempty,min=1,max=255"`
	Description       *string                 `json:"description,omitempty"`
	Status            *models.ObjectiveStatus `json:"status,omitempty"              validate:"omitempty,oneof=active completed archived"`
	ParentObjectiveID *string                 `json:"parent_objective_id,omitempty"`
}

type VersionRequest struct {
	Version        string             `json:"version"         validate:"required,max=64"`
	SystemTemplate string             `json:"system_template"`
	UserTemplate   string             `json:"user_template"   validate:"required"`
	InputSchema    *models.JSONSchema `json:"input_schema,omitempty"`
	Tags           []string           `json:"tags"`
}

func (r VersionRequest) model() *models.PromptVersion {
	tags := r.Tags
	if tags == nil {
		tags = []string{}
	}

	return &models.PromptVersion{
		Version:        r.Version,
		SystemTemplate: r.SystemTemplate,
		UserTemplate:   r.UserTemplate,
		InputSchema:    r.InputSchema,
		Tags:           tags,
	}
}

type CreatePromptRequest struct {
	Name        string         `json:"name"        validate:"required,promptname"`
	Description string         `json:"description"`
	Version     VersionRequest `json:"version"`
}

type ExpandRequest struct {
	ProjectID string         `json:"project_id,omitempty"`
	Input     map[string]any `json:"input"`
}

type StepRequest struct {
	ID            string            `json:"id"                       validate:"required"`
	PromptName    string            `json:"prompt_name"              validate:"required"`
	PromptVersion string            `json:"prompt_version,omitempty"`
	InputMapping  map[string]string `json:"input_mapping,omitempty"`
	DependsOn     []string          `json:"depends_on,omitempty"`
	OutputKey     string            `json:"output_key,omitempty"`
}

func steps(reqs []StepRequest) []models.WorkflowStep {
	out := make([]models.WorkflowStep, 0, len(reqs))

	for _, s := range reqs {
		out = append(out, models.WorkflowStep{
			ID:            s.ID,
			PromptName:    s.PromptName,
			PromptVersion: s.PromptVersion,
			InputMapping:  s.InputMapping,
			DependsOn:     s.DependsOn,
			OutputKey:     s.OutputKey,
		})
	}

	return out
}

type CreateWorkflowRequest struct {
	Name        string        `json:"name"                 validate:"required,min=1,max=255"`
	Description string        `json:"description"`
	ProjectID   string        `json:"project_id,omitempty"`
	Steps       []StepRequest `json:"steps"                validate:"dive"`
}

// UpdateWorkflowRequest replaces the workflow. Steps, when present, replace the whole list.
type UpdateWorkflowRequest struct {
	Name        *string       `json:"name,omitempty"        validate:"omitempty,min=1,max=255"`
	Description *string       `json:"description,omitempty"`
	ProjectID   *string       `json:"project_id,omitempty"`
	Steps       []StepRequest `json:"steps,omitempty"       validate:"omitempty,dive"`
}

type RunWorkflowRequest struct {
	Input map[string]string `json:"input"`
}

type ShareRequest struct {
	UserID string `json:"user_id" validate:"required"`
}
