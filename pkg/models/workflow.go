package models

import "time"

// Workflow chains prompt expansions. Steps are embedded and replaced as a whole.
type Workflow struct {
	ID          string         `json:"id"`
	UserID      string         `json:"user_id"`
	ProjectID   string         `json:"project_id,omitempty"`
	Name        string         `json:"name"                  validate:"required,min=1,max=255"`
	Description string         `json:"description,omitempty"`
	Steps       []WorkflowStep `json:"steps"                 validate:"dive"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// WorkflowStep is one prompt expansion inside a workflow. InputMapping values are
// templates evaluated against the run context (input.* and steps.<id>.<output_key>).
type WorkflowStep struct {
	ID            string            `json:"id"                       validate:"required"`
	PromptName    string            `json:"prompt_name"              validate:"required"`
	PromptVersion string            `json:"prompt_version,omitempty"`
	InputMapping  map[string]string `json:"input_mapping,omitempty"`
	DependsOn     []string          `json:"depends_on,omitempty"`
	OutputKey     string            `json:"output_key,omitempty"`
}

// Key returns the name the step's output is published under.
func (s WorkflowStep) Key() string {
	if s.OutputKey != "" {
		return s.OutputKey
	}

	return s.ID
}

// Share grants a non-owner read and run access to a workflow.
type Share struct {
	ResourceID string    `json:"resource_id"`
	UserID     string    `json:"user_id"`
	CreatedAt  time.Time `json:"created_at"`
}
