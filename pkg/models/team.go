// Package models defines the records of the prompt control plane: the team hierarchy,
// policies and objectives attached to it, versioned prompts and prompt workflows.
package models

import "time"

// Team is a node of the team forest. ParentTeamID is empty for roots.
type Team struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"                     validate:"required,min=1,max=255"`
	Slug         string    `json:"slug"                     validate:"required,slug"`
	Description  string    `json:"description,omitempty"`
	OwnerID      string    `json:"owner_id,omitempty"`
	ParentTeamID string    `json:"parent_team_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// IsRoot reports whether the team has no parent.
func (t *Team) IsRoot() bool {
	return t.ParentTeamID == ""
}

// User belongs to exactly one team.
type User struct {
	ID          string    `json:"id"`
	TeamID      string    `json:"team_id"                validate:"required"`
	Username    string    `json:"username"               validate:"required,username"`
	DisplayName string    `json:"display_name,omitempty"`
	Email       string    `json:"email,omitempty"        validate:"omitempty,email"`
	Role        Role      `json:"role"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ProjectRole is the role of a member inside a project.
type ProjectRole string

const (
	ProjectRoleLead   ProjectRole = "lead"
	ProjectRoleMember ProjectRole = "member"
)

// ProjectMember links a user to a project.
type ProjectMember struct {
	UserID  string      `json:"user_id" validate:"required"`
	Role    ProjectRole `json:"role"    validate:"required,oneof=lead member"`
	AddedAt time.Time   `json:"added_at"`
}

// Project is owned by a team; its slug is unique within that team.
type Project struct {
	ID          string          `json:"id"`
	TeamID      string          `json:"team_id"               validate:"required"`
	LeadID      string          `json:"lead_id,omitempty"`
	Name        string          `json:"name"                  validate:"required,min=1,max=255"`
	Slug        string          `json:"slug"                  validate:"required,slug"`
	Description string          `json:"description,omitempty"`
	Members     []ProjectMember `json:"members"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// Member returns the membership of userID, if any.
func (p *Project) Member(userID string) (ProjectMember, bool) {
	for _, m := range p.Members {
		if m.UserID == userID {
			return m, true
		}
	}

	return ProjectMember{}, false
}
