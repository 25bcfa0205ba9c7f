package models

import (
	"slices"
	"time"
)

// ObjectiveStatus is the lifecycle state of an objective. Only active objectives are
// part of an effective set.
type ObjectiveStatus string

const (
	ObjectiveActive    ObjectiveStatus = "active"
	ObjectiveCompleted ObjectiveStatus = "completed"
	ObjectiveArchived  ObjectiveStatus = "archived"
)

func (s ObjectiveStatus) Valid() bool {
	switch s {
	case ObjectiveActive, ObjectiveCompleted, ObjectiveArchived:
		return true
	default:
		return false
	}
}

// Objective is scoped to at most one of a team, a project or a user. ParentObjectiveID
// points at the ancestor objective this one refines; it is informational only.
type Objective struct {
	ID                string          `json:"id"`
	TeamID            string          `json:"team_id,omitempty"`
	ProjectID         string          `json:"project_id,omitempty"`
	UserID            string          `json:"user_id,omitempty"`
	Title             string          `json:"title"                         validate:"required,min=1,max=255"`
	Description       string          `json:"description,omitempty"`
	ParentObjectiveID string          `json:"parent_objective_id,omitempty"`
	Status            ObjectiveStatus `json:"status"`
	IsInherited       bool            `json:"is_inherited"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// Scope returns the scope the objective is directly attached to.
func (o *Objective) Scope() Scope {
	switch {
	case o.ProjectID != "":
		return ProjectScope(o.ProjectID)
	case o.UserID != "":
		return UserScope(o.UserID)
	default:
		return TeamScope(o.TeamID)
	}
}

// SortObjectives orders objectives by creation time, then id.
func SortObjectives(objectives []*Objective) {
	slices.SortStableFunc(objectives, func(a, b *Objective) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}

		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		default:
			return 0
		}
	})
}
