package models

import (
	"cmp"
	"slices"
	"time"
)

// EnforcementType is the closed set of ways a policy acts on an expansion.
type EnforcementType string

const (
	EnforcementPrepend  EnforcementType = "prepend"
	EnforcementAppend   EnforcementType = "append"
	EnforcementInject   EnforcementType = "inject"
	EnforcementValidate EnforcementType = "validate"
)

// EnforcementTypes lists every supported enforcement type.
func EnforcementTypes() []EnforcementType {
	return []EnforcementType{EnforcementPrepend, EnforcementAppend, EnforcementInject, EnforcementValidate}
}

func (e EnforcementType) Valid() bool {
	return slices.Contains(EnforcementTypes(), e)
}

// Policy is attached to exactly one of a team or a project.
type Policy struct {
	ID              string          `json:"id"`
	TeamID          string          `json:"team_id,omitempty"`
	ProjectID       string          `json:"project_id,omitempty"`
	Name            string          `json:"name"                  validate:"required,min=1,max=255"`
	Description     string          `json:"description,omitempty"`
	EnforcementType EnforcementType `json:"enforcement_type"      validate:"required,oneof=prepend append inject validate"`
	Content         string          `json:"content"               validate:"required"`
	Priority        int             `json:"priority"`
	Active          bool            `json:"active"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// Scope returns the scope the policy is directly attached to.
func (p *Policy) Scope() Scope {
	if p.ProjectID != "" {
		return ProjectScope(p.ProjectID)
	}

	return TeamScope(p.TeamID)
}

// SortPolicies orders policies by priority ascending, then creation time, then id.
func SortPolicies(policies []*Policy) {
	slices.SortStableFunc(policies, func(a, b *Policy) int {
		if a.Priority != b.Priority {
			return cmp.Compare(a.Priority, b.Priority)
		}

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
