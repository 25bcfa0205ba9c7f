package models

import "fmt"

// ScopeKind names what a Scope points at.
type ScopeKind string

const (
	ScopeTeam    ScopeKind = "team"
	ScopeProject ScopeKind = "project"
	ScopeUser    ScopeKind = "user"
)

// Scope identifies the team, project or user a resolution is computed for.
type Scope struct {
	Kind ScopeKind `json:"kind"`
	ID   string    `json:"id"`
}

func TeamScope(id string) Scope {
	return Scope{Kind: ScopeTeam, ID: id}
}

func ProjectScope(id string) Scope {
	return Scope{Kind: ScopeProject, ID: id}
}

func UserScope(id string) Scope {
	return Scope{Kind: ScopeUser, ID: id}
}

func (s Scope) String() string {
	return fmt.Sprintf("%s:%s", s.Kind, s.ID)
}

// Valid reports whether the scope has a known kind and an id.
func (s Scope) Valid() bool {
	switch s.Kind {
	case ScopeTeam, ScopeProject, ScopeUser:
		return s.ID != ""
	default:
		return false
	}
}
