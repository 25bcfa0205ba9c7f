package models

// Role is the caller's role as resolved by the identity collaborator.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
	RoleViewer Role = "viewer"
)

// Caller is the resolved identity of whoever invokes the engine. Credentials are never
// parsed below the transport layer; everything downstream trusts this value.
type Caller struct {
	UserID string `json:"user_id"`
	TeamID string `json:"team_id"`
	Role   Role   `json:"role"`
}

// IsAdmin reports whether the caller bypasses scope ownership checks.
func (c Caller) IsAdmin() bool {
	return c.Role == RoleAdmin
}

// Anonymous reports whether no identity was resolved.
func (c Caller) Anonymous() bool {
	return c.UserID == "" && c.TeamID == ""
}
