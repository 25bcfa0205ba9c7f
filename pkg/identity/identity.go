// Package identity turns request credentials into a models.Caller. Nothing below the
// transport layer parses credentials.
package identity

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dukex/pcp/pkg/models"
	"github.com/golang-jwt/jwt/v5"
)

const (
	HeaderUser = "X-PCP-User"
	HeaderTeam = "X-PCP-Team"
	HeaderRole = "X-PCP-Role"
)

var ErrUnauthorized = errors.New("unauthorized")

// Claims is the JWT payload: sub is the user id.
type Claims struct {
	TeamID string `json:"team_id"`
	Role   string `json:"role,omitempty"`

	jwt.RegisteredClaims
}

type Config struct {
	// JWTSecret verifies HS256 bearer tokens.
	JWTSecret string
	// AuthToken is the shared bearer of a trusted gateway that forwards identity headers.
	AuthToken string
}

type Authenticator struct {
	secret []byte
	token  string
}

func New(cfg Config) *Authenticator {
	return &Authenticator{secret: []byte(cfg.JWTSecret), token: cfg.AuthToken}
}

// Open reports whether no credentials are configured, in which case identity headers
// are trusted as sent.
func (a *Authenticator) Open() bool {
	return len(a.secret) == 0 && a.token == ""
}

// Resolve authenticates one request given its Authorization header and a header lookup.
func (a *Authenticator) Resolve(authorization string, header func(string) string) (models.Caller, error) {
	if a.Open() {
		return fromHeaders(header)
	}

	bearer, ok := strings.CutPrefix(authorization, "Bearer ")
	bearer = strings.TrimSpace(bearer)

	if !ok || bearer == "" {
		return models.Caller{}, fmt.Errorf("%w: missing bearer token", ErrUnauthorized)
	}

	if a.token != "" && bearer == a.token {
		return fromHeaders(header)
	}

	if len(a.secret) == 0 {
		return models.Caller{}, fmt.Errorf("%w: invalid token", ErrUnauthorized)
	}

	return a.parse(bearer)
}

func (a *Authenticator) parse(raw string) (models.Caller, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return models.Caller{}, fmt.Errorf("%w: %w", ErrUnauthorized, err)
	}

	if !token.Valid || claims.Subject == "" {
		return models.Caller{}, fmt.Errorf("%w: token has no subject", ErrUnauthorized)
	}

	role, err := parseRole(claims.Role)
	if err != nil {
		return models.Caller{}, err
	}

	return models.Caller{UserID: claims.Subject, TeamID: claims.TeamID, Role: role}, nil
}

// Issue signs a token for caller. It fails when no JWT secret is configured.
func (a *Authenticator) Issue(caller models.Caller, ttl time.Duration) (string, error) {
	if len(a.secret) == 0 {
		return "", errors.New("no jwt secret configured")
	}

	now := time.Now()
	claims := Claims{
		TeamID: caller.TeamID,
		Role:   string(caller.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   caller.UserID,
			Issuer:    "pcp",
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

func fromHeaders(header func(string) string) (models.Caller, error) {
	role, err := parseRole(header(HeaderRole))
	if err != nil {
		return models.Caller{}, err
	}

	return models.Caller{
		UserID: strings.TrimSpace(header(HeaderUser)),
		TeamID: strings.TrimSpace(header(HeaderTeam)),
		Role:   role,
	}, nil
}

func parseRole(s string) (models.Role, error) {
	switch role := models.Role(strings.ToLower(strings.TrimSpace(s))); role {
	case "":
		return models.RoleMember, nil
	case models.RoleAdmin, models.RoleMember, models.RoleViewer:
		return role, nil
	default:
		return "", fmt.Errorf("%w: unknown role %q", ErrUnauthorized, s)
	}
}
