// Package web provides the HTTP handlers of the control plane REST API.
package web

import (
	"net/http"
	"strconv"
	"time"

	"github.com/dukex/pcp/pkg/errdefs"
	"github.com/dukex/pcp/pkg/identity"
	"github.com/dukex/pcp/pkg/models"
	"github.com/dukex/pcp/pkg/services"
	"github.com/dukex/pcp/pkg/usage"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

type APIHandlers struct {
	hierarchy  *services.Hierarchy
	policies   *services.Policies
	objectives *services.Objectives
	prompts    *services.Prompts
	workflows  *services.Workflows
	svc        *services.Services
	stats      *usage.Stats
	validator  *validator.Validate
}

func NewAPIHandlers(svc *services.Services, stats *usage.Stats, validator *validator.Validate) *APIHandlers {
	return &APIHandlers{
		hierarchy:  svc.Hierarchy,
		policies:   svc.Policies,
		objectives: svc.Objectives,
		prompts:    svc.Prompts,
		workflows:  svc.Workflows,
		svc:        svc,
		stats:      stats,
		validator:  validator,
	}
}

// Routes mounts every API endpoint on router, normally the /api/v1 group.
func (h *APIHandlers) Routes(router fiber.Router) {
	t := router.Group("/teams")
	t.Get("/", h.ListTeams)
	t.Post("/", h.CreateTeam)
	t.Get("/:id", h.GetTeam)
	t.Patch("/:id", h.UpdateTeam)
	t.Delete("/:id", h.DeleteTeam)
	t.Get("/:id/ancestors", h.GetAncestors)
	t.Get("/:id/projects", h.ListProjects)
	t.Get("/:id/policies/effective", h.effectivePolicies(models.ScopeTeam))
	t.Get("/:id/objectives/effective", h.effectiveObjectives(models.ScopeTeam))

	u := router.Group("/users")
	u.Post("/", h.CreateUser)
	u.Get("/:id", h.GetUser)
	u.Get("/:id/policies/effective", h.effectivePolicies(models.ScopeUser))
	u.Get("/:id/objectives/effective", h.effectiveObjectives(models.ScopeUser))

	p := router.Group("/projects")
	p.Post("/", h.CreateProject)
	p.Get("/:id", h.GetProject)
	p.Delete("/:id", h.DeleteProject)
	p.Put("/:id/members/:userId", h.SetMember)
	p.Delete("/:id/members/:userId", h.RemoveMember)
	p.Get("/:id/policies/effective", h.effectivePolicies(models.ScopeProject))
	p.Get("/:id/objectives/effective", h.effectiveObjectives(models.ScopeProject))

	pol := router.Group("/policies")
	pol.Post("/", h.CreatePolicy)
	pol.Get("/:id", h.GetPolicy)
	pol.Patch("/:id", h.UpdatePolicy)
	pol.Delete("/:id", h.DeletePolicy)

	obj := router.Group("/objectives")
	obj.Post("/", h.CreateObjective)
	obj.Get("/:id", h.GetObjective)
	obj.Patch("/:id", h.UpdateObjective)
	obj.Delete("/:id", h.DeleteObjective)

	pr := router.Group("/prompts")
	pr.Get("/", h.ListPrompts)
	pr.Post("/", h.CreatePrompt)
	pr.Get("/names", h.PromptNames)
	pr.Get("/:name", h.GetPrompt)
	pr.Get("/:name/versions", h.ListVersions)
	pr.Post("/:name/versions", h.AddVersion)
	pr.Post("/:name/rollback/:version", h.Rollback)
	pr.Delete("/:name/pin", h.Unpin)
	pr.Post("/:name/deprecate", h.Deprecate)

	router.Post("/expand/:name", h.Expand)
	router.Post("/expand/:name/:version", h.Expand)

	w := router.Group("/workflows")
	w.Get("/", h.ListWorkflows)
	w.Post("/", h.CreateWorkflow)
	w.Get("/:id", h.GetWorkflow)
	w.Put("/:id", h.UpdateWorkflow)
	w.Delete("/:id", h.DeleteWorkflow)
	w.Post("/:id/run", h.RunWorkflow)
	w.Get("/:id/shares", h.ListShares)
	w.Post("/:id/shares", h.ShareWorkflow)
	w.Delete("/:id/shares/:userId", h.UnshareWorkflow)

	router.Get("/metrics/dashboard", h.Dashboard)
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	repositoryCheck, repOk := h.workflows.HealthCheck(c.Context())

	status := "unhealthy"
	message := "PCP API is unhealthy"
	httpStatus := http.StatusInternalServerError

	if repOk {
		status = "healthy"
		message = "PCP API is healthy"
		httpStatus = http.StatusOK
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":  status,
		"message": message,
		"checkers": fiber.Map{
			"repository": repositoryCheck,
		},
		"timestamp": time.Now().UTC(),
	})
}

func (h *APIHandlers) Dashboard(c fiber.Ctx) error {
	dashboard, err := h.stats.Dashboard(c.Context(), time.Now().UTC())
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(dashboard)
}

// bind decodes the JSON body into req and runs its validate tags.
func (h *APIHandlers) bind(c fiber.Ctx, subject string, req any) error {
	if err := c.Bind().JSON(req); err != nil {
		return errdefs.Invalid(subject, "body", "invalid JSON format")
	}

	return services.ValidateRequest(h.validator, subject, req)
}

// queryInt reads an optional integer query parameter.
func queryInt(c fiber.Ctx, name string) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return 0, nil
	}

	return strconv.Atoi(raw)
}

func queryBool(c fiber.Ctx, name string) (bool, error) {
	raw := c.Query(name)
	if raw == "" {
		return false, nil
	}

	return strconv.ParseBool(raw)
}

func caller(c fiber.Ctx) models.Caller {
	return identity.Caller(c)
}
