package web

import (
	"github.com/dukex/pcp/pkg/models"
	"github.com/dukex/pcp/pkg/services"
	"github.com/gofiber/fiber/v3"
)

func (h *APIHandlers) ListTeams(c fiber.Ctx) error {
	teams, err := h.hierarchy.ListTeams(c.Context())
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(teams)
}

func (h *APIHandlers) GetTeam(c fiber.Ctx) error {
	team, err := h.hierarchy.GetTeam(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(team)
}

func (h *APIHandlers) CreateTeam(c fiber.Ctx) error {
	var req CreateTeamRequest
	if err := h.bind(c, "team", &req); err != nil {
		return handleServiceError(c, err)
	}

	team, err := h.hierarchy.CreateTeam(c.Context(), caller(c), &models.Team{
		Name:         req.Name,
		Slug:         req.Slug,
		Description:  req.Description,
		ParentTeamID: req.ParentTeamID,
	})
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(team)
}

func (h *APIHandlers) UpdateTeam(c fiber.Ctx) error {
	var req UpdateTeamRequest
	if err := h.bind(c, "team", &req); err != nil {
		return handleServiceError(c, err)
	}

	team, err := h.hierarchy.UpdateTeam(c.Context(), caller(c), c.Params("id"), services.TeamUpdate{
		Name:         req.Name,
		Slug:         req.Slug,
		Description:  req.Description,
		ParentTeamID: req.ParentTeamID,
	})
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(team)
}

func (h *APIHandlers) DeleteTeam(c fiber.Ctx) error {
	if err := h.hierarchy.DeleteTeam(c.Context(), caller(c), c.Params("id")); err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// GetAncestors returns the path from the root down to the team.
func (h *APIHandlers) GetAncestors(c fiber.Ctx) error {
	path, err := h.hierarchy.Ancestors(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(path)
}

func (h *APIHandlers) CreateUser(c fiber.Ctx) error {
	var req CreateUserRequest
	if err := h.bind(c, "user", &req); err != nil {
		return handleServiceError(c, err)
	}

	user, err := h.hierarchy.CreateUser(c.Context(), caller(c), &models.User{
		ID:          req.ID,
		TeamID:      req.TeamID,
		Username:    req.Username,
		DisplayName: req.DisplayName,
		Email:       req.Email,
		Role:        req.Role,
	})
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(user)
}

func (h *APIHandlers) GetUser(c fiber.Ctx) error {
	user, err := h.hierarchy.GetUser(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(user)
}

func (h *APIHandlers) CreateProject(c fiber.Ctx) error {
	var req CreateProjectRequest
	if err := h.bind(c, "project", &req); err != nil {
		return handleServiceError(c, err)
	}

	project, err := h.hierarchy.CreateProject(c.Context(), caller(c), &models.Project{
		TeamID:      req.TeamID,
		Name:        req.Name,
		Slug:        req.Slug,
		Description: req.Description,
		LeadID:      req.LeadID,
	})
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(project)
}

func (h *APIHandlers) GetProject(c fiber.Ctx) error {
	project, err := h.hierarchy.GetProject(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(project)
}

func (h *APIHandlers) ListProjects(c fiber.Ctx) error {
	projects, err := h.hierarchy.ListProjects(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(projects)
}

func (h *APIHandlers) DeleteProject(c fiber.Ctx) error {
	if err := h.hierarchy.DeleteProject(c.Context(), caller(c), c.Params("id")); err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) SetMember(c fiber.Ctx) error {
	var req SetMemberRequest
	if err := h.bind(c, "project member", &req); err != nil {
		return handleServiceError(c, err)
	}

	project, err := h.hierarchy.SetMember(c.Context(), caller(c), c.Params("id"), c.Params("userId"), req.Role)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(project)
}

func (h *APIHandlers) RemoveMember(c fiber.Ctx) error {
	project, err := h.hierarchy.RemoveMember(c.Context(), caller(c), c.Params("id"), c.Params("userId"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(project)
}
