package web

import (
	"github.com/dukex/pcp/pkg/models"
	"github.com/dukex/pcp/pkg/services"
	"github.com/gofiber/fiber/v3"
)

func (h *APIHandlers) effectivePolicies(kind models.ScopeKind) fiber.Handler {
	return func(c fiber.Ctx) error {
		effective, err := h.policies.Effective(c.Context(), models.Scope{Kind: kind, ID: c.Params("id")})
		if err != nil {
			return handleServiceError(c, err)
		}

		return c.JSON(effective)
	}
}

func (h *APIHandlers) effectiveObjectives(kind models.ScopeKind) fiber.Handler {
	return func(c fiber.Ctx) error {
		effective, err := h.objectives.Effective(c.Context(), models.Scope{Kind: kind, ID: c.Params("id")})
		if err != nil {
			return handleServiceError(c, err)
		}

		return c.JSON(effective)
	}
}

func (h *APIHandlers) CreatePolicy(c fiber.Ctx) error {
	var req CreatePolicyRequest
	if err := h.bind(c, "policy", &req); err != nil {
		return handleServiceError(c, err)
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}

	policy, err := h.policies.Create(c.Context(), caller(c), &models.Policy{
		TeamID:          req.TeamID,
		ProjectID:       req.ProjectID,
		Name:            req.Name,
		Description:     req.Description,
		EnforcementType: req.EnforcementType,
		Content:         req.Content,
		Priority:        req.Priority,
		Active:          active,
	})
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(policy)
}

func (h *APIHandlers) GetPolicy(c fiber.Ctx) error {
	policy, err := h.policies.Get(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(policy)
}

func (h *APIHandlers) UpdatePolicy(c fiber.Ctx) error {
	var req UpdatePolicyRequest
	if err := h.bind(c, "policy", &req); err != nil {
		return handleServiceError(c, err)
	}

	policy, err := h.policies.Update(c.Context(), caller(c), c.Params("id"), services.PolicyUpdate{
		Name:            req.Name,
		Description:     req.Description,
		EnforcementType: req.EnforcementType,
		Content:         req.Content,
		Priority:        req.Priority,
		Active:          req.Active,
	})
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(policy)
}

func (h *APIHandlers) DeletePolicy(c fiber.Ctx) error {
	if err := h.policies.Delete(c.Context(), caller(c), c.Params("id")); err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) CreateObjective(c fiber.Ctx) error {
	var req CreateObjectiveRequest
	if err := h.bind(c, "objective", &req); err != nil {
		return handleServiceError(c, err)
	}

	objective, err := h.objectives.Create(c.Context(), caller(c), &models.Objective{
		TeamID:            req.TeamID,
		ProjectID:         req.ProjectID,
		UserID:            req.UserID,
		Title:             req.Title,
		Description:       req.Description,
		ParentObjectiveID: req.ParentObjectiveID,
		Status:            req.Status,
	})
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(objective)
}

func (h *APIHandlers) GetObjective(c fiber.Ctx) error {
	objective, err := h.objectives.Get(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(objective)
}

func (h *APIHandlers) UpdateObjective(c fiber.Ctx) error {
	var req UpdateObjectiveRequest
	if err := h.bind(c, "objective", &req); err != nil {
		return handleServiceError(c, err)
	}

	objective, err := h.objectives.Update(c.Context(), caller(c), c.Params("id"), services.ObjectiveUpdate{
		Title:             req.Title,
		Description:       req.Description,
		Status:            req.Status,
		ParentObjectiveID: req.ParentObjectiveID,
	})
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(objective)
}

func (h *APIHandlers) DeleteObjective(c fiber.Ctx) error {
	if err := h.objectives.Delete(c.Context(), caller(c), c.Params("id")); err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}
