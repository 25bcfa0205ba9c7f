package web

import (
	"github.com/dukex/pcp/pkg/models"
	"github.com/dukex/pcp/pkg/services"
	"github.com/gofiber/fiber/v3"
)

func (h *APIHandlers) ListWorkflows(c fiber.Ctx) error {
	req := services.ListWorkflowsRequest{ProjectID: c.Query("project_id")}

	var err error

	if req.Limit, err = queryInt(c, "limit"); err != nil {
		return badRequest(c, "Invalid query parameters: "+err.Error())
	}

	if req.Offset, err = queryInt(c, "offset"); err != nil {
		return badRequest(c, "Invalid query parameters: "+err.Error())
	}

	result, err := h.workflows.List(c.Context(), caller(c), req)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(result)
}

func (h *APIHandlers) CreateWorkflow(c fiber.Ctx) error {
	var req CreateWorkflowRequest
	if err := h.bind(c, "workflow", &req); err != nil {
		return handleServiceError(c, err)
	}

	created, err := h.workflows.Create(c.Context(), caller(c), &models.Workflow{
		Name:        req.Name,
		Description: req.Description,
		ProjectID:   req.ProjectID,
		Steps:       steps(req.Steps),
	})
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(created)
}

func (h *APIHandlers) GetWorkflow(c fiber.Ctx) error {
	workflow, err := h.workflows.Get(c.Context(), caller(c), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(workflow)
}

func (h *APIHandlers) UpdateWorkflow(c fiber.Ctx) error {
	var req UpdateWorkflowRequest
	if err := h.bind(c, "workflow", &req); err != nil {
		return handleServiceError(c, err)
	}

	update := services.WorkflowUpdate{
		Name:        req.Name,
		Description: req.Description,
		ProjectID:   req.ProjectID,
	}

	if req.Steps != nil {
		update.Steps = steps(req.Steps)
	}

	updated, err := h.workflows.Update(c.Context(), caller(c), c.Params("id"), update)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(updated)
}

func (h *APIHandlers) DeleteWorkflow(c fiber.Ctx) error {
	if err := h.workflows.Delete(c.Context(), caller(c), c.Params("id")); err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) RunWorkflow(c fiber.Ctx) error {
	var req RunWorkflowRequest

	if len(c.Body()) > 0 {
		if err := h.bind(c, "workflow run", &req); err != nil {
			return handleServiceError(c, err)
		}
	}

	run, err := h.workflows.Run(c.Context(), caller(c), c.Params("id"), req.Input)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(run)
}

func (h *APIHandlers) ListShares(c fiber.Ctx) error {
	shares, err := h.workflows.ListShares(c.Context(), caller(c), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(shares)
}

func (h *APIHandlers) ShareWorkflow(c fiber.Ctx) error {
	var req ShareRequest
	if err := h.bind(c, "share", &req); err != nil {
		return handleServiceError(c, err)
	}

	share, err := h.workflows.Share(c.Context(), caller(c), c.Params("id"), req.UserID)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(share)
}

func (h *APIHandlers) UnshareWorkflow(c fiber.Ctx) error {
	if err := h.workflows.Unshare(c.Context(), caller(c), c.Params("id"), c.Params("userId")); err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}
