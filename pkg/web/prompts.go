package web

import (
	"github.com/dukex/pcp/pkg/expansion"
	"github.com/dukex/pcp/pkg/models"
	"github.com/dukex/pcp/pkg/services"
	"github.com/gofiber/fiber/v3"
)

func (h *APIHandlers) ListPrompts(c fiber.Ctx) error {
	req, err := parseListPromptsRequest(c)
	if err != nil {
		return badRequest(c, "Invalid query parameters: "+err.Error())
	}

	result, err := h.prompts.List(c.Context(), *req)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"prompts":       result.Prompts,
		"total_count":   result.TotalCount,
		"has_next_page": result.HasNextPage,
		"pagination": fiber.Map{
			"limit":  req.Limit,
			"offset": req.Offset,
		},
	})
}

func parseListPromptsRequest(c fiber.Ctx) (*services.ListPromptsRequest, error) {
	req := &services.ListPromptsRequest{Tag: c.Query("tag"), Query: c.Query("q")}

	var err error

	if req.Limit, err = queryInt(c, "limit"); err != nil {
		return nil, err
	}

	if req.Offset, err = queryInt(c, "offset"); err != nil {
		return nil, err
	}

	if req.IncludeDeprecated, err = queryBool(c, "include_deprecated"); err != nil {
		return nil, err
	}

	return req, nil
}

func (h *APIHandlers) PromptNames(c fiber.Ctx) error {
	names, err := h.prompts.Names(c.Context())
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(names)
}

func (h *APIHandlers) CreatePrompt(c fiber.Ctx) error {
	var req CreatePromptRequest
	if err := h.bind(c, "prompt", &req); err != nil {
		return handleServiceError(c, err)
	}

	created, err := h.prompts.Create(c.Context(), caller(c),
		&models.Prompt{Name: req.Name, Description: req.Description},
		req.Version.model(),
	)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(created)
}

func (h *APIHandlers) GetPrompt(c fiber.Ctx) error {
	prompt, err := h.prompts.Get(c.Context(), c.Params("name"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(prompt)
}

func (h *APIHandlers) ListVersions(c fiber.Ctx) error {
	versions, err := h.prompts.ListVersions(c.Context(), c.Params("name"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(versions)
}

func (h *APIHandlers) AddVersion(c fiber.Ctx) error {
	var req VersionRequest
	if err := h.bind(c, "prompt version", &req); err != nil {
		return handleServiceError(c, err)
	}

	version, err := h.prompts.AddVersion(c.Context(), caller(c), c.Params("name"), req.model())
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(version)
}

// Rollback pins the prompt to an existing version label.
func (h *APIHandlers) Rollback(c fiber.Ctx) error {
	prompt, err := h.prompts.Pin(c.Context(), caller(c), c.Params("name"), c.Params("version"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(prompt)
}

func (h *APIHandlers) Unpin(c fiber.Ctx) error {
	prompt, err := h.prompts.Unpin(c.Context(), caller(c), c.Params("name"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(prompt)
}

func (h *APIHandlers) Deprecate(c fiber.Ctx) error {
	prompt, err := h.prompts.Deprecate(c.Context(), caller(c), c.Params("name"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(prompt)
}

// Expand renders a prompt for the caller. The body is optional.
func (h *APIHandlers) Expand(c fiber.Ctx) error {
	var req ExpandRequest

	if len(c.Body()) > 0 {
		if err := h.bind(c, "expansion", &req); err != nil {
			return handleServiceError(c, err)
		}
	}

	result, err := h.svc.Engine.Expand(c.Context(), caller(c), expansion.Request{
		PromptName: c.Params("name"),
		Version:    c.Params("version"),
		ProjectID:  req.ProjectID,
		Input:      req.Input,
	})
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(result)
}
