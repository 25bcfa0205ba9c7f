package web

import (
	"errors"
	"log/slog"

	"github.com/dukex/pcp/pkg/errdefs"
	"github.com/gofiber/fiber/v3"
	"github.com/moogar0880/problems"
)

// StatusClientClosedRequest is reported when the caller cancelled the request.
const StatusClientClosedRequest = 499

func problem(c fiber.Ctx, status int, kind, detail string) error {
	p := problems.NewStatusProblem(status).
		WithInstance(c.Path()).
		WithType(kind).
		WithDetail(detail)

	return c.Status(status).JSON(p)
}

func badRequest(c fiber.Ctx, detail string) error {
	return problem(c, fiber.StatusBadRequest, "validation_error", detail)
}

func internalError(c fiber.Ctx, err error) error {
	p := problems.NewStatusProblem(fiber.StatusInternalServerError).
		WithInstance(c.Path()).
		WithType("internal_error").
		WithError(err)

	return c.Status(fiber.StatusInternalServerError).JSON(p)
}

var kindStatus = map[string]int{
	"validation_error": fiber.StatusBadRequest,
	"not_found":        fiber.StatusNotFound,
	"cycle_detected":   fiber.StatusUnprocessableEntity,
	"invalid_workflow": fiber.StatusUnprocessableEntity,
	"scope_error":      fiber.StatusForbidden,
	"conflict":         fiber.StatusConflict,
	"cancelled":        StatusClientClosedRequest,
}

// handleServiceError maps the error taxonomy to problem documents.
func handleServiceError(c fiber.Ctx, err error) error {
	kind := errdefs.Kind(err)

	status, ok := kindStatus[kind]
	if !ok {
		return internalError(c, err)
	}

	return problem(c, status, kind, err.Error())
}

// ErrorHandler renders errors returned by middleware, such as a failed authentication,
// as problem documents.
func ErrorHandler(logger *slog.Logger) fiber.ErrorHandler {
	return func(c fiber.Ctx, err error) error {
		var fe *fiber.Error
		if errors.As(err, &fe) {
			kind := "http_error"
			if fe.Code == fiber.StatusUnauthorized {
				kind = "unauthorized"
			}

			return problem(c, fe.Code, kind, fe.Message)
		}

		logger.ErrorContext(c.Context(), "unhandled request error", "path", c.Path(), "error", err)

		return internalError(c, err)
	}
}
