// Package services wraps the resolution engine with the CRUD, authorization and cache
// invalidation the transports need.
package services

import (
	"errors"
	"fmt"

	"github.com/dukex/pcp/pkg/errdefs"
	"github.com/dukex/pcp/pkg/models"
	"github.com/dukex/pcp/pkg/persistence"
	"github.com/go-playground/validator/v10"
)

// ErrInvalidRequest marks requests rejected before any record is touched.
var ErrInvalidRequest = errors.New("invalid request")

// validateModel runs the model's validate tags and converts failures to a ValidationError.
func validateModel(v *validator.Validate, subject string, record any) error {
	err := v.Struct(record)
	if err == nil {
		return nil
	}

	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	result := &errdefs.ValidationError{Subject: subject}
	for _, fe := range fieldErrors {
		result.Fields = append(result.Fields, errdefs.FieldError{Field: fe.Field(), Reason: reason(fe)})
	}

	return result
}

func reason(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "slug":
		return "must match ^[a-z0-9-]+$"
	case "username":
		return "must match ^[a-z0-9_-]+$"
	case "promptname":
		return "must match ^[a-z0-9][a-z0-9_-]*$"
	case "oneof":
		return "must be one of " + fe.Param()
	default:
		if fe.Param() != "" {
			return fe.Tag() + "=" + fe.Param()
		}

		return fe.Tag()
	}
}

// writeError turns a repository write failure into the error the caller should see.
func writeError(kind, key string, err error) error {
	if err == nil {
		return nil
	}

	if persistence.IsDuplicate(err) {
		return &errdefs.ConflictError{Kind: kind, Key: key, Reason: "already exists"}
	}

	return fmt.Errorf("failed to save %s %s: %w", kind, key, err)
}

func scopeDenied(op string, scope models.Scope, reason string) error {
	return &errdefs.ScopeError{Op: op, Scope: scope.String(), Reason: reason}
}

// ValidateRequest checks a transport request against its validate tags.
func ValidateRequest(v *validator.Validate, subject string, req any) error {
	return validateModel(v, subject, req)
}
