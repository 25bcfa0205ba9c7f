package expansion

import (
	"fmt"
	"maps"

	"github.com/dukex/pcp/pkg/errdefs"
	"github.com/dukex/pcp/pkg/models"
	"github.com/xeipuuv/gojsonschema"
)

// validateInput checks input against schema and returns a copy with property defaults
// filled in. Unknown keys pass through untouched.
func validateInput(subject string, schema *models.JSONSchema, input map[string]any) (map[string]any, error) {
	vars := make(map[string]any, len(input))
	maps.Copy(vars, input)

	if schema == nil {
		return vars, nil
	}

	for name, prop := range schema.Properties {
		if _, ok := vars[name]; !ok && prop != nil && prop.Default != nil {
			vars[name] = prop.Default
		}
	}

	schemaLoader := gojsonschema.NewGoLoader(schema)
	dataLoader := gojsonschema.NewGoLoader(vars)

	result, err := gojsonschema.Validate(schemaLoader, dataLoader)
	if err != nil {
		return nil, fmt.Errorf("failed to validate input of %s: %w", subject, err)
	}

	if result.Valid() {
		return vars, nil
	}

	verr := &errdefs.ValidationError{Subject: subject}

	for _, desc := range result.Errors() {
		field := desc.Field()
		reason := desc.Description()

		if desc.Type() == "required" {
			if property, ok := desc.Details()["property"].(string); ok {
				field = property
			}

			reason = "is required"
		}

		verr.Fields = append(verr.Fields, errdefs.FieldError{Field: field, Reason: reason})
	}

	return nil, verr
}
