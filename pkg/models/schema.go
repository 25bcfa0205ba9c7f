package models

// JSONSchema is the input schema attached to a prompt version. Properties without a
// declared type accept any value.
type JSONSchema struct {
	Type        string               `json:"type,omitempty"`
	Properties  map[string]*Property `json:"properties,omitempty"`
	Required    []string             `json:"required,omitempty"`
	Title       string               `json:"title,omitempty"`
	Description string               `json:"description,omitempty"`
}

// Property represents a JSON Schema property
type Property struct {
	Type        string               `json:"type,omitempty"`
	Description string               `json:"description,omitempty"`
	Enum        []any                `json:"enum,omitempty"`
	Default     any                  `json:"default,omitempty"`
	Format      string               `json:"format,omitempty"`
	MinLength   *int                 `json:"minLength,omitempty"`
	MaxLength   *int                 `json:"maxLength,omitempty"`
	Pattern     string               `json:"pattern,omitempty"`
	Items       *Property            `json:"items,omitempty"`
	Properties  map[string]*Property `json:"properties,omitempty"`
	Required    []string             `json:"required,omitempty"`
}

// FreeTextField is the only recognised input when a version has no schema.
const FreeTextField = "input"

// FieldNames returns the property names of the schema, or the free-text field when there
// is no schema or it declares no properties.
func (s *JSONSchema) FieldNames() []string {
	if s == nil || len(s.Properties) == 0 {
		return []string{FreeTextField}
	}

	names := make([]string, 0, len(s.Properties))
	for name := range s.Properties {
		names = append(names, name)
	}

	return names
}
