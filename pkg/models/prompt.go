package models

import (
	"slices"
	"time"
)

// Prompt is a named, versioned template. ActiveVersionID is the explicit pin; when it is
// empty the newest version is used.
type Prompt struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"                        validate:"required,promptname"`
	Description     string    `json:"description,omitempty"`
	Deprecated      bool      `json:"is_deprecated"`
	UserID          string    `json:"user_id,omitempty"`
	ActiveVersionID string    `json:"active_version_id,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// PromptVersion is immutable once stored.
type PromptVersion struct {
	ID             string      `json:"id"`
	PromptID       string      `json:"prompt_id"`
	Version        string      `json:"version"                   validate:"required,max=64"`
	SystemTemplate string      `json:"system_template,omitempty"`
	UserTemplate   string      `json:"user_template"             validate:"required"`
	InputSchema    *JSONSchema `json:"input_schema,omitempty"`
	Tags           []string    `json:"tags"`
	CreatedAt      time.Time   `json:"created_at"`
}

// HasTag reports whether the version carries tag.
func (v *PromptVersion) HasTag(tag string) bool {
	return slices.Contains(v.Tags, tag)
}

// NewestFirst orders versions by creation time descending; ids break ties, which keeps
// the order total because ids are time-ordered UUIDv7 values.
func NewestFirst(versions []*PromptVersion) {
	slices.SortStableFunc(versions, func(a, b *PromptVersion) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}

		switch {
		case a.ID > b.ID:
			return -1
		case a.ID < b.ID:
			return 1
		default:
			return 0
		}
	})
}

// ResolveVersion picks the version an expansion uses: the exact label when one is given,
// otherwise the pinned version, otherwise the newest. It returns nil when nothing matches.
func ResolveVersion(prompt *Prompt, versions []*PromptVersion, label string) *PromptVersion {
	if label != "" {
		for _, v := range versions {
			if v.Version == label {
				return v
			}
		}

		return nil
	}

	if prompt.ActiveVersionID != "" {
		for _, v := range versions {
			if v.ID == prompt.ActiveVersionID {
				return v
			}
		}
	}

	if len(versions) == 0 {
		return nil
	}

	sorted := slices.Clone(versions)
	NewestFirst(sorted)

	return sorted[0]
}
