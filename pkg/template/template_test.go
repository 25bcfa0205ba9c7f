package template

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRender_SimpleExpression(t *testing.T) {
	vars := map[string]any{
		"name":  "Ada",
		"age":   36.0,
		"count": 3,
		"isNew": true,
	}

	assert.Equal(t, "Hello Ada", Render("Hello {{ name }}", vars))
	assert.Equal(t, "Hello Ada", Render("Hello {{name}}", vars))
	assert.Equal(t, "36 3 true", Render("{{ age }} {{ count }} {{ isNew }}", vars))
}

func TestRender_UnresolvedIsEmpty(t *testing.T) {
	assert.Equal(t, "Hello ", Render("Hello {{ name }}", nil))
	assert.Equal(t, "a  b", Render("a {{ missing.deep }} b", map[string]any{"missing": "flat"}))
}

func TestRender_NestedPaths(t *testing.T) {
	vars := map[string]any{
		"input": map[string]string{"text": "hola"},
		"steps": map[string]any{
			"step-1": map[string]any{"summary": "short"},
		},
		"steps.s2.out": "flat",
	}

	assert.Equal(t, "hola", Render("{{ input.text }}", vars))
	assert.Equal(t, "short", Render("{{ steps.step-1.summary }}", vars))
	assert.Equal(t, "flat", Render("{{ steps.s2.out }}", vars))
}

func TestRender_StructuredValues(t *testing.T) {
	vars := map[string]any{
		"tags": []any{"a", "b"},
		"meta": map[string]any{"k": 1.0},
		"none": nil,
	}

	assert.Equal(t, `["a","b"]`, Render("{{ tags }}", vars))
	assert.Equal(t, `{"k":1}`, Render("{{ meta }}", vars))
	assert.Empty(t, Render("{{ none }}", vars))
}

func TestRender_ValuesAreNotRescanned(t *testing.T) {
	vars := map[string]any{"a": "{{ b }}", "b": "nope"}

	assert.Equal(t, "{{ b }}", Render("{{ a }}", vars))
}

func TestRender_NonPlaceholdersKeptVerbatim(t *testing.T) {
	vars := map[string]any{"a": "x"}

	assert.Equal(t, "{{}} x", Render("{{}} {{ a }}", vars))
	assert.Equal(t, "x and {{ a", Render("{{ a }} and {{ a", vars))
	assert.Equal(t, "x}", Render("{{ a }}}", vars))
}

func TestRenderWith_Include(t *testing.T) {
	opts := Options{Include: func(name string) string { return "<" + name + ">" }}

	assert.Equal(t, "x <base> y", RenderWith("x {{ include_prompt('base') }} y", nil, opts))
	assert.Equal(t, "<base>", RenderWith(`{{ include_prompt("base") }}`, nil, opts))
	assert.Empty(t, Render("{{ include_prompt('base') }}", nil))
}

func TestPlaceholders(t *testing.T) {
	names := Placeholders("{{ a }} {{ include_prompt('x') }} {{ b.c }} {{a}}")
	assert.Equal(t, []string{"a", "b.c"}, names)
	assert.True(t, HasPlaceholders("{{ a }}"))
	assert.False(t, HasPlaceholders("plain { text }"))
}

func TestIncludeName(t *testing.T) {
	name, ok := IncludeName(" include_prompt( 'base' ) ")
	assert.True(t, ok)
	assert.Equal(t, "base", name)

	_, ok = IncludeName("include_prompt(base)")
	assert.False(t, ok)
}
