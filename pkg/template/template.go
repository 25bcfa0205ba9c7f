// Package template renders {{ placeholder }} templates for prompts and workflow mappings.
package template

import (
	"encoding/json"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/valyala/fasttemplate"
)

const (
	startTag = "{{"
	endTag   = "}}"
)

var includePattern = regexp.MustCompile(`^include_prompt\(\s*(?:'([^']*)'|"([^"]*)")\s*\)$`)

// IncludeFunc returns the text that replaces an include_prompt('name') expression.
type IncludeFunc func(name string) string

// Options tune a render.
type Options struct {
	// Include resolves include_prompt expressions. When nil they render as "".
	Include IncludeFunc
}

// Render substitutes every placeholder with the matching value from vars. Unknown names
// render as "".
func Render(tmpl string, vars map[string]any) string {
	return RenderWith(tmpl, vars, Options{})
}

// RenderWith is Render with include support. The output is never rescanned, so values
// containing braces are inserted verbatim.
func RenderWith(tmpl string, vars map[string]any, opts Options) string {
	return fasttemplate.ExecuteFuncString(tmpl, startTag, endTag, func(w io.Writer, tag string) (int, error) {
		expr, ok := expression(tag)
		if !ok {
			return io.WriteString(w, startTag+tag+endTag)
		}

		if name, ok := IncludeName(expr); ok {
			if opts.Include == nil {
				return 0, nil
			}

			return io.WriteString(w, opts.Include(name))
		}

		value, ok := Lookup(vars, expr)
		if !ok {
			return 0, nil
		}

		return io.WriteString(w, Stringify(value))
	})
}

// expression trims a raw tag. Empty tags and tags holding braces are not placeholders
// and are left in the output as written.
func expression(tag string) (string, bool) {
	expr := strings.TrimSpace(tag)
	if expr == "" || strings.ContainsAny(expr, "{}") {
		return "", false
	}

	return expr, true
}

// scan calls fn with every placeholder expression of tmpl in order.
func scan(tmpl string, fn func(expr string)) {
	_, _ = fasttemplate.ExecuteFunc(tmpl, startTag, endTag, io.Discard, func(_ io.Writer, tag string) (int, error) {
		if expr, ok := expression(tag); ok {
			fn(expr)
		}

		return 0, nil
	})
}

// IncludeName reports whether expr is an include_prompt call and returns its argument.
func IncludeName(expr string) (string, bool) {
	m := includePattern.FindStringSubmatch(strings.TrimSpace(expr))
	if m == nil {
		return "", false
	}

	if m[1] != "" {
		return m[1], true
	}

	return m[2], true
}

// Placeholders returns the distinct variable names referenced by tmpl in first-seen
// order. Include expressions are skipped.
func Placeholders(tmpl string) []string {
	seen := make(map[string]bool)

	var names []string

	scan(tmpl, func(name string) {
		if _, ok := IncludeName(name); ok || seen[name] {
			return
		}

		seen[name] = true
		names = append(names, name)
	})

	return names
}

// HasPlaceholders reports whether s contains at least one placeholder.
func HasPlaceholders(s string) bool {
	found := false

	scan(s, func(string) { found = true })

	return found
}

// Lookup resolves a dotted path against vars. A flat key containing dots wins over nested
// traversal, which lets "steps.s1.summary" be stored either way.
func Lookup(vars map[string]any, path string) (any, bool) {
	if v, ok := vars[path]; ok {
		return v, true
	}

	var current any = vars

	for _, part := range strings.Split(path, ".") {
		switch node := current.(type) {
		case map[string]any:
			next, ok := node[part]
			if !ok {
				return nil, false
			}

			current = next
		case map[string]string:
			next, ok := node[part]
			if !ok {
				return nil, false
			}

			current = next
		default:
			return nil, false
		}
	}

	return current, true
}

// Stringify converts a value to its rendered form.
func Stringify(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case bool:
		return strconv.FormatBool(v)
	case json.Number:
		return v.String()
	default:
		body, err := json.Marshal(v)
		if err != nil {
			return ""
		}

		return string(body)
	}
}
