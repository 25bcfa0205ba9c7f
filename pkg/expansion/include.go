package expansion

import (
	"context"
	"fmt"

	"github.com/dukex/pcp/pkg/template"
)

// includer resolves include_prompt expressions found at depth. Included prompts are
// rendered with the same variables; their system message, when present, precedes the user
// message with a blank line between. Failures render as inline markers.
func (e *Engine) includer(ctx context.Context, vars map[string]any, depth int) template.IncludeFunc {
	return func(name string) string {
		if depth >= e.config.MaxIncludeDepth {
			return fmt.Sprintf("[include error: max depth exceeded at '%s']", name)
		}

		_, version, err := e.resolve(ctx, name, "")
		if err != nil {
			e.logger.DebugContext(ctx, "include failed", "prompt", name, "depth", depth, "error", err)

			return fmt.Sprintf("[include error: prompt not found: '%s']", name)
		}

		system, user := e.render(ctx, version, vars, depth+1)
		if system == nil {
			return user
		}

		return *system + "\n\n" + user
	}
}
