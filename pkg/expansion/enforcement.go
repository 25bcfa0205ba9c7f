package expansion

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/dukex/pcp/pkg/models"
	"github.com/expr-lang/expr"
)

// PolicyResult reports what one policy did to an expansion. Passed is only set for
// validate policies.
type PolicyResult struct {
	Policy      string                 `json:"policy"`
	Enforcement models.EnforcementType `json:"enforcement"`
	Passed      *bool                  `json:"passed,omitempty"`
	Note        string                 `json:"note,omitempty"`
}

// messages is the state the enforcement handlers work on.
type messages struct {
	system    *string
	user      string
	input     map[string]any
	prepended []string
	appended  []string
}

// handler applies one enforcement type. inject runs before rendering, apply after it.
// Checking handlers run once every text change has been made.
type handler interface {
	inject(vars map[string]any, p *models.Policy)
	apply(m *messages, p *models.Policy) PolicyResult
	checks() bool
}

var handlers = map[models.EnforcementType]handler{
	models.EnforcementPrepend:  prependHandler{},
	models.EnforcementAppend:   appendHandler{},
	models.EnforcementInject:   injectHandler{},
	models.EnforcementValidate: validateHandler{},
}

type prependHandler struct{}

func (prependHandler) checks() bool { return false }

func (prependHandler) inject(map[string]any, *models.Policy) {}

func (prependHandler) apply(m *messages, p *models.Policy) PolicyResult {
	m.prepended = append(m.prepended, p.Content)

	return PolicyResult{Policy: p.Name, Enforcement: p.EnforcementType}
}

type appendHandler struct{}

func (appendHandler) checks() bool { return false }

func (appendHandler) inject(map[string]any, *models.Policy) {}

func (appendHandler) apply(m *messages, p *models.Policy) PolicyResult {
	m.appended = append(m.appended, p.Content)

	return PolicyResult{Policy: p.Name, Enforcement: p.EnforcementType}
}

type injectHandler struct{}

func (injectHandler) checks() bool { return false }

func (injectHandler) inject(vars map[string]any, p *models.Policy) {
	vars[p.Name] = p.Content
}

func (injectHandler) apply(_ *messages, p *models.Policy) PolicyResult {
	return PolicyResult{Policy: p.Name, Enforcement: p.EnforcementType}
}

type validateHandler struct{}

func (validateHandler) inject(map[string]any, *models.Policy) {}

func (validateHandler) checks() bool { return true }

// apply checks the final user message.
func (validateHandler) apply(m *messages, p *models.Policy) PolicyResult {
	passed, note := check(p.Content, m)

	return PolicyResult{Policy: p.Name, Enforcement: p.EnforcementType, Passed: &passed, Note: note}
}

// finish joins prepended content ahead of the system message and appended content after
// the user message, each in application order.
func (m *messages) finish() {
	if len(m.prepended) > 0 {
		parts := append([]string{}, m.prepended...)
		if m.system != nil {
			parts = append(parts, *m.system)
		}

		system := strings.Join(parts, "\n")
		m.system = &system
	}

	if len(m.appended) > 0 {
		m.user = strings.Join(append([]string{m.user}, m.appended...), "\n")
	}
}

// check evaluates a validate policy. Content forms:
//
//	regex:<pattern>      the message must match pattern
//	expr:<expression>    boolean expression over message, system and input
//	forbid:<a,b,...>     none of the words may appear (case-insensitive)
//	<phrase>             the phrase must appear (case-insensitive)
func check(content string, m *messages) (bool, string) {
	content = strings.TrimSpace(content)

	switch {
	case strings.HasPrefix(content, "regex:"):
		pattern := strings.TrimPrefix(content, "regex:")

		re, err := regexp.Compile(pattern)
		if err != nil {
			return false, fmt.Sprintf("invalid pattern: %v", err)
		}

		if !re.MatchString(m.user) {
			return false, fmt.Sprintf("message does not match %q", pattern)
		}

		return true, ""
	case strings.HasPrefix(content, "expr:"):
		return checkExpr(strings.TrimSpace(strings.TrimPrefix(content, "expr:")), m)
	case strings.HasPrefix(content, "forbid:"):
		lower := strings.ToLower(m.user)

		for _, word := range strings.Split(strings.TrimPrefix(content, "forbid:"), ",") {
			word = strings.TrimSpace(word)
			if word != "" && strings.Contains(lower, strings.ToLower(word)) {
				return false, fmt.Sprintf("message contains forbidden term %q", word)
			}
		}

		return true, ""
	default:
		if !strings.Contains(strings.ToLower(m.user), strings.ToLower(content)) {
			return false, fmt.Sprintf("message is missing required phrase %q", content)
		}

		return true, ""
	}
}

func checkExpr(code string, m *messages) (bool, string) {
	system := ""
	if m.system != nil {
		system = *m.system
	}

	env := map[string]any{
		"message": m.user,
		"system":  system,
		"input":   m.input,
	}

	program, err := expr.Compile(code, expr.Env(env), expr.AsBool())
	if err != nil {
		return false, fmt.Sprintf("invalid expression: %v", err)
	}

	out, err := expr.Run(program, env)
	if err != nil {
		return false, fmt.Sprintf("expression failed: %v", err)
	}

	if ok, _ := out.(bool); !ok {
		return false, fmt.Sprintf("expression %q is false", code)
	}

	return true, ""
}
