package workflow

import (
	"fmt"
	"strings"

	"github.com/dukex/pcp/pkg/errdefs"
	"github.com/dukex/pcp/pkg/models"
)

// Plan is a validated step graph in execution order.
type Plan struct {
	Steps []models.WorkflowStep

	// deps holds, for each step of Steps, the positions of its dependencies in Steps.
	deps [][]int
}

// NewPlan validates steps and orders them topologically. Ready steps are taken in their
// original order, so the result is the same on every call.
func NewPlan(workflowID string, steps []models.WorkflowStep) (*Plan, error) {
	index := make(map[string]int, len(steps))

	for i, step := range steps {
		if strings.TrimSpace(step.ID) == "" {
			return nil, &errdefs.InvalidWorkflowError{WorkflowID: workflowID, Reason: fmt.Sprintf("step %d has no id", i)}
		}

		if step.PromptName == "" {
			return nil, &errdefs.InvalidWorkflowError{WorkflowID: workflowID, Reason: fmt.Sprintf("step %q has no prompt", step.ID)}
		}

		if _, ok := index[step.ID]; ok {
			return nil, &errdefs.InvalidWorkflowError{WorkflowID: workflowID, Reason: fmt.Sprintf("duplicate step id %q", step.ID)}
		}

		index[step.ID] = i
	}

	for _, step := range steps {
		for _, dep := range step.DependsOn {
			if _, ok := index[dep]; !ok {
				return nil, &errdefs.InvalidWorkflowError{
					WorkflowID: workflowID,
					Reason:     fmt.Sprintf("step %q depends on unknown step %q", step.ID, dep),
				}
			}
		}
	}

	if path := findCycle(steps, index); path != nil {
		return nil, &errdefs.CycleError{Kind: "workflow", Path: path}
	}

	order := topoOrder(steps, index)

	plan := &Plan{Steps: make([]models.WorkflowStep, len(order)), deps: make([][]int, len(order))}
	position := make(map[string]int, len(order))

	for pos, i := range order {
		plan.Steps[pos] = steps[i]
		position[steps[i].ID] = pos
	}

	for pos, step := range plan.Steps {
		for _, dep := range step.DependsOn {
			plan.deps[pos] = append(plan.deps[pos], position[dep])
		}
	}

	return plan, nil
}

// Validate checks steps without keeping the plan.
func Validate(workflowID string, steps []models.WorkflowStep) error {
	_, err := NewPlan(workflowID, steps)

	return err
}

// Order returns the step ids in execution order.
func (p *Plan) Order() []string {
	ids := make([]string, 0, len(p.Steps))
	for _, step := range p.Steps {
		ids = append(ids, step.ID)
	}

	return ids
}

// findCycle walks depends_on edges depth-first and returns the first cycle found as
// "a depends on b depends on a", or nil.
func findCycle(steps []models.WorkflowStep, index map[string]int) []string {
	const (
		unvisited = iota
		visiting
		visited
	)

	state := make([]int, len(steps))

	type frame struct {
		node int
		next int
	}

	for start := range steps {
		if state[start] != unvisited {
			continue
		}

		stack := []frame{{node: start}}
		state[start] = visiting

		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			deps := steps[top.node].DependsOn

			if top.next == len(deps) {
				state[top.node] = visited
				stack = stack[:len(stack)-1]

				continue
			}

			dep := index[deps[top.next]]
			top.next++

			switch state[dep] {
			case visiting:
				path := []string{}
				found := false

				for _, f := range stack {
					if f.node == dep {
						found = true
					}

					if found {
						path = append(path, steps[f.node].ID)
					}
				}

				return append(path, steps[dep].ID)
			case unvisited:
				state[dep] = visiting
				stack = append(stack, frame{node: dep})
			}
		}
	}

	return nil
}

// topoOrder is Kahn's algorithm picking the lowest original index among ready steps.
func topoOrder(steps []models.WorkflowStep, index map[string]int) []int {
	pending := make([]int, len(steps))
	dependents := make([][]int, len(steps))

	for i, step := range steps {
		pending[i] = len(step.DependsOn)

		for _, dep := range step.DependsOn {
			dependents[index[dep]] = append(dependents[index[dep]], i)
		}
	}

	done := make([]bool, len(steps))
	order := make([]int, 0, len(steps))

	for len(order) < len(steps) {
		next := -1

		for i := range steps {
			if !done[i] && pending[i] == 0 {
				next = i

				break
			}
		}

		done[next] = true
		order = append(order, next)

		for _, d := range dependents[next] {
			pending[d]--
		}
	}

	return order
}
