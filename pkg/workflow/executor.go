// Package workflow validates and runs workflows: DAGs of prompt expansions.
package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"sync"

	"github.com/dukex/pcp/pkg/errdefs"
	"github.com/dukex/pcp/pkg/expansion"
	"github.com/dukex/pcp/pkg/log"
	"github.com/dukex/pcp/pkg/models"
	"github.com/dukex/pcp/pkg/otelhelper"
	"github.com/dukex/pcp/pkg/persistence"
	"github.com/dukex/pcp/pkg/template"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

type Expander interface {
	Expand(ctx context.Context, caller models.Caller, req expansion.Request) (*expansion.Result, error)
}

// Observer is told the status of every finished run.
type Observer interface {
	ObserveWorkflowRun(status string)
}

type StepStatus string

const (
	StepSuccess StepStatus = "success"
	StepError   StepStatus = "error"
)

type RunStatus string

const (
	RunCompleted RunStatus = "completed"
	RunPartial   RunStatus = "partial"
	RunFailed    RunStatus = "failed"
	RunCancelled RunStatus = "cancelled"
)

type StepResult struct {
	StepID          string     `json:"step_id"`
	PromptName      string     `json:"prompt_name"`
	PromptVersion   string     `json:"prompt_version,omitempty"`
	SystemMessage   *string    `json:"system_message,omitempty"`
	UserMessage     string     `json:"user_message"`
	Status          StepStatus `json:"status"`
	Error           string     `json:"error,omitempty"`
	AppliedPolicies []string   `json:"applied_policies"`
	Objectives      []string   `json:"objectives"`
}

type Run struct {
	WorkflowID   string            `json:"workflow_id"`
	WorkflowName string            `json:"workflow_name"`
	Status       RunStatus         `json:"status"`
	Steps        []StepResult      `json:"steps"`
	Outputs      map[string]string `json:"outputs"`
}

type Executor struct {
	workflows   persistence.WorkflowRepository
	expander    Expander
	observer    Observer
	concurrency int64
	tracer      trace.Tracer
	logger      *slog.Logger
}

// NewExecutor creates an executor running at most concurrency independent steps at once.
func NewExecutor(
	workflows persistence.WorkflowRepository,
	expander Expander,
	observer Observer,
	concurrency int,
	tracer trace.Tracer,
	logger *slog.Logger,
) *Executor {
	if concurrency < 1 {
		concurrency = 1
	}

	if tracer == nil {
		tracer = otelhelper.Noop()
	}

	return &Executor{
		workflows:   workflows,
		expander:    expander,
		observer:    observer,
		concurrency: int64(concurrency),
		tracer:      tracer,
		logger:      logger,
	}
}

// Run loads the workflow and executes it.
func (e *Executor) Run(ctx context.Context, caller models.Caller, workflowID string, input map[string]string) (*Run, error) {
	wf, err := e.workflows.GetByID(ctx, workflowID)
	if err != nil {
		return nil, fmt.Errorf("failed to load workflow %s: %w", workflowID, err)
	}

	if wf == nil {
		return nil, errdefs.NotFound("workflow", workflowID)
	}

	return e.Execute(ctx, caller, wf, input)
}

// Execute runs wf. Structural problems reject the run before any step starts; step
// failures are reported in the result and fail only the steps that depend on them.
func (e *Executor) Execute(ctx context.Context, caller models.Caller, wf *models.Workflow, input map[string]string) (*Run, error) {
	ctx, span := otelhelper.StartSpan(ctx, e.tracer, "workflow.run",
		attribute.String(otelhelper.WorkflowIDKey, wf.ID),
		attribute.String(otelhelper.WorkflowNameKey, wf.Name),
	)
	defer span.End()

	logger := e.logger.With("workflow_id", wf.ID)
	ctx = log.WithLogger(ctx, logger)

	plan, err := NewPlan(wf.ID, wf.Steps)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, &errdefs.CancelledError{Op: "workflow " + wf.ID, Cause: err}
	}

	logger.InfoContext(ctx, "starting workflow run", "steps", len(plan.Steps))

	state := newRunState(input)
	results := make([]StepResult, len(plan.Steps))
	failed := make([]bool, len(plan.Steps))
	done := make([]chan struct{}, len(plan.Steps))

	for i := range done {
		done[i] = make(chan struct{})
	}

	sem := semaphore.NewWeighted(e.concurrency)
	g, gctx := errgroup.WithContext(ctx)

	// Slots are taken in plan order before a step is started, so a concurrency of 1 runs
	// the steps strictly one after another.
	for i, step := range plan.Steps {
		if sem.Acquire(gctx, 1) != nil {
			break
		}

		g.Go(func() error {
			defer sem.Release(1)
			defer close(done[i])

			for _, d := range plan.deps[i] {
				select {
				case <-done[d]:
				case <-gctx.Done():
					return gctx.Err()
				}
			}

			results[i] = StepResult{StepID: step.ID, PromptName: step.PromptName, PromptVersion: step.PromptVersion}

			for _, d := range plan.deps[i] {
				if failed[d] {
					failed[i] = true
					results[i].Status = StepError
					results[i].Error = fmt.Sprintf("dependency %q failed", plan.Steps[d].ID)

					logger.InfoContext(gctx, "skipping step", "step_id", step.ID, "reason", results[i].Error)

					return nil
				}
			}

			vars := state.inputsFor(step, plan, i)

			result, err := e.expander.Expand(gctx, caller, expansion.Request{
				PromptName: step.PromptName,
				Version:    step.PromptVersion,
				ProjectID:  wf.ProjectID,
				Input:      vars,
			})
			if gctx.Err() != nil {
				return gctx.Err()
			}

			if err != nil {
				failed[i] = true
				results[i].Status = StepError
				results[i].Error = err.Error()

				logger.InfoContext(gctx, "step failed", "step_id", step.ID, "prompt", step.PromptName, "error", err)

				return nil
			}

			results[i].PromptVersion = result.PromptVersion
			results[i].SystemMessage = result.SystemMessage
			results[i].UserMessage = result.UserMessage
			results[i].Status = StepSuccess
			results[i].AppliedPolicies = result.AppliedPolicies
			results[i].Objectives = result.Objectives

			state.complete(step, result.UserMessage)

			return nil
		})
	}

	err = g.Wait()
	if err == nil {
		err = ctx.Err()
	}

	if err != nil {
		otelhelper.SetError(span, err)
		logger.InfoContext(ctx, "workflow run cancelled", "error", err)
		e.observe(string(RunCancelled))

		return nil, &errdefs.CancelledError{Op: "workflow " + wf.ID, Cause: err}
	}

	run := &Run{
		WorkflowID:   wf.ID,
		WorkflowName: wf.Name,
		Steps:        results,
		Outputs:      make(map[string]string),
	}

	failures := 0

	for i, step := range plan.Steps {
		if failed[i] {
			failures++

			continue
		}

		run.Outputs[step.Key()] = results[i].UserMessage
	}

	switch {
	case failures == 0:
		run.Status = RunCompleted
	case failures == len(plan.Steps):
		run.Status = RunFailed
	default:
		run.Status = RunPartial
	}

	logger.InfoContext(ctx, "workflow run finished", "status", run.Status, "failed_steps", failures)
	e.observe(string(run.Status))

	return run, nil
}

func (e *Executor) observe(status string) {
	if e.observer != nil {
		e.observer.ObserveWorkflowRun(status)
	}
}

// runState is the shared context steps read from. A step only ever reads entries of
// steps it depends on, which have completed before it starts.
type runState struct {
	mu      sync.RWMutex
	input   map[string]string
	outputs map[string]map[string]any
}

func newRunState(input map[string]string) *runState {
	cp := make(map[string]string, len(input))
	maps.Copy(cp, input)

	return &runState{input: cp, outputs: make(map[string]map[string]any)}
}

func (s *runState) complete(step models.WorkflowStep, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.outputs[step.ID] = map[string]any{step.Key(): message}
}

// inputsFor builds the expansion input of the step at position pos. Only outputs of the
// step's own dependencies are visible; a mapping naming any other step renders "".
func (s *runState) inputsFor(step models.WorkflowStep, plan *Plan, pos int) map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	vars := make(map[string]any)

	if len(step.InputMapping) > 0 {
		steps := make(map[string]any, len(plan.deps[pos]))
		for _, d := range plan.deps[pos] {
			id := plan.Steps[d].ID
			if out, ok := s.outputs[id]; ok {
				steps[id] = out
			}
		}

		scope := map[string]any{"input": s.input, "steps": steps}

		for name, expr := range step.InputMapping {
			vars[name] = template.Render(expr, scope)
		}

		return vars
	}

	for k, v := range s.input {
		vars[k] = v
	}

	var last string

	for _, d := range plan.deps[pos] {
		dep := plan.Steps[d]
		if out, ok := s.outputs[dep.ID]; ok {
			last, _ = out[dep.Key()].(string)
			vars[dep.Key()] = last
		}
	}

	if _, ok := s.input[models.FreeTextField]; !ok && len(plan.deps[pos]) > 0 {
		vars[models.FreeTextField] = last
	}

	return vars
}
