package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/dukex/pcp/pkg/errdefs"
	"github.com/dukex/pcp/pkg/eventbus"
	"github.com/dukex/pcp/pkg/events"
	"github.com/dukex/pcp/pkg/hierarchy"
	"github.com/dukex/pcp/pkg/models"
	"github.com/dukex/pcp/pkg/persistence"
	"github.com/dukex/pcp/pkg/workflow"
	"github.com/go-playground/validator/v10"
)

type Workflows struct {
	persistence persistence.Persistence
	workflows   persistence.WorkflowRepository
	shares      persistence.ShareRepository
	executor    *workflow.Executor
	publisher   eventbus.EventPublisher
	source      string
	access      access
	validate    *validator.Validate
	logger      *slog.Logger
}

// NewWorkflows creates the workflow service. publisher may be nil, in which case finished
// runs are not announced on the bus.
func NewWorkflows(
	p persistence.Persistence,
	resolver *hierarchy.Resolver,
	executor *workflow.Executor,
	publisher eventbus.EventPublisher,
	source string,
	validate *validator.Validate,
	logger *slog.Logger,
) *Workflows {
	return &Workflows{
		persistence: p,
		workflows:   p.WorkflowRepository(),
		shares:      p.ShareRepository(),
		executor:    executor,
		publisher:   publisher,
		source:      source,
		access:      access{resolver: resolver, projects: p.ProjectRepository()},
		validate:    validate,
		logger:      logger,
	}
}

// HealthCheck checks the health of the persistence layer.
func (w *Workflows) HealthCheck(ctx context.Context) (string, bool) {
	if w.persistence == nil {
		return "Persistence layer not initialized", false
	}

	err := w.persistence.HealthCheck(ctx)
	if err != nil {
		return "Persistence layer is unhealthy: " + err.Error(), false
	}

	return "Persistence layer is healthy", true
}

type ListWorkflowsRequest struct {
	ProjectID string
	Limit     int
	Offset    int
}

type ListWorkflowsResponse struct {
	Workflows   []*models.Workflow `json:"workflows"`
	TotalCount  int                `json:"total_count"`
	HasNextPage bool               `json:"has_next_page"`
}

// List returns the workflows the caller owns or has been shared, newest first.
func (w *Workflows) List(ctx context.Context, caller models.Caller, req ListWorkflowsRequest) (*ListWorkflowsResponse, error) {
	if req.Limit <= 0 {
		req.Limit = 20
	}

	if req.Limit > 100 {
		req.Limit = 100
	}

	if req.Offset < 0 {
		req.Offset = 0
	}

	owned, err := w.workflows.ListByOwner(ctx, caller.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to list workflows: %w", err)
	}

	shares, err := w.shares.ListByUser(ctx, caller.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to list shares: %w", err)
	}

	all := owned

	for _, share := range shares {
		wf, err := w.workflows.GetByID(ctx, share.ResourceID)
		if err != nil {
			return nil, fmt.Errorf("failed to load workflow %s: %w", share.ResourceID, err)
		}

		if wf != nil && wf.UserID != caller.UserID {
			all = append(all, wf)
		}
	}

	if req.ProjectID != "" {
		all = slices.DeleteFunc(all, func(wf *models.Workflow) bool {
			return wf.ProjectID != req.ProjectID
		})
	}

	slices.SortFunc(all, func(a, b *models.Workflow) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}

		return strings.Compare(a.ID, b.ID)
	})

	resp := &ListWorkflowsResponse{Workflows: []*models.Workflow{}, TotalCount: len(all)}

	if req.Offset < len(all) {
		end := min(req.Offset+req.Limit, len(all))
		resp.Workflows = all[req.Offset:end]
		resp.HasNextPage = end < len(all)
	}

	return resp, nil
}

// Get returns a workflow the caller owns or has been shared.
func (w *Workflows) Get(ctx context.Context, caller models.Caller, id string) (*models.Workflow, error) {
	wf, err := w.load(ctx, id)
	if err != nil {
		return nil, err
	}

	err = w.canRead(ctx, caller, "get workflow", wf)
	if err != nil {
		return nil, err
	}

	return wf, nil
}

// Create validates the step graph and stores the workflow owned by the caller.
func (w *Workflows) Create(ctx context.Context, caller models.Caller, wf *models.Workflow) (*models.Workflow, error) {
	if caller.UserID == "" {
		return nil, scopeDenied("create workflow", models.UserScope(""), "caller has no user")
	}

	id, err := newID()
	if err != nil {
		return nil, err
	}

	wf.ID = id
	wf.UserID = caller.UserID

	err = w.check(ctx, caller, wf)
	if err != nil {
		return nil, err
	}

	wf.CreatedAt = now()
	wf.UpdatedAt = wf.CreatedAt

	err = w.workflows.Save(ctx, wf)
	if err != nil {
		return nil, writeError("workflow", wf.ID, err)
	}

	w.logger.InfoContext(ctx, "workflow created", "workflow_id", wf.ID, "steps", len(wf.Steps))

	return wf, nil
}

// WorkflowUpdate replaces the fields that are set. Steps replace the graph as a whole.
type WorkflowUpdate struct {
	Name        *string
	Description *string
	ProjectID   *string
	Steps       []models.WorkflowStep
}

func (w *Workflows) Update(ctx context.Context, caller models.Caller, id string, update WorkflowUpdate) (*models.Workflow, error) {
	wf, err := w.load(ctx, id)
	if err != nil {
		return nil, err
	}

	err = w.canWrite(caller, "update workflow", wf)
	if err != nil {
		return nil, err
	}

	if update.Name != nil {
		wf.Name = *update.Name
	}

	if update.Description != nil {
		wf.Description = *update.Description
	}

	if update.ProjectID != nil {
		wf.ProjectID = *update.ProjectID
	}

	if update.Steps != nil {
		wf.Steps = update.Steps
	}

	err = w.check(ctx, caller, wf)
	if err != nil {
		return nil, err
	}

	wf.UpdatedAt = now()

	err = w.workflows.Save(ctx, wf)
	if err != nil {
		return nil, writeError("workflow", wf.ID, err)
	}

	return wf, nil
}

// Delete removes the workflow and every share of it.
func (w *Workflows) Delete(ctx context.Context, caller models.Caller, id string) error {
	wf, err := w.load(ctx, id)
	if err != nil {
		return err
	}

	err = w.canWrite(caller, "delete workflow", wf)
	if err != nil {
		return err
	}

	err = w.workflows.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to delete workflow %s: %w", id, err)
	}

	w.logger.InfoContext(ctx, "workflow deleted", "workflow_id", id)

	return nil
}

// Share grants userID read and run access. Sharing twice is a no-op.
func (w *Workflows) Share(ctx context.Context, caller models.Caller, id, userID string) (*models.Share, error) {
	wf, err := w.load(ctx, id)
	if err != nil {
		return nil, err
	}

	err = w.canWrite(caller, "share workflow", wf)
	if err != nil {
		return nil, err
	}

	if userID == wf.UserID {
		return nil, errdefs.Invalid("share", "user_id", "the owner cannot be a share target")
	}

	user, err := w.persistence.UserRepository().GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user %s: %w", userID, err)
	}

	if user == nil {
		return nil, errdefs.NotFound("user", userID)
	}

	existing, err := w.shares.Get(ctx, id, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load share: %w", err)
	}

	if existing != nil {
		return existing, nil
	}

	share := &models.Share{ResourceID: id, UserID: userID, CreatedAt: now()}

	err = w.shares.Save(ctx, share)
	if err != nil {
		return nil, writeError("share", id+"/"+userID, err)
	}

	return share, nil
}

func (w *Workflows) Unshare(ctx context.Context, caller models.Caller, id, userID string) error {
	wf, err := w.load(ctx, id)
	if err != nil {
		return err
	}

	err = w.canWrite(caller, "unshare workflow", wf)
	if err != nil {
		return err
	}

	err = w.shares.Delete(ctx, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete share: %w", err)
	}

	return nil
}

func (w *Workflows) ListShares(ctx context.Context, caller models.Caller, id string) ([]*models.Share, error) {
	wf, err := w.load(ctx, id)
	if err != nil {
		return nil, err
	}

	err = w.canWrite(caller, "list shares", wf)
	if err != nil {
		return nil, err
	}

	shares, err := w.shares.ListByResource(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list shares: %w", err)
	}

	return shares, nil
}

// Run executes the workflow as the caller. Expansions inside the run resolve policies
// and objectives for the caller, not for the workflow owner.
func (w *Workflows) Run(ctx context.Context, caller models.Caller, id string, input map[string]string) (*workflow.Run, error) {
	wf, err := w.load(ctx, id)
	if err != nil {
		return nil, err
	}

	err = w.canRead(ctx, caller, "run workflow", wf)
	if err != nil {
		return nil, err
	}

	run, err := w.executor.Execute(ctx, caller, wf, input)
	if err != nil {
		if errors.Is(err, errdefs.ErrCancelled) {
			w.announce(ctx, wf.ID, string(workflow.RunCancelled))
		}

		return nil, err
	}

	w.announce(ctx, wf.ID, string(run.Status))

	return run, nil
}

func (w *Workflows) announce(ctx context.Context, workflowID, status string) {
	if w.publisher == nil {
		return
	}

	id, err := newID()
	if err != nil {
		return
	}

	event := events.WorkflowRunFinished{
		BaseEvent:  events.NewBase(id, events.WorkflowRunFinishedEvent, w.source),
		WorkflowID: workflowID,
		Status:     status,
	}

	err = w.publisher.Publish(context.WithoutCancel(ctx), workflowID, event)
	if err != nil {
		w.logger.WarnContext(ctx, "failed to publish workflow run", "workflow_id", workflowID, "error", err)
	}
}

func (w *Workflows) load(ctx context.Context, id string) (*models.Workflow, error) {
	wf, err := w.workflows.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load workflow %s: %w", id, err)
	}

	if wf == nil {
		return nil, errdefs.NotFound("workflow", id)
	}

	return wf, nil
}

// check validates fields and the step graph. A graph that cannot run is reported as a
// validation failure, except for cycles which keep their own kind.
func (w *Workflows) check(ctx context.Context, caller models.Caller, wf *models.Workflow) error {
	err := validateModel(w.validate, "workflow", wf)
	if err != nil {
		return err
	}

	err = workflow.Validate(wf.ID, wf.Steps)

	var invalid *errdefs.InvalidWorkflowError
	if errors.As(err, &invalid) {
		return errdefs.Invalid("workflow "+wf.ID, "steps", invalid.Reason)
	}

	if err != nil {
		return err
	}

	if wf.ProjectID == "" {
		return nil
	}

	return w.access.authorize(ctx, caller, "attach workflow", models.ProjectScope(wf.ProjectID))
}

func (w *Workflows) canWrite(caller models.Caller, op string, wf *models.Workflow) error {
	if caller.IsAdmin() || caller.UserID == wf.UserID {
		return nil
	}

	return scopeDenied(op+" "+wf.ID, models.UserScope(wf.UserID), "workflow is owned by another user")
}

func (w *Workflows) canRead(ctx context.Context, caller models.Caller, op string, wf *models.Workflow) error {
	if w.canWrite(caller, op, wf) == nil {
		return nil
	}

	share, err := w.shares.Get(ctx, wf.ID, caller.UserID)
	if err != nil {
		return fmt.Errorf("failed to load share: %w", err)
	}

	if share == nil {
		return scopeDenied(op+" "+wf.ID, models.UserScope(wf.UserID), "workflow is not shared with the caller")
	}

	return nil
}
