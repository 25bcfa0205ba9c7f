package services

import (
	"log/slog"

	"github.com/dukex/pcp/pkg/cache"
	"github.com/dukex/pcp/pkg/eventbus"
	"github.com/dukex/pcp/pkg/expansion"
	"github.com/dukex/pcp/pkg/hierarchy"
	"github.com/dukex/pcp/pkg/models"
	"github.com/dukex/pcp/pkg/objective"
	"github.com/dukex/pcp/pkg/persistence"
	"github.com/dukex/pcp/pkg/policy"
	"github.com/dukex/pcp/pkg/workflow"
	"go.opentelemetry.io/otel/trace"
)

// Options wires the services together. Only Persistence and Logger are required.
type Options struct {
	Persistence persistence.Persistence
	Cache       cache.Cache
	Recorder    expansion.Recorder
	Observer    workflow.Observer
	Publisher   eventbus.EventPublisher
	Source      string
	Tracer      trace.Tracer
	Logger      *slog.Logger
	Expansion   expansion.Config
	Concurrency int
}

// Services is everything the transports call into.
type Services struct {
	Hierarchy  *Hierarchy
	Policies   *Policies
	Objectives *Objectives
	Prompts    *Prompts
	Workflows  *Workflows
	Engine     *expansion.Engine
	Executor   *workflow.Executor
}

func New(opts Options) *Services {
	c := opts.Cache
	if c == nil {
		c = cache.Noop{}
	}

	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}

	p := opts.Persistence
	validate := models.NewValidator()

	resolver := hierarchy.NewResolver(p, c, opts.Logger.With("module", "hierarchy"))
	policies := policy.NewAggregator(resolver, p.PolicyRepository(), c, opts.Logger.With("module", "policy"))
	objectives := objective.NewAggregator(resolver, p.ObjectiveRepository(), c, opts.Logger.With("module", "objective"))

	engine := expansion.NewEngine(p, policies, objectives, opts.Recorder, opts.Tracer, opts.Logger.With("module", "expansion"), opts.Expansion)
	executor := workflow.NewExecutor(p.WorkflowRepository(), engine, opts.Observer, opts.Concurrency, opts.Tracer, opts.Logger.With("module", "workflow"))

	logger := opts.Logger.With("module", "services")

	return &Services{
		Hierarchy:  NewHierarchy(p, resolver, c, validate, logger),
		Policies:   NewPolicies(p, resolver, policies, c, validate, logger),
		Objectives: NewObjectives(p, resolver, objectives, c, validate, logger),
		Prompts:    NewPrompts(p, validate, logger),
		Workflows:  NewWorkflows(p, resolver, executor, opts.Publisher, opts.Source, validate, logger),
		Engine:     engine,
		Executor:   executor,
	}
}
