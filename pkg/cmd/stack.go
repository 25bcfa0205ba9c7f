package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/dukex/pcp/pkg/cache"
	"github.com/dukex/pcp/pkg/eventbus"
	"github.com/dukex/pcp/pkg/expansion"
	"github.com/dukex/pcp/pkg/otelhelper"
	"github.com/dukex/pcp/pkg/persistence"
	"github.com/dukex/pcp/pkg/services"
	"github.com/dukex/pcp/pkg/usage"
	"github.com/google/uuid"
)

const retentionSchedule = "@daily"

// StackConfig is what the binaries read from flags and environment.
type StackConfig struct {
	ServiceName     string
	DatabaseURL     string
	CacheURL        string
	EventBus        string
	KafkaBrokers    []string
	ValidateMode    string
	StepConcurrency int
	RetentionDays   int
	OTELEnabled     bool
}

// Stack is the fully wired control plane of one process.
type Stack struct {
	Source      string
	Persistence persistence.Persistence
	Bus         eventbus.EventBus
	Cache       cache.Cache
	Metrics     *usage.Metrics
	Stats       *usage.Stats
	Services    *services.Services

	recorder  *usage.EventRecorder
	retention *usage.Retention
	tracing   *otelhelper.Provider
	logger    *slog.Logger
}

// NewStack opens storage, the event bus and the cache, then builds the services on top.
// Event handlers are registered and the bus subscribed before it returns.
func NewStack(ctx context.Context, cfg StackConfig, logger *slog.Logger) (*Stack, error) {
	mode, err := expansion.ParseValidateMode(cfg.ValidateMode)
	if err != nil {
		return nil, err
	}

	s := &Stack{Source: uuid.NewString(), Metrics: usage.NewMetrics(), logger: logger}

	s.Persistence, err = NewPersistence(ctx, logger, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}

	s.Bus, err = NewEventBus(cfg.EventBus, cfg.KafkaBrokers, "pcp-"+s.Source, cfg.OTELEnabled, logger.With("module", "eventbus"))
	if err != nil {
		s.Close(ctx)

		return nil, err
	}

	local, err := NewCache(ctx, cfg.CacheURL)
	if err != nil {
		s.Close(ctx)

		return nil, err
	}

	s.Cache = local

	if memory, ok := local.(*cache.Memory); ok {
		broadcast := cache.NewBroadcast(memory, s.Bus, s.Source, logger.With("module", "cache"))
		if err := broadcast.Register(s.Bus); err != nil {
			s.Close(ctx)

			return nil, fmt.Errorf("failed to register cache invalidation handler: %w", err)
		}

		s.Cache = broadcast
	}

	err = usage.NewCollector(s.Persistence.UsageRepository(), logger.With("module", "usage")).Register(s.Bus)
	if err != nil {
		s.Close(ctx)

		return nil, fmt.Errorf("failed to register usage collector: %w", err)
	}

	err = s.Bus.Subscribe(ctx)
	if err != nil {
		s.Close(ctx)

		return nil, fmt.Errorf("failed to subscribe to events: %w", err)
	}

	tracer := otelhelper.Noop()
	if cfg.OTELEnabled {
		s.tracing, err = otelhelper.NewProvider(ctx, cfg.ServiceName)
		if err != nil {
			s.Close(ctx)

			return nil, fmt.Errorf("failed to initialize tracer: %w", err)
		}

		tracer = s.tracing.Tracer()
	}

	s.recorder = usage.NewEventRecorder(s.Bus, s.Metrics, s.Source, logger.With("module", "usage"))
	s.Stats = usage.NewStats(s.Persistence)
	s.Services = services.New(services.Options{
		Persistence: s.Persistence,
		Cache:       s.Cache,
		Recorder:    s.recorder,
		Observer:    s.Metrics,
		Publisher:   s.Bus,
		Source:      s.Source,
		Tracer:      tracer,
		Logger:      logger,
		Expansion:   expansion.Config{ValidateMode: mode},
		Concurrency: cfg.StepConcurrency,
	})

	if cfg.RetentionDays > 0 {
		s.retention = usage.NewRetention(s.Persistence.UsageRepository(), cfg.RetentionDays, logger.With("module", "retention"))

		err = s.retention.Start(ctx, retentionSchedule)
		if err != nil {
			s.Close(ctx)

			return nil, err
		}
	}

	return s, nil
}

// Close drains pending usage events, then releases everything the stack opened.
func (s *Stack) Close(ctx context.Context) {
	if s.retention != nil {
		s.retention.Stop()
	}

	if s.recorder != nil {
		s.recorder.Wait()
	}

	var errs []error

	if s.Bus != nil {
		errs = append(errs, s.Bus.Close())
	}

	if closer, ok := s.Cache.(io.Closer); ok {
		errs = append(errs, closer.Close())
	}

	if s.Persistence != nil {
		errs = append(errs, s.Persistence.Close(ctx))
	}

	if s.tracing != nil {
		errs = append(errs, s.tracing.Shutdown(ctx))
	}

	if err := errors.Join(errs...); err != nil {
		s.logger.ErrorContext(ctx, "failed to close stack", "error", err)
	}
}
