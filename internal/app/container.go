// Package app wires configuration, storage, sync and observability into a
// ready-to-use container.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/felixgeelhaar/taskcal/internal/productivity/application/queries"
	"github.com/felixgeelhaar/taskcal/internal/productivity/application/sync"
	"github.com/felixgeelhaar/taskcal/internal/productivity/domain/task"
	"github.com/felixgeelhaar/taskcal/internal/productivity/infrastructure/persistence"
	"github.com/felixgeelhaar/taskcal/internal/shared/infrastructure/eventbus"
	"github.com/felixgeelhaar/taskcal/pkg/config"
	"github.com/felixgeelhaar/taskcal/pkg/observability"
)

// Container holds all application dependencies.
type Container struct {
	Config  *config.Config
	Logger  *slog.Logger
	Metrics *observability.InMemoryMetrics
	Health  *observability.HealthRegistry

	// Gateway is the instrumented document store selected by TASKCAL_STORE.
	Gateway task.Gateway

	// Publishers
	EventPublisher    eventbus.Publisher
	LocalBus          *eventbus.LocalBus // nil when RabbitMQ is used

	// Views and sync
	Projector *queries.Projector
	Sync      *sync.Controller

	closers []closer
}

// NewContainer creates the container for cfg. The store is opened and
// migrated, but not loaded; call Sync.Load before reading tasks.
func NewContainer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Container, error) {
	if logger == nil {
		logger = slog.Default()
	}

	dayOrder, err := queries.ParseDayOrder(cfg.DayOrder)
	if err != nil {
		return nil, err
	}
	policy, err := sync.ParseFailurePolicy(cfg.FailurePolicy)
	if err != nil {
		return nil, err
	}

	c := &Container{
		Config:    cfg,
		Logger:    logger,
		Metrics:   observability.NewInMemoryMetrics(),
		Health:    observability.NewHealthRegistry(),
		Projector: queries.NewProjector(dayOrder),
	}

	raw, closers, err := openGateway(ctx, cfg, c.Metrics, logger)
	if err != nil {
		return nil, err
	}
	c.closers = append(c.closers, closers...)

	gateway := persistence.NewInstrumentedGateway(raw, cfg.Store, c.Metrics, logger)
	c.Gateway = gateway
	c.Health.Register("store", observability.PingHealthChecker(cfg.Store, observability.HealthStatusUnhealthy, gateway.Ping))

	if err := c.initEvents(); err != nil {
		c.Close()
		return nil, err
	}

	c.Sync = sync.NewController(c.Gateway, c.EventPublisher, c.Metrics, logger, sync.Config{
		Policy:  policy,
		Timeout: cfg.RemoteTimeout,
	})

	logger.Debug("container ready",
		"store", cfg.Store,
		"day_order", string(dayOrder),
		"failure_policy", string(policy),
	)
	return c, nil
}

// initEvents connects to RabbitMQ when configured and falls back to the
// in-process bus otherwise.
func (c *Container) initEvents() error {
	if c.Config.RabbitMQURL != "" {
		publisher, err := eventbus.NewRabbitMQPublisher(c.Config.RabbitMQURL, c.Logger)
		if err != nil {
			if c.Config.IsProduction() {
				return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
			}
			c.Logger.Warn("RabbitMQ not available, using in-process event bus", "error", err)
		} else {
			c.EventPublisher = publisher
			c.Health.Register("events", observability.PingHealthChecker("rabbitmq", observability.HealthStatusDegraded, publisher.Ping))
			return nil
		}
	}

	c.LocalBus = eventbus.NewLocalBus(c.Logger)
	c.LocalBus.Subscribe(sync.NewEventHandler(c.Metrics,
		func(ctx context.Context, _ *eventbus.Envelope, evt sync.SyncEvent) error {
			if evt.Outcome == sync.OutcomeFailed || evt.Outcome == sync.OutcomeRolledBack {
				c.Logger.DebugContext(ctx, "sync event",
					"op", evt.Op,
					"task_id", evt.TaskID,
					"outcome", evt.Outcome,
					"error", evt.Error,
				)
			}
			return nil
		},
		sync.RoutingKeyFailed,
	))
	c.EventPublisher = c.LocalBus
	return nil
}

// Close waits for in-flight sync operations, then releases every resource.
func (c *Container) Close() {
	if c.Sync != nil {
		c.Sync.Wait()
	}

	if c.EventPublisher != nil {
		if err := c.EventPublisher.Close(); err != nil {
			c.Logger.Warn("error closing event publisher", "error", err)
		}
	}

	for i := len(c.closers) - 1; i >= 0; i-- {
		cl := c.closers[i]
		if err := cl.close(); err != nil {
			c.Logger.Warn("error closing resource", "resource", cl.name, "error", err)
		} else {
			c.Logger.Debug("resource closed", "resource", cl.name)
		}
	}
	c.closers = nil
}
