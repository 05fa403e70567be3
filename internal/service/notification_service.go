package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/helpline/support-desk/internal/cache"
	"github.com/helpline/support-desk/internal/config"
	"github.com/helpline/support-desk/internal/events"
	"github.com/helpline/support-desk/internal/observability"
)

// invalidateTimeout bounds the cache round trip made while a request waits on dispatch.
const invalidateTimeout = time.Second

// NotificationService reacts to committed lifecycle events: it logs them, drops stale
// analytics snapshots and forwards the stream to Kafka.
type NotificationService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	cfg        config.NotificationConfig
	cache      cache.SnapshotCache
	kafka      *events.KafkaPublisher
	metrics    *observability.Metrics
}

// NotificationDependencies bundles subscribers' collaborators. Cache, Kafka and Metrics
// are optional.
type NotificationDependencies struct {
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
	Config     config.NotificationConfig
	Cache      cache.SnapshotCache
	Kafka      *events.KafkaPublisher
	Metrics    *observability.Metrics
}

// NewNotificationService creates the service.
func NewNotificationService(deps NotificationDependencies) *NotificationService {
	return &NotificationService{
		dispatcher: deps.Dispatcher,
		logger:     defaultLogger(deps.Logger),
		cfg:        deps.Config,
		cache:      deps.Cache,
		kafka:      deps.Kafka,
		metrics:    deps.Metrics,
	}
}

// RegisterHandlers subscribes to every lifecycle event.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	for _, eventType := range events.AllEventTypes {
		n.dispatcher.Subscribe(eventType, n.handle)
	}
}

func (n *NotificationService) handle(ctx context.Context, event events.Event) error {
	n.metrics.RecordEvent(string(event.Type))
	if n.cfg.LogEvents {
		n.logger.Info("ticket event",
			zap.String("event_id", event.ID),
			zap.String("event_type", string(event.Type)),
			zap.String("ticket_id", event.TicketID),
			zap.String("ticket_number", event.TicketNumber),
			zap.String("actor_id", event.Actor.StaffID),
			zap.Any("payload", event.Payload))
	}

	var errs []error
	if n.cache != nil {
		invalidateCtx, cancel := context.WithTimeout(ctx, invalidateTimeout)
		if err := n.cache.Invalidate(invalidateCtx); err != nil {
			errs = append(errs, fmt.Errorf("invalidate analytics cache: %w", err))
		}
		cancel()
	}
	if err := n.kafka.Handle(ctx, event); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
