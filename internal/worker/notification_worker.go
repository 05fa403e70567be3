package worker

import (
	"go.uber.org/zap"

	"github.com/helpline/support-desk/internal/events"
	"github.com/helpline/support-desk/internal/service"
)

// NotificationWorker owns the event subscribers and the Kafka writer they share.
type NotificationWorker struct {
	kafka  *events.KafkaPublisher
	logger *zap.Logger
}

// StartNotificationWorker registers notification handlers.
func StartNotificationWorker(notificationService *service.NotificationService, kafka *events.KafkaPublisher, logger *zap.Logger) *NotificationWorker {
	if notificationService != nil {
		notificationService.RegisterHandlers()
	}
	if kafka.Enabled() {
		logger.Info("publishing ticket events to kafka")
	}
	return &NotificationWorker{kafka: kafka, logger: logger}
}

// Stop flushes pending Kafka messages.
func (w *NotificationWorker) Stop() {
	if w == nil {
		return
	}
	if err := w.kafka.Close(); err != nil {
		w.logger.Warn("closing kafka publisher", zap.Error(err))
	}
}
