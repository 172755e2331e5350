package worker

import (
	"go.uber.org/zap"

	"github.com/spec-kit/support-desk/internal/events"
	"github.com/spec-kit/support-desk/internal/service"
)

// StartNotificationWorker subscribes customer notifications and, when a
// forwarder is configured, NATS forwarding to the dispatcher. Both run inline
// on Publish, so mail is sent before the request that raised the event returns.
func StartNotificationWorker(dispatcher events.Dispatcher, notifications *service.NotificationService, forwarder *events.NATSForwarder, logger *zap.Logger) {
	if dispatcher == nil {
		return
	}
	if notifications != nil {
		notifications.RegisterHandlers()
		logger.Info("notification handlers registered")
	}
	if forwarder != nil {
		forwarder.Register(dispatcher)
		logger.Info("event forwarding enabled", zap.String("subject", forwarder.Subject("*")))
	}
}
