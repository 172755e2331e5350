package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/spec-kit/support-desk/internal/events"
	"github.com/spec-kit/support-desk/internal/mail"
)

// NotificationService emails customers when their tickets change. Delivery
// failures are logged and never reach the publisher.
type NotificationService struct {
	dispatcher events.Dispatcher
	renderer   *mail.Renderer
	mailer     mail.Mailer
	logger     *zap.Logger
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, renderer *mail.Renderer, mailer mail.Mailer, logger *zap.Logger) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		renderer:   renderer,
		mailer:     mailer,
		logger:     logger,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventTicketCreated, n.handleTicketCreated)
	n.dispatcher.Subscribe(events.EventTicketReplied, n.handleTicketReplied)
}

func (n *NotificationService) handleTicketCreated(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketCreatedPayload)
	if !ok {
		n.logger.Error("unexpected payload", zap.String("event_type", string(event.Type)))
		return nil
	}

	msg, err := n.renderer.TicketCreated(mail.TicketCreatedData{
		CustomerName:    payload.CustomerName,
		CustomerEmail:   payload.CustomerEmail,
		ReferenceNumber: payload.ReferenceNumber,
		Summary:         payload.Summary,
		Description:     payload.Description,
	})
	n.deliver(ctx, event, msg, err)
	return nil
}

func (n *NotificationService) handleTicketReplied(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketRepliedPayload)
	if !ok {
		n.logger.Error("unexpected payload", zap.String("event_type", string(event.Type)))
		return nil
	}

	msg, err := n.renderer.TicketReplied(mail.TicketRepliedData{
		CustomerName:    payload.CustomerName,
		CustomerEmail:   payload.CustomerEmail,
		ReferenceNumber: payload.ReferenceNumber,
		Summary:         payload.Summary,
		AgentName:       payload.AgentName,
		Message:         payload.Message,
	})
	n.deliver(ctx, event, msg, err)
	return nil
}

func (n *NotificationService) deliver(ctx context.Context, event events.Event, msg mail.Message, renderErr error) {
	fields := []zap.Field{
		zap.String("event_type", string(event.Type)),
		zap.Int64("ticket_id", event.TicketID),
		zap.String("to", msg.To),
	}
	err := renderErr
	if err == nil && msg.To == "" {
		err = errors.New("no recipient")
	}
	if err == nil {
		err = n.mailer.Send(ctx, msg)
	}
	if err != nil {
		n.logger.Error("failed to send notification email", append(fields, zap.Error(err))...)
		return
	}
	n.logger.Info("notification email sent", fields...)
}
