package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/integration-service/internal/events"
)

// NotificationService logs integration events for operational visibility.
type NotificationService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, logger *zap.Logger) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventThreadCreated, n.handleThreadCreated)
	n.dispatcher.Subscribe(events.EventUpdatePosted, n.handleUpdatePosted)
	n.dispatcher.Subscribe(events.EventReplySynced, n.handleReplySynced)
	n.dispatcher.Subscribe(events.EventClosureNotified, n.handleClosureNotified)
	n.dispatcher.Subscribe(events.EventWebhookIgnored, n.handleWebhookIgnored)
}

func (n *NotificationService) handleThreadCreated(ctx context.Context, event events.Event) error {
	n.logger.Info("ThreadCreated", zap.String("ticket_key", event.TicketKey), zap.Any("payload", event.Payload))
	return nil
}

func (n *NotificationService) handleUpdatePosted(ctx context.Context, event events.Event) error {
	n.logger.Info("UpdatePosted", zap.String("ticket_key", event.TicketKey), zap.Any("payload", event.Payload))
	return nil
}

func (n *NotificationService) handleReplySynced(ctx context.Context, event events.Event) error {
	n.logger.Info("ReplySynced", zap.String("ticket_key", event.TicketKey), zap.Any("payload", event.Payload))
	return nil
}

func (n *NotificationService) handleClosureNotified(ctx context.Context, event events.Event) error {
	n.logger.Info("ClosureNotified", zap.String("ticket_key", event.TicketKey), zap.Any("payload", event.Payload))
	return nil
}

func (n *NotificationService) handleWebhookIgnored(ctx context.Context, event events.Event) error {
	n.logger.Debug("WebhookIgnored", zap.String("ticket_key", event.TicketKey), zap.Any("payload", event.Payload))
	return nil
}
