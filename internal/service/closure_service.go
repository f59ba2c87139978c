package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/integration-service/internal/config"
	"github.com/spec-kit/integration-service/internal/domain"
	"github.com/spec-kit/integration-service/internal/events"
	"github.com/spec-kit/integration-service/internal/observability"
	"github.com/spec-kit/integration-service/internal/repository"
	"github.com/spec-kit/integration-service/internal/slack"
)

// ClosureResult reports one closure notification attempt.
type ClosureResult struct {
	Success         bool   `json:"success"`
	AlreadyNotified bool   `json:"already_notified"`
	MessageSent     bool   `json:"message_sent"`
	ReactionAdded   bool   `json:"reaction_added"`
	Error           string `json:"error,omitempty"`
}

// ClosureNotifier posts the one-time closing message and reaction when a
// ticket reaches a terminal status.
type ClosureNotifier struct {
	threads  repository.ThreadRepository
	closures repository.ClosureNotificationRepository
	chat     slack.Client
	// dispatcher and metrics observe successful notifications.
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
	emoji      string
}

// ClosureDependencies bundles collaborators for the notifier.
type ClosureDependencies struct {
	ThreadRepo  repository.ThreadRepository
	ClosureRepo repository.ClosureNotificationRepository
	Chat        slack.Client
	Dispatcher  events.Dispatcher
	Metrics     *observability.Metrics
	Logger      *zap.Logger
}

// NewClosureNotifier constructs the notifier.
func NewClosureNotifier(cfg *config.Config, deps ClosureDependencies) *ClosureNotifier {
	return &ClosureNotifier{
		threads:    deps.ThreadRepo,
		closures:   deps.ClosureRepo,
		chat:       deps.Chat,
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
		logger:     deps.Logger,
		emoji:      cfg.Slack.ClosedEmoji,
	}
}

// NotifyClosure posts the closing message at most once per (ticket, thread).
// The persisted notification row is what makes the guard effective forever
// after; the reaction is best-effort.
func (n *ClosureNotifier) NotifyClosure(ctx context.Context, ticket *domain.Ticket, link *domain.Link) *ClosureResult {
	result := &ClosureResult{}

	if _, err := n.closures.GetByTicketAndThread(ctx, ticket.ID, link.ThreadID); err == nil {
		result.Success = true
		result.AlreadyNotified = true
		return result
	} else if !repository.IsNotFound(err) {
		result.Error = err.Error()
		return result
	}

	thread, err := n.threads.GetByID(ctx, link.ThreadID)
	if err != nil {
		if repository.IsNotFound(err) {
			result.Error = fmt.Sprintf("thread %s missing for link %s", link.ThreadID, link.ID)
		} else {
			result.Error = err.Error()
		}
		return result
	}

	text := fmt.Sprintf(":checkered_flag: *%s* has been closed (status: %s). This thread is now resolved.",
		ticket.Key, valueOrDash(ticket.Status))
	posted, err := n.chat.PostMessage(ctx, slack.PostMessageInput{
		Channel:  thread.ChannelID,
		Text:     text,
		ThreadTS: thread.ThreadTS,
	})
	if err != nil {
		result.Error = err.Error()
		return result
	}
	result.MessageSent = true

	result.ReactionAdded = bestEffort(n.logger, "closed reaction", func() error {
		_, err := n.chat.AddReaction(ctx, thread.ChannelID, thread.ThreadTS, n.emoji)
		return err
	})

	record := &domain.ClosureNotification{
		TicketID:      ticket.ID,
		ThreadID:      thread.ID,
		TicketStatus:  ticket.Status,
		MessageTS:     posted.TS,
		ReactionAdded: result.ReactionAdded,
	}
	if result.ReactionAdded {
		emoji := n.emoji
		record.ReactionEmoji = &emoji
	}
	if err := n.closures.Create(ctx, record); err != nil {
		if errors.Is(err, repository.ErrAlreadyExists) {
			// A concurrent notifier persisted first; its record carries the
			// guard and this attempt still delivered a message.
			result.Success = true
			return result
		}
		result.Error = err.Error()
		return result
	}

	result.Success = true
	n.metrics.RecordClosureNotified()
	publishEvent(ctx, n.dispatcher, events.Event{
		Type:      events.EventClosureNotified,
		TicketKey: ticket.Key,
		Payload: events.ClosureNotifiedPayload{
			TicketID:      ticket.ID,
			ThreadID:      thread.ID,
			TicketStatus:  ticket.Status,
			ReactionAdded: result.ReactionAdded,
		},
	})
	n.logger.Info("closure notified",
		zap.String("ticket_key", ticket.Key),
		zap.String("thread_id", thread.ID),
		zap.Bool("reaction_added", result.ReactionAdded))
	return result
}
