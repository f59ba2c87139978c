package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/integration-service/internal/domain"
	"github.com/spec-kit/integration-service/internal/events"
	"github.com/spec-kit/integration-service/internal/jira"
	"github.com/spec-kit/integration-service/internal/observability"
	"github.com/spec-kit/integration-service/internal/repository"
	"github.com/spec-kit/integration-service/internal/slack"
)

// ReplyOutcome records what happened to a single candidate reply.
type ReplyOutcome struct {
	SlackTS          string `json:"slack_ts"`
	Status           string `json:"status"` // synced, skipped or failed
	TrackerCommentID string `json:"tracker_comment_id,omitempty"`
	Error            string `json:"error,omitempty"`
}

// ReplySyncResult aggregates one ticket's sync run.
type ReplySyncResult struct {
	Success      bool           `json:"success"`
	TicketKey    string         `json:"ticket_key"`
	SyncedCount  int            `json:"synced_count"`
	SkippedCount int            `json:"skipped_count"`
	FailedCount  int            `json:"failed_count"`
	Replies      []ReplyOutcome `json:"replies,omitempty"`
	Error        string         `json:"error,omitempty"`
}

// BatchSyncResult aggregates a sweep over every syncable link.
type BatchSyncResult struct {
	TicketsProcessed int               `json:"tickets_processed"`
	TicketsFailed    int               `json:"tickets_failed"`
	SyncedCount      int               `json:"synced_count"`
	SkippedCount     int               `json:"skipped_count"`
	FailedCount      int               `json:"failed_count"`
	PerTicket        []ReplySyncResult `json:"per_ticket,omitempty"`
}

// ReplySyncEngine relays human thread replies to the tracker as comments,
// deduplicating against prior syncs.
type ReplySyncEngine struct {
	tickets    repository.TicketRepository
	threads    repository.ThreadRepository
	links      repository.LinkRepository
	replySyncs repository.ReplySyncRepository
	chat       slack.Client
	tracker    jira.Client
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
	fetchLimit int
}

// ReplySyncDependencies bundles collaborators for the engine.
type ReplySyncDependencies struct {
	TicketRepo    repository.TicketRepository
	ThreadRepo    repository.ThreadRepository
	LinkRepo      repository.LinkRepository
	ReplySyncRepo repository.ReplySyncRepository
	Chat          slack.Client
	Tracker       jira.Client
	Dispatcher    events.Dispatcher
	Metrics       *observability.Metrics
	Logger        *zap.Logger
	FetchLimit    int
}

// NewReplySyncEngine constructs the engine.
func NewReplySyncEngine(deps ReplySyncDependencies) *ReplySyncEngine {
	return &ReplySyncEngine{
		tickets:    deps.TicketRepo,
		threads:    deps.ThreadRepo,
		links:      deps.LinkRepo,
		replySyncs: deps.ReplySyncRepo,
		chat:       deps.Chat,
		tracker:    deps.Tracker,
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
		logger:     deps.Logger,
		fetchLimit: deps.FetchLimit,
	}
}

// SyncReplies fetches the ticket's thread replies and relays the human ones
// not yet recorded. One failed reply never aborts the batch; a reply is never
// relayed twice because the (ticket, slack_ts) record is checked first.
func (e *ReplySyncEngine) SyncReplies(ctx context.Context, ticketKey string) *ReplySyncResult {
	result := &ReplySyncResult{TicketKey: ticketKey}

	ticket, err := e.tickets.GetByKey(ctx, ticketKey)
	if err != nil {
		if repository.IsNotFound(err) {
			result.Error = fmt.Sprintf("ticket %s not found", ticketKey)
		} else {
			result.Error = err.Error()
		}
		return result
	}

	link, err := e.links.FindActiveByTicket(ctx, ticket.ID)
	if err != nil {
		if repository.IsNotFound(err) {
			result.Error = fmt.Sprintf("no linked thread for ticket %s", ticketKey)
		} else {
			result.Error = err.Error()
		}
		return result
	}

	thread, err := e.threads.GetByID(ctx, link.ThreadID)
	if err != nil {
		if repository.IsNotFound(err) {
			result.Error = fmt.Sprintf("thread %s missing for link %s", link.ThreadID, link.ID)
		} else {
			result.Error = err.Error()
		}
		return result
	}

	replies, err := e.chat.GetThreadReplies(ctx, thread.ChannelID, thread.ThreadTS, e.fetchLimit)
	if err != nil {
		result.Error = err.Error()
		return result
	}

	for _, reply := range replies {
		// The root message and bot posts are not human replies.
		if reply.TS == thread.ThreadTS || reply.IsBotMessage() {
			continue
		}
		outcome := e.syncOne(ctx, ticket, thread, reply)
		result.Replies = append(result.Replies, outcome)
		switch outcome.Status {
		case domain.ReplyOutcomeSynced:
			result.SyncedCount++
		case domain.ReplyOutcomeSkipped:
			result.SkippedCount++
		default:
			result.FailedCount++
		}
	}

	result.Success = true
	e.metrics.RecordReplySync("synced", result.SyncedCount)
	e.metrics.RecordReplySync("skipped", result.SkippedCount)
	e.metrics.RecordReplySync("failed", result.FailedCount)
	e.logger.Info("reply sync completed",
		zap.String("ticket_key", ticketKey),
		zap.Int("synced", result.SyncedCount),
		zap.Int("skipped", result.SkippedCount),
		zap.Int("failed", result.FailedCount))
	return result
}

func (e *ReplySyncEngine) syncOne(ctx context.Context, ticket *domain.Ticket, thread *domain.Thread, reply slack.Message) ReplyOutcome {
	outcome := ReplyOutcome{SlackTS: reply.TS}

	if _, err := e.replySyncs.GetByTicketAndTS(ctx, ticket.ID, reply.TS); err == nil {
		outcome.Status = domain.ReplyOutcomeSkipped
		return outcome
	} else if !repository.IsNotFound(err) {
		outcome.Status = domain.ReplyOutcomeFailed
		outcome.Error = err.Error()
		return outcome
	}

	commentID, err := e.tracker.AddComment(ctx, ticket.Key, formatReplyComment(reply))
	if err != nil {
		outcome.Status = domain.ReplyOutcomeFailed
		outcome.Error = err.Error()
		return outcome
	}

	record := &domain.ReplySync{
		TicketID:         ticket.ID,
		ThreadID:         thread.ID,
		SlackMessageTS:   reply.TS,
		SlackUserID:      reply.User,
		SlackUserName:    reply.Username,
		MessageBody:      reply.Text,
		TrackerCommentID: commentID,
		SyncStatus:       domain.ReplySyncStatusSynced,
	}
	if sentAt := reply.SentAt(); !sentAt.IsZero() {
		record.SentAt = &sentAt
	}
	if err := e.replySyncs.Create(ctx, record); err != nil {
		if errors.Is(err, repository.ErrAlreadyExists) {
			// Concurrent sync won the insert; its record stands.
			outcome.Status = domain.ReplyOutcomeSkipped
			return outcome
		}
		outcome.Status = domain.ReplyOutcomeFailed
		outcome.Error = err.Error()
		return outcome
	}

	outcome.Status = domain.ReplyOutcomeSynced
	outcome.TrackerCommentID = commentID
	e.publishEvent(ctx, events.Event{
		Type:      events.EventReplySynced,
		TicketKey: ticket.Key,
		Payload: events.ReplySyncedPayload{
			TicketID:         ticket.ID,
			SlackMessageTS:   reply.TS,
			TrackerCommentID: commentID,
			AuthorName:       reply.Username,
		},
	})
	return outcome
}

// SyncAllLinkedTickets sweeps every link with sync enabled and an active
// status. One ticket's failure never stops the batch.
func (e *ReplySyncEngine) SyncAllLinkedTickets(ctx context.Context) (*BatchSyncResult, error) {
	links, err := e.links.ListSyncable(ctx)
	if err != nil {
		return nil, err
	}

	batch := &BatchSyncResult{}
	for _, link := range links {
		ticket, err := e.tickets.GetByID(ctx, link.TicketID)
		if err != nil {
			batch.TicketsFailed++
			e.logger.Warn("batch sync: ticket lookup failed",
				zap.String("link_id", link.ID),
				zap.Error(err))
			continue
		}

		result := e.SyncReplies(ctx, ticket.Key)
		batch.PerTicket = append(batch.PerTicket, *result)
		if !result.Success {
			batch.TicketsFailed++
			continue
		}
		batch.TicketsProcessed++
		batch.SyncedCount += result.SyncedCount
		batch.SkippedCount += result.SkippedCount
		batch.FailedCount += result.FailedCount
	}

	e.logger.Info("batch reply sync completed",
		zap.Int("tickets_processed", batch.TicketsProcessed),
		zap.Int("tickets_failed", batch.TicketsFailed),
		zap.Int("synced", batch.SyncedCount))
	return batch, nil
}

func (e *ReplySyncEngine) publishEvent(ctx context.Context, event events.Event) {
	publishEvent(ctx, e.dispatcher, event)
}

// formatReplyComment renders a chat reply as a tracker comment body.
func formatReplyComment(reply slack.Message) string {
	author := reply.Username
	if author == "" {
		author = reply.User
	}
	if author == "" {
		author = "unknown user"
	}
	body := reply.Text
	if body == "" {
		body = "(empty message)"
	}
	when := "unknown time"
	if sentAt := reply.SentAt(); !sentAt.IsZero() {
		when = sentAt.Local().Format("2006-01-02 15:04")
	}
	return fmt.Sprintf("[Slack] %s at %s:\n%s", author, when, body)
}
