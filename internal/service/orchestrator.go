package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/integration-service/internal/config"
	"github.com/spec-kit/integration-service/internal/domain"
	"github.com/spec-kit/integration-service/internal/events"
	"github.com/spec-kit/integration-service/internal/monitor"
	"github.com/spec-kit/integration-service/internal/observability"
	"github.com/spec-kit/integration-service/internal/persistence"
	"github.com/spec-kit/integration-service/internal/repository"
	"github.com/spec-kit/integration-service/internal/slack"
)

// WebhookResult is the structured outcome returned for every webhook,
// including internal failures. The HTTP layer maps it to status codes.
type WebhookResult struct {
	Success         bool           `json:"success"`
	Event           string         `json:"event"`
	IssueKey        string         `json:"issue_key"`
	TicketID        string         `json:"ticket_id,omitempty"`
	ThreadID        string         `json:"thread_id,omitempty"`
	LinkID          string         `json:"link_id,omitempty"`
	ThreadPermalink string         `json:"thread_permalink,omitempty"`
	Message         string         `json:"message,omitempty"`
	Error           string         `json:"error,omitempty"`
	Closure         *ClosureResult `json:"closure,omitempty"`
}

// ticketLockTTL bounds how long a webhook may serialize other deliveries for
// the same ticket. The DB unique indexes remain the correctness backstop.
const ticketLockTTL = 15 * time.Second

// Orchestrator is the top-level coordinator: it classifies incoming webhook
// events and dispatches to the thread workflow and closure notifier. It is
// the single boundary converting unexpected failures into structured results.
type Orchestrator struct {
	monitor    *monitor.TicketMonitor
	workflow   *ThreadWorkflow
	notifier   *ClosureNotifier
	threads    repository.ThreadRepository
	links      repository.LinkRepository
	chat       slack.Client
	locks      *persistence.Redis
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
	sync       config.SyncConfig
}

// OrchestratorDependencies bundles collaborators for the orchestrator.
type OrchestratorDependencies struct {
	Monitor    *monitor.TicketMonitor
	Workflow   *ThreadWorkflow
	Notifier   *ClosureNotifier
	ThreadRepo repository.ThreadRepository
	LinkRepo   repository.LinkRepository
	Chat       slack.Client
	Locks      *persistence.Redis
	Dispatcher events.Dispatcher
	Metrics    *observability.Metrics
	Logger     *zap.Logger
}

// NewOrchestrator constructs the orchestrator.
func NewOrchestrator(cfg *config.Config, deps OrchestratorDependencies) *Orchestrator {
	return &Orchestrator{
		monitor:    deps.Monitor,
		workflow:   deps.Workflow,
		notifier:   deps.Notifier,
		threads:    deps.ThreadRepo,
		links:      deps.LinkRepo,
		chat:       deps.Chat,
		locks:      deps.Locks,
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
		logger:     deps.Logger,
		sync:       cfg.Sync,
	}
}

// HandleWebhook processes one raw tracker webhook delivery. It always
// returns a structured result; nothing below this boundary may crash the
// caller. Redelivered or out-of-order events converge on the same end
// state: one thread, one link per ticket.
func (o *Orchestrator) HandleWebhook(ctx context.Context, rawPayload []byte) (result *WebhookResult) {
	result = &WebhookResult{}
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("webhook handling panicked", zap.Any("panic", r))
			result.Success = false
			result.Error = fmt.Sprintf("internal error: %v", r)
		}
		outcome := "handled"
		if !result.Success {
			outcome = "failed"
		} else if result.TicketID == "" {
			outcome = "ignored"
		}
		o.metrics.RecordWebhook(result.Event, outcome)
	}()

	var payload domain.WebhookPayload
	if err := json.Unmarshal(rawPayload, &payload); err != nil {
		result.IssueKey = domain.UnknownIssueKey
		result.Error = fmt.Sprintf("malformed webhook payload: %v", err)
		return result
	}
	result.Event = payload.WebhookEvent
	result.IssueKey = payload.IssueKey()

	if held := o.lockTicket(ctx, result.IssueKey); held {
		defer o.unlockTicket(result.IssueKey)
	}

	outcome, err := o.monitor.ProcessWebhookEvent(ctx, &payload)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	if !outcome.Actionable() {
		result.Success = true
		result.Message = fmt.Sprintf("event ignored: %s", outcome.Reason)
		publishEvent(ctx, o.dispatcher, events.Event{
			Type:      events.EventWebhookIgnored,
			TicketKey: result.IssueKey,
			Payload: events.WebhookIgnoredPayload{
				Event:  payload.WebhookEvent,
				Reason: outcome.Reason,
			},
		})
		return result
	}

	ticket := outcome.Ticket
	result.TicketID = ticket.ID

	switch payload.Event() {
	case domain.WebhookEventIssueUpdated:
		o.handleUpdated(ctx, ticket, result)
	default:
		o.handleCreated(ctx, ticket, result)
	}
	return result
}

func (o *Orchestrator) handleCreated(ctx context.Context, ticket *domain.Ticket, result *WebhookResult) {
	// A redelivered creation event must not spawn a second thread; the
	// ticket's active link is the dedup point.
	if link, err := o.links.FindActiveByTicket(ctx, ticket.ID); err == nil {
		thread, err := o.threads.GetByID(ctx, link.ThreadID)
		if err != nil {
			result.Error = err.Error()
			return
		}
		result.Success = true
		result.ThreadID = thread.ID
		result.LinkID = link.ID
		result.ThreadPermalink = thread.Permalink
		result.Message = fmt.Sprintf("thread already exists for %s", ticket.Key)
		return
	} else if !repository.IsNotFound(err) {
		result.Error = err.Error()
		return
	}

	thread, link, err := o.workflow.CreateThread(ctx, ticket, "")
	if err != nil {
		result.Error = err.Error()
		return
	}
	result.Success = true
	result.ThreadID = thread.ID
	result.LinkID = link.ID
	result.ThreadPermalink = thread.Permalink
	result.Message = fmt.Sprintf("thread created for %s", ticket.Key)

	publishEvent(ctx, o.dispatcher, events.Event{
		Type:      events.EventThreadCreated,
		TicketKey: ticket.Key,
		Payload: events.ThreadCreatedPayload{
			TicketID:  ticket.ID,
			ThreadID:  thread.ID,
			LinkID:    link.ID,
			ChannelID: thread.ChannelID,
			Permalink: thread.Permalink,
		},
	})
}

func (o *Orchestrator) handleUpdated(ctx context.Context, ticket *domain.Ticket, result *WebhookResult) {
	link, err := o.links.FindActiveByTicket(ctx, ticket.ID)
	if err != nil {
		if repository.IsNotFound(err) {
			// Self-healing: an update for a ticket with no thread yet
			// behaves like a creation event.
			o.handleCreated(ctx, ticket, result)
			return
		}
		result.Error = err.Error()
		return
	}

	thread, err := o.threads.GetByID(ctx, link.ThreadID)
	if err != nil {
		result.Error = err.Error()
		return
	}
	if thread.Permalink == "" {
		// The platform may not have returned a permalink at creation time;
		// backfill it whenever the thread is touched again.
		bestEffort(o.logger, "backfill permalink", func() error {
			permalink, err := o.chat.GetPermalink(ctx, thread.ChannelID, thread.ThreadTS)
			if err != nil {
				return err
			}
			if err := o.threads.UpdatePermalink(ctx, thread.ID, permalink); err != nil {
				return err
			}
			thread.Permalink = permalink
			return nil
		})
	}
	result.ThreadID = thread.ID
	result.LinkID = link.ID
	result.ThreadPermalink = thread.Permalink

	// The update post is the single failure point for this branch; it is
	// not swallowed.
	text := fmt.Sprintf("*%s* updated — status: %s, priority: %s, assignee: %s",
		ticket.Key, valueOrDash(ticket.Status), valueOrDash(ticket.Priority), valueOrDash(ticket.AssigneeName))
	if _, err := o.chat.PostMessage(ctx, slack.PostMessageInput{
		Channel:  thread.ChannelID,
		Text:     text,
		ThreadTS: thread.ThreadTS,
	}); err != nil {
		o.logger.Error("update post failed",
			zap.String("ticket_key", ticket.Key),
			zap.Error(err))
		result.Error = err.Error()
		return
	}

	if err := o.links.TouchLastSync(ctx, link.ID); err != nil {
		o.logger.Warn("failed to bump last_sync_at",
			zap.String("link_id", link.ID),
			zap.Error(err))
	}

	result.Success = true
	result.Message = fmt.Sprintf("update posted for %s", ticket.Key)
	publishEvent(ctx, o.dispatcher, events.Event{
		Type:      events.EventUpdatePosted,
		TicketKey: ticket.Key,
		Payload: events.UpdatePostedPayload{
			TicketID: ticket.ID,
			ThreadID: thread.ID,
			Status:   ticket.Status,
		},
	})

	if o.sync.IsClosedStatus(ticket.Status) {
		closure := o.notifier.NotifyClosure(ctx, ticket, link)
		result.Closure = closure
		if closure.Success {
			if closure.AlreadyNotified {
				result.Message = fmt.Sprintf("update posted for %s; closure already notified", ticket.Key)
			} else {
				result.Message = fmt.Sprintf("update posted for %s; closure notified", ticket.Key)
			}
		} else {
			result.Message = fmt.Sprintf("update posted for %s; closure notification failed", ticket.Key)
		}
	}
}

// GetTicketWithThread resolves a ticket and its linked thread for admin
// tooling. The thread and link are nil when the ticket has no link yet.
func (o *Orchestrator) GetTicketWithThread(ctx context.Context, ticketKey string) (*domain.Ticket, *domain.Thread, *domain.Link, error) {
	ticket, err := o.monitor.GetTicketByKey(ctx, ticketKey)
	if err != nil {
		return nil, nil, nil, err
	}
	if ticket == nil {
		return nil, nil, nil, nil
	}

	link, err := o.links.FindActiveByTicket(ctx, ticket.ID)
	if err != nil {
		if repository.IsNotFound(err) {
			return ticket, nil, nil, nil
		}
		return nil, nil, nil, err
	}
	thread, err := o.threads.GetByID(ctx, link.ThreadID)
	if err != nil {
		if repository.IsNotFound(err) {
			return ticket, nil, link, nil
		}
		return nil, nil, nil, err
	}
	return ticket, thread, link, nil
}

// GetLinksForThread lists every link attached to a thread.
func (o *Orchestrator) GetLinksForThread(ctx context.Context, threadID string) ([]domain.Link, error) {
	return o.links.ListByThread(ctx, threadID)
}

// lockTicket serializes same-ticket webhook handling through Redis as a fast
// path. Lock acquisition is advisory: on contention or Redis outage the
// handler proceeds and relies on the unique indexes.
func (o *Orchestrator) lockTicket(ctx context.Context, issueKey string) bool {
	if o.locks == nil || issueKey == domain.UnknownIssueKey {
		return false
	}
	held, err := o.locks.TryLock(ctx, "ticket:"+issueKey, ticketLockTTL)
	if err != nil {
		o.logger.Debug("ticket lock unavailable", zap.String("issue_key", issueKey), zap.Error(err))
		return false
	}
	return held
}

func (o *Orchestrator) unlockTicket(issueKey string) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := o.locks.Unlock(ctx, "ticket:"+issueKey); err != nil {
		o.logger.Debug("ticket unlock failed", zap.String("issue_key", issueKey), zap.Error(err))
	}
}

// publishEvent fills event defaults and publishes, tolerating a nil
// dispatcher.
func publishEvent(ctx context.Context, dispatcher events.Dispatcher, event events.Event) {
	if dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = dispatcher.Publish(ctx, event)
}
