package monitor

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/integration-service/internal/domain"
	"github.com/spec-kit/integration-service/internal/jira"
	"github.com/spec-kit/integration-service/internal/repository"
	apperrors "github.com/spec-kit/integration-service/pkg/util/errorutil"
)

// Outcome is the tagged result of webhook classification. Exactly one of
// Ticket or Reason is meaningful: an actionable event carries the
// materialized ticket, a non-actionable one carries the ignore reason.
type Outcome struct {
	Ticket *domain.Ticket
	Reason string
}

// Actionable reports whether the event produced a ticket to act on.
func (o Outcome) Actionable() bool {
	return o.Ticket != nil
}

// TicketMonitor materializes tracker tickets from webhook payloads or, when
// a lookup misses locally, from the tracker API.
type TicketMonitor struct {
	tickets repository.TicketRepository
	tracker jira.Client
	logger  *zap.Logger
}

// NewTicketMonitor constructs the monitor.
func NewTicketMonitor(tickets repository.TicketRepository, tracker jira.Client, logger *zap.Logger) *TicketMonitor {
	return &TicketMonitor{tickets: tickets, tracker: tracker, logger: logger}
}

// ProcessWebhookEvent classifies the payload and upserts the ticket for
// actionable events. Comment-only and unrecognized events are ignored, which
// is a successful outcome, not an error.
func (m *TicketMonitor) ProcessWebhookEvent(ctx context.Context, payload *domain.WebhookPayload) (Outcome, error) {
	switch payload.Event() {
	case domain.WebhookEventIssueCreated, domain.WebhookEventIssueUpdated:
	default:
		return Outcome{Reason: "event type not actionable"}, nil
	}
	if payload.Issue == nil {
		return Outcome{Reason: "payload carries no issue"}, nil
	}

	ticket := ticketFromWebhookIssue(payload.Issue)
	if err := m.tickets.Upsert(ctx, ticket); err != nil {
		return Outcome{}, err
	}

	m.logger.Debug("ticket materialized from webhook",
		zap.String("ticket_key", ticket.Key),
		zap.String("status", ticket.Status))
	return Outcome{Ticket: ticket}, nil
}

// GetTicketByKey returns the local ticket, syncing it from the tracker when
// the local row is missing. A key unknown to both sides returns nil.
func (m *TicketMonitor) GetTicketByKey(ctx context.Context, key string) (*domain.Ticket, error) {
	ticket, err := m.tickets.GetByKey(ctx, key)
	if err == nil {
		return ticket, nil
	}
	if !repository.IsNotFound(err) {
		return nil, err
	}

	issue, err := m.tracker.GetIssue(ctx, key)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}

	ticket = ticketFromIssue(issue)
	if err := m.tickets.Upsert(ctx, ticket); err != nil {
		return nil, err
	}
	return ticket, nil
}

func ticketFromWebhookIssue(issue *domain.WebhookIssue) *domain.Ticket {
	ticket := &domain.Ticket{
		Key:         issue.Key,
		Summary:     issue.Fields.Summary,
		Description: issue.Fields.Description,
	}
	if issue.Fields.Project != nil {
		ticket.ProjectKey = issue.Fields.Project.Key
	}
	if issue.Fields.Status != nil {
		ticket.Status = issue.Fields.Status.Name
	}
	if issue.Fields.Priority != nil {
		ticket.Priority = issue.Fields.Priority.Name
	}
	if issue.Fields.IssueType != nil {
		ticket.IssueType = issue.Fields.IssueType.Name
	}
	if issue.Fields.Assignee != nil {
		ticket.AssigneeName = issue.Fields.Assignee.DisplayName
	}
	return ticket
}

func ticketFromIssue(issue *jira.Issue) *domain.Ticket {
	ticket := &domain.Ticket{
		Key:         issue.Key,
		Summary:     issue.Fields.Summary,
		Description: issue.Fields.Description,
	}
	if issue.Fields.Project != nil {
		ticket.ProjectKey = issue.Fields.Project.Key
	}
	if issue.Fields.Status != nil {
		ticket.Status = issue.Fields.Status.Name
	}
	if issue.Fields.Priority != nil {
		ticket.Priority = issue.Fields.Priority.Name
	}
	if issue.Fields.IssueType != nil {
		ticket.IssueType = issue.Fields.IssueType.Name
	}
	if issue.Fields.Assignee != nil {
		ticket.AssigneeName = issue.Fields.Assignee.DisplayName
	}
	return ticket
}
