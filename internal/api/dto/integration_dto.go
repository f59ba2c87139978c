package dto

import (
	"time"

	"github.com/spec-kit/integration-service/internal/domain"
)

// TicketSummary response.
type TicketSummary struct {
	ID           string    `json:"id"`
	Key          string    `json:"key"`
	ProjectKey   string    `json:"project_key"`
	Summary      string    `json:"summary"`
	Status       string    `json:"status"`
	Priority     string    `json:"priority"`
	IssueType    string    `json:"issue_type"`
	AssigneeName string    `json:"assignee_name,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ThreadSummary response.
type ThreadSummary struct {
	ID           string    `json:"id"`
	ChannelID    string    `json:"channel_id"`
	ThreadTS     string    `json:"thread_ts"`
	Permalink    string    `json:"permalink,omitempty"`
	CreatedByBot bool      `json:"created_by_bot"`
	CreatedAt    time.Time `json:"created_at"`
}

// LinkSummary response.
type LinkSummary struct {
	ID          string     `json:"id"`
	TicketID    string     `json:"ticket_id"`
	ThreadID    string     `json:"thread_id"`
	LinkType    string     `json:"link_type"`
	SyncEnabled bool       `json:"sync_enabled"`
	SyncStatus  string     `json:"sync_status"`
	LastSyncAt  *time.Time `json:"last_sync_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// TicketWithThreadResponse bundles a ticket with its linked thread, if any.
type TicketWithThreadResponse struct {
	Ticket *TicketSummary `json:"ticket"`
	Thread *ThreadSummary `json:"thread,omitempty"`
	Link   *LinkSummary   `json:"link,omitempty"`
}

// FromTicket maps a domain ticket.
func FromTicket(ticket *domain.Ticket) *TicketSummary {
	if ticket == nil {
		return nil
	}
	return &TicketSummary{
		ID:           ticket.ID,
		Key:          ticket.Key,
		ProjectKey:   ticket.ProjectKey,
		Summary:      ticket.Summary,
		Status:       ticket.Status,
		Priority:     ticket.Priority,
		IssueType:    ticket.IssueType,
		AssigneeName: ticket.AssigneeName,
		CreatedAt:    ticket.CreatedAt,
		UpdatedAt:    ticket.UpdatedAt,
	}
}

// FromThread maps a domain thread.
func FromThread(thread *domain.Thread) *ThreadSummary {
	if thread == nil {
		return nil
	}
	return &ThreadSummary{
		ID:           thread.ID,
		ChannelID:    thread.ChannelID,
		ThreadTS:     thread.ThreadTS,
		Permalink:    thread.Permalink,
		CreatedByBot: thread.CreatedByBot,
		CreatedAt:    thread.CreatedAt,
	}
}

// FromLink maps a domain link.
func FromLink(link *domain.Link) *LinkSummary {
	if link == nil {
		return nil
	}
	return &LinkSummary{
		ID:          link.ID,
		TicketID:    link.TicketID,
		ThreadID:    link.ThreadID,
		LinkType:    string(link.LinkType),
		SyncEnabled: link.SyncEnabled,
		SyncStatus:  string(link.SyncStatus),
		LastSyncAt:  link.LastSyncAt,
		CreatedAt:   link.CreatedAt,
	}
}
