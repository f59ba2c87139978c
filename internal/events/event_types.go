package events

import "time"

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventThreadCreated   EventType = "thread_created"
	EventUpdatePosted    EventType = "update_posted"
	EventReplySynced     EventType = "reply_synced"
	EventClosureNotified EventType = "closure_notified"
	EventWebhookIgnored  EventType = "webhook_ignored"
)

// Event represents an integration event emitted by the orchestration layer.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketKey string      `json:"ticket_key"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// ThreadCreatedPayload payload.
type ThreadCreatedPayload struct {
	TicketID  string `json:"ticket_id"`
	ThreadID  string `json:"thread_id"`
	LinkID    string `json:"link_id"`
	ChannelID string `json:"channel_id"`
	Permalink string `json:"permalink,omitempty"`
}

// UpdatePostedPayload payload.
type UpdatePostedPayload struct {
	TicketID string `json:"ticket_id"`
	ThreadID string `json:"thread_id"`
	Status   string `json:"status"`
}

// ReplySyncedPayload payload.
type ReplySyncedPayload struct {
	TicketID         string `json:"ticket_id"`
	SlackMessageTS   string `json:"slack_message_ts"`
	TrackerCommentID string `json:"tracker_comment_id"`
	AuthorName       string `json:"author_name,omitempty"`
}

// ClosureNotifiedPayload payload.
type ClosureNotifiedPayload struct {
	TicketID      string `json:"ticket_id"`
	ThreadID      string `json:"thread_id"`
	TicketStatus  string `json:"ticket_status"`
	ReactionAdded bool   `json:"reaction_added"`
}

// WebhookIgnoredPayload payload.
type WebhookIgnoredPayload struct {
	Event  string `json:"event"`
	Reason string `json:"reason"`
}
