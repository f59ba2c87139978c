package domain

import "time"

// LinkType identifies the relationship kind between a ticket and a thread.
type LinkType string

// LinkTypeTicketThread is the standard discussion-thread association.
const LinkTypeTicketThread LinkType = "ticket_thread"

// SyncStatus enumerates link sync states.
type SyncStatus string

const (
	SyncStatusActive   SyncStatus = "active"
	SyncStatusPaused   SyncStatus = "paused"
	SyncStatusDisabled SyncStatus = "disabled"
)

// Link is the durable association between one Ticket and one Thread.
// At most one link may exist per (ticket_id, thread_id, link_type).
// Links are never deleted; they are soft-disabled via SyncStatus/SyncEnabled.
type Link struct {
	ID          string
	TicketID    string
	ThreadID    string
	LinkType    LinkType
	SyncEnabled bool
	SyncStatus  SyncStatus
	LastSyncAt  *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Syncable reports whether the reply sync engine should process this link.
func (l *Link) Syncable() bool {
	return l.SyncEnabled && l.SyncStatus == SyncStatusActive
}
