package domain

import "time"

// ClosureNotification is the dedup/audit row proving the one-time closing
// message and reaction were sent for a (ticket, thread) pair. Its uniqueness
// on (TicketID, ThreadID) is what enforces notify-at-most-once.
type ClosureNotification struct {
	ID            string
	TicketID      string
	ThreadID      string
	TicketStatus  string
	MessageTS     string
	ReactionAdded bool
	ReactionEmoji *string
	NotifiedAt    time.Time
}
