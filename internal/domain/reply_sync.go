package domain

import "time"

// ReplySyncStatus enumerates relay outcomes recorded per reply.
type ReplySyncStatus string

const (
	ReplySyncStatusSynced ReplySyncStatus = "synced"
	ReplySyncStatusFailed ReplySyncStatus = "failed"
)

// Per-reply outcomes reported by the reply sync engine.
const (
	ReplyOutcomeSynced  = "synced"
	ReplyOutcomeSkipped = "skipped"
	ReplyOutcomeFailed  = "failed"
)

// ReplySync is the dedup/audit row proving a specific chat reply was relayed
// to the tracker as a comment. The pair (TicketID, SlackMessageTS) is the
// deduplication key and must be unique.
type ReplySync struct {
	ID               string
	TicketID         string
	ThreadID         string
	SlackMessageTS   string
	SlackUserID      string
	SlackUserName    string
	MessageBody      string
	TrackerCommentID string
	SyncStatus       ReplySyncStatus
	SentAt           *time.Time
	SyncedAt         time.Time
}
