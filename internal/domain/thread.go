package domain

import "time"

// Thread records a chat-platform root message whose reply stream carries one
// ticket's discussion. Threads are created once and never deleted; the
// permalink may be filled in after creation.
type Thread struct {
	ID              string
	ChannelID       string
	ThreadTS        string
	Permalink       string
	ParentMessageTS string
	CreatedByBot    bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
