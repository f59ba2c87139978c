package domain

import "time"

// Ticket mirrors an issue-tracker record. The tracker owns it; this service
// materializes it from webhook payloads or API sync and otherwise only reads it.
type Ticket struct {
	ID           string
	Key          string
	ProjectKey   string
	Summary      string
	Description  string
	Status       string
	Priority     string
	IssueType    string
	AssigneeName string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// HasAssignee reports whether the tracker recorded an assignee.
func (t *Ticket) HasAssignee() bool {
	return t.AssigneeName != ""
}
