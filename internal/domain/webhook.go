package domain

// Jira webhook payload shapes. Field names follow the tracker's native JSON
// and are read positionally, so they must stay bit-exact.

// WebhookEvent enumerates the tracker event names this service acts on.
type WebhookEvent string

const (
	WebhookEventIssueCreated WebhookEvent = "jira:issue_created"
	WebhookEventIssueUpdated WebhookEvent = "jira:issue_updated"
	WebhookEventIssueDeleted WebhookEvent = "jira:issue_deleted"
)

// UnknownIssueKey is the sentinel used when a payload carries no issue key.
const UnknownIssueKey = "unknown"

// WebhookPayload is the top-level tracker webhook body.
type WebhookPayload struct {
	WebhookEvent       string            `json:"webhookEvent"`
	IssueEventTypeName string            `json:"issue_event_type_name,omitempty"`
	Issue              *WebhookIssue     `json:"issue,omitempty"`
	User               *WebhookUser      `json:"user,omitempty"`
	Changelog          *WebhookChangelog `json:"changelog,omitempty"`
}

// WebhookIssue is the issue object embedded in webhook payloads.
type WebhookIssue struct {
	ID     string             `json:"id"`
	Key    string             `json:"key"`
	Fields WebhookIssueFields `json:"fields"`
}

// WebhookIssueFields carries the subset of issue fields this service reads.
type WebhookIssueFields struct {
	Summary     string          `json:"summary"`
	Description string          `json:"description"`
	Status      *NamedField     `json:"status,omitempty"`
	Priority    *NamedField     `json:"priority,omitempty"`
	IssueType   *NamedField     `json:"issuetype,omitempty"`
	Assignee    *WebhookUser    `json:"assignee,omitempty"`
	Project     *WebhookProject `json:"project,omitempty"`
}

// NamedField is the tracker's generic {name} wrapper (status, priority, type).
type NamedField struct {
	Name string `json:"name"`
}

// WebhookProject identifies the tracker project the issue belongs to.
type WebhookProject struct {
	ID   string `json:"id,omitempty"`
	Key  string `json:"key"`
	Name string `json:"name,omitempty"`
}

// WebhookUser identifies the acting or assigned tracker user.
type WebhookUser struct {
	AccountID    string `json:"accountId,omitempty"`
	Name         string `json:"name,omitempty"`
	DisplayName  string `json:"displayName,omitempty"`
	EmailAddress string `json:"emailAddress,omitempty"`
}

// WebhookChangelog lists field changes carried by update events.
type WebhookChangelog struct {
	ID    string                 `json:"id"`
	Items []WebhookChangelogItem `json:"items"`
}

// WebhookChangelogItem is one changed field within a changelog.
type WebhookChangelogItem struct {
	Field      string `json:"field"`
	FromString string `json:"fromString"`
	ToString   string `json:"toString"`
}

// Event returns the payload's event name.
func (p *WebhookPayload) Event() WebhookEvent {
	return WebhookEvent(p.WebhookEvent)
}

// IssueKey extracts the issue key, falling back to the sentinel when the
// payload carries no issue. Missing keys never fail webhook handling.
func (p *WebhookPayload) IssueKey() string {
	if p.Issue == nil || p.Issue.Key == "" {
		return UnknownIssueKey
	}
	return p.Issue.Key
}

// StatusChange returns the changelog's status transition, if any.
func (p *WebhookPayload) StatusChange() (from, to string, ok bool) {
	if p.Changelog == nil {
		return "", "", false
	}
	for _, item := range p.Changelog.Items {
		if item.Field == "status" {
			return item.FromString, item.ToString, true
		}
	}
	return "", "", false
}
