package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebhookPayloadUnmarshal(t *testing.T) {
	raw := `{
		"webhookEvent": "jira:issue_updated",
		"issue_event_type_name": "issue_generic",
		"issue": {
			"id": "10001",
			"key": "PROJ-9",
			"fields": {
				"summary": "Checkout fails under load",
				"description": "Orders time out.",
				"status": {"name": "In Progress"},
				"priority": {"name": "High"},
				"issuetype": {"name": "Bug"},
				"assignee": {"displayName": "Dana Ops"},
				"project": {"key": "PROJ"}
			}
		},
		"changelog": {
			"id": "20001",
			"items": [
				{"field": "status", "fromString": "Open", "toString": "In Progress"}
			]
		}
	}`

	var payload WebhookPayload
	require.NoError(t, json.Unmarshal([]byte(raw), &payload))

	assert.Equal(t, WebhookEventIssueUpdated, payload.Event())
	assert.Equal(t, "PROJ-9", payload.IssueKey())
	require.NotNil(t, payload.Issue)
	assert.Equal(t, "Checkout fails under load", payload.Issue.Fields.Summary)
	assert.Equal(t, "In Progress", payload.Issue.Fields.Status.Name)
	assert.Equal(t, "Dana Ops", payload.Issue.Fields.Assignee.DisplayName)
	assert.Equal(t, "PROJ", payload.Issue.Fields.Project.Key)

	from, to, ok := payload.StatusChange()
	require.True(t, ok)
	assert.Equal(t, "Open", from)
	assert.Equal(t, "In Progress", to)
}

func TestWebhookPayloadIssueKeyFallback(t *testing.T) {
	assert.Equal(t, UnknownIssueKey, (&WebhookPayload{}).IssueKey())
	assert.Equal(t, UnknownIssueKey, (&WebhookPayload{Issue: &WebhookIssue{}}).IssueKey())
	assert.Equal(t, "PROJ-1", (&WebhookPayload{Issue: &WebhookIssue{Key: "PROJ-1"}}).IssueKey())
}

func TestWebhookPayloadStatusChangeAbsent(t *testing.T) {
	payload := &WebhookPayload{
		Changelog: &WebhookChangelog{
			Items: []WebhookChangelogItem{{Field: "assignee", FromString: "", ToString: "Dana Ops"}},
		},
	}
	_, _, ok := payload.StatusChange()
	assert.False(t, ok)

	_, _, ok = (&WebhookPayload{}).StatusChange()
	assert.False(t, ok)
}
