package service

import (
	"context"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/integration-service/internal/domain"
)

func TestCreateThreadPostsAnnouncement(t *testing.T) {
	f := newFixture(t)
	ticket := &domain.Ticket{
		Key:          "PROJ-9",
		ProjectKey:   "PROJ",
		Summary:      "Checkout fails under load",
		Description:  "Orders time out when the queue backs up.",
		Status:       "Open",
		Priority:     "High",
		IssueType:    "Bug",
		AssigneeName: "Dana Ops",
	}
	require.NoError(t, f.tickets.Upsert(context.Background(), ticket))

	thread, link, err := f.workflow.CreateThread(context.Background(), ticket, "")
	require.NoError(t, err)

	assert.Equal(t, "C12345", thread.ChannelID)
	assert.NotEmpty(t, thread.ThreadTS)
	assert.NotEmpty(t, thread.Permalink)
	assert.True(t, thread.CreatedByBot)

	assert.Equal(t, ticket.ID, link.TicketID)
	assert.Equal(t, thread.ID, link.ThreadID)
	assert.Equal(t, domain.LinkTypeTicketThread, link.LinkType)
	assert.True(t, link.Syncable())

	require.Len(t, f.chat.PostedMessages, 1)
	posted := f.chat.PostedMessages[0]
	assert.Contains(t, posted.Text, "PROJ-9")
	assert.Len(t, posted.Blocks, 5)

	comments, err := f.tracker.GetComments(context.Background(), ticket.Key)
	require.NoError(t, err)
	require.Len(t, comments, 1)
	assert.Contains(t, comments[0].Body, thread.Permalink)
}

func TestCreateThreadExplicitChannelWins(t *testing.T) {
	f := newFixture(t)
	ticket := &domain.Ticket{Key: "PROJ-9", Summary: "Checkout fails", Status: "Open"}
	require.NoError(t, f.tickets.Upsert(context.Background(), ticket))

	thread, _, err := f.workflow.CreateThread(context.Background(), ticket, "C99999")
	require.NoError(t, err)
	assert.Equal(t, "C99999", thread.ChannelID)
}

func TestCreateThreadTrackerCommentIsBestEffort(t *testing.T) {
	f := newFixture(t)
	f.tracker.FailAddComment = true
	ticket := &domain.Ticket{Key: "PROJ-9", Summary: "Checkout fails", Status: "Open"}
	require.NoError(t, f.tickets.Upsert(context.Background(), ticket))

	thread, link, err := f.workflow.CreateThread(context.Background(), ticket, "")
	require.NoError(t, err, "backlink comment failure must not fail thread creation")
	assert.NotEmpty(t, thread.ID)
	assert.NotEmpty(t, link.ID)
}

func TestCreateThreadPostFailureAborts(t *testing.T) {
	f := newFixture(t)
	f.chat.FailPostMessage = true
	ticket := &domain.Ticket{Key: "PROJ-9", Summary: "Checkout fails", Status: "Open"}
	require.NoError(t, f.tickets.Upsert(context.Background(), ticket))

	_, _, err := f.workflow.CreateThread(context.Background(), ticket, "")
	require.Error(t, err)

	count, countErr := f.links.CountByTicket(context.Background(), ticket.ID)
	require.NoError(t, countErr)
	assert.Zero(t, count, "no link without a posted announcement")
}

func TestRenderTicketMessage(t *testing.T) {
	f := newFixture(t)
	ticket := &domain.Ticket{
		Key:       "PROJ-9",
		Summary:   "Checkout fails under load",
		Status:    "Open",
		Priority:  "High",
		IssueType: "Bug",
	}

	text, blocks := f.workflow.renderTicketMessage(ticket)

	assert.Contains(t, text, "[PROJ-9]")
	assert.Contains(t, text, "Checkout fails under load")
	require.Len(t, blocks, 5)
	assert.Equal(t, "header", blocks[0]["type"])

	// Empty description renders the placeholder, empty assignee a dash.
	found := false
	for _, block := range blocks {
		raw, ok := block["text"].(map[string]any)
		if ok && raw["text"] == "_No description provided._" {
			found = true
		}
	}
	assert.True(t, found, "placeholder description block missing")
}

func TestRenderTicketMessageTruncatesLongFields(t *testing.T) {
	f := newFixture(t)
	ticket := &domain.Ticket{
		Key:         "PROJ-9",
		Summary:     strings.Repeat("a", 150),
		Description: strings.Repeat("b", 900),
		Status:      "Open",
	}

	text, blocks := f.workflow.renderTicketMessage(ticket)

	assert.Contains(t, text, strings.Repeat("a", 97)+"...")
	assert.NotContains(t, text, strings.Repeat("a", 98))
	require.NotEmpty(t, blocks)
}

func TestRenderTicketMessageLinksTracker(t *testing.T) {
	f := newFixture(t)
	ticket := &domain.Ticket{Key: "PROJ-9", Summary: "Checkout fails", Status: "Open"}

	_, blocks := f.workflow.renderTicketMessage(ticket)

	last := blocks[len(blocks)-1]
	elements, ok := last["elements"].([]map[string]any)
	require.True(t, ok)
	require.Len(t, elements, 1)
	assert.Contains(t, elements[0]["text"], "https://tracker.example.com/browse/PROJ-9")
}

func TestTruncate(t *testing.T) {
	cases := []struct {
		in   string
		max  int
		want string
	}{
		{"short", 10, "short"},
		{"exactly-ten", 11, "exactly-ten"},
		{"this is far too long", 10, "this is..."},
		{"abc", 2, "ab"},
		{strings.Repeat("é", 12), 10, strings.Repeat("é", 7) + "..."},
		{strings.Repeat("日", 5), 3, "日日日"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, truncate(tc.in, tc.max), "truncate(%q, %d)", tc.in, tc.max)
	}
}

func TestTruncateKeepsValidUTF8(t *testing.T) {
	long := strings.Repeat("é", 60)
	out := truncate(long, summaryHeaderLimit)
	assert.True(t, utf8.ValidString(out), "truncation must not split a rune: %q", out)
	assert.Equal(t, long, out, "60 characters fit within the limit")

	out = truncate(strings.Repeat("é", 150), summaryHeaderLimit)
	assert.True(t, utf8.ValidString(out), "truncation must not split a rune: %q", out)
	assert.Equal(t, summaryHeaderLimit, utf8.RuneCountInString(out))
}

func TestValueOrDash(t *testing.T) {
	assert.Equal(t, "-", valueOrDash(""))
	assert.Equal(t, "-", valueOrDash("   "))
	assert.Equal(t, "High", valueOrDash("High"))
}
