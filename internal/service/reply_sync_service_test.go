package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/integration-service/internal/domain"
	"github.com/spec-kit/integration-service/internal/slack"
)

func TestSyncRepliesRelaysHumanReplies(t *testing.T) {
	f := newFixture(t)
	ticket, thread, _ := f.seedTicket(t, "PROJ-9", "Open")

	f.chat.AddHumanReply(thread.ChannelID, thread.ThreadTS, "U100", "alice", "I can reproduce this on staging.")
	f.chat.AddHumanReply(thread.ChannelID, thread.ThreadTS, "U200", "bob", "Fix is in review.")
	// A bot reply in the same thread must not be relayed.
	_, err := f.chat.PostMessage(context.Background(), slack.PostMessageInput{
		Channel:  thread.ChannelID,
		Text:     "*PROJ-9* updated",
		ThreadTS: thread.ThreadTS,
	})
	require.NoError(t, err)

	result := f.engine.SyncReplies(context.Background(), ticket.Key)

	require.True(t, result.Success, "error: %s", result.Error)
	assert.Equal(t, 2, result.SyncedCount)
	assert.Equal(t, 0, result.SkippedCount)
	assert.Equal(t, 0, result.FailedCount)

	comments, err := f.tracker.GetComments(context.Background(), ticket.Key)
	require.NoError(t, err)
	relayed := 0
	for _, comment := range comments {
		if strings.HasPrefix(comment.Body, "[Slack]") {
			relayed++
		}
	}
	assert.Equal(t, 2, relayed)

	records, err := f.replies.ListByTicket(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.Len(t, records, 2)
	for _, record := range records {
		assert.Equal(t, domain.ReplySyncStatusSynced, record.SyncStatus)
		assert.NotEmpty(t, record.TrackerCommentID)
	}
}

func TestSyncRepliesSecondRunSkipsEverything(t *testing.T) {
	f := newFixture(t)
	ticket, thread, _ := f.seedTicket(t, "PROJ-9", "Open")
	f.chat.AddHumanReply(thread.ChannelID, thread.ThreadTS, "U100", "alice", "first")
	f.chat.AddHumanReply(thread.ChannelID, thread.ThreadTS, "U200", "bob", "second")

	first := f.engine.SyncReplies(context.Background(), ticket.Key)
	require.True(t, first.Success)
	require.Equal(t, 2, first.SyncedCount)

	second := f.engine.SyncReplies(context.Background(), ticket.Key)
	require.True(t, second.Success)
	assert.Equal(t, 0, second.SyncedCount)
	assert.Equal(t, 2, second.SkippedCount)

	// No duplicate tracker comments either.
	comments, err := f.tracker.GetComments(context.Background(), ticket.Key)
	require.NoError(t, err)
	relayed := 0
	for _, comment := range comments {
		if strings.HasPrefix(comment.Body, "[Slack]") {
			relayed++
		}
	}
	assert.Equal(t, 2, relayed)
}

func TestSyncRepliesTrackerFailureIsIsolated(t *testing.T) {
	f := newFixture(t)
	ticket, thread, _ := f.seedTicket(t, "PROJ-9", "Open")
	f.chat.AddHumanReply(thread.ChannelID, thread.ThreadTS, "U100", "alice", "first")
	f.chat.AddHumanReply(thread.ChannelID, thread.ThreadTS, "U200", "bob", "second")

	f.tracker.FailAddComment = true
	failed := f.engine.SyncReplies(context.Background(), ticket.Key)
	require.True(t, failed.Success, "a failed reply must not abort the run")
	assert.Equal(t, 0, failed.SyncedCount)
	assert.Equal(t, 2, failed.FailedCount)
	for _, outcome := range failed.Replies {
		assert.Equal(t, domain.ReplyOutcomeFailed, outcome.Status)
		assert.NotEmpty(t, outcome.Error)
	}

	// Failed replies left no dedup record, so the retry relays them.
	f.tracker.FailAddComment = false
	retried := f.engine.SyncReplies(context.Background(), ticket.Key)
	require.True(t, retried.Success)
	assert.Equal(t, 2, retried.SyncedCount)
	assert.Equal(t, 0, retried.FailedCount)
}

func TestSyncRepliesUnknownTicket(t *testing.T) {
	f := newFixture(t)

	result := f.engine.SyncReplies(context.Background(), "PROJ-404")

	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "not found")
}

func TestSyncRepliesTicketWithoutLink(t *testing.T) {
	f := newFixture(t)
	ticket := &domain.Ticket{Key: "PROJ-7", Summary: "Unlinked", Status: "Open"}
	require.NoError(t, f.tickets.Upsert(context.Background(), ticket))

	result := f.engine.SyncReplies(context.Background(), "PROJ-7")

	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "no linked thread")
}

func TestSyncRepliesEmptyThread(t *testing.T) {
	f := newFixture(t)
	ticket, _, _ := f.seedTicket(t, "PROJ-9", "Open")

	result := f.engine.SyncReplies(context.Background(), ticket.Key)

	require.True(t, result.Success)
	assert.Equal(t, 0, result.SyncedCount)
	assert.Empty(t, result.Replies, "the root announcement is not a reply")
}

func TestSyncAllLinkedTickets(t *testing.T) {
	f := newFixture(t)
	first, firstThread, _ := f.seedTicket(t, "PROJ-1", "Open")
	second, secondThread, _ := f.seedTicket(t, "PROJ-2", "Open")
	f.chat.AddHumanReply(firstThread.ChannelID, firstThread.ThreadTS, "U100", "alice", "on it")
	f.chat.AddHumanReply(secondThread.ChannelID, secondThread.ThreadTS, "U200", "bob", "same here")
	f.chat.AddHumanReply(secondThread.ChannelID, secondThread.ThreadTS, "U300", "carol", "+1")

	batch, err := f.engine.SyncAllLinkedTickets(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, batch.TicketsProcessed)
	assert.Equal(t, 0, batch.TicketsFailed)
	assert.Equal(t, 3, batch.SyncedCount)
	require.Len(t, batch.PerTicket, 2)

	keys := []string{batch.PerTicket[0].TicketKey, batch.PerTicket[1].TicketKey}
	assert.ElementsMatch(t, []string{first.Key, second.Key}, keys)
}

func TestSyncAllLinkedTicketsSkipsPausedLinks(t *testing.T) {
	f := newFixture(t)
	_, thread, link := f.seedTicket(t, "PROJ-1", "Open")
	f.chat.AddHumanReply(thread.ChannelID, thread.ThreadTS, "U100", "alice", "never relayed")

	// Pause the link in place; ListSyncable must not return it.
	for _, stored := range f.links.links {
		if stored.ID == link.ID {
			stored.SyncStatus = domain.SyncStatusPaused
		}
	}

	batch, err := f.engine.SyncAllLinkedTickets(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, batch.TicketsProcessed)
	assert.Equal(t, 0, batch.SyncedCount)
}

func TestFormatReplyComment(t *testing.T) {
	msg := replyMessage("1726000000.000100", "U100", "alice", "a fix shipped")
	body := formatReplyComment(msg)
	assert.True(t, strings.HasPrefix(body, "[Slack] alice at "), body)
	assert.True(t, strings.HasSuffix(body, ":\na fix shipped"), body)
}

func TestFormatReplyCommentFallbacks(t *testing.T) {
	t.Run("user id when name missing", func(t *testing.T) {
		body := formatReplyComment(replyMessage("1726000000.000100", "U100", "", "hello"))
		assert.True(t, strings.HasPrefix(body, "[Slack] U100 at "), body)
	})
	t.Run("unknown author", func(t *testing.T) {
		body := formatReplyComment(replyMessage("1726000000.000100", "", "", "hello"))
		assert.True(t, strings.HasPrefix(body, "[Slack] unknown user at "), body)
	})
	t.Run("empty body", func(t *testing.T) {
		body := formatReplyComment(replyMessage("1726000000.000100", "U100", "alice", ""))
		assert.True(t, strings.HasSuffix(body, "(empty message)"), body)
	})
	t.Run("unparseable timestamp", func(t *testing.T) {
		body := formatReplyComment(replyMessage("not-a-ts", "U100", "alice", "hello"))
		assert.Contains(t, body, "at unknown time")
	})
}

func replyMessage(ts, user, username, text string) slack.Message {
	return slack.Message{TS: ts, User: user, Username: username, Text: text}
}
