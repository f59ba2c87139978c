package slack

import (
	"context"
	"fmt"
	"sync"
	"time"

	apperrors "github.com/spec-kit/integration-service/pkg/util/errorutil"
)

// MockClient is a deterministic in-memory chat workspace used when no bot
// token is configured and by tests.
type MockClient struct {
	mu      sync.Mutex
	seq     int64
	threads map[string][]Message // keyed by channel|rootTS

	// FailPostMessage forces PostMessage to return a chat error.
	FailPostMessage bool
	// FailAddReaction forces AddReaction to return a chat error.
	FailAddReaction bool
	// AlreadyReacted makes AddReaction behave as if the emoji exists.
	AlreadyReacted bool

	// PostedMessages records every successful post in order.
	PostedMessages []PostMessageInput
	// Reactions records every successful reaction as channel|ts|emoji.
	Reactions []string
}

// NewMockClient builds an empty mock workspace.
func NewMockClient() *MockClient {
	return &MockClient{
		threads: make(map[string][]Message),
	}
}

func (m *MockClient) PostMessage(ctx context.Context, input PostMessageInput) (*PostedMessage, error) {
	if m.FailPostMessage {
		return nil, apperrors.NewChatError("post message", &apiError{Code: "channel_not_found"})
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.seq++
	ts := fmt.Sprintf("%d.%06d", time.Now().Unix(), m.seq)
	msg := Message{
		TS:       ts,
		ThreadTS: input.ThreadTS,
		BotID:    "B0MOCK",
		SubType:  "bot_message",
		Text:     input.Text,
	}

	rootTS := input.ThreadTS
	if rootTS == "" {
		rootTS = ts
		msg.ThreadTS = ts
	}
	m.threads[threadKey(input.Channel, rootTS)] = append(m.threads[threadKey(input.Channel, rootTS)], msg)
	m.PostedMessages = append(m.PostedMessages, input)

	return &PostedMessage{
		Channel:   input.Channel,
		TS:        ts,
		Permalink: fmt.Sprintf("https://mock.slack.local/archives/%s/p%s", input.Channel, ts),
	}, nil
}

func (m *MockClient) GetThreadReplies(ctx context.Context, channel, threadTS string, limit int) ([]Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	msgs := m.threads[threadKey(channel, threadTS)]
	if limit > 0 && limit < len(msgs) {
		msgs = msgs[:limit]
	}
	return append([]Message{}, msgs...), nil
}

func (m *MockClient) GetPermalink(ctx context.Context, channel, ts string) (string, error) {
	return fmt.Sprintf("https://mock.slack.local/archives/%s/p%s", channel, ts), nil
}

func (m *MockClient) AddReaction(ctx context.Context, channel, ts, emoji string) (bool, error) {
	if m.FailAddReaction {
		return false, apperrors.NewChatError("add reaction", &apiError{Code: "invalid_name"})
	}
	if m.AlreadyReacted {
		return true, nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Reactions = append(m.Reactions, channel+"|"+ts+"|"+emoji)
	return true, nil
}

// AddHumanReply seeds a human-authored reply into a thread for tests.
func (m *MockClient) AddHumanReply(channel, threadTS, userID, userName, text string) Message {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.seq++
	msg := Message{
		TS:       fmt.Sprintf("%d.%06d", time.Now().Unix(), m.seq),
		ThreadTS: threadTS,
		User:     userID,
		Username: userName,
		Text:     text,
	}
	m.threads[threadKey(channel, threadTS)] = append(m.threads[threadKey(channel, threadTS)], msg)
	return msg
}

func threadKey(channel, rootTS string) string {
	return channel + "|" + rootTS
}
