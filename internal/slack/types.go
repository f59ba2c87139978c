package slack

import (
	"strconv"
	"strings"
	"time"
)

// PostMessageInput describes an outgoing chat message. ThreadTS targets an
// existing thread; empty posts a new root message. Blocks are optional rich
// layout accompanying the fallback Text.
type PostMessageInput struct {
	Channel  string
	Text     string
	ThreadTS string
	Blocks   []Block
}

// PostedMessage is the result of a successful post. Permalink may be empty
// when the platform did not return one at post time.
type PostedMessage struct {
	Channel   string
	TS        string
	Permalink string
}

// Message is one message within a thread's reply stream.
type Message struct {
	TS       string `json:"ts"`
	ThreadTS string `json:"thread_ts,omitempty"`
	User     string `json:"user,omitempty"`
	Username string `json:"username,omitempty"`
	BotID    string `json:"bot_id,omitempty"`
	SubType  string `json:"subtype,omitempty"`
	Text     string `json:"text"`
}

// IsBotMessage reports whether the platform attributes the message to a bot.
func (m Message) IsBotMessage() bool {
	return m.BotID != "" || m.SubType == "bot_message"
}

// SentAt converts the platform's "seconds.micros" timestamp into a time.
// Unparseable timestamps yield a zero time.
func (m Message) SentAt() time.Time {
	seconds := m.TS
	if idx := strings.IndexByte(m.TS, '.'); idx >= 0 {
		seconds = m.TS[:idx]
	}
	unix, err := strconv.ParseInt(seconds, 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.Unix(unix, 0)
}
