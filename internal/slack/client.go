package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/spec-kit/integration-service/internal/config"
	apperrors "github.com/spec-kit/integration-service/pkg/util/errorutil"
)

const apiBaseURL = "https://slack.com/api"

// Client exposes the chat-platform operations the integration consumes.
// There are exactly two implementations: the Web API client below and the
// in-memory mock, selected by NewClient based on configuration presence.
type Client interface {
	PostMessage(ctx context.Context, input PostMessageInput) (*PostedMessage, error)
	GetThreadReplies(ctx context.Context, channel, threadTS string, limit int) ([]Message, error)
	GetPermalink(ctx context.Context, channel, ts string) (string, error)
	AddReaction(ctx context.Context, channel, ts, emoji string) (bool, error)
}

// NewClient selects the real or mock chat client. A missing bot token yields
// the mock so local runs and tests need no external workspace.
func NewClient(cfg config.SlackConfig) Client {
	if cfg.UseMockClient() {
		return NewMockClient()
	}
	return newWebAPIClient(cfg)
}

type webAPIClient struct {
	cfg        config.SlackConfig
	httpClient *http.Client
	baseURL    string
}

func newWebAPIClient(cfg config.SlackConfig) *webAPIClient {
	return &webAPIClient{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		baseURL: apiBaseURL,
	}
}

func (c *webAPIClient) PostMessage(ctx context.Context, input PostMessageInput) (*PostedMessage, error) {
	body := map[string]any{
		"channel": input.Channel,
		"text":    input.Text,
	}
	if input.ThreadTS != "" {
		body["thread_ts"] = input.ThreadTS
	}
	if len(input.Blocks) > 0 {
		body["blocks"] = input.Blocks
	}

	var resp struct {
		apiEnvelope
		Channel string `json:"channel"`
		TS      string `json:"ts"`
	}
	if err := c.post(ctx, "chat.postMessage", body, &resp); err != nil {
		return nil, apperrors.NewChatError("post message", err)
	}

	posted := &PostedMessage{Channel: resp.Channel, TS: resp.TS}
	// Root messages get a permalink opportunistically; failures here are
	// not post failures since the link can be resolved again later.
	if input.ThreadTS == "" {
		if permalink, err := c.GetPermalink(ctx, resp.Channel, resp.TS); err == nil {
			posted.Permalink = permalink
		}
	}
	return posted, nil
}

func (c *webAPIClient) GetThreadReplies(ctx context.Context, channel, threadTS string, limit int) ([]Message, error) {
	params := url.Values{}
	params.Set("channel", channel)
	params.Set("ts", threadTS)
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}

	var resp struct {
		apiEnvelope
		Messages []Message `json:"messages"`
	}
	if err := c.get(ctx, "conversations.replies", params, &resp); err != nil {
		return nil, apperrors.NewChatError("get thread replies", err)
	}
	return resp.Messages, nil
}

func (c *webAPIClient) GetPermalink(ctx context.Context, channel, ts string) (string, error) {
	params := url.Values{}
	params.Set("channel", channel)
	params.Set("message_ts", ts)

	var resp struct {
		apiEnvelope
		Permalink string `json:"permalink"`
	}
	if err := c.get(ctx, "chat.getPermalink", params, &resp); err != nil {
		return "", apperrors.NewChatError("get permalink", err)
	}
	return resp.Permalink, nil
}

func (c *webAPIClient) AddReaction(ctx context.Context, channel, ts, emoji string) (bool, error) {
	body := map[string]any{
		"channel":   channel,
		"timestamp": ts,
		"name":      emoji,
	}

	var resp apiEnvelope
	err := c.post(ctx, "reactions.add", body, &resp)
	if err != nil {
		// The platform reports re-adding an existing reaction as an error;
		// the desired state already holds, so treat it as success.
		if apiErrorCode(err) == "already_reacted" {
			return true, nil
		}
		return false, apperrors.NewChatError("add reaction", err)
	}
	return true, nil
}

// apiEnvelope is the common {ok, error} wrapper on Web API responses.
type apiEnvelope struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

func (e apiEnvelope) envelope() apiEnvelope { return e }

type enveloped interface {
	envelope() apiEnvelope
}

// apiError carries the platform's error code for callers that branch on it.
type apiError struct {
	Code string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("chat api error: %s", e.Code)
}

func apiErrorCode(err error) string {
	for err != nil {
		if apiErr, ok := err.(*apiError); ok {
			return apiErr.Code
		}
		unwrapper, ok := err.(interface{ Unwrap() error })
		if !ok {
			return ""
		}
		err = unwrapper.Unwrap()
	}
	return ""
}

func (c *webAPIClient) post(ctx context.Context, method string, body any, out enveloped) error {
	encoded, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+method, bytes.NewReader(encoded))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.BotToken)
	req.Header.Set("Content-Type", "application/json; charset=utf-8")

	return c.do(req, out)
}

func (c *webAPIClient) get(ctx context.Context, method string, params url.Values, out enveloped) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/"+method+"?"+params.Encode(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.BotToken)

	return c.do(req, out)
}

func (c *webAPIClient) do(req *http.Request, out enveloped) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("chat api returned %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if env := out.envelope(); !env.OK {
		return &apiError{Code: env.Error}
	}
	return nil
}
