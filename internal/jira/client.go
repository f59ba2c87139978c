package jira

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/spec-kit/integration-service/internal/config"
	apperrors "github.com/spec-kit/integration-service/pkg/util/errorutil"
)

// Client exposes the issue-tracker operations the integration consumes.
// There are exactly two implementations: the REST client below and the
// in-memory mock, selected by NewClient based on configuration presence.
type Client interface {
	GetIssue(ctx context.Context, key string) (*Issue, error)
	SearchIssues(ctx context.Context, query string, offset, limit int) ([]Issue, error)
	AddComment(ctx context.Context, key, body string) (string, error)
	GetComments(ctx context.Context, key string) ([]Comment, error)
}

// NewClient selects the real or mock tracker client. Missing credentials
// yield the mock so local runs and tests need no external tracker.
func NewClient(cfg config.JiraConfig) Client {
	if cfg.UseMockClient() {
		return NewMockClient()
	}
	return newRESTClient(cfg)
}

type restClient struct {
	cfg        config.JiraConfig
	httpClient *http.Client
	baseURL    string
}

func newRESTClient(cfg config.JiraConfig) *restClient {
	return &restClient{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
	}
}

func (c *restClient) GetIssue(ctx context.Context, key string) (*Issue, error) {
	var issue Issue
	endpoint := fmt.Sprintf("%s/rest/api/2/issue/%s", c.baseURL, url.PathEscape(key))
	if err := c.doJSON(ctx, http.MethodGet, endpoint, nil, &issue); err != nil {
		if apperrors.IsNotFound(err) {
			return nil, err
		}
		return nil, apperrors.NewTrackerError("get issue", err)
	}
	return &issue, nil
}

func (c *restClient) SearchIssues(ctx context.Context, query string, offset, limit int) ([]Issue, error) {
	body := map[string]any{
		"jql":        query,
		"startAt":    offset,
		"maxResults": limit,
	}
	var result struct {
		Issues []Issue `json:"issues"`
	}
	endpoint := fmt.Sprintf("%s/rest/api/2/search", c.baseURL)
	if err := c.doJSON(ctx, http.MethodPost, endpoint, body, &result); err != nil {
		return nil, apperrors.NewTrackerError("search issues", err)
	}
	return result.Issues, nil
}

func (c *restClient) AddComment(ctx context.Context, key, body string) (string, error) {
	payload := map[string]any{"body": body}
	var comment Comment
	endpoint := fmt.Sprintf("%s/rest/api/2/issue/%s/comment", c.baseURL, url.PathEscape(key))
	if err := c.doJSON(ctx, http.MethodPost, endpoint, payload, &comment); err != nil {
		if apperrors.IsNotFound(err) {
			return "", err
		}
		return "", apperrors.NewTrackerError("add comment", err)
	}
	return comment.ID, nil
}

func (c *restClient) GetComments(ctx context.Context, key string) ([]Comment, error) {
	var result struct {
		Comments []Comment `json:"comments"`
	}
	endpoint := fmt.Sprintf("%s/rest/api/2/issue/%s/comment", c.baseURL, url.PathEscape(key))
	if err := c.doJSON(ctx, http.MethodGet, endpoint, nil, &result); err != nil {
		if apperrors.IsNotFound(err) {
			return nil, err
		}
		return nil, apperrors.NewTrackerError("get comments", err)
	}
	return result.Comments, nil
}

func (c *restClient) doJSON(ctx context.Context, method, endpoint string, body, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return err
	}
	req.SetBasicAuth(c.cfg.Email, c.cfg.APIToken)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		// Callers distinguish a missing resource from a tracker outage.
		return apperrors.NewNotFound("tracker resource", map[string]any{"endpoint": endpoint})
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("tracker returned %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
