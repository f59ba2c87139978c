package jira

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	apperrors "github.com/spec-kit/integration-service/pkg/util/errorutil"
)

// MockClient is a deterministic in-memory tracker used when no credentials
// are configured and by tests.
type MockClient struct {
	mu       sync.Mutex
	issues   map[string]*Issue
	comments map[string][]Comment

	// FailAddComment forces AddComment to return a tracker error.
	FailAddComment bool
}

// NewMockClient builds an empty mock tracker.
func NewMockClient() *MockClient {
	return &MockClient{
		issues:   make(map[string]*Issue),
		comments: make(map[string][]Comment),
	}
}

// SeedIssue registers an issue for later lookups.
func (m *MockClient) SeedIssue(issue Issue) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.issues[issue.Key] = &issue
}

func (m *MockClient) GetIssue(ctx context.Context, key string) (*Issue, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	issue, ok := m.issues[key]
	if !ok {
		return nil, apperrors.NewNotFound("issue", map[string]any{"key": key})
	}
	copied := *issue
	return &copied, nil
}

func (m *MockClient) SearchIssues(ctx context.Context, query string, offset, limit int) ([]Issue, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []Issue
	for _, issue := range m.issues {
		if query == "" || strings.Contains(issue.Fields.Summary, query) {
			result = append(result, *issue)
		}
	}
	if offset >= len(result) {
		return nil, nil
	}
	result = result[offset:]
	if limit > 0 && limit < len(result) {
		result = result[:limit]
	}
	return result, nil
}

func (m *MockClient) AddComment(ctx context.Context, key, body string) (string, error) {
	if m.FailAddComment {
		return "", apperrors.NewTrackerError("add comment", fmt.Errorf("mock failure for %s", key))
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	comment := Comment{ID: uuid.NewString(), Body: body}
	m.comments[key] = append(m.comments[key], comment)
	return comment.ID, nil
}

func (m *MockClient) GetComments(ctx context.Context, key string) ([]Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Comment{}, m.comments[key]...), nil
}
