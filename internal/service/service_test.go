package service

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/integration-service/internal/config"
	"github.com/spec-kit/integration-service/internal/domain"
	"github.com/spec-kit/integration-service/internal/events"
	"github.com/spec-kit/integration-service/internal/jira"
	"github.com/spec-kit/integration-service/internal/monitor"
	"github.com/spec-kit/integration-service/internal/observability"
	"github.com/spec-kit/integration-service/internal/repository"
	"github.com/spec-kit/integration-service/internal/slack"
)

// In-memory repository fakes. They mirror the Postgres implementations'
// contracts: repository.ErrNotFound on misses, ErrAlreadyExists on unique
// conflicts, IDs assigned on insert.

type fakeTicketRepo struct {
	mu    sync.Mutex
	byKey map[string]*domain.Ticket
}

func newFakeTicketRepo() *fakeTicketRepo {
	return &fakeTicketRepo{byKey: make(map[string]*domain.Ticket)}
}

func (f *fakeTicketRepo) Upsert(_ context.Context, ticket *domain.Ticket) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if existing, ok := f.byKey[ticket.Key]; ok {
		ticket.ID = existing.ID
		ticket.CreatedAt = existing.CreatedAt
	} else {
		ticket.ID = uuid.NewString()
		ticket.CreatedAt = time.Now()
	}
	ticket.UpdatedAt = time.Now()
	copied := *ticket
	f.byKey[ticket.Key] = &copied
	return nil
}

func (f *fakeTicketRepo) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ticket := range f.byKey {
		if ticket.ID == id {
			copied := *ticket
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeTicketRepo) GetByKey(_ context.Context, key string) (*domain.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ticket, ok := f.byKey[key]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *ticket
	return &copied, nil
}

type fakeThreadRepo struct {
	mu   sync.Mutex
	byID map[string]*domain.Thread
}

func newFakeThreadRepo() *fakeThreadRepo {
	return &fakeThreadRepo{byID: make(map[string]*domain.Thread)}
}

func (f *fakeThreadRepo) Create(_ context.Context, thread *domain.Thread) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	thread.ID = uuid.NewString()
	thread.CreatedAt = time.Now()
	thread.UpdatedAt = thread.CreatedAt
	copied := *thread
	f.byID[thread.ID] = &copied
	return nil
}

func (f *fakeThreadRepo) GetByID(_ context.Context, id string) (*domain.Thread, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	thread, ok := f.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *thread
	return &copied, nil
}

func (f *fakeThreadRepo) UpdatePermalink(_ context.Context, id, permalink string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	thread, ok := f.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	thread.Permalink = permalink
	return nil
}

type fakeLinkRepo struct {
	mu    sync.Mutex
	links []*domain.Link
}

func newFakeLinkRepo() *fakeLinkRepo {
	return &fakeLinkRepo{}
}

func (f *fakeLinkRepo) CreateIfAbsent(_ context.Context, link *domain.Link) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.links {
		if existing.TicketID == link.TicketID && existing.ThreadID == link.ThreadID && existing.LinkType == link.LinkType {
			*link = *existing
			return false, nil
		}
	}
	link.ID = uuid.NewString()
	link.CreatedAt = time.Now()
	link.UpdatedAt = link.CreatedAt
	copied := *link
	f.links = append(f.links, &copied)
	return true, nil
}

func (f *fakeLinkRepo) GetByID(_ context.Context, id string) (*domain.Link, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, link := range f.links {
		if link.ID == id {
			copied := *link
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeLinkRepo) FindActiveByTicket(_ context.Context, ticketID string) (*domain.Link, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, link := range f.links {
		if link.TicketID == ticketID && link.LinkType == domain.LinkTypeTicketThread && link.SyncStatus == domain.SyncStatusActive {
			copied := *link
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeLinkRepo) ListByThread(_ context.Context, threadID string) ([]domain.Link, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []domain.Link
	for _, link := range f.links {
		if link.ThreadID == threadID {
			result = append(result, *link)
		}
	}
	return result, nil
}

func (f *fakeLinkRepo) ListSyncable(_ context.Context) ([]domain.Link, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []domain.Link
	for _, link := range f.links {
		if link.Syncable() {
			result = append(result, *link)
		}
	}
	return result, nil
}

func (f *fakeLinkRepo) CountByTicket(_ context.Context, ticketID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, link := range f.links {
		if link.TicketID == ticketID {
			count++
		}
	}
	return count, nil
}

func (f *fakeLinkRepo) TouchLastSync(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, link := range f.links {
		if link.ID == id {
			now := time.Now()
			link.LastSyncAt = &now
			link.UpdatedAt = now
			return nil
		}
	}
	return repository.ErrNotFound
}

type fakeReplySyncRepo struct {
	mu      sync.Mutex
	records map[string]*domain.ReplySync // keyed by ticketID|slackTS
}

func newFakeReplySyncRepo() *fakeReplySyncRepo {
	return &fakeReplySyncRepo{records: make(map[string]*domain.ReplySync)}
}

func (f *fakeReplySyncRepo) Create(_ context.Context, record *domain.ReplySync) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := record.TicketID + "|" + record.SlackMessageTS
	if _, ok := f.records[key]; ok {
		return repository.ErrAlreadyExists
	}
	record.ID = uuid.NewString()
	record.SyncedAt = time.Now()
	copied := *record
	f.records[key] = &copied
	return nil
}

func (f *fakeReplySyncRepo) GetByTicketAndTS(_ context.Context, ticketID, slackTS string) (*domain.ReplySync, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	record, ok := f.records[ticketID+"|"+slackTS]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *record
	return &copied, nil
}

func (f *fakeReplySyncRepo) ListByTicket(_ context.Context, ticketID string) ([]domain.ReplySync, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []domain.ReplySync
	for _, record := range f.records {
		if record.TicketID == ticketID {
			result = append(result, *record)
		}
	}
	return result, nil
}

type fakeClosureRepo struct {
	mu      sync.Mutex
	records map[string]*domain.ClosureNotification // keyed by ticketID|threadID
}

func newFakeClosureRepo() *fakeClosureRepo {
	return &fakeClosureRepo{records: make(map[string]*domain.ClosureNotification)}
}

func (f *fakeClosureRepo) Create(_ context.Context, record *domain.ClosureNotification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := record.TicketID + "|" + record.ThreadID
	if _, ok := f.records[key]; ok {
		return repository.ErrAlreadyExists
	}
	record.ID = uuid.NewString()
	record.NotifiedAt = time.Now()
	copied := *record
	f.records[key] = &copied
	return nil
}

func (f *fakeClosureRepo) GetByTicketAndThread(_ context.Context, ticketID, threadID string) (*domain.ClosureNotification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	record, ok := f.records[ticketID+"|"+threadID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *record
	return &copied, nil
}

// fixture wires the full pipeline against the fakes and mock clients.
type fixture struct {
	cfg      *config.Config
	tickets  *fakeTicketRepo
	threads  *fakeThreadRepo
	links    *fakeLinkRepo
	replies  *fakeReplySyncRepo
	closures *fakeClosureRepo
	chat     *slack.MockClient
	tracker  *jira.MockClient
	metrics  *observability.Metrics
	workflow *ThreadWorkflow
	notifier *ClosureNotifier
	engine   *ReplySyncEngine
	orch     *Orchestrator
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	cfg := &config.Config{
		Jira: config.JiraConfig{BaseURL: "https://tracker.example.com"},
		Slack: config.SlackConfig{
			DefaultChannel: "C12345",
			ClosedEmoji:    "white_check_mark",
		},
		Sync: config.SyncConfig{
			ClosedStatuses:  []string{"Done", "Closed", "Resolved"},
			ReplyFetchLimit: 200,
		},
	}

	f := &fixture{
		cfg:      cfg,
		tickets:  newFakeTicketRepo(),
		threads:  newFakeThreadRepo(),
		links:    newFakeLinkRepo(),
		replies:  newFakeReplySyncRepo(),
		closures: newFakeClosureRepo(),
		chat:     slack.NewMockClient(),
		tracker:  jira.NewMockClient(),
		metrics:  observability.NewMetrics(),
	}

	logger := zap.NewNop()
	dispatcher := events.NewInMemoryDispatcher()
	mon := monitor.NewTicketMonitor(f.tickets, f.tracker, logger)

	f.workflow = NewThreadWorkflow(cfg, ThreadWorkflowDependencies{
		ThreadRepo: f.threads,
		LinkRepo:   f.links,
		Chat:       f.chat,
		Tracker:    f.tracker,
		Logger:     logger,
	})
	f.notifier = NewClosureNotifier(cfg, ClosureDependencies{
		ThreadRepo:  f.threads,
		ClosureRepo: f.closures,
		Chat:        f.chat,
		Dispatcher:  dispatcher,
		Metrics:     f.metrics,
		Logger:      logger,
	})
	f.engine = NewReplySyncEngine(ReplySyncDependencies{
		TicketRepo:    f.tickets,
		ThreadRepo:    f.threads,
		LinkRepo:      f.links,
		ReplySyncRepo: f.replies,
		Chat:          f.chat,
		Tracker:       f.tracker,
		Dispatcher:    dispatcher,
		Metrics:       f.metrics,
		Logger:        logger,
		FetchLimit:    cfg.Sync.ReplyFetchLimit,
	})
	f.orch = NewOrchestrator(cfg, OrchestratorDependencies{
		Monitor:    mon,
		Workflow:   f.workflow,
		Notifier:   f.notifier,
		ThreadRepo: f.threads,
		LinkRepo:   f.links,
		Chat:       f.chat,
		Locks:      nil,
		Dispatcher: dispatcher,
		Metrics:    f.metrics,
		Logger:     logger,
	})
	return f
}

// webhookBody builds a tracker webhook delivery as raw JSON.
func webhookBody(t *testing.T, event, key, summary, status string) []byte {
	t.Helper()
	payload := domain.WebhookPayload{
		WebhookEvent: event,
		Issue: &domain.WebhookIssue{
			ID:  "10001",
			Key: key,
			Fields: domain.WebhookIssueFields{
				Summary:     summary,
				Description: "Reported via webhook.",
				Status:      &domain.NamedField{Name: status},
				Priority:    &domain.NamedField{Name: "High"},
				IssueType:   &domain.NamedField{Name: "Bug"},
				Project:     &domain.WebhookProject{Key: "PROJ"},
				Assignee:    &domain.WebhookUser{DisplayName: "Dana Ops"},
			},
		},
	}
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	return raw
}

// seedTicket creates a ticket plus its thread and link through the workflow.
func (f *fixture) seedTicket(t *testing.T, key, status string) (*domain.Ticket, *domain.Thread, *domain.Link) {
	t.Helper()
	ticket := &domain.Ticket{
		Key:        key,
		ProjectKey: "PROJ",
		Summary:    "Checkout fails under load",
		Status:     status,
		Priority:   "High",
		IssueType:  "Bug",
	}
	require.NoError(t, f.tickets.Upsert(context.Background(), ticket))
	thread, link, err := f.workflow.CreateThread(context.Background(), ticket, "")
	require.NoError(t, err)
	return ticket, thread, link
}
