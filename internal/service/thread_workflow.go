package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/integration-service/internal/config"
	"github.com/spec-kit/integration-service/internal/domain"
	"github.com/spec-kit/integration-service/internal/jira"
	"github.com/spec-kit/integration-service/internal/repository"
	"github.com/spec-kit/integration-service/internal/slack"
)

const (
	summaryHeaderLimit    = 100
	descriptionBodyLimit  = 500
	fallbackTrackerDomain = "https://jira.example.com"
)

// ThreadWorkflow creates the chat discussion thread for a ticket and records
// the thread and link rows.
type ThreadWorkflow struct {
	threads repository.ThreadRepository
	links   repository.LinkRepository
	chat    slack.Client
	tracker jira.Client
	logger  *zap.Logger
	cfg     workflowConfig
}

type workflowConfig struct {
	defaultChannel string
	trackerBaseURL string
}

// ThreadWorkflowDependencies bundles collaborators for the workflow.
type ThreadWorkflowDependencies struct {
	ThreadRepo repository.ThreadRepository
	LinkRepo   repository.LinkRepository
	Chat       slack.Client
	Tracker    jira.Client
	Logger     *zap.Logger
}

// NewThreadWorkflow constructs the workflow.
func NewThreadWorkflow(cfg *config.Config, deps ThreadWorkflowDependencies) *ThreadWorkflow {
	baseURL := strings.TrimRight(cfg.Jira.BaseURL, "/")
	if baseURL == "" {
		baseURL = fallbackTrackerDomain
	}
	return &ThreadWorkflow{
		threads: deps.ThreadRepo,
		links:   deps.LinkRepo,
		chat:    deps.Chat,
		tracker: deps.Tracker,
		logger:  deps.Logger,
		cfg: workflowConfig{
			defaultChannel: cfg.Slack.DefaultChannel,
			trackerBaseURL: baseURL,
		},
	}
}

// CreateThread posts the ticket announcement, records the thread and creates
// the link. The post and both persistence writes must succeed; the tracker
// backlink comment is best-effort. Duplicate-delivery protection lives in the
// caller, which checks for an existing active link before invoking this.
func (w *ThreadWorkflow) CreateThread(ctx context.Context, ticket *domain.Ticket, channel string) (*domain.Thread, *domain.Link, error) {
	if channel == "" {
		channel = w.cfg.defaultChannel
	}

	text, blocks := w.renderTicketMessage(ticket)
	posted, err := w.chat.PostMessage(ctx, slack.PostMessageInput{
		Channel: channel,
		Text:    text,
		Blocks:  blocks,
	})
	if err != nil {
		return nil, nil, err
	}

	thread := &domain.Thread{
		ChannelID:       posted.Channel,
		ThreadTS:        posted.TS,
		Permalink:       posted.Permalink,
		ParentMessageTS: posted.TS,
		CreatedByBot:    true,
	}
	if thread.Permalink == "" {
		// The permalink is fillable after creation; grab it now if the
		// platform cooperates.
		bestEffort(w.logger, "resolve permalink", func() error {
			permalink, err := w.chat.GetPermalink(ctx, posted.Channel, posted.TS)
			if err != nil {
				return err
			}
			thread.Permalink = permalink
			return nil
		})
	}
	if err := w.threads.Create(ctx, thread); err != nil {
		return nil, nil, err
	}

	link := &domain.Link{
		TicketID:    ticket.ID,
		ThreadID:    thread.ID,
		LinkType:    domain.LinkTypeTicketThread,
		SyncEnabled: true,
		SyncStatus:  domain.SyncStatusActive,
	}
	created, err := w.links.CreateIfAbsent(ctx, link)
	if err != nil {
		return nil, nil, err
	}
	if !created {
		w.logger.Info("link already exists for ticket thread",
			zap.String("ticket_key", ticket.Key),
			zap.String("link_id", link.ID))
	}

	bestEffort(w.logger, "tracker backlink comment", func() error {
		body := fmt.Sprintf("Slack discussion thread created: %s", thread.Permalink)
		if thread.Permalink == "" {
			body = fmt.Sprintf("Slack discussion thread created in %s", thread.ChannelID)
		}
		_, err := w.tracker.AddComment(ctx, ticket.Key, body)
		return err
	})

	w.logger.Info("thread created for ticket",
		zap.String("ticket_key", ticket.Key),
		zap.String("thread_id", thread.ID),
		zap.String("channel", thread.ChannelID))
	return thread, link, nil
}

// renderTicketMessage produces the plain-text fallback and the rich block
// layout for a ticket announcement.
func (w *ThreadWorkflow) renderTicketMessage(ticket *domain.Ticket) (string, []slack.Block) {
	summary := truncate(ticket.Summary, summaryHeaderLimit)
	description := truncate(strings.TrimSpace(ticket.Description), descriptionBodyLimit)
	if description == "" {
		description = "_No description provided._"
	}

	fields := map[string]string{
		"Type":     valueOrDash(ticket.IssueType),
		"Priority": valueOrDash(ticket.Priority),
		"Status":   valueOrDash(ticket.Status),
		"Assignee": valueOrDash(ticket.AssigneeName),
	}
	browseURL := fmt.Sprintf("%s/browse/%s", w.cfg.trackerBaseURL, ticket.Key)

	blocks := []slack.Block{
		slack.HeaderBlock(fmt.Sprintf("%s: %s", ticket.Key, summary)),
		slack.SectionBlock(description),
		slack.FieldsBlock(fields, []string{"Type", "Priority", "Status", "Assignee"}),
		slack.DividerBlock(),
		slack.ContextBlock(fmt.Sprintf("<%s|View %s in Jira>", browseURL, ticket.Key)),
	}

	text := fmt.Sprintf("[%s] %s (%s, %s)", ticket.Key, summary,
		valueOrDash(ticket.Status), valueOrDash(ticket.Priority))
	return text, blocks
}

// truncate limits s to max characters, never splitting a rune.
func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}

func valueOrDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
