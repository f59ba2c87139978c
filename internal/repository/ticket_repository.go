package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/integration-service/internal/domain"
)

// TicketRepository encapsulates ticket persistence. Tickets are owned by the
// tracker; rows here are materialized copies keyed by the tracker key.
type TicketRepository interface {
	Upsert(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	GetByKey(ctx context.Context, key string) (*domain.Ticket, error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

func (r *ticketRepository) Upsert(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (ticket_key, project_key, summary, description, status, priority, issue_type, assignee_name)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        ON CONFLICT (ticket_key) DO UPDATE SET
            project_key=EXCLUDED.project_key,
            summary=EXCLUDED.summary,
            description=EXCLUDED.description,
            status=EXCLUDED.status,
            priority=EXCLUDED.priority,
            issue_type=EXCLUDED.issue_type,
            assignee_name=EXCLUDED.assignee_name,
            updated_at=NOW()
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		ticket.Key,
		ticket.ProjectKey,
		ticket.Summary,
		ticket.Description,
		ticket.Status,
		ticket.Priority,
		ticket.IssueType,
		ticket.AssigneeName,
	).Scan(&ticket.ID, &ticket.CreatedAt, &ticket.UpdatedAt)
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	const query = `
        SELECT id, ticket_key, project_key, summary, description, status, priority, issue_type, assignee_name, created_at, updated_at
        FROM tickets WHERE id=$1`
	return r.fetchSingle(ctx, query, id)
}

func (r *ticketRepository) GetByKey(ctx context.Context, key string) (*domain.Ticket, error) {
	const query = `
        SELECT id, ticket_key, project_key, summary, description, status, priority, issue_type, assignee_name, created_at, updated_at
        FROM tickets WHERE ticket_key=$1`
	return r.fetchSingle(ctx, query, key)
}

func (r *ticketRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := r.pool.QueryRow(ctx, query, arg).Scan(
		&ticket.ID,
		&ticket.Key,
		&ticket.ProjectKey,
		&ticket.Summary,
		&ticket.Description,
		&ticket.Status,
		&ticket.Priority,
		&ticket.IssueType,
		&ticket.AssigneeName,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &ticket, nil
}
