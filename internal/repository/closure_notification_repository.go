package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/integration-service/internal/domain"
)

// ClosureNotificationRepository encapsulates notify-once audit rows keyed
// uniquely by (ticket_id, thread_id).
type ClosureNotificationRepository interface {
	Create(ctx context.Context, record *domain.ClosureNotification) error
	GetByTicketAndThread(ctx context.Context, ticketID, threadID string) (*domain.ClosureNotification, error)
}

type closureNotificationRepository struct {
	pool *pgxpool.Pool
}

// NewClosureNotificationRepository instantiates repository.
func NewClosureNotificationRepository(pool *pgxpool.Pool) ClosureNotificationRepository {
	return &closureNotificationRepository{pool: pool}
}

func (r *closureNotificationRepository) Create(ctx context.Context, record *domain.ClosureNotification) error {
	const query = `
        INSERT INTO closure_notifications (ticket_id, thread_id, ticket_status, message_ts, reaction_added, reaction_emoji)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, notified_at`
	err := r.pool.QueryRow(ctx, query,
		record.TicketID,
		record.ThreadID,
		record.TicketStatus,
		record.MessageTS,
		record.ReactionAdded,
		record.ReactionEmoji,
	).Scan(&record.ID, &record.NotifiedAt)
	if err != nil && isUniqueViolation(err) {
		return ErrAlreadyExists
	}
	return err
}

func (r *closureNotificationRepository) GetByTicketAndThread(ctx context.Context, ticketID, threadID string) (*domain.ClosureNotification, error) {
	const query = `
        SELECT id, ticket_id, thread_id, ticket_status, message_ts, reaction_added, reaction_emoji, notified_at
        FROM closure_notifications WHERE ticket_id=$1 AND thread_id=$2`
	var record domain.ClosureNotification
	if err := r.pool.QueryRow(ctx, query, ticketID, threadID).Scan(
		&record.ID,
		&record.TicketID,
		&record.ThreadID,
		&record.TicketStatus,
		&record.MessageTS,
		&record.ReactionAdded,
		&record.ReactionEmoji,
		&record.NotifiedAt,
	); err != nil {
		return nil, err
	}
	return &record, nil
}
