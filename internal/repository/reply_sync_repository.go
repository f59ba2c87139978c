package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/integration-service/internal/domain"
)

// ReplySyncRepository encapsulates reply dedup/audit rows. The pair
// (ticket_id, slack_message_ts) is unique; finding a row means the reply was
// already relayed.
type ReplySyncRepository interface {
	Create(ctx context.Context, record *domain.ReplySync) error
	GetByTicketAndTS(ctx context.Context, ticketID, slackTS string) (*domain.ReplySync, error)
	ListByTicket(ctx context.Context, ticketID string) ([]domain.ReplySync, error)
}

type replySyncRepository struct {
	pool *pgxpool.Pool
}

// NewReplySyncRepository instantiates repository.
func NewReplySyncRepository(pool *pgxpool.Pool) ReplySyncRepository {
	return &replySyncRepository{pool: pool}
}

const replySyncColumns = `id, ticket_id, thread_id, slack_message_ts, slack_user_id, slack_user_name,
               message_body, tracker_comment_id, sync_status, sent_at, synced_at`

func (r *replySyncRepository) Create(ctx context.Context, record *domain.ReplySync) error {
	const query = `
        INSERT INTO reply_syncs (ticket_id, thread_id, slack_message_ts, slack_user_id, slack_user_name,
                                 message_body, tracker_comment_id, sync_status, sent_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
        RETURNING id, synced_at`
	err := r.pool.QueryRow(ctx, query,
		record.TicketID,
		record.ThreadID,
		record.SlackMessageTS,
		record.SlackUserID,
		record.SlackUserName,
		record.MessageBody,
		record.TrackerCommentID,
		record.SyncStatus,
		record.SentAt,
	).Scan(&record.ID, &record.SyncedAt)
	if err != nil && isUniqueViolation(err) {
		// A concurrent sync already recorded this reply; the tracker comment
		// it posted stands and this attempt's record is redundant.
		return ErrAlreadyExists
	}
	return err
}

func (r *replySyncRepository) GetByTicketAndTS(ctx context.Context, ticketID, slackTS string) (*domain.ReplySync, error) {
	const query = `
        SELECT ` + replySyncColumns + `
        FROM reply_syncs WHERE ticket_id=$1 AND slack_message_ts=$2`
	var record domain.ReplySync
	if err := r.pool.QueryRow(ctx, query, ticketID, slackTS).Scan(
		&record.ID,
		&record.TicketID,
		&record.ThreadID,
		&record.SlackMessageTS,
		&record.SlackUserID,
		&record.SlackUserName,
		&record.MessageBody,
		&record.TrackerCommentID,
		&record.SyncStatus,
		&record.SentAt,
		&record.SyncedAt,
	); err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *replySyncRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.ReplySync, error) {
	const query = `
        SELECT ` + replySyncColumns + `
        FROM reply_syncs WHERE ticket_id=$1 ORDER BY slack_message_ts ASC`
	rows, err := r.pool.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanReplySyncs(rows)
}

func scanReplySyncs(rows pgx.Rows) ([]domain.ReplySync, error) {
	var result []domain.ReplySync
	for rows.Next() {
		var record domain.ReplySync
		if err := rows.Scan(
			&record.ID,
			&record.TicketID,
			&record.ThreadID,
			&record.SlackMessageTS,
			&record.SlackUserID,
			&record.SlackUserName,
			&record.MessageBody,
			&record.TrackerCommentID,
			&record.SyncStatus,
			&record.SentAt,
			&record.SyncedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, record)
	}
	return result, rows.Err()
}
