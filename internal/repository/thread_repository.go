package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/integration-service/internal/domain"
)

// ThreadRepository encapsulates thread persistence. Threads are created once
// and never deleted.
type ThreadRepository interface {
	Create(ctx context.Context, thread *domain.Thread) error
	GetByID(ctx context.Context, id string) (*domain.Thread, error)
	UpdatePermalink(ctx context.Context, id, permalink string) error
}

type threadRepository struct {
	pool *pgxpool.Pool
}

// NewThreadRepository instantiates repository.
func NewThreadRepository(pool *pgxpool.Pool) ThreadRepository {
	return &threadRepository{pool: pool}
}

func (r *threadRepository) Create(ctx context.Context, thread *domain.Thread) error {
	const query = `
        INSERT INTO threads (channel_id, thread_ts, permalink, parent_message_ts, created_by_bot)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		thread.ChannelID,
		thread.ThreadTS,
		thread.Permalink,
		thread.ParentMessageTS,
		thread.CreatedByBot,
	).Scan(&thread.ID, &thread.CreatedAt, &thread.UpdatedAt)
}

func (r *threadRepository) GetByID(ctx context.Context, id string) (*domain.Thread, error) {
	const query = `
        SELECT id, channel_id, thread_ts, permalink, parent_message_ts, created_by_bot, created_at, updated_at
        FROM threads WHERE id=$1`
	var thread domain.Thread
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&thread.ID,
		&thread.ChannelID,
		&thread.ThreadTS,
		&thread.Permalink,
		&thread.ParentMessageTS,
		&thread.CreatedByBot,
		&thread.CreatedAt,
		&thread.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &thread, nil
}

func (r *threadRepository) UpdatePermalink(ctx context.Context, id, permalink string) error {
	const query = `UPDATE threads SET permalink=$1, updated_at=NOW() WHERE id=$2`
	cmd, err := r.pool.Exec(ctx, query, permalink, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
