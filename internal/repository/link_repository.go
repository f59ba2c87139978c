package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/integration-service/internal/domain"
)

// LinkRepository is the link registry: CRUD over the ticket↔thread
// association with at-most-one-active-link per (ticket, thread, type).
type LinkRepository interface {
	// CreateIfAbsent inserts the link, or returns the existing row and
	// created=false when one already exists for the same
	// (ticket_id, thread_id, link_type). This is the idempotency point
	// protecting duplicate thread-creation runs.
	CreateIfAbsent(ctx context.Context, link *domain.Link) (created bool, err error)
	GetByID(ctx context.Context, id string) (*domain.Link, error)
	FindActiveByTicket(ctx context.Context, ticketID string) (*domain.Link, error)
	ListByThread(ctx context.Context, threadID string) ([]domain.Link, error)
	ListSyncable(ctx context.Context) ([]domain.Link, error)
	CountByTicket(ctx context.Context, ticketID string) (int, error)
	TouchLastSync(ctx context.Context, id string) error
}

type linkRepository struct {
	pool *pgxpool.Pool
}

// NewLinkRepository instantiates repository.
func NewLinkRepository(pool *pgxpool.Pool) LinkRepository {
	return &linkRepository{pool: pool}
}

const linkColumns = `id, ticket_id, thread_id, link_type, sync_enabled, sync_status, last_sync_at, created_at, updated_at`

func (r *linkRepository) CreateIfAbsent(ctx context.Context, link *domain.Link) (bool, error) {
	existing, err := r.findByIdentity(ctx, link.TicketID, link.ThreadID, link.LinkType)
	if err == nil {
		*link = *existing
		return false, nil
	}
	if !IsNotFound(err) {
		return false, err
	}

	const query = `
        INSERT INTO links (ticket_id, thread_id, link_type, sync_enabled, sync_status)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at, updated_at`
	insertErr := r.pool.QueryRow(ctx, query,
		link.TicketID,
		link.ThreadID,
		link.LinkType,
		link.SyncEnabled,
		link.SyncStatus,
	).Scan(&link.ID, &link.CreatedAt, &link.UpdatedAt)
	if insertErr == nil {
		return true, nil
	}
	if !isUniqueViolation(insertErr) {
		return false, insertErr
	}

	// Lost the race to a concurrent insert; the winner's row is the link.
	existing, err = r.findByIdentity(ctx, link.TicketID, link.ThreadID, link.LinkType)
	if err != nil {
		return false, err
	}
	*link = *existing
	return false, nil
}

func (r *linkRepository) findByIdentity(ctx context.Context, ticketID, threadID string, linkType domain.LinkType) (*domain.Link, error) {
	const query = `
        SELECT ` + linkColumns + `
        FROM links WHERE ticket_id=$1 AND thread_id=$2 AND link_type=$3`
	return r.fetchSingle(ctx, query, ticketID, threadID, linkType)
}

func (r *linkRepository) GetByID(ctx context.Context, id string) (*domain.Link, error) {
	const query = `SELECT ` + linkColumns + ` FROM links WHERE id=$1`
	return r.fetchSingle(ctx, query, id)
}

func (r *linkRepository) FindActiveByTicket(ctx context.Context, ticketID string) (*domain.Link, error) {
	const query = `
        SELECT ` + linkColumns + `
        FROM links
        WHERE ticket_id=$1 AND link_type=$2 AND sync_status=$3
        ORDER BY created_at ASC LIMIT 1`
	return r.fetchSingle(ctx, query, ticketID, domain.LinkTypeTicketThread, domain.SyncStatusActive)
}

func (r *linkRepository) ListByThread(ctx context.Context, threadID string) ([]domain.Link, error) {
	const query = `
        SELECT ` + linkColumns + `
        FROM links WHERE thread_id=$1 ORDER BY created_at ASC`
	rows, err := r.pool.Query(ctx, query, threadID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanLinks(rows)
}

func (r *linkRepository) ListSyncable(ctx context.Context) ([]domain.Link, error) {
	const query = `
        SELECT ` + linkColumns + `
        FROM links
        WHERE sync_enabled=TRUE AND sync_status=$1
        ORDER BY created_at ASC`
	rows, err := r.pool.Query(ctx, query, domain.SyncStatusActive)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanLinks(rows)
}

func (r *linkRepository) CountByTicket(ctx context.Context, ticketID string) (int, error) {
	const query = `SELECT COUNT(*) FROM links WHERE ticket_id=$1`
	var count int
	if err := r.pool.QueryRow(ctx, query, ticketID).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *linkRepository) TouchLastSync(ctx context.Context, id string) error {
	const query = `UPDATE links SET last_sync_at=NOW(), updated_at=NOW() WHERE id=$1`
	cmd, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *linkRepository) fetchSingle(ctx context.Context, query string, args ...any) (*domain.Link, error) {
	var link domain.Link
	if err := r.pool.QueryRow(ctx, query, args...).Scan(
		&link.ID,
		&link.TicketID,
		&link.ThreadID,
		&link.LinkType,
		&link.SyncEnabled,
		&link.SyncStatus,
		&link.LastSyncAt,
		&link.CreatedAt,
		&link.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &link, nil
}

func scanLinks(rows pgx.Rows) ([]domain.Link, error) {
	var result []domain.Link
	for rows.Next() {
		var link domain.Link
		if err := rows.Scan(
			&link.ID,
			&link.TicketID,
			&link.ThreadID,
			&link.LinkType,
			&link.SyncEnabled,
			&link.SyncStatus,
			&link.LastSyncAt,
			&link.CreatedAt,
			&link.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, link)
	}
	return result, rows.Err()
}
