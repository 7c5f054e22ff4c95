package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/elingeyesdev/tickets-incidentes-sub013/internal/domain"
)

// ResponseRepository manages the append-only response log.
type ResponseRepository interface {
	Create(ctx context.Context, response *domain.Response) error
	GetByID(ctx context.Context, id string) (*domain.Response, error)
	ListByTicket(ctx context.Context, ticketID string) ([]domain.Response, error)
}

type responseRepository struct {
	pool *pgxpool.Pool
}

// NewResponseRepository builds repository.
func NewResponseRepository(pool *pgxpool.Pool) ResponseRepository {
	return &responseRepository{pool: pool}
}

func (r *responseRepository) q(ctx context.Context) Querier {
	return querierFrom(ctx, r.pool)
}

func (r *responseRepository) Create(ctx context.Context, response *domain.Response) error {
	const query = `
        INSERT INTO responses (ticket_id, author_id, author_kind, body)
        VALUES ($1,$2,$3,$4)
        RETURNING id, created_at`
	return r.q(ctx).QueryRow(ctx, query,
		response.TicketID,
		response.AuthorID,
		response.AuthorKind,
		response.Body,
	).Scan(&response.ID, &response.CreatedAt)
}

func (r *responseRepository) GetByID(ctx context.Context, id string) (*domain.Response, error) {
	const query = `
        SELECT id, ticket_id, author_id, author_kind, body, created_at
        FROM responses WHERE id=$1`
	var response domain.Response
	if err := r.q(ctx).QueryRow(ctx, query, id).Scan(
		&response.ID,
		&response.TicketID,
		&response.AuthorID,
		&response.AuthorKind,
		&response.Body,
		&response.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &response, nil
}

func (r *responseRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.Response, error) {
	const query = `
        SELECT id, ticket_id, author_id, author_kind, body, created_at
        FROM responses WHERE ticket_id=$1 ORDER BY created_at ASC`
	rows, err := r.q(ctx).Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Response
	for rows.Next() {
		var response domain.Response
		if err := rows.Scan(
			&response.ID,
			&response.TicketID,
			&response.AuthorID,
			&response.AuthorKind,
			&response.Body,
			&response.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, response)
	}
	return result, rows.Err()
}
