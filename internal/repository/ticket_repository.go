package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/elingeyesdev/tickets-incidentes-sub013/internal/domain"
)

// TicketFilter captures listing parameters.
type TicketFilter struct {
	CompanyID   *string
	CategoryID  *string
	CreatedBy   *string
	OwnerID     *string
	Statuses    []domain.TicketStatus
	Priorities  []domain.TicketPriority
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	Limit       int
	Offset      int
}

// LifecycleUpdate carries the ticket fields the response rule may touch.
// FirstResponseAt is folded in with COALESCE so the column stays write-once.
type LifecycleUpdate struct {
	Status                 domain.TicketStatus
	LastResponseAuthorKind domain.AuthorKind
	FirstResponseAt        *time.Time
}

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	GetByCode(ctx context.Context, code string) (*domain.Ticket, error)
	// GetForUpdate reads the ticket under a row lock; callers must hold an
	// open transaction for the lock to mean anything.
	GetForUpdate(ctx context.Context, id string) (*domain.Ticket, error)
	// ClaimOwner atomically sets the owner only while it is unset and
	// reports whether this caller won the claim.
	ClaimOwner(ctx context.Context, ticketID, agentID string) (bool, error)
	ApplyLifecycle(ctx context.Context, ticketID string, update LifecycleUpdate) error
	SetStatus(ctx context.Context, ticketID string, status domain.TicketStatus, at time.Time) error
	CountActiveByCategory(ctx context.Context, categoryID string) (int, error)
	ClearCategory(ctx context.Context, categoryID string) error
	ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

func (r *ticketRepository) q(ctx context.Context) Querier {
	return querierFrom(ctx, r.pool)
}

const ticketColumns = `id, code, company_id, category_id, created_by, subject, body,
               status, priority, owner_agent_id, last_response_author_kind,
               created_at, updated_at, first_response_at, resolved_at, closed_at`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (code, company_id, category_id, created_by, subject, body, status, priority, last_response_author_kind)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
        RETURNING id, created_at, updated_at`
	return r.q(ctx).QueryRow(ctx, query,
		ticket.Code,
		ticket.CompanyID,
		ticket.CategoryID,
		ticket.CreatedBy,
		ticket.Subject,
		ticket.Body,
		ticket.Status,
		ticket.Priority,
		ticket.LastResponseAuthorKind,
	).Scan(&ticket.ID, &ticket.CreatedAt, &ticket.UpdatedAt)
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id=$1`
	return r.fetchSingle(ctx, query, id)
}

func (r *ticketRepository) GetByCode(ctx context.Context, code string) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE code=$1`
	return r.fetchSingle(ctx, query, code)
}

func (r *ticketRepository) GetForUpdate(ctx context.Context, id string) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id=$1 FOR UPDATE`
	return r.fetchSingle(ctx, query, id)
}

func (r *ticketRepository) ClaimOwner(ctx context.Context, ticketID, agentID string) (bool, error) {
	const query = `
        UPDATE tickets SET owner_agent_id=$2, updated_at=NOW()
        WHERE id=$1 AND owner_agent_id IS NULL`
	cmd, err := r.q(ctx).Exec(ctx, query, ticketID, agentID)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() == 1, nil
}

func (r *ticketRepository) ApplyLifecycle(ctx context.Context, ticketID string, update LifecycleUpdate) error {
	const query = `
        UPDATE tickets SET status=$2, last_response_author_kind=$3,
            first_response_at=COALESCE(first_response_at, $4), updated_at=NOW()
        WHERE id=$1`
	cmd, err := r.q(ctx).Exec(ctx, query,
		ticketID,
		update.Status,
		update.LastResponseAuthorKind,
		update.FirstResponseAt,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *ticketRepository) SetStatus(ctx context.Context, ticketID string, status domain.TicketStatus, at time.Time) error {
	const query = `
        UPDATE tickets SET status=$2,
            resolved_at=CASE WHEN $2='RESOLVED' THEN $3 ELSE resolved_at END,
            closed_at=CASE WHEN $2='CLOSED' THEN $3 ELSE closed_at END,
            updated_at=NOW()
        WHERE id=$1`
	cmd, err := r.q(ctx).Exec(ctx, query, ticketID, status, at)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *ticketRepository) CountActiveByCategory(ctx context.Context, categoryID string) (int, error) {
	const query = `SELECT COUNT(*) FROM tickets WHERE category_id=$1 AND status <> 'CLOSED'`
	var count int
	if err := r.q(ctx).QueryRow(ctx, query, categoryID).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *ticketRepository) ClearCategory(ctx context.Context, categoryID string) error {
	const query = `UPDATE tickets SET category_id=NULL, updated_at=NOW() WHERE category_id=$1`
	_, err := r.q(ctx).Exec(ctx, query, categoryID)
	return err
}

func (r *ticketRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := r.q(ctx).QueryRow(ctx, query, arg).Scan(
		&ticket.ID,
		&ticket.Code,
		&ticket.CompanyID,
		&ticket.CategoryID,
		&ticket.CreatedBy,
		&ticket.Subject,
		&ticket.Body,
		&ticket.Status,
		&ticket.Priority,
		&ticket.OwnerAgentID,
		&ticket.LastResponseAuthorKind,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
		&ticket.FirstResponseAt,
		&ticket.ResolvedAt,
		&ticket.ClosedAt,
	); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (r *ticketRepository) ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	base := `SELECT ` + ticketColumns + ` FROM tickets`
	clauses := []string{"1=1"}
	args := []any{}

	if filter.CompanyID != nil {
		args = append(args, *filter.CompanyID)
		clauses = append(clauses, fmt.Sprintf("company_id=$%d", len(args)))
	}
	if filter.CategoryID != nil {
		args = append(args, *filter.CategoryID)
		clauses = append(clauses, fmt.Sprintf("category_id=$%d", len(args)))
	}
	if filter.CreatedBy != nil {
		args = append(args, *filter.CreatedBy)
		clauses = append(clauses, fmt.Sprintf("created_by=$%d", len(args)))
	}
	if filter.OwnerID != nil {
		args = append(args, *filter.OwnerID)
		clauses = append(clauses, fmt.Sprintf("owner_agent_id=$%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(filter.Priorities) > 0 {
		placeholders := make([]string, len(filter.Priorities))
		for i, pr := range filter.Priorities {
			args = append(args, pr)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("priority IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.CreatedFrom != nil {
		args = append(args, *filter.CreatedFrom)
		clauses = append(clauses, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if filter.CreatedTo != nil {
		args = append(args, *filter.CreatedTo)
		clauses = append(clauses, fmt.Sprintf("created_at <= $%d", len(args)))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`%s WHERE %s ORDER BY updated_at DESC LIMIT %d OFFSET %d`,
		base, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.q(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for rows.Next() {
		var ticket domain.Ticket
		if err := rows.Scan(
			&ticket.ID,
			&ticket.Code,
			&ticket.CompanyID,
			&ticket.CategoryID,
			&ticket.CreatedBy,
			&ticket.Subject,
			&ticket.Body,
			&ticket.Status,
			&ticket.Priority,
			&ticket.OwnerAgentID,
			&ticket.LastResponseAuthorKind,
			&ticket.CreatedAt,
			&ticket.UpdatedAt,
			&ticket.FirstResponseAt,
			&ticket.ResolvedAt,
			&ticket.ClosedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, ticket)
	}
	return result, rows.Err()
}
