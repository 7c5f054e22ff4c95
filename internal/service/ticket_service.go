package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/elingeyesdev/tickets-incidentes-sub013/internal/config"
	"github.com/elingeyesdev/tickets-incidentes-sub013/internal/domain"
	"github.com/elingeyesdev/tickets-incidentes-sub013/internal/events"
	"github.com/elingeyesdev/tickets-incidentes-sub013/internal/repository"
	"github.com/elingeyesdev/tickets-incidentes-sub013/pkg/apperrors"
)

// TicketService covers ticket creation, read accessors and the explicit
// resolve/close status operations. The response-driven transitions live in
// ResponseService.
type TicketService struct {
	tickets    repository.TicketRepository
	responses  repository.ResponseRepository
	categories repository.CategoryRepository
	history    repository.TicketHistoryRepository
	txm        repository.TxManager
	dispatcher events.Dispatcher
	attempts   int
	now        func() time.Time
}

// TicketDependencies bundles repositories for ticket service.
type TicketDependencies struct {
	TicketRepo   repository.TicketRepository
	ResponseRepo repository.ResponseRepository
	CategoryRepo repository.CategoryRepository
	HistoryRepo  repository.TicketHistoryRepository
	TxManager    repository.TxManager
	Dispatcher   events.Dispatcher
	Policy       config.TicketPolicyConfig
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	CategoryID *string
	Subject    string
	Body       string
	Priority   domain.TicketPriority
}

// TicketListInput describes listing filters.
type TicketListInput struct {
	CategoryID  *string
	Statuses    []domain.TicketStatus
	Priorities  []domain.TicketPriority
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	Limit       int
	Offset      int
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	return &TicketService{
		tickets:    deps.TicketRepo,
		responses:  deps.ResponseRepo,
		categories: deps.CategoryRepo,
		history:    deps.HistoryRepo,
		txm:        deps.TxManager,
		dispatcher: deps.Dispatcher,
		attempts:   deps.Policy.TxAttempts,
		now:        time.Now,
	}
}

// CreateTicket creates a ticket for the calling user: status OPEN, no owner,
// no responses yet.
func (s *TicketService) CreateTicket(ctx context.Context, creator *domain.User, input TicketCreateInput) (*domain.Ticket, error) {
	if creator == nil {
		return nil, apperrors.NewUnauthorized("user required")
	}
	if strings.TrimSpace(input.Subject) == "" || strings.TrimSpace(input.Body) == "" {
		return nil, apperrors.NewValidationError("subject and body required", nil)
	}
	if input.CategoryID != nil {
		if _, err := s.categories.GetByID(ctx, *input.CategoryID); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, apperrors.NewNotFound("category", map[string]any{"category_id": *input.CategoryID})
			}
			return nil, apperrors.MapError(err)
		}
	}

	ticket := &domain.Ticket{
		Code:                   generateTicketCode(),
		CompanyID:              creator.CompanyID,
		CategoryID:             input.CategoryID,
		CreatedBy:              creator.ID,
		Subject:                strings.TrimSpace(input.Subject),
		Body:                   strings.TrimSpace(input.Body),
		Status:                 domain.TicketStatusOpen,
		Priority:               input.Priority,
		LastResponseAuthorKind: domain.AuthorKindNone,
	}
	if ticket.Priority == "" {
		ticket.Priority = domain.TicketPriorityMedium
	}

	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}
	publish(ctx, s.dispatcher, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		Actor:    actorOf(creator.AuthorKind(), creator.ID),
		Payload: events.TicketCreatedPayload{
			CompanyID:  ticket.CompanyID,
			CategoryID: ticket.CategoryID,
			Priority:   ticket.Priority,
			Subject:    ticket.Subject,
		},
	})
	return ticket, nil
}

// GetTicket fetches a ticket with its conversation, ensuring access: agents
// see every ticket, end users only their own.
func (s *TicketService) GetTicket(ctx context.Context, actor *domain.User, ticketID string) (*domain.Ticket, []domain.Response, error) {
	ticket, err := s.fetch(ctx, ticketID)
	if err != nil {
		return nil, nil, err
	}
	if !canAccessTicket(actor, ticket) {
		return nil, nil, apperrors.NewForbidden("access denied")
	}
	responses, err := s.responses.ListByTicket(ctx, ticket.ID)
	if err != nil {
		return nil, nil, apperrors.MapError(err)
	}
	return ticket, responses, nil
}

// ListTickets returns tickets visible to the actor.
func (s *TicketService) ListTickets(ctx context.Context, actor *domain.User, input TicketListInput) ([]domain.Ticket, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthorized("user required")
	}
	filter := repository.TicketFilter{
		CategoryID:  input.CategoryID,
		Statuses:    input.Statuses,
		Priorities:  input.Priorities,
		CreatedFrom: input.CreatedFrom,
		CreatedTo:   input.CreatedTo,
		Limit:       input.Limit,
		Offset:      input.Offset,
	}
	if actor.Role == domain.UserRoleAgent {
		filter.CompanyID = nil
	} else {
		creator := actor.ID
		filter.CreatedBy = &creator
	}
	tickets, err := s.tickets.ListWithFilter(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return tickets, nil
}

// Resolve moves a PENDING ticket to RESOLVED and stamps resolved_at.
func (s *TicketService) Resolve(ctx context.Context, agent *domain.User, ticketID, comment string) (*domain.Ticket, error) {
	return s.setStatus(ctx, agent, ticketID, domain.TicketStatusResolved, comment)
}

// Close moves any non-closed ticket to CLOSED and stamps closed_at. CLOSED
// is terminal.
func (s *TicketService) Close(ctx context.Context, actor *domain.User, ticketID, comment string) (*domain.Ticket, error) {
	return s.setStatus(ctx, actor, ticketID, domain.TicketStatusClosed, comment)
}

func (s *TicketService) setStatus(ctx context.Context, actor *domain.User, ticketID string, next domain.TicketStatus, comment string) (*domain.Ticket, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthorized("user required")
	}
	var ticket *domain.Ticket
	var oldStatus domain.TicketStatus
	err := runInTxWithRetry(ctx, s.txm, s.attempts, func(ctx context.Context) error {
		var err error
		ticket, err = s.tickets.GetForUpdate(ctx, ticketID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
			}
			return err
		}
		if !canAccessTicket(actor, ticket) {
			return apperrors.NewForbidden("access denied")
		}
		if next == domain.TicketStatusResolved && actor.Role != domain.UserRoleAgent {
			return apperrors.NewForbidden("only agents may resolve tickets")
		}
		if !domain.CanTransition(ticket.Status, next) {
			return apperrors.NewConflict("invalid status transition", map[string]any{
				"from": ticket.Status,
				"to":   next,
			})
		}
		oldStatus = ticket.Status
		now := s.now()
		if err := s.tickets.SetStatus(ctx, ticket.ID, next, now); err != nil {
			return err
		}
		ticket.Status = next
		switch next {
		case domain.TicketStatusResolved:
			ticket.ResolvedAt = &now
		case domain.TicketStatusClosed:
			ticket.ClosedAt = &now
		}
		if s.history != nil {
			actorID := actor.ID
			return s.history.Create(ctx, &domain.TicketHistory{
				TicketID:      ticket.ID,
				ChangedByKind: actor.AuthorKind(),
				ChangedByID:   &actorID,
				ChangeType:    domain.ChangeTypeStatus,
				OldValue:      map[string]any{"status": oldStatus},
				NewValue:      map[string]any{"status": next, "comment": comment},
			})
		}
		return nil
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	publish(ctx, s.dispatcher, events.Event{
		Type:     events.EventTicketStatusChanged,
		TicketID: ticket.ID,
		Actor:    actorOf(actor.AuthorKind(), actor.ID),
		Payload: events.TicketStatusChangedPayload{
			OldStatus: oldStatus,
			NewStatus: ticket.Status,
			Comment:   comment,
		},
	})
	return ticket, nil
}

// ListHistory returns the audit trail for a ticket.
func (s *TicketService) ListHistory(ctx context.Context, actor *domain.User, ticketID string, limit, offset int) ([]domain.TicketHistory, error) {
	if s.history == nil {
		return []domain.TicketHistory{}, nil
	}
	ticket, err := s.fetch(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if !canAccessTicket(actor, ticket) {
		return nil, apperrors.NewForbidden("access denied")
	}
	history, err := s.history.ListByTicket(ctx, ticketID, limit, offset)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return history, nil
}

func (s *TicketService) fetch(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.MapError(err)
	}
	return ticket, nil
}

func canAccessTicket(actor *domain.User, ticket *domain.Ticket) bool {
	if actor == nil {
		return false
	}
	if actor.Role == domain.UserRoleAgent {
		return true
	}
	return ticket.CreatedBy == actor.ID
}
