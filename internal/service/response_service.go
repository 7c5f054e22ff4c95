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

// ResponseService records ticket responses and applies the ownership
// assignment rule in the same transaction as the insert. The original system
// hid this rule in a database trigger; here it is an explicit application
// function so the invariants stay visible and testable.
type ResponseService struct {
	tickets    repository.TicketRepository
	responses  repository.ResponseRepository
	history    repository.TicketHistoryRepository
	txm        repository.TxManager
	dispatcher events.Dispatcher
	attempts   int
	now        func() time.Time
}

// ResponseDependencies bundles collaborators for the service.
type ResponseDependencies struct {
	TicketRepo   repository.TicketRepository
	ResponseRepo repository.ResponseRepository
	HistoryRepo  repository.TicketHistoryRepository
	TxManager    repository.TxManager
	Dispatcher   events.Dispatcher
	Policy       config.TicketPolicyConfig
}

// RecordResponseInput describes a new response. AuthorKind is trusted: the
// auth collaborator has already verified the author's identity and role.
type RecordResponseInput struct {
	TicketID   string
	AuthorID   string
	AuthorKind domain.AuthorKind
	Body       string
}

// NewResponseService constructs the service.
func NewResponseService(deps ResponseDependencies) *ResponseService {
	return &ResponseService{
		tickets:    deps.TicketRepo,
		responses:  deps.ResponseRepo,
		history:    deps.HistoryRepo,
		txm:        deps.TxManager,
		dispatcher: deps.Dispatcher,
		attempts:   deps.Policy.TxAttempts,
		now:        time.Now,
	}
}

// RecordResponse appends a response and atomically updates the owning
// ticket's owner, status, last-author and first-response fields. Under
// concurrent agent responses to an unowned ticket exactly one caller wins
// the owner claim; all responses are recorded regardless.
func (s *ResponseService) RecordResponse(ctx context.Context, in RecordResponseInput) (*domain.Response, error) {
	if in.AuthorKind != domain.AuthorKindUser && in.AuthorKind != domain.AuthorKindAgent {
		return nil, apperrors.NewValidationError("author_kind must be USER or AGENT", nil)
	}
	if strings.TrimSpace(in.Body) == "" {
		return nil, apperrors.NewValidationError("body required", nil)
	}

	var (
		response *domain.Response
		effect   domain.ResponseEffect
	)
	err := runInTxWithRetry(ctx, s.txm, s.attempts, func(ctx context.Context) error {
		ticket, err := s.tickets.GetForUpdate(ctx, in.TicketID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return apperrors.NewNotFound("ticket", map[string]any{"ticket_id": in.TicketID})
			}
			return err
		}

		response = &domain.Response{
			TicketID:   ticket.ID,
			AuthorID:   in.AuthorID,
			AuthorKind: in.AuthorKind,
			Body:       strings.TrimSpace(in.Body),
		}
		if err := s.responses.Create(ctx, response); err != nil {
			return err
		}

		effect = ticket.ApplyResponse(in.AuthorKind, in.AuthorID, s.now())

		if effect.OwnerAssigned {
			claimed, err := s.tickets.ClaimOwner(ctx, ticket.ID, in.AuthorID)
			if err != nil {
				return err
			}
			// The row lock makes a lost claim impossible in this path, but
			// the CAS verdict is authoritative either way.
			effect.OwnerAssigned = claimed
		}

		if err := s.tickets.ApplyLifecycle(ctx, ticket.ID, repository.LifecycleUpdate{
			Status:                 effect.NewStatus,
			LastResponseAuthorKind: in.AuthorKind,
			FirstResponseAt:        ticket.FirstResponseAt,
		}); err != nil {
			return err
		}

		if effect.StatusChanged {
			if err := s.recordStatusChange(ctx, ticket.ID, in, effect); err != nil {
				return err
			}
		}
		if effect.OwnerAssigned {
			if err := s.recordOwnerChange(ctx, ticket.ID, in); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	s.publishEffects(ctx, response, in, effect)
	return response, nil
}

func (s *ResponseService) recordStatusChange(ctx context.Context, ticketID string, in RecordResponseInput, effect domain.ResponseEffect) error {
	if s.history == nil {
		return nil
	}
	authorID := in.AuthorID
	return s.history.Create(ctx, &domain.TicketHistory{
		TicketID:      ticketID,
		ChangedByKind: in.AuthorKind,
		ChangedByID:   &authorID,
		ChangeType:    domain.ChangeTypeStatus,
		OldValue:      map[string]any{"status": effect.OldStatus},
		NewValue:      map[string]any{"status": effect.NewStatus, "comment": "response_recorded"},
	})
}

func (s *ResponseService) recordOwnerChange(ctx context.Context, ticketID string, in RecordResponseInput) error {
	if s.history == nil {
		return nil
	}
	authorID := in.AuthorID
	return s.history.Create(ctx, &domain.TicketHistory{
		TicketID:      ticketID,
		ChangedByKind: in.AuthorKind,
		ChangedByID:   &authorID,
		ChangeType:    domain.ChangeTypeOwner,
		OldValue:      map[string]any{"owner_agent_id": nil},
		NewValue:      map[string]any{"owner_agent_id": in.AuthorID},
	})
}

func (s *ResponseService) publishEffects(ctx context.Context, response *domain.Response, in RecordResponseInput, effect domain.ResponseEffect) {
	actor := actorOf(in.AuthorKind, in.AuthorID)
	publish(ctx, s.dispatcher, events.Event{
		Type:     events.EventResponseRecorded,
		TicketID: response.TicketID,
		Actor:    actor,
		Payload: events.ResponseRecordedPayload{
			ResponseID:  response.ID,
			AuthorKind:  response.AuthorKind,
			AuthorID:    response.AuthorID,
			BodyPreview: stringPreview(response.Body, 120),
		},
	})
	if effect.OwnerAssigned {
		publish(ctx, s.dispatcher, events.Event{
			Type:     events.EventTicketOwnerAssigned,
			TicketID: response.TicketID,
			Actor:    actor,
			Payload:  events.TicketOwnerAssignedPayload{OwnerAgentID: in.AuthorID},
		})
	}
	if effect.StatusChanged {
		publish(ctx, s.dispatcher, events.Event{
			Type:     events.EventTicketStatusChanged,
			TicketID: response.TicketID,
			Actor:    actor,
			Payload: events.TicketStatusChangedPayload{
				OldStatus: effect.OldStatus,
				NewStatus: effect.NewStatus,
				Comment:   "response_recorded",
			},
		})
	}
}
