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

// AttachmentService admits new attachments against the referential,
// authorship-window and quota constraints. All three checks and the insert
// run inside one transaction holding the ticket row lock, so two uploads
// racing for the last quota slot serialize and the loser sees the updated
// count.
type AttachmentService struct {
	tickets     repository.TicketRepository
	responses   repository.ResponseRepository
	attachments repository.AttachmentRepository
	txm         repository.TxManager
	dispatcher  events.Dispatcher
	quota       int
	window      time.Duration
	attempts    int
	now         func() time.Time
}

// AttachmentDependencies bundles collaborators for the service.
type AttachmentDependencies struct {
	TicketRepo     repository.TicketRepository
	ResponseRepo   repository.ResponseRepository
	AttachmentRepo repository.AttachmentRepository
	TxManager      repository.TxManager
	Dispatcher     events.Dispatcher
	Policy         config.TicketPolicyConfig
}

// RecordAttachmentInput describes an upload. The file bytes already live in
// external storage; only the reference is recorded here. UploaderID and
// UploaderKind are trusted, verified upstream by the auth collaborator.
type RecordAttachmentInput struct {
	TicketID     string
	ResponseID   *string
	UploaderID   string
	UploaderKind domain.AuthorKind
	FileName     string
	MimeType     string
	SizeBytes    int64
	StorageKey   string
}

// NewAttachmentService constructs the service.
func NewAttachmentService(deps AttachmentDependencies) *AttachmentService {
	quota := deps.Policy.AttachmentQuota
	if quota <= 0 {
		quota = 5
	}
	window := deps.Policy.AttachmentWindow()
	if window <= 0 {
		window = 30 * time.Minute
	}
	return &AttachmentService{
		tickets:     deps.TicketRepo,
		responses:   deps.ResponseRepo,
		attachments: deps.AttachmentRepo,
		txm:         deps.TxManager,
		dispatcher:  deps.Dispatcher,
		quota:       quota,
		window:      window,
		attempts:    deps.Policy.TxAttempts,
		now:         time.Now,
	}
}

// RecordAttachment validates and commits a new attachment. Checks run in
// order, first failure wins: referential consistency, authorship window,
// quota. On any rejection nothing is committed.
func (s *AttachmentService) RecordAttachment(ctx context.Context, in RecordAttachmentInput) (*domain.Attachment, error) {
	if strings.TrimSpace(in.FileName) == "" || strings.TrimSpace(in.StorageKey) == "" {
		return nil, apperrors.NewValidationError("file_name and storage_key required", nil)
	}
	if in.SizeBytes < 0 {
		return nil, apperrors.NewValidationError("size_bytes must not be negative", nil)
	}

	var attachment *domain.Attachment
	err := runInTxWithRetry(ctx, s.txm, s.attempts, func(ctx context.Context) error {
		ticket, err := s.tickets.GetForUpdate(ctx, in.TicketID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return apperrors.NewNotFound("ticket", map[string]any{"ticket_id": in.TicketID})
			}
			return err
		}

		if in.ResponseID != nil {
			if err := s.checkResponseLink(ctx, ticket, in); err != nil {
				return err
			}
		}

		count, err := s.attachments.CountByTicket(ctx, ticket.ID)
		if err != nil {
			return err
		}
		if count >= s.quota {
			return apperrors.NewQuotaExceeded("attachment quota reached for ticket", map[string]any{
				"ticket_id": ticket.ID,
				"quota":     s.quota,
			})
		}

		attachment = &domain.Attachment{
			TicketID:   ticket.ID,
			ResponseID: in.ResponseID,
			UploaderID: in.UploaderID,
			FileName:   strings.TrimSpace(in.FileName),
			MimeType:   in.MimeType,
			SizeBytes:  in.SizeBytes,
			StorageKey: in.StorageKey,
		}
		return s.attachments.Create(ctx, attachment)
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	publish(ctx, s.dispatcher, events.Event{
		Type:     events.EventAttachmentAdded,
		TicketID: attachment.TicketID,
		Actor:    actorOf(in.UploaderKind, in.UploaderID),
		Payload: events.AttachmentAddedPayload{
			AttachmentID: attachment.ID,
			ResponseID:   attachment.ResponseID,
			FileName:     attachment.FileName,
			SizeBytes:    attachment.SizeBytes,
		},
	})
	return attachment, nil
}

// checkResponseLink enforces the referential and authorship-window rules for
// response-linked uploads. Direct ticket-level uploads skip both.
func (s *AttachmentService) checkResponseLink(ctx context.Context, ticket *domain.Ticket, in RecordAttachmentInput) error {
	response, err := s.responses.GetByID(ctx, *in.ResponseID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewReferentialMismatch("referenced response does not exist", map[string]any{
				"response_id": *in.ResponseID,
			})
		}
		return err
	}
	if response.TicketID != ticket.ID {
		return apperrors.NewReferentialMismatch("response belongs to a different ticket", map[string]any{
			"response_id":        response.ID,
			"response_ticket_id": response.TicketID,
			"ticket_id":          ticket.ID,
		})
	}
	if response.AuthorID != in.UploaderID {
		return apperrors.NewForbidden("only the response author may attach files to it")
	}
	if s.now().Sub(response.CreatedAt) > s.window {
		return apperrors.NewForbidden("attachment window for this response has expired")
	}
	return nil
}

// CountForTicket exposes the per-ticket attachment count read accessor.
func (s *AttachmentService) CountForTicket(ctx context.Context, ticketID string) (int, error) {
	count, err := s.attachments.CountByTicket(ctx, ticketID)
	if err != nil {
		return 0, apperrors.MapError(err)
	}
	return count, nil
}

// ListForTicket returns all attachment references for a ticket.
func (s *AttachmentService) ListForTicket(ctx context.Context, ticketID string) ([]domain.Attachment, error) {
	list, err := s.attachments.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return list, nil
}
