package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/elingeyesdev/tickets-incidentes-sub013/internal/api/dto"
	"github.com/elingeyesdev/tickets-incidentes-sub013/internal/auth"
	"github.com/elingeyesdev/tickets-incidentes-sub013/internal/domain"
	"github.com/elingeyesdev/tickets-incidentes-sub013/internal/service"
	"github.com/elingeyesdev/tickets-incidentes-sub013/pkg/apperrors"
)

// TicketsHandler manages ticket endpoints.
type TicketsHandler struct {
	tickets     *service.TicketService
	responses   *service.ResponseService
	attachments *service.AttachmentService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(tickets *service.TicketService, responses *service.ResponseService, attachments *service.AttachmentService) *TicketsHandler {
	return &TicketsHandler{tickets: tickets, responses: responses, attachments: attachments}
}

// CreateTicket POST /tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("user required")
	}
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.tickets.CreateTicket(c.UserContext(), principal.User, service.TicketCreateInput{
		CategoryID: req.CategoryID,
		Subject:    req.Subject,
		Body:       req.Body,
		Priority:   req.Priority,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": ticketSummary(ticket)})
}

// ListTickets GET /tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("user required")
	}
	input := service.TicketListInput{
		Limit:  parseIntQuery(c, "limit", 20),
		Offset: parseIntQuery(c, "offset", 0),
	}
	if statuses := c.Query("status"); statuses != "" {
		for _, s := range strings.Split(statuses, ",") {
			input.Statuses = append(input.Statuses, domain.TicketStatus(strings.ToUpper(strings.TrimSpace(s))))
		}
	}
	tickets, err := h.tickets.ListTickets(c.UserContext(), principal.User, input)
	if err != nil {
		return err
	}
	items := make([]dto.TicketSummary, 0, len(tickets))
	for i := range tickets {
		items = append(items, ticketSummary(&tickets[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetTicket GET /tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("user required")
	}
	ticket, responses, err := h.tickets.GetTicket(c.UserContext(), principal.User, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketDetail(ticket, responses)})
}

// AddResponse POST /tickets/:id/responses.
func (h *TicketsHandler) AddResponse(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("user required")
	}
	var req dto.CreateResponseRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	response, err := h.responses.RecordResponse(c.UserContext(), service.RecordResponseInput{
		TicketID:   c.Params("id"),
		AuthorID:   principal.User.ID,
		AuthorKind: principal.AuthorKind(),
		Body:       req.Body,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": responseResponse(response)})
}

// AddAttachment POST /tickets/:id/attachments.
func (h *TicketsHandler) AddAttachment(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("user required")
	}
	var req dto.CreateAttachmentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	attachment, err := h.attachments.RecordAttachment(c.UserContext(), service.RecordAttachmentInput{
		TicketID:     c.Params("id"),
		ResponseID:   req.ResponseID,
		UploaderID:   principal.User.ID,
		UploaderKind: principal.AuthorKind(),
		FileName:     req.FileName,
		MimeType:     req.MimeType,
		SizeBytes:    req.SizeBytes,
		StorageKey:   req.StorageKey,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": attachmentResponse(attachment)})
}

// ListAttachments GET /tickets/:id/attachments.
func (h *TicketsHandler) ListAttachments(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("user required")
	}
	ticketID := c.Params("id")
	if _, _, err := h.tickets.GetTicket(c.UserContext(), principal.User, ticketID); err != nil {
		return err
	}
	attachments, err := h.attachments.ListForTicket(c.UserContext(), ticketID)
	if err != nil {
		return err
	}
	count := len(attachments)
	items := make([]dto.AttachmentResponse, 0, count)
	for i := range attachments {
		items = append(items, attachmentResponse(&attachments[i]))
	}
	return c.JSON(fiber.Map{"data": items, "count": count})
}

// Resolve POST /tickets/:id/resolve.
func (h *TicketsHandler) Resolve(c *fiber.Ctx) error {
	return h.changeStatus(c, h.tickets.Resolve)
}

// Close POST /tickets/:id/close.
func (h *TicketsHandler) Close(c *fiber.Ctx) error {
	return h.changeStatus(c, h.tickets.Close)
}

// ListHistory GET /tickets/:id/history.
func (h *TicketsHandler) ListHistory(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("user required")
	}
	history, err := h.tickets.ListHistory(c.UserContext(), principal.User, c.Params("id"),
		parseIntQuery(c, "limit", 50), parseIntQuery(c, "offset", 0))
	if err != nil {
		return err
	}
	items := make([]dto.HistoryResponse, 0, len(history))
	for i := range history {
		items = append(items, historyResponse(&history[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

func (h *TicketsHandler) changeStatus(c *fiber.Ctx, op func(ctx context.Context, actor *domain.User, ticketID, comment string) (*domain.Ticket, error)) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("user required")
	}
	var req dto.StatusChangeRequest
	_ = c.BodyParser(&req)
	ticket, err := op(c.UserContext(), principal.User, c.Params("id"), req.Comment)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketSummary(ticket)})
}

func parseIntQuery(c *fiber.Ctx, key string, fallback int) int {
	val := c.Query(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func ticketSummary(t *domain.Ticket) dto.TicketSummary {
	return dto.TicketSummary{
		ID:                     t.ID,
		Code:                   t.Code,
		CompanyID:              t.CompanyID,
		CategoryID:             t.CategoryID,
		Subject:                t.Subject,
		Status:                 t.Status,
		Priority:               t.Priority,
		OwnerAgentID:           t.OwnerAgentID,
		LastResponseAuthorKind: t.LastResponseAuthorKind,
		CreatedAt:              t.CreatedAt,
		UpdatedAt:              t.UpdatedAt,
	}
}

func ticketDetail(t *domain.Ticket, responses []domain.Response) dto.TicketDetailResponse {
	detail := dto.TicketDetailResponse{
		TicketSummary:   ticketSummary(t),
		Body:            t.Body,
		CreatedBy:       t.CreatedBy,
		FirstResponseAt: t.FirstResponseAt,
		ResolvedAt:      t.ResolvedAt,
		ClosedAt:        t.ClosedAt,
		Responses:       make([]dto.ResponseResponse, 0, len(responses)),
	}
	for i := range responses {
		detail.Responses = append(detail.Responses, responseResponse(&responses[i]))
	}
	return detail
}

func responseResponse(r *domain.Response) dto.ResponseResponse {
	return dto.ResponseResponse{
		ID:         r.ID,
		TicketID:   r.TicketID,
		AuthorID:   r.AuthorID,
		AuthorKind: r.AuthorKind,
		Body:       r.Body,
		CreatedAt:  r.CreatedAt,
	}
}

func attachmentResponse(a *domain.Attachment) dto.AttachmentResponse {
	return dto.AttachmentResponse{
		ID:         a.ID,
		TicketID:   a.TicketID,
		ResponseID: a.ResponseID,
		FileName:   a.FileName,
		MimeType:   a.MimeType,
		SizeBytes:  a.SizeBytes,
		CreatedAt:  a.CreatedAt,
	}
}

func historyResponse(h *domain.TicketHistory) dto.HistoryResponse {
	return dto.HistoryResponse{
		ID:            h.ID,
		ChangeType:    h.ChangeType,
		ChangedByKind: h.ChangedByKind,
		ChangedByID:   h.ChangedByID,
		OldValue:      h.OldValue,
		NewValue:      h.NewValue,
		CreatedAt:     h.CreatedAt,
	}
}
