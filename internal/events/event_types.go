package events

import (
	"time"

	"github.com/elingeyesdev/tickets-incidentes-sub013/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated       EventType = "ticket_created"
	EventResponseRecorded    EventType = "response_recorded"
	EventTicketOwnerAssigned EventType = "ticket_owner_assigned"
	EventTicketStatusChanged EventType = "ticket_status_changed"
	EventAttachmentAdded     EventType = "attachment_added"
	EventCategoryDeleted     EventType = "category_deleted"
)

// Actor encapsulates actor metadata for an event.
type Actor struct {
	Kind   domain.AuthorKind `json:"kind"`
	UserID string            `json:"user_id"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  string      `json:"ticket_id,omitempty"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	CompanyID  string                `json:"company_id"`
	CategoryID *string               `json:"category_id,omitempty"`
	Priority   domain.TicketPriority `json:"priority"`
	Subject    string                `json:"subject"`
}

// ResponseRecordedPayload payload.
type ResponseRecordedPayload struct {
	ResponseID  string            `json:"response_id"`
	AuthorKind  domain.AuthorKind `json:"author_kind"`
	AuthorID    string            `json:"author_id"`
	BodyPreview string            `json:"body_preview"`
}

// TicketOwnerAssignedPayload payload.
type TicketOwnerAssignedPayload struct {
	OwnerAgentID string `json:"owner_agent_id"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
	Comment   string              `json:"comment,omitempty"`
}

// AttachmentAddedPayload payload.
type AttachmentAddedPayload struct {
	AttachmentID string  `json:"attachment_id"`
	ResponseID   *string `json:"response_id,omitempty"`
	FileName     string  `json:"file_name"`
	SizeBytes    int64   `json:"size_bytes"`
}

// CategoryDeletedPayload payload.
type CategoryDeletedPayload struct {
	CategoryID string `json:"category_id"`
}
