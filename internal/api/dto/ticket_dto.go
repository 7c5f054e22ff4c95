package dto

import (
	"time"

	"github.com/elingeyesdev/tickets-incidentes-sub013/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	CategoryID *string               `json:"category_id"`
	Subject    string                `json:"subject"`
	Body       string                `json:"body"`
	Priority   domain.TicketPriority `json:"priority"`
}

// TicketSummary response.
type TicketSummary struct {
	ID                     string                `json:"id"`
	Code                   string                `json:"code"`
	CompanyID              string                `json:"company_id"`
	CategoryID             *string               `json:"category_id"`
	Subject                string                `json:"subject"`
	Status                 domain.TicketStatus   `json:"status"`
	Priority               domain.TicketPriority `json:"priority"`
	OwnerAgentID           *string               `json:"owner_agent_id"`
	LastResponseAuthorKind domain.AuthorKind     `json:"last_response_author_kind"`
	CreatedAt              time.Time             `json:"created_at"`
	UpdatedAt              time.Time             `json:"updated_at"`
}

// TicketDetailResponse provides full ticket info.
type TicketDetailResponse struct {
	TicketSummary
	Body            string             `json:"body"`
	CreatedBy       string             `json:"created_by"`
	FirstResponseAt *time.Time         `json:"first_response_at"`
	ResolvedAt      *time.Time         `json:"resolved_at"`
	ClosedAt        *time.Time         `json:"closed_at"`
	Responses       []ResponseResponse `json:"responses"`
}

// CreateResponseRequest payload.
type CreateResponseRequest struct {
	Body string `json:"body"`
}

// ResponseResponse represents one conversation entry.
type ResponseResponse struct {
	ID         string            `json:"id"`
	TicketID   string            `json:"ticket_id"`
	AuthorID   string            `json:"author_id"`
	AuthorKind domain.AuthorKind `json:"author_kind"`
	Body       string            `json:"body"`
	CreatedAt  time.Time         `json:"created_at"`
}

// CreateAttachmentRequest describes attachment input.
type CreateAttachmentRequest struct {
	ResponseID *string `json:"response_id"`
	FileName   string  `json:"file_name"`
	MimeType   string  `json:"mime_type"`
	SizeBytes  int64   `json:"size_bytes"`
	StorageKey string  `json:"storage_key"`
}

// AttachmentResponse metadata.
type AttachmentResponse struct {
	ID         string    `json:"id"`
	TicketID   string    `json:"ticket_id"`
	ResponseID *string   `json:"response_id,omitempty"`
	FileName   string    `json:"file_name"`
	MimeType   string    `json:"mime_type"`
	SizeBytes  int64     `json:"size_bytes"`
	CreatedAt  time.Time `json:"created_at"`
}

// StatusChangeRequest payload for resolve/close operations.
type StatusChangeRequest struct {
	Comment string `json:"comment"`
}

// HistoryResponse represents an audit trail entry.
type HistoryResponse struct {
	ID            string                  `json:"id"`
	ChangeType    domain.TicketChangeType `json:"change_type"`
	ChangedByKind domain.AuthorKind       `json:"changed_by_kind"`
	ChangedByID   *string                 `json:"changed_by_id"`
	OldValue      map[string]any          `json:"old_value"`
	NewValue      map[string]any          `json:"new_value"`
	CreatedAt     time.Time               `json:"created_at"`
}
