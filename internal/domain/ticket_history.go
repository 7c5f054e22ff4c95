package domain

import "time"

// TicketChangeType captures what changed in a history entry.
type TicketChangeType string

const (
	ChangeTypeStatus TicketChangeType = "STATUS_CHANGE"
	ChangeTypeOwner  TicketChangeType = "OWNER_CHANGE"
)

// TicketHistory is an immutable audit trail entry, written inside the same
// transaction as the change it records.
type TicketHistory struct {
	ID            string
	TicketID      string
	ChangedByKind AuthorKind
	ChangedByID   *string
	ChangeType    TicketChangeType
	OldValue      map[string]any
	NewValue      map[string]any
	CreatedAt     time.Time
}
