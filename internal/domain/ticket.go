package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen     TicketStatus = "OPEN"
	TicketStatusPending  TicketStatus = "PENDING"
	TicketStatusResolved TicketStatus = "RESOLVED"
	TicketStatusClosed   TicketStatus = "CLOSED"
)

// TicketPriority enumerates SLA urgency.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "LOW"
	TicketPriorityMedium TicketPriority = "MEDIUM"
	TicketPriorityHigh   TicketPriority = "HIGH"
	TicketPriorityUrgent TicketPriority = "URGENT"
)

// AuthorKind indicates which side of the conversation wrote something.
// AuthorKindNone is only valid for Ticket.LastResponseAuthorKind on tickets
// without any responses yet.
type AuthorKind string

const (
	AuthorKindNone  AuthorKind = "NONE"
	AuthorKindUser  AuthorKind = "USER"
	AuthorKindAgent AuthorKind = "AGENT"
)

// Ticket is the aggregate for support requests.
type Ticket struct {
	ID                     string
	Code                   string
	CompanyID              string
	CategoryID             *string
	CreatedBy              string
	Subject                string
	Body                   string
	Status                 TicketStatus
	Priority               TicketPriority
	OwnerAgentID           *string
	LastResponseAuthorKind AuthorKind
	CreatedAt              time.Time
	UpdatedAt              time.Time
	FirstResponseAt        *time.Time
	ResolvedAt             *time.Time
	ClosedAt               *time.Time
}

// Active reports whether the ticket still blocks deletion of entities it
// references. Every status except CLOSED counts as active.
func (t *Ticket) Active() bool {
	return t.Status != TicketStatusClosed
}

var allowedTransitions = map[TicketStatus][]TicketStatus{
	TicketStatusOpen:     {TicketStatusPending, TicketStatusClosed},
	TicketStatusPending:  {TicketStatusResolved, TicketStatusClosed},
	TicketStatusResolved: {TicketStatusPending, TicketStatusClosed},
	TicketStatusClosed:   {},
}

// CanTransition reports whether the status machine permits current -> next.
// CLOSED is terminal.
func CanTransition(current, next TicketStatus) bool {
	for _, candidate := range allowedTransitions[current] {
		if candidate == next {
			return true
		}
	}
	return false
}

// ResponseEffect describes what a single response changed on its ticket.
type ResponseEffect struct {
	OwnerAssigned  bool
	FirstResponse  bool
	OldStatus      TicketStatus
	NewStatus      TicketStatus
	StatusChanged  bool
	LastAuthorKind AuthorKind
}

// ApplyResponse applies the ownership-assignment rule for a newly recorded
// response to the ticket in memory and reports what changed. The caller must
// persist the mutation atomically with the response insert; the owner
// assignment must additionally go through a compare-and-set so concurrent
// agent replies cannot both win.
//
// Agent responses always overwrite LastResponseAuthorKind, claim ownership
// only while it is unset, stamp the write-once first-response timestamp and
// move OPEN tickets to PENDING. User responses overwrite
// LastResponseAuthorKind and reopen RESOLVED tickets to PENDING.
func (t *Ticket) ApplyResponse(kind AuthorKind, authorID string, now time.Time) ResponseEffect {
	effect := ResponseEffect{
		OldStatus:      t.Status,
		NewStatus:      t.Status,
		LastAuthorKind: kind,
	}
	t.LastResponseAuthorKind = kind

	switch kind {
	case AuthorKindAgent:
		if t.OwnerAgentID == nil {
			owner := authorID
			t.OwnerAgentID = &owner
			effect.OwnerAssigned = true
		}
		if t.FirstResponseAt == nil {
			ts := now
			t.FirstResponseAt = &ts
			effect.FirstResponse = true
		}
		if t.Status == TicketStatusOpen {
			t.Status = TicketStatusPending
		}
	case AuthorKindUser:
		if t.Status == TicketStatusResolved {
			t.Status = TicketStatusPending
		}
	}

	effect.NewStatus = t.Status
	effect.StatusChanged = effect.NewStatus != effect.OldStatus
	return effect
}
