package domain

import "time"

// Response is a public reply in a ticket conversation. Responses are
// append-only: never updated or deleted once recorded.
type Response struct {
	ID         string
	TicketID   string
	AuthorID   string
	AuthorKind AuthorKind
	Body       string
	CreatedAt  time.Time
}
