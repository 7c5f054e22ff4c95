package domain

import "time"

// Attachment stores metadata for a file linked to a ticket and optionally to
// one specific response of the same ticket. The file itself lives in external
// storage; this subsystem only records the reference.
type Attachment struct {
	ID         string
	TicketID   string
	ResponseID *string
	UploaderID string
	FileName   string
	MimeType   string
	SizeBytes  int64
	StorageKey string
	CreatedAt  time.Time
}
