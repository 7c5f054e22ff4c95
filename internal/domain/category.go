package domain

import "time"

// Category is the area/category tickets are filed under. Tickets reference it
// through a nullable foreign key, so a category can be deleted independently
// once no active ticket references it.
type Category struct {
	ID          string
	Name        string
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
