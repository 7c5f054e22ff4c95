package domain

import "time"

// Company is the tenant anchor. Users and tickets belong to exactly one.
type Company struct {
	ID        string
	Name      string
	CreatedAt time.Time
}
