package domain

import "time"

// UserRole distinguishes customers from support agents.
type UserRole string

const (
	UserRoleEndUser UserRole = "END_USER"
	UserRoleAgent   UserRole = "AGENT"
)

// User models any authenticated caller, customer or agent.
type User struct {
	ID           string
	CompanyID    string
	Name         string
	Email        string
	PasswordHash string
	Role         UserRole
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// AuthorKind maps the user's role to the conversation side it writes on.
func (u *User) AuthorKind() AuthorKind {
	if u.Role == UserRoleAgent {
		return AuthorKindAgent
	}
	return AuthorKindUser
}
