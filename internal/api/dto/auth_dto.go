package dto

import (
	"time"

	"github.com/elingeyesdev/tickets-incidentes-sub013/internal/domain"
)

// RegisterRequest payload.
type RegisterRequest struct {
	CompanyID string          `json:"company_id"`
	Name      string          `json:"name"`
	Email     string          `json:"email"`
	Password  string          `json:"password"`
	Role      domain.UserRole `json:"role"`
}

// LoginRequest payload.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse response.
type LoginResponse struct {
	AccessToken string          `json:"access_token"`
	ExpiresAt   time.Time       `json:"expires_at"`
	UserID      string          `json:"user_id"`
	Role        domain.UserRole `json:"role"`
}
