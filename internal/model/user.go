package model

import (
	"net/mail"
	"time"

	"github.com/google/uuid"
)

// Role separates shoppers from back-office staff.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleAdmin    Role = "admin"
)

// User is an account known to the auth collaborator.
type User struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Session is the signed-in identity carried by a request.
type Session struct {
	UserID uuid.UUID `json:"userId"`
	Email  string    `json:"email"`
	Role   Role      `json:"role"`
}

// SignUpRequest is the payload for creating a customer account.
type SignUpRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate checks the sign-up payload.
func (r *SignUpRequest) Validate() error {
	if r == nil {
		return NewValidationError("sign-up payload is required")
	}
	if r.Name == "" {
		return NewValidationError("name is required")
	}
	if _, err := mail.ParseAddress(r.Email); err != nil {
		return NewValidationError("a valid e-mail is required")
	}
	if len(r.Password) < 6 {
		return NewValidationError("password must have at least 6 characters")
	}
	return nil
}

// SignInRequest is the payload for starting a session.
type SignInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
