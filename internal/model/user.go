package model

import (
	"time"

	"github.com/google/uuid"
)

// Role enumerates the platform roles.
type Role string

const (
	RoleStudent Role = "STUDENT"
	RoleFaculty Role = "FACULTY"
	RoleAdmin   Role = "ADMIN"
)

// User represents a platform account (student, faculty, or admin).
type User struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	Role         Role      `json:"role"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// RegisterRequest is the payload for account registration.
// Admin accounts are created out-of-band (cmd/create-admin), never here.
type RegisterRequest struct {
	Email     string `json:"email" binding:"required,email,max=255"`
	Password  string `json:"password" binding:"required,min=8,max=128"`
	FirstName string `json:"first_name" binding:"required,min=1,max=100"`
	LastName  string `json:"last_name" binding:"required,min=1,max=100"`
	Role      Role   `json:"role" binding:"omitempty,oneof=STUDENT FACULTY"`
}

// LoginRequest is the payload for credential authentication.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8,max=128"`
}

// LoginResponse is returned after successful authentication.
type LoginResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}
