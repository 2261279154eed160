package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// JWTClaims carries the student identity inside an access token.
type JWTClaims struct {
	StudentID string `json:"student_id"`
	Email     string `json:"email"`
	jwt.RegisteredClaims
}

// RegisterRequest is the sign-up payload. Email and jmbag are generated
// server-side, so only the name and password are accepted.
type RegisterRequest struct {
	FirstName string `json:"first_name" validate:"required"`
	LastName  string `json:"last_name" validate:"required"`
	Password  string `json:"password" validate:"required,min=8"`
}

// LoginRequest is the credentials payload.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// AuthResponse returns the authenticated student and the issued token.
type AuthResponse struct {
	Token     string    `json:"token"`
	ExpiresIn int64     `json:"expires_in"`
	IssuedAt  time.Time `json:"issued_at"`
	Student   *Student  `json:"student"`
}
