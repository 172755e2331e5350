package dto

import "time"

// LoginRequest payload.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// TokenResponse carries the bearer token.
type TokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// LoginResponse response.
type LoginResponse struct {
	Agent AgentResponse `json:"agent"`
	Auth  TokenResponse `json:"auth"`
}
