package dto

import "time"

// ─── Request DTOs ────────────────────────────────────────────────────────────

type RegisterRequest struct {
	Username string `json:"username"  validate:"required,min=3,max=50"`
	Email    string `json:"email"     validate:"required,email,max=100"`
	Password string `json:"password"  validate:"required,min=4,max=72"`
	FullName string `json:"full_name" validate:"omitempty,max=100"`
	Role     string `json:"role"      validate:"omitempty,oneof=admin manager employee"`
	ShopName string `json:"shop_name" validate:"omitempty,max=100"` // only used when an admin opens a new shop
}

type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type SetActiveRequest struct {
	Active *bool `json:"active" validate:"required"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type UserResponse struct {
	ID        string     `json:"id"`
	Username  string     `json:"username"`
	Email     string     `json:"email"`
	FullName  string     `json:"full_name"`
	Role      string     `json:"role"`
	IsActive  bool       `json:"is_active"`
	ShopID    string     `json:"shop_id"`
	CreatedAt time.Time  `json:"created_at"`
	LastLogin *time.Time `json:"last_login"`
}

type AuthResponse struct {
	User        UserResponse `json:"user"`
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	ExpiresIn   int          `json:"expires_in"` // seconds
}
