package models

import "time"

// Access token response returned by register and login
type TokenResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresIn   int       `json:"expires_in"`
	UserID      string    `json:"user_id"`
	TenantID    string    `json:"tenant_id"`
	TokenID     string    `json:"token_id"`
	IssuedAt    time.Time `json:"issued_at"`
}

type AuthResponse struct {
	User  *User          `json:"user"`
	Token *TokenResponse `json:"token"`
}
