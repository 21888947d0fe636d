package models

// LoginRequest represents the payload for user login
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterRequest represents the payload for user registration
type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Plan     string `json:"plan"`
}

// TokenResponse is returned by login and register
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	Plan        string `json:"plan"`
	DailyUsage  int    `json:"daily_usage"`
}

// MeResponse is returned by the whoami probe
type MeResponse struct {
	ID         int    `json:"id"`
	Email      string `json:"email"`
	Plan       string `json:"plan"`
	DailyUsage int    `json:"daily_usage"`
}

// Session is an authenticated client context
type Session struct {
	Token      string `json:"-"`
	Email      string `json:"email"`
	Plan       string `json:"plan"`
	DailyUsage int    `json:"daily_usage"`
}
