package types

import "time"

// LoginRequest is the body of POST /api/v0/login.
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
	// RememberMe asks for an additional long-lived token with the "remembered" level.
	RememberMe bool `json:"remember_me,omitempty"`
}

// AccessToken is a bearer token handed to a client.
type AccessToken struct {
	Token     string    `json:"token"`
	Level     string    `json:"level"`
	ExpiresAt time.Time `json:"expires_at"`
}

// LoginResponse is returned by a successful login.
type LoginResponse struct {
	AccessToken     *AccessToken `json:"access_token"`
	RememberMeToken *AccessToken `json:"remember_me_token,omitempty"`
}

// SwitchUserRequest is the body of POST /api/v0/switch-user.
type SwitchUserRequest struct {
	Username string `json:"username" binding:"required"`
}

// WhoAmIResponse describes the identity of the calling token.
type WhoAmIResponse struct {
	Username string   `json:"username"`
	Roles    []string `json:"roles"`
	Level    string   `json:"level"`

	// ImpersonatedBy is the username of the original session when the token was obtained by switching user.
	ImpersonatedBy string `json:"impersonated_by,omitempty"`
}
