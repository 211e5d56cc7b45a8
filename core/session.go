package core

import "time"

type SessionConfig struct {
	MaxAge time.Duration
}

func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		MaxAge: 24 * time.Hour,
	}
}

// ClientInfo describes the client a session is established for.
type ClientInfo struct {
	IPAddress string
	UserAgent string
}

type CreateSessionResult struct {
	Session *Session `json:"session"`
	Token   string   `json:"token"`
}

// SignUpInput contains the data needed to register a new account
type SignUpInput struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

// SignInInput contains the credentials for local authentication
type SignInInput struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

// AuthResult contains the authenticated principal and their new session
type AuthResult struct {
	Principal *Principal `json:"principal"`
	Session   *Session   `json:"session"`
	Token     string     `json:"token"` // The raw token (not the hash)
}
