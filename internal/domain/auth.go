package domain

import "time"

// TokenType differentiates access from refresh tokens.
type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

// Identity is the caller identity a valid token carries.
type Identity struct {
	SubjectID string `json:"id"`
	Username  string `json:"username"`
	Role      Role   `json:"role"`
}

// TokenPair is returned from a successful login.
type TokenPair struct {
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
}
