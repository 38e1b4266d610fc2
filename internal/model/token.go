package model

import "time"

const TokenTypeBearer = "Bearer"

// TokenArtifact is what register, login and upsert hand back to the caller.
type TokenArtifact struct {
	Token            string    `json:"token"`
	Type             string    `json:"type"`
	ExpiresInSeconds int64     `json:"expiresInSeconds"`
	IssuedAt         time.Time `json:"-"`
	ExpiresAt        time.Time `json:"-"`
}

// Principal is the identity recovered from a verified bearer token.
type Principal struct {
	Subject   string    `json:"subject"`
	Roles     []string  `json:"roles"`
	ExpiresAt time.Time `json:"expires_at"`
}
