package models

import (
	"time"

	"github.com/google/uuid"
)

// RefreshToken is one entry of a user's set of live sessions.
// TokenID is the jti of the signed refresh token handed to the client.
type RefreshToken struct {
	UserID    uuid.UUID `json:"-"`
	TokenID   uuid.UUID `json:"id"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}
