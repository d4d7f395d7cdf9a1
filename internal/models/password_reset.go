package models

import (
	"time"

	"github.com/google/uuid"
)

// PasswordReset хранит только bcrypt-хэш кода.
type PasswordReset struct {
	ID        int64      `json:"id"`
	UserID    uuid.UUID  `json:"user_id"`
	CodeHash  string     `json:"-"`
	ExpiresAt time.Time  `json:"expires_at"`
	// Attempts counts codes checked against this reset, right or wrong.
	Attempts  int        `json:"attempts"`
	UsedAt    *time.Time `json:"used_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}
