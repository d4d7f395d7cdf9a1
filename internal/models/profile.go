package models

import (
	"time"

	"github.com/google/uuid"
)

type Profile struct {
	UserID    uuid.UUID  `json:"user_id"`
	FirstName string     `json:"first_name"`
	LastName  string     `json:"last_name"`
	BirthDate *time.Time `json:"birth_date,omitempty"`
	Sex       string     `json:"sex,omitempty"`
	HeightCM  *float64   `json:"height_cm,omitempty"`
	UpdatedAt time.Time  `json:"updated_at"`
}

type ProfileRequest struct {
	FirstName string     `json:"first_name" binding:"max=100"`
	LastName  string     `json:"last_name" binding:"max=100"`
	BirthDate *time.Time `json:"birth_date"`
	Sex       string     `json:"sex" binding:"omitempty,oneof=male female other"`
	HeightCM  *float64   `json:"height_cm" binding:"omitempty,gt=0,lt=300"`
}
