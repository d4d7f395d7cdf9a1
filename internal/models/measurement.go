package models

import (
	"time"

	"github.com/google/uuid"
)

type MeasurementKind string

const (
	KindWeight          MeasurementKind = "weight"
	KindSystolic        MeasurementKind = "blood_pressure_systolic"
	KindDiastolic       MeasurementKind = "blood_pressure_diastolic"
	KindHeartRate       MeasurementKind = "heart_rate"
	KindBloodGlucose    MeasurementKind = "blood_glucose"
	KindBodyTemperature MeasurementKind = "body_temperature"
	KindSteps           MeasurementKind = "steps"
)

// DefaultUnit is used when a measurement is created without a unit.
func (k MeasurementKind) DefaultUnit() string {
	switch k {
	case KindWeight:
		return "kg"
	case KindSystolic, KindDiastolic:
		return "mmHg"
	case KindHeartRate:
		return "bpm"
	case KindBloodGlucose:
		return "mmol/L"
	case KindBodyTemperature:
		return "C"
	case KindSteps:
		return "steps"
	}
	return ""
}

func (k MeasurementKind) Valid() bool {
	return k.DefaultUnit() != ""
}

type Measurement struct {
	ID         uuid.UUID       `json:"id"`
	UserID     uuid.UUID       `json:"user_id"`
	Kind       MeasurementKind `json:"kind"`
	Value      float64         `json:"value"`
	Unit       string          `json:"unit"`
	MeasuredAt time.Time       `json:"measured_at"`
	Note       string          `json:"note,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}

type MeasurementRequest struct {
	Kind       MeasurementKind `json:"kind" binding:"required"`
	Value      float64         `json:"value"`
	Unit       string          `json:"unit" binding:"max=20"`
	MeasuredAt *time.Time      `json:"measured_at"`
	Note       string          `json:"note" binding:"max=500"`
}

// MeasurementFilter narrows a listing; zero values mean "no constraint".
type MeasurementFilter struct {
	Kind   MeasurementKind
	From   *time.Time
	To     *time.Time
	Limit  int
	Offset int
}
