package domain

import (
	"time"

	"github.com/google/uuid"
)

type HealthRecordType string

const (
	HealthRecordInjury  HealthRecordType = "injury"
	HealthRecordFitness HealthRecordType = "fitness"
	HealthRecordMedical HealthRecordType = "medical"
)

func (t HealthRecordType) Valid() bool {
	switch t {
	case HealthRecordInjury, HealthRecordFitness, HealthRecordMedical:
		return true
	}
	return false
}

type HealthRecordStatus string

const (
	HealthStatusActive     HealthRecordStatus = "active"
	HealthStatusRecovering HealthRecordStatus = "recovering"
	HealthStatusResolved   HealthRecordStatus = "resolved"
)

func (s HealthRecordStatus) Valid() bool {
	switch s {
	case HealthStatusActive, HealthStatusRecovering, HealthStatusResolved:
		return true
	}
	return false
}

type HealthSeverity string

const (
	SeverityMinor    HealthSeverity = "minor"
	SeverityModerate HealthSeverity = "moderate"
	SeveritySevere   HealthSeverity = "severe"
)

func (s HealthSeverity) Valid() bool {
	switch s {
	case SeverityMinor, SeverityModerate, SeveritySevere:
		return true
	}
	return false
}

type HealthRecord struct {
	ID         uuid.UUID          `json:"id"`
	PlayerID   uuid.UUID          `json:"player_id"`
	Type       HealthRecordType   `json:"type"`
	Status     HealthRecordStatus `json:"status"`
	Severity   HealthSeverity     `json:"severity"`
	Title      string             `json:"title"`
	Notes      *string            `json:"notes,omitempty"`
	RecordedBy uuid.UUID          `json:"recorded_by"`
	OccurredAt time.Time          `json:"occurred_at"`
	ResolvedAt *time.Time         `json:"resolved_at,omitempty"`
	CreatedAt  time.Time          `json:"created_at"`
	UpdatedAt  time.Time          `json:"updated_at"`
	// Joined fields
	PlayerUsername    string `json:"player_username,omitempty"`
	PlayerDisplayName string `json:"player_display_name,omitempty"`
}
