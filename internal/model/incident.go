package model

import "time"

// IncidentStatus is the lifecycle state of an incident.
// Transitions are unrestricted: any state may move to any other.
type IncidentStatus string

const (
	StatusOpen       IncidentStatus = "ABIERTO"
	StatusInProgress IncidentStatus = "EN_PROCESO"
	StatusClosed     IncidentStatus = "CERRADO"
)

// ValidStatuses lists every accepted status in lifecycle order.
var ValidStatuses = []IncidentStatus{StatusOpen, StatusInProgress, StatusClosed}

// IsValid checks if the status is one of the known values.
func (s IncidentStatus) IsValid() bool {
	switch s {
	case StatusOpen, StatusInProgress, StatusClosed:
		return true
	}
	return false
}

// Incident is a tracked operational or security incident.
type Incident struct {
	ID          int64          `json:"id"`
	Title       string         `json:"titulo"`
	Description *string        `json:"descripcion"`
	Status      IncidentStatus `json:"estado"`
	CreatedAt   time.Time      `json:"creado_en"`
	UpdatedAt   *time.Time     `json:"actualizado_en"`
}

// IncidentPatch carries the fields of a partial update.
// Nil fields are left untouched.
type IncidentPatch struct {
	Title       *string
	Description *string
	Status      *IncidentStatus
}

// IsEmpty returns true if the patch changes nothing.
func (p IncidentPatch) IsEmpty() bool {
	return p.Title == nil && p.Description == nil && p.Status == nil
}
