package dto

import (
	"time"

	"github.com/incidentdesk/incidentdesk/internal/model"
)

// CreateIncidentRequest represents the request body for creating an incident.
type CreateIncidentRequest struct {
	Title       string  `json:"titulo"`
	Description *string `json:"descripcion,omitempty"`
	Status      *string `json:"estado,omitempty"`
}

// UpdateIncidentRequest represents a partial update. Absent or null fields are unchanged.
type UpdateIncidentRequest struct {
	Title       *string `json:"titulo,omitempty"`
	Description *string `json:"descripcion,omitempty"`
	Status      *string `json:"estado,omitempty"`
}

// IncidentResponse represents an incident in API responses.
type IncidentResponse struct {
	ID          int64      `json:"id"`
	Title       string     `json:"titulo"`
	Description *string    `json:"descripcion"`
	Status      string     `json:"estado"`
	CreatedAt   time.Time  `json:"creado_en"`
	UpdatedAt   *time.Time `json:"actualizado_en"`
}

// ToIncidentResponse converts an Incident model to IncidentResponse DTO.
func ToIncidentResponse(incident *model.Incident) *IncidentResponse {
	return &IncidentResponse{
		ID:          incident.ID,
		Title:       incident.Title,
		Description: incident.Description,
		Status:      string(incident.Status),
		CreatedAt:   incident.CreatedAt,
		UpdatedAt:   incident.UpdatedAt,
	}
}

// ToIncidentList converts incidents to responses, never returning nil.
func ToIncidentList(incidents []*model.Incident) []IncidentResponse {
	out := make([]IncidentResponse, 0, len(incidents))
	for _, inc := range incidents {
		out = append(out, *ToIncidentResponse(inc))
	}
	return out
}

// Patch converts the request into a model patch.
func (r UpdateIncidentRequest) Patch() model.IncidentPatch {
	patch := model.IncidentPatch{
		Title:       r.Title,
		Description: r.Description,
	}
	if r.Status != nil {
		s := model.IncidentStatus(*r.Status)
		patch.Status = &s
	}
	return patch
}
