package handler

import (
	"log/slog"
	"net/http"

	"github.com/incidentdesk/incidentdesk/internal/auth"
	"github.com/incidentdesk/incidentdesk/internal/handler/dto"
	"github.com/incidentdesk/incidentdesk/internal/model"
	"github.com/incidentdesk/incidentdesk/internal/service"
)

// IncidentHandler handles HTTP requests for incident operations.
type IncidentHandler struct {
	svc    *service.IncidentService
	logger *slog.Logger
}

// NewIncidentHandler creates a new IncidentHandler.
func NewIncidentHandler(svc *service.IncidentService, logger *slog.Logger) *IncidentHandler {
	return &IncidentHandler{
		svc:    svc,
		logger: logger,
	}
}

// List handles GET /incidentes.
func (h *IncidentHandler) List(w http.ResponseWriter, r *http.Request) {
	incidents, err := h.svc.List(r.Context())
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.ToIncidentList(incidents))
}

// Get handles GET /incidentes/{id}.
func (h *IncidentHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}

	incident, err := h.svc.Get(r.Context(), id)
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.ToIncidentResponse(incident))
}

// Create handles POST /incidentes.
func (h *IncidentHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateIncidentRequest
	if err := decodeJSON(r, &req); err != nil {
		handleError(w, r, h.logger, err)
		return
	}

	input := service.CreateIncidentInput{
		Title:       req.Title,
		Description: req.Description,
	}
	// An empty estado means "use the default", as an omitted one does.
	if req.Status != nil && *req.Status != "" {
		s := model.IncidentStatus(*req.Status)
		input.Status = &s
	}

	incident, err := h.svc.Create(r.Context(), input)
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}

	h.logger.Info("incident_created",
		"incident_id", incident.ID,
		"status", string(incident.Status),
		"user_id", auth.MustUserFromContext(r.Context()).ID,
	)

	writeJSON(w, http.StatusCreated, dto.ToIncidentResponse(incident))
}

// Update handles PUT /incidentes/{id}.
func (h *IncidentHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}

	var req dto.UpdateIncidentRequest
	if err := decodeJSON(r, &req); err != nil {
		handleError(w, r, h.logger, err)
		return
	}

	incident, err := h.svc.Update(r.Context(), id, req.Patch())
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}

	h.logger.Info("incident_updated",
		"incident_id", incident.ID,
		"status", string(incident.Status),
		"user_id", auth.MustUserFromContext(r.Context()).ID,
	)

	writeJSON(w, http.StatusOK, dto.ToIncidentResponse(incident))
}

// Delete handles DELETE /incidentes/{id}. Mounted behind the admin role check.
func (h *IncidentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}

	if err := h.svc.Delete(r.Context(), id); err != nil {
		handleError(w, r, h.logger, err)
		return
	}

	h.logger.Info("incident_deleted",
		"incident_id", id,
		"user_id", auth.MustUserFromContext(r.Context()).ID,
	)

	w.WriteHeader(http.StatusNoContent)
}
