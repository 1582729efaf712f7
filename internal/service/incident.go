package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/incidentdesk/incidentdesk/internal/metrics"
	"github.com/incidentdesk/incidentdesk/internal/model"
	"github.com/incidentdesk/incidentdesk/internal/repository"
)

// IncidentStore persists incidents.
type IncidentStore interface {
	CreateIncident(ctx context.Context, incident *model.Incident) error
	ListIncidents(ctx context.Context) ([]*model.Incident, error)
	GetIncidentByID(ctx context.Context, id int64) (*model.Incident, error)
	UpdateIncident(ctx context.Context, id int64, patch model.IncidentPatch, updatedAt time.Time) (*model.Incident, error)
	DeleteIncident(ctx context.Context, id int64) error
}

// IncidentService handles incident business logic.
type IncidentService struct {
	store   IncidentStore
	metrics metrics.Recorder
	now     func() time.Time
}

// NewIncidentService creates a new IncidentService.
func NewIncidentService(store IncidentStore, recorder metrics.Recorder) *IncidentService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &IncidentService{
		store:   store,
		metrics: recorder,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// CreateIncidentInput defines input for creating an incident.
type CreateIncidentInput struct {
	Title       string
	Description *string
	Status      *model.IncidentStatus
}

// List returns all incidents ordered by ID.
func (s *IncidentService) List(ctx context.Context) ([]*model.Incident, error) {
	incidents, err := s.store.ListIncidents(ctx)
	if err != nil {
		return nil, fmt.Errorf("list incidents: %w", err)
	}
	return incidents, nil
}

// Get returns a single incident.
func (s *IncidentService) Get(ctx context.Context, id int64) (*model.Incident, error) {
	incident, err := s.store.GetIncidentByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrIncidentNotFound) {
			return nil, ErrIncidentNotFound
		}
		return nil, fmt.Errorf("get incident: %w", err)
	}
	return incident, nil
}

// Create validates input and stores a new incident. Status defaults to ABIERTO.
func (s *IncidentService) Create(ctx context.Context, input CreateIncidentInput) (*model.Incident, error) {
	verr := &ValidationError{}
	validateTitle(verr, input.Title)

	status := model.StatusOpen
	if input.Status != nil {
		validateStatus(verr, *input.Status)
		status = *input.Status
	}
	if err := verr.errOrNil(); err != nil {
		return nil, err
	}

	incident := &model.Incident{
		Title:       input.Title,
		Description: input.Description,
		Status:      status,
		CreatedAt:   s.now(),
	}

	if err := s.store.CreateIncident(ctx, incident); err != nil {
		return nil, fmt.Errorf("create incident: %w", err)
	}

	s.metrics.IncIncidentCreated()
	return incident, nil
}

// Update applies a partial update. Any status may move to any other.
// An empty patch returns the current incident without writing.
func (s *IncidentService) Update(ctx context.Context, id int64, patch model.IncidentPatch) (*model.Incident, error) {
	verr := &ValidationError{}
	if patch.Title != nil {
		validateTitle(verr, *patch.Title)
	}
	if patch.Status != nil {
		validateStatus(verr, *patch.Status)
	}
	if err := verr.errOrNil(); err != nil {
		return nil, err
	}

	if patch.IsEmpty() {
		return s.Get(ctx, id)
	}

	incident, err := s.store.UpdateIncident(ctx, id, patch, s.now())
	if err != nil {
		if errors.Is(err, repository.ErrIncidentNotFound) {
			return nil, ErrIncidentNotFound
		}
		return nil, fmt.Errorf("update incident: %w", err)
	}

	s.metrics.IncIncidentUpdated()
	return incident, nil
}

// Delete removes an incident. Callers must enforce the admin role.
func (s *IncidentService) Delete(ctx context.Context, id int64) error {
	if err := s.store.DeleteIncident(ctx, id); err != nil {
		if errors.Is(err, repository.ErrIncidentNotFound) {
			return ErrIncidentNotFound
		}
		return fmt.Errorf("delete incident: %w", err)
	}

	s.metrics.IncIncidentDeleted()
	return nil
}
