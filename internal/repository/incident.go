package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/incidentdesk/incidentdesk/internal/model"
	"github.com/jackc/pgx/v5"
)

// ErrIncidentNotFound is returned when no incident has the requested ID.
var ErrIncidentNotFound = errors.New("incident not found")

const incidentColumns = `id, title, description, status, created_at, updated_at`

// CreateIncident inserts a new incident and fills in its generated fields.
func (r *Repository) CreateIncident(ctx context.Context, incident *model.Incident) error {
	query := `
		INSERT INTO incidents (title, description, status, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + incidentColumns

	created, err := scanIncident(r.pool.QueryRow(ctx, query,
		incident.Title,
		incident.Description,
		string(incident.Status),
		incident.CreatedAt,
	))
	if err != nil {
		return fmt.Errorf("failed to create incident: %w", err)
	}

	*incident = *created
	return nil
}

// ListIncidents returns every incident ordered by ID.
func (r *Repository) ListIncidents(ctx context.Context) ([]*model.Incident, error) {
	query := `SELECT ` + incidentColumns + ` FROM incidents ORDER BY id`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list incidents: %w", err)
	}
	defer rows.Close()

	incidents := make([]*model.Incident, 0)
	for rows.Next() {
		incident, err := scanIncident(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan incident: %w", err)
		}
		incidents = append(incidents, incident)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate incidents: %w", err)
	}

	return incidents, nil
}

// GetIncidentByID retrieves an incident by its ID.
func (r *Repository) GetIncidentByID(ctx context.Context, id int64) (*model.Incident, error) {
	query := `SELECT ` + incidentColumns + ` FROM incidents WHERE id = $1`

	incident, err := scanIncident(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrIncidentNotFound
		}
		return nil, fmt.Errorf("failed to get incident: %w", err)
	}

	return incident, nil
}

// UpdateIncident applies the non-nil fields of patch and stamps updated_at.
// Fields absent from the patch keep their stored values.
func (r *Repository) UpdateIncident(ctx context.Context, id int64, patch model.IncidentPatch, updatedAt time.Time) (*model.Incident, error) {
	var status *string
	if patch.Status != nil {
		s := string(*patch.Status)
		status = &s
	}

	query := `
		UPDATE incidents
		SET title       = COALESCE($2, title),
		    description = CASE WHEN $3::boolean THEN $4 ELSE description END,
		    status      = COALESCE($5, status),
		    updated_at  = $6
		WHERE id = $1
		RETURNING ` + incidentColumns

	incident, err := scanIncident(r.pool.QueryRow(ctx, query,
		id,
		patch.Title,
		patch.Description != nil,
		patch.Description,
		status,
		updatedAt,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrIncidentNotFound
		}
		return nil, fmt.Errorf("failed to update incident: %w", err)
	}

	return incident, nil
}

// DeleteIncident removes an incident permanently.
func (r *Repository) DeleteIncident(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM incidents WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete incident: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrIncidentNotFound
	}
	return nil
}

func scanIncident(row pgx.Row) (*model.Incident, error) {
	var (
		incident model.Incident
		status   string
	)
	err := row.Scan(
		&incident.ID,
		&incident.Title,
		&incident.Description,
		&status,
		&incident.CreatedAt,
		&incident.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	incident.Status = model.IncidentStatus(status)
	return &incident, nil
}
