package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/incidentdesk/incidentdesk/internal/model"
)

// Memory is an in-process store with the same contract as Repository.
// It backs unit tests of the service and HTTP layers.
type Memory struct {
	mu             sync.RWMutex
	users          map[int64]*model.User
	incidents      map[int64]*model.Incident
	nextUserID     int64
	nextIncidentID int64
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		users:     make(map[int64]*model.User),
		incidents: make(map[int64]*model.Incident),
	}
}

// Ping always succeeds.
func (m *Memory) Ping(context.Context) error { return nil }

// CreateUser stores a copy of user and assigns its ID.
func (m *Memory) CreateUser(_ context.Context, user *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.users {
		if u.Email == user.Email {
			return ErrEmailExists
		}
	}

	m.nextUserID++
	user.ID = m.nextUserID
	stored := *user
	m.users[user.ID] = &stored
	return nil
}

// GetUserByID returns a copy of the user with the given ID.
func (m *Memory) GetUserByID(_ context.Context, id int64) (*model.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	out := *u
	return &out, nil
}

// GetUserByEmail returns a copy of the user with the given email.
func (m *Memory) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, u := range m.users {
		if u.Email == email {
			out := *u
			return &out, nil
		}
	}
	return nil, ErrUserNotFound
}

// UpdateUser replaces the stored email and password hash.
func (m *Memory) UpdateUser(_ context.Context, user *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[user.ID]
	if !ok {
		return ErrUserNotFound
	}
	for id, other := range m.users {
		if id != user.ID && other.Email == user.Email {
			return ErrEmailExists
		}
	}
	u.Email = user.Email
	u.PasswordHash = user.PasswordHash
	return nil
}

// UpdatePasswordHash replaces the stored hash.
func (m *Memory) UpdatePasswordHash(_ context.Context, id int64, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok {
		return ErrUserNotFound
	}
	u.PasswordHash = hash
	return nil
}

// UpdateUserRole changes the stored role.
func (m *Memory) UpdateUserRole(_ context.Context, id int64, role model.Role) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok {
		return ErrUserNotFound
	}
	u.Role = role
	return nil
}

// DeleteUser removes a user. The SQL store has no equivalent; tests use it
// to simulate an account disappearing while its token is still valid.
func (m *Memory) DeleteUser(id int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.users, id)
}

// CreateIncident stores a copy of incident and assigns its ID.
func (m *Memory) CreateIncident(_ context.Context, incident *model.Incident) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextIncidentID++
	incident.ID = m.nextIncidentID
	if incident.Status == "" {
		incident.Status = model.StatusOpen
	}
	m.incidents[incident.ID] = cloneIncident(incident)
	return nil
}

// ListIncidents returns all incidents ordered by ID.
func (m *Memory) ListIncidents(context.Context) ([]*model.Incident, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*model.Incident, 0, len(m.incidents))
	for _, inc := range m.incidents {
		out = append(out, cloneIncident(inc))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// GetIncidentByID returns a copy of the incident with the given ID.
func (m *Memory) GetIncidentByID(_ context.Context, id int64) (*model.Incident, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	inc, ok := m.incidents[id]
	if !ok {
		return nil, ErrIncidentNotFound
	}
	return cloneIncident(inc), nil
}

// UpdateIncident applies the non-nil fields of patch.
func (m *Memory) UpdateIncident(_ context.Context, id int64, patch model.IncidentPatch, updatedAt time.Time) (*model.Incident, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	inc, ok := m.incidents[id]
	if !ok {
		return nil, ErrIncidentNotFound
	}
	if patch.Title != nil {
		inc.Title = *patch.Title
	}
	if patch.Description != nil {
		d := *patch.Description
		inc.Description = &d
	}
	if patch.Status != nil {
		inc.Status = *patch.Status
	}
	inc.UpdatedAt = &updatedAt
	return cloneIncident(inc), nil
}

// DeleteIncident removes an incident.
func (m *Memory) DeleteIncident(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.incidents[id]; !ok {
		return ErrIncidentNotFound
	}
	delete(m.incidents, id)
	return nil
}

func cloneIncident(in *model.Incident) *model.Incident {
	out := *in
	if in.Description != nil {
		d := *in.Description
		out.Description = &d
	}
	if in.UpdatedAt != nil {
		t := *in.UpdatedAt
		out.UpdatedAt = &t
	}
	return &out
}
