package metrics

import (
	"sync/atomic"
	"time"
)

// Snapshot captures current in-memory counters.
type Snapshot struct {
	UsersRegistered        uint64
	LoginsSucceeded        uint64
	LoginsFailed           uint64
	PasswordsRehashed      uint64
	AuthMissingToken       uint64
	AuthInvalidToken       uint64
	AuthForbidden          uint64
	IncidentsCreated       uint64
	IncidentsUpdated       uint64
	IncidentsDeleted       uint64
	RequestDurationCount   uint64
	RequestDurationTotalNs int64
}

// InMemoryRecorder stores metrics in memory.
// It backs the /metrics endpoint and is used directly by tests.
type InMemoryRecorder struct {
	usersRegistered        atomic.Uint64
	loginsSucceeded        atomic.Uint64
	loginsFailed           atomic.Uint64
	passwordsRehashed      atomic.Uint64
	authMissingToken       atomic.Uint64
	authInvalidToken       atomic.Uint64
	authForbidden          atomic.Uint64
	incidentsCreated       atomic.Uint64
	incidentsUpdated       atomic.Uint64
	incidentsDeleted       atomic.Uint64
	requestDurationCount   atomic.Uint64
	requestDurationTotalNs atomic.Int64
}

// NewInMemory returns a Recorder that stores counters in memory.
func NewInMemory() *InMemoryRecorder {
	return &InMemoryRecorder{}
}

// Snapshot returns a copy of the counters.
func (m *InMemoryRecorder) Snapshot() Snapshot {
	return Snapshot{
		UsersRegistered:        m.usersRegistered.Load(),
		LoginsSucceeded:        m.loginsSucceeded.Load(),
		LoginsFailed:           m.loginsFailed.Load(),
		PasswordsRehashed:      m.passwordsRehashed.Load(),
		AuthMissingToken:       m.authMissingToken.Load(),
		AuthInvalidToken:       m.authInvalidToken.Load(),
		AuthForbidden:          m.authForbidden.Load(),
		IncidentsCreated:       m.incidentsCreated.Load(),
		IncidentsUpdated:       m.incidentsUpdated.Load(),
		IncidentsDeleted:       m.incidentsDeleted.Load(),
		RequestDurationCount:   m.requestDurationCount.Load(),
		RequestDurationTotalNs: m.requestDurationTotalNs.Load(),
	}
}

// IncUserRegistered increments the registration counter.
func (m *InMemoryRecorder) IncUserRegistered() {
	m.usersRegistered.Add(1)
}

// IncLogin increments the login counter for outcome.
func (m *InMemoryRecorder) IncLogin(outcome string) {
	if outcome == LoginSuccess {
		m.loginsSucceeded.Add(1)
		return
	}
	m.loginsFailed.Add(1)
}

// IncPasswordRehashed increments the legacy hash upgrade counter.
func (m *InMemoryRecorder) IncPasswordRehashed() {
	m.passwordsRehashed.Add(1)
}

// IncAuthRejected increments the rejection counter for reason.
func (m *InMemoryRecorder) IncAuthRejected(reason string) {
	switch reason {
	case ReasonMissingToken:
		m.authMissingToken.Add(1)
	case ReasonForbidden:
		m.authForbidden.Add(1)
	default:
		m.authInvalidToken.Add(1)
	}
}

// IncIncidentCreated increments incident created counter.
func (m *InMemoryRecorder) IncIncidentCreated() {
	m.incidentsCreated.Add(1)
}

// IncIncidentUpdated increments incident updated counter.
func (m *InMemoryRecorder) IncIncidentUpdated() {
	m.incidentsUpdated.Add(1)
}

// IncIncidentDeleted increments incident deleted counter.
func (m *InMemoryRecorder) IncIncidentDeleted() {
	m.incidentsDeleted.Add(1)
}

// ObserveRequestDuration records HTTP request duration.
func (m *InMemoryRecorder) ObserveRequestDuration(duration time.Duration) {
	m.requestDurationCount.Add(1)
	m.requestDurationTotalNs.Add(duration.Nanoseconds())
}
