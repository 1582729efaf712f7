// Package metrics provides lightweight hooks for instrumentation.
package metrics

import "time"

// Outcome labels for login attempts.
const (
	LoginSuccess = "success"
	LoginFailure = "failure"
)

// Reason labels for rejected requests.
const (
	ReasonMissingToken = "missing_token"
	ReasonInvalidToken = "invalid_token"
	ReasonForbidden    = "forbidden"
)

// Recorder captures metric events for the application.
// Implementations can expose these to Prometheus, StatsD, etc.
type Recorder interface {
	// Account metrics
	IncUserRegistered()
	IncLogin(outcome string) // outcome: "success" or "failure"
	IncPasswordRehashed()

	// Access control metrics
	IncAuthRejected(reason string) // reason: "missing_token", "invalid_token", "forbidden"

	// Incident management metrics
	IncIncidentCreated()
	IncIncidentUpdated()
	IncIncidentDeleted()

	// HTTP metrics
	ObserveRequestDuration(duration time.Duration)
}

// Snapshotter exposes a snapshot of current metrics.
type Snapshotter interface {
	Snapshot() Snapshot
}
