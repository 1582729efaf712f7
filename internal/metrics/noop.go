package metrics

import "time"

// NoopRecorder implements Recorder with no-op methods.
type NoopRecorder struct{}

// NewNoop returns a Recorder that discards all metrics.
func NewNoop() Recorder {
	return &NoopRecorder{}
}

// IncUserRegistered is a no-op.
func (n *NoopRecorder) IncUserRegistered() {}

// IncLogin is a no-op.
func (n *NoopRecorder) IncLogin(outcome string) {}

// IncPasswordRehashed is a no-op.
func (n *NoopRecorder) IncPasswordRehashed() {}

// IncAuthRejected is a no-op.
func (n *NoopRecorder) IncAuthRejected(reason string) {}

// IncIncidentCreated is a no-op.
func (n *NoopRecorder) IncIncidentCreated() {}

// IncIncidentUpdated is a no-op.
func (n *NoopRecorder) IncIncidentUpdated() {}

// IncIncidentDeleted is a no-op.
func (n *NoopRecorder) IncIncidentDeleted() {}

// ObserveRequestDuration is a no-op.
func (n *NoopRecorder) ObserveRequestDuration(duration time.Duration) {}
