package handler

import (
	"fmt"
	"net/http"

	"github.com/incidentdesk/incidentdesk/internal/metrics"
)

// MetricsHandler exposes in-memory metrics.
type MetricsHandler struct {
	snapshotter metrics.Snapshotter
}

// NewMetricsHandler creates a new MetricsHandler.
func NewMetricsHandler(snapshotter metrics.Snapshotter) *MetricsHandler {
	return &MetricsHandler{snapshotter: snapshotter}
}

// Metrics returns metrics in Prometheus exposition format.
func (h *MetricsHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	if h.snapshotter == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}

	snap := h.snapshotter.Snapshot()

	w.Header().Set("Content-Type", "text/plain; version=0.0.4")

	writeMetric(w, "incidentdesk_users_registered_total %d\n", snap.UsersRegistered)
	writeMetric(w, "incidentdesk_logins_total{outcome=\"success\"} %d\n", snap.LoginsSucceeded)
	writeMetric(w, "incidentdesk_logins_total{outcome=\"failure\"} %d\n", snap.LoginsFailed)
	writeMetric(w, "incidentdesk_password_rehashes_total %d\n", snap.PasswordsRehashed)

	writeMetric(w, "incidentdesk_auth_rejections_total{reason=\"missing_token\"} %d\n", snap.AuthMissingToken)
	writeMetric(w, "incidentdesk_auth_rejections_total{reason=\"invalid_token\"} %d\n", snap.AuthInvalidToken)
	writeMetric(w, "incidentdesk_auth_rejections_total{reason=\"forbidden\"} %d\n", snap.AuthForbidden)

	writeMetric(w, "incidentdesk_incidents_created_total %d\n", snap.IncidentsCreated)
	writeMetric(w, "incidentdesk_incidents_updated_total %d\n", snap.IncidentsUpdated)
	writeMetric(w, "incidentdesk_incidents_deleted_total %d\n", snap.IncidentsDeleted)

	writeMetric(w, "incidentdesk_http_request_duration_seconds_count %d\n", snap.RequestDurationCount)
	writeMetric(w, "incidentdesk_http_request_duration_seconds_sum %.6f\n", float64(snap.RequestDurationTotalNs)/1e9)
}

func writeMetric(w http.ResponseWriter, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}
