package middleware

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/incidentdesk/incidentdesk/internal/auth"
	"github.com/incidentdesk/incidentdesk/internal/metrics"
	"github.com/incidentdesk/incidentdesk/internal/model"
)

// RoleConfig holds configuration for the role middleware.
type RoleConfig struct {
	Logger  *slog.Logger
	Gate    *auth.Gate
	Metrics metrics.Recorder
}

// RequireRole returns middleware that enforces a role.
// Must be applied after Auth middleware; without an authenticated user it
// responds 401 rather than treating the request as authorized.
func RequireRole(cfg RoleConfig, role model.Role) func(http.Handler) http.Handler {
	recorder := cfg.Metrics
	if recorder == nil {
		recorder = metrics.NewNoop()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := auth.UserFromContext(r.Context())

			err := cfg.Gate.RequireRole(user, role)
			switch {
			case err == nil:
				next.ServeHTTP(w, r)
			case errors.Is(err, auth.ErrForbidden):
				cfg.Logger.Warn("authorization failed",
					slog.Int64("user_id", user.ID),
					slog.String("role", user.Role.String()),
					slog.String("required_role", role.String()),
					slog.String("endpoint", r.Method+" "+r.URL.Path),
					slog.String("request_id", GetRequestID(r.Context())),
				)
				recorder.IncAuthRejected(metrics.ReasonForbidden)
				writeError(w, http.StatusForbidden, "FORBIDDEN", "Insufficient permissions")
			default:
				writeAuthError(w)
			}
		})
	}
}

// RequireAdmin is a convenience middleware for the admin role.
func RequireAdmin(cfg RoleConfig) func(http.Handler) http.Handler {
	return RequireRole(cfg, model.RoleAdmin)
}
