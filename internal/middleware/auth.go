package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/incidentdesk/incidentdesk/internal/auth"
	"github.com/incidentdesk/incidentdesk/internal/metrics"
	"github.com/incidentdesk/incidentdesk/internal/repository"
)

// reasonUnknownUser is logged when a valid token names a user that no longer exists.
const reasonUnknownUser = "unknown_user"

// AuthConfig holds configuration for the auth middleware.
type AuthConfig struct {
	Logger  *slog.Logger
	Gate    *auth.Gate
	Metrics metrics.Recorder
}

// Auth returns a middleware that authenticates requests with a bearer token.
// It resolves the token to a stored user and injects that user into the
// request context. Every failure produces the same 401 response; the reason
// is only logged.
func Auth(cfg AuthConfig) func(http.Handler) http.Handler {
	recorder := cfg.Metrics
	if recorder == nil {
		recorder = metrics.NewNoop()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractBearerToken(r)
			if token == "" {
				logAuthFailure(cfg.Logger, r, metrics.ReasonMissingToken)
				recorder.IncAuthRejected(metrics.ReasonMissingToken)
				writeAuthError(w)
				return
			}

			user, err := cfg.Gate.Authenticate(r.Context(), token)
			if err != nil {
				if !errors.Is(err, auth.ErrUnauthorized) {
					cfg.Logger.Error("database error during auth",
						slog.String("error", err.Error()),
						slog.String("request_id", GetRequestID(r.Context())),
					)
					writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
					return
				}

				reason := metrics.ReasonInvalidToken
				if errors.Is(err, repository.ErrUserNotFound) {
					reason = reasonUnknownUser
				}
				logAuthFailure(cfg.Logger, r, reason)
				recorder.IncAuthRejected(metrics.ReasonInvalidToken)
				writeAuthError(w)
				return
			}

			cfg.Logger.Debug("authentication successful",
				slog.Int64("user_id", user.ID),
				slog.String("role", user.Role.String()),
				slog.String("endpoint", r.Method+" "+r.URL.Path),
				slog.String("request_id", GetRequestID(r.Context())),
			)

			ctx := auth.ContextWithUser(r.Context(), user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func logAuthFailure(logger *slog.Logger, r *http.Request, reason string) {
	logger.Warn("authentication failed",
		slog.String("reason", reason),
		slog.String("ip", r.RemoteAddr),
		slog.String("endpoint", r.Method+" "+r.URL.Path),
		slog.String("request_id", GetRequestID(r.Context())),
	)
}

// extractBearerToken returns the token from "Authorization: Bearer <token>".
// The scheme is matched case-insensitively.
func extractBearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(authHeader, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// writeAuthError writes a 401 Unauthorized response.
// Uses the same message for all auth failures to prevent enumeration.
func writeAuthError(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Not authenticated")
}
