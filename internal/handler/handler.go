// Package handler provides HTTP request handlers.
package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/incidentdesk/incidentdesk/internal/handler/dto"
	"github.com/incidentdesk/incidentdesk/internal/middleware"
	"github.com/incidentdesk/incidentdesk/internal/service"
)

// Handler serves the fallback routes.
type Handler struct{}

// New creates a new Handler instance.
func New() *Handler {
	return &Handler{}
}

// NotFound handles 404 responses.
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: "resource not found", Code: "NOT_FOUND"})
}

// MethodNotAllowed handles 405 responses.
func (h *Handler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusMethodNotAllowed, dto.ErrorResponse{Error: "method not allowed", Code: "METHOD_NOT_ALLOWED"})
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, dto.ErrorResponse{
		Error: message,
		Code:  code,
	})
}

func writeValidationError(w http.ResponseWriter, verr *service.ValidationError) {
	details := make([]dto.ErrorDetail, 0, len(verr.Fields))
	for _, f := range verr.Fields {
		details = append(details, dto.ErrorDetail{Field: f.Field, Message: f.Message})
	}
	writeJSON(w, http.StatusUnprocessableEntity, dto.ErrorResponse{
		Error:   "Validation failed",
		Code:    "VALIDATION_ERROR",
		Details: details,
	})
}

// errBodyTooLarge and errMalformedBody classify decode failures.
var (
	errBodyTooLarge  = errors.New("request body too large")
	errMalformedBody = errors.New("malformed request body")
)

// decodeJSON reads a single JSON object from the request body.
// Type mismatches become a ValidationError on the offending field, and
// anything after the first value makes the body malformed.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	if err := classifyDecodeError(dec.Decode(dst)); err != nil {
		return err
	}

	var extra json.RawMessage
	switch err := dec.Decode(&extra); {
	case errors.Is(err, io.EOF):
		return nil
	case err == nil:
		return fmt.Errorf("%w: unexpected data after JSON body", errMalformedBody)
	default:
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return errBodyTooLarge
		}
		return fmt.Errorf("%w: unexpected data after JSON body", errMalformedBody)
	}
}

func classifyDecodeError(err error) error {
	if err == nil {
		return nil
	}

	var (
		maxErr  *http.MaxBytesError
		typeErr *json.UnmarshalTypeError
	)
	switch {
	case errors.As(err, &maxErr):
		return errBodyTooLarge
	case errors.As(err, &typeErr):
		field := typeErr.Field
		if field == "" {
			field = "body"
		}
		return service.NewValidationError(field, fmt.Sprintf("expected %s", typeErr.Type.Kind()))
	case errors.Is(err, io.EOF):
		return fmt.Errorf("%w: empty body", errMalformedBody)
	default:
		return fmt.Errorf("%w: %v", errMalformedBody, err)
	}
}

// pathID parses the {id} URL parameter as a positive integer.
func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, service.NewValidationError("id", "must be a positive integer")
	}
	return id, nil
}

// handleError maps service and decode errors to HTTP responses.
func handleError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	var (
		verr *service.ValidationError
		cerr *service.ConflictError
	)
	switch {
	case errors.As(err, &verr):
		writeValidationError(w, verr)
	case errors.As(err, &cerr):
		writeError(w, http.StatusBadRequest, "EMAIL_TAKEN", cerr.Message)
	case errors.Is(err, errBodyTooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "Request body too large")
	case errors.Is(err, errMalformedBody):
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
	case errors.Is(err, service.ErrInvalidCredentials):
		w.Header().Set("WWW-Authenticate", "Bearer")
		writeError(w, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid credentials")
	case errors.Is(err, service.ErrUserNotFound):
		writeError(w, http.StatusNotFound, "USER_NOT_FOUND", "User not found")
	case errors.Is(err, service.ErrIncidentNotFound):
		writeError(w, http.StatusNotFound, "INCIDENT_NOT_FOUND", "Incident not found")
	default:
		logger.Error("internal_error",
			"error", err,
			"request_id", middleware.GetRequestID(r.Context()),
		)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred")
	}
}
