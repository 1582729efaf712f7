package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/incidentdesk/incidentdesk/internal/auth"
	"github.com/incidentdesk/incidentdesk/internal/handler/dto"
	"github.com/incidentdesk/incidentdesk/internal/service"
)

// UserHandler handles HTTP requests for accounts and sessions.
type UserHandler struct {
	svc    *service.UserService
	logger *slog.Logger
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(svc *service.UserService, logger *slog.Logger) *UserHandler {
	return &UserHandler{
		svc:    svc,
		logger: logger,
	}
}

// Register handles POST /register.
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req dto.RegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		handleError(w, r, h.logger, err)
		return
	}

	user, err := h.svc.Register(r.Context(), service.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		Role:     req.Role,
	})
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}

	h.logger.Info("user_registered",
		"user_id", user.ID,
		"role", user.Role.String(),
		"role_downgraded", req.Role != "" && req.Role != user.Role.String(),
	)

	writeJSON(w, http.StatusCreated, dto.ToUserResponse(user))
}

// Login handles POST /login.
// Credentials arrive as form fields "username" (the email) and "password".
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			handleError(w, r, h.logger, errBodyTooLarge)
			return
		}
		writeError(w, http.StatusBadRequest, "INVALID_FORM", "Invalid form body")
		return
	}

	email := r.PostForm.Get("username")
	password := r.PostForm.Get("password")

	verr := &service.ValidationError{}
	if email == "" {
		verr.Add("username", "field required")
	}
	if password == "" {
		verr.Add("password", "field required")
	}
	if len(verr.Fields) > 0 {
		writeValidationError(w, verr)
		return
	}

	token, user, err := h.svc.Login(r.Context(), email, password)
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}

	h.logger.Info("user_logged_in", "user_id", user.ID)

	writeJSON(w, http.StatusOK, dto.TokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
	})
}

// Me handles GET /me.
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	user := auth.MustUserFromContext(r.Context())
	writeJSON(w, http.StatusOK, dto.ToUserResponse(user))
}

// UpdateMe handles PUT /me.
func (h *UserHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	current := auth.MustUserFromContext(r.Context())

	var req dto.UpdateMeRequest
	if err := decodeJSON(r, &req); err != nil {
		handleError(w, r, h.logger, err)
		return
	}

	user, err := h.svc.UpdateProfile(r.Context(), current.ID, service.UpdateProfileInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}

	h.logger.Info("user_updated",
		"user_id", user.ID,
		"email_changed", req.Email != nil,
		"password_changed", req.Password != nil,
	)

	writeJSON(w, http.StatusOK, dto.ToUserResponse(user))
}

// AdminPing handles GET /admin/ping. Mounted behind the admin role check.
func (h *UserHandler) AdminPing(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, dto.AdminPingResponse{OK: true, Msg: "Hola, admin"})
}
