package dto

import "github.com/incidentdesk/incidentdesk/internal/model"

// RegisterRequest represents the request body for registering a user.
type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"rol,omitempty"`
}

// UpdateMeRequest represents a self-service profile edit.
type UpdateMeRequest struct {
	Email    *string `json:"email,omitempty"`
	Password *string `json:"password,omitempty"`
}

// UserResponse represents a user in API responses. The hash is never included.
type UserResponse struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
	Role  string `json:"rol"`
}

// TokenResponse is returned by a successful login.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// AdminPingResponse is returned by the admin ping endpoint.
type AdminPingResponse struct {
	OK  bool   `json:"ok"`
	Msg string `json:"msg"`
}

// ToUserResponse converts a User model to UserResponse DTO.
func ToUserResponse(user *model.User) *UserResponse {
	return &UserResponse{
		ID:    user.ID,
		Email: user.Email,
		Role:  user.Role.String(),
	}
}
