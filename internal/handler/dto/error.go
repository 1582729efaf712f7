// Package dto provides Data Transfer Objects for API requests and responses.
package dto

// ErrorResponse represents an API error.
type ErrorResponse struct {
	Error   string        `json:"error"`
	Code    string        `json:"code"`
	Details []ErrorDetail `json:"details,omitempty"`
}

// ErrorDetail describes one invalid field.
type ErrorDetail struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}
