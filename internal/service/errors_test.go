package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidationError_Message(t *testing.T) {
	verr := &ValidationError{}
	assert.NoError(t, verr.errOrNil())

	verr.Add("email", "value is not a valid email address")
	verr.Add("password", "password must be at least 8 characters")

	assert.Error(t, verr.errOrNil())
	assert.Equal(t,
		"validation failed: email: value is not a valid email address; password: password must be at least 8 characters",
		verr.Error())
}

func TestNewValidationError(t *testing.T) {
	verr := NewValidationError("body", "malformed JSON")
	assert.Equal(t, []FieldError{{Field: "body", Message: "malformed JSON"}}, verr.Fields)
}
