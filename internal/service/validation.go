package service

import (
	"net/mail"
	"strings"
	"unicode/utf8"

	"github.com/incidentdesk/incidentdesk/internal/model"
)

const (
	maxEmailLength    = 255
	minPasswordLength = 8
	maxPasswordLength = 128
	maxTitleLength    = 150
)

// validateEmail accepts a bare addr-spec whose domain contains a dot.
func validateEmail(verr *ValidationError, field, email string) {
	if email == "" {
		verr.Add(field, "email is required")
		return
	}
	if len(email) > maxEmailLength {
		verr.Add(field, "email must be at most 255 characters")
		return
	}

	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || addr.Name != "" {
		verr.Add(field, "value is not a valid email address")
		return
	}

	at := strings.LastIndexByte(email, '@')
	domain := email[at+1:]
	if !strings.Contains(domain, ".") || strings.HasPrefix(domain, ".") || strings.HasSuffix(domain, ".") {
		verr.Add(field, "value is not a valid email address")
	}
}

// validatePassword enforces length in characters. A max of 0 means unbounded.
func validatePassword(verr *ValidationError, field, password string, max int) {
	n := utf8.RuneCountInString(password)
	if n < minPasswordLength {
		verr.Add(field, "password must be at least 8 characters")
		return
	}
	if max > 0 && n > max {
		verr.Add(field, "password must be at most 128 characters")
	}
}

func validateTitle(verr *ValidationError, title string) {
	if strings.TrimSpace(title) == "" {
		verr.Add("titulo", "title is required")
		return
	}
	if utf8.RuneCountInString(title) > maxTitleLength {
		verr.Add("titulo", "title must be at most 150 characters")
	}
}

func validateStatus(verr *ValidationError, status model.IncidentStatus) {
	if !status.IsValid() {
		verr.Add("estado", "status must be one of ABIERTO, EN_PROCESO, CERRADO")
	}
}

// CheckPassword applies the profile password rules outside a request.
func CheckPassword(password string) error {
	verr := &ValidationError{}
	validatePassword(verr, "password", password, maxPasswordLength)
	return verr.errOrNil()
}
