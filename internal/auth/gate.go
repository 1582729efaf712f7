package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/incidentdesk/incidentdesk/internal/model"
	"github.com/incidentdesk/incidentdesk/internal/repository"
)

var (
	// ErrUnauthorized is returned when a request cannot be tied to an existing user.
	// Invalid tokens and tokens for vanished users both produce it.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden is returned when an authenticated user lacks the required role.
	ErrForbidden = errors.New("forbidden")
)

// UserLookup loads users by id. Implemented by the repository.
type UserLookup interface {
	GetUserByID(ctx context.Context, id int64) (*model.User, error)
}

// Gate authenticates bearer tokens and enforces roles.
type Gate struct {
	tokens *TokenManager
	users  UserLookup
}

// NewGate creates a new Gate.
func NewGate(tokens *TokenManager, users UserLookup) *Gate {
	return &Gate{tokens: tokens, users: users}
}

// Authenticate verifies the token and loads the user it refers to.
//
// Every authentication failure wraps ErrUnauthorized; the second wrapped error
// (ErrInvalidToken or repository.ErrUserNotFound) is for logs only. Store
// failures are returned without ErrUnauthorized.
func (g *Gate) Authenticate(ctx context.Context, token string) (*model.User, error) {
	identity, err := g.tokens.Verify(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnauthorized, err)
	}

	user, err := g.users.GetUserByID(ctx, identity.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, fmt.Errorf("%w: %w", ErrUnauthorized, err)
		}
		return nil, fmt.Errorf("load user: %w", err)
	}

	return user, nil
}

// RequireRole checks that an already authenticated user holds role.
func (g *Gate) RequireRole(user *model.User, role model.Role) error {
	if user == nil {
		return ErrUnauthorized
	}
	if user.Role != role {
		return ErrForbidden
	}
	return nil
}
