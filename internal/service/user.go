package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/incidentdesk/incidentdesk/internal/auth"
	"github.com/incidentdesk/incidentdesk/internal/metrics"
	"github.com/incidentdesk/incidentdesk/internal/model"
	"github.com/incidentdesk/incidentdesk/internal/repository"
)

// UserStore persists user accounts.
type UserStore interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id int64) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	UpdateUser(ctx context.Context, user *model.User) error
	UpdatePasswordHash(ctx context.Context, id int64, hash string) error
}

// UserService handles registration, login and profile edits.
type UserService struct {
	store   UserStore
	hasher  *auth.Hasher
	tokens  *auth.TokenManager
	logger  *slog.Logger
	metrics metrics.Recorder

	// dummyHash is verified against when the email is unknown so that
	// login takes comparable time whether or not the account exists.
	dummyHash string
}

// NewUserService creates a new UserService.
func NewUserService(store UserStore, hasher *auth.Hasher, tokens *auth.TokenManager, logger *slog.Logger, recorder metrics.Recorder) (*UserService, error) {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	if logger == nil {
		logger = slog.Default()
	}

	dummy, err := hasher.Hash("dummy-password-for-timing")
	if err != nil {
		return nil, fmt.Errorf("prepare dummy hash: %w", err)
	}

	return &UserService{
		store:     store,
		hasher:    hasher,
		tokens:    tokens,
		logger:    logger.With("component", "service.user"),
		metrics:   recorder,
		dummyHash: dummy,
	}, nil
}

// RegisterInput defines input for registering a user.
type RegisterInput struct {
	Email    string
	Password string
	Role     string
}

// Register validates input and creates a new account.
// Unrecognized roles fall back to the regular role.
func (s *UserService) Register(ctx context.Context, input RegisterInput) (*model.User, error) {
	verr := &ValidationError{}
	validateEmail(verr, "email", input.Email)
	validatePassword(verr, "password", input.Password, 0)
	if err := verr.errOrNil(); err != nil {
		return nil, err
	}

	if _, err := s.store.GetUserByEmail(ctx, input.Email); err == nil {
		return nil, emailConflict("email already registered")
	} else if !errors.Is(err, repository.ErrUserNotFound) {
		return nil, fmt.Errorf("check email: %w", err)
	}

	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &model.User{
		Email:        input.Email,
		PasswordHash: hash,
		Role:         model.ParseRole(input.Role),
	}

	if err := s.store.CreateUser(ctx, user); err != nil {
		// Lost a race with a concurrent registration for the same email.
		if errors.Is(err, repository.ErrEmailExists) {
			return nil, emailConflict("email already registered")
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.metrics.IncUserRegistered()
	return user, nil
}

// Login checks credentials and issues an access token.
// Unknown email and wrong password both return ErrInvalidCredentials.
func (s *UserService) Login(ctx context.Context, email, password string) (string, *model.User, error) {
	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, repository.ErrUserNotFound) {
			return "", nil, fmt.Errorf("load user: %w", err)
		}
		s.hasher.Verify(password, s.dummyHash)
		s.metrics.IncLogin(metrics.LoginFailure)
		return "", nil, ErrInvalidCredentials
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		s.metrics.IncLogin(metrics.LoginFailure)
		return "", nil, ErrInvalidCredentials
	}

	if s.hasher.NeedsRehash(user.PasswordHash) {
		s.upgradeHash(ctx, user, password)
	}

	token, err := s.tokens.Issue(user.ID, user.Email, user.Role)
	if err != nil {
		return "", nil, fmt.Errorf("issue token: %w", err)
	}

	s.metrics.IncLogin(metrics.LoginSuccess)
	return token, user, nil
}

// upgradeHash replaces a legacy or weaker hash. Failure is logged, not fatal.
func (s *UserService) upgradeHash(ctx context.Context, user *model.User, password string) {
	hash, err := s.hasher.Hash(password)
	if err != nil {
		s.logger.Error("rehash password", "user_id", user.ID, "error", err)
		return
	}
	if err := s.store.UpdatePasswordHash(ctx, user.ID, hash); err != nil {
		s.logger.Error("store rehashed password", "user_id", user.ID, "error", err)
		return
	}
	user.PasswordHash = hash
	s.metrics.IncPasswordRehashed()
	s.logger.Info("password hash upgraded", "user_id", user.ID)
}

// GetUser returns the user with the given ID.
func (s *UserService) GetUser(ctx context.Context, id int64) (*model.User, error) {
	user, err := s.store.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

// UpdateProfileInput defines a self-service profile edit. Nil fields are unchanged.
type UpdateProfileInput struct {
	Email    *string
	Password *string
}

// UpdateProfile changes the caller's own email and/or password.
func (s *UserService) UpdateProfile(ctx context.Context, userID int64, input UpdateProfileInput) (*model.User, error) {
	verr := &ValidationError{}
	if input.Email != nil {
		validateEmail(verr, "email", *input.Email)
	}
	if input.Password != nil {
		validatePassword(verr, "password", *input.Password, maxPasswordLength)
	}
	if err := verr.errOrNil(); err != nil {
		return nil, err
	}

	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if input.Email == nil && input.Password == nil {
		return user, nil
	}

	if input.Email != nil && *input.Email != user.Email {
		existing, err := s.store.GetUserByEmail(ctx, *input.Email)
		switch {
		case err == nil && existing.ID != user.ID:
			return nil, emailConflict("email already in use")
		case err != nil && !errors.Is(err, repository.ErrUserNotFound):
			return nil, fmt.Errorf("check email: %w", err)
		}
		user.Email = *input.Email
	}

	if input.Password != nil {
		hash, err := s.hasher.Hash(*input.Password)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		user.PasswordHash = hash
	}

	if err := s.store.UpdateUser(ctx, user); err != nil {
		switch {
		case errors.Is(err, repository.ErrEmailExists):
			return nil, emailConflict("email already in use")
		case errors.Is(err, repository.ErrUserNotFound):
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("update user: %w", err)
	}

	return user, nil
}
