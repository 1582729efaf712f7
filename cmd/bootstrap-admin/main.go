// Command bootstrap-admin creates an admin account, or promotes an existing
// account to admin, directly against the database.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/incidentdesk/incidentdesk/internal/auth"
	"github.com/incidentdesk/incidentdesk/internal/model"
	"github.com/incidentdesk/incidentdesk/internal/repository"
	"github.com/incidentdesk/incidentdesk/internal/service"
)

type adminStore interface {
	service.UserStore
	UpdateUserRole(ctx context.Context, id int64, role model.Role) error
}

type options struct {
	Email         string
	Password      string
	ResetPassword bool
}

type output struct {
	UserID   int64  `json:"user_id"`
	Email    string `json:"email"`
	Role     string `json:"rol"`
	Created  bool   `json:"created"`
	Promoted bool   `json:"promoted"`
	// Password is set only when this run generated it.
	Password string `json:"password,omitempty"`
}

func main() {
	var (
		databaseURL   = flag.String("database-url", os.Getenv("DATABASE_URL"), "PostgreSQL connection string")
		email         = flag.String("email", "", "Admin email (required)")
		password      = flag.String("password", "", "Admin password; generated when empty")
		resetPassword = flag.Bool("reset-password", false, "Replace the password of an existing account")
		migrate       = flag.Bool("migrate", false, "Apply pending migrations first")
		format        = flag.String("format", "plain", "Output format: plain or json")
	)
	flag.Parse()

	if *databaseURL == "" {
		fmt.Fprintln(os.Stderr, "DATABASE_URL is required")
		os.Exit(1)
	}
	if *email == "" {
		fmt.Fprintln(os.Stderr, "-email is required")
		os.Exit(1)
	}
	if f := strings.ToLower(*format); f != "plain" && f != "json" {
		fmt.Fprintln(os.Stderr, "invalid format; use plain or json")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	repo, err := repository.New(ctx, *databaseURL, repository.PoolOptions{MaxConns: 2, MinConns: 1})
	if err != nil {
		fmt.Fprintln(os.Stderr, "connect database:", err)
		os.Exit(1)
	}
	defer repo.Close()

	if *migrate {
		if err := repo.Migrate(ctx); err != nil {
			fmt.Fprintln(os.Stderr, "migrate:", err)
			os.Exit(1)
		}
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	out, err := run(ctx, repo, auth.NewHasher(auth.DefaultPasswordParams()), logger, options{
		Email:         *email,
		Password:      *password,
		ResetPassword: *resetPassword,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}

	if err := writeOutput(os.Stdout, *format, out); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

// run creates the admin account or promotes the existing one.
func run(ctx context.Context, store adminStore, hasher *auth.Hasher, logger *slog.Logger, opts options) (*output, error) {
	existing, err := store.GetUserByEmail(ctx, opts.Email)
	switch {
	case err == nil:
		return promote(ctx, store, hasher, existing, opts)
	case !errors.Is(err, repository.ErrUserNotFound):
		return nil, fmt.Errorf("look up user: %w", err)
	}

	out := &output{Created: true}
	password := opts.Password
	if password == "" {
		// Register hashes it; only the plaintext is needed here.
		generated, err := auth.GeneratePlaintextPassword()
		if err != nil {
			return nil, err
		}
		password = generated
		out.Password = generated
	}

	users, err := service.NewUserService(store, hasher, nil, logger, nil)
	if err != nil {
		return nil, err
	}
	user, err := users.Register(ctx, service.RegisterInput{
		Email:    opts.Email,
		Password: password,
		Role:     model.RoleAdmin.String(),
	})
	if err != nil {
		return nil, fmt.Errorf("create admin: %w", err)
	}

	out.UserID = user.ID
	out.Email = user.Email
	out.Role = user.Role.String()
	return out, nil
}

func promote(ctx context.Context, store adminStore, hasher *auth.Hasher, user *model.User, opts options) (*output, error) {
	out := &output{UserID: user.ID, Email: user.Email, Role: model.RoleAdmin.String()}

	if user.Role != model.RoleAdmin {
		if err := store.UpdateUserRole(ctx, user.ID, model.RoleAdmin); err != nil {
			return nil, fmt.Errorf("promote user: %w", err)
		}
		out.Promoted = true
	}

	if !opts.ResetPassword {
		return out, nil
	}

	var hash string
	if opts.Password == "" {
		cred, err := auth.GeneratePassword(hasher)
		if err != nil {
			return nil, err
		}
		hash = cred.Hash
		out.Password = cred.Plaintext
	} else {
		if verr := service.CheckPassword(opts.Password); verr != nil {
			return nil, verr
		}
		h, err := hasher.Hash(opts.Password)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		hash = h
	}

	if err := store.UpdatePasswordHash(ctx, user.ID, hash); err != nil {
		return nil, fmt.Errorf("reset password: %w", err)
	}
	return out, nil
}

func writeOutput(w io.Writer, format string, out *output) error {
	switch strings.ToLower(format) {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	default:
		action := "unchanged"
		switch {
		case out.Created:
			action = "created"
		case out.Promoted:
			action = "promoted"
		}
		if _, err := fmt.Fprintf(w, "%s admin %s (id %d)\n", action, out.Email, out.UserID); err != nil {
			return err
		}
		if out.Password != "" {
			_, err := fmt.Fprintf(w, "password: %s\n", out.Password)
			return err
		}
		return nil
	}
}
