package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/pizzeria/api/internal/auth"
	"github.com/pizzeria/api/internal/database"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// adminStore is satisfied by *database.Queries.
type adminStore interface {
	GetProfileByEmail(ctx context.Context, email string) (database.Profile, error)
	CreateProfile(ctx context.Context, arg database.CreateProfileParams) (database.Profile, error)
	SetProfileAdmin(ctx context.Context, arg database.SetProfileAdminParams) (database.Profile, error)
}

func newAdminCmd(connect connectFunc) *cobra.Command {
	var email, password, name string

	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Create an admin profile or promote an existing one",
		RunE: func(cmd *cobra.Command, args []string) error {
			// Flags, then environment, then defaults
			email = firstNonEmpty(email, envOr("SEED_EMAIL", ""), "admin@pizzeria.local")
			name = firstNonEmpty(name, envOr("SEED_NAME", ""), "Pizzeria Admin")
			password = firstNonEmpty(password, envOr("SEED_PASSWORD", ""))
			if password == "" {
				password = "password123"
				zap.L().Warn("using default password 'password123'; change it immediately in production")
			}

			return withQueries(cmd.Context(), connect, func(q *database.Queries) error {
				p, created, err := seedAdmin(cmd.Context(), q, email, password, name)
				if err != nil {
					return err
				}
				zap.L().Info("admin ready",
					zap.String("id", p.ID.String()),
					zap.String("email", p.Email),
					zap.Bool("created", created))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Admin email address")
	cmd.Flags().StringVar(&password, "password", "", "Admin password (new profiles only)")
	cmd.Flags().StringVar(&name, "name", "", "Admin display name")
	return cmd
}

// seedAdmin creates an admin profile, or sets the admin flag on the profile
// that already owns email. An existing password is left unchanged.
func seedAdmin(ctx context.Context, store adminStore, email, password, name string) (database.Profile, bool, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	existing, err := store.GetProfileByEmail(ctx, email)
	if err == nil {
		if existing.IsAdmin {
			return existing, false, nil
		}
		p, err := store.SetProfileAdmin(ctx, database.SetProfileAdminParams{ID: existing.ID, IsAdmin: true})
		if err != nil {
			return database.Profile{}, false, fmt.Errorf("promote profile: %w", err)
		}
		return p, false, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return database.Profile{}, false, fmt.Errorf("check profile: %w", err)
	}

	hashed, err := auth.HashPassword(password)
	if err != nil {
		return database.Profile{}, false, fmt.Errorf("hash password: %w", err)
	}
	p, err := store.CreateProfile(ctx, database.CreateProfileParams{
		Name:           name,
		Email:          email,
		HashedPassword: hashed,
		IsAdmin:        true,
	})
	if err != nil {
		return database.Profile{}, false, fmt.Errorf("create profile: %w", err)
	}
	return p, true, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
