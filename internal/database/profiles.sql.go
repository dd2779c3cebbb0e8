package database

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const profileColumns = `id, name, email, hashed_password, is_admin, created_at, updated_at`

func scanProfile(row interface{ Scan(...interface{}) error }) (Profile, error) {
	var i Profile
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.Email,
		&i.HashedPassword,
		&i.IsAdmin,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const createProfile = `-- name: CreateProfile :one
INSERT INTO profiles (name, email, hashed_password, is_admin)
VALUES ($1, lower($2), $3, $4)
RETURNING ` + profileColumns

type CreateProfileParams struct {
	Name           string `json:"name"`
	Email          string `json:"email"`
	HashedPassword string `json:"hashed_password"`
	IsAdmin        bool   `json:"is_admin"`
}

func (q *Queries) CreateProfile(ctx context.Context, arg CreateProfileParams) (Profile, error) {
	row := q.db.QueryRow(ctx, createProfile,
		arg.Name,
		arg.Email,
		arg.HashedPassword,
		arg.IsAdmin,
	)
	return scanProfile(row)
}

const getProfileByID = `-- name: GetProfileByID :one
SELECT ` + profileColumns + ` FROM profiles
WHERE id = $1`

func (q *Queries) GetProfileByID(ctx context.Context, id uuid.UUID) (Profile, error) {
	row := q.db.QueryRow(ctx, getProfileByID, id)
	return scanProfile(row)
}

const getProfileByEmail = `-- name: GetProfileByEmail :one
SELECT ` + profileColumns + ` FROM profiles
WHERE lower(email) = lower($1)`

func (q *Queries) GetProfileByEmail(ctx context.Context, email string) (Profile, error) {
	row := q.db.QueryRow(ctx, getProfileByEmail, email)
	return scanProfile(row)
}

const setProfileAdmin = `-- name: SetProfileAdmin :one
UPDATE profiles
SET is_admin = $2, updated_at = now()
WHERE id = $1
RETURNING ` + profileColumns

type SetProfileAdminParams struct {
	ID      uuid.UUID `json:"id"`
	IsAdmin bool      `json:"is_admin"`
}

func (q *Queries) SetProfileAdmin(ctx context.Context, arg SetProfileAdminParams) (Profile, error) {
	row := q.db.QueryRow(ctx, setProfileAdmin, arg.ID, arg.IsAdmin)
	return scanProfile(row)
}

const updateProfilePassword = `-- name: UpdateProfilePassword :one
UPDATE profiles
SET hashed_password = $2, updated_at = now()
WHERE id = $1 AND updated_at = $3
RETURNING ` + profileColumns

// UpdateProfilePasswordParams.UpdatedAt is the version the caller read; the
// update matches no row if the profile changed since.
type UpdateProfilePasswordParams struct {
	ID             uuid.UUID `json:"id"`
	HashedPassword string    `json:"hashed_password"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func (q *Queries) UpdateProfilePassword(ctx context.Context, arg UpdateProfilePasswordParams) (Profile, error) {
	row := q.db.QueryRow(ctx, updateProfilePassword, arg.ID, arg.HashedPassword, arg.UpdatedAt)
	return scanProfile(row)
}
