package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pizzeria/api/internal/auth"
	"github.com/pizzeria/api/internal/database"
	"github.com/pizzeria/api/internal/mailer"
	"github.com/pizzeria/api/internal/validate"
	"go.uber.org/zap"
)

// AuthStore defines the database methods needed by auth handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type AuthStore interface {
	CreateProfile(ctx context.Context, arg database.CreateProfileParams) (database.Profile, error)
	GetProfileByEmail(ctx context.Context, email string) (database.Profile, error)
	GetProfileByID(ctx context.Context, id uuid.UUID) (database.Profile, error)
	UpdateProfilePassword(ctx context.Context, arg database.UpdateProfilePasswordParams) (database.Profile, error)
}

// TokenConfig holds the signing secret and lifetimes for issued tokens.
type TokenConfig struct {
	Secret     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	ResetTTL   time.Duration
}

// AuthHandler handles authentication endpoints.
type AuthHandler struct {
	store  AuthStore
	tokens TokenConfig
	mailer mailer.Mailer
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(store AuthStore, tokens TokenConfig, m mailer.Mailer) *AuthHandler {
	return &AuthHandler{store: store, tokens: tokens, mailer: m}
}

// RegisterRoutes registers auth endpoints on the given Chi router.
func (h *AuthHandler) RegisterRoutes(r chi.Router) {
	r.Post("/auth/sign-up", h.SignUp)
	r.Post("/auth/sign-in", h.SignIn)
	r.Post("/auth/refresh", h.Refresh)
	r.Post("/auth/forgot-password", h.ForgotPassword)
	r.Post("/auth/reset-password", h.ResetPassword)
}

// --- Request / Response types ---

type signUpRequest struct {
	Name            string `json:"name" validate:"required"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required,min=6,max=72"`
	ConfirmPassword string `json:"confirm_password" validate:"required,eqfield=Password"`
}

type signInRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type forgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type resetPasswordRequest struct {
	Token           string `json:"token" validate:"required"`
	Password        string `json:"password" validate:"required,min=6,max=72"`
	ConfirmPassword string `json:"confirm_password" validate:"required,eqfield=Password"`
}

type tokenResponse struct {
	AccessToken  string          `json:"access_token"`
	RefreshToken string          `json:"refresh_token"`
	User         profileResponse `json:"user"`
}

type profileResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	IsAdmin   bool      `json:"is_admin"`
	CreatedAt time.Time `json:"created_at"`
}

func toProfileResponse(p database.Profile) profileResponse {
	return profileResponse{
		ID:        p.ID,
		Name:      p.Name,
		Email:     p.Email,
		IsAdmin:   p.IsAdmin,
		CreatedAt: p.CreatedAt,
	}
}

// --- Handlers ---

// SignUp creates a customer profile and signs it in.
func (h *AuthHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req signUpRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	hashed, ok := hashPassword(w, req.Password)
	if !ok {
		return
	}

	profile, err := h.store.CreateProfile(r.Context(), database.CreateProfileParams{
		Name:           strings.TrimSpace(req.Name),
		Email:          normalizeEmail(req.Email),
		HashedPassword: hashed,
		IsAdmin:        false,
	})
	if err != nil {
		if isUniqueViolation(err) {
			writeJSON(w, http.StatusConflict, map[string]string{"error": "email already registered"})
			return
		}
		zap.L().Error("create profile", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	h.respondWithTokens(w, http.StatusCreated, profile)
}

// SignIn handles email + password authentication.
func (h *AuthHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	profile, err := h.store.GetProfileByEmail(r.Context(), normalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid credentials"})
			return
		}
		zap.L().Error("get profile by email", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	if !auth.CheckPassword(profile.HashedPassword, req.Password) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid credentials"})
		return
	}

	h.respondWithTokens(w, http.StatusOK, profile)
}

// Refresh exchanges a valid refresh token for a new access + refresh token pair.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	userID, err := auth.ValidateRefreshToken(h.tokens.Secret, req.RefreshToken)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid refresh token"})
		return
	}

	profile, err := h.store.GetProfileByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "user not found"})
			return
		}
		zap.L().Error("get profile for refresh", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	h.respondWithTokens(w, http.StatusOK, profile)
}

// ForgotPassword hands a reset token to the mailer when the account exists.
// The response is the same either way.
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	accepted := map[string]string{"message": "if the account exists, a reset link has been sent"}

	profile, err := h.store.GetProfileByEmail(r.Context(), normalizeEmail(req.Email))
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			zap.L().Error("get profile for password reset", zap.Error(err))
		}
		writeJSON(w, http.StatusAccepted, accepted)
		return
	}

	token, err := auth.GenerateResetToken(h.tokens.Secret, profile.ID, profile.UpdatedAt.UnixMicro(), h.tokens.ResetTTL)
	if err != nil {
		zap.L().Error("generate reset token", zap.Error(err))
		writeJSON(w, http.StatusAccepted, accepted)
		return
	}

	if err := h.mailer.SendPasswordReset(r.Context(), profile.Email, token); err != nil {
		zap.L().Error("send password reset", zap.String("profile_id", profile.ID.String()), zap.Error(err))
	}
	writeJSON(w, http.StatusAccepted, accepted)
}

// ResetPassword sets a new password using a reset token. A token stops
// working once the profile changes, so each token works once.
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	invalid := map[string]string{"error": "invalid or expired reset token"}

	userID, version, err := auth.ValidateResetToken(h.tokens.Secret, req.Token)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, invalid)
		return
	}

	profile, err := h.store.GetProfileByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusUnauthorized, invalid)
			return
		}
		zap.L().Error("get profile for reset", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	if profile.UpdatedAt.UnixMicro() != version {
		writeJSON(w, http.StatusUnauthorized, invalid)
		return
	}

	hashed, ok := hashPassword(w, req.Password)
	if !ok {
		return
	}

	_, err = h.store.UpdateProfilePassword(r.Context(), database.UpdateProfilePasswordParams{
		ID:             profile.ID,
		HashedPassword: hashed,
		UpdatedAt:      profile.UpdatedAt,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Another reset won the race
			writeJSON(w, http.StatusUnauthorized, invalid)
			return
		}
		zap.L().Error("update password", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// --- Helpers ---

func (h *AuthHandler) respondWithTokens(w http.ResponseWriter, status int, profile database.Profile) {
	accessToken, err := auth.GenerateToken(h.tokens.Secret, profile.ID, profile.IsAdmin, h.tokens.AccessTTL)
	if err != nil {
		zap.L().Error("generate access token", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	refreshToken, err := auth.GenerateRefreshToken(h.tokens.Secret, profile.ID, h.tokens.RefreshTTL)
	if err != nil {
		zap.L().Error("generate refresh token", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, status, tokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         toProfileResponse(profile),
	})
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// decodeAndValidate decodes the JSON body into dst and checks its validate
// tags, writing a 400 response on failure.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return false
	}
	if err := validate.Struct(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return false
	}
	return true
}

// isUniqueViolation checks for pgconn error code 23505.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Error("failed to encode JSON response", zap.Error(err))
	}
}

// hashPassword hashes pw and writes the error response on failure.
func hashPassword(w http.ResponseWriter, pw string) (string, bool) {
	hashed, err := auth.HashPassword(pw)
	if err != nil {
		if errors.Is(err, auth.ErrPasswordTooLong) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "password must be at most 72 bytes"})
			return "", false
		}
		zap.L().Error("hash password", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return "", false
	}
	return hashed, true
}
