package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pizzeria/api/internal/database"
	"github.com/pizzeria/api/internal/middleware"
	"go.uber.org/zap"
)

// ProfileStore defines the database methods needed by profile handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type ProfileStore interface {
	GetProfileByID(ctx context.Context, id uuid.UUID) (database.Profile, error)
	SetProfileAdmin(ctx context.Context, arg database.SetProfileAdminParams) (database.Profile, error)
}

// ProfileHandler handles profile endpoints.
type ProfileHandler struct {
	store ProfileStore
}

// NewProfileHandler creates a new ProfileHandler.
func NewProfileHandler(store ProfileStore) *ProfileHandler {
	return &ProfileHandler{store: store}
}

// RegisterRoutes registers profile endpoints on the given Chi router.
// Expected to be mounted behind middleware.Authenticate.
func (h *ProfileHandler) RegisterRoutes(r chi.Router) {
	r.Get("/me", h.Me)
	r.With(middleware.RequireAdmin).Patch("/profiles/{id}/admin", h.SetAdmin)
}

type setAdminRequest struct {
	IsAdmin *bool `json:"is_admin" validate:"required"`
}

// Me returns the caller's profile.
func (h *ProfileHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	profile, err := h.store.GetProfileByID(r.Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "profile not found"})
			return
		}
		zap.L().Error("get profile", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, toProfileResponse(profile))
}

// SetAdmin grants or revokes the admin flag on a profile.
func (h *ProfileHandler) SetAdmin(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid profile ID"})
		return
	}

	var req setAdminRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	profile, err := h.store.SetProfileAdmin(r.Context(), database.SetProfileAdminParams{
		ID:      id,
		IsAdmin: *req.IsAdmin,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "profile not found"})
			return
		}
		zap.L().Error("set profile admin", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, toProfileResponse(profile))
}
