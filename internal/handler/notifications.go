package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/pizzeria/api/internal/database"
	"github.com/pizzeria/api/internal/middleware"
	"github.com/pizzeria/api/internal/service"
	"go.uber.org/zap"
)

// NotificationStore defines the database methods needed for the admin badge.
// Satisfied by *database.Queries.
type NotificationStore interface {
	CountOrdersByStatus(ctx context.Context, status database.OrderStatus) (int64, error)
}

// NotificationHandler serves the admin notification counter.
type NotificationHandler struct {
	store NotificationStore
}

func NewNotificationHandler(store NotificationStore) *NotificationHandler {
	return &NotificationHandler{store: store}
}

func (h *NotificationHandler) RegisterRoutes(r chi.Router) {
	r.With(middleware.RequireAdmin).Get("/notifications", h.Get)
}

// Get returns how many orders are prepared and waiting for delivery.
func (h *NotificationHandler) Get(w http.ResponseWriter, r *http.Request) {
	n, err := h.store.CountOrdersByStatus(r.Context(), database.OrderStatusPrepared)
	if err != nil {
		zap.L().Error("count prepared orders", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	writeJSON(w, http.StatusOK, service.NotificationCounts{Prepared: n})
}
