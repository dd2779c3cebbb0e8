package handler

import (
	"context"
	"errors"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pizzeria/api/internal/database"
	"github.com/pizzeria/api/internal/middleware"
	"github.com/pizzeria/api/internal/service"
	"github.com/pizzeria/api/internal/storage"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// PizzaStore defines the database methods needed by pizza read handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type PizzaStore interface {
	ListPizzas(ctx context.Context, search string) ([]database.Pizza, error)
	GetPizza(ctx context.Context, id uuid.UUID) (database.Pizza, error)
}

// CatalogServicer defines the service methods needed by pizza write handlers.
// Satisfied by *service.CatalogService; narrow interface for testability.
type CatalogServicer interface {
	Create(ctx context.Context, in service.PizzaInput, photo *service.PhotoUpload) (database.Pizza, error)
	Update(ctx context.Context, id uuid.UUID, in service.PizzaInput, photo *service.PhotoUpload) (database.Pizza, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// PizzaHandler handles pizza catalog endpoints.
type PizzaHandler struct {
	store PizzaStore
	svc   CatalogServicer
}

// NewPizzaHandler creates a new PizzaHandler.
func NewPizzaHandler(store PizzaStore, svc CatalogServicer) *PizzaHandler {
	return &PizzaHandler{store: store, svc: svc}
}

// RegisterRoutes registers pizza endpoints on the given Chi router.
// Expected to be mounted behind middleware.Authenticate.
func (h *PizzaHandler) RegisterRoutes(r chi.Router) {
	r.Get("/pizzas", h.List)
	r.Get("/pizzas/{id}", h.Get)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAdmin)
		r.Post("/pizzas", h.Create)
		r.Put("/pizzas/{id}", h.Update)
		r.Delete("/pizzas/{id}", h.Delete)
	})
}

// multipart overhead allowed on top of the photo itself
const formOverhead = 1 << 20

// --- Handlers ---

// List returns pizzas whose name contains the search term.
func (h *PizzaHandler) List(w http.ResponseWriter, r *http.Request) {
	search := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("search")))

	pizzas, err := h.store.ListPizzas(r.Context(), search)
	if err != nil {
		zap.L().Error("list pizzas", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]service.PizzaView, len(pizzas))
	for i, p := range pizzas {
		resp[i] = service.NewPizzaView(p)
	}

	writeJSON(w, http.StatusOK, resp)
}

// Get returns a single pizza with its size-keyed prices.
func (h *PizzaHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid pizza ID"})
		return
	}

	pizza, err := h.store.GetPizza(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "pizza not found"})
			return
		}
		zap.L().Error("get pizza", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, service.NewPizzaView(pizza).WithPriceSizes())
}

// Create adds a pizza from a multipart form with a required photo.
func (h *PizzaHandler) Create(w http.ResponseWriter, r *http.Request) {
	in, photo, ok := parsePizzaForm(w, r)
	if !ok {
		return
	}
	if photo == nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "photo is required"})
		return
	}
	defer photo.Close()

	pizza, err := h.svc.Create(r.Context(), in, &service.PhotoUpload{Body: photo})
	if err != nil {
		h.writeServiceError(w, "create pizza", err)
		return
	}

	writeJSON(w, http.StatusCreated, service.NewPizzaView(pizza).WithPriceSizes())
}

// Update replaces a pizza's fields; the photo is optional.
func (h *PizzaHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid pizza ID"})
		return
	}

	in, photo, ok := parsePizzaForm(w, r)
	if !ok {
		return
	}
	var upload *service.PhotoUpload
	if photo != nil {
		defer photo.Close()
		upload = &service.PhotoUpload{Body: photo}
	}

	pizza, err := h.svc.Update(r.Context(), id, in, upload)
	if err != nil {
		h.writeServiceError(w, "update pizza", err)
		return
	}

	writeJSON(w, http.StatusOK, service.NewPizzaView(pizza).WithPriceSizes())
}

// Delete removes a pizza and its photo.
func (h *PizzaHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid pizza ID"})
		return
	}

	if err := h.svc.Delete(r.Context(), id); err != nil {
		h.writeServiceError(w, "delete pizza", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// --- Helpers ---

func (h *PizzaHandler) writeServiceError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, service.ErrPizzaNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "pizza not found"})
	case service.IsValidationError(err):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	default:
		zap.L().Error(op, zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	}
}

// parsePizzaForm reads the multipart pizza form. photo is nil when no file
// was sent. On failure the response has been written and ok is false.
func parsePizzaForm(w http.ResponseWriter, r *http.Request) (in service.PizzaInput, photo multipart.File, ok bool) {
	r.Body = http.MaxBytesReader(w, r.Body, storage.MaxPhotoSize+formOverhead)
	if err := r.ParseMultipartForm(formOverhead); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"error": "photo must be at most 10 MiB"})
			return in, nil, false
		}
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid multipart form"})
		return in, nil, false
	}

	in.Name = strings.TrimSpace(r.FormValue("name"))
	in.Description = strings.TrimSpace(r.FormValue("description"))
	if in.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return in, nil, false
	}
	if in.Description == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "description is required"})
		return in, nil, false
	}

	for _, f := range []struct {
		field string
		dst   *decimal.Decimal
	}{
		{"price_size_s", &in.PriceS},
		{"price_size_m", &in.PriceM},
		{"price_size_l", &in.PriceL},
	} {
		price, msg := parsePrice(f.field, r.FormValue(f.field))
		if msg != "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
			return in, nil, false
		}
		*f.dst = price
	}

	file, header, err := r.FormFile("photo")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return in, nil, true
		}
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid photo"})
		return in, nil, false
	}
	if header.Size > storage.MaxPhotoSize {
		file.Close()
		writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"error": "photo must be at most 10 MiB"})
		return in, nil, false
	}
	return in, file, true
}

// parsePrice parses a non-negative decimal form value. It returns an error
// message naming the field on failure.
func parsePrice(field, s string) (decimal.Decimal, string) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, field + " is required"
	}
	d, err := decimal.NewFromString(s)
	if err != nil || d.IsNegative() {
		return decimal.Zero, field + " must be a non-negative number"
	}
	if !d.LessThan(database.MaxMoney) {
		return decimal.Zero, field + " must be less than " + database.MaxMoney.String()
	}
	if !d.Equal(d.Truncate(2)) {
		return decimal.Zero, field + " must have at most 2 decimal places"
	}
	return d, ""
}
