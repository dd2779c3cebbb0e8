package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pizzeria/api/internal/database"
	"github.com/pizzeria/api/internal/enum"
	"github.com/pizzeria/api/internal/storage"
	"github.com/pizzeria/api/internal/ws"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Errors returned by the catalog service.
var (
	ErrNameRequired        = errors.New("name is required")
	ErrDescriptionRequired = errors.New("description is required")
	ErrInvalidPrice        = errors.New("prices must be non-negative amounts below 100000000 with at most 2 decimal places")
	ErrPhotoRequired       = errors.New("photo is required")
)

// PizzaStore defines the DB methods needed to manage the catalog.
// Satisfied by *database.Queries.
type PizzaStore interface {
	GetPizza(ctx context.Context, id uuid.UUID) (database.Pizza, error)
	CreatePizza(ctx context.Context, arg database.CreatePizzaParams) (database.Pizza, error)
	UpdatePizza(ctx context.Context, arg database.UpdatePizzaParams) (database.Pizza, error)
	DeletePizza(ctx context.Context, id uuid.UUID) (database.Pizza, error)
}

// PizzaInput holds the editable pizza fields.
type PizzaInput struct {
	Name        string
	Description string
	PriceS      decimal.Decimal
	PriceM      decimal.Decimal
	PriceL      decimal.Decimal
}

// PhotoUpload is a photo file received from the client.
type PhotoUpload struct {
	Body io.Reader
}

// CatalogService manages pizzas and their photos.
type CatalogService struct {
	store  PizzaStore
	photos storage.PhotoStore
	events ws.Publisher
	now    func() time.Time
}

// NewCatalogService creates a new CatalogService.
func NewCatalogService(store PizzaStore, photos storage.PhotoStore, events ws.Publisher) *CatalogService {
	return &CatalogService{store: store, photos: photos, events: events, now: time.Now}
}

// Create uploads the photo and inserts the pizza. The photo is removed again
// if the insert fails.
func (s *CatalogService) Create(ctx context.Context, in PizzaInput, photo *PhotoUpload) (database.Pizza, error) {
	if err := validatePizza(&in); err != nil {
		return database.Pizza{}, err
	}
	if photo == nil {
		return database.Pizza{}, ErrPhotoRequired
	}

	stored, err := s.upload(ctx, in.Name, photo)
	if err != nil {
		return database.Pizza{}, err
	}

	pizza, err := s.store.CreatePizza(ctx, database.CreatePizzaParams{
		Name:        in.Name,
		Description: in.Description,
		PriceSizeS:  database.DecimalToNumeric(in.PriceS),
		PriceSizeM:  database.DecimalToNumeric(in.PriceM),
		PriceSizeL:  database.DecimalToNumeric(in.PriceL),
		PhotoUrl:    stored.URL,
		PhotoPath:   stored.Path,
	})
	if err != nil {
		s.removePhoto(ctx, stored.Path)
		return database.Pizza{}, fmt.Errorf("create pizza: %w", err)
	}

	emit(ctx, s.events, enum.EventPizzaCreated, NewPizzaView(pizza), enum.RoomAll)
	return pizza, nil
}

// Update replaces the pizza fields. A new photo replaces the stored one; the
// old object is removed only after the row is updated.
func (s *CatalogService) Update(ctx context.Context, id uuid.UUID, in PizzaInput, photo *PhotoUpload) (database.Pizza, error) {
	if err := validatePizza(&in); err != nil {
		return database.Pizza{}, err
	}

	current, err := s.store.GetPizza(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Pizza{}, ErrPizzaNotFound
		}
		return database.Pizza{}, fmt.Errorf("get pizza: %w", err)
	}

	params := database.UpdatePizzaParams{
		ID:          id,
		Name:        in.Name,
		Description: in.Description,
		PriceSizeS:  database.DecimalToNumeric(in.PriceS),
		PriceSizeM:  database.DecimalToNumeric(in.PriceM),
		PriceSizeL:  database.DecimalToNumeric(in.PriceL),
		PhotoUrl:    current.PhotoUrl,
		PhotoPath:   current.PhotoPath,
	}

	var replaced bool
	if photo != nil {
		stored, err := s.upload(ctx, in.Name, photo)
		if err != nil {
			return database.Pizza{}, err
		}
		params.PhotoUrl, params.PhotoPath = stored.URL, stored.Path
		replaced = true
	}

	pizza, err := s.store.UpdatePizza(ctx, params)
	if err != nil {
		if replaced {
			s.removePhoto(ctx, params.PhotoPath)
		}
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Pizza{}, ErrPizzaNotFound
		}
		return database.Pizza{}, fmt.Errorf("update pizza: %w", err)
	}

	if replaced && current.PhotoPath != "" && current.PhotoPath != pizza.PhotoPath {
		s.removePhoto(ctx, current.PhotoPath)
	}

	emit(ctx, s.events, enum.EventPizzaUpdated, NewPizzaView(pizza), enum.RoomAll)
	return pizza, nil
}

// Delete removes the pizza's photo and then the pizza. A photo that cannot be
// removed does not stop the delete. Orders keep their copied name and image.
func (s *CatalogService) Delete(ctx context.Context, id uuid.UUID) error {
	current, err := s.store.GetPizza(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrPizzaNotFound
		}
		return fmt.Errorf("get pizza: %w", err)
	}

	if current.PhotoPath != "" {
		s.removePhoto(ctx, current.PhotoPath)
	}

	if _, err := s.store.DeletePizza(ctx, id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrPizzaNotFound
		}
		return fmt.Errorf("delete pizza: %w", err)
	}

	emit(ctx, s.events, enum.EventPizzaDeleted, map[string]uuid.UUID{"id": id}, enum.RoomAll)
	return nil
}

func (s *CatalogService) upload(ctx context.Context, name string, photo *PhotoUpload) (storage.Photo, error) {
	contentType, ext, body, err := storage.Detect(photo.Body)
	if err != nil {
		return storage.Photo{}, err
	}
	stored, err := s.photos.Upload(ctx, PhotoName(s.now(), name, ext), contentType, body)
	if err != nil {
		return storage.Photo{}, fmt.Errorf("upload photo: %w", err)
	}
	return stored, nil
}

func (s *CatalogService) removePhoto(ctx context.Context, path string) {
	if err := s.photos.Remove(ctx, path); err != nil {
		zap.L().Warn("remove pizza photo", zap.String("path", path), zap.Error(err))
	}
}

var whitespace = regexp.MustCompile(`\s+`)

// PhotoName builds the object name for a pizza photo:
// "<unix millis>-<name with whitespace runs replaced by ->.<ext>".
func PhotoName(now time.Time, name, ext string) string {
	slug := whitespace.ReplaceAllString(strings.TrimSpace(name), "-")
	slug = strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' {
			return '-'
		}
		return r
	}, slug)
	return fmt.Sprintf("%d-%s.%s", now.UnixMilli(), slug, ext)
}

func validatePizza(in *PizzaInput) error {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	if in.Name == "" {
		return ErrNameRequired
	}
	if in.Description == "" {
		return ErrDescriptionRequired
	}
	for _, p := range []decimal.Decimal{in.PriceS, in.PriceM, in.PriceL} {
		if !database.FitsMoney(p) {
			return ErrInvalidPrice
		}
	}
	return nil
}
