package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/pizzeria/api/internal/config"
	"github.com/pizzeria/api/internal/database"
	"github.com/pizzeria/api/internal/handler"
	"github.com/pizzeria/api/internal/mailer"
	"github.com/pizzeria/api/internal/metrics"
	mw "github.com/pizzeria/api/internal/middleware"
	"github.com/pizzeria/api/internal/service"
	"github.com/pizzeria/api/internal/storage"
	"github.com/pizzeria/api/internal/ws"
	"go.uber.org/zap"
)

// Deps are the collaborators the router wires into handlers.
type Deps struct {
	Queries *database.Queries
	Pool    service.TxBeginner
	Hub     *ws.Hub
	// Events receives realtime events. Defaults to Hub.
	Events  ws.Publisher
	Photos  storage.PhotoStore
	Mailer  mailer.Mailer
	Limiter *mw.RateLimiter
	Logger  *zap.Logger
}

// New creates a Chi router with all application routes wired up.
// Applies authentication and admin-only middleware as needed.
func New(cfg *config.Config, d Deps) chi.Router {
	if d.Events == nil && d.Hub != nil {
		d.Events = d.Hub
	}
	if d.Logger == nil {
		d.Logger = zap.L()
	}

	r := chi.NewRouter()

	// Standard middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(mw.RequestLogger(d.Logger))
	r.Use(middleware.Recoverer)
	r.Use(metrics.InstrumentHandler)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300, // 5 minutes
	}))

	// Public routes
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/metrics", metrics.Handler())

	// Disk storage serves its own files; Supabase hands out bucket URLs.
	if fs, ok := d.Photos.(interface{ Handler() http.Handler }); ok {
		r.Handle("/photos/*", fs.Handler())
	}

	// WebSocket route (handles auth internally via query param)
	r.Get("/ws", ws.Handler(d.Hub, cfg.JWTSecret))

	// Auth routes (public, rate limited)
	authHandler := handler.NewAuthHandler(d.Queries, handler.TokenConfig{
		Secret:     cfg.JWTSecret,
		AccessTTL:  cfg.AccessTokenTTL,
		RefreshTTL: cfg.RefreshTokenTTL,
		ResetTTL:   cfg.ResetTokenTTL,
	}, d.Mailer)
	r.Group(func(r chi.Router) {
		if d.Limiter != nil {
			r.Use(d.Limiter.Handler)
		}
		authHandler.RegisterRoutes(r)
	})

	// Protected routes (require authentication)
	r.Group(func(r chi.Router) {
		r.Use(mw.Authenticate(cfg.JWTSecret))

		profileHandler := handler.NewProfileHandler(d.Queries)
		profileHandler.RegisterRoutes(r)

		catalog := service.NewCatalogService(d.Queries, d.Photos, d.Events)
		pizzaHandler := handler.NewPizzaHandler(d.Queries, catalog)
		pizzaHandler.RegisterRoutes(r)

		notificationHandler := handler.NewNotificationHandler(d.Queries)
		notificationHandler.RegisterRoutes(r)

		newOrderStore := func(db database.DBTX) service.OrderStore {
			return database.New(db)
		}
		orderService := service.NewOrderService(d.Pool, newOrderStore, d.Events)
		orderHandler := handler.NewOrderHandler(orderService, d.Queries)
		r.Route("/orders", orderHandler.RegisterRoutes)
	})

	return r
}
