package api

import (
	"database/sql"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/isdelr/pollboard/internal/api/handlers"
	"github.com/isdelr/pollboard/internal/services"
	"github.com/isdelr/pollboard/internal/websocket"
)

// NewRouter creates and configures a new Chi router.
func NewRouter(
	allowedOrigins []string,
	db *sql.DB,
	hub *websocket.Hub,
	userService services.UserServiceProvider,
	pollService services.PollServiceProvider,
	eventService services.EventServiceProvider,
	statsService services.StatsServiceProvider,
	sampler handlers.HostSampler,
) *chi.Mux {
	r := chi.NewRouter()

	// Basic middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		ExposedHeaders: []string{"X-Request-Id"},
		MaxAge:         300,
	}))

	r.NotFound(handlers.NotFound)
	r.MethodNotAllowed(handlers.MethodNotAllowed)

	// Initialize handlers
	userHandler := handlers.NewUserHandler(userService)
	pollHandler := handlers.NewPollHandler(pollService)
	eventHandler := handlers.NewEventHandler(eventService)
	statsHandler := handlers.NewStatsHandler(statsService, sampler, db)
	wsHandler := handlers.NewWebSocketHandler(hub, pollService)

	r.Post("/register", userHandler.Register)
	r.Post("/login", userHandler.Login)

	r.Route("/user", func(r chi.Router) {
		r.Get("/list", userHandler.GetAll)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", userHandler.Get)
			r.Put("/", userHandler.Update)
			r.Delete("/", userHandler.Delete)
		})
	})

	r.Route("/poll", func(r chi.Router) {
		r.Post("/add", pollHandler.Create)
		r.Get("/list", pollHandler.GetAll)
		r.Route("/option/{optionID}", func(r chi.Router) {
			r.Put("/", pollHandler.UpdateOption)
			r.Delete("/", pollHandler.DeleteOption)
		})
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", pollHandler.Get)
			r.Put("/", pollHandler.Update)
			r.Delete("/", pollHandler.Delete)
			r.Post("/option/{optionID}", pollHandler.Vote)
		})
	})

	r.Get("/events", eventHandler.GetRecent)
	r.Get("/stats", statsHandler.Get)
	r.Get("/healthz", statsHandler.Health)

	// WebSocket endpoints for live tallies
	r.Get("/ws", wsHandler.Serve)
	r.Get("/ws/poll/{id}", wsHandler.Serve)

	return r
}
