package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/dec-learning/platform-backend/app"
	"github.com/dec-learning/platform-backend/handlers"
)

// SetupRoutes configures all application routes and middleware
func SetupRoutes(deps *app.Dependencies) http.Handler {
	r := chi.NewRouter()

	// Core middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(120 * time.Second))

	// CORS middleware
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:*", "https://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	healthHandler := handlers.NewHealthHandler(deps.DB.DB, deps.Logger)
	documentHandler := handlers.NewDocumentHandler(
		deps.DocumentService,
		deps.Processor,
		deps.Retrieval,
		deps.Logger,
		deps.Config.Storage.MaxUploadBytes,
	)
	chatbotHandler := handlers.NewChatbotHandler(deps.Chatbot, deps.Logger)

	// Health check endpoints
	r.Get("/healthz", healthHandler.HandleHealth)
	r.Get("/readyz", healthHandler.HandleReadiness)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		// Document management (admin only)
		r.Route("/documents", func(r chi.Router) {
			r.Use(deps.AuthMiddleware.RequireAuth)
			r.Use(deps.AuthMiddleware.RequireRole("ADMIN"))
			r.Post("/upload", documentHandler.HandleUpload)
			r.Get("/", documentHandler.HandleList)
			r.Get("/stats", documentHandler.HandleStats)
			r.Get("/search", documentHandler.HandleSearch)
			r.Get("/{id}", documentHandler.HandleGet)
			r.Patch("/{id}", documentHandler.HandleUpdate)
			r.Delete("/{id}", documentHandler.HandleDelete)
			r.Post("/{id}/reprocess", documentHandler.HandleReprocess)
		})

		// Chatbot (any authenticated user)
		r.Route("/chatbot", func(r chi.Router) {
			r.Use(deps.AuthMiddleware.RequireAuth)
			r.Post("/chat", chatbotHandler.HandleChat)
			r.Post("/stream", chatbotHandler.HandleChatStream)
		})
	})

	// 404 handler
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"endpoint not found"}`))
	})

	return r
}
