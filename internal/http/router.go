package http

import (
	"log"
	"net/http"

	"github.com/hoaxify/hoaxify-server/internal/auth"
	"github.com/hoaxify/hoaxify-server/internal/config"
	"github.com/hoaxify/hoaxify-server/internal/hoax"
	"github.com/hoaxify/hoaxify-server/internal/httputil"
	"github.com/hoaxify/hoaxify-server/internal/logging"
	"github.com/hoaxify/hoaxify-server/internal/token"
	"github.com/hoaxify/hoaxify-server/internal/user"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"
)

// NewRouter creates and configures the HTTP router. The token gate runs on
// every request and only attaches identity; the handlers that need a caller
// reject anonymous requests themselves.
func NewRouter(
	cfg *config.Config,
	userHandler *user.Handler,
	authHandler *auth.Handler,
	hoaxHandler *hoax.Handler,
	verifier token.Verifier,
	logger *logging.Logger,
	uploadsDir string,
) *chi.Mux {
	r := chi.NewRouter()

	// CORS - must be first
	if len(cfg.Server.TrustedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.Server.TrustedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
			ExposedHeaders:   []string{"Content-Length"},
			AllowCredentials: true,
			MaxAge:           300, // 5 minutes
		}))
	}

	// Global middleware
	r.Use(SecurityHeaders)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logging.RequestLogger(logger))
	r.Use(middleware.Compress(5))
	r.Use(token.Authenticate(verifier, logger))

	// Public routes
	r.Get("/health", handleHealth)

	// Swagger UI - only in development
	// Production builds will not have this route at all
	if cfg.Server.IsDevelopment() {
		log.Println("Swagger UI enabled at /swagger/*")
		r.Get("/swagger/*", httpSwagger.WrapHandler)
	}

	// Uploaded files, served directly when the local backend is in use
	if uploadsDir != "" {
		fileServer := http.StripPrefix("/images/", http.FileServer(http.Dir(uploadsDir)))
		r.Get("/images/*", fileServer.ServeHTTP)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/users", func(r chi.Router) {
			r.Post("/", userHandler.Register)
			r.Post("/token/{token}", userHandler.Activate)
			r.Get("/", userHandler.List)
			r.Get("/{id}", userHandler.Get)
			r.Put("/{id}", userHandler.Update)
			r.Delete("/{id}", userHandler.Delete)
			r.Get("/{id}/hoaxes", hoaxHandler.UserFeed)
		})

		r.Route("/auth", func(r chi.Router) {
			r.Post("/", authHandler.Login)
			r.Post("/logout", authHandler.Logout)
			r.Post("/password", authHandler.RequestPasswordReset)
			r.Put("/password", authHandler.ResetPassword)
		})

		r.Route("/hoaxes", func(r chi.Router) {
			r.Post("/", hoaxHandler.Create)
			r.Get("/", hoaxHandler.Feed)
			r.Delete("/{id}", hoaxHandler.Delete)
			r.Post("/attachments", hoaxHandler.UploadAttachment)
		})
	})

	return r
}

// handleHealth is a simple health check endpoint
// @Summary      Health check
// @Description  Check if the API is running
// @Tags         health
// @Produce      json
// @Success      200 {object} map[string]string
// @Router       /health [get]
func handleHealth(w http.ResponseWriter, r *http.Request) {
	httputil.RespondJSON(w, map[string]string{"status": "api is running"}, http.StatusOK)
}
