package rest

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/safetyops/permit-management/internal/auth"
	"github.com/safetyops/permit-management/internal/permit"
	"github.com/safetyops/permit-management/internal/transport/middleware"
	"github.com/safetyops/permit-management/internal/transport/swagger"
)

// RegisterAllRoutes wires the HTTP surface. Everything permit-related sits
// behind the auth middleware; signup and login are the only open endpoints
// besides health and docs.
func RegisterAllRoutes(router *chi.Mux, db *sql.DB, authHandler *auth.Handler, permitHandler *permit.Handler, allowedOrigins string, logger *slog.Logger) {
	healthHandler := NewHealthHandler(db)

	router.Use(middleware.CORS(allowedOrigins))
	router.Use(middleware.RequestID)
	router.Use(middleware.LoggingMiddleware(logger))
	router.Use(middleware.RecoveryMiddleware(logger))

	// OpenAPI spec and Swagger UI at root, outside the API prefix
	router.Get("/openapi.yml", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, "./api/openapi.yml")
	})
	router.Handle("/swagger/*", swagger.Handler())

	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", healthHandler.HealthCheck)
		r.Get("/ping", healthHandler.Ping)

		r.Post("/signup", authHandler.Signup)
		r.Post("/login", authHandler.Login)

		r.Group(func(pr chi.Router) {
			pr.Use(authHandler.AuthMiddleware)

			pr.Get("/logout", authHandler.Logout)
			pr.Get("/verify-auth", authHandler.VerifyAuth)

			pr.Post("/add-permit", permitHandler.CreatePermit)
			pr.Get("/permits", permitHandler.GetAllPermits)
			pr.Get("/permits/{id}", permitHandler.GetPermit)
			pr.Put("/edit-permit/{id}", permitHandler.UpdatePermit)
			pr.Delete("/delete-permit/{id}", permitHandler.DeletePermit)
			pr.Get("/search-permits", permitHandler.SearchPermits)
			pr.Get("/permits-stats", permitHandler.PermitStats)
		})
	})
}
