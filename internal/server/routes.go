// Package server wires HTTP handlers into a chi router for the Chatterbox
// application via routing helpers.
package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// SetupRoutes configures and returns the application router: the
// access-approval REST endpoints, the WebSocket endpoint, the health check,
// and the built-in test page. CORS is open to any origin, matching the
// browser-facing deployment this backend serves; the WebSocket upgrade has
// its own origin allow-list.
func SetupRoutes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
	}))

	r.Get("/", HealthHandler)
	r.Post("/request-access", RequestAccessHandler)
	r.Post("/approve-user", ApproveUserHandler)
	r.Get("/check-approval", CheckApprovalHandler)
	r.Get("/pending-users", PendingUsersHandler)
	r.Get("/ws", WebSocketHandler)
	r.Get("/test", TestPageHandler)
	return r
}
