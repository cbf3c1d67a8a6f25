// Package http provides HTTP routing and handlers for the account vault.
package http

import (
	"net/http"

	"github.com/atinyakov/accountvault/internal/middleware"
	"go.uber.org/zap"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

// NewRouter constructs the HTTP handler serving the vault API.
//
// Routes:
//
//	GET    /api/accounts             → accounts.List
//	POST   /api/accounts             → accounts.Create
//	GET    /api/accounts/{id}        → accounts.Get
//	PUT    /api/accounts/{id}        → accounts.Update
//	DELETE /api/accounts/{id}        → accounts.Delete
//	GET    /api/debug/db             → debug.DB
//	GET    /api/debug/sheets         → debug.Sheets
//	POST   /api/debug/sheets/ping    → debug.SheetsPing
//
// Middleware chain (applied in order):
//  1. RequestID
//  2. WithRequestLogging(logger)
//  3. Recoverer
//  4. AllowContentType("application/json"), bodiless requests pass
func NewRouter(
	accounts *AccountsHandler,
	debug *DebugHandler,
	logger *zap.Logger,
) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(middleware.WithRequestLogging(logger))
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.AllowContentType("application/json"))

	r.Route("/api", func(r chi.Router) {
		r.Route("/accounts", func(r chi.Router) {
			r.Get("/", accounts.List)
			r.Post("/", accounts.Create)
			r.Get("/{id}", accounts.Get)
			r.Put("/{id}", accounts.Update)
			r.Delete("/{id}", accounts.Delete)
		})

		r.Route("/debug", func(r chi.Router) {
			r.Get("/db", debug.DB)
			r.Get("/sheets", debug.Sheets)
			r.Post("/sheets/ping", debug.SheetsPing)
		})
	})

	return r
}
