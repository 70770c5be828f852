package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/upb/coffee-shop/app"
	"github.com/upb/coffee-shop/middleware"
	"github.com/upb/coffee-shop/utils"
)

// Permission requirements per route. A comma-separated list is satisfied by
// any one of its permissions.
const (
	PermGetDrinksDetail = "get:drinks-detail"
	PermPostDrinks      = "post:drinks"
	PermPatchDrinks     = "patch:drinks"
	PermDeleteDrinks    = "delete:drinks"
	PermManageStaff     = "manage:barista, manage:manager"
)

// SetupRoutes configures all application routes and middleware
func SetupRoutes(deps *app.Dependencies) http.Handler {
	r := chi.NewRouter()

	// Core middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(60 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.Config.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check endpoints
	r.Get("/healthz", deps.HealthHandler.HandleHealth)
	r.Get("/readyz", deps.HealthHandler.HandleReadiness)

	if deps.Config.Observability.MetricsEnabled {
		r.Method(http.MethodGet, "/metrics", deps.Metrics.Handler())
	}

	auth := deps.AuthMiddleware
	drinks := deps.DrinkHandler
	users := deps.UserHandler

	// Drink menu
	r.Get("/drinks", drinks.ListShort)
	r.Get("/drinks-detail", auth.Guard(PermGetDrinksDetail, drinks.ListLong))
	r.Post("/drinks", auth.Guard(PermPostDrinks, drinks.Create))
	r.Route("/drinks/{id}", func(r chi.Router) {
		r.Patch("/", auth.Guard(PermPatchDrinks, drinks.Update))
		r.Delete("/", auth.Guard(PermDeleteDrinks, drinks.Delete))
	})

	// Staff management
	r.Get("/roles", auth.Guard(PermManageStaff, users.ListRoles))
	r.Route("/users", func(r chi.Router) {
		r.Get("/", auth.Guard(PermManageStaff, users.List))
		r.Post("/", auth.Guard(PermManageStaff, users.Create))
		r.Get("/me", auth.Guard(PermGetDrinksDetail, users.Me))
		r.Patch("/{id}", auth.Guard(PermManageStaff, users.Update))
		r.Delete("/{id}", auth.Guard(PermManageStaff, users.Delete))
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		_ = utils.WriteNotFound(w, "")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		_ = utils.WriteMethodNotAllowed(w)
	})

	return r
}
