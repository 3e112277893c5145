// http — локальная REST-поверхность BFF для браузерного UI.
package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Tuhin-SnapD/pricepilot/internal/api"
	"github.com/Tuhin-SnapD/pricepilot/internal/http/handlers"
	"github.com/Tuhin-SnapD/pricepilot/internal/http/middleware"
	"github.com/Tuhin-SnapD/pricepilot/internal/models"
)

// Options — параметры сборки HTTP-роутера.
type Options struct {
	Logger         *slog.Logger
	Timeout        time.Duration
	AllowedOrigins []string
	// Done закрывается при остановке процесса: websocket-соединения
	// не закрываются http.Server.Shutdown сами.
	Done <-chan struct{}
}

// NewRouter собирает http.Handler с chi и подключёнными middleware/роутами.
func NewRouter(sess handlers.Session, pricing *api.Client, opts Options) http.Handler {
	r := chi.NewRouter()

	// Middleware (внешний -> внутренний).
	r.Use(
		middleware.Recover(),
		middleware.RequestID(),
		middleware.Logging(opts.Logger),
	)

	h := handlers.New(sess, pricing,
		handlers.WithAllowedOrigins(opts.AllowedOrigins),
		handlers.WithDone(opts.Done),
	)

	// Websocket живёт дольше любого дедлайна запроса.
	r.Get("/auth/session/ws", h.SessionWS)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(opts.Timeout))
		registerRoutes(r, h, sess)
	})

	return r
}

// registerRoutes — единая точка регистрации REST-эндпойнтов.
func registerRoutes(r chi.Router, h *handlers.Handlers, s middleware.SessionView) {
	authed := middleware.RequireAuth(s)
	catalogRoles := middleware.RequireRole(s, models.RoleSupplier, models.RoleAdmin)
	adminOnly := middleware.RequireRole(s, models.RoleAdmin)

	// auth
	r.Post("/auth/login", h.Login)
	r.Post("/auth/register", h.Register)
	r.Post("/auth/logout", h.Logout)
	r.Get("/auth/session", h.CurrentSession)

	// products
	r.Route("/products", func(r chi.Router) {
		r.With(catalogRoles).Get("/", h.ListProducts)
		r.With(catalogRoles).Post("/", h.CreateProduct)
		r.With(authed).Get("/{id}", h.GetProduct)
		r.With(adminOnly).Put("/{id}", h.UpdateProduct)
		r.With(adminOnly).Delete("/{id}", h.DeleteProduct)
	})

	// analytics
	r.Route("/analytics", func(r chi.Router) {
		r.Use(authed)

		r.Get("/forecast", h.DemandForecast())
		r.Get("/advanced-forecast", h.AdvancedForecast)
		r.Get("/optimize", h.OptimizePricing())
		r.Get("/elasticity-heatmap", h.ElasticityHeatmap())
		r.Get("/inventory-analysis", h.InventoryAnalysis())
		r.Get("/dashboard", h.OptimizationDashboard())

		r.Post("/ml-optimize", h.MLOptimize)
		r.Post("/ab-testing", h.ABTest)
		r.Post("/batch-optimize", h.BatchOptimize)
	})
}
