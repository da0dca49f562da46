package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fixhubapp/fixhub-backend/api/controllers"
	"github.com/fixhubapp/fixhub-backend/api/middleware"
	"github.com/fixhubapp/fixhub-backend/internal/dispatch"
	"github.com/fixhubapp/fixhub-backend/internal/orders"
	"github.com/fixhubapp/fixhub-backend/internal/technicians"
	"github.com/fixhubapp/fixhub-backend/pkg/config"
	"github.com/fixhubapp/fixhub-backend/pkg/db"
	"github.com/fixhubapp/fixhub-backend/pkg/enums"
	"github.com/fixhubapp/fixhub-backend/pkg/logger"
	"github.com/fixhubapp/fixhub-backend/pkg/metrics"
	"github.com/fixhubapp/fixhub-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	ordersSvc orders.Service,
	techniciansSvc technicians.Service,
	hub *dispatch.Hub,
	dispatchMetrics *metrics.DispatchMetrics,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisClient))
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1/catalog", func(r chi.Router) {
		r.Get("/categories", controllers.CatalogCategories())
		r.Get("/resolve-issue", controllers.CatalogResolveIssue())
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(redisClient, logg))

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", controllers.OrderList(ordersSvc, logg))
			r.With(middleware.RequireRole(enums.ActorRoleCustomer.String(), logg)).
				Post("/", controllers.OrderCreate(ordersSvc, dispatchMetrics, logg))
			r.With(middleware.RequireRole(enums.ActorRoleTechnician.String(), logg)).
				Get("/available", controllers.OrderAvailable(ordersSvc, techniciansSvc, logg))
			r.Get("/{orderId}", controllers.OrderDetail(ordersSvc, logg))
			r.With(middleware.RequireRole(enums.ActorRoleTechnician.String(), logg)).
				Post("/{orderId}/accept", controllers.OrderAccept(ordersSvc, dispatchMetrics, logg))
			r.Post("/{orderId}/status", controllers.OrderUpdateStatus(ordersSvc, logg))
		})

		r.Route("/technicians", func(r chi.Router) {
			r.Use(middleware.RequireRole(enums.ActorRoleTechnician.String(), logg))
			r.Post("/", controllers.TechnicianRegister(techniciansSvc, logg))
			r.Get("/me", controllers.TechnicianMe(techniciansSvc, logg))
			r.Put("/me/location", controllers.TechnicianUpdateLocation(techniciansSvc, logg))
		})

		r.With(middleware.RequireRole(enums.ActorRoleTechnician.String(), logg)).
			Get("/dispatch/stream", controllers.DispatchStream(hub, cfg.Feed.HeartbeatEvery, logg))
	})

	return r
}
