package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/modaro-shop/modaro-backend/api/controllers"
	webhookcontrollers "github.com/modaro-shop/modaro-backend/api/controllers/webhooks"
	"github.com/modaro-shop/modaro-backend/api/middleware"
	"github.com/modaro-shop/modaro-backend/pkg/auth/session"
	"github.com/modaro-shop/modaro-backend/pkg/config"
	"github.com/modaro-shop/modaro-backend/pkg/enums"
	"github.com/modaro-shop/modaro-backend/pkg/logger"
	pkgredis "github.com/modaro-shop/modaro-backend/pkg/redis"
)

type pinger interface {
	Ping(ctx context.Context) error
}

// Deps bundles everything the HTTP surface needs. cmd/api fills it in
// from the wired services.
type Deps struct {
	Config      *config.Config
	Logger      *logger.Logger
	DB          pinger
	Cache       pinger
	Idempotency pkgredis.IdempotencyStore
	Sessions    session.AccessSessionChecker
	Catalog     controllers.CatalogService
	Orders      controllers.OrderService
	Inventory   controllers.InventoryService
	Payments    webhookcontrollers.OrderPaymentService
	Metrics     http.Handler
}

// NewRouter mounts the full route tree: public catalog and health,
// authenticated order endpoints, admin inventory and order-status
// endpoints, and the service-key-guarded payment webhook.
func NewRouter(d Deps) http.Handler {
	cfg := d.Config
	logg := d.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Get("/healthz", controllers.HealthLive(cfg))
	r.Get("/readyz", controllers.HealthReady(cfg, d.DB, d.Cache, logg))
	if d.Metrics != nil {
		r.Handle("/metrics", d.Metrics)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/products", func(r chi.Router) {
			r.Get("/", controllers.ListProducts(d.Catalog, logg))
			r.Get("/{productID}", controllers.GetProduct(d.Catalog, logg))
		})

		r.Route("/webhooks", func(r chi.Router) {
			r.Post("/payments", webhookcontrollers.PaymentEvent(d.Payments, cfg.ServiceKey, logg))
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, d.Sessions, logg))
			r.Use(middleware.Idempotency(d.Idempotency, logg))

			r.Route("/orders", func(r chi.Router) {
				r.Post("/", controllers.CreateOrder(d.Orders, logg))
				r.Get("/", controllers.ListOrders(d.Orders, logg))
				r.Get("/{orderID}", controllers.GetOrder(d.Orders, logg))
				r.Post("/{orderID}/cancel", controllers.CancelOrder(d.Orders, logg))
			})

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(string(enums.ActorRoleAdmin), logg))

				r.Route("/inventory", func(r chi.Router) {
					r.Get("/{variantID}", controllers.ReadStock(d.Inventory, logg))
					r.Get("/{variantID}/movements", controllers.ListStockMovements(d.Inventory, logg))
				})

				r.Route("/admin", func(r chi.Router) {
					r.Route("/inventory", func(r chi.Router) {
						r.Post("/{variantID}/restock", controllers.Restock(d.Inventory, logg))
						r.Put("/{variantID}", controllers.SetStock(d.Inventory, logg))
					})
					r.Patch("/orders/{orderID}/status", controllers.UpdateOrderStatus(d.Orders, logg))
				})
			})
		})
	})

	return r
}
