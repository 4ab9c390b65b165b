package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mandibook/mandibook-backend/api/controllers"
	"github.com/mandibook/mandibook-backend/api/middleware"
	"github.com/mandibook/mandibook-backend/internal/customers"
	"github.com/mandibook/mandibook-backend/internal/ledger"
	"github.com/mandibook/mandibook-backend/internal/orders"
	"github.com/mandibook/mandibook-backend/internal/products"
	"github.com/mandibook/mandibook-backend/internal/rates"
	"github.com/mandibook/mandibook-backend/pkg/config"
	"github.com/mandibook/mandibook-backend/pkg/db"
	"github.com/mandibook/mandibook-backend/pkg/enums"
	"github.com/mandibook/mandibook-backend/pkg/logger"
	"github.com/mandibook/mandibook-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbPing db.Pinger,
	redisPing redis.Pinger,
	customersSvc customers.Service,
	productsSvc products.Service,
	ratesSvc rates.Service,
	ordersSvc orders.Service,
	ledgerSvc ledger.Service,
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
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbPing, redisPing))
	})

	adminOnly := middleware.RequireRole(string(enums.RoleAdmin), logg)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))

		r.Route("/customers", func(r chi.Router) {
			r.Get("/{customerId}", controllers.GetCustomer(customersSvc, logg))
		})

		r.Route("/products", func(r chi.Router) {
			r.Get("/", controllers.ListProducts(productsSvc, logg))
		})

		r.Route("/rates", func(r chi.Router) {
			r.Post("/", controllers.RecordRates(ratesSvc, logg))
			r.Get("/{productId}", controllers.CurrentRate(ratesSvc, logg))
			r.Get("/{productId}/history", controllers.RateHistory(ratesSvc, logg))
		})

		r.Route("/orders", func(r chi.Router) {
			r.Post("/", controllers.CreateOrder(ordersSvc, logg))
			r.Get("/", controllers.ListOrders(ordersSvc, logg))
			r.Get("/{orderId}", controllers.GetOrder(ordersSvc, logg))
			r.Put("/{orderId}", controllers.UpdateOrderPrices(ordersSvc, logg))
			r.Put("/{orderId}/status", controllers.UpdateOrderStatus(ordersSvc, logg))
			r.Put("/{orderId}/payment", controllers.RecordOrderPayment(ordersSvc, logg))
			r.Put("/{orderId}/packing", controllers.SetPacking(ordersSvc, logg))
			r.Put("/{orderId}/batch", controllers.AssignBatch(ordersSvc, logg))
			r.Put("/{orderId}/lines/{lineId}/quantity", controllers.ReducePackedQuantity(ordersSvc, logg))
			r.With(adminOnly).Post("/{orderId}/cancel", controllers.CancelOrder(ordersSvc, logg))
			r.Post("/batches/{batchId}/advance", controllers.AdvanceBatch(ordersSvc, logg))
		})

		r.Route("/ledger", func(r chi.Router) {
			r.Post("/payment", controllers.RecordLedgerPayment(ledgerSvc, logg))
			r.With(adminOnly).Post("/adjustment", controllers.RecordLedgerAdjustment(ledgerSvc, logg))
			r.Get("/statement/{customerId}", controllers.LedgerStatement(ledgerSvc, logg))
			r.Get("/{customerId}", controllers.LedgerHistory(ledgerSvc, logg))
		})
	})

	return r
}
