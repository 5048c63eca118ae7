package httpx

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/ariefcatur/go-shop-api/internal/auth"
	"github.com/ariefcatur/go-shop-api/internal/cart"
	"github.com/ariefcatur/go-shop-api/internal/catalog"
	"github.com/ariefcatur/go-shop-api/internal/metrics"
	"github.com/ariefcatur/go-shop-api/internal/orders"
	"github.com/ariefcatur/go-shop-api/internal/payment"
	"github.com/ariefcatur/go-shop-api/internal/users"
)

// Deps are the services the HTTP API is built on.
type Deps struct {
	Auth    *auth.Service
	Users   *users.Service
	Catalog *catalog.Service
	Carts   *cart.Service
	Orders  *orders.Service
	// Sandbox, when set, serves the pages behind sandbox invoice URLs.
	Sandbox *payment.Sandbox

	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer
	Log      *zap.Logger
	Timeout  time.Duration
}

func NewRouter(d Deps) *chi.Mux {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	if d.Timeout <= 0 {
		d.Timeout = 15 * time.Second
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, instrument(d.Log, d.Metrics), middleware.Recoverer)
	r.Use(middleware.Timeout(d.Timeout))
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if d.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))
	}

	requireAuth := authenticate(d.Auth)
	(&AuthHandler{Auth: d.Auth}).Register(r, requireAuth)
	(&CatalogHandler{Catalog: d.Catalog}).Register(r)

	r.Group(func(r chi.Router) {
		r.Use(requireAuth)
		customer := requireRole(users.RoleCustomer)
		r.Group(func(r chi.Router) {
			r.Use(customer)
			(&CartHandler{Carts: d.Carts}).Register(r)
		})
		(&OrdersHandler{Orders: d.Orders}).Register(r, customer)
	})

	r.Route("/admin", func(r chi.Router) {
		r.Use(requireAuth, requireRole(users.RoleAdmin))
		(&AdminHandler{Catalog: d.Catalog, Users: d.Users, Orders: d.Orders}).Register(r)
	})

	if d.Sandbox != nil {
		r.Route("/sandbox", (&SandboxHandler{Gateway: d.Sandbox}).Register)
	}
	return r
}
