package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/basketwise/basketwise-backend/api/controllers"
	cartcontrollers "github.com/basketwise/basketwise-backend/api/controllers/cart"
	"github.com/basketwise/basketwise-backend/api/middleware"
	"github.com/basketwise/basketwise-backend/internal/cart"
	products "github.com/basketwise/basketwise-backend/internal/products"
	"github.com/basketwise/basketwise-backend/pkg/config"
	"github.com/basketwise/basketwise-backend/pkg/logger"
)

// Dependencies are the collaborators the HTTP surface is built from. Search
// is optional and only reported by the readiness probe; a nil RateLimiter
// disables throttling.
type Dependencies struct {
	DB          controllers.Pinger
	Redis       controllers.Pinger
	Search      controllers.Pinger
	RateLimiter middleware.RateLimitStore
	Gatherer    prometheus.Gatherer

	Products     products.Service
	Cart         cart.Service
	Imports      controllers.BranchImporter
	BranchPrices controllers.BranchPriceLinker
}

func NewRouter(cfg *config.Config, logg *logger.Logger, deps Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.AllowedOrigins()),
	)

	productLimit := middleware.RateLimit(
		middleware.NewRateLimitPolicy("products", cfg.RateLimit.Window, cfg.RateLimit.Limit), deps.RateLimiter, logg)
	cartLimit := middleware.RateLimit(
		middleware.NewRateLimitPolicy("cart", cfg.RateLimit.Window, cfg.RateLimit.Limit), deps.RateLimiter, logg)

	readiness := []controllers.Dependency{
		{Name: "db", Pinger: deps.DB},
		{Name: "redis", Pinger: deps.Redis},
		{Name: "search", Pinger: deps.Search, Optional: true},
	}
	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, readiness...))
	})

	if deps.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/public", func(r chi.Router) {
		r.Get("/ping", controllers.PublicPing())
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/products", func(r chi.Router) {
			r.With(productLimit).Post("/", controllers.ResolveProduct(deps.Products, logg))
			r.Get("/", controllers.ListProducts(deps.Products, logg))
			r.Get("/search", controllers.SearchProducts(deps.Products, logg))
			r.Get("/{productID}", controllers.GetProduct(deps.Products, logg))
		})

		r.With(cartLimit).Post("/cart/calculate", cartcontrollers.CartCalculate(deps.Cart, logg))

		r.Post("/vendors/{vendorID}/branches/{branchID}/imports", controllers.ImportBranchPrices(deps.Imports, logg))

		r.Route("/branch-prices/{branchPriceID}", func(r chi.Router) {
			r.Patch("/link", controllers.RelinkBranchPrice(deps.BranchPrices, logg))
			r.Post("/confirm", controllers.ConfirmBranchPrice(deps.BranchPrices, logg))
		})
	})

	return r
}
