package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sandroescobar/lovemenow-sub001/api/controllers"
	webhookcontrollers "github.com/sandroescobar/lovemenow-sub001/api/controllers/webhooks"
	"github.com/sandroescobar/lovemenow-sub001/api/middleware"
	cartsvc "github.com/sandroescobar/lovemenow-sub001/internal/cart"
	checkoutsvc "github.com/sandroescobar/lovemenow-sub001/internal/checkout"
	ordersvc "github.com/sandroescobar/lovemenow-sub001/internal/orders"
	product "github.com/sandroescobar/lovemenow-sub001/internal/products"
	wishlistsvc "github.com/sandroescobar/lovemenow-sub001/internal/wishlist"
	"github.com/sandroescobar/lovemenow-sub001/pkg/config"
	"github.com/sandroescobar/lovemenow-sub001/pkg/logger"
	pkgstripe "github.com/sandroescobar/lovemenow-sub001/pkg/stripe"
)

type pinger interface {
	Ping(ctx context.Context) error
}

// Deps bundles everything the router wires into handlers.
type Deps struct {
	Config   *config.Config
	Logger   *logger.Logger
	DB       pinger
	Redis    pinger
	Registry *prometheus.Registry

	Products product.Service
	Cart     cartsvc.Service
	Wishlist wishlistsvc.Service
	Checkout checkoutsvc.Service
	Orders   ordersvc.Service

	StripeClient *pkgstripe.Client
	WebhookGuard *webhookcontrollers.EventGuard
}

func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()
	logg := deps.Logger

	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Get("/health", controllers.Health(deps.DB, deps.Redis, logg))
	if deps.Registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}))
	}

	// Webhooks authenticate by signature, not by session cookie.
	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/stripe", webhookcontrollers.Stripe(deps.Orders, deps.StripeClient, deps.WebhookGuard, logg))
	})

	secureCookies := deps.Config != nil && deps.Config.App.IsProd()

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Session(logg, secureCookies))

		r.Route("/products", func(r chi.Router) {
			r.Get("/", controllers.ListProducts(deps.Products, logg))
			r.Get("/{slug}", controllers.GetProduct(deps.Products, logg))
		})

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", controllers.GetCart(deps.Cart, logg))
			r.Post("/items", controllers.AddCartItem(deps.Cart, logg))
			r.Put("/items/{productID}", controllers.UpdateCartItem(deps.Cart, logg))
			r.Delete("/items/{productID}", controllers.RemoveCartItem(deps.Cart, logg))
			r.Delete("/", controllers.ClearCart(deps.Cart, logg))
		})

		r.Route("/wishlist", func(r chi.Router) {
			r.Get("/", controllers.GetWishlist(deps.Wishlist, logg))
			r.Post("/items", controllers.AddWishlistItem(deps.Wishlist, logg))
			r.Delete("/items/{productID}", controllers.RemoveWishlistItem(deps.Wishlist, logg))
		})

		r.Route("/checkout", func(r chi.Router) {
			r.Post("/delivery-quote", controllers.CreateDeliveryQuote(deps.Checkout, logg))
			r.Post("/discount", controllers.ApplyDiscount(deps.Checkout, logg))
			r.Delete("/discount", controllers.RemoveDiscount(deps.Checkout, logg))
			r.Post("/payment-intent", controllers.CreatePaymentIntent(deps.Checkout, logg))
			r.Post("/confirm", controllers.ConfirmOrder(deps.Orders, logg))
		})

		r.Route("/orders", func(r chi.Router) {
			r.Get("/{orderNumber}", controllers.GetOrder(deps.Orders, logg))
		})
	})

	return r
}
