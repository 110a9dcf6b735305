package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nextbite-hq/nextbite-backend/api/controllers"
	"github.com/nextbite-hq/nextbite-backend/api/middleware"
	authsvc "github.com/nextbite-hq/nextbite-backend/internal/auth"
	cartsvc "github.com/nextbite-hq/nextbite-backend/internal/cart"
	checkoutsvc "github.com/nextbite-hq/nextbite-backend/internal/checkout"
	"github.com/nextbite-hq/nextbite-backend/internal/paymentmethods"
	"github.com/nextbite-hq/nextbite-backend/internal/restaurants"
	userssvc "github.com/nextbite-hq/nextbite-backend/internal/users"
	"github.com/nextbite-hq/nextbite-backend/pkg/config"
	"github.com/nextbite-hq/nextbite-backend/pkg/logger"
	pkgredis "github.com/nextbite-hq/nextbite-backend/pkg/redis"
)

// RouterParams bundles everything the HTTP surface depends on.
type RouterParams struct {
	Config    *config.Config
	Logger    *logger.Logger
	DB        controllers.Pinger
	Redis     *pkgredis.Client
	UsersRepo *userssvc.Repository

	AuthService           authsvc.Service
	UsersService          userssvc.Service
	RestaurantsService    restaurants.Service
	CartService           cartsvc.Service
	CheckoutService       checkoutsvc.Service
	PaymentMethodsService paymentmethods.Service
}

func NewRouter(p RouterParams) http.Handler {
	cfg := p.Config
	logg := p.Logger

	// A typed nil *redis.Client must not slip into the interfaces below.
	var (
		idemStore   pkgredis.IdempotencyStore
		revoker     middleware.RevocationChecker
		cachePinger controllers.Pinger
	)
	if p.Redis != nil {
		idemStore = p.Redis
		revoker = p.Redis
		cachePinger = p.Redis
	}

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, p.DB, cachePinger, logg))
	})

	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.Idempotency(idemStore, logg)).Post("/register", controllers.AuthRegister(p.AuthService, logg))
		r.Post("/login", controllers.AuthLogin(p.AuthService, logg))
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, revoker, p.UsersRepo, logg))
		r.Use(middleware.Idempotency(idemStore, logg))

		r.Route("/v1/auth", func(r chi.Router) {
			r.Post("/logout", controllers.AuthLogout(p.AuthService, logg))
			r.Get("/me", controllers.AuthMe(logg))
		})

		r.Route("/v1/users", func(r chi.Router) {
			r.Get("/", controllers.UsersList(p.UsersService, logg))
			r.Post("/", controllers.UsersCreate(p.UsersService, logg))
			r.Get("/{userID}", controllers.UsersGet(p.UsersService, logg))
			r.Patch("/{userID}/role", controllers.UsersUpdateRole(p.UsersService, logg))
			r.Patch("/{userID}/active", controllers.UsersSetActive(p.UsersService, logg))
			r.Delete("/{userID}", controllers.UsersDelete(p.UsersService, logg))
		})

		r.Route("/v1/restaurants", func(r chi.Router) {
			r.Get("/", controllers.RestaurantsList(p.RestaurantsService, logg))
			r.Post("/", controllers.RestaurantsCreate(p.RestaurantsService, logg))
			r.Get("/{restaurantID}", controllers.RestaurantsGet(p.RestaurantsService, logg))
			r.Delete("/{restaurantID}", controllers.RestaurantsDelete(p.RestaurantsService, logg))
			r.Get("/{restaurantID}/menu", controllers.RestaurantsMenu(p.RestaurantsService, logg))
			r.Post("/{restaurantID}/menu", controllers.RestaurantsCreateMenuItem(p.RestaurantsService, logg))
		})

		r.Route("/v1/orders", func(r chi.Router) {
			r.Get("/", controllers.OrdersList(p.CartService, logg))
			r.Post("/", controllers.OrdersOpen(p.CartService, logg))
			r.Get("/all-carts", controllers.OrdersListCarts(p.CartService, logg))
			r.Get("/{orderID}", controllers.OrdersGet(p.CartService, logg))
			r.Delete("/{orderID}", controllers.OrdersCancel(p.CheckoutService, logg))
			r.Post("/{orderID}/items", controllers.OrdersAddItem(p.CartService, logg))
			r.Delete("/{orderID}/items/{itemID}", controllers.OrdersRemoveItem(p.CartService, logg))
			r.Post("/{orderID}/checkout", controllers.OrdersCheckout(p.CheckoutService, logg))
		})

		r.Route("/v1/payment-methods", func(r chi.Router) {
			r.Get("/", controllers.PaymentMethodsList(p.PaymentMethodsService, logg))
			r.Post("/", controllers.PaymentMethodsCreate(p.PaymentMethodsService, logg))
			r.Put("/{methodID}", controllers.PaymentMethodsUpdate(p.PaymentMethodsService, logg))
			r.Delete("/{methodID}", controllers.PaymentMethodsDelete(p.PaymentMethodsService, logg))
		})
	})

	return r
}
