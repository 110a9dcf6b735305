package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"

	"github.com/nextbite-hq/nextbite-backend/api/routes"
	"github.com/nextbite-hq/nextbite-backend/internal/auth"
	"github.com/nextbite-hq/nextbite-backend/internal/cart"
	"github.com/nextbite-hq/nextbite-backend/internal/checkout"
	"github.com/nextbite-hq/nextbite-backend/internal/paymentmethods"
	"github.com/nextbite-hq/nextbite-backend/internal/restaurants"
	"github.com/nextbite-hq/nextbite-backend/internal/users"
	"github.com/nextbite-hq/nextbite-backend/pkg/config"
	"github.com/nextbite-hq/nextbite-backend/pkg/db"
	"github.com/nextbite-hq/nextbite-backend/pkg/email"
	"github.com/nextbite-hq/nextbite-backend/pkg/logger"
	"github.com/nextbite-hq/nextbite-backend/pkg/metrics"
	"github.com/nextbite-hq/nextbite-backend/pkg/migrate"
	"github.com/nextbite-hq/nextbite-backend/pkg/redis"
	"github.com/nextbite-hq/nextbite-backend/pkg/square"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, cfg.FeatureFlags, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		closeAll(logg, dbClient.Close)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		closeAll(logg, dbClient.Close)
		os.Exit(1)
	}

	squareClient, err := square.NewClient(context.Background(), cfg.Square, logg)
	if err != nil {
		if errors.Is(err, square.ErrAccessTokenRequired) || errors.Is(err, square.ErrLocationIDRequired) {
			logg.Warn(context.Background(), "square credentials missing, card checkout disabled")
		} else {
			logg.Error(context.Background(), "failed to bootstrap square", err)
			closeAll(logg, dbClient.Close, redisClient.Close)
			os.Exit(1)
		}
	}

	mailSender := email.NewSMTPSender(cfg.SMTP, logg)
	checkoutMetrics := metrics.NewCheckoutMetrics(prometheus.DefaultRegisterer)

	usersRepo := users.NewRepository(dbClient.DB())
	restaurantsRepo := restaurants.NewRepository(dbClient.DB())
	cartRepo := cart.NewRepository(dbClient.DB())
	checkoutRepo := checkout.NewRepository(dbClient.DB())
	methodsRepo := paymentmethods.NewRepository(dbClient.DB())

	paymentMethodsService, err := paymentmethods.NewService(paymentmethods.ServiceParams{
		MethodRepo:        methodsRepo,
		UserLoader:        usersRepo,
		TransactionRunner: dbClient,
	})
	if err != nil {
		fatal(logg, "failed to create payment methods service", err, dbClient.Close, redisClient.Close)
	}

	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:          usersRepo,
		CashProvisioner:   paymentMethodsService,
		TransactionRunner: dbClient,
		TokenRevoker:      redisClient,
		EmailSender:       mailSender,
		JWTConfig:         cfg.JWT,
		PasswordConfig:    cfg.Password,
		AppConfig:         cfg.App,
	})
	if err != nil {
		fatal(logg, "failed to create auth service", err, dbClient.Close, redisClient.Close)
	}

	usersService, err := users.NewService(users.ServiceParams{
		UserRepo:          usersRepo,
		CashProvisioner:   paymentMethodsService,
		TransactionRunner: dbClient,
		EmailSender:       mailSender,
		PasswordConfig:    cfg.Password,
		AppConfig:         cfg.App,
	})
	if err != nil {
		fatal(logg, "failed to create users service", err, dbClient.Close, redisClient.Close)
	}

	restaurantsService, err := restaurants.NewService(restaurants.ServiceParams{
		RestaurantRepo:    restaurantsRepo,
		TransactionRunner: dbClient,
	})
	if err != nil {
		fatal(logg, "failed to create restaurants service", err, dbClient.Close, redisClient.Close)
	}

	cartService, err := cart.NewService(cart.ServiceParams{
		CartRepo:          cartRepo,
		RestaurantLoader:  restaurantsRepo,
		TransactionRunner: dbClient,
	})
	if err != nil {
		fatal(logg, "failed to create cart service", err, dbClient.Close, redisClient.Close)
	}

	var checkoutService checkout.Service
	if squareClient != nil {
		checkoutService, err = checkout.NewService(dbClient, checkoutRepo, squareClient, checkoutMetrics)
	} else {
		checkoutService, err = checkout.NewService(dbClient, checkoutRepo, nil, checkoutMetrics)
	}
	if err != nil {
		fatal(logg, "failed to create checkout service", err, dbClient.Close, redisClient.Close)
	}

	router := routes.NewRouter(routes.RouterParams{
		Config:    cfg,
		Logger:    logg,
		DB:        dbClient,
		Redis:     redisClient,
		UsersRepo: usersRepo,

		AuthService:           authService,
		UsersService:          usersService,
		RestaurantsService:    restaurantsService,
		CartService:           cartService,
		CheckoutService:       checkoutService,
		PaymentMethodsService: paymentMethodsService,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	stopCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			closeAll(logg, dbClient.Close, redisClient.Close)
			os.Exit(1)
		}
	case <-stopCtx.Done():
		logg.Info(ctx, "shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "server shutdown failed", err)
		}
	}

	closeAll(logg, dbClient.Close, redisClient.Close)
	logg.Info(ctx, "api server stopped")
}

func fatal(logg *logger.Logger, msg string, err error, closers ...func() error) {
	logg.Error(context.Background(), msg, err)
	closeAll(logg, closers...)
	os.Exit(1)
}

func closeAll(logg *logger.Logger, closers ...func() error) {
	var errs error
	for _, closeFn := range closers {
		errs = multierr.Append(errs, closeFn())
	}
	if errs != nil {
		logg.Error(context.Background(), "error closing resources", errs)
	}
}
