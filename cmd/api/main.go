package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"carbooking/internal/config"
	"carbooking/internal/database"
	"carbooking/internal/domain"
	"carbooking/internal/middleware"
	"carbooking/internal/modules/auth"
	"carbooking/internal/modules/booking"
	"carbooking/internal/modules/catalog"
	"carbooking/internal/modules/commit"
	"carbooking/internal/modules/reconcile"
	"carbooking/internal/modules/staging"
	jwtsvc "carbooking/internal/pkg/jwt"
	"carbooking/internal/pkg/logger"
	"carbooking/internal/repository"
	"carbooking/internal/stagingkv"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	lg, err := logger.New(cfg.AppEnv, cfg.LogLevel)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = lg.Sync() }()

	if err := run(cfg, lg); err != nil {
		lg.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, lg *zap.Logger) error {
	db, err := database.ConnectWithLogger(cfg.DatabaseURL, lg)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	if err := repository.Migrate(db); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	kv, closeKV, err := stagingkv.Open(cfg, db, lg)
	if err != nil {
		return err
	}
	defer closeKV()

	clientRepo := repository.NewClientRepository(db)
	vehicleRepo := repository.NewVehicleRepository(db)
	extraRepo := repository.NewExtraRepository(db)
	reservationRepo := repository.NewReservationRepository(db)

	j := jwtsvc.New(cfg.JWTSecret, cfg.AuthTokenTTL, cfg.SessionTokenTTL)
	store := staging.NewStore(kv, lg.Named("staging"))

	authService := auth.NewService(clientRepo, j)
	authHandler := auth.NewHandler(authService)

	catalogService := catalog.NewService(vehicleRepo, extraRepo)
	catalogHandler := catalog.NewHandler(catalogService)

	coordinator := commit.NewCoordinator(reservationRepo, store, lg.Named("commit"))

	hub := booking.NewHub()
	bookingService := booking.NewService(booking.Deps{
		Staging:         store,
		Reconciler:      reconcile.New(defaultTable(cfg), lg.Named("reconcile")),
		Vehicles:        catalogService,
		Extras:          catalogService,
		Profiles:        authService,
		Auth:            authService,
		Committer:       coordinator,
		Tokens:          j,
		Publisher:       hub,
		RefreshInterval: cfg.ProfileRefreshInterval,
		Logger:          lg.Named("booking"),
	})
	bookingHandler := booking.NewHandler(bookingService, hub, lg.Named("booking"))

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(middleware.Recovery(lg), middleware.RequestLogger(lg), middleware.CORS(cfg.CORSAllowedOrigins))

	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := r.Group("/api/v1")
	v1.Use(middleware.RateLimit(cfg.RateLimitPerMinute, lg))
	{
		authHandler.RegisterPublicRoutes(v1)
		catalogHandler.RegisterRoutes(v1)
		bookingHandler.RegisterPublicRoutes(v1)

		protected := v1.Group("/")
		protected.Use(middleware.JWTAuth(j))
		{
			authHandler.RegisterProtectedRoutes(protected)
			bookingHandler.RegisterProtectedRoutes(protected)
		}
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		lg.Info("listening", zap.String("addr", cfg.HTTPAddr), zap.String("staging", cfg.StagingBackend))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	lg.Info("shutting down")
	bookingService.Shutdown()
	hub.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func defaultTable(cfg *config.Config) domain.DefaultTable {
	d := domain.DefaultDefaults()
	if cfg.DefaultVehiclePricePerDay > 0 {
		d.VehiclePricePerDay = cfg.DefaultVehiclePricePerDay
	}
	if cfg.DefaultLocation != "" {
		d.PickupLocation = cfg.DefaultLocation
		d.ReturnLocation = cfg.DefaultLocation
	}
	return d
}
