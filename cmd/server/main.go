package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/paklift/service-ride/internal/application"
	"github.com/paklift/service-ride/internal/config"
	rideDomain "github.com/paklift/service-ride/internal/domain/ride"
	rideEvents "github.com/paklift/service-ride/internal/events"
	"github.com/paklift/service-ride/internal/geocoding"
	"github.com/paklift/service-ride/internal/handler"
	"github.com/paklift/service-ride/internal/platform/auth"
	"github.com/paklift/service-ride/internal/platform/database"
	"github.com/paklift/service-ride/internal/platform/health"
	"github.com/paklift/service-ride/internal/platform/kafka"
	"github.com/paklift/service-ride/internal/platform/logger"
	"github.com/paklift/service-ride/internal/platform/middleware"
	"github.com/paklift/service-ride/internal/repository"
)

const serviceName = "service-ride"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.NewNamed(cfg.AppEnv, serviceName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	log.Info("starting "+serviceName,
		zap.String("port", cfg.Port),
	)

	// Connect to database
	dbConfig := database.PostgresConfig{
		Host:     cfg.DBConfig.Host,
		Port:     cfg.DBConfig.Port,
		User:     cfg.DBConfig.User,
		Password: cfg.DBConfig.Password,
		DBName:   cfg.DBConfig.DBName,
		SSLMode:  cfg.DBConfig.SSLMode,
	}
	db, err := database.Connect(dbConfig, log)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}

	// Run database migrations
	if cfg.AppEnv == "development" {
		if err := db.AutoMigrate(
			&repository.RideModel{},
			&repository.RouteModel{},
			&repository.DriverModel{},
			&repository.VehicleModel{},
		); err != nil {
			log.Fatal("failed to run auto-migration", zap.Error(err))
		}
		log.Info("database migration completed (dev auto-migrate)")
	} else {
		if err := database.RunMigrations(dbConfig.DatabaseURL(), "migrations", log); err != nil {
			log.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	jwtManager := auth.NewJWTManager(cfg.JWTConfig.Secret, cfg.JWTConfig.AccessTTL)

	kafkaProducer := kafka.NewProducer(cfg.KafkaConfig.Brokers, log)
	defer func() { _ = kafkaProducer.Close() }()

	// Geocoder, with the Redis cache in front when configured
	var geocodeCache geocoding.Cache
	if cfg.RedisConfig.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisConfig.Addr,
			Password: cfg.RedisConfig.Password,
			DB:       cfg.RedisConfig.DB,
		})
		defer func() { _ = rdb.Close() }()
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			log.Warn("redis unavailable, geocode cache disabled", zap.Error(err))
		} else {
			geocodeCache = geocoding.NewRedisCache(rdb, cfg.GeocoderConfig.CacheTTL)
		}
	}
	geocoder := geocoding.NewClient(
		cfg.GeocoderConfig.BaseURL,
		cfg.GeocoderConfig.APIKey,
		&http.Client{Timeout: cfg.GeocoderConfig.Timeout},
		geocodeCache,
		log,
	)

	// Initialize repositories
	rideRepo := repository.NewGormRideRepository(db)
	routeRepo := repository.NewGormRouteRepository(db)
	directory := repository.NewGormDriverDirectory(db)

	// Initialize application services
	rideService := application.NewRideService(
		rideRepo,
		routeRepo,
		geocoder,
		rideDomain.NewFuelCostFareStrategy(cfg.RideConfig.FarePerKm),
		kafkaProducer,
		log,
		application.RideServiceOptions{GeocodeTimeout: cfg.GeocoderConfig.Timeout},
	)
	routeService := application.NewRouteService(
		routeRepo,
		directory,
		geocoder,
		kafkaProducer,
		log,
		cfg.GeocoderConfig.Timeout,
	)
	matchingService := application.NewMatchingService(routeRepo, log)

	// Start the driver location consumer
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	locationConsumer := rideEvents.NewLocationEventConsumer(
		cfg.KafkaConfig.Brokers,
		cfg.KafkaConfig.GroupPrefix+serviceName,
		rideService,
		log,
	)
	defer func() { _ = locationConsumer.Close() }()

	go func() {
		log.Info("starting location event consumer")
		if err := locationConsumer.Start(ctx); err != nil && err != context.Canceled {
			log.Error("location event consumer error", zap.Error(err))
		}
	}()

	// Setup Gin router
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	router.Use(middleware.RecoveryMiddleware(log))
	router.Use(middleware.LoggerMiddleware(log))
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.CORSMiddleware())
	router.Use(middleware.SecurityHeadersMiddleware())
	router.Use(middleware.PrometheusMiddleware())

	health.NewHandler(db, serviceName).RegisterRoutes(router)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	handler.NewRideHandler(rideService).RegisterRoutes(&router.RouterGroup, jwtManager)
	handler.NewRouteHandler(routeService, rideService, matchingService).RegisterRoutes(&router.RouterGroup, jwtManager)
	handler.NewAdminRideHandler(rideService).RegisterRoutes(&router.RouterGroup, jwtManager)

	srv := &http.Server{
		Addr:         cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("HTTP server starting", zap.String("addr", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down " + serviceName + "...")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server forced shutdown", zap.Error(err))
	}

	log.Info(serviceName + " stopped")
}
