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
	"github.com/joho/godotenv"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"godispatch/internal/config"
	"godispatch/internal/handlers"
	"godispatch/internal/middleware"
	"godispatch/internal/models"
	"godispatch/internal/repositories/interfaces"
	repos "godispatch/internal/repositories/mongodb"
	"godispatch/internal/services"
	"godispatch/pkg/cache"
	"godispatch/pkg/database"
	"godispatch/pkg/logger"
	"godispatch/pkg/maps"
	"godispatch/pkg/payment"
	"godispatch/pkg/push"
	"godispatch/pkg/realtime"
	"godispatch/pkg/sms"
	"godispatch/routes"
)

func main() {
	if err := godotenv.Load(); err != nil {
		fmt.Println("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.NewLogger(&logger.Config{
		Level:  cfg.App.LogLevel,
		Format: cfg.App.LogFormat,
		Output: "stdout",
	})
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	mongodb, err := database.NewMongoDB(&database.Config{
		URI:            cfg.Database.URI,
		Database:       cfg.Database.Database,
		MaxPoolSize:    cfg.Database.MaxPoolSize,
		MinPoolSize:    cfg.Database.MinPoolSize,
		ConnectTimeout: cfg.Database.ConnectTimeout,
		SocketTimeout:  cfg.Database.SocketTimeout,
	})
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to MongoDB")
	}
	defer mongodb.Close()

	indexCtx, cancelIndexes := context.WithTimeout(context.Background(), 30*time.Second)
	if err := database.EnsureIndexes(indexCtx, mongodb.Database); err != nil {
		log.WithError(err).Fatal("Failed to ensure indexes")
	}
	cancelIndexes()

	redisCache, err := cache.NewRedisCache(&cache.RedisConfig{
		Host:         cfg.Redis.Host,
		Port:         cfg.Redis.Port,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
		DialTimeout:  cfg.Redis.DialTimeout,
		ReadTimeout:  cfg.Redis.ReadTimeout,
		WriteTimeout: cfg.Redis.WriteTimeout,
	})
	if err != nil {
		log.WithError(err).Warn("Redis unavailable, running without cache and cross-instance fan-out")
		redisCache = nil
	}

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	hub := realtime.NewHub()
	go hub.Run()

	var publisher realtime.Publisher = hub
	if redisCache != nil {
		bridge := realtime.NewRedisBridge(hub, redisCache)
		go bridge.Run(rootCtx)
		publisher = bridge
	}

	// Repositories
	userRepo := repos.NewUserRepository(mongodb.Database)
	driverRepo := repos.NewDriverRepository(mongodb.Database)
	jobRepo := repos.NewJobRepository(mongodb.Database)
	subscriptionRepo := repos.NewSubscriptionRepository(mongodb.Database)
	planRepo := repos.NewPlanRepository(mongodb.Database)
	catalogRepo := repos.NewCatalogRepository(mongodb.Database)
	walletRepo := repos.NewWalletRepository(mongodb.Database, cfg.Payment.Currency)
	promoRepo := repos.NewPromoRepository(mongodb.Database)
	chatRepo := repos.NewChatRepository(mongodb.Database)

	// Providers
	notifier := services.NewNotificationService(publisher, buildSMSProvider(cfg, log), buildPushProvider(cfg, log), log)
	gateway := buildPaymentGateway(cfg, log)
	estimator := buildRouteEstimator(cfg, log)

	// Services
	pricingService := services.NewPricingService(cfg.Pricing)
	catalogService := services.NewCatalogService(catalogRepo, redisCache, log)
	eligibilityService := services.NewEligibilityService(subscriptionRepo, planRepo, redisCache, log)
	matcherService := services.NewMatcherService(jobRepo, driverRepo, catalogService, notifier, log)
	jobService := services.NewJobService(services.JobServiceDeps{
		Jobs:          jobRepo,
		Drivers:       driverRepo,
		Users:         userRepo,
		Promos:        promoRepo,
		Chats:         chatRepo,
		Subscriptions: subscriptionRepo,
		Pricing:       pricingService,
		Catalog:       catalogService,
		Eligibility:   eligibilityService,
		Matcher:       matcherService,
		Routes:        estimator,
		Notifier:      notifier,
		Logger:        log,
	})
	subscriptionService := services.NewSubscriptionService(services.SubscriptionServiceDeps{
		Subscriptions: subscriptionRepo,
		Plans:         planRepo,
		Drivers:       driverRepo,
		Wallets:       walletRepo,
		Gateway:       gateway,
		Tx:            mongodb,
		Eligibility:   eligibilityService,
		Notifier:      notifier,
		Logger:        log,
	})
	driverService := services.NewDriverService(driverRepo, userRepo, jobRepo, eligibilityService, notifier, log)
	walletService := services.NewWalletService(walletRepo, gateway, log)
	adminService := services.NewAdminService(userRepo, jobRepo, promoRepo, log)
	authService := services.NewAuthService(userRepo, cfg.Security.JWTSecret, cfg.Security.JWTAccessTokenTTL, log)

	go subscriptionService.RunExpirySweep(rootCtx)

	realtimeHandler := realtime.NewHandler(hub, driverRooms(driverRepo, catalogService))

	if cfg.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(middleware.RequestIDMiddleware())
	engine.Use(middleware.RequestLogger(log))
	engine.Use(middleware.CORSMiddleware(cfg.Security.CORSAllowedOrigins))

	routes.SetupRoutes(engine, routes.Handlers{
		Auth:          handlers.NewAuthHandler(authService),
		Jobs:          handlers.NewJobHandler(jobService, matcherService, driverService),
		Drivers:       handlers.NewDriverHandler(driverService),
		Subscriptions: handlers.NewSubscriptionHandler(subscriptionService),
		Wallet:        handlers.NewWalletHandler(walletService),
		Admin:         handlers.NewAdminHandler(adminService, driverService, catalogService, subscriptionService),
		Realtime:      realtimeHandler,
	}, cfg.Security.JWTSecret)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.App.Host, cfg.App.Port),
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.WithField("addr", server.Addr).Info("Server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("Server failed")
		}
	}()

	<-rootCtx.Done()
	log.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Forced shutdown")
	}
	log.Info("Server stopped")
}

// driverRooms resolves the broadcast rooms a websocket client joins: the role
// room, and for drivers the category rooms their vehicle is eligible for.
func driverRooms(drivers interfaces.DriverRepository, catalog *services.CatalogService) realtime.RoomResolver {
	return func(ctx context.Context, userID primitive.ObjectID, role string) []string {
		rooms := []string{realtime.RoleRoom(role)}
		if role != string(models.RoleDriver) {
			return rooms
		}

		driver, err := drivers.GetByUserID(ctx, userID)
		if err != nil {
			return rooms
		}
		for _, category := range []models.JobCategory{models.CategoryRide, models.CategoryParcel} {
			eligible, err := catalog.IsEligible(ctx, category, driver.VehicleType)
			if err != nil || eligible {
				rooms = append(rooms, realtime.DriverCategoryRoom(string(category)))
			}
		}
		return rooms
	}
}

func buildSMSProvider(cfg *config.Config, log *logger.Logger) sms.Provider {
	switch cfg.SMS.Provider {
	case "sns":
		provider, err := sms.NewSNSProvider(cfg.SMS.AWS.Region)
		if err != nil {
			log.WithError(err).Warn("SNS unavailable, SMS disabled")
			return nil
		}
		return provider
	case "twilio":
		if cfg.SMS.Twilio.AccountSID == "" {
			log.Warn("Twilio not configured, SMS disabled")
			return nil
		}
		return sms.NewTwilioProvider(cfg.SMS.Twilio.AccountSID, cfg.SMS.Twilio.AuthToken, cfg.SMS.Twilio.FromNumber)
	default:
		log.WithField("provider", cfg.SMS.Provider).Warn("Unknown SMS provider, SMS disabled")
		return nil
	}
}

func buildPushProvider(cfg *config.Config, log *logger.Logger) push.Provider {
	if !cfg.Push.NotificationsEnable || cfg.Push.FCMCredentialsFile == "" {
		log.Warn("Push notifications disabled")
		return nil
	}
	provider, err := push.NewFCMProvider(cfg.Push.FCMCredentialsFile)
	if err != nil {
		log.WithError(err).Warn("FCM unavailable, push disabled")
		return nil
	}
	return provider
}

func buildPaymentGateway(cfg *config.Config, log *logger.Logger) payment.Gateway {
	switch cfg.Payment.Provider {
	case "razorpay":
		return payment.NewRazorpayGateway(cfg.Payment.Razorpay.KeyID, cfg.Payment.Razorpay.KeySecret)
	default:
		if cfg.Payment.Stripe.SecretKey == "" {
			log.Warn("Stripe not configured, card payments will fail")
		}
		return payment.NewStripeGateway(cfg.Payment.Stripe.SecretKey, cfg.Payment.Stripe.WebhookSecret)
	}
}

func buildRouteEstimator(cfg *config.Config, log *logger.Logger) maps.RouteEstimator {
	if cfg.Maps.Provider == "google" && cfg.Maps.APIKey != "" {
		estimator, err := maps.NewGoogleMapsEstimator(cfg.Maps.APIKey)
		if err == nil {
			return estimator
		}
		log.WithError(err).Warn("Google Maps unavailable, falling back to haversine estimates")
	}
	return maps.NewHaversineEstimator()
}
