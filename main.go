package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/yeremiapane/branch-ordering/config"
	"github.com/yeremiapane/branch-ordering/database"
	"github.com/yeremiapane/branch-ordering/kds"
	"github.com/yeremiapane/branch-ordering/middlewares"
	"github.com/yeremiapane/branch-ordering/router"
	"github.com/yeremiapane/branch-ordering/services"
	"github.com/yeremiapane/branch-ordering/utils"
)

func main() {
	if err := godotenv.Load(); err != nil {
		utils.InfoLogger.Println("Warning: .env file not found")
	}

	cfg := config.Load()
	utils.InitLogger(cfg.Logger.Level)
	if cfg.JWT.Secret == "" {
		utils.ErrorLogger.Fatal("JWT_SECRET is not set")
	}
	utils.SetJWTSecret(cfg.JWT.Secret)

	if cfg.Server.GinMode == gin.ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := config.InitDB(cfg.Database)
	if err != nil {
		utils.ErrorLogger.Fatalf("Failed to connect to database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		utils.ErrorLogger.Fatalf("Failed to migrate database: %v", err)
	}
	if cfg.Database.SeedFile != "" {
		if _, err := database.ExecuteSQLFile(db, cfg.Database.SeedFile); err != nil {
			utils.ErrorLogger.Fatalf("Failed to seed database: %v", err)
		}
	}

	// Realtime: websocket rooms, plus Kafka when brokers are configured.
	hub := kds.NewHub()
	var publisher kds.Publisher = hub
	if len(cfg.Kafka.Brokers) > 0 {
		kafka := kds.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		defer kafka.Close()
		publisher = kds.MultiPublisher{hub, kafka}
		utils.InfoLogger.Printf("Publishing order events to kafka topic %s", cfg.Kafka.Topic)
	}
	notifier := services.NewOrderNotifier(publisher)

	var cache services.PromotionCache = services.NewMemoryPromotionCache()
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer client.Close()
		cache = services.NewRedisPromotionCache(client, cfg.Redis.PromotionTTL)
		utils.InfoLogger.Printf("Using redis promotion cache at %s", cfg.Redis.Addr)
	}
	promotions := services.NewCachedPromotionSource(services.NewDBPromotionSource(db), cache)

	orders := services.NewOrderService(db, notifier, cfg.Order.TxTimeout)

	var provider services.PaymentVerifier
	pv := services.NewProviderPaymentVerifier(services.ProviderConfig{
		BaseURL:   cfg.Payment.BaseURL,
		SecretKey: cfg.Payment.SecretKey,
		Timeout:   cfg.Payment.Timeout,
	})
	if err := pv.ValidateConfig(); err != nil {
		utils.ErrorLogger.Warnf("Payment callbacks disabled: %v", err)
	} else {
		provider = pv
	}

	limiter := middlewares.NewRateLimiter(cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst)

	r := router.SetupRouter(router.Options{
		DB:          db,
		Hub:         hub,
		Menu:        services.NewMenuService(db, promotions),
		Checkout:    services.NewCheckoutService(db, promotions, orders, cfg.Order.TotalTolerance),
		Orders:      orders,
		Kitchen:     services.NewKitchenService(db, notifier),
		Promotions:  services.NewPromotionService(db, promotions),
		Auth:        services.NewAuthService(db),
		Provider:    provider,
		CORSOrigin:  cfg.Server.CORSOrigin,
		BaseDomain:  cfg.Server.BaseDomain,
		RateLimiter: limiter,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	done := make(chan struct{})
	defer close(done)
	go utils.CleanupBlacklist(time.Hour, done)
	go func() {
		ticker := time.NewTicker(10 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				limiter.Cleanup(30 * time.Minute)
			case <-done:
				return
			}
		}
	}()

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: r,
	}
	go func() {
		utils.InfoLogger.Printf("Listening on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			utils.ErrorLogger.Fatal(err)
		}
	}()

	<-ctx.Done()
	utils.InfoLogger.Println("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		utils.ErrorLogger.Errorf("Server shutdown: %v", err)
	}
}
