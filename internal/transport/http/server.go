package http

import (
	"context"
	"fmt"
	"log"
	stdhttp "net/http"
	"time"

	"greencycle/internal/cache"
	"greencycle/internal/config"
	"greencycle/internal/database"
	"greencycle/internal/handler"
	"greencycle/internal/redis"
	"greencycle/internal/repository"
	"greencycle/internal/service"
)

func Run() error {
	ctx := context.Background()

	// 1. Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// 2. Connect to Postgres and apply migrations
	db, err := database.Connect(cfg)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	if err := database.Migrate(ctx, db); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	// 3. Connect to Redis (nonce replay cache)
	redisClient, err := redis.NewClient(cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("failed to create redis client: %w", err)
	}
	defer redisClient.Close()

	if err := redisClient.Ping(ctx); err != nil {
		return fmt.Errorf("failed to reach redis: %w", err)
	}

	// 4. Repositories
	txManager := repository.NewTxManager(db)
	userRepo := repository.NewUserRepository(db)
	deviceRepo := repository.NewDeviceBindingRepository(db)
	refreshTokenRepo := repository.NewRefreshTokenRepository(db)
	couponRepo := repository.NewCouponRepository(db)
	redemptionRepo := repository.NewRedemptionRepository(db)
	ledgerRepo := repository.NewLedgerRepository(db)
	wasteRepo := repository.NewWasteRepository(db)

	nonceCache := cache.NewRedisNonceCache(redisClient.Client)

	// 5. Services
	userService := service.NewUserService(userRepo, deviceRepo)
	authService := service.NewAuthService(refreshTokenRepo, userRepo, cfg)
	couponService := service.NewCouponService(couponRepo)
	redemptionService := service.NewRedemptionService(txManager, userRepo, couponRepo, redemptionRepo, ledgerRepo)
	pointsService := service.NewPointsService(userRepo, ledgerRepo)
	wasteService := service.NewWasteService(txManager, wasteRepo, userRepo, ledgerRepo)

	// Media is optional: without R2 configuration the upload endpoint is
	// simply not mounted.
	var mediaHandler *handler.MediaHandler
	mediaService, err := service.NewMediaService(ctx, cfg)
	if err != nil {
		log.Printf("Media uploads disabled: %v", err)
	} else {
		mediaHandler = handler.NewMediaHandler(mediaService)
	}

	// 6. Handlers and router
	router := NewRouter(RouterConfig{
		AuthHandler:   handler.NewAuthHandler(userService, authService),
		CouponHandler: handler.NewCouponHandler(couponService, redemptionService),
		PointsHandler: handler.NewPointsHandler(pointsService),
		WasteHandler:  handler.NewWasteHandler(wasteService),
		MediaHandler:  mediaHandler,

		DeviceBindings: deviceRepo,
		NonceCache:     nonceCache,

		JWTSecret:        cfg.JWTSecret,
		SignatureMaxSkew: time.Duration(cfg.SignatureMaxSkew) * time.Second,
	})

	addr := ":" + cfg.ServerPort
	log.Printf("Starting server on %s", addr)
	return stdhttp.ListenAndServe(addr, router)
}
